// internal/domain/errors.go
package domain

import (
	"fmt"
	"strings"
)

// NetworkError indica falha de rede/timeout/5xx depois de esgotar as
// tentativas do cliente. Err guarda a última causa.
type NetworkError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error after %d attempt(s) on %s: %v", e.Attempts, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// CityNotFoundError é fatal e carrega a lista completa de cidades disponíveis
// para o operador corrigir a entrada.
type CityNotFoundError struct {
	Estado    string
	Cidade    string
	Available []string
}

func (e *CityNotFoundError) Error() string {
	return fmt.Sprintf("cidade %q não encontrada para o estado %s (%d disponíveis: %s)",
		e.Cidade, e.Estado, len(e.Available), strings.Join(truncate(e.Available, 10), ", "))
}

func truncate(list []string, n int) []string {
	if len(list) <= n {
		return list
	}
	out := append([]string(nil), list[:n]...)
	return append(out, "...")
}

// MalformedResponseError indica que um campo oculto ou container esperado não
// veio na resposta. Fatal apenas no início da busca; nos demais pontos vira
// resultado vazio logado.
type MalformedResponseError struct {
	Missing string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("resposta malformada: %s ausente", e.Missing)
}
