// internal/scraping/caixa/address.go
package caixa

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Padrões aplicados do mais restrito ao mais permissivo: o primeiro candidato
// que passa pela blacklist vence.
var addressTrimPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)((?:RUA|AVENIDA|AV|ALAMEDA|TRAVESSA|PRAÇA)\s+[^,]+,\s*N\.\s*[^,]+(?:,\s*[^,]+)*)`),
	regexp.MustCompile(`(?i)((?:RUA|AVENIDA|AV|ALAMEDA|TRAVESSA|PRAÇA)[^,]+(?:,[^,]+)*?)(?:,\s*,|$)`),
	regexp.MustCompile(`(?i)((?:RUA|AVENIDA|AV|ALAMEDA|TRAVESSA|PRAÇA)[^$]+)`),
}

// trechos que denunciam que o candidato engoliu dados de venda
var addressBlacklistRe = regexp.MustCompile(`(?i)avaliação|valor.*venda|desconto|apartamento.*quarto|venda direta|número do imóvel`)

// recorte mais apertado para candidatos longos contaminados
var addressTightRe = regexp.MustCompile(`(?i)((?:RUA|AVENIDA|AV|ALAMEDA|TRAVESSA|PRAÇA)[^,]+(?:,[^,]+){0,2})`)

var addressRemovePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)avaliação:\s*R\$[^A-Z]*`),
	regexp.MustCompile(`(?i)Valor mínimo de venda:[^A-Z]*`),
	regexp.MustCompile(`(?i)desconto de[^A-Z]*`),
	regexp.MustCompile(`(?i)Apartamento\s*-\s*\d+\s*quarto\(s\)\s*-[^A-Z]*`),
	regexp.MustCompile(`(?i)Venda Direta Online[^A-Z]*`),
	regexp.MustCompile(`(?i)Número do imóvel:\s*[0-9\-]+\s*`),
}

var (
	whitespaceRe    = regexp.MustCompile(`\s+`)
	trailingCommaRe = regexp.MustCompile(`,\s*,\s*$`)
	longAddressRe   = regexp.MustCompile(`^(.{50,120}),\s*,`)
)

// Padrões de endereço para a varredura do texto completo do item.
var addressScanPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Número do imóvel:\s*[0-9\-]+\s*(.+?)(?:\s*$|despesas)`),
	regexp.MustCompile(`(?i)((?:RUA|AVENIDA|AV|ALAMEDA|TRAVESSA|PRAÇA)[^<\n]+?)(?:\s*<|\s*despesas)`),
	regexp.MustCompile(`(?i)número do item:\s*\d+[^<\n]*?([^<\n]+?)(?:\s*despesas|$)`),
}

// extractAddress tenta primeiro a linha seguinte ao "Número do item:" e, não
// achando endereço aproveitável, varre o texto completo com os padrões de
// logradouro.
func extractAddress(allText string) string {
	lines := strings.Split(allText, "\n")

	for i := range lines {
		if !strings.Contains(strings.ToLower(strings.TrimSpace(lines[i])), "número do item:") {
			continue
		}
		for j := i + 1; j < len(lines); j++ {
			next := strings.TrimSpace(lines[j])
			if next == "" || strings.HasPrefix(strings.ToLower(next), "despesas") {
				continue
			}
			if cleaned := cleanAddress(next); cleaned != "" {
				return cleaned
			}
		}
		break
	}

	for _, pattern := range addressScanPatterns {
		m := pattern.FindStringSubmatch(allText)
		if m == nil {
			continue
		}
		cleaned := cleanAddress(strings.TrimSpace(m[1]))
		if cleaned != "" && utf8.RuneCountInString(cleaned) > 10 {
			return cleaned
		}
	}
	return ""
}

// cleanAddress corta os anexos de venda (CEP, avaliação, desconto) que o
// portal cola no fim do logradouro. A limpeza é idempotente: endereço já
// limpo sai inalterado.
func cleanAddress(raw string) string {
	endereco := strings.TrimSpace(raw)

	var found string
	for _, pattern := range addressTrimPatterns {
		m := pattern.FindStringSubmatch(endereco)
		if m == nil {
			continue
		}
		candidate := strings.TrimSpace(m[1])
		if !addressBlacklistRe.MatchString(candidate) {
			found = candidate
			break
		}
		if utf8.RuneCountInString(candidate) > 20 {
			if sub := addressTightRe.FindStringSubmatch(candidate); sub != nil {
				found = strings.TrimSpace(sub[1])
				break
			}
		}
	}

	if found != "" {
		endereco = found
	} else {
		for _, pattern := range addressRemovePatterns {
			endereco = pattern.ReplaceAllString(endereco, "")
		}
	}

	endereco = whitespaceRe.ReplaceAllString(endereco, " ")
	endereco = strings.TrimSpace(endereco)
	endereco = trailingCommaRe.ReplaceAllString(endereco, "")
	endereco = strings.TrimSpace(endereco)

	if utf8.RuneCountInString(endereco) > 150 {
		if m := longAddressRe.FindStringSubmatch(endereco); m != nil {
			endereco = strings.TrimSpace(m[1])
		}
	}
	return endereco
}

// prefixos de bairro usados quando a lista da cidade não resolve
var bairroPrefixes = []string{"VILA ", "CIDADE ", "JARDIM ", "PARQUE ", "CONJUNTO "}

// detectBairro procura na ordem: lista de bairros da cidade (mais longos
// primeiro), último segmento após vírgula, segmento antes do hífen final e por
// fim os prefixos típicos de bairro.
func (e *Extractor) detectBairro(endereco string) string {
	if endereco == "" {
		return ""
	}
	upper := strings.ToUpper(endereco)

	e.mu.RLock()
	bairros := e.bairros
	e.mu.RUnlock()

	for _, bairro := range bairros {
		if strings.Contains(upper, bairro) {
			return bairro
		}
	}

	if idx := strings.LastIndex(upper, ","); idx >= 0 {
		segment := strings.TrimSpace(upper[idx+1:])
		if isAlphaOnly(segment) && utf8.RuneCountInString(segment) > 4 {
			return segment
		}
	}

	if parts := strings.Split(upper, " - "); len(parts) >= 2 {
		segment := strings.TrimSpace(parts[len(parts)-2])
		if isAlphaOnly(segment) && utf8.RuneCountInString(segment) > 4 {
			return segment
		}
	}

	for _, prefix := range bairroPrefixes {
		idx := strings.Index(upper, prefix)
		if idx < 0 {
			continue
		}
		rest := upper[idx:]
		rest = strings.Split(rest, ",")[0]
		rest = strings.Split(rest, " - ")[0]
		if utf8.RuneCountInString(rest) > utf8.RuneCountInString(prefix)+3 {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

func isAlphaOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
