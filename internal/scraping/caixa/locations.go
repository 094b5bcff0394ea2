// internal/scraping/caixa/locations.go
package caixa

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ps-vitor/caixa-imoveis/internal/domain"
	"github.com/ps-vitor/caixa-imoveis/pkg/logger"
)

// City é um par (código interno do portal, nome exibido).
type City struct {
	Code string
	Name string
}

// LocationResolver traduz nomes livres de cidade para os códigos internos do
// portal e carrega a lista de bairros da cidade resolvida.
type LocationResolver struct {
	fetcher Fetcher
	log     *logger.Logger

	// overrides é a tabela manual (estado -> nome normalizado -> código),
	// consultada como último recurso antes de falhar.
	overrides map[string]map[string]string
}

func NewLocationResolver(fetcher Fetcher, overrides map[string]map[string]string, log *logger.Logger) *LocationResolver {
	return &LocationResolver{fetcher: fetcher, overrides: overrides, log: log}
}

// normalizeName apara, colapsa espaços internos e coloca em maiúsculas.
// Aplicada igualmente à entrada e a cada candidato antes de comparar.
func normalizeName(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// ListCities busca e interpreta a lista de cidades do estado. A resposta é
// uma marcação ad-hoc de <option>, interpretada com tolerância.
func (r *LocationResolver) ListCities(ctx context.Context, estado string) ([]City, error) {
	markup, err := r.fetcher.ListCities(ctx, estado)
	if err != nil {
		return nil, err
	}
	return parseCityOptions(markup), nil
}

func parseCityOptions(markup string) []City {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}
	var cities []City
	doc.Find("option").Each(func(_ int, s *goquery.Selection) {
		code, _ := s.Attr("value")
		name := strings.TrimSpace(s.Text())
		if code == "" || name == "" || strings.HasPrefix(strings.ToUpper(name), "SELECIONE") {
			return
		}
		cities = append(cities, City{Code: code, Name: name})
	})
	return cities
}

// ResolveCityCode aplica a cascata de correspondência, na ordem estrita:
// exata, entrada contém candidato, candidato contém entrada, tabela manual.
// A primeira que casar vence; sem nenhuma, falha com a lista completa.
func (r *LocationResolver) ResolveCityCode(ctx context.Context, estado, cidade string) (string, error) {
	cities, err := r.ListCities(ctx, estado)
	if err != nil {
		return "", err
	}

	input := normalizeName(cidade)

	for _, c := range cities {
		if normalizeName(c.Name) == input {
			r.log.Debug("cidade resolvida por correspondência exata", "cidade", c.Name, "codigo", c.Code)
			return c.Code, nil
		}
	}
	// Entrada mais longa que o candidato conhecido, ex.: "SAO PAULO - CAPITAL"
	// casa com "SAO PAULO".
	for _, c := range cities {
		if cand := normalizeName(c.Name); cand != "" && strings.Contains(input, cand) {
			r.log.Debug("cidade resolvida por correspondência parcial", "cidade", c.Name, "codigo", c.Code)
			return c.Code, nil
		}
	}
	for _, c := range cities {
		if cand := normalizeName(c.Name); input != "" && strings.Contains(cand, input) {
			r.log.Debug("cidade resolvida por correspondência parcial reversa", "cidade", c.Name, "codigo", c.Code)
			return c.Code, nil
		}
	}
	if byState, ok := r.overrides[strings.ToUpper(estado)]; ok {
		if code, ok := byState[input]; ok {
			r.log.Info("cidade resolvida pela tabela manual", "cidade", cidade, "codigo", code)
			return code, nil
		}
	}

	names := make([]string, 0, len(cities))
	for _, c := range cities {
		names = append(names, c.Name)
	}
	return "", &domain.CityNotFoundError{Estado: estado, Cidade: cidade, Available: names}
}

var bairroSplitRe = regexp.MustCompile(`[\n,;|]`)

// ResolveBairros busca os bairros da cidade. Melhor esforço: qualquer falha é
// do chamador decidir logar e seguir com conjunto vazio.
func (r *LocationResolver) ResolveBairros(ctx context.Context, estado, cityCode string) ([]string, error) {
	markup, err := r.fetcher.ListBairros(ctx, estado, cityCode)
	if err != nil {
		return nil, err
	}
	return parseBairros(markup), nil
}

func parseBairros(markup string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	seen := map[string]bool{}
	var bairros []string
	add := func(raw string) {
		b := strings.ToUpper(strings.TrimSpace(raw))
		if len(b) > 2 && !strings.HasPrefix(b, "SELECIONE") && !seen[b] {
			seen[b] = true
			bairros = append(bairros, b)
		}
	}

	doc.Find("option, li, a, span, label").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() == 0 {
			add(s.Text())
		}
	})

	// Sem elementos individuais, cai para o texto corrido da marcação.
	if len(bairros) == 0 {
		for _, piece := range bairroSplitRe.Split(doc.Text(), -1) {
			add(piece)
		}
	}

	sort.Strings(bairros)
	return bairros
}
