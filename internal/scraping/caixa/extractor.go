// internal/scraping/caixa/extractor.go
package caixa

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/ps-vitor/caixa-imoveis/internal/domain"
	"github.com/ps-vitor/caixa-imoveis/pkg/logger"
)

var (
	numeroItemRe = regexp.MustCompile(`(?i)número do item:\s*(\d+)`)
	codigoRe     = regexp.MustCompile(`(?i)número do imóvel:\s*([0-9\-]+)`)
	areaRe       = regexp.MustCompile(`(\d+,?\d*)\s*m2`)
	quartosRe    = regexp.MustCompile(`(?i)(\d+)\s*quarto`)

	// A página do formulário ainda aberta não é um resultado vazio.
	formIndicatorRe = regexp.MustCompile(`(?i)Selecione.*modalidade.*venda`)
)

// textos de strong que nunca são título de imóvel
var titleBoilerplate = []string{"tempo restante", "número do item", "despesas"}

// Extractor recupera registros de imóvel do HTML de uma página de resultados.
// O conjunto de bairros é trocado inteiro a cada cidade resolvida e fica
// somente-leitura durante a extração.
type Extractor struct {
	mu      sync.RWMutex
	bairros []string // ordenados do nome mais longo para o mais curto
	log     *logger.Logger
}

func NewExtractor(log *logger.Logger) *Extractor {
	return &Extractor{log: log}
}

// SetBairros substitui o conjunto de bairros conhecidos. Os nomes mais longos
// vêm primeiro para que "VILA MARIA" vença "MARIA" num mesmo endereço.
func (e *Extractor) SetBairros(list []string) {
	ordered := make([]string, 0, len(list))
	for _, b := range list {
		if b = strings.ToUpper(strings.TrimSpace(b)); b != "" {
			ordered = append(ordered, b)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return utf8.RuneCountInString(ordered[i]) > utf8.RuneCountInString(ordered[j])
	})

	e.mu.Lock()
	e.bairros = ordered
	e.mu.Unlock()
}

// ExtractFromPage aplica a estratégia estrutural e, na falta do container de
// resultados, o fallback tabular. Devolve os registros e a contagem de itens
// descartados (sem título recuperável).
func (e *Extractor) ExtractFromPage(html string) ([]domain.Property, int) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.log.Warn("falha ao interpretar HTML da página", "err", err)
		return nil, 0
	}

	container := doc.Find("#" + resultsContainerID)
	if container.Length() > 0 {
		var properties []domain.Property
		skipped := 0
		container.Find("li.group-block-item").Each(func(_ int, item *goquery.Selection) {
			if p, ok := e.extractItem(item); ok {
				properties = append(properties, p)
			} else {
				skipped++
			}
		})
		e.log.Debug("extração estrutural", "registros", len(properties), "descartados", skipped)
		return properties, skipped
	}

	if formIndicatorRe.MatchString(doc.Text()) {
		e.log.Warn("página ainda mostra o formulário de busca, nada a extrair")
		return nil, 0
	}

	e.log.Warn("container de resultados ausente, tentando fallback tabular")
	return e.extractFromTables(doc), 0
}

// extractItem extrai um registro de um item de listagem. A ausência de título
// não é erro: o item simplesmente não rende registro.
func (e *Extractor) extractItem(item *goquery.Selection) (domain.Property, bool) {
	var p domain.Property

	titleText := findTitleText(item)
	if titleText != "" {
		if idx := strings.Index(titleText, "|"); idx >= 0 {
			p.Title = strings.TrimSpace(titleText[:idx])
			if strings.Contains(titleText, "R$") {
				parts := strings.Split(titleText, "|")
				p.Value = strings.TrimSpace(parts[len(parts)-1])
			}
		} else {
			p.Title = titleText
		}
	}

	allText := item.Text()

	if m := numeroItemRe.FindStringSubmatch(allText); m != nil {
		p.ItemNumber = m[1]
	}
	if m := codigoRe.FindStringSubmatch(allText); m != nil {
		p.Code = strings.TrimSpace(m[1])
	}

	p.Address = extractAddress(allText)
	if p.Address != "" {
		p.Neighborhood = e.detectBairro(p.Address)
	}

	e.scanTechnicalInfo(allText, &p)

	return p, p.Valid()
}

// findTitleText procura o primeiro texto enfatizado que pareça um título:
// não começa com boilerplate e tem mais de 10 caracteres. Sem candidato,
// cai para o primeiro strong e por fim para os links do item.
func findTitleText(item *goquery.Selection) string {
	var title string
	item.Find("strong").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if isTitleCandidate(text) {
			title = text
			return false
		}
		return true
	})

	if title == "" {
		if first := item.Find("strong").First(); first.Length() > 0 {
			title = strings.TrimSpace(first.Text())
		}
	}

	// O strong de fallback pode ser o contador de tempo ou o número do item;
	// nesse caso o título costuma estar no link do anúncio.
	lower := strings.ToLower(title)
	if strings.HasPrefix(lower, "tempo restante") || strings.HasPrefix(lower, "número do item") {
		item.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if text != "" && utf8.RuneCountInString(text) > 10 &&
				!strings.HasPrefix(strings.ToLower(text), "tempo restante") {
				title = text
				return false
			}
			return true
		})
	}

	// Boilerplate nunca vira título; sem alternativa o item fica sem registro.
	lower = strings.ToLower(title)
	for _, b := range titleBoilerplate {
		if strings.HasPrefix(lower, b) {
			return ""
		}
	}
	return title
}

func isTitleCandidate(text string) bool {
	if text == "" || utf8.RuneCountInString(text) <= 10 {
		return false
	}
	lower := strings.ToLower(text)
	for _, b := range titleBoilerplate {
		if strings.HasPrefix(lower, b) {
			return false
		}
	}
	return true
}

// scanTechnicalInfo varre o texto linha a linha atrás de tipo, área, quartos
// e modalidade de venda.
func (e *Extractor) scanTechnicalInfo(allText string, p *domain.Property) {
	for _, line := range strings.Split(allText, "\n") {
		lower := strings.ToLower(line)

		if strings.Contains(lower, "apartamento") && strings.Contains(lower, "m2") {
			p.Type = domain.TypeApartamento
			if m := areaRe.FindStringSubmatch(line); m != nil {
				p.Area = m[1] + " m²"
			}
		} else if strings.Contains(lower, "casa") {
			p.Type = domain.TypeCasa
		}

		if m := quartosRe.FindStringSubmatch(lower); m != nil {
			p.Rooms = m[1] + " quartos"
		}

		if strings.Contains(lower, "leilão") {
			p.Modality = domain.ModalityLeilao
		} else if strings.Contains(lower, "venda direta") {
			p.Modality = domain.ModalityVendaDireta
		}
	}
}

// palavras que indicam uma linha de tabela com dados de imóvel
var rowKeywords = []string{
	"r$", "real", "reais", "valor", "preço",
	"rua", "av ", "avenida", "alameda", "travessa",
	"m²", "m2", "metro",
	"apartamento", "casa", "imovel", "imóvel",
	"dorm", "quarto", "qto",
}

// extractFromTables é a estratégia de último recurso quando a estrutura
// conhecida não veio: varre linhas de tabela com cara de anúncio e extrai os
// campos por posição e palavra-chave.
func (e *Extractor) extractFromTables(doc *goquery.Document) []domain.Property {
	var properties []domain.Property

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td, th")
			if cells.Length() < 2 {
				return
			}
			texts := make([]string, 0, cells.Length())
			cells.Each(func(_ int, cell *goquery.Selection) {
				texts = append(texts, strings.TrimSpace(cell.Text()))
			})

			rowText := strings.ToLower(strings.Join(texts, " "))
			indicated := false
			for _, kw := range rowKeywords {
				if strings.Contains(rowText, kw) {
					indicated = true
					break
				}
			}
			if indicated && len(texts) >= 3 {
				properties = append(properties, parseRowCells(texts))
			}
		})
	})

	if len(properties) == 0 {
		e.log.Warn("nenhum imóvel encontrado nas tabelas da página")
	}
	return properties
}

func parseRowCells(texts []string) domain.Property {
	p := domain.Property{RawData: strings.Join(texts, " | ")}

	if texts[0] != "" {
		p.Code = texts[0]
	}
	for _, cell := range texts {
		lower := strings.ToLower(strings.TrimSpace(cell))
		switch {
		case strings.Contains(lower, "r$"):
			p.Value = strings.TrimSpace(cell)
		case strings.Contains(lower, "m²") || strings.Contains(lower, "m2"):
			p.Area = strings.TrimSpace(cell)
		}
		for _, street := range []string{"rua", "av ", "avenida", "alameda", "travessa"} {
			if strings.Contains(lower, street) {
				p.Address = strings.TrimSpace(cell)
				break
			}
		}
		for _, room := range []string{"quarto", "dorm", "qto"} {
			if strings.Contains(lower, room) {
				p.Rooms = strings.TrimSpace(cell)
				break
			}
		}
	}
	return p
}
