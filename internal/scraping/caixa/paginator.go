// internal/scraping/caixa/paginator.go
package caixa

import (
	"context"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ps-vitor/caixa-imoveis/internal/domain"
	"github.com/ps-vitor/caixa-imoveis/pkg/logger"
)

// idBatchPrefix é a convenção de id dos campos ocultos: hdnImovN guarda o lote
// de identificadores da página N, separados por "||".
const idBatchPrefix = "hdnImov"

// resultsContainerID é o container que a estratégia estrutural do extrator
// procura; fragmentos de página chegam sem ele e precisam ser embrulhados.
const resultsContainerID = "listaimoveispaginacao"

// Paginator inicia a busca de uma cidade e recupera cada página como um
// fragmento de HTML.
type Paginator struct {
	fetcher Fetcher
	log     *logger.Logger
}

func NewPaginator(fetcher Fetcher, log *logger.Logger) *Paginator {
	return &Paginator{fetcher: fetcher, log: log}
}

// StartSearch dispara a busca sem filtros e decodifica o manifesto de
// paginação embutido nos campos ocultos da resposta.
func (p *Paginator) StartSearch(ctx context.Context, estado, cityCode string) (*domain.PageManifest, error) {
	page, err := p.fetcher.StartSearch(ctx, estado, cityCode)
	if err != nil {
		return nil, err
	}
	return parseManifest(page)
}

func parseManifest(page string) (*domain.PageManifest, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, &domain.MalformedResponseError{Missing: "documento de resultado"}
	}

	totalPages, ok := hiddenInt(doc, "hdnQtdPag")
	if !ok {
		return nil, &domain.MalformedResponseError{Missing: "campo oculto hdnQtdPag"}
	}
	totalRecords, ok := hiddenInt(doc, "hdnQtdRegistros")
	if !ok {
		return nil, &domain.MalformedResponseError{Missing: "campo oculto hdnQtdRegistros"}
	}

	manifest := &domain.PageManifest{
		TotalPages:   totalPages,
		TotalRecords: totalRecords,
		PageIDs:      map[int][]string{},
	}

	doc.Find("input[type=hidden]").Each(func(_ int, s *goquery.Selection) {
		id, exists := s.Attr("id")
		if !exists || !strings.HasPrefix(id, idBatchPrefix) {
			return
		}
		suffix := strings.TrimPrefix(id, idBatchPrefix)
		pageNum, err := strconv.Atoi(suffix)
		if err != nil {
			// Sufixo não numérico (ex.: hdnImovTotal): ignorado por convenção.
			return
		}
		value, _ := s.Attr("value")
		var ids []string
		for _, piece := range strings.Split(value, "||") {
			if piece = strings.TrimSpace(piece); piece != "" {
				ids = append(ids, piece)
			}
		}
		if len(ids) > 0 {
			manifest.PageIDs[pageNum] = ids
		}
	})

	return manifest, nil
}

func hiddenInt(doc *goquery.Document, id string) (int, bool) {
	value, exists := doc.Find("#" + id).Attr("value")
	if !exists {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, false
	}
	return n, true
}

// FetchPageFragment envia o lote de identificadores da página e devolve o
// fragmento embrulhado no container sintético que o extrator espera.
func (p *Paginator) FetchPageFragment(ctx context.Context, page int, manifest *domain.PageManifest) (string, error) {
	ids, ok := manifest.IDsForPage(page)
	if !ok {
		return "", &domain.MalformedResponseError{Missing: "lote de identificadores da página"}
	}
	fragment, err := p.fetcher.FetchPage(ctx, page, ids)
	if err != nil {
		return "", err
	}
	if hasResultsContainer(fragment) {
		return fragment, nil
	}
	return `<div id="` + resultsContainerID + `">` + fragment + `</div>`, nil
}

// hasResultsContainer procura o container como elemento. Comparar o texto cru
// não basta: scripts da página citam o id sem que o elemento exista.
func hasResultsContainer(fragment string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return false
	}
	return doc.Find("#"+resultsContainerID).Length() > 0
}
