// internal/api/handlers/scraping.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ps-vitor/caixa-imoveis/internal/domain"
	"github.com/ps-vitor/caixa-imoveis/internal/services"
	"github.com/ps-vitor/caixa-imoveis/pkg/logger"
)

type ScrapingHandler struct {
	scraperService *services.ScraperService
	log            *logger.Logger
}

func NewScrapingHandler(svc *services.ScraperService, log *logger.Logger) *ScrapingHandler {
	return &ScrapingHandler{scraperService: svc, log: log}
}

type scrapeRequest struct {
	Estado string `json:"estado"`
	Cidade string `json:"cidade"`
}

type scrapeResponse struct {
	Total    int               `json:"total_properties"`
	Expected int               `json:"total_expected"`
	Skipped  int               `json:"itens_descartados"`
	Imoveis  []domain.Property `json:"imoveis"`
}

// HandleScrape dispara uma coleta síncrona para o estado/cidade do corpo.
func (h *ScrapingHandler) HandleScrape(w http.ResponseWriter, r *http.Request) {
	var body scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "corpo inválido: esperado {\"estado\", \"cidade\"}", http.StatusBadRequest)
		return
	}
	if body.Estado == "" || body.Cidade == "" {
		http.Error(w, "estado e cidade são obrigatórios", http.StatusBadRequest)
		return
	}

	req := domain.SearchRequest{Estado: body.Estado, Cidade: body.Cidade}
	result, err := h.scraperService.ScrapeAndStore(r.Context(), req)
	if err != nil {
		var notFound *domain.CityNotFoundError
		if errors.As(err, &notFound) {
			http.Error(w, notFound.Error(), http.StatusNotFound)
			return
		}
		h.log.Error("coleta falhou", "err", err)
		http.Error(w, "falha na coleta: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(scrapeResponse{
		Total:    len(result.Properties),
		Expected: result.TotalExpected,
		Skipped:  result.SkippedItems,
		Imoveis:  result.Properties,
	})
}
