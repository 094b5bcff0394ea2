// internal/api/handlers/scraping_test.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ps-vitor/caixa-imoveis/internal/scraping/caixa"
	"github.com/ps-vitor/caixa-imoveis/internal/services"
	"github.com/ps-vitor/caixa-imoveis/pkg/logger"
)

// stubFetcher devolve marcação fixa, suficiente para uma coleta de uma página.
type stubFetcher struct{}

func (stubFetcher) ListCities(context.Context, string) (string, error) {
	return `<option value="9858">SAO PAULO</option>`, nil
}

func (stubFetcher) ListBairros(context.Context, string, string) (string, error) {
	return `<option value="1">MOOCA</option>`, nil
}

func (stubFetcher) StartSearch(context.Context, string, string) (string, error) {
	return `<input type="hidden" id="hdnQtdPag" value="1">
<input type="hidden" id="hdnQtdRegistros" value="1">
<input type="hidden" id="hdnImov1" value="111">`, nil
}

func (stubFetcher) FetchPage(context.Context, int, []string) (string, error) {
	return `<li class="group-block-item">
<strong>Apartamento Residencial Aurora</strong>
<p>Número do item: 1</p>
<p>RUA BOTUCATU 100, MOOCA</p>
</li>`, nil
}

func (stubFetcher) Close() error { return nil }

func newScrapingHandler(t *testing.T) *ScrapingHandler {
	t.Helper()
	log := logger.New("test")
	collector := caixa.NewCollector(stubFetcher{}, log)
	svc := services.NewScraperService(collector, nil, log)
	return NewScrapingHandler(svc, log)
}

func TestHandleScrapeUnknownCityReturns404(t *testing.T) {
	h := newScrapingHandler(t)

	body := strings.NewReader(`{"estado":"SP","cidade":"ATLANTIDA"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/scrape", body)
	rec := httptest.NewRecorder()

	h.HandleScrape(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ATLANTIDA")
}

func TestHandleScrapeReturnsCollectedProperties(t *testing.T) {
	h := newScrapingHandler(t)

	body := strings.NewReader(`{"estado":"SP","cidade":"SAO PAULO"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/scrape", body)
	rec := httptest.NewRecorder()

	h.HandleScrape(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp scrapeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, 1, resp.Expected)
	require.Len(t, resp.Imoveis, 1)
	assert.Equal(t, "Apartamento Residencial Aurora", resp.Imoveis[0].Title)
}

func TestHandleScrapeRejectsMissingFields(t *testing.T) {
	h := newScrapingHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(`{"estado":"SP"}`))
	rec := httptest.NewRecorder()

	h.HandleScrape(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
