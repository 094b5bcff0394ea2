// internal/scraping/caixa/collector_test.go
package caixa

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ps-vitor/caixa-imoveis/internal/domain"
	"github.com/ps-vitor/caixa-imoveis/pkg/logger"
)

// fakeFetcher devolve marcações pré-montadas; compartilhado pelos testes do
// pacote.
type fakeFetcher struct {
	citiesMarkup  string
	citiesErr     error
	bairrosMarkup string
	bairrosErr    error
	searchMarkup  string
	searchErr     error
	pages         map[int]string
	pageErr       error

	pageCalls []int
}

func (f *fakeFetcher) ListCities(context.Context, string) (string, error) {
	return f.citiesMarkup, f.citiesErr
}

func (f *fakeFetcher) ListBairros(context.Context, string, string) (string, error) {
	return f.bairrosMarkup, f.bairrosErr
}

func (f *fakeFetcher) StartSearch(context.Context, string, string) (string, error) {
	return f.searchMarkup, f.searchErr
}

func (f *fakeFetcher) FetchPage(_ context.Context, page int, _ []string) (string, error) {
	f.pageCalls = append(f.pageCalls, page)
	if f.pageErr != nil {
		return "", f.pageErr
	}
	fragment, ok := f.pages[page]
	if !ok {
		return "", errors.New("página inesperada")
	}
	return fragment, nil
}

func (f *fakeFetcher) Close() error { return nil }

func pageFragment(titles ...string) string {
	var items string
	for _, title := range titles {
		items += fmt.Sprintf(`<li class="group-block-item">
<strong>%s</strong>
<p>Número do item: 1</p>
</li>
`, title)
	}
	return "<ul>\n" + items + "</ul>"
}

func searchMarkup(totalPages, totalRecords int, pageIDs map[int]string) string {
	markup := fmt.Sprintf(`<input type="hidden" id="hdnQtdPag" value="%d">
<input type="hidden" id="hdnQtdRegistros" value="%d">`, totalPages, totalRecords)
	for page, ids := range pageIDs {
		markup += fmt.Sprintf(`
<input type="hidden" id="hdnImov%d" value="%s">`, page, ids)
	}
	return markup
}

func TestCollectorSkipsPagesWithoutIDBatch(t *testing.T) {
	fetcher := &fakeFetcher{
		citiesMarkup:  citiesMarkup,
		bairrosMarkup: `<option value="1">VILA MARIA</option>`,
		// A página 3 consta no total mas veio sem lote de identificadores.
		searchMarkup: searchMarkup(3, 6, map[int]string{1: "111||222", 2: "333||444"}),
		pages: map[int]string{
			1: pageFragment("Apartamento Residencial Aurora", "Casa no Centro Historico"),
			2: pageFragment("Apartamento Vista Verde", "Casa da Rua Nova Alvorada"),
		},
	}

	c := NewCollector(fetcher, logger.New("test"))
	result, err := c.Run(context.Background(), domain.SearchRequest{Estado: "SP", Cidade: "SAO PAULO"})

	require.NoError(t, err)
	assert.Equal(t, StateDone, c.State())
	assert.Equal(t, []int{1, 2}, fetcher.pageCalls, "página sem lote não deve ser buscada")
	assert.Len(t, result.Properties, 4)
	assert.Equal(t, 6, result.TotalExpected)
	assert.False(t, result.Complete())
}

func TestCollectorStopsWhenExpectedTotalReached(t *testing.T) {
	fetcher := &fakeFetcher{
		citiesMarkup: citiesMarkup,
		searchMarkup: searchMarkup(3, 2, map[int]string{1: "111||222", 2: "333", 3: "444"}),
		pages: map[int]string{
			1: pageFragment("Apartamento Residencial Aurora", "Casa no Centro Historico"),
			2: pageFragment("Apartamento Vista Verde"),
			3: pageFragment("Casa da Rua Nova Alvorada"),
		},
	}

	c := NewCollector(fetcher, logger.New("test"))
	result, err := c.Run(context.Background(), domain.SearchRequest{Estado: "SP", Cidade: "SAO PAULO"})

	require.NoError(t, err)
	assert.Equal(t, []int{1}, fetcher.pageCalls, "total atingido encerra a paginação")
	assert.Len(t, result.Properties, 2)
	assert.True(t, result.Complete())
}

func TestCollectorFailsFastOnUnknownCity(t *testing.T) {
	fetcher := &fakeFetcher{citiesMarkup: citiesMarkup}

	c := NewCollector(fetcher, logger.New("test"))
	result, err := c.Run(context.Background(), domain.SearchRequest{Estado: "SP", Cidade: "ATLANTIDA"})

	require.Error(t, err)
	var notFound *domain.CityNotFoundError
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, StateFailed, c.State())
	assert.Empty(t, result.Properties)
	assert.Empty(t, fetcher.pageCalls, "cidade não resolvida não inicia busca")
}

func TestCollectorSurvivesBairroFailure(t *testing.T) {
	fetcher := &fakeFetcher{
		citiesMarkup: citiesMarkup,
		bairrosErr:   errors.New("timeout"),
		searchMarkup: searchMarkup(1, 1, map[int]string{1: "111"}),
		pages: map[int]string{
			1: pageFragment("Apartamento Residencial Aurora"),
		},
	}

	c := NewCollector(fetcher, logger.New("test"))
	result, err := c.Run(context.Background(), domain.SearchRequest{Estado: "SP", Cidade: "SAO PAULO"})

	require.NoError(t, err, "falha nos bairros não derruba a coleta")
	assert.Len(t, result.Properties, 1)
}

func TestCollectorFailsWhenSearchFails(t *testing.T) {
	fetcher := &fakeFetcher{
		citiesMarkup: citiesMarkup,
		searchErr:    errors.New("http 500"),
	}

	c := NewCollector(fetcher, logger.New("test"))
	_, err := c.Run(context.Background(), domain.SearchRequest{Estado: "SP", Cidade: "SAO PAULO"})

	require.Error(t, err)
	assert.Equal(t, StateFailed, c.State())
}

func TestCollectorKeepsPartialOnPageFailure(t *testing.T) {
	fetcher := &fakeFetcher{
		citiesMarkup: citiesMarkup,
		searchMarkup: searchMarkup(2, 4, map[int]string{1: "111||222", 2: "333||444"}),
		pages: map[int]string{
			1: pageFragment("Apartamento Residencial Aurora", "Casa no Centro Historico"),
			// página 2 ausente do mapa: o fake devolve erro
		},
	}

	c := NewCollector(fetcher, logger.New("test"))
	result, err := c.Run(context.Background(), domain.SearchRequest{Estado: "SP", Cidade: "SAO PAULO"})

	require.NoError(t, err, "falha numa página não derruba a coleta")
	assert.Len(t, result.Properties, 2)
	assert.False(t, result.Complete())
}

func TestCollectorClearsBairrosWhenFetchFails(t *testing.T) {
	item := `<li class="group-block-item">
<strong>Apartamento Residencial Aurora</strong>
<p>Número do item: 1</p>
<p>RUA BOTUCATU 100 MOOCA</p>
</li>`

	fetcher := &fakeFetcher{
		citiesMarkup:  citiesMarkup,
		bairrosMarkup: `<option value="1">MOOCA</option>`,
		searchMarkup:  searchMarkup(1, 1, map[int]string{1: "111"}),
		pages:         map[int]string{1: item},
	}

	c := NewCollector(fetcher, logger.New("test"))
	req := domain.SearchRequest{Estado: "SP", Cidade: "SAO PAULO"}

	first, err := c.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, first.Properties, 1)
	assert.Equal(t, "MOOCA", first.Properties[0].Neighborhood)

	// Na coleta seguinte os bairros falham: o conjunto anterior não pode
	// continuar valendo.
	fetcher.bairrosErr = errors.New("timeout")
	second, err := c.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, second.Properties, 1)
	assert.Empty(t, second.Properties[0].Neighborhood,
		"conjunto de bairros da coleta anterior vazou")
}

func TestCollectorSerializesConcurrentRuns(t *testing.T) {
	fetcher := &fakeFetcher{
		citiesMarkup: citiesMarkup,
		searchMarkup: searchMarkup(1, 1, map[int]string{1: "111"}),
		pages: map[int]string{
			1: pageFragment("Apartamento Residencial Aurora"),
		},
	}

	c := NewCollector(fetcher, logger.New("test"))
	req := domain.SearchRequest{Estado: "SP", Cidade: "SAO PAULO"}

	var wg sync.WaitGroup
	results := make([]*domain.ResultSet, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Run(context.Background(), req)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		assert.Len(t, results[i].Properties, 1)
	}
	// Coletas serializadas: o fake nunca vê chamadas intercaladas.
	assert.Equal(t, []int{1, 1}, fetcher.pageCalls)
	assert.Equal(t, StateDone, c.State())
}

func TestCollectorReturnsPartialOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fetcher := &fakeFetcher{
		citiesMarkup: citiesMarkup,
		searchMarkup: searchMarkup(2, 4, map[int]string{1: "111||222", 2: "333||444"}),
		pages: map[int]string{
			1: pageFragment("Apartamento Residencial Aurora", "Casa no Centro Historico"),
			2: pageFragment("Apartamento Vista Verde", "Casa da Rua Nova Alvorada"),
		},
	}

	c := NewCollector(fetcher, logger.New("test"))

	// Cancela antes de rodar: a primeira checagem do laço de páginas devolve
	// o parcial (vazio) com o erro do contexto.
	cancel()
	result, err := c.Run(ctx, domain.SearchRequest{Estado: "SP", Cidade: "SAO PAULO"})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, result)
	assert.Equal(t, StateFailed, c.State())
}
