// internal/scraping/caixa/locations_test.go
package caixa

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ps-vitor/caixa-imoveis/internal/domain"
	"github.com/ps-vitor/caixa-imoveis/pkg/logger"
)

const citiesMarkup = `
<select name="cmb_cidade">
  <option value="">Selecione a cidade</option>
  <option value="9858">SAO PAULO</option>
  <option value="7412">CAMPINAS</option>
  <option value="5023">SAO BERNARDO DO CAMPO</option>
</select>`

func TestParseCityOptions(t *testing.T) {
	cities := parseCityOptions(citiesMarkup)
	require.Len(t, cities, 3)
	assert.Equal(t, City{Code: "9858", Name: "SAO PAULO"}, cities[0])
	assert.Equal(t, City{Code: "7412", Name: "CAMPINAS"}, cities[1])
}

func TestResolveCityCode(t *testing.T) {
	tests := []struct {
		name      string
		cidade    string
		overrides map[string]map[string]string
		wantCode  string
		wantErr   bool
	}{
		{name: "correspondência exata", cidade: "SAO PAULO", wantCode: "9858"},
		{name: "ignora caixa e espaços", cidade: "  sao   paulo  ", wantCode: "9858"},
		{name: "entrada contém candidato", cidade: "SAO PAULO - CAPITAL", wantCode: "9858"},
		{name: "candidato contém entrada", cidade: "BERNARDO", wantCode: "5023"},
		{name: "tabela manual", cidade: "SP CAPITAL",
			overrides: map[string]map[string]string{"SP": {"SP CAPITAL": "9858"}},
			wantCode:  "9858"},
		{name: "cidade desconhecida", cidade: "ATLANTIDA", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &fakeFetcher{citiesMarkup: citiesMarkup}
			r := NewLocationResolver(fetcher, tt.overrides, logger.New("test"))

			code, err := r.ResolveCityCode(context.Background(), "SP", tt.cidade)
			if tt.wantErr {
				require.Error(t, err)
				var notFound *domain.CityNotFoundError
				require.True(t, errors.As(err, &notFound))
				assert.NotEmpty(t, notFound.Available, "erro deve carregar a lista de cidades")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestResolveCityCodeExactBeforePartial(t *testing.T) {
	// "SAO" está contido em duas cidades; a exata tem prioridade sobre as parciais.
	markup := `<select>
	  <option value="1">SAO PAULO</option>
	  <option value="2">SAO</option>
	</select>`
	fetcher := &fakeFetcher{citiesMarkup: markup}
	r := NewLocationResolver(fetcher, nil, logger.New("test"))

	code, err := r.ResolveCityCode(context.Background(), "SP", "SAO")
	require.NoError(t, err)
	assert.Equal(t, "2", code)
}

func TestParseBairrosFromOptions(t *testing.T) {
	markup := `<select id="listabairros">
	  <option value="">Selecione o bairro</option>
	  <option value="1">VILA MARIA</option>
	  <option value="2">MOOCA</option>
	  <option value="2">MOOCA</option>
	  <option value="3">SE</option>
	</select>`

	bairros := parseBairros(markup)
	// "SE" cai no filtro de tamanho mínimo e a duplicata é descartada.
	assert.Equal(t, []string{"MOOCA", "VILA MARIA"}, bairros)
}

func TestParseBairrosFallbackText(t *testing.T) {
	markup := `<div id="listabairros">CENTRO, VILA PRUDENTE; JARDIM EUROPA|TATUAPE</div>`

	bairros := parseBairros(markup)
	assert.Equal(t, []string{"CENTRO", "JARDIM EUROPA", "TATUAPE", "VILA PRUDENTE"}, bairros)
}

func TestResolveBairrosPropagatesError(t *testing.T) {
	fetcher := &fakeFetcher{bairrosErr: errors.New("timeout")}
	r := NewLocationResolver(fetcher, nil, logger.New("test"))

	_, err := r.ResolveBairros(context.Background(), "SP", "9858")
	assert.Error(t, err)
}
