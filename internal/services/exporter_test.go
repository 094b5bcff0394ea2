// internal/services/exporter_test.go
package services

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ps-vitor/caixa-imoveis/internal/domain"
)

func sampleResult() *domain.ResultSet {
	return &domain.ResultSet{
		Timestamp:     time.Date(2025, 9, 1, 14, 30, 0, 0, time.UTC),
		Search:        domain.SearchRequest{Estado: "SP", Cidade: "SAO PAULO"},
		TotalExpected: 2,
		Properties: []domain.Property{
			{Title: "Apartamento Residencial Aurora", Value: "R$ 150.000,00", Neighborhood: "VILA MARIA"},
			{Title: "Casa no Centro Historico", Value: "R$ 98.000,00"},
		},
	}
}

func TestExportJSON(t *testing.T) {
	e := NewExporter(t.TempDir())

	path, err := e.ExportJSON(sampleResult())
	require.NoError(t, err)
	assert.Equal(t, "imoveis_sp_sao_paulo_20250901_143000.json", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var envelope struct {
		Timestamp       string            `json:"timestamp"`
		TotalProperties int               `json:"total_properties"`
		Properties      []domain.Property `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(data, &envelope))
	assert.Equal(t, 2, envelope.TotalProperties)
	assert.Len(t, envelope.Properties, 2)
	assert.NotEmpty(t, envelope.Timestamp)
}

func TestExportCSV(t *testing.T) {
	e := NewExporter(t.TempDir())

	path, err := e.ExportCSV(sampleResult())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".csv"))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "cabeçalho mais duas linhas")
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "Apartamento Residencial Aurora", records[1][1])
}
