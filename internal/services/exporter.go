// internal/services/exporter.go
package services

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ps-vitor/caixa-imoveis/internal/domain"
)

// Exporter grava o resultado de uma coleta em arquivos locais.
type Exporter struct {
	outDir string
}

func NewExporter(outDir string) *Exporter {
	if outDir == "" {
		outDir = "."
	}
	return &Exporter{outDir: outDir}
}

type exportEnvelope struct {
	Timestamp        string               `json:"timestamp"`
	TotalProperties  int                  `json:"total_properties"`
	SearchParameters domain.SearchRequest `json:"search_parameters"`
	Properties       []domain.Property    `json:"properties"`
}

// ExportJSON grava o envelope completo da coleta e devolve o caminho gerado.
func (e *Exporter) ExportJSON(result *domain.ResultSet) (string, error) {
	path := e.buildPath(result, "json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	envelope := exportEnvelope{
		Timestamp:        result.Timestamp.Format(time.RFC3339),
		TotalProperties:  len(result.Properties),
		SearchParameters: result.Search,
		Properties:       result.Properties,
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializar resultado: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("gravar %s: %w", path, err)
	}
	return path, nil
}

var csvHeader = []string{
	"codigo", "titulo", "endereco", "bairro", "modalidade",
	"valor", "area", "quartos", "tipo_imovel", "numero_item",
}

func (e *Exporter) ExportCSV(result *domain.ResultSet) (string, error) {
	path := e.buildPath(result, "csv")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("criar %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, p := range result.Properties {
		record := []string{
			p.Code, p.Title, p.Address, p.Neighborhood, string(p.Modality),
			p.Value, p.Area, p.Rooms, string(p.Type), p.ItemNumber,
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	return path, w.Error()
}

// buildPath monta nomes como imoveis_sp_sao_paulo_20250901_143000.json.
func (e *Exporter) buildPath(result *domain.ResultSet, ext string) string {
	name := fmt.Sprintf("imoveis_%s_%s_%s.%s",
		slugify(result.Search.Estado),
		slugify(result.Search.Cidade),
		result.Timestamp.Format("20060102_150405"),
		ext,
	)
	return filepath.Join(e.outDir, name)
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
