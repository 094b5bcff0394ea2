// cmd/scraper/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/joho/godotenv"

	"github.com/ps-vitor/caixa-imoveis/internal/config"
	"github.com/ps-vitor/caixa-imoveis/internal/domain"
	"github.com/ps-vitor/caixa-imoveis/internal/repositories"
	"github.com/ps-vitor/caixa-imoveis/internal/scraping/caixa"
	"github.com/ps-vitor/caixa-imoveis/internal/services"
	"github.com/ps-vitor/caixa-imoveis/pkg/logger"
)

func main() {
	estado := flag.String("estado", "SP", "UF da busca")
	cidade := flag.String("cidade", "SAO PAULO", "cidade da busca")
	listCities := flag.Bool("list-cities", false, "lista as cidades disponíveis para a UF e sai")
	verbose := flag.Bool("verbose", false, "log detalhado")
	fetcherKind := flag.String("fetcher", "http", "estratégia de acesso: http ou browser")
	outDir := flag.String("out", "resultados", "diretório dos arquivos exportados")
	store := flag.Bool("store", false, "grava o resultado no banco configurado")
	flag.Parse()

	_ = godotenv.Load()

	log := logger.New("scraper")
	if *verbose {
		log.SetVerbose(true)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("erro ao carregar configuração", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher, err := caixa.NewFetcher(*fetcherKind, cfg.Scraping.Caixa, log)
	if err != nil {
		log.Fatal("erro ao criar fetcher", "err", err)
	}
	defer fetcher.Close()

	if *listCities {
		listAvailableCities(ctx, fetcher, cfg, log, *estado)
		return
	}

	collector := caixa.NewCollector(fetcher, log).
		WithResolver(caixa.NewLocationResolver(fetcher, cfg.Scraping.Caixa.CityOverrides, log))

	var repo repositories.PropertyRepository
	if *store {
		repo, err = repositories.New(ctx, cfg.Storage)
		if err != nil {
			log.Fatal("erro ao conectar no storage", "err", err)
		}
		defer repo.Close(context.Background())
	}
	svc := services.NewScraperService(collector, repo, log)

	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	spin.Suffix = fmt.Sprintf("  coletando imóveis de %s/%s...", *cidade, *estado)
	spin.Start()

	result, runErr := svc.ScrapeAndStore(ctx, domain.SearchRequest{Estado: *estado, Cidade: *cidade})
	spin.Stop()

	if runErr != nil {
		var notFound *domain.CityNotFoundError
		if errors.As(runErr, &notFound) {
			log.Error(notFound.Error())
			os.Exit(1)
		}
		if result == nil || len(result.Properties) == 0 {
			log.Fatal("coleta falhou", "err", runErr)
		}
		log.Warn("coleta terminou com erro, exportando parcial", "err", runErr)
	}

	exporter := services.NewExporter(*outDir)
	jsonPath, err := exporter.ExportJSON(result)
	if err != nil {
		log.Error("erro ao exportar JSON", "err", err)
	}
	csvPath, err := exporter.ExportCSV(result)
	if err != nil {
		log.Error("erro ao exportar CSV", "err", err)
	}

	printSummary(result, jsonPath, csvPath)
}

func listAvailableCities(ctx context.Context, fetcher caixa.Fetcher, cfg *config.Config, log *logger.Logger, estado string) {
	resolver := caixa.NewLocationResolver(fetcher, cfg.Scraping.Caixa.CityOverrides, log)
	cities, err := resolver.ListCities(ctx, estado)
	if err != nil {
		log.Fatal("erro ao listar cidades", "err", err)
	}
	fmt.Printf("Cidades disponíveis em %s (%d):\n", estado, len(cities))
	for _, city := range cities {
		fmt.Printf("  %-8s %s\n", city.Code, city.Name)
	}
}

func printSummary(result *domain.ResultSet, jsonPath, csvPath string) {
	fmt.Println()
	fmt.Println("========== RESUMO DA COLETA ==========")
	fmt.Printf("Busca:              %s / %s\n", result.Search.Cidade, result.Search.Estado)
	fmt.Printf("Imóveis coletados:  %d\n", len(result.Properties))
	fmt.Printf("Total esperado:     %d\n", result.TotalExpected)
	fmt.Printf("Itens descartados:  %d\n", result.SkippedItems)

	var comEndereco, comBairro, comValor int
	for _, p := range result.Properties {
		if p.Address != "" {
			comEndereco++
		}
		if p.Neighborhood != "" {
			comBairro++
		}
		if p.Value != "" {
			comValor++
		}
	}
	fmt.Printf("Com endereço:       %d\n", comEndereco)
	fmt.Printf("Com bairro:         %d\n", comBairro)
	fmt.Printf("Com valor:          %d\n", comValor)
	if jsonPath != "" {
		fmt.Printf("JSON:               %s\n", jsonPath)
	}
	if csvPath != "" {
		fmt.Printf("CSV:                %s\n", csvPath)
	}

	limit := len(result.Properties)
	if limit > 5 {
		limit = 5
	}
	for i := 0; i < limit; i++ {
		p := result.Properties[i]
		fmt.Printf("\n--- Imóvel %d ---\n", i+1)
		fmt.Printf("Título:     %s\n", p.Title)
		if p.Address != "" {
			fmt.Printf("Endereço:   %s\n", p.Address)
		}
		if p.Neighborhood != "" {
			fmt.Printf("Bairro:     %s\n", p.Neighborhood)
		}
		if p.Value != "" {
			fmt.Printf("Valor:      %s\n", p.Value)
		}
		if p.Modality != domain.ModalityUnknown {
			fmt.Printf("Modalidade: %s\n", p.Modality)
		}
	}
	fmt.Println("======================================")
}
