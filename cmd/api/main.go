// cmd/api/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/ps-vitor/caixa-imoveis/internal/api/handlers"
	"github.com/ps-vitor/caixa-imoveis/internal/config"
	"github.com/ps-vitor/caixa-imoveis/internal/repositories"
	"github.com/ps-vitor/caixa-imoveis/internal/scraping/caixa"
	"github.com/ps-vitor/caixa-imoveis/internal/services"
	"github.com/ps-vitor/caixa-imoveis/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log := logger.New("api")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("erro ao carregar configuração", "err", err)
	}

	repo, err := repositories.New(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatal("erro ao conectar no storage", "err", err)
	}
	defer repo.Close(context.Background())

	fetcher, err := caixa.NewFetcher("http", cfg.Scraping.Caixa, log)
	if err != nil {
		log.Fatal("erro ao criar fetcher", "err", err)
	}
	defer fetcher.Close()

	collector := caixa.NewCollector(fetcher, log).
		WithResolver(caixa.NewLocationResolver(fetcher, cfg.Scraping.Caixa.CityOverrides, log))
	scraperSvc := services.NewScraperService(collector, repo, log)

	scrapingHandler := handlers.NewScrapingHandler(scraperSvc, log)
	listingsHandler := handlers.NewListingsHandler(repo, log)

	r := mux.NewRouter()
	r.HandleFunc("/api/scrape", scrapingHandler.HandleScrape).Methods("POST")
	r.HandleFunc("/api/listings", listingsHandler.HandleListings).Methods("GET")
	r.HandleFunc("/health", handlers.HandleHealth).Methods("GET")

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
		// a coleta síncrona pode demorar vários minutos
		WriteTimeout: 15 * time.Minute,
		ReadTimeout:  30 * time.Second,
	}

	log.Info("servidor iniciado", "addr", addr)
	log.Fatal("servidor encerrou", "err", srv.ListenAndServe())
}
