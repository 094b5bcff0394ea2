// internal/services/scraper_service.go
package services

import (
	"context"

	"github.com/ps-vitor/caixa-imoveis/internal/domain"
	"github.com/ps-vitor/caixa-imoveis/internal/repositories"
	"github.com/ps-vitor/caixa-imoveis/internal/scraping/caixa"
	"github.com/ps-vitor/caixa-imoveis/pkg/logger"
)

// ScraperService roda uma coleta e persiste o resultado. Resultado parcial
// também é gravado: coleta interrompida não joga fora o que já veio.
type ScraperService struct {
	collector *caixa.Collector
	repo      repositories.PropertyRepository
	log       *logger.Logger
}

func NewScraperService(collector *caixa.Collector, repo repositories.PropertyRepository, log *logger.Logger) *ScraperService {
	return &ScraperService{collector: collector, repo: repo, log: log}
}

func (s *ScraperService) ScrapeAndStore(ctx context.Context, req domain.SearchRequest) (*domain.ResultSet, error) {
	result, runErr := s.collector.Run(ctx, req)

	if result != nil && len(result.Properties) > 0 && s.repo != nil {
		saved, err := s.repo.Save(context.WithoutCancel(ctx), result)
		if err != nil {
			s.log.Error("falha ao gravar imóveis", "err", err)
		} else {
			s.log.Info("imóveis gravados", "total", saved)
		}
	}

	return result, runErr
}
