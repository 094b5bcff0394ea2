// internal/repositories/property_repository.go
package repositories

import (
	"context"
	"fmt"

	"github.com/ps-vitor/caixa-imoveis/internal/config"
	"github.com/ps-vitor/caixa-imoveis/internal/domain"
)

type PropertyRepository interface {
	Save(ctx context.Context, result *domain.ResultSet) (int, error)
	FindAll(ctx context.Context) ([]domain.Property, error)
	Close(ctx context.Context) error
}

// New escolhe o driver a partir da configuração de storage.
func New(ctx context.Context, cfg config.StorageConfig) (PropertyRepository, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgresRepository(ctx, cfg.PostgresURL)
	case "mongo":
		return NewMongoRepository(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("driver de storage desconhecido: %q", cfg.Driver)
	}
}
