// internal/repositories/postgres.go
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/ps-vitor/caixa-imoveis/internal/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL não configurada")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("abrir conexão postgres: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	repo := &PostgresRepository{db: db}
	if err := repo.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *PostgresRepository) Close(context.Context) error {
	return r.db.Close()
}

// Save grava os imóveis de uma coleta. O par (codigo, numero_item) identifica
// o anúncio; registros sem ambos entram sempre como novos.
func (r *PostgresRepository) Save(ctx context.Context, result *domain.ResultSet) (int, error) {
	if result == nil || len(result.Properties) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("abrir transação: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO imoveis (
			codigo, titulo, endereco, bairro, modalidade, valor,
			area, quartos, tipo_imovel, numero_item, estado, cidade, coletado_em
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (codigo, numero_item) DO UPDATE
		SET
			titulo = EXCLUDED.titulo,
			endereco = EXCLUDED.endereco,
			bairro = EXCLUDED.bairro,
			modalidade = EXCLUDED.modalidade,
			valor = EXCLUDED.valor,
			area = EXCLUDED.area,
			quartos = EXCLUDED.quartos,
			tipo_imovel = EXCLUDED.tipo_imovel,
			coletado_em = EXCLUDED.coletado_em`)
	if err != nil {
		return 0, fmt.Errorf("preparar insert: %w", err)
	}
	defer stmt.Close()

	total := 0
	for _, p := range result.Properties {
		if _, err = stmt.ExecContext(
			ctx,
			p.Code,
			p.Title,
			p.Address,
			p.Neighborhood,
			string(p.Modality),
			p.Value,
			p.Area,
			p.Rooms,
			string(p.Type),
			p.ItemNumber,
			result.Search.Estado,
			result.Search.Cidade,
			result.Timestamp,
		); err != nil {
			return 0, fmt.Errorf("inserir imóvel %q: %w", p.Title, err)
		}
		total++
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}

func (r *PostgresRepository) FindAll(ctx context.Context) ([]domain.Property, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT codigo, titulo, endereco, bairro, modalidade, valor,
		       area, quartos, tipo_imovel, numero_item
		FROM imoveis
		ORDER BY coletado_em DESC`)
	if err != nil {
		return nil, fmt.Errorf("buscar imóveis: %w", err)
	}
	defer rows.Close()

	var properties []domain.Property
	for rows.Next() {
		var p domain.Property
		var modality, tipo string
		if err := rows.Scan(
			&p.Code, &p.Title, &p.Address, &p.Neighborhood, &modality,
			&p.Value, &p.Area, &p.Rooms, &tipo, &p.ItemNumber,
		); err != nil {
			return nil, fmt.Errorf("ler linha: %w", err)
		}
		p.Modality = domain.Modality(modality)
		p.Type = domain.PropertyType(tipo)
		properties = append(properties, p)
	}
	return properties, rows.Err()
}

func (r *PostgresRepository) ensureSchema(ctx context.Context) error {
	schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.db.ExecContext(schemaCtx, `
		CREATE TABLE IF NOT EXISTS imoveis (
			id BIGSERIAL PRIMARY KEY,
			codigo TEXT NOT NULL DEFAULT '',
			titulo TEXT NOT NULL,
			endereco TEXT NOT NULL DEFAULT '',
			bairro TEXT NOT NULL DEFAULT '',
			modalidade TEXT NOT NULL DEFAULT '',
			valor TEXT NOT NULL DEFAULT '',
			area TEXT NOT NULL DEFAULT '',
			quartos TEXT NOT NULL DEFAULT '',
			tipo_imovel TEXT NOT NULL DEFAULT '',
			numero_item TEXT NOT NULL DEFAULT '',
			estado TEXT NOT NULL DEFAULT '',
			cidade TEXT NOT NULL DEFAULT '',
			coletado_em TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (codigo, numero_item)
		);
		CREATE INDEX IF NOT EXISTS idx_imoveis_cidade ON imoveis(estado, cidade);
	`)
	if err != nil {
		return fmt.Errorf("criar schema: %w", err)
	}
	return nil
}
