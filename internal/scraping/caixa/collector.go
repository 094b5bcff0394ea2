// internal/scraping/caixa/collector.go
package caixa

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ps-vitor/caixa-imoveis/internal/domain"
	"github.com/ps-vitor/caixa-imoveis/pkg/logger"
)

// State acompanha onde a coleta parou; útil no log de falhas parciais.
type State int

const (
	StateIdle State = iota
	StateCityResolved
	StateSearchStarted
	StatePaging
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCityResolved:
		return "cidade resolvida"
	case StateSearchStarted:
		return "busca iniciada"
	case StatePaging:
		return "paginando"
	case StateDone:
		return "concluído"
	case StateFailed:
		return "falhou"
	}
	return "desconhecido"
}

// Collector amarra resolução de cidade, busca, paginação e extração numa
// coleta completa para um estado/cidade. Uma instância aceita Run de várias
// goroutines: as coletas são serializadas, nunca intercaladas, para que o
// conjunto de bairros do extrator pertença sempre à coleta corrente.
type Collector struct {
	fetcher   Fetcher
	resolver  *LocationResolver
	paginator *Paginator
	extractor *Extractor
	log       *logger.Logger

	runMu sync.Mutex

	stateMu sync.Mutex
	state   State
}

func NewCollector(fetcher Fetcher, log *logger.Logger) *Collector {
	return &Collector{
		fetcher:   fetcher,
		resolver:  NewLocationResolver(fetcher, nil, log),
		paginator: NewPaginator(fetcher, log),
		extractor: NewExtractor(log),
		log:       log,
	}
}

// WithResolver troca o resolvedor padrão; usado para injetar os overrides de
// código de cidade vindos da configuração.
func (c *Collector) WithResolver(r *LocationResolver) *Collector {
	c.resolver = r
	return c
}

func (c *Collector) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

func (c *Collector) setState(s State) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

// Run executa a coleta de ponta a ponta. Falhas de página individual não
// derrubam a coleta; cancelamento de contexto devolve o parcial acumulado
// junto com o erro.
func (c *Collector) Run(ctx context.Context, req domain.SearchRequest) (*domain.ResultSet, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	c.setState(StateIdle)
	result := &domain.ResultSet{
		Timestamp: time.Now(),
		Search:    req,
	}

	cityCode, err := c.resolver.ResolveCityCode(ctx, req.Estado, req.Cidade)
	if err != nil {
		c.setState(StateFailed)
		return result, err
	}
	c.setState(StateCityResolved)
	c.log.Info("cidade resolvida", "cidade", req.Cidade, "codigo", cityCode)

	// Bairros melhoram a detecção nos endereços, mas a coleta segue sem eles.
	// Em caso de falha o conjunto é esvaziado: os bairros da cidade anterior
	// não podem vazar para esta coleta.
	if bairros, err := c.resolver.ResolveBairros(ctx, req.Estado, cityCode); err != nil {
		c.extractor.SetBairros(nil)
		c.log.Warn("não foi possível carregar bairros, seguindo sem lista", "err", err)
	} else {
		c.extractor.SetBairros(bairros)
		c.log.Info("bairros carregados", "total", len(bairros))
	}

	manifest, err := c.paginator.StartSearch(ctx, req.Estado, cityCode)
	if err != nil {
		c.setState(StateFailed)
		return result, fmt.Errorf("início da busca: %w", err)
	}
	c.setState(StateSearchStarted)
	result.TotalExpected = manifest.TotalRecords
	c.log.Info("busca iniciada",
		"paginas", manifest.TotalPages, "registros", manifest.TotalRecords)

	c.setState(StatePaging)
	for page := 1; page <= manifest.TotalPages; page++ {
		if err := ctx.Err(); err != nil {
			c.setState(StateFailed)
			c.log.Warn("coleta interrompida", "pagina", page, "coletados", len(result.Properties))
			return result, err
		}

		fragment, err := c.paginator.FetchPageFragment(ctx, page, manifest)
		if err != nil {
			var malformed *domain.MalformedResponseError
			if errors.As(err, &malformed) {
				c.log.Warn("página sem lote de identificadores, pulando", "pagina", page)
			} else {
				c.log.Warn("falha ao buscar página, pulando", "pagina", page, "err", err)
			}
			continue
		}

		properties, skipped := c.extractor.ExtractFromPage(fragment)
		result.Properties = append(result.Properties, properties...)
		result.SkippedItems += skipped
		c.log.Info("página processada",
			"pagina", page, "extraidos", len(properties), "descartados", skipped)

		if manifest.TotalRecords > 0 && len(result.Properties) >= manifest.TotalRecords {
			c.log.Info("total esperado alcançado, encerrando paginação", "pagina", page)
			break
		}
	}

	c.setState(StateDone)
	if !result.Complete() {
		c.log.Warn("coleta terminou incompleta",
			"coletados", len(result.Properties), "esperados", result.TotalExpected)
	}
	return result, nil
}
