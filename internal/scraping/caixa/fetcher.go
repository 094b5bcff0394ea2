// internal/scraping/caixa/fetcher.go

// Package caixa implementa o pipeline de aquisição de imóveis do portal de
// vendas da CAIXA: resolução de cidade/bairros, busca paginada e extração
// heurística dos anúncios.
package caixa

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ps-vitor/caixa-imoveis/internal/config"
	"github.com/ps-vitor/caixa-imoveis/internal/scraping/session"
	"github.com/ps-vitor/caixa-imoveis/pkg/logger"
)

// Fetcher é a capacidade de falar com o portal. Existem duas estratégias
// intercambiáveis: HTTP cru (HTTPFetcher) e navegador (BrowserFetcher). O
// coletor depende só desta interface.
type Fetcher interface {
	// ListCities devolve a marcação ad-hoc com os pares (código, cidade) do estado.
	ListCities(ctx context.Context, estado string) (string, error)
	// ListBairros devolve a marcação com os bairros da cidade resolvida.
	ListBairros(ctx context.Context, estado, cityCode string) (string, error)
	// StartSearch dispara a busca sem filtros e devolve a página de resultados
	// com os campos ocultos de paginação.
	StartSearch(ctx context.Context, estado, cityCode string) (string, error)
	// FetchPage devolve o fragmento HTML com os itens de uma página.
	FetchPage(ctx context.Context, page int, ids []string) (string, error)
	Close() error
}

// NewFetcher seleciona a estratégia na construção ("http" ou "browser").
func NewFetcher(kind string, cfg config.CaixaConfig, log *logger.Logger) (Fetcher, error) {
	switch kind {
	case "", "http":
		return NewHTTPFetcher(cfg, log), nil
	case "browser":
		return NewBrowserFetcher(cfg, log)
	default:
		return nil, fmt.Errorf("estratégia de fetcher desconhecida: %q", kind)
	}
}

// HTTPFetcher conversa com os endpoints assíncronos do portal pelo cliente de
// sessão, da mesma forma que o javascript da página faria.
type HTTPFetcher struct {
	cfg    config.CaixaConfig
	client *session.Client
	log    *logger.Logger
}

func NewHTTPFetcher(cfg config.CaixaConfig, log *logger.Logger) *HTTPFetcher {
	clientCfg := session.Config{
		BaseURL:        cfg.BaseURL,
		HandshakePath:  cfg.Endpoints["handshake"],
		SearchReferer:  cfg.BaseURL + cfg.Endpoints["handshake"] + "?sltTipoBusca=imoveis",
		CallsPerSecond: cfg.RateLimit.CallsPerSecond,
		MaxAttempts:    cfg.RetryPolicy.MaxAttempts,
		InitialBackoff: cfg.RetryPolicy.InitialBackoff(),
		MaxBackoff:     cfg.RetryPolicy.MaxBackoff(),
		RequestTimeout: cfg.RequestTimeout(),
		CaptchaMarkers: cfg.CaptchaMarkers,
		UserAgents:     cfg.UserAgents,
	}
	return &HTTPFetcher{
		cfg:    cfg,
		client: session.NewClient(clientCfg, log.WithPrefix("session")),
		log:    log,
	}
}

func (f *HTTPFetcher) ListCities(ctx context.Context, estado string) (string, error) {
	form := url.Values{}
	form.Set("cmb_estado", estado)
	form.Set("cmb_cidade", "")
	return f.client.Post(ctx, f.cfg.Endpoints["cities"], form)
}

func (f *HTTPFetcher) ListBairros(ctx context.Context, estado, cityCode string) (string, error) {
	form := url.Values{}
	form.Set("cmb_estado", estado)
	form.Set("cmb_cidade", cityCode)
	return f.client.Post(ctx, f.cfg.Endpoints["bairros"], form)
}

func (f *HTTPFetcher) StartSearch(ctx context.Context, estado, cityCode string) (string, error) {
	// Todos os filtros opcionais vão vazios: a busca é sempre o conjunto
	// completo da cidade.
	form := url.Values{}
	form.Set("hdn_estado", estado)
	form.Set("hdn_cidade", cityCode)
	form.Set("hdn_bairro", "")
	form.Set("hdn_tp_venda", "")
	form.Set("hdn_tp_imovel", "")
	form.Set("hdn_area_util", "")
	form.Set("hdn_faixa_vlr", "")
	form.Set("hdn_quartos", "")
	form.Set("hdn_vg_garagem", "")
	form.Set("strValorSimulador", "")
	form.Set("strAceitaFGTS", "")
	form.Set("strAceitaFinanciamento", "")
	return f.client.Post(ctx, f.cfg.Endpoints["search"], form)
}

func (f *HTTPFetcher) FetchPage(ctx context.Context, page int, ids []string) (string, error) {
	form := url.Values{}
	form.Set("hdnImov", strings.Join(ids, "||"))
	form.Set("strValorSimulador", "")
	form.Set("strAceitaFGTS", "")
	form.Set("strAceitaFinanciamento", "")
	return f.client.Post(ctx, f.cfg.Endpoints["page"], form)
}

func (f *HTTPFetcher) Close() error { return nil }
