// internal/scraping/caixa/browser.go
package caixa

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/ps-vitor/caixa-imoveis/internal/config"
	"github.com/ps-vitor/caixa-imoveis/pkg/logger"
)

// BrowserFetcher é a estratégia via navegador headless. Segue o mesmo fluxo
// do formulário de busca (selecionar estado e cidade, avançar, paginar com
// carregaListaImoveis) e devolve as mesmas marcações que o HTTPFetcher, de
// modo que resolvedor, paginador e extrator não sabem qual estratégia os
// alimentou.
type BrowserFetcher struct {
	cfg       config.CaixaConfig
	log       *logger.Logger
	allocCtx  context.Context
	browser   context.Context
	cancels   []context.CancelFunc
	navigated bool
}

func NewBrowserFetcher(cfg config.CaixaConfig, log *logger.Logger) (*BrowserFetcher, error) {
	ua := cfg.UserAgents[rand.Intn(len(cfg.UserAgents))]
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(ua),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	return &BrowserFetcher{
		cfg:      cfg,
		log:      log,
		allocCtx: allocCtx,
		browser:  browserCtx,
		cancels:  []context.CancelFunc{browserCancel, allocCancel},
	}, nil
}

func (f *BrowserFetcher) searchURL() string {
	return f.cfg.BaseURL + f.cfg.Endpoints["handshake"] + "?sltTipoBusca=imoveis"
}

// ensureSearchPage navega até o formulário de busca uma única vez.
func (f *BrowserFetcher) ensureSearchPage(ctx context.Context) error {
	if f.navigated {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(f.browser, f.cfg.RequestTimeout())
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Navigate(f.searchURL()),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		return fmt.Errorf("browser: navegação inicial: %w", err)
	}
	f.navigated = true
	return nil
}

func (f *BrowserFetcher) ListCities(ctx context.Context, estado string) (string, error) {
	if err := f.ensureSearchPage(ctx); err != nil {
		return "", err
	}
	runCtx, cancel := context.WithTimeout(f.browser, f.cfg.RequestTimeout())
	defer cancel()

	var markup string
	err := chromedp.Run(runCtx,
		chromedp.SetValue(`select[name=cmb_estado]`, estado, chromedp.ByQuery),
		chromedp.Evaluate(`document.querySelector('select[name=cmb_estado]').dispatchEvent(new Event('change'))`, nil),
		chromedp.Sleep(3*time.Second), // aguarda o carregamento das cidades
		chromedp.OuterHTML(`select[name=cmb_cidade]`, &markup, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("browser: lista de cidades: %w", err)
	}
	return markup, nil
}

func (f *BrowserFetcher) ListBairros(ctx context.Context, estado, cityCode string) (string, error) {
	if err := f.ensureSearchPage(ctx); err != nil {
		return "", err
	}
	runCtx, cancel := context.WithTimeout(f.browser, f.cfg.RequestTimeout())
	defer cancel()

	var markup string
	err := chromedp.Run(runCtx,
		chromedp.SetValue(`select[name=cmb_cidade]`, cityCode, chromedp.ByQuery),
		chromedp.Evaluate(`document.querySelector('select[name=cmb_cidade]').dispatchEvent(new Event('change'))`, nil),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML(`#listabairros`, &markup, chromedp.ByID),
	)
	if err != nil {
		return "", fmt.Errorf("browser: lista de bairros: %w", err)
	}
	return markup, nil
}

func (f *BrowserFetcher) StartSearch(ctx context.Context, estado, cityCode string) (string, error) {
	if err := f.ensureSearchPage(ctx); err != nil {
		return "", err
	}
	runCtx, cancel := context.WithTimeout(f.browser, f.cfg.RequestTimeout())
	defer cancel()

	var page string
	err := chromedp.Run(runCtx,
		chromedp.SetValue(`select[name=cmb_estado]`, estado, chromedp.ByQuery),
		chromedp.Evaluate(`document.querySelector('select[name=cmb_estado]').dispatchEvent(new Event('change'))`, nil),
		chromedp.Sleep(3*time.Second),
		chromedp.SetValue(`select[name=cmb_cidade]`, cityCode, chromedp.ByQuery),
		chromedp.Evaluate(`document.querySelector('select[name=cmb_cidade]').dispatchEvent(new Event('change'))`, nil),
		chromedp.Sleep(2*time.Second),
		// O overlay de modal às vezes cobre o botão; ESC antes de clicar.
		chromedp.KeyEvent("\u001b"),
		chromedp.Click(`#btn_next0`, chromedp.ByID),
		chromedp.Sleep(3*time.Second),
		chromedp.Click(`#btn_next1`, chromedp.ByID),
		chromedp.Sleep(3*time.Second),
		chromedp.OuterHTML(`html`, &page, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("browser: início da busca: %w", err)
	}
	return page, nil
}

func (f *BrowserFetcher) FetchPage(ctx context.Context, page int, ids []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	runCtx, cancel := context.WithTimeout(f.browser, f.cfg.RequestTimeout())
	defer cancel()

	var fragment string
	err := chromedp.Run(runCtx,
		// A própria página expõe a função de paginação.
		chromedp.Evaluate(fmt.Sprintf("carregaListaImoveis(%d);", page), nil),
		chromedp.Sleep(3*time.Second),
		chromedp.InnerHTML(`#listaimoveispaginacao`, &fragment, chromedp.ByID),
	)
	if err != nil {
		return "", fmt.Errorf("browser: página %d: %w", page, err)
	}
	_ = ids // a navegação por função JS dispensa o lote de identificadores
	return fragment, nil
}

func (f *BrowserFetcher) Close() error {
	for _, cancel := range f.cancels {
		cancel()
	}
	return nil
}
