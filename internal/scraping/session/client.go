// internal/scraping/session/client.go

// Package session implementa o cliente HTTP do portal: sessão com cookies e
// user-agent aleatório, limite de chamadas por segundo, detecção de captcha
// com reconstrução de sessão e retry com backoff exponencial.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ps-vitor/caixa-imoveis/internal/domain"
	"github.com/ps-vitor/caixa-imoveis/pkg/logger"
)

// captchaScanLimit limita o exame do corpo: o banner anti-robô aparece no
// início da resposta.
const captchaScanLimit = 2048

type Config struct {
	BaseURL        string
	HandshakePath  string
	SearchReferer  string
	CallsPerSecond int
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	RequestTimeout time.Duration
	CaptchaMarkers []string
	UserAgents     []string
}

func (c *Config) applyDefaults() {
	if c.CallsPerSecond <= 0 {
		c.CallsPerSecond = 6
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 6 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if len(c.UserAgents) == 0 {
		c.UserAgents = []string{"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"}
	}
}

type errKind int

const (
	errNetwork errKind = iota // rede, timeout, 5xx: retry
	errCaptcha                // banner anti-robô: refaz a sessão e retry
	errStructural             // 4xx: erro estrutural, sobe imediatamente
)

type callError struct {
	kind  errKind
	url   string
	cause error
}

func (e *callError) Error() string { return e.cause.Error() }
func (e *callError) Unwrap() error { return e.cause }

type requestBuilder func(ctx context.Context) (*http.Request, error)

type callFunc func(ctx context.Context, build requestBuilder) (string, error)

// Client é o cliente do portal. A sessão é criada sob demanda na primeira
// chamada e descartada inteira (nunca remendada) quando um captcha aparece.
type Client struct {
	cfg     Config
	log     *logger.Logger
	limiter *windowLimiter
	do      callFunc

	mu        sync.Mutex
	httpc     *http.Client
	userAgent string

	// contadores de diagnóstico
	rebuilds int
}

func NewClient(cfg Config, log *logger.Logger) *Client {
	cfg.applyDefaults()
	c := &Client{
		cfg:     cfg,
		log:     log,
		limiter: newWindowLimiter(cfg.CallsPerSecond, time.Second),
	}
	// Middleware explícito: retry por fora, limite de taxa por dentro, de modo
	// que cada tentativa (inclusive as repetidas) conte na janela.
	c.do = c.withRetry(c.withRateLimit(c.roundTrip))
	return c
}

// Get faz um GET em path (relativo ao BaseURL) com os parâmetros informados.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (string, error) {
	target := c.cfg.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	})
}

// Post envia um formulário urlencoded para path (relativo ao BaseURL).
func (c *Client) Post(ctx context.Context, path string, form url.Values) (string, error) {
	target := c.cfg.BaseURL + path
	encoded := form.Encode()
	return c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(encoded))
	})
}

func (c *Client) withRateLimit(next callFunc) callFunc {
	return func(ctx context.Context, build requestBuilder) (string, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		return next(ctx, build)
	}
}

func (c *Client) withRetry(next callFunc) callFunc {
	return func(ctx context.Context, build requestBuilder) (string, error) {
		backoff := c.cfg.InitialBackoff
		var last *callError

		for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
			body, err := next(ctx, build)
			if err == nil {
				return body, nil
			}

			var ce *callError
			if !errors.As(err, &ce) {
				// Cancelamento de contexto ou erro de construção: não é transitório.
				return "", err
			}
			if ce.kind == errStructural {
				return "", fmt.Errorf("resposta estrutural inválida de %s: %w", ce.url, ce.cause)
			}
			last = ce

			c.log.Warn("tentativa falhou", "attempt", attempt, "url", ce.url, "err", ce.cause)

			if ce.kind == errCaptcha {
				if err := c.refreshSession(ctx); err != nil {
					return "", err
				}
			}
			if attempt == c.cfg.MaxAttempts {
				break
			}
			if err := sleepCtx(ctx, backoff); err != nil {
				return "", err
			}
			backoff *= 2
			if backoff > c.cfg.MaxBackoff {
				backoff = c.cfg.MaxBackoff
			}
		}

		return "", &domain.NetworkError{URL: last.url, Attempts: c.cfg.MaxAttempts, Err: last.cause}
	}
}

// roundTrip executa uma única tentativa contra a sessão corrente.
func (c *Client) roundTrip(ctx context.Context, build requestBuilder) (string, error) {
	if err := c.ensureSession(ctx); err != nil {
		return "", &callError{kind: errNetwork, url: c.cfg.BaseURL + c.cfg.HandshakePath, cause: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req, err := build(reqCtx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	httpc := c.httpc
	ua := c.userAgent
	c.mu.Unlock()

	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.5")
	if c.cfg.SearchReferer != "" {
		req.Header.Set("Referer", c.cfg.SearchReferer)
	}
	if req.Method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}

	resp, err := httpc.Do(req)
	if err != nil {
		return "", &callError{kind: errNetwork, url: req.URL.String(), cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &callError{kind: errNetwork, url: req.URL.String(), cause: err}
	}
	body := string(data)

	switch {
	case resp.StatusCode >= 500:
		return "", &callError{kind: errNetwork, url: req.URL.String(), cause: fmt.Errorf("http %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		return "", &callError{kind: errStructural, url: req.URL.String(), cause: fmt.Errorf("http %d", resp.StatusCode)}
	}

	if c.looksLikeCaptcha(body) {
		return "", &callError{kind: errCaptcha, url: req.URL.String(), cause: errors.New("banner de captcha detectado")}
	}
	return body, nil
}

// looksLikeCaptcha examina o início do corpo em busca dos marcadores
// configurados, sem diferenciar maiúsculas.
func (c *Client) looksLikeCaptcha(body string) bool {
	if len(body) > captchaScanLimit {
		body = body[:captchaScanLimit]
	}
	lower := strings.ToLower(body)
	for _, marker := range c.cfg.CaptchaMarkers {
		if marker != "" && strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

// ensureSession cria a sessão na primeira chamada: jar de cookies novo,
// user-agent sorteado e o GET de handshake que estabelece os cookies.
func (c *Client) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.httpc != nil {
		return nil
	}

	// O handshake também é uma chamada ao portal: conta na mesma janela.
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	httpc := &http.Client{Jar: jar}
	ua := c.cfg.UserAgents[rand.Intn(len(c.cfg.UserAgents))]

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	target := c.cfg.BaseURL + c.cfg.HandshakePath + "?sltTipoBusca=imoveis"
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.5")

	resp, err := httpc.Do(req)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("handshake: http %d", resp.StatusCode)
	}

	c.httpc = httpc
	c.userAgent = ua
	c.rebuilds++
	c.log.Debug("sessão estabelecida", "user_agent", ua)
	return nil
}

// refreshSession descarta a sessão inteira, dorme um jitter pequeno e refaz o
// handshake. Chamado quando um captcha é detectado.
func (c *Client) refreshSession(ctx context.Context) error {
	c.mu.Lock()
	if c.httpc != nil {
		c.httpc.CloseIdleConnections()
		c.httpc = nil
		c.userAgent = ""
	}
	c.mu.Unlock()

	jitter := time.Duration(200+rand.Intn(800)) * time.Millisecond
	c.log.Info("captcha: descartando sessão e aguardando", "jitter", jitter)
	if err := sleepCtx(ctx, jitter); err != nil {
		return err
	}
	return c.ensureSession(ctx)
}

// SessionRebuilds devolve quantas vezes uma sessão foi construída (diagnóstico).
func (c *Client) SessionRebuilds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rebuilds
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
