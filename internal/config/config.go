// internal/config/config.go
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Scraping ScrapingConfig `yaml:"scraping"`
	Storage  StorageConfig  `yaml:"storage"`
}

type AppConfig struct {
	Name     string `yaml:"name"`
	Env      string `yaml:"env"`
	Debug    bool   `yaml:"debug"`
	Port     int    `yaml:"port"`
	Timezone string `yaml:"timezone"`
}

type ScrapingConfig struct {
	Caixa CaixaConfig `yaml:"caixa"`
}

// CaixaConfig descreve o portal: endpoints, limites e os marcadores de captcha.
// Os textos do banner variam por fornecedor, então ficam aqui e não no código.
type CaixaConfig struct {
	BaseURL        string            `yaml:"base_url"`
	Endpoints      map[string]string `yaml:"endpoints"`
	RateLimit      RateLimitConfig   `yaml:"rate_limit"`
	RetryPolicy    RetryPolicyConfig `yaml:"retry_policy"`
	UserAgents     []string          `yaml:"user_agents"`
	CaptchaMarkers []string          `yaml:"captcha_markers"`
	TimeoutSecs    int               `yaml:"request_timeout_seconds"`

	// CityOverrides é a tabela manual de códigos de cidade, chaveada por
	// estado e nome normalizado. Ponto de extensão, não comportamento fixo.
	CityOverrides map[string]map[string]string `yaml:"city_overrides"`
}

type RateLimitConfig struct {
	CallsPerSecond int `yaml:"calls_per_second"`
}

type RetryPolicyConfig struct {
	MaxAttempts      int `yaml:"max_attempts"`
	InitialBackoffMS int `yaml:"initial_backoff_ms"`
	MaxBackoffMS     int `yaml:"max_backoff_ms"`
}

type StorageConfig struct {
	Driver        string `yaml:"driver"` // "postgres" ou "mongo"
	PostgresURL   string `yaml:"postgres_url"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

func (c CaixaConfig) RequestTimeout() time.Duration {
	if c.TimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

func (r RetryPolicyConfig) InitialBackoff() time.Duration {
	if r.InitialBackoffMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(r.InitialBackoffMS) * time.Millisecond
}

func (r RetryPolicyConfig) MaxBackoff() time.Duration {
	if r.MaxBackoffMS <= 0 {
		return 6 * time.Second
	}
	return time.Duration(r.MaxBackoffMS) * time.Millisecond
}

// LoadConfig lê configs/app.yaml e depois configs/scraping.yaml por cima,
// aplicando defaults e overrides de ambiente para credenciais.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	basePath := filepath.Join("configs", "app.yaml")
	yamlFile, err := os.ReadFile(basePath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(yamlFile, cfg); err != nil {
		return nil, err
	}

	scrapingPath := filepath.Join("configs", "scraping.yaml")
	scrapingFile, err := os.ReadFile(scrapingPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(scrapingFile, &cfg.Scraping); err != nil {
		return nil, err
	}

	// Credenciais vêm do ambiente quando presentes (.env via godotenv nos cmds).
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Storage.PostgresURL = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.Storage.MongoURI = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	cx := &c.Scraping.Caixa
	if cx.BaseURL == "" {
		cx.BaseURL = "https://venda-imoveis.caixa.gov.br"
	}
	if cx.Endpoints == nil {
		cx.Endpoints = map[string]string{}
	}
	defaults := map[string]string{
		"handshake": "/sistema/busca-imovel.asp",
		"cities":    "/sistema/carregaListaCidades.asp",
		"bairros":   "/sistema/carregaListaBairros.asp",
		"search":    "/sistema/carregaPesquisaImoveis.asp",
		"page":      "/sistema/carregaListaImoveis.asp",
	}
	for k, v := range defaults {
		if cx.Endpoints[k] == "" {
			cx.Endpoints[k] = v
		}
	}
	if cx.RateLimit.CallsPerSecond <= 0 {
		cx.RateLimit.CallsPerSecond = 6
	}
	if cx.RetryPolicy.MaxAttempts <= 0 {
		cx.RetryPolicy.MaxAttempts = 5
	}
	if len(cx.CaptchaMarkers) == 0 {
		cx.CaptchaMarkers = []string{"captcha", "radware", "bot manager", "validação de segurança"}
	}
	if len(cx.UserAgents) == 0 {
		cx.UserAgents = []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
		}
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Storage.MongoDatabase == "" {
		c.Storage.MongoDatabase = "caixa_imoveis"
	}
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
}
