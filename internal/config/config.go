package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for the deskbridge service.
type Config struct {
	Addr           string        `env:"ADDR,default=:8080"`
	DBDSN          string        `env:"DB_DSN"`
	NATSURL        string        `env:"NATS_URL"`
	OTLPEndpoint   string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:5173"`
	CacheTTL       time.Duration `env:"CACHE_TTL,default=60m"`

	TopDesk TopDesk `env:",prefix=TOPDESK_"`

	// TemplateAllowlistFile optionally points at a YAML file overriding
	// TOPDESK_ALLOWED_TEMPLATES.
	TemplateAllowlistFile string `env:"TEMPLATE_ALLOWLIST_FILE"`
}

// TopDesk holds credentials and tuning for the external TopDesk API.
type TopDesk struct {
	BaseURL    string        `env:"BASE_URL,required"`
	Username   string        `env:"USERNAME,required"`
	Password   string        `env:"PASSWORD,required"`
	TemplateID string        `env:"TEMPLATE_ID,required"`
	Timeout    time.Duration `env:"TIMEOUT,default=30s"`

	// AllowedTemplates is the set of template names the reconciler may touch.
	AllowedTemplates []string `env:"ALLOWED_TEMPLATES,default=Computer"`

	// StockRoomCapabilityID comes from the TopDesk API documentation.
	StockRoomCapabilityID string `env:"STOCKROOM_CAPABILITY_ID,default=DAD98DAD-054B-41AE-A727-3E3B37342739"`
}

// Load returns a Config populated from environment variables, with the
// template allowlist file applied when configured.
func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}

	cfg.TopDesk.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.TopDesk.BaseURL), "/")
	if cfg.TopDesk.BaseURL == "" {
		return Config{}, fmt.Errorf("TOPDESK_BASE_URL must not be blank")
	}

	if cfg.TemplateAllowlistFile != "" {
		allowed, err := loadTemplateAllowlist(cfg.TemplateAllowlistFile)
		if err != nil {
			return Config{}, fmt.Errorf("load template allowlist: %w", err)
		}
		cfg.TopDesk.AllowedTemplates = allowed
	}
	if len(cfg.TopDesk.AllowedTemplates) == 0 {
		return Config{}, fmt.Errorf("at least one allowed template is required")
	}

	return cfg, nil
}

type allowlistFile struct {
	AllowedTemplates []string `yaml:"allowed_templates"`
}

func loadTemplateAllowlist(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc allowlistFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(doc.AllowedTemplates))
	for _, name := range doc.AllowedTemplates {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s lists no templates", path)
	}
	return out, nil
}
