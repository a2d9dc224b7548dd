package gateway

import (
	"time"

	"github.com/billingkit/billingkit/pkg/config"
)

type Config struct {
	BaseURL        string        `env:"GATEWAY_BASE_URL,required"`                 // BaseURL is the root of the gateway REST API, e.g. "https://api.provider.com/v3".
	APIKey         string        `env:"GATEWAY_API_KEY,required"`                  // APIKey authenticates every request via the access-token header.
	RequestTimeout time.Duration `env:"GATEWAY_REQUEST_TIMEOUT" envDefault:"10s"`  // RequestTimeout bounds a single HTTP round trip.
	UserAgent      string        `env:"GATEWAY_USER_AGENT" envDefault:"billingkit"` // UserAgent is sent with every request for gateway-side diagnostics.
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// NewHTTPClientFromEnv builds a client from environment configuration.
func NewHTTPClientFromEnv() (*HTTPClient, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewHTTPClient(cfg)
}
