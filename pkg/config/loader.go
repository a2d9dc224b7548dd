package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	cacheMu sync.Mutex
	cache   = make(map[string]any)

	defaultEnvLoaded sync.Once
)

// Load parses environment variables into cfg based on `env` struct tags.
// The first call for a given struct type does the actual parse; later calls
// for the same type return the cached copy, so every component sees identical
// configuration regardless of load order.
//
// A .env file in the working directory is loaded once, lazily, before the
// first parse. A missing .env file is not an error.
//
// Example:
//
//	type GatewayConfig struct {
//		BaseURL string `env:"GATEWAY_BASE_URL,required"`
//		APIKey  string `env:"GATEWAY_API_KEY,required"`
//	}
//
//	var cfg GatewayConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](cfg *T) error {
	if cfg == nil {
		return ErrNilPointer
	}

	defaultEnvLoaded.Do(func() {
		_ = godotenv.Load()
	})

	key := typeKey[T]()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cached, ok := cache[key]; ok {
		*cfg = cached.(T)
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	cache[key] = *cfg
	return nil
}

// MustLoad is Load for configuration the process cannot start without.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load required configuration: %v", err))
	}
}

// LoadEnv loads the given .env files into the process environment before any
// config struct is parsed. Later files override earlier ones. Use it when
// configuration lives somewhere other than ./.env.
func LoadEnv(paths ...string) error {
	if err := godotenv.Overload(paths...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	// The default .env must not override what was loaded explicitly.
	defaultEnvLoaded.Do(func() {})
	return nil
}

// MustLoadEnv is LoadEnv for env files the process cannot start without.
func MustLoadEnv(paths ...string) {
	if err := LoadEnv(paths...); err != nil {
		panic(fmt.Sprintf("config: failed to load env files: %v", err))
	}
}

// ResetCache drops all cached configuration. Intended for tests that mutate
// the environment between loads.
func ResetCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache = make(map[string]any)
}

func typeKey[T any]() string {
	var zero T
	if t := reflect.TypeOf(zero); t != nil {
		return t.String()
	}
	return fmt.Sprintf("%T", *new(T))
}
