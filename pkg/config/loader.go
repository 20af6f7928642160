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
	cacheMu sync.RWMutex
	cache   = make(map[string]any)

	defaultEnvLoaded sync.Once
)

// Load populates the provided configuration struct from environment
// variables. The default .env file is loaded once per process if present;
// a missing file is not an error. Each configuration type is parsed once
// and served from cache on subsequent calls, so components can load their
// own config independently without re-reading the environment.
//
// Example:
//
//	type ProcessorConfig struct {
//		BatchSize int           `env:"PROCESSOR_BATCH_SIZE" envDefault:"500"`
//		LeadTime  time.Duration `env:"PROCESSOR_REMINDER_LEAD_TIME" envDefault:"48h"`
//	}
//
//	var cfg ProcessorConfig
//	if err := config.Load(&cfg); err != nil { ... }
func Load[T any](v *T) error {
	defaultEnvLoaded.Do(func() {
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}

	key := typeName[T]()

	cacheMu.RLock()
	cached, ok := cache[key]
	cacheMu.RUnlock()
	if ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	cacheMu.Lock()
	// Store a copy to avoid external modifications leaking into the cache.
	cache[key] = *v
	cacheMu.Unlock()

	return nil
}

// MustLoad works like Load but panics if configuration loading fails.
// Useful for configuration the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

// ResetCache clears all cached configurations. Intended for tests that
// mutate the process environment between loads.
func ResetCache() {
	cacheMu.Lock()
	cache = make(map[string]any)
	cacheMu.Unlock()
}

// typeName returns a string identifier for the generic type T.
func typeName[T any]() string {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return fmt.Sprintf("%T", *new(T))
	}
	return t.String()
}
