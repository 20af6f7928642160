package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subskit/pkg/config"
)

type testConfig struct {
	Name    string `env:"SUBSKIT_TEST_NAME" envDefault:"subskit"`
	Retries int    `env:"SUBSKIT_TEST_RETRIES" envDefault:"3"`
}

type requiredConfig struct {
	Token string `env:"SUBSKIT_TEST_REQUIRED_TOKEN,required"`
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		config.ResetCache()

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "subskit", cfg.Name)
		assert.Equal(t, 3, cfg.Retries)
	})

	t.Run("reads environment overrides", func(t *testing.T) {
		config.ResetCache()
		t.Setenv("SUBSKIT_TEST_NAME", "override")
		t.Setenv("SUBSKIT_TEST_RETRIES", "7")

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "override", cfg.Name)
		assert.Equal(t, 7, cfg.Retries)
	})

	t.Run("serves cached value on repeat load", func(t *testing.T) {
		config.ResetCache()
		t.Setenv("SUBSKIT_TEST_NAME", "first")

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))

		// Changing the environment after the first load has no effect.
		t.Setenv("SUBSKIT_TEST_NAME", "second")
		var cfg2 testConfig
		require.NoError(t, config.Load(&cfg2))
		assert.Equal(t, "first", cfg2.Name)
	})

	t.Run("fails on missing required variable", func(t *testing.T) {
		config.ResetCache()

		var cfg requiredConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("rejects nil pointer", func(t *testing.T) {
		config.ResetCache()

		err := config.Load[testConfig](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})
}
