package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profepj/profepj/pkg/config"
)

type billingConfig struct {
	TrialDays int    `env:"TEST_TRIAL_DAYS" envDefault:"14"`
	AppURL    string `env:"TEST_APP_URL" envDefault:"http://localhost:9002"`
}

type requiredConfig struct {
	Secret string `env:"TEST_WEBHOOK_SECRET,required"`
}

type fileConfig struct {
	PriceID string `env:"TEST_FILE_PRICE_ID"`
}

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		config.Reset()
		var cfg billingConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, 14, cfg.TrialDays)
		assert.Equal(t, "http://localhost:9002", cfg.AppURL)
	})

	t.Run("caches per type", func(t *testing.T) {
		config.Reset()
		t.Setenv("TEST_TRIAL_DAYS", "7")
		var first billingConfig
		require.NoError(t, config.Load(&first))
		assert.Equal(t, 7, first.TrialDays)

		t.Setenv("TEST_TRIAL_DAYS", "30")
		var second billingConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, 7, second.TrialDays)

		config.Reset()
		var third billingConfig
		require.NoError(t, config.Load(&third))
		assert.Equal(t, 30, third.TrialDays)
	})

	t.Run("missing required value", func(t *testing.T) {
		config.Reset()
		var cfg requiredConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		assert.ErrorIs(t, config.Load[billingConfig](nil), config.ErrNilPointer)
	})
}

func TestMustLoad(t *testing.T) {
	config.Reset()
	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env.test")
	require.NoError(t, os.WriteFile(path, []byte("TEST_FILE_PRICE_ID=price_123\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("TEST_FILE_PRICE_ID") })

	require.NoError(t, config.LoadEnv(path))
	config.Reset()

	var cfg fileConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "price_123", cfg.PriceID)

	err := config.LoadEnv(filepath.Join(dir, "missing.env"))
	assert.ErrorIs(t, err, config.ErrLoadingEnvFile)
}
