package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsefit/notify/pkg/config"
)

type testConfig struct {
	Name    string        `env:"TEST_CFG_NAME" envDefault:"default-name"`
	Count   int           `env:"TEST_CFG_COUNT" envDefault:"5"`
	Timeout time.Duration `env:"TEST_CFG_TIMEOUT" envDefault:"30s"`
	Enabled bool          `env:"TEST_CFG_ENABLED" envDefault:"true"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "default-name", cfg.Name)
	assert.Equal(t, 5, cfg.Count)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.True(t, cfg.Enabled)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("TEST_CFG_NAME", "custom")
	t.Setenv("TEST_CFG_COUNT", "42")
	t.Setenv("TEST_CFG_TIMEOUT", "1m")

	var cfg testConfig
	require.NoError(t, config.Load(&cfg))

	assert.Equal(t, "custom", cfg.Name)
	assert.Equal(t, 42, cfg.Count)
	assert.Equal(t, time.Minute, cfg.Timeout)
}

func TestLoad_NilPointer(t *testing.T) {
	err := config.Load[testConfig](nil)
	require.ErrorIs(t, err, config.ErrNilPointer)
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("TEST_CFG_COUNT", "not-a-number")

	var cfg testConfig
	err := config.Load(&cfg)
	require.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_NoCachingBetweenCalls(t *testing.T) {
	t.Setenv("TEST_CFG_NAME", "first")
	var first testConfig
	require.NoError(t, config.Load(&first))
	assert.Equal(t, "first", first.Name)

	t.Setenv("TEST_CFG_NAME", "second")
	var second testConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "second", second.Name)
}

func TestMustLoad_PanicsOnError(t *testing.T) {
	t.Setenv("TEST_CFG_COUNT", "boom")

	assert.Panics(t, func() {
		var cfg testConfig
		config.MustLoad(&cfg)
	})
}
