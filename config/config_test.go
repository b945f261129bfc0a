package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("WELCOME_BONUS", "")
	t.Setenv("MIN_STAKE", "")
	t.Setenv("MAX_STAKE", "")

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.True(t, cfg.WelcomeBonus.Equal(decimal.NewFromInt(10)))
	assert.True(t, cfg.MinStake.Equal(decimal.RequireFromString("0.1")))
	assert.True(t, cfg.MaxStake.Equal(decimal.NewFromInt(1000)))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("WELCOME_BONUS", "25")
	t.Setenv("MIN_STAKE", "0.5")
	t.Setenv("MAX_STAKE", "500")

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.True(t, cfg.WelcomeBonus.Equal(decimal.NewFromInt(25)))
	assert.True(t, cfg.MinStake.Equal(decimal.RequireFromString("0.5")))
	assert.True(t, cfg.MaxStake.Equal(decimal.NewFromInt(500)))
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_URL", "")

	_, err := load()
	assert.Error(t, err)
}

func TestLoad_UnparseableOverrideKeepsDefault(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("WELCOME_BONUS", "lots")

	cfg, err := load()
	require.NoError(t, err)
	assert.True(t, cfg.WelcomeBonus.Equal(decimal.NewFromInt(10)))
}
