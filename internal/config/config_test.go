package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":            "postgres://localhost:5432/vendas",
		"REDIS_URL":               "redis://localhost:6379/0",
		"PORT":                    "",
		"APP_ENV":                 "",
		"CURRENCY_CODE":           "",
		"STOCK_CONTROL_ENABLED":   "",
		"STOCK_BLOCK_ON_SHORTAGE": "",
		"SETTLEMENT_EPSILON":      "",
	})
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "BRL", cfg.CurrencyCode)
	require.True(t, cfg.StockControlEnabled)
	require.True(t, cfg.StockBlockOnShortage)
	require.True(t, cfg.SettlementEpsilon.Equal(decimal.New(1, -2)))
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	_, err := LoadForTests(map[string]string{
		"DATABASE_URL": "",
		"REDIS_URL":    "redis://localhost:6379/0",
	})
	require.Error(t, err)
}

func TestLoadStockPolicyOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"DATABASE_URL":            "postgres://localhost:5432/vendas",
		"REDIS_URL":               "redis://localhost:6379/0",
		"STOCK_CONTROL_ENABLED":   "false",
		"STOCK_BLOCK_ON_SHORTAGE": "off",
		"SETTLEMENT_EPSILON":      "0.05",
	})
	require.NoError(t, err)
	require.False(t, cfg.StockControlEnabled)
	require.False(t, cfg.StockBlockOnShortage)
	require.True(t, cfg.SettlementEpsilon.Equal(decimal.RequireFromString("0.05")))
}
