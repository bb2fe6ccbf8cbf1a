package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("COFFEE_LIMIT", "")
	t.Setenv("LOYALTY_FILE", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("BARISTA_USERNAMES", "@maria, ion ,,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Loyalty.CoffeeLimit)
	assert.Equal(t, "Coffee", cfg.Loyalty.Category)
	assert.Equal(t, []string{"maria", "ion"}, cfg.Loyalty.BaristaUsernames)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
}

func TestLoad_LoyaltyFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loyalty.yaml")
	body := "coffee_limit: 8\ncategory: Cafea\nbarista_usernames:\n  - elena\nquantity_options: [1, 2, 3]\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("LOYALTY_FILE", path)
	t.Setenv("COFFEE_LIMIT", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Loyalty.CoffeeLimit)
	assert.Equal(t, "Cafea", cfg.Loyalty.Category)
	assert.Equal(t, []int{1, 2, 3}, cfg.Loyalty.QuantityOptions)
	assert.True(t, cfg.Loyalty.IsBaristaUsername("@Elena"))
	assert.False(t, cfg.Loyalty.IsBaristaUsername("ion"))
}

func TestLoad_RejectsBadLimit(t *testing.T) {
	t.Setenv("LOYALTY_FILE", "")
	t.Setenv("COFFEE_LIMIT", "0")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("COFFEE_LIMIT", "five")
	_, err = Load()
	assert.Error(t, err)
}
