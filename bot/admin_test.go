package bot

import (
	"testing"
	"time"

	"coffee-telegram/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"35", "35", false},
		{"35,50", "35.5", false},
		{" 1 200.499 ", "1200.5", false},
		{"-3", "", true},
		{"abc", "", true},
	}
	for _, tt := range tests {
		got, err := parsePrice(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "%s: got %s", tt.in, got)
	}
}

func TestParseDateAndRangeArgs(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

	day, err := parseDateArg(nil, now)
	require.NoError(t, err)
	assert.Equal(t, now, day)

	day, err = parseDateArg([]string{"2024-03-01"}, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), day)

	_, err = parseDateArg([]string{"01.03.2024"}, now)
	assert.Error(t, err)

	from, to, err := parseRangeArgs([]string{"2024-03-01", "2024-03-05"}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, from.Day())
	assert.Equal(t, 5, to.Day())

	from, to, err = parseRangeArgs([]string{"2024-03-01"}, now)
	require.NoError(t, err)
	assert.Equal(t, from, to)

	_, _, err = parseRangeArgs([]string{"2024-03-05", "2024-03-01"}, now)
	assert.Error(t, err)
}

func TestParseUserIDArg(t *testing.T) {
	id, err := parseUserIDArg([]string{"12345"})
	require.NoError(t, err)
	assert.Equal(t, int64(12345), id)

	for _, args := range [][]string{nil, {"0"}, {"-1"}, {"abc"}, {"1", "2"}} {
		_, err := parseUserIDArg(args)
		assert.Error(t, err, "%v", args)
	}
}

func TestFormatReports(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	stats := &models.DailyStats{OrdersCount: 4, AnonymousCount: 1, ItemsSold: 9, FreeRedeemed: 2, Revenue: decimal.RequireFromString("210.5")}
	text := formatDailyStats(day, stats, "MDL")
	assert.Contains(t, text, "2024-03-10")
	assert.Contains(t, text, "Orders: 4 (anonymous: 1)")
	assert.Contains(t, text, "Free drinks redeemed: 2")
	assert.Contains(t, text, "210.50 MDL")

	assert.Contains(t, formatProductSales(day, day, nil, "MDL"), "No sales.")
	sales := []models.ProductSales{
		{Name: "Latte", CategoryName: "Coffee", Quantity: 5, Revenue: decimal.NewFromInt(120)},
		{Name: "Cake", CategoryName: "Desserts", Quantity: 1, Revenue: decimal.NewFromInt(40)},
	}
	text = formatProductSales(day, day, sales, "MDL")
	assert.Contains(t, text, "[Coffee] Latte × 5 — 120.00 MDL")
	assert.Contains(t, text, "Total: 160.00 MDL")

	top := []models.CustomerTotals{{
		Customer:  models.Customer{Username: "ana", CoffeesFree: 1},
		TotalPaid: decimal.NewFromInt(300),
		Quantity:  12,
	}}
	assert.Contains(t, formatTopCustomers(top, "MDL"), "1. @ana — 300.00 MDL, 12 items, free: 1")
	assert.Contains(t, formatTopCustomers(nil, "MDL"), "No customer orders")
}
