package services

import (
	"testing"

	"coffee-telegram/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var coffee = LoyaltyCategory("Coffee")

func item(id int64, category string, price string, qty int) models.OrderItem {
	return models.OrderItem{
		ProductID:    id,
		ProductName:  "product",
		CategoryName: category,
		UnitPrice:    decimal.RequireFromString(price),
		Quantity:     qty,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCalcOrderPrice(t *testing.T) {
	tests := []struct {
		name      string
		items     []models.OrderItem
		free      int
		wantTotal string
		wantFree  int
	}{
		{"empty", nil, 3, "0", 0},
		{"no allotment is a plain sum", []models.OrderItem{item(1, "Coffee", "20", 3), item(2, "Cake", "35.50", 1)}, 0, "95.50", 0},
		{"partial line", []models.OrderItem{item(1, "Coffee", "15", 3)}, 2, "15", 2},
		{"allotment exceeds coffees", []models.OrderItem{item(1, "Coffee", "15", 1)}, 4, "0", 1},
		{"non eligible always paid", []models.OrderItem{item(1, "Coffee", "15", 1), item(2, "Tea", "10", 2)}, 3, "20", 1},
		{"split across lines", []models.OrderItem{item(1, "Coffee", "20", 1), item(2, "coffee", "25", 2)}, 2, "20", 2},
		{"negative allotment ignored", []models.OrderItem{item(1, "Coffee", "20", 1)}, -2, "20", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalcOrderPrice(tt.items, tt.free, coffee)
			assert.True(t, got.Total.Equal(dec(tt.wantTotal)), "total = %s, want %s", got.Total, tt.wantTotal)
			assert.Equal(t, tt.wantFree, got.UsedFree)
			assert.False(t, got.Total.IsNegative())

			sum := decimal.Zero
			for _, l := range got.Lines {
				sum = sum.Add(l.Payable)
			}
			assert.True(t, sum.Equal(got.Total), "lines sum %s != total %s", sum, got.Total)
		})
	}
}

func TestCalcOrderPrice_IndependentOfLineOrder(t *testing.T) {
	a := item(1, "Coffee", "30", 2)
	b := item(2, "Coffee", "20", 3)
	c := item(3, "Cake", "40", 1)

	for free := 0; free <= 6; free++ {
		x := CalcOrderPrice([]models.OrderItem{a, b, c}, free, coffee)
		y := CalcOrderPrice([]models.OrderItem{c, b, a}, free, coffee)
		assert.Equal(t, x.UsedFree, y.UsedFree, "free=%d", free)
		assert.True(t, x.Total.Equal(y.Total), "free=%d: %s vs %s", free, x.Total, y.Total)
	}
}

func TestCalcOrderPrice_LinesKeepInputOrder(t *testing.T) {
	got := CalcOrderPrice([]models.OrderItem{item(1, "Coffee", "10", 1), item(2, "Coffee", "30", 1)}, 1, coffee)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, int64(1), got.Lines[0].Item.ProductID)
	assert.Equal(t, 0, got.Lines[0].Free)
	assert.Equal(t, 1, got.Lines[1].Free)
	assert.True(t, got.Total.Equal(dec("10")))
}

func TestSettleLoyalty_EarnsFreeDrink(t *testing.T) {
	c := &models.Customer{CoffeesCount: 3}
	st := SettleLoyalty(c, []models.OrderItem{item(1, "Coffee", "20", 3)}, 0, 5, coffee)

	assert.Equal(t, 0, st.UsedFree)
	assert.True(t, st.Total.Equal(dec("60")))
	assert.Equal(t, 3, st.PaidCoffees)
	assert.Equal(t, 1, st.Earned)
	assert.Equal(t, 1, c.CoffeesCount)
	assert.Equal(t, 1, c.CoffeesFree)
}

func TestSettleLoyalty_RedeemsAllotment(t *testing.T) {
	c := &models.Customer{CoffeesCount: 0, CoffeesFree: 2}
	st := SettleLoyalty(c, []models.OrderItem{item(1, "Coffee", "15", 3)}, 2, 5, coffee)

	assert.Equal(t, 2, st.UsedFree)
	assert.True(t, st.Total.Equal(dec("15")))
	assert.Equal(t, 1, st.PaidCoffees)
	assert.Equal(t, 0, st.Earned)
	assert.Equal(t, 0, c.CoffeesFree)
	assert.Equal(t, 1, c.CoffeesCount)
}

func TestSettleLoyalty_ClampsAllotmentToCredit(t *testing.T) {
	// credit was spent elsewhere after the allotment was taken
	c := &models.Customer{CoffeesFree: 1}
	st := SettleLoyalty(c, []models.OrderItem{item(1, "Coffee", "15", 3)}, 3, 5, coffee)

	assert.Equal(t, 1, st.UsedFree)
	assert.Equal(t, 0, c.CoffeesFree)
	assert.Equal(t, 2, c.CoffeesCount)
}

func TestSettleLoyalty_MultipleRewards(t *testing.T) {
	c := &models.Customer{CoffeesCount: 4}
	st := SettleLoyalty(c, []models.OrderItem{item(1, "Coffee", "10", 11)}, 0, 5, coffee)

	assert.Equal(t, 3, st.Earned)
	assert.Equal(t, 0, c.CoffeesCount)
	assert.Equal(t, 3, c.CoffeesFree)
}

func TestSettleLoyalty_CountersStayInRange(t *testing.T) {
	const limit = 5
	c := &models.Customer{}
	for round := 0; round < 40; round++ {
		qty := round%7 + 1
		allot := round % 3
		SettleLoyalty(c, []models.OrderItem{item(1, "Coffee", "12", qty), item(2, "Juice", "9", 1)}, allot, limit, coffee)
		require.GreaterOrEqual(t, c.CoffeesCount, 0)
		require.Less(t, c.CoffeesCount, limit)
		require.GreaterOrEqual(t, c.CoffeesFree, 0)
	}
}

func TestSettleLoyalty_NoEligibleItems(t *testing.T) {
	c := &models.Customer{CoffeesCount: 2, CoffeesFree: 1}
	st := SettleLoyalty(c, []models.OrderItem{item(1, "Cake", "40", 2)}, 1, 5, coffee)

	assert.Equal(t, 0, st.UsedFree)
	assert.True(t, st.Total.Equal(dec("80")))
	assert.Equal(t, 2, c.CoffeesCount)
	assert.Equal(t, 1, c.CoffeesFree)
}

func TestNewLoyaltyStatus(t *testing.T) {
	s := NewLoyaltyStatus(&models.Customer{CoffeesCount: 3, CoffeesFree: 2}, 5)
	assert.Equal(t, 2, s.CoffeesLeft)
	assert.Equal(t, 2, s.FreeDrinks)

	s = NewLoyaltyStatus(&models.Customer{}, 5)
	assert.Equal(t, 5, s.CoffeesLeft)
}
