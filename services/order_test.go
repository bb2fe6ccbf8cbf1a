package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"coffee-telegram/lang"
	"coffee-telegram/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallback(t *testing.T) {
	tests := []struct {
		data    string
		want    Callback
		wantErr bool
	}{
		{"category_3", Callback{Action: ActCategory, ID: 3}, false},
		{"product_12", Callback{Action: ActProduct, ID: 12}, false},
		{"quantity_12_4", Callback{Action: ActQuantity, ID: 12, Qty: 4}, false},
		{"more_12", Callback{Action: ActMore, ID: 12}, false},
		{"check_finish", Callback{Action: CbCheckFinish}, false},
		{"use_free", Callback{Action: CbUseFree}, false},
		{"cancel", Callback{Action: CbCancel}, false},
		{"quantity_12", Callback{}, true},
		{"quantity_12_x", Callback{}, true},
		{"product_abc", Callback{}, true},
		{"order_status:1:new", Callback{}, true},
	}
	for _, tt := range tests {
		got, err := ParseCallback(tt.data)
		if tt.wantErr {
			assert.Error(t, err, tt.data)
			continue
		}
		require.NoError(t, err, tt.data)
		assert.Equal(t, tt.want, got, tt.data)
	}
}

func TestBuildQuantityCard_ButtonsRoundTrip(t *testing.T) {
	p := &models.Product{ID: 7, Name: "Latte", Price: decimal.NewFromInt(30)}
	card := BuildQuantityCard(p, []int{1, 2, 3, 4, 5}, "MDL", lang.En)

	require.Len(t, card.Buttons, 3)
	require.Len(t, card.Buttons[0], 5)
	for i, b := range card.Buttons[0] {
		cb, err := ParseCallback(b.CallbackData)
		require.NoError(t, err)
		assert.Equal(t, int64(7), cb.ID)
		assert.Equal(t, i+1, cb.Qty)
	}
	assert.Equal(t, "more_7", card.Buttons[1][0].CallbackData)
	assert.Contains(t, card.Text, "30.00 MDL")
}

func TestBuildOrderCard(t *testing.T) {
	sum := &OrderSummary{
		Lines: []SummaryLine{
			{Name: "Latte", Quantity: 2, Free: 1, Subtotal: decimal.NewFromInt(20)},
			{Name: "Cake", Quantity: 1, Subtotal: decimal.RequireFromString("35.5")},
		},
		Total: decimal.RequireFromString("55.5"),
	}

	card := BuildOrderCard(sum, "MDL", lang.En)
	assert.Contains(t, card.Text, "Latte × 2 (1 free) · 20.00 MDL")
	assert.Contains(t, card.Text, "Total: 55.50 MDL")
	for _, row := range card.Buttons {
		assert.NotEqual(t, CbUseFree, row[0].CallbackData, "no use-free button without a customer")
	}

	sum.Customer = &models.Customer{Username: "ana", CoffeesFree: 2}
	sum.FreeRemaining = 2
	card = BuildOrderCard(sum, "MDL", lang.En)
	var hasUseFree bool
	for _, row := range card.Buttons {
		hasUseFree = hasUseFree || row[0].CallbackData == CbUseFree
	}
	assert.True(t, hasUseFree)
	assert.Contains(t, card.Text, "@ana")
}

func TestBuildFinalizeText(t *testing.T) {
	paid := decimal.NewFromInt(15)
	res := &FinalizeResult{
		Order:      &models.Order{ID: 123, TotalPaid: &paid},
		Customer:   &models.Customer{Username: "ana", CoffeesCount: 1, CoffeesFree: 0},
		Settlement: Settlement{Total: paid, UsedFree: 2},
		Summary:    OrderSummary{Total: paid},
	}
	text := BuildFinalizeText(res, 5, "MDL", lang.En)
	assert.Contains(t, text, "#123")
	assert.Contains(t, text, "15.00 MDL")
	assert.Contains(t, text, "Free coffees used: 2")
	assert.Contains(t, text, "coffees: 1/5")
}

func TestBuildDayReportText(t *testing.T) {
	assert.Equal(t, lang.T(lang.Ro, "info_barista_empty"), BuildDayReportText(&DayReport{}, "MDL", lang.Ro))

	a, b := decimal.NewFromInt(40), decimal.NewFromInt(25)
	rep := &DayReport{
		Orders: []models.Order{
			{ID: 1, TotalPaid: &a, IsAnonymous: true, Items: []models.OrderItem{{ProductName: "Latte", Quantity: 2}}},
			{ID: 2, TotalPaid: &b, CustomerName: "@ana", Items: []models.OrderItem{{ProductName: "Cheesecake", Quantity: 1}}},
		},
		Total: a.Add(b),
		Free:  1,
	}
	text := BuildDayReportText(rep, "MDL", lang.En)
	assert.Contains(t, text, "#1 · anonymous · 40.00 MDL\n   Latte × 2\n#2")
	assert.Contains(t, text, "Cheesecake × 1")
	assert.Contains(t, text, "#2 · @ana · 25.00 MDL")
	assert.Contains(t, text, "Total: 65.00 MDL · free: 1")
}

func TestRewardMessage(t *testing.T) {
	m := RewardMessage(RewardNotice{Earned: 1, CoffeesFree: 3, Language: lang.En})
	assert.True(t, strings.Contains(m, "1 free coffee") && strings.Contains(m, "3"), m)
}

func TestErrorMessageKey(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrNotBarista, "err_not_barista"},
		{ErrNoProductSelected, "err_no_product"},
		{fmt.Errorf("attach: %w", ErrCustomerNotFound), "err_customer_not_found"},
		{storageErr("insert order", errors.New("conn reset")), "err_storage"},
		{ErrInvalidQuantity, "err_quantity"},
		{errors.New("boom"), "err_generic"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorMessageKey(tt.err), "%v", tt.err)
	}
}
