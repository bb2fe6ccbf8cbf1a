package services

import (
	"sort"
	"strings"

	"coffee-telegram/models"

	"github.com/shopspring/decimal"
)

// Eligibility reports whether products of the named category count toward loyalty.
type Eligibility func(categoryName string) bool

func LoyaltyCategory(name string) Eligibility {
	name = strings.TrimSpace(name)
	return func(categoryName string) bool {
		return strings.EqualFold(strings.TrimSpace(categoryName), name)
	}
}

type PriceLine struct {
	Item    models.OrderItem
	Free    int
	Payable decimal.Decimal
}

type PriceBreakdown struct {
	Lines    []PriceLine // same order as the input items
	Total    decimal.Decimal
	UsedFree int
}

// CalcOrderPrice returns the payable total and the free drinks consumed by an order.
// Free units are spread over eligible lines, most expensive unit first (ties by product id),
// so the result does not depend on the order the lines were added in. A line may be
// partly covered. Non-eligible lines are always charged in full.
func CalcOrderPrice(items []models.OrderItem, freeDrinks int, eligible Eligibility) PriceBreakdown {
	lines := make([]PriceLine, len(items))
	var idx []int
	for i, it := range items {
		lines[i].Item = it
		if eligible != nil && eligible(it.CategoryName) {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := items[idx[a]], items[idx[b]]
		if c := ia.UnitPrice.Cmp(ib.UnitPrice); c != 0 {
			return c > 0
		}
		return ia.ProductID < ib.ProductID
	})

	remaining := freeDrinks
	if remaining < 0 {
		remaining = 0
	}
	var usedFree int
	for _, i := range idx {
		covered := min(remaining, items[i].Quantity)
		lines[i].Free = covered
		usedFree += covered
		remaining -= covered
	}

	total := decimal.Zero
	for i := range lines {
		paid := lines[i].Item.Quantity - lines[i].Free
		lines[i].Payable = lines[i].Item.UnitPrice.Mul(decimal.NewFromInt(int64(paid)))
		total = total.Add(lines[i].Payable)
	}
	return PriceBreakdown{Lines: lines, Total: total, UsedFree: usedFree}
}

// EligibleQuantity is the number of loyalty-eligible units in items.
func EligibleQuantity(items []models.OrderItem, eligible Eligibility) int {
	var n int
	for _, it := range items {
		if eligible != nil && eligible(it.CategoryName) {
			n += it.Quantity
		}
	}
	return n
}

type Settlement struct {
	Total       decimal.Decimal
	UsedFree    int
	PaidCoffees int
	Earned      int // free drinks earned by this order
}

// SettleLoyalty applies an order to the customer's counters and returns what happened.
// The allotment is clamped to the customer's current credit, so credit never goes negative.
// The paid-coffee counter ends in [0, coffeeLimit).
func SettleLoyalty(c *models.Customer, items []models.OrderItem, allotment, coffeeLimit int, eligible Eligibility) Settlement {
	allotment = max(0, min(allotment, c.CoffeesFree))
	price := CalcOrderPrice(items, allotment, eligible)

	st := Settlement{Total: price.Total, UsedFree: price.UsedFree}
	c.CoffeesFree -= price.UsedFree
	st.PaidCoffees = EligibleQuantity(items, eligible) - price.UsedFree
	c.CoffeesCount += st.PaidCoffees

	if coffeeLimit > 0 && c.CoffeesCount >= coffeeLimit {
		st.Earned = c.CoffeesCount / coffeeLimit
		c.CoffeesCount %= coffeeLimit
		c.CoffeesFree += st.Earned
	}
	return st
}

type LoyaltyStatus struct {
	CoffeesCount int
	CoffeesLeft  int // paid coffees still needed for the next free one
	FreeDrinks   int
}

func NewLoyaltyStatus(c *models.Customer, coffeeLimit int) LoyaltyStatus {
	left := coffeeLimit - c.CoffeesCount%coffeeLimit
	return LoyaltyStatus{CoffeesCount: c.CoffeesCount, CoffeesLeft: left, FreeDrinks: c.CoffeesFree}
}
