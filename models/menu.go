package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultLoyaltyCategory is the category whose products count toward free drinks.
const DefaultLoyaltyCategory = "Coffee"

type Category struct {
	ID   int64
	Name string
}

type Product struct {
	ID           int64
	CategoryID   int64
	CategoryName string
	Name         string
	Price        decimal.Decimal
}

func NewProduct(category Category, name string, price decimal.Decimal) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("price must be >= 0")
	}
	return &Product{
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Name:         name,
		Price:        price,
	}, nil
}
