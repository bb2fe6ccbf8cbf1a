package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrOrderConfirmed  = errors.New("order is already confirmed")
)

// OrderItem is one product line of an order. Price is copied from the product when the line is created.
type OrderItem struct {
	ProductID    int64
	ProductName  string
	CategoryName string
	UnitPrice    decimal.Decimal
	Quantity     int
	Free         int // units covered by free drinks, set when the order is confirmed
}

func (it OrderItem) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Paid is the charged amount of the line once free units are taken off.
func (it OrderItem) Paid() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity - it.Free)))
}

// Order is a coffee-shop order. It is built in memory while pending and written once confirmed.
type Order struct {
	ID          int64
	Status      string
	CustomerID  *int64
	CreatedBy   *int64 // barista tg user id
	IsAnonymous bool
	FreeDrinks  int // free-drink allotment taken from the attached customer
	UsedFree    int
	TotalPaid   *decimal.Decimal
	CreatedAt   time.Time
	Items       []OrderItem

	CustomerName string // filled by listings only
}

func NewPendingOrder(createdBy int64) *Order {
	o := &Order{Status: OrderStatusPending, CreatedAt: time.Now()}
	if createdBy != 0 {
		o.CreatedBy = &createdBy
	}
	return o
}

func (o *Order) IsConfirmed() bool {
	return o.Status == OrderStatusConfirmed
}

// AddItem adds qty of p to the order, merging into the existing line for the same product.
func (o *Order) AddItem(p *Product, qty int) ([]OrderItem, error) {
	if o.IsConfirmed() {
		return nil, ErrOrderConfirmed
	}
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	for i := range o.Items {
		if o.Items[i].ProductID == p.ID {
			o.Items[i].Quantity += qty
			return o.Items, nil
		}
	}
	o.Items = append(o.Items, OrderItem{
		ProductID:    p.ID,
		ProductName:  p.Name,
		CategoryName: p.CategoryName,
		UnitPrice:    p.Price,
		Quantity:     qty,
	})
	return o.Items, nil
}

// Confirm moves a pending order to confirmed with the final paid amount.
func (o *Order) Confirm(totalPaid decimal.Decimal, usedFree int) error {
	if o.IsConfirmed() {
		return ErrOrderConfirmed
	}
	o.Status = OrderStatusConfirmed
	o.TotalPaid = &totalPaid
	o.UsedFree = usedFree
	o.IsAnonymous = o.CustomerID == nil
	return nil
}

// DailyStats is the barista/admin summary for one day.
type DailyStats struct {
	OrdersCount    int
	AnonymousCount int
	ItemsSold      int
	FreeRedeemed   int
	Revenue        decimal.Decimal
}

// ProductSales is one row of the product sales report.
type ProductSales struct {
	ProductID    int64
	Name         string
	CategoryName string
	Quantity     int
	Revenue      decimal.Decimal
}

// CustomerTotals is one row of the customer report.
type CustomerTotals struct {
	Customer  Customer
	TotalPaid decimal.Decimal
	Quantity  int
}
