package models

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	RoleCustomer = "customer"
	RoleBarista  = "barista"
)

// Customer is a row from customers. Baristas are customers with the barista role.
type Customer struct {
	ID           int64
	TgUserID     int64
	Username     string
	FirstName    string
	QRCode       uuid.UUID
	CoffeesCount int // paid coffees toward the next free one
	CoffeesFree  int // free-drink credit
	Role         string
	Language     string
}

// NewCustomer builds a customer with a fresh QR token and zeroed loyalty counters.
func NewCustomer(tgUserID int64, username, firstName, role string) (*Customer, error) {
	if tgUserID == 0 {
		return nil, fmt.Errorf("telegram user id is required")
	}
	if role != RoleCustomer && role != RoleBarista {
		return nil, fmt.Errorf("invalid role: %s", role)
	}
	return &Customer{
		TgUserID:  tgUserID,
		Username:  username,
		FirstName: firstName,
		QRCode:    uuid.New(),
		Role:      role,
	}, nil
}

func (c *Customer) IsBarista() bool {
	return c != nil && c.Role == RoleBarista
}

// DisplayName prefers @username, then first name, then the numeric id.
func (c *Customer) DisplayName() string {
	switch {
	case c.Username != "":
		return "@" + c.Username
	case c.FirstName != "":
		return c.FirstName
	default:
		return fmt.Sprintf("User %d", c.TgUserID)
	}
}
