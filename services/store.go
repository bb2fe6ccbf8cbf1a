package services

import (
	"context"
	"time"

	"coffee-telegram/models"

	"github.com/google/uuid"
)

// Store is what the order flow needs from persistence. Lookups return the package's
// not-found errors; other failures wrap ErrPersistence.
type Store interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	ListProductsByCategory(ctx context.Context, categoryID int64) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)

	GetCustomerByTgID(ctx context.Context, tgUserID int64) (*models.Customer, error)
	GetCustomerByQR(ctx context.Context, token uuid.UUID) (*models.Customer, error)
	CreateCustomer(ctx context.Context, c *models.Customer) error
	SetCustomerRole(ctx context.Context, tgUserID int64, role string) error

	// ConfirmOrder writes o and its items and, when o.CustomerID is set, the customer's
	// counters, all or nothing. settle receives the customer row locked for the
	// transaction (nil for anonymous orders) and must confirm o.
	ConfirmOrder(ctx context.Context, o *models.Order, settle func(c *models.Customer) error) error
	ListOrdersByDay(ctx context.Context, day time.Time) ([]models.Order, error)
}
