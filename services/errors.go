package services

import (
	"errors"
	"fmt"

	"coffee-telegram/models"
)

// Errors returned by the order flow. All are per-conversation: the bot reports them to the
// user and keeps running.
var (
	ErrInvalidQuantity   = models.ErrInvalidQuantity
	ErrOrderConfirmed    = models.ErrOrderConfirmed
	ErrProductNotFound   = errors.New("product not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrNoActiveOrder     = errors.New("no active order")
	ErrNoProductSelected = errors.New("no product awaiting a quantity")
	ErrNoFreeDrinks      = errors.New("customer has no free drinks")
	ErrNotBarista        = errors.New("user is not a barista")
	ErrPersistence       = errors.New("storage failure")
)

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// isFlowError reports whether err is one of the sentinel errors above other than ErrPersistence.
func isFlowError(err error) bool {
	for _, target := range []error{
		ErrInvalidQuantity, ErrOrderConfirmed, ErrProductNotFound, ErrCategoryNotFound,
		ErrCustomerNotFound, ErrNoActiveOrder, ErrNoProductSelected, ErrNoFreeDrinks, ErrNotBarista,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
