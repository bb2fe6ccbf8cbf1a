package services

import (
	"context"
	"errors"

	"coffee-telegram/db"
	"coffee-telegram/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const customerColumns = `id, tg_user_id, COALESCE(username, ''), COALESCE(first_name, ''), qr_code,
	coffees_count, coffees_free, role, COALESCE(language, '')`

func scanCustomer(row pgx.Row) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(&c.ID, &c.TgUserID, &c.Username, &c.FirstName, &c.QRCode,
		&c.CoffeesCount, &c.CoffeesFree, &c.Role, &c.Language)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (PgStore) GetCustomerByTgID(ctx context.Context, tgUserID int64) (*models.Customer, error) {
	c, err := scanCustomer(db.Pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE tg_user_id = $1`, tgUserID))
	if err != nil {
		return nil, notFound("get customer", err, ErrCustomerNotFound)
	}
	return c, nil
}

func (PgStore) GetCustomerByQR(ctx context.Context, token uuid.UUID) (*models.Customer, error) {
	c, err := scanCustomer(db.Pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE qr_code = $1`, token))
	if err != nil {
		return nil, notFound("get customer by qr", err, ErrCustomerNotFound)
	}
	return c, nil
}

// CreateCustomer inserts c and sets its ID. When the user registered concurrently, c is
// replaced by the stored row.
func (s PgStore) CreateCustomer(ctx context.Context, c *models.Customer) error {
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO customers (tg_user_id, username, first_name, qr_code, role, language)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, NULLIF($6, ''))
		ON CONFLICT (tg_user_id) DO NOTHING
		RETURNING id`,
		c.TgUserID, c.Username, c.FirstName, c.QRCode, c.Role, c.Language,
	).Scan(&c.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, err := s.GetCustomerByTgID(ctx, c.TgUserID)
		if err != nil {
			return err
		}
		*c = *existing
		return nil
	}
	if err != nil {
		return storageErr("create customer", err)
	}
	return nil
}

func (PgStore) SetCustomerRole(ctx context.Context, tgUserID int64, role string) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE customers SET role = $2, updated_at = now() WHERE tg_user_id = $1`, tgUserID, role)
	if err != nil {
		return storageErr("set customer role", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

// GetCustomerLanguage returns the stored language for the customer. Empty string and false if not set.
func GetCustomerLanguage(ctx context.Context, tgUserID int64) (language string, ok bool) {
	err := db.Pool.QueryRow(ctx, `SELECT language FROM customers WHERE tg_user_id = $1 AND language IS NOT NULL`, tgUserID).Scan(&language)
	if err != nil {
		return "", false
	}
	return language, true
}

// SetCustomerLanguage stores the language reported by the customer's Telegram client.
func SetCustomerLanguage(ctx context.Context, tgUserID int64, language string) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE customers SET language = $2, updated_at = now()
		WHERE tg_user_id = $1 AND language IS DISTINCT FROM $2`,
		tgUserID, language,
	)
	return err
}
