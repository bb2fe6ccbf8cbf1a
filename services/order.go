package services

import (
	"context"
	"time"

	"coffee-telegram/db"
	"coffee-telegram/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ConfirmOrder writes o in one transaction. The customer row is locked with FOR UPDATE
// before settle runs, so concurrent orders of one customer settle one after another.
func (PgStore) ConfirmOrder(ctx context.Context, o *models.Order, settle func(c *models.Customer) error) error {
	err := db.WithTx(ctx, func(tx pgx.Tx) error {
		var c *models.Customer
		if o.CustomerID != nil {
			var err error
			c, err = scanCustomer(tx.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1 FOR UPDATE`, *o.CustomerID))
			if err != nil {
				return notFound("lock customer", err, ErrCustomerNotFound)
			}
		}
		if err := settle(c); err != nil {
			return err
		}

		if c != nil {
			if _, err := tx.Exec(ctx, `
				UPDATE customers SET coffees_count = $2, coffees_free = $3, updated_at = now()
				WHERE id = $1`,
				c.ID, c.CoffeesCount, c.CoffeesFree,
			); err != nil {
				return storageErr("update customer", err)
			}
		}

		if err := tx.QueryRow(ctx, `
			INSERT INTO orders (status, customer_id, created_by, is_anonymous, free_drinks, used_free, total_paid)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at`,
			o.Status, o.CustomerID, o.CreatedBy, o.IsAnonymous, o.FreeDrinks, o.UsedFree, o.TotalPaid,
		).Scan(&o.ID, &o.CreatedAt); err != nil {
			return storageErr("insert order", err)
		}

		batch := &pgx.Batch{}
		for i, it := range o.Items {
			batch.Queue(`
				INSERT INTO order_items (order_id, product_id, unit_price, quantity, free_quantity, position)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				o.ID, it.ProductID, it.UnitPrice, it.Quantity, it.Free, i,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return storageErr("insert order items", err)
		}
		return nil
	})
	return wrapStorage("confirm order", err)
}

// ListOrdersByDay returns the confirmed orders created on day (in day's location) with
// their items, oldest first.
func (PgStore) ListOrdersByDay(ctx context.Context, day time.Time) ([]models.Order, error) {
	from, to := dayBounds(day)
	rows, err := db.Pool.Query(ctx, `
		SELECT o.id, o.status, o.customer_id, o.created_by, o.is_anonymous, o.free_drinks,
			o.used_free, o.total_paid, o.created_at,
			COALESCE('@' || c.username, c.first_name, '')
		FROM orders o
		LEFT JOIN customers c ON c.id = o.customer_id
		WHERE o.status = $1 AND o.created_at >= $2 AND o.created_at < $3
		ORDER BY o.created_at, o.id`,
		models.OrderStatusConfirmed, from, to,
	)
	if err != nil {
		return nil, storageErr("list orders", err)
	}
	defer rows.Close()

	var (
		orders []models.Order
		index  = map[int64]int{}
	)
	for rows.Next() {
		var (
			o    models.Order
			paid decimal.NullDecimal
		)
		if err := rows.Scan(&o.ID, &o.Status, &o.CustomerID, &o.CreatedBy, &o.IsAnonymous, &o.FreeDrinks,
			&o.UsedFree, &paid, &o.CreatedAt, &o.CustomerName); err != nil {
			return nil, storageErr("list orders", err)
		}
		if paid.Valid {
			o.TotalPaid = &paid.Decimal
		}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list orders", err)
	}
	if len(orders) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	itemRows, err := db.Pool.Query(ctx, `
		SELECT oi.order_id, oi.product_id, p.name, c.name, oi.unit_price, oi.quantity, oi.free_quantity
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.order_id, oi.position`,
		ids,
	)
	if err != nil {
		return nil, storageErr("list order items", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var (
			orderID int64
			it      models.OrderItem
		)
		if err := itemRows.Scan(&orderID, &it.ProductID, &it.ProductName, &it.CategoryName,
			&it.UnitPrice, &it.Quantity, &it.Free); err != nil {
			return nil, storageErr("list order items", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, storageErr("list order items", err)
	}
	return orders, nil
}

// dayBounds returns [start of day, start of next day) in day's location.
func dayBounds(day time.Time) (time.Time, time.Time) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return from, from.AddDate(0, 0, 1)
}
