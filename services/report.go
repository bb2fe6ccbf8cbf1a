package services

import (
	"context"
	"time"

	"coffee-telegram/db"
	"coffee-telegram/models"
)

// GetDailyStats summarizes the confirmed orders of one day.
func GetDailyStats(ctx context.Context, day time.Time) (*models.DailyStats, error) {
	from, to := dayBounds(day)
	var s models.DailyStats
	err := db.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*)::int,
			COUNT(*) FILTER (WHERE o.is_anonymous)::int,
			COALESCE(SUM(o.used_free), 0)::int,
			COALESCE(SUM(o.total_paid), 0),
			COALESCE((
				SELECT SUM(oi.quantity) FROM order_items oi
				JOIN orders o2 ON o2.id = oi.order_id
				WHERE o2.status = $1 AND o2.created_at >= $2 AND o2.created_at < $3
			), 0)::int
		FROM orders o
		WHERE o.status = $1 AND o.created_at >= $2 AND o.created_at < $3`,
		models.OrderStatusConfirmed, from, to,
	).Scan(&s.OrdersCount, &s.AnonymousCount, &s.FreeRedeemed, &s.Revenue, &s.ItemsSold)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetProductSales returns units sold and revenue per product for the days from..to inclusive,
// best sellers first. Revenue excludes units covered by free drinks.
func GetProductSales(ctx context.Context, from, to time.Time) ([]models.ProductSales, error) {
	start, _ := dayBounds(from)
	_, end := dayBounds(to)
	rows, err := db.Pool.Query(ctx, `
		SELECT p.id, p.name, c.name,
			SUM(oi.quantity)::int,
			COALESCE(SUM(oi.unit_price * (oi.quantity - oi.free_quantity)), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE o.status = $1 AND o.created_at >= $2 AND o.created_at < $3
		GROUP BY p.id, p.name, c.name
		ORDER BY SUM(oi.quantity) DESC, p.id`,
		models.OrderStatusConfirmed, start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ProductSales
	for rows.Next() {
		var s models.ProductSales
		if err := rows.Scan(&s.ProductID, &s.Name, &s.CategoryName, &s.Quantity, &s.Revenue); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetTopCustomers returns the customers with the highest paid totals.
func GetTopCustomers(ctx context.Context, limit int) ([]models.CustomerTotals, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT cu.id, cu.tg_user_id, COALESCE(cu.username, ''), COALESCE(cu.first_name, ''),
			cu.coffees_count, cu.coffees_free, cu.role,
			COALESCE(SUM(o.total_paid), 0),
			COALESCE(SUM((SELECT SUM(oi.quantity) FROM order_items oi WHERE oi.order_id = o.id)), 0)::int
		FROM customers cu
		JOIN orders o ON o.customer_id = cu.id AND o.status = $1
		GROUP BY cu.id
		ORDER BY 8 DESC, cu.id
		LIMIT $2`,
		models.OrderStatusConfirmed, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CustomerTotals
	for rows.Next() {
		var t models.CustomerTotals
		c := &t.Customer
		if err := rows.Scan(&c.ID, &c.TgUserID, &c.Username, &c.FirstName, &c.CoffeesCount, &c.CoffeesFree, &c.Role,
			&t.TotalPaid, &t.Quantity); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
