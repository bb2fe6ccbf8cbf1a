package services

import (
	"context"
	"fmt"
	"strings"

	"coffee-telegram/db"
	"coffee-telegram/models"

	"github.com/shopspring/decimal"
)

const productColumns = `p.id, p.category_id, c.name, p.name, p.price`

func scanProducts(ctx context.Context, query string, args ...interface{}) ([]models.Product, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.CategoryName, &p.Name, &p.Price); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (PgStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := db.Pool.Query(ctx, `SELECT id, name FROM categories ORDER BY id`)
	if err != nil {
		return nil, storageErr("list categories", err)
	}
	defer rows.Close()

	var cats []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, storageErr("list categories", err)
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list categories", err)
	}
	return cats, nil
}

func (PgStore) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	c := models.Category{ID: id}
	err := db.Pool.QueryRow(ctx, `SELECT name FROM categories WHERE id = $1`, id).Scan(&c.Name)
	if err != nil {
		return nil, notFound("get category", err, ErrCategoryNotFound)
	}
	return &c, nil
}

func (PgStore) ListProductsByCategory(ctx context.Context, categoryID int64) ([]models.Product, error) {
	items, err := scanProducts(ctx, `
		SELECT `+productColumns+`
		FROM products p JOIN categories c ON c.id = p.category_id
		WHERE p.category_id = $1 AND p.active
		ORDER BY p.id`,
		categoryID,
	)
	if err != nil {
		return nil, storageErr("list products", err)
	}
	return items, nil
}

// GetProduct returns an orderable product; archived products are not found.
func (PgStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	err := db.Pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products p JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1 AND p.active`,
		id,
	).Scan(&p.ID, &p.CategoryID, &p.CategoryName, &p.Name, &p.Price)
	if err != nil {
		return nil, notFound("get product", err, ErrProductNotFound)
	}
	return &p, nil
}

// ListAllProducts returns the active catalog grouped by category, for the admin bot.
func ListAllProducts(ctx context.Context) ([]models.Product, error) {
	return scanProducts(ctx, `
		SELECT `+productColumns+`
		FROM products p JOIN categories c ON c.id = p.category_id
		WHERE p.active
		ORDER BY c.name, p.id`,
	)
}

func AddCategory(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("name is required")
	}
	var id int64
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO categories (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`,
		name,
	).Scan(&id)
	return id, err
}

func AddProduct(ctx context.Context, categoryID int64, name string, price decimal.Decimal) (int64, error) {
	cat, err := PgStore{}.GetCategory(ctx, categoryID)
	if err != nil {
		return 0, err
	}
	p, err := models.NewProduct(*cat, name, price)
	if err != nil {
		return 0, err
	}

	var id int64
	err = db.Pool.QueryRow(ctx, `
		INSERT INTO products (category_id, name, price) VALUES ($1, $2, $3)
		RETURNING id`,
		p.CategoryID, p.Name, p.Price,
	).Scan(&id)
	return id, err
}

// DeleteProduct archives the product. Past orders keep referencing it.
func DeleteProduct(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE products SET active = false WHERE id = $1 AND active`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}
