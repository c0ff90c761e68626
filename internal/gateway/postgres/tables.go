// Package postgres serves the catalog tables straight from the project's
// Postgres database, for deployments that run next to it.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"apparel-catalog/internal/gateway"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const uniqueViolation = "23505"

// Tables implements gateway.Tables over database/sql.
type Tables struct {
	db *sql.DB
}

var _ gateway.Tables = (*Tables)(nil)

// NewTables wraps an open pool.
func NewTables(db *sql.DB) *Tables {
	return &Tables{db: db}
}

const productColumns = `
	SELECT p.id, p.name, p.slug, p.description, p.category_id, c.name,
	       p.base_price, p.min_order_quantity,
	       COALESCE(p.images, '{}'::text[]) AS images,
	       p.is_active,
	       COALESCE(p.specifications, '{}'::jsonb) AS specifications,
	       p.created_at
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id
`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(s scanner) (gateway.ProductRow, error) {
	var (
		p            gateway.ProductRow
		description  sql.NullString
		categoryID   sql.NullString
		categoryName sql.NullString
		moq          sql.NullInt64
		images       pq.StringArray
		specs        []byte
	)
	err := s.Scan(
		&p.ID, &p.Name, &p.Slug, &description, &categoryID, &categoryName,
		&p.BasePrice, &moq, &images, &p.IsActive, &specs, &p.CreatedAt,
	)
	if err != nil {
		return p, err
	}
	if description.Valid {
		p.Description = &description.String
	}
	if categoryID.Valid {
		p.CategoryID = &categoryID.String
	}
	if categoryName.Valid {
		p.Category = &gateway.CategoryRef{Name: categoryName.String}
	}
	if moq.Valid {
		p.MinOrderQuantity = int(moq.Int64)
	}
	p.Images = []string(images)
	if len(specs) > 0 {
		if err := json.Unmarshal(specs, &p.Specifications); err != nil {
			return p, errors.Wrap(err, "decode specifications")
		}
	}
	return p, nil
}

// ListProducts builds the WHERE clause from q, newest first.
func (t *Tables) ListProducts(ctx context.Context, q gateway.ProductQuery) ([]gateway.ProductRow, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.OnlyActive {
		where = append(where, "p.is_active = true")
	}
	if q.CategoryID != "" {
		args = append(args, q.CategoryID)
		where = append(where, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if len(q.Contains) > 0 {
		doc, err := json.Marshal(q.Contains)
		if err != nil {
			return nil, errors.Wrap(err, "ListProducts encode containment")
		}
		args = append(args, string(doc))
		where = append(where, fmt.Sprintf("p.specifications @> $%d::jsonb", len(args)))
	}

	query := productColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.created_at DESC"
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "ListProducts query")
	}
	defer rows.Close()

	products := []gateway.ProductRow{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, "ListProducts scan")
		}
		products = append(products, p)
	}
	return products, errors.Wrap(rows.Err(), "ListProducts rows")
}

// GetProduct reads one product with its category name.
func (t *Tables) GetProduct(ctx context.Context, id string) (*gateway.ProductRow, error) {
	p, err := scanProduct(t.db.QueryRowContext(ctx, productColumns+" WHERE p.id = $1", id))
	if err == sql.ErrNoRows {
		return nil, gateway.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "GetProduct query")
	}
	return &p, nil
}

// InsertProduct assigns a new id; created_at comes from the column default.
func (t *Tables) InsertProduct(ctx context.Context, np gateway.NewProduct) (*gateway.ProductRow, error) {
	specs, err := encodeSpecs(np.Specifications)
	if err != nil {
		return nil, err
	}
	id := uuid.New().String()

	_, err = t.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name, slug, description, category_id, base_price,
			min_order_quantity, images, is_active, specifications
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb)`,
		id, np.Name, np.Slug, np.Description, nullable(np.CategoryID), np.BasePrice,
		np.MinOrderQuantity, pq.Array(np.Images), np.IsActive, specs,
	)
	if err != nil {
		return nil, mapWriteError("InsertProduct", err)
	}
	return t.GetProduct(ctx, id)
}

// UpdateProduct rewrites every mutable column. Slug is not among them.
func (t *Tables) UpdateProduct(ctx context.Context, id string, f gateway.ProductFields) (*gateway.ProductRow, error) {
	specs, err := encodeSpecs(f.Specifications)
	if err != nil {
		return nil, err
	}

	result, err := t.db.ExecContext(ctx, `
		UPDATE products SET
			name = $1, description = $2, category_id = $3, base_price = $4,
			min_order_quantity = $5, images = $6, is_active = $7,
			specifications = $8::jsonb
		WHERE id = $9`,
		f.Name, f.Description, nullable(f.CategoryID), f.BasePrice,
		f.MinOrderQuantity, pq.Array(f.Images), f.IsActive, specs, id,
	)
	if err != nil {
		return nil, mapWriteError("UpdateProduct", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "UpdateProduct rows affected")
	}
	if n == 0 {
		return nil, gateway.ErrNotFound
	}
	return t.GetProduct(ctx, id)
}

// DeleteProduct removes a product row.
func (t *Tables) DeleteProduct(ctx context.Context, id string) error {
	result, err := t.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "DeleteProduct")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "DeleteProduct rows affected")
	}
	if n == 0 {
		return gateway.ErrNotFound
	}
	return nil
}

// ListCategories returns categories by name.
func (t *Tables) ListCategories(ctx context.Context) ([]gateway.CategoryRow, error) {
	rows, err := t.db.QueryContext(ctx, "SELECT id, name FROM categories ORDER BY name ASC")
	if err != nil {
		return nil, errors.Wrap(err, "ListCategories query")
	}
	defer rows.Close()

	categories := []gateway.CategoryRow{}
	for rows.Next() {
		var c gateway.CategoryRow
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, errors.Wrap(err, "ListCategories scan")
		}
		categories = append(categories, c)
	}
	return categories, errors.Wrap(rows.Err(), "ListCategories rows")
}

// Ping checks the pool.
func (t *Tables) Ping(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

func nullable(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func encodeSpecs(specs map[string]interface{}) (string, error) {
	if specs == nil {
		return "{}", nil
	}
	b, err := json.Marshal(specs)
	if err != nil {
		return "", errors.Wrap(err, "encode specifications")
	}
	return string(b), nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return errors.Wrapf(gateway.ErrConflict, "%s: %s", op, pgErr.Message)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return errors.Wrapf(gateway.ErrConflict, "%s: %s", op, pqErr.Message)
	}
	return errors.Wrap(err, op)
}
