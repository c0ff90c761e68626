package supabase

import (
	"context"
	"net/http"
	"strconv"

	"github.com/guonaihong/gout"
	"github.com/pkg/errors"

	"apparel-catalog/internal/gateway"
)

const (
	productsPath   = "/rest/v1/products"
	categoriesPath = "/rest/v1/categories"
	productSelect  = "*,category:categories(name)"
)

// ListProducts issues one filtered PostgREST read, newest first.
func (c *Client) ListProducts(ctx context.Context, q gateway.ProductQuery) ([]gateway.ProductRow, error) {
	query := gout.H{
		"select": productSelect,
		"order":  "created_at.desc",
	}
	if q.OnlyActive {
		query["is_active"] = "eq.true"
	}
	if q.CategoryID != "" {
		query["category_id"] = eq(q.CategoryID)
	}
	if len(q.Contains) > 0 {
		doc, err := jsonBody(q.Contains)
		if err != nil {
			return nil, err
		}
		query["specifications"] = "cs." + string(doc)
	}
	if q.Limit > 0 {
		query["limit"] = strconv.Itoa(q.Limit)
	}

	var rows []gateway.ProductRow
	if err := c.readRows(ctx, productsPath, query, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetProduct reads one product by id.
func (c *Client) GetProduct(ctx context.Context, id string) (*gateway.ProductRow, error) {
	var rows []gateway.ProductRow
	err := c.readRows(ctx, productsPath, gout.H{
		"select": productSelect,
		"id":     eq(id),
		"limit":  "1",
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gateway.ErrNotFound
	}
	return &rows[0], nil
}

// InsertProduct writes one row and returns its stored representation.
func (c *Client) InsertProduct(ctx context.Context, p gateway.NewProduct) (*gateway.ProductRow, error) {
	body, err := jsonBody(p)
	if err != nil {
		return nil, err
	}
	return c.writeRow(ctx, http.MethodPost, gout.H{"select": productSelect}, body)
}

// UpdateProduct patches the row with the given id.
func (c *Client) UpdateProduct(ctx context.Context, id string, f gateway.ProductFields) (*gateway.ProductRow, error) {
	body, err := jsonBody(f)
	if err != nil {
		return nil, err
	}
	return c.writeRow(ctx, http.MethodPatch, gout.H{"select": productSelect, "id": eq(id)}, body)
}

// DeleteProduct removes the row with the given id.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	code, body, err := c.do(ctx, call{
		method:  http.MethodDelete,
		path:    productsPath,
		query:   gout.H{"id": eq(id), "select": "id"},
		headers: gout.H{"Prefer": "return=representation"},
	})
	if err != nil {
		return err
	}
	if !ok(code) {
		return statusError(http.MethodDelete, productsPath, code, body)
	}
	var rows []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return errors.Wrap(err, "supabase: decode delete response")
	}
	if len(rows) == 0 {
		return gateway.ErrNotFound
	}
	return nil
}

// ListCategories returns every category ordered by name.
func (c *Client) ListCategories(ctx context.Context) ([]gateway.CategoryRow, error) {
	var rows []gateway.CategoryRow
	err := c.readRows(ctx, categoriesPath, gout.H{"select": "id,name", "order": "name.asc"}, &rows)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Ping checks that PostgREST answers for the categories table.
func (c *Client) Ping(ctx context.Context) error {
	code, body, err := c.do(ctx, call{
		method: http.MethodGet,
		path:   categoriesPath,
		query:  gout.H{"select": "id", "limit": "1"},
	})
	if err != nil {
		return err
	}
	if !ok(code) {
		return statusError(http.MethodGet, categoriesPath, code, body)
	}
	return nil
}

func (c *Client) readRows(ctx context.Context, path string, query gout.H, out interface{}) error {
	code, body, err := c.do(ctx, call{method: http.MethodGet, path: path, query: query})
	if err != nil {
		return err
	}
	if !ok(code) {
		return statusError(http.MethodGet, path, code, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "supabase: decode %s", path)
	}
	return nil
}

func (c *Client) writeRow(ctx context.Context, method string, query gout.H, body []byte) (*gateway.ProductRow, error) {
	code, resp, err := c.do(ctx, call{
		method: method,
		path:   productsPath,
		query:  query,
		headers: gout.H{
			"Content-Type": "application/json",
			"Prefer":       "return=representation",
		},
		body: body,
	})
	if err != nil {
		return nil, err
	}
	if code == http.StatusConflict {
		return nil, errors.Wrap(gateway.ErrConflict, statusError(method, productsPath, code, resp).Error())
	}
	if !ok(code) {
		return nil, statusError(method, productsPath, code, resp)
	}
	var rows []gateway.ProductRow
	if err := json.Unmarshal(resp, &rows); err != nil {
		return nil, errors.Wrap(err, "supabase: decode write response")
	}
	if len(rows) == 0 {
		return nil, gateway.ErrNotFound
	}
	return &rows[0], nil
}
