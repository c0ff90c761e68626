package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"apparel-catalog/internal/gateway"
	"apparel-catalog/internal/logger"
)

const (
	// ImageBucket is the public bucket product images live in.
	ImageBucket = "product-images"
	imagePrefix = "products/"
	imageCache  = "max-age=3600"

	defaultCallTimeout = 10 * time.Second
)

// Store is the typed adapter over the backend tables and image storage.
// Rows are validated here so the rest of the package only sees Product and Category.
type Store struct {
	tables   gateway.Tables
	storage  gateway.Storage
	validate *validator.Validate
	timeout  time.Duration
	now      func() time.Time
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithCallTimeout bounds every backend call.
func WithCallTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock replaces time.Now, used for upload object names.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates a catalog store.
func NewStore(tables gateway.Tables, storage gateway.Storage, opts ...StoreOption) *Store {
	s := &Store{
		tables:   tables,
		storage:  storage,
		validate: validator.New(),
		timeout:  defaultCallTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListProducts returns products matching f, newest first.
func (s *Store) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	q := gateway.ProductQuery{
		OnlyActive: f.OnlyActive,
		CategoryID: filterValue(f.CategoryID),
		Limit:      f.Limit,
	}
	if v := strings.ToLower(filterValue(f.Fabric)); v != "" {
		q.Contains = map[string]string{"fabric": v}
	}
	if v := strings.ToLower(filterValue(f.Color)); v != "" {
		if q.Contains == nil {
			q.Contains = map[string]string{}
		}
		q.Contains["color"] = v
	}

	rows, err := s.tables.ListProducts(ctx, q)
	if err != nil {
		return nil, storeErr("ListProducts", err)
	}

	products := make([]Product, 0, len(rows))
	for i := range rows {
		p, err := s.toProduct(&rows[i])
		if err != nil {
			return nil, storeErr("ListProducts", err)
		}
		products = append(products, p)
	}
	logger.Debugf("ListProducts: %d rows (active=%v category=%q contains=%v)", len(products), q.OnlyActive, q.CategoryID, q.Contains)
	return products, nil
}

// ListCategories returns every category ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.tables.ListCategories(ctx)
	if err != nil {
		return nil, storeErr("ListCategories", err)
	}
	categories := make([]Category, 0, len(rows))
	for i := range rows {
		if err := s.validate.Struct(&rows[i]); err != nil {
			return nil, storeErr("ListCategories", err)
		}
		categories = append(categories, Category{ID: rows[i].ID, Name: rows[i].Name})
	}
	sort.SliceStable(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

// GetProduct returns one product.
func (s *Store) GetProduct(ctx context.Context, id string) (*Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &NotFoundError{ID: id}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row, err := s.tables.GetProduct(ctx, id)
	if err != nil {
		return nil, s.mapErr("GetProduct", id, err)
	}
	p, err := s.toProduct(row)
	if err != nil {
		return nil, storeErr("GetProduct", err)
	}
	return &p, nil
}

// CreateProduct persists a new product. The slug is derived from the name
// unless in.Slug is already set.
func (s *Store) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	fields, err := checkInput(in)
	if err != nil {
		return nil, err
	}
	slug := in.Slug
	if slug == "" {
		slug = Slugify(in.Name)
	}
	if slug == "" {
		return nil, invalid("name", "must contain at least one letter or digit")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row, err := s.tables.InsertProduct(ctx, gateway.NewProduct{Slug: slug, ProductFields: fields})
	if err != nil {
		return nil, storeErr("CreateProduct", err)
	}
	p, err := s.toProduct(row)
	if err != nil {
		return nil, storeErr("CreateProduct", err)
	}
	logger.Infof("CreateProduct: %s (%s)", p.ID, p.Slug)
	return &p, nil
}

// UpdateProduct rewrites the mutable fields of product id. in.Slug is ignored.
func (s *Store) UpdateProduct(ctx context.Context, id string, in ProductInput) (*Product, error) {
	fields, err := checkInput(in)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, &NotFoundError{ID: id}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row, err := s.tables.UpdateProduct(ctx, id, fields)
	if err != nil {
		return nil, s.mapErr("UpdateProduct", id, err)
	}
	p, err := s.toProduct(row)
	if err != nil {
		return nil, storeErr("UpdateProduct", err)
	}
	logger.Infof("UpdateProduct: %s", p.ID)
	return &p, nil
}

// DeleteProduct removes product id. It cannot be undone; callers confirm first.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return &NotFoundError{ID: id}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.tables.DeleteProduct(ctx, id); err != nil {
		return s.mapErr("DeleteProduct", id, err)
	}
	logger.Infof("DeleteProduct: %s", id)
	return nil
}

// UploadImage stores data under a fresh products/ key and returns its public URL.
// An empty contentType is resolved from the bytes and the file name. Size and
// type checks belong to the caller.
func (s *Store) UploadImage(ctx context.Context, data []byte, fileName, contentType string) (string, error) {
	if contentType == "" {
		contentType = imageType(data, fileName, "")
	}
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	path := s.imagePath(fileName)
	err := s.storage.Upload(ctx, ImageBucket, path, data, gateway.UploadOptions{
		ContentType:  contentType,
		CacheControl: imageCache,
		Upsert:       false,
	})
	if err != nil {
		return "", &UploadError{Err: err}
	}
	return s.storage.PublicURL(ImageBucket, path), nil
}

// Ping reports whether the tables backend answers.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.tables.Ping(ctx)
}

func (s *Store) imagePath(fileName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(fileName)))
	return fmt.Sprintf("%s%s-%d%s", imagePrefix, uuid.New().String(), s.now().UnixMilli(), ext)
}

func (s *Store) mapErr(op, id string, err error) error {
	if errors.Is(err, gateway.ErrNotFound) {
		return &NotFoundError{ID: id}
	}
	return storeErr(op, err)
}

func (s *Store) toProduct(row *gateway.ProductRow) (Product, error) {
	if row == nil {
		return Product{}, errors.New("empty row")
	}
	if err := s.validate.Struct(row); err != nil {
		return Product{}, fmt.Errorf("invalid product row %q: %w", row.ID, err)
	}
	p := Product{
		ID:               row.ID,
		Name:             row.Name,
		Slug:             row.Slug,
		CategoryID:       row.CategoryID,
		BasePrice:        row.BasePrice,
		MinOrderQuantity: row.MinOrderQuantity,
		Images:           row.Images,
		IsActive:         row.IsActive,
		Specifications:   row.Specifications,
		CreatedAt:        row.CreatedAt,
	}
	if row.Description != nil {
		p.Description = *row.Description
	}
	if row.Category != nil {
		p.CategoryName = row.Category.Name
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.MinOrderQuantity < 1 {
		p.MinOrderQuantity = 1
	}
	p.Details = p.Spec()
	return p, nil
}

// checkInput enforces the write contract shared by create and update.
func checkInput(in ProductInput) (gateway.ProductFields, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return gateway.ProductFields{}, invalid("name", "is required")
	}
	if in.BasePrice == nil {
		return gateway.ProductFields{}, invalid("base_price", "is required")
	}
	if *in.BasePrice < 0 {
		return gateway.ProductFields{}, invalid("base_price", "must not be negative")
	}
	moq := in.MinOrderQuantity
	if moq < 1 {
		moq = 1
	}
	var categoryID *string
	if in.CategoryID != nil && strings.TrimSpace(*in.CategoryID) != "" {
		c := strings.TrimSpace(*in.CategoryID)
		categoryID = &c
	}
	images := in.Images
	if images == nil {
		images = []string{}
	}
	return gateway.ProductFields{
		Name:             name,
		Description:      in.Description,
		CategoryID:       categoryID,
		BasePrice:        *in.BasePrice,
		MinOrderQuantity: moq,
		Images:           images,
		IsActive:         in.IsActive,
		Specifications:   in.Specifications,
	}, nil
}

func filterValue(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}
