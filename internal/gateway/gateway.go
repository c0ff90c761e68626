// Package gateway describes the hosted backend the catalog runs on: relational
// tables with row-level security, object storage and password auth.
package gateway

import (
	"context"
	"errors"
	"time"
)

//go:generate mockgen -destination=mocks/mock_gateway.go -package=mocks apparel-catalog/internal/gateway Tables,Storage,Authenticator

var (
	ErrNotFound           = errors.New("gateway: not found")
	ErrObjectExists       = errors.New("gateway: object already exists")
	ErrConflict           = errors.New("gateway: conflicting row")
	ErrInvalidCredentials = errors.New("gateway: invalid credentials")
)

// CategoryRef is the embedded category of a joined product read.
type CategoryRef struct {
	Name string `json:"name"`
}

// ProductRow is a products row as the backend returns it.
type ProductRow struct {
	ID               string                 `json:"id" validate:"required"`
	Name             string                 `json:"name" validate:"required"`
	Slug             string                 `json:"slug"`
	Description      *string                `json:"description"`
	CategoryID       *string                `json:"category_id"`
	Category         *CategoryRef           `json:"category"`
	BasePrice        float64                `json:"base_price" validate:"gte=0"`
	MinOrderQuantity int                    `json:"min_order_quantity"`
	Images           []string               `json:"images"`
	IsActive         bool                   `json:"is_active"`
	Specifications   map[string]interface{} `json:"specifications"`
	CreatedAt        time.Time              `json:"created_at"`
}

// CategoryRow is a categories row.
type CategoryRow struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// ProductFields are the columns an update may touch. Slug and id are not here.
type ProductFields struct {
	Name             string                 `json:"name"`
	Description      string                 `json:"description"`
	CategoryID       *string                `json:"category_id"`
	BasePrice        float64                `json:"base_price"`
	MinOrderQuantity int                    `json:"min_order_quantity"`
	Images           []string               `json:"images"`
	IsActive         bool                   `json:"is_active"`
	Specifications   map[string]interface{} `json:"specifications"`
}

// NewProduct is an insert payload.
type NewProduct struct {
	Slug string `json:"slug"`
	ProductFields
}

// ProductQuery narrows a product listing. Zero values mean no constraint.
type ProductQuery struct {
	OnlyActive bool
	CategoryID string
	// Contains is matched as JSON containment against specifications.
	Contains map[string]string
	Limit    int
}

// UploadOptions controls an object write.
type UploadOptions struct {
	ContentType  string
	CacheControl string
	Upsert       bool
}

// User is the authenticated principal.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is what a successful sign-in yields.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Tables reads and writes the products and categories tables.
type Tables interface {
	ListProducts(ctx context.Context, q ProductQuery) ([]ProductRow, error)
	GetProduct(ctx context.Context, id string) (*ProductRow, error)
	InsertProduct(ctx context.Context, p NewProduct) (*ProductRow, error)
	UpdateProduct(ctx context.Context, id string, f ProductFields) (*ProductRow, error)
	DeleteProduct(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]CategoryRow, error)
	Ping(ctx context.Context) error
}

// Storage writes objects into public buckets.
type Storage interface {
	Upload(ctx context.Context, bucket, path string, data []byte, opts UploadOptions) error
	PublicURL(bucket, path string) string
}

// Authenticator exchanges credentials for sessions.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

type accessTokenKey struct{}

// WithAccessToken scopes backend calls made with ctx to the user's token so
// row-level security applies to them.
func WithAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessToken returns the token set by WithAccessToken.
func AccessToken(ctx context.Context) string {
	tok, _ := ctx.Value(accessTokenKey{}).(string)
	return tok
}
