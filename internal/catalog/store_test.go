package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"apparel-catalog/internal/gateway"
	"apparel-catalog/internal/gateway/mocks"
)

func newTestStore(t *testing.T) (*Store, *mocks.MockTables, *mocks.MockStorage) {
	t.Helper()
	ctrl := gomock.NewController(t)
	tables := mocks.NewMockTables(ctrl)
	storage := mocks.NewMockStorage(ctrl)
	clock := func() time.Time { return time.UnixMilli(1700000000000) }
	return NewStore(tables, storage, WithCallTimeout(time.Second), WithClock(clock)), tables, storage
}

func row(id, name string, active bool) gateway.ProductRow {
	return gateway.ProductRow{
		ID:               id,
		Name:             name,
		Slug:             Slugify(name),
		BasePrice:        499,
		MinOrderQuantity: 1,
		IsActive:         active,
		CreatedAt:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestListProductsFilterMapping(t *testing.T) {
	store, tables, _ := newTestStore(t)
	ctx := context.Background()

	tables.EXPECT().
		ListProducts(gomock.Any(), gateway.ProductQuery{OnlyActive: true, Limit: 12}).
		Return(nil, nil)
	_, err := store.ListProducts(ctx, ProductFilter{OnlyActive: true, CategoryID: "all", Fabric: "all", Color: "All", Limit: 12})
	require.NoError(t, err)

	tables.EXPECT().
		ListProducts(gomock.Any(), gateway.ProductQuery{
			CategoryID: "cat-1",
			Contains:   map[string]string{"fabric": "cotton", "color": "navy"},
		}).
		Return(nil, nil)
	_, err = store.ListProducts(ctx, ProductFilter{CategoryID: "cat-1", Fabric: " Cotton ", Color: "NAVY"})
	require.NoError(t, err)

	tables.EXPECT().
		ListProducts(gomock.Any(), gateway.ProductQuery{Contains: map[string]string{"color": "red"}}).
		Return(nil, nil)
	_, err = store.ListProducts(ctx, ProductFilter{Color: "red"})
	require.NoError(t, err)
}

func TestListProductsNormalizesRows(t *testing.T) {
	store, tables, _ := newTestStore(t)

	desc := "Heavy cotton"
	r := row("p1", "Polo Shirt", true)
	r.Description = &desc
	r.Category = &gateway.CategoryRef{Name: "Polos"}
	r.MinOrderQuantity = 0
	r.Specifications = map[string]interface{}{"fabric": "cotton", "color": "navy", "gsm": 180.0}
	tables.EXPECT().ListProducts(gomock.Any(), gomock.Any()).Return([]gateway.ProductRow{r}, nil)

	products, err := store.ListProducts(context.Background(), ProductFilter{})
	require.NoError(t, err)
	require.Len(t, products, 1)

	p := products[0]
	assert.Equal(t, "Heavy cotton", p.Description)
	assert.Equal(t, "Polos", p.CategoryName)
	assert.Equal(t, []string{}, p.Images)
	assert.Equal(t, "", p.ImageURL())
	assert.Equal(t, 1, p.MinOrderQuantity)
	assert.Equal(t, ProductSpec{Fabric: "cotton", Color: "navy"}, p.Details)
}

func TestListProductsRejectsInvalidRow(t *testing.T) {
	store, tables, _ := newTestStore(t)

	bad := row("", "No id", true)
	tables.EXPECT().ListProducts(gomock.Any(), gomock.Any()).Return([]gateway.ProductRow{bad}, nil)

	_, err := store.ListProducts(context.Background(), ProductFilter{})
	var se *StoreError
	assert.ErrorAs(t, err, &se)
}

func TestListCategoriesSorted(t *testing.T) {
	store, tables, _ := newTestStore(t)
	tables.EXPECT().ListCategories(gomock.Any()).Return([]gateway.CategoryRow{
		{ID: "2", Name: "T-Shirts"},
		{ID: "1", Name: "Hoodies"},
		{ID: "3", Name: "Polos"},
	}, nil)

	categories, err := store.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Category{{ID: "1", Name: "Hoodies"}, {ID: "3", Name: "Polos"}, {ID: "2", Name: "T-Shirts"}}, categories)
}

func TestGetProductNotFound(t *testing.T) {
	store, tables, _ := newTestStore(t)
	tables.EXPECT().GetProduct(gomock.Any(), "missing").Return(nil, gateway.ErrNotFound)

	_, err := store.GetProduct(context.Background(), "missing")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.ID)

	_, err = store.GetProduct(context.Background(), " ")
	assert.ErrorAs(t, err, &nf)
}

func TestCreateProductRejectsBeforeWriting(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	neg := -1.0
	price := 10.0

	_, err := store.CreateProduct(ctx, ProductInput{Name: "Hoodie"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "base_price", ve.Field)

	_, err = store.CreateProduct(ctx, ProductInput{Name: "Hoodie", BasePrice: &neg})
	require.ErrorAs(t, err, &ve)

	_, err = store.CreateProduct(ctx, ProductInput{Name: "   ", BasePrice: &price})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)

	_, err = store.CreateProduct(ctx, ProductInput{Name: "!!!", BasePrice: &price})
	require.ErrorAs(t, err, &ve)
}

func TestCreateProductConflict(t *testing.T) {
	store, tables, _ := newTestStore(t)
	price := 10.0
	tables.EXPECT().InsertProduct(gomock.Any(), gomock.Any()).Return(nil, gateway.ErrConflict)

	_, err := store.CreateProduct(context.Background(), ProductInput{Name: "Hoodie", BasePrice: &price})
	require.Error(t, err)
	assert.Equal(t, 409, StatusCode(err))
	assert.Equal(t, "A product with this name already exists", Message(err))
}

func TestDeleteProductErrors(t *testing.T) {
	store, tables, _ := newTestStore(t)
	ctx := context.Background()

	tables.EXPECT().DeleteProduct(gomock.Any(), "gone").Return(gateway.ErrNotFound)
	err := store.DeleteProduct(ctx, "gone")
	assert.Equal(t, 404, StatusCode(err))

	tables.EXPECT().DeleteProduct(gomock.Any(), "p1").Return(errors.New("permission denied"))
	err = store.DeleteProduct(ctx, "p1")
	assert.Equal(t, 502, StatusCode(err))
}

func TestUploadImage(t *testing.T) {
	store, _, storage := newTestStore(t)
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

	var gotPath string
	storage.EXPECT().
		Upload(gomock.Any(), ImageBucket, gomock.Any(), png, gateway.UploadOptions{
			ContentType:  "image/png",
			CacheControl: "max-age=3600",
		}).
		DoAndReturn(func(_ context.Context, _, path string, _ []byte, _ gateway.UploadOptions) error {
			gotPath = path
			return nil
		})
	storage.EXPECT().
		PublicURL(ImageBucket, gomock.Any()).
		DoAndReturn(func(bucket, path string) string {
			return "https://cdn.test/" + bucket + "/" + path
		})

	url, err := store.UploadImage(context.Background(), png, "Front View.PNG", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(gotPath, "products/"), gotPath)
	assert.True(t, strings.HasSuffix(gotPath, "-1700000000000.png"), gotPath)
	assert.Equal(t, "https://cdn.test/product-images/"+gotPath, url)
}

func TestUploadImageDuplicate(t *testing.T) {
	store, _, storage := newTestStore(t)
	storage.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(gateway.ErrObjectExists)

	_, err := store.UploadImage(context.Background(), []byte("GIF89a"), "a.gif", "image/gif")
	var ue *UploadError
	require.ErrorAs(t, err, &ue)
	assert.ErrorIs(t, err, gateway.ErrObjectExists)
	assert.Equal(t, 502, StatusCode(err))
}

func TestUploadImageResolvesType(t *testing.T) {
	store, _, storage := newTestStore(t)
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="1" height="1"></svg>`)
	unknown := []byte{0x00, 0x00, 0x00, 0x18, 0x13, 0x37}

	gomock.InOrder(
		storage.EXPECT().
			Upload(gomock.Any(), ImageBucket, gomock.Any(), svg, gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _ string, _ []byte, opts gateway.UploadOptions) error {
				assert.Equal(t, "image/svg+xml", opts.ContentType)
				return nil
			}),
		storage.EXPECT().PublicURL(ImageBucket, gomock.Any()).Return("https://cdn.test/logo.svg"),
		storage.EXPECT().
			Upload(gomock.Any(), ImageBucket, gomock.Any(), unknown, gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _ string, _ []byte, opts gateway.UploadOptions) error {
				assert.Equal(t, "image/avif", opts.ContentType)
				return nil
			}),
		storage.EXPECT().PublicURL(ImageBucket, gomock.Any()).Return("https://cdn.test/photo.avif"),
	)

	_, err := store.UploadImage(context.Background(), svg, "logo.svg", "")
	require.NoError(t, err)
	_, err = store.UploadImage(context.Background(), unknown, "photo.AVIF", "")
	require.NoError(t, err)
}

func TestProductSpec(t *testing.T) {
	p := Product{Specifications: map[string]interface{}{"fabric": "cotton", "color": "navy", "gsm": 180}}
	assert.Equal(t, ProductSpec{Fabric: "cotton", Color: "navy"}, p.Spec())
	assert.Equal(t, ProductSpec{}, Product{}.Spec())
}
