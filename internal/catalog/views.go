package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"apparel-catalog/internal/logger"
)

// BrowsePageSize caps the storefront listing. Search only narrows this page.
const BrowsePageSize = 12

// sequencer numbers fetches and cancels the previous one when a new one starts.
type sequencer struct {
	mu     sync.Mutex
	latest uint64
	cancel context.CancelFunc
}

func (s *sequencer) begin(parent context.Context) (context.Context, uint64, context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.latest++
	s.cancel = cancel
	return ctx, s.latest, cancel
}

func (s *sequencer) isLatest(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.latest
}

func matchName(products []Product, term string) []Product {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if term == "" || strings.Contains(strings.ToLower(p.Name), term) {
			out = append(out, p)
		}
	}
	return out
}

// AdminView is the admin's product table. It holds the last good listing and
// only replaces it wholesale after a successful fetch.
type AdminView struct {
	store *Store
	notes *Notifier
	form  *FormController
	seq   sequencer

	mu         sync.RWMutex
	products   []Product
	categories []Category
	loaded     bool
	committed  uint64
}

// NewAdminView creates an empty admin view.
func NewAdminView(store *Store) *AdminView {
	notes := NewNotifier()
	return &AdminView{
		store: store,
		notes: notes,
		form:  NewFormController(store, notes),
	}
}

// Form returns the view's form controller.
func (v *AdminView) Form() *FormController { return v.form }

// Notifier returns the view's notification slot.
func (v *AdminView) Notifier() *Notifier { return v.notes }

// Load fetches the listing the first time it is called.
func (v *AdminView) Load(ctx context.Context) error {
	v.mu.RLock()
	loaded := v.loaded
	v.mu.RUnlock()
	if loaded {
		return nil
	}
	return v.Refresh(ctx)
}

// Refresh re-fetches every product and the categories.
func (v *AdminView) Refresh(ctx context.Context) error {
	ctx, gen, done := v.seq.begin(ctx)
	defer done()

	products, err := v.store.ListProducts(ctx, ProductFilter{})
	if err != nil {
		if !v.seq.isLatest(gen) {
			return ErrStale
		}
		logger.Errorf("admin list: %v", err)
		v.notes.Error("Failed to fetch products")
		return err
	}
	categories, err := v.store.ListCategories(ctx)
	if err != nil {
		logger.Errorf("admin categories: %v", err)
		categories = nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.seq.isLatest(gen) || gen <= v.committed {
		return ErrStale
	}
	v.products = products
	if categories != nil {
		v.categories = categories
	}
	v.loaded = true
	v.committed = gen
	return nil
}

// Visible applies the local name search to the held listing.
func (v *AdminView) Visible(search string) []Product {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return matchName(v.products, search)
}

// Categories returns the held categories.
func (v *AdminView) Categories() []Category {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]Category(nil), v.categories...)
}

// Find returns a held product by id.
func (v *AdminView) Find(id string) (*Product, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for i := range v.products {
		if v.products[i].ID == id {
			p := v.products[i]
			return &p, true
		}
	}
	return nil, false
}

// Save submits the form; editingID selects the product being edited. After a
// successful write the listing is re-fetched.
func (v *AdminView) Save(ctx context.Context, raw RawForm, editingID string, img *ImageFile) (*Product, error) {
	var editing *Product
	if editingID != "" {
		p, ok := v.Find(editingID)
		if !ok {
			var err error
			p, err = v.store.GetProduct(ctx, editingID)
			if err != nil {
				v.form.keep(raw)
				return nil, v.form.fail(err)
			}
		}
		editing = p
	}

	saved, err := v.form.Submit(ctx, raw, editing, img)
	if err != nil {
		return nil, err
	}
	if err := v.Refresh(ctx); err != nil && err != ErrStale {
		logger.Warnf("refresh after save: %v", err)
	}
	return saved, nil
}

// Delete removes product id once confirmed. The listing changes only after the
// backend confirms the delete.
func (v *AdminView) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return invalid("confirm", "deletion must be confirmed")
	}
	if err := v.store.DeleteProduct(ctx, id); err != nil {
		logger.Errorf("delete product %s: %v", id, err)
		v.notes.Error("Failed to delete product")
		return err
	}
	v.notes.Success("Product deleted successfully!")
	if err := v.Refresh(ctx); err != nil && err != ErrStale {
		logger.Warnf("refresh after delete: %v", err)
	}
	return nil
}

// BrowseFilters is the storefront's server-side filter selection.
type BrowseFilters struct {
	CategoryID string `json:"category"`
	Fabric     string `json:"fabric"`
	Color      string `json:"color"`
}

func (f BrowseFilters) normalized() BrowseFilters {
	return BrowseFilters{
		CategoryID: filterValue(f.CategoryID),
		Fabric:     strings.ToLower(filterValue(f.Fabric)),
		Color:      strings.ToLower(filterValue(f.Color)),
	}
}

// Active reports whether any filter is set.
func (f BrowseFilters) Active() bool {
	return f.CategoryID != "" || f.Fabric != "" || f.Color != ""
}

// BrowseSnapshot is what the storefront renders.
type BrowseSnapshot struct {
	Filters    BrowseFilters `json:"filters"`
	Search     string        `json:"search"`
	Products   []Product     `json:"products"`
	Fetched    int           `json:"fetched"`
	Filtered   bool          `json:"filtered"`
	Categories []Category    `json:"categories"`
	Notice     *Notice       `json:"notification,omitempty"`
}

// BrowseView is the customer's product grid: active products only, capped at
// BrowsePageSize, re-fetched when the filters change.
type BrowseView struct {
	store *Store
	notes *Notifier
	seq   sequencer

	mu sync.RWMutex
	// filters always describes products; wanted is the selection of the
	// newest fetch started.
	filters    BrowseFilters
	wanted     BrowseFilters
	search     string
	products   []Product
	categories []Category
	loaded     bool
	committed  uint64
}

// NewBrowseView creates an empty storefront view.
func NewBrowseView(store *Store) *BrowseView {
	return &BrowseView{store: store, notes: NewNotifier()}
}

// Notifier returns the view's notification slot.
func (v *BrowseView) Notifier() *Notifier { return v.notes }

// SetFilters applies a new selection and re-queries unless the selection is
// already shown and no other selection is in flight.
func (v *BrowseView) SetFilters(ctx context.Context, f BrowseFilters) error {
	f = f.normalized()

	v.mu.Lock()
	if v.loaded && f == v.filters && f == v.wanted {
		v.mu.Unlock()
		return nil
	}
	// Generation and selection are taken together so a commit always pairs
	// products with the filters that produced them.
	ctx, gen, done := v.seq.begin(ctx)
	v.wanted = f
	v.mu.Unlock()
	defer done()

	return v.fetch(ctx, gen, f)
}

func (v *BrowseView) fetch(ctx context.Context, gen uint64, f BrowseFilters) error {
	products, err := v.store.ListProducts(ctx, ProductFilter{
		OnlyActive: true,
		CategoryID: f.CategoryID,
		Fabric:     f.Fabric,
		Color:      f.Color,
		Limit:      BrowsePageSize,
	})

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.seq.isLatest(gen) || gen <= v.committed {
		return ErrStale
	}
	v.committed = gen
	v.filters = f
	if err != nil {
		logger.Errorf("storefront list: %v", err)
		v.notes.Error("Failed to load products")
		v.products = nil
		v.loaded = false
		return err
	}
	v.products = products
	v.loaded = true
	return nil
}

// SetSearch changes the local name search. It never re-queries.
func (v *BrowseView) SetSearch(term string) {
	v.mu.Lock()
	v.search = strings.TrimSpace(term)
	v.mu.Unlock()
}

// LoadCategories fetches the category dropdown once.
func (v *BrowseView) LoadCategories(ctx context.Context) error {
	v.mu.RLock()
	have := v.categories != nil
	v.mu.RUnlock()
	if have {
		return nil
	}
	categories, err := v.store.ListCategories(ctx)
	if err != nil {
		logger.Errorf("storefront categories: %v", err)
		return err
	}
	v.mu.Lock()
	v.categories = categories
	v.mu.Unlock()
	return nil
}

// Visible returns the fetched page narrowed by the search term.
func (v *BrowseView) Visible() []Product {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return matchName(v.products, v.search)
}

// Snapshot returns the current render state.
func (v *BrowseView) Snapshot() BrowseSnapshot {
	v.mu.RLock()
	snap := BrowseSnapshot{
		Filters:    v.filters,
		Search:     v.search,
		Products:   matchName(v.products, v.search),
		Fetched:    len(v.products),
		Filtered:   v.filters.Active() || v.search != "",
		Categories: append([]Category{}, v.categories...),
	}
	v.mu.RUnlock()
	if n, ok := v.notes.Current(); ok {
		snap.Notice = &n
	}
	return snap
}

// Views keeps one admin and one storefront view per browser session and
// forgets sessions idle for longer than the TTL.
type Views struct {
	store  *Store
	mu     sync.Mutex
	admin  *expirable.LRU[string, *AdminView]
	browse *expirable.LRU[string, *BrowseView]
}

// NewViews creates a registry holding up to size sessions of each kind.
func NewViews(store *Store, size int, ttl time.Duration) *Views {
	return &Views{
		store:  store,
		admin:  expirable.NewLRU[string, *AdminView](size, nil, ttl),
		browse: expirable.NewLRU[string, *BrowseView](size, nil, ttl),
	}
}

// Admin returns the admin view of session key, creating it on first use.
func (r *Views) Admin(key string) *AdminView {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.admin.Get(key); ok {
		return v
	}
	v := NewAdminView(r.store)
	r.admin.Add(key, v)
	return v
}

// Browse returns the storefront view of session key, creating it on first use.
func (r *Views) Browse(key string) *BrowseView {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.browse.Get(key); ok {
		return v
	}
	v := NewBrowseView(r.store)
	r.browse.Add(key, v)
	return v
}

// Forget drops both views of session key.
func (r *Views) Forget(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admin.Remove(key)
	r.browse.Remove(key)
}
