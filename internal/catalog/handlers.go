package catalog

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"

	"apparel-catalog/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxFormBytes leaves room for the form fields next to a 5 MiB image.
const maxFormBytes = MaxImageSize + 1<<20

// SessionKeys identifies the browser session a request belongs to.
type SessionKeys interface {
	Key(w http.ResponseWriter, r *http.Request) string
}

// Handler handles HTTP requests for catalog operations.
type Handler struct {
	store   *Store
	views   *Views
	inquiry *Inquiry
	keys    SessionKeys
}

// NewHandler creates a new catalog handler.
func NewHandler(store *Store, views *Views, inquiry *Inquiry, keys SessionKeys) *Handler {
	return &Handler{store: store, views: views, inquiry: inquiry, keys: keys}
}

// Browse handles GET /api/catalog/products
func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view := h.views.Browse(h.keys.Key(w, r))

	err := view.SetFilters(r.Context(), BrowseFilters{
		CategoryID: q.Get("category"),
		Fabric:     q.Get("fabric"),
		Color:      q.Get("color"),
	})
	if err != nil && !errors.Is(err, ErrStale) {
		logger.Debugf("Browse: %v", err)
	}
	view.SetSearch(q.Get("q"))
	_ = view.LoadCategories(r.Context())

	writeJSON(w, http.StatusOK, view.Snapshot())
}

// Categories handles GET /api/catalog/categories
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		logger.Errorf("Categories: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// Options handles GET /api/catalog/options
func (h *Handler) Options(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fabrics":   FabricOptions,
		"colors":    ColorOptions,
		"page_size": BrowsePageSize,
	})
}

// ProductInquiry handles GET /api/catalog/products/{id}/inquiry
func (h *Handler) ProductInquiry(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetProduct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		logger.Debugf("ProductInquiry: %v", err)
		writeError(w, err)
		return
	}
	if !p.IsActive {
		writeError(w, &NotFoundError{ID: p.ID})
		return
	}
	http.Redirect(w, r, h.inquiry.ProductLink(*p), http.StatusFound)
}

// BulkInquiry handles GET /api/catalog/inquiry
func (h *Handler) BulkInquiry(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.inquiry.BulkOrderLink(), http.StatusFound)
}

type adminListResponse struct {
	Products   []Product  `json:"products"`
	Total      int        `json:"total"`
	Categories []Category `json:"categories"`
	Search     string     `json:"search"`
	Notice     *Notice    `json:"notification,omitempty"`
}

// AdminList handles GET /api/admin/products (session required)
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	view := h.views.Admin(h.keys.Key(w, r))
	if err := view.Load(r.Context()); err != nil && !errors.Is(err, ErrStale) {
		logger.Debugf("AdminList: %v", err)
	}

	search := r.URL.Query().Get("q")
	all := view.Visible("")
	resp := adminListResponse{
		Products:   view.Visible(search),
		Total:      len(all),
		Categories: view.Categories(),
		Search:     search,
	}
	if n, ok := view.Notifier().Current(); ok {
		resp.Notice = &n
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateProduct handles POST /api/admin/products (session required)
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "")
}

// UpdateProduct handles PUT /api/admin/products/{id} (session required)
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, mux.Vars(r)["id"])
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request, editingID string) {
	view := h.views.Admin(h.keys.Key(w, r))

	raw, img, err := readProductForm(w, r)
	if err != nil {
		view.Form().keep(raw)
		writeError(w, view.Form().fail(err))
		return
	}

	product, err := view.Save(r.Context(), raw, editingID, img)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if editingID == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, product)
}

// DeleteProduct handles DELETE /api/admin/products/{id}?confirm=true (session required)
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	view := h.views.Admin(h.keys.Key(w, r))
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))

	if err := view.Delete(r.Context(), mux.Vars(r)["id"], confirmed); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Draft handles GET /api/admin/form: the input kept from a failed submission.
func (h *Handler) Draft(w http.ResponseWriter, r *http.Request) {
	view := h.views.Admin(h.keys.Key(w, r))
	draft, ok := view.Form().Draft()
	writeJSON(w, http.StatusOK, map[string]interface{}{"pending": ok, "form": draft})
}

// Notification handles GET /api/admin/notification
func (h *Handler) Notification(w http.ResponseWriter, r *http.Request) {
	view := h.views.Admin(h.keys.Key(w, r))
	n, ok := view.Notifier().Current()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// DismissNotification handles DELETE /api/admin/notification
func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	h.views.Admin(h.keys.Key(w, r)).Notifier().Dismiss()
	w.WriteHeader(http.StatusNoContent)
}

func readProductForm(w http.ResponseWriter, r *http.Request) (RawForm, *ImageFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	err := r.ParseMultipartForm(maxFormBytes)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			return RawForm{}, nil, invalid("image", "image size should be less than 5MB")
		}
		return RawForm{}, nil, invalid("", "unable to parse form")
	}

	raw := RawForm{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		CategoryID:  r.FormValue("category_id"),
		BasePrice:   r.FormValue("base_price"),
		MOQ:         firstNonEmpty(r.FormValue("moq"), r.FormValue("min_order_quantity")),
		ImageURL:    r.FormValue("image_url"),
		Fabric:      r.FormValue("fabric"),
		Color:       r.FormValue("color"),
	}
	if v := strings.TrimSpace(r.FormValue("is_active")); v != "" {
		active := v == "on"
		if b, err := strconv.ParseBool(v); err == nil {
			active = b
		}
		raw.IsActive = &active
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return raw, nil, nil
	}
	if err != nil {
		return raw, nil, invalid("image", "unable to read image")
	}
	defer file.Close()

	if header.Size > MaxImageSize {
		return raw, nil, invalid("image", "image size should be less than 5MB")
	}
	data, err := io.ReadAll(io.LimitReader(file, MaxImageSize+1))
	if err != nil {
		return raw, nil, invalid("image", "unable to read image")
	}
	return raw, &ImageFile{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusCode(err), map[string]string{"error": Message(err)})
}
