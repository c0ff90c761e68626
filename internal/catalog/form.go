package catalog

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/shopspring/decimal"

	"apparel-catalog/internal/logger"
)

// MaxImageSize is the largest accepted product image.
const MaxImageSize = 5 << 20

// RawForm is the admin form exactly as submitted.
type RawForm struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CategoryID  string `json:"category_id"`
	BasePrice   string `json:"base_price"`
	MOQ         string `json:"moq"`
	ImageURL    string `json:"image_url"`
	Fabric      string `json:"fabric"`
	Color       string `json:"color"`
	// IsActive nil keeps the current state on edit and means active on create.
	IsActive *bool `json:"is_active,omitempty"`
}

// ImageFile is a newly attached image.
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Type is the image media type: sniffed from the bytes, else taken from the
// file extension, else the declared type. It is "" when none says image.
func (img *ImageFile) Type() string {
	return imageType(img.Data, img.Name, img.ContentType)
}

func imageType(data []byte, name, declared string) string {
	if m := mimetype.Detect(data); strings.HasPrefix(m.String(), "image/") {
		return m.String()
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); strings.HasPrefix(byExt, "image/") {
		return byExt
	}
	if mt, _, err := mime.ParseMediaType(declared); err == nil && strings.HasPrefix(mt, "image/") {
		return mt
	}
	return ""
}

// CheckImage rejects oversized or non-image attachments.
func CheckImage(img *ImageFile) error {
	if img == nil {
		return nil
	}
	if len(img.Data) > MaxImageSize {
		return invalid("image", "image size should be less than 5MB")
	}
	if len(img.Data) == 0 {
		return invalid("image", "image is empty")
	}
	if img.Type() == "" {
		return invalid("image", "file must be an image")
	}
	return nil
}

// ParseBasePrice reads a non-negative price, rounded to two places.
func ParseBasePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, invalid("base_price", "is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, invalid("base_price", fmt.Sprintf("%q is not a number", s))
	}
	if d.IsNegative() {
		return 0, invalid("base_price", "must not be negative")
	}
	return d.Round(2).InexactFloat64(), nil
}

// ParseMOQ reads a minimum order quantity. Anything that is not a positive
// integer becomes 1.
func ParseMOQ(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// FormController turns admin form submissions into store writes.
type FormController struct {
	store *Store
	notes *Notifier

	mu    sync.Mutex
	draft *RawForm
}

// NewFormController creates a form controller.
func NewFormController(store *Store, notes *Notifier) *FormController {
	return &FormController{store: store, notes: notes}
}

// Submit validates raw, uploads img when present, then creates a product or,
// with editing set, updates it. Nothing is written when validation or the
// upload fails. On failure the submitted input is kept as the draft.
func (fc *FormController) Submit(ctx context.Context, raw RawForm, editing *Product, img *ImageFile) (*Product, error) {
	fc.keep(raw)

	in, err := fc.normalize(raw, editing, img)
	if err != nil {
		return nil, fc.fail(err)
	}

	if img != nil {
		url, err := fc.store.UploadImage(ctx, img.Data, img.Name, img.Type())
		if err != nil {
			return nil, fc.fail(err)
		}
		in.Images = []string{url}
	}

	var saved *Product
	if editing != nil {
		saved, err = fc.store.UpdateProduct(ctx, editing.ID, in)
	} else {
		saved, err = fc.store.CreateProduct(ctx, in)
	}
	if err != nil {
		return nil, fc.fail(err)
	}

	fc.Reset()
	if editing != nil {
		fc.notes.Success("Product updated successfully!")
	} else {
		fc.notes.Success("Product added successfully!")
	}
	return saved, nil
}

// Draft returns the input of the last failed submission.
func (fc *FormController) Draft() (RawForm, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.draft == nil {
		return RawForm{}, false
	}
	return *fc.draft, true
}

// Reset clears the form.
func (fc *FormController) Reset() {
	fc.mu.Lock()
	fc.draft = nil
	fc.mu.Unlock()
}

func (fc *FormController) keep(raw RawForm) {
	fc.mu.Lock()
	fc.draft = &raw
	fc.mu.Unlock()
}

func (fc *FormController) fail(err error) error {
	logger.Warnf("product form: %v", err)
	fc.notes.Error(Message(err))
	return err
}

func (fc *FormController) normalize(raw RawForm, editing *Product, img *ImageFile) (ProductInput, error) {
	if err := CheckImage(img); err != nil {
		return ProductInput{}, err
	}
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return ProductInput{}, invalid("name", "is required")
	}
	price, err := ParseBasePrice(raw.BasePrice)
	if err != nil {
		return ProductInput{}, err
	}

	in := ProductInput{
		Name:             name,
		Description:      strings.TrimSpace(raw.Description),
		BasePrice:        &price,
		MinOrderQuantity: ParseMOQ(raw.MOQ),
		IsActive:         true,
		Images:           []string{},
	}
	if c := strings.TrimSpace(raw.CategoryID); c != "" {
		in.CategoryID = &c
	}

	specs := map[string]interface{}{}
	if editing != nil {
		in.Slug = editing.Slug
		in.IsActive = editing.IsActive
		for k, v := range editing.Specifications {
			specs[k] = v
		}
		if u := editing.ImageURL(); u != "" {
			in.Images = []string{u}
		}
	} else {
		in.Slug = Slugify(name)
		if in.Slug == "" {
			return ProductInput{}, invalid("name", "must contain at least one letter or digit")
		}
	}
	if raw.IsActive != nil {
		in.IsActive = *raw.IsActive
	}
	if u := strings.TrimSpace(raw.ImageURL); u != "" {
		in.Images = []string{u}
	}
	setSpec(specs, "fabric", raw.Fabric)
	setSpec(specs, "color", raw.Color)
	in.Specifications = specs
	return in, nil
}

func setSpec(specs map[string]interface{}, key, value string) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "":
	case "all", "none":
		delete(specs, key)
	default:
		specs[key] = value
	}
}
