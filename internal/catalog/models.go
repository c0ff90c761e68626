package catalog

import (
	"time"

	"github.com/mitchellh/mapstructure"
)

// Product is one sellable item.
type Product struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	Slug             string                 `json:"slug"`
	Description      string                 `json:"description"`
	CategoryID       *string                `json:"category_id"`
	CategoryName     string                 `json:"category_name,omitempty"`
	BasePrice        float64                `json:"base_price"`
	MinOrderQuantity int                    `json:"min_order_quantity"`
	Images           []string               `json:"images"`
	IsActive         bool                   `json:"is_active"`
	Specifications   map[string]interface{} `json:"specifications,omitempty"`
	// Details is the decoded fabric and color shown on product cards.
	Details   ProductSpec `json:"details"`
	CreatedAt time.Time   `json:"created_at"`
}

// ImageURL returns the display image, which by convention is the first one.
func (p Product) ImageURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ProductSpec holds the specification keys the storefront filters on.
type ProductSpec struct {
	Fabric string `mapstructure:"fabric" json:"fabric,omitempty"`
	Color  string `mapstructure:"color" json:"color,omitempty"`
}

// Spec decodes the known keys of Specifications. Unknown keys are ignored.
func (p Product) Spec() ProductSpec {
	var spec ProductSpec
	if len(p.Specifications) == 0 {
		return spec
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &spec,
	})
	if err != nil {
		return spec
	}
	_ = dec.Decode(p.Specifications)
	return spec
}

// Category groups products. It is read-only here.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductFilter narrows ListProducts. Empty values and "all" mean no constraint.
type ProductFilter struct {
	OnlyActive bool
	CategoryID string
	Fabric     string
	Color      string
	Limit      int
}

// ProductInput is a normalized write. Slug is only read on create.
type ProductInput struct {
	Name             string
	Slug             string
	Description      string
	CategoryID       *string
	BasePrice        *float64
	MinOrderQuantity int
	Images           []string
	IsActive         bool
	Specifications   map[string]interface{}
}

// Option is one entry of a storefront filter dropdown.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Hex   string `json:"hex,omitempty"`
}

// FabricOptions are the storefront fabric filter choices.
var FabricOptions = []Option{
	{Value: "cotton", Label: "Cotton"},
	{Value: "polyester", Label: "Polyester"},
	{Value: "cotton-blend", Label: "Cotton Blend"},
	{Value: "dri-fit", Label: "Dri-Fit"},
	{Value: "linen", Label: "Linen"},
	{Value: "wool", Label: "Wool"},
}

// ColorOptions are the storefront color filter choices, with swatch colors.
var ColorOptions = []Option{
	{Value: "white", Label: "White", Hex: "#FFFFFF"},
	{Value: "black", Label: "Black", Hex: "#000000"},
	{Value: "navy", Label: "Navy Blue", Hex: "#001F3F"},
	{Value: "blue", Label: "Blue", Hex: "#0074D9"},
	{Value: "red", Label: "Red", Hex: "#FF4136"},
	{Value: "green", Label: "Green", Hex: "#2ECC40"},
	{Value: "gray", Label: "Gray", Hex: "#AAAAAA"},
	{Value: "yellow", Label: "Yellow", Hex: "#FFDC00"},
	{Value: "orange", Label: "Orange", Hex: "#FF851B"},
	{Value: "purple", Label: "Purple", Hex: "#B10DC9"},
	{Value: "pink", Label: "Pink", Hex: "#F012BE"},
	{Value: "brown", Label: "Brown", Hex: "#8B4513"},
}
