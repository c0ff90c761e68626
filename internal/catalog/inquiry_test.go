package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInquiryLinks(t *testing.T) {
	in := NewInquiry("+91 98765-43210")

	assert.Equal(t,
		"https://wa.me/919876543210?text=Hi%2C%20I%27m%20interested%20in%20Polo%20Shirt.%20Can%20you%20provide%20more%20details%3F",
		in.ProductLink(Product{Name: "Polo Shirt"}))

	assert.Equal(t,
		"https://wa.me/919876543210?text=Hi%2C%20I%20want%20to%20place%20a%20bulk%20order%20for%20corporate%20apparel%20from%20LE%20Corporate.",
		in.BulkOrderLink())
}

func TestInquiryEscapesName(t *testing.T) {
	in := NewInquiry("15550001111")
	link := in.ProductLink(Product{Name: "Tee & Cap #1"})
	assert.Contains(t, link, "Tee%20%26%20Cap%20%231")
}
