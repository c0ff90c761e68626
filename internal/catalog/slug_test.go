package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Premium Corporate T-Shirt!!": "premium-corporate-t-shirt",
		"Polo Shirt":                  "polo-shirt",
		"  --Hoodie  (XL) -- ":        "hoodie-xl",
		"Dri-Fit_Polo 2024":           "dri-fit-polo-2024",
		"Café Uniform":                "caf-uniform",
		"!!!":                         "",
		"":                            "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "Slugify(%q)", in)
	}
}

func TestSlugifyIdempotent(t *testing.T) {
	for _, in := range []string{"Premium Corporate T-Shirt!!", "a--b", "-x-", "ÀBC def", "123 Go"} {
		once := Slugify(in)
		assert.Equal(t, once, Slugify(once), "Slugify not idempotent for %q", in)
	}
}
