package catalog

import (
	"fmt"
	"net/url"
	"strings"
)

const bulkOrderMessage = "Hi, I want to place a bulk order for corporate apparel from LE Corporate."

// Inquiry builds WhatsApp click-to-chat links. Orders are placed in the chat;
// nothing here touches the store.
type Inquiry struct {
	number string
}

// NewInquiry creates a link builder for the given international number.
func NewInquiry(number string) *Inquiry {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	return &Inquiry{number: digits}
}

// ProductLink asks about one product.
func (i *Inquiry) ProductLink(p Product) string {
	return i.link(fmt.Sprintf("Hi, I'm interested in %s. Can you provide more details?", p.Name))
}

// BulkOrderLink is the general bulk-order enquiry.
func (i *Inquiry) BulkOrderLink() string {
	return i.link(bulkOrderMessage)
}

func (i *Inquiry) link(text string) string {
	return "https://wa.me/" + i.number + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
