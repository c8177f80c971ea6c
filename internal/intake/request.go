package intake

import (
	"strings"

	"go-trustshield/pkg/models"
)

// minQueryLength is the free-form query length above which a payment request is submittable
const minQueryLength = 5

// SourceContext is where a payment request reached the user
type SourceContext string

const (
	SourceUnknown  SourceContext = "unknown"
	SourceFriend   SourceContext = "friend"
	SourceMerchant SourceContext = "merchant"
	SourceOLX      SourceContext = "olx"
	SourceTelegram SourceContext = "telegram"
	SourceSMS      SourceContext = "sms"
)

// SourceContexts maps each source to its operator-facing label
var SourceContexts = map[SourceContext]string{
	SourceUnknown:  "Select Source...",
	SourceFriend:   "Friend / Family (Personal)",
	SourceMerchant: "Shop / Official Merchant",
	SourceOLX:      "OLX / Facebook Marketplace",
	SourceTelegram: "Telegram / WhatsApp (Stranger)",
	SourceSMS:      "SMS / Email Link",
}

// PendingRequest is the not-yet-submitted input of one analyzer
type PendingRequest struct {
	Text          string        `json:"text,omitempty"`
	Attachment    *Attachment   `json:"attachment,omitempty"`
	Amount        string        `json:"amount,omitempty"`
	Recipient     string        `json:"recipient,omitempty"`
	SourceContext SourceContext `json:"source_context,omitempty"`
	Query         string        `json:"user_query,omitempty"`
	URL           string        `json:"url,omitempty"`
}

// Submittable reports whether the request carries enough for kind
func (p PendingRequest) Submittable(kind models.Kind) bool {
	hasFile := p.Attachment != nil
	switch kind {
	case models.KindMessage:
		return hasFile || strings.TrimSpace(p.Text) != ""
	case models.KindDocument:
		return hasFile
	case models.KindPayment:
		return hasFile ||
			(strings.TrimSpace(p.Recipient) != "" && strings.TrimSpace(p.Amount) != "") ||
			len(p.Query) > minQueryLength
	case models.KindURL:
		return strings.TrimSpace(p.URL) != ""
	}
	return false
}
