package intake

import (
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"go-trustshield/internal/logger"
	"go-trustshield/internal/storage"
	"go-trustshield/pkg/models"
	"go-trustshield/pkg/validation"
)

// Collector accumulates the input of one analyzer. Replacing or clearing the
// attachment, or clearing everything, fires the reset hook so the owner drops
// any result computed for the previous input.
type Collector struct {
	mu        sync.Mutex
	kind      models.Kind
	pending   PendingRequest
	previews  *storage.PreviewStore
	previewer Previewer
	maxSize   int64
	onReset   func()
}

// CollectorOption configures a Collector
type CollectorOption func(*Collector)

// WithPreviewer enables text extraction for image attachments
func WithPreviewer(p Previewer) CollectorOption {
	return func(c *Collector) { c.previewer = p }
}

// WithMaxSize overrides the attachment size limit
func WithMaxSize(n int64) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

func NewCollector(kind models.Kind, previews *storage.PreviewStore, opts ...CollectorOption) *Collector {
	c := &Collector{
		kind:     kind,
		previews: previews,
		maxSize:  20 << 20,
		pending:  PendingRequest{SourceContext: SourceUnknown},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnReset registers the hook fired when the input is replaced or cleared
func (c *Collector) OnReset(fn func()) {
	c.mu.Lock()
	c.onReset = fn
	c.mu.Unlock()
}

// Accept reads a file, classifies it and makes it the pending attachment
func (c *Collector) Accept(ctx context.Context, name, contentType string, r io.Reader) (Category, error) {
	att, err := ReadAttachment(name, contentType, r, c.maxSize)
	if err != nil {
		return "", err
	}

	if att.Category == CategoryImage && c.previewer != nil {
		text, err := c.previewer.Preview(ctx, att.Data)
		if err != nil {
			logger.WithError(err).WithField("attachment", name).Warn("Image text preview failed")
		} else {
			att.TextPreview = text
		}
	}

	c.SetAttachment(att)
	return att.Category, nil
}

// SetAttachment replaces the pending attachment and resets any existing result
func (c *Collector) SetAttachment(att *Attachment) {
	c.mu.Lock()
	old := c.pending.Attachment
	if att != nil && c.previews != nil && att.PreviewRef == "" {
		att.PreviewRef = c.previews.Put(att.Name, att.Data)
	}
	c.pending.Attachment = att
	if c.kind == models.KindDocument {
		// A new document starts a new question
		c.pending.Query = ""
	}
	hook := c.onReset
	c.mu.Unlock()

	c.release(old)
	logger.WithFields(logrus.Fields{
		"analyzer": c.kind,
		"category": categoryOf(att),
	}).Debug("Attachment replaced")
	if hook != nil {
		hook()
	}
}

// ClearAttachment drops the attachment and resets any existing result
func (c *Collector) ClearAttachment() {
	c.SetAttachment(nil)
}

// SetText sets the free text body
func (c *Collector) SetText(text string) {
	c.mu.Lock()
	c.pending.Text = text
	c.mu.Unlock()
}

// SetQuery sets the free-form concern/query
func (c *Collector) SetQuery(q string) {
	c.mu.Lock()
	c.pending.Query = q
	c.mu.Unlock()
}

// SetPayment sets the structured payment fields
func (c *Collector) SetPayment(amount, recipient string, source SourceContext) {
	c.mu.Lock()
	c.pending.Amount = amount
	c.pending.Recipient = recipient
	if source != "" {
		c.pending.SourceContext = source
	}
	c.mu.Unlock()
}

// SetURL sets the scan target, adding https:// when no scheme was typed
func (c *Collector) SetURL(raw string) {
	c.mu.Lock()
	c.pending.URL = validation.NormalizeTarget(raw)
	c.mu.Unlock()
}

// Pending returns a copy of the pending request
func (c *Collector) Pending() PendingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Submittable reports whether the pending request can be submitted
func (c *Collector) Submittable() bool {
	return c.Pending().Submittable(c.kind)
}

// Clear resets every field, releases the attachment preview and fires the reset hook
func (c *Collector) Clear() {
	c.mu.Lock()
	old := c.pending.Attachment
	c.pending = PendingRequest{SourceContext: SourceUnknown}
	hook := c.onReset
	c.mu.Unlock()

	c.release(old)
	if hook != nil {
		hook()
	}
}

func (c *Collector) release(att *Attachment) {
	if att != nil && att.PreviewRef != "" && c.previews != nil {
		c.previews.Release(att.PreviewRef)
	}
}

func categoryOf(att *Attachment) Category {
	if att == nil {
		return ""
	}
	return att.Category
}
