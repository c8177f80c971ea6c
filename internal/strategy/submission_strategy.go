package strategy

import (
	"context"
	"fmt"

	"go-trustshield/internal/client"
	"go-trustshield/internal/intake"
	"go-trustshield/pkg/models"
)

// SubmissionStrategy turns a pending request into the one outbound call of its analyzer
type SubmissionStrategy interface {
	Submit(ctx context.Context, backend client.Backend, p intake.PendingRequest) ([]byte, error)
	GetStrategyName() string
}

// MessageStrategy sends text and/or a screenshot to the scan endpoint
type MessageStrategy struct{}

func (MessageStrategy) Submit(ctx context.Context, backend client.Backend, p intake.PendingRequest) ([]byte, error) {
	return backend.Scan(ctx, client.ScanRequest{Text: p.Text, File: toFile(p.Attachment)})
}

func (MessageStrategy) GetStrategyName() string {
	return "message_scan"
}

// DocumentStrategy sends the document and the operator's question for forensics
type DocumentStrategy struct{}

func (DocumentStrategy) Submit(ctx context.Context, backend client.Backend, p intake.PendingRequest) ([]byte, error) {
	return backend.Analyze(ctx, client.AnalyzeRequest{File: toFile(p.Attachment), UserQuery: p.Query})
}

func (DocumentStrategy) GetStrategyName() string {
	return "document_forensics"
}

// PaymentStrategy sends the structured payment fields and optional evidence
type PaymentStrategy struct{}

func (PaymentStrategy) Submit(ctx context.Context, backend client.Backend, p intake.PendingRequest) ([]byte, error) {
	return backend.AnalyzePayment(ctx, client.PaymentRequest{
		Amount:        p.Amount,
		Recipient:     p.Recipient,
		SourceContext: string(p.SourceContext),
		UserQuery:     p.Query,
		File:          toFile(p.Attachment),
	})
}

func (PaymentStrategy) GetStrategyName() string {
	return "payment_analysis"
}

// URLStrategy asks the service to audit the target URL
type URLStrategy struct{}

func (URLStrategy) Submit(ctx context.Context, backend client.Backend, p intake.PendingRequest) ([]byte, error) {
	return backend.ScanURL(ctx, p.URL)
}

func (URLStrategy) GetStrategyName() string {
	return "url_audit"
}

// For returns the strategy of kind
func For(kind models.Kind) (SubmissionStrategy, error) {
	switch kind {
	case models.KindMessage:
		return MessageStrategy{}, nil
	case models.KindDocument:
		return DocumentStrategy{}, nil
	case models.KindPayment:
		return PaymentStrategy{}, nil
	case models.KindURL:
		return URLStrategy{}, nil
	}
	return nil, fmt.Errorf("no submission strategy for analyzer %q", kind)
}

func toFile(att *intake.Attachment) *client.File {
	if att == nil {
		return nil
	}
	return &client.File{Name: att.Name, ContentType: att.ContentType, Data: att.Data}
}
