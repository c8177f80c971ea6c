package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "go-trustshield/internal/errors"
	"go-trustshield/internal/logger"
	"go-trustshield/pkg/models"
)

// maxResponseBytes bounds how much of a response body is read
const maxResponseBytes = 16 << 20

const (
	pathHealth         = "/"
	pathScanURL        = "/api/v1/scan-url"
	pathAnalyze        = "/api/v1/analyze"
	pathScan           = "/api/v1/scan"
	pathAnalyzePayment = "/api/v1/analyze-payment"
	pathOverviewStats  = "/api/v1/overview-stats"
)

// File is a multipart file part
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ScanRequest is the message scan payload
type ScanRequest struct {
	Text string
	File *File
}

// AnalyzeRequest is the document forensics payload
type AnalyzeRequest struct {
	File      *File
	UserQuery string
}

// PaymentRequest is the payment analysis payload
type PaymentRequest struct {
	Amount        string
	Recipient     string
	SourceContext string
	UserQuery     string
	File          *File
}

// Backend is the remote analysis service as seen by the analyzers
type Backend interface {
	Health(ctx context.Context) (models.HealthStatus, error)
	ScanURL(ctx context.Context, target string) ([]byte, error)
	Analyze(ctx context.Context, req AnalyzeRequest) ([]byte, error)
	Scan(ctx context.Context, req ScanRequest) ([]byte, error)
	AnalyzePayment(ctx context.Context, req PaymentRequest) ([]byte, error)
	OverviewStats(ctx context.Context) (models.OverviewStats, error)
}

// Client talks to the analysis service over HTTP. Every call is a single attempt.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logrus.Entry
}

// New creates a client for baseURL. A nil httpClient gets one with the given timeout.
func New(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     logger.WithField("component", "client"),
	}
}

// BaseURL returns the service address requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health reports the service status
func (c *Client) Health(ctx context.Context) (models.HealthStatus, error) {
	var status models.HealthStatus
	body, err := c.do(ctx, http.MethodGet, pathHealth, nil, "")
	if err != nil {
		return status, err
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return status, apperrors.NewMalformedPayloadError("invalid health response", err)
	}
	return status, nil
}

// ScanURL asks the service to audit target; the URL travels as a query parameter
func (c *Client) ScanURL(ctx context.Context, target string) ([]byte, error) {
	q := url.Values{}
	q.Set("url", target)
	return c.do(ctx, http.MethodPost, pathScanURL+"?"+q.Encode(), nil, "")
}

// Analyze submits a document for forensic analysis. user_query is always sent.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) ([]byte, error) {
	form := newForm()
	form.file(req.File)
	form.field("user_query", req.UserQuery, true)
	return c.postForm(ctx, pathAnalyze, form)
}

// Scan submits a message body and/or screenshot
func (c *Client) Scan(ctx context.Context, req ScanRequest) ([]byte, error) {
	form := newForm()
	form.field("text", req.Text, false)
	form.file(req.File)
	return c.postForm(ctx, pathScan, form)
}

// AnalyzePayment submits payment evidence. Empty fields are omitted.
func (c *Client) AnalyzePayment(ctx context.Context, req PaymentRequest) ([]byte, error) {
	form := newForm()
	form.field("amount", req.Amount, false)
	form.field("recipient", req.Recipient, false)
	form.field("source_context", req.SourceContext, false)
	form.field("user_query", req.UserQuery, false)
	form.file(req.File)
	return c.postForm(ctx, pathAnalyzePayment, form)
}

// OverviewStats fetches the dashboard aggregates
func (c *Client) OverviewStats(ctx context.Context) (models.OverviewStats, error) {
	var stats models.OverviewStats
	body, err := c.do(ctx, http.MethodGet, pathOverviewStats, nil, "")
	if err != nil {
		return stats, err
	}
	if err := json.Unmarshal(body, &stats); err != nil {
		return stats, apperrors.NewMalformedPayloadError("invalid overview-stats response", err)
	}
	return stats, nil
}

func (c *Client) postForm(ctx context.Context, path string, f *form) ([]byte, error) {
	body, contentType, err := f.finish()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode multipart form", err)
	}
	return c.do(ctx, http.MethodPost, path, body, contentType)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	endpoint := c.baseURL + path
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid service request", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	fields := logrus.Fields{"method": method, "path": path}
	c.log.WithFields(fields).Debug("Sending service request")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).WithFields(fields).Warn("Service request failed")
		if isTimeout(err) {
			return nil, apperrors.NewTimeoutError("service request timed out", err)
		}
		return nil, apperrors.NewNetworkError("service unreachable", 0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to read service response", resp.StatusCode, err)
	}

	fields["status_code"] = resp.StatusCode
	fields["duration_ms"] = time.Since(start).Milliseconds()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.WithFields(fields).Warn("Service returned non-2xx status")
		return nil, apperrors.NewNetworkError(fmt.Sprintf("%s %s failed", method, path), resp.StatusCode, nil)
	}
	c.log.WithFields(fields).Debug("Service request completed")
	return data, nil
}

// form accumulates a multipart body
type form struct {
	buf *bytes.Buffer
	w   *multipart.Writer
	err error
}

func newForm() *form {
	buf := &bytes.Buffer{}
	return &form{buf: buf, w: multipart.NewWriter(buf)}
}

// field writes name=value; empty values are skipped unless always is set
func (f *form) field(name, value string, always bool) {
	if f.err != nil || (value == "" && !always) {
		return
	}
	f.err = f.w.WriteField(name, value)
}

func (f *form) file(file *File) {
	if f.err != nil || file == nil {
		return
	}
	name := file.Name
	if name == "" {
		name = "upload"
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	h.Set("Content-Type", contentType)
	part, err := f.w.CreatePart(h)
	if err != nil {
		f.err = err
		return
	}
	_, f.err = part.Write(file.Data)
}

func (f *form) finish() (io.Reader, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	if err := f.w.Close(); err != nil {
		return nil, "", err
	}
	return f.buf, f.w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// isTimeout reports whether err is a context deadline or a transport timeout
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
