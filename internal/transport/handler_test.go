package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"go-trustshield/internal/aligner"
	"go-trustshield/internal/analyzer"
	"go-trustshield/internal/client"
	"go-trustshield/internal/config"
	"go-trustshield/internal/intake"
	"go-trustshield/internal/observer"
	"go-trustshield/internal/storage"
	"go-trustshield/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeService mimics the analysis service. Scan blocks on gate when set.
type fakeService struct {
	gate     chan struct{}
	overview int
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"ok"}`)
	})
	mux.HandleFunc("/api/v1/scan", func(w http.ResponseWriter, r *http.Request) {
		if f.gate != nil {
			<-f.gate
		}
		io.WriteString(w, `{"verdict":"MALICIOUS","is_safe":false,"explanation":"Asks for an OTP."}`)
	})
	mux.HandleFunc("/api/v1/analyze", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"verdict":"LEGIT","is_tampered":false,"forensics":{"metadata_status":"Clean (No editor signatures)"}}`)
	})
	mux.HandleFunc("/api/v1/overview-stats", func(w http.ResponseWriter, r *http.Request) {
		if f.overview != 0 {
			w.WriteHeader(f.overview)
			return
		}
		io.WriteString(w, `{"total_scans":10,"threats_detected":3,"safe_scans":5,"pie_data":[5,2,3],"recent_activity":[]}`)
	})
	return mux
}

type console struct {
	handler  http.Handler
	registry *analyzer.Registry
	hub      *EventHub
	metrics  *observer.MetricsObserver
}

func newConsole(t *testing.T, backendURL string) *console {
	t.Helper()
	cfg := &config.Config{
		MaxRequestBodySize: 25 << 20,
		RequestTimeout:     5 * time.Second,
		ContainerWidth:     800,
	}

	backend := client.New(backendURL, 5*time.Second, nil)
	previews := storage.NewPreviewStore()
	al := aligner.New(storage.NewRouter(previews, nil, nil), cfg.ContainerWidth)

	pub := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	hub := NewEventHub()
	pub.Subscribe(metrics)
	pub.Subscribe(hub)

	var analyzers []*analyzer.Analyzer
	for _, kind := range models.Kinds {
		col := intake.NewCollector(kind, previews)
		opts := analyzer.DefaultOptions(kind).WithStageInterval(time.Millisecond)
		analyzers = append(analyzers, analyzer.New(kind, backend, col, pub, al, opts))
	}
	registry, err := analyzer.NewRegistry(analyzers...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	return &console{
		handler:  NewHandler(registry, backend, metrics, hub, cfg),
		registry: registry,
		hub:      hub,
		metrics:  metrics,
	}
}

func (c *console) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func (c *console) wait(t *testing.T, kind models.Kind) *analyzer.Analyzer {
	t.Helper()
	a, _ := c.registry.Get(kind)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return a
}

func multipartBody(t *testing.T, fields map[string]string, fileName string, file []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		part.Write(file)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthCheck(t *testing.T) {
	svc := httptest.NewServer((&fakeService{}).handler())
	defer svc.Close()

	c := newConsole(t, svc.URL)
	rec := c.do(t, http.MethodGet, "/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var body map[string]string
	decodeJSON(t, rec, &body)
	if body["status"] != "available" || body["backend"] != "ok" {
		t.Errorf("Unexpected health body %v", body)
	}

	down := newConsole(t, "http://127.0.0.1:1")
	rec = down.do(t, http.MethodGet, "/health", nil, "")
	decodeJSON(t, rec, &body)
	if rec.Code != http.StatusOK || body["backend"] != "unreachable" {
		t.Errorf("Expected console up with unreachable backend, got %d %v", rec.Code, body)
	}
}

func TestOverview(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantAvailable bool
		wantTotal     int
		wantSusp      int
	}{
		{"service answers", 0, true, 10, 2},
		{"service fails", http.StatusInternalServerError, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := httptest.NewServer((&fakeService{overview: tt.status}).handler())
			defer svc.Close()

			rec := newConsole(t, svc.URL).do(t, http.MethodGet, "/api/overview", nil, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", rec.Code)
			}
			var resp OverviewResponse
			decodeJSON(t, rec, &resp)
			if resp.Available != tt.wantAvailable || resp.Stats.TotalScans != tt.wantTotal || resp.SuspiciousScans != tt.wantSusp {
				t.Errorf("Unexpected overview %+v", resp)
			}
			if resp.Stats.RecentActivity == nil {
				t.Error("Expected empty activity list, got null")
			}
		})
	}
}

func TestUnknownAnalyzer(t *testing.T) {
	c := newConsole(t, "http://127.0.0.1:1")
	if rec := c.do(t, http.MethodGet, "/api/analyzers/video", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestMessageFlow(t *testing.T) {
	svc := httptest.NewServer((&fakeService{}).handler())
	defer svc.Close()
	c := newConsole(t, svc.URL)

	rec := c.do(t, http.MethodPost, "/api/analyzers/message/submit", nil, "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422 for empty input, got %d", rec.Code)
	}

	body, ct := multipartBody(t, map[string]string{"text": "Send me your OTP now"}, "", nil)
	rec = c.do(t, http.MethodPost, "/api/analyzers/message/input", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var snap analyzer.Snapshot
	decodeJSON(t, rec, &snap)
	if !snap.Submittable || snap.Pending.Text != "Send me your OTP now" {
		t.Errorf("Unexpected snapshot %+v", snap)
	}

	rec = c.do(t, http.MethodPost, "/api/analyzers/message/submit", nil, "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", rec.Code)
	}
	var submitted SubmitResponse
	decodeJSON(t, rec, &submitted)
	if submitted.SessionID == "" || submitted.Analyzer != models.KindMessage {
		t.Errorf("Unexpected submit response %+v", submitted)
	}

	c.wait(t, models.KindMessage)
	rec = c.do(t, http.MethodGet, "/api/analyzers/message", nil, "")
	decodeJSON(t, rec, &snap)
	if snap.Result == nil || snap.Result.Message.Verdict != "SCAM" || snap.Result.Message.TrustScore != 20 {
		t.Errorf("Expected SCAM/20 result, got %+v", snap.Result)
	}
	if snap.Session.ID != submitted.SessionID || snap.Session.State != analyzer.StateCompleted {
		t.Errorf("Unexpected session %+v", snap.Session)
	}

	rec = c.do(t, http.MethodDelete, "/api/analyzers/message", nil, "")
	snap = analyzer.Snapshot{}
	decodeJSON(t, rec, &snap)
	if snap.Result != nil || snap.Pending.Text != "" || snap.Session.State != analyzer.StateIdle {
		t.Errorf("Expected cleared analyzer, got %+v", snap)
	}

	metrics := c.metrics.GetMetrics()
	if metrics["completed_sessions"] != int64(1) || metrics["rejected_submissions"] != int64(1) {
		t.Errorf("Unexpected metrics %v", metrics)
	}
}

func TestSubmitWhileBusy(t *testing.T) {
	fake := &fakeService{gate: make(chan struct{})}
	svc := httptest.NewServer(fake.handler())
	defer svc.Close()
	c := newConsole(t, svc.URL)

	body, ct := multipartBody(t, map[string]string{"text": "hello"}, "", nil)
	c.do(t, http.MethodPost, "/api/analyzers/message/input", body, ct)

	if rec := c.do(t, http.MethodPost, "/api/analyzers/message/submit", nil, ""); rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", rec.Code)
	}
	rec := c.do(t, http.MethodPost, "/api/analyzers/message/submit", nil, "")
	close(fake.gate)
	c.wait(t, models.KindMessage)

	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 while busy, got %d", rec.Code)
	}
}

func TestPaymentInput(t *testing.T) {
	c := newConsole(t, "http://127.0.0.1:1")

	body, ct := multipartBody(t, map[string]string{"amount": "499", "recipient": "shop@upi", "source_context": "merchant"}, "", nil)
	rec := c.do(t, http.MethodPost, "/api/analyzers/payment/input", body, ct)
	var snap analyzer.Snapshot
	decodeJSON(t, rec, &snap)
	if !snap.Submittable || snap.Pending.SourceContext != intake.SourceMerchant {
		t.Errorf("Unexpected payment snapshot %+v", snap.Pending)
	}

	body, ct = multipartBody(t, map[string]string{"source_context": "carrier pigeon"}, "", nil)
	if rec := c.do(t, http.MethodPost, "/api/analyzers/payment/input", body, ct); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown source context, got %d", rec.Code)
	}
}

func TestURLInput(t *testing.T) {
	c := newConsole(t, "http://127.0.0.1:1")

	body, ct := multipartBody(t, map[string]string{"url": " example.com "}, "", nil)
	rec := c.do(t, http.MethodPost, "/api/analyzers/url/input", body, ct)
	var snap analyzer.Snapshot
	decodeJSON(t, rec, &snap)
	if !snap.Submittable || snap.Pending.URL != "https://example.com" {
		t.Errorf("Expected normalized target, got %+v", snap.Pending)
	}

	body, ct = multipartBody(t, map[string]string{"url": "ftp://files.example.com"}, "", nil)
	if rec := c.do(t, http.MethodPost, "/api/analyzers/url/input", body, ct); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-web target, got %d", rec.Code)
	}
	a, _ := c.registry.Get(models.KindURL)
	if got := a.Collector().Pending().URL; got != "https://example.com" {
		t.Errorf("Expected rejected input to keep the previous target, got %q", got)
	}

	body, ct = multipartBody(t, map[string]string{"url": ""}, "", nil)
	c.do(t, http.MethodPost, "/api/analyzers/url/input", body, ct)
	if got := a.Collector().Pending().URL; got != "" {
		t.Errorf("Expected blank url to clear the target, got %q", got)
	}
}

func TestDocumentRender(t *testing.T) {
	svc := httptest.NewServer((&fakeService{}).handler())
	defer svc.Close()
	c := newConsole(t, svc.URL)

	if rec := c.do(t, http.MethodGet, "/api/analyzers/document/render", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 before any result, got %d", rec.Code)
	}

	body, ct := multipartBody(t, map[string]string{"user_query": "was the date changed?"}, "payslip.png", pngBytes(t, 2000, 1000))
	rec := c.do(t, http.MethodPost, "/api/analyzers/document/input", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var snap analyzer.Snapshot
	decodeJSON(t, rec, &snap)
	if snap.Pending.Query != "was the date changed?" || snap.Pending.Attachment == nil {
		t.Errorf("Expected query kept alongside the new document, got %+v", snap.Pending)
	}

	if rec := c.do(t, http.MethodPost, "/api/analyzers/document/submit", nil, ""); rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", rec.Code)
	}
	c.wait(t, models.KindDocument)

	rec = c.do(t, http.MethodPut, "/api/analyzers/document/view", strings.NewReader(`{"view":"heatmap"}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = c.do(t, http.MethodGet, "/api/analyzers/document/render?width=500", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "image/png" || rec.Header().Get("X-Shown-View") != "original" {
		t.Errorf("Unexpected headers %v", rec.Header())
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decode rendering: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 500 || b.Dy() != 250 {
		t.Errorf("Expected 500x250 rendering, got %dx%d", b.Dx(), b.Dy())
	}

	if rec := c.do(t, http.MethodGet, "/api/analyzers/document/render?width=-3", nil, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad width, got %d", rec.Code)
	}
}

func TestSetView_Validation(t *testing.T) {
	c := newConsole(t, "http://127.0.0.1:1")

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown view", "/api/analyzers/document/view", `{"view":"xray"}`, http.StatusBadRequest},
		{"non-document analyzer", "/api/analyzers/url/view", `{"view":"heatmap"}`, http.StatusBadRequest},
		{"document original", "/api/analyzers/document/view", `{"view":"original"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.do(t, http.MethodPut, tt.path, strings.NewReader(tt.body), "application/json")
			if rec.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestEventStream(t *testing.T) {
	svc := httptest.NewServer((&fakeService{}).handler())
	defer svc.Close()
	c := newConsole(t, svc.URL)

	srv := httptest.NewServer(c.handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?analyzer=message"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for c.hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	// Events of other analyzers are filtered out
	c.do(t, http.MethodDelete, "/api/analyzers/url", nil, "")

	a, _ := c.registry.Get(models.KindMessage)
	a.Collector().SetText("Send me your OTP now")
	if _, err := a.Submit(context.Background()); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first observer.SessionEvent
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if first.EventType != observer.SessionStarted || first.Analyzer != models.KindMessage {
		t.Errorf("Expected message session_started first, got %+v", first)
	}

	for {
		var ev observer.SessionEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		if ev.EventType == observer.SessionCompleted {
			if ev.Verdict != "SCAM" {
				t.Errorf("Expected SCAM verdict in stream, got %q", ev.Verdict)
			}
			break
		}
	}
	c.wait(t, models.KindMessage)
}

func TestEventStream_BadFilter(t *testing.T) {
	c := newConsole(t, "http://127.0.0.1:1")
	if rec := c.do(t, http.MethodGet, "/ws?analyzer=video", nil, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestDetermineStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{context.Canceled, http.StatusTooManyRequests},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := determineStatusCode(tt.err); got != tt.want {
			t.Errorf("determineStatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
