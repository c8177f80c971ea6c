package models

import "time"

// ResultSource records whether a result came from the service or from the fixed fallback payload
type ResultSource string

const (
	SourceBackend  ResultSource = "backend"
	SourceFallback ResultSource = "fallback"
)

// CanonicalResult is the normalized verdict/report for one completed scan.
// Exactly one of the per-kind reports is set, matching Kind. It is never
// mutated after the normalizer returns it.
type CanonicalResult struct {
	Kind          Kind         `json:"kind"`
	Verdict       Verdict      `json:"verdict"`
	Treatment     Treatment    `json:"treatment"`
	Source        ResultSource `json:"source"`
	FailureReason string       `json:"failure_reason,omitempty"`
	CompletedAt   time.Time    `json:"completed_at"`

	Message  *MessageReport  `json:"message,omitempty"`
	Document *DocumentReport `json:"document,omitempty"`
	Payment  *PaymentReport  `json:"payment,omitempty"`
	URL      *URLReport      `json:"url,omitempty"`
}

// IsFallback reports whether the result was synthesized after a failed call
func (r *CanonicalResult) IsFallback() bool {
	return r != nil && r.Source == SourceFallback
}

// DisplayVerdict returns the label shown to the operator for this result
func (r *CanonicalResult) DisplayVerdict() string {
	if r == nil {
		return ""
	}
	switch {
	case r.Message != nil:
		return r.Message.Verdict
	case r.Document != nil:
		return r.Document.Label
	case r.Payment != nil:
		return r.Payment.Verdict
	case r.URL != nil:
		return r.URL.Verdict
	}
	return string(r.Verdict)
}

// MessageReport is the Message analyzer's report
type MessageReport struct {
	// Verdict is the display label; a raw MALICIOUS is shown as SCAM
	Verdict          string `json:"verdict"`
	RawVerdict       string `json:"raw_verdict"`
	IsSafe           bool   `json:"is_safe"`
	TrustScore       int    `json:"trust_score"`
	Warning          string `json:"warning"`
	ToneAnalysis     string `json:"tone_analysis"`
	FraudPath        string `json:"fraud_path"`
	Language         string `json:"language"`
	EntitiesDetected int    `json:"entities_detected"`
}

// Document display labels
const (
	LabelAuthentic  = "AUTHENTIC"
	LabelSuspicious = "SUSPICIOUS"
	LabelTampered   = "TAMPERED/FAKE"
)

// DocumentReport is the Document analyzer's report
type DocumentReport struct {
	RawVerdict     string `json:"raw_verdict"`
	Label          string `json:"label"`
	IsTampered     bool   `json:"is_tampered"`
	InputQuery     string `json:"input_query,omitempty"`
	Evidence       string `json:"evidence"`
	MetadataStatus string `json:"metadata_status,omitempty"`
	MetadataAlert  bool   `json:"metadata_alert"`
	MalwareScan    string `json:"malware_scan,omitempty"`

	// Artifact pair consumed by the aligner
	OriginalRef string `json:"original_ref,omitempty"`
	HeatmapRef  string `json:"heatmap_ref,omitempty"`
}

// HasHeatmap reports whether the service produced a heatmap
func (d *DocumentReport) HasHeatmap() bool {
	return d != nil && d.HeatmapRef != ""
}

// Finding is one forensic flag with its clean/problem classification
type Finding struct {
	Text  string `json:"text"`
	Clean bool   `json:"clean"`
}

// PaymentReport is the Payment analyzer's report
type PaymentReport struct {
	Verdict          string    `json:"verdict"`
	TrustScore       *int      `json:"trust_score,omitempty"`
	ExplanationLines []string  `json:"explanation_lines"`
	Findings         []Finding `json:"findings"`
	LogicFlaws       []string  `json:"logic_flaws"`
}

// LegitimacyCheck is one named URL check and whether it passed
type LegitimacyCheck struct {
	Check  string `json:"check"`
	Status string `json:"status"`
	Passed bool   `json:"passed"`
}

// URLReport is the URL analyzer's report
type URLReport struct {
	TargetURL        string            `json:"target_url,omitempty"`
	RegisteredDomain string            `json:"registered_domain,omitempty"`
	RiskScore        int               `json:"risk_score"`
	Verdict          string            `json:"verdict"`
	CreationYear     string            `json:"creation_year"`
	Organization     string            `json:"organization"`
	LayoutType       string            `json:"layout_type"`
	ScreenshotURL    string            `json:"screenshot_url,omitempty"`
	RedFlags         []string          `json:"red_flags"`
	LegitimacyChecks []LegitimacyCheck `json:"legitimacy_checks"`
	AuditReport      string            `json:"audit_report"`
}
