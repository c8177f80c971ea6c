package normalize

import (
	"reflect"
	"testing"

	apperrors "go-trustshield/internal/errors"
	"go-trustshield/pkg/models"
)

func mustNormalize(t *testing.T, kind models.Kind, raw string, in Input) *models.CanonicalResult {
	t.Helper()
	result, err := Normalize(kind, []byte(raw), in)
	if err != nil {
		t.Fatalf("Normalize(%s): %v", kind, err)
	}
	return result
}

func TestMessage_ScamRelabelAndTrust(t *testing.T) {
	raw := `{"verdict":"MALICIOUS","is_safe":false,"explanation":"Asks for a one-time password.","fraud_category":"OTP phishing"}`
	result := mustNormalize(t, models.KindMessage, raw, Input{})

	m := result.Message
	if m == nil {
		t.Fatal("Expected message report")
	}
	if m.Verdict != "SCAM" || m.RawVerdict != "MALICIOUS" {
		t.Errorf("Expected SCAM relabel, got %q (raw %q)", m.Verdict, m.RawVerdict)
	}
	if m.TrustScore != 20 {
		t.Errorf("Expected trust 20, got %d", m.TrustScore)
	}
	if m.FraudPath != "OTP phishing" {
		t.Errorf("Unexpected fraud path %q", m.FraudPath)
	}
	if result.Verdict != models.VerdictMalicious || result.Treatment != models.TreatmentDestructive {
		t.Errorf("Unexpected canonical verdict %s/%s", result.Verdict, result.Treatment)
	}
	if result.DisplayVerdict() != "SCAM" {
		t.Errorf("Expected display verdict SCAM, got %s", result.DisplayVerdict())
	}
}

func TestMessage_VerdictPassThroughAndTrustValues(t *testing.T) {
	tests := []struct {
		raw         string
		wantVerdict string
		wantTrust   int
	}{
		{`{"verdict":"SAFE","is_safe":true}`, "SAFE", 95},
		{`{"verdict":"SPAM","is_safe":false}`, "SPAM", 20},
		{`{"verdict":"malicious","is_safe":false}`, "malicious", 20},
		{`{"verdict":"SUSPICIOUS"}`, "SUSPICIOUS", 20},
		{`{}`, "UNKNOWN", 20},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			m := mustNormalize(t, models.KindMessage, tt.raw, Input{}).Message
			if m.Verdict != tt.wantVerdict {
				t.Errorf("Verdict = %q, want %q", m.Verdict, tt.wantVerdict)
			}
			if m.TrustScore != tt.wantTrust {
				t.Errorf("TrustScore = %d, want %d", m.TrustScore, tt.wantTrust)
			}
			if m.Warning == "" || m.ToneAnalysis != "AI Analyzed" || m.Language != "English" {
				t.Errorf("Expected defaulted report fields, got %+v", m)
			}
		})
	}
}

func TestDocumentLabel_DefaultDeny(t *testing.T) {
	tests := map[string]string{
		"SAFE":         models.LabelAuthentic,
		"legit":        models.LabelAuthentic,
		"Real":         models.LabelAuthentic,
		"NORMAL":       models.LabelAuthentic,
		"SUSPICIOUS":   models.LabelSuspicious,
		"caution":      models.LabelSuspicious,
		"High Risk":    models.LabelSuspicious,
		"INCONCLUSIVE": models.LabelSuspicious,
		"TAMPERED":     models.LabelTampered,
		"MALICIOUS":    models.LabelTampered,
		"WEIRD_VALUE":  models.LabelTampered,
		"ERROR":        models.LabelTampered,
		"":             models.LabelTampered,
		" SAFE":        models.LabelTampered,
	}

	for raw, want := range tests {
		if got := DocumentLabel(raw); got != want {
			t.Errorf("DocumentLabel(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestDocument_Report(t *testing.T) {
	raw := `{
		"verdict": "suspicious",
		"is_tampered": true,
		"forensics": {"ela_heatmap": "http://svc/static/ela_1.png", "metadata_status": "CRITICAL: Photoshop", "malware_scan": "Clean"},
		"ai_analysis": {"reasoning": "Font mismatch in the amount field."}
	}`
	result := mustNormalize(t, models.KindDocument, raw, Input{OriginalRef: "preview://abc/slip.png", Query: "is the amount edited?"})

	d := result.Document
	if d.Label != models.LabelSuspicious || result.Treatment != models.TreatmentWarning {
		t.Errorf("Unexpected label %s / %s", d.Label, result.Treatment)
	}
	if d.Evidence != "Font mismatch in the amount field." {
		t.Errorf("Expected reasoning fallback, got %q", d.Evidence)
	}
	if !d.HasHeatmap() || d.HeatmapRef != "http://svc/static/ela_1.png" {
		t.Errorf("Unexpected heatmap %q", d.HeatmapRef)
	}
	if d.OriginalRef != "preview://abc/slip.png" || d.InputQuery != "is the amount edited?" {
		t.Errorf("Expected submission context echoed, got %+v", d)
	}
	if !d.MetadataAlert {
		t.Error("Expected metadata alert")
	}
}

func TestDocument_MissingFieldsDegrade(t *testing.T) {
	raw := `{"verdict":"WEIRD_VALUE","forensics":{"ela_heatmap":null,"metadata_status":"Clean (No editor signatures)"}}`
	result := mustNormalize(t, models.KindDocument, raw, Input{OriginalRef: "preview://x/a.png"})

	d := result.Document
	if d.Label != models.LabelTampered {
		t.Errorf("Expected TAMPERED/FAKE, got %s", d.Label)
	}
	if result.Verdict != models.VerdictUnknown {
		t.Errorf("Expected UNKNOWN canonical verdict, got %s", result.Verdict)
	}
	if d.Evidence != DefaultEvidence {
		t.Errorf("Expected default evidence, got %q", d.Evidence)
	}
	if d.HasHeatmap() {
		t.Error("Expected no heatmap")
	}
	if d.MetadataAlert {
		t.Error("Expected no alert for clean metadata")
	}
}

func TestPayment_Report(t *testing.T) {
	raw := `{"data":{
		"trust_score": 34,
		"verdict": "SUSPICIOUS",
		"explanation": "Line one\n\n  • Bullet two  \r\n\n",
		"forensic_flags": ["No editing detected", "Font mismatch in UTR"],
		"logic_flaws": ["Timestamp precedes request"]
	}}`
	result := mustNormalize(t, models.KindPayment, raw, Input{})

	p := result.Payment
	if p.TrustScore == nil || *p.TrustScore != 34 {
		t.Errorf("Unexpected trust score %v", p.TrustScore)
	}
	if !reflect.DeepEqual(p.ExplanationLines, []string{"Line one", "• Bullet two"}) {
		t.Errorf("Unexpected lines %q", p.ExplanationLines)
	}
	want := []models.Finding{{Text: "No editing detected", Clean: true}, {Text: "Font mismatch in UTR", Clean: false}}
	if !reflect.DeepEqual(p.Findings, want) {
		t.Errorf("Unexpected findings %+v", p.Findings)
	}
	if result.Treatment != models.TreatmentDestructive {
		t.Errorf("Expected destructive treatment, got %s", result.Treatment)
	}
}

func TestPayment_TreatmentExactMatch(t *testing.T) {
	tests := []struct {
		verdict string
		want    models.Treatment
	}{
		{"SAFE", models.TreatmentBenign},
		{"REAL", models.TreatmentBenign},
		{"NORMAL", models.TreatmentBenign},
		{"safe", models.TreatmentDestructive},
		{"Transaction Appears Safe", models.TreatmentDestructive},
		{"FAKE", models.TreatmentDestructive},
	}
	for _, tt := range tests {
		raw := `{"data":{"verdict":"` + tt.verdict + `"}}`
		if got := mustNormalize(t, models.KindPayment, raw, Input{}).Treatment; got != tt.want {
			t.Errorf("verdict %q: treatment %s, want %s", tt.verdict, got, tt.want)
		}
	}
}

func TestPayment_MissingData(t *testing.T) {
	result := mustNormalize(t, models.KindPayment, `{"status":"ok"}`, Input{})
	p := result.Payment
	if p.Verdict != "UNKNOWN" || p.TrustScore != nil || len(p.ExplanationLines) != 0 {
		t.Errorf("Expected defaulted payment report, got %+v", p)
	}

	risk := mustNormalize(t, models.KindPayment, `{"data":{"risk_score":85}}`, Input{}).Payment
	if risk.TrustScore == nil || *risk.TrustScore != 15 {
		t.Errorf("Expected trust derived from risk, got %v", risk.TrustScore)
	}
}

func TestURL_Report(t *testing.T) {
	raw := `{
		"screenshot_url": "http://localhost:8000/static/shot.png",
		"visual_ai": {"layout_type": "Login Page"},
		"gemini_analysis": {
			"verdict": "PHISHING",
			"risk_score": 88,
			"red_flags": ["Brand impersonation"],
			"legitimacy_checks": [{"check": "SSL Certificate", "status": "PASS"}, {"check": "Contact Info", "status": "FAIL"}]
		}
	}`
	result := mustNormalize(t, models.KindURL, raw, Input{TargetURL: "https://secure-login.paypa1.co.uk/verify"})

	u := result.URL
	if u.RiskScore != 88 {
		t.Errorf("Expected risk from gemini_analysis, got %d", u.RiskScore)
	}
	if result.Treatment != models.TreatmentDestructive || result.Verdict != models.VerdictMalicious {
		t.Errorf("Unexpected %s/%s", result.Verdict, result.Treatment)
	}
	if u.CreationYear != DefaultCreationYear || u.Organization != DefaultOrganization {
		t.Errorf("Expected domain defaults, got %q %q", u.CreationYear, u.Organization)
	}
	if u.AuditReport != DefaultAuditReport {
		t.Errorf("Expected default audit report, got %q", u.AuditReport)
	}
	if u.RegisteredDomain != "paypa1.co.uk" {
		t.Errorf("Expected registrable domain, got %q", u.RegisteredDomain)
	}
	if len(u.LegitimacyChecks) != 2 || !u.LegitimacyChecks[0].Passed || u.LegitimacyChecks[1].Passed {
		t.Errorf("Unexpected checks %+v", u.LegitimacyChecks)
	}
}

func TestURL_RiskThresholdAndCreationYear(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantYear string
		want     models.Treatment
	}{
		{"49 is benign", `{"risk_score":49,"domain_info":{"creation_date":"2001-07-02T00:00:00"}}`, "2001", models.TreatmentBenign},
		{"50 is destructive", `{"risk_score":50,"domain_info":{"creation_date":["1997-09-15", "1997-09-16"]}}`, "1997", models.TreatmentDestructive},
		{"numeric date", `{"risk_score":0,"domain_info":{"creation_date":20190315}}`, "2019", models.TreatmentBenign},
		{"null date", `{"domain_info":{"creation_date":null}}`, DefaultCreationYear, models.TreatmentBenign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := mustNormalize(t, models.KindURL, tt.raw, Input{})
			if result.Treatment != tt.want {
				t.Errorf("Treatment = %s, want %s", result.Treatment, tt.want)
			}
			if result.URL.CreationYear != tt.wantYear {
				t.Errorf("CreationYear = %q, want %q", result.URL.CreationYear, tt.wantYear)
			}
		})
	}
}

func TestPayment_LooseScores(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantTrust int
		wantSet   bool
	}{
		{"float trust", `{"data":{"trust_score":12.0,"verdict":"SCAM"}}`, 12, true},
		{"fractional trust rounds", `{"data":{"trust_score":87.5,"verdict":"SCAM"}}`, 88, true},
		{"string trust", `{"data":{"trust_score":" 34 ","verdict":"SCAM"}}`, 34, true},
		{"trust clamped", `{"data":{"trust_score":140.2,"verdict":"SCAM"}}`, 100, true},
		{"float risk inverted", `{"data":{"risk_score":"85.0","verdict":"SCAM"}}`, 15, true},
		{"unparseable trust falls to risk", `{"data":{"trust_score":"n/a","risk_score":85,"verdict":"SCAM"}}`, 15, true},
		{"non numeric trust absent", `{"data":{"trust_score":true,"verdict":"SCAM"}}`, 0, false},
		{"object trust absent", `{"data":{"trust_score":{"value":3},"verdict":"SCAM"}}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := mustNormalize(t, models.KindPayment, tt.raw, Input{})
			p := result.Payment
			if p.Verdict != "SCAM" || result.Treatment != models.TreatmentDestructive {
				t.Errorf("Expected SCAM with destructive treatment, got %s/%s", p.Verdict, result.Treatment)
			}
			if !tt.wantSet {
				if p.TrustScore != nil {
					t.Errorf("Expected no trust score, got %d", *p.TrustScore)
				}
				return
			}
			if p.TrustScore == nil || *p.TrustScore != tt.wantTrust {
				t.Errorf("TrustScore = %v, want %d", p.TrustScore, tt.wantTrust)
			}
		})
	}
}

func TestURL_LooseRiskScores(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantRisk      int
		wantTreatment models.Treatment
	}{
		{"float risk", `{"risk_score":87.5,"domain_info":{"org":"Shady Ltd"}}`, 88, models.TreatmentDestructive},
		{"string risk", `{"risk_score":"90"}`, 90, models.TreatmentDestructive},
		{"float below threshold", `{"risk_score":49.4}`, 49, models.TreatmentBenign},
		{"half rounds up", `{"risk_score":49.5}`, 50, models.TreatmentDestructive},
		{"gemini float risk", `{"risk_score":"unknown","gemini_analysis":{"risk_score":70.2}}`, 70, models.TreatmentDestructive},
		{"gemini string risk", `{"risk_score":null,"gemini_analysis":{"risk_score":"12"}}`, 12, models.TreatmentBenign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Normalize(models.KindURL, []byte(tt.raw), Input{TargetURL: "https://example.com"})
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if result.URL.RiskScore != tt.wantRisk {
				t.Errorf("RiskScore = %d, want %d", result.URL.RiskScore, tt.wantRisk)
			}
			if result.Treatment != tt.wantTreatment {
				t.Errorf("Treatment = %s, want %s", result.Treatment, tt.wantTreatment)
			}
			if result.URL.Organization == "Tech Corp Inc." {
				t.Error("Expected backend result, got fallback organization")
			}
		})
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	raw := []byte(`{"verdict":"MALICIOUS","is_safe":false,"explanation":"x"}`)
	a, _ := Normalize(models.KindMessage, raw, Input{})
	b, _ := Normalize(models.KindMessage, raw, Input{})
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Expected identical results, got %+v and %+v", a, b)
	}
}

func TestNormalize_Malformed(t *testing.T) {
	for _, raw := range []string{"", "null", "[]", "<html>", `{"verdict": 12}`, `{"is_safe":`} {
		_, err := Normalize(models.KindMessage, []byte(raw), Input{})
		if !apperrors.IsType(err, apperrors.ErrorTypeMalformedPayload) {
			t.Errorf("Normalize(%q): expected malformed payload error, got %v", raw, err)
		}
	}
}

func TestFallback_PerKind(t *testing.T) {
	for _, kind := range models.Kinds {
		t.Run(string(kind), func(t *testing.T) {
			result, err := Fallback(kind, Input{TargetURL: "https://example.com"}, "service unreachable")
			if err != nil {
				t.Fatalf("Fallback: %v", err)
			}
			if !result.IsFallback() || result.FailureReason != "service unreachable" {
				t.Errorf("Expected fallback source, got %s %q", result.Source, result.FailureReason)
			}
			if result.Treatment != models.TreatmentBenign {
				t.Errorf("Expected benign fallback, got %s", result.Treatment)
			}
			if result.Kind != kind {
				t.Errorf("Expected kind %s, got %s", kind, result.Kind)
			}
		})
	}
}

func TestFallback_URLScenario(t *testing.T) {
	result, err := Fallback(models.KindURL, Input{TargetURL: "https://example.com"}, "connection refused")
	if err != nil {
		t.Fatalf("Fallback: %v", err)
	}
	u := result.URL
	if u.RiskScore != 25 || u.Verdict != "SAFE" || u.Organization != "Tech Corp Inc." {
		t.Errorf("Unexpected fallback report %+v", u)
	}
	if u.CreationYear != "2019" || u.LayoutType != "Corporate Website" || len(u.LegitimacyChecks) != 3 {
		t.Errorf("Unexpected fallback details %+v", u)
	}
	if u.RegisteredDomain != "example.com" {
		t.Errorf("Expected registered domain example.com, got %q", u.RegisteredDomain)
	}
}

func TestFallback_UnknownKind(t *testing.T) {
	if _, err := Fallback(models.Kind("voice"), Input{}, "x"); err == nil {
		t.Error("Expected error for unknown kind")
	}
}
