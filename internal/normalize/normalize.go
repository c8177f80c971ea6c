package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	apperrors "go-trustshield/internal/errors"
	"go-trustshield/pkg/models"
)

// Defaults for absent optional fields
const (
	DefaultMessageExplanation = "No detailed explanation provided."
	DefaultEvidence           = "No detailed reasoning provided."
	DefaultCreationYear       = "Unknown"
	DefaultOrganization       = "Organization Hidden"
	DefaultLayoutType         = "Unclassified"
	DefaultAuditReport        = "No audit report provided."
	DefaultFraudPath          = "None"

	// cleanMetadataStatus is the one metadata status that raises no alert
	cleanMetadataStatus = "Clean (No editor signatures)"

	// urlRiskThreshold is the first risk score rendered as destructive
	urlRiskThreshold = 50

	messageSafeTrust   = 95
	messageUnsafeTrust = 20
)

// findingCleanMarkers flag a payment finding as a passed check
var findingCleanMarkers = []string{"No", "Clean", "Pass", "Consistent"}

// benignPaymentVerdicts select the benign payment treatment, matched exactly
var benignPaymentVerdicts = []string{"SAFE", "REAL", "NORMAL"}

// Input carries the submission context some reports echo back
type Input struct {
	// OriginalRef is the preview reference of the submitted attachment
	OriginalRef string
	// TargetURL is the scanned URL
	TargetURL string
	// Query is the free-form question sent with the request
	Query string
}

// Normalize decodes raw for kind and adapts it into a CanonicalResult with
// Source set to backend. It only fails when raw is not a JSON object; missing
// fields inside a well-formed object are defaulted. The caller stamps
// CompletedAt before publishing the result.
func Normalize(kind models.Kind, raw []byte, in Input) (*models.CanonicalResult, error) {
	if err := requireObject(raw); err != nil {
		return nil, err
	}

	var result *models.CanonicalResult
	switch kind {
	case models.KindMessage:
		var p rawMessage
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		result = adaptMessage(p)
	case models.KindDocument:
		var p rawDocument
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		result = adaptDocument(p, in)
	case models.KindPayment:
		var p rawPayment
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		result = adaptPayment(p)
	case models.KindURL:
		var p rawURL
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		result = adaptURL(p, in)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown analyzer kind %q", kind), nil)
	}

	result.Kind = kind
	result.Source = models.SourceBackend
	return result, nil
}

func requireObject(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return apperrors.NewMalformedPayloadError("response is not a JSON object", nil)
	}
	return nil
}

func decode(raw []byte, v interface{}) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return apperrors.NewMalformedPayloadError("response does not match the expected schema", err)
	}
	return nil
}

func adaptMessage(p rawMessage) *models.CanonicalResult {
	rawVerdict := deref(p.Verdict, string(models.VerdictUnknown))
	display := rawVerdict
	if rawVerdict == string(models.VerdictMalicious) {
		display = "SCAM"
	}

	isSafe := p.IsSafe != nil && *p.IsSafe
	trust := messageUnsafeTrust
	if isSafe {
		trust = messageSafeTrust
	}

	verdict := models.ParseVerdict(rawVerdict)
	treatment := treatmentFor(verdict)
	if isSafe {
		treatment = models.TreatmentBenign
	}

	return &models.CanonicalResult{
		Verdict:   verdict,
		Treatment: treatment,
		Message: &models.MessageReport{
			Verdict:          display,
			RawVerdict:       rawVerdict,
			IsSafe:           isSafe,
			TrustScore:       trust,
			Warning:          deref(p.Explanation, DefaultMessageExplanation),
			ToneAnalysis:     "AI Analyzed",
			FraudPath:        deref(p.FraudCategory, DefaultFraudPath),
			Language:         "English",
			EntitiesDetected: 0,
		},
	}
}

// DocumentLabel buckets a raw document verdict. Unrecognised verdicts get the
// most severe label.
func DocumentLabel(rawVerdict string) string {
	switch {
	case models.IsSafeLabel(rawVerdict):
		return models.LabelAuthentic
	case models.IsSuspiciousLabel(rawVerdict):
		return models.LabelSuspicious
	default:
		return models.LabelTampered
	}
}

func adaptDocument(p rawDocument, in Input) *models.CanonicalResult {
	rawVerdict := strings.ToUpper(deref(p.Verdict, string(models.VerdictUnknown)))
	label := DocumentLabel(rawVerdict)

	report := &models.DocumentReport{
		RawVerdict:  rawVerdict,
		Label:       label,
		IsTampered:  p.IsTampered != nil && *p.IsTampered,
		InputQuery:  deref(p.InputQuery, in.Query),
		Evidence:    DefaultEvidence,
		OriginalRef: in.OriginalRef,
	}
	if p.AIAnalysis != nil {
		report.Evidence = deref(p.AIAnalysis.PrimaryEvidence, deref(p.AIAnalysis.Reasoning, DefaultEvidence))
	}
	if f := p.Forensics; f != nil {
		report.HeatmapRef = deref(f.ELAHeatmap, "")
		report.MetadataStatus = deref(f.MetadataStatus, "")
		report.MalwareScan = deref(f.MalwareScan, "")
		report.MetadataAlert = report.MetadataStatus != "" && report.MetadataStatus != cleanMetadataStatus
	}

	var treatment models.Treatment
	switch label {
	case models.LabelAuthentic:
		treatment = models.TreatmentBenign
	case models.LabelSuspicious:
		treatment = models.TreatmentWarning
	default:
		treatment = models.TreatmentDestructive
	}

	return &models.CanonicalResult{
		Verdict:   models.ParseVerdict(rawVerdict),
		Treatment: treatment,
		Document:  report,
	}
}

func adaptPayment(p rawPayment) *models.CanonicalResult {
	data := p.Data
	if data == nil {
		data = &rawPaymentData{}
	}

	verdict := deref(data.Verdict, "")
	report := &models.PaymentReport{
		Verdict:          deref(data.Verdict, string(models.VerdictUnknown)),
		TrustScore:       paymentTrust(data),
		ExplanationLines: SplitLines(deref(data.Explanation, "")),
		Findings:         make([]models.Finding, 0, len(data.ForensicFlags)),
		LogicFlaws:       nonNil(data.LogicFlaws),
	}
	for _, flag := range data.ForensicFlags {
		report.Findings = append(report.Findings, models.Finding{Text: flag, Clean: IsCleanFinding(flag)})
	}

	treatment := models.TreatmentDestructive
	for _, benign := range benignPaymentVerdicts {
		if verdict == benign {
			treatment = models.TreatmentBenign
			break
		}
	}

	return &models.CanonicalResult{
		Verdict:   models.ParseVerdict(verdict),
		Treatment: treatment,
		Payment:   report,
	}
}

// paymentTrust prefers trust_score and otherwise inverts risk_score
func paymentTrust(d *rawPaymentData) *int {
	if trust, ok := d.TrustScore.get(); ok {
		v := clampScore(trust)
		return &v
	}
	if risk, ok := d.RiskScore.get(); ok {
		v := 100 - clampScore(risk)
		return &v
	}
	return nil
}

// SplitLines splits an explanation on line breaks, trimming each line and
// dropping blank ones
func SplitLines(text string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// IsCleanFinding reports whether a forensic flag reads as a passed check
func IsCleanFinding(flag string) bool {
	for _, marker := range findingCleanMarkers {
		if strings.Contains(flag, marker) {
			return true
		}
	}
	return false
}

func adaptURL(p rawURL, in Input) *models.CanonicalResult {
	gemini := p.GeminiAnalysis
	if gemini == nil {
		gemini = &rawGeminiAnalysis{}
	}

	risk, ok := p.RiskScore.get()
	if !ok {
		risk, _ = gemini.RiskScore.get()
	}
	risk = clampScore(risk)

	rawVerdict := deref(gemini.Verdict, deref(p.Verdict, string(models.VerdictUnknown)))
	report := &models.URLReport{
		TargetURL:        in.TargetURL,
		RegisteredDomain: RegisteredDomain(in.TargetURL),
		RiskScore:        risk,
		Verdict:          rawVerdict,
		CreationYear:     DefaultCreationYear,
		Organization:     DefaultOrganization,
		LayoutType:       DefaultLayoutType,
		ScreenshotURL:    deref(p.ScreenshotURL, ""),
		RedFlags:         nonNil(gemini.RedFlags),
		LegitimacyChecks: make([]models.LegitimacyCheck, 0, len(gemini.LegitimacyChecks)),
		AuditReport:      deref(gemini.AuditReport, DefaultAuditReport),
	}
	if d := p.DomainInfo; d != nil {
		report.CreationYear = creationYear(string(d.CreationDate))
		report.Organization = deref(d.Org, DefaultOrganization)
	}
	if p.VisualAI != nil {
		report.LayoutType = deref(p.VisualAI.LayoutType, DefaultLayoutType)
	}
	for _, c := range gemini.LegitimacyChecks {
		report.LegitimacyChecks = append(report.LegitimacyChecks, models.LegitimacyCheck{
			Check:  c.Check,
			Status: c.Status,
			Passed: strings.EqualFold(c.Status, "PASS"),
		})
	}

	treatment := models.TreatmentDestructive
	if risk < urlRiskThreshold {
		treatment = models.TreatmentBenign
	}

	return &models.CanonicalResult{
		Verdict:   models.ParseVerdict(rawVerdict),
		Treatment: treatment,
		URL:       report,
	}
}

// creationYear keeps the leading four characters of a creation date
func creationYear(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return DefaultCreationYear
	}
	if len(date) > 4 {
		return date[:4]
	}
	return date
}

// RegisteredDomain returns the registrable domain (eTLD+1) of target's host,
// or the bare host when it has none
func RegisteredDomain(target string) string {
	if target == "" {
		return ""
	}
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	if host == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

func treatmentFor(v models.Verdict) models.Treatment {
	switch v {
	case models.VerdictSafe:
		return models.TreatmentBenign
	case models.VerdictSuspicious:
		return models.TreatmentWarning
	default:
		return models.TreatmentDestructive
	}
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
