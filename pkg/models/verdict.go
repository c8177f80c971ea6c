package models

import "strings"

// Kind identifies one of the four analyzers
type Kind string

const (
	KindMessage  Kind = "message"
	KindDocument Kind = "document"
	KindPayment  Kind = "payment"
	KindURL      Kind = "url"
)

// Kinds lists every analyzer kind in display order
var Kinds = []Kind{KindMessage, KindDocument, KindPayment, KindURL}

// ParseKind maps a case-insensitive name to a Kind
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

// Verdict is the closed canonical verdict enumeration
type Verdict string

const (
	VerdictSafe       Verdict = "SAFE"
	VerdictSuspicious Verdict = "SUSPICIOUS"
	VerdictMalicious  Verdict = "MALICIOUS"
	VerdictUnknown    Verdict = "UNKNOWN"
)

// Treatment is the display class a result is rendered with
type Treatment string

const (
	TreatmentBenign      Treatment = "benign"
	TreatmentWarning     Treatment = "warning"
	TreatmentDestructive Treatment = "destructive"
)

var (
	safeVerdicts       = []string{"SAFE", "LEGIT", "REAL", "NORMAL"}
	suspiciousVerdicts = []string{"SUSPICIOUS", "CAUTION", "HIGH RISK", "INCONCLUSIVE"}
	threatVerdicts     = []string{"MALICIOUS", "SCAM", "SPAM", "PHISHING", "TAMPERED", "FAKE"}
)

// ParseVerdict folds a raw service verdict string into the canonical enumeration.
// Matching is case-insensitive; anything unrecognised is UNKNOWN.
func ParseVerdict(raw string) Verdict {
	v := strings.ToUpper(raw)
	switch {
	case containsString(safeVerdicts, v):
		return VerdictSafe
	case containsString(suspiciousVerdicts, v):
		return VerdictSuspicious
	case containsString(threatVerdicts, v):
		return VerdictMalicious
	default:
		return VerdictUnknown
	}
}

// IsSafeLabel reports case-insensitive membership in the SAFE allow-list
func IsSafeLabel(raw string) bool {
	return containsString(safeVerdicts, strings.ToUpper(raw))
}

// IsSuspiciousLabel reports case-insensitive membership in the SUSPICIOUS allow-list
func IsSuspiciousLabel(raw string) bool {
	return containsString(suspiciousVerdicts, strings.ToUpper(raw))
}

// IsThreatLabel reports case-insensitive membership in the threat list
func IsThreatLabel(raw string) bool {
	return containsString(threatVerdicts, strings.ToUpper(raw))
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
