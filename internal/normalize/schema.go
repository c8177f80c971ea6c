package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Raw service payloads. Optional members are pointers so absence can be told
// apart from a zero value and defaulted explicitly.

type rawMessage struct {
	Verdict       *string `json:"verdict"`
	IsSafe        *bool   `json:"is_safe"`
	Explanation   *string `json:"explanation"`
	FraudCategory *string `json:"fraud_category"`
}

type rawDocument struct {
	Verdict    *string        `json:"verdict"`
	IsTampered *bool          `json:"is_tampered"`
	InputQuery *string        `json:"input_query"`
	Forensics  *rawForensics  `json:"forensics"`
	AIAnalysis *rawAIAnalysis `json:"ai_analysis"`
}

type rawForensics struct {
	ELAHeatmap     *string `json:"ela_heatmap"`
	MetadataStatus *string `json:"metadata_status"`
	MalwareScan    *string `json:"malware_scan"`
}

type rawAIAnalysis struct {
	PrimaryEvidence *string `json:"primary_evidence"`
	Reasoning       *string `json:"reasoning"`
}

type rawPayment struct {
	Data *rawPaymentData `json:"data"`
}

type rawPaymentData struct {
	TrustScore    looseScore `json:"trust_score"`
	RiskScore     looseScore `json:"risk_score"`
	Verdict       *string    `json:"verdict"`
	Explanation   *string    `json:"explanation"`
	ForensicFlags []string   `json:"forensic_flags"`
	LogicFlaws    []string   `json:"logic_flaws"`
}

type rawURL struct {
	RiskScore      looseScore         `json:"risk_score"`
	Verdict        *string            `json:"verdict"`
	DomainInfo     *rawDomainInfo     `json:"domain_info"`
	GeminiAnalysis *rawGeminiAnalysis `json:"gemini_analysis"`
	ScreenshotURL  *string            `json:"screenshot_url"`
	VisualAI       *rawVisualAI       `json:"visual_ai"`
}

type rawDomainInfo struct {
	CreationDate looseString `json:"creation_date"`
	Org          *string     `json:"org"`
}

type rawGeminiAnalysis struct {
	Verdict          *string              `json:"verdict"`
	RiskScore        looseScore           `json:"risk_score"`
	RedFlags         []string             `json:"red_flags"`
	LegitimacyChecks []rawLegitimacyCheck `json:"legitimacy_checks"`
	AuditReport      *string              `json:"audit_report"`
}

type rawLegitimacyCheck struct {
	Check  string `json:"check"`
	Status string `json:"status"`
}

type rawVisualAI struct {
	LayoutType *string `json:"layout_type"`
}

// looseString accepts a JSON string, number, or list of those and keeps the
// first scalar as text. WHOIS creation dates arrive in all three shapes.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "" || trimmed == "null":
		*s = ""
		return nil
	case strings.HasPrefix(trimmed, "["):
		var list []looseString
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		for _, item := range list {
			if item != "" {
				*s = item
				return nil
			}
		}
		*s = ""
		return nil
	case strings.HasPrefix(trimmed, `"`):
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = looseString(str)
		return nil
	default:
		*s = looseString(trimmed)
		return nil
	}
}

// looseScore accepts a score as a JSON integer, float or numeric string.
// Floats are rounded to the nearest integer; anything else counts as absent.
type looseScore struct {
	value int
	set   bool
}

func (s *looseScore) UnmarshalJSON(data []byte) error {
	*s = looseScore{}
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return nil
		}
		text = strings.TrimSpace(str)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	f = math.Max(-1e6, math.Min(1e6, math.Round(f)))
	*s = looseScore{value: int(f), set: true}
	return nil
}

// get returns the score and whether one was present
func (s looseScore) get() (int, bool) {
	return s.value, s.set
}

func deref(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}
