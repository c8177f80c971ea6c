package analyzer

import (
	"time"

	"go-trustshield/internal/aligner"
	"go-trustshield/internal/intake"
	"go-trustshield/pkg/models"
)

// State is the lifecycle state of a scan session
type State string

const (
	StateIdle              State = "idle"
	StateSubmitting        State = "submitting"
	StateCompleted         State = "completed"
	StateFailed            State = "failed"
	StateCompletedFallback State = "completed_fallback"
)

// InFlight reports whether an outbound call still owns the session. A failed
// session stays in flight until its fallback result is stored.
func (s State) InFlight() bool {
	return s == StateSubmitting || s == StateFailed
}

// Session is the lifecycle record of the latest submission
type Session struct {
	ID            string    `json:"id,omitempty"`
	State         State     `json:"state"`
	Stage         string    `json:"stage,omitempty"`
	Log           []string  `json:"log,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	FinishedAt    time.Time `json:"finished_at,omitempty"`
}

// Duration is how long the session took, or has taken so far
func (s Session) Duration() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Snapshot is a consistent copy of an analyzer's observable state
type Snapshot struct {
	Kind        models.Kind             `json:"kind"`
	Session     Session                 `json:"session"`
	Pending     intake.PendingRequest   `json:"pending"`
	Submittable bool                    `json:"submittable"`
	Result      *models.CanonicalResult `json:"result,omitempty"`
	View        aligner.View            `json:"view,omitempty"`
}
