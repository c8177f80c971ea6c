package timeline

import (
	"go-trustshield/pkg/models"
)

// StageSet is the ordered label sequence of one analyzer
type StageSet struct {
	Stages []string
	// Initial is how many stages are revealed as soon as the timeline starts
	Initial int
	// Done is appended to the log when a session completes, if set
	Done string
}

// ForKind returns the stage set of kind. target is only used by the URL set.
func ForKind(kind models.Kind, target string) StageSet {
	switch kind {
	case models.KindDocument:
		return StageSet{
			Stages: []string{
				"Reading file metadata...",
				"Checking digital signatures...",
				"Running AI forensic scan...",
				"Verifying document integrity...",
				"Generating report...",
			},
			Initial: 1,
		}
	case models.KindURL:
		return StageSet{
			Stages: []string{
				"Initializing security audit...",
				"Target: " + target,
				"Tracing redirects & popups...",
				"Capturing page evidence...",
				"Auditing links & claims...",
				"Running AI forensics...",
			},
			Initial: 2,
			Done:    "Audit complete.",
		}
	case models.KindPayment:
		return StageSet{
			Stages: []string{
				"Reading payment evidence...",
				"Verifying recipient details...",
				"Checking transaction logic...",
				"Generating risk report...",
			},
			Initial: 1,
		}
	default:
		return StageSet{
			Stages: []string{
				"Extracting message content...",
				"Checking sender patterns...",
				"Running AI fraud analysis...",
				"Compiling verdict...",
			},
			Initial: 1,
		}
	}
}
