package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"go-trustshield/internal/analyzer"
	"go-trustshield/pkg/models"
)

var (
	// Color printers
	infoColor    = color.New(color.FgBlue).SprintFunc()
	successColor = color.New(color.FgGreen).SprintFunc()
	warningColor = color.New(color.FgYellow).SprintFunc()
	errorColor   = color.New(color.FgRed).SprintFunc()
	alertColor   = color.New(color.FgRed, color.Bold).SprintFunc()
	labelColor   = color.New(color.Bold).SprintFunc()
)

// Printer writes human-readable output
type Printer struct {
	out io.Writer
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

func (p *Printer) Info(format string, args ...interface{}) {
	fmt.Fprintf(p.out, "%s %s\n", infoColor("[*]"), fmt.Sprintf(format, args...))
}

func (p *Printer) Success(format string, args ...interface{}) {
	fmt.Fprintf(p.out, "%s %s\n", successColor("[+]"), fmt.Sprintf(format, args...))
}

func (p *Printer) Warning(format string, args ...interface{}) {
	fmt.Fprintf(p.out, "%s %s\n", warningColor("[!]"), fmt.Sprintf(format, args...))
}

func (p *Printer) Error(format string, args ...interface{}) {
	fmt.Fprintf(p.out, "%s %s\n", errorColor("[-]"), fmt.Sprintf(format, args...))
}

func (p *Printer) Alert(format string, args ...interface{}) {
	fmt.Fprintf(p.out, "%s %s\n", alertColor("[!!!]"), fmt.Sprintf(format, args...))
}

func (p *Printer) field(label string, value interface{}) {
	fmt.Fprintf(p.out, "    %s %v\n", labelColor(label+":"), value)
}

// Verdict prints the headline in the colour of its treatment
func (p *Printer) Verdict(r *models.CanonicalResult) {
	headline := fmt.Sprintf("%s verdict: %s", strings.ToUpper(string(r.Kind)), r.DisplayVerdict())
	switch r.Treatment {
	case models.TreatmentBenign:
		p.Success("%s", headline)
	case models.TreatmentWarning:
		p.Warning("%s", headline)
	default:
		p.Alert("%s", headline)
	}
	if r.IsFallback() {
		p.Warning("Analysis service unavailable, showing the fallback result (%s)", r.FailureReason)
	}
}

// Result prints the verdict and the per-kind report
func (p *Printer) Result(r *models.CanonicalResult) {
	if r == nil {
		p.Error("No result")
		return
	}
	p.Verdict(r)

	switch {
	case r.Message != nil:
		p.message(r.Message)
	case r.Document != nil:
		p.document(r.Document)
	case r.Payment != nil:
		p.payment(r.Payment)
	case r.URL != nil:
		p.url(r.URL)
	}
}

func (p *Printer) message(m *models.MessageReport) {
	p.field("Trust score", m.TrustScore)
	p.field("Warning", m.Warning)
	p.field("Tone", m.ToneAnalysis)
	p.field("Fraud path", m.FraudPath)
	if m.Language != "" {
		p.field("Language", m.Language)
	}
	p.field("Entities detected", m.EntitiesDetected)
}

func (p *Printer) document(d *models.DocumentReport) {
	p.field("Service verdict", d.RawVerdict)
	if d.InputQuery != "" {
		p.field("Question", d.InputQuery)
	}
	p.field("Evidence", d.Evidence)
	if d.MetadataStatus != "" {
		status := d.MetadataStatus
		if d.MetadataAlert {
			status = errorColor(status)
		}
		p.field("Metadata", status)
	}
	if d.MalwareScan != "" {
		p.field("Malware scan", d.MalwareScan)
	}
	heatmap := "not produced"
	if d.HasHeatmap() {
		heatmap = "available"
	}
	p.field("Heatmap", heatmap)
}

func (p *Printer) payment(r *models.PaymentReport) {
	if r.TrustScore != nil {
		p.field("Trust score", *r.TrustScore)
	}
	for _, line := range r.ExplanationLines {
		fmt.Fprintf(p.out, "    %s\n", line)
	}
	for _, f := range r.Findings {
		if f.Clean {
			fmt.Fprintf(p.out, "    %s %s\n", successColor("✓"), f.Text)
		} else {
			fmt.Fprintf(p.out, "    %s %s\n", errorColor("✗"), f.Text)
		}
	}
	for _, flaw := range r.LogicFlaws {
		fmt.Fprintf(p.out, "    %s %s\n", warningColor("logic flaw:"), flaw)
	}
}

func (p *Printer) url(u *models.URLReport) {
	if u.TargetURL != "" {
		p.field("Target", u.TargetURL)
	}
	if u.RegisteredDomain != "" {
		p.field("Domain", u.RegisteredDomain)
	}
	p.field("Risk score", u.RiskScore)
	p.field("Registered", u.CreationYear)
	p.field("Organization", u.Organization)
	p.field("Layout", u.LayoutType)
	for _, flag := range u.RedFlags {
		fmt.Fprintf(p.out, "    %s %s\n", errorColor("red flag:"), flag)
	}
	for _, c := range u.LegitimacyChecks {
		status := errorColor(c.Status)
		if c.Passed {
			status = successColor(c.Status)
		}
		fmt.Fprintf(p.out, "    %s %s\n", status, c.Check)
	}
	p.field("Audit", u.AuditReport)
}

// Session prints the stage log of a finished session
func (p *Printer) Session(s analyzer.Session) {
	for _, stage := range s.Log {
		p.Info("%s", stage)
	}
}

// Batch prints one line per scanned URL
func (p *Printer) Batch(outcomes []analyzer.URLScanOutcome) {
	for _, o := range outcomes {
		switch {
		case o.Error != "":
			p.Error("%s: %s", o.URL, o.Error)
		case o.Result == nil || o.Result.URL == nil:
			p.Error("%s: no result", o.URL)
		default:
			line := fmt.Sprintf("%s: %s (risk %d)", o.URL, o.Result.DisplayVerdict(), o.Result.URL.RiskScore)
			if o.Result.IsFallback() {
				line += " [fallback]"
			}
			switch o.Result.Treatment {
			case models.TreatmentBenign:
				p.Success("%s", line)
			case models.TreatmentWarning:
				p.Warning("%s", line)
			default:
				p.Alert("%s", line)
			}
		}
	}
}

// Overview prints dashboard stats
func (p *Printer) Overview(s *models.OverviewStats) {
	p.field("Total scans", s.TotalScans)
	p.field("Safe", s.SafeScans)
	p.field("Suspicious", s.SuspiciousScans())
	p.field("Threats", s.ThreatsDetected)
	for _, a := range s.RecentActivity {
		fmt.Fprintf(p.out, "    %s  %-8s %-12s %s\n", a.Timestamp, a.Type, a.Verdict, a.Details)
	}
}
