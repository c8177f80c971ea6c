package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go-trustshield/internal/aligner"
	"go-trustshield/internal/analyzer"
	"go-trustshield/internal/client"
	"go-trustshield/internal/factory"
	"go-trustshield/internal/intake"
	"go-trustshield/internal/observer"
	"go-trustshield/pkg/models"
)

// Env is what the scan commands run against
type Env struct {
	Analyzers factory.AnalyzerFactory
	Backend   client.Backend
	// Events, when set, is used to print stages as they are revealed
	Events         observer.Subject
	ContainerWidth int
	Out            io.Writer
}

// Run executes every command except serve
func Run(ctx context.Context, opts *Options, env Env) error {
	if env.Out == nil {
		env.Out = os.Stdout
	}
	p := NewPrinter(env.Out)

	switch opts.Command {
	case CmdHealth:
		return runHealth(ctx, p, env)
	case CmdStats:
		return runStats(ctx, opts, p, env)
	case CmdMessage:
		return runScan(ctx, opts, p, env, models.KindMessage, func(c *intake.Collector) error {
			c.SetText(opts.Text)
			return attach(ctx, c, opts.File)
		})
	case CmdDocument:
		return runScan(ctx, opts, p, env, models.KindDocument, func(c *intake.Collector) error {
			if err := attach(ctx, c, opts.File); err != nil {
				return err
			}
			c.SetQuery(opts.Query)
			return nil
		})
	case CmdPayment:
		return runScan(ctx, opts, p, env, models.KindPayment, func(c *intake.Collector) error {
			c.SetPayment(opts.Amount, opts.Recipient, opts.Source)
			c.SetQuery(opts.Query)
			return attach(ctx, c, opts.File)
		})
	case CmdURL:
		return runScan(ctx, opts, p, env, models.KindURL, func(c *intake.Collector) error {
			c.SetURL(opts.Targets[0])
			return nil
		})
	case CmdBatchURL:
		return runBatch(ctx, opts, p, env)
	}
	return fmt.Errorf("%w: %q is not a scan command", ErrUsage, opts.Command)
}

func runHealth(ctx context.Context, p *Printer, env Env) error {
	status, err := env.Backend.Health(ctx)
	if err != nil {
		p.Error("Analysis service unreachable: %v", err)
		return err
	}
	p.Success("Analysis service status: %s", status.Status)
	return nil
}

func runStats(ctx context.Context, opts *Options, p *Printer, env Env) error {
	stats, err := env.Backend.OverviewStats(ctx)
	overview := &stats
	if err != nil {
		p.Warning("Overview stats unavailable: %v", err)
		overview = models.EmptyOverview()
	}
	if opts.JSON {
		return writeJSON(env.Out, overview)
	}
	p.Overview(overview)
	return nil
}

func runScan(ctx context.Context, opts *Options, p *Printer, env Env, kind models.Kind, fill func(*intake.Collector) error) error {
	a, err := env.Analyzers.CreateAnalyzer(kind)
	if err != nil {
		return err
	}
	defer a.Reset()

	if err := fill(a.Collector()); err != nil {
		return err
	}

	if env.Events != nil && !opts.JSON {
		stages := &stagePrinter{printer: p, kind: kind}
		env.Events.Subscribe(stages)
		defer env.Events.Unsubscribe(stages)
	}

	if _, err := a.Submit(ctx); err != nil {
		return err
	}
	if err := a.Wait(ctx); err != nil {
		return err
	}

	result := a.Result()
	if opts.JSON {
		if err := writeJSON(env.Out, result); err != nil {
			return err
		}
	} else {
		if env.Events == nil {
			p.Session(a.Session())
		}
		p.Result(result)
	}

	if kind == models.KindDocument && opts.Out != "" {
		return writeRendering(ctx, opts, p, env, a)
	}
	return nil
}

// writeRendering aligns the selected document artifact and saves it as PNG
func writeRendering(ctx context.Context, opts *Options, p *Printer, env Env, a *analyzer.Analyzer) error {
	if err := a.SetView(opts.View); err != nil {
		return err
	}
	width := opts.Width
	if width == 0 {
		width = env.ContainerWidth
	}
	r, err := a.Render(ctx, width)
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("no document result to render")
	}
	if r.ShownView != r.RequestedView {
		p.Warning("No %s available, rendering the %s instead", r.RequestedView, r.ShownView)
	}

	f, err := os.Create(opts.Out)
	if err != nil {
		return fmt.Errorf("create %s: %w", opts.Out, err)
	}
	if err := aligner.EncodePNG(f, r); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	p.Success("Wrote %s view to %s (%dx%d, scale %.3f)", r.ShownView, opts.Out, r.Width, r.Height, r.Scale)
	return nil
}

func runBatch(ctx context.Context, opts *Options, p *Printer, env Env) error {
	targets := append([]string(nil), opts.Targets...)
	if opts.File != "" {
		lines, err := readTargets(opts.File)
		if err != nil {
			return err
		}
		targets = append(targets, lines...)
	}
	if len(targets) == 0 {
		return fmt.Errorf("no targets to scan")
	}

	pool := analyzer.NewWorkerPool(opts.Workers)
	defer pool.Close()

	if !opts.JSON {
		p.Info("Scanning %d targets with %d workers", len(targets), opts.Workers)
	}
	outcomes := analyzer.BatchScanURLs(ctx, pool, func() (*analyzer.Analyzer, error) {
		return env.Analyzers.CreateAnalyzer(models.KindURL)
	}, targets)

	if opts.JSON {
		return writeJSON(env.Out, outcomes)
	}
	p.Batch(outcomes)
	return nil
}

// attach adds the file at path to the collector; an empty path is a no-op
func attach(ctx context.Context, c *intake.Collector, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	_, err = c.Accept(ctx, filepath.Base(path), "", f)
	return err
}

// readTargets reads one target per line, skipping blanks and # comments
func readTargets(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// stagePrinter prints stages of one analyzer kind as they are revealed
type stagePrinter struct {
	printer *Printer
	kind    models.Kind
}

func (s *stagePrinter) OnEvent(ctx context.Context, event observer.SessionEvent) {
	if event.Analyzer != s.kind || event.EventType != observer.StageAdvanced {
		return
	}
	s.printer.Info("%s", event.Stage)
}

func (s *stagePrinter) GetObserverName() string {
	return "cli_stage_printer"
}
