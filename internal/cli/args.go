package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"go-trustshield/internal/aligner"
	"go-trustshield/internal/intake"
	"go-trustshield/pkg/validation"
)

// Commands understood by ParseArgs
const (
	CmdServe    = "serve"
	CmdHealth   = "health"
	CmdStats    = "stats"
	CmdMessage  = "message"
	CmdDocument = "document"
	CmdPayment  = "payment"
	CmdURL      = "url"
	CmdBatchURL = "batch-url"
)

// ErrUsage is returned for a missing or unknown command or invalid flags
var ErrUsage = errors.New("usage error")

const usageText = `Usage:
  trustshield serve
  trustshield health
  trustshield stats
  trustshield message  [-text <body>] [-file <path>]
  trustshield document -file <path> [-query <concern>] [-view original|heatmap -out <file.png> -width <px>]
  trustshield payment  [-amount <n> -recipient <id>] [-source <context>] [-query <concern>] [-file <path>]
  trustshield url      <target>
  trustshield batch-url [-workers <n>] [-file <list>] <target>...

Every scan command accepts -json to print the normalized result as JSON and -v for debug logs.`

// Usage returns the command overview
func Usage() string {
	return usageText
}

// Options is a parsed command line
type Options struct {
	Command string

	Text      string
	File      string
	Query     string
	Amount    string
	Recipient string
	Source    intake.SourceContext
	Targets   []string

	View  aligner.View
	Out   string
	Width int

	Workers int
	JSON    bool
	Verbose bool
}

// ParseArgs parses args, without the program name, into Options
func ParseArgs(args []string) (*Options, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: no command given", ErrUsage)
	}
	opts := &Options{Command: args[0], Source: intake.SourceUnknown, View: aligner.ViewOriginal}

	fs := flag.NewFlagSet(opts.Command, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&opts.JSON, "json", false, "print the result as JSON")
	fs.BoolVar(&opts.Verbose, "v", false, "enable debug logging")

	var view, source string
	switch opts.Command {
	case CmdServe, CmdHealth, CmdStats, CmdURL:
	case CmdMessage:
		fs.StringVar(&opts.Text, "text", "", "message body")
		fs.StringVar(&opts.File, "file", "", "screenshot or text file")
	case CmdDocument:
		fs.StringVar(&opts.File, "file", "", "document to inspect")
		fs.StringVar(&opts.Query, "query", "", "specific concern")
		fs.StringVar(&view, "view", string(aligner.ViewOriginal), "artifact to render: original or heatmap")
		fs.StringVar(&opts.Out, "out", "", "write the aligned rendering to this PNG file")
		fs.IntVar(&opts.Width, "width", 0, "container width in pixels")
	case CmdPayment:
		fs.StringVar(&opts.Amount, "amount", "", "payment amount")
		fs.StringVar(&opts.Recipient, "recipient", "", "recipient UPI ID or name")
		fs.StringVar(&source, "source", string(intake.SourceUnknown), "where the request came from")
		fs.StringVar(&opts.Query, "query", "", "free-form concern")
		fs.StringVar(&opts.File, "file", "", "payment screenshot")
	case CmdBatchURL:
		fs.IntVar(&opts.Workers, "workers", 4, "concurrent scans")
		fs.StringVar(&opts.File, "file", "", "file with one target per line")
	default:
		return nil, fmt.Errorf("%w: unknown command %q", ErrUsage, opts.Command)
	}

	if err := fs.Parse(args[1:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	for _, t := range fs.Args() {
		if t = strings.TrimSpace(t); t != "" {
			opts.Targets = append(opts.Targets, t)
		}
	}

	switch opts.Command {
	case CmdMessage:
		if strings.TrimSpace(opts.Text) == "" && opts.File == "" {
			return nil, fmt.Errorf("%w: message needs -text or -file", ErrUsage)
		}
	case CmdDocument:
		if opts.File == "" {
			return nil, fmt.Errorf("%w: document needs -file", ErrUsage)
		}
		if view != string(aligner.ViewOriginal) && view != string(aligner.ViewHeatmap) {
			return nil, fmt.Errorf("%w: -view must be original or heatmap, got %q", ErrUsage, view)
		}
		opts.View = aligner.View(view)
		if opts.Width < 0 {
			return nil, fmt.Errorf("%w: -width must not be negative", ErrUsage)
		}
	case CmdPayment:
		opts.Source = intake.SourceContext(source)
		if _, ok := intake.SourceContexts[opts.Source]; !ok {
			return nil, fmt.Errorf("%w: unknown -source %q", ErrUsage, source)
		}
	case CmdURL:
		if len(opts.Targets) != 1 {
			return nil, fmt.Errorf("%w: url needs exactly one target", ErrUsage)
		}
		target, err := validation.ValidateTarget(opts.Targets[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUsage, err)
		}
		opts.Targets[0] = target
	case CmdBatchURL:
		if len(opts.Targets) == 0 && opts.File == "" {
			return nil, fmt.Errorf("%w: batch-url needs targets or -file", ErrUsage)
		}
		if opts.Workers < 1 {
			return nil, fmt.Errorf("%w: -workers must be at least 1", ErrUsage)
		}
	}
	return opts, nil
}
