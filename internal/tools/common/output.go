package common

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/observability"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/tools/ui"
)

type CIResult struct {
	OK      bool     `json:"ok"`
	Title   string   `json:"title"`
	Details []string `json:"details,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func PrintCIResult(ok bool, title string, details []string, err error) {
	writeCIResult(os.Stdout, ok, title, details, err)
}

func writeCIResult(w io.Writer, ok bool, title string, details []string, err error) {
	result := CIResult{OK: ok, Title: title, Details: details}
	if err != nil {
		result.Error = err.Error()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}

// Action is one tool command body; it returns human readable detail lines.
type Action func(ctx context.Context) ([]string, error)

type RunOptions struct {
	Tool    string
	Command string
	CI      bool
	Timeout time.Duration
}

// Run executes fn in the terminal UI, or directly with JSON output in CI mode.
func Run(opts RunOptions, fn Action) ([]string, error) {
	title := opts.Tool + " " + opts.Command
	start := time.Now()

	var (
		details []string
		err     error
	)
	if opts.CI {
		ctx := context.Background()
		if opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
		}
		details, err = fn(ctx)
		PrintCIResult(err == nil, title, details, err)
	} else {
		details, err = ui.Run(title, opts.Timeout, fn)
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	observability.RecordToolCommandRun(context.Background(), opts.Tool, opts.Command, outcome)
	observability.RecordToolCommandDuration(context.Background(), opts.Tool, opts.Command, outcome, time.Since(start))
	return details, err
}
