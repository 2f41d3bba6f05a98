package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/truckops/truckops/internal/debt"
)

// DebtReporter is the part of the debt service the export command reads.
type DebtReporter interface {
	RefreshSummary(ctx context.Context) (debt.Summary, error)
	ExportSummary(ctx context.Context, w io.Writer) error
}

// DebtExportOptions defines available flags for the debt export command.
type DebtExportOptions struct {
	OutPath    string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// DebtCLI offers operational helpers around customer debt.
type DebtCLI struct {
	reporter DebtReporter
}

// NewDebtCLI constructs a new helper instance.
func NewDebtCLI(reporter DebtReporter) *DebtCLI {
	return &DebtCLI{reporter: reporter}
}

// ExportCommand writes the debt workbook to OutPath, or prints the summary
// as JSON, and returns the process exit code.
func (c *DebtCLI) ExportCommand(ctx context.Context, opts DebtExportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	if opts.JSONOutput {
		summary, err := c.reporter.RefreshSummary(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "debt export: %v\n", err)
			return 1
		}
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "debt export: %v\n", err)
			return 1
		}
		return 0
	}

	path := strings.TrimSpace(opts.OutPath)
	if path == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "debt export: --out is required unless --json is set")
		return 2
	}
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}
	file, err := os.Create(path)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "debt export: %v\n", err)
		return 1
	}
	if err := c.reporter.ExportSummary(ctx, file); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		_, _ = fmt.Fprintf(opts.Stderr, "debt export: %v\n", err)
		return 1
	}
	if err := file.Close(); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "debt export: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(opts.Stdout, "debt workbook written to %s\n", path)
	return 0
}
