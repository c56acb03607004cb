package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	// FormatYAML renders for reading in a terminal (default).
	FormatYAML OutputFormat = "yaml"
	// FormatJSON renders for piping into other tools.
	FormatJSON OutputFormat = "json"
)

// OutputOptions configures where and how a command result is written.
type OutputOptions struct {
	// Format is the output format; empty means YAML.
	Format OutputFormat

	// File is the output file path (empty for stdout).
	File string

	// Writer overrides File when set.
	Writer io.Writer
}

// Output renders a command result. Evaluation payloads and other opaque
// backend responses arrive as json.RawMessage and are re-shaped into the
// requested format instead of being double-encoded.
func Output(result any, opts OutputOptions) error {
	var w io.Writer = os.Stdout
	if opts.Writer != nil {
		w = opts.Writer
	} else if opts.File != "" {
		f, err := os.Create(opts.File)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if raw, ok := result.(json.RawMessage); ok {
		return writeRawJSON(w, raw, opts.Format)
	}

	switch opts.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatYAML, "":
		data, err := yaml.Marshal(result)
		if err != nil {
			return fmt.Errorf("render output: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}
}

// writeRawJSON re-renders an opaque JSON payload: indented for JSON output,
// decoded and re-marshalled for YAML.
func writeRawJSON(w io.Writer, raw json.RawMessage, format OutputFormat) error {
	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return fmt.Errorf("render payload: %w", err)
		}
		buf.WriteByte('\n')
		_, err := w.Write(buf.Bytes())
		return err
	case FormatYAML, "":
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("render payload: %w", err)
		}
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("render payload: %w", err)
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// Print helpers for terminal output.

// PrintSuccess prints a success message with checkmark.
func PrintSuccess(format string, args ...any) {
	fmt.Printf("✓ "+format+"\n", args...)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// PrintInfo prints an info message.
func PrintInfo(format string, args ...any) {
	fmt.Printf("ℹ "+format+"\n", args...)
}

// PrintWarning prints a warning message.
func PrintWarning(format string, args ...any) {
	fmt.Printf("⚠ "+format+"\n", args...)
}

// PrintVerbose prints verbose output to stderr.
func PrintVerbose(verbose bool, format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}
