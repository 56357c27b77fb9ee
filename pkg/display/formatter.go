//go:build linux

package display

import (
	"fmt"
	"io"
	"strings"
)

// New creates a new formatter with the given configuration.
func New(cfg Config) Formatter {
	if cfg.Format == "" {
		cfg.Format = FormatText
	}

	switch cfg.Format {
	case FormatJSON:
		return &jsonFormatter{config: cfg}
	case FormatText:
		fallthrough
	default:
		return newTextFormatter(cfg)
	}
}

// writeHeader writes a title underlined with "=".
func writeHeader(w io.Writer, title string) error {
	_, err := fmt.Fprintf(w, "%s\n%s\n", title, strings.Repeat("=", len(title)))
	return err
}

// writeTable writes rows with columns padded to a common width.
func writeTable(w io.Writer, header []string, rows [][]string) error {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	writeRow := func(cells []string) error {
		var b strings.Builder
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			if i == len(cells)-1 {
				b.WriteString(cell)
				continue
			}
			fmt.Fprintf(&b, "%-*s", widths[i], cell)
		}
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	if err := writeRow(header); err != nil {
		return err
	}

	separators := make([]string, len(header))
	for i, width := range widths {
		separators[i] = strings.Repeat("-", width)
	}
	if err := writeRow(separators); err != nil {
		return err
	}

	for _, row := range rows {
		if err := writeRow(row); err != nil {
			return err
		}
	}

	return nil
}

// shortID abbreviates a run ID for tables.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
