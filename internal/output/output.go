// Package output renders stats snapshots for the terminal and for pipes.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/lance13c/mlbstats/internal/stats"
)

// Format selects a renderer.
type Format string

const (
	FormatAuto  Format = "auto"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
)

var formats = []Format{FormatAuto, FormatTable, FormatJSON, FormatYAML, FormatCSV}

// ParseFormat accepts any of the known format names, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range formats {
		if f == known {
			return f, nil
		}
	}
	names := make([]string, len(formats))
	for i, known := range formats {
		names[i] = string(known)
	}
	return "", fmt.Errorf("unknown output format %q (want one of %s)", s, strings.Join(names, ", "))
}

// Resolve turns FormatAuto into a table on a terminal and JSON elsewhere.
func (f Format) Resolve(w io.Writer) Format {
	if f != FormatAuto {
		return f
	}
	if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		return FormatTable
	}
	return FormatJSON
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FFFFFF"})
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"})
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Render writes snaps to w. JSON output is a single object for one
// snapshot and an array otherwise; CSV separates snapshots with a blank line.
func Render(w io.Writer, f Format, snaps ...*stats.Snapshot) error {
	switch f.Resolve(w) {
	case FormatTable:
		for i, s := range snaps {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s stats", s.Variant)))
			fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("%s · %d players · %s", s.URL, len(s.Rows), s.CapturedAt.Format("2006-01-02 15:04:05"))))
			records := s.Records()
			fmt.Fprintln(w, Table(records[0], records[1:]))
		}
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(snaps) == 1 {
			return enc.Encode(snaps[0])
		}
		return enc.Encode(snaps)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		if len(snaps) == 1 {
			return enc.Encode(snaps[0])
		}
		return enc.Encode(snaps)
	case FormatCSV:
		for i, s := range snaps {
			if i > 0 {
				fmt.Fprintln(w)
			}
			cw := csv.NewWriter(w)
			if err := cw.WriteAll(s.Records()); err != nil {
				return fmt.Errorf("failed to write %s csv: %w", s.Variant, err)
			}
		}
		return nil
	}
	return fmt.Errorf("unknown output format %q", f)
}

// RenderColumns writes the header list of one variant.
func RenderColumns(w io.Writer, f Format, v stats.Variant, columns []string) error {
	switch f.Resolve(w) {
	case FormatTable:
		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s columns", v)))
		rows := make([][]string, len(columns))
		for i, c := range columns {
			rows[i] = []string{fmt.Sprint(i + 1), c}
		}
		fmt.Fprintln(w, Table([]string{"#", "column"}, rows))
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(columnList{Variant: v, Columns: columns})
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(columnList{Variant: v, Columns: columns})
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(columns); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	}
	return fmt.Errorf("unknown output format %q", f)
}

type columnList struct {
	Variant stats.Variant `json:"variant" yaml:"variant"`
	Columns []string      `json:"columns" yaml:"columns"`
}

// Table renders a bordered table.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(dimStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}
