// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package bench

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)

	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)
)

// newReportTable builds the standard bordered table; columns from
// numericFrom on are right-aligned.
func newReportTable(numericFrom int) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if row < 0 {
				return headerRowStyle
			}
			switch {
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			if col >= numericFrom {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
}

// Report renders the sweep as one table: a row per case, a column per
// backend, cells showing the median latency and the effective bandwidth it
// sustains. Skipped and failed pairs are summarized in notes below the
// table.
func Report(w io.Writer, results []Measurement) {
	if len(results) == 0 {
		return
	}

	var caseLabels, backendNames []string
	cells := make(map[string]map[string]string)
	seenBackend := make(map[string]bool)
	var notes []string
	for _, m := range results {
		label := m.Case.Label()
		if _, seen := cells[label]; !seen {
			caseLabels = append(caseLabels, label)
			cells[label] = make(map[string]string)
		}
		if !seenBackend[m.Backend] {
			seenBackend[m.Backend] = true
			backendNames = append(backendNames, m.Backend)
		}
		switch {
		case m.Skipped != nil:
			cells[label][m.Backend] = "skipped"
			notes = append(notes, fmt.Sprintf("%s skipped %q: %s",
				m.Backend, label, strings.Join(m.Skipped.Reasons, "; ")))
		case m.Err != nil:
			cells[label][m.Backend] = "FAILED"
			notes = append(notes, fmt.Sprintf("%s failed on %q: %v", m.Backend, label, m.Err))
		default:
			s := m.Summarize()
			cells[label][m.Backend] = fmt.Sprintf("%s (%s/s)",
				FormatDuration(s.Median), humanize.Bytes(uint64(s.Bandwidth)))
		}
	}

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Attention decoding, %s", results[0].Case.DType)))
	table := newReportTable(1)
	table.Headers(append([]string{"case"}, backendNames...)...)
	for _, label := range caseLabels {
		row := make([]string, 0, len(backendNames)+1)
		row = append(row, label)
		for _, name := range backendNames {
			row = append(row, cells[label][name])
		}
		table.Row(row...)
	}
	fmt.Fprintln(w, table.Render())
	for _, note := range notes {
		fmt.Fprintln(w, note)
	}
}

// ReportDetails renders one row per measured pair with the full latency
// statistics. Pairs without timings (skipped or failed) are left out.
func ReportDetails(w io.Writer, results []Measurement) {
	table := newReportTable(2)
	table.Headers("case", "backend", "runs", "mean", "median", "p95", "bandwidth")
	rows := 0
	for _, m := range results {
		if len(m.Latencies) == 0 {
			continue
		}
		s := m.Summarize()
		table.Row(m.Case.Label(), m.Backend,
			humanize.Comma(int64(s.Iters)),
			FormatDuration(s.Mean), FormatDuration(s.Median), FormatDuration(s.P95),
			humanize.Bytes(uint64(s.Bandwidth))+"/s")
		rows++
	}
	if rows == 0 {
		return
	}
	fmt.Fprintln(w, titleStyle.Render("Details"))
	fmt.Fprintln(w, table.Render())
}
