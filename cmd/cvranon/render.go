package main

import (
	"fmt"
	"strconv"
	"strings"

	"cvranon/internal/anonymize"
	"cvranon/internal/ledger"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	primaryColor = lipgloss.Color("#2196F3")
	warningColor = lipgloss.Color("#FFC107")
	successColor = lipgloss.Color("#8BC34A")
	mutedColor   = lipgloss.Color("#6b7280")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	labelStyle  = lipgloss.NewStyle().Width(16).Foreground(mutedColor)
	warnStyle   = lipgloss.NewStyle().Bold(true).Foreground(warningColor)
	okStyle     = lipgloss.NewStyle().Foreground(successColor)
	mutedStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func field(label string, value any) string {
	return labelStyle.Render(label) + fmt.Sprint(value)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...)
}

// renderSummary describes the styles of an input file.
func renderSummary(input string, r *anonymize.Report) string {
	lines := []string{
		titleStyle.Render("Summary of " + input),
		field("Ballots", r.TotalBallots),
		field("Styles", r.Styles),
		field("Threshold", r.Threshold),
		field("Rare styles", r.RareStyles),
		field("Rare ballots", r.RareBallots),
		field("Common styles", r.CommonStyles),
		"",
		renderStyleTable(r.StyleTable),
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderStyleTable lists every style with rare styles highlighted.
func renderStyleTable(styles []anonymize.StyleInfo) string {
	t := newTable("Style", "Declared", "Contests", "Ballots", "Rare")
	for _, s := range styles {
		rare := ""
		if s.Rare {
			rare = "yes"
		}
		t.Row(s.Label, s.Declared, strconv.Itoa(s.Contests), strconv.Itoa(s.Ballots), rare)
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if row >= 0 && row < len(styles) && styles[row].Rare {
			return cellStyle.Foreground(warningColor)
		}
		return cellStyle
	})
	return t.String()
}

// renderResult reports what an anonymization run published.
func renderResult(output string, r *anonymize.Report) string {
	lines := []string{
		okStyle.Render(fmt.Sprintf("Wrote %s (%d rows)", output, r.OutputRows)),
		field("Ballots", r.TotalBallots),
		field("Rare ballots", r.RareBallots),
		field("Aggregates", len(r.Aggregates)),
		field("Borrowed", r.BorrowedBallots),
		field("Passes", r.Passes),
	}
	if len(r.AbsorbedStyles) > 0 {
		lines = append(lines, field("Absorbed styles", strings.Join(r.AbsorbedStyles, ", ")))
	}
	for _, a := range r.Aggregates {
		lines = append(lines, fmt.Sprintf("  %s: %d ballots (%d rare, %d borrowed) from %s",
			a.ID, a.Ballots, a.RareBallots, a.Borrowed, strings.Join(a.Styles, ", ")))
	}
	if n := len(r.Warnings); n > 0 {
		lines = append(lines, warnStyle.Render(fmt.Sprintf("%d warning(s)", n)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderRuns lists ledger entries.
func renderRuns(runs []ledger.Run) string {
	t := newTable("Run", "Started", "Input", "Output", "Min", "Policy", "Ballots", "Aggregates", "Warnings")
	for _, r := range runs {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		t.Row(id, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Input, r.Output,
			strconv.Itoa(r.Threshold), r.Policy, strconv.Itoa(r.Ballots),
			strconv.Itoa(r.Aggregates), strconv.Itoa(len(r.Warnings)))
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		return cellStyle
	})
	return t.String()
}
