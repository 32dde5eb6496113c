package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/dental/dental/internal/domain/chart"
	"github.com/dental/dental/internal/domain/tooth"
	"github.com/dental/dental/pkg/notation"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	archStyle     = lipgloss.NewStyle().Faint(true).Width(7)
	mutedStyle    = lipgloss.NewStyle().Faint(true)
	selectedColor = lipgloss.Color("#facc15")
)

func cellStyle(c chart.Cell) lipgloss.Style {
	st := lipgloss.NewStyle().
		Width(4).
		Align(lipgloss.Center).
		Border(lipgloss.RoundedBorder())
	if c.Record != nil && c.Record.ConditionColor != nil {
		st = st.Background(lipgloss.Color(*c.Record.ConditionColor)).Foreground(lipgloss.Color("#ffffff"))
	}
	if c.Selected {
		st = st.BorderForeground(selectedColor).Bold(true)
	}
	return st
}

func renderArch(name string, cells []chart.Cell) string {
	parts := make([]string, 0, len(cells)+1)
	parts = append(parts, archStyle.Render(name))
	for _, c := range cells {
		parts = append(parts, cellStyle(c).Render(c.Tooth.Label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

// renderChart draws both arches in display order followed by a line per
// charted tooth.
func renderChart(s chart.Session, scheme notation.Scheme, now time.Time) string {
	cells := s.Labels(scheme)
	title := "No patient loaded"
	if p := s.Patient(); p != nil {
		title = fmt.Sprintf("%s (%s notation)", p.FullName(), scheme)
	}

	blocks := []string{
		titleStyle.Render(title),
		renderArch("Upper", cells[:16]),
		renderArch("Lower", cells[16:]),
		"",
	}

	recs := s.Records()
	if len(recs) == 0 {
		blocks = append(blocks, mutedStyle.Render("No teeth charted yet."))
	}
	for _, rec := range recs {
		blocks = append(blocks, recordLine(rec, scheme, now))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func recordLine(rec *tooth.ToothRecord, scheme notation.Scheme, now time.Time) string {
	condition := "no condition"
	if rec.ConditionName != nil {
		condition = *rec.ConditionName
	}
	surfaces := rec.Surfaces.String()
	if surfaces == "" {
		surfaces = "-"
	}
	line := fmt.Sprintf("%-3s %-34s %-18s %-5s", notation.Translate(rec.ToothNumber, scheme),
		notation.Name(rec.ToothNumber), condition, surfaces)
	if rec.Notes != nil {
		line += " " + *rec.Notes
	}
	meta := fmt.Sprintf("recorded %s by %s", humanize.RelTime(rec.RecordedAt, now, "ago", "from now"), rec.RecordedBy)
	return line + "  " + mutedStyle.Render(meta)
}

func renderHistory(entries []*tooth.HistoryEntry, now time.Time) string {
	if len(entries) == 0 {
		return mutedStyle.Render("No history.")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("History of tooth %d", entries[0].ToothNumber)))
	b.WriteString("\n")
	for _, h := range entries {
		condition := "none"
		if h.NewConditionID != nil {
			condition = fmt.Sprintf("#%d", *h.NewConditionID)
		}
		fmt.Fprintf(&b, "%6d  %-17s condition %-5s surfaces %-5s %s\n", h.ID, h.Action, condition,
			h.NewSurfaces.String(), mutedStyle.Render(humanize.RelTime(h.PerformedAt, now, "ago", "from now")+" by "+h.PerformedBy))
	}
	return b.String()
}
