package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// Text writes v as terminal text.
func Text(w io.Writer, v View) error {
	loc := LocaleFor(v.Locale)
	var b strings.Builder

	if v.Failure != nil {
		b.WriteString(failStyle.Render(fmt.Sprintf("%s %s %s", v.Glyph, v.Label, loc.FailedTitle)))
		b.WriteString("\n")
		fmt.Fprintf(&b, "  %s", v.Failure.Reason)
		if v.Failure.Detail != "" {
			fmt.Fprintf(&b, ": %s", v.Failure.Detail)
		}
		b.WriteString("\n")
		if v.Failure.Original != "" {
			b.WriteString(sectionStyle.Render(loc.Original))
			b.WriteString("\n")
			b.WriteString(dimStyle.Render(v.Failure.Original))
			b.WriteString("\n")
		}
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("%s %s (%s)", v.Glyph, loc.ResultTitle, v.Label)))
	b.WriteString("\n")
	total := loc.NotAvailable
	if v.TotalKnown {
		total = formatNumber(v.Total) + " " + loc.PointUnit
	}
	fmt.Fprintf(&b, "  %s: %s\n", loc.Total, total)
	photos := loc.NotAvailable
	if v.PhotoCountKnown {
		photos = strings.TrimSpace(strconv.Itoa(v.PhotoCount) + " " + loc.PhotoUnit)
	}
	fmt.Fprintf(&b, "  %s: %s\n", loc.Photos, photos)

	b.WriteString(sectionStyle.Render(loc.Criteria))
	b.WriteString("\n")
	for _, row := range v.Criteria {
		fmt.Fprintf(&b, "  - %s (%s%s)\n", row.Label, formatNumber(row.Weighted), loc.PointUnit)
		if row.Rationale != "" {
			fmt.Fprintf(&b, "    %s\n", row.Rationale)
		}
	}

	b.WriteString(sectionStyle.Render(loc.Notes))
	b.WriteString("\n")
	for _, u := range v.Uncertainties {
		fmt.Fprintf(&b, "  - %s\n", u)
	}

	b.WriteString(sectionStyle.Render(loc.Comment))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s\n", v.FinalComment)

	_, err := io.WriteString(w, b.String())
	return err
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
