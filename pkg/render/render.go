// Package render draws a results view model for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sw33tLie/opcheck/internal/utils"
	"github.com/sw33tLie/opcheck/pkg/results"
)

// Theme holds the colors used by Terminal.
type Theme struct {
	Foreground lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	TagActive  lipgloss.Color
	Error      lipgloss.Color
}

var (
	DarkTheme = Theme{
		Foreground: lipgloss.Color("#f2f2f2"),
		Accent:     lipgloss.Color("#8BC34A"),
		Muted:      lipgloss.Color("#8a94a6"),
		TagActive:  lipgloss.Color("#2a3850"),
		Error:      lipgloss.Color("#e53935"),
	}
	LightTheme = Theme{
		Foreground: lipgloss.Color("#101F38"),
		Accent:     lipgloss.Color("#2e7d32"),
		Muted:      lipgloss.Color("#5f6b7a"),
		TagActive:  lipgloss.Color("#d6dae0"),
		Error:      lipgloss.Color("#c62828"),
	}
)

// ThemeFor maps a stored theme name to its palette.
func ThemeFor(name string) Theme {
	if name == "light" {
		return LightTheme
	}
	return DarkTheme
}

// Terminal renders vm as plain lines styled with th.
func Terminal(vm results.ViewModel, th Theme) string {
	if !vm.HasResults {
		return ""
	}

	muted := lipgloss.NewStyle().Foreground(th.Muted)
	if vm.NoData {
		return muted.Render("No data found.") + "\n"
	}

	var b strings.Builder
	title := lipgloss.NewStyle().Bold(true).Foreground(th.Accent)
	fmt.Fprintf(&b, "%s  %s\n", title.Render("Results"), muted.Render(fmt.Sprintf("%d %s", vm.Total, utils.Plural(vm.Total, "number"))))

	tags := make([]string, 0, len(vm.Tags))
	for _, tg := range vm.Tags {
		st := lipgloss.NewStyle().Foreground(th.Foreground)
		label := fmt.Sprintf("%s (%d)", tg.Operator, tg.Count)
		if tg.Active {
			st = st.Bold(true).Background(th.TagActive)
			label = "[" + label + "]"
		}
		tags = append(tags, st.Render(label))
	}
	b.WriteString(strings.Join(tags, "  "))
	b.WriteString("\n")

	if vm.Hint != "" {
		b.WriteString(muted.Italic(true).Render(vm.Hint))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	line := lipgloss.NewStyle().Foreground(th.Foreground)
	for _, r := range vm.Rows {
		b.WriteString(line.Render(r.Raw + " - " + r.Operator))
		b.WriteString("\n")
	}
	return b.String()
}

// Error renders a failure message the way the results panel shows it.
func Error(msg string, th Theme) string {
	return lipgloss.NewStyle().Foreground(th.Error).Render("Error: "+msg) + "\n"
}
