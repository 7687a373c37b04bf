package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
)

var (
	dimColor    = lipgloss.Color("#6c6c6c")
	accentColor = lipgloss.Color("#7aa2f7")
	okColor     = lipgloss.Color("#9ece6a")
	warnColor   = lipgloss.Color("#e0af68")
	errorColor  = lipgloss.Color("#f7768e")
)

var (
	okStyle     = lipgloss.NewStyle().Foreground(okColor)
	errorStyle  = lipgloss.NewStyle().Foreground(errorColor)
	dimStyle    = lipgloss.NewStyle().Foreground(dimColor)
	headerStyle = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	methodStyle = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
)

// statusStyle colours an HTTP status by class.
func statusStyle(code int) lipgloss.Style {
	switch {
	case code >= 500:
		return errorStyle
	case code >= 400:
		return lipgloss.NewStyle().Foreground(warnColor)
	default:
		return okStyle
	}
}

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

// copyText puts text on the clipboard. A missing clipboard is a warning.
func copyText(w io.Writer, text string) {
	if err := writeClipboard(text); err != nil {
		fmt.Fprintln(w, dimStyle.Render("clipboard unavailable: "+err.Error()))
		return
	}
	fmt.Fprintln(w, dimStyle.Render("copied to clipboard"))
}

// printTable writes rows as tab-free aligned columns with a styled header.
func printTable(w io.Writer, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	line := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			if i == len(cells)-1 {
				parts[i] = c
				continue
			}
			parts[i] = c + strings.Repeat(" ", widths[i]-len(c))
		}
		return strings.Join(parts, "  ")
	}

	fmt.Fprintln(w, headerStyle.Render(line(header)))
	for _, row := range rows {
		fmt.Fprintln(w, line(row))
	}
}
