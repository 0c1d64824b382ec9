package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderTable writes rows under headers in aligned columns.
func renderTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	line := func(cells []string, style lipgloss.Style) string {
		rendered := make([]string, len(cells))
		for i, cell := range cells {
			rendered[i] = style.Width(widths[i] + 2).Render(cell)
		}
		return strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, rendered...), " ")
	}

	fmt.Fprintln(w, line(headers, headerCellStyle))
	for _, row := range rows {
		fmt.Fprintln(w, line(row, cellStyle))
	}
}

func success(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, SuccessStyle.Render(markSuccess)+" "+fmt.Sprintf(format, args...))
}

func failure(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, ErrorStyle.Render(markFailure)+" "+fmt.Sprintf(format, args...))
}

func warning(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, WarningStyle.Render(markWarning)+" "+fmt.Sprintf(format, args...))
}
