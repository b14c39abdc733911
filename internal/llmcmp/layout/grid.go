package layout

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Panel is one model's box in the terminal grid.
type Panel struct {
	Title string // model label
	Badge string // provider
	Body  string // already formatted response text
}

const (
	panelGap      = 1
	panelChrome   = 4 // border + horizontal padding
	minPanelWidth = 20
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true)
	badgeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// ContentWidth returns the text width available inside a panel when a row
// of rowLen panels shares totalWidth columns.
func ContentWidth(totalWidth, rowLen int) int {
	if rowLen < 1 {
		rowLen = 1
	}
	w := (totalWidth-panelGap*(rowLen-1))/rowLen - panelChrome
	return max(w, minPanelWidth)
}

// Grid draws panels in the rows chosen by Rows, each row filling width columns.
func Grid(panels []Panel, width int) string {
	rows := Rows(panels)
	rendered := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		inner := ContentWidth(width, len(row))
		boxes := make([]string, 0, len(row)*2)
		for i, p := range row {
			if i > 0 {
				boxes = append(boxes, lipgloss.NewStyle().Width(panelGap).Render(""))
			}
			boxes = append(boxes, renderPanel(p, inner))
		}
		rendered = append(rendered, lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rendered...)
}

func renderPanel(p Panel, inner int) string {
	titleWidth := max(inner-runewidth.StringWidth(p.Badge)-1, 1)
	header := titleStyle.Render(runewidth.Truncate(p.Title, titleWidth, "…"))
	if p.Badge != "" {
		header += " " + badgeStyle.Render(p.Badge)
	}
	body := lipgloss.JoinVertical(lipgloss.Left, header, "", p.Body)
	return panelStyle.Width(inner + 2).Render(body)
}
