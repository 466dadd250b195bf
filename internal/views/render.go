package views

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

type AppData struct {
	Header       string
	TabBar       string
	Body         string
	StatusLine   string
	Notification string
	Footer       string
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	tabStyle      = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("8"))
	activeTab     = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	overdueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func RenderApp(data AppData) string {
	status := statusStyle.Render(data.StatusLine)
	if strings.Contains(strings.ToLower(data.StatusLine), "ошибка") ||
		strings.Contains(strings.ToLower(data.StatusLine), "error") {
		status = errorStyle.Render(data.StatusLine)
	}

	lines := []string{
		headerStyle.Render(data.Header),
		data.TabBar,
		panelStyle.Render(data.Body),
		status,
	}
	if data.Notification != "" {
		lines = append(lines, panelStyle.Render(data.Notification))
	}
	if data.Footer != "" {
		lines = append(lines, footerStyle.Render(data.Footer))
	}
	return strings.Join(lines, "\n")
}

func RenderTabBar(tabs []string, active int) string {
	rendered := make([]string, 0, len(tabs))
	for i, name := range tabs {
		if i == active {
			rendered = append(rendered, activeTab.Render(name))
			continue
		}
		rendered = append(rendered, tabStyle.Render(name))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func RenderMarkdown(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	out, err := glamour.Render(md, "dark")
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}
