package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/hochfrequenz/loadspike/internal/domain"
)

var (
	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	criticalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimmedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("255"))

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Underline(true)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("244"))

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("237"))
)

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	host := "-"
	if m.info != nil {
		host = m.info.System.Hostname
	}
	header := fmt.Sprintf(" loadspike watch │ Host: %s │ Runs shown: %d ", host, len(m.recentRuns))
	b.WriteString(headerStyle.Width(m.width).Render(header))
	b.WriteString("\n")

	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	var section string
	switch m.activeTab {
	case TabRuns:
		section = m.renderRuns()
	default:
		section = m.renderHost()
	}
	b.WriteString(sectionStyle.Width(m.width - 2).Render(section))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(criticalStyle.Width(m.width).Render(" Error: " + m.err.Error()))
		b.WriteString("\n")
	}

	refreshed := "never"
	if !m.lastRefresh.IsZero() {
		refreshed = m.lastRefresh.Format("15:04:05")
	}
	statusBar := fmt.Sprintf(" [tab]switch [h]ost [u]runs [j/k]scroll [r]efresh [q]uit │ refreshed %s ", refreshed)
	b.WriteString(statusBarStyle.Width(m.width).Render(statusBar))

	return b.String()
}

func (m Model) renderTabs() string {
	names := []string{"Host", "Runs"}
	tabs := make([]string, len(names))
	for i, name := range names {
		if i == m.activeTab {
			tabs[i] = tabActiveStyle.Render(name)
		} else {
			tabs[i] = tabInactiveStyle.Render(name)
		}
	}
	return " " + strings.Join(tabs, "  ")
}

func (m Model) renderHost() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("HOST"))
	b.WriteString("\n")

	if m.info == nil {
		b.WriteString(dimmedStyle.Render("  waiting for first sample..."))
		return b.String()
	}

	barWidth := m.width - 30
	if barWidth < 10 {
		barWidth = 10
	}
	if barWidth > 60 {
		barWidth = 60
	}

	info := m.info
	b.WriteString(renderGauge("CPU", info.CPU.Percent, barWidth))
	b.WriteString(fmt.Sprintf("  %d cores\n", info.CPU.Count))
	b.WriteString(renderGauge("Memory", info.Memory.Percent, barWidth))
	b.WriteString(fmt.Sprintf("  %s / %s\n", humanize.IBytes(info.Memory.Used), humanize.IBytes(info.Memory.Total)))
	b.WriteString(renderGauge("Swap", info.Swap.Percent, barWidth))
	b.WriteString("\n")

	if len(info.CPU.PerCore) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("PER CORE"))
		b.WriteString("\n")
		for i, pct := range info.CPU.PerCore {
			b.WriteString(renderGauge(fmt.Sprintf("cpu%d", i), pct, barWidth/2))
			b.WriteString("\n")
		}
	}

	if len(info.Processes) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("TOP PROCESSES"))
		b.WriteString("\n")
		for _, p := range info.Processes {
			b.WriteString(fmt.Sprintf("  %7d  %-24s %6.1f%% cpu %6.1f%% mem\n", p.PID, truncate(p.Name, 24), p.CPUPercent, p.MemoryPercent))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderRuns() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("RECENT RUNS"))
	b.WriteString("\n")

	if len(m.recentRuns) == 0 {
		b.WriteString(dimmedStyle.Render("  no runs recorded"))
		return b.String()
	}

	b.WriteString(dimmedStyle.Render(fmt.Sprintf("  %-20s %4s %-22s %8s  %s", "STARTED", "CPU", "MEMORY HELD/PLANNED", "DURATION", "RESULT")))
	b.WriteString("\n")
	for i, r := range m.recentRuns {
		line := fmt.Sprintf("  %-20s %4d %-22s %8s  %s",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.CPUWorkerCount,
			humanize.IBytes(r.MemoryAllocatedBytes)+"/"+humanize.IBytes(r.MemoryTargetBytes),
			(time.Duration(r.RunDurationSeconds) * time.Second).String(),
			runResult(r))
		if i == m.selectedRow {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func runResult(r *domain.RunReport) string {
	switch {
	case !r.Completed:
		return criticalStyle.Render("incomplete")
	case r.AbandonedWorkers > 0:
		return warningStyle.Render(fmt.Sprintf("%d abandoned", r.AbandonedWorkers))
	case r.FailedAllocations > 0:
		return warningStyle.Render(fmt.Sprintf("%d alloc failed", r.FailedAllocations))
	default:
		return okStyle.Render("ok")
	}
}

// renderGauge draws a labelled percentage bar
func renderGauge(label string, pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	style := okStyle
	switch {
	case pct >= 90:
		style = criticalStyle
	case pct >= 70:
		style = warningStyle
	}
	return fmt.Sprintf("  %-7s %s %5.1f%%", label, style.Render(bar), pct)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
