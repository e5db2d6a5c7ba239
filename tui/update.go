package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			if !m.refreshing {
				m.refreshing = true
				return m, m.fetchCmd()
			}
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			m.selectedRow = 0
		case "h":
			m.activeTab = TabHost
			m.selectedRow = 0
		case "u":
			m.activeTab = TabRuns
			m.selectedRow = 0
		case "j", "down":
			if m.activeTab == TabRuns && m.selectedRow < len(m.recentRuns)-1 {
				m.selectedRow++
			}
		case "k", "up":
			if m.selectedRow > 0 {
				m.selectedRow--
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		cmds := []tea.Cmd{tickCmd(m.interval)}
		if !m.refreshing {
			m.refreshing = true
			cmds = append(cmds, m.fetchCmd())
		}
		return m, tea.Batch(cmds...)

	case SnapshotMsg:
		m.refreshing = false
		m.err = msg.Err
		if msg.Err == nil {
			if msg.Info != nil {
				m.info = msg.Info
			}
			if m.runs != nil {
				m.recentRuns = msg.Runs
			}
			m.lastRefresh = msg.At
		}
		if m.selectedRow >= len(m.recentRuns) && m.selectedRow > 0 {
			m.selectedRow = max(0, len(m.recentRuns)-1)
		}
	}

	return m, nil
}
