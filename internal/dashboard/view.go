package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorAccent  = lipgloss.Color("#a855f7")
	colorHealthy = lipgloss.Color("#22c55e")
	colorWarning = lipgloss.Color("#d97706")
	colorDanger  = lipgloss.Color("#dc2626")
	colorDimmed  = lipgloss.Color("#6b7280")
	colorBright  = lipgloss.Color("#f9fafb")
	colorBorder  = lipgloss.Color("#4b5563")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBright)

	statBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 2).
			Align(lipgloss.Center)

	statValueStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	statLabelStyle = lipgloss.NewStyle().Foreground(colorDimmed)

	bubbleStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1)

	sessionStyle = lipgloss.NewStyle().Foreground(colorBright)
	dimStyle     = lipgloss.NewStyle().Foreground(colorDimmed)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarning)
	dangerStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorDanger)
	okStyle      = lipgloss.NewStyle().Foreground(colorHealthy)
)

func (m *Model) View() string {
	var sections []string

	sections = append(sections, m.viewHeader())

	if m.settings.ShowStats {
		sections = append(sections, m.viewStats())
	}
	if m.settings.ShowBubbles {
		if bubbles := m.viewBubbles(); bubbles != "" {
			sections = append(sections, bubbles)
		}
	}
	if m.settings.ShowSessions && len(m.sessions) > 0 {
		sections = append(sections, m.viewSessions())
	}

	sections = append(sections, m.viewFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) viewHeader() string {
	name := m.eventName
	if name == "" {
		name = m.eventID
	}
	title := titleStyle.Render(name)

	var conn string
	switch {
	case m.degraded:
		conn = dangerStyle.Render("● connection lost — please refresh")
	case m.connected:
		conn = okStyle.Render("● live")
	default:
		conn = warnStyle.Render("○ reconnecting…")
	}

	sound := "sound off"
	if m.settings.SoundEnabled {
		sound = m.settings.Mode.String()
		if m.settings.Mode == ModeTune && m.songName != "" {
			sound = fmt.Sprintf("tune: %s (note %d/%d)", m.songName, m.sequencer.Cursor()+1, m.sequencer.Len())
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Center,
		title, "  ", conn, "  ", dimStyle.Render(sound),
	)
}

func (m *Model) viewStats() string {
	totals := m.stats.Totals()
	boxes := []string{
		statBox(totals.TotalAttendees, "attendees"),
		statBox(totals.EventCheckins, "event check-ins"),
		statBox(totals.SessionCheckins, "session check-ins"),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
}

func statBox(value int, label string) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		statValueStyle.Render(fmt.Sprintf("%d", value)),
		statLabelStyle.Render(label),
	)
	return statBoxStyle.Render(content)
}

func (m *Model) viewBubbles() string {
	items := m.queue.Items()
	if len(items) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(items))
	for _, item := range items {
		rendered = append(rendered, bubbleStyle.Render(item.Message.Message))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rendered...)
}

func (m *Model) viewSessions() string {
	var b strings.Builder
	b.WriteString(dimStyle.Render("happening now") + "\n")
	for _, s := range m.sessions {
		line := sessionStyle.Render(s.Name)
		count := fmt.Sprintf("%d", s.CheckinCount)
		if s.Capacity > 0 {
			count = fmt.Sprintf("%d/%d", s.CheckinCount, s.Capacity)
		}
		line += dimStyle.Render("  " + count)
		if s.Location != "" {
			line += dimStyle.Render("  @ " + s.Location)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) viewFooter() string {
	help := dimStyle.Render("q quit · s sound · m mode · n song · e envelope · r reverb · +/- mix · b/i/a panels · t test")
	if m.lastWarning != "" {
		return lipgloss.JoinVertical(lipgloss.Left,
			warnStyle.Render("⚠ "+m.lastWarning),
			help,
		)
	}
	return help
}
