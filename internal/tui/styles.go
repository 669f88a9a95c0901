package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/allysonai/allyson/pkg/domain"
)

// Shimmer animation for the ALLYSON wordmark.
type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// renderShimmerLogo renders "ALLYSON" as a slow wave of light moving from
// zinc (#52525b) to sky (#7dd3fc).
func renderShimmerLogo(frame int) string {
	const text = "ALLYSON"
	n := len(text)
	t := float64(frame)

	var out strings.Builder
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)
		b := math.Sin(t*0.08-x*3.0)*0.5 + 0.5
		b = b*0.8 + 0.2

		r := clampByte(82 + b*(125-82))
		g := clampByte(82 + b*(211-82))
		bl := clampByte(91 + b*(252-91))

		s := lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", r, g, bl)))
		out.WriteString(s.Render(string(text[i])))
		if i < n-1 {
			out.WriteString(" ")
		}
	}
	return out.String()
}

func clampByte(v float64) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return int(v)
}

var (
	// Base styles: zinc palette of the web app
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4e7")).
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	// Help bar
	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	helpLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	accentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7dd3fc"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4e7")).
			Bold(true)

	balanceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#e4e4e7"))

	// Buttons on the website page
	buttonStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#27272a")).
			Foreground(lipgloss.Color("#e4e4e7")).
			Padding(0, 2)

	buttonFocusStyle = buttonStyle.
				BorderForeground(lipgloss.Color("#7dd3fc"))

	dangerButtonStyle = buttonStyle.
				BorderForeground(lipgloss.Color("#7f1d1d")).
				Foreground(lipgloss.Color("#b91c1c"))

	dangerButtonFocusStyle = dangerButtonStyle.
				BorderForeground(lipgloss.Color("#ef4444"))

	infoBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#075985")).
			Foreground(lipgloss.Color("#0ea5e9")).
			Padding(0, 1)

	// Notifications
	toastSuccessStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#4ade80"))

	toastErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#f87171"))

	// Menu overlay
	menuBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#27272a")).
			Padding(0, 1)
)

// statusDotStyle colors the dot in front of a session's status.
func statusDotStyle(s domain.Status) lipgloss.Style {
	var c string
	switch s {
	case domain.StatusActive:
		c = "#22c55e"
	case domain.StatusHumanInput:
		c = "#eab308"
	case domain.StatusCompleted:
		c = "#3b82f6"
	default:
		c = "#71717a"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
}

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

func helpBar(entries ...[2]string) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = helpEntry(e[0], e[1])
	}
	return strings.Join(parts, "  ")
}
