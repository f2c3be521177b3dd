// Package report renders flow progress and verification state for the
// terminal. Everything here is a pure function of already-computed state;
// rendering never touches the event logs.
//
// Colors follow the Ayu theme, adaptive between light and dark
// terminals: https://terminalcolors.com/themes/ayu/
package report

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func ayu(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

// Semantic status colors.
var (
	ColorPass   = ayu("#86b300", "#c2d94c")
	ColorWarn   = ayu("#f2ae49", "#ffb454")
	ColorFail   = ayu("#f07171", "#f07178")
	ColorMuted  = ayu("#828c99", "#6c7680")
	ColorAccent = ayu("#399ee6", "#59c2ff")
)

var (
	PassStyle   = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle   = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle = lipgloss.NewStyle().Foreground(ColorAccent)

	// HeaderStyle marks block headers.
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)

	// BoxStyle wraps a flow progress block in a rounded border.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1)
)

// Status icons.
const (
	IconPass = "✓"
	IconWarn = "⚠"
	IconFail = "✗"
	IconSkip = "-"
	IconTodo = "○"
)

// Phase icons. The emoji variants are swapped for ASCII when the
// terminal opts out of emoji.
const (
	IconPhaseDone    = "✅"
	IconPhaseActive  = "🔄"
	IconPhasePending = "⬜"
)

// Separator lines for section breaks.
const (
	SeparatorLight = "──────────────────────────────────────────"
	SeparatorHeavy = "══════════════════════════════════════════"
)

// RenderPass styles text as passing (green).
func RenderPass(s string) string { return PassStyle.Render(s) }

// RenderWarn styles text as a warning (yellow).
func RenderWarn(s string) string { return WarnStyle.Render(s) }

// RenderFail styles text as failing (red).
func RenderFail(s string) string { return FailStyle.Render(s) }

// RenderMuted styles text as secondary detail (gray).
func RenderMuted(s string) string { return MutedStyle.Render(s) }

// RenderAccent styles text as highlighted (blue).
func RenderAccent(s string) string { return AccentStyle.Render(s) }

// RenderHeader uppercases and bolds a block header.
func RenderHeader(s string) string { return HeaderStyle.Render(strings.ToUpper(s)) }

// RenderSeparator renders the light separator line, muted.
func RenderSeparator() string { return MutedStyle.Render(SeparatorLight) }

// phaseIcon maps a phase's progress to its display icon.
func phaseIcon(done, active bool) string {
	if ShouldUseEmoji() {
		switch {
		case done:
			return IconPhaseDone
		case active:
			return IconPhaseActive
		default:
			return IconPhasePending
		}
	}
	switch {
	case done:
		return IconPass
	case active:
		return "~"
	default:
		return IconTodo
	}
}
