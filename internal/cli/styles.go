// Package cli runs an invoicing conversation in the terminal.
package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/garyjia/factura-chat/internal/domain/entity"
)

var (
	// AccentColor is the main theme color.
	AccentColor = lipgloss.Color("#4ECDC4")
	// ErrorColor indicates errors or failure messages.
	ErrorColor = lipgloss.Color("#FF6B6B")
	// SubtleColor indicates less prominent UI elements.
	SubtleColor = lipgloss.Color("#666666")

	// TitleStyle is used for the banner.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(AccentColor)

	// UserStyle labels what the user typed.
	UserStyle = lipgloss.NewStyle().
			Bold(true)

	// AssistantStyle labels assistant replies.
	AssistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(AccentColor)

	// ErrorStyle formats error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// SubtleStyle formats hints and the stage line.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// PromptStyle is used for the input prompt.
	PromptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(AccentColor)
)

// RenderTurn formats one chat message; multi-line replies are indented under the label.
func RenderTurn(turn entity.ChatTurn) string {
	label := AssistantStyle.Render("Asistente:")
	if turn.Speaker == entity.SpeakerUser {
		label = UserStyle.Render("Vos:")
	}

	lines := strings.Split(turn.Text, "\n")
	var b strings.Builder
	b.WriteString(label)
	b.WriteString(" ")
	b.WriteString(lines[0])
	for _, line := range lines[1:] {
		b.WriteString("\n    ")
		b.WriteString(line)
	}
	return b.String()
}

// FormatError formats an error line.
func FormatError(msg string) string {
	return ErrorStyle.Render("✗ " + msg)
}

// FormatHint formats a secondary line such as the current stage.
func FormatHint(msg string) string {
	return SubtleStyle.Render(msg)
}
