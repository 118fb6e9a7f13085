// Package tui provides the terminal user interface for medimate.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/medimate/internal/errors"
	"github.com/diogo/medimate/internal/models"
	"github.com/diogo/medimate/internal/nav"
	"github.com/diogo/medimate/internal/render"
)

// Color variables (updated from theme)
var (
	// Base colors
	colorSurface lipgloss.Color
	colorBorder  lipgloss.Color

	// Accent colors
	colorPrimary   lipgloss.Color
	colorSecondary lipgloss.Color
	colorAccent    lipgloss.Color
	colorWarning   lipgloss.Color
	colorError     lipgloss.Color

	// Text colors
	colorText     lipgloss.Color
	colorTextDim  lipgloss.Color
	colorTextMute lipgloss.Color

	// Bubbles
	colorUserBubble      lipgloss.Color
	colorUserText        lipgloss.Color
	colorAssistantBubble lipgloss.Color
)

// Style variables (rebuilt when theme changes)
var (
	// Navigation bar
	navStyles nav.Styles

	// Disclaimer banner
	disclaimerStyle lipgloss.Style

	// Hint text style
	hintStyle lipgloss.Style

	// Messages area panel
	messagesAreaStyle lipgloss.Style

	// User message bubble
	userBubbleStyle lipgloss.Style
	userLabelStyle  lipgloss.Style

	// Assistant message bubble
	assistantBubbleStyle lipgloss.Style
	assistantLabelStyle  lipgloss.Style

	// Input area panel
	inputPanelStyle lipgloss.Style
	inputLabelStyle lipgloss.Style

	// Submit control
	sendButtonStyle   lipgloss.Style
	sendDisabledStyle lipgloss.Style

	// Loading/spinner style
	loadingStyle lipgloss.Style

	// Status bar styles
	statusBarStyle  lipgloss.Style
	statusKeyStyle  lipgloss.Style
	statusDescStyle lipgloss.Style

	// Footer and notices
	footerStyle lipgloss.Style
	noticeStyle lipgloss.Style

	// Error style
	errorStyle lipgloss.Style

	// Welcome styles
	welcomeTitleStyle    lipgloss.Style
	welcomeIconStyle     lipgloss.Style
	welcomeSubtitleStyle lipgloss.Style
	welcomeExampleStyle  lipgloss.Style

	// Config menu styles
	configHeaderStyle       lipgloss.Style
	configTitleStyle        lipgloss.Style
	configPanelStyle        lipgloss.Style
	configSectionTitleStyle lipgloss.Style
	configMenuItemStyle     lipgloss.Style
	configMenuSelectedStyle lipgloss.Style
	configCursorStyle       lipgloss.Style
	configValueStyle        lipgloss.Style
	configEnabledStyle      lipgloss.Style
	configDisabledStyle     lipgloss.Style
	configPathStyle         lipgloss.Style
	configStatusOkStyle     lipgloss.Style
	configStatusErrorStyle  lipgloss.Style
	configFeedbackStyle     lipgloss.Style
	configStatusBarStyle    lipgloss.Style
)

// init loads the default theme on package initialization
func init() {
	UpdateTheme()
}

// UpdateTheme refreshes all styles based on the current TUI theme
func UpdateTheme() {
	theme := render.GetTUITheme()

	// Update color variables
	colorSurface = theme.Surface
	colorBorder = theme.Border
	colorPrimary = theme.Primary
	colorSecondary = theme.Secondary
	colorAccent = theme.Accent
	colorWarning = theme.Warning
	colorError = theme.Error
	colorText = theme.Text
	colorTextDim = theme.TextDim
	colorTextMute = theme.TextMute
	colorUserBubble = theme.UserBubble
	colorUserText = theme.UserText
	colorAssistantBubble = theme.AssistantBubble

	navStyles = nav.NewStyles(theme)

	// Rebuild all styles with new colors
	rebuildStyles()
}

// rebuildStyles creates all lipgloss styles with current color values
func rebuildStyles() {
	disclaimerStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorWarning).
		Foreground(colorWarning).
		Bold(true).
		Padding(0, 1).
		Align(lipgloss.Center)

	hintStyle = lipgloss.NewStyle().
		Foreground(colorTextMute).
		Italic(true)

	messagesAreaStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)

	userBubbleStyle = lipgloss.NewStyle().
		Background(colorUserBubble).
		Foreground(colorUserText).
		Padding(0, 1)

	userLabelStyle = lipgloss.NewStyle().
		Foreground(colorSecondary).
		Bold(true)

	assistantBubbleStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorAssistantBubble).
		Foreground(colorText).
		Padding(0, 1)

	assistantLabelStyle = lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true)

	inputPanelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)

	inputLabelStyle = lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true).
		MarginRight(1)

	sendButtonStyle = lipgloss.NewStyle().
		Foreground(colorUserText).
		Background(colorPrimary).
		Bold(true).
		Padding(0, 1)

	sendDisabledStyle = lipgloss.NewStyle().
		Foreground(colorTextMute).
		Background(colorSurface).
		Padding(0, 1)

	loadingStyle = lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true)

	statusBarStyle = lipgloss.NewStyle().
		Foreground(colorTextMute)

	statusKeyStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Bold(true)

	statusDescStyle = lipgloss.NewStyle().
		Foreground(colorTextMute)

	footerStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Faint(true).
		Align(lipgloss.Center)

	noticeStyle = lipgloss.NewStyle().
		Foreground(colorSecondary).
		Italic(true)

	errorStyle = lipgloss.NewStyle().
		Foreground(colorError).
		Bold(true)

	welcomeIconStyle = lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true)

	welcomeTitleStyle = lipgloss.NewStyle().
		Foreground(colorText).
		Bold(true)

	welcomeSubtitleStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Align(lipgloss.Center)

	welcomeExampleStyle = lipgloss.NewStyle().
		Foreground(colorAccent)

	// Config menu styles
	configHeaderStyle = lipgloss.NewStyle().
		Foreground(colorPrimary).
		Bold(true).
		MarginBottom(1).
		Align(lipgloss.Center)

	configTitleStyle = lipgloss.NewStyle().
		Foreground(colorText).
		Bold(true).
		MarginBottom(1).
		PaddingLeft(1)

	configPanelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(1, 2)

	configSectionTitleStyle = lipgloss.NewStyle().
		Foreground(colorSecondary).
		Bold(true).
		MarginTop(1).
		MarginBottom(0)

	configMenuItemStyle = lipgloss.NewStyle().
		Foreground(colorText).
		PaddingLeft(2)

	configMenuSelectedStyle = lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true).
		PaddingLeft(0)

	configCursorStyle = lipgloss.NewStyle().
		Foreground(colorAccent)

	configValueStyle = lipgloss.NewStyle().
		Foreground(colorTextDim)

	configEnabledStyle = lipgloss.NewStyle().
		Foreground(colorSecondary)

	configDisabledStyle = lipgloss.NewStyle().
		Foreground(colorError)

	configPathStyle = lipgloss.NewStyle().
		Foreground(colorTextMute).
		Italic(true)

	configStatusOkStyle = lipgloss.NewStyle().
		Foreground(colorSecondary)

	configStatusErrorStyle = lipgloss.NewStyle().
		Foreground(colorError)

	configFeedbackStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Italic(true).
		MarginTop(1)

	configStatusBarStyle = lipgloss.NewStyle().
		Foreground(colorTextMute).
		MarginTop(1).
		Align(lipgloss.Center)
}

// errorHint suggests what to do about err, or returns ""
func errorHint(err error) string {
	switch {
	case errors.IsCanceled(err):
		return "Request canceled. Your question is still in the conversation, ask again when ready"
	case errors.IsAuthError(err):
		return fmt.Sprintf("Try '%s login' to refresh your session", models.BinName)
	case errors.IsTimeoutError(err):
		return "Request timed out. Try again"
	case errors.IsNetworkError(err):
		return "Check that the MediMate backend is reachable"
	case errors.IsParseError(err):
		return "The backend sent a reply MediMate could not read"
	}
	return ""
}

// FormatError returns a styled error message with additional context
// taken from the typed errors in the chain.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	errStyle := lipgloss.NewStyle().Foreground(colorError)
	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	sb.WriteString(errStyle.Render(fmt.Sprintf("✗ %v", err)))

	if status := errors.GetHTTPStatus(err); status > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}

	if endpoint := errors.GetEndpoint(err); endpoint != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Endpoint: %s", endpoint)))
	}

	// The raw body usually explains more than any hint
	if body := errors.GetResponseBody(err); body != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n\n  %s", strings.ReplaceAll(body, "\n", "\n  "))))
	} else if hint := errorHint(err); hint != "" {
		sb.WriteString(dimStyle.Render("\n  Hint: " + hint))
	}

	return sb.String()
}

// PrintError prints a styled error message to stdout.
func PrintError(err error) {
	if err == nil {
		return
	}
	fmt.Println(FormatError(err))
}
