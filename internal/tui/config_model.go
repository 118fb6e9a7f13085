package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/medimate/internal/config"
	"github.com/diogo/medimate/internal/render"
)

// configView represents the current view in the config menu
type configView int

const (
	viewMain configView = iota
	viewThemeSelect    // Markdown theme
	viewTUIThemeSelect // TUI color theme
)

// Menu item indices for main view
const (
	menuTimeout = iota
	menuVerbose
	menuCopyToClipboard
	menuEmoji
	menuTableWrap
	menuTheme    // Markdown theme
	menuTUITheme // TUI color theme
	menuExit
	menuItemCount
)

// timeoutChoices are the request timeouts offered by the menu, in seconds
var timeoutChoices = []int{30, 60, 120, 300}

// feedbackClearMsg is sent to clear feedback messages
type feedbackClearMsg struct{}

// ConfigModel represents the config TUI state
type ConfigModel struct {
	config        config.Config
	configDir     string
	sessionPath   string
	sessionExists bool

	// save persists the configuration
	save func(config.Config) error

	// Navigation
	view           configView
	cursor         int
	themeCursor    int // Markdown theme cursor
	tuiThemeCursor int // TUI theme cursor

	// Feedback
	feedback        string
	feedbackTimeout time.Duration

	// Dimensions
	width  int
	height int
	ready  bool
}

// NewConfigModel creates a new config TUI model from the saved configuration
func NewConfigModel() ConfigModel {
	cfg, err := config.LoadConfig()
	if err != nil {
		cfg = config.DefaultConfig()
	}

	configDir, _ := config.GetConfigDir()
	sessionPath, _ := config.GetSessionPath()

	sessionExists := false
	if _, err := os.Stat(sessionPath); err == nil {
		sessionExists = true
	}

	themeCursor := indexOf(render.StyleNames(), cfg.Markdown.Style, render.StyleMediMate)

	currentTUITheme := cfg.TUITheme
	if currentTUITheme == "" {
		currentTUITheme = render.MediMateTheme.Name
	}
	tuiThemeCursor := indexOf(render.TUIThemeNames(), currentTUITheme, "")

	// Apply the configured TUI theme at startup
	if render.SetTUITheme(currentTUITheme) {
		UpdateTheme()
	}

	return ConfigModel{
		config:          cfg,
		configDir:       configDir,
		sessionPath:     sessionPath,
		sessionExists:   sessionExists,
		save:            config.SaveConfig,
		view:            viewMain,
		cursor:          0,
		themeCursor:     themeCursor,
		tuiThemeCursor:  tuiThemeCursor,
		feedbackTimeout: 2 * time.Second,
	}
}

// indexOf returns the position of want in names, or of fallback when want is empty
func indexOf(names []string, want, fallback string) int {
	if want == "" {
		want = fallback
	}
	for i, n := range names {
		if n == want {
			return i
		}
	}
	return 0
}

// Init initializes the model
func (m ConfigModel) Init() tea.Cmd {
	return nil
}

// clearFeedback returns a command that clears the feedback message after a delay
func clearFeedback(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return feedbackClearMsg{}
	})
}

// Update handles messages and updates the model
func (m ConfigModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case feedbackClearMsg:
		m.feedback = ""

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			if m.view != viewMain {
				m.view = viewMain
			} else {
				return m, tea.Quit
			}

		case "up", "k":
			m.moveCursor(-1)

		case "down", "j":
			m.moveCursor(1)

		case "enter", " ":
			return m.handleSelect()
		}
	}

	return m, nil
}

// moveCursor moves the cursor of the current view by delta, wrapping around
func (m *ConfigModel) moveCursor(delta int) {
	wrap := func(v, n int) int {
		return ((v % n) + n) % n
	}
	switch m.view {
	case viewMain:
		m.cursor = wrap(m.cursor+delta, menuItemCount)
	case viewThemeSelect:
		m.themeCursor = wrap(m.themeCursor+delta, len(render.StyleNames()))
	case viewTUIThemeSelect:
		m.tuiThemeCursor = wrap(m.tuiThemeCursor+delta, len(render.TUIThemeNames()))
	}
}

// saved persists the configuration and reports the new state of label
func (m ConfigModel) saved(label string, enabled bool) (tea.Model, tea.Cmd) {
	if err := m.save(m.config); err != nil {
		m.feedback = fmt.Sprintf("Error: %v", err)
	} else {
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		m.feedback = fmt.Sprintf("%s %s", label, state)
	}
	return m, clearFeedback(m.feedbackTimeout)
}

// handleSelect handles menu item selection
func (m ConfigModel) handleSelect() (tea.Model, tea.Cmd) {
	switch m.view {
	case viewMain:
		switch m.cursor {
		case menuTimeout:
			m.config.RequestTimeout = nextTimeout(m.config.RequestTimeout)
			if err := m.save(m.config); err != nil {
				m.feedback = fmt.Sprintf("Error: %v", err)
			} else {
				m.feedback = fmt.Sprintf("Request timeout set to %s", m.config.Timeout())
			}
			return m, clearFeedback(m.feedbackTimeout)

		case menuVerbose:
			m.config.Verbose = !m.config.Verbose
			return m.saved("Verbose logging", m.config.Verbose)

		case menuCopyToClipboard:
			m.config.CopyToClipboard = !m.config.CopyToClipboard
			return m.saved("Copy to clipboard", m.config.CopyToClipboard)

		case menuEmoji:
			m.config.Markdown.EnableEmoji = !m.config.Markdown.EnableEmoji
			return m.saved("Emoji", m.config.Markdown.EnableEmoji)

		case menuTableWrap:
			m.config.Markdown.TableWrap = !m.config.Markdown.TableWrap
			return m.saved("Table wrap", m.config.Markdown.TableWrap)

		case menuTheme:
			m.view = viewThemeSelect
			return m, nil

		case menuTUITheme:
			m.view = viewTUIThemeSelect
			return m, nil

		case menuExit:
			return m, tea.Quit
		}

	case viewThemeSelect:
		m.config.Markdown.Style = render.StyleNames()[m.themeCursor]
		if err := m.save(m.config); err != nil {
			m.feedback = fmt.Sprintf("Error: %v", err)
		} else {
			m.feedback = fmt.Sprintf("Markdown theme set to %s", m.config.Markdown.Style)
		}
		m.view = viewMain
		return m, clearFeedback(m.feedbackTimeout)

	case viewTUIThemeSelect:
		selectedTheme := render.TUIThemeNames()[m.tuiThemeCursor]
		m.config.TUITheme = selectedTheme

		// Apply the new TUI theme immediately
		render.SetTUITheme(selectedTheme)
		UpdateTheme()

		if err := m.save(m.config); err != nil {
			m.feedback = fmt.Sprintf("Error: %v", err)
		} else {
			m.feedback = fmt.Sprintf("TUI theme set to %s", selectedTheme)
		}
		m.view = viewMain
		return m, clearFeedback(m.feedbackTimeout)
	}

	return m, nil
}

// nextTimeout returns the choice after current, starting over past the last one
func nextTimeout(current int) int {
	for i, c := range timeoutChoices {
		if c == current {
			return timeoutChoices[(i+1)%len(timeoutChoices)]
		}
	}
	for _, c := range timeoutChoices {
		if c > current {
			return c
		}
	}
	return timeoutChoices[0]
}

// View renders the TUI
func (m ConfigModel) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	var sections []string
	contentWidth := m.width - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	// Header
	headerContent := configTitleStyle.Render("⚕ MediMate Configuration")
	header := configHeaderStyle.Width(contentWidth).Render(headerContent)
	sections = append(sections, header)

	// Paths panel
	pathsTitle := configSectionTitleStyle.Render("Paths")

	var sessionStatus string
	if m.sessionExists {
		sessionStatus = configStatusOkStyle.Render("✓ signed in")
	} else {
		sessionStatus = configStatusErrorStyle.Render("✗ not signed in")
	}

	pathsContent := lipgloss.JoinVertical(lipgloss.Left,
		pathsTitle,
		fmt.Sprintf("   Backend: %s", configValueStyle.Render(m.config.BackendURL)),
		fmt.Sprintf("   Config:  %s", configPathStyle.Render(m.configDir+"/config.json")),
		fmt.Sprintf("   Session: %s  %s", configPathStyle.Render(m.sessionPath), sessionStatus),
		fmt.Sprintf("   Log:     %s", configPathStyle.Render(m.config.LogFile)),
		fmt.Sprintf("   Exports: %s", configPathStyle.Render(m.config.ExportDir)),
	)
	sections = append(sections, configPanelStyle.Width(contentWidth).Render(pathsContent))

	// Settings panel
	var settingsContent string
	switch m.view {
	case viewMain:
		settingsContent = m.renderMainMenu()
	case viewThemeSelect:
		settingsContent = m.renderThemeSelect()
	case viewTUIThemeSelect:
		settingsContent = m.renderTUIThemeSelect()
	}
	sections = append(sections, configPanelStyle.Width(contentWidth).Render(settingsContent))

	if m.feedback != "" {
		sections = append(sections, configFeedbackStyle.Render("✓ "+m.feedback))
	}

	sections = append(sections, m.renderStatusBar(contentWidth))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// menuLine renders one row of a menu, highlighted when selected
func menuLine(selected bool, label, value string) string {
	cursor := "  "
	style := configMenuItemStyle
	if selected {
		cursor = configCursorStyle.Render("▸ ")
		style = configMenuSelectedStyle
	}
	if value == "" {
		return cursor + style.Render(label)
	}
	const labelWidth = 20
	pad := labelWidth - lipgloss.Width(label)
	if pad < 1 {
		pad = 1
	}
	return cursor + style.Render(label) + strings.Repeat(" ", pad) + value
}

// renderMainMenu renders the main settings menu
func (m ConfigModel) renderMainMenu() string {
	title := configSectionTitleStyle.Render("Settings")

	currentTheme := m.config.Markdown.Style
	if currentTheme == "" {
		currentTheme = render.StyleMediMate
	}

	items := []string{
		menuLine(m.cursor == menuTimeout, "Request Timeout", configValueStyle.Render(m.config.Timeout().String())),
		menuLine(m.cursor == menuVerbose, "Verbose Logging", m.renderBoolValue(m.config.Verbose)),
		menuLine(m.cursor == menuCopyToClipboard, "Copy to Clipboard", m.renderBoolValue(m.config.CopyToClipboard)),
		menuLine(m.cursor == menuEmoji, "Emoji", m.renderBoolValue(m.config.Markdown.EnableEmoji)),
		menuLine(m.cursor == menuTableWrap, "Table Wrap", m.renderBoolValue(m.config.Markdown.TableWrap)),
		menuLine(m.cursor == menuTheme, "Markdown Theme", configValueStyle.Render(currentTheme)),
		menuLine(m.cursor == menuTUITheme, "TUI Theme", configValueStyle.Render(m.config.TUITheme)),
		"",
		menuLine(m.cursor == menuExit, "Exit", ""),
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		append([]string{title, ""}, items...)...,
	)
}

// renderThemeSelect renders the markdown theme selection sub-menu
func (m ConfigModel) renderThemeSelect() string {
	title := configSectionTitleStyle.Render("Select Markdown Theme")

	currentTheme := m.config.Markdown.Style
	if currentTheme == "" {
		currentTheme = render.StyleMediMate
	}

	var items []string
	for i, theme := range render.AvailableStyles() {
		current := ""
		if theme.Name == currentTheme {
			current = configStatusOkStyle.Render(" (current)")
		}
		text := fmt.Sprintf("%s - %s", theme.Name, theme.Description)
		items = append(items, menuLine(m.themeCursor == i, text, "")+current)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		append([]string{title, ""}, items...)...,
	)
}

// renderTUIThemeSelect renders the TUI color theme selection sub-menu
func (m ConfigModel) renderTUIThemeSelect() string {
	title := configSectionTitleStyle.Render("Select TUI Theme")

	var items []string
	for i, theme := range render.AvailableTUIThemes() {
		current := ""
		if theme.Name == m.config.TUITheme {
			current = configStatusOkStyle.Render(" (current)")
		}
		text := fmt.Sprintf("%s - %s", theme.Name, theme.Description)
		items = append(items, menuLine(m.tuiThemeCursor == i, text, "")+current)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		append([]string{title, ""}, items...)...,
	)
}

// renderBoolValue renders a boolean value with appropriate styling
func (m ConfigModel) renderBoolValue(value bool) string {
	if value {
		return configEnabledStyle.Render("enabled")
	}
	return configDisabledStyle.Render("disabled")
}

// renderStatusBar renders the bottom status bar
func (m ConfigModel) renderStatusBar(width int) string {
	escDesc := "Exit"
	if m.view != viewMain {
		escDesc = "Back"
	}
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"↑↓", "Navigate"},
		{"Enter", "Select"},
		{"Esc", escDesc},
	}

	var items []string
	for _, s := range shortcuts {
		item := lipgloss.JoinHorizontal(
			lipgloss.Center,
			statusKeyStyle.Render(s.key),
			statusDescStyle.Render(" "+s.desc),
		)
		items = append(items, item)
	}

	bar := strings.Join(items, "  │  ")
	return configStatusBarStyle.Width(width).Align(lipgloss.Center).Render(bar)
}

// RunConfig starts the config TUI
func RunConfig() error {
	m := NewConfigModel()

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
