package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/medimate/internal/conversation"
	"github.com/diogo/medimate/internal/models"
	"github.com/diogo/medimate/internal/nav"
	"github.com/diogo/medimate/internal/render"
	"github.com/diogo/medimate/internal/session"
	"github.com/diogo/medimate/internal/transcript"
)

// Message types for the TUI
type (
	// replyMsg is returned by the dispatch command once the request settled
	replyMsg struct {
		seq uint64
		err error
	}
	// stateChangedMsg signals that the store changed outside the event loop
	stateChangedMsg struct{}
	// signedOutMsg reports the outcome of a sign-out
	signedOutMsg struct {
		err error
	}
)

// ChatOptions carries the collaborators of the chat screen
type ChatOptions struct {
	// Formatter renders assistant replies and static pages. Defaults to render.Plain.
	Formatter render.Formatter
	// Session supplies the avatar and the sign-out action. May be nil.
	Session session.Provider
	// ExportDir receives /export files
	ExportDir string
	// Clipboard writes text to the system clipboard. Defaults to clipboard.WriteAll.
	Clipboard func(string) error
}

// Model represents the TUI state
type Model struct {
	store     *conversation.Store
	formatter render.Formatter
	session   session.Provider
	user      session.Identity
	bar       nav.Bar
	route     nav.Route
	exportDir string
	copyFn    func(string) error
	ctx       context.Context

	// updates is signalled by the store subscription
	updates chan struct{}

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// State
	state     conversation.State
	notice    string
	noticeErr bool
	ready     bool
	signedOut bool

	// Dimensions
	width  int
	height int
}

// NewChatModel creates a new chat TUI model driving store
func NewChatModel(store *conversation.Store, opts ChatOptions) Model {
	// Create textarea for input
	ta := textarea.New()
	ta.Placeholder = models.InputPlaceholder
	ta.CharLimit = 0 // no limit, long pasted questions are sent whole
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	// Style the textarea
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	// Create spinner
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = loadingStyle

	formatter := opts.Formatter
	if formatter == nil {
		formatter = render.Plain{}
	}
	copyFn := opts.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}

	bar := nav.Default()
	var user session.Identity
	if opts.Session != nil {
		id, ok := opts.Session.CurrentUser()
		user = id
		bar = bar.WithUser(id, ok)
	}

	return Model{
		store:     store,
		formatter: formatter,
		session:   opts.Session,
		user:      user,
		bar:       bar,
		route:     nav.RouteHome,
		exportDir: opts.ExportDir,
		copyFn:    copyFn,
		ctx:       context.Background(),
		textarea:  ta,
		spinner:   s,
		state:     store.Snapshot(),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.waitForChange(),
	)
}

// watch subscribes the model to store changes. The returned function
// ends the subscription.
func (m *Model) watch() func() {
	m.updates = make(chan struct{}, 1)
	updates := m.updates
	return m.store.Subscribe(func(conversation.State) {
		// Coalesce: one pending signal is enough, the model re-reads the store
		select {
		case updates <- struct{}{}:
		default:
		}
	})
}

// waitForChange blocks until the store signals a change
func (m Model) waitForChange() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	updates := m.updates
	return func() tea.Msg {
		<-updates
		return stateChangedMsg{}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		if !m.ready {
			m.viewport = viewport.New(m.viewportWidth(), 1)
			m.ready = true
		}
		m.textarea.SetWidth(m.contentWidth() - 2)
		m.layout()
		m.updateViewport()

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "ctrl+c":
			m.store.Cancel()
			return m, tea.Quit

		case "esc":
			switch {
			case m.state.Busy:
				m.store.Cancel()
				m.refresh()
				return m, nil
			case m.route != nav.RouteHome:
				return m.navigate(nav.RouteHome), nil
			default:
				return m, tea.Quit
			}

		case nav.SignOutKey:
			if m.session != nil && m.bar.SignedIn {
				return m, m.signOut()
			}
			return m, nil

		case "enter":
			if m.route != nav.RouteHome {
				return m, nil
			}
			return m.submit()
		}

		// ctrl+h on the chat screen falls through to the textarea as backspace
		if r, ok := m.bar.RouteForKey(key); ok && r != m.route {
			return m.navigate(r), nil
		}

	case replyMsg:
		m.refresh()

	case stateChangedMsg:
		m.refresh()
		cmds = append(cmds, m.waitForChange())

	case signedOutMsg:
		if msg.err != nil {
			m.setNotice(fmt.Sprintf("Sign out failed: %v", msg.err), true)
			m.layout()
			return m, nil
		}
		m.signedOut = true
		m.store.Cancel()
		return m, tea.Quit

	case spinner.TickMsg:
		if m.state.Busy {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	// Update child components - only pass KeyMsg to textarea to prevent escape sequence leaks
	if !m.state.Busy && m.route == nav.RouteHome {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.textarea, cmd = m.textarea.Update(msg)
			cmds = append(cmds, cmd)
			m.store.SetInput(m.textarea.Value())
			m.state = m.store.Snapshot()
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit handles Enter on the chat screen
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.state.Busy {
		return m, nil
	}

	raw := m.textarea.Value()
	fields := strings.Fields(raw)
	switch strings.TrimSpace(raw) {
	case "exit", "quit", "/exit", "/quit":
		return m, tea.Quit
	case "/copy":
		m.clearInput()
		m.copyLastReply()
		m.layout()
		return m, nil
	}
	if len(fields) > 0 && fields[0] == "/export" {
		m.clearInput()
		m.exportTranscript(strings.Join(fields[1:], " "))
		m.layout()
		return m, nil
	}

	p, ok := m.store.Begin(raw)
	if !ok {
		// Blank input: nothing happens and the buffer is left as typed
		return m, nil
	}

	m.textarea.Reset()
	m.notice = ""
	m.refresh()

	return m, tea.Batch(
		m.dispatch(p),
		m.spinner.Tick,
	)
}

// dispatch creates a command that sends the pending request
func (m Model) dispatch(p conversation.Pending) tea.Cmd {
	store, ctx := m.store, m.ctx
	return func() tea.Msg {
		return replyMsg{seq: p.Seq, err: store.Dispatch(ctx, p)}
	}
}

// signOut creates a command that ends the session
func (m Model) signOut() tea.Cmd {
	sess := m.session
	return func() tea.Msg {
		return signedOutMsg{err: sess.SignOut()}
	}
}

// navigate switches to route r
func (m Model) navigate(r nav.Route) Model {
	m.route = r
	m.notice = ""
	if r == nav.RouteHome {
		m.textarea.Focus()
	} else {
		m.textarea.Blur()
	}
	m.layout()
	m.updateViewport()
	if r == nav.RouteHome {
		m.viewport.GotoBottom()
	} else {
		m.viewport.GotoTop()
	}
	return m
}

func (m *Model) clearInput() {
	m.textarea.Reset()
	m.store.SetInput("")
	m.state = m.store.Snapshot()
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

// copyLastReply puts the latest assistant reply on the clipboard
func (m *Model) copyLastReply() {
	last, ok := m.store.LastAssistant()
	if !ok {
		m.setNotice("Nothing to copy yet", false)
		return
	}
	if err := m.copyFn(last.Content); err != nil {
		m.setNotice(fmt.Sprintf("Copy failed: %v", err), true)
		return
	}
	m.setNotice("Copied the last reply to the clipboard", false)
}

// exportTranscript writes the conversation to the export directory.
// format is "markdown" (the default when empty), "md" or "json".
func (m *Model) exportTranscript(format string) {
	f, err := transcript.ParseFormat(format)
	if err != nil {
		m.setNotice(fmt.Sprintf("Export failed: %v", err), true)
		return
	}
	if len(m.state.Messages) == 0 {
		m.setNotice("Nothing to export yet", false)
		return
	}
	t := transcript.New(m.state.Messages, m.user.DisplayName)
	path, err := transcript.Write(m.exportDir, t, f)
	if err != nil {
		m.setNotice(fmt.Sprintf("Export failed: %v", err), true)
		return
	}
	m.setNotice("Exported to "+path, false)
}

// refresh re-reads the store and scrolls to the bottom when the
// transcript grew or the busy state flipped.
func (m *Model) refresh() {
	prev := m.state
	m.state = m.store.Snapshot()

	if m.state.Busy {
		m.textarea.Blur()
	} else if m.route == nav.RouteHome {
		m.textarea.Focus()
	}

	m.layout()
	m.updateViewport()
	if m.route == nav.RouteHome &&
		(len(m.state.Messages) != len(prev.Messages) || m.state.Busy != prev.Busy) {
		m.viewport.GotoBottom()
	}
}

func (m Model) contentWidth() int {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) viewportWidth() int {
	return m.contentWidth() - messagesAreaStyle.GetHorizontalPadding()
}

// layout sizes the viewport to the space left by the other sections
func (m *Model) layout() {
	if !m.ready {
		return
	}
	chrome := lipgloss.Height(m.renderNav()) +
		lipgloss.Height(m.renderDisclaimer()) +
		messagesAreaStyle.GetVerticalFrameSize() +
		1 + // busy line
		lipgloss.Height(m.renderInput()) +
		lipgloss.Height(m.renderFeedback()) +
		1 + // footer
		1 // status bar
	if m.notice == "" && m.state.LastError == nil {
		chrome--
	}

	vpHeight := m.height - chrome
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = m.viewportWidth()
	m.viewport.Height = vpHeight
}

// updateViewport refreshes the viewport content for the current route
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}
	if m.route != nav.RouteHome {
		page, _ := nav.Page(m.route)
		m.viewport.SetContent(render.FormatOrRaw(m.formatter, page, m.viewport.Width))
		return
	}
	m.viewport.SetContent(m.renderTranscript())
}

// renderTranscript renders user messages as plain text and assistant
// messages through the formatter
func (m Model) renderTranscript() string {
	var content strings.Builder
	width := m.viewport.Width
	bubbleWidth := width * 85 / 100
	if bubbleWidth < 20 {
		bubbleWidth = 20
	}

	for i, msg := range m.state.Messages {
		if i > 0 {
			content.WriteString("\n")
		}

		if msg.IsUser() {
			label := userLabelStyle.Render("You " + navStyles.Avatar.Render(m.user.Initial()))
			text := lipgloss.NewStyle().Width(bubbleWidth - userBubbleStyle.GetHorizontalFrameSize()).Render(msg.Content)
			bubble := userBubbleStyle.Render(text)
			block := lipgloss.JoinVertical(lipgloss.Right, label, bubble)
			content.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Right, block))
		} else {
			label := assistantLabelStyle.Render(models.BrandMark + " " + models.AppName)
			inner := bubbleWidth - assistantBubbleStyle.GetHorizontalFrameSize()
			rendered := render.FormatOrRaw(m.formatter, msg.Content, inner)
			bubble := assistantBubbleStyle.Width(bubbleWidth - assistantBubbleStyle.GetHorizontalBorderSize()).Render(rendered)
			content.WriteString(label + "\n" + bubble)
		}
		content.WriteString("\n")
	}

	return content.String()
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	contentWidth := m.contentWidth()
	sections := []string{
		m.renderNav(),
		m.renderDisclaimer(),
	}

	// Messages area
	var body string
	if m.route == nav.RouteHome && m.state.ShowEmptyState() {
		body = m.renderWelcome()
	} else {
		body = m.viewport.View()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(body))

	// Busy indicator
	if m.state.Busy {
		sections = append(sections, m.spinner.View()+" "+loadingStyle.Render(models.BusyLabel))
	} else {
		sections = append(sections, "")
	}

	sections = append(sections, m.renderInput())

	if feedback := m.renderFeedback(); feedback != "" {
		sections = append(sections, feedback)
	}

	sections = append(sections,
		footerStyle.Width(contentWidth).Render(models.PrivacyFooter),
		m.renderStatusBar(contentWidth),
	)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderNav() string {
	return m.bar.Render(m.width, m.route, navStyles)
}

func (m Model) renderDisclaimer() string {
	return disclaimerStyle.Width(m.contentWidth()).Render(models.DisclaimerText)
}

// renderInput renders the input field and the submit control. The control
// is disabled while busy or while the buffer is blank.
func (m Model) renderInput() string {
	var button string
	switch {
	case m.state.Busy:
		button = sendDisabledStyle.Render(m.spinner.View() + " Sending")
	case m.state.CanSubmit():
		button = sendButtonStyle.Render("Send ⏎")
	default:
		button = sendDisabledStyle.Render("Send ⏎")
	}

	label := inputLabelStyle.Render("You")
	gap := m.contentWidth() - inputPanelStyle.GetHorizontalPadding() - lipgloss.Width(label) - lipgloss.Width(button)
	if gap < 1 {
		gap = 1
	}
	header := label + strings.Repeat(" ", gap) + button

	content := lipgloss.JoinVertical(lipgloss.Left, header, m.textarea.View())
	return inputPanelStyle.Width(m.contentWidth()).Render(content)
}

// renderFeedback renders the last error and any notice
func (m Model) renderFeedback() string {
	var lines []string
	if m.state.LastError != nil {
		lines = append(lines, m.formatError(m.state.LastError))
	}
	if m.notice != "" {
		if m.noticeErr {
			lines = append(lines, errorStyle.Render(m.notice))
		} else {
			lines = append(lines, noticeStyle.Render(m.notice))
		}
	}
	return strings.Join(lines, "\n")
}

// renderWelcome renders the empty state
func (m Model) renderWelcome() string {
	width := m.viewport.Width
	height := m.viewport.Height

	examples := make([]string, 0, len(models.ExampleQuestions))
	for _, q := range models.ExampleQuestions {
		examples = append(examples, welcomeExampleStyle.Render(fmt.Sprintf("%q", q)))
	}

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		welcomeIconStyle.Render(models.BrandMark),
		"",
		welcomeTitleStyle.Render(models.WelcomeTitle),
		"",
		welcomeSubtitleStyle.Render(models.WelcomeSubtitle),
		"",
		hintStyle.Render(models.ExamplesHeading),
		lipgloss.JoinVertical(lipgloss.Center, examples...),
	)

	// Center vertically
	topPadding := (height - lipgloss.Height(content)) / 2
	if topPadding < 0 {
		topPadding = 0
	}

	return strings.Repeat("\n", topPadding) + lipgloss.PlaceHorizontal(width, lipgloss.Center, content)
}

// renderStatusBar renders the bottom status bar with shortcuts
func (m Model) renderStatusBar(width int) string {
	escDesc := "Quit"
	switch {
	case m.state.Busy:
		escDesc = "Cancel"
	case m.route != nav.RouteHome:
		escDesc = "Back"
	}

	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Esc", escDesc},
		{"↑↓", "Scroll"},
	}
	for _, h := range m.bar.Hints() {
		key, desc, _ := strings.Cut(h, " ")
		shortcuts = append(shortcuts, struct {
			key  string
			desc string
		}{key, desc})
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
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(bar)
}

// formatError formats the last failure for the line under the input
func (m Model) formatError(err error) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("⚠ Error: %v", err)))

	if hint := errorHint(err); hint != "" {
		hintStyle := lipgloss.NewStyle().Foreground(colorPrimary).PaddingLeft(2)
		sb.WriteString("\n")
		sb.WriteString(hintStyle.Render(hint))
	}

	return sb.String()
}

// SignedOut reports whether the user left through sign-out
func (m Model) SignedOut() bool {
	return m.signedOut
}

// RunChat starts the chat TUI. It reports whether the user signed out.
func RunChat(store *conversation.Store, opts ChatOptions) (bool, error) {
	m := NewChatModel(store, opts)
	unsubscribe := m.watch()
	defer unsubscribe()

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
	)

	final, err := p.Run()
	// Nothing may outlive the program
	store.Cancel()
	if err != nil {
		return false, err
	}
	fm, ok := final.(Model)
	return ok && fm.SignedOut(), nil
}
