// Package nav is the navigation bar: brand, route links and the sign-out
// affordance. Rendering is pure; acting on a route is up to the caller.
package nav

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/medimate/internal/models"
	"github.com/diogo/medimate/internal/render"
	"github.com/diogo/medimate/internal/session"
)

// Route names a screen reachable from the bar
type Route string

const (
	RouteHome     Route = "home"
	RouteServices Route = "services"
	RoutePrivacy  Route = "privacy"
)

// ParseRoute converts a name to a Route
func ParseRoute(s string) (Route, bool) {
	switch Route(strings.ToLower(strings.TrimSpace(s))) {
	case RouteHome, "":
		return RouteHome, true
	case RouteServices:
		return RouteServices, true
	case RoutePrivacy:
		return RoutePrivacy, true
	}
	return "", false
}

// Link is a navigation entry bound to a key
type Link struct {
	Label string
	Route Route
	Key   string
}

// SignOutKey triggers sign-out from any screen
const SignOutKey = "ctrl+o"

// Bar describes the navigation bar
type Bar struct {
	Brand string
	Mark  string
	// Home is the key that returns to the chat
	Home  Link
	Links []Link
	// User is shown as an avatar initial when SignedIn
	User     session.Identity
	SignedIn bool
}

// Default returns the MediMate bar with the Services and Privacy links
func Default() Bar {
	return Bar{
		Brand: models.AppName,
		Mark:  models.BrandMark,
		Home:  Link{Label: "Chat", Route: RouteHome, Key: "ctrl+h"},
		Links: []Link{
			{Label: "Services", Route: RouteServices, Key: "ctrl+s"},
			{Label: "Privacy", Route: RoutePrivacy, Key: "ctrl+p"},
		},
	}
}

// WithUser returns a copy of b showing id
func (b Bar) WithUser(id session.Identity, signedIn bool) Bar {
	b.User = id
	b.SignedIn = signedIn
	return b
}

// RouteForKey returns the route bound to key
func (b Bar) RouteForKey(key string) (Route, bool) {
	if key == b.Home.Key {
		return RouteHome, true
	}
	for _, l := range b.Links {
		if l.Key == key {
			return l.Route, true
		}
	}
	return "", false
}

// Styles used by Render
type Styles struct {
	Bar        lipgloss.Style
	Brand      lipgloss.Style
	Link       lipgloss.Style
	ActiveLink lipgloss.Style
	Avatar     lipgloss.Style
	SignOut    lipgloss.Style
}

// NewStyles derives bar styles from a TUI theme
func NewStyles(theme render.TUITheme) Styles {
	return Styles{
		Bar: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(theme.Border),
		Brand: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),
		Link: lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Padding(0, 1),
		ActiveLink: lipgloss.NewStyle().
			Foreground(theme.Text).
			Bold(true).
			Underline(true).
			Padding(0, 1),
		Avatar: lipgloss.NewStyle().
			Foreground(theme.UserText).
			Background(theme.UserBubble).
			Bold(true).
			Padding(0, 1),
		SignOut: lipgloss.NewStyle().
			Foreground(theme.TextMute),
	}
}

// Render draws the bar across width columns with active highlighted
func (b Bar) Render(width int, active Route, st Styles) string {
	brand := st.Brand.Render(strings.TrimSpace(b.Mark + " " + b.Brand))

	links := make([]string, 0, len(b.Links))
	for _, l := range b.Links {
		style := st.Link
		if l.Route == active {
			style = st.ActiveLink
		}
		links = append(links, style.Render(l.Label))
	}
	left := lipgloss.JoinHorizontal(lipgloss.Center, append([]string{brand, "  "}, links...)...)

	var right string
	if b.SignedIn {
		right = lipgloss.JoinHorizontal(lipgloss.Center,
			st.Avatar.Render(b.User.Initial()),
			" ",
			st.SignOut.Render("Sign out "+SignOutKey),
		)
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - st.Bar.GetHorizontalFrameSize()
	if gap < 1 {
		gap = 1
	}
	line := left + strings.Repeat(" ", gap) + right

	return st.Bar.Render(line)
}

// Hints lists the key bindings of the bar for the status line
func (b Bar) Hints() []string {
	hints := make([]string, 0, len(b.Links)+2)
	for _, l := range b.Links {
		hints = append(hints, l.Key+" "+strings.ToLower(l.Label))
	}
	hints = append(hints, b.Home.Key+" "+strings.ToLower(b.Home.Label))
	if b.SignedIn {
		hints = append(hints, SignOutKey+" sign out")
	}
	return hints
}
