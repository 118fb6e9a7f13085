package render

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// TUITheme is the colour scheme of the chat screen
type TUITheme struct {
	Name        string
	Description string

	// Base colors
	Background lipgloss.Color
	Surface    lipgloss.Color
	Border     lipgloss.Color

	// Accent colors
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color

	// Text colors
	Text     lipgloss.Color
	TextDim  lipgloss.Color
	TextMute lipgloss.Color

	// Chat bubbles
	UserBubble      lipgloss.Color
	UserText        lipgloss.Color
	AssistantBubble lipgloss.Color
}

// MediMateTheme is the default: white-on-blue user bubbles, soft blue
// assistant bubbles and an amber disclaimer.
var MediMateTheme = TUITheme{
	Name:        "medimate",
	Description: "MediMate - Blue and teal clinical palette",

	Background: lipgloss.Color("#0f172a"),
	Surface:    lipgloss.Color("#1e293b"),
	Border:     lipgloss.Color("#334155"),

	Primary:   lipgloss.Color("#3b82f6"),
	Secondary: lipgloss.Color("#14b8a6"),
	Accent:    lipgloss.Color("#60a5fa"),
	Warning:   lipgloss.Color("#f59e0b"),
	Error:     lipgloss.Color("#ef4444"),

	Text:     lipgloss.Color("#e2e8f0"),
	TextDim:  lipgloss.Color("#94a3b8"),
	TextMute: lipgloss.Color("#475569"),

	UserBubble:      lipgloss.Color("#2563eb"),
	UserText:        lipgloss.Color("#ffffff"),
	AssistantBubble: lipgloss.Color("#1e3a5f"),
}

// TokyoNightTheme keeps the Tokyo Night palette for users who prefer it
var TokyoNightTheme = TUITheme{
	Name:        "tokyonight",
	Description: "Tokyo Night - Dark theme with blue accents",

	Background: lipgloss.Color("#1a1b26"),
	Surface:    lipgloss.Color("#24283b"),
	Border:     lipgloss.Color("#414868"),

	Primary:   lipgloss.Color("#7aa2f7"),
	Secondary: lipgloss.Color("#9ece6a"),
	Accent:    lipgloss.Color("#bb9af7"),
	Warning:   lipgloss.Color("#e0af68"),
	Error:     lipgloss.Color("#f7768e"),

	Text:     lipgloss.Color("#c0caf5"),
	TextDim:  lipgloss.Color("#565f89"),
	TextMute: lipgloss.Color("#3b4261"),

	UserBubble:      lipgloss.Color("#3d59a1"),
	UserText:        lipgloss.Color("#c0caf5"),
	AssistantBubble: lipgloss.Color("#24283b"),
}

// NordTheme is based on the Nord palette
var NordTheme = TUITheme{
	Name:        "nord",
	Description: "Nord - Arctic-inspired theme with cool tones",

	Background: lipgloss.Color("#2e3440"),
	Surface:    lipgloss.Color("#3b4252"),
	Border:     lipgloss.Color("#4c566a"),

	Primary:   lipgloss.Color("#88c0d0"),
	Secondary: lipgloss.Color("#a3be8c"),
	Accent:    lipgloss.Color("#81a1c1"),
	Warning:   lipgloss.Color("#ebcb8b"),
	Error:     lipgloss.Color("#bf616a"),

	Text:     lipgloss.Color("#eceff4"),
	TextDim:  lipgloss.Color("#7b88a1"),
	TextMute: lipgloss.Color("#4c566a"),

	UserBubble:      lipgloss.Color("#5e81ac"),
	UserText:        lipgloss.Color("#eceff4"),
	AssistantBubble: lipgloss.Color("#3b4252"),
}

// LightTheme suits bright terminals
var LightTheme = TUITheme{
	Name:        "light",
	Description: "Light - Blue accents on a white background",

	Background: lipgloss.Color("#ffffff"),
	Surface:    lipgloss.Color("#f1f5f9"),
	Border:     lipgloss.Color("#cbd5e1"),

	Primary:   lipgloss.Color("#2563eb"),
	Secondary: lipgloss.Color("#0d9488"),
	Accent:    lipgloss.Color("#1d4ed8"),
	Warning:   lipgloss.Color("#b45309"),
	Error:     lipgloss.Color("#dc2626"),

	Text:     lipgloss.Color("#0f172a"),
	TextDim:  lipgloss.Color("#475569"),
	TextMute: lipgloss.Color("#94a3b8"),

	UserBubble:      lipgloss.Color("#2563eb"),
	UserText:        lipgloss.Color("#ffffff"),
	AssistantBubble: lipgloss.Color("#dbeafe"),
}

var tuiThemes = []TUITheme{MediMateTheme, TokyoNightTheme, NordTheme, LightTheme}

var (
	themeMu         sync.RWMutex
	currentTUITheme = MediMateTheme
)

// GetTUITheme returns the active theme
func GetTUITheme() TUITheme {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return currentTUITheme
}

// SetTUITheme activates the named theme. Unknown names leave the current theme in place.
func SetTUITheme(name string) bool {
	theme, ok := GetTUIThemeByName(name)
	if !ok {
		return false
	}
	themeMu.Lock()
	currentTUITheme = theme
	themeMu.Unlock()
	return true
}

// GetTUIThemeByName looks a theme up by name
func GetTUIThemeByName(name string) (TUITheme, bool) {
	for _, t := range tuiThemes {
		if t.Name == name {
			return t, true
		}
	}
	return TUITheme{}, false
}

// AvailableTUIThemes returns every built-in theme, default first
func AvailableTUIThemes() []TUITheme {
	out := make([]TUITheme, len(tuiThemes))
	copy(out, tuiThemes)
	return out
}

// TUIThemeNames returns just the theme names for selection
func TUIThemeNames() []string {
	names := make([]string, len(tuiThemes))
	for i, t := range tuiThemes {
		names[i] = t.Name
	}
	return names
}
