package render

import (
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
)

// StyleMediMate is the default markdown style: glamour's dark style with the
// blue heading, bold and list-marker palette of the chat bubbles.
const StyleMediMate = "medimate"

// StyleInfo describes a selectable markdown style
type StyleInfo struct {
	Name        string
	Description string
}

// AvailableStyles lists the markdown styles offered by the config menu
func AvailableStyles() []StyleInfo {
	return []StyleInfo{
		{Name: StyleMediMate, Description: "Blue headings and markers (default)"},
		{Name: styles.DarkStyle, Description: "Glamour dark"},
		{Name: styles.LightStyle, Description: "Light theme for bright terminals"},
		{Name: styles.DraculaStyle, Description: "Dracula color scheme"},
		{Name: styles.TokyoNightStyle, Description: "Tokyo Night color scheme"},
		{Name: styles.NoTTYStyle, Description: "Plain text (no styling)"},
		{Name: styles.AsciiStyle, Description: "ASCII-only output"},
	}
}

// StyleNames returns just the style names for selection
func StyleNames() []string {
	all := AvailableStyles()
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name
	}
	return names
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// MediMateStyle returns the style config used for StyleMediMate
func MediMateStyle() ansi.StyleConfig {
	cfg := styles.DarkStyleConfig

	heading := "#93c5fd" // blue-300
	strong := "#dbeafe"  // blue-100
	marker := "#60a5fa"  // blue-400
	text := "#bfdbfe"    // blue-200

	cfg.Document.Color = strPtr(text)
	cfg.Heading.Color = strPtr(heading)
	cfg.Heading.Bold = boolPtr(true)
	cfg.H1.Color = strPtr(heading)
	cfg.H1.BackgroundColor = nil
	cfg.H1.Prefix = ""
	cfg.H1.Suffix = ""
	cfg.Strong.Color = strPtr(strong)
	cfg.Strong.Bold = boolPtr(true)
	cfg.Emph.Italic = boolPtr(true)
	cfg.Item.BlockPrefix = "• "
	cfg.Item.Color = strPtr(marker)
	cfg.Enumeration.Color = strPtr(marker)
	cfg.Link.Color = strPtr("#5eead4") // teal-300

	return cfg
}
