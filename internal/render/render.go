package render

import "strings"

// Formatter turns assistant markdown into display text.
// It is never applied to user-authored text.
type Formatter interface {
	Format(markdown string, width int) (string, error)
}

// Markdown renders markdown content for terminal display using a pooled renderer.
func Markdown(content string, opts Options) (string, error) {
	renderer, err := globalPool.get(opts)
	if err != nil {
		return "", err
	}
	defer globalPool.put(opts, renderer)

	return renderer.Render(content)
}

// MarkdownWithWidth renders with default options at the given width.
func MarkdownWithWidth(content string, width int) (string, error) {
	return Markdown(content, DefaultOptions().WithWidth(width))
}

// Glamour is the default Formatter
type Glamour struct {
	Options Options
}

// NewGlamour creates a Formatter using opts for everything but the width
func NewGlamour(opts Options) *Glamour {
	return &Glamour{Options: opts}
}

// Format implements Formatter. Trailing newlines added by glamour are trimmed.
func (g *Glamour) Format(markdown string, width int) (string, error) {
	opts := g.Options
	if width > 0 {
		opts.Width = width
	}
	out, err := Markdown(markdown, opts)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

// Plain is a Formatter that returns its input unchanged
type Plain struct{}

// Format implements Formatter
func (Plain) Format(markdown string, _ int) (string, error) {
	return markdown, nil
}

// FormatOrRaw formats with f and falls back to the raw text on error
func FormatOrRaw(f Formatter, markdown string, width int) string {
	if f == nil {
		return markdown
	}
	out, err := f.Format(markdown, width)
	if err != nil {
		return markdown
	}
	return out
}
