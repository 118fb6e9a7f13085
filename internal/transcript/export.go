// Package transcript exports an in-memory conversation to a file on demand.
// Nothing is persisted automatically.
package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/diogo/medimate/internal/models"
)

// Format is the export file format
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// maxTitleRunes bounds the title derived from the first question
const maxTitleRunes = 50

// ParseFormat accepts "markdown", "md" or "json"
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format %q (use markdown or json)", s)
	}
}

// Ext returns the file extension for f
func (f Format) Ext() string {
	if f == FormatJSON {
		return ".json"
	}
	return ".md"
}

// Transcript is a conversation prepared for export
type Transcript struct {
	Title      string
	User       string
	ExportedAt time.Time
	Messages   []models.Message
}

// New builds a Transcript from msgs. The title is taken from the first user message.
func New(msgs []models.Message, user string) Transcript {
	cp := make([]models.Message, len(msgs))
	copy(cp, msgs)
	return Transcript{
		Title:      titleFrom(cp),
		User:       user,
		ExportedAt: time.Now(),
		Messages:   cp,
	}
}

func titleFrom(msgs []models.Message) string {
	for _, m := range msgs {
		if !m.IsUser() {
			continue
		}
		line := strings.TrimSpace(strings.SplitN(m.Content, "\n", 2)[0])
		r := []rune(line)
		if len(r) > maxTitleRunes {
			return string(r[:maxTitleRunes-3]) + "..."
		}
		return line
	}
	return models.AppName + " conversation"
}

// Markdown renders the transcript as a markdown document
func (t Transcript) Markdown() string {
	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(t.Title)
	sb.WriteString("\n\n")

	if t.User != "" {
		sb.WriteString("**User:** ")
		sb.WriteString(t.User)
		sb.WriteString("\n")
	}
	sb.WriteString("**Exported:** ")
	sb.WriteString(t.ExportedAt.Format("2006-01-02 15:04:05"))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("**Messages:** %d\n\n", len(t.Messages)))
	sb.WriteString("> ")
	sb.WriteString(models.DisclaimerText)
	sb.WriteString("\n\n---\n\n")

	for i, msg := range t.Messages {
		if msg.IsAssistant() {
			sb.WriteString("## " + models.AppName + "\n\n")
		} else {
			sb.WriteString("## You\n\n")
		}
		sb.WriteString(msg.Content)
		sb.WriteString("\n")

		if i < len(t.Messages)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return sb.String()
}

type jsonMessage struct {
	Role    models.Role `json:"role"`
	Content string      `json:"content"`
}

type jsonTranscript struct {
	Title      string        `json:"title"`
	User       string        `json:"user,omitempty"`
	ExportedAt time.Time     `json:"exported_at"`
	Disclaimer string        `json:"disclaimer"`
	Messages   []jsonMessage `json:"messages"`
}

// JSON renders the transcript as indented JSON
func (t Transcript) JSON() ([]byte, error) {
	out := jsonTranscript{
		Title:      t.Title,
		User:       t.User,
		ExportedAt: t.ExportedAt,
		Disclaimer: models.DisclaimerText,
		Messages:   make([]jsonMessage, len(t.Messages)),
	}
	for i, m := range t.Messages {
		out.Messages[i] = jsonMessage{Role: m.Role, Content: m.Content}
	}
	return json.MarshalIndent(out, "", "  ")
}

// Encode renders t in format f
func (t Transcript) Encode(f Format) ([]byte, error) {
	if f == FormatJSON {
		return t.JSON()
	}
	return []byte(t.Markdown()), nil
}

// FileName returns the default file name for t in format f
func (t Transcript) FileName(f Format) string {
	return models.BinName + "-" + t.ExportedAt.Format("20060102-150405") + f.Ext()
}

// Write saves t into dir and returns the file path.
// An empty transcript is refused.
func Write(dir string, t Transcript, f Format) (string, error) {
	if len(t.Messages) == 0 {
		return "", fmt.Errorf("nothing to export: the conversation is empty")
	}

	data, err := t.Encode(f)
	if err != nil {
		return "", fmt.Errorf("failed to encode transcript: %w", err)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	return createUnique(dir, t.FileName(f), data)
}

// maxNameAttempts bounds the numbered suffixes tried for a taken file name
const maxNameAttempts = 100

// createUnique writes data to dir/name without replacing an existing file.
// Taken names get a -2, -3, ... suffix before the extension.
func createUnique(dir, name string, data []byte) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for i := 1; i <= maxNameAttempts; i++ {
		candidate := name
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d%s", base, i, ext)
		}
		path := filepath.Join(dir, candidate)

		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to write export: %w", err)
		}
		if _, err := file.Write(data); err != nil {
			file.Close()
			return "", fmt.Errorf("failed to write export: %w", err)
		}
		if err := file.Close(); err != nil {
			return "", fmt.Errorf("failed to write export: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("failed to write export: too many files named %s", name)
}
