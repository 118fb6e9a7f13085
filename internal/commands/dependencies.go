package commands

import (
	"github.com/atotto/clipboard"

	"github.com/diogo/medimate/internal/conversation"
	"github.com/diogo/medimate/internal/tui"
)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(store *conversation.Store, opts tui.ChatOptions) (bool, error)
	RunConfig() error
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// Sender replaces the backend client when set.
	Sender conversation.Sender

	// TUI is the terminal user interface.
	TUI TUIInterface

	// Clipboard writes text to the system clipboard.
	Clipboard func(string) error
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunChat(store *conversation.Store, opts tui.ChatOptions) (bool, error) {
	return tui.RunChat(store, opts)
}

func (d *DefaultTUI) RunConfig() error {
	return tui.RunConfig()
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		TUI:       &DefaultTUI{},
		Clipboard: clipboard.WriteAll,
	}
}

// orDefault fills the fields a caller left empty
func (d *Dependencies) orDefault() *Dependencies {
	if d == nil {
		return NewDependencies()
	}
	out := *d
	if out.TUI == nil {
		out.TUI = &DefaultTUI{}
	}
	if out.Clipboard == nil {
		out.Clipboard = clipboard.WriteAll
	}
	return &out
}
