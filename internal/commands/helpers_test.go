package commands

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/spf13/cobra"

	"github.com/diogo/medimate/internal/conversation"
	"github.com/diogo/medimate/internal/tui"
)

// isolate points HOME at a temp dir and resets the package flags
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("MEDIMATE_BACKEND_URL", "")
	t.Setenv("MEDIMATE_USER_NAME", "")

	oldStdin := stdinFile
	stdinFile = nil
	t.Cleanup(func() {
		stdinFile = oldStdin
		backendFlag, timeoutFlag, verboseFlag = "", 0, false
		outputFlag, fileFlag, rawFlag, copyFlag = "", "", false, false
		loginBrowserFlag, loginListFlag, loginNameFlag, loginAvatarFlag = "auto", false, "", ""
	})
	return home
}

// recordingSender answers every prompt with reply and remembers the prompts
type recordingSender struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (s *recordingSender) Send(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

func (s *recordingSender) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// fakeTUI records what the commands hand to the terminal UI
type fakeTUI struct {
	store      *conversation.Store
	opts       tui.ChatOptions
	signedOut  bool
	err        error
	configRuns int
	onChat     func(*conversation.Store)
}

func (f *fakeTUI) RunChat(store *conversation.Store, opts tui.ChatOptions) (bool, error) {
	f.store = store
	f.opts = opts
	if f.onChat != nil {
		f.onChat(store)
	}
	return f.signedOut, f.err
}

func (f *fakeTUI) RunConfig() error {
	f.configRuns++
	return f.err
}

// execute runs cmd with args and returns what it wrote
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if args == nil {
		// nil would make cobra fall back to os.Args
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
