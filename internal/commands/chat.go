package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diogo/medimate/internal/config"
	"github.com/diogo/medimate/internal/render"
	"github.com/diogo/medimate/internal/tui"
)

// NewChatCmd creates the interactive chat command
func NewChatCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session with MediMate.

Type a health question and press Enter. While MediMate is answering the
input is locked; press Esc to cancel the request.

Navigation: Ctrl+H home, Ctrl+S services, Ctrl+P privacy, Ctrl+O sign out.
Commands: /copy copies the last reply, /export [markdown|json] saves the conversation.
Type 'exit', 'quit', or press Ctrl+C to end the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, deps)
		},
	}
}

func runChat(cmd *cobra.Command, deps *Dependencies) error {
	deps = deps.orDefault()

	env, err := newEnvironment(cmd, deps)
	if err != nil {
		return err
	}
	defer env.Close()

	if !render.SetTUITheme(env.cfg.TUITheme) {
		env.logger.Warn("unknown tui theme, using default", zap.String("theme", env.cfg.TUITheme))
	}
	tui.UpdateTheme()

	exportDir, err := config.GetExportDir(env.cfg)
	if err != nil {
		return err
	}

	signedOut, err := deps.TUI.RunChat(env.store, tui.ChatOptions{
		Formatter: render.NewGlamour(render.OptionsFromConfig(env.cfg)),
		Session:   env.session,
		ExportDir: exportDir,
		Clipboard: deps.Clipboard,
	})
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	env.logger.Info("chat ended",
		zap.Int("messages", len(env.store.Messages())),
		zap.Bool("signed_out", signedOut),
	)
	if signedOut {
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
	}
	return nil
}
