package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diogo/medimate/internal/models"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user and backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openSession()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if user, ok := store.CurrentUser(); ok {
			if user.DisplayName != "" {
				fmt.Fprintf(out, "Signed in as %s [%s]\n", user.DisplayName, user.Initial())
			} else {
				fmt.Fprintf(out, "Signed in [%s]\n", user.Initial())
			}
			if user.AvatarURL != "" {
				fmt.Fprintf(out, "Avatar:  %s\n", user.AvatarURL)
			}
		} else {
			fmt.Fprintln(out, "Not signed in.")
		}

		if token := store.Token(); token != "" {
			fmt.Fprintf(out, "Cookie:  %s=%s\n", models.SessionCookieName, truncate(token, 8))
		}
		fmt.Fprintf(out, "Session: %s\n", store.Path())
		fmt.Fprintf(out, "Backend: %s\n", cfg.ChatEndpoint())
		return nil
	},
}

// truncate shortens s to maxLen runes followed by an ellipsis
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
