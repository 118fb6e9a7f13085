package commands

import (
	"github.com/spf13/cobra"
)

// NewConfigCmd creates a new config command
func NewConfigCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Open configuration menu",
		Long:  `Interactive menu to configure medimate settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return deps.orDefault().TUI.RunConfig()
		},
	}
}
