package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	apierrors "github.com/diogo/medimate/internal/errors"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and delete the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSession()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if _, err := store.Load(); errors.Is(err, apierrors.ErrNotSignedIn) {
			fmt.Fprintln(out, "Not signed in.")
			return nil
		}

		if err := store.SignOut(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Signed out.")
		return nil
	},
}
