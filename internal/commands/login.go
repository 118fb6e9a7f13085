package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/diogo/medimate/internal/browser"
	"github.com/diogo/medimate/internal/models"
	"github.com/diogo/medimate/internal/session"
)

var (
	loginBrowserFlag string
	loginListFlag    bool
	loginNameFlag    string
	loginAvatarFlag  string
)

// extractToken reads the session cookie from a browser. Replaced in tests.
var extractToken = browser.ExtractSessionToken

var loginCmd = &cobra.Command{
	Use:   "login [cookies.json]",
	Short: "Sign in by importing the backend session cookie",
	Long: `Sign in to the MediMate backend.

With a file argument the session cookie is imported from a browser cookie
export, either a list [{"name": ..., "value": ...}] or a {name: value} map.
Without one the cookie is read straight from a local browser profile.

Supported browsers: ` + SupportedBrowsersHelp() + `

Examples:
  medimate login ~/cookies.json --name "Alex"
  medimate login --browser firefox
  medimate login --list`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if loginListFlag {
			return runListBrowsers(out)
		}

		store, err := openSession()
		if err != nil {
			return err
		}
		user := loginIdentity(store)

		if len(args) == 1 {
			return runImportLogin(out, store, args[0], user)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return runBrowserLogin(commandContext(cmd), out, store, cfg.BackendURL, loginBrowserFlag, user)
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginBrowserFlag, "browser", "b", "auto",
		"Browser to read the session cookie from (auto, chrome, chromium, firefox, edge, opera)")
	loginCmd.Flags().BoolVarP(&loginListFlag, "list", "l", false, "List browsers with cookie stores")
	loginCmd.Flags().StringVarP(&loginNameFlag, "name", "n", "", "Display name shown in the chat")
	loginCmd.Flags().StringVar(&loginAvatarFlag, "avatar", "", "Avatar URL")
}

// loginIdentity combines the flags with the identity already on file
func loginIdentity(store *session.FileStore) session.Identity {
	var user session.Identity
	if sess, err := store.Load(); err == nil {
		user = sess.User
	}
	if name := strings.TrimSpace(loginNameFlag); name != "" {
		user.DisplayName = name
	}
	if loginAvatarFlag != "" {
		user.AvatarURL = loginAvatarFlag
	}
	return user
}

func runImportLogin(out io.Writer, store *session.FileStore, source string, user session.Identity) error {
	if err := store.ImportCookieFile(source, user); err != nil {
		return fmt.Errorf("failed to import cookies: %w", err)
	}

	fmt.Fprintf(out, "Session imported from %s\n", source)
	printSignedIn(out, store, user)
	return nil
}

func runBrowserLogin(ctx context.Context, out io.Writer, store *session.FileStore, backendURL, browserName string, user session.Identity) error {
	target, err := browser.ParseBrowser(browserName)
	if err != nil {
		return err
	}
	host, err := browser.BackendHost(backendURL)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Looking for the %s cookie of %s...\n", models.SessionCookieName, host)
	fmt.Fprintln(out, "Note: If the browser is open, you may encounter database lock errors.")
	fmt.Fprintln(out)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := extractToken(ctx, target, host)
	if err != nil {
		return fmt.Errorf("failed to extract session cookie: %w", err)
	}

	sess := &session.Session{User: user, Token: result.Token, Source: result.BrowserName}
	if err := store.Save(sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Fprintf(out, "Found a session in %s\n", result.BrowserName)
	printSignedIn(out, store, user)
	return nil
}

func printSignedIn(out io.Writer, store *session.FileStore, user session.Identity) {
	fmt.Fprintf(out, "Session saved to: %s\n", store.Path())
	if user.DisplayName != "" {
		fmt.Fprintf(out, "Signed in as %s\n", user.DisplayName)
	} else {
		fmt.Fprintln(out, "Tip: pass --name to show your name in the chat")
	}
}

func runListBrowsers(out io.Writer) error {
	browsers := browser.ListAvailableBrowsers()

	if len(browsers) == 0 {
		fmt.Fprintln(out, "No browsers with cookie stores found.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Supported browsers:")
		for _, b := range browser.AllSupportedBrowsers() {
			fmt.Fprintf(out, "  - %s\n", b)
		}
		return nil
	}

	fmt.Fprintln(out, "Available browsers with cookie stores:")
	for _, b := range browsers {
		fmt.Fprintf(out, "  - %s\n", b)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Use '%s login -b <browser>' to read the session from a specific browser.\n", models.BinName)
	return nil
}

// SupportedBrowsersHelp returns a help string listing supported browsers
func SupportedBrowsersHelp() string {
	browsers := browser.AllSupportedBrowsers()
	names := make([]string, len(browsers))
	for i, b := range browsers {
		names[i] = string(b)
	}
	return strings.Join(names, ", ")
}
