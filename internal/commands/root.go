// Package commands provides CLI commands for medimate.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diogo/medimate/internal/api"
	"github.com/diogo/medimate/internal/config"
	"github.com/diogo/medimate/internal/conversation"
	"github.com/diogo/medimate/internal/logging"
	"github.com/diogo/medimate/internal/models"
	"github.com/diogo/medimate/internal/session"
)

var (
	// Global flags
	backendFlag string
	timeoutFlag int
	verboseFlag bool

	// One-shot flags, shared by the root command and ask
	outputFlag string
	fileFlag   string
	rawFlag    bool
	copyFlag   bool

	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// defaultDeps backs the package-level commands
var defaultDeps = NewDependencies()

// stdinFile is where piped questions are read from
var stdinFile = os.Stdin

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "medimate [question]",
	Short: "Terminal client for the MediMate health assistant",
	Long: `medimate is a terminal chat client for MediMate, an assistant that gives
general health information. Every question is wrapped in medical guidance
before it is sent to the MediMate backend, and replies are rendered as
markdown in the terminal.

MediMate is for informational purposes only. Always consult a healthcare
professional for diagnosis or treatment.

Examples:
  medimate                                  Start interactive chat
  medimate chat                             Start interactive chat
  medimate "What causes headaches?"         Ask a single question
  medimate -f question.md                   Read the question from a file
  cat question.md | medimate                Read the question from stdin
  medimate "Hello" -o reply.md              Save the reply to a file
  medimate login ~/cookies.json             Import a session cookie
  medimate config                           Configure settings`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Check for version flag
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (built %s)\n", models.BinName, Version, BuildTime)
			return nil
		}

		question, ok, err := readPrompt(args, fileFlag, stdinFile)
		if err != nil {
			return err
		}
		if ok {
			return runAsk(cmd, defaultDeps, question)
		}

		// No input - chat is the default
		return runChat(cmd, defaultDeps)
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Backend base URL (overrides backend_url)")
	rootCmd.PersistentFlags().IntVar(&timeoutFlag, "timeout", 0, "Request timeout in seconds (overrides request_timeout)")
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "Enable debug logging")
	addAskFlags(rootCmd)
	rootCmd.Flags().BoolP("version", "v", false, "Show version and exit")

	// Add subcommands
	rootCmd.AddCommand(NewChatCmd(defaultDeps))
	rootCmd.AddCommand(NewAskCmd(defaultDeps))
	rootCmd.AddCommand(NewConfigCmd(defaultDeps))
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

// readPrompt picks the question from --file, piped stdin, or the first
// argument, in that order. ok is false when none of them supplied one.
func readPrompt(args []string, file string, stdin *os.File) (string, bool, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", false, fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), true, nil
	}

	if stdin != nil {
		stat, err := stdin.Stat()
		if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return "", false, fmt.Errorf("failed to read stdin: %w", err)
			}
			if len(data) > 0 {
				return string(data), true, nil
			}
		}
	}

	if len(args) > 0 {
		return args[0], true, nil
	}
	return "", false, nil
}

// loadConfig resolves the layered configuration and applies the global flags
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.BackendURL = backendFlag
	}
	if flags.Changed("timeout") {
		cfg.RequestTimeout = timeoutFlag
	}
	if flags.Changed("verbose") {
		cfg.Verbose = verboseFlag
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openSession returns the session store at the default location
func openSession() (*session.FileStore, error) {
	path, err := config.GetSessionPath()
	if err != nil {
		return nil, err
	}
	return session.NewFileStore(path), nil
}

// environment is everything a chat or ask run needs
type environment struct {
	cfg     config.Config
	logger  *zap.Logger
	session *session.FileStore
	store   *conversation.Store
	closers []func()
}

// Close releases the backend client and flushes the log
func (e *environment) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// newEnvironment wires config, logging, session, backend client and store.
// deps.Sender replaces the backend client when set.
func newEnvironment(cmd *cobra.Command, deps *Dependencies) (*environment, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg)
	if err != nil {
		return nil, err
	}
	env := &environment{cfg: cfg, logger: logger}
	env.closers = append(env.closers, func() { logging.Sync(logger) })

	env.session, err = openSession()
	if err != nil {
		env.Close()
		return nil, err
	}

	sender := deps.Sender
	if sender == nil {
		client, err := api.NewClient(cfg.ChatEndpoint(),
			api.WithSession(env.session),
			api.WithLogger(logger),
			api.WithTimeout(cfg.Timeout()),
		)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("failed to create client: %w", err)
		}
		env.closers = append(env.closers, client.Close)
		sender = client
	}

	env.store = conversation.New(
		conversation.WithSender(sender),
		conversation.WithTimeout(cfg.Timeout()),
		conversation.WithLogger(logger),
	)

	logger.Debug("environment ready",
		zap.String("endpoint", cfg.ChatEndpoint()),
		zap.Duration("timeout", cfg.Timeout()),
		zap.String("session", env.session.Path()),
	)
	return env, nil
}

// commandContext returns the command context, or Background when the
// command runs outside Execute
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
