package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	apierrors "github.com/diogo/medimate/internal/errors"
	"github.com/diogo/medimate/internal/models"
	"github.com/diogo/medimate/internal/render"
	"github.com/diogo/medimate/internal/tui"
)

// Gradient colors for animation
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#2ec4b6"), // Teal
	lipgloss.Color("#3ddc97"), // Mint
	lipgloss.Color("#48dbfb"), // Cyan
	lipgloss.Color("#54a0ff"), // Blue
	lipgloss.Color("#7aa2f7"), // Periwinkle
	lipgloss.Color("#00d2d3"), // Aqua
	lipgloss.Color("#1dd1a1"), // Green
	lipgloss.Color("#9ece6a"), // Lime
}

// askStyles are the one-shot counterparts of the chat bubbles
type askStyles struct {
	label   lipgloss.Style
	bubble  lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	text    lipgloss.Style
	mute    lipgloss.Style
}

func newAskStyles(theme render.TUITheme) askStyles {
	return askStyles{
		label: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),
		bubble: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.AssistantBubble).
			Foreground(theme.Text).
			Padding(0, 1).
			MarginBottom(1),
		success: lipgloss.NewStyle().Foreground(theme.Secondary),
		warning: lipgloss.NewStyle().Foreground(theme.Warning),
		text:    lipgloss.NewStyle().Foreground(theme.Text),
		mute:    lipgloss.NewStyle().Foreground(theme.TextMute),
	}
}

// spinner handles the animated loading indicator
type spinner struct {
	message string
	out     io.Writer
	styles  askStyles
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	frame   int
	stopped bool // Flag to prevent double-close
}

// newSpinner creates a new animated spinner on stderr
func newSpinner(message string) *spinner {
	return &spinner{
		message: message,
		out:     os.Stderr,
		styles:  newAskStyles(render.GetTUITheme()),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// start begins the animation
func (s *spinner) start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		// Hide cursor
		fmt.Fprint(s.out, "\033[?25l")

		for {
			select {
			case <-s.stop:
				// Clear line and show cursor
				fmt.Fprint(s.out, "\r\033[K\033[?25h")
				return
			case <-ticker.C:
				s.mu.Lock()
				s.render()
				s.frame++
				s.mu.Unlock()
			}
		}
	}()
}

// render draws the current animation frame
func (s *spinner) render() {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

	spinColor := gradientColors[s.frame%len(gradientColors)]
	spinnerChar := lipgloss.NewStyle().Foreground(spinColor).Bold(true).Render(chars[s.frame%len(chars)])

	// Pulse bar
	barWidth := 12
	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		style := lipgloss.NewStyle().Foreground(gradientColors[(i+s.frame)%len(gradientColors)])
		if (i+s.frame/2)%barWidth < 3 {
			bar.WriteString(style.Render("█"))
		} else {
			bar.WriteString(s.styles.mute.Render("░"))
		}
	}

	var dots strings.Builder
	numDots := (s.frame / 3) % 4
	for i := 0; i < 3; i++ {
		if i < numDots {
			dots.WriteString(lipgloss.NewStyle().Foreground(gradientColors[(s.frame+i)%len(gradientColors)]).Render("●"))
		} else {
			dots.WriteString(s.styles.mute.Render("○"))
		}
	}

	fmt.Fprintf(s.out, "\r\033[K%s %s %s %s", spinnerChar, bar.String(), s.styles.text.Render(s.message), dots.String())
}

// stopOnce safely closes the stop channel only once
func (s *spinner) stopOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
}

// stopWithSuccess stops the spinner and shows success message
func (s *spinner) stopWithSuccess(message string) {
	s.stopOnce()
	<-s.done
	fmt.Fprintln(s.out, s.styles.success.Bold(true).Render("✓")+" "+s.styles.success.Render(message))
}

// stopWithError stops the spinner and shows error
func (s *spinner) stopWithError() {
	s.stopOnce()
	<-s.done
}

// addAskFlags registers the one-shot output flags on cmd
func addAskFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Save the reply to a file")
	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Read the question from a file")
	cmd.Flags().BoolVar(&rawFlag, "raw", false, "Print the reply text without decoration")
	cmd.Flags().BoolVarP(&copyFlag, "copy", "c", false, "Copy the reply to the clipboard")
}

// NewAskCmd creates the one-shot ask command
func NewAskCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question and print the reply",
		Long: `Ask MediMate a single question and print the rendered reply.

The question is taken from --file, piped stdin, or the argument.
With --raw only the reply text is printed, which suits scripts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question, ok, err := readPrompt(args, fileFlag, stdinFile)
			if err != nil {
				return err
			}
			if !ok {
				return cmd.Help()
			}
			return runAsk(cmd, deps, question)
		},
	}
	addAskFlags(cmd)
	return cmd
}

// runAsk drives the conversation store once without the TUI and prints the reply.
// With rawFlag set only the reply text is written.
func runAsk(cmd *cobra.Command, deps *Dependencies, question string) error {
	deps = deps.orDefault()
	question = strings.TrimSpace(question)
	if question == "" {
		return fmt.Errorf("question cannot be empty")
	}

	env, err := newEnvironment(cmd, deps)
	if err != nil {
		return err
	}
	defer env.Close()

	cfg := env.cfg
	render.SetTUITheme(cfg.TUITheme)
	styles := newAskStyles(render.GetTUITheme())
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	if cfg.Verbose && !rawFlag {
		fmt.Fprintf(stderr, "[verbose] Backend: %s\n", cfg.ChatEndpoint())
	}

	var spin *spinner
	if !rawFlag {
		spin = newSpinner(models.BusyLabel)
		spin.out = stderr
		spin.start()
	}

	startTime := time.Now()
	err = env.store.Submit(commandContext(cmd), question)
	requestDuration := time.Since(startTime)

	if err != nil {
		env.logger.Warn("ask failed", zap.Error(err), zap.Duration("took", requestDuration))
		if !rawFlag {
			spin.stopWithError()
			fmt.Fprintln(stderr, formatErrorMessage(err, "Request failed"))
		}
		return fmt.Errorf("request failed: %w", err)
	}
	if !rawFlag {
		spin.stopWithSuccess("Done")
	}

	if cfg.Verbose && !rawFlag {
		fmt.Fprintf(stderr, "[verbose] Request took %s\n", requestDuration.Round(time.Millisecond))
	}

	reply, _ := env.store.LastAssistant()
	text := reply.Content

	// Raw output mode: output only the raw text
	if rawFlag {
		if outputFlag != "" {
			if err := os.WriteFile(outputFlag, []byte(text), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			return nil
		}
		fmt.Fprint(stdout, text)
		return nil
	}

	fmt.Fprintln(stderr)

	if copyFlag || cfg.CopyToClipboard {
		if err := deps.Clipboard(text); err != nil {
			// Warn but don't fail
			fmt.Fprintln(stderr, styles.warning.Render(fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err)))
		} else {
			fmt.Fprintln(stderr, styles.success.Render("✓ Copied to clipboard"))
		}
	}

	if outputFlag != "" {
		if err := os.WriteFile(outputFlag, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintln(stderr, styles.success.Render(fmt.Sprintf("✓ Reply saved to %s", outputFlag)))
		return nil
	}

	bubbleWidth := clampWidth(getTerminalWidth() - 4)
	contentWidth := bubbleWidth - 4

	formatter := render.NewGlamour(render.OptionsFromConfig(cfg))
	rendered := render.FormatOrRaw(formatter, text, contentWidth)

	fmt.Fprintln(stdout, styles.label.Render(models.BrandMark+" "+models.AppName))
	fmt.Fprintln(stdout, styles.bubble.Width(bubbleWidth).Render(rendered))
	fmt.Fprintln(stdout, styles.mute.Render(models.DisclaimerText))
	return nil
}

// clampWidth keeps the reply bubble between 40 and 120 columns
func clampWidth(w int) int {
	if w < 40 {
		return 40
	}
	if w > 120 {
		return 120
	}
	return w
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80 // default width
	}
	return width
}

// formatErrorMessage formats an error for stderr, prefixed with context
func formatErrorMessage(err error, context string) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, apierrors.ErrNotSubmitted) {
		return fmt.Sprintf("✗ %s: nothing to send", context)
	}
	return tui.FormatError(fmt.Errorf("%s: %w", context, err))
}
