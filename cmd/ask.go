package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gregoriusjimmy/llm-council/internal/backend"
	"github.com/gregoriusjimmy/llm-council/internal/config"
	"github.com/gregoriusjimmy/llm-council/internal/council"
	promptpkg "github.com/gregoriusjimmy/llm-council/internal/prompt"
	"github.com/gregoriusjimmy/llm-council/internal/session"
)

var (
	prompt          string
	argFlags        []string
	useEditor       bool
	chairmanModel   string
	councilFile     string
	advisorTimeout  time.Duration
	showOpinions    bool
	sessionID       string
	newSession      bool
	sessionName     string
	ignoreThreshold bool
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Put a question to the council",
	Long: `Put a question to the council and stream the chairman's synthesized answer.

Every advisor answers in parallel. Their status is shown on stderr as they
finish; a slow or failing advisor never blocks the others. The chairman then
critiques the opinions privately and streams the final answer to stdout.

If no question is provided as an argument, it reads from stdin.
If --editor flag is set, it opens the default editor (from EDITOR environment variable) to compose the question.

The prompt file should be in TOML format with the following structure:
system = "Extra instructions appended to every advisor's role"
user = "Question template with optional {{input}} placeholder"
chairman = "optional-model-id"  # Optional: overrides the chairman model`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(councilFile)
		if err != nil {
			return err
		}

		// Validate session flags
		if sessionID != "" && newSession {
			return fmt.Errorf("cannot specify both --session and --new-session")
		}
		if sessionID != "" && prompt != "" {
			return fmt.Errorf("cannot use --prompt with existing session")
		}

		message, err := readQuestion(args)
		if err != nil {
			return err
		}
		if message == "" {
			return fmt.Errorf("no question given")
		}

		if cmd.Flags().Changed("advisor-timeout") {
			cfg.AdvisorTimeout = advisorTimeout.String()
		}

		var (
			sess         *session.Session
			isNewSession bool
			question     = message
		)

		if sessionID != "" {
			sess, err = session.FindSessionByPrefix(sessionID)
			if err != nil {
				return fmt.Errorf("finding session: %w", err)
			}
			if !checkThreshold(cfg, sess) {
				return nil
			}
			cfg.Advisors = sess.Advisors
			cfg.ChairmanModel = sess.ChairmanModel
			logger.Debug("continuing session", "session", sess.GetShortID(), "chairman", sess.ChairmanModel)
		} else {
			formatted, err := promptpkg.FormatMessage(message, prompt, cfg.PromptDirs, argFlags)
			if err != nil {
				return fmt.Errorf("formatting message with prompt: %w", err)
			}
			question = formatted.Question
			applyTemplate(cfg, formatted)

			if newSession {
				isNewSession = true
				sess = session.NewSession(cfg.Council())
				sess.Name = sessionName
				sess.TemplateName = prompt
				sess.SystemPrompt = formatted.System
				logger.Debug("creating session", "session", sess.GetShortID(), "chairman", sess.ChairmanModel)
			}
		}

		// Chairman priority: flag > session or template > config file
		if cmd.Flags().Changed("chairman") {
			if sess != nil && !isNewSession {
				return fmt.Errorf("cannot use --chairman with existing session")
			}
			cfg.ChairmanModel = chairmanModel
			if sess != nil {
				sess.ChairmanModel = chairmanModel
			}
		}

		m, err := newManager(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var history []backend.Message
		if sess != nil {
			history = sess.History()
		}

		turn, answer, err := askCouncil(ctx, m, question, history, os.Stdout, showOpinions)
		if err != nil {
			return err
		}

		if sess == nil {
			return nil
		}

		sess.AddTurn(turn, answer)
		if err := session.SaveSession(sess); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}

		if isNewSession {
			fmt.Fprintf(os.Stderr, "\nSession created: %s\n", sess.GetShortID())
			sessionDir, _ := session.GetSessionDir()
			fmt.Fprintf(os.Stderr, "Path: %s/%s.json\n", sessionDir, sess.ID)
			fmt.Fprintf(os.Stderr, "\nNext time, use:\n  llm-council ask -s %s \"your question\"\n", sess.GetShortID())
			fmt.Fprintf(os.Stderr, "For interactive mode, use:\n  llm-council sessions start %s\n", sess.GetShortID())
		}
		return nil
	},
}

// applyTemplate folds a formatted prompt template into the council config.
func applyTemplate(cfg *config.Config, formatted *promptpkg.Formatted) {
	cfg.Advisors = formatted.ApplyToAdvisors(cfg.Council().Advisors)
	if formatted.Chairman != nil {
		cfg.ChairmanModel = *formatted.Chairman
		logger.Debug("using chairman from prompt file", "model", cfg.ChairmanModel)
	}
}

// checkThreshold warns about long sessions and reports whether to continue.
func checkThreshold(cfg *config.Config, sess *session.Session) bool {
	threshold := cfg.SessionMessageThreshold
	if threshold <= 0 || sess.MessageCount() < threshold || ignoreThreshold {
		return true
	}

	fmt.Fprintf(os.Stderr, "\nWarning: Session %s has %d messages (threshold: %d).\n",
		sess.GetShortID(), sess.MessageCount(), threshold)
	fmt.Fprintf(os.Stderr, "Only the last %d messages are sent to the council, older context is lost.\n", cfg.HistoryWindow)
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	fmt.Fprintf(os.Stderr, "  1. Continue anyway with --ignore-threshold flag\n")
	fmt.Fprintf(os.Stderr, "  2. Summarize session: llm-council sessions summarize %s\n", sess.GetShortID())
	fmt.Fprintf(os.Stderr, "  3. Start a new session: llm-council ask --new-session\n\n")

	if !confirm("Continue with this session?") {
		fmt.Fprintln(os.Stderr, "Cancelled.")
		return false
	}
	return true
}

// readQuestion takes the question from the editor, the arguments or stdin.
func readQuestion(args []string) (string, error) {
	if useEditor {
		message, err := getMessageFromEditor()
		if err != nil {
			return "", fmt.Errorf("getting message from editor: %w", err)
		}
		return message, nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading from stdin: %w", err)
	}
	return strings.TrimSpace(string(input)), nil
}

// getMessageFromEditor opens the default editor and returns the edited message
func getMessageFromEditor() (string, error) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return "", fmt.Errorf("EDITOR environment variable is not set")
	}

	tmpFile, err := os.CreateTemp("", "llm-council-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpFile.Close()
	defer os.Remove(tmpFile.Name())

	cmd := exec.Command(editor, tmpFile.Name())
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to open editor: %w", err)
	}

	content, err := os.ReadFile(tmpFile.Name())
	if err != nil {
		return "", fmt.Errorf("failed to read edited content: %w", err)
	}
	return strings.TrimSpace(string(content)), nil
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Name of the prompt template (without .toml extension)")
	askCmd.Flags().StringArrayVar(&argFlags, "arg", []string{}, "Key-value pairs for prompt template (format: key:value)")
	askCmd.Flags().BoolVarP(&useEditor, "editor", "e", false, "Use default editor (from EDITOR environment variable) to compose the question")
	askCmd.Flags().StringVar(&chairmanModel, "chairman", "", "Chairman model (overrides config and prompt template)")
	askCmd.Flags().StringVar(&councilFile, "council", "", "Council definition file (.toml, .yaml or .yml)")
	askCmd.Flags().DurationVar(&advisorTimeout, "advisor-timeout", council.DefaultAdvisorTimeout, "Per-advisor timeout")
	askCmd.Flags().BoolVar(&showOpinions, "opinions", false, "Print every advisor's answer before the synthesis")

	// Session flags
	askCmd.Flags().StringVarP(&sessionID, "session", "s", "", "Session ID (short or full UUID, or 'latest' for most recent session)")
	askCmd.Flags().BoolVarP(&newSession, "new-session", "n", false, "Create a new session")
	askCmd.Flags().StringVar(&sessionName, "session-name", "", "Name for the new session (optional)")
	askCmd.Flags().BoolVar(&ignoreThreshold, "ignore-threshold", false, "Ignore session message threshold warning")
}
