package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/gregoriusjimmy/llm-council/internal/backend"
	"github.com/gregoriusjimmy/llm-council/internal/config"
	"github.com/gregoriusjimmy/llm-council/internal/council"
	"github.com/gregoriusjimmy/llm-council/internal/session"
)

// sessionsCmd represents the sessions command
var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage conversation sessions",
	Long: `Manage conversation sessions including listing, viewing, and deleting sessions.

Sessions keep the conversation history across turns. A session remembers the
council it was created with, so later turns are answered by the same advisors.`,
}

// sessionsListCmd represents the sessions list command
var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sessions",
	Long:  `List all conversation sessions sorted by most recently updated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := session.ListSessions()
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}

		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			fmt.Println("\nCreate a new session with:")
			fmt.Println("  llm-council ask --new-session \"your question\"")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCHAIRMAN\tADVISORS\tCREATED\tMESSAGES\tNAME")
		fmt.Fprintln(w, "--\t--------\t--------\t-------\t--------\t----")
		for _, sess := range sessions {
			name := sess.Name
			if name == "" {
				name = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%s\n",
				sess.GetShortID(),
				sess.ChairmanModel,
				len(sess.Advisors),
				sess.CreatedAt.Format("2006-01-02"),
				sess.MessageCount(),
				name,
			)
		}
		w.Flush()

		fmt.Println("\nUse 'llm-council sessions show <id>' to view session details.")
		return nil
	},
}

// sessionsShowCmd represents the sessions show command
var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show session details and history",
	Long: `Show detailed information about a session including all messages.

The ID can be a short ID (minimum 4 characters), full UUID, or "latest" for the most recent session.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := session.FindSessionByPrefix(args[0])
		if err != nil {
			return fmt.Errorf("finding session: %w", err)
		}

		printSessionInfo(os.Stdout, sess)
		fmt.Println()

		if len(sess.Messages) == 0 {
			fmt.Println("No messages in this session.")
			return nil
		}

		fmt.Println("Message History:")
		fmt.Println("----------------")
		turn := 0
		for i, msg := range sess.Messages {
			roleLabel := "You"
			if msg.Role == backend.RoleAssistant {
				roleLabel = "Council"
			}
			fmt.Printf("\n[%d] %s (%s):\n", i+1, roleLabel, msg.Timestamp.Format("2006-01-02 15:04:05"))

			// Show how the advisors fared before each answer
			if msg.Role == backend.RoleAssistant && i > 0 && turn < len(sess.Turns) && sess.Turns[turn].Prompt == sess.Messages[i-1].Content {
				for _, res := range sess.Turns[turn].Results {
					fmt.Println("  " + renderAdvisor(res))
				}
				turn++
			}
			fmt.Println(msg.Content)
		}

		fmt.Printf("\nContinue this session with:\n  llm-council ask -s %s \"your question\"\n", sess.GetShortID())
		return nil
	},
}

func printSessionInfo(w io.Writer, sess *session.Session) {
	fmt.Fprintf(w, "Session: %s\n", sess.ID)
	if sess.Name != "" {
		fmt.Fprintf(w, "Name: %s\n", sess.Name)
	}
	if sess.ParentID != "" {
		fmt.Fprintf(w, "Parent: %s\n", sess.ParentID)
	}
	fmt.Fprintf(w, "Chairman: %s\n", sess.ChairmanModel)
	fmt.Fprintf(w, "Advisors:\n")
	for _, a := range sess.Advisors {
		fmt.Fprintf(w, "  - %s (%s)\n", a.Name, a.Model)
	}
	fmt.Fprintf(w, "Created: %s\n", sess.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Updated: %s\n", sess.UpdatedAt.Format("2006-01-02 15:04:05"))
	if sess.TemplateName != "" {
		fmt.Fprintf(w, "Template: %s\n", sess.TemplateName)
	}
	if sess.SystemPrompt != "" {
		fmt.Fprintf(w, "System Prompt: %s\n", sess.SystemPrompt)
	}
	fmt.Fprintf(w, "Messages: %d\n", sess.MessageCount())
}

// sessionsDeleteCmd represents the sessions delete command
var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session",
	Long: `Delete a conversation session permanently.

The ID can be a short ID (minimum 4 characters), full UUID, or "latest" for the most recent session.

Warning: This action cannot be undone.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := session.FindSessionByPrefix(args[0])
		if err != nil {
			return fmt.Errorf("finding session: %w", err)
		}

		if !confirm(fmt.Sprintf("Are you sure you want to delete session %s?", sess.GetShortID())) {
			fmt.Println("Deletion cancelled.")
			return nil
		}

		if err := session.DeleteSession(sess.ID); err != nil {
			return fmt.Errorf("deleting session: %w", err)
		}
		fmt.Printf("Session %s deleted successfully.\n", sess.GetShortID())
		return nil
	},
}

// sessionsRenameCmd represents the sessions rename command
var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := session.FindSessionByPrefix(args[0])
		if err != nil {
			return fmt.Errorf("finding session: %w", err)
		}

		sess.Name = args[1]
		if err := session.SaveSession(sess); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}
		fmt.Printf("Session %s renamed to %q.\n", sess.GetShortID(), args[1])
		return nil
	},
}

// sessionsClearCmd represents the sessions clear command
var sessionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete old sessions",
	Long: `Delete old conversation sessions permanently.

By default, deletes sessions older than session_retention_days (30 days unless configured).
Use --before to specify a different date, or --all to delete all sessions.
Sessions that a surviving summarized session points to are kept.

Warning: This action cannot be undone.

Examples:
  llm-council sessions clear                      # Delete sessions older than the retention period
  llm-council sessions clear --before 2024-01-01  # Delete sessions created before 2024-01-01
  llm-council sessions clear --before 2024-12     # Delete sessions created before 2024-12-01
  llm-council sessions clear --all                # Delete all sessions`,
	RunE: func(cmd *cobra.Command, args []string) error {
		beforeDateStr, _ := cmd.Flags().GetString("before")
		deleteAll, _ := cmd.Flags().GetBool("all")

		sessions, err := session.ListSessions()
		if err != nil {
			return fmt.Errorf("listing sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions to delete.")
			return nil
		}

		var beforeDate time.Time
		question := "Are you sure you want to delete all %d sessions?"
		if !deleteAll {
			if beforeDateStr != "" {
				beforeDate, err = session.ParseDate(beforeDateStr)
				if err != nil {
					return fmt.Errorf("parsing date: %w", err)
				}
			} else {
				cfg, err := config.LoadConfig()
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				beforeDate = time.Now().AddDate(0, 0, -cfg.SessionRetentionDays)
			}
			question = fmt.Sprintf("Are you sure you want to delete %%d sessions created before %s?", beforeDate.Format("2006-01-02"))
		}

		toDelete, protected := session.SelectForDeletion(sessions, beforeDate, deleteAll)

		if len(protected) > 0 {
			fmt.Fprintf(os.Stderr, "\nNotice: The following sessions were not deleted (referenced by child sessions):\n")
			for _, parent := range protected {
				fmt.Fprintf(os.Stderr, "  - %s (created: %s)\n", parent.GetShortID(), parent.CreatedAt.Format("2006-01-02"))
			}
			fmt.Fprintln(os.Stderr)
		}

		if len(toDelete) == 0 {
			fmt.Println("No sessions to delete.")
			return nil
		}

		if !confirm(fmt.Sprintf(question, len(toDelete))) {
			fmt.Println("Deletion cancelled.")
			return nil
		}

		deleted, failed := 0, 0
		for _, sess := range toDelete {
			if err := session.DeleteSession(sess.ID); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to delete session %s: %v\n", sess.GetShortID(), err)
				failed++
				continue
			}
			deleted++
		}

		fmt.Printf("Successfully deleted %d sessions", deleted)
		if failed > 0 {
			fmt.Printf(" (%d failed)", failed)
		}
		fmt.Println(".")
		return nil
	},
}

const summaryPrefix = "Previous conversation summary:\n\n"

// sessionsSummarizeCmd represents the sessions summarize command
var sessionsSummarizeCmd = &cobra.Command{
	Use:   "summarize <id>",
	Short: "Summarize a session and create a new one",
	Long: `Summarize a conversation session with its chairman model and create a new
session that starts from the summary. The new session keeps the same council.

The original session is preserved and the new session has its ParentID set.
The ID can be a short ID (minimum 4 characters), full UUID, or "latest" for the most recent session.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := session.FindSessionByPrefix(args[0])
		if err != nil {
			return fmt.Errorf("finding session: %w", err)
		}
		if sess.MessageCount() == 0 {
			return fmt.Errorf("session %s has no messages to summarize", sess.GetShortID())
		}

		ancestors, err := session.Ancestors(sess)
		if err != nil {
			return fmt.Errorf("collecting ancestor sessions: %w", err)
		}
		// Oldest first, current session last
		chain := append(ancestors, sess)
		slices.Reverse(chain[:len(ancestors)])

		conversation, total := conversationText(chain)
		fmt.Fprintf(os.Stderr, "Summarizing %d messages from session %s", total, sess.GetShortID())
		if len(ancestors) > 0 {
			fmt.Fprintf(os.Stderr, " and %d ancestor session(s)", len(ancestors))
		}
		fmt.Fprintf(os.Stderr, "...\n")

		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		router, err := newRouter(cfg)
		if err != nil {
			return err
		}
		timeouts, err := cfg.Timeouts()
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Generating summary using %s...\n", sess.ChairmanModel)

		ctx, cancel := context.WithTimeout(context.Background(), timeouts.Critique)
		defer cancel()
		resp, err := router.Complete(ctx, backend.Request{
			Model: sess.ChairmanModel,
			Messages: []backend.Message{{Role: backend.RoleUser, Content: fmt.Sprintf(`Please summarize the following conversation in 3-5 concise paragraphs.
Focus on:
- Main topics discussed
- Key decisions made
- Current status or next steps

Conversation history:

%s`, conversation)}},
		})
		if err != nil {
			return fmt.Errorf("generating summary: %w", err)
		}

		newSess := session.NewSession(sess.Council())
		newSess.ParentID = sess.ID
		newSess.SystemPrompt = sess.SystemPrompt
		newSess.TemplateName = sess.TemplateName
		newSess.AddMessage(backend.RoleUser, summaryPrefix+resp.Content)

		if err := session.SaveSession(newSess); err != nil {
			return fmt.Errorf("saving new session: %w", err)
		}

		fmt.Fprintf(os.Stderr, "\nNew session created: %s (parent: %s)\n", newSess.GetShortID(), sess.GetShortID())
		sessionDir, _ := session.GetSessionDir()
		fmt.Fprintf(os.Stderr, "Path: %s/%s.json\n", sessionDir, newSess.ID)
		fmt.Fprintf(os.Stderr, "\nContinue with:\n  llm-council ask -s %s \"your question\"\n", newSess.GetShortID())
		return nil
	},
}

// conversationText numbers the messages of sessions, oldest first. The
// leading summary of a summarized session is skipped since its parent's
// messages are already included.
func conversationText(sessions []*session.Session) (string, int) {
	var b strings.Builder
	n := 0
	for _, s := range sessions {
		for i, msg := range s.Messages {
			if i == 0 && s.ParentID != "" && strings.HasPrefix(msg.Content, summaryPrefix) {
				continue
			}
			role := "User"
			if msg.Role == backend.RoleAssistant {
				role = "Council"
			}
			n++
			fmt.Fprintf(&b, "[Message %d] %s: %s\n\n", n, role, msg.Content)
		}
	}
	return b.String(), n
}

// sessionsStartCmd represents the sessions start command
var sessionsStartCmd = &cobra.Command{
	Use:   "start [session-id]",
	Short: "Start an interactive session",
	Long: `Start an interactive session with continuous conversation.

You can either start a new session or continue an existing one by providing its ID.
The ID can be a short ID (minimum 4 characters), full UUID, or "latest" for the most recent session.

Examples:
  llm-council sessions start            # Start a new interactive session
  llm-council sessions start 550e8400   # Continue session 550e8400 in interactive mode
  llm-council sessions start latest     # Continue latest session in interactive mode`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(councilFile)
		if err != nil {
			return err
		}

		var sess *session.Session
		if len(args) > 0 {
			sess, err = session.FindSessionByPrefix(args[0])
			if err != nil {
				return fmt.Errorf("finding session: %w", err)
			}
			cfg.Advisors = sess.Advisors
			cfg.ChairmanModel = sess.ChairmanModel
			logger.Debug("continuing session", "session", sess.GetShortID())
		} else {
			sess = session.NewSession(cfg.Council())
			if err := session.SaveSession(sess); err != nil {
				return fmt.Errorf("saving session: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Session created: %s\n", sess.GetShortID())
			sessionDir, _ := session.GetSessionDir()
			fmt.Fprintf(os.Stderr, "Path: %s/%s.json\n\n", sessionDir, sess.ID)
		}

		m, err := newManager(cfg)
		if err != nil {
			return err
		}

		if err := runInteractiveMode(sess, m); err != nil {
			return fmt.Errorf("interactive mode: %w", err)
		}
		return nil
	},
}

// runInteractiveMode starts an interactive council session
func runInteractiveMode(sess *session.Session, m *council.Manager) error {
	fmt.Fprintf(os.Stderr, "\n=== Interactive Session [%s] ===\n", sess.GetShortID())
	fmt.Fprintf(os.Stderr, "Chairman: %s, advisors: %d\n", sess.ChairmanModel, len(sess.Advisors))
	fmt.Fprintf(os.Stderr, "Type '/help' for commands, '/exit' or 'Ctrl+D' to quit\n")
	fmt.Fprintf(os.Stderr, "===================================\n\n")

	historyFile := ""
	if dir, err := session.GetSessionDir(); err == nil {
		historyFile = filepath.Join(dir, ".history")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "You> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "/exit",
		Stdout:          os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("input error: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(os.Stderr, "Goodbye!")
			return nil
		}
		if err != nil {
			return fmt.Errorf("input error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if handleSpecialCommand(input, sess, m) {
				continue
			}
			return nil
		}

		// Ctrl+C cancels the running turn, not the session
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		fmt.Fprintln(os.Stderr)
		turn, answer, err := askCouncil(ctx, m, input, sess.History(), os.Stdout, false)
		stop()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}

		sess.AddTurn(turn, answer)
		if err := session.SaveSession(sess); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save session: %v\n", err)
		}
		fmt.Println()
	}
}

// handleSpecialCommand processes special commands in interactive mode
// Returns true to continue the loop, false to exit
func handleSpecialCommand(command string, sess *session.Session, m *council.Manager) bool {
	command = strings.ToLower(strings.TrimSpace(command))

	switch command {
	case "/help", "/h":
		fmt.Fprintln(os.Stderr, "\nAvailable commands:")
		fmt.Fprintln(os.Stderr, "  /help, /h     - Show this help message")
		fmt.Fprintln(os.Stderr, "  /info, /i     - Show session information")
		fmt.Fprintln(os.Stderr, "  /council      - Show the advisors and the chairman")
		fmt.Fprintln(os.Stderr, "  /opinions     - Show the advisors' answers from the last turn")
		fmt.Fprintln(os.Stderr, "  /clear, /c    - Clear screen (Unix/Linux only)")
		fmt.Fprintln(os.Stderr, "  /exit, /quit  - Exit interactive mode")
		fmt.Fprintln(os.Stderr, "  Ctrl+D        - Exit interactive mode")
		fmt.Fprintln(os.Stderr, "")
		return true

	case "/info", "/i":
		fmt.Fprintln(os.Stderr)
		printSessionInfo(os.Stderr, sess)
		fmt.Fprintln(os.Stderr)
		return true

	case "/council":
		c := m.Council()
		fmt.Fprintln(os.Stderr)
		for i, a := range c.Advisors {
			fmt.Fprintf(os.Stderr, "  %d. %s (%s)\n", i+1, a.Name, a.Model)
		}
		fmt.Fprintf(os.Stderr, "  Chairman: %s\n\n", c.Chairman.Model)
		return true

	case "/opinions":
		if len(sess.Turns) == 0 {
			fmt.Fprintln(os.Stderr, "No turns yet.")
			return true
		}
		fmt.Print(renderOpinions(sess.Turns[len(sess.Turns)-1].Results))
		return true

	case "/clear", "/c":
		fmt.Print("\033[H\033[2J")
		return true

	case "/exit", "/quit", "/q":
		fmt.Fprintln(os.Stderr, "Goodbye!")
		return false

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s (type '/help' for available commands)\n", command)
		return true
	}
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsRenameCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)
	sessionsCmd.AddCommand(sessionsSummarizeCmd)
	sessionsCmd.AddCommand(sessionsStartCmd)

	sessionsClearCmd.Flags().String("before", "", "Delete only sessions created before this date (format: YYYY-MM-DD, YYYY-MM, or YYYY)")
	sessionsClearCmd.Flags().Bool("all", false, "Delete all sessions (overrides retention days setting)")
	sessionsStartCmd.Flags().StringVar(&councilFile, "council", "", "Council definition file for a new session (.toml, .yaml or .yml)")
}
