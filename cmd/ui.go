package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/gregoriusjimmy/llm-council/internal/backend"
	"github.com/gregoriusjimmy/llm-council/internal/council"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))
	timeoutStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffb86c"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272a4"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#01cdfe"))
)

// renderAdvisor formats one advisor result as a status line.
func renderAdvisor(res council.AdvisorResult) string {
	label := fmt.Sprintf("%s (%s)", res.Name, res.Model)
	elapsed := mutedStyle.Render(res.Duration.Round(100 * time.Millisecond).String())
	switch res.Status {
	case council.StatusSuccess:
		return fmt.Sprintf("%s %s %s", okStyle.Render("✓"), label, elapsed)
	case council.StatusTimeout:
		return fmt.Sprintf("%s %s %s", timeoutStyle.Render("⏱"), label, timeoutStyle.Render("timed out"))
	default:
		return fmt.Sprintf("%s %s %s", errorStyle.Render("✗"), label, errorStyle.Render(firstLine(res.Content)))
	}
}

// renderOpinions formats every advisor's full answer.
func renderOpinions(results []council.AdvisorResult) string {
	var b strings.Builder
	for _, res := range results {
		b.WriteString(headerStyle.Render(fmt.Sprintf("── %s (%s) ──", res.Name, res.Model)))
		b.WriteString("\n")
		b.WriteString(res.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	if len(line) > 80 {
		line = line[:77] + "..."
	}
	return line
}

var phaseLabels = map[council.Phase]string{
	council.PhaseGathering:    "Consulting the council...",
	council.PhaseCritiquing:   "Chairman is reviewing the opinions...",
	council.PhaseSynthesizing: "Chairman is preparing the answer...",
}

// progress draws a spinner with the current phase on stderr and prints
// advisor results above it as they arrive.
type progress struct {
	mu      sync.Mutex
	label   string
	done    chan struct{}
	stopped chan struct{}
}

func newProgress() *progress {
	p := &progress{
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go p.spin()
	return p
}

func (p *progress) spin() {
	defer close(p.stopped)

	spinners := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	for i := 0; ; i = (i + 1) % len(spinners) {
		select {
		case <-p.done:
			p.mu.Lock()
			fmt.Fprint(os.Stderr, "\r\033[K")
			p.mu.Unlock()
			return
		case <-ticker.C:
			p.mu.Lock()
			if p.label != "" {
				fmt.Fprintf(os.Stderr, "\r\033[K%s %s", spinners[i], mutedStyle.Render(p.label))
			}
			p.mu.Unlock()
		}
	}
}

func (p *progress) phase(ph council.Phase) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if label, ok := phaseLabels[ph]; ok {
		p.label = label
	}
}

func (p *progress) advisor(_ int, res council.AdvisorResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(os.Stderr, "\r\033[K%s\n", renderAdvisor(res))
}

func (p *progress) stop() {
	select {
	case <-p.done:
	default:
		close(p.done)
	}
	<-p.stopped
}

// askCouncil runs one turn, shows progress on stderr and streams the final
// answer to out. It returns the turn and the full answer text.
func askCouncil(ctx context.Context, m *council.Manager, question string, history []backend.Message, out io.Writer, showOpinions bool) (*council.Turn, string, error) {
	p := newProgress()
	turn, err := m.RunTurn(ctx, question, history, council.Hooks{
		OnPhase:   p.phase,
		OnAdvisor: p.advisor,
	})
	p.stop()

	if turn != nil && len(turn.Failed()) == len(turn.Results) && len(turn.Results) > 0 {
		fmt.Fprintln(os.Stderr, timeoutStyle.Render("Warning: no advisor answered; the chairman is working from failures only."))
	}
	if turn != nil && !turn.CritiqueOK {
		fmt.Fprintln(os.Stderr, timeoutStyle.Render("Warning: the chairman's critique failed; synthesizing without it."))
	}
	if err != nil {
		return turn, "", err
	}
	defer turn.Stream.Close()

	if showOpinions {
		fmt.Fprint(out, renderOpinions(turn.Results))
		fmt.Fprintln(out, headerStyle.Render("── Chairman ──"))
	}

	var answer strings.Builder
	for {
		chunk, err := turn.Stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintln(out)
			return turn, answer.String(), fmt.Errorf("reading answer: %w", err)
		}
		answer.WriteString(chunk)
		fmt.Fprint(out, chunk)
	}
	fmt.Fprintln(out)
	return turn, answer.String(), nil
}

// confirm asks a yes/no question on stderr.
func confirm(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)
	var response string
	fmt.Scanln(&response)
	return response == "y" || response == "Y"
}
