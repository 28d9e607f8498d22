package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"

	"codeberg.org/snonux/flashpix/internal/image"
	"codeberg.org/snonux/flashpix/internal/workflow"
)

// ErrInterrupted is returned when a prompt ended without an answer
var ErrInterrupted = errors.New("prompt ended without an answer")

// Presenter asks every question of the workflow in the terminal. Each
// question runs its own short lived program, progress is printed as
// plain lines between them.
type Presenter struct {
	in     io.Reader
	out    io.Writer
	styles lineStyles

	// run executes a model until it quits
	run func(ctx context.Context, m tea.Model) (tea.Model, error)
}

// New creates a terminal presenter reading keys from in and drawing to out.
// A nil in, or a file that is not a terminal, makes the prompts read from
// the controlling terminal instead.
func New(in io.Reader, out io.Writer) *Presenter {
	p := &Presenter{
		in:     in,
		out:    out,
		styles: newLineStyles(out),
	}
	p.run = p.runProgram
	return p
}

func (p *Presenter) runProgram(ctx context.Context, m tea.Model) (tea.Model, error) {
	input := tea.WithInput(p.in)
	if needsTTY(p.in) {
		input = tea.WithInputTTY()
	}
	prog := tea.NewProgram(m, tea.WithContext(ctx), input, tea.WithOutput(p.out))
	final, err := prog.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to run prompt: %w", err)
	}
	return final, nil
}

// needsTTY reports whether in cannot deliver key presses, as with a pipe
// that already carried the input text
func needsTTY(in io.Reader) bool {
	if in == nil {
		return true
	}
	f, ok := in.(*os.File)
	return ok && !term.IsTerminal(f.Fd())
}

func (p *Presenter) Searching(step workflow.Step) {
	counter := p.styles.label.Render(fmt.Sprintf("[%d/%d]", step.Index+1, step.Total))
	fmt.Fprintf(p.out, "%s Searching images for %q...\n", counter, step.Term)
}

func (p *Presenter) PickCandidate(ctx context.Context, step workflow.Step, candidates []image.Candidate) (workflow.Pick, error) {
	final, err := p.run(ctx, newPickModel(step, candidates))
	if err != nil {
		return workflow.Pick{}, err
	}
	m, ok := final.(pickModel)
	if !ok || !m.done {
		return workflow.Pick{}, ErrInterrupted
	}
	return m.result, nil
}

func (p *Presenter) Recover(ctx context.Context, step workflow.Step, outcome workflow.Outcome) (workflow.Recovery, error) {
	final, err := p.run(ctx, newRecoverModel(step, outcome))
	if err != nil {
		return workflow.Recovery{}, err
	}
	m, ok := final.(recoverModel)
	if !ok || !m.done {
		return workflow.Recovery{}, ErrInterrupted
	}
	return m.result, nil
}

func (p *Presenter) Review(ctx context.Context, review workflow.Review) (workflow.ReviewDecision, error) {
	final, err := p.run(ctx, newReviewModel(review))
	if err != nil {
		return workflow.ReviewCancel, err
	}
	m, ok := final.(reviewModel)
	if !ok || !m.done {
		return workflow.ReviewCancel, ErrInterrupted
	}
	return m.result, nil
}

func (p *Presenter) Committing(done, total int, sel workflow.Selection) {
	if !sel.Found() {
		fmt.Fprintf(p.out, "  %s\n", p.styles.hint.Render(fmt.Sprintf("(%d/%d) %s skipped", done+1, total, sel.Item.Text)))
		return
	}
	fmt.Fprintf(p.out, "  (%d/%d) Creating card for %s\n", done+1, total, sel.Item.Text)
}

func (p *Presenter) Finished(result workflow.CommitResult) {
	style := p.styles.ok
	if result.Created == 0 {
		style = p.styles.hint
	}
	fmt.Fprintln(p.out, style.Render(result.Summary()))
}
