// Package progress shows a spinner while a blocking operation runs.
package progress

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"

	"github.com/nhle/opencart-qa/internal/keys"
	"github.com/nhle/opencart-qa/internal/theme"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// doneMsg carries the result of the wrapped operation.
type doneMsg struct {
	err error
}

type model struct {
	spinner spinner.Model
	keys    *keys.KeyMap
	title   string
	cancel  context.CancelFunc
	done    bool
	err     error
}

func newModel(title string, cancel context.CancelFunc) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.MutedStyle

	return model{spinner: sp, keys: keys.DefaultKeyMap(), title: title, cancel: cancel}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Cancel) {
			// The view stays up until the operation returns and sends doneMsg.
			m.cancel()
			m.title = "cancelling"
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	if m.done {
		return ""
	}
	hint := theme.MutedStyle.Render(m.keys.Cancel.Help().Key + " " + m.keys.Cancel.Help().Desc)
	return fmt.Sprintf("%s %s  %s\n", m.spinner.View(), m.title, hint)
}

// Run calls fn and returns its error. On a terminal a spinner labelled
// title is shown until fn returns; otherwise the title is printed once.
// Plain forces the non-interactive mode. Run never returns before fn does.
func Run(ctx context.Context, out io.Writer, title string, plain bool, fn func(context.Context) error) error {
	if plain || !IsTerminal(out) {
		fmt.Fprintln(out, theme.MutedStyle.Render(title+"..."))
		return fn(ctx)
	}
	return runView(ctx, out, title, fn)
}

// runView runs fn in its own goroutine while a bubbletea program renders the
// spinner. The program does not share ctx: cancelling, from the keyboard or
// the caller, only reaches fn, and the program quits once fn reports back.
// SIGINT is left to the caller's signal handling.
func runView(ctx context.Context, out io.Writer, title string, fn func(context.Context) error, opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts = append([]tea.ProgramOption{tea.WithOutput(out), tea.WithoutSignalHandler()}, opts...)
	p := tea.NewProgram(newModel(title, cancel), opts...)

	result := make(chan error, 1)
	go func() {
		err := fn(ctx)
		result <- err
		p.Send(doneMsg{err: err})
	}()

	_, viewErr := p.Run()
	interrupted := ctx.Err()

	// The view can end early on a terminal failure; fn must still finish.
	cancel()
	err := <-result

	switch {
	case interrupted != nil && err == nil:
		return interrupted
	case interrupted == nil && viewErr != nil:
		return fmt.Errorf("running progress view: %w", viewErr)
	}
	return err
}
