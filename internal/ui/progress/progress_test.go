package progress

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPlainCallsFn(t *testing.T) {
	var out bytes.Buffer
	called := false

	err := Run(context.Background(), &out, "Searching inbox", false, func(ctx context.Context) error {
		called = true
		return ctx.Err()
	})

	require.NoError(t, err)
	assert.True(t, called)
	assert.Contains(t, out.String(), "Searching inbox...")
}

func TestRunPlainReturnsError(t *testing.T) {
	want := errors.New("boom")
	err := Run(context.Background(), &bytes.Buffer{}, "x", true, func(context.Context) error { return want })
	assert.ErrorIs(t, err, want)
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}

func TestModelFinishesOnDone(t *testing.T) {
	m := newModel("working", func() {})
	want := errors.New("failed")

	next, cmd := m.Update(doneMsg{err: want})
	got := next.(model)

	assert.True(t, got.done)
	assert.Equal(t, want, got.err)
	assert.Empty(t, got.View())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModelCancelsOnInterrupt(t *testing.T) {
	cancelled := false
	m := newModel("working", func() { cancelled = true })

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.True(t, cancelled)
	assert.Contains(t, next.(model).View(), "cancelling")
}

func TestModelIgnoresOtherKeys(t *testing.T) {
	cancelled := false
	m := newModel("working", func() { cancelled = true })

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.False(t, cancelled)

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, cancelled)
}

// slowFn blocks until its context is cancelled, then keeps working for a
// while before returning.
func slowFn(started chan<- struct{}, finished *atomic.Bool) func(context.Context) error {
	return func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		time.Sleep(200 * time.Millisecond)
		finished.Store(true)
		return nil
	}
}

func TestRunViewCancelKeyWaitsForFn(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool

	in, typed := io.Pipe()
	go func() {
		<-started
		time.Sleep(50 * time.Millisecond)
		_, _ = typed.Write([]byte("q"))
	}()

	err := runView(context.Background(), &bytes.Buffer{}, "working", slowFn(started, &finished), tea.WithInput(in))

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, finished.Load(), "Run returned before the operation finished")
}

func TestRunViewParentCancelWaitsForFn(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-started
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := runView(ctx, &bytes.Buffer{}, "working", slowFn(started, &finished), tea.WithInput(nil))

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, finished.Load(), "Run returned before the operation finished")
}

func TestRunViewReturnsFnResult(t *testing.T) {
	want := errors.New("lookup failed")

	err := runView(context.Background(), &bytes.Buffer{}, "working", func(context.Context) error {
		time.Sleep(20 * time.Millisecond)
		return want
	}, tea.WithInput(nil))
	assert.ErrorIs(t, err, want)

	err = runView(context.Background(), &bytes.Buffer{}, "working", func(context.Context) error {
		return nil
	}, tea.WithInput(nil))
	assert.NoError(t, err)
}
