package inbox

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForLinkRetriesUntilFound(t *testing.T) {
	msg := fakeMessage{
		uid:  1,
		from: "noreply@app.example",
		date: base,
		raw:  plainMessage("noreply@app.example", "Set your new password", "https://example.com/setpassword/late", base),
	}

	dials := 0
	var sessions []*fakeSession
	d := DialerFunc(func(context.Context, Credentials) (Session, error) {
		dials++
		s := &fakeSession{folders: map[string][]fakeMessage{"INBOX": nil}}
		if dials >= 3 {
			s.folders["INBOX"] = []fakeMessage{msg}
		}
		sessions = append(sessions, s)
		return s, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := WaitForLink(ctx, newTestFinder(d), testCreds, SetPasswordFilter("noreply@app.example", setPattern), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/setpassword/late", res.Link)
	assert.Equal(t, 3, dials)
	for _, s := range sessions {
		assert.Equal(t, 1, s.logouts)
	}
}

func TestWaitForLinkStopsOnContext(t *testing.T) {
	d := DialerFunc(func(context.Context, Credentials) (Session, error) {
		return &fakeSession{folders: map[string][]fakeMessage{"INBOX": nil}}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := WaitForLink(ctx, newTestFinder(d), testCreds, LoginLinkFilter(), 10*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, res.Found())
}

func TestWaitForLinkStopsOnRejectedLogin(t *testing.T) {
	dials := 0
	d := DialerFunc(func(context.Context, Credentials) (Session, error) {
		dials++
		return nil, fmt.Errorf("%w for qa@example.com: %w", ErrAuthFailed, errors.New("NO [AUTHENTICATIONFAILED] Invalid credentials"))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := WaitForLink(ctx, newTestFinder(d), testCreds, LoginLinkFilter(), 10*time.Millisecond)
	require.Error(t, err)
	assert.True(t, IsAuthFailure(err))
	assert.True(t, IsConnectionError(err))
	assert.NoError(t, ctx.Err())
	assert.Equal(t, OutcomeConnectionFailed, res.Outcome)
	assert.Equal(t, 1, dials)
}

func TestWaitForLinkRetriesUnreachableServer(t *testing.T) {
	dials := 0
	d := DialerFunc(func(context.Context, Credentials) (Session, error) {
		dials++
		if dials < 3 {
			return nil, errors.New("dial tcp: connection refused")
		}
		return &fakeSession{folders: map[string][]fakeMessage{"INBOX": {{
			uid:  1,
			from: "noreply@app.example",
			date: base,
			raw:  plainMessage("noreply@app.example", "Set your new password", "https://example.com/setpassword/back", base),
		}}}}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := WaitForLink(ctx, newTestFinder(d), testCreds, SetPasswordFilter("noreply@app.example", setPattern), 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/setpassword/back", res.Link)
	assert.Equal(t, 3, dials)
}
