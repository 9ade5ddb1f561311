package inbox

import (
	"context"
	"time"
)

// MessageHeader is the header-only metadata used to order candidates
// before any body is downloaded.
type MessageHeader struct {
	UID          uint32
	SentAt       time.Time
	InternalDate time.Time
}

// Session is an authenticated connection to one mailbox. Implementations
// are used by a single goroutine and are not reused across searches.
type Session interface {
	// ListFolders returns every selectable folder.
	ListFolders(ctx context.Context) ([]string, error)

	// Select opens folder read-only.
	Select(ctx context.Context, folder string) error

	// Search returns the UIDs in the selected folder sent by sender, or
	// every UID when sender is empty, in ascending order.
	Search(ctx context.Context, sender string) ([]uint32, error)

	// FetchHeaders returns date metadata for uids in the selected folder.
	FetchHeaders(ctx context.Context, uids []uint32) ([]MessageHeader, error)

	// FetchRaw returns the full RFC 5322 message without setting \Seen.
	FetchRaw(ctx context.Context, uid uint32) ([]byte, error)

	// Logout ends the session and releases the connection.
	Logout() error
}

// Dialer opens authenticated sessions. A Dialer that fails must not leave
// a connection open.
type Dialer interface {
	Dial(ctx context.Context, creds Credentials) (Session, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, creds Credentials) (Session, error)

// Dial calls f(ctx, creds).
func (f DialerFunc) Dial(ctx context.Context, creds Credentials) (Session, error) {
	return f(ctx, creds)
}
