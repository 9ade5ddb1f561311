package inbox

import (
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/opencart-qa/internal/model"
)

// DefaultFolder is searched when a Filter names no folder.
const DefaultFolder = "INBOX"

// DefaultLimit bounds the number of messages taken from each folder when
// no sender filter narrows the search.
const DefaultLimit = 20

// Credentials identify the mailbox to open.
type Credentials struct {
	Host     string
	Port     int
	Username string

	// Password is usually an app password, not the account password.
	Password string

	// TLS selects implicit TLS (port 993). When false the connection is
	// upgraded with STARTTLS.
	TLS                bool
	InsecureSkipVerify bool
}

// Address returns host:port.
func (c Credentials) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Scope selects which folders a search covers.
type Scope int

const (
	// ScopeFolder searches Filter.Folder only.
	ScopeFolder Scope = iota
	// ScopeAllFolders searches every selectable folder in the listing.
	ScopeAllFolders
)

func (s Scope) String() string {
	switch s {
	case ScopeFolder:
		return "folder"
	case ScopeAllFolders:
		return "all"
	default:
		return "unknown"
	}
}

// ParseScope converts "folder" or "all" to a Scope.
func ParseScope(s string) (Scope, error) {
	switch model.NormalizeScope(s) {
	case model.ScopeFolder:
		return ScopeFolder, nil
	case model.ScopeAll:
		return ScopeAllFolders, nil
	default:
		return ScopeFolder, errors.New(`scope must be "folder" or "all"`)
	}
}

// SubjectMatch selects how Filter.Subject is compared. Both modes ignore
// case.
type SubjectMatch int

const (
	SubjectContains SubjectMatch = iota
	SubjectExact
)

// Filter is the immutable description of what to search for.
type Filter struct {
	// Sender restricts the server-side search to messages from this
	// address. Empty means every message, bounded by Limit.
	Sender string

	// Subject must appear in (or equal, see SubjectMatch) the decoded
	// subject. Empty accepts any subject.
	Subject      string
	SubjectMatch SubjectMatch

	// Pattern describes the link to extract. Required.
	Pattern *regexp.Regexp

	Scope  Scope
	Folder string

	// Limit caps messages per folder when Sender is empty. Zero means
	// DefaultLimit, negative means unlimited.
	Limit int
}

func (f Filter) folder() string {
	if f.Folder == "" {
		return DefaultFolder
	}
	return f.Folder
}

func (f Filter) limit() int {
	if f.Limit == 0 {
		return DefaultLimit
	}
	return f.Limit
}

// MatchesSubject reports whether subject satisfies the filter.
func (f Filter) MatchesSubject(subject string) bool {
	if f.Subject == "" {
		return true
	}
	want := strings.ToLower(strings.TrimSpace(f.Subject))
	got := strings.ToLower(strings.TrimSpace(subject))
	if f.SubjectMatch == SubjectExact {
		return got == want
	}
	return strings.Contains(got, want)
}

// CandidateMessage is a message under consideration during a search.
type CandidateMessage struct {
	Folder string
	UID    uint32

	// SentAt is the Date header, or the server's internal date when the
	// header is missing or unparsable.
	SentAt time.Time

	Subject string
	Sender  string
	Body    string
}

// Outcome is the terminal state of a search.
type Outcome int

const (
	OutcomeNotFound Outcome = iota
	OutcomeFound
	// OutcomeConnectionFailed means the mailbox could not be opened. It is
	// a not-found result with a recorded ConnectionError.
	OutcomeConnectionFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not found"
	case OutcomeConnectionFailed:
		return "connection failed"
	default:
		return "unknown"
	}
}

// Result is what a search produces: at most one link, plus every error
// that was recovered along the way.
type Result struct {
	Outcome Outcome
	Link    string

	// Message is the message the link came from; zero unless Found.
	Message CandidateMessage

	// Examined counts candidates whose full message was fetched.
	Examined int

	Errors []error
}

// Found reports whether a link was extracted.
func (r Result) Found() bool {
	return r.Outcome == OutcomeFound
}

// Err joins the recovered errors, or returns nil.
func (r Result) Err() error {
	return errors.Join(r.Errors...)
}
