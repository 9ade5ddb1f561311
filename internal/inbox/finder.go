package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Finder locates a single link in an application-generated email.
type Finder struct {
	dialer Dialer
	logger *slog.Logger
}

// NewFinder creates a Finder that opens sessions with d. A nil logger
// means slog.Default().
func NewFinder(d Dialer, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{dialer: d, logger: logger}
}

// candidate is a message ordered by header metadata only.
type candidate struct {
	folder string
	uid    uint32
	header MessageHeader
}

// date is the Date header, or the internal date when it is missing.
func (c candidate) date() time.Time {
	if c.header.SentAt.IsZero() {
		return c.header.InternalDate
	}
	return c.header.SentAt
}

// Find searches the mailbox described by creds for the most recent message
// satisfying filter and returns the first link in its body matching
// filter.Pattern. It never returns an error: failures are recorded on the
// Result and the search degrades to not-found. Once a session is open it
// is logged out exactly once.
func (f *Finder) Find(ctx context.Context, creds Credentials, filter Filter) Result {
	var res Result

	if filter.Pattern == nil {
		res.Errors = append(res.Errors, errors.New("link pattern is required"))
		return res
	}

	log := f.logger.With("address", creds.Address(), "user", creds.Username)

	session, err := f.dialer.Dial(ctx, creds)
	if err != nil {
		connErr := &ConnectionError{Address: creds.Address(), Username: creds.Username, Err: err}
		log.Warn("mailbox connection failed", "err", err)
		res.Outcome = OutcomeConnectionFailed
		res.Errors = append(res.Errors, connErr)
		return res
	}
	defer func() {
		if err := session.Logout(); err != nil {
			log.Warn("mailbox logout failed", "err", err)
		}
	}()

	folders, err := f.scope(ctx, session, filter)
	if err != nil {
		log.Warn("listing folders failed", "err", err)
		res.Errors = append(res.Errors, err)
		return res
	}

	candidates, errs := f.collect(ctx, session, filter, folders)
	res.Errors = append(res.Errors, errs...)
	for _, e := range errs {
		log.Warn("folder skipped", "err", e)
	}

	sortCandidates(candidates)
	log.Debug("candidates collected", "folders", len(folders), "candidates", len(candidates))

	selected := ""
	failed := make(map[string]bool)
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("search interrupted: %w", err))
			break
		}
		if failed[c.folder] {
			continue
		}
		if c.folder != selected {
			if err := session.Select(ctx, c.folder); err != nil {
				scopeErr := &ScopeError{Folder: c.folder, Err: err}
				log.Warn("folder skipped", "err", scopeErr)
				res.Errors = append(res.Errors, scopeErr)
				failed[c.folder] = true
				selected = ""
				continue
			}
			selected = c.folder
		}

		raw, err := session.FetchRaw(ctx, c.uid)
		if err != nil {
			decErr := &DecodeError{Folder: c.folder, UID: c.uid, Err: err}
			log.Warn("message skipped", "err", decErr)
			res.Errors = append(res.Errors, decErr)
			continue
		}
		res.Examined++

		msg, err := parseMessage(raw)
		if err != nil {
			decErr := &DecodeError{Folder: c.folder, UID: c.uid, Err: err}
			log.Warn("message skipped", "err", decErr)
			res.Errors = append(res.Errors, decErr)
			continue
		}

		if !filter.MatchesSubject(msg.Subject) {
			log.Debug("subject mismatch", "folder", c.folder, "uid", c.uid, "subject", msg.Subject)
			continue
		}

		body := msg.Body()
		link := filter.Pattern.FindString(body)
		if link == "" {
			log.Debug("no link in body", "folder", c.folder, "uid", c.uid)
			continue
		}

		res.Outcome = OutcomeFound
		res.Link = link
		res.Message = CandidateMessage{
			Folder:  c.folder,
			UID:     c.uid,
			SentAt:  c.date(),
			Subject: msg.Subject,
			Sender:  msg.Sender,
			Body:    body,
		}
		log.Info("link found", "folder", c.folder, "uid", c.uid, "subject", msg.Subject)
		return res
	}

	log.Info("no matching link", "examined", res.Examined)
	return res
}

// scope returns the folders to search.
func (f *Finder) scope(ctx context.Context, s Session, filter Filter) ([]string, error) {
	if filter.Scope != ScopeAllFolders {
		return []string{filter.folder()}, nil
	}
	folders, err := s.ListFolders(ctx)
	if err != nil {
		return nil, &ScopeError{Err: err}
	}
	return folders, nil
}

// collect gathers header-only candidates from every folder. A folder that
// cannot be selected, searched or fetched contributes nothing.
func (f *Finder) collect(ctx context.Context, s Session, filter Filter, folders []string) ([]candidate, []error) {
	var (
		candidates []candidate
		errs       []error
	)

	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("search interrupted: %w", err))
			break
		}

		if err := s.Select(ctx, folder); err != nil {
			errs = append(errs, &ScopeError{Folder: folder, Err: err})
			continue
		}

		uids, err := s.Search(ctx, filter.Sender)
		if err != nil {
			errs = append(errs, &ScopeError{Folder: folder, Err: err})
			continue
		}
		if len(uids) == 0 {
			continue
		}

		// Without a sender filter only the newest messages are considered.
		if filter.Sender == "" {
			uids = newestUIDs(uids, filter.limit())
		}

		headers, err := s.FetchHeaders(ctx, uids)
		if err != nil {
			errs = append(errs, &ScopeError{Folder: folder, Err: err})
			continue
		}

		for _, h := range headers {
			candidates = append(candidates, candidate{folder: folder, uid: h.UID, header: h})
		}
	}

	return candidates, errs
}

// newestUIDs keeps the limit highest UIDs. A negative limit keeps all.
func newestUIDs(uids []uint32, limit int) []uint32 {
	if limit < 0 || len(uids) <= limit {
		return uids
	}
	sorted := make([]uint32, len(uids))
	copy(sorted, uids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[len(sorted)-limit:]
}

// sortCandidates orders by sent date descending, falling back to the
// internal date. Undated messages go last. Ties break by UID descending,
// then folder name.
func sortCandidates(cs []candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i].date(), cs[j].date()
		switch {
		case a.IsZero() != b.IsZero():
			return b.IsZero()
		case !a.Equal(b):
			return a.After(b)
		case cs[i].uid != cs[j].uid:
			return cs[i].uid > cs[j].uid
		default:
			return cs[i].folder < cs[j].folder
		}
	})
}
