package inbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// IMAPDialer opens sessions with go-imap v2.
type IMAPDialer struct {
	Logger *slog.Logger
}

// Dial connects to creds.Address(), authenticates, and returns the
// session. On a failed login the connection is closed before returning.
func (d IMAPDialer) Dial(ctx context.Context, creds Credentials) (Session, error) {
	addr := creds.Address()
	options := &imapclient.Options{
		TLSConfig: &tls.Config{
			ServerName:         creds.Host,
			InsecureSkipVerify: creds.InsecureSkipVerify,
		},
	}

	var (
		client *imapclient.Client
		err    error
	)
	if creds.TLS {
		client, err = imapclient.DialTLS(addr, options)
	} else {
		client, err = imapclient.DialStartTLS(addr, options)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	stopClose := context.AfterFunc(ctx, func() {
		_ = client.Close()
	})

	username := strings.TrimSpace(creds.Username)
	password := strings.TrimSpace(creds.Password)
	if err := client.Login(username, password).Wait(); err != nil {
		stopClose()
		_ = client.Logout().Wait()
		_ = client.Close()
		return nil, fmt.Errorf("%w for %s: %w", ErrAuthFailed, username, err)
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("imap session established", "address", addr, "user", username, "tls", creds.TLS)

	return &imapSession{client: client, stopClose: stopClose, logger: logger}, nil
}

// imapSession implements Session over an imapclient.Client.
type imapSession struct {
	client    *imapclient.Client
	stopClose func() bool
	logger    *slog.Logger
}

func (s *imapSession) ListFolders(_ context.Context) ([]string, error) {
	mailboxes, err := s.client.List("", "*", nil).Collect()
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}

	folders := make([]string, 0, len(mailboxes))
	for _, mbox := range mailboxes {
		if hasAttr(mbox.Attrs, imap.MailboxAttrNoSelect) || hasAttr(mbox.Attrs, imap.MailboxAttrNonExistent) {
			s.logger.Debug("skipping unselectable folder", "folder", mbox.Mailbox)
			continue
		}
		folders = append(folders, mbox.Mailbox)
	}

	return folders, nil
}

func (s *imapSession) Select(_ context.Context, folder string) error {
	data, err := s.client.Select(folder, &imap.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		return fmt.Errorf("selecting %s: %w", folder, err)
	}
	s.logger.Debug("selected folder", "folder", folder, "messages", data.NumMessages)
	return nil
}

func (s *imapSession) Search(_ context.Context, sender string) ([]uint32, error) {
	criteria := &imap.SearchCriteria{}
	if sender != "" {
		criteria.Header = []imap.SearchCriteriaHeaderField{
			{Key: "From", Value: sender},
		}
	}

	data, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	all := data.AllUIDs()
	uids := make([]uint32, 0, len(all))
	for _, uid := range all {
		uids = append(uids, uint32(uid))
	}
	return uids, nil
}

func (s *imapSession) FetchHeaders(_ context.Context, uids []uint32) ([]MessageHeader, error) {
	if len(uids) == 0 {
		return nil, nil
	}

	fetchOpts := &imap.FetchOptions{
		UID:          true,
		Envelope:     true,
		InternalDate: true,
	}

	msgs, err := s.client.Fetch(uidSet(uids...), fetchOpts).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetching headers: %w", err)
	}

	headers := make([]MessageHeader, 0, len(msgs))
	for _, buf := range msgs {
		h := MessageHeader{
			UID:          uint32(buf.UID),
			InternalDate: buf.InternalDate,
		}
		if buf.Envelope != nil {
			h.SentAt = buf.Envelope.Date
		}
		headers = append(headers, h)
	}

	return headers, nil
}

func (s *imapSession) FetchRaw(_ context.Context, uid uint32) ([]byte, error) {
	bodySection := &imap.FetchItemBodySection{
		Peek: true,
	}

	fetchOpts := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	msgs, err := s.client.Fetch(uidSet(uid), fetchOpts).Collect()
	if err != nil {
		return nil, fmt.Errorf("fetching message UID %d: %w", uid, err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("message UID %d not found", uid)
	}

	raw := msgs[0].FindBodySection(bodySection)
	if raw == nil {
		return nil, fmt.Errorf("message UID %d has no body", uid)
	}

	return raw, nil
}

func (s *imapSession) Logout() error {
	s.stopClose()
	logoutErr := s.client.Logout().Wait()
	if err := s.client.Close(); err != nil {
		s.logger.Debug("closing imap connection", "err", err)
	}
	if logoutErr != nil {
		return fmt.Errorf("imap logout: %w", logoutErr)
	}
	return nil
}

func uidSet(uids ...uint32) imap.UIDSet {
	set := make([]imap.UID, 0, len(uids))
	for _, uid := range uids {
		set = append(set, imap.UID(uid))
	}
	return imap.UIDSetNum(set...)
}

func hasAttr(attrs []imap.MailboxAttr, want imap.MailboxAttr) bool {
	for _, attr := range attrs {
		if strings.EqualFold(string(attr), string(want)) {
			return true
		}
	}
	return false
}
