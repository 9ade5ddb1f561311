package inbox

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// parsedMessage is the decoded view of a raw message.
type parsedMessage struct {
	Subject  string
	Sender   string
	Date     time.Time
	TextBody string
	HTMLBody string
}

// Body returns the HTML body when present, otherwise the plain text body.
func (p parsedMessage) Body() string {
	if p.HTMLBody != "" {
		return p.HTMLBody
	}
	return p.TextBody
}

// parseMessage decodes raw with go-message. Parts in an unknown charset are
// kept as-is; invalid UTF-8 is replaced rather than rejected.
func parseMessage(raw []byte) (parsedMessage, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return parsedMessage{}, fmt.Errorf("reading message header: %w", err)
	}
	if mr == nil {
		return parsedMessage{}, errors.New("reading message header: no reader")
	}
	defer mr.Close()

	var p parsedMessage

	subject, err := mr.Header.Subject()
	if err != nil {
		// Undecodable encoded-words; keep the raw header text.
		subject = mr.Header.Get("Subject")
	}
	p.Subject = lossy(subject)

	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		p.Sender = from[0].Address
	} else {
		p.Sender = strings.TrimSpace(mr.Header.Get("From"))
	}

	if date, err := mr.Header.Date(); err == nil {
		p.Date = date
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			if p.HTMLBody != "" || p.TextBody != "" {
				break
			}
			return p, fmt.Errorf("reading message part: %w", err)
		}
		if part == nil {
			break
		}

		// Parts with an attachment disposition arrive as *mail.AttachmentHeader.
		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, ctErr := h.ContentType()
		if ctErr != nil || contentType == "" {
			contentType = "text/plain"
		}

		body, readErr := io.ReadAll(part.Body)
		if readErr != nil && len(body) == 0 {
			continue
		}

		switch {
		case contentType == "text/html":
			if p.HTMLBody == "" {
				p.HTMLBody = lossy(string(body))
			}
		case contentType == "text/plain":
			if p.TextBody == "" {
				p.TextBody = lossy(string(body))
			}
		}
	}

	return p, nil
}

func lossy(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}
