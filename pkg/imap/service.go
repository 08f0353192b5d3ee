package imap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
)

// Email is one inbox message as surfaced to the assistant.
type Email struct {
	From    string
	Subject string
	Date    string
	Preview string
	Body    string
	Unread  bool
}

// FetchOptions narrows the inbox search.
type FetchOptions struct {
	Limit      int
	UnreadOnly bool
	Sender     string
	Subject    string
}

// Reader fetches inbox messages.
type Reader interface {
	Fetch(ctx context.Context, opts FetchOptions) ([]*Email, error)
}

// Service implements Reader over IMAP with TLS.
type Service struct {
	host     string
	port     int
	user     string
	password string
}

func NewService(host string, port int, user, password string) *Service {
	return &Service{host: host, port: port, user: user, password: password}
}

func (s *Service) Fetch(ctx context.Context, opts FetchOptions) ([]*Email, error) {
	if opts.Limit <= 0 {
		opts.Limit = 5
	}

	c, err := client.DialTLS(fmt.Sprintf("%s:%d", s.host, s.port), nil)
	if err != nil {
		return nil, fmt.Errorf("imap dial failed: %w", err)
	}
	defer c.Logout()

	if err := c.Login(s.user, s.password); err != nil {
		return nil, fmt.Errorf("imap login failed: %w", err)
	}

	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("imap select failed: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	if opts.UnreadOnly {
		criteria.WithoutFlags = []string{imap.SeenFlag}
	}
	if opts.Sender != "" {
		criteria.Header.Add("From", opts.Sender)
	}
	if opts.Subject != "" {
		criteria.Header.Add("Subject", opts.Subject)
	}

	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// Latest N, newest first
	if len(ids) > opts.Limit {
		ids = ids[len(ids)-opts.Limit:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, section.FetchItem()}

	messages := make(chan *imap.Message, opts.Limit)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	var emails []*Email
	for msg := range messages {
		emails = append(emails, s.convert(msg, section))
	}

	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("imap fetch failed: %w", err)
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// Newest first
	for i, j := 0, len(emails)-1; i < j; i, j = i+1, j-1 {
		emails[i], emails[j] = emails[j], emails[i]
	}

	return emails, nil
}

func (s *Service) convert(msg *imap.Message, section *imap.BodySectionName) *Email {
	out := &Email{Unread: true}

	for _, flag := range msg.Flags {
		if flag == imap.SeenFlag {
			out.Unread = false
		}
	}

	if msg.Envelope != nil {
		out.Subject = msg.Envelope.Subject
		out.Date = msg.Envelope.Date.Format("Mon, 02 Jan 2006 15:04")
		if len(msg.Envelope.From) > 0 {
			from := msg.Envelope.From[0]
			if from.PersonalName != "" {
				out.From = fmt.Sprintf("%s <%s>", from.PersonalName, from.Address())
			} else {
				out.From = from.Address()
			}
		}
	}

	if body := msg.GetBody(section); body != nil {
		out.Body = extractPlainText(body)
	}

	out.Preview = previewOf(out.Body)

	return out
}

// previewOf caps the body at 200 bytes for listing, cutting on a rune
// boundary.
func previewOf(body string) string {
	if len(body) <= 200 {
		return body
	}
	cut := 200
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + "..."
}

func extractPlainText(r io.Reader) string {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return ""
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ""
		}

		if header, ok := part.Header.(*mail.InlineHeader); ok {
			contentType, _, _ := header.ContentType()
			if contentType == "text/plain" || contentType == "" {
				content, err := io.ReadAll(part.Body)
				if err == nil {
					return strings.TrimSpace(string(content))
				}
			}
		}
	}
	return ""
}
