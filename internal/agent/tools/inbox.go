package tools

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"assistant-backend/pkg/imap"
)

var (
	limitPattern      = regexp.MustCompile(`(?i)(\d+)\s+(?:emails?|messages?)`)
	fromFilterPattern = regexp.MustCompile(`(?i)from\s+(\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b)`)
	subjectFilter     = regexp.MustCompile(`(?i)(?:subject|about)\s+['"]?([^'"\n]+)['"]?`)
)

// ParseReadRequest extracts inbox fetch filters from a natural-language
// request: message count, unread-only, sender and subject filters.
func ParseReadRequest(request string) imap.FetchOptions {
	opts := imap.FetchOptions{Limit: 5}
	lower := strings.ToLower(request)

	if m := limitPattern.FindStringSubmatch(request); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			opts.Limit = n
		}
	}

	if strings.Contains(lower, "unread") || strings.Contains(lower, "new") {
		opts.UnreadOnly = true
	}

	if m := fromFilterPattern.FindStringSubmatch(request); m != nil {
		opts.Sender = m[1]
	}

	if m := subjectFilter.FindStringSubmatch(request); m != nil {
		opts.Subject = strings.TrimSpace(m[1])
	}

	return opts
}

// InboxTool reads the user's mailbox: latest messages, unread filter, sender
// and subject search.
type InboxTool struct {
	reader imap.Reader
}

func NewInboxTool(reader imap.Reader) *InboxTool {
	return &InboxTool{reader: reader}
}

func (t *InboxTool) Name() string { return "read_emails" }

func (t *InboxTool) Description() string {
	return "Read emails from the user's inbox. Input is the request, e.g. " +
		"'show my latest 5 emails', 'check unread emails', 'emails from john@example.com'."
}

func (t *InboxTool) ReturnDirect() bool { return false }

func (t *InboxTool) Execute(ctx context.Context, userID, input string) (string, error) {
	opts := ParseReadRequest(input)

	emails, err := t.reader.Fetch(ctx, opts)
	if err != nil {
		log.Error().Err(err).Msg("inbox fetch failed")
		return "I encountered an error reading your emails. Please check your email configuration.", nil
	}

	if len(emails) == 0 {
		return "No emails found matching your criteria.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d email(s):\n\n", len(emails))
	for i, e := range emails {
		fmt.Fprintf(&b, "%d. From: %s\n   Subject: %s\n   Date: %s\n", i+1, e.From, e.Subject, e.Date)
		if e.Unread {
			b.WriteString("   Status: UNREAD\n")
		}
		fmt.Fprintf(&b, "   Preview: %s\n\n", e.Preview)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
