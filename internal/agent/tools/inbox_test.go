package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"assistant-backend/pkg/imap"
)

type fakeReader struct {
	emails   []*imap.Email
	gotOpts  imap.FetchOptions
	fetchErr error
}

func (f *fakeReader) Fetch(ctx context.Context, opts imap.FetchOptions) ([]*imap.Email, error) {
	f.gotOpts = opts
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.emails, nil
}

func TestParseReadRequest(t *testing.T) {
	cases := []struct {
		request string
		want    imap.FetchOptions
	}{
		{"show me my latest 5 emails", imap.FetchOptions{Limit: 5}},
		{"get my last 12 messages", imap.FetchOptions{Limit: 12}},
		{"check my unread emails", imap.FetchOptions{Limit: 5, UnreadOnly: true}},
		{"any new emails?", imap.FetchOptions{Limit: 5, UnreadOnly: true}},
		{"emails from john@example.com", imap.FetchOptions{Limit: 5, Sender: "john@example.com"}},
		{"show emails about quarterly planning", imap.FetchOptions{Limit: 5, Subject: "quarterly planning"}},
	}

	for _, c := range cases {
		got := ParseReadRequest(c.request)
		if got != c.want {
			t.Errorf("ParseReadRequest(%q) = %+v, want %+v", c.request, got, c.want)
		}
	}
}

func TestInboxToolRendersEmails(t *testing.T) {
	reader := &fakeReader{emails: []*imap.Email{
		{From: "Jane <jane@x.com>", Subject: "Standup notes", Date: "Mon, 9 Mar 2026 10:00:00 +0000", Preview: "Here are the notes", Unread: true},
		{From: "bob@x.com", Subject: "Lunch?", Date: "Mon, 9 Mar 2026 09:00:00 +0000", Preview: "Free at noon?"},
	}}
	tool := NewInboxTool(reader)

	resp, err := tool.Execute(context.Background(), "u1", "show my latest 2 emails")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reader.gotOpts.Limit != 2 {
		t.Errorf("limit = %d, want 2", reader.gotOpts.Limit)
	}
	if !strings.Contains(resp, "Found 2 email(s)") {
		t.Errorf("missing count header: %q", resp)
	}
	if !strings.Contains(resp, "Status: UNREAD") {
		t.Errorf("unread marker missing: %q", resp)
	}
	if !strings.Contains(resp, "Lunch?") {
		t.Errorf("second email missing: %q", resp)
	}
}

func TestInboxToolEmptyAndError(t *testing.T) {
	tool := NewInboxTool(&fakeReader{})
	resp, _ := tool.Execute(context.Background(), "u1", "check my emails")
	if !strings.Contains(resp, "No emails found") {
		t.Errorf("expected empty-inbox message, got %q", resp)
	}

	tool = NewInboxTool(&fakeReader{fetchErr: errors.New("imap down")})
	resp, err := tool.Execute(context.Background(), "u1", "check my emails")
	if err != nil {
		t.Fatalf("transport failures must become a message, not an error: %v", err)
	}
	if !strings.Contains(resp, "error reading your emails") {
		t.Errorf("expected polite failure message, got %q", resp)
	}
}
