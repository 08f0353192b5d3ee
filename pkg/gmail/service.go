package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Transport sends mail directly.
type Transport interface {
	Send(ctx context.Context, to, subject, body string) error
}

// DraftMirror keeps a remote mailbox copy of a draft in sync, keyed by the
// provider's opaque draft id. The remote copy is authoritative when present.
type DraftMirror interface {
	CreateDraft(ctx context.Context, to, subject, body string) (string, error)
	UpdateDraft(ctx context.Context, draftID, to, subject, body string) (string, error)
	SendDraft(ctx context.Context, draftID string) error
	DeleteDraft(ctx context.Context, draftID string) error
	FetchDraft(ctx context.Context, draftID string) (to, subject, body string, err error)
}

// Service implements Transport and DraftMirror against the Gmail API using an
// offline refresh token.
type Service struct {
	oauthConfig  *oauth2.Config
	refreshToken string
	fromAddress  string
}

func NewService(clientID, clientSecret, refreshToken, fromAddress string) *Service {
	return &Service{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gmail.GmailComposeScope, gmail.GmailSendScope},
		},
		refreshToken: refreshToken,
		fromAddress:  fromAddress,
	}
}

func (s *Service) service(ctx context.Context) (*gmail.Service, error) {
	token := &oauth2.Token{
		RefreshToken: s.refreshToken,
		Expiry:       time.Now(), // force refresh
	}
	ts := s.oauthConfig.TokenSource(ctx, token)

	srv, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return srv, nil
}

// rawMessage builds an RFC 822 message and encodes it the way the Gmail API
// expects (base64url, no padding concerns since URLEncoding handles it).
func (s *Service) rawMessage(to, subject, body string) string {
	var msg bytes.Buffer

	if s.fromAddress != "" {
		msg.WriteString(fmt.Sprintf("From: %s\r\n", s.fromAddress))
	}
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	// Encode subject to handle non-ASCII characters (RFC 2047)
	encodedSubject := fmt.Sprintf("=?utf-8?B?%s?=", base64.StdEncoding.EncodeToString([]byte(subject)))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", encodedSubject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(body)

	return base64.URLEncoding.EncodeToString(msg.Bytes())
}

func (s *Service) Send(ctx context.Context, to, subject, body string) error {
	srv, err := s.service(ctx)
	if err != nil {
		return err
	}

	msg := &gmail.Message{Raw: s.rawMessage(to, subject, body)}
	if _, err := srv.Users.Messages.Send("me", msg).Do(); err != nil {
		return fmt.Errorf("unable to send message: %w", err)
	}
	return nil
}

func (s *Service) CreateDraft(ctx context.Context, to, subject, body string) (string, error) {
	srv, err := s.service(ctx)
	if err != nil {
		return "", err
	}

	draft := &gmail.Draft{Message: &gmail.Message{Raw: s.rawMessage(to, subject, body)}}
	created, err := srv.Users.Drafts.Create("me", draft).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create draft: %w", err)
	}
	return created.Id, nil
}

func (s *Service) UpdateDraft(ctx context.Context, draftID, to, subject, body string) (string, error) {
	srv, err := s.service(ctx)
	if err != nil {
		return "", err
	}

	draft := &gmail.Draft{Message: &gmail.Message{Raw: s.rawMessage(to, subject, body)}}
	updated, err := srv.Users.Drafts.Update("me", draftID, draft).Do()
	if err != nil {
		return "", fmt.Errorf("unable to update draft: %w", err)
	}
	return updated.Id, nil
}

func (s *Service) SendDraft(ctx context.Context, draftID string) error {
	srv, err := s.service(ctx)
	if err != nil {
		return err
	}

	if _, err := srv.Users.Drafts.Send("me", &gmail.Draft{Id: draftID}).Do(); err != nil {
		return fmt.Errorf("unable to send draft: %w", err)
	}
	return nil
}

func (s *Service) DeleteDraft(ctx context.Context, draftID string) error {
	srv, err := s.service(ctx)
	if err != nil {
		return err
	}

	if err := srv.Users.Drafts.Delete("me", draftID).Do(); err != nil {
		return fmt.Errorf("unable to delete draft: %w", err)
	}
	return nil
}

func (s *Service) FetchDraft(ctx context.Context, draftID string) (string, string, string, error) {
	srv, err := s.service(ctx)
	if err != nil {
		return "", "", "", err
	}

	draft, err := srv.Users.Drafts.Get("me", draftID).Format("full").Do()
	if err != nil {
		return "", "", "", fmt.Errorf("unable to fetch draft: %w", err)
	}
	if draft.Message == nil || draft.Message.Payload == nil {
		return "", "", "", fmt.Errorf("draft %s has no message payload", draftID)
	}

	payload := draft.Message.Payload
	to := getHeader(payload.Headers, "To")
	subject := getHeader(payload.Headers, "Subject")
	body := getPlainTextBody(payload)

	return to, subject, body, nil
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func getPlainTextBody(payload *gmail.MessagePart) string {
	if payload.Body != nil && payload.Body.Data != "" && !strings.HasPrefix(payload.MimeType, "multipart/") {
		if decoded, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			return string(decoded)
		}
	}

	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			if decoded, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
				return string(decoded)
			}
		}
	}

	// Nested multiparts
	for _, part := range payload.Parts {
		if strings.HasPrefix(part.MimeType, "multipart/") {
			if body := getPlainTextBody(part); body != "" {
				return body
			}
		}
	}

	return ""
}
