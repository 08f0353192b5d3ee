package tools

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"assistant-backend/internal/draft/domain"
	"assistant-backend/internal/draft/repository"
	"assistant-backend/pkg/ai"
	"assistant-backend/pkg/gmail"
)

const noDraftMessage = "No draft email found. Please create a draft first."

var (
	emailAddrPattern   = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	toPrefixPattern    = regexp.MustCompile(`(?i)to:\s*(\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b)`)
	subjectPattern     = regexp.MustCompile(`(?i)subject:\s*([^,\n]+)`)
	aboutPattern       = regexp.MustCompile(`(?i)(?:about|regarding)\s+['"]?([^'"\n]+)['"]?`)
	bodyPattern        = regexp.MustCompile(`(?is)body:\s*(.+)`)
	structuredImproved = regexp.MustCompile(`(?is)SUBJECT:\s*(.*?)\n+BODY:\s*(.*)`)
)

// ParsedEmailRequest holds the recipient/subject/body captured from a
// natural-language draft request.
type ParsedEmailRequest struct {
	To      string
	Subject string
	Body    string
}

// ParseEmailRequest extracts recipient, subject and body from a free-text
// request. Recipient prefers an explicit "to:" marker, then the first email
// address anywhere in the text; subject prefers "subject:" then
// "about"/"regarding".
func ParseEmailRequest(request string) ParsedEmailRequest {
	var p ParsedEmailRequest

	if m := toPrefixPattern.FindStringSubmatch(request); m != nil {
		p.To = m[1]
	} else if addrs := emailAddrPattern.FindAllString(request, -1); len(addrs) > 0 {
		p.To = addrs[0]
	}

	if m := subjectPattern.FindStringSubmatch(request); m != nil {
		p.Subject = strings.TrimSpace(m[1])
	} else if m := aboutPattern.FindStringSubmatch(request); m != nil {
		p.Subject = strings.TrimSpace(m[1])
	}

	if m := bodyPattern.FindStringSubmatch(request); m != nil {
		p.Body = strings.TrimSpace(m[1])
	}

	return p
}

// EmailWorkflow runs the per-user draft state machine: absent -> draft ->
// sent | cancelled | kept. Draft rows live in the repository, optionally
// mirrored to the remote mailbox; the mirror is authoritative when both
// exist.
type EmailWorkflow struct {
	drafts    repository.DraftRepository
	transport gmail.Transport
	mirror    gmail.DraftMirror
	llm       ai.LanguageModel
	now       func() time.Time
}

// NewEmailWorkflow creates the workflow. mirror may be nil when no remote
// draft mailbox is configured.
func NewEmailWorkflow(drafts repository.DraftRepository, transport gmail.Transport, mirror gmail.DraftMirror, llm ai.LanguageModel) *EmailWorkflow {
	return &EmailWorkflow{
		drafts:    drafts,
		transport: transport,
		mirror:    mirror,
		llm:       llm,
		now:       func() time.Time { return time.Now() },
	}
}

// Draft creates a fresh draft, cancelling any existing active one first.
func (w *EmailWorkflow) Draft(ctx context.Context, userID, request string) string {
	parsed := ParseEmailRequest(request)

	if parsed.To == "" {
		return "I need a recipient email address. Please provide an email address."
	}

	if parsed.Subject == "" {
		parsed.Subject = "Message from Personal Assistant"
	}

	if len(parsed.Body) < 20 {
		parsed.Body = w.generateBody(ctx, request, parsed.Subject)
	}

	now := w.now()
	draft := &domain.EmailDraft{
		ID:        uuid.New().String(),
		UserID:    userID,
		ToEmail:   parsed.To,
		Subject:   parsed.Subject,
		Body:      parsed.Body,
		Status:    domain.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(domain.DefaultTTL),
	}

	if w.mirror != nil {
		mirrorID, err := w.mirror.CreateDraft(ctx, draft.ToEmail, draft.Subject, draft.Body)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("mirroring draft to mailbox failed")
		} else {
			draft.GmailDraftID = mirrorID
		}
	}

	// Demote-and-insert is one transaction: a failed insert must not leave
	// the user with their prior draft cancelled and nothing in its place.
	if err := w.drafts.CreateReplacingActive(draft); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("persisting draft failed")
		return "I encountered an error creating the email draft. Please try again."
	}

	return renderDraft("Email Draft Created", draft)
}

// Send delivers the active draft, preferring the mailbox mirror.
func (w *EmailWorkflow) Send(ctx context.Context, userID string) string {
	draft, err := w.drafts.ActiveByUser(userID, w.now())
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("loading active draft failed")
		return "I encountered an error loading your draft. Please try again."
	}
	if draft == nil {
		return noDraftMessage
	}

	sent := false
	if w.mirror != nil && draft.GmailDraftID != "" {
		if err := w.mirror.SendDraft(ctx, draft.GmailDraftID); err != nil {
			log.Warn().Err(err).Str("user_id", userID).
				Msg("sending via mailbox draft failed, falling back to direct send")
		} else {
			sent = true
		}
	}

	if !sent {
		if err := w.transport.Send(ctx, draft.ToEmail, draft.Subject, draft.Body); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("direct send failed")
			return "I encountered an error sending the email. Please check your email configuration."
		}
	}

	draft.Status = domain.StatusSent
	draft.UpdatedAt = w.now()
	if err := w.drafts.Update(draft); err != nil {
		// The mail is out; the stale row only risks a duplicate send attempt.
		log.Error().Err(err).Str("user_id", userID).Msg("marking draft sent failed")
	}

	return fmt.Sprintf("Email sent successfully to %s!", draft.ToEmail)
}

// Improve rewrites the active draft's body (and subject, when the feedback
// implies one) and extends its expiry by an hour.
func (w *EmailWorkflow) Improve(ctx context.Context, userID, request string) string {
	now := w.now()
	draft, err := w.drafts.ActiveByUser(userID, now)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("loading active draft failed")
		return "I encountered an error loading your draft. Please try again."
	}
	if draft == nil {
		return noDraftMessage
	}

	wantsSubject := strings.Contains(strings.ToLower(request), "subject") ||
		strings.Contains(strings.ToLower(request), "title")

	if wantsSubject {
		subject, body, ok := w.improveWithSubject(ctx, draft, request)
		if ok {
			draft.Subject = subject
			draft.Body = body
		}
	} else {
		draft.Body = w.improveBody(ctx, draft, request)
	}

	draft.UpdatedAt = now
	draft.ExpiresAt = draft.ExpiresAt.Add(domain.DefaultTTL)

	if w.mirror != nil && draft.GmailDraftID != "" {
		mirrorID, err := w.mirror.UpdateDraft(ctx, draft.GmailDraftID, draft.ToEmail, draft.Subject, draft.Body)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("re-mirroring improved draft failed")
		} else {
			draft.GmailDraftID = mirrorID
		}
	}

	if err := w.drafts.Update(draft); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("persisting improved draft failed")
		return "I encountered an error improving the draft. Please try again."
	}

	return renderDraft("Updated Email Draft", draft)
}

// Cancel discards the active draft and its mailbox mirror.
func (w *EmailWorkflow) Cancel(ctx context.Context, userID string) string {
	draft, err := w.drafts.ActiveByUser(userID, w.now())
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("loading active draft failed")
		return "I encountered an error loading your draft. Please try again."
	}
	if draft == nil {
		return "No draft to cancel."
	}

	if w.mirror != nil && draft.GmailDraftID != "" {
		if err := w.mirror.DeleteDraft(ctx, draft.GmailDraftID); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("deleting mailbox draft failed")
		}
	}

	draft.Status = domain.StatusCancelled
	draft.UpdatedAt = w.now()
	if err := w.drafts.Update(draft); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("cancelling draft failed")
		return "I encountered an error discarding the draft. Please try again."
	}

	return "Email draft discarded."
}

// Keep parks the active draft for 24 hours so the user can switch topics
// without losing it.
func (w *EmailWorkflow) Keep(ctx context.Context, userID string) string {
	now := w.now()
	draft, err := w.drafts.ActiveByUser(userID, now)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("loading active draft failed")
		return "I encountered an error loading your draft. Please try again."
	}
	if draft == nil {
		return noDraftMessage
	}

	draft.Status = domain.StatusKept
	draft.UpdatedAt = now
	draft.ExtendExpiry(now, domain.KeptTTL)

	if err := w.drafts.Update(draft); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("keeping draft failed")
		return "I encountered an error keeping the draft. Please try again."
	}

	return fmt.Sprintf("Draft to %s kept for 24 hours. Say 'list drafts' to see your saved drafts.", draft.ToEmail)
}

// List shows all open (draft or kept) drafts, newest first, refreshing each
// from its mailbox mirror when one exists.
func (w *EmailWorkflow) List(ctx context.Context, userID string) string {
	drafts, err := w.drafts.ListOpen(userID, w.now())
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("listing drafts failed")
		return "I encountered an error listing your drafts. Please try again."
	}

	if len(drafts) == 0 {
		return "You have no open email drafts."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your email drafts (%d):\n\n", len(drafts))
	for i, d := range drafts {
		w.syncFromMirror(ctx, d)
		marker := ""
		if d.Status == domain.StatusDraft {
			marker = " (active)"
		}
		fmt.Fprintf(&b, "%d. To: %s%s\n   Subject: %s\n\n", i+1, d.ToEmail, marker, d.Subject)
	}
	b.WriteString("Say 'select draft N' to continue working on one.")
	return b.String()
}

// Select makes the Nth listed draft (1-based, newest first) the active one,
// demoting every other draft-status row.
func (w *EmailWorkflow) Select(ctx context.Context, userID string, n int) string {
	now := w.now()
	drafts, err := w.drafts.ListOpen(userID, now)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("listing drafts failed")
		return "I encountered an error loading your drafts. Please try again."
	}

	if n < 1 || n > len(drafts) {
		return fmt.Sprintf("Draft %d doesn't exist. You have %d draft(s). Say 'list drafts' to see them.", n, len(drafts))
	}

	selected := drafts[n-1]

	if err := w.drafts.CancelActive(userID); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("demoting prior drafts failed")
		return "I encountered an error selecting the draft. Please try again."
	}

	w.syncFromMirror(ctx, selected)

	selected.Status = domain.StatusDraft
	selected.UpdatedAt = now
	selected.ExtendExpiry(now, domain.DefaultTTL)

	if err := w.drafts.Update(selected); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("promoting selected draft failed")
		return "I encountered an error selecting the draft. Please try again."
	}

	return renderDraft("Selected Email Draft", selected)
}

// syncFromMirror refreshes a draft's content from the remote mailbox copy,
// which is authoritative when present. Failures keep the local copy.
func (w *EmailWorkflow) syncFromMirror(ctx context.Context, d *domain.EmailDraft) {
	if w.mirror == nil || d.GmailDraftID == "" {
		return
	}
	to, subject, body, err := w.mirror.FetchDraft(ctx, d.GmailDraftID)
	if err != nil {
		log.Warn().Err(err).Str("draft_id", d.ID).Msg("fetching mailbox draft failed")
		return
	}
	if to != "" {
		d.ToEmail = to
	}
	d.Subject = subject
	d.Body = body
}

func (w *EmailWorkflow) generateBody(ctx context.Context, request, subject string) string {
	prompt := fmt.Sprintf(`Write a professional email body based on this request: "%s"

Subject: %s

Guidelines:
- Professional and polite tone
- Clear and concise
- Proper greeting and closing
- 3-5 sentences
- Do NOT include To:, From:, or Subject: lines

Write only the email body:`, request, subject)

	body, err := w.llm.Complete(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Msg("generating email body failed, using fallback")
		return fmt.Sprintf("Regarding: %s\n\n%s", subject, request)
	}
	return strings.TrimSpace(body)
}

func (w *EmailWorkflow) improveBody(ctx context.Context, d *domain.EmailDraft, request string) string {
	prompt := fmt.Sprintf(`Improve this email based on the feedback.

Current email body:
%s

Subject: %s

User feedback: %s

Write the improved email body (only the body, no To:/From:/Subject: lines):`, d.Body, d.Subject, request)

	improved, err := w.llm.Complete(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Msg("improving email body failed, keeping current body")
		return d.Body
	}
	return strings.TrimSpace(improved)
}

// improveWithSubject asks for a structured SUBJECT:/BODY: reply so subject
// and body can be updated together.
func (w *EmailWorkflow) improveWithSubject(ctx context.Context, d *domain.EmailDraft, request string) (string, string, bool) {
	prompt := fmt.Sprintf(`Improve this email based on the feedback. The feedback may change the subject line.

Current subject: %s
Current email body:
%s

User feedback: %s

Reply in EXACTLY this format (no other text):
SUBJECT: <the subject line>
BODY: <the email body>`, d.Subject, d.Body, request)

	reply, err := w.llm.Complete(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Msg("improving email with subject failed")
		return "", "", false
	}

	subject, body, ok := ParseStructuredImprovement(reply)
	if !ok {
		// Unstructured reply still is a usable body.
		return d.Subject, strings.TrimSpace(reply), true
	}
	return subject, body, true
}

// ParseStructuredImprovement splits a "SUBJECT: ...\nBODY: ..." reply.
func ParseStructuredImprovement(reply string) (subject, body string, ok bool) {
	m := structuredImproved.FindStringSubmatch(strings.TrimSpace(reply))
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

func renderDraft(title string, d *domain.EmailDraft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n\nTo: %s\nSubject: %s\n\nBody:\n%s\n\n---\n", title, d.ToEmail, d.Subject, d.Body)
	b.WriteString("What would you like to do?\n")
	b.WriteString("- Say 'send it' to send this email\n")
	b.WriteString("- Say 'improve it' to make changes\n")
	b.WriteString("- Say 'keep it' to save for later\n")
	b.WriteString("- Say 'cancel' to discard")
	return b.String()
}

// --- Tool wrappers -------------------------------------------------------

// DraftEmailTool exposes EmailWorkflow.Draft to the agent loop.
type DraftEmailTool struct{ wf *EmailWorkflow }

func NewDraftEmailTool(wf *EmailWorkflow) *DraftEmailTool { return &DraftEmailTool{wf} }

func (t *DraftEmailTool) Name() string { return "draft_email" }
func (t *DraftEmailTool) Description() string {
	return "Create an email draft for user approval. Input is the email request, " +
		"e.g. 'email john@example.com about the meeting'. The user can then send, improve, keep or cancel it."
}
func (t *DraftEmailTool) ReturnDirect() bool { return false }
func (t *DraftEmailTool) Execute(ctx context.Context, userID, input string) (string, error) {
	return t.wf.Draft(ctx, userID, input), nil
}

// SendDraftTool sends the user's active draft.
type SendDraftTool struct{ wf *EmailWorkflow }

func NewSendDraftTool(wf *EmailWorkflow) *SendDraftTool { return &SendDraftTool{wf} }

func (t *SendDraftTool) Name() string { return "send_draft" }
func (t *SendDraftTool) Description() string {
	return "Send the user's current email draft. Use when the user approves the draft ('send it')."
}
func (t *SendDraftTool) ReturnDirect() bool { return false }
func (t *SendDraftTool) Execute(ctx context.Context, userID, input string) (string, error) {
	return t.wf.Send(ctx, userID), nil
}

// ImproveDraftTool rewrites the active draft per the user's feedback.
type ImproveDraftTool struct{ wf *EmailWorkflow }

func NewImproveDraftTool(wf *EmailWorkflow) *ImproveDraftTool { return &ImproveDraftTool{wf} }

func (t *ImproveDraftTool) Name() string { return "improve_draft" }
func (t *ImproveDraftTool) Description() string {
	return "Improve the current email draft based on feedback. Input is what to change, " +
		"e.g. 'make it more formal' or 'change the subject to Project Update'."
}
func (t *ImproveDraftTool) ReturnDirect() bool { return false }
func (t *ImproveDraftTool) Execute(ctx context.Context, userID, input string) (string, error) {
	return t.wf.Improve(ctx, userID, input), nil
}

// CancelDraftTool discards the active draft.
type CancelDraftTool struct{ wf *EmailWorkflow }

func NewCancelDraftTool(wf *EmailWorkflow) *CancelDraftTool { return &CancelDraftTool{wf} }

func (t *CancelDraftTool) Name() string { return "cancel_draft" }
func (t *CancelDraftTool) Description() string {
	return "Cancel and discard the user's current email draft."
}
func (t *CancelDraftTool) ReturnDirect() bool { return false }
func (t *CancelDraftTool) Execute(ctx context.Context, userID, input string) (string, error) {
	return t.wf.Cancel(ctx, userID), nil
}

// KeepDraftTool parks the active draft for later.
type KeepDraftTool struct{ wf *EmailWorkflow }

func NewKeepDraftTool(wf *EmailWorkflow) *KeepDraftTool { return &KeepDraftTool{wf} }

func (t *KeepDraftTool) Name() string { return "keep_draft" }
func (t *KeepDraftTool) Description() string {
	return "Keep the current email draft for later (24 hours) so the user can switch topics without losing it."
}
func (t *KeepDraftTool) ReturnDirect() bool { return false }
func (t *KeepDraftTool) Execute(ctx context.Context, userID, input string) (string, error) {
	return t.wf.Keep(ctx, userID), nil
}

// ListDraftsTool lists all open drafts.
type ListDraftsTool struct{ wf *EmailWorkflow }

func NewListDraftsTool(wf *EmailWorkflow) *ListDraftsTool { return &ListDraftsTool{wf} }

func (t *ListDraftsTool) Name() string { return "list_drafts" }
func (t *ListDraftsTool) Description() string {
	return "List the user's open email drafts (active and kept), most recent first."
}
func (t *ListDraftsTool) ReturnDirect() bool { return false }
func (t *ListDraftsTool) Execute(ctx context.Context, userID, input string) (string, error) {
	return t.wf.List(ctx, userID), nil
}

// SelectDraftTool promotes one of the listed drafts to active.
type SelectDraftTool struct{ wf *EmailWorkflow }

func NewSelectDraftTool(wf *EmailWorkflow) *SelectDraftTool { return &SelectDraftTool{wf} }

func (t *SelectDraftTool) Name() string { return "select_draft" }
func (t *SelectDraftTool) Description() string {
	return "Select one of the user's listed drafts to work on. Input is the draft number, e.g. '2'."
}
func (t *SelectDraftTool) ReturnDirect() bool { return false }
func (t *SelectDraftTool) Execute(ctx context.Context, userID, input string) (string, error) {
	n, err := parseDraftNumber(input)
	if err != nil {
		return "Please tell me which draft number to select, e.g. 'select draft 2'.", nil
	}
	return t.wf.Select(ctx, userID, n), nil
}

var digitsPattern = regexp.MustCompile(`\d+`)

func parseDraftNumber(input string) (int, error) {
	m := digitsPattern.FindString(input)
	if m == "" {
		return 0, fmt.Errorf("no draft number in %q", input)
	}
	return strconv.Atoi(m)
}
