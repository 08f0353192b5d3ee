package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"assistant-backend/internal/draft/domain"
)

type memDraftRepo struct {
	rows      []*domain.EmailDraft
	createErr error
}

func (r *memDraftRepo) Create(draft *domain.EmailDraft) error {
	if r.createErr != nil {
		return r.createErr
	}
	copied := *draft
	r.rows = append(r.rows, &copied)
	return nil
}

func (r *memDraftRepo) CreateReplacingActive(draft *domain.EmailDraft) error {
	// All-or-nothing, mirroring the transactional implementation.
	if r.createErr != nil {
		return r.createErr
	}
	if err := r.CancelActive(draft.UserID); err != nil {
		return err
	}
	return r.Create(draft)
}

func (r *memDraftRepo) ActiveByUser(userID string, now time.Time) (*domain.EmailDraft, error) {
	var latest *domain.EmailDraft
	for _, row := range r.rows {
		if row.UserID != userID || row.Status != domain.StatusDraft || row.IsExpired(now) {
			continue
		}
		if latest == nil || row.UpdatedAt.After(latest.UpdatedAt) {
			latest = row
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (r *memDraftRepo) ListOpen(userID string, now time.Time) ([]*domain.EmailDraft, error) {
	var out []*domain.EmailDraft
	for _, row := range r.rows {
		if row.UserID != userID || row.IsExpired(now) {
			continue
		}
		if row.Status == domain.StatusDraft || row.Status == domain.StatusKept {
			copied := *row
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *memDraftRepo) Update(draft *domain.EmailDraft) error {
	for i, row := range r.rows {
		if row.ID == draft.ID {
			copied := *draft
			r.rows[i] = &copied
			return nil
		}
	}
	return errors.New("draft not found")
}

func (r *memDraftRepo) CancelActive(userID string) error {
	for _, row := range r.rows {
		if row.UserID == userID && row.Status == domain.StatusDraft {
			row.Status = domain.StatusCancelled
		}
	}
	return nil
}

func (r *memDraftRepo) DeleteExpired(now time.Time) (int64, error) {
	var kept []*domain.EmailDraft
	var removed int64
	for _, row := range r.rows {
		if row.IsExpired(now) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	r.rows = kept
	return removed, nil
}

func (r *memDraftRepo) countStatus(userID string, status domain.DraftStatus) int {
	n := 0
	for _, row := range r.rows {
		if row.UserID == userID && row.Status == status {
			n++
		}
	}
	return n
}

type fakeTransport struct {
	sends []string
	err   error
}

func (t *fakeTransport) Send(ctx context.Context, to, subject, body string) error {
	if t.err != nil {
		return t.err
	}
	t.sends = append(t.sends, to)
	return nil
}

type fakeMirror struct {
	drafts   map[string][3]string
	nextID   int
	sent     []string
	sendErr  error
	fetchErr error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{drafts: make(map[string][3]string)}
}

func (m *fakeMirror) CreateDraft(ctx context.Context, to, subject, body string) (string, error) {
	m.nextID++
	id := fmt.Sprintf("gm-%d", m.nextID)
	m.drafts[id] = [3]string{to, subject, body}
	return id, nil
}

func (m *fakeMirror) UpdateDraft(ctx context.Context, draftID, to, subject, body string) (string, error) {
	if _, ok := m.drafts[draftID]; !ok {
		return "", errors.New("mirror draft not found")
	}
	m.drafts[draftID] = [3]string{to, subject, body}
	return draftID, nil
}

func (m *fakeMirror) SendDraft(ctx context.Context, draftID string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	if _, ok := m.drafts[draftID]; !ok {
		return errors.New("mirror draft not found")
	}
	m.sent = append(m.sent, draftID)
	delete(m.drafts, draftID)
	return nil
}

func (m *fakeMirror) DeleteDraft(ctx context.Context, draftID string) error {
	delete(m.drafts, draftID)
	return nil
}

func (m *fakeMirror) FetchDraft(ctx context.Context, draftID string) (string, string, string, error) {
	if m.fetchErr != nil {
		return "", "", "", m.fetchErr
	}
	d, ok := m.drafts[draftID]
	if !ok {
		return "", "", "", errors.New("mirror draft not found")
	}
	return d[0], d[1], d[2], nil
}

type emailFixture struct {
	repo      *memDraftRepo
	transport *fakeTransport
	mirror    *fakeMirror
	llm       *scriptedLLM
	wf        *EmailWorkflow
	clock     *time.Time
}

func newEmailFixture(replies ...string) *emailFixture {
	clock := testNow
	f := &emailFixture{
		repo:      &memDraftRepo{},
		transport: &fakeTransport{},
		mirror:    newFakeMirror(),
		llm:       &scriptedLLM{replies: replies},
		clock:     &clock,
	}
	f.wf = NewEmailWorkflow(f.repo, f.transport, f.mirror, f.llm)
	f.wf.now = func() time.Time { return *f.clock }
	return f
}

func (f *emailFixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func TestParseEmailRequest(t *testing.T) {
	cases := []struct {
		request                string
		wantTo, wantSubj, body string
	}{
		{"email john@example.com about the quarterly report", "john@example.com", "the quarterly report", ""},
		{"draft to: jane@company.com subject: Project Update", "jane@company.com", "Project Update", ""},
		{"write to bob@x.org regarding vacation plans", "bob@x.org", "vacation plans", ""},
		{"send a@x.com subject: Hi, body: See you at noon.", "a@x.com", "Hi", "See you at noon."},
		{"email someone about nothing in particular", "", "nothing in particular", ""},
	}

	for _, c := range cases {
		p := ParseEmailRequest(c.request)
		if p.To != c.wantTo {
			t.Errorf("ParseEmailRequest(%q).To = %q, want %q", c.request, p.To, c.wantTo)
		}
		if p.Subject != c.wantSubj {
			t.Errorf("ParseEmailRequest(%q).Subject = %q, want %q", c.request, p.Subject, c.wantSubj)
		}
		if p.Body != c.body {
			t.Errorf("ParseEmailRequest(%q).Body = %q, want %q", c.request, p.Body, c.body)
		}
	}
}

func TestDraftRequiresRecipient(t *testing.T) {
	f := newEmailFixture()

	resp := f.wf.Draft(context.Background(), "u1", "draft an email about the meeting")
	if !strings.Contains(resp, "recipient") {
		t.Errorf("expected recipient prompt, got %q", resp)
	}
	if len(f.repo.rows) != 0 {
		t.Errorf("no row should be created without a recipient")
	}
}

func TestDraftGeneratesBodyWhenMissing(t *testing.T) {
	f := newEmailFixture("Dear John,\n\nLet's meet tomorrow.\n\nBest regards")

	resp := f.wf.Draft(context.Background(), "u1", "email john@example.com about the meeting")
	if f.llm.calls != 1 {
		t.Fatalf("expected one body-generation call, got %d", f.llm.calls)
	}
	if !strings.Contains(resp, "Let's meet tomorrow.") {
		t.Errorf("draft should carry the generated body, got %q", resp)
	}
	if !strings.Contains(resp, "send it") {
		t.Errorf("draft response should offer the action menu, got %q", resp)
	}
}

func TestSingleActiveDraftInvariant(t *testing.T) {
	f := newEmailFixture("body one body one body one", "body two body two body two")

	f.wf.Draft(context.Background(), "u1", "email a@x.com about alpha")
	f.wf.Draft(context.Background(), "u1", "email b@x.com about beta")

	if n := f.repo.countStatus("u1", domain.StatusDraft); n != 1 {
		t.Fatalf("expected exactly 1 active draft, got %d", n)
	}
	active, _ := f.repo.ActiveByUser("u1", *f.clock)
	if active.ToEmail != "b@x.com" {
		t.Errorf("newest draft should be active, got %s", active.ToEmail)
	}
}

func TestDraftCreateFailureKeepsPriorDraft(t *testing.T) {
	f := newEmailFixture("body one body one body one", "body two body two body two")

	f.wf.Draft(context.Background(), "u1", "email a@x.com about alpha")

	f.repo.createErr = errors.New("insert failed")
	got := f.wf.Draft(context.Background(), "u1", "email b@x.com about beta")

	if !strings.Contains(got, "error creating the email draft") {
		t.Fatalf("unexpected response: %q", got)
	}
	if n := f.repo.countStatus("u1", domain.StatusCancelled); n != 0 {
		t.Errorf("failed create cancelled %d prior draft(s)", n)
	}
	active, _ := f.repo.ActiveByUser("u1", *f.clock)
	if active == nil || active.ToEmail != "a@x.com" {
		t.Errorf("prior draft should survive a failed create, got %+v", active)
	}
}

func TestSendIsTerminal(t *testing.T) {
	f := newEmailFixture("hello hello hello hello hello")

	f.wf.Draft(context.Background(), "u1", "email a@x.com about hello")

	first := f.wf.Send(context.Background(), "u1")
	if !strings.Contains(first, "sent successfully") {
		t.Fatalf("first send should succeed, got %q", first)
	}

	second := f.wf.Send(context.Background(), "u1")
	if second != noDraftMessage {
		t.Errorf("second send should find no draft, got %q", second)
	}
	if n := f.repo.countStatus("u1", domain.StatusSent); n != 1 {
		t.Errorf("expected 1 sent row, got %d", n)
	}
}

func TestCancelThenSendFindsNoDraft(t *testing.T) {
	f := newEmailFixture("a longer generated email body here")

	f.wf.Draft(context.Background(), "u1", "email a@x.com subject: Hi")
	cancelResp := f.wf.Cancel(context.Background(), "u1")
	if !strings.Contains(cancelResp, "discarded") {
		t.Fatalf("unexpected cancel response %q", cancelResp)
	}

	if resp := f.wf.Send(context.Background(), "u1"); resp != noDraftMessage {
		t.Errorf("send after cancel should find no draft, got %q", resp)
	}
	if len(f.transport.sends) != 0 || len(f.mirror.sent) != 0 {
		t.Error("nothing should have been sent")
	}
	if len(f.mirror.drafts) != 0 {
		t.Error("mirror copy should be deleted on cancel")
	}
}

func TestExpiredDraftIsInvisible(t *testing.T) {
	f := newEmailFixture("some generated message body text")

	f.wf.Draft(context.Background(), "u1", "email a@x.com about expiry")
	f.advance(domain.DefaultTTL + time.Minute)

	if resp := f.wf.Send(context.Background(), "u1"); resp != noDraftMessage {
		t.Errorf("send on expired draft should find none, got %q", resp)
	}
	if resp := f.wf.Improve(context.Background(), "u1", "make it formal"); resp != noDraftMessage {
		t.Errorf("improve on expired draft should find none, got %q", resp)
	}
	if resp := f.wf.Keep(context.Background(), "u1"); resp != noDraftMessage {
		t.Errorf("keep on expired draft should find none, got %q", resp)
	}
	if resp := f.wf.List(context.Background(), "u1"); !strings.Contains(resp, "no open email drafts") {
		t.Errorf("expired draft must not be listed, got %q", resp)
	}
}

func TestKeepParksDraftForADay(t *testing.T) {
	f := newEmailFixture("some generated message body text")

	f.wf.Draft(context.Background(), "u1", "email a@x.com about keeping")
	resp := f.wf.Keep(context.Background(), "u1")
	if !strings.Contains(resp, "kept") {
		t.Fatalf("unexpected keep response %q", resp)
	}

	// A kept draft is no longer the active one
	if got := f.wf.Send(context.Background(), "u1"); got != noDraftMessage {
		t.Errorf("kept draft must not be sendable directly, got %q", got)
	}

	// But it survives well past the default expiry
	f.advance(20 * time.Hour)
	if got := f.wf.List(context.Background(), "u1"); !strings.Contains(got, "a@x.com") {
		t.Errorf("kept draft should still be listed after 20h, got %q", got)
	}
	f.advance(5 * time.Hour)
	if got := f.wf.List(context.Background(), "u1"); !strings.Contains(got, "no open email drafts") {
		t.Errorf("kept draft should expire after 24h, got %q", got)
	}
}

func TestSelectPromotesAndDemotes(t *testing.T) {
	f := newEmailFixture("first generated body text here", "second generated body text here")

	f.wf.Draft(context.Background(), "u1", "email a@x.com about alpha")
	f.wf.Keep(context.Background(), "u1")
	f.advance(time.Minute)
	f.wf.Draft(context.Background(), "u1", "email b@x.com about beta")

	// Newest first: 1 = b@x.com (active), 2 = a@x.com (kept)
	listResp := f.wf.List(context.Background(), "u1")
	if !strings.Contains(listResp, "1. To: b@x.com") || !strings.Contains(listResp, "2. To: a@x.com") {
		t.Fatalf("unexpected list ordering: %q", listResp)
	}

	resp := f.wf.Select(context.Background(), "u1", 2)
	if !strings.Contains(resp, "a@x.com") {
		t.Fatalf("unexpected select response %q", resp)
	}

	active, _ := f.repo.ActiveByUser("u1", *f.clock)
	if active == nil || active.ToEmail != "a@x.com" {
		t.Fatalf("selected draft should be active, got %+v", active)
	}
	if n := f.repo.countStatus("u1", domain.StatusDraft); n != 1 {
		t.Errorf("expected exactly 1 active draft after select, got %d", n)
	}
	// Selection refreshes the short expiry
	if want := f.clock.Add(domain.DefaultTTL); !active.ExpiresAt.Equal(want) {
		t.Errorf("expiry after select = %v, want %v", active.ExpiresAt, want)
	}
}

func TestSelectOutOfRange(t *testing.T) {
	f := newEmailFixture("some generated message body text")
	f.wf.Draft(context.Background(), "u1", "email a@x.com about alpha")

	resp := f.wf.Select(context.Background(), "u1", 4)
	if !strings.Contains(resp, "doesn't exist") {
		t.Errorf("expected out-of-range message, got %q", resp)
	}
}

func TestImproveExtendsExpiryAndRewritesBody(t *testing.T) {
	f := newEmailFixture(
		"original generated body for review",
		"A much more formal version of the email.",
	)

	f.wf.Draft(context.Background(), "u1", "email a@x.com about the launch")
	created, _ := f.repo.ActiveByUser("u1", *f.clock)
	originalExpiry := created.ExpiresAt

	resp := f.wf.Improve(context.Background(), "u1", "make it more formal")
	if !strings.Contains(resp, "A much more formal version") {
		t.Fatalf("improved body missing from response: %q", resp)
	}

	updated, _ := f.repo.ActiveByUser("u1", *f.clock)
	if want := originalExpiry.Add(domain.DefaultTTL); !updated.ExpiresAt.Equal(want) {
		t.Errorf("expiry after improve = %v, want %v", updated.ExpiresAt, want)
	}
	// The mirror copy follows the local rewrite
	mirrored := f.mirror.drafts[updated.GmailDraftID]
	if !strings.Contains(mirrored[2], "formal version") {
		t.Errorf("mirror body not updated: %q", mirrored[2])
	}
}

func TestImproveParsesStructuredSubjectReply(t *testing.T) {
	f := newEmailFixture(
		"original generated body for review",
		"SUBJECT: Launch Update\nBODY: The launch moved to Friday.",
	)

	f.wf.Draft(context.Background(), "u1", "email a@x.com about the launch")
	f.wf.Improve(context.Background(), "u1", "change the subject to Launch Update")

	updated, _ := f.repo.ActiveByUser("u1", *f.clock)
	if updated.Subject != "Launch Update" {
		t.Errorf("subject = %q, want %q", updated.Subject, "Launch Update")
	}
	if updated.Body != "The launch moved to Friday." {
		t.Errorf("body = %q", updated.Body)
	}
}

func TestParseStructuredImprovement(t *testing.T) {
	subject, body, ok := ParseStructuredImprovement("SUBJECT: Hello\nBODY: World\nacross lines")
	if !ok || subject != "Hello" || body != "World\nacross lines" {
		t.Errorf("got (%q, %q, %v)", subject, body, ok)
	}

	if _, _, ok := ParseStructuredImprovement("just a plain rewrite"); ok {
		t.Error("plain text should not parse as structured")
	}
}

func TestSendPrefersMirrorThenFallsBack(t *testing.T) {
	f := newEmailFixture("generated body one for mirror", "generated body two for fallback")

	f.wf.Draft(context.Background(), "u1", "email a@x.com about mirror send")
	f.wf.Send(context.Background(), "u1")
	if len(f.mirror.sent) != 1 {
		t.Fatalf("expected mirror send, got %d", len(f.mirror.sent))
	}
	if len(f.transport.sends) != 0 {
		t.Errorf("direct transport should be untouched when the mirror works")
	}

	// Mirror failure falls back to direct transport
	f.mirror.sendErr = errors.New("mirror down")
	f.wf.Draft(context.Background(), "u2", "email b@x.com about fallback send")
	resp := f.wf.Send(context.Background(), "u2")
	if !strings.Contains(resp, "sent successfully") {
		t.Fatalf("fallback send should succeed, got %q", resp)
	}
	if len(f.transport.sends) != 1 || f.transport.sends[0] != "b@x.com" {
		t.Errorf("expected direct send to b@x.com, got %v", f.transport.sends)
	}
}

func TestListRefreshesFromMirror(t *testing.T) {
	f := newEmailFixture("generated body before external edit")

	f.wf.Draft(context.Background(), "u1", "email a@x.com about sync")
	active, _ := f.repo.ActiveByUser("u1", *f.clock)

	// Simulate an edit made in the remote mailbox
	f.mirror.drafts[active.GmailDraftID] = [3]string{"a@x.com", "Edited Remotely", "Remote body."}

	resp := f.wf.List(context.Background(), "u1")
	if !strings.Contains(resp, "Edited Remotely") {
		t.Errorf("list should show the authoritative mirror subject, got %q", resp)
	}
}
