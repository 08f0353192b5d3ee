package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"assistant-backend/pkg/calendar"
)

type fakeCalendar struct {
	events    []*calendar.Event
	inserts   int
	updates   int
	deleted   []string
	listErr   error
	deleteErr map[string]error
}

func (f *fakeCalendar) List(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*calendar.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*calendar.Event
	for _, ev := range f.events {
		if !ev.Start.Before(timeMin) && !ev.Start.After(timeMax) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeCalendar) Insert(ctx context.Context, calendarID string, event *calendar.Event) (*calendar.Event, error) {
	f.inserts++
	created := *event
	created.ID = fmt.Sprintf("ev-%d", len(f.events)+1)
	f.events = append(f.events, &created)
	return &created, nil
}

func (f *fakeCalendar) Update(ctx context.Context, calendarID, eventID string, event *calendar.Event) (*calendar.Event, error) {
	f.updates++
	for i, ev := range f.events {
		if ev.ID == eventID {
			updated := *event
			updated.ID = eventID
			f.events[i] = &updated
			return &updated, nil
		}
	}
	return nil, errors.New("event not found")
}

func (f *fakeCalendar) Delete(ctx context.Context, calendarID, eventID string) error {
	if err := f.deleteErr[eventID]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, eventID)
	for i, ev := range f.events {
		if ev.ID == eventID {
			f.events = append(f.events[:i], f.events[i+1:]...)
			break
		}
	}
	return nil
}

type scriptedLLM struct {
	replies []string
	err     error
	calls   int
}

func (s *scriptedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.calls >= len(s.replies) {
		return "", errors.New("no scripted reply left")
	}
	reply := s.replies[s.calls]
	s.calls++
	return reply, nil
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestCalendarTool(svc *fakeCalendar, llm *scriptedLLM) *CalendarTool {
	tool := NewCalendarTool(svc, llm, "primary", time.UTC)
	tool.now = func() time.Time { return testNow }
	return tool
}

func eventJSON(summary, start, end string) string {
	return fmt.Sprintf(`{"summary": %q, "start_time": %q, "end_time": %q, "description": "", "location": ""}`, summary, start, end)
}

func TestClassifyCalendarIntent(t *testing.T) {
	cases := []struct {
		request string
		want    CalendarIntent
	}{
		{"delete my meetings today", IntentDelete},
		{"cancel the standup", IntentDelete},
		{"remove tomorrow's appointments", IntentDelete},
		{"show my calendar", IntentList},
		{"what's on my schedule today", IntentList},
		{"list upcoming events", IntentList},
		{"reschedule my dentist appointment to 3 PM", IntentUpdate},
		{"Meeting with John tomorrow at 2 PM", IntentCreate},
		{"dinner with Sarah on Friday at 7", IntentCreate},
		// delete vocabulary wins over update vocabulary
		{"cancel and reschedule everything", IntentDelete},
	}

	for _, c := range cases {
		if got := ClassifyCalendarIntent(c.request); got != c.want {
			t.Errorf("ClassifyCalendarIntent(%q) = %v, want %v", c.request, got, c.want)
		}
	}
}

func TestResolveWindow(t *testing.T) {
	today := ResolveWindow("what's on today", testNow)
	if today.Label != "today" {
		t.Errorf("expected label 'today', got %q", today.Label)
	}
	if today.Start.Hour() != 0 || today.Start.Day() != 10 {
		t.Errorf("today window starts at %v", today.Start)
	}

	tomorrow := ResolveWindow("show tomorrow", testNow)
	if tomorrow.Start.Day() != 11 || tomorrow.Label != "tomorrow" {
		t.Errorf("tomorrow window = %v (%q)", tomorrow.Start, tomorrow.Label)
	}

	tonight := ResolveWindow("delete everything tonight", testNow)
	if tonight.Start.Hour() != 18 || tonight.End.Hour() != 23 {
		t.Errorf("tonight window = %v - %v", tonight.Start, tonight.End)
	}

	week := ResolveWindow("check my calendar", testNow)
	if week.Label != "the next 7 days" {
		t.Errorf("expected default 7-day window, got %q", week.Label)
	}
	if !week.End.Equal(testNow.AddDate(0, 0, 7)) {
		t.Errorf("default window ends at %v", week.End)
	}
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	hour := time.Hour

	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{"identical", base, base.Add(hour), base, base.Add(hour), true},
		{"partial", base.Add(30 * time.Minute), base.Add(90 * time.Minute), base, base.Add(hour), true},
		{"contained", base.Add(10 * time.Minute), base.Add(20 * time.Minute), base, base.Add(hour), true},
		{"touching end-to-start", base.Add(-hour), base, base, base.Add(hour), false},
		{"touching start-to-end", base.Add(hour), base.Add(2 * hour), base, base.Add(hour), false},
		{"disjoint", base.Add(3 * hour), base.Add(4 * hour), base, base.Add(hour), false},
	}

	for _, c := range cases {
		if got := Overlaps(c.aStart, c.aEnd, c.bStart, c.bEnd); got != c.want {
			t.Errorf("%s: Overlaps = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestSmartCreateRejectsConflict(t *testing.T) {
	svc := &fakeCalendar{events: []*calendar.Event{{
		ID:      "ev-meeting",
		Summary: "Meeting",
		Start:   time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
		End:     time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
	}}}
	llm := &scriptedLLM{replies: []string{eventJSON("Call", "2026-03-10T14:30:00", "2026-03-10T15:30:00")}}
	tool := newTestCalendarTool(svc, llm)

	resp, err := tool.Execute(context.Background(), "u1", "Call with Bob at 2:30 PM")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(resp, "Meeting") {
		t.Errorf("conflict response should name the existing event, got %q", resp)
	}
	if !strings.Contains(resp, "conflict") {
		t.Errorf("expected a conflict message, got %q", resp)
	}
	if svc.inserts != 0 {
		t.Errorf("insert must not be called on conflict, got %d inserts", svc.inserts)
	}
}

func TestSmartCreateRejectsPastStart(t *testing.T) {
	svc := &fakeCalendar{}
	llm := &scriptedLLM{replies: []string{eventJSON("Retro", "2026-03-10T09:00:00", "2026-03-10T10:00:00")}}
	tool := newTestCalendarTool(svc, llm)

	resp, _ := tool.Execute(context.Background(), "u1", "Retro at 9 AM")
	if !strings.Contains(resp, "past") {
		t.Errorf("expected past-time rejection, got %q", resp)
	}
	if svc.inserts != 0 {
		t.Errorf("insert must not be called for past events, got %d inserts", svc.inserts)
	}
}

func TestSmartCreateSuccess(t *testing.T) {
	svc := &fakeCalendar{}
	llm := &scriptedLLM{replies: []string{eventJSON("Lunch", "2026-03-10T13:00:00", "2026-03-10T14:00:00")}}
	tool := newTestCalendarTool(svc, llm)

	resp, _ := tool.Execute(context.Background(), "u1", "lunch with Sarah at 1 PM")
	if svc.inserts != 1 {
		t.Fatalf("expected 1 insert, got %d", svc.inserts)
	}
	if !strings.Contains(resp, "Lunch") {
		t.Errorf("expected confirmation naming the event, got %q", resp)
	}
}

func TestSmartCreateFallbackOnModelFailure(t *testing.T) {
	svc := &fakeCalendar{}
	llm := &scriptedLLM{err: errors.New("model down")}
	tool := newTestCalendarTool(svc, llm)

	resp, _ := tool.Execute(context.Background(), "u1", "plan something nice for the team")
	if svc.inserts != 1 {
		t.Fatalf("fallback event should be inserted, got %d inserts", svc.inserts)
	}
	if !strings.Contains(resp, "created") {
		t.Errorf("expected creation confirmation, got %q", resp)
	}
	// Fallback schedules now+1h for one hour
	created := svc.events[0]
	if !created.Start.Equal(testNow.Add(time.Hour)) || !created.End.Equal(testNow.Add(2*time.Hour)) {
		t.Errorf("fallback times = %v - %v", created.Start, created.End)
	}
}

func TestSmartListEmptyDay(t *testing.T) {
	tool := newTestCalendarTool(&fakeCalendar{}, &scriptedLLM{})

	resp, _ := tool.Execute(context.Background(), "u1", "what's on my calendar today")
	if resp != "No events found for today." {
		t.Errorf("unexpected empty-day response: %q", resp)
	}
}

func TestSmartListRendersEvents(t *testing.T) {
	svc := &fakeCalendar{events: []*calendar.Event{
		{ID: "a", Summary: "Standup", Start: testNow.Add(time.Hour), End: testNow.Add(2 * time.Hour), Location: "Room B"},
		{ID: "b", Summary: "Review", Start: testNow.Add(3 * time.Hour), End: testNow.Add(4 * time.Hour)},
	}}
	tool := newTestCalendarTool(svc, &scriptedLLM{})

	resp, _ := tool.Execute(context.Background(), "u1", "show my calendar today")
	if !strings.Contains(resp, "1. Standup") || !strings.Contains(resp, "2. Review") {
		t.Errorf("expected numbered events, got %q", resp)
	}
	if !strings.Contains(resp, "Room B") {
		t.Errorf("expected location in listing, got %q", resp)
	}
}

func TestSmartDeleteEmptyWindowIsIdempotent(t *testing.T) {
	svc := &fakeCalendar{}
	tool := newTestCalendarTool(svc, &scriptedLLM{})

	resp, _ := tool.Execute(context.Background(), "u1", "delete everything today")
	if !strings.Contains(resp, "nothing to delete") {
		t.Errorf("expected nothing-to-delete message, got %q", resp)
	}
	if len(svc.deleted) != 0 {
		t.Errorf("no delete calls expected, got %v", svc.deleted)
	}
}

func TestSmartDeleteRemovesAllInWindow(t *testing.T) {
	svc := &fakeCalendar{events: []*calendar.Event{
		{ID: "a", Summary: "Standup", Start: testNow.Add(time.Hour), End: testNow.Add(2 * time.Hour)},
		{ID: "b", Summary: "Review", Start: testNow.Add(3 * time.Hour), End: testNow.Add(4 * time.Hour)},
	}}
	tool := newTestCalendarTool(svc, &scriptedLLM{})

	resp, _ := tool.Execute(context.Background(), "u1", "delete everything today")
	if len(svc.deleted) != 2 {
		t.Fatalf("expected 2 deletes, got %d", len(svc.deleted))
	}
	if !strings.Contains(resp, "Standup") || !strings.Contains(resp, "Review") {
		t.Errorf("delete report should name both events, got %q", resp)
	}

	// Window is now empty; a repeat delete is a no-op
	resp, _ = tool.Execute(context.Background(), "u1", "delete everything today")
	if !strings.Contains(resp, "nothing to delete") {
		t.Errorf("expected nothing-to-delete on repeat, got %q", resp)
	}
}

func TestSmartDeleteReportsPartialFailures(t *testing.T) {
	svc := &fakeCalendar{
		events: []*calendar.Event{
			{ID: "a", Summary: "Standup", Start: testNow.Add(time.Hour), End: testNow.Add(2 * time.Hour)},
			{ID: "b", Summary: "Review", Start: testNow.Add(3 * time.Hour), End: testNow.Add(4 * time.Hour)},
		},
		deleteErr: map[string]error{"b": errors.New("gone")},
	}
	tool := newTestCalendarTool(svc, &scriptedLLM{})

	resp, _ := tool.Execute(context.Background(), "u1", "delete everything today")
	if !strings.Contains(resp, "Deleted 1 event") {
		t.Errorf("failed delete must not count as success, got %q", resp)
	}
	if strings.Contains(resp, "Review") {
		t.Errorf("failed delete should not be reported as removed, got %q", resp)
	}
}

func TestMatchEventByTitle(t *testing.T) {
	events := []*calendar.Event{
		{ID: "a", Summary: "Dentist Appointment", Start: testNow.Add(time.Hour)},
		{ID: "b", Summary: "Project Review", Start: testNow.Add(2 * time.Hour)},
		{ID: "c", Summary: "Dentist Follow-up", Start: testNow.Add(3 * time.Hour)},
	}

	if got := MatchEventByTitle("reschedule the project review to 4 PM", events); got == nil || got.ID != "b" {
		t.Errorf("expected match on Project Review, got %+v", got)
	}

	// First chronological match wins for ambiguous tokens
	if got := MatchEventByTitle("move the dentist visit to Friday", events); got == nil || got.ID != "a" {
		t.Errorf("expected first dentist event, got %+v", got)
	}

	// Update verbs and short tokens never match
	if got := MatchEventByTitle("change it to 5 PM", events); got != nil {
		t.Errorf("expected no match, got %+v", got)
	}
}

func TestSmartUpdateDisambiguatesWhenNoMatch(t *testing.T) {
	svc := &fakeCalendar{events: []*calendar.Event{
		{ID: "a", Summary: "Standup", Start: testNow.Add(time.Hour), End: testNow.Add(2 * time.Hour)},
		{ID: "b", Summary: "Review", Start: testNow.Add(3 * time.Hour), End: testNow.Add(4 * time.Hour)},
	}}
	tool := newTestCalendarTool(svc, &scriptedLLM{})

	resp, _ := tool.Execute(context.Background(), "u1", "reschedule that thing today")
	if !strings.Contains(resp, "Standup") || !strings.Contains(resp, "Review") {
		t.Errorf("expected disambiguation list, got %q", resp)
	}
	if svc.updates != 0 {
		t.Errorf("no update expected without a match, got %d", svc.updates)
	}
}

func TestSmartUpdateAppliesNewTime(t *testing.T) {
	svc := &fakeCalendar{events: []*calendar.Event{
		{ID: "a", Summary: "Standup", Start: testNow.Add(time.Hour), End: testNow.Add(2 * time.Hour)},
	}}
	llm := &scriptedLLM{replies: []string{`{"start_time": "2026-03-10T16:00:00", "end_time": "2026-03-10T17:00:00"}`}}
	tool := newTestCalendarTool(svc, llm)

	resp, _ := tool.Execute(context.Background(), "u1", "reschedule the standup today to 4 PM")
	if svc.updates != 1 {
		t.Fatalf("expected 1 update, got %d", svc.updates)
	}
	if svc.events[0].Start.Hour() != 16 {
		t.Errorf("event start = %v", svc.events[0].Start)
	}
	if !strings.Contains(resp, "Standup") {
		t.Errorf("expected confirmation naming the event, got %q", resp)
	}
}

func TestSmartUpdateNothingInWindow(t *testing.T) {
	tool := newTestCalendarTool(&fakeCalendar{}, &scriptedLLM{})

	resp, _ := tool.Execute(context.Background(), "u1", "reschedule my meeting today")
	if !strings.Contains(resp, "nothing to update") {
		t.Errorf("expected nothing-to-update message, got %q", resp)
	}
}
