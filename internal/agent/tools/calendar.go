package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"assistant-backend/pkg/ai"
	"assistant-backend/pkg/calendar"
)

// CalendarIntent is the operation a scheduling request resolves to.
type CalendarIntent int

const (
	IntentCreate CalendarIntent = iota
	IntentList
	IntentDelete
	IntentUpdate
)

var (
	deleteKeywords = []string{"delete", "cancel", "remove", "clear"}
	listKeywords   = []string{"list", "show", "what", "check", "view", "upcoming", "agenda"}
	updateKeywords = []string{"update", "change", "reschedule", "move", "modify"}
)

// ClassifyCalendarIntent routes a request to an operation by first keyword
// match, checked in order: delete, list, update; anything else is a create.
func ClassifyCalendarIntent(request string) CalendarIntent {
	lower := strings.ToLower(request)
	for _, kw := range deleteKeywords {
		if strings.Contains(lower, kw) {
			return IntentDelete
		}
	}
	for _, kw := range listKeywords {
		if strings.Contains(lower, kw) {
			return IntentList
		}
	}
	for _, kw := range updateKeywords {
		if strings.Contains(lower, kw) {
			return IntentUpdate
		}
	}
	return IntentCreate
}

// TimeWindow is a resolved query range with a human label.
type TimeWindow struct {
	Start time.Time
	End   time.Time
	Label string
}

// ResolveWindow maps request keywords to a concrete time range: today,
// tomorrow, tonight (18:00 to end of day), or the next 7 days by default.
func ResolveWindow(request string, now time.Time) TimeWindow {
	lower := strings.ToLower(request)
	loc := now.Location()
	y, m, d := now.Date()

	switch {
	case strings.Contains(lower, "tonight"):
		return TimeWindow{
			Start: time.Date(y, m, d, 18, 0, 0, 0, loc),
			End:   time.Date(y, m, d, 23, 59, 59, 0, loc),
			Label: "tonight",
		}
	case strings.Contains(lower, "today"):
		return TimeWindow{
			Start: time.Date(y, m, d, 0, 0, 0, 0, loc),
			End:   time.Date(y, m, d, 23, 59, 59, 0, loc),
			Label: "today",
		}
	case strings.Contains(lower, "tomorrow"):
		t := now.AddDate(0, 0, 1)
		ty, tm, td := t.Date()
		return TimeWindow{
			Start: time.Date(ty, tm, td, 0, 0, 0, 0, loc),
			End:   time.Date(ty, tm, td, 23, 59, 59, 0, loc),
			Label: "tomorrow",
		}
	default:
		return TimeWindow{Start: now, End: now.AddDate(0, 0, 7), Label: "the next 7 days"}
	}
}

// Overlaps reports whether [aStart,aEnd) and [bStart,bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !(aEnd.Before(bStart) || aEnd.Equal(bStart) || aStart.After(bEnd) || aStart.Equal(bEnd))
}

// CalendarTool resolves scheduling requests end to end: it classifies the
// intent, re-reads live calendar state before every write, and refuses
// creates that would double-book or land in the past. Registered
// return-direct so the agent loop never re-runs an already resolved
// operation.
type CalendarTool struct {
	svc        calendar.Service
	llm        ai.LanguageModel
	calendarID string
	loc        *time.Location
	now        func() time.Time
}

func NewCalendarTool(svc calendar.Service, llm ai.LanguageModel, calendarID string, loc *time.Location) *CalendarTool {
	return &CalendarTool{
		svc:        svc,
		llm:        llm,
		calendarID: calendarID,
		loc:        loc,
		now:        func() time.Time { return time.Now() },
	}
}

func (t *CalendarTool) Name() string { return "calendar" }

func (t *CalendarTool) Description() string {
	return "Manage the user's calendar: create, list, update or delete events. " +
		"Input is the user's scheduling request in natural language, e.g. " +
		"'Meeting with John tomorrow at 2 PM' or 'what's on my calendar today'."
}

func (t *CalendarTool) ReturnDirect() bool { return true }

func (t *CalendarTool) Execute(ctx context.Context, userID, input string) (string, error) {
	switch ClassifyCalendarIntent(input) {
	case IntentDelete:
		return t.smartDelete(ctx, input), nil
	case IntentList:
		return t.smartList(ctx, input), nil
	case IntentUpdate:
		return t.smartUpdate(ctx, input), nil
	default:
		return t.smartCreate(ctx, input), nil
	}
}

type extractedEvent struct {
	Summary     string `json:"summary"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

const eventTimeLayout = "2006-01-02T15:04:05"

var jsonObjectPattern = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)

func (t *CalendarTool) smartCreate(ctx context.Context, request string) string {
	now := t.now().In(t.loc)

	event := t.extractEvent(ctx, request, now)

	if event.Start.Before(now) {
		return fmt.Sprintf("I can't schedule \"%s\" because its start time (%s) is in the past. Please pick a future time.",
			event.Summary, event.Start.Format("Monday, January 2 at 3:04 PM"))
	}

	// Read the whole target day before writing; calendar state is never
	// cached, so this is the only defence against double-booking.
	dayStart := time.Date(event.Start.Year(), event.Start.Month(), event.Start.Day(), 0, 0, 0, 0, t.loc)
	dayEnd := dayStart.Add(24*time.Hour - time.Second)

	existing, err := t.svc.List(ctx, t.calendarID, dayStart, dayEnd)
	if err != nil {
		log.Error().Err(err).Msg("calendar read before create failed")
		return "I couldn't check your calendar for conflicts, so I didn't create the event. Please try again."
	}

	var conflicts []*calendar.Event
	for _, ev := range existing {
		if Overlaps(event.Start, event.End, ev.Start, ev.End) {
			conflicts = append(conflicts, ev)
		}
	}

	if len(conflicts) > 0 {
		var b strings.Builder
		fmt.Fprintf(&b, "I can't schedule \"%s\" because it conflicts with:\n", event.Summary)
		for _, c := range conflicts {
			fmt.Fprintf(&b, "- %s (%s - %s)\n", c.Summary,
				c.Start.In(t.loc).Format("3:04 PM"), c.End.In(t.loc).Format("3:04 PM"))
		}
		b.WriteString("Please reschedule the existing event first, or pick a different time.")
		return b.String()
	}

	created, err := t.svc.Insert(ctx, t.calendarID, event)
	if err != nil {
		log.Error().Err(err).Str("summary", event.Summary).Msg("calendar insert failed")
		return "I encountered an error creating the calendar event. Please try again."
	}

	return fmt.Sprintf("Calendar event created:\n%s\n%s\nEvent ID: %s",
		created.Summary, created.Start.In(t.loc).Format("Monday, January 2 at 3:04 PM"), created.ID)
}

// extractEvent asks the model for a structured event and falls back to a
// deterministic default when the reply is unusable.
func (t *CalendarTool) extractEvent(ctx context.Context, request string, now time.Time) *calendar.Event {
	prompt := fmt.Sprintf(`Extract calendar event information from this description: "%s"

Today's date and time: %s
Current timezone: %s

Return ONLY a valid JSON object with these exact fields (no markdown, no explanations):
{
  "summary": "event title",
  "start_time": "YYYY-MM-DDTHH:MM:SS",
  "end_time": "YYYY-MM-DDTHH:MM:SS",
  "description": "optional description",
  "location": "optional location"
}

Rules:
- Use 24-hour time format
- Default duration: 1 hour
- If date is "tomorrow", use %s
- Return ONLY the JSON, nothing else

JSON:`, request, now.Format("2006-01-02 15:04"), t.loc.String(), now.AddDate(0, 0, 1).Format("2006-01-02"))

	reply, err := t.llm.Complete(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Msg("event extraction failed, using fallback")
		return t.fallbackEvent(request, now)
	}

	raw := jsonObjectPattern.FindString(stripCodeFences(reply))
	if raw == "" {
		log.Warn().Msg("no JSON object in event extraction reply, using fallback")
		return t.fallbackEvent(request, now)
	}

	var ex extractedEvent
	if err := json.Unmarshal([]byte(raw), &ex); err != nil {
		log.Warn().Err(err).Msg("event extraction JSON invalid, using fallback")
		return t.fallbackEvent(request, now)
	}

	start, err1 := time.ParseInLocation(eventTimeLayout, ex.StartTime, t.loc)
	end, err2 := time.ParseInLocation(eventTimeLayout, ex.EndTime, t.loc)
	if err1 != nil || err2 != nil || ex.Summary == "" || !start.Before(end) {
		log.Warn().Str("start", ex.StartTime).Str("end", ex.EndTime).
			Msg("event extraction times unusable, using fallback")
		return t.fallbackEvent(request, now)
	}

	return &calendar.Event{
		Summary:     ex.Summary,
		Description: ex.Description,
		Location:    ex.Location,
		Start:       start,
		End:         end,
	}
}

func (t *CalendarTool) fallbackEvent(request string, now time.Time) *calendar.Event {
	title := cutRunes(request, 50)
	return &calendar.Event{
		Summary:     title,
		Description: request,
		Start:       now.Add(time.Hour),
		End:         now.Add(2 * time.Hour),
	}
}

func (t *CalendarTool) smartList(ctx context.Context, request string) string {
	window := ResolveWindow(request, t.now().In(t.loc))

	events, err := t.svc.List(ctx, t.calendarID, window.Start, window.End)
	if err != nil {
		log.Error().Err(err).Msg("calendar list failed")
		return "I encountered an error retrieving calendar events."
	}

	if len(events) == 0 {
		return fmt.Sprintf("No events found for %s.", window.Label)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Calendar events for %s:\n\n", window.Label)
	for i, ev := range events {
		fmt.Fprintf(&b, "%d. %s\n   %s\n", i+1, ev.Summary,
			ev.Start.In(t.loc).Format("Monday, January 2 at 3:04 PM"))
		if ev.Location != "" {
			fmt.Fprintf(&b, "   Location: %s\n", ev.Location)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (t *CalendarTool) smartDelete(ctx context.Context, request string) string {
	window := ResolveWindow(request, t.now().In(t.loc))

	events, err := t.svc.List(ctx, t.calendarID, window.Start, window.End)
	if err != nil {
		log.Error().Err(err).Msg("calendar read before delete failed")
		return "I couldn't check your calendar, so nothing was deleted. Please try again."
	}

	if len(events) == 0 {
		return fmt.Sprintf("No events found for %s, so there is nothing to delete.", window.Label)
	}

	var deleted []string
	for _, ev := range events {
		if err := t.svc.Delete(ctx, t.calendarID, ev.ID); err != nil {
			log.Error().Err(err).Str("event_id", ev.ID).Str("summary", ev.Summary).
				Msg("calendar delete failed")
			continue
		}
		deleted = append(deleted, ev.Summary)
	}

	if len(deleted) == 0 {
		return "I couldn't delete any of the events due to errors. Please try again."
	}

	return fmt.Sprintf("Deleted %d event(s) for %s:\n- %s",
		len(deleted), window.Label, strings.Join(deleted, "\n- "))
}

func (t *CalendarTool) smartUpdate(ctx context.Context, request string) string {
	now := t.now().In(t.loc)
	window := ResolveWindow(request, now)

	events, err := t.svc.List(ctx, t.calendarID, window.Start, window.End)
	if err != nil {
		log.Error().Err(err).Msg("calendar read before update failed")
		return "I couldn't check your calendar, so nothing was updated. Please try again."
	}

	if len(events) == 0 {
		return fmt.Sprintf("No events found for %s, so there is nothing to update.", window.Label)
	}

	target := MatchEventByTitle(request, events)
	if target == nil {
		titles := make([]string, len(events))
		for i, ev := range events {
			titles[i] = ev.Summary
		}
		return fmt.Sprintf("I couldn't tell which event you mean. Events for %s:\n- %s\nPlease mention the event by name.",
			window.Label, strings.Join(titles, "\n- "))
	}

	start, end, ok := t.extractNewTimes(ctx, request, target, now)
	if !ok {
		return fmt.Sprintf("I found \"%s\" but couldn't work out the new time. Please state it explicitly, e.g. \"move %s to 3 PM tomorrow\".",
			target.Summary, target.Summary)
	}

	updated := *target
	updated.Start = start
	updated.End = end

	result, err := t.svc.Update(ctx, t.calendarID, target.ID, &updated)
	if err != nil {
		log.Error().Err(err).Str("event_id", target.ID).Msg("calendar update failed")
		return "I encountered an error updating the event. Please try again."
	}

	return fmt.Sprintf("Updated \"%s\" to %s.", result.Summary,
		result.Start.In(t.loc).Format("Monday, January 2 at 3:04 PM"))
}

// MatchEventByTitle finds the first event (chronological order) whose title
// contains a request token longer than 3 characters, case-insensitively.
// Update verbs and window words are excluded from the candidate tokens.
func MatchEventByTitle(request string, events []*calendar.Event) *calendar.Event {
	skip := map[string]bool{
		"update": true, "change": true, "reschedule": true, "move": true,
		"modify": true, "today": true, "tomorrow": true, "tonight": true,
		"event": true, "meeting": true,
	}

	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(request)) {
		tok = strings.Trim(tok, ".,!?\"'")
		if len(tok) > 3 && !skip[tok] {
			tokens = append(tokens, tok)
		}
	}

	for _, ev := range events {
		title := strings.ToLower(ev.Summary)
		for _, tok := range tokens {
			if strings.Contains(title, tok) {
				return ev
			}
		}
	}
	return nil
}

type extractedTimes struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (t *CalendarTool) extractNewTimes(ctx context.Context, request string, ev *calendar.Event, now time.Time) (time.Time, time.Time, bool) {
	prompt := fmt.Sprintf(`Parse the new time for a calendar event from this request: "%s"

The event being rescheduled:
Title: %s
Current start: %s
Current end: %s

Today's date and time: %s
Current timezone: %s

Return ONLY a valid JSON object (no markdown, no explanations):
{
  "start_time": "YYYY-MM-DDTHH:MM:SS",
  "end_time": "YYYY-MM-DDTHH:MM:SS"
}

Rules:
- Keep the event's current duration unless the request changes it
- Use 24-hour time format
- Return ONLY the JSON, nothing else

JSON:`, request, ev.Summary,
		ev.Start.In(t.loc).Format(eventTimeLayout), ev.End.In(t.loc).Format(eventTimeLayout),
		now.Format("2006-01-02 15:04"), t.loc.String())

	reply, err := t.llm.Complete(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Msg("update time extraction failed")
		return time.Time{}, time.Time{}, false
	}

	raw := jsonObjectPattern.FindString(stripCodeFences(reply))
	if raw == "" {
		return time.Time{}, time.Time{}, false
	}

	var ex extractedTimes
	if err := json.Unmarshal([]byte(raw), &ex); err != nil {
		return time.Time{}, time.Time{}, false
	}

	start, err1 := time.ParseInLocation(eventTimeLayout, ex.StartTime, t.loc)
	end, err2 := time.ParseInLocation(eventTimeLayout, ex.EndTime, t.loc)
	if err1 != nil || err2 != nil || !start.Before(end) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
