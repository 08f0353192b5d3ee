package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Event is the calendar event record exchanged with the provider.
// Start and End are always timezone-aware instants.
type Event struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}

// Service is the calendar provider contract. Every operation is a live
// round-trip; callers never cache events.
type Service interface {
	List(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*Event, error)
	Insert(ctx context.Context, calendarID string, event *Event) (*Event, error)
	Update(ctx context.Context, calendarID, eventID string, event *Event) (*Event, error)
	Delete(ctx context.Context, calendarID, eventID string) error
}

// GoogleService implements Service against the Google Calendar API using an
// offline refresh token.
type GoogleService struct {
	oauthConfig  *oauth2.Config
	refreshToken string
	timezone     string
}

func NewGoogleService(clientID, clientSecret, refreshToken, timezone string) *GoogleService {
	return &GoogleService{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{calendar.CalendarScope},
		},
		refreshToken: refreshToken,
		timezone:     timezone,
	}
}

func (s *GoogleService) service(ctx context.Context) (*calendar.Service, error) {
	token := &oauth2.Token{
		RefreshToken: s.refreshToken,
		Expiry:       time.Now(), // force refresh
	}
	ts := s.oauthConfig.TokenSource(ctx, token)

	srv, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return srv, nil
}

func (s *GoogleService) List(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]*Event, error) {
	srv, err := s.service(ctx)
	if err != nil {
		return nil, err
	}

	result, err := srv.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]*Event, 0, len(result.Items))
	for _, item := range result.Items {
		ev, err := fromGoogleEvent(item)
		if err != nil {
			continue // skip all-day or malformed entries
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *GoogleService) Insert(ctx context.Context, calendarID string, event *Event) (*Event, error) {
	srv, err := s.service(ctx)
	if err != nil {
		return nil, err
	}

	created, err := srv.Events.Insert(calendarID, s.toGoogleEvent(event)).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}
	return merged(event, created), nil
}

func (s *GoogleService) Update(ctx context.Context, calendarID, eventID string, event *Event) (*Event, error) {
	srv, err := s.service(ctx)
	if err != nil {
		return nil, err
	}

	updated, err := srv.Events.Update(calendarID, eventID, s.toGoogleEvent(event)).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return merged(event, updated), nil
}

func (s *GoogleService) Delete(ctx context.Context, calendarID, eventID string) error {
	srv, err := s.service(ctx)
	if err != nil {
		return err
	}

	if err := srv.Events.Delete(calendarID, eventID).Do(); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

func (s *GoogleService) toGoogleEvent(event *Event) *calendar.Event {
	return &calendar.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Start: &calendar.EventDateTime{
			DateTime: event.Start.Format(time.RFC3339),
			TimeZone: s.timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: event.End.Format(time.RFC3339),
			TimeZone: s.timezone,
		},
	}
}

func fromGoogleEvent(item *calendar.Event) (*Event, error) {
	if item.Start == nil || item.Start.DateTime == "" || item.End == nil || item.End.DateTime == "" {
		return nil, fmt.Errorf("event %s has no timed start/end", item.Id)
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return nil, err
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Start:       start,
		End:         end,
	}, nil
}

func merged(event *Event, saved *calendar.Event) *Event {
	out := *event
	out.ID = saved.Id
	return &out
}
