// Package calendar mirrors granted leave onto a shared calendar.
package calendar

import (
	"context"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const dateLayout = "2006-01-02"

// Mirror creates all-day events. endExclusive is the day after the last day
// of leave.
type Mirror interface {
	CreateAllDayEvent(ctx context.Context, title, description string, start, endExclusive time.Time) (string, error)
	Enabled() bool
}

// NoopMirror is used when no calendar is configured.
type NoopMirror struct{}

// CreateAllDayEvent implements Mirror.
func (NoopMirror) CreateAllDayEvent(context.Context, string, string, time.Time, time.Time) (string, error) {
	return "", nil
}

// Enabled implements Mirror.
func (NoopMirror) Enabled() bool { return false }

// GoogleMirror writes events to a Google Calendar.
type GoogleMirror struct {
	svc        *gcal.Service
	calendarID string
}

// NewGoogleMirror creates a GoogleMirror for calendarID. opts carry the
// credentials.
func NewGoogleMirror(ctx context.Context, calendarID string, opts ...option.ClientOption) (*GoogleMirror, error) {
	opts = append([]option.ClientOption{option.WithScopes(gcal.CalendarEventsScope)}, opts...)
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}
	return &GoogleMirror{svc: svc, calendarID: calendarID}, nil
}

// Enabled implements Mirror.
func (m *GoogleMirror) Enabled() bool { return true }

// CreateAllDayEvent inserts an all-day event and returns its HTML link.
func (m *GoogleMirror) CreateAllDayEvent(ctx context.Context, title, description string, start, endExclusive time.Time) (string, error) {
	if !endExclusive.After(start) {
		return "", fmt.Errorf("event end %s must be after start %s", endExclusive.Format(dateLayout), start.Format(dateLayout))
	}

	event := &gcal.Event{
		Summary:      title,
		Description:  description,
		Start:        &gcal.EventDateTime{Date: start.Format(dateLayout)},
		End:          &gcal.EventDateTime{Date: endExclusive.Format(dateLayout)},
		Transparency: "transparent",
	}

	created, err := m.svc.Events.Insert(m.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar insert failed: %w", err)
	}
	return created.HtmlLink, nil
}
