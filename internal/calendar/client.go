package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/nubip/schedsync/internal/google"
)

var (
	// ErrDuplicateIdentifier is returned by ImportEvent when the calendar
	// already holds an event with the same iCalUID.
	ErrDuplicateIdentifier = errors.New("the requested identifier already exists")
	// ErrUnauthorized means the calendar refused the person's credentials.
	ErrUnauthorized = errors.New("calendar authorization failed")
	// ErrEventNotFound is returned by FindByUID when nothing matches.
	ErrEventNotFound = errors.New("event not found")
)

// Client wraps the Google Calendar service for one person's calendar.
type Client struct {
	svc        *calendar.Service
	calendarID string
	loc        *time.Location
}

// NewClient creates a Calendar client authorized by ts.
func NewClient(ctx context.Context, ts oauth2.TokenSource, calendarID string, loc *time.Location) (*Client, error) {
	return NewClientWithOptions(ctx, calendarID, loc, option.WithHTTPClient(google.HTTPClient(ctx, ts)))
}

// NewClientWithOptions creates a client from raw service options.
func NewClientWithOptions(ctx context.Context, calendarID string, loc *time.Location, opts ...option.ClientOption) (*Client, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Client{svc: svc, calendarID: calendarID, loc: loc}, nil
}

// ListEvents lists recurring events, not their expanded instances, that
// overlap [timeMin, timeMax].
func (c *Client) ListEvents(ctx context.Context, timeMin, timeMax time.Time) ([]Event, error) {
	call := c.svc.Events.List(c.calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(false).
		ShowDeleted(false)

	var events []Event
	err := call.Pages(ctx, func(page *calendar.Events) error {
		for _, ev := range page.Items {
			events = append(events, toEvent(ev, c.loc))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", classify(err))
	}
	return events, nil
}

// ImportEvent stores e under its iCalUID. It returns ErrDuplicateIdentifier
// when that identifier is taken.
func (c *Client) ImportEvent(ctx context.Context, e Event) (Event, error) {
	body, err := toAPIEvent(e, c.loc)
	if err != nil {
		return Event{}, err
	}
	created, err := c.svc.Events.Import(c.calendarID, body).Context(ctx).Do()
	if err != nil {
		return Event{}, fmt.Errorf("failed to import event %s: %w", e.UID, classify(err))
	}
	return toEvent(created, c.loc), nil
}

// UpdateEvent replaces the remote event e.RemoteID with e.
func (c *Client) UpdateEvent(ctx context.Context, e Event) (Event, error) {
	if e.RemoteID == "" {
		return Event{}, fmt.Errorf("update event %s: remote id is empty", e.UID)
	}
	body, err := toAPIEvent(e, c.loc)
	if err != nil {
		return Event{}, err
	}
	updated, err := c.svc.Events.Update(c.calendarID, e.RemoteID, body).
		SendUpdates("none").
		Context(ctx).
		Do()
	if err != nil {
		return Event{}, fmt.Errorf("failed to update event %s: %w", e.UID, classify(err))
	}
	return toEvent(updated, c.loc), nil
}

// DeleteEvent deletes a calendar event without notifying attendees.
func (c *Client) DeleteEvent(ctx context.Context, remoteID string) error {
	err := c.svc.Events.Delete(c.calendarID, remoteID).
		SendUpdates("none").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to delete event %s: %w", remoteID, classify(err))
	}
	return nil
}

// FindByUID returns the event carrying iCalUID uid.
func (c *Client) FindByUID(ctx context.Context, uid string) (Event, error) {
	list, err := c.svc.Events.List(c.calendarID).
		ICalUID(uid).
		ShowDeleted(false).
		Context(ctx).
		Do()
	if err != nil {
		return Event{}, fmt.Errorf("failed to find event %s: %w", uid, classify(err))
	}
	for _, ev := range list.Items {
		if NormalizeUID(ev.ICalUID) == NormalizeUID(uid) {
			return toEvent(ev, c.loc), nil
		}
	}
	return Event{}, fmt.Errorf("%s: %w", uid, ErrEventNotFound)
}

// classify maps transport errors onto the package sentinels while keeping
// the original error in the chain.
func classify(err error) error {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && strings.Contains(uerr.Err.Error(), "oauth2:") {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusConflict,
			strings.Contains(strings.ToLower(gerr.Message), "already exists"):
			return fmt.Errorf("%w: %w", ErrDuplicateIdentifier, err)
		case gerr.Code == http.StatusUnauthorized:
			return fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
	}
	return err
}
