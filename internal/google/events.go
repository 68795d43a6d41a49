package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"ewscal/internal/ews"
)

// EventService serves the events of one Google calendar as CalendarItems.
// Event etags are used as change keys.
type EventService struct {
	client     *CalendarClient
	calendarID string
}

var (
	_ ews.Service = (*EventService)(nil)
	_ ews.Fetcher = (*EventService)(nil)
)

// CalendarID returns the calendar this service reads and writes.
func (s *EventService) CalendarID() string {
	return s.calendarID
}

// FetchItem reads one event.
func (s *EventService) FetchItem(ctx context.Context, id string) (ews.Snapshot, error) {
	ev, err := s.client.service.Events.Get(s.calendarID, id).Context(ctx).Do()
	if err != nil {
		return ews.Snapshot{}, translateError(err)
	}
	s.client.metrics.IncLoaded(backendName, 1)
	return snapshotFromEvent(ev), nil
}

// Event returns an unloaded handle for id.
func (s *EventService) Event(id string) *ews.CalendarItem {
	return ews.CalendarItemRef(s, id)
}

// GetEvent loads event id.
func (s *EventService) GetEvent(ctx context.Context, id string) (*ews.CalendarItem, error) {
	return ews.LoadCalendarItem(ctx, s, id)
}

// NewEvent builds an unsaved event from props.
func (s *EventService) NewEvent(props map[string]any) (*ews.CalendarItem, error) {
	return ews.NewCalendarItem(props, ews.WithFetcher(s))
}

// UpcomingEvents fetches the events starting within the next days.
func (s *EventService) UpcomingEvents(ctx context.Context, days int) ([]*ews.CalendarItem, error) {
	s.client.logger.Debug("Fetching upcoming events", "calendarID", s.calendarID, "days", days)
	now := time.Now().UTC()
	tmax := now.Add(time.Duration(days) * 24 * time.Hour).Format(time.RFC3339)
	tmin := now.Format(time.RFC3339)

	events, err := s.client.service.Events.List(s.calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(tmin).
		TimeMax(tmax).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events: %w", err)
	}

	var items []*ews.CalendarItem
	for _, ev := range events.Items {
		// Skip events without a start time
		if ev.Start == nil {
			continue
		}
		item, err := ews.CalendarItemFromSnapshot(snapshotFromEvent(ev), ews.WithFetcher(s))
		if err != nil {
			return nil, fmt.Errorf("failed to hydrate event %s: %w", ev.Id, err)
		}
		items = append(items, item)
	}

	s.client.metrics.IncLoaded(backendName, len(items))
	s.client.logger.Info("Successfully fetched events from Google Calendar", "count", len(items), "calendarID", s.calendarID)
	return items, nil
}

// Save inserts a new event, or patches the dirty fields of an existing one
// guarded by its etag. Dirty fields with no Google equivalent are logged and
// dropped. On success the item takes the new etag and its dirty set is cleared.
func (s *EventService) Save(ctx context.Context, item *ews.CalendarItem) error {
	var (
		saved *calendar.Event
		err   error
		op    = "update"
		dirty = item.DirtyFields()
	)

	if item.ID() == "" {
		op = "create"
		names := make([]string, 0)
		for name := range item.Values() {
			names = append(names, name)
		}
		ev, skipped := eventFromItem(item, names)
		ev.ICalUID = item.String("uid")
		s.logSkipped(skipped)
		saved, err = s.client.service.Events.Insert(s.calendarID, ev).Context(ctx).Do()
	} else {
		if len(dirty) == 0 {
			s.client.logger.Debug("Event has no changes, skipping save.", "id", item.ID())
			return nil
		}
		ev, skipped := eventFromItem(item, dirty)
		s.logSkipped(skipped)
		call := s.client.service.Events.Patch(s.calendarID, item.ID(), ev).Context(ctx)
		if key := item.ChangeKey(); key != "" {
			call.Header().Set("If-Match", key)
		}
		saved, err = call.Do()
	}
	if err != nil {
		return translateError(err)
	}

	item.SetIdentity(saved.Id, saved.Etag)
	item.ResetDirty()
	s.client.metrics.IncSaved(backendName, op, len(dirty))
	s.client.logger.Info("Successfully saved event to Google Calendar", "id", saved.Id, "op", op, "dirty", dirty)
	return nil
}

func (s *EventService) logSkipped(skipped []string) {
	if len(skipped) > 0 {
		s.client.logger.Warn("Fields have no Google Calendar equivalent, not sent.", "calendarID", s.calendarID, "fields", skipped)
	}
}

func translateError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound, http.StatusGone:
			return fmt.Errorf("%w: %v", ews.ErrNotFound, err)
		case http.StatusPreconditionFailed:
			return fmt.Errorf("%w: %v", ews.ErrConflict, err)
		}
	}
	return fmt.Errorf("google calendar request failed: %w", err)
}
