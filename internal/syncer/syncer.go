package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"time"

	"golang.org/x/sync/errgroup"

	"ewscal/internal/ews"
	"ewscal/internal/metrics"
	"ewscal/internal/models"
)

const (
	defaultStateFile = "sync-state.json"
	defaultDays      = 7

	// maxConcurrentFetches bounds the calendars listed at the same time.
	maxConcurrentFetches = 4
)

// Sync outcomes, also used as metric labels.
const (
	OutcomeCreated   = "created"
	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
	OutcomeFailed    = "failed"
)

// syncedFields are copied from source to target on every cycle.
var syncedFields = []string{
	"subject",
	"body",
	"location",
	"start",
	"end",
	"is_all_day_event",
	"is_cancelled",
	"sensitivity",
	"legacy_free_busy_status",
	"required_attendees",
	"optional_attendees",
	"reminder_is_set",
	"reminder_minutes_before_start",
}

// Source lists the upcoming events of one calendar.
type Source interface {
	CalendarID() string
	UpcomingEvents(ctx context.Context, days int) ([]*ews.CalendarItem, error)
}

// Target stores synced events.
type Target interface {
	GetEvent(ctx context.Context, id string) (*ews.CalendarItem, error)
	NewEvent(props map[string]any) (*ews.CalendarItem, error)
	Save(ctx context.Context, item *ews.CalendarItem) error
}

// SyncState keeps track of which events have been synced.
// The key is the source event ID, and the value is the ID of the event in the target.
type SyncState map[string]string

// Config holds the tunables of a Syncer.
type Config struct {
	StateFile string
	Days      int
	DryRun    bool
	// Location is the zone event times are converted to before writing.
	Location *time.Location
}

// Syncer orchestrates the synchronization from Google Calendar to iCloud.
type Syncer struct {
	logger  *slog.Logger
	sources []Source
	target  Target
	metrics *metrics.Metrics
	cfg     Config
	state   SyncState
}

// NewSyncer creates a new Syncer and loads its state file.
func NewSyncer(logger *slog.Logger, sources []Source, target Target, cfg Config, m *metrics.Metrics) (*Syncer, error) {
	if target == nil {
		return nil, fmt.Errorf("sync target is required")
	}
	if cfg.StateFile == "" {
		cfg.StateFile = defaultStateFile
	}
	if cfg.Days <= 0 {
		cfg.Days = defaultDays
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	state, err := loadState(cfg.StateFile)
	if err != nil {
		// If the file doesn't exist, we can start with an empty state.
		if os.IsNotExist(err) {
			logger.Info("No sync state file found, starting fresh.", "file", cfg.StateFile)
			state = make(SyncState)
		} else {
			return nil, fmt.Errorf("failed to load sync state: %w", err)
		}
	}

	return &Syncer{
		logger:  logger,
		sources: sources,
		target:  target,
		metrics: m,
		cfg:     cfg,
		state:   state,
	}, nil
}

// State returns the current mapping of source to target IDs.
func (s *Syncer) State() SyncState {
	return s.state
}

// Sync performs a full synchronization cycle.
func (s *Syncer) Sync(ctx context.Context) error {
	s.logger.Info("Starting sync cycle.")

	events, err := s.fetchAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch source events: %w", err)
	}

	s.logger.Info("Fetched all source events.", "count", len(events))

	for _, event := range events {
		outcome, err := s.syncEvent(ctx, event)
		if err != nil {
			s.logger.Error("Failed to sync event", "subject", event.String("subject"), "id", event.ID(), "error", err)
			outcome = OutcomeFailed
			// Continue with the next event even if one fails.
		}
		s.metrics.IncSync(outcome)
	}

	if !s.cfg.DryRun {
		if err := s.saveState(); err != nil {
			s.logger.Error("Failed to save sync state", "error", err)
		}
	}

	s.logger.Info("Sync cycle finished.")
	return nil
}

// fetchAll lists events from every source concurrently. A failing calendar is
// logged and skipped; only context cancellation aborts the fetch.
func (s *Syncer) fetchAll(ctx context.Context) ([]*ews.CalendarItem, error) {
	results := make([][]*ews.CalendarItem, len(s.sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, src := range s.sources {
		g.Go(func() error {
			events, err := src.UpcomingEvents(gctx, s.cfg.Days)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.logger.Error("Could not fetch events for a calendar", "calendarID", src.CalendarID(), "error", err)
				return nil
			}
			results[i] = events
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []*ews.CalendarItem
	for _, events := range results {
		all = append(all, events...)
	}
	return all, nil
}

// syncEvent creates the target event on first sight, and afterwards copies
// the source values that differ from the stored copy.
func (s *Syncer) syncEvent(ctx context.Context, event *ews.CalendarItem) (string, error) {
	props := s.targetValues(event)

	targetID, exists := s.state[event.ID()]
	if !exists {
		return s.createEvent(ctx, event, props)
	}

	item, err := s.target.GetEvent(ctx, targetID)
	if err != nil {
		return "", fmt.Errorf("failed to load synced event %s: %w", targetID, err)
	}
	if err := applyChanges(item, props); err != nil {
		return "", err
	}
	if !item.HasChanges() {
		s.logger.Debug("Event unchanged, skipping.", "subject", event.String("subject"), "id", event.ID())
		return OutcomeUnchanged, nil
	}

	if s.cfg.DryRun {
		s.logger.Info("[DRY RUN] Would update event", "subject", event.String("subject"), "fields", item.DirtyFields())
		return OutcomeUpdated, nil
	}

	s.logger.Info("Event changed, updating target.", "subject", event.String("subject"), "fields", item.DirtyFields())
	if err := s.target.Save(ctx, item); err != nil {
		return "", fmt.Errorf("failed to update event: %w", err)
	}
	return OutcomeUpdated, nil
}

func (s *Syncer) createEvent(ctx context.Context, event *ews.CalendarItem, props map[string]any) (string, error) {
	s.logger.Info("New event found, syncing.", "subject", event.String("subject"))

	// Reuse the source iCal UID so the event keeps its identity across clients.
	if uid := event.String("uid"); uid != "" {
		props["uid"] = uid
	} else {
		s.logger.Warn("Source event has no UID, the target will generate one.", "subject", event.String("subject"))
	}
	if v, err := event.Get("organizer"); err == nil && v != models.Unset {
		props["organizer"] = v
	}

	if s.cfg.DryRun {
		s.logger.Info("[DRY RUN] Would create new event", "subject", event.String("subject"), "start", props["start"])
		return OutcomeCreated, nil
	}

	item, err := s.target.NewEvent(props)
	if err != nil {
		return "", fmt.Errorf("failed to build event: %w", err)
	}
	if err := s.target.Save(ctx, item); err != nil {
		return "", fmt.Errorf("failed to create event: %w", err)
	}

	// If successful, update the state.
	s.state[event.ID()] = item.ID()
	return OutcomeCreated, nil
}

// targetValues returns the synced fields set on event, with times moved to
// the configured zone.
func (s *Syncer) targetValues(event *ews.CalendarItem) map[string]any {
	props := make(map[string]any, len(syncedFields))
	for _, name := range syncedFields {
		v, err := event.Get(name)
		if err != nil || v == models.Unset {
			continue
		}
		if t, ok := v.(time.Time); ok && !event.Bool("is_all_day_event") {
			v = t.In(s.cfg.Location)
		}
		props[name] = v
	}
	return props
}

// applyChanges writes only the values that differ from item. Tracking is
// write-based, so unchanged values must not be set again.
func applyChanges(item *ews.CalendarItem, props map[string]any) error {
	for _, name := range syncedFields {
		have, err := item.Get(name)
		if err != nil {
			return err
		}
		want, ok := props[name]
		switch {
		case !ok && have != models.Unset:
			if err := item.Clear(name); err != nil {
				return err
			}
		case ok && !sameValue(have, want):
			if err := item.Set(name, want); err != nil {
				return err
			}
		}
	}
	return nil
}

// sameValue compares a stored value with a source value. Times compare as
// instants, bodies by content, and an unset value equals a zero one.
func sameValue(have, want any) bool {
	if have == models.Unset {
		return want == nil || reflect.ValueOf(want).IsZero()
	}
	switch w := want.(type) {
	case time.Time:
		h, ok := have.(time.Time)
		return ok && h.Equal(w)
	case ews.Body:
		h, ok := have.(ews.Body)
		return ok && h.Content == w.Content
	}
	return reflect.DeepEqual(have, want)
}

// loadState loads the sync state from the JSON file.
func loadState(path string) (SyncState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state SyncState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state == nil {
		state = make(SyncState)
	}
	return state, nil
}

// saveState saves the current sync state to the JSON file.
func (s *Syncer) saveState() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}
	return os.WriteFile(s.cfg.StateFile, data, 0644)
}
