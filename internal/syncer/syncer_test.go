package syncer

//go:generate mockgen -source=syncer.go -destination=mocks/mocks.go -package=mocks Source,Target

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ewscal/internal/ews"
	"ewscal/internal/icloud"
	"ewscal/internal/metrics"
	"ewscal/internal/syncer/mocks"
)

type SyncerSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	source    *mocks.MockSource
	target    *mocks.MockTarget
	metrics   *metrics.Metrics
	stateFile string
	start     time.Time
}

func TestSyncerSuite(t *testing.T) {
	suite.Run(t, new(SyncerSuite))
}

func (s *SyncerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.source = mocks.NewMockSource(s.ctrl)
	s.target = mocks.NewMockTarget(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.stateFile = filepath.Join(s.T().TempDir(), "state.json")
	s.start = time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	s.source.EXPECT().CalendarID().Return("work@example.com").AnyTimes()
}

func (s *SyncerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *SyncerSuite) newSyncer(cfg Config) *Syncer {
	cfg.StateFile = s.stateFile
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sy, err := NewSyncer(logger, []Source{s.source}, s.target, cfg, s.metrics)
	s.Require().NoError(err)
	return sy
}

func (s *SyncerSuite) sourceEvent(id, subject string) *ews.CalendarItem {
	item, err := ews.CalendarItemFromSnapshot(ews.Snapshot{
		ID:        id,
		ChangeKey: `"1"`,
		Fields: map[string]any{
			"uid":                     id + "@google.com",
			"subject":                 subject,
			"start":                   s.start,
			"end":                     s.start.Add(time.Hour),
			"is_all_day_event":        false,
			"is_cancelled":            false,
			"legacy_free_busy_status": "Busy",
			"reminder_is_set":         false,
		},
	})
	s.Require().NoError(err)
	return item
}

// storedEvent mimics the target's copy of a synced event.
func (s *SyncerSuite) storedEvent(id, subject string) *ews.CalendarItem {
	item, err := ews.CalendarItemFromSnapshot(ews.Snapshot{
		ID:        id,
		ChangeKey: "etag-1",
		Fields: map[string]any{
			"uid":                     id,
			"subject":                 subject,
			"start":                   s.start.In(time.FixedZone("CET", 3600)),
			"end":                     s.start.Add(time.Hour),
			"is_all_day_event":        false,
			"legacy_free_busy_status": "Busy",
			"reminder_is_set":         false,
		},
	})
	s.Require().NoError(err)
	return item
}

func (s *SyncerSuite) writeState(state SyncState) {
	sy := &Syncer{cfg: Config{StateFile: s.stateFile}, state: state}
	s.Require().NoError(sy.saveState())
}

func saveAs(id string) func(context.Context, *ews.CalendarItem) error {
	return func(_ context.Context, item *ews.CalendarItem) error {
		item.SetIdentity(id, "etag-2")
		item.ResetDirty()
		return nil
	}
}

func (s *SyncerSuite) TestNewSyncer() {
	s.Run("nil target returns error", func() {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		_, err := NewSyncer(logger, nil, nil, Config{}, nil)
		s.Error(err)
	})

	s.Run("missing state file starts fresh", func() {
		sy := s.newSyncer(Config{})
		s.Empty(sy.State())
		s.Equal(defaultDays, sy.cfg.Days)
		s.Equal(time.UTC, sy.cfg.Location)
	})

	s.Run("corrupt state file is an error", func() {
		s.Require().NoError(os.WriteFile(s.stateFile, []byte("{"), 0644))
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		_, err := NewSyncer(logger, nil, s.target, Config{StateFile: s.stateFile}, nil)
		s.Error(err)
		s.Require().NoError(os.Remove(s.stateFile))
	})
}

func (s *SyncerSuite) TestCreatesNewEvents() {
	ctx := context.Background()
	event := s.sourceEvent("g1", "Planning")
	s.source.EXPECT().UpcomingEvents(gomock.Any(), 3).Return([]*ews.CalendarItem{event}, nil)

	var created *ews.CalendarItem
	s.target.EXPECT().NewEvent(gomock.Any()).DoAndReturn(func(props map[string]any) (*ews.CalendarItem, error) {
		s.Equal("g1@google.com", props["uid"])
		s.Equal("Planning", props["subject"])
		s.Equal(time.UTC, props["start"].(time.Time).Location())
		item, err := ews.NewCalendarItem(props)
		created = item
		return item, err
	})
	s.target.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(saveAs("g1@google.com"))

	sy := s.newSyncer(Config{Days: 3})
	s.Require().NoError(sy.Sync(ctx))

	s.Empty(created.DirtyFields())
	s.Equal(SyncState{"g1": "g1@google.com"}, sy.State())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SyncOutcomes.WithLabelValues(OutcomeCreated)))

	reloaded, err := loadState(s.stateFile)
	s.Require().NoError(err)
	s.Equal(SyncState{"g1": "g1@google.com"}, reloaded)
}

func (s *SyncerSuite) TestSkipsUnchangedEvents() {
	ctx := context.Background()
	s.writeState(SyncState{"g1": "t1"})
	s.source.EXPECT().UpcomingEvents(gomock.Any(), defaultDays).
		Return([]*ews.CalendarItem{s.sourceEvent("g1", "Planning")}, nil)
	s.target.EXPECT().GetEvent(gomock.Any(), "t1").Return(s.storedEvent("t1", "Planning"), nil)
	s.target.EXPECT().Save(gomock.Any(), gomock.Any()).Times(0)

	sy := s.newSyncer(Config{})
	s.Require().NoError(sy.Sync(ctx))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SyncOutcomes.WithLabelValues(OutcomeUnchanged)))
}

func (s *SyncerSuite) TestAllDayEventsStableOutsideUTC() {
	ctx := context.Background()
	loc := time.FixedZone("EST", -5*3600)
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	event := s.sourceEvent("g1", "Holiday")
	s.Require().NoError(event.Hydrate(map[string]any{
		"start":            day,
		"end":              day.AddDate(0, 0, 1),
		"is_all_day_event": true,
	}))

	// The stored copy goes through the same iCalendar encoding as a real save.
	sy := s.newSyncer(Config{Location: loc})
	created, err := ews.NewCalendarItem(sy.targetValues(event))
	s.Require().NoError(err)
	var buf bytes.Buffer
	s.Require().NoError(ical.NewEncoder(&buf).Encode(icloud.NewCalendar(icloud.ToICal(created, "t1"))))
	cal, err := ical.NewDecoder(&buf).Decode()
	s.Require().NoError(err)
	snap, err := icloud.SnapshotFromICal(cal, loc)
	s.Require().NoError(err)
	snap.ChangeKey = "etag-1"
	stored, err := ews.CalendarItemFromSnapshot(snap)
	s.Require().NoError(err)

	s.writeState(SyncState{"g1": "t1"})
	sy = s.newSyncer(Config{Location: loc})
	s.source.EXPECT().UpcomingEvents(gomock.Any(), gomock.Any()).Return([]*ews.CalendarItem{event}, nil)
	s.target.EXPECT().GetEvent(gomock.Any(), "t1").Return(stored, nil)
	s.target.EXPECT().Save(gomock.Any(), gomock.Any()).Times(0)

	s.Require().NoError(sy.Sync(ctx))
	s.Empty(stored.DirtyFields())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SyncOutcomes.WithLabelValues(OutcomeUnchanged)))
}

func (s *SyncerSuite) TestUpdatesOnlyDifferingFields() {
	ctx := context.Background()
	s.writeState(SyncState{"g1": "t1"})
	event := s.sourceEvent("g1", "Replanning")
	s.Require().NoError(event.Set("location", "Room 4"))
	s.source.EXPECT().UpcomingEvents(gomock.Any(), gomock.Any()).Return([]*ews.CalendarItem{event}, nil)

	stored := s.storedEvent("t1", "Planning")
	s.target.EXPECT().GetEvent(gomock.Any(), "t1").Return(stored, nil)
	s.target.EXPECT().Save(gomock.Any(), stored).DoAndReturn(func(_ context.Context, item *ews.CalendarItem) error {
		s.Equal([]string{"location", "subject"}, item.DirtyFields())
		return saveAs("t1")(ctx, item)
	})

	sy := s.newSyncer(Config{})
	s.Require().NoError(sy.Sync(ctx))
	s.Equal("Replanning", stored.String("subject"))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SyncOutcomes.WithLabelValues(OutcomeUpdated)))
}

func (s *SyncerSuite) TestDryRunWritesNothing() {
	ctx := context.Background()
	s.writeState(SyncState{"g1": "t1"})
	s.source.EXPECT().UpcomingEvents(gomock.Any(), gomock.Any()).Return([]*ews.CalendarItem{
		s.sourceEvent("g1", "Replanning"),
		s.sourceEvent("g2", "Standup"),
	}, nil)

	stored := s.storedEvent("t1", "Planning")
	s.target.EXPECT().GetEvent(gomock.Any(), "t1").Return(stored, nil)
	s.target.EXPECT().NewEvent(gomock.Any()).Times(0)
	s.target.EXPECT().Save(gomock.Any(), gomock.Any()).Times(0)

	sy := s.newSyncer(Config{DryRun: true})
	s.Require().NoError(sy.Sync(ctx))

	s.Equal([]string{"subject"}, stored.DirtyFields())
	s.Equal(SyncState{"g1": "t1"}, sy.State())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SyncOutcomes.WithLabelValues(OutcomeCreated)))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SyncOutcomes.WithLabelValues(OutcomeUpdated)))
}

func (s *SyncerSuite) TestFailuresDoNotAbortTheCycle() {
	ctx := context.Background()
	failing := mocks.NewMockSource(s.ctrl)
	failing.EXPECT().CalendarID().Return("broken").AnyTimes()
	failing.EXPECT().UpcomingEvents(gomock.Any(), gomock.Any()).Return(nil, errors.New("boom"))
	s.source.EXPECT().UpcomingEvents(gomock.Any(), gomock.Any()).Return([]*ews.CalendarItem{
		s.sourceEvent("g1", "Planning"),
		s.sourceEvent("g2", "Standup"),
	}, nil)

	gomock.InOrder(
		s.target.EXPECT().NewEvent(gomock.Any()).DoAndReturn(func(props map[string]any) (*ews.CalendarItem, error) {
			return ews.NewCalendarItem(props)
		}),
		s.target.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("put failed")),
		s.target.EXPECT().NewEvent(gomock.Any()).DoAndReturn(func(props map[string]any) (*ews.CalendarItem, error) {
			return ews.NewCalendarItem(props)
		}),
		s.target.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(saveAs("g2@google.com")),
	)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sy, err := NewSyncer(logger, []Source{failing, s.source}, s.target, Config{StateFile: s.stateFile}, s.metrics)
	s.Require().NoError(err)
	s.Require().NoError(sy.Sync(ctx))

	s.Equal(SyncState{"g2": "g2@google.com"}, sy.State())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SyncOutcomes.WithLabelValues(OutcomeFailed)))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SyncOutcomes.WithLabelValues(OutcomeCreated)))
}

func (s *SyncerSuite) TestCancelledContextAbortsFetch() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.source.EXPECT().UpcomingEvents(gomock.Any(), gomock.Any()).Return(nil, context.Canceled).MaxTimes(1)

	sy := s.newSyncer(Config{})
	s.ErrorIs(sy.Sync(ctx), context.Canceled)
}

func TestSameValue(t *testing.T) {
	at := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		name       string
		have, want any
		same       bool
	}{
		{"equal strings", "a", "a", true},
		{"different strings", "a", "b", false},
		{"same instant in other zone", at, at.In(time.FixedZone("CET", 3600)), true},
		{"different instant", at, at.Add(time.Minute), false},
		{"body content only", ews.Body{Type: ews.BodyText, Content: "x"}, ews.Body{Type: ews.BodyHTML, Content: "x"}, true},
		{"unset equals zero", unsetValue(), false, true},
		{"unset differs from value", unsetValue(), "x", false},
		{"attendee lists", []ews.Attendee{{Email: "a@x"}}, []ews.Attendee{{Email: "a@x"}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sameValue(tc.have, tc.want); got != tc.same {
				t.Errorf("sameValue(%v, %v) = %v, want %v", tc.have, tc.want, got, tc.same)
			}
		})
	}
}

func unsetValue() any {
	item, _ := ews.NewCalendarItem(nil)
	v, _ := item.Get("subject")
	return v
}
