package icloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"ewscal/internal/ews"
	"ewscal/internal/metrics"
)

const (
	iCloudCalDAVEndpoint = "https://caldav.icloud.com/"

	backendName = "icloud"
)

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// precondition is a conditional request header carried on the request context.
type precondition struct {
	header string
	value  string
}

type preconditionKey struct{}

// withIfMatch makes writes under ctx conditional on the object still having etag.
func withIfMatch(ctx context.Context, etag string) context.Context {
	if etag == "" {
		return ctx
	}
	if !strings.HasPrefix(etag, `"`) && !strings.HasPrefix(etag, "W/") {
		etag = `"` + etag + `"`
	}
	return context.WithValue(ctx, preconditionKey{}, precondition{header: "If-Match", value: etag})
}

// withIfNoneMatch makes writes under ctx fail when the object already exists.
func withIfNoneMatch(ctx context.Context) context.Context {
	return context.WithValue(ctx, preconditionKey{}, precondition{header: "If-None-Match", value: "*"})
}

// RoundTrip adds required headers and authentication to each request. A
// conditional request the server rejects with 412 fails with ews.ErrConflict.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.Username != "" {
		req.SetBasicAuth(t.Username, t.Password)
	}
	req.Header.Set("User-Agent", "ewscal/1.0")

	pre, conditional := req.Context().Value(preconditionKey{}).(precondition)
	if conditional {
		req.Header.Set(pre.header, pre.value)
	}

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if conditional && resp.StatusCode == http.StatusPreconditionFailed {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s %s", ews.ErrConflict, req.Method, req.URL.Path)
	}
	return resp, nil
}

// CalDAVClient serves calendar items stored in one iCloud calendar. The
// object's ETag is used as the item's change key.
type CalDAVClient struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	metrics      *metrics.Metrics
	endpoint     string
	calendarURL  string
	location     *time.Location
}

var (
	_ ews.Service = (*CalDAVClient)(nil)
	_ ews.Fetcher = (*CalDAVClient)(nil)
)

// NewClient creates and initializes a new CalDAVClient for iCloud.
func NewClient(logger *slog.Logger, username, password, calendarName string) (*CalDAVClient, error) {
	transport := &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	c, err := newClient(logger, &http.Client{Transport: transport}, iCloudCalDAVEndpoint)
	if err != nil {
		return nil, err
	}

	logger.Info("Finding iCloud calendar", "calendarName", calendarName)
	calendarURL, err := c.findCalendar(context.Background(), calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarURL = calendarURL
	logger.Info("Successfully found iCloud calendar", "url", calendarURL)

	return c, nil
}

func newClient(logger *slog.Logger, httpClient *http.Client, endpoint string) (*CalDAVClient, error) {
	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}

	return &CalDAVClient{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
		endpoint:     endpoint,
		location:     time.UTC,
	}, nil
}

// WithMetrics attaches m to the client.
func (c *CalDAVClient) WithMetrics(m *metrics.Metrics) *CalDAVClient {
	c.metrics = m
	return c
}

// WithLocation sets the zone used for floating datetimes.
func (c *CalDAVClient) WithLocation(loc *time.Location) *CalDAVClient {
	if loc != nil {
		c.location = loc
	}
	return c
}

// FetchItem reads the calendar object for uid.
func (c *CalDAVClient) FetchItem(ctx context.Context, uid string) (ews.Snapshot, error) {
	c.logger.Debug("Fetching event from iCloud", "uid", uid)

	obj, err := c.caldavClient.GetCalendarObject(ctx, c.objectPath(uid))
	if err != nil {
		return ews.Snapshot{}, fmt.Errorf("failed to get calendar object: %w", err)
	}
	snap, err := SnapshotFromICal(obj.Data, c.location)
	if err != nil {
		return ews.Snapshot{}, fmt.Errorf("failed to decode calendar object %s: %w", obj.Path, err)
	}
	snap.ID = uid
	snap.ChangeKey = obj.ETag
	c.metrics.IncLoaded(backendName, 1)
	return snap, nil
}

// Event returns an unloaded handle for uid.
func (c *CalDAVClient) Event(uid string) *ews.CalendarItem {
	return ews.CalendarItemRef(c, uid)
}

// GetEvent loads the event stored under uid.
func (c *CalDAVClient) GetEvent(ctx context.Context, uid string) (*ews.CalendarItem, error) {
	return ews.LoadCalendarItem(ctx, c, uid)
}

// NewEvent builds an unsaved event. A UID is generated when props has none.
func (c *CalDAVClient) NewEvent(props map[string]any) (*ews.CalendarItem, error) {
	item, err := ews.NewCalendarItem(props, ews.WithFetcher(c))
	if err != nil {
		return nil, err
	}
	if item.String("uid") == "" {
		err := item.WithTrackingSuspended(func() error {
			return item.Set("uid", GenerateUID())
		})
		if err != nil {
			return nil, err
		}
	}
	return item, nil
}

// Save writes the item when it is new or has dirty fields. CalDAV replaces
// the whole resource, so every set field is sent. Updates are conditional on
// the item's ETag and creates on the object not existing yet; either failing
// returns ews.ErrConflict with the item left dirty. On success the item takes
// the new ETag as its change key and its dirty set is cleared.
func (c *CalDAVClient) Save(ctx context.Context, item *ews.CalendarItem) error {
	uid := item.ID()
	op := "update"
	switch {
	case uid == "":
		op = "create"
		uid = item.String("uid")
		if uid == "" {
			uid = GenerateUID()
		}
		ctx = withIfNoneMatch(ctx)
	case !item.HasChanges():
		c.logger.Debug("Event has no changes, skipping save.", "uid", uid)
		return nil
	default:
		ctx = withIfMatch(ctx, item.ChangeKey())
	}

	dirty := item.DirtyFields()
	c.logger.Debug("Saving event to iCloud", "subject", item.String("subject"), "uid", uid, "op", op, "dirty", dirty)

	obj, err := c.caldavClient.PutCalendarObject(ctx, c.objectPath(uid), NewCalendar(ToICal(item, uid)))
	if err != nil {
		return fmt.Errorf("failed to put event on CalDAV server: %w", err)
	}

	item.SetIdentity(uid, obj.ETag)
	item.ResetDirty()
	c.metrics.IncSaved(backendName, op, len(dirty))
	c.logger.Info("Successfully saved event to iCloud", "subject", item.String("subject"), "op", op)
	return nil
}

// Delete removes the item's calendar object, provided it still has the
// item's ETag.
func (c *CalDAVClient) Delete(ctx context.Context, item *ews.CalendarItem) error {
	if item.ID() == "" {
		return ews.ErrNotPersisted
	}
	ctx = withIfMatch(ctx, item.ChangeKey())
	if err := c.webdavClient.RemoveAll(ctx, c.objectPath(item.ID())); err != nil {
		return fmt.Errorf("failed to delete event %s: %w", item.ID(), err)
	}
	item.SetIdentity("", "")
	return nil
}

// objectPath is the event path relative to the endpoint, as the webdav client expects.
func (c *CalDAVClient) objectPath(uid string) string {
	return path.Join(strings.TrimPrefix(c.calendarURL, c.endpoint), fmt.Sprintf("%s.ics", uid))
}

// findCalendar discovers the user's calendars and returns the URL for the one with the matching name.
func (c *CalDAVClient) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			// Return the full URL for the calendar
			return fmt.Sprintf("%s%s", strings.TrimSuffix(c.endpoint, "/"), cal.Path), nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}

// GenerateUID creates a new unique identifier for an event.
func GenerateUID() string {
	return uuid.New().String()
}
