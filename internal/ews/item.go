package ews

import (
	"context"
	"errors"
	"fmt"

	"ewscal/internal/models"
)

var (
	// ErrNotImplemented is the panic value of UnimplementedService methods.
	ErrNotImplemented = errors.New("ews: not implemented")
	// ErrNoFetcher is returned when an item is loaded without a backing service.
	ErrNoFetcher = errors.New("ews: item has no service to load from")
	// ErrNotFound is returned by fetchers for identifiers the server does not know.
	ErrNotFound = errors.New("ews: item not found")
)

// Snapshot is the state of an item as reported by a service.
type Snapshot struct {
	ID        string
	ChangeKey string
	Fields    map[string]any
}

// Fetcher retrieves an item's current state from a transport.
type Fetcher interface {
	FetchItem(ctx context.Context, id string) (Snapshot, error)
}

// Hydrator is implemented by concrete item types that can be filled from
// server data without recording the values as changes.
type Hydrator interface {
	InitializeFromService(ctx context.Context, id string) error
	InitializeFromPayload(payload []byte) error
}

// Service is the capability set of a calendar that hands out items.
type Service interface {
	// Event returns an unloaded handle for id.
	Event(id string) *CalendarItem
	// GetEvent fetches id from the server.
	GetEvent(ctx context.Context, id string) (*CalendarItem, error)
	// NewEvent builds an unsaved item from props.
	NewEvent(props map[string]any) (*CalendarItem, error)
}

// UnimplementedService can be embedded by partial Service implementations.
// Every method panics: calling one is a programming error.
type UnimplementedService struct{}

func (UnimplementedService) Event(string) *CalendarItem {
	panic(fmt.Errorf("Event: %w", ErrNotImplemented))
}

func (UnimplementedService) GetEvent(context.Context, string) (*CalendarItem, error) {
	panic(fmt.Errorf("GetEvent: %w", ErrNotImplemented))
}

func (UnimplementedService) NewEvent(map[string]any) (*CalendarItem, error) {
	panic(fmt.Errorf("NewEvent: %w", ErrNotImplemented))
}

type options struct {
	fetcher Fetcher
	record  []models.Option
}

// Option configures an item.
type Option func(*options)

// WithFetcher attaches the service used by InitializeFromService and Load.
func WithFetcher(f Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithResourceBuilder sets the transform applied to every field write.
func WithResourceBuilder(b models.ResourceBuilder) Option {
	return func(o *options) { o.record = append(o.record, models.WithResourceBuilder(b)) }
}

// item is the part shared by Message and CalendarItem.
type item struct {
	*models.Record
	fetcher Fetcher
}

func newItem(schema *models.Schema, opts []Option) item {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return item{Record: models.NewRecord(schema, o.record...), fetcher: o.fetcher}
}

// InitializeFromService loads id through the item's fetcher.
func (it *item) InitializeFromService(ctx context.Context, id string) error {
	if it.fetcher == nil {
		return ErrNoFetcher
	}
	snap, err := it.fetcher.FetchItem(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch item %s: %w", id, err)
	}
	return it.Apply(snap)
}

// InitializeFromPayload hydrates the item from an encoded payload (see DecodeSnapshot).
func (it *item) InitializeFromPayload(payload []byte) error {
	snap, err := DecodeSnapshot(it.Schema(), payload)
	if err != nil {
		return err
	}
	return it.Apply(snap)
}

// Load re-reads the item from its service using its current identifier.
func (it *item) Load(ctx context.Context) error {
	if it.ID() == "" {
		return ErrNotPersisted
	}
	return it.InitializeFromService(ctx, it.ID())
}

// Apply hydrates the item from a snapshot. Fields are not marked dirty.
func (it *item) Apply(snap Snapshot) error {
	if err := it.Hydrate(snap.Fields); err != nil {
		return err
	}
	it.SetIdentity(snap.ID, snap.ChangeKey)
	return nil
}

// Message is an EWS Message.
type Message struct {
	item
}

var _ Hydrator = (*Message)(nil)

// NewMessage builds an unsaved message from props.
func NewMessage(props map[string]any, opts ...Option) (*Message, error) {
	m := &Message{item: newItem(MessageSchema, opts)}
	if err := m.Hydrate(props); err != nil {
		return nil, err
	}
	return m, nil
}

// MessageFromPayload decodes a message returned by the server.
func MessageFromPayload(payload []byte, opts ...Option) (*Message, error) {
	m := &Message{item: newItem(MessageSchema, opts)}
	if err := m.InitializeFromPayload(payload); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadMessage fetches message id through f.
func LoadMessage(ctx context.Context, f Fetcher, id string, opts ...Option) (*Message, error) {
	m := &Message{item: newItem(MessageSchema, append(opts, WithFetcher(f)))}
	if err := m.InitializeFromService(ctx, id); err != nil {
		return nil, err
	}
	return m, nil
}

// CalendarItem is an EWS CalendarItem (an event).
type CalendarItem struct {
	item
}

var _ Hydrator = (*CalendarItem)(nil)

// NewCalendarItem builds an unsaved event from props.
func NewCalendarItem(props map[string]any, opts ...Option) (*CalendarItem, error) {
	c := &CalendarItem{item: newItem(CalendarItemSchema, opts)}
	if err := c.Hydrate(props); err != nil {
		return nil, err
	}
	return c, nil
}

// CalendarItemRef returns an unloaded handle for id backed by f.
func CalendarItemRef(f Fetcher, id string, opts ...Option) *CalendarItem {
	c := &CalendarItem{item: newItem(CalendarItemSchema, append(opts, WithFetcher(f)))}
	c.SetIdentity(id, "")
	return c
}

// CalendarItemFromPayload decodes an event returned by the server.
func CalendarItemFromPayload(payload []byte, opts ...Option) (*CalendarItem, error) {
	c := &CalendarItem{item: newItem(CalendarItemSchema, opts)}
	if err := c.InitializeFromPayload(payload); err != nil {
		return nil, err
	}
	return c, nil
}

// CalendarItemFromSnapshot builds an event already fetched by a transport.
func CalendarItemFromSnapshot(snap Snapshot, opts ...Option) (*CalendarItem, error) {
	c := &CalendarItem{item: newItem(CalendarItemSchema, opts)}
	if err := c.Apply(snap); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadCalendarItem fetches event id through f.
func LoadCalendarItem(ctx context.Context, f Fetcher, id string, opts ...Option) (*CalendarItem, error) {
	c := CalendarItemRef(f, id, opts...)
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
