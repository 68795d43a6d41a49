package models

import (
	"fmt"
	"sort"
)

// Unset is returned by Get for a field that has never been assigned.
var Unset = unset{}

type unset struct{}

func (unset) String() string { return "<unset>" }

// ResourceBuilder maps an external representation of a field value to the form
// stored on the record. It is applied uniformly on every Set.
type ResourceBuilder func(field Field, value any) (any, error)

// PassThrough is the default ResourceBuilder; it stores values as given.
func PassThrough(_ Field, value any) (any, error) {
	return value, nil
}

// Option configures a Record.
type Option func(*Record)

// WithResourceBuilder replaces the PassThrough builder.
func WithResourceBuilder(b ResourceBuilder) Option {
	return func(r *Record) {
		if b != nil {
			r.build = b
		}
	}
}

// Record is a bag of schema-declared fields that remembers which fields were
// written since construction or the last ResetDirty.
//
// Tracking is write-based: assigning a value equal to the current one still
// marks the field dirty. Callers that want diff semantics compare before Set.
//
// A Record is not safe for concurrent use.
type Record struct {
	schema *Schema
	build  ResourceBuilder

	id        string
	changeKey string

	values   map[string]any
	dirty    map[string]struct{}
	tracking bool
}

// NewRecord returns an empty record with tracking enabled.
func NewRecord(schema *Schema, opts ...Option) *Record {
	r := &Record{
		schema:   schema,
		build:    PassThrough,
		values:   make(map[string]any),
		dirty:    make(map[string]struct{}),
		tracking: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Schema returns the record's schema.
func (r *Record) Schema() *Schema {
	return r.schema
}

// ID returns the server-assigned item identifier, empty for unsaved items.
func (r *Record) ID() string {
	return r.id
}

// ChangeKey returns the concurrency token that must accompany updates and deletes.
func (r *Record) ChangeKey() string {
	return r.changeKey
}

// SetIdentity records the identifier and change key issued by the server.
// Identity is never tracked as a change.
func (r *Record) SetIdentity(id, changeKey string) {
	r.id = id
	r.changeKey = changeKey
}

// Set assigns value to the named field and marks it dirty while tracking is enabled.
func (r *Record) Set(name string, value any) error {
	f, err := r.schema.lookup(name)
	if err != nil {
		return err
	}
	v, err := r.build(f, value)
	if err != nil {
		return fmt.Errorf("build %s: %w", name, err)
	}
	r.values[name] = v
	r.markDirty(name)
	return nil
}

// Clear removes the value of the named field. A cleared field is dirty, so the
// next update deletes the property on the server.
func (r *Record) Clear(name string) error {
	if _, err := r.schema.lookup(name); err != nil {
		return err
	}
	delete(r.values, name)
	r.markDirty(name)
	return nil
}

// Get returns the current value of the named field, or Unset.
func (r *Record) Get(name string) (any, error) {
	if _, err := r.schema.lookup(name); err != nil {
		return nil, err
	}
	v, ok := r.values[name]
	if !ok {
		return Unset, nil
	}
	return v, nil
}

// IsSet reports whether the named field holds a value. Unknown names report false.
func (r *Record) IsSet(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Tracking reports whether writes are currently recorded as changes.
func (r *Record) Tracking() bool {
	return r.tracking
}

// WithTrackingSuspended runs fn with dirty tracking disabled. The previous
// tracking state is restored however fn returns, panics included.
func (r *Record) WithTrackingSuspended(fn func() error) error {
	prev := r.tracking
	r.tracking = false
	defer func() { r.tracking = prev }()
	return fn()
}

// Hydrate assigns values in bulk without recording changes. Every value is
// checked and built before any is written, so a bad payload leaves the record
// untouched.
func (r *Record) Hydrate(values map[string]any) error {
	built := make(map[string]any, len(values))
	for _, name := range sortedKeys(values) {
		f, err := r.schema.lookup(name)
		if err != nil {
			return err
		}
		v, err := r.build(f, values[name])
		if err != nil {
			return fmt.Errorf("build %s: %w", name, err)
		}
		built[name] = v
	}
	return r.WithTrackingSuspended(func() error {
		for name, v := range built {
			r.values[name] = v
			r.markDirty(name)
		}
		return nil
	})
}

// DirtyFields returns the sorted names of fields written since the last reset.
func (r *Record) DirtyFields() []string {
	out := make([]string, 0, len(r.dirty))
	for name := range r.dirty {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// IsDirty reports whether name was written since the last reset.
func (r *Record) IsDirty(name string) bool {
	_, ok := r.dirty[name]
	return ok
}

// HasChanges reports whether any field is dirty.
func (r *Record) HasChanges() bool {
	return len(r.dirty) > 0
}

// ResetDirty forgets all pending changes. Values are kept.
func (r *Record) ResetDirty() {
	r.dirty = make(map[string]struct{})
}

// Values returns a shallow copy of every assigned field.
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

func (r *Record) markDirty(name string) {
	if r.tracking {
		r.dirty[name] = struct{}{}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
