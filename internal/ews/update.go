package ews

import (
	"errors"
	"fmt"

	"ewscal/internal/models"
)

var (
	ErrNotPersisted     = errors.New("ews: item has not been saved")
	ErrMissingChangeKey = errors.New("ews: change key required for update")
	ErrReadOnlyField    = errors.New("ews: field is read-only")
	// ErrConflict is returned by services when the change key no longer matches the server.
	ErrConflict = errors.New("ews: change key is stale")
)

// ChangeOp is the kind of a field change in an UpdateItem request.
type ChangeOp int

const (
	OpSet ChangeOp = iota
	OpDelete
)

func (op ChangeOp) String() string {
	if op == OpDelete {
		return "DeleteItemField"
	}
	return "SetItemField"
}

// FieldChange is one SetItemField or DeleteItemField entry.
type FieldChange struct {
	Field string
	URI   string
	Op    ChangeOp
	Value any
}

// Update describes the changes to flush for one item. The serializer turns it
// into an UpdateItem request.
type Update struct {
	ItemID    string
	ChangeKey string
	Changes   []FieldChange
}

// Empty reports whether the update carries no changes.
func (u Update) Empty() bool {
	return len(u.Changes) == 0
}

// BuildUpdate collects the record's dirty fields into an Update. Dirty fields
// without a value become deletes. Changes are ordered by field name.
func BuildUpdate(r *models.Record) (Update, error) {
	if r.ID() == "" {
		return Update{}, ErrNotPersisted
	}
	if r.ChangeKey() == "" {
		return Update{}, fmt.Errorf("%w: item %s", ErrMissingChangeKey, r.ID())
	}

	u := Update{ItemID: r.ID(), ChangeKey: r.ChangeKey()}
	for _, name := range r.DirtyFields() {
		f, _ := r.Schema().Field(name)
		if f.ReadOnly {
			return Update{}, fmt.Errorf("%w: %s", ErrReadOnlyField, name)
		}
		change := FieldChange{Field: name, URI: f.URI, Op: OpSet}
		if v, err := r.Get(name); err != nil {
			return Update{}, err
		} else if v == models.Unset {
			change.Op = OpDelete
		} else {
			change.Value = v
		}
		u.Changes = append(u.Changes, change)
	}
	return u, nil
}
