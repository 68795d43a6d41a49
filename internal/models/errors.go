package models

import (
	"errors"
	"fmt"
)

// ErrUnknownField is matched by every SchemaError via errors.Is.
var ErrUnknownField = errors.New("unknown field")

// SchemaError reports an operation on a field that the record's schema does not declare.
type SchemaError struct {
	Schema string
	Field  string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s has no field %q", ErrUnknownField, e.Schema, e.Field)
}

func (e *SchemaError) Is(target error) bool { return target == ErrUnknownField }
