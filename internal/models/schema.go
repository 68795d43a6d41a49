package models

import "fmt"

// Kind describes the semantic type of a schema field. Records do not enforce it;
// serializers and payload decoders use it to interpret raw values.
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindDateTime
	KindStrings
	KindMailbox
	KindMailboxes
	KindAttendees
	KindBody
	KindBinary
	KindItemID
	KindAttachments
	KindHeaders
	KindExtended
)

var kindNames = map[Kind]string{
	KindString:      "string",
	KindBool:        "bool",
	KindInt:         "int",
	KindDateTime:    "datetime",
	KindStrings:     "strings",
	KindMailbox:     "mailbox",
	KindMailboxes:   "mailboxes",
	KindAttendees:   "attendees",
	KindBody:        "body",
	KindBinary:      "binary",
	KindItemID:      "item_id",
	KindAttachments: "attachments",
	KindHeaders:     "headers",
	KindExtended:    "extended",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Field is one entry of a schema table.
type Field struct {
	Name     string // snake_case name used by Set/Get
	URI      string // EWS FieldURI, e.g. "item:Subject"
	Kind     Kind
	ReadOnly bool // the server rejects updates to this property
}

// Schema is an immutable, ordered table of fields.
type Schema struct {
	name   string
	fields map[string]Field
	order  []string
}

// NewSchema builds a schema from one or more field groups. It panics on a
// duplicate or empty field name since schemas are declared statically.
func NewSchema(name string, groups ...[]Field) *Schema {
	s := &Schema{name: name, fields: make(map[string]Field)}
	for _, group := range groups {
		for _, f := range group {
			if f.Name == "" {
				panic(fmt.Sprintf("models: schema %s: field with empty name", name))
			}
			if _, dup := s.fields[f.Name]; dup {
				panic(fmt.Sprintf("models: schema %s: duplicate field %q", name, f.Name))
			}
			s.fields[f.Name] = f
			s.order = append(s.order, f.Name)
		}
	}
	return s
}

// Name returns the schema name, e.g. "Message".
func (s *Schema) Name() string {
	return s.name
}

// Field looks up a field definition by name.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Has reports whether name is part of the schema.
func (s *Schema) Has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// Fields returns the field definitions in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.fields[name])
	}
	return out
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	return len(s.order)
}

// lookup returns the field or a SchemaError naming it.
func (s *Schema) lookup(name string) (Field, error) {
	f, ok := s.fields[name]
	if !ok {
		return Field{}, &SchemaError{Schema: s.name, Field: name}
	}
	return f, nil
}
