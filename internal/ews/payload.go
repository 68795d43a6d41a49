package ews

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"ewscal/internal/models"
)

// ErrInvalidPayload wraps every payload decoding failure.
var ErrInvalidPayload = errors.New("ews: invalid payload")

// wirePayload is the JSON form of an item exchanged with the service layer:
//
//	{"id": "...", "change_key": "...", "fields": {"subject": "Lunch", "is_read": true}}
type wirePayload struct {
	ID        string                     `json:"id,omitempty"`
	ChangeKey string                     `json:"change_key,omitempty"`
	Fields    map[string]json.RawMessage `json:"fields"`
}

// DecodeSnapshot parses a JSON payload against schema. Field values are
// decoded according to their Kind; null values are treated as absent.
func DecodeSnapshot(schema *models.Schema, payload []byte) (Snapshot, error) {
	var wire wirePayload
	if err := json.Unmarshal(payload, &wire); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	snap := Snapshot{ID: wire.ID, ChangeKey: wire.ChangeKey, Fields: make(map[string]any, len(wire.Fields))}
	for name, raw := range wire.Fields {
		f, ok := schema.Field(name)
		if !ok {
			return Snapshot{}, &models.SchemaError{Schema: schema.Name(), Field: name}
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		v, err := decodeValue(f.Kind, raw)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: field %s: %v", ErrInvalidPayload, name, err)
		}
		snap.Fields[name] = v
	}
	return snap, nil
}

func decodeValue(kind models.Kind, raw json.RawMessage) (any, error) {
	switch kind {
	case models.KindString, models.KindItemID:
		return decodeAs[string](raw)
	case models.KindBool:
		return decodeAs[bool](raw)
	case models.KindInt:
		return decodeAs[int](raw)
	case models.KindDateTime:
		return decodeAs[time.Time](raw)
	case models.KindStrings:
		return decodeAs[[]string](raw)
	case models.KindMailbox:
		return decodeAs[Mailbox](raw)
	case models.KindMailboxes:
		return decodeAs[[]Mailbox](raw)
	case models.KindAttendees:
		return decodeAs[[]Attendee](raw)
	case models.KindBody:
		var text string
		if json.Unmarshal(raw, &text) == nil {
			return Body{Type: BodyText, Content: text}, nil
		}
		return decodeAs[Body](raw)
	case models.KindBinary:
		return decodeAs[[]byte](raw)
	case models.KindHeaders:
		return decodeAs[map[string]string](raw)
	default:
		return decodeAs[any](raw)
	}
}

func decodeAs[T any](raw json.RawMessage) (any, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// EncodePayload renders a record in the form accepted by DecodeSnapshot.
func EncodePayload(r *models.Record) ([]byte, error) {
	values := r.Values()
	fields := make(map[string]json.RawMessage, len(values))
	for name, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		fields[name] = raw
	}
	return json.MarshalIndent(wirePayload{ID: r.ID(), ChangeKey: r.ChangeKey(), Fields: fields}, "", "  ")
}

// ParseText converts command-line text into a value for the field f.
// Lists are comma separated; mailboxes accept RFC 5322 addresses.
func ParseText(f models.Field, s string) (any, error) {
	switch f.Kind {
	case models.KindString, models.KindItemID:
		return s, nil
	case models.KindBool:
		return strconv.ParseBool(s)
	case models.KindInt:
		return strconv.Atoi(s)
	case models.KindDateTime:
		return time.Parse(time.RFC3339, s)
	case models.KindStrings:
		return splitList(s), nil
	case models.KindMailbox:
		addr, err := mail.ParseAddress(s)
		if err != nil {
			return nil, err
		}
		return Mailbox{Name: addr.Name, Email: addr.Address}, nil
	case models.KindMailboxes, models.KindAttendees:
		addrs, err := mail.ParseAddressList(s)
		if err != nil {
			return nil, err
		}
		if f.Kind == models.KindMailboxes {
			out := make([]Mailbox, 0, len(addrs))
			for _, a := range addrs {
				out = append(out, Mailbox{Name: a.Name, Email: a.Address})
			}
			return out, nil
		}
		out := make([]Attendee, 0, len(addrs))
		for _, a := range addrs {
			out = append(out, Attendee{Name: a.Name, Email: a.Address, Required: f.Name != "optional_attendees"})
		}
		return out, nil
	case models.KindBody:
		return Body{Type: BodyText, Content: s}, nil
	case models.KindBinary:
		return base64.StdEncoding.DecodeString(s)
	default:
		return nil, fmt.Errorf("field %s of kind %s cannot be set from text", f.Name, f.Kind)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
