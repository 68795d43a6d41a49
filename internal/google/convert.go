package google

import (
	"time"

	"google.golang.org/api/calendar/v3"

	"ewscal/internal/ews"
)

const dateLayout = "2006-01-02"

var visibilityToSensitivity = map[string]string{
	"default":      "Normal",
	"public":       "Normal",
	"private":      "Private",
	"confidential": "Confidential",
}

var sensitivityToVisibility = map[string]string{
	"Normal":       "default",
	"Personal":     "private",
	"Private":      "private",
	"Confidential": "confidential",
}

var responseStatus = map[string]ews.ResponseType{
	"accepted":    ews.ResponseAccepted,
	"declined":    ews.ResponseDeclined,
	"tentative":   ews.ResponseTentative,
	"needsAction": ews.ResponseUnknown,
}

// snapshotFromEvent maps a Google event onto CalendarItem fields. The event
// etag becomes the change key.
func snapshotFromEvent(ev *calendar.Event) ews.Snapshot {
	fields := map[string]any{
		"is_cancelled":            ev.Status == "cancelled",
		"legacy_free_busy_status": "Busy",
		"reminder_is_set":         false,
	}
	setString := func(name, v string) {
		if v != "" {
			fields[name] = v
		}
	}
	setString("subject", ev.Summary)
	setString("location", ev.Location)
	setString("uid", ev.ICalUID)
	if ev.Description != "" {
		fields["body"] = ews.Body{Type: ews.BodyHTML, Content: ev.Description}
	}

	if start, allDay, ok := parseEventTime(ev.Start); ok {
		fields["start"] = start
		fields["is_all_day_event"] = allDay
	}
	if end, _, ok := parseEventTime(ev.End); ok {
		fields["end"] = end
	}
	if t, err := time.Parse(time.RFC3339, ev.Created); err == nil {
		fields["date_time_created"] = t
	}
	if t, err := time.Parse(time.RFC3339, ev.Updated); err == nil {
		fields["last_modified_time"] = t
	}

	if s, ok := visibilityToSensitivity[ev.Visibility]; ok {
		fields["sensitivity"] = s
	}
	if ev.Transparency == "transparent" {
		fields["legacy_free_busy_status"] = "Free"
	}

	if ev.Organizer != nil && ev.Organizer.Email != "" {
		fields["organizer"] = ews.Mailbox{Name: ev.Organizer.DisplayName, Email: ev.Organizer.Email}
	}
	var required, optional []ews.Attendee
	for _, a := range ev.Attendees {
		if a.Resource {
			continue
		}
		att := ews.Attendee{Name: a.DisplayName, Email: a.Email, Required: !a.Optional, Response: ews.ResponseUnknown}
		if r, ok := responseStatus[a.ResponseStatus]; ok {
			att.Response = r
		}
		if att.Required {
			required = append(required, att)
		} else {
			optional = append(optional, att)
		}
	}
	if len(required) > 0 {
		fields["required_attendees"] = required
	}
	if len(optional) > 0 {
		fields["optional_attendees"] = optional
	}

	if ev.Reminders != nil && len(ev.Reminders.Overrides) > 0 {
		fields["reminder_is_set"] = true
		fields["reminder_minutes_before_start"] = int(ev.Reminders.Overrides[0].Minutes)
	}

	return ews.Snapshot{ID: ev.Id, ChangeKey: ev.Etag, Fields: fields}
}

func parseEventTime(dt *calendar.EventDateTime) (time.Time, bool, bool) {
	if dt == nil {
		return time.Time{}, false, false
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		return t, false, err == nil
	}
	if dt.Date != "" {
		t, err := time.Parse(dateLayout, dt.Date)
		return t, true, err == nil
	}
	return time.Time{}, false, false
}

func eventTime(t time.Time, allDay bool) *calendar.EventDateTime {
	if allDay {
		return &calendar.EventDateTime{Date: t.Format(dateLayout)}
	}
	return &calendar.EventDateTime{DateTime: t.Format(time.RFC3339)}
}

// mapping writes one CalendarItem field onto an event. apiField is the Go field
// name of calendar.Event, used for ForceSendFields and NullFields.
// Required fields cannot be cleared and are skipped when unset; nullable
// fields are cleared with a JSON null.
type mapping struct {
	apiField string
	force    bool
	nullable bool
	required bool
	apply    func(item *ews.CalendarItem, ev *calendar.Event)
}

var mappings = map[string]mapping{
	"subject": {apiField: "Summary", force: true, nullable: true, apply: func(item *ews.CalendarItem, ev *calendar.Event) {
		ev.Summary = item.String("subject")
	}},
	"body": {apiField: "Description", force: true, nullable: true, apply: func(item *ews.CalendarItem, ev *calendar.Event) {
		if v, err := item.Get("body"); err == nil {
			if b, ok := v.(ews.Body); ok {
				ev.Description = b.Content
			}
		}
	}},
	"location": {apiField: "Location", force: true, nullable: true, apply: func(item *ews.CalendarItem, ev *calendar.Event) {
		ev.Location = item.String("location")
	}},
	"start": {apiField: "Start", required: true, apply: func(item *ews.CalendarItem, ev *calendar.Event) {
		ev.Start = eventTime(item.Time("start"), item.Bool("is_all_day_event"))
	}},
	"end": {apiField: "End", required: true, apply: func(item *ews.CalendarItem, ev *calendar.Event) {
		ev.End = eventTime(item.Time("end"), item.Bool("is_all_day_event"))
	}},
	"is_all_day_event": {apiField: "Start", apply: func(item *ews.CalendarItem, ev *calendar.Event) {
		ev.Start = eventTime(item.Time("start"), item.Bool("is_all_day_event"))
		ev.End = eventTime(item.Time("end"), item.Bool("is_all_day_event"))
	}},
	"required_attendees": {apiField: "Attendees", force: true, apply: applyAttendees},
	"optional_attendees": {apiField: "Attendees", force: true, apply: applyAttendees},
	"sensitivity": {apiField: "Visibility", force: true, nullable: true, apply: func(item *ews.CalendarItem, ev *calendar.Event) {
		ev.Visibility = sensitivityToVisibility[item.String("sensitivity")]
	}},
	"legacy_free_busy_status": {apiField: "Transparency", force: true, nullable: true, apply: func(item *ews.CalendarItem, ev *calendar.Event) {
		ev.Transparency = "opaque"
		if item.String("legacy_free_busy_status") == "Free" {
			ev.Transparency = "transparent"
		}
	}},
	"reminder_is_set":               {apiField: "Reminders", apply: applyReminders},
	"reminder_minutes_before_start": {apiField: "Reminders", apply: applyReminders},
}

func applyAttendees(item *ews.CalendarItem, ev *calendar.Event) {
	ev.Attendees = []*calendar.EventAttendee{}
	for _, name := range []string{"required_attendees", "optional_attendees"} {
		v, err := item.Get(name)
		if err != nil {
			continue
		}
		attendees, _ := v.([]ews.Attendee)
		for _, a := range attendees {
			ev.Attendees = append(ev.Attendees, &calendar.EventAttendee{
				Email:       a.Email,
				DisplayName: a.Name,
				Optional:    !a.Required,
			})
		}
	}
}

func applyReminders(item *ews.CalendarItem, ev *calendar.Event) {
	r := &calendar.EventReminders{
		Overrides:       []*calendar.EventReminder{},
		ForceSendFields: []string{"UseDefault", "Overrides"},
	}
	if item.Bool("reminder_is_set") {
		r.Overrides = append(r.Overrides, &calendar.EventReminder{
			Method:  "popup",
			Minutes: int64(item.Int("reminder_minutes_before_start")),
		})
	}
	ev.Reminders = r
}

// eventFromItem builds an event carrying only the named fields. Fields without
// a Google equivalent are returned as skipped; cleared fields are sent as null.
func eventFromItem(item *ews.CalendarItem, names []string) (*calendar.Event, []string) {
	ev := &calendar.Event{}
	var skipped []string
	seen := map[string]bool{}
	for _, name := range names {
		m, ok := mappings[name]
		if !ok {
			skipped = append(skipped, name)
			continue
		}
		if !item.IsSet(name) {
			switch {
			case m.required:
				skipped = append(skipped, name)
				continue
			case m.nullable:
				if !seen[m.apiField] {
					ev.NullFields = append(ev.NullFields, m.apiField)
					seen[m.apiField] = true
				}
				continue
			}
		}
		m.apply(item, ev)
		if m.force && !seen[m.apiField] {
			ev.ForceSendFields = append(ev.ForceSendFields, m.apiField)
			seen[m.apiField] = true
		}
	}
	return ev, skipped
}
