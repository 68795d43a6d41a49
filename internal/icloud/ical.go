package icloud

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"ewscal/internal/ews"
)

// ErrNoEvent is returned when a calendar object carries no VEVENT.
var ErrNoEvent = errors.New("icloud: calendar object has no event")

const prodID = "-//ewscal//EN"

var sensitivityToClass = map[string]string{
	"Normal":       "PUBLIC",
	"Personal":     "PRIVATE",
	"Private":      "PRIVATE",
	"Confidential": "CONFIDENTIAL",
}

var classToSensitivity = map[string]string{
	"PUBLIC":       "Normal",
	"PRIVATE":      "Private",
	"CONFIDENTIAL": "Confidential",
}

var responseToPartStat = map[ews.ResponseType]string{
	ews.ResponseAccepted:  "ACCEPTED",
	ews.ResponseDeclined:  "DECLINED",
	ews.ResponseTentative: "TENTATIVE",
	ews.ResponseUnknown:   "NEEDS-ACTION",
}

// NewCalendar wraps a VEVENT in a VCALENDAR ready to be PUT.
func NewCalendar(vevent *ical.Component) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)
	cal.Children = append(cal.Children, vevent)
	return cal
}

// ToICal converts a calendar item to a VEVENT with the given UID.
func ToICal(item *ews.CalendarItem, uid string) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, uid)
	ve.Props.SetText(ical.PropSummary, item.String("subject"))
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())

	for name, prop := range map[string]string{"start": ical.PropDateTimeStart, "end": ical.PropDateTimeEnd} {
		t := item.Time(name)
		switch {
		case t.IsZero():
		case item.Bool("is_all_day_event"):
			ve.Props.SetDate(prop, t)
		default:
			ve.Props.SetDateTime(prop, t)
		}
	}

	if body, ok := fieldValue[ews.Body](item, "body"); ok && body.Content != "" {
		ve.Props.SetText(ical.PropDescription, body.Content)
	}
	if loc := item.String("location"); loc != "" {
		ve.Props.SetText(ical.PropLocation, loc)
	}
	if cats := item.Strings("categories"); len(cats) > 0 {
		p := ical.NewProp(ical.PropCategories)
		p.Value = strings.Join(cats, ",")
		ve.Props.Set(p)
	}
	if class, ok := sensitivityToClass[item.String("sensitivity")]; ok {
		ve.Props.SetText(ical.PropClass, class)
	}
	if item.String("legacy_free_busy_status") == "Free" {
		ve.Props.SetText(ical.PropTransparency, "TRANSPARENT")
	}
	if item.Bool("is_cancelled") {
		ve.Props.SetText(ical.PropStatus, "CANCELLED")
	}
	if t := item.Time("date_time_created"); !t.IsZero() {
		ve.Props.SetDateTime(ical.PropCreated, t.UTC())
	}
	if t := item.Time("last_modified_time"); !t.IsZero() {
		ve.Props.SetDateTime(ical.PropLastModified, t.UTC())
	}

	if org, ok := fieldValue[ews.Mailbox](item, "organizer"); ok && org.Email != "" {
		p := ical.NewProp(ical.PropOrganizer)
		p.Value = fmt.Sprintf("mailto:%s", org.Email)
		if org.Name != "" {
			p.Params.Set(ical.ParamCommonName, org.Name)
		}
		ve.Props.Add(p)
	}
	for _, name := range []string{"required_attendees", "optional_attendees"} {
		attendees, _ := fieldValue[[]ews.Attendee](item, name)
		for _, a := range attendees {
			ve.Props.Add(attendeeProp(a))
		}
	}

	if item.Bool("reminder_is_set") {
		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, "DISPLAY")
		alarm.Props.SetText(ical.PropDescription, "Reminder")
		trigger := ical.NewProp(ical.PropTrigger)
		trigger.Value = fmt.Sprintf("-PT%dM", item.Int("reminder_minutes_before_start"))
		alarm.Props.Set(trigger)
		ve.Children = append(ve.Children, alarm)
	}
	return ve
}

func attendeeProp(a ews.Attendee) *ical.Prop {
	p := ical.NewProp(ical.PropAttendee)
	p.Value = fmt.Sprintf("mailto:%s", a.Email)
	if a.Name != "" {
		p.Params.Set(ical.ParamCommonName, a.Name)
	}
	role := "OPT-PARTICIPANT"
	if a.Required {
		role = "REQ-PARTICIPANT"
	}
	p.Params.Set(ical.ParamRole, role)
	if stat, ok := responseToPartStat[a.Response]; ok {
		p.Params.Set(ical.ParamParticipationStatus, stat)
	}
	return p
}

// SnapshotFromICal extracts the first VEVENT of cal. Datetimes without a zone
// are interpreted in loc; all-day dates are read as UTC midnight.
func SnapshotFromICal(cal *ical.Calendar, loc *time.Location) (ews.Snapshot, error) {
	events := cal.Events()
	if len(events) == 0 {
		return ews.Snapshot{}, ErrNoEvent
	}
	ev := events[0]
	fields := make(map[string]any)

	for name, prop := range map[string]string{
		"uid":      ical.PropUID,
		"subject":  ical.PropSummary,
		"location": ical.PropLocation,
	} {
		if v, err := ev.Props.Text(prop); err == nil && v != "" {
			fields[name] = v
		}
	}
	if v, err := ev.Props.Text(ical.PropDescription); err == nil && v != "" {
		fields["body"] = ews.Body{Type: ews.BodyText, Content: v}
	}

	for name, prop := range map[string]string{
		"start":              ical.PropDateTimeStart,
		"end":                ical.PropDateTimeEnd,
		"date_time_created":  ical.PropCreated,
		"last_modified_time": ical.PropLastModified,
	} {
		p := ev.Props.Get(prop)
		if p == nil {
			continue
		}
		// Dates are kept as UTC midnight so they compare equal across zones.
		l := loc
		if p.ValueType() == ical.ValueDate {
			l = time.UTC
		}
		t, err := p.DateTime(l)
		if err != nil {
			return ews.Snapshot{}, fmt.Errorf("parse %s: %w", prop, err)
		}
		if !t.IsZero() {
			fields[name] = t
		}
	}
	if p := ev.Props.Get(ical.PropDateTimeStart); p != nil {
		fields["is_all_day_event"] = p.ValueType() == ical.ValueDate
	}

	if p := ev.Props.Get(ical.PropCategories); p != nil && p.Value != "" {
		fields["categories"] = strings.Split(p.Value, ",")
	}
	if class, _ := ev.Props.Text(ical.PropClass); class != "" {
		if s, ok := classToSensitivity[strings.ToUpper(class)]; ok {
			fields["sensitivity"] = s
		}
	}
	if transp, _ := ev.Props.Text(ical.PropTransparency); strings.EqualFold(transp, "TRANSPARENT") {
		fields["legacy_free_busy_status"] = "Free"
	} else {
		fields["legacy_free_busy_status"] = "Busy"
	}
	if status, _ := ev.Props.Text(ical.PropStatus); strings.EqualFold(status, "CANCELLED") {
		fields["is_cancelled"] = true
	}

	if p := ev.Props.Get(ical.PropOrganizer); p != nil {
		fields["organizer"] = ews.Mailbox{Name: p.Params.Get(ical.ParamCommonName), Email: mailtoAddress(p.Value)}
	}
	var required, optional []ews.Attendee
	for _, p := range ev.Props.Values(ical.PropAttendee) {
		a := ews.Attendee{
			Name:     p.Params.Get(ical.ParamCommonName),
			Email:    mailtoAddress(p.Value),
			Required: !strings.EqualFold(p.Params.Get(ical.ParamRole), "OPT-PARTICIPANT"),
			Response: partStatToResponse(p.Params.Get(ical.ParamParticipationStatus)),
		}
		if a.Required {
			required = append(required, a)
		} else {
			optional = append(optional, a)
		}
	}
	if len(required) > 0 {
		fields["required_attendees"] = required
	}
	if len(optional) > 0 {
		fields["optional_attendees"] = optional
	}

	fields["reminder_is_set"] = false
	for _, child := range ev.Children {
		if child.Name != ical.CompAlarm {
			continue
		}
		if minutes, ok := parseTrigger(child.Props.Get(ical.PropTrigger)); ok {
			fields["reminder_is_set"] = true
			fields["reminder_minutes_before_start"] = minutes
			break
		}
	}

	uid, _ := fields["uid"].(string)
	return ews.Snapshot{ID: uid, Fields: fields}, nil
}

func mailtoAddress(v string) string {
	if len(v) >= 7 && strings.EqualFold(v[:7], "mailto:") {
		return v[7:]
	}
	return v
}

func partStatToResponse(stat string) ews.ResponseType {
	for resp, s := range responseToPartStat {
		if strings.EqualFold(stat, s) {
			return resp
		}
	}
	return ews.ResponseUnknown
}

// parseTrigger understands the relative "-PT<n>M" and "-PT<n>H" triggers this
// package writes and most clients emit.
func parseTrigger(p *ical.Prop) (int, bool) {
	if p == nil {
		return 0, false
	}
	v := strings.TrimPrefix(strings.ToUpper(p.Value), "-PT")
	if v == strings.ToUpper(p.Value) {
		return 0, false
	}
	unit := 1
	switch {
	case strings.HasSuffix(v, "M"):
		v = strings.TrimSuffix(v, "M")
	case strings.HasSuffix(v, "H"):
		v = strings.TrimSuffix(v, "H")
		unit = 60
	default:
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n * unit, true
}

func fieldValue[T any](item *ews.CalendarItem, name string) (T, bool) {
	v, err := item.Get(name)
	if err != nil {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
