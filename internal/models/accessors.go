package models

import "time"

// Typed accessors return the zero value when the field is unset, unknown, or
// holds a value of another type.

func (r *Record) String(name string) string {
	s, _ := r.values[name].(string)
	return s
}

func (r *Record) Bool(name string) bool {
	b, _ := r.values[name].(bool)
	return b
}

func (r *Record) Int(name string) int {
	switch v := r.values[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

func (r *Record) Time(name string) time.Time {
	t, _ := r.values[name].(time.Time)
	return t
}

func (r *Record) Strings(name string) []string {
	s, _ := r.values[name].([]string)
	return s
}
