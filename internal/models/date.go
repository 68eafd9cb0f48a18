package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// dateLayouts are tried in order when decoding a date sent by the form client or
// found in an old browser-local snapshot.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Date is an optional calendar date. A nil *Date means the stage that sets it has not
// been reached. Raw keeps the original text when it could not be parsed so exports can
// report it as invalid instead of silently dropping it.
type Date struct {
	Time time.Time
	Raw  string
}

// NewDate wraps t as a parsed date
func NewDate(t time.Time) *Date {
	return &Date{Time: t}
}

// ParseDate parses s with the accepted layouts. Unparsable input yields a Date with
// only Raw set; empty input yields nil.
func ParseDate(s string) *Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &Date{Time: t}
		}
	}
	return &Date{Raw: s}
}

// Valid reports whether the date holds a parsed time
func (d *Date) Valid() bool {
	return d != nil && !d.Time.IsZero()
}

// MarshalJSON writes RFC 3339 with fractional seconds, Raw when unparsed, else null
func (d Date) MarshalJSON() ([]byte, error) {
	if !d.Time.IsZero() {
		return json.Marshal(d.Time.Format(time.RFC3339Nano))
	}
	if d.Raw != "" {
		return json.Marshal(d.Raw)
	}
	return []byte("null"), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// epoch milliseconds, as produced by Date.now()
		var ms int64
		if errNum := json.Unmarshal(b, &ms); errNum != nil {
			return err
		}
		*d = Date{Time: time.UnixMilli(ms).UTC()}
		return nil
	}
	parsed := ParseDate(s)
	if parsed == nil {
		*d = Date{}
		return nil
	}
	*d = *parsed
	return nil
}

// TimeOrNil returns the parsed time for database writes
func (d *Date) TimeOrNil() *time.Time {
	if !d.Valid() {
		return nil
	}
	t := d.Time
	return &t
}
