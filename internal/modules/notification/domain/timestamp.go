package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Accepted ISO-8601 layouts. Zoned values go through RFC 3339; the others are
// wall-clock times without an offset.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Timestamp keeps the raw wire value next to the parsed instant so a record
// can be re-emitted byte for byte.
type Timestamp struct {
	time.Time
	raw   string
	naive bool
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without a zone offset
// are read as UTC wall-clock until AnchorTo anchors them to a location.
func ParseTimestamp(raw string) (Timestamp, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return Timestamp{Time: t, raw: raw}, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Timestamp{Time: t, raw: raw, naive: true}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("%w: timestamp %q is not ISO-8601", ErrInvalidRecord, raw)
}

// AnchorTo anchors a naive timestamp to loc, keeping its wall-clock fields, so it
// orders correctly against zoned ones. Zoned timestamps are returned as is.
func (t Timestamp) AnchorTo(loc *time.Location) Timestamp {
	if !t.naive || loc == nil || t.Time.IsZero() {
		return t
	}
	t.Time = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	return t
}

// Raw returns the timestamp exactly as it was received.
func (t Timestamp) Raw() string {
	return t.raw
}

// Naive reports whether the wire value carried no zone offset.
func (t Timestamp) Naive() bool {
	return t.naive
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: timestamp must be a string", ErrInvalidRecord)
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.raw == "" && !t.Time.IsZero() {
		return json.Marshal(t.Time.Format(time.RFC3339))
	}
	return json.Marshal(t.raw)
}

const DefaultDisplayLayout = "02 Jan 2006, 03:04 PM"

// Formatter derives the display-only FormattedTime field.
type Formatter struct {
	Location *time.Location
	Layout   string
}

func NewFormatter(loc *time.Location, layout string) Formatter {
	if loc == nil {
		loc = time.UTC
	}
	if layout == "" {
		layout = DefaultDisplayLayout
	}
	return Formatter{Location: loc, Layout: layout}
}

func (f Formatter) Format(t Timestamp) string {
	if t.IsZero() {
		return ""
	}
	if t.naive {
		return t.Time.Format(f.Layout)
	}
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.Time.In(loc).Format(f.Layout)
}

// Apply returns n with naive timestamps anchored to the display location and
// FormattedTime computed.
func (f Formatter) Apply(n Notification) Notification {
	n.Timestamp = n.Timestamp.AnchorTo(f.Location)
	n.FormattedTime = f.Format(n.Timestamp)
	return n
}
