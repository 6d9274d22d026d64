package epg

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the fixed-width XMLTV date-time prefix.
const TimestampLayout = "20060102150405"

// ErrEmptyTimestamp is returned when a start or stop attribute is blank.
var ErrEmptyTimestamp = errors.New("empty timestamp")

// ParseTimestamp parses an XMLTV timestamp such as "20250101180000 +0100".
// Everything after the first space is discarded and the remaining wall-clock
// value is interpreted in loc.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrEmptyTimestamp
	}

	if idx := strings.IndexByte(value, ' '); idx != -1 {
		value = value[:idx]
	}

	if loc == nil {
		loc = time.Local
	}

	t, err := time.ParseInLocation(TimestampLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}

	return t, nil
}
