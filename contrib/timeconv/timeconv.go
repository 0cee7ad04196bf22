// Package timeconv registers the common string-to-time named
// converters: "datetime", "time", "datetime_naive" and
// "datetime_naive_to_utc". Importing the package (typically blank)
// makes the names resolvable from any rule set.
package timeconv

import (
	"fmt"
	"strings"
	"time"

	"graphconvert/convert"
)

// zonedLayouts carry an explicit offset or zone; naiveLayouts do not.
// Layouts are tried in order, first parse wins.
var (
	zonedLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05 -0700",
		time.RFC1123Z,
		time.RFC1123,
	}

	naiveLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"02 Jan 2006 15:04:05",
		"02 Jan 2006",
		"January 2, 2006",
		"15:04:05",
		"15:04",
	}
)

// ParseDateTime parses s against the known layouts, zoned first.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	for _, layout := range naiveLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("cannot parse %q as a date/time", s)
}

// ParseNaiveDateTime parses s discarding any zone information: the
// wall-clock reading is kept and pinned to UTC.
func ParseNaiveDateTime(s string) (time.Time, error) {
	t, err := ParseDateTime(s)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
}

// ParseTime parses s and keeps only the time-of-day part, on the zero
// date.
func ParseTime(s string) (time.Time, error) {
	t, err := ParseDateTime(s)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(0, time.January, 1,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
}

func asString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	}

	return "", fmt.Errorf("expected a string to parse as time, got %T", v)
}

func init() {
	convert.RegisterNamedConverter("datetime", func(v any) (any, error) {
		s, err := asString(v)
		if err != nil {
			return nil, err
		}

		return ParseDateTime(s)
	})

	convert.RegisterNamedConverter("time", func(v any) (any, error) {
		s, err := asString(v)
		if err != nil {
			return nil, err
		}

		return ParseTime(s)
	})

	convert.RegisterNamedConverter("datetime_naive", func(v any) (any, error) {
		s, err := asString(v)
		if err != nil {
			return nil, err
		}

		return ParseNaiveDateTime(s)
	})

	convert.RegisterNamedConverter("datetime_naive_to_utc", func(v any) (any, error) {
		s, err := asString(v)
		if err != nil {
			return nil, err
		}

		t, err := ParseNaiveDateTime(s)
		if err != nil {
			return nil, err
		}

		return t.UTC(), nil
	})
}
