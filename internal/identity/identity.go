// Package identity derives the per-day key that names one occurrence of a
// recurring template. The key is the only handle used to store completion.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	separator = "_"
	dayLayout = "2006-01-02"
)

var ErrMalformedKey = errors.New("identity: malformed key")

// Key names a single calendar-day occurrence, e.g. "tmpl-42_2024-01-05".
// Days are limited to years 0001 through 9999, the range the four-digit year
// round-trips through Parse; recurrence windows enforce the same bounds.
type Key string

func (k Key) String() string { return string(k) }

// Make builds the key for templateID on the calendar day of day, evaluated in
// day's own location. Time of day is ignored.
func Make(templateID string, day time.Time) Key {
	return Key(templateID + separator + day.Format(dayLayout))
}

// Parse splits a key back into its template id and day. The returned day is
// midnight UTC of the encoded calendar date.
func Parse(k Key) (string, time.Time, error) {
	raw := string(k)
	idx := strings.LastIndex(raw, separator)
	if idx <= 0 || idx == len(raw)-1 {
		return "", time.Time{}, fmt.Errorf("%w: %q", ErrMalformedKey, raw)
	}
	templateID := raw[:idx]
	if strings.TrimSpace(templateID) == "" {
		return "", time.Time{}, fmt.Errorf("%w: empty template id in %q", ErrMalformedKey, raw)
	}
	day, err := time.Parse(dayLayout, raw[idx+1:])
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %q: %v", ErrMalformedKey, raw, err)
	}
	return templateID, day, nil
}

// TemplateID returns only the template part of k.
func TemplateID(k Key) (string, error) {
	id, _, err := Parse(k)
	return id, err
}

// SameDay reports whether a and b fall on the same calendar date, each read in
// its own location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
