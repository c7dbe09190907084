// Package dates handles the calendar-date strings stored on vehicles,
// devices and service records.
package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layout is the wire and storage format for calendar dates.
const Layout = "2006-01-02"

var (
	ErrEmpty     = errors.New("date is empty")
	ErrMalformed = errors.New("malformed date")
)

// Parse accepts YYYY-MM-DD (read as UTC midnight) or RFC 3339.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmpty
	}
	if t, err := time.Parse(Layout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformed, s)
}

// Normalize validates an optional date and rewrites it as YYYY-MM-DD.
// nil and blank strings both normalize to nil.
func Normalize(s *string) (*string, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := Parse(*s)
	if err != nil {
		return nil, err
	}
	out := t.Format(Layout)
	return &out, nil
}

// AddDays returns the date n days after s, in Layout.
func AddDays(s string, n int) (string, error) {
	t, err := Parse(s)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(Layout), nil
}
