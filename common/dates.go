package common

import (
	"strings"
	"time"

	"github.com/go-errors/errors"
)

// Layouts accepted by ParseDate. Values without a zone are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
}

// ParseDate reads the dates found in health certificates: full ISO 8601
// timestamps, bare dates, or the reduced precision birth dates of the DCC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}

	return time.Time{}, errors.Errorf("Could not parse date '%s'", s)
}

// IsDate reports whether s is accepted by ParseDate
func IsDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}
