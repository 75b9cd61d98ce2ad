package api

import (
	"time"

	"github.com/pkg/errors"
)

// Accepted input layouts for proposal windows. The short form has no zone
// and is read as UTC.
var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04"}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Errorf("invalid time %q, expected RFC3339 or YYYY-MM-DDTHH:MM", s)
}
