package http

import (
	"time"

	xutil "LoadCoach/pkg/util"
)

// ParseDayDefault parses a YYYY-MM-DD day or returns def truncated to a day.
func ParseDayDefault(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return xutil.StartOfDay(def), nil
	}
	return xutil.ParseDay(s)
}
