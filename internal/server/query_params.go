package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// timeWindow is an optional [StartAt, EndAt] filter read from the query string.
type timeWindow struct {
	StartAt *time.Time
	EndAt   *time.Time
}

// queryFlag reads a boolean query parameter. Absent means false.
func queryFlag(c *gin.Context, key string) (bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, newValidationError(key, "invalid_"+key, "invalid "+key)
	}
	return v, nil
}

// queryTimeWindow binds start_at and end_at. A bare date covers the whole UTC day.
func queryTimeWindow(c *gin.Context) (timeWindow, error) {
	var (
		window timeWindow
		errs   []ValidationError
	)

	for _, bound := range []struct {
		key  string
		end  bool
		slot **time.Time
	}{
		{key: "start_at", slot: &window.StartAt},
		{key: "end_at", end: true, slot: &window.EndAt},
	} {
		raw := strings.TrimSpace(c.Query(bound.key))
		if raw == "" {
			continue
		}
		ts, ok := parseQueryTime(raw, bound.end)
		if !ok {
			errs = append(errs, ValidationError{Field: bound.key, Code: "invalid_" + bound.key, Message: "invalid " + bound.key})
			continue
		}
		*bound.slot = &ts
	}

	if len(errs) == 0 && window.StartAt != nil && window.EndAt != nil && window.EndAt.Before(*window.StartAt) {
		errs = append(errs, ValidationError{Field: "end_at", Code: "invalid_range", Message: "end_at is before start_at"})
	}
	if len(errs) > 0 {
		return timeWindow{}, &ValidationErrors{Errors: errs}
	}
	return window, nil
}

func parseQueryTime(raw string, endOfDay bool) (time.Time, bool) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), true
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, false
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Nanosecond), true
	}
	return day, true
}
