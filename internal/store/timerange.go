package store

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeRange represents a time range for queries.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// ParseTimeRange parses Splunk-like time range specifications:
//
//	now, today, yesterday
//	-15m, -1h, -7d, -1w       relative to now
//	-1h@h, @d                 relative, snapped to a unit boundary
//	2024-01-15, 2024-01-15T14:30:00, RFC 3339
//	1704067200                Unix seconds (or milliseconds)
func ParseTimeRange(earliest, latest string) (*TimeRange, error) {
	return parseTimeRangeAt(earliest, latest, time.Now())
}

func parseTimeRangeAt(earliest, latest string, now time.Time) (*TimeRange, error) {
	start, err := parseTimeSpec(earliest, now)
	if err != nil {
		return nil, fmt.Errorf("invalid earliest time '%s': %w", earliest, err)
	}

	end, err := parseTimeSpec(latest, now)
	if err != nil {
		return nil, fmt.Errorf("invalid latest time '%s': %w", latest, err)
	}

	if start.After(end) {
		return nil, fmt.Errorf("earliest time (%s) is after latest time (%s)", start, end)
	}

	return &TimeRange{Start: start, End: end}, nil
}

var relativeRe = regexp.MustCompile(`^([+-])(\d+)([smhdw])(?:@([smhdw]))?$`)

func parseTimeSpec(spec string, now time.Time) (time.Time, error) {
	spec = strings.TrimSpace(spec)

	switch strings.ToLower(spec) {
	case "", "now":
		return now, nil
	case "today":
		return truncateToDay(now), nil
	case "yesterday":
		return truncateToDay(now.AddDate(0, 0, -1)), nil
	}

	if ts, err := strconv.ParseInt(spec, 10, 64); err == nil {
		if ts > 1e12 {
			return time.UnixMilli(ts), nil
		}
		return time.Unix(ts, 0), nil
	}

	if strings.HasPrefix(spec, "@") {
		return snapToBoundary(now, spec[1:])
	}

	if m := relativeRe.FindStringSubmatch(spec); m != nil {
		amount, _ := strconv.Atoi(m[2])
		if m[1] == "-" {
			amount = -amount
		}
		t := addUnits(now, amount, m[3])
		if m[4] != "" {
			return snapToBoundary(t, m[4])
		}
		return t, nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, spec, time.Local); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format")
}

func addUnits(t time.Time, amount int, unit string) time.Time {
	switch unit {
	case "s":
		return t.Add(time.Duration(amount) * time.Second)
	case "m":
		return t.Add(time.Duration(amount) * time.Minute)
	case "h":
		return t.Add(time.Duration(amount) * time.Hour)
	case "d":
		return t.AddDate(0, 0, amount)
	case "w":
		return t.AddDate(0, 0, amount*7)
	}
	return t
}

func snapToBoundary(t time.Time, unit string) (time.Time, error) {
	switch unit {
	case "s":
		return t.Truncate(time.Second), nil
	case "m":
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location()), nil
	case "h":
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location()), nil
	case "d":
		return truncateToDay(t), nil
	case "w":
		// Weeks start on Monday
		offset := (int(t.Weekday()) + 6) % 7
		return truncateToDay(t.AddDate(0, 0, -offset)), nil
	}
	return time.Time{}, fmt.Errorf("unknown snap unit: %s", unit)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
