package httpx

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/splax/heatlens/internal/domain"
)

const dayLayout = "2006-01-02"

var errInvalidDays = errors.New("days must be a positive integer")

// parseInstant accepts RFC3339 or a calendar day. A calendar day used as an exclusive
// end bound is moved to the following midnight so the whole day is included.
func parseInstant(value string, end bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	day, err := time.Parse(dayLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: use RFC3339 or YYYY-MM-DD", value)
	}
	if end {
		day = day.AddDate(0, 0, 1)
	}
	return day.UTC(), nil
}

// parsePeriod reads the start and end parameters named startKey and endKey.
func parsePeriod(q url.Values, startKey, endKey string) (domain.Period, error) {
	start, err := parseInstant(q.Get(startKey), false)
	if err != nil {
		return domain.Period{}, fmt.Errorf("%s: %w", startKey, err)
	}
	end, err := parseInstant(q.Get(endKey), true)
	if err != nil {
		return domain.Period{}, fmt.Errorf("%s: %w", endKey, err)
	}
	return domain.Period{Start: start, End: end}, nil
}

// requirePeriod is parsePeriod for ranges that must be given explicitly.
func requirePeriod(q url.Values, startKey, endKey string) (domain.Period, error) {
	if strings.TrimSpace(q.Get(startKey)) == "" || strings.TrimSpace(q.Get(endKey)) == "" {
		return domain.Period{}, fmt.Errorf("%s and %s are required", startKey, endKey)
	}
	return parsePeriod(q, startKey, endKey)
}

func parseDays(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	days, err := strconv.Atoi(value)
	if err != nil || days <= 0 {
		return 0, errInvalidDays
	}
	return days, nil
}
