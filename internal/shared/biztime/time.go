// Package biztime holds the plant's business timezone.
// Timestamps are stored in UTC; the business zone decides which calendar day
// a request belongs to and how operator-entered dates are read.
package biztime

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTimezone = "Asia/Ho_Chi_Minh"

	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"
	DayKeyLayout   = "20060102"
)

var (
	mu          sync.RWMutex
	bizLocation *time.Location
)

// Init sets the business timezone. An empty tz selects DefaultTimezone.
func Init(tz string) error {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("load business timezone %q: %w", tz, err)
	}
	mu.Lock()
	bizLocation = loc
	mu.Unlock()
	return nil
}

// Location returns the business timezone, initialising the default lazily.
func Location() *time.Location {
	mu.RLock()
	loc := bizLocation
	mu.RUnlock()
	if loc != nil {
		return loc
	}
	if err := Init(""); err != nil {
		// tzdata missing; fall back to a fixed UTC+7 zone
		mu.Lock()
		bizLocation = time.FixedZone("ICT", 7*3600)
		mu.Unlock()
	}
	mu.RLock()
	defer mu.RUnlock()
	return bizLocation
}

func NowUTC() time.Time {
	return time.Now().UTC()
}

// DayKey returns the YYYYMMDD business day of t.
func DayKey(t time.Time) string {
	return t.In(Location()).Format(DayKeyLayout)
}

// StartOfDayUTC returns business midnight of t's day, in UTC.
func StartOfDayUTC(t time.Time) time.Time {
	b := t.In(Location())
	return time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, Location()).UTC()
}

// EndOfDayUTC returns the last instant of t's business day, in UTC.
func EndOfDayUTC(t time.Time) time.Time {
	b := t.In(Location())
	return time.Date(b.Year(), b.Month(), b.Day(), 23, 59, 59, 999999999, Location()).UTC()
}

// ParseDateTime reads "YYYY-MM-DD HH:MM" or "YYYY-MM-DD" in the business zone
// and returns the UTC instant.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateTimeLayout, DateLayout, time.RFC3339} {
		if t, err := time.ParseInLocation(layout, s, Location()); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected %s or %s", s, DateTimeLayout, DateLayout)
}

// FormatDateTime renders t in the business zone using DateTimeLayout.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(Location()).Format(DateTimeLayout)
}

func ToBizTimezone(t time.Time) time.Time {
	return t.In(Location())
}
