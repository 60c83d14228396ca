package request

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"kreltrack/internal/shared/biztime"
)

// NumberGenerator hands out request numbers of the form YYYYMMDD-NNN, where
// the date is the business day of at and NNN the next sequence for that day.
type NumberGenerator interface {
	Next(ctx context.Context, at time.Time) (string, error)
}

// SequenceSource reports the highest number already issued for a day, or ""
// when none exists. Deleted requests still count so numbers are never reused.
type SequenceSource interface {
	LastNumberForDay(ctx context.Context, day string) (string, error)
}

var numberPattern = regexp.MustCompile(`^\d{8}-\d{3,}$`)

func ValidateNumber(number string) error {
	if !numberPattern.MatchString(number) {
		return fmt.Errorf("invalid request number %q", number)
	}
	return nil
}

func FormatNumber(day string, seq int) string {
	return fmt.Sprintf("%s-%03d", day, seq)
}

// SequenceOf extracts the numeric suffix of a request number.
func SequenceOf(number string) (int, error) {
	if err := ValidateNumber(number); err != nil {
		return 0, err
	}
	return strconv.Atoi(number[strings.IndexByte(number, '-')+1:])
}

// StoreNumberGenerator derives the next number from what the store already
// holds. Callers serialise Next with the insert that uses its result.
type StoreNumberGenerator struct {
	source SequenceSource
}

func NewStoreNumberGenerator(source SequenceSource) *StoreNumberGenerator {
	return &StoreNumberGenerator{source: source}
}

func (g *StoreNumberGenerator) Next(ctx context.Context, at time.Time) (string, error) {
	day := biztime.DayKey(at)
	last, err := g.source.LastNumberForDay(ctx, day)
	if err != nil {
		return "", fmt.Errorf("failed to read last request number: %w", err)
	}
	seq := 0
	if last != "" {
		if seq, err = SequenceOf(last); err != nil {
			return "", err
		}
	}
	return FormatNumber(day, seq+1), nil
}
