package services

import (
	"fmt"
	"time"
)

const (
	periodLayout = "2006-01"
	dateLayout   = "2006-01-02"
)

// parsePeriod validates a yyyy-mm period string and returns its year
// and calendar month.
func parsePeriod(period string) (int, time.Month, error) {
	t, err := time.Parse(periodLayout, period)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid period %q, expected yyyy-mm", ErrInvalidArgument, period)
	}
	return t.Year(), t.Month(), nil
}

// parseDate parses a yyyy-mm-dd date string.
func parseDate(date string) (time.Time, error) {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected yyyy-mm-dd", ErrInvalidArgument, date)
	}
	return t, nil
}

// checkPeriodContainment enforces that a movement's date falls inside
// the calendar month encoded in its declared period.
func checkPeriodContainment(period string, date time.Time) error {
	year, month, err := parsePeriod(period)
	if err != nil {
		return err
	}
	if date.Year() != year || date.Month() != month {
		return fmt.Errorf("%w: date outside period", ErrInvalidArgument)
	}
	return nil
}
