package interval

import (
	"fmt"
	"time"
)

// Unit is the calendar unit an interval is measured in.
type Unit string

const (
	UnitDay   Unit = "day"
	UnitWeek  Unit = "week"
	UnitMonth Unit = "month"
	UnitYear  Unit = "year"
)

// Valid checks if the unit is one of the supported calendar units.
func (u Unit) Valid() bool {
	switch u {
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
		return true
	}
	return false
}

// ParseUnit converts a string into a Unit.
func ParseUnit(s string) (Unit, error) {
	u := Unit(s)
	if !u.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
	}
	return u, nil
}

// Interval is a recurrence period expressed as a length of calendar units.
type Interval struct {
	Length int  `json:"length"`
	Unit   Unit `json:"unit"`
}

// Validate checks that the interval can be used for schedule arithmetic.
func (i Interval) Validate() error {
	if i.Length <= 0 {
		return fmt.Errorf("%w: %d", ErrNonPositiveLength, i.Length)
	}
	if !i.Unit.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownUnit, i.Unit)
	}
	return nil
}

// Since returns base advanced by the interval. Calendar arithmetic is used,
// so "1 month since Jan 31" normalizes the same way time.Time.AddDate does.
func (i Interval) Since(base time.Time) time.Time {
	switch i.Unit {
	case UnitWeek:
		return base.AddDate(0, 0, 7*i.Length)
	case UnitMonth:
		return base.AddDate(0, i.Length, 0)
	case UnitYear:
		return base.AddDate(i.Length, 0, 0)
	default:
		return base.AddDate(0, 0, i.Length)
	}
}

func (i Interval) String() string {
	if i.Length == 1 {
		return fmt.Sprintf("every %s", i.Unit)
	}
	return fmt.Sprintf("every %d %ss", i.Length, i.Unit)
}
