// Package interval provides calendar-based recurrence arithmetic for
// subscription schedules.
//
// An Interval is a positive length paired with a calendar unit (day, week,
// month or year). The only operation is Since, which advances a base
// timestamp by the interval using time.Time.AddDate semantics. The package
// is pure: no clocks, no side effects, deterministic output for a given
// input, which keeps schedule computations trivially testable.
//
// Usage:
//
//	ivl := interval.Interval{Length: 1, Unit: interval.UnitMonth}
//	next := ivl.Since(subscription.ActionableDate)
package interval
