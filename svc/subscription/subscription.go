package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subskit/pkg/interval"
)

// State is the lifecycle state of a subscription.
type State string

const (
	// StateActive subscriptions are considered for processing.
	StateActive State = "active"
	// StateCanceled is terminal: the customer or an end date stopped the
	// subscription. There is no resume.
	StateCanceled State = "canceled"
	// StateInactive is terminal: the configured installment cap has been
	// exhausted.
	StateInactive State = "inactive"
)

// Subscription groups the information needed to place recurring orders for
// one customer and shipping address. The scheduler advances ActionableDate
// each cycle and creates an Installment per due cycle.
type Subscription struct {
	ID                  uuid.UUID
	UserID              uuid.UUID
	State               State
	IntervalLength      int
	IntervalUnit        interval.Unit
	ActionableDate      time.Time
	EndDate             *time.Time
	SuccessiveSkipCount int
	ShippingAddressID   uuid.UUID
	RemindedAt          *time.Time
	InstallmentCap      int // 0 means uncapped
	InstallmentCount    int
	CreatedAt           time.Time
	LineItems           []LineItem
}

// Interval returns the subscription-level recurrence interval. It overrides
// any per-line-item interval.
func (s *Subscription) Interval() interval.Interval {
	return interval.Interval{Length: s.IntervalLength, Unit: s.IntervalUnit}
}

// NextActionableDate computes the date of the cycle after the current one.
func (s *Subscription) NextActionableDate() time.Time {
	return s.Interval().Since(s.ActionableDate)
}

// AdvanceActionableDate moves the schedule forward by one interval from the
// previous actionable date, clamped to now so a long-idle subscription does
// not come due in the past. Returns the new date.
func (s *Subscription) AdvanceActionableDate(now time.Time) time.Time {
	next := s.Interval().Since(s.ActionableDate)
	if next.Before(now) {
		next = now
	}
	s.ActionableDate = next
	return next
}

// Skip advances the schedule by one interval without creating an
// installment and counts the consecutive skips. Only active subscriptions
// can be skipped.
func (s *Subscription) Skip(now time.Time) error {
	if s.State != StateActive {
		return ErrNotActive
	}
	s.SuccessiveSkipCount++
	s.AdvanceActionableDate(now)
	return nil
}

// PendingCancellation reports whether the subscription has run past its end
// date, or would on the next cycle.
func (s *Subscription) PendingCancellation(now time.Time) bool {
	if s.EndDate == nil {
		return false
	}
	return s.EndDate.Before(now) || s.NextActionableDate().After(*s.EndDate)
}

// CanBeDeactivated reports whether the installment cap has been reached.
func (s *Subscription) CanBeDeactivated() bool {
	return s.InstallmentCap > 0 && s.InstallmentCount >= s.InstallmentCap
}

// Cancel transitions the subscription to canceled. Canceling an already
// canceled subscription is a no-op; a deactivated subscription cannot be
// canceled.
func (s *Subscription) Cancel() error {
	switch s.State {
	case StateCanceled:
		return nil
	case StateInactive:
		return ErrNotActive
	}
	s.State = StateCanceled
	return nil
}

// Deactivate transitions the subscription to inactive once its installment
// cap is exhausted. Deactivating twice is a no-op; a canceled subscription
// stays canceled.
func (s *Subscription) Deactivate() error {
	switch s.State {
	case StateInactive:
		return nil
	case StateCanceled:
		return ErrAlreadyCanceled
	}
	s.State = StateInactive
	return nil
}

// ActionableAt reports whether the subscription is due for processing:
// active, actionable date reached, and end date (if set) not yet passed.
func (s *Subscription) ActionableAt(now time.Time) bool {
	if s.State != StateActive {
		return false
	}
	if s.ActionableDate.After(now) {
		return false
	}
	if s.EndDate != nil && s.EndDate.Before(now) {
		return false
	}
	return true
}

// AdvanceForProcessing applies the due-cycle transitions in scheduler
// order: reset the skip counter, advance the actionable date, then cancel
// if the end date is (or would be) exceeded, else deactivate if the cap is
// reached. Cancellation wins when both conditions hold. Returns whether an
// installment should be created for this cycle: a cancellation still gets
// its final due installment, a cap deactivation does not.
func (s *Subscription) AdvanceForProcessing(now time.Time) bool {
	s.SuccessiveSkipCount = 0
	s.AdvanceActionableDate(now)

	switch {
	case s.PendingCancellation(now):
		_ = s.Cancel()
		return true
	case s.CanBeDeactivated():
		_ = s.Deactivate()
		return false
	}
	return true
}

// NeedsReminderAt reports whether an upcoming-order reminder is due: the
// subscription is active, comes due within lead, and has not been reminded
// for the current cycle yet.
func (s *Subscription) NeedsReminderAt(now time.Time, lead time.Duration) bool {
	if s.State != StateActive {
		return false
	}
	if s.ActionableDate.Before(now) || s.ActionableDate.After(now.Add(lead)) {
		return false
	}
	if s.RemindedAt == nil {
		return true
	}
	// Reminded during a previous cycle does not count for this one.
	return s.RemindedAt.Before(s.ActionableDate.Add(-lead))
}

// Validate checks the subscription can be persisted.
func (s *Subscription) Validate() error {
	ivl := s.Interval()
	if err := ivl.Validate(); err != nil {
		return err
	}
	if s.UserID == uuid.Nil {
		return ErrUserRequired
	}
	for i := range s.LineItems {
		if err := s.LineItems[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
