package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subskit/pkg/interval"
)

// LineItem associates a subscribable (a product variant in the storefront)
// with a subscription: how many units to include in each recurring order.
// The interval fields matter only for line items not yet attached to a
// subscription; once owned, the subscription's interval wins.
type LineItem struct {
	ID             uuid.UUID
	SubscriptionID uuid.UUID
	SubscribableID uuid.UUID
	Quantity       int
	IntervalLength int
	IntervalUnit   interval.Unit
	CartLineItemID *uuid.UUID // optional link back to the storefront cart line
	CreatedAt      time.Time
}

// Interval returns the line item's own recurrence interval. Callers holding
// the owning subscription should prefer Subscription.Interval.
func (li *LineItem) Interval() interval.Interval {
	return interval.Interval{Length: li.IntervalLength, Unit: li.IntervalUnit}
}

// Validate checks the line item can be persisted. The interval is only
// required for standalone line items; owned ones inherit the subscription's.
func (li *LineItem) Validate() error {
	if li.SubscribableID == uuid.Nil {
		return ErrSubscribableRequired
	}
	if li.Quantity <= 0 {
		return ErrQuantityNotPositive
	}
	if li.SubscriptionID == uuid.Nil {
		if err := li.Interval().Validate(); err != nil {
			return err
		}
	}
	return nil
}
