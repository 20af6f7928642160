package subscription

import (
	"context"

	"github.com/google/uuid"
)

// OrderLine is the read-only artifact a storefront produces when asked how a
// set of subscription line items would appear on an order: resolved variant,
// quantity and current price. Nothing here is persisted.
type OrderLine struct {
	SubscribableID uuid.UUID
	Description    string
	Quantity       int
	UnitPriceCents int64
}

// Total returns the line's price in cents.
func (ol OrderLine) Total() int64 {
	return ol.UnitPriceCents * int64(ol.Quantity)
}

// LineItemBuilder turns subscription line items into order-line previews.
// The storefront owns pricing and variant resolution, so implementations live
// outside this package; the scheduler never calls it.
type LineItemBuilder interface {
	OrderLines(ctx context.Context, items []LineItem) ([]OrderLine, error)
}

// PreviewOrderLines shows what the subscription's next recurring order would
// contain at today's prices. Read-only: no order is created and no state
// changes.
func (s *Subscription) PreviewOrderLines(ctx context.Context, b LineItemBuilder) ([]OrderLine, error) {
	if b == nil {
		return nil, ErrBuilderNil
	}
	return b.OrderLines(ctx, s.LineItems)
}

// Preview builds the order-line artifact for a single line item, typically a
// standalone one still sitting in a cart.
func (li *LineItem) Preview(ctx context.Context, b LineItemBuilder) (OrderLine, error) {
	if b == nil {
		return OrderLine{}, ErrBuilderNil
	}
	lines, err := b.OrderLines(ctx, []LineItem{*li})
	if err != nil {
		return OrderLine{}, err
	}
	if len(lines) == 0 {
		return OrderLine{}, ErrNotFound
	}
	return lines[0], nil
}
