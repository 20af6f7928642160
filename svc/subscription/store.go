package subscription

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subskit/pkg/interval"
)

// InstallmentRef is the slim projection the scheduler works with: enough to
// group installments per user by shipping address without loading full
// entities into the hot path.
type InstallmentRef struct {
	InstallmentID     uuid.UUID
	SubscriptionID    uuid.UUID
	UserID            uuid.UUID
	ShippingAddressID uuid.UUID
}

// LineItemUpdate is a partial update of a persisted line item. Nil fields
// are left unchanged. A quantity of zero removes the line item.
type LineItemUpdate struct {
	Quantity       *int
	IntervalLength *int
	IntervalUnit   *interval.Unit
}

// CartUpdater propagates line item quantity changes back to the linked
// storefront cart line. The storefront is an external collaborator; a nil
// updater disables propagation.
type CartUpdater interface {
	UpdateCartLineItemQuantity(ctx context.Context, cartLineItemID uuid.UUID, quantity int) error
}
