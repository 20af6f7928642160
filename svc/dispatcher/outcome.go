package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subskit/svc/subscription"
)

// Outcome classifies how an order attempt for a group of installments
// ended.
type Outcome string

const (
	// OutcomeSuccess means the order was placed and paid.
	OutcomeSuccess Outcome = "success"
	// OutcomePaymentFailed means payment authorization was rejected.
	OutcomePaymentFailed Outcome = "payment_failed"
	// OutcomeFailure means order processing failed after checkout started.
	OutcomeFailure Outcome = "failure"
	// OutcomeAdmin means something unexpected broke and a human should look.
	OutcomeAdmin Outcome = "admin"
)

// Variant is the behaviour of one outcome kind: the entity and order
// mutations to apply, and the notification message to send afterwards.
type Variant struct {
	Mutate  func(ctx context.Context, orders OrderService, orderID *uuid.UUID, installments []*subscription.Installment, now time.Time) error
	Message func(installments []*subscription.Installment) string
}

var (
	registryMu sync.RWMutex
	registry   = map[Outcome]Variant{
		OutcomeSuccess: {
			Mutate:  mutateSuccess,
			Message: messageSuccess,
		},
		OutcomePaymentFailed: {
			Mutate:  mutatePaymentFailed,
			Message: messagePaymentFailed,
		},
		OutcomeFailure: {
			Mutate:  mutateFailure,
			Message: messageFailure,
		},
		OutcomeAdmin: {
			Mutate:  mutateAdmin,
			Message: messageAdmin,
		},
	}
)

// Register adds or replaces the variant for an outcome. It allows host
// applications to hook custom outcome kinds into the dispatch table.
func Register(outcome Outcome, v Variant) error {
	if v.Mutate == nil || v.Message == nil {
		return ErrIncompleteVariant
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[outcome] = v
	return nil
}

func lookup(outcome Outcome) (Variant, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	v, ok := registry[outcome]
	return v, ok
}

func mutateSuccess(ctx context.Context, orders OrderService, orderID *uuid.UUID, installments []*subscription.Installment, now time.Time) error {
	for _, inst := range installments {
		inst.MarkSuccess(orderID, now)
	}
	return nil
}

func mutatePaymentFailed(ctx context.Context, orders OrderService, orderID *uuid.UUID, installments []*subscription.Installment, now time.Time) error {
	if err := cancelOrder(ctx, orders, orderID); err != nil {
		return err
	}
	for _, inst := range installments {
		inst.MarkPaymentFailed(orderID, now)
	}
	return nil
}

func mutateFailure(ctx context.Context, orders OrderService, orderID *uuid.UUID, installments []*subscription.Installment, now time.Time) error {
	if orderID != nil {
		if err := orders.TouchCompletion(ctx, *orderID, now); err != nil {
			return fmt.Errorf("failed to touch order completion: %w", err)
		}
	}
	if err := cancelOrder(ctx, orders, orderID); err != nil {
		return err
	}
	for _, inst := range installments {
		inst.MarkFailed(orderID, subscription.ReasonProcessingFailed, now)
	}
	return nil
}

func mutateAdmin(ctx context.Context, orders OrderService, orderID *uuid.UUID, installments []*subscription.Installment, now time.Time) error {
	if err := cancelOrder(ctx, orders, orderID); err != nil {
		return err
	}
	for _, inst := range installments {
		inst.MarkFailed(orderID, subscription.ReasonProcessingFailed, now)
	}
	return nil
}

// cancelOrder tolerates attempts that never produced an order.
func cancelOrder(ctx context.Context, orders OrderService, orderID *uuid.UUID) error {
	if orderID == nil {
		return nil
	}
	if err := orders.Cancel(ctx, *orderID); err != nil {
		return fmt.Errorf("failed to cancel order %s: %w", orderID, err)
	}
	return nil
}

func messageSuccess(installments []*subscription.Installment) string {
	return "Successfully processed installments: " + joinIDs(installments)
}

func messagePaymentFailed(installments []*subscription.Installment) string {
	return "The following installments could not be processed due to payment authorization failure: " + joinIDs(installments)
}

func messageFailure(installments []*subscription.Installment) string {
	return "Something went wrong processing installments: " + joinIDs(installments) + ". They have been marked for reprocessing."
}

func messageAdmin(installments []*subscription.Installment) string {
	return "Something went wrong processing installments: " + joinIDs(installments) + ". They have been marked for reprocessing. Contact the developer team to help you out."
}

func joinIDs(installments []*subscription.Installment) string {
	ids := make([]string, 0, len(installments))
	for _, inst := range installments {
		ids = append(ids, inst.ID.String())
	}
	return strings.Join(ids, ", ")
}
