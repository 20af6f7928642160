package processor

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subskit/pkg/logger"
	"github.com/dmitrymomot/subskit/pkg/queue"
	"github.com/dmitrymomot/subskit/svc/dispatcher"
	"github.com/dmitrymomot/subskit/svc/subscription"
)

// ProcessInstallmentsTask carries one shipping-address group of
// installments to the queue. Only IDs travel; the handler reloads current
// state so stale payloads cannot resurrect resolved installments.
type ProcessInstallmentsTask struct {
	InstallmentIDs []uuid.UUID `json:"installment_ids"`
}

// OrderStatus is the terminal status of an order creation attempt.
type OrderStatus string

const (
	// OrderPaid means the order checked out and payment captured.
	OrderPaid OrderStatus = "paid"
	// OrderPaymentFailed means payment authorization was rejected.
	OrderPaymentFailed OrderStatus = "payment_failed"
	// OrderFailed means checkout broke after the order was started.
	OrderFailed OrderStatus = "failed"
)

// OrderResult reports how an order creation attempt ended. OrderID is nil
// when the attempt died before an order existed.
type OrderResult struct {
	OrderID *uuid.UUID
	Status  OrderStatus
}

// OrderCreator is the storefront collaborator that turns a group of
// installments into one order and takes payment for it.
type OrderCreator interface {
	CreateOrder(ctx context.Context, installments []*subscription.Installment) (OrderResult, error)
}

// InstallmentLoader loads installments for the task handler. Both store
// implementations satisfy it.
type InstallmentLoader interface {
	GetInstallments(ctx context.Context, ids []uuid.UUID) ([]*subscription.Installment, error)
}

// OutcomeDispatcher resolves an order attempt onto its installments.
// Satisfied by dispatcher.Dispatcher.
type OutcomeDispatcher interface {
	Dispatch(ctx context.Context, outcome dispatcher.Outcome, orderID *uuid.UUID, installments []*subscription.Installment) error
}

// NewProcessInstallmentsHandler builds the queue handler that consumes
// ProcessInstallmentsTask. It loads the group, asks the order creator to
// place one order for it and dispatches the resulting outcome. An order
// creation error escalates to the admin outcome instead of failing the
// task: the installments stay unresolved and the next scheduler pass picks
// them up again.
func NewProcessInstallmentsHandler(store InstallmentLoader, creator OrderCreator, disp OutcomeDispatcher, log *slog.Logger) queue.Handler {
	if log == nil {
		log = slog.Default()
	}

	return queue.NewTaskHandler(func(ctx context.Context, task ProcessInstallmentsTask) error {
		if len(task.InstallmentIDs) == 0 {
			return nil
		}

		loaded, err := store.GetInstallments(ctx, task.InstallmentIDs)
		if err != nil {
			return err
		}

		// Drop installments resolved since the task was enqueued.
		installments := loaded[:0]
		for _, inst := range loaded {
			if inst.Actionable() {
				installments = append(installments, inst)
			}
		}
		if len(installments) == 0 {
			return nil
		}

		result, err := creator.CreateOrder(ctx, installments)
		outcome := outcomeFor(result, err)
		if err != nil {
			log.LogAttrs(ctx, slog.LevelError, "order creation failed, escalating",
				logger.InstallmentIDs(task.InstallmentIDs),
				logger.Error(err),
			)
		}

		return disp.Dispatch(ctx, outcome, result.OrderID, installments)
	})
}

func outcomeFor(result OrderResult, err error) dispatcher.Outcome {
	if err != nil {
		return dispatcher.OutcomeAdmin
	}
	switch result.Status {
	case OrderPaid:
		return dispatcher.OutcomeSuccess
	case OrderPaymentFailed:
		return dispatcher.OutcomePaymentFailed
	case OrderFailed:
		return dispatcher.OutcomeFailure
	default:
		return dispatcher.OutcomeAdmin
	}
}
