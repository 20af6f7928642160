package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subskit/pkg/logger"
	"github.com/dmitrymomot/subskit/svc/subscription"
)

// InstallmentStore persists installment outcome mutations.
type InstallmentStore interface {
	SaveInstallment(ctx context.Context, inst *subscription.Installment) error
}

// OrderService is the storefront collaborator for order-level side effects
// of an outcome. Implementations talk to whatever order system fulfills the
// recurring orders.
type OrderService interface {
	Cancel(ctx context.Context, orderID uuid.UUID) error
	TouchCompletion(ctx context.Context, orderID uuid.UUID, at time.Time) error
}

// Dispatcher applies the entity and order mutations for a processing
// outcome and sends the outcome notification. The notification is best
// effort: a notifier failure is logged and never fails the dispatch.
type Dispatcher struct {
	store    InstallmentStore
	orders   OrderService
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithNotifier sets the outcome notifier. Defaults to NopNotifier.
func WithNotifier(n Notifier) Option {
	return func(d *Dispatcher) {
		d.notifier = n
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.log = log
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// New creates a Dispatcher. The order service handles outcome side effects
// on the storefront order; installment mutations go through the store.
func New(store InstallmentStore, orders OrderService, opts ...Option) (*Dispatcher, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if orders == nil {
		return nil, ErrOrderServiceNil
	}

	d := &Dispatcher{
		store:    store,
		orders:   orders,
		notifier: NopNotifier{},
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch runs the outcome's installment and order mutations, persists the
// mutated installments and notifies. The order reference may be nil when
// the attempt never produced an order; every outcome tolerates that.
func (d *Dispatcher) Dispatch(ctx context.Context, outcome Outcome, orderID *uuid.UUID, installments []*subscription.Installment) error {
	variant, ok := lookup(outcome)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOutcome, outcome)
	}

	now := d.now()
	if err := variant.Mutate(ctx, d.orders, orderID, installments, now); err != nil {
		return fmt.Errorf("failed to apply %s outcome: %w", outcome, err)
	}

	for _, inst := range installments {
		if err := d.store.SaveInstallment(ctx, inst); err != nil {
			return fmt.Errorf("failed to persist installment %s: %w", inst.ID, err)
		}
	}

	ids := installmentIDs(installments)
	notification := Notification{
		Outcome:        outcome,
		Message:        variant.Message(installments),
		OrderID:        orderID,
		InstallmentIDs: ids,
	}
	if err := d.notifier.Notify(ctx, notification); err != nil {
		d.log.LogAttrs(ctx, slog.LevelError, "outcome notification failed",
			slog.String("outcome", string(outcome)),
			logger.InstallmentIDs(ids),
			logger.Error(err),
		)
	}
	return nil
}

func installmentIDs(installments []*subscription.Installment) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(installments))
	for _, inst := range installments {
		ids = append(ids, inst.ID)
	}
	return ids
}
