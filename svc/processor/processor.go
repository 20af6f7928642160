package processor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subskit/pkg/logger"
	"github.com/dmitrymomot/subskit/pkg/queue"
	"github.com/dmitrymomot/subskit/svc/subscription"
)

// Config holds the scheduler tuning knobs.
type Config struct {
	// BatchSize bounds how many users one keyset page covers.
	BatchSize int `env:"PROCESSOR_BATCH_SIZE" envDefault:"100"`
	// ReminderLeadTime is how far ahead of the actionable date the
	// upcoming-order reminder goes out.
	ReminderLeadTime time.Duration `env:"PROCESSOR_REMINDER_LEAD_TIME" envDefault:"72h"`
}

// Store is the persistence surface the processor drives. Both
// subscription.MemoryStore and subscription.PgStore satisfy it.
type Store interface {
	UsersWithActionableWork(ctx context.Context, now time.Time, afterUserID uuid.UUID, limit int) ([]uuid.UUID, error)
	RetryInstallments(ctx context.Context, userID uuid.UUID, now time.Time) ([]subscription.InstallmentRef, error)
	AdvanceAndCreateInstallments(ctx context.Context, userID uuid.UUID, now time.Time) ([]subscription.InstallmentRef, error)
	SubscriptionsNeedingReminder(ctx context.Context, now time.Time, lead time.Duration, afterID uuid.UUID, limit int) ([]*subscription.Subscription, error)
	MarkReminded(ctx context.Context, subscriptionID uuid.UUID, at time.Time) error
}

// Enqueuer hands installment groups off for asynchronous processing.
// Satisfied by queue.Enqueuer.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload any, opts ...queue.EnqueueOption) error
}

// ReminderNotifier delivers upcoming-order reminders. A nil notifier
// disables the reminder sweep entirely.
type ReminderNotifier interface {
	RemindUpcomingOrder(ctx context.Context, sub *subscription.Subscription) error
}

// Processor is the recurring scheduler pass: it finds users with actionable
// work, advances their due subscriptions, creates the cycle's installments
// and enqueues one processing task per shipping address group. Failed and
// pending installments from earlier cycles ride along until they resolve.
type Processor struct {
	cfg      Config
	store    Store
	enqueuer Enqueuer
	reminder ReminderNotifier
	log      *slog.Logger
	now      func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithReminderNotifier enables the reminder sweep.
func WithReminderNotifier(n ReminderNotifier) Option {
	return func(p *Processor) {
		p.reminder = n
	}
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(p *Processor) {
		p.log = log
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

// New creates a Processor.
func New(cfg Config, store Store, enqueuer Enqueuer, opts ...Option) (*Processor, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if enqueuer == nil {
		return nil, ErrEnqueuerNil
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}

	p := &Processor{
		cfg:      cfg,
		store:    store,
		enqueuer: enqueuer,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run executes one scheduler pass. Errors of a single user's batch are
// logged and isolated so the rest of the pass proceeds; only iteration
// failures abort the pass. Running a second pass at the same instant
// produces no new installments and no schedule changes, though unresolved
// installments are re-enqueued (at-least-once hand-off).
func (p *Processor) Run(ctx context.Context) error {
	now := p.now()

	if err := p.processActionableUsers(ctx, now); err != nil {
		return err
	}
	return p.sendReminders(ctx, now)
}

func (p *Processor) processActionableUsers(ctx context.Context, now time.Time) error {
	cursor := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		users, err := p.store.UsersWithActionableWork(ctx, now, cursor, p.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(users) == 0 {
			return nil
		}

		for _, userID := range users {
			if err := p.processUser(ctx, userID, now); err != nil {
				p.log.LogAttrs(ctx, slog.LevelError, "failed to process user, skipping",
					logger.UserID(userID),
					logger.Error(err),
				)
			}
		}
		cursor = users[len(users)-1]
	}
}

// processUser gathers the user's unresolved installments, advances due
// subscriptions into fresh installments, then enqueues one task per
// shipping address so each group checks out as a single order.
func (p *Processor) processUser(ctx context.Context, userID uuid.UUID, now time.Time) error {
	retries, err := p.store.RetryInstallments(ctx, userID, now)
	if err != nil {
		return err
	}

	created, err := p.store.AdvanceAndCreateInstallments(ctx, userID, now)
	if err != nil {
		return err
	}

	groups := groupByAddress(append(retries, created...))
	for _, group := range groups {
		task := ProcessInstallmentsTask{InstallmentIDs: group}
		if err := p.enqueuer.Enqueue(ctx, task); err != nil {
			return err
		}
	}

	p.log.LogAttrs(ctx, slog.LevelInfo, "processed user subscriptions",
		logger.UserID(userID),
		slog.Int("retried_installments", len(retries)),
		slog.Int("new_installments", len(created)),
		slog.Int("groups", len(groups)),
	)
	return nil
}

func (p *Processor) sendReminders(ctx context.Context, now time.Time) error {
	if p.reminder == nil {
		return nil
	}

	cursor := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		subs, err := p.store.SubscriptionsNeedingReminder(ctx, now, p.cfg.ReminderLeadTime, cursor, p.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(subs) == 0 {
			return nil
		}

		for _, sub := range subs {
			if err := p.store.MarkReminded(ctx, sub.ID, now); err != nil {
				p.log.LogAttrs(ctx, slog.LevelError, "failed to mark subscription reminded",
					logger.SubscriptionID(sub.ID),
					logger.Error(err),
				)
				continue
			}
			if err := p.reminder.RemindUpcomingOrder(ctx, sub); err != nil {
				p.log.LogAttrs(ctx, slog.LevelError, "failed to send upcoming order reminder",
					logger.SubscriptionID(sub.ID),
					logger.UserID(sub.UserID),
					logger.Error(err),
				)
			}
		}
		cursor = subs[len(subs)-1].ID
	}
}

// groupByAddress splits installment refs into per-shipping-address ID
// groups, deduplicated and ordered within each group.
func groupByAddress(refs []subscription.InstallmentRef) [][]uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(refs))
	byAddress := make(map[uuid.UUID][]uuid.UUID)
	var order []uuid.UUID
	for _, ref := range refs {
		if _, dup := seen[ref.InstallmentID]; dup {
			continue
		}
		seen[ref.InstallmentID] = struct{}{}
		if _, ok := byAddress[ref.ShippingAddressID]; !ok {
			order = append(order, ref.ShippingAddressID)
		}
		byAddress[ref.ShippingAddressID] = append(byAddress[ref.ShippingAddressID], ref.InstallmentID)
	}

	groups := make([][]uuid.UUID, 0, len(byAddress))
	for _, addr := range order {
		groups = append(groups, byAddress[addr])
	}
	return groups
}
