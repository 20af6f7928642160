package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/subskit/pkg/pg"
)

// PgStore is the PostgreSQL implementation of the store surface consumed by
// the processor and the dispatcher. Batched queries iterate by keyset on
// the user or subscription ID; the due-cycle advance and installment
// creation run in one transaction per user so a crashed or retried pass can
// never advance a schedule without its installment, or vice versa.
type PgStore struct {
	pool *pgxpool.Pool
	cart CartUpdater
}

// PgStoreOption configures a PgStore.
type PgStoreOption func(*PgStore)

// WithPgCartUpdater wires the storefront cart propagation hook.
func WithPgCartUpdater(cart CartUpdater) PgStoreOption {
	return func(ps *PgStore) {
		ps.cart = cart
	}
}

// NewPgStore creates a store over an existing connection pool.
func NewPgStore(pool *pgxpool.Pool, opts ...PgStoreOption) (*PgStore, error) {
	if pool == nil {
		return nil, errors.New("connection pool cannot be nil")
	}
	ps := &PgStore{pool: pool}
	for _, opt := range opts {
		opt(ps)
	}
	return ps, nil
}

const subscriptionColumns = `id, user_id, state, interval_length, interval_unit, actionable_date,
	end_date, successive_skip_count, shipping_address_id, reminded_at,
	installment_cap, installment_count, created_at`

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var sub Subscription
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.State, &sub.IntervalLength, &sub.IntervalUnit,
		&sub.ActionableDate, &sub.EndDate, &sub.SuccessiveSkipCount,
		&sub.ShippingAddressID, &sub.RemindedAt, &sub.InstallmentCap,
		&sub.InstallmentCount, &sub.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscription validates and stores a subscription with its line items.
func (ps *PgStore) CreateSubscription(ctx context.Context, sub *Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	if sub.State == "" {
		sub.State = StateActive
	}
	if sub.ActionableDate.Before(sub.CreatedAt) {
		sub.ActionableDate = sub.CreatedAt
	}

	return pgx.BeginFunc(ctx, ps.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO subscriptions (`+subscriptionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			sub.ID, sub.UserID, sub.State, sub.IntervalLength, sub.IntervalUnit,
			sub.ActionableDate, sub.EndDate, sub.SuccessiveSkipCount,
			sub.ShippingAddressID, sub.RemindedAt, sub.InstallmentCap,
			sub.InstallmentCount, sub.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert subscription: %w", err)
		}

		for i := range sub.LineItems {
			li := &sub.LineItems[i]
			if li.ID == uuid.Nil {
				li.ID = uuid.New()
			}
			li.SubscriptionID = sub.ID
			if li.CreatedAt.IsZero() {
				li.CreatedAt = sub.CreatedAt
			}
			_, err := tx.Exec(ctx, `
				INSERT INTO subscription_line_items
					(id, subscription_id, subscribable_id, quantity, interval_length, interval_unit, cart_line_item_id, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				li.ID, li.SubscriptionID, li.SubscribableID, li.Quantity,
				li.IntervalLength, li.IntervalUnit, li.CartLineItemID, li.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert line item: %w", err)
			}
		}
		return nil
	})
}

// GetSubscription loads a subscription and its line items.
func (ps *PgStore) GetSubscription(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	row := ps.pool.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id)
	sub, err := scanSubscription(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	rows, err := ps.pool.Query(ctx, `
		SELECT id, subscription_id, subscribable_id, quantity, interval_length, interval_unit, cart_line_item_id, created_at
		FROM subscription_line_items
		WHERE subscription_id = $1
		ORDER BY created_at, id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load line items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ID, &li.SubscriptionID, &li.SubscribableID, &li.Quantity,
			&li.IntervalLength, &li.IntervalUnit, &li.CartLineItemID, &li.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		sub.LineItems = append(sub.LineItems, li)
	}
	return sub, rows.Err()
}

// SaveSubscription persists entity-level mutations made outside a
// processing pass (skip, cancel, manual schedule edits).
func (ps *PgStore) SaveSubscription(ctx context.Context, sub *Subscription) error {
	tag, err := ps.pool.Exec(ctx, `
		UPDATE subscriptions
		SET state = $2, actionable_date = $3, end_date = $4, successive_skip_count = $5,
			reminded_at = $6, installment_count = $7
		WHERE id = $1`,
		sub.ID, sub.State, sub.ActionableDate, sub.EndDate,
		sub.SuccessiveSkipCount, sub.RemindedAt, sub.InstallmentCount,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UsersWithActionableWork returns user IDs owning at least one actionable
// subscription or one actionable installment. The installment side is
// outer-joined so failed installments are retried even when the
// subscription row itself is no longer due. Keyset pagination on user_id
// bounds memory on large subscriber bases.
func (ps *PgStore) UsersWithActionableWork(ctx context.Context, now time.Time, afterUserID uuid.UUID, limit int) ([]uuid.UUID, error) {
	rows, err := ps.pool.Query(ctx, `
		SELECT DISTINCT s.user_id
		FROM subscriptions s
		LEFT JOIN installments i ON i.subscription_id = s.id AND i.state <> 'success'
		JOIN users u ON u.id = s.user_id AND u.deleted_at IS NULL
		WHERE s.user_id > $1
		  AND s.state = 'active'
		  AND (
			(s.actionable_date <= $2 AND (s.end_date IS NULL OR s.end_date >= $2))
			OR i.id IS NOT NULL
		  )
		ORDER BY s.user_id
		LIMIT $3`,
		afterUserID, now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query users with actionable work: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RetryInstallments returns refs for the user's pending or failed
// installments on still-active subscriptions.
func (ps *PgStore) RetryInstallments(ctx context.Context, userID uuid.UUID, now time.Time) ([]InstallmentRef, error) {
	rows, err := ps.pool.Query(ctx, `
		SELECT i.id, i.subscription_id, s.user_id, s.shipping_address_id
		FROM installments i
		JOIN subscriptions s ON s.id = i.subscription_id
		WHERE s.user_id = $1 AND s.state = 'active' AND i.state <> 'success'
		ORDER BY i.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query retry installments: %w", err)
	}
	defer rows.Close()

	return scanRefs(rows)
}

// AdvanceAndCreateInstallments advances each of the user's due
// subscriptions and creates the cycle's installment inside one
// transaction. Rows are locked so a concurrently retried pass cannot
// double-advance a schedule; subscriptions advanced by a competing pass
// fall out of the actionable predicate and are skipped.
func (ps *PgStore) AdvanceAndCreateInstallments(ctx context.Context, userID uuid.UUID, now time.Time) ([]InstallmentRef, error) {
	var refs []InstallmentRef

	err := pgx.BeginFunc(ctx, ps.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT `+subscriptionColumns+`
			FROM subscriptions
			WHERE user_id = $1
			  AND state = 'active'
			  AND actionable_date <= $2
			  AND (end_date IS NULL OR end_date >= $2)
			ORDER BY id
			FOR UPDATE`,
			userID, now,
		)
		if err != nil {
			return fmt.Errorf("failed to query due subscriptions: %w", err)
		}

		var due []*Subscription
		for rows.Next() {
			sub, err := scanSubscription(rows)
			if err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan subscription: %w", err)
			}
			due = append(due, sub)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, sub := range due {
			createInstallment := sub.AdvanceForProcessing(now)
			if createInstallment {
				sub.InstallmentCount++
			}

			_, err := tx.Exec(ctx, `
				UPDATE subscriptions
				SET state = $2, actionable_date = $3, successive_skip_count = $4, installment_count = $5
				WHERE id = $1`,
				sub.ID, sub.State, sub.ActionableDate, sub.SuccessiveSkipCount, sub.InstallmentCount,
			)
			if err != nil {
				return fmt.Errorf("failed to advance subscription %s: %w", sub.ID, err)
			}

			if !createInstallment {
				continue
			}

			inst := NewInstallment(sub.ID, now)
			_, err = tx.Exec(ctx, `
				INSERT INTO installments (id, subscription_id, state, created_at)
				VALUES ($1, $2, $3, $4)`,
				inst.ID, inst.SubscriptionID, inst.State, inst.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to create installment for subscription %s: %w", sub.ID, err)
			}

			refs = append(refs, InstallmentRef{
				InstallmentID:     inst.ID,
				SubscriptionID:    sub.ID,
				UserID:            sub.UserID,
				ShippingAddressID: sub.ShippingAddressID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// GetInstallments loads installments with their attempt details.
func (ps *PgStore) GetInstallments(ctx context.Context, ids []uuid.UUID) ([]*Installment, error) {
	rows, err := ps.pool.Query(ctx, `
		SELECT id, subscription_id, state, created_at
		FROM installments
		WHERE id = ANY($1)
		ORDER BY id`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query installments: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*Installment, len(ids))
	var out []*Installment
	for rows.Next() {
		var inst Installment
		if err := rows.Scan(&inst.ID, &inst.SubscriptionID, &inst.State, &inst.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		byID[inst.ID] = &inst
		out = append(out, &inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) != len(ids) {
		return nil, ErrNotFound
	}

	detailRows, err := ps.pool.Query(ctx, `
		SELECT id, installment_id, order_id, success, reason, created_at
		FROM installment_details
		WHERE installment_id = ANY($1)
		ORDER BY created_at, id`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query installment details: %w", err)
	}
	defer detailRows.Close()

	for detailRows.Next() {
		var d InstallmentDetail
		if err := detailRows.Scan(&d.ID, &d.InstallmentID, &d.OrderID, &d.Success, &d.Reason, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan installment detail: %w", err)
		}
		if inst, ok := byID[d.InstallmentID]; ok {
			inst.Details = append(inst.Details, d)
		}
	}
	return out, detailRows.Err()
}

// SaveInstallment persists the installment state and appends any new
// details. Details already stored are never rewritten.
func (ps *PgStore) SaveInstallment(ctx context.Context, inst *Installment) error {
	return pgx.BeginFunc(ctx, ps.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE installments SET state = $2 WHERE id = $1`, inst.ID, inst.State)
		if err != nil {
			return fmt.Errorf("failed to update installment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}

		for _, d := range inst.Details {
			_, err := tx.Exec(ctx, `
				INSERT INTO installment_details (id, installment_id, order_id, success, reason, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (id) DO NOTHING`,
				d.ID, d.InstallmentID, d.OrderID, d.Success, d.Reason, d.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to append installment detail: %w", err)
			}
		}
		return nil
	})
}

// SubscriptionsNeedingReminder returns active subscriptions coming due
// within lead that have not been reminded for the current cycle, keyset
// paginated by subscription ID.
func (ps *PgStore) SubscriptionsNeedingReminder(ctx context.Context, now time.Time, lead time.Duration, afterID uuid.UUID, limit int) ([]*Subscription, error) {
	rows, err := ps.pool.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE id > $1
		  AND state = 'active'
		  AND actionable_date > $2
		  AND actionable_date <= $3
		  AND (reminded_at IS NULL OR reminded_at < actionable_date - make_interval(secs => $4))
		ORDER BY id
		LIMIT $5`,
		afterID, now, now.Add(lead), lead.Seconds(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions needing reminder: %w", err)
	}
	defer rows.Close()

	var out []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// MarkReminded stamps the reminder timestamp on a subscription.
func (ps *PgStore) MarkReminded(ctx context.Context, subscriptionID uuid.UUID, at time.Time) error {
	tag, err := ps.pool.Exec(ctx, `UPDATE subscriptions SET reminded_at = $2 WHERE id = $1`, subscriptionID, at)
	if err != nil {
		return fmt.Errorf("failed to mark subscription reminded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLineItem applies a partial update to a persisted line item with the
// same semantics as MemoryStore.UpdateLineItem: quantity zero deletes the
// row, an interval change recomputes the owning subscription's actionable
// date, quantity changes propagate to the linked cart line.
func (ps *PgStore) UpdateLineItem(ctx context.Context, subscriptionID, lineItemID uuid.UUID, update LineItemUpdate, now time.Time) error {
	var cartLineItemID *uuid.UUID
	var quantity int
	var quantityChanged bool

	err := pgx.BeginFunc(ctx, ps.pool, func(tx pgx.Tx) error {
		var li LineItem
		err := tx.QueryRow(ctx, `
			SELECT id, subscription_id, subscribable_id, quantity, interval_length, interval_unit, cart_line_item_id, created_at
			FROM subscription_line_items
			WHERE id = $1 AND subscription_id = $2
			FOR UPDATE`,
			lineItemID, subscriptionID,
		).Scan(&li.ID, &li.SubscriptionID, &li.SubscribableID, &li.Quantity,
			&li.IntervalLength, &li.IntervalUnit, &li.CartLineItemID, &li.CreatedAt)
		if err != nil {
			if pg.IsNotFoundError(err) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load line item: %w", err)
		}
		cartLineItemID = li.CartLineItemID

		if update.Quantity != nil && *update.Quantity == 0 {
			if _, err := tx.Exec(ctx, `DELETE FROM subscription_line_items WHERE id = $1`, li.ID); err != nil {
				return fmt.Errorf("failed to delete line item: %w", err)
			}
			quantityChanged = true
			quantity = 0
			return nil
		}

		updated := li
		if update.Quantity != nil {
			updated.Quantity = *update.Quantity
		}
		if update.IntervalLength != nil {
			updated.IntervalLength = *update.IntervalLength
		}
		if update.IntervalUnit != nil {
			updated.IntervalUnit = *update.IntervalUnit
		}
		if err := updated.Validate(); err != nil {
			return err
		}

		intervalChanged := updated.IntervalLength != li.IntervalLength || updated.IntervalUnit != li.IntervalUnit
		quantityChanged = updated.Quantity != li.Quantity
		quantity = updated.Quantity

		_, err = tx.Exec(ctx, `
			UPDATE subscription_line_items
			SET quantity = $2, interval_length = $3, interval_unit = $4
			WHERE id = $1`,
			li.ID, updated.Quantity, updated.IntervalLength, updated.IntervalUnit,
		)
		if err != nil {
			return fmt.Errorf("failed to update line item: %w", err)
		}

		if intervalChanged {
			// Base the recomputed schedule on the latest installment, or the
			// subscription's creation when none exist; clamp to now.
			var base time.Time
			err := tx.QueryRow(ctx, `
				SELECT COALESCE(
					(SELECT MAX(i.created_at) FROM installments i WHERE i.subscription_id = s.id),
					s.created_at
				)
				FROM subscriptions s
				WHERE s.id = $1`,
				subscriptionID,
			).Scan(&base)
			if err != nil {
				return fmt.Errorf("failed to load schedule base: %w", err)
			}

			next := updated.Interval().Since(base)
			if next.Before(now) {
				next = now
			}
			if _, err := tx.Exec(ctx, `
				UPDATE subscriptions SET actionable_date = $2 WHERE id = $1`,
				subscriptionID, next,
			); err != nil {
				return fmt.Errorf("failed to recompute actionable date: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if quantityChanged && ps.cart != nil && cartLineItemID != nil {
		return ps.cart.UpdateCartLineItemQuantity(ctx, *cartLineItemID, quantity)
	}
	return nil
}

// EmailFor resolves the email address of a live user, for reminder
// delivery.
func (ps *PgStore) EmailFor(ctx context.Context, userID uuid.UUID) (string, error) {
	var email string
	err := ps.pool.QueryRow(ctx, `SELECT email FROM users WHERE id = $1 AND deleted_at IS NULL`, userID).Scan(&email)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to resolve user email: %w", err)
	}
	return email, nil
}

// SoftDeleteUser marks the user deleted and cascade-cancels every active
// subscription owned by the user in the same transaction. Idempotent.
func (ps *PgStore) SoftDeleteUser(ctx context.Context, userID uuid.UUID, now time.Time) error {
	return pgx.BeginFunc(ctx, ps.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE users SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
			userID, now,
		)
		if err != nil {
			return fmt.Errorf("failed to soft-delete user: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE subscriptions SET state = 'canceled' WHERE user_id = $1 AND state = 'active'`,
			userID,
		)
		if err != nil {
			return fmt.Errorf("failed to cascade-cancel subscriptions: %w", err)
		}
		return nil
	})
}

func scanRefs(rows pgx.Rows) ([]InstallmentRef, error) {
	var refs []InstallmentRef
	for rows.Next() {
		var ref InstallmentRef
		if err := rows.Scan(&ref.InstallmentID, &ref.SubscriptionID, &ref.UserID, &ref.ShippingAddressID); err != nil {
			return nil, fmt.Errorf("failed to scan installment ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
