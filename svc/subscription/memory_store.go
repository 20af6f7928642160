package subscription

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of the store surface consumed
// by the processor and the dispatcher. It backs unit tests and
// single-process deployments. Entities are cloned on the way in and out so
// callers never share memory with stored state.
type MemoryStore struct {
	mu           sync.RWMutex
	subs         map[uuid.UUID]*Subscription
	installments map[uuid.UUID]*Installment
	deletedUsers map[uuid.UUID]time.Time
	cart         CartUpdater
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCartUpdater wires the storefront cart propagation hook.
func WithCartUpdater(cart CartUpdater) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cart = cart
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		subs:         make(map[uuid.UUID]*Subscription),
		installments: make(map[uuid.UUID]*Installment),
		deletedUsers: make(map[uuid.UUID]time.Time),
	}
	for _, opt := range opts {
		opt(ms)
	}
	return ms
}

// CreateSubscription validates and stores a subscription. Missing IDs and
// creation timestamps are filled in.
func (ms *MemoryStore) CreateSubscription(ctx context.Context, sub *Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	if sub.State == "" {
		sub.State = StateActive
	}
	if sub.ActionableDate.Before(sub.CreatedAt) {
		sub.ActionableDate = sub.CreatedAt
	}
	for i := range sub.LineItems {
		if sub.LineItems[i].ID == uuid.Nil {
			sub.LineItems[i].ID = uuid.New()
		}
		sub.LineItems[i].SubscriptionID = sub.ID
	}

	ms.subs[sub.ID] = cloneSubscription(sub)
	return nil
}

// GetSubscription returns a copy of the subscription with the given ID.
func (ms *MemoryStore) GetSubscription(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	sub, ok := ms.subs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSubscription(sub), nil
}

// SaveSubscription persists entity-level mutations (skip, cancel, manual
// actionable date edits) made outside a processing pass.
func (ms *MemoryStore) SaveSubscription(ctx context.Context, sub *Subscription) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.subs[sub.ID]; !ok {
		return ErrNotFound
	}
	ms.subs[sub.ID] = cloneSubscription(sub)
	return nil
}

// UsersWithActionableWork returns user IDs owning at least one actionable
// subscription or one actionable installment, ordered by ID and starting
// after the cursor. Keyset iteration keeps memory bounded on large bases.
func (ms *MemoryStore) UsersWithActionableWork(ctx context.Context, now time.Time, afterUserID uuid.UUID, limit int) ([]uuid.UUID, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	for _, sub := range ms.subs {
		if sub.ActionableAt(now) {
			seen[sub.UserID] = struct{}{}
		}
	}
	for _, inst := range ms.installments {
		if !inst.Actionable() {
			continue
		}
		sub, ok := ms.subs[inst.SubscriptionID]
		if !ok || sub.State != StateActive {
			continue
		}
		seen[sub.UserID] = struct{}{}
	}

	ids := make([]uuid.UUID, 0, len(seen))
	for id := range seen {
		if afterUserID != uuid.Nil && id.String() <= afterUserID.String() {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a].String() < ids[b].String() })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// RetryInstallments returns refs for the user's installments that still
// need processing: pending or failed, on a subscription that remains
// active.
func (ms *MemoryStore) RetryInstallments(ctx context.Context, userID uuid.UUID, now time.Time) ([]InstallmentRef, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var refs []InstallmentRef
	for _, inst := range ms.installments {
		if !inst.Actionable() {
			continue
		}
		sub, ok := ms.subs[inst.SubscriptionID]
		if !ok || sub.UserID != userID || sub.State != StateActive {
			continue
		}
		refs = append(refs, InstallmentRef{
			InstallmentID:     inst.ID,
			SubscriptionID:    sub.ID,
			UserID:            sub.UserID,
			ShippingAddressID: sub.ShippingAddressID,
		})
	}
	sortRefs(refs)
	return refs, nil
}

// AdvanceAndCreateInstallments applies the due-cycle transitions to each of
// the user's actionable subscriptions and creates the cycle's installment.
// The whole step is atomic per user: under the store lock either every due
// subscription is advanced with its installment created, or none is.
func (ms *MemoryStore) AdvanceAndCreateInstallments(ctx context.Context, userID uuid.UUID, now time.Time) ([]InstallmentRef, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	var refs []InstallmentRef
	for _, sub := range ms.subs {
		if sub.UserID != userID || !sub.ActionableAt(now) {
			continue
		}

		if createInstallment := sub.AdvanceForProcessing(now); !createInstallment {
			continue
		}

		inst := NewInstallment(sub.ID, now)
		sub.InstallmentCount++
		ms.installments[inst.ID] = inst
		refs = append(refs, InstallmentRef{
			InstallmentID:     inst.ID,
			SubscriptionID:    sub.ID,
			UserID:            sub.UserID,
			ShippingAddressID: sub.ShippingAddressID,
		})
	}
	sortRefs(refs)
	return refs, nil
}

// GetInstallments returns copies of the installments with the given IDs.
func (ms *MemoryStore) GetInstallments(ctx context.Context, ids []uuid.UUID) ([]*Installment, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	out := make([]*Installment, 0, len(ids))
	for _, id := range ids {
		inst, ok := ms.installments[id]
		if !ok {
			return nil, ErrNotFound
		}
		out = append(out, cloneInstallment(inst))
	}
	return out, nil
}

// SaveInstallment persists an installment's state and appended details.
// Existing details are never rewritten; only new ones are accepted.
func (ms *MemoryStore) SaveInstallment(ctx context.Context, inst *Installment) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	stored, ok := ms.installments[inst.ID]
	if !ok {
		return ErrNotFound
	}

	stored.State = inst.State
	if len(inst.Details) > len(stored.Details) {
		for _, d := range inst.Details[len(stored.Details):] {
			stored.Details = append(stored.Details, d)
		}
	}
	return nil
}

// SubscriptionsNeedingReminder returns active subscriptions coming due
// within lead that have not yet been reminded for the current cycle,
// ordered by ID and starting after the cursor.
func (ms *MemoryStore) SubscriptionsNeedingReminder(ctx context.Context, now time.Time, lead time.Duration, afterID uuid.UUID, limit int) ([]*Subscription, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var out []*Subscription
	for _, sub := range ms.subs {
		if !sub.NeedsReminderAt(now, lead) {
			continue
		}
		if afterID != uuid.Nil && sub.ID.String() <= afterID.String() {
			continue
		}
		out = append(out, cloneSubscription(sub))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID.String() < out[b].ID.String() })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkReminded stamps the reminder timestamp on a subscription.
func (ms *MemoryStore) MarkReminded(ctx context.Context, subscriptionID uuid.UUID, at time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	sub, ok := ms.subs[subscriptionID]
	if !ok {
		return ErrNotFound
	}
	at = at.UTC()
	sub.RemindedAt = &at
	return nil
}

// UpdateLineItem applies a partial update to a persisted line item.
// Quantity zero removes the line item instead of storing a zero-quantity
// record. An interval change recomputes the owning subscription's
// actionable date from the latest installment's creation time (or the
// subscription's creation time), never earlier than now. Quantity changes
// propagate to the linked cart line when an updater is configured.
func (ms *MemoryStore) UpdateLineItem(ctx context.Context, subscriptionID, lineItemID uuid.UUID, update LineItemUpdate, now time.Time) error {
	ms.mu.Lock()
	sub, ok := ms.subs[subscriptionID]
	if !ok {
		ms.mu.Unlock()
		return ErrNotFound
	}

	idx := slices.IndexFunc(sub.LineItems, func(li LineItem) bool { return li.ID == lineItemID })
	if idx < 0 {
		ms.mu.Unlock()
		return ErrNotFound
	}

	if update.Quantity != nil && *update.Quantity == 0 {
		removed := sub.LineItems[idx]
		sub.LineItems = slices.Delete(sub.LineItems, idx, idx+1)
		ms.mu.Unlock()
		return ms.propagateCartQuantity(ctx, removed.CartLineItemID, 0)
	}

	li := &sub.LineItems[idx]
	updated := *li
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
		ms.mu.Unlock()
		return err
	}

	intervalChanged := updated.IntervalLength != li.IntervalLength || updated.IntervalUnit != li.IntervalUnit
	quantityChanged := updated.Quantity != li.Quantity
	*li = updated

	if intervalChanged {
		base := sub.CreatedAt
		if latest := ms.latestInstallmentLocked(sub.ID); latest != nil {
			base = latest.CreatedAt
		}
		next := li.Interval().Since(base)
		if next.Before(now) {
			// A base time plus the new interval already in the past would
			// make the subscription come due retroactively.
			next = now
		}
		sub.ActionableDate = next
	}
	cartLineItemID := li.CartLineItemID
	quantity := li.Quantity
	ms.mu.Unlock()

	if quantityChanged {
		return ms.propagateCartQuantity(ctx, cartLineItemID, quantity)
	}
	return nil
}

// SoftDeleteUser marks a user deleted and cascade-cancels every non-terminal
// subscription owned by that user. Repeating the call has no further effect.
func (ms *MemoryStore) SoftDeleteUser(ctx context.Context, userID uuid.UUID, now time.Time) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, deleted := ms.deletedUsers[userID]; !deleted {
		ms.deletedUsers[userID] = now
	}
	for _, sub := range ms.subs {
		if sub.UserID != userID {
			continue
		}
		if sub.State == StateActive {
			sub.State = StateCanceled
		}
	}
	return nil
}

// UserDeleted reports whether the user has been soft-deleted.
func (ms *MemoryStore) UserDeleted(ctx context.Context, userID uuid.UUID) bool {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	_, ok := ms.deletedUsers[userID]
	return ok
}

func (ms *MemoryStore) propagateCartQuantity(ctx context.Context, cartLineItemID *uuid.UUID, quantity int) error {
	if ms.cart == nil || cartLineItemID == nil {
		return nil
	}
	return ms.cart.UpdateCartLineItemQuantity(ctx, *cartLineItemID, quantity)
}

func (ms *MemoryStore) latestInstallmentLocked(subscriptionID uuid.UUID) *Installment {
	var latest *Installment
	for _, inst := range ms.installments {
		if inst.SubscriptionID != subscriptionID {
			continue
		}
		if latest == nil || inst.CreatedAt.After(latest.CreatedAt) {
			latest = inst
		}
	}
	return latest
}

func sortRefs(refs []InstallmentRef) {
	sort.Slice(refs, func(a, b int) bool {
		return refs[a].InstallmentID.String() < refs[b].InstallmentID.String()
	})
}

func cloneSubscription(sub *Subscription) *Subscription {
	out := *sub
	out.LineItems = slices.Clone(sub.LineItems)
	if sub.EndDate != nil {
		end := *sub.EndDate
		out.EndDate = &end
	}
	if sub.RemindedAt != nil {
		at := *sub.RemindedAt
		out.RemindedAt = &at
	}
	return &out
}

func cloneInstallment(inst *Installment) *Installment {
	out := *inst
	out.Details = slices.Clone(inst.Details)
	return &out
}
