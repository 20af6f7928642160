package subscription_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subskit/svc/subscription"
)

type stubBuilder struct {
	seen []subscription.LineItem
	err  error
}

func (b *stubBuilder) OrderLines(_ context.Context, items []subscription.LineItem) ([]subscription.OrderLine, error) {
	b.seen = items
	if b.err != nil {
		return nil, b.err
	}
	lines := make([]subscription.OrderLine, 0, len(items))
	for _, li := range items {
		lines = append(lines, subscription.OrderLine{
			SubscribableID: li.SubscribableID,
			Description:    "variant " + li.SubscribableID.String()[:8],
			Quantity:       li.Quantity,
			UnitPriceCents: 1250,
		})
	}
	return lines, nil
}

func TestSubscriptionPreviewOrderLines(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	t.Run("builds one line per item without mutating state", func(t *testing.T) {
		t.Parallel()

		sub := activeMonthly(now)
		sub.LineItems = []subscription.LineItem{
			{ID: uuid.New(), SubscriptionID: sub.ID, SubscribableID: uuid.New(), Quantity: 2},
			{ID: uuid.New(), SubscriptionID: sub.ID, SubscribableID: uuid.New(), Quantity: 1},
		}
		before := *sub

		builder := &stubBuilder{}
		lines, err := sub.PreviewOrderLines(ctx, builder)
		require.NoError(t, err)
		require.Len(t, lines, 2)
		assert.Equal(t, sub.LineItems[0].SubscribableID, lines[0].SubscribableID)
		assert.Equal(t, 2, lines[0].Quantity)
		assert.Equal(t, int64(2500), lines[0].Total())
		assert.Len(t, builder.seen, 2)

		assert.Equal(t, before.State, sub.State)
		assert.Equal(t, before.ActionableDate, sub.ActionableDate)
		assert.Equal(t, before.InstallmentCount, sub.InstallmentCount)
	})

	t.Run("nil builder", func(t *testing.T) {
		t.Parallel()

		sub := activeMonthly(now)
		_, err := sub.PreviewOrderLines(ctx, nil)
		assert.ErrorIs(t, err, subscription.ErrBuilderNil)
	})

	t.Run("builder error surfaces", func(t *testing.T) {
		t.Parallel()

		sub := activeMonthly(now)
		wantErr := errors.New("variant discontinued")
		_, err := sub.PreviewOrderLines(ctx, &stubBuilder{err: wantErr})
		assert.ErrorIs(t, err, wantErr)
	})
}

func TestLineItemPreview(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("single artifact for a standalone item", func(t *testing.T) {
		t.Parallel()

		li := &subscription.LineItem{ID: uuid.New(), SubscribableID: uuid.New(), Quantity: 3}
		builder := &stubBuilder{}

		line, err := li.Preview(ctx, builder)
		require.NoError(t, err)
		assert.Equal(t, li.SubscribableID, line.SubscribableID)
		assert.Equal(t, 3, line.Quantity)
		require.Len(t, builder.seen, 1)
		assert.Equal(t, li.ID, builder.seen[0].ID)
	})

	t.Run("nil builder", func(t *testing.T) {
		t.Parallel()

		li := &subscription.LineItem{ID: uuid.New(), SubscribableID: uuid.New(), Quantity: 1}
		_, err := li.Preview(ctx, nil)
		assert.ErrorIs(t, err, subscription.ErrBuilderNil)
	})

	t.Run("empty builder output", func(t *testing.T) {
		t.Parallel()

		li := &subscription.LineItem{ID: uuid.New(), SubscribableID: uuid.New(), Quantity: 1}
		_, err := li.Preview(ctx, emptyBuilder{})
		assert.ErrorIs(t, err, subscription.ErrNotFound)
	})
}

type emptyBuilder struct{}

func (emptyBuilder) OrderLines(context.Context, []subscription.LineItem) ([]subscription.OrderLine, error) {
	return nil, nil
}
