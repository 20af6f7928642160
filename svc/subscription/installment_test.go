package subscription_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subskit/svc/subscription"
)

func TestInstallmentOutcomes(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("new installment is pending and actionable", func(t *testing.T) {
		t.Parallel()

		inst := subscription.NewInstallment(uuid.New(), now)
		assert.Equal(t, subscription.InstallmentPending, inst.State)
		assert.True(t, inst.Actionable())
		assert.Empty(t, inst.Details)
	})

	t.Run("success resolves the installment", func(t *testing.T) {
		t.Parallel()

		inst := subscription.NewInstallment(uuid.New(), now)
		orderID := uuid.New()
		inst.MarkSuccess(&orderID, now)

		assert.Equal(t, subscription.InstallmentSuccess, inst.State)
		assert.False(t, inst.Actionable())
		require.Len(t, inst.Details, 1)
		assert.True(t, inst.Details[0].Success)
		assert.Equal(t, &orderID, inst.Details[0].OrderID)
	})

	t.Run("failure keeps the installment actionable", func(t *testing.T) {
		t.Parallel()

		inst := subscription.NewInstallment(uuid.New(), now)
		inst.MarkFailed(nil, "", now)

		assert.Equal(t, subscription.InstallmentFailed, inst.State)
		assert.True(t, inst.Actionable())
		require.Len(t, inst.Details, 1)
		assert.True(t, inst.Details[0].Failed())
		assert.Equal(t, subscription.ReasonProcessingFailed, inst.Details[0].Reason)
		assert.Nil(t, inst.Details[0].OrderID)
	})

	t.Run("payment failure records its reason", func(t *testing.T) {
		t.Parallel()

		inst := subscription.NewInstallment(uuid.New(), now)
		orderID := uuid.New()
		inst.MarkPaymentFailed(&orderID, now)

		require.Len(t, inst.Details, 1)
		assert.Equal(t, subscription.ReasonPaymentFailed, inst.Details[0].Reason)
	})

	t.Run("retry after failure appends a second detail", func(t *testing.T) {
		t.Parallel()

		inst := subscription.NewInstallment(uuid.New(), now)
		inst.MarkFailed(nil, "", now)
		orderID := uuid.New()
		inst.MarkSuccess(&orderID, now.Add(time.Hour))

		assert.Equal(t, subscription.InstallmentSuccess, inst.State)
		require.Len(t, inst.Details, 2)
		assert.True(t, inst.Details[0].Failed())
		assert.True(t, inst.Details[1].Success)
	})
}

func TestInstallmentHistory(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	inst := subscription.NewInstallment(uuid.New(), now)
	for i := 0; i < 5; i++ {
		inst.MarkFailed(nil, "", now.Add(time.Duration(i)*time.Hour))
	}

	t.Run("limits to the last n entries", func(t *testing.T) {
		t.Parallel()

		last := inst.History(2)
		require.Len(t, last, 2)
		assert.Equal(t, inst.Details[3].ID, last[0].ID)
		assert.Equal(t, inst.Details[4].ID, last[1].ID)
	})

	t.Run("returns everything when n is zero", func(t *testing.T) {
		t.Parallel()

		assert.Len(t, inst.History(0), 5)
	})

	t.Run("returns a copy", func(t *testing.T) {
		t.Parallel()

		all := inst.History(0)
		all[0].Reason = "mutated"
		assert.Equal(t, subscription.ReasonProcessingFailed, inst.Details[0].Reason)
	})
}

func TestLineItemValidate(t *testing.T) {
	t.Parallel()

	t.Run("standalone line item requires an interval", func(t *testing.T) {
		t.Parallel()

		li := subscription.LineItem{SubscribableID: uuid.New(), Quantity: 1}
		require.Error(t, li.Validate())
	})

	t.Run("owned line item does not", func(t *testing.T) {
		t.Parallel()

		li := subscription.LineItem{
			SubscriptionID: uuid.New(),
			SubscribableID: uuid.New(),
			Quantity:       1,
		}
		require.NoError(t, li.Validate())
	})

	t.Run("missing subscribable", func(t *testing.T) {
		t.Parallel()

		li := subscription.LineItem{Quantity: 1}
		assert.ErrorIs(t, li.Validate(), subscription.ErrSubscribableRequired)
	})
}
