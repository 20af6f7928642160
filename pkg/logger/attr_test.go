package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/subskit/pkg/logger"
)

func TestError(t *testing.T) {
	t.Parallel()

	t.Run("nil error returns empty attr", func(t *testing.T) {
		t.Parallel()
		attr := logger.Error(nil)
		assert.Equal(t, slog.Attr{}, attr)
	})

	t.Run("non-nil error uses error key", func(t *testing.T) {
		t.Parallel()
		attr := logger.Error(errors.New("boom"))
		assert.Equal(t, "error", attr.Key)
	})
}

func TestIDAttrs(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	assert.Equal(t, "user_id", logger.UserID(id).Key)
	assert.Equal(t, id.String(), logger.UserID(id).Value.String())
	assert.Equal(t, "subscription_id", logger.SubscriptionID(id).Key)
	assert.Equal(t, "installment_id", logger.InstallmentID(id).Key)
}

func TestOrderID(t *testing.T) {
	t.Parallel()

	t.Run("nil id returns empty attr", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, slog.Attr{}, logger.OrderID(nil))
	})

	t.Run("set id uses order_id key", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		attr := logger.OrderID(&id)
		assert.Equal(t, "order_id", attr.Key)
		assert.Equal(t, id.String(), attr.Value.String())
	})
}

func TestInstallmentIDs(t *testing.T) {
	t.Parallel()

	ids := []uuid.UUID{uuid.New(), uuid.New()}
	attr := logger.InstallmentIDs(ids)
	assert.Equal(t, "installment_ids", attr.Key)
	assert.Len(t, attr.Value.Any().([]string), 2)
}
