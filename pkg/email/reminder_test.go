package email_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subskit/pkg/email"
	"github.com/dmitrymomot/subskit/pkg/interval"
	"github.com/dmitrymomot/subskit/svc/subscription"
)

type capturingSender struct {
	sent []email.SendEmailParams
	err  error
}

func (cs *capturingSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	if cs.err != nil {
		return cs.err
	}
	cs.sent = append(cs.sent, params)
	return nil
}

type staticLookup struct {
	addr string
	err  error
}

func (sl *staticLookup) EmailFor(ctx context.Context, userID uuid.UUID) (string, error) {
	return sl.addr, sl.err
}

func TestReminderMailer(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	sub := &subscription.Subscription{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		State:          subscription.StateActive,
		IntervalLength: 2,
		IntervalUnit:   interval.UnitWeek,
		ActionableDate: now.Add(48 * time.Hour),
	}

	t.Run("requires collaborators", func(t *testing.T) {
		t.Parallel()

		_, err := email.NewReminderMailer(nil, &staticLookup{})
		assert.ErrorIs(t, err, email.ErrInvalidConfig)
		_, err = email.NewReminderMailer(&capturingSender{}, nil)
		assert.ErrorIs(t, err, email.ErrInvalidConfig)
	})

	t.Run("sends the reminder to the owner", func(t *testing.T) {
		t.Parallel()

		sender := &capturingSender{}
		mailer, err := email.NewReminderMailer(sender, &staticLookup{addr: "owner@example.com"})
		require.NoError(t, err)

		require.NoError(t, mailer.RemindUpcomingOrder(context.Background(), sub))
		require.Len(t, sender.sent, 1)

		sent := sender.sent[0]
		assert.Equal(t, "owner@example.com", sent.SendTo)
		assert.Contains(t, sent.Subject, "January 17, 2024")
		assert.Contains(t, sent.BodyHTML, "January 17, 2024")
		assert.Contains(t, sent.BodyHTML, "every 2 weeks")
		assert.Equal(t, "subscription-reminder", sent.Tag)
	})

	t.Run("lookup failure surfaces", func(t *testing.T) {
		t.Parallel()

		sender := &capturingSender{}
		mailer, err := email.NewReminderMailer(sender, &staticLookup{err: errors.New("no such user")})
		require.NoError(t, err)

		require.Error(t, mailer.RemindUpcomingOrder(context.Background(), sub))
		assert.Empty(t, sender.sent)
	})

	t.Run("sender failure surfaces", func(t *testing.T) {
		t.Parallel()

		mailer, err := email.NewReminderMailer(&capturingSender{err: email.ErrFailedToSendEmail}, &staticLookup{addr: "owner@example.com"})
		require.NoError(t, err)
		assert.ErrorIs(t, mailer.RemindUpcomingOrder(context.Background(), sub), email.ErrFailedToSendEmail)
	})
}
