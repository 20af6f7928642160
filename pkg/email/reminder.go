package email

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/subskit/svc/subscription"
)

// RecipientLookup resolves the email address of a subscription owner.
type RecipientLookup interface {
	EmailFor(ctx context.Context, userID uuid.UUID) (string, error)
}

// ReminderMailer sends upcoming-order reminders. It satisfies the
// processor's ReminderNotifier contract.
type ReminderMailer struct {
	sender     EmailSender
	recipients RecipientLookup
}

// NewReminderMailer creates a reminder mailer over any EmailSender.
func NewReminderMailer(sender EmailSender, recipients RecipientLookup) (*ReminderMailer, error) {
	if sender == nil {
		return nil, fmt.Errorf("%w: sender is required", ErrInvalidConfig)
	}
	if recipients == nil {
		return nil, fmt.Errorf("%w: recipient lookup is required", ErrInvalidConfig)
	}
	return &ReminderMailer{sender: sender, recipients: recipients}, nil
}

var reminderTemplate = template.Must(template.New("reminder").Parse(`<html>
<body>
  <p>Your next subscription order ships soon.</p>
  <p>It is scheduled for <strong>{{.Date}}</strong> and will keep recurring {{.Interval}}.</p>
  <p>If you want to skip or change this order, update your subscription before the scheduled date.</p>
</body>
</html>`))

// RemindUpcomingOrder emails the subscription owner about the order coming
// up on the subscription's actionable date.
func (rm *ReminderMailer) RemindUpcomingOrder(ctx context.Context, sub *subscription.Subscription) error {
	sendTo, err := rm.recipients.EmailFor(ctx, sub.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve reminder recipient: %w", err)
	}

	date := sub.ActionableDate.Format("January 2, 2006")
	var body strings.Builder
	err = reminderTemplate.Execute(&body, struct {
		Date     string
		Interval string
	}{
		Date:     date,
		Interval: sub.Interval().String(),
	})
	if err != nil {
		return fmt.Errorf("failed to render reminder email: %w", err)
	}

	return rm.sender.SendEmail(ctx, SendEmailParams{
		SendTo:   sendTo,
		Subject:  "Your subscription order is scheduled for " + date,
		BodyHTML: body.String(),
		Tag:      "subscription-reminder",
	})
}
