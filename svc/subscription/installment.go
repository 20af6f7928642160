package subscription

import (
	"time"

	"github.com/google/uuid"
)

// InstallmentState is the outcome state of a single scheduled order attempt.
type InstallmentState string

const (
	InstallmentPending InstallmentState = "pending"
	InstallmentSuccess InstallmentState = "success"
	InstallmentFailed  InstallmentState = "failed"
)

// Failure reasons recorded on installment details.
const (
	ReasonPaymentFailed    = "payment_failed"
	ReasonProcessingFailed = "processing_failed"
)

// Installment is one scheduled attempt to fulfill a subscription as a new
// order. It is created by the scheduler when the subscription comes due and
// resolved by a dispatch handler once the order attempt finishes. A failed
// installment is re-selected on the next scheduler pass; a new cycle gets a
// new installment, never a reused record.
type Installment struct {
	ID             uuid.UUID
	SubscriptionID uuid.UUID
	State          InstallmentState
	CreatedAt      time.Time
	Details        []InstallmentDetail
}

// InstallmentDetail is the immutable record of one fulfillment attempt.
// Details are append-only and ordered by creation time.
type InstallmentDetail struct {
	ID            uuid.UUID
	InstallmentID uuid.UUID
	OrderID       *uuid.UUID
	Success       bool
	Reason        string
	CreatedAt     time.Time
}

// Failed reports whether the attempt was a failure.
func (d InstallmentDetail) Failed() bool {
	return !d.Success
}

// NewInstallment creates a pending installment for a subscription.
func NewInstallment(subscriptionID uuid.UUID, now time.Time) *Installment {
	return &Installment{
		ID:             uuid.New(),
		SubscriptionID: subscriptionID,
		State:          InstallmentPending,
		CreatedAt:      now,
	}
}

// Actionable reports whether the installment still needs processing.
func (i *Installment) Actionable() bool {
	return i.State != InstallmentSuccess
}

// MarkSuccess records a successful attempt and resolves the installment.
func (i *Installment) MarkSuccess(orderID *uuid.UUID, now time.Time) {
	i.appendDetail(orderID, true, "", now)
	i.State = InstallmentSuccess
}

// MarkFailed records a failed attempt with the given reason. The
// installment stays eligible for the next scheduler pass.
func (i *Installment) MarkFailed(orderID *uuid.UUID, reason string, now time.Time) {
	if reason == "" {
		reason = ReasonProcessingFailed
	}
	i.appendDetail(orderID, false, reason, now)
	i.State = InstallmentFailed
}

// MarkPaymentFailed records an attempt rejected at payment authorization.
func (i *Installment) MarkPaymentFailed(orderID *uuid.UUID, now time.Time) {
	i.appendDetail(orderID, false, ReasonPaymentFailed, now)
	i.State = InstallmentFailed
}

// History returns the attempt details in creation order, limited to the
// last n entries when n > 0.
func (i *Installment) History(n int) []InstallmentDetail {
	if n <= 0 || n >= len(i.Details) {
		out := make([]InstallmentDetail, len(i.Details))
		copy(out, i.Details)
		return out
	}
	out := make([]InstallmentDetail, n)
	copy(out, i.Details[len(i.Details)-n:])
	return out
}

func (i *Installment) appendDetail(orderID *uuid.UUID, success bool, reason string, now time.Time) {
	i.Details = append(i.Details, InstallmentDetail{
		ID:            uuid.New(),
		InstallmentID: i.ID,
		OrderID:       orderID,
		Success:       success,
		Reason:        reason,
		CreatedAt:     now,
	})
}
