package logger

import (
	"log/slog"

	"github.com/google/uuid"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
func UserID(id uuid.UUID) slog.Attr {
	return slog.String("user_id", id.String())
}

// SubscriptionID records the subscription identifier under the key "subscription_id".
func SubscriptionID(id uuid.UUID) slog.Attr {
	return slog.String("subscription_id", id.String())
}

// InstallmentID records the installment identifier under the key "installment_id".
func InstallmentID(id uuid.UUID) slog.Attr {
	return slog.String("installment_id", id.String())
}

// InstallmentIDs records a set of installment identifiers under the key "installment_ids".
func InstallmentIDs(ids []uuid.UUID) slog.Attr {
	ss := make([]string, 0, len(ids))
	for _, id := range ids {
		ss = append(ss, id.String())
	}
	return slog.Any("installment_ids", ss)
}

// OrderID records the order identifier under the key "order_id".
// If id is nil, it returns an empty Attr.
func OrderID(id *uuid.UUID) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.String("order_id", id.String())
}
