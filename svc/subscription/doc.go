// Package subscription holds the recurring-order domain model: subscriptions
// with their line items, the installments the scheduler materializes per due
// cycle, and the append-only detail records of every fulfillment attempt.
//
// A subscription is active, canceled, or inactive. Canceled and inactive are
// terminal; canceled means the customer or an end date stopped the
// subscription, inactive means the installment cap ran out. The scheduler
// advances ActionableDate by the subscription interval each cycle and creates
// one Installment per cycle. Installments that fail stay actionable and are
// re-selected on later passes; a new cycle always gets a fresh installment.
//
// Two store implementations provide the persistence surface the processor
// and dispatcher consume: MemoryStore for tests and single-process use,
// PgStore over a pgx connection pool for production. Both apply the due-cycle
// advance and installment creation atomically per user.
package subscription
