// Package processor is the scheduler half of the recurring-order pipeline.
//
// One Run pass walks users with actionable work in keyset batches,
// advances their due subscriptions, creates the cycle's installments and
// enqueues one ProcessInstallmentsTask per (user, shipping address) group.
// Unresolved installments from earlier cycles are folded into those groups
// until they succeed. A second pass at the same instant creates nothing
// new; unresolved work is simply handed off again, so downstream handling
// must tolerate at-least-once delivery.
//
// The queue side lives in NewProcessInstallmentsHandler: it reloads the
// group, lets the OrderCreator place one order and routes the result
// through the dispatcher as a success, payment failure, failure or admin
// escalation.
//
// The pass ends with the reminder sweep: subscriptions coming due within
// the configured lead time get stamped and notified once per cycle. The
// sweep is skipped when no ReminderNotifier is configured.
package processor
