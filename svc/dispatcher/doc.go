// Package dispatcher resolves finished order attempts back onto their
// installments. Each attempt ends in one of four outcomes: success, payment
// failure, processing failure, or an admin escalation for anything
// unexpected. Every outcome has a registered variant holding its entity and
// order mutations and its notification message; Dispatch applies the
// variant, persists the installments and notifies best-effort.
//
// Host applications can hook custom outcome kinds with Register.
package dispatcher
