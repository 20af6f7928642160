// Package logger provides slog construction helpers and typed attribute
// constructors shared across subskit components.
//
// The attribute helpers keep log keys consistent between the processor, the
// dispatcher and the queue worker so records can be correlated by
// subscription, installment or user identifier downstream.
package logger
