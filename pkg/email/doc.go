// Package email sends the transactional emails of the subscription
// pipeline. EmailSender abstracts the provider: NewPostmarkClient for
// production delivery, NewDevSender for local development where emails land
// on disk instead of in inboxes.
//
// ReminderMailer is the upcoming-order reminder built on top: the processor
// hands it subscriptions coming due and it emails their owners.
package email
