// Package notify delivers user-facing notifications (balance credited,
// service suspended or deleted) to the chat-bot sender. Delivery is best
// effort: failures are logged and never reach the ledger result.
package notify

import "context"

type Kind string

const (
	KindBalanceCredited  Kind = "balance_credited"
	KindServiceSuspended Kind = "service_suspended"
	KindServiceDeleted   Kind = "service_deleted"
)

type Message struct {
	Kind   Kind
	UserID string
	Text   string
}

type Notifier interface {
	Send(ctx context.Context, m Message) error
}
