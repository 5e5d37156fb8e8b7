// Package notify delivers receipt and credential messages to downstream senders. Delivery is
// best effort; callers decide whether a failure matters.
package notify

import (
	"context"
	"errors"
	"time"
)

// Message kinds.
const (
	KindPaymentReceipt     = "payment_receipt"
	KindCheckInCredentials = "check_in_credentials"
)

// Recipient identifies who should receive a message.
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Message is the transport neutral notification payload.
type Message struct {
	ID         string                 `json:"id"`
	Kind       string                 `json:"kind"`
	Recipient  Recipient              `json:"recipient"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Publisher hands a message to an external delivery system.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Multi fans a message out to every publisher and joins their errors.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, msg Message) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards messages.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Message) error { return nil }
