// Package sender delivers reminder text messages to phone numbers.
package sender

import "context"

// Receipt is what a provider hands back for an accepted message.
type Receipt struct {
	ProviderMessageID string
}

// Sender delivers body to a normalized phone number. Implementations must
// honour ctx cancellation.
type Sender interface {
	Send(ctx context.Context, phoneNumber, body string) (Receipt, error)
}
