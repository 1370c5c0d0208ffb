package sender

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// LogSender writes messages to the process log instead of delivering them.
type LogSender struct{}

func NewLogSender() *LogSender { return &LogSender{} }

func (s *LogSender) Send(ctx context.Context, phoneNumber, body string) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	id := "log-" + uuid.NewString()
	log.Printf("[info] reminder %s to %s:\n%s", id, phoneNumber, body)
	return Receipt{ProviderMessageID: id}, nil
}
