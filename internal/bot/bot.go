// Package bot posts reminder-run summaries to an operator Telegram chat.
package bot

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"focus-planner/internal/service"
)

// maxListedFailures caps the per-user failure lines in one report.
const maxListedFailures = 10

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Reporter implements service.RunReporter over the Telegram Bot API.
type Reporter struct {
	api    messageSender
	chatID int64
}

func New(token string, chatID int64) (*Reporter, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return newReporter(api, chatID), nil
}

func newReporter(api messageSender, chatID int64) *Reporter {
	return &Reporter{api: api, chatID: chatID}
}

// ReportRun sends a short summary of one reminder run.
func (r *Reporter) ReportRun(ctx context.Context, summary service.RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(r.chatID, FormatSummary(summary))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := r.api.Send(msg); err != nil {
		return fmt.Errorf("send run summary: %w", err)
	}
	return nil
}

// FormatSummary renders the run as Telegram HTML.
func FormatSummary(summary service.RunSummary) string {
	failed := summary.Failed()

	var builder strings.Builder
	builder.WriteString("<b>Reminder run</b>\n")
	builder.WriteString(fmt.Sprintf("Due users: %d\n", summary.Sent))
	builder.WriteString(fmt.Sprintf("Delivered: %d\n", summary.Sent-failed))
	builder.WriteString(fmt.Sprintf("Failed: %d", failed))

	listed := 0
	for _, res := range summary.Results {
		if res.Success {
			continue
		}
		if listed == maxListedFailures {
			builder.WriteString(fmt.Sprintf("\n… and %d more", failed-listed))
			break
		}
		builder.WriteString(fmt.Sprintf("\n• <code>%s</code>: %s", html.EscapeString(res.UserID), html.EscapeString(res.Error)))
		listed++
	}
	return builder.String()
}
