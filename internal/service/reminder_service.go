package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"focus-planner/internal/apperr"
	"focus-planner/internal/model"
	"focus-planner/internal/repository"
	"focus-planner/internal/sender"
)

const (
	reminderHeader = "Task reminder:"
	noTasksLine    = "You have no incomplete tasks. Nice work!"
	taskBullet     = "• "
)

// ReminderResult is the outcome for one due user. Failures are recorded here
// rather than returned.
type ReminderResult struct {
	UserID            string `json:"userId"`
	PhoneNumber       string `json:"phoneNumber"`
	TaskCount         int    `json:"taskCount"`
	Success           bool   `json:"success"`
	ProviderMessageID string `json:"providerMessageId,omitempty"`
	Error             string `json:"error,omitempty"`
}

// RunSummary reports one reminder run over every due user.
type RunSummary struct {
	Sent    int              `json:"sent"`
	Results []ReminderResult `json:"results"`
}

// Failed counts results whose delivery did not succeed.
func (s RunSummary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if !r.Success {
			n++
		}
	}
	return n
}

// RunReporter is told about every run that had due users.
type RunReporter interface {
	ReportRun(ctx context.Context, summary RunSummary) error
}

type ReminderOptions struct {
	CronSecret  string
	MaxTasks    int
	SendTimeout time.Duration
	Concurrency int
}

// ReminderService matches due users and sends each of them their oldest open tasks.
type ReminderService struct {
	taskRepo      *repository.TaskRepository
	notifications *NotificationService
	sender        sender.Sender
	reporter      RunReporter
	opts          ReminderOptions
	now           func() time.Time
}

func NewReminderService(taskRepo *repository.TaskRepository, notifications *NotificationService, snd sender.Sender, opts ReminderOptions) *ReminderService {
	if opts.MaxTasks <= 0 {
		opts.MaxTasks = 5
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &ReminderService{
		taskRepo:      taskRepo,
		notifications: notifications,
		sender:        snd,
		opts:          opts,
		now:           time.Now,
	}
}

// WithReporter attaches an optional observer for run summaries.
func (s *ReminderService) WithReporter(r RunReporter) *ReminderService {
	s.reporter = r
	return s
}

// WithClock replaces the time source used for matching.
func (s *ReminderService) WithClock(now func() time.Time) *ReminderService {
	s.now = now
	return s
}

// Authorize checks the invocation secret in constant time.
func (s *ReminderService) Authorize(secret string) error {
	if secret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(s.opts.CronSecret)) != 1 {
		return &apperr.AuthorizationError{Reason: "invalid invocation secret"}
	}
	return nil
}

// Run validates secret, finds the users due this minute and reminds each of
// them independently. Only a failure to authorize or to find due users fails
// the whole run.
func (s *ReminderService) Run(ctx context.Context, secret string) (RunSummary, error) {
	if err := s.Authorize(secret); err != nil {
		return RunSummary{}, err
	}

	due, err := s.notifications.DueSettings(ctx, s.now())
	if err != nil {
		return RunSummary{}, fmt.Errorf("match due users: %w", err)
	}

	results := make([]ReminderResult, len(due))
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, setting := range due {
		g.Go(func() error {
			results[i] = s.remind(ctx, setting)
			return nil
		})
	}
	_ = g.Wait()

	summary := RunSummary{Sent: len(results), Results: results}
	if len(results) > 0 {
		log.Printf("[info] reminder run: %d due, %d failed", summary.Sent, summary.Failed())
		if s.reporter != nil {
			if err := s.reporter.ReportRun(ctx, summary); err != nil {
				log.Printf("[warn] report reminder run: %v", err)
			}
		}
	}
	return summary, nil
}

func (s *ReminderService) remind(ctx context.Context, setting model.NotificationSetting) ReminderResult {
	res := ReminderResult{UserID: setting.OwnerID, PhoneNumber: setting.PhoneNumber}

	tasks, err := s.taskRepo.ListOpen(ctx, setting.OwnerID, s.opts.MaxTasks)
	if err != nil {
		res.Error = err.Error()
		log.Printf("[error] load tasks for %s: %v", setting.OwnerID, err)
		return res
	}
	res.TaskCount = len(tasks)

	receipt, err := s.send(ctx, setting.PhoneNumber, FormatReminder(tasks))
	if err != nil {
		derr := &apperr.DeliveryError{Destination: setting.PhoneNumber, Err: err}
		res.Error = derr.Error()
		log.Printf("[warn] %v", derr)
		return res
	}
	res.Success = true
	res.ProviderMessageID = receipt.ProviderMessageID
	return res
}

var errSendTimeout = errors.New("send timed out")

// send bounds a single delivery by the send timeout. A sender that ignores
// cancellation is abandoned, so it cannot hold up the rest of the run.
func (s *ReminderService) send(ctx context.Context, phone, body string) (sender.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.SendTimeout)
	defer cancel()

	type reply struct {
		receipt sender.Receipt
		err     error
	}
	done := make(chan reply, 1)
	go func() {
		receipt, err := s.sender.Send(ctx, phone, body)
		done <- reply{receipt: receipt, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return sender.Receipt{}, errSendTimeout
		}
		return r.receipt, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return sender.Receipt{}, errSendTimeout
		}
		return sender.Receipt{}, ctx.Err()
	}
}

// FormatReminder lists task titles one per bullet line, or a fixed
// placeholder when there are none.
func FormatReminder(tasks []model.Task) string {
	var builder strings.Builder
	builder.WriteString(reminderHeader)
	builder.WriteByte('\n')

	if len(tasks) == 0 {
		builder.WriteString(noTasksLine)
		return builder.String()
	}

	for i, task := range tasks {
		if i > 0 {
			builder.WriteByte('\n')
		}
		builder.WriteString(taskBullet)
		builder.WriteString(strings.TrimSpace(task.Title))
	}
	return builder.String()
}
