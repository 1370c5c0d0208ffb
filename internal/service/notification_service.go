package service

import (
	"context"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"

	"focus-planner/internal/apperr"
	"focus-planner/internal/model"
	"focus-planner/internal/repository"
)

const (
	phoneRegion = "US"
	phoneDigits = 10
)

// SettingInput is the full replacement value for a user's reminder setting.
type SettingInput struct {
	PhoneNumber string
	Frequency   string
	Time        string
	DayOfWeek   string
	Enabled     bool
}

// NotificationService validates reminder settings and finds the users due
// for a reminder at a given instant.
type NotificationService struct {
	repo *repository.NotificationRepository
	loc  *time.Location
}

func NewNotificationService(repo *repository.NotificationRepository, loc *time.Location) *NotificationService {
	if loc == nil {
		loc = time.Local
	}
	return &NotificationService{repo: repo, loc: loc}
}

func (s *NotificationService) GetSetting(ctx context.Context, ownerID string) (*model.NotificationSetting, error) {
	return s.repo.Get(ctx, ownerID)
}

func (s *NotificationService) DeleteSetting(ctx context.Context, ownerID string) error {
	return s.repo.Delete(ctx, ownerID)
}

// SaveSetting validates input and overwrites the owner's setting.
func (s *NotificationService) SaveSetting(ctx context.Context, ownerID string, input SettingInput) (*model.NotificationSetting, error) {
	setting, err := buildSetting(ownerID, input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, setting); err != nil {
		return nil, err
	}
	return setting, nil
}

func buildSetting(ownerID string, input SettingInput) (*model.NotificationSetting, error) {
	setting := &model.NotificationSetting{
		OwnerID:   ownerID,
		Frequency: model.Frequency(strings.TrimSpace(input.Frequency)),
		Time:      strings.TrimSpace(input.Time),
		Enabled:   input.Enabled,
	}

	if !setting.Frequency.Valid() {
		return nil, apperr.Invalid("frequency", `must be "every-other-day" or "weekly"`)
	}
	if _, _, err := parseClock(setting.Time); err != nil {
		return nil, apperr.Invalid("time", err.Error())
	}

	if raw := strings.TrimSpace(input.PhoneNumber); raw != "" {
		phone, ok := NormalizePhone(raw)
		if !ok {
			return nil, apperr.Invalid("phoneNumber", "must contain 10 digits")
		}
		setting.PhoneNumber = phone
	}
	if setting.Enabled && setting.PhoneNumber == "" {
		return nil, apperr.Invalid("phoneNumber", "required when notifications are enabled")
	}

	if setting.Frequency == model.FrequencyWeekly {
		day := strings.ToLower(strings.TrimSpace(input.DayOfWeek))
		if !validWeekday(day) {
			return nil, apperr.Invalid("dayOfWeek", "weekly reminders need a weekday such as \"monday\"")
		}
		setting.DayOfWeek = day
	}
	return setting, nil
}

// NormalizePhone parses a North American number and returns its 10-digit
// national form.
func NormalizePhone(raw string) (string, bool) {
	num, err := phonenumbers.Parse(raw, phoneRegion)
	if err != nil || num.GetCountryCode() != 1 {
		return "", false
	}
	national := phonenumbers.GetNationalSignificantNumber(num)
	if len(national) != phoneDigits {
		return "", false
	}
	return national, true
}

func validWeekday(day string) bool {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == day {
			return true
		}
	}
	return false
}

// LocalClock renders now in loc as the "HH:MM" and lowercase weekday used
// for matching.
func LocalClock(now time.Time, loc *time.Location) (clock, weekday string) {
	local := now.In(loc)
	return local.Format("15:04"), strings.ToLower(local.Weekday().String())
}

// DueSettings returns every enabled setting with a phone number whose time
// equals now's HH:MM and, for weekly cadence, whose weekday equals now's.
// Matching is exact, so callers must invoke it at least once per minute.
func (s *NotificationService) DueSettings(ctx context.Context, now time.Time) ([]model.NotificationSetting, error) {
	clock, weekday := LocalClock(now, s.loc)
	return s.repo.ListDue(ctx, clock, weekday)
}
