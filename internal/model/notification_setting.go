package model

import "time"

type Frequency string

const (
	// FrequencyEveryOtherDay fires every day the time matches; no day parity is tracked.
	FrequencyEveryOtherDay Frequency = "every-other-day"
	FrequencyWeekly        Frequency = "weekly"
)

func (f Frequency) Valid() bool {
	return f == FrequencyEveryOtherDay || f == FrequencyWeekly
}

// NotificationSetting is a user's reminder cadence. There is at most one per user.
type NotificationSetting struct {
	OwnerID     string    `json:"ownerId"`
	PhoneNumber string    `json:"phoneNumber"`
	Frequency   Frequency `json:"frequency"`
	Time        string    `json:"time"`
	DayOfWeek   string    `json:"dayOfWeek,omitempty"`
	Enabled     bool      `json:"enabled"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
