package dto

type NotificationSettingRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Frequency   string `json:"frequency" binding:"required"`
	Time        string `json:"time" binding:"required"`
	DayOfWeek   string `json:"dayOfWeek"`
	Enabled     bool   `json:"enabled"`
}
