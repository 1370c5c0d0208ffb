package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"focus-planner/internal/apperr"
	"focus-planner/internal/model"
	"focus-planner/internal/storage"
)

// NotificationRepository stores one reminder setting per user.
type NotificationRepository struct {
	store storage.Store
	c     storage.SettingColumns
	cols  []string
	sb    sq.StatementBuilderType
	now   func() time.Time
}

func NewNotificationRepository(store storage.Store) *NotificationRepository {
	d := store.Dialect()
	c := d.Setting
	return &NotificationRepository{
		store: store,
		c:     c,
		cols:  []string{c.OwnerID, c.PhoneNumber, c.Frequency, c.Time, c.DayOfWeek, c.Enabled, c.UpdatedAt},
		sb:    d.Builder(),
		now:   time.Now,
	}
}

// WithClock replaces the time source used for updatedAt.
func (r *NotificationRepository) WithClock(now func() time.Time) *NotificationRepository {
	r.now = now
	return r
}

func (r *NotificationRepository) scan(row storage.Row) model.NotificationSetting {
	return model.NotificationSetting{
		OwnerID:     row.String(r.c.OwnerID),
		PhoneNumber: row.String(r.c.PhoneNumber),
		Frequency:   model.Frequency(row.String(r.c.Frequency)),
		Time:        row.String(r.c.Time),
		DayOfWeek:   row.String(r.c.DayOfWeek),
		Enabled:     row.Bool(r.c.Enabled),
		UpdatedAt:   fromMillis(row.Int64(r.c.UpdatedAt)),
	}
}

func (r *NotificationRepository) Get(ctx context.Context, ownerID string) (*model.NotificationSetting, error) {
	row, err := get(ctx, r.store, r.sb.Select(r.cols...).
		From(storage.SettingTable).
		Where(sq.Eq{r.c.OwnerID: ownerID}))
	if err != nil {
		return nil, fmt.Errorf("find notification setting: %w", err)
	}
	if row == nil {
		return nil, apperr.NotFound("notification setting", ownerID)
	}
	setting := r.scan(row)
	return &setting, nil
}

// Upsert replaces the owner's setting wholesale.
func (r *NotificationRepository) Upsert(ctx context.Context, setting *model.NotificationSetting) error {
	setting.UpdatedAt = r.now().UTC().Truncate(time.Millisecond)

	updates := make([]string, 0, len(r.cols)-1)
	for _, col := range r.cols[1:] {
		updates = append(updates, col+" = excluded."+col)
	}
	_, err := run(ctx, r.store, r.sb.Insert(storage.SettingTable).
		Columns(r.cols...).
		Values(
			setting.OwnerID,
			emptyToNull(setting.PhoneNumber),
			string(setting.Frequency),
			setting.Time,
			emptyToNull(setting.DayOfWeek),
			setting.Enabled,
			toMillis(setting.UpdatedAt),
		).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", r.c.OwnerID, strings.Join(updates, ", "))))
	if err != nil {
		return fmt.Errorf("save notification setting: %w", err)
	}
	return nil
}

func (r *NotificationRepository) Delete(ctx context.Context, ownerID string) error {
	res, err := run(ctx, r.store, r.sb.Delete(storage.SettingTable).Where(sq.Eq{r.c.OwnerID: ownerID}))
	if err != nil {
		return fmt.Errorf("delete notification setting: %w", err)
	}
	if res.AffectedCount == 0 {
		return apperr.NotFound("notification setting", ownerID)
	}
	return nil
}

// ListDue returns enabled settings with a phone number whose cadence matches
// clock ("HH:MM") and weekday (lowercase full name) exactly.
func (r *NotificationRepository) ListDue(ctx context.Context, clock, weekday string) ([]model.NotificationSetting, error) {
	rows, err := all(ctx, r.store, r.sb.Select(r.cols...).
		From(storage.SettingTable).
		Where(sq.Eq{r.c.Enabled: true, r.c.Time: clock}).
		Where(sq.NotEq{r.c.PhoneNumber: nil}).
		Where(sq.NotEq{r.c.PhoneNumber: ""}).
		Where(sq.Or{
			sq.Eq{r.c.Frequency: string(model.FrequencyEveryOtherDay)},
			sq.Eq{r.c.Frequency: string(model.FrequencyWeekly), r.c.DayOfWeek: weekday},
		}).
		OrderBy(r.c.OwnerID+" ASC"))
	if err != nil {
		return nil, fmt.Errorf("list due settings: %w", err)
	}
	settings := make([]model.NotificationSetting, 0, len(rows))
	for _, row := range rows {
		settings = append(settings, r.scan(row))
	}
	return settings, nil
}

func emptyToNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}
