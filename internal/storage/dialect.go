package storage

import sq "github.com/Masterminds/squirrel"

const (
	TaskTable    = "task"
	SettingTable = "notification_setting"
)

// TaskColumns maps logical task attributes to backend column names.
type TaskColumns struct {
	ID              string
	OwnerID         string
	Title           string
	IsActive        string
	IsCompleted     string
	SortOrder       string
	CreatedAt       string
	CompletedAt     string
	AddedToActiveAt string
}

// SettingColumns maps logical notification setting attributes to backend column names.
type SettingColumns struct {
	OwnerID     string
	PhoneNumber string
	Frequency   string
	Time        string
	DayOfWeek   string
	Enabled     string
	UpdatedAt   string
}

// Dialect is the backend-agnostic accessor map. Callers build queries and
// read rows through it instead of hard-coding identifiers.
type Dialect struct {
	Name    string
	Task    TaskColumns
	Setting SettingColumns
	// ForUpdate is appended to SELECTs that must lock rows inside a transaction.
	ForUpdate string
	// LockOwner takes a transaction-scoped lock on one owner's task lists.
	// Empty when the backend already serializes every transaction.
	LockOwner    string
	Placeholders sq.PlaceholderFormat
}

// Builder returns a squirrel statement builder emitting this backend's placeholders.
func (d Dialect) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.Placeholders)
}

// SQLiteDialect keeps the camelCase identifiers declared in the schema.
var SQLiteDialect = Dialect{
	Name: "sqlite",
	Task: TaskColumns{
		ID:              "id",
		OwnerID:         "ownerId",
		Title:           "title",
		IsActive:        "isActive",
		IsCompleted:     "isCompleted",
		SortOrder:       "sortOrder",
		CreatedAt:       "createdAt",
		CompletedAt:     "completedAt",
		AddedToActiveAt: "addedToActiveAt",
	},
	Setting: SettingColumns{
		OwnerID:     "ownerId",
		PhoneNumber: "phoneNumber",
		Frequency:   "frequency",
		Time:        "timeOfDay",
		DayOfWeek:   "dayOfWeek",
		Enabled:     "enabled",
		UpdatedAt:   "updatedAt",
	},
	Placeholders: sq.Question,
}

// PostgresDialect uses the case-folded names postgres stores for unquoted identifiers.
var PostgresDialect = Dialect{
	Name: "postgres",
	Task: TaskColumns{
		ID:              "id",
		OwnerID:         "ownerid",
		Title:           "title",
		IsActive:        "isactive",
		IsCompleted:     "iscompleted",
		SortOrder:       "sortorder",
		CreatedAt:       "createdat",
		CompletedAt:     "completedat",
		AddedToActiveAt: "addedtoactiveat",
	},
	Setting: SettingColumns{
		OwnerID:     "ownerid",
		PhoneNumber: "phonenumber",
		Frequency:   "frequency",
		Time:        "timeofday",
		DayOfWeek:   "dayofweek",
		Enabled:     "enabled",
		UpdatedAt:   "updatedat",
	},
	ForUpdate:    "FOR UPDATE",
	LockOwner:    "SELECT pg_advisory_xact_lock(hashtext($1))",
	Placeholders: sq.Dollar,
}
