package model

import "time"

// SortGap is the spacing between neighbouring sort keys after a rebalance.
const SortGap int64 = 1000

// Task is a single to-do owned by exactly one user. A task lives in the
// backlog (master) partition until promoted to the active partition;
// completion is an independent flag.
type Task struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"ownerId"`
	Title           string     `json:"title"`
	IsActive        bool       `json:"isActive"`
	IsCompleted     bool       `json:"isCompleted"`
	SortOrder       int64      `json:"sortOrder"`
	CreatedAt       time.Time  `json:"createdAt"`
	CompletedAt     *time.Time `json:"completedAt"`
	AddedToActiveAt *time.Time `json:"addedToActiveAt"`
}

// Partition identifies one ordered list of a user's incomplete tasks.
type Partition string

const (
	PartitionActive  Partition = "active"
	PartitionBacklog Partition = "master"
)

func (p Partition) IsActive() bool { return p == PartitionActive }

func PartitionOf(isActive bool) Partition {
	if isActive {
		return PartitionActive
	}
	return PartitionBacklog
}

// Age reports how long the task has been in the active partition.
func (t Task) Age(now time.Time) time.Duration {
	if !t.IsActive || t.AddedToActiveAt == nil {
		return 0
	}
	return now.Sub(*t.AddedToActiveAt)
}
