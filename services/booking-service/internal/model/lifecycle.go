package model

import "time"

// Lifecycle is the soft-delete state of a row. The zero value is active.
type Lifecycle struct {
	deletedAt *time.Time
}

func Active() Lifecycle { return Lifecycle{} }

func Deleted(at time.Time) Lifecycle {
	at = at.UTC()
	return Lifecycle{deletedAt: &at}
}

// LifecycleFrom maps a nullable deleted_at column.
func LifecycleFrom(deletedAt *time.Time) Lifecycle {
	if deletedAt == nil {
		return Active()
	}
	return Deleted(*deletedAt)
}

func (l Lifecycle) IsDeleted() bool { return l.deletedAt != nil }

// DeletedAt returns the tombstone time and whether the row is deleted.
func (l Lifecycle) DeletedAt() (time.Time, bool) {
	if l.deletedAt == nil {
		return time.Time{}, false
	}
	return *l.deletedAt, true
}

// Column returns the value to persist in deleted_at.
func (l Lifecycle) Column() *time.Time { return l.deletedAt }
