package models

import "time"

// SyncFields are the cross-cutting columns shared by every mutable row.
// LastChange is bumped on every mutation including soft deletion so that
// clients can sync incrementally; Deleted rows stay visible as tombstones
// until garbage collection removes them.
type SyncFields struct {
	LastChange time.Time `bun:"last_change,notnull" json:"last_change"`
	Deleted    bool      `bun:"deleted,notnull,default:false" json:"deleted"`
}

// Touch refreshes last_change.
func (s *SyncFields) Touch(now time.Time) {
	s.LastChange = now
}

// MarkDeleted tombstones the row and refreshes last_change.
func (s *SyncFields) MarkDeleted(now time.Time) {
	s.Deleted = true
	s.LastChange = now
}

// IsDeleted reports the tombstone flag.
func (s *SyncFields) IsDeleted() bool { return s.Deleted }

// Record is implemented by every user-visible row. Owner returns the owning
// user and false for rows that are system-shared (user_id IS NULL).
type Record interface {
	RecordID() int64
	Owner() (UserID, bool)
	Touch(now time.Time)
	MarkDeleted(now time.Time)
	IsDeleted() bool
}

// SoftDeleteTables lists every table that uses tombstones, in garbage
// collection order (children before parents).
var SoftDeleteTables = []string{
	"strength_set",
	"strength_session",
	"metcon_session",
	"metcon_movement",
	"metcon",
	"cardio_session",
	"route",
	"diary",
	"wod",
	"movement",
	"action_event",
	"action_rule",
	"action",
	"platform_credential",
	"action_provider",
	"platform",
	"user",
}
