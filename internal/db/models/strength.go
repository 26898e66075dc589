package models

import (
	"time"

	"github.com/uptrace/bun"
)

// StrengthSession groups the sets of one strength workout. Interval is the
// rest between sets in milliseconds.
type StrengthSession struct {
	bun.BaseModel `bun:"table:strength_session,alias:ss"`

	ID         StrengthSessionID `bun:"id,pk" json:"id"`
	UserID     UserID            `bun:"user_id,notnull" json:"user_id"`
	Datetime   time.Time         `bun:"datetime,notnull" json:"datetime"`
	MovementID MovementID        `bun:"movement_id,notnull" json:"movement_id"`
	Interval   *int              `bun:"interval" json:"interval"`
	Comments   *string           `bun:"comments" json:"comments"`
	SyncFields
}

func (s *StrengthSession) RecordID() int64       { return int64(s.ID) }
func (s *StrengthSession) Owner() (UserID, bool) { return s.UserID, true }

// StrengthSet is one set within a strength session.
type StrengthSet struct {
	bun.BaseModel `bun:"table:strength_set,alias:sst"`

	ID                StrengthSetID     `bun:"id,pk" json:"id"`
	UserID            UserID            `bun:"user_id,notnull" json:"user_id"`
	StrengthSessionID StrengthSessionID `bun:"strength_session_id,notnull" json:"strength_session_id"`
	SetNumber         int               `bun:"set_number,notnull" json:"set_number"`
	Count             int               `bun:"count,notnull" json:"count"`
	Weight            *float64          `bun:"weight" json:"weight"`
	SyncFields
}

func (s *StrengthSet) RecordID() int64       { return int64(s.ID) }
func (s *StrengthSet) Owner() (UserID, bool) { return s.UserID, true }
