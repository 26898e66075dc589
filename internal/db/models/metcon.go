package models

import (
	"time"

	"github.com/uptrace/bun"
)

type MetconType string

const (
	MetconTypeAmrap   MetconType = "Amrap"
	MetconTypeEmom    MetconType = "Emom"
	MetconTypeForTime MetconType = "ForTime"
)

func (t MetconType) Valid() bool {
	switch t {
	case MetconTypeAmrap, MetconTypeEmom, MetconTypeForTime:
		return true
	}
	return false
}

// Metcon is a metabolic conditioning workout description. Predefined metcons
// are shared (UserID nil); Timecap is milliseconds.
type Metcon struct {
	bun.BaseModel `bun:"table:metcon,alias:mc"`

	ID          MetconID   `bun:"id,pk" json:"id"`
	UserID      *UserID    `bun:"user_id" json:"user_id"`
	Name        string     `bun:"name,notnull" json:"name"`
	MetconType  MetconType `bun:"metcon_type,notnull" json:"metcon_type"`
	Rounds      *int       `bun:"rounds" json:"rounds"`
	Timecap     *int       `bun:"timecap" json:"timecap"`
	Description *string    `bun:"description" json:"description"`
	SyncFields
}

func (m *Metcon) RecordID() int64 { return int64(m.ID) }
func (m *Metcon) Owner() (UserID, bool) {
	if m.UserID == nil {
		return 0, false
	}
	return *m.UserID, true
}

// MetconMovement assigns a movement with count and unit to a metcon.
type MetconMovement struct {
	bun.BaseModel `bun:"table:metcon_movement,alias:mm"`

	ID         MetconMovementID `bun:"id,pk" json:"id"`
	UserID     *UserID          `bun:"user_id" json:"user_id"`
	MetconID   MetconID         `bun:"metcon_id,notnull" json:"metcon_id"`
	MovementID MovementID       `bun:"movement_id,notnull" json:"movement_id"`
	Count      int              `bun:"count,notnull" json:"count"`
	Unit       MovementUnit     `bun:"unit,notnull" json:"unit"`
	Weight     *float64         `bun:"weight" json:"weight"`
	SyncFields
}

func (m *MetconMovement) RecordID() int64 { return int64(m.ID) }
func (m *MetconMovement) Owner() (UserID, bool) {
	if m.UserID == nil {
		return 0, false
	}
	return *m.UserID, true
}

// MetconSession is one performed metcon. Time is milliseconds needed to
// finish (ForTime), Rounds/Reps the achieved score (Amrap).
type MetconSession struct {
	bun.BaseModel `bun:"table:metcon_session,alias:ms"`

	ID       MetconSessionID `bun:"id,pk" json:"id"`
	UserID   UserID          `bun:"user_id,notnull" json:"user_id"`
	MetconID MetconID        `bun:"metcon_id,notnull" json:"metcon_id"`
	Datetime time.Time       `bun:"datetime,notnull" json:"datetime"`
	Time     *int            `bun:"time" json:"time"`
	Rounds   *int            `bun:"rounds" json:"rounds"`
	Reps     *int            `bun:"reps" json:"reps"`
	Rx       bool            `bun:"rx,notnull" json:"rx"`
	Comments *string         `bun:"comments" json:"comments"`
	SyncFields
}

func (m *MetconSession) RecordID() int64       { return int64(m.ID) }
func (m *MetconSession) Owner() (UserID, bool) { return m.UserID, true }
