package models

import (
	"errors"

	"github.com/uptrace/bun"
)

type MovementCategory string

const (
	MovementCategoryCardio   MovementCategory = "Cardio"
	MovementCategoryStrength MovementCategory = "Strength"
)

func (c MovementCategory) Valid() bool {
	return c == MovementCategoryCardio || c == MovementCategoryStrength
}

// MovementUnit is the unit a movement is counted in within a metcon.
type MovementUnit string

const (
	UnitReps  MovementUnit = "Reps"
	UnitCal   MovementUnit = "Cal"
	UnitMeter MovementUnit = "Meter"
	UnitKm    MovementUnit = "Km"
	UnitYard  MovementUnit = "Yard"
	UnitFoot  MovementUnit = "Foot"
	UnitMile  MovementUnit = "Mile"
)

func (u MovementUnit) Valid() bool {
	switch u {
	case UnitReps, UnitCal, UnitMeter, UnitKm, UnitYard, UnitFoot, UnitMile:
		return true
	}
	return false
}

// Movement is an exercise. Movements are predefined and shared when UserID
// is nil, or user-defined. Category decides whether the movement can be used
// in cardio or strength sessions.
type Movement struct {
	bun.BaseModel `bun:"table:movement,alias:m"`

	ID          MovementID       `bun:"id,pk" json:"id"`
	UserID      *UserID          `bun:"user_id" json:"user_id"`
	Name        string           `bun:"name,notnull" json:"name"`
	Description *string          `bun:"description" json:"description"`
	Category    MovementCategory `bun:"category,notnull" json:"category"`
	SyncFields
}

func (m *Movement) RecordID() int64 { return int64(m.ID) }
func (m *Movement) Owner() (UserID, bool) {
	if m.UserID == nil {
		return 0, false
	}
	return *m.UserID, true
}

func (m *Movement) ValidateForCreate() error {
	if m.ID == 0 {
		return errors.New("id is required")
	}
	if m.Name == "" {
		return errors.New("name is required")
	}
	if !m.Category.Valid() {
		return errors.New("invalid category")
	}
	return nil
}
