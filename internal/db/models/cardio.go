package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type CardioType string

const (
	CardioTypeTraining       CardioType = "Training"
	CardioTypeActiveRecovery CardioType = "ActiveRecovery"
	CardioTypeFreetime       CardioType = "Freetime"
)

func (c CardioType) Valid() bool {
	switch c {
	case CardioTypeTraining, CardioTypeActiveRecovery, CardioTypeFreetime:
		return true
	}
	return false
}

// Position is one GPS sample of a track. Distance is meters since start,
// Time is milliseconds since start.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
	Distance  float64 `json:"distance"`
	Time      int     `json:"time"`
}

// Track is a GPS track stored as a JSON column.
type Track []Position

func (t *Track) Scan(value any) error {
	if value == nil {
		*t = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan Track: expected []byte, got %T", value)
	}
	return json.Unmarshal(raw, t)
}

func (t Track) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Route is a user-defined cardio route.
type Route struct {
	bun.BaseModel `bun:"table:route,alias:rt"`

	ID       RouteID `bun:"id,pk" json:"id"`
	UserID   UserID  `bun:"user_id,notnull" json:"user_id"`
	Name     string  `bun:"name,notnull" json:"name"`
	Distance int     `bun:"distance,notnull" json:"distance"`
	Ascent   *int    `bun:"ascent" json:"ascent"`
	Descent  *int    `bun:"descent" json:"descent"`
	Track    Track   `bun:"track" json:"track"`
	SyncFields
}

func (r *Route) RecordID() int64       { return int64(r.ID) }
func (r *Route) Owner() (UserID, bool) { return r.UserID, true }

// CardioSession is one recorded cardio workout. Distances are meters,
// Time and AvgCadence-related durations are milliseconds, Datetime is UTC.
type CardioSession struct {
	bun.BaseModel `bun:"table:cardio_session,alias:cs"`

	ID           CardioSessionID `bun:"id,pk" json:"id"`
	UserID       UserID          `bun:"user_id,notnull" json:"user_id"`
	MovementID   MovementID      `bun:"movement_id,notnull" json:"movement_id"`
	CardioType   CardioType      `bun:"cardio_type,notnull" json:"cardio_type"`
	Datetime     time.Time       `bun:"datetime,notnull" json:"datetime"`
	Distance     *int            `bun:"distance" json:"distance"`
	Ascent       *int            `bun:"ascent" json:"ascent"`
	Descent      *int            `bun:"descent" json:"descent"`
	Time         *int            `bun:"time" json:"time"`
	Calories     *int            `bun:"calories" json:"calories"`
	Track        Track           `bun:"track" json:"track"`
	AvgCadence   *int            `bun:"avg_cadence" json:"avg_cadence"`
	AvgHeartRate *int            `bun:"avg_heart_rate" json:"avg_heart_rate"`
	RouteID      *RouteID        `bun:"route_id" json:"route_id"`
	Comments     *string         `bun:"comments" json:"comments"`
	SyncFields
}

func (c *CardioSession) RecordID() int64       { return int64(c.ID) }
func (c *CardioSession) Owner() (UserID, bool) { return c.UserID, true }

func (c *CardioSession) ValidateForCreate() error {
	if c.ID == 0 {
		return errors.New("id is required")
	}
	if c.MovementID == 0 {
		return errors.New("movement_id is required")
	}
	if !c.CardioType.Valid() {
		return errors.New("invalid cardio_type")
	}
	if c.Datetime.IsZero() {
		return errors.New("datetime is required")
	}
	return nil
}
