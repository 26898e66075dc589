package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Date is a calendar date "YYYY-MM-DD" without a time zone, stored as text.
type Date string

// DateOf formats a time as a Date in UTC.
func DateOf(t time.Time) Date {
	return Date(t.UTC().Format("2006-01-02"))
}

func (d Date) Valid() bool {
	_, err := time.Parse("2006-01-02", string(d))
	return err == nil
}

func (d Date) Validate() error {
	if !d.Valid() {
		return fmt.Errorf("invalid date %q", string(d))
	}
	return nil
}

// Diary is a per-day journal entry with optional bodyweight.
type Diary struct {
	bun.BaseModel `bun:"table:diary,alias:d"`

	ID         DiaryID  `bun:"id,pk" json:"id"`
	UserID     UserID   `bun:"user_id,notnull" json:"user_id"`
	Date       Date     `bun:"date,notnull" json:"date"`
	Bodyweight *float64 `bun:"bodyweight" json:"bodyweight"`
	Comments   *string  `bun:"comments" json:"comments"`
	SyncFields
}

func (d *Diary) RecordID() int64       { return int64(d.ID) }
func (d *Diary) Owner() (UserID, bool) { return d.UserID, true }

// Wod is a workout of the day, typically written by a wod-fetching action
// provider on the user's behalf.
type Wod struct {
	bun.BaseModel `bun:"table:wod,alias:w"`

	ID          WodID   `bun:"id,pk" json:"id"`
	UserID      UserID  `bun:"user_id,notnull" json:"user_id"`
	Date        Date    `bun:"date,notnull" json:"date"`
	Description *string `bun:"description" json:"description"`
	SyncFields
}

func (w *Wod) RecordID() int64       { return int64(w.ID) }
func (w *Wod) Owner() (UserID, bool) { return w.UserID, true }
