package models

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// ActionProvider is a worker principal that executes action events against
// one platform. Password holds the plaintext on registration and the
// argon2id hash once persisted.
type ActionProvider struct {
	bun.BaseModel `bun:"table:action_provider,alias:ap"`

	ID          ActionProviderID `bun:"id,pk" json:"id"`
	Name        string           `bun:"name,notnull,unique" json:"name"`
	Password    string           `bun:"password,notnull" json:"password"`
	PlatformID  PlatformID       `bun:"platform_id,notnull" json:"platform_id"`
	Description *string          `bun:"description" json:"description"`
	SyncFields
}

func (ap *ActionProvider) RecordID() int64       { return int64(ap.ID) }
func (ap *ActionProvider) Owner() (UserID, bool) { return 0, false }

func (ap *ActionProvider) ValidateForCreate() error {
	if ap.ID == 0 {
		return errors.New("id is required")
	}
	if ap.Name == "" {
		return errors.New("name is required")
	}
	if ap.Password == "" {
		return errors.New("password is required")
	}
	if ap.PlatformID == 0 {
		return errors.New("platform_id is required")
	}
	return nil
}

// Action is a named capability an action provider offers. CreateBefore and
// DeleteAfter are milliseconds and govern how far ahead the scheduler
// materialises events and how long after their datetime they expire.
type Action struct {
	bun.BaseModel `bun:"table:action,alias:a"`

	ID               ActionID         `bun:"id,pk" json:"id"`
	Name             string           `bun:"name,notnull" json:"name"`
	ActionProviderID ActionProviderID `bun:"action_provider_id,notnull" json:"action_provider_id"`
	Description      *string          `bun:"description" json:"description"`
	CreateBefore     int64            `bun:"create_before,notnull" json:"create_before"`
	DeleteAfter      int64            `bun:"delete_after,notnull" json:"delete_after"`
	SyncFields
}

func (a *Action) RecordID() int64       { return int64(a.ID) }
func (a *Action) Owner() (UserID, bool) { return 0, false }

func (a *Action) ValidateForCreate() error {
	if a.ID == 0 {
		return errors.New("id is required")
	}
	if a.Name == "" {
		return errors.New("name is required")
	}
	if a.ActionProviderID == 0 {
		return errors.New("action_provider_id is required")
	}
	if a.CreateBefore < 0 || a.DeleteAfter < 0 {
		return errors.New("create_before and delete_after must not be negative")
	}
	return nil
}

// ActionRule is a user's recurring request to execute an action at a given
// weekday and time of day.
type ActionRule struct {
	bun.BaseModel `bun:"table:action_rule,alias:ar"`

	ID        ActionRuleID `bun:"id,pk" json:"id"`
	UserID    UserID       `bun:"user_id,notnull" json:"user_id"`
	ActionID  ActionID     `bun:"action_id,notnull" json:"action_id"`
	Weekday   Weekday      `bun:"weekday,notnull" json:"weekday"`
	Time      TimeOfDay    `bun:"time,notnull" json:"time"`
	Arguments *string      `bun:"arguments" json:"arguments"`
	Enabled   bool         `bun:"enabled,notnull" json:"enabled"`
	SyncFields
}

func (r *ActionRule) RecordID() int64       { return int64(r.ID) }
func (r *ActionRule) Owner() (UserID, bool) { return r.UserID, true }

func (r *ActionRule) ValidateForCreate() error {
	if r.ID == 0 {
		return errors.New("id is required")
	}
	if !r.Weekday.Valid() {
		return errors.New("invalid weekday")
	}
	if !r.Time.Valid() {
		return errors.New("invalid time of day")
	}
	return nil
}

// ActionEvent is one concrete scheduled execution of an action for one user.
// Non-deleted events are unique on (user_id, action_id, datetime); the
// scheduler relies on that constraint for idempotent bulk inserts.
type ActionEvent struct {
	bun.BaseModel `bun:"table:action_event,alias:ae"`

	ID        ActionEventID `bun:"id,pk" json:"id"`
	UserID    UserID        `bun:"user_id,notnull" json:"user_id"`
	ActionID  ActionID      `bun:"action_id,notnull" json:"action_id"`
	Datetime  time.Time     `bun:"datetime,notnull" json:"datetime"`
	Arguments *string       `bun:"arguments" json:"arguments"`
	Enabled   bool          `bun:"enabled,notnull" json:"enabled"`
	SyncFields
}

func (e *ActionEvent) RecordID() int64       { return int64(e.ID) }
func (e *ActionEvent) Owner() (UserID, bool) { return e.UserID, true }

func (e *ActionEvent) ValidateForCreate() error {
	if e.ID == 0 {
		return errors.New("id is required")
	}
	if e.Datetime.IsZero() {
		return errors.New("datetime is required")
	}
	return nil
}

// CreatableActionRule is the scheduler's view of an enabled, non-deleted
// rule joined with its action's create_before horizon.
type CreatableActionRule struct {
	ActionRuleID ActionRuleID `json:"action_rule_id"`
	UserID       UserID       `json:"user_id"`
	ActionID     ActionID     `json:"action_id"`
	Weekday      Weekday      `json:"weekday"`
	Time         TimeOfDay    `json:"time"`
	Arguments    *string      `json:"arguments"`
	CreateBefore int64        `json:"create_before"`
}

// DeletableActionEvent is the scheduler's view of a non-deleted event joined
// with its action's delete_after expiry.
type DeletableActionEvent struct {
	ActionEventID ActionEventID `json:"action_event_id"`
	Datetime      time.Time     `json:"datetime"`
	DeleteAfter   int64         `json:"delete_after"`
}

// ExecutableActionEvent is the provider's view of an enabled, non-deleted
// event joined with its action and the user's platform credential for the
// provider's platform. Username and Password are nil when the user has not
// stored a credential.
type ExecutableActionEvent struct {
	ActionEventID ActionEventID `json:"action_event_id"`
	ActionName    string        `json:"action_name"`
	Datetime      time.Time     `json:"datetime"`
	Arguments     *string       `json:"arguments"`
	UserID        UserID        `json:"user_id"`
	Username      *string       `json:"username"`
	Password      *string       `json:"password"`
}
