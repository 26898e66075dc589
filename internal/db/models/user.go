package models

import (
	"errors"

	"github.com/uptrace/bun"
)

// User is an end-user account. Password holds the plaintext password on
// create/update requests and the argon2id hash once persisted.
type User struct {
	bun.BaseModel `bun:"table:user,alias:u"`

	ID       UserID `bun:"id,pk" json:"id"`
	Username string `bun:"username,notnull,unique" json:"username"`
	Password string `bun:"password,notnull" json:"password"`
	Email    string `bun:"email,notnull,unique" json:"email"`
	SyncFields
}

func (u *User) RecordID() int64       { return int64(u.ID) }
func (u *User) Owner() (UserID, bool) { return u.ID, true }

// ValidateForCreate verifies the record is well formed before insertion.
func (u *User) ValidateForCreate() error {
	if u.ID == 0 {
		return errors.New("id is required")
	}
	if u.Username == "" {
		return errors.New("username is required")
	}
	if u.Password == "" {
		return errors.New("password is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	return nil
}
