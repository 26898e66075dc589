package models

import (
	"errors"

	"github.com/uptrace/bun"
)

// Platform is a third-party service that action providers execute against
// (e.g. sportstracker, wodify). Platforms are shared rows without an owner.
type Platform struct {
	bun.BaseModel `bun:"table:platform,alias:p"`

	ID   PlatformID `bun:"id,pk" json:"id"`
	Name string     `bun:"name,notnull,unique" json:"name"`
	// Credential is true when users must store a platform credential for
	// the platform's provider to act for them.
	Credential bool `bun:"credential,notnull" json:"credential"`
	SyncFields
}

func (p *Platform) RecordID() int64       { return int64(p.ID) }
func (p *Platform) Owner() (UserID, bool) { return 0, false }

func (p *Platform) ValidateForCreate() error {
	if p.ID == 0 {
		return errors.New("id is required")
	}
	if p.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// PlatformCredential stores a user's login for one platform. Credentials are
// handed to the platform's action provider through the executable event view
// and never live in provider config files.
type PlatformCredential struct {
	bun.BaseModel `bun:"table:platform_credential,alias:pc"`

	ID         PlatformCredentialID `bun:"id,pk" json:"id"`
	UserID     UserID               `bun:"user_id,notnull" json:"user_id"`
	PlatformID PlatformID           `bun:"platform_id,notnull" json:"platform_id"`
	Username   string               `bun:"username,notnull" json:"username"`
	Password   string               `bun:"password,notnull" json:"password"`
	SyncFields
}

func (c *PlatformCredential) RecordID() int64       { return int64(c.ID) }
func (c *PlatformCredential) Owner() (UserID, bool) { return c.UserID, true }
