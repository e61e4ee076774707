package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the stored profile behind a principal. Role and is_active live here,
// not in the session token: privileged operations re-read this row.
type User struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:16;not null" json:"role"`
	Phone        string    `gorm:"size:32" json:"phone,omitempty"`
	Department   string    `gorm:"size:128" json:"department,omitempty"`
	Designation  string    `gorm:"size:128" json:"designation,omitempty"`
	// No column default on purpose: gorm drops zero-valued fields with a
	// default tag from the INSERT, which would silently turn an explicit
	// false into true. Creators set the flag themselves.
	IsActive bool `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Roles enforced by the authorization model. Faculty/HoD/Dean variants exist
// only as display metadata on the client and are stored as plain "user".
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// BeforeCreate assigns a server-side identifier.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsAdmin reports whether the stored profile carries the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
