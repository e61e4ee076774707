package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Record is one submitted item of academic output subject to admin approval.
// The Data payload is an open map whose keys are validated against the type's
// registry schema at the service boundary.
type Record struct {
	ID          string            `gorm:"type:uuid;primaryKey" json:"id"`
	Type        string            `gorm:"size:32;not null;index" json:"type"`
	OwnerID     string            `gorm:"type:uuid;not null;index" json:"owner_id"`
	Status      string            `gorm:"size:16;not null;index" json:"status"`
	Title       string            `gorm:"size:512;not null" json:"title"`
	Year        int               `gorm:"index" json:"year"`
	Description string            `gorm:"type:text" json:"description"`
	Data        datatypes.JSONMap `json:"data"`
	Files       []RecordFile      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"files"`
	ApprovedAt  *time.Time        `json:"approved_at,omitempty"`
	ApprovedBy  *string           `gorm:"type:uuid" json:"approved_by,omitempty"`
	RejectedAt  *time.Time        `json:"rejected_at,omitempty"`
	RejectedBy  *string           `gorm:"type:uuid" json:"rejected_by,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Approval states. Draft is reserved for future use and never reachable
// through the current workflow.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusDraft    = "draft"
)

// BeforeCreate assigns a server-side identifier; caller-supplied ids are ignored upstream.
func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// IsPending reports whether the record still awaits an admin decision.
func (r Record) IsPending() bool {
	return r.Status == StatusPending
}

// IsTerminal reports whether the record has reached approved or rejected.
func (r Record) IsTerminal() bool {
	return r.Status == StatusApproved || r.Status == StatusRejected
}

// RecordFile is an attachment owned by a record. Attachments have no
// independent lifecycle; replacing the set replaces the whole list.
type RecordFile struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	RecordID   string    `gorm:"type:uuid;not null;index" json:"-"`
	FileName   string    `gorm:"size:255;not null" json:"file_name"`
	FileURL    string    `gorm:"size:1024;not null" json:"file_url"`
	FileType   string    `gorm:"size:128" json:"file_type"`
	Position   int       `gorm:"not null" json:"-"`
	UploadedAt time.Time `json:"uploaded_at"`
}
