package dto

import (
	"time"

	"github.com/rims-platform/rims-api/internal/models"
)

// RecordCreateRequest describes a new submission. Status, owner and audit
// fields are never part of this shape; the service assigns them.
type RecordCreateRequest struct {
	Type        string                 `json:"type" form:"type" validate:"required"`
	Title       string                 `json:"title" form:"title" validate:"required,min=3,max=512"`
	Year        int                    `json:"year" form:"year" validate:"required,gte=1950,lte=2100"`
	Description string                 `json:"description" form:"description"`
	Data        map[string]interface{} `json:"data" validate:"required"`
}

// RecordContentUpdateRequest mutates content only. The shape deliberately
// omits status, owner and approval audit fields so they cannot be reached
// through the generic update path.
type RecordContentUpdateRequest struct {
	Title       *string                `json:"title" validate:"omitempty,min=3,max=512"`
	Year        *int                   `json:"year" validate:"omitempty,gte=1950,lte=2100"`
	Description *string                `json:"description"`
	Data        map[string]interface{} `json:"data"`
}

// RecordFilter narrows admin record listings.
type RecordFilter struct {
	Type    *string `query:"type"`
	Status  *string `query:"status" validate:"omitempty,oneof=pending approved rejected"`
	Year    *int    `query:"year"`
	OwnerID *string `query:"owner_id"`
}

// RecordFileResponse serializes one attachment.
type RecordFileResponse struct {
	FileName   string    `json:"file_name"`
	FileURL    string    `json:"file_url"`
	FileType   string    `json:"file_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// RecordResponse is returned to API clients when viewing records.
type RecordResponse struct {
	ID          string                 `json:"id"`
	Type        string                 `json:"type"`
	TypeLabel   string                 `json:"type_label"`
	OwnerID     string                 `json:"owner_id"`
	Status      string                 `json:"status"`
	Title       string                 `json:"title"`
	Year        int                    `json:"year"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data"`
	Files       []RecordFileResponse   `json:"files"`
	ApprovedAt  *time.Time             `json:"approved_at,omitempty"`
	ApprovedBy  *string                `json:"approved_by,omitempty"`
	RejectedAt  *time.Time             `json:"rejected_at,omitempty"`
	RejectedBy  *string                `json:"rejected_by,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// RecordStatsResponse aggregates counts for dashboards.
type RecordStatsResponse struct {
	Total       int64            `json:"total"`
	Pending     int64            `json:"pending"`
	Approved    int64            `json:"approved"`
	Rejected    int64            `json:"rejected"`
	ByType      map[string]int64 `json:"by_type"`
	GeneratedAt time.Time        `json:"generated_at"`
	CacheHit    bool             `json:"cache_hit"`
}

// NewRecordResponse converts a Record model into a DTO. typeLabel comes from
// the registry so retired types still render with a badge.
func NewRecordResponse(model models.Record, typeLabel string) RecordResponse {
	response := RecordResponse{
		ID:          model.ID,
		Type:        model.Type,
		TypeLabel:   typeLabel,
		OwnerID:     model.OwnerID,
		Status:      model.Status,
		Title:       model.Title,
		Year:        model.Year,
		Description: model.Description,
		Data:        model.Data,
		Files:       make([]RecordFileResponse, 0, len(model.Files)),
		ApprovedAt:  model.ApprovedAt,
		ApprovedBy:  model.ApprovedBy,
		RejectedAt:  model.RejectedAt,
		RejectedBy:  model.RejectedBy,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}

	if response.Data == nil {
		response.Data = map[string]interface{}{}
	}

	for _, file := range model.Files {
		response.Files = append(response.Files, RecordFileResponse{
			FileName:   file.FileName,
			FileURL:    file.FileURL,
			FileType:   file.FileType,
			UploadedAt: file.UploadedAt,
		})
	}

	return response
}
