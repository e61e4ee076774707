package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/rims-platform/rims-api/internal/models"
)

// ErrNotPending indicates an approval transition was attempted on a record
// that already left the pending state.
var ErrNotPending = errors.New("record is not pending")

// RecordFilter narrows record queries.
type RecordFilter struct {
	Type    *string
	Status  *string
	Year    *int
	OwnerID *string
}

// ContentUpdate is the only shape the generic update path accepts. Status,
// owner and audit fields are unreachable through it.
type ContentUpdate struct {
	Title       *string
	Year        *int
	Description *string
	Data        map[string]interface{}
}

// RecordRepository defines data operations for records. Ownership and role
// scoping happen at the query level; identity checks are the service's job.
type RecordRepository interface {
	Create(ctx context.Context, record *models.Record) error
	GetByID(ctx context.Context, id string) (models.Record, error)
	ListForOwner(ctx context.Context, ownerID string, status *string) ([]models.Record, error)
	ListAll(ctx context.Context, filter RecordFilter) ([]models.Record, error)
	ListByType(ctx context.Context, recordType, status string, ownerID *string) ([]models.Record, error)
	UpdateContent(ctx context.Context, id string, update ContentUpdate) error
	Approve(ctx context.Context, id, adminID string, at time.Time) error
	Reject(ctx context.Context, id, adminID string, at time.Time) error
	Delete(ctx context.Context, id string) error
	ReplaceFiles(ctx context.Context, id string, files []models.RecordFile) error
	CountByStatus(ctx context.Context, ownerID *string) (map[string]int64, error)
	CountByType(ctx context.Context, ownerID *string) (map[string]int64, error)
}

type recordRepository struct {
	db *gorm.DB
}

// NewRecordRepository instantiates the repository.
func NewRecordRepository(db *gorm.DB) RecordRepository {
	return &recordRepository{db: db}
}

func (r *recordRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Record{}).
		Preload("Files", func(db *gorm.DB) *gorm.DB {
			return db.Order("record_files.position ASC")
		})
}

func (r *recordRepository) Create(ctx context.Context, record *models.Record) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *recordRepository) GetByID(ctx context.Context, id string) (models.Record, error) {
	var record models.Record
	if err := r.baseQuery(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return models.Record{}, err
	}

	return record, nil
}

func (r *recordRepository) ListForOwner(ctx context.Context, ownerID string, status *string) ([]models.Record, error) {
	query := r.baseQuery(ctx).Where("owner_id = ?", ownerID)

	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var records []models.Record
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *recordRepository) ListAll(ctx context.Context, filter RecordFilter) ([]models.Record, error) {
	query := r.baseQuery(ctx)

	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.Year != nil {
		query = query.Where("year = ?", *filter.Year)
	}

	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}

	var records []models.Record
	if err := query.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *recordRepository) ListByType(ctx context.Context, recordType, status string, ownerID *string) ([]models.Record, error) {
	query := r.baseQuery(ctx).
		Where("type = ?", recordType).
		Where("status = ?", status)

	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	}

	var records []models.Record
	if err := query.Order("year DESC").Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *recordRepository) UpdateContent(ctx context.Context, id string, update ContentUpdate) error {
	values := map[string]interface{}{"updated_at": time.Now().UTC()}

	if update.Title != nil {
		values["title"] = *update.Title
	}
	if update.Year != nil {
		values["year"] = *update.Year
	}
	if update.Description != nil {
		values["description"] = *update.Description
	}
	if update.Data != nil {
		values["data"] = datatypes.JSONMap(update.Data)
	}

	result := r.db.WithContext(ctx).Model(&models.Record{}).Where("id = ?", id).Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// Approve transitions pending -> approved with a conditional update, so two
// concurrent approvals cannot both write audit fields.
func (r *recordRepository) Approve(ctx context.Context, id, adminID string, at time.Time) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status":      models.StatusApproved,
		"approved_at": at,
		"approved_by": adminID,
		"updated_at":  at,
	})
}

// Reject transitions pending -> rejected, symmetric to Approve.
func (r *recordRepository) Reject(ctx context.Context, id, adminID string, at time.Time) error {
	return r.transition(ctx, id, map[string]interface{}{
		"status":      models.StatusRejected,
		"rejected_at": at,
		"rejected_by": adminID,
		"updated_at":  at,
	})
}

func (r *recordRepository) transition(ctx context.Context, id string, values map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Record{}).
		Where("id = ?", id).
		Where("status = ?", models.StatusPending).
		Updates(values)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Record{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrNotPending
	}

	return nil
}

func (r *recordRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("record_id = ?", id).Delete(&models.RecordFile{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&models.Record{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return nil
	})
}

// ReplaceFiles swaps the whole attachment list. Callers needing additive
// semantics read, append, and call this again.
func (r *recordRepository) ReplaceFiles(ctx context.Context, id string, files []models.RecordFile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Record{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Where("record_id = ?", id).Delete(&models.RecordFile{}).Error; err != nil {
			return err
		}

		for i := range files {
			files[i].ID = 0
			files[i].RecordID = id
			files[i].Position = i
		}

		if len(files) > 0 {
			if err := tx.Create(&files).Error; err != nil {
				return err
			}
		}

		return tx.Model(&models.Record{}).Where("id = ?", id).
			Update("updated_at", time.Now().UTC()).Error
	})
}

func (r *recordRepository) CountByStatus(ctx context.Context, ownerID *string) (map[string]int64, error) {
	return r.countGrouped(ctx, "status", ownerID)
}

func (r *recordRepository) CountByType(ctx context.Context, ownerID *string) (map[string]int64, error) {
	return r.countGrouped(ctx, "type", ownerID)
}

func (r *recordRepository) countGrouped(ctx context.Context, column string, ownerID *string) (map[string]int64, error) {
	type row struct {
		Key   string
		Count int64
	}

	query := r.db.WithContext(ctx).Model(&models.Record{}).
		Select(column + " AS key, COUNT(*) AS count").
		Group(column)

	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	}

	var rows []row
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, entry := range rows {
		counts[entry.Key] = entry.Count
	}

	return counts, nil
}
