package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/rims-platform/rims-api/internal/apperr"
	"github.com/rims-platform/rims-api/internal/dto"
	"github.com/rims-platform/rims-api/internal/events"
	"github.com/rims-platform/rims-api/internal/models"
	"github.com/rims-platform/rims-api/internal/observability"
	"github.com/rims-platform/rims-api/internal/registry"
	"github.com/rims-platform/rims-api/internal/repository"
	"github.com/rims-platform/rims-api/pkg/cloudinary"
)

const uploadConcurrency = 4

// FileInput is one attachment read out of a multipart submission. Content is
// buffered so uploads can be retried and sniffed for their real media type.
type FileInput struct {
	Name    string
	Content []byte
}

// BlobStore is the slice of the Cloudinary service the workflow needs.
type BlobStore interface {
	RecordFolder(ownerID, recordID string) string
	OwnerFolder(ownerID string) string
	Upload(ctx context.Context, folder, name string, reader io.Reader) (cloudinary.StoredFile, error)
	DeleteFolder(ctx context.Context, prefix string) error
	ListFolder(ctx context.Context, prefix string) ([]cloudinary.StoredFile, error)
}

// purgeFolder deletes every blob under prefix and lists the prefix afterwards
// to confirm nothing survived. A leftover means the caller must keep its row
// so the delete can be retried.
func purgeFolder(ctx context.Context, blobs BlobStore, prefix string) error {
	if err := blobs.DeleteFolder(ctx, prefix); err != nil {
		return err
	}

	leftovers, err := blobs.ListFolder(ctx, prefix)
	if err != nil {
		return fmt.Errorf("verify cleanup of %s: %w", prefix, err)
	}
	if len(leftovers) > 0 {
		return fmt.Errorf("%d assets still present under %s", len(leftovers), prefix)
	}

	return nil
}

// RecordService is the submitter-facing workflow surface. Every operation is
// scoped to the calling owner; admin-wide access lives in AdminRecordService.
type RecordService interface {
	Create(ctx context.Context, ownerID string, payload dto.RecordCreateRequest, files []FileInput) (dto.RecordResponse, error)
	GetOwn(ctx context.Context, ownerID, id string) (dto.RecordResponse, error)
	ListOwn(ctx context.Context, ownerID string, status *string) ([]dto.RecordResponse, error)
	ListApproved(ctx context.Context, recordType string, ownerID *string) ([]dto.RecordResponse, error)
	UpdateContent(ctx context.Context, ownerID, id string, payload dto.RecordContentUpdateRequest) (dto.RecordResponse, error)
	AttachFiles(ctx context.Context, ownerID, id string, files []FileInput) (dto.RecordResponse, error)
	Delete(ctx context.Context, ownerID, id string) error
}

type recordService struct {
	repo      repository.RecordRepository
	blobs     BlobStore
	hub       *events.Hub
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewRecordService constructs the submitter workflow service.
func NewRecordService(repo repository.RecordRepository, blobs BlobStore, hub *events.Hub, validate *validator.Validate, logger zerolog.Logger) RecordService {
	return &recordService{
		repo:      repo,
		blobs:     blobs,
		hub:       hub,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "record_service").Logger(),
	}
}

// Create persists a new pending record and then uploads its attachments. The
// two steps are deliberately not atomic: when uploads fail the record stays,
// without attachments, and a later AttachFiles call completes the submission.
func (s *recordService) Create(ctx context.Context, ownerID string, payload dto.RecordCreateRequest, files []FileInput) (dto.RecordResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		observability.RecordSubmissions().WithLabelValues(payload.Type, "invalid").Inc()
		return dto.RecordResponse{}, apperr.Wrap(apperr.KindInvalidInput, "invalid record payload", err)
	}

	schema, ok := registry.Lookup(payload.Type)
	if !ok {
		observability.RecordSubmissions().WithLabelValues(payload.Type, "invalid").Inc()
		return dto.RecordResponse{}, apperr.Newf(apperr.KindInvalidInput, "unknown record type %q", payload.Type)
	}

	data := s.normalizeData(payload.Data, payload.Title, payload.Year, payload.Description)
	if err := validateAgainstSchema(schema, data); err != nil {
		observability.RecordSubmissions().WithLabelValues(payload.Type, "invalid").Inc()
		return dto.RecordResponse{}, err
	}

	record := models.Record{
		Type:        payload.Type,
		OwnerID:     ownerID,
		Status:      models.StatusPending,
		Title:       s.sanitizer.Sanitize(payload.Title),
		Year:        payload.Year,
		Description: s.sanitizer.Sanitize(payload.Description),
		Data:        data,
	}

	if err := s.repo.Create(ctx, &record); err != nil {
		observability.RecordSubmissions().WithLabelValues(payload.Type, "error").Inc()
		return dto.RecordResponse{}, apperr.Wrap(apperr.KindInternal, "failed to create record", err)
	}

	s.logger.Info().
		Str("record_id", record.ID).
		Str("type", record.Type).
		Str("owner_id", ownerID).
		Int("files", len(files)).
		Msg("record submitted")

	observability.RecordSubmissions().WithLabelValues(payload.Type, "success").Inc()
	s.hub.Publish(events.RecordEvent{
		Action:     events.ActionCreated,
		RecordID:   record.ID,
		RecordType: record.Type,
		OwnerID:    record.OwnerID,
		Status:     record.Status,
	})

	if len(files) > 0 {
		return s.AttachFiles(ctx, ownerID, record.ID, files)
	}

	return dto.NewRecordResponse(record, registry.Meta(record.Type).Label), nil
}

func (s *recordService) GetOwn(ctx context.Context, ownerID, id string) (dto.RecordResponse, error) {
	record, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return dto.RecordResponse{}, err
	}

	return dto.NewRecordResponse(record, registry.Meta(record.Type).Label), nil
}

func (s *recordService) ListOwn(ctx context.Context, ownerID string, status *string) ([]dto.RecordResponse, error) {
	records, err := s.repo.ListForOwner(ctx, ownerID, status)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list records", err)
	}

	responses := make([]dto.RecordResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, dto.NewRecordResponse(record, registry.Meta(record.Type).Label))
	}

	return responses, nil
}

// ListApproved is the reporting read path: approved records of one type,
// newest year first, optionally narrowed to a single owner.
func (s *recordService) ListApproved(ctx context.Context, recordType string, ownerID *string) ([]dto.RecordResponse, error) {
	if !registry.IsKnown(recordType) {
		return nil, apperr.Newf(apperr.KindInvalidInput, "unknown record type %q", recordType)
	}

	records, err := s.repo.ListByType(ctx, recordType, models.StatusApproved, ownerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list approved records", err)
	}

	return toRecordResponses(records), nil
}

// UpdateContent mutates title, year, description and payload of an owned
// pending record. Status, owner and audit fields are unreachable from here.
func (s *recordService) UpdateContent(ctx context.Context, ownerID, id string, payload dto.RecordContentUpdateRequest) (dto.RecordResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RecordResponse{}, apperr.Wrap(apperr.KindInvalidInput, "invalid record update", err)
	}

	record, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return dto.RecordResponse{}, err
	}

	if record.IsTerminal() {
		return dto.RecordResponse{}, apperr.Newf(apperr.KindConflict, "record is already %s and can no longer be edited", record.Status)
	}

	update := repository.ContentUpdate{Year: payload.Year}
	if payload.Title != nil {
		title := s.sanitizer.Sanitize(*payload.Title)
		update.Title = &title
	}
	if payload.Description != nil {
		description := s.sanitizer.Sanitize(*payload.Description)
		update.Description = &description
	}
	if payload.Data != nil {
		// Partial patch: overlay onto the stored payload so validation sees
		// the full document, and persist the merged map.
		merged := make(map[string]interface{}, len(record.Data)+len(payload.Data))
		for key, value := range record.Data {
			merged[key] = value
		}
		for key, value := range s.sanitizeData(payload.Data) {
			merged[key] = value
		}
		if update.Title != nil {
			merged["title"] = *update.Title
		}
		if update.Year != nil {
			merged["year"] = *update.Year
		}
		if update.Description != nil {
			merged["description"] = *update.Description
		}
		if err := validateAgainstSchema(registry.SchemaOrDefault(record.Type), merged); err != nil {
			return dto.RecordResponse{}, err
		}
		update.Data = merged
	}

	if err := s.repo.UpdateContent(ctx, id, update); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RecordResponse{}, apperr.New(apperr.KindNotFound, "record not found")
		}
		return dto.RecordResponse{}, apperr.Wrap(apperr.KindInternal, "failed to update record", err)
	}

	record, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.RecordResponse{}, apperr.Wrap(apperr.KindInternal, "failed to reload record", err)
	}

	s.hub.Publish(events.RecordEvent{
		Action:     events.ActionUpdated,
		RecordID:   record.ID,
		RecordType: record.Type,
		OwnerID:    record.OwnerID,
		Status:     record.Status,
	})

	return dto.NewRecordResponse(record, registry.Meta(record.Type).Label), nil
}

// AttachFiles uploads the given files concurrently and swaps them in as the
// record's attachment list, alongside any previously stored attachments.
func (s *recordService) AttachFiles(ctx context.Context, ownerID, id string, files []FileInput) (dto.RecordResponse, error) {
	record, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return dto.RecordResponse{}, err
	}

	if len(files) == 0 {
		return dto.RecordResponse{}, apperr.New(apperr.KindInvalidInput, "no files supplied")
	}

	uploaded, err := s.uploadAll(ctx, ownerID, record.ID, files)
	if err != nil {
		return dto.RecordResponse{}, err
	}

	combined := append(append([]models.RecordFile{}, record.Files...), uploaded...)
	if err := s.repo.ReplaceFiles(ctx, record.ID, combined); err != nil {
		return dto.RecordResponse{}, apperr.Wrap(apperr.KindInternal, "failed to store attachment list", err)
	}

	record, err = s.repo.GetByID(ctx, record.ID)
	if err != nil {
		return dto.RecordResponse{}, apperr.Wrap(apperr.KindInternal, "failed to reload record", err)
	}

	s.logger.Info().
		Str("record_id", record.ID).
		Int("attachments", len(record.Files)).
		Msg("attachments stored")

	return dto.NewRecordResponse(record, registry.Meta(record.Type).Label), nil
}

// Delete removes an owned record. Blob cleanup runs first so a failure leaves
// the row in place instead of orphaning assets.
func (s *recordService) Delete(ctx context.Context, ownerID, id string) error {
	record, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if err := purgeFolder(ctx, s.blobs, s.blobs.RecordFolder(ownerID, record.ID)); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "failed to delete record attachments", err)
	}

	if err := s.repo.Delete(ctx, record.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "record not found")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to delete record", err)
	}

	s.logger.Info().Str("record_id", record.ID).Str("owner_id", ownerID).Msg("record deleted by owner")

	s.hub.Publish(events.RecordEvent{
		Action:     events.ActionDeleted,
		RecordID:   record.ID,
		RecordType: record.Type,
		OwnerID:    record.OwnerID,
		Status:     record.Status,
	})

	return nil
}

func (s *recordService) getOwned(ctx context.Context, ownerID, id string) (models.Record, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Record{}, apperr.New(apperr.KindNotFound, "record not found")
		}
		return models.Record{}, apperr.Wrap(apperr.KindInternal, "failed to load record", err)
	}

	if record.OwnerID != ownerID {
		return models.Record{}, apperr.New(apperr.KindPermissionDenied, "record belongs to another user")
	}

	return record, nil
}

func (s *recordService) uploadAll(ctx context.Context, ownerID, recordID string, files []FileInput) ([]models.RecordFile, error) {
	tracer := otel.Tracer("github.com/rims-platform/rims-api/internal/service/record")
	ctx, span := tracer.Start(ctx, "record.upload_attachments")
	span.SetAttributes(
		attribute.String("record.id", recordID),
		attribute.Int("record.file_count", len(files)),
	)
	defer span.End()

	start := time.Now()
	folder := s.blobs.RecordFolder(ownerID, recordID)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(uploadConcurrency)

	uploaded := make([]models.RecordFile, len(files))
	for i, file := range files {
		i, file := i, file
		group.Go(func() error {
			stored, err := s.blobs.Upload(groupCtx, folder, file.Name, bytes.NewReader(file.Content))
			if err != nil {
				return fmt.Errorf("upload %s: %w", file.Name, err)
			}

			uploaded[i] = models.RecordFile{
				FileName:   file.Name,
				FileURL:    stored.URL,
				FileType:   mimetype.Detect(file.Content).String(),
				UploadedAt: time.Now().UTC(),
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload_failed")
		observability.UploadLatency().WithLabelValues("error").Observe(time.Since(start).Seconds())
		s.logger.Error().Err(err).Str("record_id", recordID).Msg("attachment upload failed")
		return nil, apperr.Wrap(apperr.KindUnavailable, "attachment upload failed, record kept without new files", err)
	}

	observability.UploadLatency().WithLabelValues("success").Observe(time.Since(start).Seconds())

	return uploaded, nil
}

// normalizeData mirrors the top-level fields into the payload so one shape
// reaches the schema check regardless of how the client split the form.
func (s *recordService) normalizeData(data map[string]interface{}, title string, year int, description string) map[string]interface{} {
	normalized := s.sanitizeData(data)
	normalized["title"] = s.sanitizer.Sanitize(title)
	normalized["year"] = year
	if description != "" {
		normalized["description"] = s.sanitizer.Sanitize(description)
	}

	return normalized
}

func (s *recordService) sanitizeData(data map[string]interface{}) map[string]interface{} {
	sanitized := make(map[string]interface{}, len(data))
	for key, value := range data {
		if text, ok := value.(string); ok {
			sanitized[key] = s.sanitizer.Sanitize(text)
			continue
		}
		sanitized[key] = value
	}

	return sanitized
}

// validateAgainstSchema rejects unknown payload keys and enforces required
// fields. The repository never sees an unvalidated payload.
func validateAgainstSchema(schema registry.Schema, data map[string]interface{}) error {
	known := schema.FieldKeys()

	var unknown []string
	for key := range data {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		return apperr.Newf(apperr.KindInvalidInput, "unknown fields for %s record: %s", schema.Type, strings.Join(unknown, ", "))
	}

	for _, field := range schema.Fields {
		if !field.Required {
			continue
		}
		value, ok := data[field.Key]
		if !ok || isEmptyValue(value) {
			return apperr.Newf(apperr.KindInvalidInput, "missing required field %q", field.Key)
		}
	}

	return nil
}

func isEmptyValue(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []interface{}:
		return len(v) == 0
	default:
		return false
	}
}
