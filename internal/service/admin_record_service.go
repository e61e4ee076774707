package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/rims-platform/rims-api/internal/apperr"
	"github.com/rims-platform/rims-api/internal/dto"
	"github.com/rims-platform/rims-api/internal/events"
	"github.com/rims-platform/rims-api/internal/models"
	"github.com/rims-platform/rims-api/internal/observability"
	"github.com/rims-platform/rims-api/internal/registry"
	"github.com/rims-platform/rims-api/internal/repository"
)

// AdminRecordService is the review surface. Every call re-authorizes against
// the caller's stored profile rather than trusting session claims, so a role
// change takes effect on the next request.
type AdminRecordService interface {
	ListAll(ctx context.Context, callerID string, filter dto.RecordFilter) ([]dto.RecordResponse, error)
	ListPending(ctx context.Context, callerID string) ([]dto.RecordResponse, error)
	Get(ctx context.Context, callerID, id string) (dto.RecordResponse, error)
	Approve(ctx context.Context, callerID, id string) (dto.RecordResponse, error)
	Reject(ctx context.Context, callerID, id string) (dto.RecordResponse, error)
	Delete(ctx context.Context, callerID, id string) error
}

type adminRecordService struct {
	records repository.RecordRepository
	users   repository.UserRepository
	blobs   BlobStore
	hub     *events.Hub
	logger  zerolog.Logger
	now     func() time.Time
}

// NewAdminRecordService constructs the admin review service.
func NewAdminRecordService(records repository.RecordRepository, users repository.UserRepository, blobs BlobStore, hub *events.Hub, logger zerolog.Logger) AdminRecordService {
	return &adminRecordService{
		records: records,
		users:   users,
		blobs:   blobs,
		hub:     hub,
		logger:  logger.With().Str("component", "admin_record_service").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// requireStoredAdmin loads the caller's profile and checks the stored role.
// The JWT role claim is only an early gate at the middleware; this read is
// the authoritative check.
func requireStoredAdmin(ctx context.Context, users repository.UserRepository, callerID string) (models.User, error) {
	if callerID == "" {
		return models.User{}, apperr.New(apperr.KindUnauthenticated, "authentication required")
	}

	caller, err := users.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, apperr.New(apperr.KindUnauthenticated, "unknown caller")
		}
		return models.User{}, apperr.Wrap(apperr.KindInternal, "failed to load caller profile", err)
	}

	if !caller.IsActive {
		return models.User{}, apperr.New(apperr.KindPermissionDenied, "account is deactivated")
	}

	if !caller.IsAdmin() {
		return models.User{}, apperr.New(apperr.KindPermissionDenied, "admin role required")
	}

	return caller, nil
}

func (s *adminRecordService) ListAll(ctx context.Context, callerID string, filter dto.RecordFilter) ([]dto.RecordResponse, error) {
	if _, err := requireStoredAdmin(ctx, s.users, callerID); err != nil {
		return nil, err
	}

	records, err := s.records.ListAll(ctx, repository.RecordFilter{
		Type:    filter.Type,
		Status:  filter.Status,
		Year:    filter.Year,
		OwnerID: filter.OwnerID,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list records", err)
	}

	return toRecordResponses(records), nil
}

func (s *adminRecordService) ListPending(ctx context.Context, callerID string) ([]dto.RecordResponse, error) {
	pending := models.StatusPending
	return s.ListAll(ctx, callerID, dto.RecordFilter{Status: &pending})
}

func (s *adminRecordService) Get(ctx context.Context, callerID, id string) (dto.RecordResponse, error) {
	if _, err := requireStoredAdmin(ctx, s.users, callerID); err != nil {
		return dto.RecordResponse{}, err
	}

	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RecordResponse{}, apperr.New(apperr.KindNotFound, "record not found")
		}
		return dto.RecordResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load record", err)
	}

	return dto.NewRecordResponse(record, registry.Meta(record.Type).Label), nil
}

func (s *adminRecordService) Approve(ctx context.Context, callerID, id string) (dto.RecordResponse, error) {
	return s.decide(ctx, callerID, id, events.ActionApproved, s.records.Approve)
}

func (s *adminRecordService) Reject(ctx context.Context, callerID, id string) (dto.RecordResponse, error) {
	return s.decide(ctx, callerID, id, events.ActionRejected, s.records.Reject)
}

func (s *adminRecordService) decide(ctx context.Context, callerID, id string, action events.Action, transition func(context.Context, string, string, time.Time) error) (dto.RecordResponse, error) {
	tracer := otel.Tracer("github.com/rims-platform/rims-api/internal/service/admin_record")
	ctx, span := tracer.Start(ctx, "record.decide")
	span.SetAttributes(
		attribute.String("record.id", id),
		attribute.String("record.decision", string(action)),
	)
	defer span.End()

	caller, err := requireStoredAdmin(ctx, s.users, callerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "authorization_failed")
		observability.ApprovalDecisions().WithLabelValues(string(action), "denied").Inc()
		return dto.RecordResponse{}, err
	}

	if err := transition(ctx, id, caller.ID, s.now()); err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			span.SetStatus(codes.Error, "not_found")
			observability.ApprovalDecisions().WithLabelValues(string(action), "not_found").Inc()
			return dto.RecordResponse{}, apperr.New(apperr.KindNotFound, "record not found")
		case errors.Is(err, repository.ErrNotPending):
			span.SetStatus(codes.Error, "not_pending")
			observability.ApprovalDecisions().WithLabelValues(string(action), "conflict").Inc()
			return dto.RecordResponse{}, apperr.New(apperr.KindConflict, "record already left the pending state; decisions are final")
		default:
			span.SetStatus(codes.Error, "transition_failed")
			observability.ApprovalDecisions().WithLabelValues(string(action), "error").Inc()
			return dto.RecordResponse{}, apperr.Wrap(apperr.KindInternal, "failed to record decision", err)
		}
	}

	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		return dto.RecordResponse{}, apperr.Wrap(apperr.KindInternal, "failed to reload record", err)
	}

	s.logger.Info().
		Str("record_id", record.ID).
		Str("admin_id", caller.ID).
		Str("decision", string(action)).
		Msg("approval decision recorded")

	observability.ApprovalDecisions().WithLabelValues(string(action), "success").Inc()
	s.hub.Publish(events.RecordEvent{
		Action:     action,
		RecordID:   record.ID,
		RecordType: record.Type,
		OwnerID:    record.OwnerID,
		Status:     record.Status,
	})

	return dto.NewRecordResponse(record, registry.Meta(record.Type).Label), nil
}

// Delete removes any record regardless of owner or status. Blob cleanup runs
// first, same as the owner path.
func (s *adminRecordService) Delete(ctx context.Context, callerID, id string) error {
	caller, err := requireStoredAdmin(ctx, s.users, callerID)
	if err != nil {
		return err
	}

	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "record not found")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to load record", err)
	}

	if err := purgeFolder(ctx, s.blobs, s.blobs.RecordFolder(record.OwnerID, record.ID)); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "failed to delete record attachments", err)
	}

	if err := s.records.Delete(ctx, record.ID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete record", err)
	}

	s.logger.Info().
		Str("record_id", record.ID).
		Str("admin_id", caller.ID).
		Msg("record deleted by admin")

	s.hub.Publish(events.RecordEvent{
		Action:     events.ActionDeleted,
		RecordID:   record.ID,
		RecordType: record.Type,
		OwnerID:    record.OwnerID,
		Status:     record.Status,
	})

	return nil
}

func toRecordResponses(records []models.Record) []dto.RecordResponse {
	responses := make([]dto.RecordResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, dto.NewRecordResponse(record, registry.Meta(record.Type).Label))
	}
	return responses
}
