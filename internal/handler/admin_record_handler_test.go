package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rims-platform/rims-api/internal/apperr"
	"github.com/rims-platform/rims-api/internal/dto"
	"github.com/rims-platform/rims-api/internal/handler"
)

type mockAdminRecordService struct {
	lastCallerID string
	lastFilter   dto.RecordFilter
	response     dto.RecordResponse
	list         []dto.RecordResponse
	err          error
}

func (m *mockAdminRecordService) ListAll(_ context.Context, callerID string, filter dto.RecordFilter) ([]dto.RecordResponse, error) {
	m.lastCallerID = callerID
	m.lastFilter = filter
	return m.list, m.err
}

func (m *mockAdminRecordService) ListPending(_ context.Context, callerID string) ([]dto.RecordResponse, error) {
	m.lastCallerID = callerID
	return m.list, m.err
}

func (m *mockAdminRecordService) Get(_ context.Context, callerID, _ string) (dto.RecordResponse, error) {
	m.lastCallerID = callerID
	return m.response, m.err
}

func (m *mockAdminRecordService) Approve(_ context.Context, callerID, _ string) (dto.RecordResponse, error) {
	m.lastCallerID = callerID
	return m.response, m.err
}

func (m *mockAdminRecordService) Reject(_ context.Context, callerID, _ string) (dto.RecordResponse, error) {
	m.lastCallerID = callerID
	return m.response, m.err
}

func (m *mockAdminRecordService) Delete(_ context.Context, callerID, _ string) error {
	m.lastCallerID = callerID
	return m.err
}

func adminRecordTestApp(svc *mockAdminRecordService, stats *mockStatsService) *fiber.App {
	if stats == nil {
		stats = &mockStatsService{}
	}
	app := fiber.New()
	group := app.Group("/api/v1/admin/records", withPrincipal("admin-1", "admin"))
	handler.NewAdminRecordHandler(svc, stats, zerolog.Nop()).Register(group)
	return app
}

func TestAdminRecordHandlerApprove(t *testing.T) {
	svc := &mockAdminRecordService{response: dto.RecordResponse{ID: "rec-1", Status: "approved"}}
	app := adminRecordTestApp(svc, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/admin/records/rec-1/approve", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "admin-1", svc.lastCallerID)

	var body struct {
		Message string             `json:"message"`
		Data    dto.RecordResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.Equal(t, "record approved", body.Message)
	require.Equal(t, "approved", body.Data.Status)
}

func TestAdminRecordHandlerApproveConflict(t *testing.T) {
	svc := &mockAdminRecordService{err: apperr.New(apperr.KindConflict, "record already left the pending state; decisions are final")}
	app := adminRecordTestApp(svc, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/admin/records/rec-1/approve", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestAdminRecordHandlerRejectDenied(t *testing.T) {
	svc := &mockAdminRecordService{err: apperr.New(apperr.KindPermissionDenied, "admin role required")}
	app := adminRecordTestApp(svc, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/admin/records/rec-1/reject", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAdminRecordHandlerPending(t *testing.T) {
	svc := &mockAdminRecordService{list: []dto.RecordResponse{{ID: "rec-1", Status: "pending"}}}
	app := adminRecordTestApp(svc, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/admin/records/pending", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data []dto.RecordResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.Len(t, body.Data, 1)
}

func TestAdminRecordHandlerListFilters(t *testing.T) {
	svc := &mockAdminRecordService{}
	app := adminRecordTestApp(svc, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/admin/records?type=journal&status=approved&year=2024&owner_id=owner-7", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.NotNil(t, svc.lastFilter.Type)
	require.Equal(t, "journal", *svc.lastFilter.Type)
	require.NotNil(t, svc.lastFilter.Status)
	require.Equal(t, "approved", *svc.lastFilter.Status)
	require.NotNil(t, svc.lastFilter.Year)
	require.Equal(t, 2024, *svc.lastFilter.Year)
	require.NotNil(t, svc.lastFilter.OwnerID)
	require.Equal(t, "owner-7", *svc.lastFilter.OwnerID)
}

func TestAdminRecordHandlerListInvalidYear(t *testing.T) {
	app := adminRecordTestApp(&mockAdminRecordService{}, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/admin/records?year=later", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAdminRecordHandlerStats(t *testing.T) {
	stats := &mockStatsService{stats: dto.RecordStatsResponse{Total: 10, Approved: 6}}
	app := adminRecordTestApp(&mockAdminRecordService{}, stats)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/admin/records/stats", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data dto.RecordStatsResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.Equal(t, int64(10), body.Data.Total)
}

func TestAdminRecordHandlerDelete(t *testing.T) {
	svc := &mockAdminRecordService{}
	app := adminRecordTestApp(svc, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/records/rec-1", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "admin-1", svc.lastCallerID)
}
