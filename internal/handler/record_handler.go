package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/rims-platform/rims-api/internal/dto"
	"github.com/rims-platform/rims-api/internal/events"
	"github.com/rims-platform/rims-api/internal/middleware"
	"github.com/rims-platform/rims-api/internal/models"
	"github.com/rims-platform/rims-api/internal/registry"
	"github.com/rims-platform/rims-api/internal/service"
	"github.com/rims-platform/rims-api/internal/utils"
)

// RecordHandler wires the submitter-facing record endpoints, including the
// websocket subscription stream.
type RecordHandler struct {
	records        service.RecordService
	stats          service.StatsService
	hub            *events.Hub
	maxUploadBytes int64
	logger         zerolog.Logger
}

// NewRecordHandler constructs the handler.
func NewRecordHandler(records service.RecordService, stats service.StatsService, hub *events.Hub, maxUploadBytes int64, logger zerolog.Logger) *RecordHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}

	return &RecordHandler{
		records:        records,
		stats:          stats,
		hub:            hub,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With().Str("component", "record_handler").Logger(),
	}
}

// Register attaches record endpoints to the authenticated router group.
func (h *RecordHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws", websocket.New(h.handleSocket))

	router.Get("/types", h.listTypes)
	router.Get("/stats", h.ownStats)
	router.Get("/reports/:type", h.reportByType)
	router.Post("", h.create)
	router.Get("", h.listOwn)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.updateContent)
	router.Delete("/:id", h.delete)
	router.Post("/:id/files", h.attachFiles)
}

// listTypes exposes the registry so clients can render submission forms.
func (h *RecordHandler) listTypes(c *fiber.Ctx) error {
	type typeEntry struct {
		Meta   registry.TypeMeta `json:"meta"`
		Schema registry.Schema   `json:"schema"`
	}

	entries := make([]typeEntry, 0, len(registry.Types()))
	for _, recordType := range registry.Types() {
		schema, _ := registry.Lookup(recordType)
		entries = append(entries, typeEntry{Meta: registry.Meta(recordType), Schema: schema})
	}

	return utils.SendSuccess(c, "record types retrieved", entries)
}

func (h *RecordHandler) create(c *fiber.Ctx) error {
	var payload dto.RecordCreateRequest
	var files []service.FileInput

	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		parsed, parsedFiles, err := h.parseMultipart(c)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		payload, files = parsed, parsedFiles
	} else if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	record, err := h.records.Create(c.UserContext(), userIDFromContext(c), payload, files)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Str("type", payload.Type).Msg("record submission rejected")
		return sendAppError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "record submitted", record)
}

func (h *RecordHandler) listOwn(c *fiber.Ctx) error {
	records, err := h.records.ListOwn(c.UserContext(), userIDFromContext(c), queryString(c, "status"))
	if err != nil {
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "records retrieved", records)
}

func (h *RecordHandler) get(c *fiber.Ctx) error {
	record, err := h.records.GetOwn(c.UserContext(), userIDFromContext(c), c.Params("id"))
	if err != nil {
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "record retrieved", record)
}

func (h *RecordHandler) updateContent(c *fiber.Ctx) error {
	var payload dto.RecordContentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	record, err := h.records.UpdateContent(c.UserContext(), userIDFromContext(c), c.Params("id"), payload)
	if err != nil {
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "record updated", record)
}

func (h *RecordHandler) delete(c *fiber.Ctx) error {
	if err := h.records.Delete(c.UserContext(), userIDFromContext(c), c.Params("id")); err != nil {
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "record deleted", nil)
}

func (h *RecordHandler) attachFiles(c *fiber.Ctx) error {
	files, err := h.collectFiles(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	record, err := h.records.AttachFiles(c.UserContext(), userIDFromContext(c), c.Params("id"), files)
	if err != nil {
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "attachments stored", record)
}

// reportByType lists approved records of one type, year descending. An
// optional owner_id query narrows the report to a single researcher.
func (h *RecordHandler) reportByType(c *fiber.Ctx) error {
	records, err := h.records.ListApproved(c.UserContext(), c.Params("type"), queryString(c, "owner_id"))
	if err != nil {
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "report retrieved", records)
}

func (h *RecordHandler) ownStats(c *fiber.Ctx) error {
	stats, err := h.stats.OwnerStats(c.UserContext(), userIDFromContext(c))
	if err != nil {
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "stats retrieved", stats)
}

// handleSocket streams record events. Owners see their own records; admins
// see everything. Optional type/status query parameters narrow the stream.
func (h *RecordHandler) handleSocket(conn *websocket.Conn) {
	userID := fmt.Sprint(conn.Locals("user_id"))
	if userID == "" || userID == "<nil>" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "user id missing"))
		_ = conn.Close()
		return
	}

	filter := events.Filter{
		RecordType: strings.TrimSpace(conn.Query("type")),
		Status:     strings.TrimSpace(conn.Query("status")),
	}
	if fmt.Sprint(conn.Locals("user_role")) != models.RoleAdmin {
		filter.OwnerID = userID
	}

	stream, unsubscribe := h.hub.Subscribe(filter, 32)
	defer unsubscribe()

	logger := h.logger
	if ctx, ok := conn.Locals("request_ctx").(context.Context); ok {
		if correlation := middleware.CorrelationIDFromContext(ctx); correlation != "" {
			logger = logger.With().Str("correlation_id", correlation).Logger()
		}
	}

	logger.Info().Str("user_id", userID).Msg("record stream connected")
	defer logger.Info().Str("user_id", userID).Msg("record stream disconnected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-stream:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func (h *RecordHandler) parseMultipart(c *fiber.Ctx) (dto.RecordCreateRequest, []service.FileInput, error) {
	payload := dto.RecordCreateRequest{
		Type:        c.FormValue("type"),
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
	}

	if year := c.FormValue("year"); year != "" {
		parsed, err := strconv.Atoi(year)
		if err != nil {
			return dto.RecordCreateRequest{}, nil, fmt.Errorf("invalid year value")
		}
		payload.Year = parsed
	}

	if raw := c.FormValue("data"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &payload.Data); err != nil {
			return dto.RecordCreateRequest{}, nil, fmt.Errorf("data field must be a JSON object")
		}
	}

	files, err := h.collectFiles(c)
	if err != nil {
		return dto.RecordCreateRequest{}, nil, err
	}

	return payload, files, nil
}

func (h *RecordHandler) collectFiles(c *fiber.Ctx) ([]service.FileInput, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil
	}

	headers := form.File["files"]
	files := make([]service.FileInput, 0, len(headers))
	for _, header := range headers {
		if header.Size > h.maxUploadBytes {
			return nil, fmt.Errorf("file %s exceeds the %d MB limit", header.Filename, h.maxUploadBytes>>20)
		}

		file, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s", header.Filename)
		}

		content, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
		_ = file.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s", header.Filename)
		}
		if int64(len(content)) > h.maxUploadBytes {
			return nil, fmt.Errorf("file %s exceeds the %d MB limit", header.Filename, h.maxUploadBytes>>20)
		}

		files = append(files, service.FileInput{Name: header.Filename, Content: content})
	}

	return files, nil
}
