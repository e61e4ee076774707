package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/rims-platform/rims-api/internal/dto"
	"github.com/rims-platform/rims-api/internal/service"
	"github.com/rims-platform/rims-api/internal/utils"
)

// AdminRecordHandler wires the review endpoints.
type AdminRecordHandler struct {
	records service.AdminRecordService
	stats   service.StatsService
	logger  zerolog.Logger
}

// NewAdminRecordHandler constructs the handler.
func NewAdminRecordHandler(records service.AdminRecordService, stats service.StatsService, logger zerolog.Logger) *AdminRecordHandler {
	return &AdminRecordHandler{
		records: records,
		stats:   stats,
		logger:  logger.With().Str("component", "admin_record_handler").Logger(),
	}
}

// Register attaches admin record endpoints to the router group.
func (h *AdminRecordHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/pending", h.pending)
	router.Get("/stats", h.adminStats)
	router.Get("/:id", h.get)
	router.Post("/:id/approve", h.approve)
	router.Post("/:id/reject", h.reject)
	router.Delete("/:id", h.delete)
}

func (h *AdminRecordHandler) list(c *fiber.Ctx) error {
	year, err := parseQueryInt(c, "year")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid year value")
	}

	filter := dto.RecordFilter{
		Type:    queryString(c, "type"),
		Status:  queryString(c, "status"),
		Year:    year,
		OwnerID: queryString(c, "owner_id"),
	}

	records, err := h.records.ListAll(c.UserContext(), userIDFromContext(c), filter)
	if err != nil {
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "records retrieved", records)
}

func (h *AdminRecordHandler) pending(c *fiber.Ctx) error {
	records, err := h.records.ListPending(c.UserContext(), userIDFromContext(c))
	if err != nil {
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "pending records retrieved", records)
}

func (h *AdminRecordHandler) get(c *fiber.Ctx) error {
	record, err := h.records.Get(c.UserContext(), userIDFromContext(c), c.Params("id"))
	if err != nil {
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "record retrieved", record)
}

func (h *AdminRecordHandler) approve(c *fiber.Ctx) error {
	record, err := h.records.Approve(c.UserContext(), userIDFromContext(c), c.Params("id"))
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Str("record_id", c.Params("id")).Msg("approval rejected")
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "record approved", record)
}

func (h *AdminRecordHandler) reject(c *fiber.Ctx) error {
	record, err := h.records.Reject(c.UserContext(), userIDFromContext(c), c.Params("id"))
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Str("record_id", c.Params("id")).Msg("rejection failed")
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "record rejected", record)
}

func (h *AdminRecordHandler) delete(c *fiber.Ctx) error {
	if err := h.records.Delete(c.UserContext(), userIDFromContext(c), c.Params("id")); err != nil {
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "record deleted", nil)
}

func (h *AdminRecordHandler) adminStats(c *fiber.Ctx) error {
	stats, err := h.stats.AdminStats(c.UserContext(), userIDFromContext(c))
	if err != nil {
		return sendAppError(c, err)
	}

	return utils.SendSuccess(c, "stats retrieved", stats)
}
