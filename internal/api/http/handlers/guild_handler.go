package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/ticket-bot/internal/api/dto"
	"github.com/supportdesk/ticket-bot/internal/service"
	apperrors "github.com/supportdesk/ticket-bot/pkg/util/errorutil"
)

const maxAuditLimit = 500

// GuildHandler serves read-only views of one guild's tickets.
type GuildHandler struct {
	tickets  *service.TicketService
	settings *service.SettingsService
	audit    *service.AuditService
}

// NewGuildHandler constructs handler.
func NewGuildHandler(tickets *service.TicketService, settings *service.SettingsService, audit *service.AuditService) *GuildHandler {
	return &GuildHandler{tickets: tickets, settings: settings, audit: audit}
}

// Stats GET /api/v1/guilds/:guildID/stats?claimed_by=.
func (h *GuildHandler) Stats(c *fiber.Ctx) error {
	var claimedBy *string
	if v := c.Query("claimed_by"); v != "" {
		claimedBy = &v
	}
	stats, err := h.tickets.Stats(c.UserContext(), c.Params("guildID"), claimedBy)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStatsResponse(stats, claimedBy)})
}

// Ticket GET /api/v1/guilds/:guildID/tickets/:ticketID.
func (h *GuildHandler) Ticket(c *fiber.Ctx) error {
	ticket, err := h.tickets.GetTicket(c.UserContext(), c.Params("guildID"), c.Params("ticketID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Audit GET /api/v1/guilds/:guildID/audit?ticket_id=&limit=.
func (h *GuildHandler) Audit(c *fiber.Ctx) error {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxAuditLimit {
			return apperrors.NewValidationError("limit must be between 1 and 500", map[string]any{"limit": raw})
		}
		limit = n
	}
	var ticketID *string
	if v := c.Query("ticket_id"); v != "" {
		ticketID = &v
	}
	entries, err := h.audit.List(c.UserContext(), c.Params("guildID"), ticketID, limit)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": dto.NewAuditEntries(entries)})
}

// Settings GET /api/v1/guilds/:guildID/settings.
func (h *GuildHandler) Settings(c *fiber.Ctx) error {
	gs, err := h.settings.Get(c.UserContext(), c.Params("guildID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSettingsResponse(gs)})
}
