package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/flowtls/syncplus/internal/api/dto"
	"github.com/flowtls/syncplus/internal/auth"
	"github.com/flowtls/syncplus/internal/domain"
	"github.com/flowtls/syncplus/internal/service"
	apperrors "github.com/flowtls/syncplus/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validateStruct(req); err != nil {
		return err
	}

	ticket, err := h.service.Create(c.Context(), session, service.TicketCreateInput{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		Status:         req.Status,
		AssignedTo:     req.AssignedTo,
		Category:       req.Category,
		Subcategory:    req.Subcategory,
		Tags:           req.Tags,
		EstimatedHours: req.EstimatedHours,
		CompanyID:      req.CompanyID,
		Source:         req.Source,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": h.ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	query := parseTicketQuery(c)
	tickets, err := h.service.List(c.Context(), session, service.TicketListInput{
		Statuses:   query.Statuses,
		Priorities: query.Priorities,
		CompanyID:  query.CompanyID,
		Limit:      query.Limit,
		Offset:     query.Offset,
	})
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, h.ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Get(c.Context(), session, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketResponse(ticket)})
}

// UpdateTicket PUT /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validateStruct(req); err != nil {
		return err
	}

	ticket, err := h.service.Update(c.Context(), session, id, service.TicketUpdateInput{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		Status:         req.Status,
		AssignedTo:     req.AssignedTo,
		Category:       req.Category,
		Subcategory:    req.Subcategory,
		Resolution:     req.Resolution,
		Tags:           req.Tags,
		EstimatedHours: req.EstimatedHours,
		ActualHours:    req.ActualHours,
		CompanyID:      req.CompanyID,
		Source:         req.Source,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.ticketResponse(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Context(), session, id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validateStruct(req); err != nil {
		return err
	}

	comment, err := h.service.AddComment(c.Context(), session, id, req.Text, req.IsInternal)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// ListComments GET /tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	comments, err := h.service.ListComments(c.Context(), session, id)
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, commentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetHistory GET /tickets/:id/history.
func (h *TicketsHandler) GetHistory(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	entries, err := h.service.History(c.Context(), session, id)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.HistoryResponse{
			ID:           entry.ID,
			TicketID:     entry.TicketID,
			ActionType:   entry.ActionType,
			FieldChanged: entry.FieldChanged,
			OldValue:     entry.OldValue,
			NewValue:     entry.NewValue,
			Comment:      entry.Comment,
			CreatedBy:    entry.CreatedBy,
			CreatedAt:    entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// LockTicket POST /tickets/:id/lock.
func (h *TicketsHandler) LockTicket(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.service.AcquireLock(c.Context(), session, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"locked": true, "locked_by": session.FullName}})
}

// UnlockTicket POST /tickets/:id/unlock.
func (h *TicketsHandler) UnlockTicket(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.service.ReleaseLock(c.Context(), session, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"locked": false}})
}

// ExportTickets GET /tickets/export.
func (h *TicketsHandler) ExportTickets(c *fiber.Ctx) error {
	session, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	query := parseTicketQuery(c)
	data, err := h.service.ExportCSV(c.Context(), session, service.TicketListInput{
		Statuses:   query.Statuses,
		Priorities: query.Priorities,
		CompanyID:  query.CompanyID,
		Limit:      query.Limit,
		Offset:     query.Offset,
	})
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="tickets-`+time.Now().Format("20060102")+`.csv"`)
	return c.Send(data)
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid ticket id", nil)
	}
	return id, nil
}

func parseTicketQuery(c *fiber.Ctx) dto.TicketListQuery {
	query := dto.TicketListQuery{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			query.Statuses = append(query.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			query.Priorities = append(query.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if company := c.Query("company_id"); company != "" {
		query.CompanyID = &company
	}
	page := parseIntQuery(c.Query("page"), 1)
	pageSize := parseIntQuery(c.Query("page_size"), 50)
	query.Offset = (page - 1) * pageSize
	query.Limit = pageSize
	return query
}

func parseIntQuery(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func (h *TicketsHandler) ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:             ticket.ID,
		Title:          ticket.Title,
		Description:    ticket.Description,
		Priority:       ticket.Priority,
		Status:         ticket.Status,
		AssignedTo:     ticket.AssignedTo,
		Category:       ticket.Category,
		Subcategory:    ticket.Subcategory,
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
		DueDate:        ticket.DueDate,
		IsOverdue:      h.service.IsOverdue(ticket),
		Reporter:       ticket.Reporter,
		Resolution:     ticket.Resolution,
		Tags:           ticket.Tags,
		EstimatedHours: ticket.EstimatedHours,
		ActualHours:    ticket.ActualHours,
		CompanyID:      ticket.CompanyID,
		Source:         ticket.Source,
		IsLocked:       ticket.IsLocked,
		LockedBy:       ticket.LockedBy,
		LockedAt:       ticket.LockedAt,
		ModifiedBy:     ticket.ModifiedBy,
	}
}

func commentResponse(comment *domain.TicketComment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:         comment.ID,
		TicketID:   comment.TicketID,
		Text:       comment.Text,
		IsInternal: comment.IsInternal,
		CreatedBy:  comment.CreatedBy,
		CreatedAt:  comment.CreatedAt,
	}
}
