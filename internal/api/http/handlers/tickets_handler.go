package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/Jhoe24/maintenance-tracker/internal/api/dto"
	"github.com/Jhoe24/maintenance-tracker/internal/domain"
	"github.com/Jhoe24/maintenance-tracker/internal/repository"
	"github.com/Jhoe24/maintenance-tracker/internal/service"
	apperrors "github.com/Jhoe24/maintenance-tracker/pkg/util/errorutil"
)

// TicketsHandler manages intake endpoints.
type TicketsHandler struct {
	intake   *service.IntakeService
	validate *validator.Validate
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(intake *service.IntakeService) *TicketsHandler {
	return &TicketsHandler{intake: intake, validate: validator.New()}
}

// Register POST /tickets.
func (h *TicketsHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperrors.NewValidationError("missing or invalid fields", validationDetails(err))
	}

	ticket, err := h.intake.RegisterTicket(c.UserContext(), service.IntakeInput{
		EquipmentCode:    req.EquipmentCode,
		EquipmentType:    domain.EquipmentType(req.EquipmentType),
		Brand:            req.Brand,
		Model:            req.Model,
		SerialNumber:     req.SerialNumber,
		Campus:           req.Campus,
		FaultType:        domain.FaultType(req.FaultType),
		FaultDescription: req.FaultDescription,
		ClientFirstName:  req.ClientFirstName,
		ClientLastName:   req.ClientLastName,
		ClientCedula:     req.ClientCedula,
		ClientEmail:      req.ClientEmail,
		ClientPhone:      req.ClientPhone,
		ClientDepartment: req.ClientDepartment,
		Technician:       req.Technician,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	ticket, rec, err := h.intake.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, rec)})
}

// List GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	filter := parseTicketQuery(c)
	tickets, err := h.intake.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// AssignTechnician POST /tickets/:id/technician.
func (h *TicketsHandler) AssignTechnician(c *fiber.Ctx) error {
	var req dto.AssignTechnicianRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperrors.NewValidationError("technician required", nil)
	}

	ticket, err := h.intake.AssignTechnician(c.UserContext(), c.Params("id"), req.Technician)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if cedula := c.Query("cedula"); cedula != "" {
		filter.Cedula = &cedula
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if equipmentType := c.Query("equipment_type"); equipmentType != "" {
		et := domain.EquipmentType(equipmentType)
		filter.EquipmentType = &et
	}
	if technician := c.Query("technician"); technician != "" {
		filter.Technician = &technician
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func validationDetails(err error) map[string]any {
	details := map[string]any{}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return details
	}
	for _, fe := range fieldErrors {
		details[fe.Field()] = fe.Tag()
	}
	return details
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:            ticket.ID,
		Folio:         ticket.Folio,
		EquipmentCode: ticket.EquipmentCode,
		EquipmentType: ticket.EquipmentType,
		ClientName:    ticket.ClientFullName(),
		ClientCedula:  ticket.ClientCedula,
		Technician:    ticket.Technician,
		Status:        ticket.Status,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, rec *domain.TrackingRecord) dto.TicketDetailResponse {
	resp := dto.TicketDetailResponse{
		ID:               ticket.ID,
		Folio:            ticket.Folio,
		EquipmentCode:    ticket.EquipmentCode,
		EquipmentType:    ticket.EquipmentType,
		Brand:            ticket.Brand,
		Model:            ticket.Model,
		SerialNumber:     ticket.SerialNumber,
		Campus:           ticket.Campus,
		FaultType:        ticket.FaultType,
		FaultDescription: ticket.FaultDescription,
		ClientName:       ticket.ClientFullName(),
		ClientCedula:     ticket.ClientCedula,
		ClientEmail:      ticket.ClientEmail,
		ClientPhone:      ticket.ClientPhone,
		ClientDepartment: ticket.ClientDepartment,
		Technician:       ticket.Technician,
		Status:           ticket.Status,
		CreatedAt:        ticket.CreatedAt,
		UpdatedAt:        ticket.UpdatedAt,
	}
	if rec != nil {
		resp.Tracking = &dto.TrackingResponse{
			ID:         rec.ID,
			TicketID:   rec.TicketID,
			Status:     rec.Status,
			Progress:   rec.Progress,
			Technician: rec.Technician,
			Timeline:   timelineResponses(rec.Timeline),
			UpdatedAt:  rec.UpdatedAt,
		}
	}
	return resp
}
