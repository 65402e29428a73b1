package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Jhoe24/maintenance-tracker/internal/domain"
	"github.com/Jhoe24/maintenance-tracker/internal/events"
	"github.com/Jhoe24/maintenance-tracker/internal/repository"
	apperrors "github.com/Jhoe24/maintenance-tracker/pkg/util/errorutil"
)

// equipmentCodePattern matches institutional codes like LAB-0001.
var equipmentCodePattern = regexp.MustCompile(`^[A-Z]{2,4}-\d{4,8}$`)

// IntakeService registers equipment intakes and manages assignments.
type IntakeService struct {
	tickets    repository.TicketRepository
	tracking   repository.TrackingRepository
	dispatcher events.Dispatcher
}

// IntakeDependencies bundles collaborators for the intake service.
type IntakeDependencies struct {
	TicketRepo   repository.TicketRepository
	TrackingRepo repository.TrackingRepository
	Dispatcher   events.Dispatcher
}

// NewIntakeService constructs the service.
func NewIntakeService(deps IntakeDependencies) *IntakeService {
	return &IntakeService{
		tickets:    deps.TicketRepo,
		tracking:   deps.TrackingRepo,
		dispatcher: deps.Dispatcher,
	}
}

// IntakeInput describes a new equipment intake.
type IntakeInput struct {
	EquipmentCode    string
	EquipmentType    domain.EquipmentType
	Brand            string
	Model            string
	SerialNumber     string
	Campus           string
	FaultType        domain.FaultType
	FaultDescription string
	ClientFirstName  string
	ClientLastName   string
	ClientCedula     string
	ClientEmail      string
	ClientPhone      string
	ClientDepartment string
	Technician       string
}

// RegisterTicket creates the intake record with a generated folio.
func (s *IntakeService) RegisterTicket(ctx context.Context, input IntakeInput) (*domain.Ticket, error) {
	code := strings.ToUpper(strings.TrimSpace(input.EquipmentCode))
	if !equipmentCodePattern.MatchString(code) {
		return nil, apperrors.NewValidationError(
			"el código debe tener el formato ABC-1234 (2-4 letras, guion, 4-8 números)",
			map[string]any{"equipment_code": input.EquipmentCode})
	}

	ticket := &domain.Ticket{
		Folio:            generateFolio(),
		EquipmentCode:    code,
		EquipmentType:    input.EquipmentType,
		Brand:            strings.TrimSpace(input.Brand),
		Model:            strings.TrimSpace(input.Model),
		SerialNumber:     strings.TrimSpace(input.SerialNumber),
		Campus:           strings.TrimSpace(input.Campus),
		FaultType:        input.FaultType,
		FaultDescription: strings.TrimSpace(input.FaultDescription),
		ClientFirstName:  strings.TrimSpace(input.ClientFirstName),
		ClientLastName:   strings.TrimSpace(input.ClientLastName),
		ClientCedula:     strings.TrimSpace(input.ClientCedula),
		ClientEmail:      strings.TrimSpace(input.ClientEmail),
		ClientPhone:      strings.TrimSpace(input.ClientPhone),
		ClientDepartment: strings.TrimSpace(input.ClientDepartment),
		Technician:       strings.TrimSpace(input.Technician),
		Status:           domain.TicketStatusRecibido,
	}
	if ticket.EquipmentType == "" {
		ticket.EquipmentType = domain.EquipmentOther
	}
	if ticket.FaultType == "" {
		ticket.FaultType = domain.FaultOther
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketRegistered,
		TicketID: ticket.ID,
		Payload: events.TicketRegisteredPayload{
			Folio:         ticket.Folio,
			EquipmentCode: ticket.EquipmentCode,
			ClientName:    ticket.ClientFullName(),
			ClientEmail:   ticket.ClientEmail,
		},
	})
	return ticket, nil
}

// AssignTechnician sets or replaces the ticket's technician.
func (s *IntakeService) AssignTechnician(ctx context.Context, ticketID, technician string) (*domain.Ticket, error) {
	technician = strings.TrimSpace(technician)
	if technician == "" {
		return nil, apperrors.NewValidationError("technician requerido", nil)
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	ticket.Technician = technician
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTechnicianAssigned,
		TicketID: ticket.ID,
		Payload: events.TechnicianAssignedPayload{
			Folio:      ticket.Folio,
			Technician: technician,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket with its tracking record, if any.
func (s *IntakeService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, *domain.TrackingRecord, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	rec, err := s.tracking.GetByTicket(ctx, ticketID)
	if err != nil && err != pgx.ErrNoRows {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, rec, nil
}

// ListTickets returns tickets matching the filter.
func (s *IntakeService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

func generateFolio() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("FE-%d-%s", time.Now().Year(), suffix)
}

func (s *IntakeService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
