package events

import (
	"time"

	"github.com/Jhoe24/maintenance-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketRegistered   EventType = "ticket_registered"
	EventTrackingAdvanced   EventType = "tracking_advanced"
	EventTechnicianAssigned EventType = "technician_assigned"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketRegisteredPayload payload.
type TicketRegisteredPayload struct {
	Folio         string `json:"folio"`
	EquipmentCode string `json:"equipment_code"`
	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email,omitempty"`
}

// TrackingAdvancedPayload payload. Carries everything the notification path
// needs so handlers never have to reload the ticket.
type TrackingAdvancedPayload struct {
	Folio         string                `json:"folio"`
	EquipmentName string                `json:"equipment_name"`
	Status        domain.TrackingStatus `json:"status"`
	Progress      int                   `json:"progress"`
	Description   string                `json:"description,omitempty"`
	Technician    string                `json:"technician,omitempty"`
	ClientName    string                `json:"client_name"`
	ClientEmail   string                `json:"client_email,omitempty"`
	ClientCedula  string                `json:"client_cedula"`
}

// TechnicianAssignedPayload payload.
type TechnicianAssignedPayload struct {
	Folio      string `json:"folio"`
	Technician string `json:"technician"`
}
