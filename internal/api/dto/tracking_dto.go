package dto

import (
	"time"

	"github.com/Jhoe24/maintenance-tracker/internal/domain"
)

// AdvanceTrackingRequest captures a transition submission. Submitted as a
// multipart form so a short video can ride along.
type AdvanceTrackingRequest struct {
	Status      string `form:"status" validate:"required"`
	Title       string `form:"title"`
	Description string `form:"description"`
	Technician  string `form:"technician"`
	Author      string `form:"author"`
}

// TimelineEventResponse is one timeline entry.
type TimelineEventResponse struct {
	Timestamp   time.Time             `json:"timestamp"`
	Title       string                `json:"title"`
	Description string                `json:"description,omitempty"`
	Status      domain.TrackingStatus `json:"status"`
	Progress    int                   `json:"progress"`
	Technician  string                `json:"technician,omitempty"`
	Author      string                `json:"author,omitempty"`
	VideoURL    string                `json:"video_url,omitempty"`
}

// TrackingResponse is the live tracking state for a ticket.
type TrackingResponse struct {
	ID         string                  `json:"id"`
	TicketID   string                  `json:"ticket_id"`
	Status     domain.TrackingStatus   `json:"status"`
	Progress   int                     `json:"progress"`
	Technician string                  `json:"technician,omitempty"`
	Timeline   []TimelineEventResponse `json:"timeline"`
	UpdatedAt  time.Time               `json:"updated_at"`
}

// AdvanceTrackingResponse is returned after a successful transition.
type AdvanceTrackingResponse struct {
	Success  bool                  `json:"success"`
	Event    TimelineEventResponse `json:"event"`
	Status   domain.TrackingStatus `json:"status"`
	Progress int                   `json:"progress"`
}

// ClientTimelineResponse is the read-only client view of one ticket.
type ClientTimelineResponse struct {
	TicketID      string                  `json:"ticket_id"`
	Folio         string                  `json:"folio"`
	EquipmentName string                  `json:"equipment_name"`
	TicketStatus  domain.TicketStatus     `json:"ticket_status"`
	Status        domain.TrackingStatus   `json:"status,omitempty"`
	Progress      int                     `json:"progress"`
	Technician    string                  `json:"technician,omitempty"`
	Timeline      []TimelineEventResponse `json:"timeline"`
}
