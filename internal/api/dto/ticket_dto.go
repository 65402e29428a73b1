package dto

import (
	"time"

	"github.com/Jhoe24/maintenance-tracker/internal/domain"
)

// RegisterTicketRequest payload.
type RegisterTicketRequest struct {
	EquipmentCode    string `json:"equipment_code" validate:"required"`
	EquipmentType    string `json:"equipment_type" validate:"required"`
	Brand            string `json:"brand"`
	Model            string `json:"model"`
	SerialNumber     string `json:"serial_number"`
	Campus           string `json:"campus"`
	FaultType        string `json:"fault_type"`
	FaultDescription string `json:"fault_description" validate:"required"`
	ClientFirstName  string `json:"client_first_name" validate:"required"`
	ClientLastName   string `json:"client_last_name" validate:"required"`
	ClientCedula     string `json:"client_cedula" validate:"required"`
	ClientEmail      string `json:"client_email" validate:"omitempty,email"`
	ClientPhone      string `json:"client_phone"`
	ClientDepartment string `json:"client_department"`
	Technician       string `json:"technician"`
}

// AssignTechnicianRequest payload.
type AssignTechnicianRequest struct {
	Technician string `json:"technician" validate:"required"`
}

// TicketSummary response.
type TicketSummary struct {
	ID            string               `json:"id"`
	Folio         string               `json:"folio"`
	EquipmentCode string               `json:"equipment_code"`
	EquipmentType domain.EquipmentType `json:"equipment_type"`
	ClientName    string               `json:"client_name"`
	ClientCedula  string               `json:"client_cedula"`
	Technician    string               `json:"technician,omitempty"`
	Status        domain.TicketStatus  `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info with tracking state.
type TicketDetailResponse struct {
	ID               string                `json:"id"`
	Folio            string                `json:"folio"`
	EquipmentCode    string                `json:"equipment_code"`
	EquipmentType    domain.EquipmentType  `json:"equipment_type"`
	Brand            string                `json:"brand,omitempty"`
	Model            string                `json:"model,omitempty"`
	SerialNumber     string                `json:"serial_number,omitempty"`
	Campus           string                `json:"campus,omitempty"`
	FaultType        domain.FaultType      `json:"fault_type"`
	FaultDescription string                `json:"fault_description"`
	ClientName       string                `json:"client_name"`
	ClientCedula     string                `json:"client_cedula"`
	ClientEmail      string                `json:"client_email,omitempty"`
	ClientPhone      string                `json:"client_phone,omitempty"`
	ClientDepartment string                `json:"client_department,omitempty"`
	Technician       string                `json:"technician,omitempty"`
	Status           domain.TicketStatus   `json:"status"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
	Tracking         *TrackingResponse     `json:"tracking,omitempty"`
}
