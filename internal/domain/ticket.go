package domain

import "time"

// TicketStatus enumerates the client-facing repair workflow states.
type TicketStatus string

const (
	TicketStatusRecibido    TicketStatus = "recibido"
	TicketStatusDiagnostico TicketStatus = "diagnostico"
	TicketStatusReparacion  TicketStatus = "reparacion"
	TicketStatusPruebas     TicketStatus = "pruebas_calidad"
	TicketStatusPorEntregar TicketStatus = "por_entregar"
	TicketStatusEntregado   TicketStatus = "entregado"
)

// EquipmentType enumerates the common university equipment categories.
type EquipmentType string

const (
	EquipmentDesktop   EquipmentType = "computadora_escritorio"
	EquipmentLaptop    EquipmentType = "laptop"
	EquipmentPrinter   EquipmentType = "impresora"
	EquipmentProjector EquipmentType = "proyector"
	EquipmentScanner   EquipmentType = "scanner"
	EquipmentServer    EquipmentType = "servidor"
	EquipmentSwitch    EquipmentType = "switch"
	EquipmentRouter    EquipmentType = "router"
	EquipmentUPS       EquipmentType = "ups"
	EquipmentMonitor   EquipmentType = "monitor"
	EquipmentTablet    EquipmentType = "tablet"
	EquipmentOther     EquipmentType = "otro"
)

// FaultType classifies the reported problem.
type FaultType string

const (
	FaultHardware      FaultType = "hardware"
	FaultSoftware      FaultType = "software"
	FaultConnectivity  FaultType = "conectividad"
	FaultPerformance   FaultType = "rendimiento"
	FaultConfiguration FaultType = "configuracion"
	FaultPreventive    FaultType = "mantenimiento_preventivo"
	FaultUpgrade       FaultType = "actualizacion"
	FaultCleaning      FaultType = "limpieza"
	FaultOther         FaultType = "otro"
)

// Ticket is the intake record for one equipment repair. Tickets are never
// deleted; they form the audit trail of everything that entered the workshop.
type Ticket struct {
	ID               string
	Folio            string
	EquipmentCode    string
	EquipmentType    EquipmentType
	Brand            string
	Model            string
	SerialNumber     string
	Campus           string
	FaultType        FaultType
	FaultDescription string
	ClientFirstName  string
	ClientLastName   string
	ClientCedula     string
	ClientEmail      string
	ClientPhone      string
	ClientDepartment string
	Technician       string
	Status           TicketStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ClientFullName returns the client's display name.
func (t *Ticket) ClientFullName() string {
	if t.ClientLastName == "" {
		return t.ClientFirstName
	}
	return t.ClientFirstName + " " + t.ClientLastName
}

// EquipmentName returns a short human description of the equipment.
func (t *Ticket) EquipmentName() string {
	name := string(t.EquipmentType)
	if t.Brand != "" {
		name += " " + t.Brand
	}
	if t.Model != "" {
		name += " " + t.Model
	}
	return name + " (" + t.EquipmentCode + ")"
}
