package domain

import (
	"strings"
	"time"
)

// TrackingStatus enumerates the workshop tracking stages in the order a
// repair moves through them.
type TrackingStatus string

const (
	TrackingRecepcion   TrackingStatus = "recepcion"
	TrackingDiagnostico TrackingStatus = "diagnostico"
	TrackingReparacion  TrackingStatus = "reparacion"
	TrackingPruebas     TrackingStatus = "pruebas"
	TrackingListo       TrackingStatus = "listo"
	TrackingEntregado   TrackingStatus = "entregado"
)

// StatusSequence is the canonical stage order. Each stage may appear at most
// once per timeline.
var StatusSequence = []TrackingStatus{
	TrackingRecepcion,
	TrackingDiagnostico,
	TrackingReparacion,
	TrackingPruebas,
	TrackingListo,
	TrackingEntregado,
}

var statusProgress = map[TrackingStatus]int{
	TrackingRecepcion:   5,
	TrackingDiagnostico: 20,
	TrackingReparacion:  60,
	TrackingPruebas:     85,
	TrackingListo:       95,
	TrackingEntregado:   100,
}

var ticketStatusByTracking = map[TrackingStatus]TicketStatus{
	TrackingRecepcion:   TicketStatusRecibido,
	TrackingDiagnostico: TicketStatusDiagnostico,
	TrackingReparacion:  TicketStatusReparacion,
	TrackingPruebas:     TicketStatusPruebas,
	TrackingListo:       TicketStatusPorEntregar,
	TrackingEntregado:   TicketStatusEntregado,
}

// NormalizeTrackingStatus lowercases and trims a submitted stage label.
func NormalizeTrackingStatus(raw string) TrackingStatus {
	return TrackingStatus(strings.ToLower(strings.TrimSpace(raw)))
}

// ProgressFor returns the percent-complete for a stage. Unknown stages map
// to zero.
func ProgressFor(status TrackingStatus) int {
	return statusProgress[status]
}

// TicketStatusFor translates a tracking stage into the ticket status
// vocabulary. The second return is false for stages outside the sequence.
func TicketStatusFor(status TrackingStatus) (TicketStatus, bool) {
	ts, ok := ticketStatusByTracking[status]
	return ts, ok
}

// TimelineEvent is one immutable entry in a tracking timeline.
type TimelineEvent struct {
	Timestamp   time.Time      `json:"timestamp"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      TrackingStatus `json:"status"`
	Progress    int            `json:"progress"`
	Technician  string         `json:"technician,omitempty"`
	Author      string         `json:"author,omitempty"`
	VideoURL    string         `json:"video_url,omitempty"`
}

// TrackingRecord holds the live status, progress and timeline for a ticket.
// A ticket has at most one tracking record; the pairing is maintained by the
// transition logic, not by a schema constraint.
type TrackingRecord struct {
	ID         string
	TicketID   string
	Status     TrackingStatus
	Progress   int
	Technician string
	Timeline   []TimelineEvent
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasStatus reports whether the timeline already contains the stage,
// compared case-insensitively.
func (r *TrackingRecord) HasStatus(status TrackingStatus) bool {
	for _, ev := range r.Timeline {
		if strings.EqualFold(string(ev.Status), string(status)) {
			return true
		}
	}
	return false
}

// NextUnusedStatus returns the first stage of the canonical sequence not yet
// recorded in the timeline. The second return is false once every stage has
// been used.
func (r *TrackingRecord) NextUnusedStatus() (TrackingStatus, bool) {
	for _, status := range StatusSequence {
		if !r.HasStatus(status) {
			return status, true
		}
	}
	return "", false
}
