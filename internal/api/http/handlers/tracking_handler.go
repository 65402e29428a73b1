package handlers

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/Jhoe24/maintenance-tracker/internal/api/dto"
	"github.com/Jhoe24/maintenance-tracker/internal/domain"
	"github.com/Jhoe24/maintenance-tracker/internal/media"
	"github.com/Jhoe24/maintenance-tracker/internal/service"
	apperrors "github.com/Jhoe24/maintenance-tracker/pkg/util/errorutil"
)

// transitionFormTmpl is the partial served to the workshop UI for
// initiating a transition.
var transitionFormTmpl = template.Must(template.New("transition_form").Parse(`<form method="post" action="/api/v1/tickets/{{.Ticket.ID}}/tracking" enctype="multipart/form-data">
  <p>Folio <strong>{{.Ticket.Folio}}</strong>{{if .CurrentStatus}} - estado actual: <em>{{.CurrentStatus}}</em>{{end}}</p>
  <label>Estado
    <select name="status">
      {{range .Options}}<option value="{{.}}"{{if eq . $.NextStatus}} selected{{end}}>{{.}}</option>
      {{end}}
    </select>
  </label>
  <label>Descripción <textarea name="description"></textarea></label>
  <label>Técnico <input type="text" name="technician" value="{{.Ticket.Technician}}"></label>
  <label>Video (opcional) <input type="file" name="video" accept="video/*"></label>
  <button type="submit">Registrar avance</button>
</form>`))

// TrackingHandler exposes transition and timeline endpoints.
type TrackingHandler struct {
	tracking *service.TrackingService
	storage  media.Storage
	validate *validator.Validate
}

// NewTrackingHandler constructs handler. storage may be nil when uploads
// are disabled.
func NewTrackingHandler(tracking *service.TrackingService, storage media.Storage) *TrackingHandler {
	return &TrackingHandler{
		tracking: tracking,
		storage:  storage,
		validate: validator.New(),
	}
}

// Advance POST /tickets/:id/tracking.
func (h *TrackingHandler) Advance(c *fiber.Ctx) error {
	var req dto.AdvanceTrackingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperrors.NewValidationError("status required", nil)
	}

	videoURL, err := h.storeVideo(c)
	if err != nil {
		return err
	}

	rec, event, err := h.tracking.Advance(c.UserContext(), c.Params("id"), service.AdvanceInput{
		Status:      req.Status,
		Title:       req.Title,
		Description: req.Description,
		Technician:  req.Technician,
		Author:      req.Author,
		VideoURL:    videoURL,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.AdvanceTrackingResponse{
		Success:  true,
		Event:    timelineEventResponse(event),
		Status:   rec.Status,
		Progress: rec.Progress,
	}})
}

// ClientTimelines GET /clients/:cedula/timelines.
func (h *TrackingHandler) ClientTimelines(c *fiber.Ctx) error {
	cedula := strings.TrimSpace(c.Params("cedula"))
	if cedula == "" {
		return apperrors.NewValidationError("cedula required", nil)
	}

	views, err := h.tracking.ClientTimelines(c.UserContext(), cedula)
	if err != nil {
		return err
	}

	items := make([]dto.ClientTimelineResponse, 0, len(views))
	for _, view := range views {
		items = append(items, clientTimelineResponse(view))
	}
	return c.JSON(fiber.Map{"data": items})
}

// TransitionForm GET /tickets/:id/tracking/form.
func (h *TrackingHandler) TransitionForm(c *fiber.Ctx) error {
	data, err := h.tracking.TransitionForm(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	c.Type("html", "utf-8")
	var buf strings.Builder
	if err := transitionFormTmpl.Execute(&buf, data); err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.SendString(buf.String())
}

// storeVideo uploads an attached video when present. Uploads are
// best-effort auxiliary data; with no storage configured the file is
// silently ignored. The upload happens before the transition commits, so
// a rejected transition can leave an unreferenced object behind.
func (h *TrackingHandler) storeVideo(c *fiber.Ctx) (string, error) {
	fileHeader, err := c.FormFile("video")
	if err != nil || fileHeader == nil {
		return "", nil
	}
	if h.storage == nil {
		return "", nil
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", apperrors.NewValidationError("unreadable video upload", nil)
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	url, err := h.storage.SaveVideo(c.UserContext(), fileHeader.Filename, file, fileHeader.Size, contentType)
	if err != nil {
		return "", apperrors.MapError(err)
	}
	return url, nil
}

func timelineEventResponse(ev *domain.TimelineEvent) dto.TimelineEventResponse {
	return dto.TimelineEventResponse{
		Timestamp:   ev.Timestamp,
		Title:       ev.Title,
		Description: ev.Description,
		Status:      ev.Status,
		Progress:    ev.Progress,
		Technician:  ev.Technician,
		Author:      ev.Author,
		VideoURL:    ev.VideoURL,
	}
}

func timelineResponses(events []domain.TimelineEvent) []dto.TimelineEventResponse {
	items := make([]dto.TimelineEventResponse, 0, len(events))
	for i := range events {
		items = append(items, timelineEventResponse(&events[i]))
	}
	return items
}

func clientTimelineResponse(view service.ClientTimeline) dto.ClientTimelineResponse {
	return dto.ClientTimelineResponse{
		TicketID:      view.TicketID,
		Folio:         view.Folio,
		EquipmentName: view.EquipmentName,
		TicketStatus:  view.TicketStatus,
		Status:        view.Status,
		Progress:      view.Progress,
		Technician:    view.Technician,
		Timeline:      timelineResponses(view.Timeline),
	}
}
