package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"github.com/Jhoe24/maintenance-tracker/internal/domain"
	"github.com/Jhoe24/maintenance-tracker/internal/events"
	"github.com/Jhoe24/maintenance-tracker/internal/mail"
	"github.com/Jhoe24/maintenance-tracker/internal/repository"
)

// statusTemplate is one client notification keyed by tracking stage.
// Stages without a template produce no notification.
type statusTemplate struct {
	subject string
	text    string
	html    *template.Template
}

var statusTemplates = map[domain.TrackingStatus]statusTemplate{
	domain.TrackingRecepcion: {
		subject: "Equipo recibido - %s",
		text:    "Hola %s, su equipo %s fue recibido en el taller. Avance: %d%%.",
		html: template.Must(template.New("recepcion").Parse(
			`<p>Hola {{.ClientName}},</p><p>Su equipo <strong>{{.EquipmentName}}</strong> fue recibido en el taller con el folio <strong>{{.Folio}}</strong>.</p><p>Avance actual: {{.Progress}}%.</p>`)),
	},
	domain.TrackingDiagnostico: {
		subject: "Diagnóstico en curso - %s",
		text:    "Hola %s, su equipo %s está en diagnóstico. Avance: %d%%.",
		html: template.Must(template.New("diagnostico").Parse(
			`<p>Hola {{.ClientName}},</p><p>Su equipo <strong>{{.EquipmentName}}</strong> (folio {{.Folio}}) está en diagnóstico.</p>{{if .Description}}<p>{{.Description}}</p>{{end}}<p>Avance actual: {{.Progress}}%.</p>`)),
	},
	domain.TrackingListo: {
		subject: "Equipo listo para retirar - %s",
		text:    "Hola %s, su equipo %s está listo para retirar. Avance: %d%%.",
		html: template.Must(template.New("listo").Parse(
			`<p>Hola {{.ClientName}},</p><p>Su equipo <strong>{{.EquipmentName}}</strong> (folio {{.Folio}}) está listo para retirar en el taller.</p><p>Avance actual: {{.Progress}}%.</p>`)),
	},
	domain.TrackingEntregado: {
		subject: "Equipo entregado - %s",
		text:    "Hola %s, su equipo %s fue entregado. Gracias por usar el servicio. Avance: %d%%.",
		html: template.Must(template.New("entregado").Parse(
			`<p>Hola {{.ClientName}},</p><p>Su equipo <strong>{{.EquipmentName}}</strong> (folio {{.Folio}}) fue entregado.</p><p>Gracias por usar el servicio de soporte.</p>`)),
	},
}

// NotificationService emails clients when their repair advances. Sends are
// best-effort: a failed send is stored as a queued email for the retry
// worker and never fails the transition that triggered it.
type NotificationService struct {
	dispatcher events.Dispatcher
	sender     mail.Sender
	queue      repository.QueuedEmailRepository
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, sender mail.Sender, queue repository.QueuedEmailRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		sender:     sender,
		queue:      queue,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTrackingAdvanced, n.HandleTrackingAdvanced)
}

// HandleTrackingAdvanced renders and sends the status notification.
func (n *NotificationService) HandleTrackingAdvanced(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TrackingAdvancedPayload)
	if !ok {
		return nil
	}
	if payload.ClientEmail == "" {
		return nil
	}

	tpl, ok := statusTemplates[payload.Status]
	if !ok {
		n.logger.Debug("no notification template for status",
			zap.String("status", string(payload.Status)))
		return nil
	}

	msg, err := renderMessage(tpl, payload)
	if err != nil {
		n.logger.Error("render notification", zap.Error(err),
			zap.String("ticket_id", event.TicketID))
		return nil
	}

	if err := n.sender.Send(msg); err != nil {
		n.logger.Warn("notification send failed; queueing for retry",
			zap.Error(err),
			zap.String("ticket_id", event.TicketID),
			zap.Strings("to", msg.To))
		n.enqueue(ctx, msg, err)
	}
	return nil
}

func renderMessage(tpl statusTemplate, payload events.TrackingAdvancedPayload) (mail.Message, error) {
	var htmlBody bytes.Buffer
	if err := tpl.html.Execute(&htmlBody, payload); err != nil {
		return mail.Message{}, err
	}
	return mail.Message{
		To:       []string{payload.ClientEmail},
		Subject:  fmt.Sprintf(tpl.subject, payload.Folio),
		BodyText: fmt.Sprintf(tpl.text, payload.ClientName, payload.EquipmentName, payload.Progress),
		BodyHTML: htmlBody.String(),
	}, nil
}

func (n *NotificationService) enqueue(ctx context.Context, msg mail.Message, sendErr error) {
	q := &domain.QueuedEmail{
		To:        msg.To,
		Subject:   msg.Subject,
		BodyText:  msg.BodyText,
		BodyHTML:  msg.BodyHTML,
		LastError: sendErr.Error(),
	}
	if err := n.queue.Create(ctx, q); err != nil {
		n.logger.Error("queueing notification failed", zap.Error(err),
			zap.Strings("to", msg.To))
	}
}
