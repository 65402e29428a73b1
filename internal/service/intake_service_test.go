package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jhoe24/maintenance-tracker/internal/domain"
	"github.com/Jhoe24/maintenance-tracker/internal/events"
	"github.com/Jhoe24/maintenance-tracker/internal/repository"
	apperrors "github.com/Jhoe24/maintenance-tracker/pkg/util/errorutil"
)

var folioPattern = regexp.MustCompile(`^FE-\d{4}-[0-9A-F]{6}$`)

func newIntakeFixture() (*IntakeService, *memStore, *recordingDispatcher) {
	store := newMemStore()
	dispatcher := &recordingDispatcher{}
	svc := NewIntakeService(IntakeDependencies{
		TicketRepo:   store,
		TrackingRepo: store,
		Dispatcher:   dispatcher,
	})
	return svc, store, dispatcher
}

func validIntake() IntakeInput {
	return IntakeInput{
		EquipmentCode:    "lab-0042",
		EquipmentType:    domain.EquipmentLaptop,
		Brand:            "Lenovo",
		Model:            "T14",
		FaultType:        domain.FaultHardware,
		FaultDescription: "no enciende",
		ClientFirstName:  "María",
		ClientLastName:   "González",
		ClientCedula:     "V-12345678",
		ClientEmail:      "maria@uni.edu",
	}
}

func TestRegisterTicket(t *testing.T) {
	svc, store, _ := newIntakeFixture()
	ctx := context.Background()

	ticket, err := svc.RegisterTicket(ctx, validIntake())
	require.NoError(t, err)

	assert.Equal(t, "LAB-0042", ticket.EquipmentCode)
	assert.Equal(t, domain.TicketStatusRecibido, ticket.Status)
	assert.Regexp(t, folioPattern, ticket.Folio)
	assert.Contains(t, ticket.Folio, fmt.Sprintf("FE-%d-", time.Now().Year()))

	stored, err := store.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.Folio, stored.Folio)
}

func TestRegisterTicketRejectsMalformedCode(t *testing.T) {
	svc, store, dispatcher := newIntakeFixture()
	ctx := context.Background()

	for _, code := range []string{"", "BADCODE", "AB_1234", "A-1234", "ABCDE-1234", "LAB-123"} {
		input := validIntake()
		input.EquipmentCode = code
		_, err := svc.RegisterTicket(ctx, input)

		var domainErr *apperrors.DomainError
		require.True(t, errors.As(err, &domainErr), "code %q", code)
		assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	}

	tickets, err := store.ListWithFilter(ctx, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Empty(t, tickets)
	assert.Empty(t, dispatcher.published())
}

func TestRegisterTicketDefaults(t *testing.T) {
	svc, _, _ := newIntakeFixture()

	input := validIntake()
	input.EquipmentType = ""
	input.FaultType = ""
	input.Brand = "  Lenovo  "

	ticket, err := svc.RegisterTicket(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, domain.EquipmentOther, ticket.EquipmentType)
	assert.Equal(t, domain.FaultOther, ticket.FaultType)
	assert.Equal(t, "Lenovo", ticket.Brand)
}

func TestRegisterTicketPublishesEvent(t *testing.T) {
	svc, _, dispatcher := newIntakeFixture()

	ticket, err := svc.RegisterTicket(context.Background(), validIntake())
	require.NoError(t, err)

	published := dispatcher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventTicketRegistered, published[0].Type)
	assert.Equal(t, ticket.ID, published[0].TicketID)

	payload, ok := published[0].Payload.(events.TicketRegisteredPayload)
	require.True(t, ok)
	assert.Equal(t, ticket.Folio, payload.Folio)
	assert.Equal(t, "LAB-0042", payload.EquipmentCode)
	assert.Equal(t, "María González", payload.ClientName)
	assert.Equal(t, "maria@uni.edu", payload.ClientEmail)
}

func TestAssignTechnician(t *testing.T) {
	svc, store, dispatcher := newIntakeFixture()
	ctx := context.Background()

	ticket, err := svc.RegisterTicket(ctx, validIntake())
	require.NoError(t, err)

	updated, err := svc.AssignTechnician(ctx, ticket.ID, "  jperez ")
	require.NoError(t, err)
	assert.Equal(t, "jperez", updated.Technician)

	stored, err := store.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "jperez", stored.Technician)

	published := dispatcher.published()
	require.Len(t, published, 2)
	assert.Equal(t, events.EventTechnicianAssigned, published[1].Type)
	payload, ok := published[1].Payload.(events.TechnicianAssignedPayload)
	require.True(t, ok)
	assert.Equal(t, ticket.Folio, payload.Folio)
	assert.Equal(t, "jperez", payload.Technician)
}

func TestAssignTechnicianValidation(t *testing.T) {
	svc, _, _ := newIntakeFixture()
	ctx := context.Background()

	ticket, err := svc.RegisterTicket(ctx, validIntake())
	require.NoError(t, err)

	var domainErr *apperrors.DomainError

	_, err = svc.AssignTechnician(ctx, ticket.ID, "   ")
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)

	_, err = svc.AssignTechnician(ctx, "missing", "jperez")
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestGetTicket(t *testing.T) {
	svc, store, _ := newIntakeFixture()
	ctx := context.Background()

	ticket, err := svc.RegisterTicket(ctx, validIntake())
	require.NoError(t, err)

	// Fresh intakes have no tracking record yet.
	got, rec, err := svc.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.Folio, got.Folio)
	assert.Nil(t, rec)

	_, _, err = store.Advance(ctx, ticket.ID, func(_ *domain.Ticket, r *domain.TrackingRecord) error {
		r.Status = domain.TrackingRecepcion
		r.Progress = domain.ProgressFor(domain.TrackingRecepcion)
		r.Timeline = append(r.Timeline, domain.TimelineEvent{Status: domain.TrackingRecepcion})
		return nil
	})
	require.NoError(t, err)

	_, rec, err = svc.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, domain.TrackingRecepcion, rec.Status)

	var domainErr *apperrors.DomainError
	_, _, err = svc.GetTicket(ctx, "missing")
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestListTickets(t *testing.T) {
	svc, _, _ := newIntakeFixture()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		input := validIntake()
		input.EquipmentCode = fmt.Sprintf("LAB-%04d", i+1)
		_, err := svc.RegisterTicket(ctx, input)
		require.NoError(t, err)
	}

	tickets, err := svc.ListTickets(ctx, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, tickets, 3)
}
