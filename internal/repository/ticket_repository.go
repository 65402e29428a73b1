package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jhoe24/maintenance-tracker/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	Cedula        *string
	Statuses      []domain.TicketStatus
	EquipmentType *domain.EquipmentType
	Technician    *string
	SearchTerm    *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByFolio(ctx context.Context, folio string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListByCedula(ctx context.Context, cedula string) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, folio, equipment_code, equipment_type, brand, model, serial_number,
    campus, fault_type, fault_description, client_first_name, client_last_name, client_cedula,
    client_email, client_phone, client_department, technician, status, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (folio, equipment_code, equipment_type, brand, model, serial_number,
            campus, fault_type, fault_description, client_first_name, client_last_name,
            client_cedula, client_email, client_phone, client_department, technician, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Folio,
		ticket.EquipmentCode,
		ticket.EquipmentType,
		ticket.Brand,
		ticket.Model,
		ticket.SerialNumber,
		ticket.Campus,
		ticket.FaultType,
		ticket.FaultDescription,
		ticket.ClientFirstName,
		ticket.ClientLastName,
		ticket.ClientCedula,
		ticket.ClientEmail,
		ticket.ClientPhone,
		ticket.ClientDepartment,
		ticket.Technician,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET equipment_code=$1, equipment_type=$2, brand=$3, model=$4,
            serial_number=$5, campus=$6, fault_type=$7, fault_description=$8,
            client_email=$9, client_phone=$10, technician=$11, status=$12, updated_at=NOW()
        WHERE id=$13`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.EquipmentCode,
		ticket.EquipmentType,
		ticket.Brand,
		ticket.Model,
		ticket.SerialNumber,
		ticket.Campus,
		ticket.FaultType,
		ticket.FaultDescription,
		ticket.ClientEmail,
		ticket.ClientPhone,
		ticket.Technician,
		ticket.Status,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByFolio(ctx context.Context, folio string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE folio=$1`
	return r.fetchSingle(ctx, query, folio)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListByCedula(ctx context.Context, cedula string) ([]domain.Ticket, error) {
	return r.ListWithFilter(ctx, TicketFilter{Cedula: &cedula, Limit: 100})
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Cedula != nil {
		args = append(args, *filter.Cedula)
		clauses = append(clauses, fmt.Sprintf("client_cedula=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.EquipmentType != nil {
		args = append(args, *filter.EquipmentType)
		clauses = append(clauses, fmt.Sprintf("equipment_type=$%d", len(args)))
	}
	if filter.Technician != nil {
		args = append(args, *filter.Technician)
		clauses = append(clauses, fmt.Sprintf("technician=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(equipment_code) LIKE %s OR LOWER(client_first_name) LIKE %s OR LOWER(client_last_name) LIKE %s OR LOWER(fault_description) LIKE %s)",
			placeholder, placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.Folio,
		&ticket.EquipmentCode,
		&ticket.EquipmentType,
		&ticket.Brand,
		&ticket.Model,
		&ticket.SerialNumber,
		&ticket.Campus,
		&ticket.FaultType,
		&ticket.FaultDescription,
		&ticket.ClientFirstName,
		&ticket.ClientLastName,
		&ticket.ClientCedula,
		&ticket.ClientEmail,
		&ticket.ClientPhone,
		&ticket.ClientDepartment,
		&ticket.Technician,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}
