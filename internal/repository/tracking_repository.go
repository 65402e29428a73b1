package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jhoe24/maintenance-tracker/internal/domain"
)

// AdvanceFunc mutates a ticket and its tracking record while both rows are
// locked. Returning an error aborts the transaction; nothing is persisted.
type AdvanceFunc func(ticket *domain.Ticket, rec *domain.TrackingRecord) error

// TrackingRepository persists tracking records and runs locked transitions.
type TrackingRepository interface {
	GetByTicket(ctx context.Context, ticketID string) (*domain.TrackingRecord, error)
	// Advance loads the ticket and its tracking record under SELECT ... FOR
	// UPDATE inside one transaction, applies fn, and persists both rows.
	// Concurrent calls for the same ticket serialize on the row lock.
	Advance(ctx context.Context, ticketID string, fn AdvanceFunc) (*domain.Ticket, *domain.TrackingRecord, error)
}

type trackingRepository struct {
	pool *pgxpool.Pool
}

// NewTrackingRepository instantiates repository.
func NewTrackingRepository(pool *pgxpool.Pool) TrackingRepository {
	return &trackingRepository{pool: pool}
}

const trackingColumns = `id, ticket_id, status, progress, technician, timeline, created_at, updated_at`

func (r *trackingRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.TrackingRecord, error) {
	query := `SELECT ` + trackingColumns + ` FROM tracking_records WHERE ticket_id=$1 ORDER BY created_at DESC LIMIT 1`
	return scanTracking(r.pool.QueryRow(ctx, query, ticketID))
}

func (r *trackingRepository) Advance(ctx context.Context, ticketID string, fn AdvanceFunc) (*domain.Ticket, *domain.TrackingRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	ticket, err := lockTicket(ctx, tx, ticketID)
	if err != nil {
		return nil, nil, err
	}

	rec, err := lockTracking(ctx, tx, ticketID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, err
		}
		rec = &domain.TrackingRecord{TicketID: ticketID}
	}

	if err := fn(ticket, rec); err != nil {
		return nil, nil, err
	}

	timeline, err := json.Marshal(rec.Timeline)
	if err != nil {
		return nil, nil, fmt.Errorf("encode timeline: %w", err)
	}

	if rec.ID == "" {
		const insert = `
            INSERT INTO tracking_records (ticket_id, status, progress, technician, timeline)
            VALUES ($1,$2,$3,$4,$5)
            RETURNING id, created_at, updated_at`
		if err := tx.QueryRow(ctx, insert, rec.TicketID, rec.Status, rec.Progress, rec.Technician, timeline).
			Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, nil, err
		}
	} else {
		const update = `
            UPDATE tracking_records SET status=$1, progress=$2, technician=$3, timeline=$4, updated_at=NOW()
            WHERE id=$5`
		if _, err := tx.Exec(ctx, update, rec.Status, rec.Progress, rec.Technician, timeline, rec.ID); err != nil {
			return nil, nil, err
		}
	}

	const syncTicket = `UPDATE tickets SET status=$1, technician=$2, updated_at=NOW() WHERE id=$3`
	if _, err := tx.Exec(ctx, syncTicket, ticket.Status, ticket.Technician, ticket.ID); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit transition: %w", err)
	}
	return ticket, rec, nil
}

func lockTicket(ctx context.Context, tx pgx.Tx, ticketID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	var ticket domain.Ticket
	if err := scanTicket(tx.QueryRow(ctx, query, ticketID), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func lockTracking(ctx context.Context, tx pgx.Tx, ticketID string) (*domain.TrackingRecord, error) {
	query := `SELECT ` + trackingColumns + ` FROM tracking_records WHERE ticket_id=$1 ORDER BY created_at DESC LIMIT 1 FOR UPDATE`
	return scanTracking(tx.QueryRow(ctx, query, ticketID))
}

func scanTracking(row pgx.Row) (*domain.TrackingRecord, error) {
	var rec domain.TrackingRecord
	var timeline []byte
	if err := row.Scan(
		&rec.ID,
		&rec.TicketID,
		&rec.Status,
		&rec.Progress,
		&rec.Technician,
		&timeline,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(timeline) > 0 {
		if err := json.Unmarshal(timeline, &rec.Timeline); err != nil {
			return nil, fmt.Errorf("decode timeline: %w", err)
		}
	}
	return &rec, nil
}
