package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jhoe24/maintenance-tracker/internal/domain"
)

// QueuedEmailRepository stores deferred notifications.
type QueuedEmailRepository interface {
	Create(ctx context.Context, q *domain.QueuedEmail) error
	// DueBatch returns unsent rows ready for another attempt, oldest first.
	// Rows whose attempts already reached maxAttempts are never returned.
	DueBatch(ctx context.Context, now time.Time, maxAttempts, limit int) ([]domain.QueuedEmail, error)
	Update(ctx context.Context, q *domain.QueuedEmail) error
}

type queuedEmailRepository struct {
	pool *pgxpool.Pool
}

// NewQueuedEmailRepository instantiates repository.
func NewQueuedEmailRepository(pool *pgxpool.Pool) QueuedEmailRepository {
	return &queuedEmailRepository{pool: pool}
}

func (r *queuedEmailRepository) Create(ctx context.Context, q *domain.QueuedEmail) error {
	const query = `
        INSERT INTO queued_emails (recipients, subject, body_text, body_html, attempts, last_error, send_after)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		q.To,
		q.Subject,
		q.BodyText,
		q.BodyHTML,
		q.Attempts,
		q.LastError,
		q.SendAfter,
	).Scan(&q.ID, &q.CreatedAt)
}

func (r *queuedEmailRepository) DueBatch(ctx context.Context, now time.Time, maxAttempts, limit int) ([]domain.QueuedEmail, error) {
	const query = `
        SELECT id, recipients, subject, body_text, body_html, attempts, last_error, send_after, sent, sent_at, created_at
        FROM queued_emails
        WHERE sent = FALSE
          AND attempts < $1
          AND (send_after IS NULL OR send_after <= $2)
        ORDER BY created_at ASC
        LIMIT $3`
	rows, err := r.pool.Query(ctx, query, maxAttempts, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQueuedEmails(rows)
}

func (r *queuedEmailRepository) Update(ctx context.Context, q *domain.QueuedEmail) error {
	const query = `
        UPDATE queued_emails SET attempts=$1, last_error=$2, send_after=$3, sent=$4, sent_at=$5
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		q.Attempts,
		q.LastError,
		q.SendAfter,
		q.Sent,
		q.SentAt,
		q.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanQueuedEmails(rows pgx.Rows) ([]domain.QueuedEmail, error) {
	var result []domain.QueuedEmail
	for rows.Next() {
		var q domain.QueuedEmail
		if err := rows.Scan(
			&q.ID,
			&q.To,
			&q.Subject,
			&q.BodyText,
			&q.BodyHTML,
			&q.Attempts,
			&q.LastError,
			&q.SendAfter,
			&q.Sent,
			&q.SentAt,
			&q.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, q)
	}
	return result, rows.Err()
}
