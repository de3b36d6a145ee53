package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/pgpay/pgpay-backend/internal/models"
	"github.com/pgpay/pgpay-backend/internal/storage"
)

const ticketColumns = `id::text, user_id::text, amount::text, notes, proof_url, status,
	admin_notes, processed_by::text, processed_at, usdt_type, usdt_rate::text,
	created_at, updated_at`

// CreateTicket inserts a new pending ticket.
func (s *Store) CreateTicket(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO payment_tickets (id, user_id, amount, notes, proof_url, status, usdt_type, usdt_rate)
		VALUES ($1::uuid, $2::uuid, $3::numeric, $4, $5, $6, $7, $8::numeric)
		RETURNING `+ticketColumns+`;`,
		t.ID, t.UserID, t.Amount.String(), t.Notes, t.ProofURL, string(models.StatusPending),
		usdtTypeParam(t.UsdtType), rateParam(t.UsdtRate))
	return scanTicket(row)
}

// TicketByID fetches one ticket.
func (s *Store) TicketByID(ctx context.Context, id string) (models.Ticket, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM payment_tickets WHERE id = $1::uuid;`, id)
	return scanTicket(row)
}

// TicketsByUser returns the user's tickets, newest first.
func (s *Store) TicketsByUser(ctx context.Context, userID string) ([]models.Ticket, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+ticketColumns+` FROM payment_tickets
		WHERE user_id = $1::uuid
		ORDER BY created_at DESC;`, userID)
	if err != nil {
		return nil, fmt.Errorf("tickets by user: %w", err)
	}
	return collectTickets(rows)
}

// ListTickets returns all tickets, optionally filtered by status, newest first.
func (s *Store) ListTickets(ctx context.Context, status *models.TicketStatus) ([]models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM payment_tickets`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC;`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return collectTickets(rows)
}

// TransitionTicket applies a status change. The UPDATE carries the
// allowed source set, so an out-of-graph transition mutates nothing no
// matter what the caller sends. The locked subquery captures the status
// the row held before the change, for the audit trail.
func (s *Store) TransitionTicket(ctx context.Context, id string, to models.TicketStatus, actorID string, note *string) (models.Ticket, models.TicketStatus, error) {
	sources := models.TransitionSources(to)
	if len(sources) == 0 {
		return models.Ticket{}, "", fmt.Errorf("%w: no transition reaches %q", storage.ErrInvalidTransition, to)
	}
	allowed := make([]string, 0, len(sources))
	for _, src := range sources {
		allowed = append(allowed, string(src))
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE payment_tickets AS t
		SET status = $2, admin_notes = $3, processed_by = $4::uuid, processed_at = NOW(), updated_at = NOW()
		FROM (SELECT id AS locked_id, status AS prev FROM payment_tickets WHERE id = $1::uuid FOR UPDATE) old
		WHERE t.id = old.locked_id AND t.status = ANY($5::text[])
		RETURNING `+ticketColumns+`, old.prev;`,
		id, string(to), note, actorID, allowed)
	var prevRaw string
	ticket, err := scanTicket(row, &prevRaw)
	if err == nil {
		return ticket, models.TicketStatus(prevRaw), nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return models.Ticket{}, "", err
	}

	// No row matched: missing ticket or illegal edge.
	var current string
	if err := s.pool.QueryRow(ctx, `SELECT status FROM payment_tickets WHERE id = $1::uuid;`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, "", storage.ErrNotFound
		}
		return models.Ticket{}, "", err
	}
	return models.Ticket{}, "", fmt.Errorf("%w: %s -> %s", storage.ErrInvalidTransition, current, to)
}

// ClearProofReferences nulls proof_url on tickets referencing path.
func (s *Store) ClearProofReferences(ctx context.Context, path string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE payment_tickets SET proof_url = NULL, updated_at = NOW()
		WHERE proof_url LIKE '%' || $1 || '%';`, path)
	if err != nil {
		return 0, fmt.Errorf("clear proof references: %w", err)
	}
	return tag.RowsAffected(), nil
}

func usdtTypeParam(t *models.UsdtType) *string {
	if t == nil {
		return nil
	}
	s := string(*t)
	return &s
}

func rateParam(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func collectTickets(rows pgx.Rows) ([]models.Ticket, error) {
	defer rows.Close()
	var out []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTicket(row pgx.Row, extra ...any) (models.Ticket, error) {
	var (
		t         models.Ticket
		amountRaw string
		typeRaw   *string
		rateRaw   *string
	)
	dests := []any{&t.ID, &t.UserID, &amountRaw, &t.Notes, &t.ProofURL, &t.Status,
		&t.AdminNotes, &t.ProcessedBy, &t.ProcessedAt, &typeRaw, &rateRaw,
		&t.CreatedAt, &t.UpdatedAt}
	dests = append(dests, extra...)
	if err := row.Scan(dests...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, storage.ErrNotFound
		}
		return models.Ticket{}, err
	}

	amount, err := parseDecimal(amountRaw)
	if err != nil {
		return models.Ticket{}, err
	}
	t.Amount = amount

	if typeRaw != nil {
		ut := models.UsdtType(*typeRaw)
		t.UsdtType = &ut
	}
	rate, err := parseNullableDecimal(rateRaw)
	if err != nil {
		return models.Ticket{}, err
	}
	t.UsdtRate = rate
	return t, nil
}
