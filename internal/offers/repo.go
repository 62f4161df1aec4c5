// Package offers manages job-offer letters issued to students. Letters
// move from pending to accepted or rejected exactly once.
package offers

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrNotPending rejects a decision on an offer that is missing or
// already decided.
var ErrNotPending = errors.New("offer letter is not pending")

// OfferLetter is one job offer extended to a student.
type OfferLetter struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Company   string    `json:"company"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository persists offer letters in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// List returns a student's offers, newest first.
func (r *Repository) List(ctx context.Context, userID string) ([]OfferLetter, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, company, role, status, created_at
		FROM offer_letters
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []OfferLetter
	for rows.Next() {
		var o OfferLetter
		if err := rows.Scan(&o.ID, &o.UserID, &o.Company, &o.Role, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

// Get returns a single offer, or nil when absent.
func (r *Repository) Get(ctx context.Context, id string) (*OfferLetter, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, company, role, status, created_at
		FROM offer_letters WHERE id = $1
	`, id)
	var o OfferLetter
	if err := row.Scan(&o.ID, &o.UserID, &o.Company, &o.Role, &o.Status, &o.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

// Accept marks a pending offer accepted.
func (r *Repository) Accept(ctx context.Context, id string) error {
	return r.decide(ctx, id, "accepted")
}

// Reject marks a pending offer rejected.
func (r *Repository) Reject(ctx context.Context, id string) error {
	return r.decide(ctx, id, "rejected")
}

func (r *Repository) decide(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE offer_letters SET status = $2
		WHERE id = $1 AND status = 'pending'
	`, id, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotPending
	}
	return nil
}
