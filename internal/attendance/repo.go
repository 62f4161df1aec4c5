package attendance

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/google/uuid"
)

// totalPlannedSessions is the program-wide session count used for the
// percentage figure shown on the dashboard.
const totalPlannedSessions = 60

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertRecord writes a new record and returns it with the assigned id
// and creation time.
func (r *Repository) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records
			(id, user_id, session_id, course_id, session_name, course_name,
			 session_date, mode, location_lat, location_long, location_address,
			 rating, feedback)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at
	`, rec.ID, rec.UserID, rec.SessionID, rec.CourseID, rec.SessionName, rec.CourseName,
		rec.SessionDate, rec.Mode, rec.LocationLat, rec.LocationLong, rec.LocationAddress,
		rec.Rating, rec.Feedback)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// ListRecords returns a student's records, newest first.
func (r *Repository) ListRecords(ctx context.Context, userID string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, session_id, course_id, session_name, course_name,
		       session_date, mode, location_lat, location_long, location_address,
		       rating, feedback, created_at
		FROM attendance_records
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Record
	for rows.Next() {
		var rec Record
		var created time.Time
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.SessionID, &rec.CourseID,
			&rec.SessionName, &rec.CourseName, &rec.SessionDate, &rec.Mode,
			&rec.LocationLat, &rec.LocationLong, &rec.LocationAddress,
			&rec.Rating, &rec.Feedback, &created); err != nil {
			return nil, err
		}
		rec.CreatedAt = created
		res = append(res, rec)
	}
	return res, rows.Err()
}

// GetStats returns the attended count and the percentage against the
// planned session total.
func (r *Repository) GetStats(ctx context.Context, userID string) (Stats, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM attendance_records WHERE user_id = $1`, userID)
	var total int
	if err := row.Scan(&total); err != nil {
		return Stats{}, err
	}
	pct := int(math.Round(float64(total) / totalPlannedSessions * 100))
	return Stats{Total: total, Percentage: pct}, nil
}
