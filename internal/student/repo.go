package student

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Repository persists students in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// nextID draws the next student id from the shared sequence. IDs look
// like AFH-000042; the sequence keeps them unique across instances.
func (r *Repository) nextID(ctx context.Context) (string, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT nextval('afh_id_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return fmt.Sprintf("AFH-%06d", n), nil
}

// CreateUser inserts u with a freshly assigned id.
func (r *Repository) CreateUser(ctx context.Context, u User) (User, error) {
	id, err := r.nextID(ctx)
	if err != nil {
		return User{}, fmt.Errorf("assign student id: %w", err)
	}
	u.ID = id

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users
			(id, full_name, gender, guardian_name, guardian_occupation,
			 date_of_birth, age, college_name, course, start_year, end_year,
			 city, district, state, pincode, student_contact, whatsapp_number,
			 guardian_contact, email, family_income, aadhaar, is_pwd,
			 is_govt_employee, selfie_url, password_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,
		        $18,$19,$20,$21,$22,$23,$24,$25)
		RETURNING created_at
	`, u.ID, u.FullName, u.Gender, u.GuardianName, u.GuardianOccupation,
		u.DateOfBirth, u.Age, u.CollegeName, u.Course, u.StartYear, u.EndYear,
		u.City, u.District, u.State, u.Pincode, u.StudentContact, u.WhatsappNumber,
		u.GuardianContact, u.Email, u.FamilyIncome, u.Aadhaar, u.IsPWD,
		u.IsGovtEmployee, nullable(u.SelfieURL), u.PasswordHash)
	if err := row.Scan(&u.CreatedAt); err != nil {
		return User{}, err
	}
	return u, nil
}

// GetByContact returns the user registered with the given contact number,
// or nil when none exists.
func (r *Repository) GetByContact(ctx context.Context, contact string) (*User, error) {
	return r.getOne(ctx, `student_contact = $1`, contact)
}

// GetByID returns the user with the given id, or nil when none exists.
func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *Repository) getOne(ctx context.Context, where string, arg any) (*User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, full_name, gender, guardian_name, guardian_occupation,
		       date_of_birth, age, college_name, course, start_year, end_year,
		       city, district, state, pincode, student_contact, whatsapp_number,
		       guardian_contact, email, family_income, aadhaar, is_pwd,
		       is_govt_employee, selfie_url, password_hash, created_at
		FROM users WHERE `+where, arg)

	var u User
	var selfie sql.NullString
	if err := row.Scan(&u.ID, &u.FullName, &u.Gender, &u.GuardianName,
		&u.GuardianOccupation, &u.DateOfBirth, &u.Age, &u.CollegeName, &u.Course,
		&u.StartYear, &u.EndYear, &u.City, &u.District, &u.State, &u.Pincode,
		&u.StudentContact, &u.WhatsappNumber, &u.GuardianContact, &u.Email,
		&u.FamilyIncome, &u.Aadhaar, &u.IsPWD, &u.IsGovtEmployee, &selfie,
		&u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.SelfieURL = selfie.String
	return &u, nil
}

// UpdatePassword replaces the stored password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id, hash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	return err
}

// SetSelfieURL records the uploaded selfie link after the fact; the
// audit worker calls this once the upload lands.
func (r *Repository) SetSelfieURL(ctx context.Context, id, url string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET selfie_url = $2 WHERE id = $1`, id, url)
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
