package registration

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"studentlife/internal/student"
)

// ErrAlreadyRegistered rejects a duplicate contact number.
var ErrAlreadyRegistered = errors.New("an account with this contact number already exists")

// UserStore is the persistence collaborator for finalization.
type UserStore interface {
	CreateUser(ctx context.Context, u student.User) (student.User, error)
	GetByContact(ctx context.Context, contact string) (*student.User, error)
}

// OTPVerifier is the slice of the OTP service finalization needs.
type OTPVerifier interface {
	Verify(ctx context.Context, phone, code string) error
	Consume(ctx context.Context, phone string) error
}

// Service turns a verified draft into a persisted user plus external
// audit records.
type Service struct {
	users UserStore
	otps  OTPVerifier
	audit AuditSink // nil disables external record-keeping
	now   func() time.Time
}

// NewService wires the orchestrator.
func NewService(users UserStore, otps OTPVerifier, audit AuditSink) *Service {
	return &Service{users: users, otps: otps, audit: audit, now: time.Now}
}

// Finalize verifies the OTP, creates the user and records the
// registration externally. The external step is best-effort: a failed
// selfie upload or sheet append is logged but never rolls back the user
// record, so the client still sees a successful registration.
func (s *Service) Finalize(ctx context.Context, d Draft, code string, selfie []byte, selfieMime string) (student.User, error) {
	// Full server-side re-validation; client-side step checks are not
	// trusted.
	if err := d.Validate(); err != nil {
		return student.User{}, err
	}

	if err := s.otps.Verify(ctx, d.Step3.StudentContact, code); err != nil {
		return student.User{}, err
	}

	existing, err := s.users.GetByContact(ctx, d.Step3.StudentContact)
	if err != nil {
		return student.User{}, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return student.User{}, ErrAlreadyRegistered
	}

	age, err := d.Step1.DateOfBirth.Age(s.now())
	if err != nil {
		return student.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(d.Step4.Password), bcrypt.DefaultCost)
	if err != nil {
		return student.User{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.users.CreateUser(ctx, student.User{
		FullName:           d.Step1.FullName,
		Gender:             d.Step1.Gender,
		GuardianName:       d.Step1.GuardianName,
		GuardianOccupation: d.Step1.GuardianOccupation,
		DateOfBirth:        d.Step1.DateOfBirth.Format(),
		Age:                age,
		CollegeName:        d.Step2.CollegeName,
		Course:             d.Step2.Course,
		StartYear:          d.Step2.StartYear,
		EndYear:            d.Step2.EndYear,
		City:               d.Step2.City,
		District:           d.Step2.District,
		State:              d.Step2.State,
		Pincode:            d.Step2.Pincode,
		StudentContact:     d.Step3.StudentContact,
		WhatsappNumber:     d.Step3.WhatsappNumber,
		GuardianContact:    d.Step3.GuardianContact,
		Email:              d.Step3.Email,
		FamilyIncome:       d.Step3.FamilyIncome,
		Aadhaar:            d.Step4.Aadhaar,
		IsPWD:              d.Step4.IsPWD,
		IsGovtEmployee:     d.Step4.IsGovtEmployee,
		PasswordHash:       string(hash),
	})
	if err != nil {
		return student.User{}, fmt.Errorf("create user: %w", err)
	}

	if s.audit != nil {
		job := AuditJob{
			UserID: created.ID,
			Row:    BuildAuditRow(d, s.now()),
		}
		if len(selfie) > 0 {
			job.Selfie = selfie
			job.SelfieName = selfieFileName(d.Step1.FullName, s.now())
			job.SelfieMime = selfieMime
		}
		// No compensating transaction here: the user record stands even
		// when the external append is lost.
		if err := s.audit.Record(ctx, job); err != nil {
			log.Printf("registration audit for %s failed: %v", created.ID, err)
		}
	}

	// The code is only consumed once the transaction is through; until
	// now a client could re-verify it without a resend.
	if err := s.otps.Consume(ctx, d.Step3.StudentContact); err != nil {
		log.Printf("consume otp for %s: %v", d.Step3.StudentContact, err)
	}

	return created, nil
}

func selfieFileName(fullName string, at time.Time) string {
	base := strings.Join(strings.Fields(fullName), "_")
	return fmt.Sprintf("%s_%d.jpg", base, at.UnixMilli())
}
