// Package password implements the OTP-backed forgot-password flow.
package password

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"studentlife/internal/student"
)

// ErrNoAccount means no user is registered with the given number.
var ErrNoAccount = errors.New("no account associated with this number")

// ErrWeakPassword rejects a password shorter than six characters.
var ErrWeakPassword = errors.New("password must be at least 6 characters")

// UserStore is the persistence slice the reset flow needs.
type UserStore interface {
	GetByContact(ctx context.Context, contact string) (*student.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
}

// OTPVerifier verifies and consumes one-time codes.
type OTPVerifier interface {
	Verify(ctx context.Context, phone, code string) error
	Consume(ctx context.Context, phone string) error
}

// Service resets passwords for verified phone owners.
type Service struct {
	users UserStore
	otps  OTPVerifier
}

// NewService wires the flow.
func NewService(users UserStore, otps OTPVerifier) *Service {
	return &Service{users: users, otps: otps}
}

// Reset verifies the OTP, replaces the password and consumes the code.
// The OTP errors pass through unwrapped so the caller can distinguish
// expired from mismatched codes.
func (s *Service) Reset(ctx context.Context, phone, code, newPassword string) error {
	if err := s.otps.Verify(ctx, phone, code); err != nil {
		return err
	}
	if len(newPassword) < 6 {
		return ErrWeakPassword
	}

	user, err := s.users.GetByContact(ctx, phone)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	if user == nil {
		return ErrNoAccount
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	// Consumed only after the update commits; the same code can back a
	// standalone verify call earlier in the flow.
	if err := s.otps.Consume(ctx, phone); err != nil {
		log.Printf("consume otp for %s: %v", phone, err)
	}
	return nil
}
