package password

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"studentlife/internal/otp"
	"studentlife/internal/sms"
	"studentlife/internal/student"
)

type fakeUsers struct {
	user    *student.User
	updated map[string]string
}

func (f *fakeUsers) GetByContact(context.Context, string) (*student.User, error) {
	return f.user, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id, hash string) error {
	if f.updated == nil {
		f.updated = make(map[string]string)
	}
	f.updated[id] = hash
	return nil
}

func issue(t *testing.T, phone string) (*otp.Service, string) {
	t.Helper()
	store := otp.NewMemoryStore(10 * time.Minute)
	svc := otp.NewService(store, sms.MockSender{})
	if err := svc.Request(context.Background(), phone); err != nil {
		t.Fatalf("request: %v", err)
	}
	e, ok, _ := store.Get(context.Background(), phone)
	if !ok {
		t.Fatal("otp not stored")
	}
	return svc, e.Code
}

func TestResetHappyPath(t *testing.T) {
	ctx := context.Background()
	otps, code := issue(t, "9876543210")
	users := &fakeUsers{user: &student.User{ID: "AFH-000007", StudentContact: "9876543210"}}
	svc := NewService(users, otps)

	if err := svc.Reset(ctx, "9876543210", code, "newsecret"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	hash, ok := users.updated["AFH-000007"]
	if !ok {
		t.Fatal("password not updated")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("newsecret")) != nil {
		t.Error("stored hash does not verify")
	}

	// Code consumed after success.
	if err := otps.Verify(ctx, "9876543210", code); !errors.Is(err, otp.ErrExpired) {
		t.Errorf("otp after reset: %v, want ErrExpired", err)
	}
}

func TestResetWrongCode(t *testing.T) {
	otps, _ := issue(t, "9876543210")
	users := &fakeUsers{user: &student.User{ID: "AFH-000007"}}
	svc := NewService(users, otps)

	err := svc.Reset(context.Background(), "9876543210", "00000", "newsecret")
	if !errors.Is(err, otp.ErrMismatch) {
		t.Errorf("got %v, want ErrMismatch", err)
	}
	if len(users.updated) != 0 {
		t.Error("password changed with a bad code")
	}
}

func TestResetWeakPassword(t *testing.T) {
	otps, code := issue(t, "9876543210")
	users := &fakeUsers{user: &student.User{ID: "AFH-000007"}}
	svc := NewService(users, otps)

	err := svc.Reset(context.Background(), "9876543210", code, "short")
	if !errors.Is(err, ErrWeakPassword) {
		t.Errorf("got %v, want ErrWeakPassword", err)
	}
}

func TestResetUnknownAccount(t *testing.T) {
	otps, code := issue(t, "9876543210")
	svc := NewService(&fakeUsers{user: nil}, otps)

	err := svc.Reset(context.Background(), "9876543210", code, "newsecret")
	if !errors.Is(err, ErrNoAccount) {
		t.Errorf("got %v, want ErrNoAccount", err)
	}
}
