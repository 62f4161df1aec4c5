package registration

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
	created  []student.User
	existing *student.User
}

func (f *fakeUsers) CreateUser(_ context.Context, u student.User) (student.User, error) {
	u.ID = "AFH-000001"
	u.CreatedAt = time.Now()
	f.created = append(f.created, u)
	return u, nil
}

func (f *fakeUsers) GetByContact(context.Context, string) (*student.User, error) {
	return f.existing, nil
}

type failingAudit struct{ calls int }

func (f *failingAudit) Record(context.Context, AuditJob) error {
	f.calls++
	return errors.New("sheets unreachable")
}

type recordingAudit struct{ jobs []AuditJob }

func (r *recordingAudit) Record(_ context.Context, job AuditJob) error {
	r.jobs = append(r.jobs, job)
	return nil
}

func otpFixture(t *testing.T, phone string) (*otp.Service, string) {
	t.Helper()
	store := otp.NewMemoryStore(10 * time.Minute)
	svc := otp.NewService(store, sms.MockSender{})
	if err := svc.Request(context.Background(), phone); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	e, ok, err := store.Get(context.Background(), phone)
	if err != nil || !ok {
		t.Fatalf("otp not stored: ok=%v err=%v", ok, err)
	}
	return svc, e.Code
}

func TestFinalizeHappyPath(t *testing.T) {
	ctx := context.Background()
	d := validDraft()
	otps, code := otpFixture(t, d.Step3.StudentContact)
	users := &fakeUsers{}
	audit := &recordingAudit{}
	svc := NewService(users, otps, audit)

	created, err := svc.Finalize(ctx, d, code, []byte("jpeg-bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if created.ID != "AFH-000001" {
		t.Errorf("id = %q", created.ID)
	}
	if created.DateOfBirth != "15/8/2002" {
		t.Errorf("dob = %q", created.DateOfBirth)
	}
	if created.Age <= 0 {
		t.Errorf("age = %d", created.Age)
	}
	if bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret123")) != nil {
		t.Error("password hash does not verify")
	}

	if len(audit.jobs) != 1 {
		t.Fatalf("audit jobs = %d, want 1", len(audit.jobs))
	}
	job := audit.jobs[0]
	if job.UserID != "AFH-000001" || len(job.Selfie) == 0 || job.SelfieMime != "image/jpeg" {
		t.Errorf("audit job = %+v", job)
	}
	if len(job.Row) != 22 {
		t.Errorf("audit row has %d columns, want 22", len(job.Row))
	}
	if job.Row[1] != d.Step1.FullName || job.Row[14] != d.Step3.StudentContact {
		t.Errorf("audit row out of order: %v", job.Row)
	}

	// OTP was consumed; replaying the code now fails as expired.
	if err := otps.Verify(ctx, d.Step3.StudentContact, code); !errors.Is(err, otp.ErrExpired) {
		t.Errorf("otp after finalize: %v, want ErrExpired", err)
	}
}

func TestFinalizeWrongOTP(t *testing.T) {
	d := validDraft()
	otps, _ := otpFixture(t, d.Step3.StudentContact)
	users := &fakeUsers{}
	svc := NewService(users, otps, nil)

	_, err := svc.Finalize(context.Background(), d, "00000", nil, "")
	if !errors.Is(err, otp.ErrMismatch) {
		t.Errorf("got %v, want ErrMismatch", err)
	}
	if len(users.created) != 0 {
		t.Error("user created despite bad otp")
	}
}

func TestFinalizeExpiredOTP(t *testing.T) {
	d := validDraft()
	store := otp.NewMemoryStore(10 * time.Minute)
	otps := otp.NewService(store, sms.MockSender{})
	svc := NewService(&fakeUsers{}, otps, nil)

	// No code was ever issued for this phone.
	_, err := svc.Finalize(context.Background(), d, "12345", nil, "")
	if !errors.Is(err, otp.ErrExpired) {
		t.Errorf("got %v, want ErrExpired", err)
	}
}

func TestFinalizeRejectsInvalidDraftServerSide(t *testing.T) {
	d := validDraft()
	d.Step3.GuardianContact = d.Step3.StudentContact
	otps, code := otpFixture(t, d.Step3.StudentContact)
	users := &fakeUsers{}
	svc := NewService(users, otps, nil)

	if _, err := svc.Finalize(context.Background(), d, code, nil, ""); err == nil {
		t.Fatal("invalid draft accepted at finalize")
	}
	if len(users.created) != 0 {
		t.Error("user created from invalid draft")
	}
}

func TestFinalizeDuplicateContact(t *testing.T) {
	d := validDraft()
	otps, code := otpFixture(t, d.Step3.StudentContact)
	users := &fakeUsers{existing: &student.User{ID: "AFH-000009"}}
	svc := NewService(users, otps, nil)

	if _, err := svc.Finalize(context.Background(), d, code, nil, ""); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("got %v, want ErrAlreadyRegistered", err)
	}
}

func TestFinalizeSurvivesAuditFailure(t *testing.T) {
	ctx := context.Background()
	d := validDraft()
	otps, code := otpFixture(t, d.Step3.StudentContact)
	users := &fakeUsers{}
	audit := &failingAudit{}
	svc := NewService(users, otps, audit)

	created, err := svc.Finalize(ctx, d, code, nil, "")
	if err != nil {
		t.Fatalf("finalize failed on audit error: %v", err)
	}
	if audit.calls != 1 {
		t.Errorf("audit attempted %d times", audit.calls)
	}
	if len(users.created) != 1 || created.ID == "" {
		t.Error("user record missing; audit failure must not roll it back")
	}
}

func TestSelfieFileName(t *testing.T) {
	at := time.UnixMilli(1700000000000)
	got := selfieFileName("Asha  Kumari", at)
	if got != "Asha_Kumari_1700000000000.jpg" {
		t.Errorf("name = %q", got)
	}
}
