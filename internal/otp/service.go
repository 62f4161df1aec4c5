package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"studentlife/internal/sms"
)

// Verification outcomes. An expired code and a never-issued code are
// reported identically so callers cannot probe which phones have live codes.
var (
	ErrExpired  = errors.New("otp expired or not issued")
	ErrMismatch = errors.New("otp mismatch")
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_requests_total",
		Help: "OTP issuance attempts by result.",
	}, []string{"result"})
	verifyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_verifications_total",
		Help: "OTP verification attempts by result.",
	}, []string{"result"})
)

// Service generates, dispatches and verifies one-time codes.
//
// Verify deliberately does not delete the entry: registration and password
// reset check the code once up front and again inside the follow-on call,
// then Consume it only after their transaction succeeds. The code stays
// replayable until consumed or expired.
type Service struct {
	store  Store
	sender sms.Sender
	now    func() time.Time
}

// NewService creates a service over the given store and SMS collaborator.
func NewService(store Store, sender sms.Sender) *Service {
	return &Service{store: store, sender: sender, now: time.Now}
}

// Request issues a fresh 5-digit code for phone, overwriting any existing
// one, and dispatches it through the SMS collaborator. A dispatch failure
// leaves the stored code in place so a client retry reuses SMS only.
func (s *Service) Request(ctx context.Context, phone string) error {
	code, err := generateCode()
	if err != nil {
		requestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("generate code: %w", err)
	}

	if err := s.store.Set(ctx, Entry{Phone: phone, Code: code, IssuedAt: s.now()}); err != nil {
		requestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("store code: %w", err)
	}

	msg := fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code)
	if err := s.sender.Send(ctx, phone, msg); err != nil {
		requestsTotal.WithLabelValues("dispatch_failed").Inc()
		return fmt.Errorf("dispatch otp: %w", err)
	}

	requestsTotal.WithLabelValues("sent").Inc()
	return nil
}

// Verify checks code against the live entry for phone. It returns
// ErrExpired when no live entry exists and ErrMismatch on a wrong code.
// The entry is left in place; call Consume once the follow-on
// transaction has committed.
func (s *Service) Verify(ctx context.Context, phone, code string) error {
	e, ok, err := s.store.Get(ctx, phone)
	if err != nil {
		verifyTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("lookup code: %w", err)
	}
	if !ok {
		verifyTotal.WithLabelValues("expired").Inc()
		return ErrExpired
	}
	if e.Code != code {
		verifyTotal.WithLabelValues("mismatch").Inc()
		return ErrMismatch
	}
	verifyTotal.WithLabelValues("ok").Inc()
	return nil
}

// Consume deletes the entry for phone after a successful follow-on
// transaction. Consuming an already-absent entry is not an error.
func (s *Service) Consume(ctx context.Context, phone string) error {
	return s.store.Delete(ctx, phone)
}

// generateCode draws a uniformly random 5-digit code from [10000, 99999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(90000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%05d", n.Int64()+10000), nil
}
