package attendance

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ErrUnauthenticated means no user is attached to the submission; the
	// caller should re-authenticate instead of dropping the data.
	ErrUnauthenticated = errors.New("no authenticated user for submission")
	// ErrRatingRequired rejects a rating outside 1..5 before any persistence.
	ErrRatingRequired = errors.New("rating between 1 and 5 is required")
	// ErrInvalidMode rejects a mode other than online/offline.
	ErrInvalidMode = errors.New("mode must be online or offline")
)

var submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "attendance_submissions_total",
	Help: "Attendance submissions by result.",
}, []string{"result"})

// RecordStore is the persistence collaborator for the writer.
type RecordStore interface {
	InsertRecord(ctx context.Context, rec Record) (Record, error)
}

// Service validates final submissions and writes one record per
// session/user pair. There is no update or cancellation path; failures
// surface to the user for manual retry.
type Service struct {
	store RecordStore
}

// NewService creates a writer over the given store.
func NewService(store RecordStore) *Service {
	return &Service{store: store}
}

// Submit validates sub and persists it, returning the created record.
func (s *Service) Submit(ctx context.Context, sub Submission) (Record, error) {
	if sub.UserID == "" {
		submissionsTotal.WithLabelValues("unauthenticated").Inc()
		return Record{}, ErrUnauthenticated
	}
	if sub.Mode != "online" && sub.Mode != "offline" {
		submissionsTotal.WithLabelValues("rejected").Inc()
		return Record{}, ErrInvalidMode
	}
	if sub.Rating < 1 || sub.Rating > 5 {
		submissionsTotal.WithLabelValues("rejected").Inc()
		return Record{}, ErrRatingRequired
	}

	rec := Record{
		UserID:       sub.UserID,
		SessionID:    sub.SessionID,
		CourseID:     sub.CourseID,
		SessionName:  sub.SessionName,
		CourseName:   sub.CourseName,
		SessionDate:  sub.SessionDate,
		Mode:         sub.Mode,
		Rating:       sub.Rating,
		LocationLat:  sub.LocationLat,
		LocationLong: sub.LocationLong,
	}
	if sub.Feedback != "" {
		rec.Feedback = &sub.Feedback
	}
	if sub.LocationAddress != "" {
		rec.LocationAddress = &sub.LocationAddress
	}

	created, err := s.store.InsertRecord(ctx, rec)
	if err != nil {
		submissionsTotal.WithLabelValues("error").Inc()
		return Record{}, fmt.Errorf("persist record: %w", err)
	}
	submissionsTotal.WithLabelValues("ok").Inc()
	return created, nil
}
