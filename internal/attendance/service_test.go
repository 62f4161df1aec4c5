package attendance

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type fakeStore struct {
	inserts int
	err     error
	last    Record
}

func (f *fakeStore) InsertRecord(_ context.Context, rec Record) (Record, error) {
	f.inserts++
	f.last = rec
	if f.err != nil {
		return Record{}, f.err
	}
	rec.ID = uuid.NewString()
	return rec, nil
}

func validSubmission() Submission {
	return Submission{
		UserID:      "AFH-000001",
		SessionID:   "S1",
		CourseID:    "C1",
		SessionName: "Intro",
		CourseName:  "WebDev",
		SessionDate: "2024-01-10",
		Mode:        "offline",
		Rating:      4,
	}
}

func TestSubmitAccepted(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	rec, err := svc.Submit(context.Background(), validSubmission())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if store.inserts != 1 {
		t.Fatalf("inserts = %d, want exactly 1", store.inserts)
	}
	if rec.Mode != "offline" || rec.Rating != 4 {
		t.Errorf("record = %+v, want offline/4", rec)
	}
	if rec.Feedback != nil {
		t.Errorf("feedback = %v, want absent", *rec.Feedback)
	}
	if rec.ID == "" {
		t.Error("record id not assigned")
	}
}

func TestSubmitRatingBounds(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	for _, rating := range []int{0, -2, 6, 100} {
		sub := validSubmission()
		sub.Rating = rating
		if _, err := svc.Submit(context.Background(), sub); !errors.Is(err, ErrRatingRequired) {
			t.Errorf("rating %d: got %v, want ErrRatingRequired", rating, err)
		}
	}
	if store.inserts != 0 {
		t.Errorf("store touched %d times before validation passed", store.inserts)
	}

	for rating := 1; rating <= 5; rating++ {
		sub := validSubmission()
		sub.Rating = rating
		if _, err := svc.Submit(context.Background(), sub); err != nil {
			t.Errorf("rating %d: %v", rating, err)
		}
	}
}

func TestSubmitRequiresUser(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	sub := validSubmission()
	sub.UserID = ""
	if _, err := svc.Submit(context.Background(), sub); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("got %v, want ErrUnauthenticated", err)
	}
	if store.inserts != 0 {
		t.Error("submission reached the store without a user")
	}
}

func TestSubmitRejectsUnknownMode(t *testing.T) {
	svc := NewService(&fakeStore{})
	sub := validSubmission()
	sub.Mode = "hybrid"
	if _, err := svc.Submit(context.Background(), sub); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("got %v, want ErrInvalidMode", err)
	}
}

func TestSubmitOptionalFields(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store)

	lat, long := 12.9716, 77.5946
	sub := validSubmission()
	sub.Feedback = "great session"
	sub.LocationLat = &lat
	sub.LocationLong = &long
	sub.LocationAddress = "Bengaluru"

	rec, err := svc.Submit(context.Background(), sub)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.Feedback == nil || *rec.Feedback != "great session" {
		t.Errorf("feedback = %v", rec.Feedback)
	}
	if rec.LocationLat == nil || *rec.LocationLat != lat {
		t.Errorf("lat = %v", rec.LocationLat)
	}
	if rec.LocationAddress == nil || *rec.LocationAddress != "Bengaluru" {
		t.Errorf("address = %v", rec.LocationAddress)
	}
}

func TestSubmitStoreFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	svc := NewService(store)

	if _, err := svc.Submit(context.Background(), validSubmission()); err == nil {
		t.Fatal("expected store error to surface")
	}
}
