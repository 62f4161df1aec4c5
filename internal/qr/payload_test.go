package qr

import (
	"errors"
	"testing"
)

func TestValidateAccepted(t *testing.T) {
	raw := []byte(`{"sessionId":"S1","courseId":"C1","session":"Intro","course":"WebDev","date":"2024-01-10"}`)
	p, err := Validate(raw)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if p.SessionID != "S1" || p.CourseID != "C1" || p.Session != "Intro" || p.Course != "WebDev" || p.Date != "2024-01-10" {
		t.Errorf("payload not passed through unchanged: %+v", p)
	}
	if p.Timestamp != nil {
		t.Errorf("timestamp should be absent, got %v", *p.Timestamp)
	}
}

func TestValidateOptionalTimestamp(t *testing.T) {
	raw := []byte(`{"sessionId":"S1","courseId":"C1","session":"Intro","course":"WebDev","date":"2024-01-10","timestamp":1704880800}`)
	p, err := Validate(raw)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if p.Timestamp == nil || *p.Timestamp != 1704880800 {
		t.Errorf("timestamp not decoded: %v", p.Timestamp)
	}
}

func TestValidateFirstErrorOnly(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"all missing", `{}`, "Session ID is required"},
		{"missing courseId onward", `{"sessionId":"S1"}`, "Course ID is required"},
		{"missing session name", `{"sessionId":"S1","courseId":"C1"}`, "Session name is required"},
		{"missing course name", `{"sessionId":"S1","courseId":"C1","session":"Intro"}`, "Course name is required"},
		{"missing date", `{"sessionId":"S1","courseId":"C1","session":"Intro","course":"WebDev"}`, "Date is required"},
		{"empty string counts as missing", `{"sessionId":"","courseId":"C1","session":"Intro","course":"WebDev","date":"2024-01-10"}`, "Session ID is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate([]byte(tc.raw))
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tc.want {
				t.Errorf("got %q, want %q", err.Error(), tc.want)
			}
		})
	}
}

func TestValidateNotJSON(t *testing.T) {
	for _, raw := range []string{"", "hello", "https://example.com/qr", `{"sessionId":`} {
		if _, err := Validate([]byte(raw)); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("Validate(%q) = %v, want ErrInvalidFormat", raw, err)
		}
	}
}

func TestValidateWrongFieldType(t *testing.T) {
	raw := []byte(`{"sessionId":"S1","courseId":"C1","session":"Intro","course":"WebDev","date":"2024-01-10","timestamp":"soon"}`)
	if _, err := Validate(raw); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("non-numeric timestamp: got %v, want ErrInvalidFormat", err)
	}
}
