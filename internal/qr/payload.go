// Package qr parses and validates the JSON descriptor carried by an
// attendance session's QR code. The payload is produced by an external
// session-issuing system and only consumed here.
package qr

import (
	"encoding/json"
	"errors"
)

// ErrInvalidFormat is returned when the scanned text is not a JSON object
// of the expected shape at all.
var ErrInvalidFormat = errors.New("invalid QR code format")

// Payload identifies the session and course a scan belongs to.
type Payload struct {
	SessionID string `json:"sessionId"`
	CourseID  string `json:"courseId"`
	Session   string `json:"session"`
	Course    string `json:"course"`
	Date      string `json:"date"`
	Timestamp *int64 `json:"timestamp,omitempty"`
}

// requiredFields fixes the declared schema order; validation reports only
// the first violated constraint.
var requiredFields = []struct {
	get     func(Payload) string
	message string
}{
	{func(p Payload) string { return p.SessionID }, "Session ID is required"},
	{func(p Payload) string { return p.CourseID }, "Course ID is required"},
	{func(p Payload) string { return p.Session }, "Session name is required"},
	{func(p Payload) string { return p.Course }, "Course name is required"},
	{func(p Payload) string { return p.Date }, "Date is required"},
}

// Validate parses raw scanned text into a Payload and schema-checks it.
// It is a pure function over its input.
func Validate(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, ErrInvalidFormat
	}
	if err := p.Check(); err != nil {
		return Payload{}, err
	}
	return p, nil
}

// Check verifies an already-decoded payload. Callers holding a payload
// from untrusted storage must re-check it on every read.
func (p Payload) Check() error {
	for _, f := range requiredFields {
		if f.get(p) == "" {
			return errors.New(f.message)
		}
	}
	return nil
}
