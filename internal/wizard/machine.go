// Package wizard drives the three-step attendance capture flow:
// scan -> mode selection -> feedback/submit. The machine owns the
// cross-step draft handoff and treats the draft store as untrusted
// input, re-validating on every read.
package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"studentlife/internal/qr"
)

// State names the wizard's position in the flow.
type State string

const (
	StateIdle         State = "idle"
	StateScanning     State = "scanning"
	StateScanned      State = "scanned"
	StateModeSelected State = "mode_selected"
	StateSubmitting   State = "submitting"
)

// Session modes. Selection is mandatory; there is no implicit default.
const (
	ModeOnline  = "online"
	ModeOffline = "offline"
)

var (
	// ErrInvalidState rejects an operation not legal in the current state.
	ErrInvalidState = errors.New("operation not allowed in current state")
	// ErrDraftInvalid means the persisted draft was absent or corrupt; the
	// machine has already cleared it and reset to idle.
	ErrDraftInvalid = errors.New("attendance draft missing or invalid")
	// ErrModeRequired rejects advancing without an explicit session mode.
	ErrModeRequired = errors.New("session mode must be online or offline")
	// ErrRatingRequired rejects submission without a star rating in 1..5.
	ErrRatingRequired = errors.New("rating between 1 and 5 is required")
)

// Draft is the cross-step accumulator persisted between wizard steps.
type Draft struct {
	Payload  qr.Payload `json:"payload"`
	Mode     string     `json:"mode,omitempty"`
	Rating   int        `json:"rating,omitempty"`
	Feedback string     `json:"feedback,omitempty"`
}

// Scanner is the exclusive camera/QR-decode resource. Scan blocks until a
// decode or cancellation; the machine closes it on every exit path.
type Scanner interface {
	Open(ctx context.Context) error
	Scan(ctx context.Context) ([]byte, error)
	Close() error
}

// Submitter finalizes a completed draft, typically by writing an
// attendance record through the API.
type Submitter interface {
	Submit(ctx context.Context, d Draft) error
}

// Machine is the explicit state-machine object threaded through the flow.
// It is not safe for concurrent use; each device session owns one machine.
type Machine struct {
	state   State
	scanner Scanner
	drafts  DraftStore
	submit  Submitter
}

// New creates a machine in the idle state.
func New(scanner Scanner, drafts DraftStore, submit Submitter) *Machine {
	return &Machine{state: StateIdle, scanner: scanner, drafts: drafts, submit: submit}
}

// State reports the current state.
func (m *Machine) State() State { return m.state }

// StartScan opens the camera and enters the scanning state.
func (m *Machine) StartScan(ctx context.Context) error {
	if m.state != StateIdle {
		return fmt.Errorf("%w: start scan from %s", ErrInvalidState, m.state)
	}
	if err := m.scanner.Open(ctx); err != nil {
		return fmt.Errorf("open scanner: %w", err)
	}
	m.state = StateScanning
	return nil
}

// CancelScan releases the camera and returns to idle without side effects.
func (m *Machine) CancelScan() error {
	if m.state != StateScanning {
		return fmt.Errorf("%w: cancel scan from %s", ErrInvalidState, m.state)
	}
	m.state = StateIdle
	return m.scanner.Close()
}

// CompleteScan waits for a decode, validates it and persists the draft.
// The scanner is released whatever the outcome. On validation failure the
// machine returns to idle with no draft persisted.
func (m *Machine) CompleteScan(ctx context.Context) (qr.Payload, error) {
	if m.state != StateScanning {
		return qr.Payload{}, fmt.Errorf("%w: complete scan from %s", ErrInvalidState, m.state)
	}
	defer func() { _ = m.scanner.Close() }()

	raw, err := m.scanner.Scan(ctx)
	if err != nil {
		m.state = StateIdle
		return qr.Payload{}, fmt.Errorf("scan: %w", err)
	}

	payload, err := qr.Validate(raw)
	if err != nil {
		m.state = StateIdle
		return qr.Payload{}, err
	}

	if err := m.saveDraft(ctx, Draft{Payload: payload}); err != nil {
		m.state = StateIdle
		return qr.Payload{}, err
	}
	m.state = StateScanned
	return payload, nil
}

// Resume reloads and re-validates the draft on entry to a step. Valid from
// scanned or mode-selected; an idle machine may also resume a flow left by
// a previous session, advancing to the state the draft supports.
func (m *Machine) Resume(ctx context.Context) (Draft, error) {
	switch m.state {
	case StateScanned, StateModeSelected:
		return m.loadDraft(ctx)
	case StateIdle:
		d, err := m.loadDraft(ctx)
		if err != nil {
			return Draft{}, err
		}
		if d.Mode != "" {
			m.state = StateModeSelected
		} else {
			m.state = StateScanned
		}
		return d, nil
	default:
		return Draft{}, fmt.Errorf("%w: resume from %s", ErrInvalidState, m.state)
	}
}

// SelectMode records the mandatory online/offline choice and advances.
func (m *Machine) SelectMode(ctx context.Context, mode string) error {
	if m.state != StateScanned {
		return fmt.Errorf("%w: select mode from %s", ErrInvalidState, m.state)
	}
	d, err := m.loadDraft(ctx)
	if err != nil {
		return err
	}
	if mode != ModeOnline && mode != ModeOffline {
		return ErrModeRequired
	}
	d.Mode = mode
	if err := m.saveDraft(ctx, d); err != nil {
		return err
	}
	m.state = StateModeSelected
	return nil
}

// Submit finalizes the draft with the mandatory rating and optional
// feedback. On failure the machine stays in mode-selected with the draft
// preserved so the user can retry; on success the draft is cleared and the
// machine resets to idle.
func (m *Machine) Submit(ctx context.Context, rating int, feedback string) error {
	if m.state != StateModeSelected {
		return fmt.Errorf("%w: submit from %s", ErrInvalidState, m.state)
	}
	d, err := m.loadDraft(ctx)
	if err != nil {
		return err
	}
	if d.Mode != ModeOnline && d.Mode != ModeOffline {
		// Mode vanished from the persisted draft: corruption, full reset.
		return m.abort(ctx)
	}
	if rating < 1 || rating > 5 {
		return ErrRatingRequired
	}

	d.Rating = rating
	d.Feedback = feedback
	m.state = StateSubmitting
	if err := m.submit.Submit(ctx, d); err != nil {
		m.state = StateModeSelected
		return fmt.Errorf("submit attendance: %w", err)
	}

	_ = m.drafts.Clear(ctx)
	m.state = StateIdle
	return nil
}

// loadDraft reads the persisted draft and re-validates it. Storage is
// untrusted even though this process wrote it; absence or corruption at
// any checkpoint forces a full reset.
func (m *Machine) loadDraft(ctx context.Context) (Draft, error) {
	raw, ok, err := m.drafts.Load(ctx)
	if err != nil || !ok {
		return Draft{}, m.abort(ctx)
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return Draft{}, m.abort(ctx)
	}
	if err := d.Payload.Check(); err != nil {
		return Draft{}, m.abort(ctx)
	}
	return d, nil
}

func (m *Machine) saveDraft(ctx context.Context, d Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := m.drafts.Save(ctx, raw); err != nil {
		return fmt.Errorf("persist draft: %w", err)
	}
	return nil
}

// abort clears the draft and redirects the flow to its entry point.
func (m *Machine) abort(ctx context.Context) error {
	_ = m.drafts.Clear(ctx)
	m.state = StateIdle
	return ErrDraftInvalid
}
