package registration

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"studentlife/internal/gsuite"
	"studentlife/internal/queue"
)

// AuditMessageType tags registration audit jobs on the shared queue.
const AuditMessageType = "registration_audit"

// AuditJob carries everything needed to record a registration externally:
// the spreadsheet row (without the selfie link, which is only known after
// upload) and the raw selfie image, if one was taken.
type AuditJob struct {
	UserID     string   `json:"userId"`
	Row        []string `json:"row"`
	Selfie     []byte   `json:"selfie,omitempty"`
	SelfieName string   `json:"selfieName,omitempty"`
	SelfieMime string   `json:"selfieMime,omitempty"`
}

// AuditSink accepts a job for eventual recording.
type AuditSink interface {
	Record(ctx context.Context, job AuditJob) error
}

// SelfieURLSetter stores the uploaded selfie link back on the user row.
type SelfieURLSetter interface {
	SetSelfieURL(ctx context.Context, id, url string) error
}

// QueueSink hands jobs to the audit queue for the worker to process with
// retries, keeping registration latency independent of Google APIs.
type QueueSink struct {
	Queue queue.Queue
}

// Record enqueues the job.
func (s QueueSink) Record(ctx context.Context, job AuditJob) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode audit job: %w", err)
	}
	return s.Queue.Publish(ctx, queue.Message{Type: AuditMessageType, Body: raw})
}

// SyncSink processes the job inline, matching the original fire-and-forget
// behavior when no queue is deployed.
type SyncSink struct {
	Google *gsuite.Client
	Users  SelfieURLSetter
}

// Record runs the job immediately.
func (s SyncSink) Record(ctx context.Context, job AuditJob) error {
	return ProcessAudit(ctx, s.Google, s.Users, job)
}

// ProcessAudit uploads the selfie (when present), patches the user row
// with the resulting link and appends the audit row to the spreadsheet.
func ProcessAudit(ctx context.Context, g *gsuite.Client, users SelfieURLSetter, job AuditJob) error {
	photoURL := ""
	if len(job.Selfie) > 0 {
		url, err := g.UploadSelfie(ctx, job.Selfie, job.SelfieName, job.SelfieMime)
		if err != nil {
			return fmt.Errorf("upload selfie for %s: %w", job.UserID, err)
		}
		photoURL = url
		if users != nil {
			if err := users.SetSelfieURL(ctx, job.UserID, url); err != nil {
				log.Printf("store selfie url for %s: %v", job.UserID, err)
			}
		}
	}

	row := append(append([]string{}, job.Row...), photoURL)
	if err := g.AppendRow(ctx, row); err != nil {
		return fmt.Errorf("append audit row for %s: %w", job.UserID, err)
	}
	return nil
}

// BuildAuditRow assembles the spreadsheet row for a finalized draft in the
// fixed column order of the shared sheet. The selfie link column is
// appended by ProcessAudit after upload.
func BuildAuditRow(d Draft, at time.Time) []string {
	return []string{
		at.UTC().Format(time.RFC3339),
		d.Step1.FullName,
		d.Step1.Gender,
		d.Step1.GuardianName,
		d.Step1.GuardianOccupation,
		d.Step1.DateOfBirth.Format(),
		d.Step2.CollegeName,
		d.Step2.Course,
		d.Step2.StartYear,
		d.Step2.EndYear,
		d.Step2.City,
		d.Step2.District,
		d.Step2.State,
		d.Step2.Pincode,
		d.Step3.StudentContact,
		d.Step3.WhatsappNumber,
		d.Step3.GuardianContact,
		d.Step3.Email,
		d.Step3.FamilyIncome,
		d.Step4.Aadhaar,
		d.Step4.IsPWD,
		d.Step4.IsGovtEmployee,
	}
}
