package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studentlife/internal/config"
	"studentlife/internal/gsuite"
	"studentlife/internal/queue"
	"studentlife/internal/registration"
	"studentlife/internal/store"
	"studentlife/internal/student"
)

// The worker drains the registration audit queue: for each job it uploads
// the selfie to Drive and appends the audit row to the shared sheet, with a
// bounded retry before giving up on a job.
func main() {
	cfg := config.Load()

	if cfg.GoogleCredentialsJSON == "" {
		log.Fatal("GOOGLE_SERVICE_ACCOUNT_JSON must be set for the audit worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gclient, err := gsuite.New(ctx, []byte(cfg.GoogleCredentialsJSON), cfg.DriveFolderID, cfg.SheetID)
	if err != nil {
		log.Fatalf("google client init failed: %v", err)
	}

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()
	users := student.NewRepository(db.Client)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		log.Println("warning: in-memory queue is process-local; the worker will not see jobs published by the API")
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(store.NewRedis(cfg.RedisAddr).Client, "studentlife:audit")
	}

	msgs, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume failed: %v", err)
	}

	log.Println("audit worker started")
	for {
		select {
		case <-ctx.Done():
			log.Println("audit worker stopping")
			return
		case msg, ok := <-msgs:
			if !ok {
				log.Println("queue closed")
				return
			}
			if msg.Type != registration.AuditMessageType {
				log.Printf("skipping message of type %q", msg.Type)
				continue
			}
			handle(ctx, gclient, users, msg.Body, cfg.AuditRetries)
		}
	}
}

func handle(ctx context.Context, g *gsuite.Client, users registration.SelfieURLSetter, body []byte, retries int) {
	var job registration.AuditJob
	if err := json.Unmarshal(body, &job); err != nil {
		log.Printf("dropping malformed audit job: %v", err)
		return
	}

	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt) * 2 * time.Second):
			}
		}
		if err = registration.ProcessAudit(ctx, g, users, job); err == nil {
			log.Printf("audit recorded for %s", job.UserID)
			return
		}
		log.Printf("audit attempt %d for %s failed: %v", attempt+1, job.UserID, err)
	}
	log.Printf("giving up on audit for %s after %d attempts: %v", job.UserID, retries+1, err)
}
