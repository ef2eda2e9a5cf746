package ingest

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dgallion1/docnorm/internal/parser"
	"github.com/dgallion1/docnorm/internal/store"
)

func testOrchestrator(t *testing.T, queueSize int) (*Orchestrator, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	o := NewOrchestrator(Config{
		WorkerCount:  2,
		MaxQueueSize: queueSize,
		JobTTL:       time.Minute,
	}, st, parser.Options{}, log)
	return o, st
}

func waitForTerminal(t *testing.T, o *Orchestrator, jobID string) JobSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job := o.GetJob(jobID)
		if job == nil {
			t.Fatalf("job %s disappeared", jobID)
		}
		snap := job.Snapshot()
		if snap.Status == StatusCompleted || snap.Status == StatusFailed {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state", jobID)
	return JobSnapshot{}
}

func TestOrchestrator_IngestTextDocument(t *testing.T) {
	o, st := testOrchestrator(t, 8)
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("notes.txt", "text/plain", []byte("Hello.\n\nWorld."))
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap := waitForTerminal(t, o, job.ID)
	if snap.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (%s)", snap.Status, snap.Error)
	}

	rec, err := st.GetDocument(context.Background(), snap.DocID)
	if err != nil {
		t.Fatalf("stored document missing: %v", err)
	}
	if rec.Doc.Text != "Hello.\n\nWorld." {
		t.Errorf("unexpected stored text: %q", rec.Doc.Text)
	}
	if rec.Filename != "notes.txt" {
		t.Errorf("unexpected stored filename: %q", rec.Filename)
	}
}

func TestOrchestrator_ParseFailureIsTerminal(t *testing.T) {
	o, _ := testOrchestrator(t, 8)
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("data.json", "application/json", []byte("{broken"))
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap := waitForTerminal(t, o, job.ID)
	if snap.Status != StatusFailed {
		t.Fatalf("expected failed, got %q", snap.Status)
	}
	if snap.ErrorKind != "malformed" {
		t.Errorf("expected malformed error kind, got %q", snap.ErrorKind)
	}
}

func TestOrchestrator_UnsupportedFormat(t *testing.T) {
	o, _ := testOrchestrator(t, 8)
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("blob.bin", "application/octet-stream", []byte{0x00})
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}

	snap := waitForTerminal(t, o, job.ID)
	if snap.ErrorKind != "unsupported_format" {
		t.Errorf("expected unsupported_format, got %q", snap.ErrorKind)
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	// Workers never started, so the queue fills.
	o, _ := testOrchestrator(t, 1)

	first := NewJob("a.txt", "text/plain", []byte("a"))
	if err := o.Submit(first); err != nil {
		t.Fatalf("first submit should fit: %v", err)
	}

	second := NewJob("b.txt", "text/plain", []byte("b"))
	if err := o.Submit(second); err == nil {
		t.Fatal("expected error when queue is full")
	}
	if second.Snapshot().Status != StatusFailed {
		t.Errorf("expected overflowed job marked failed, got %q", second.Snapshot().Status)
	}
}

func TestOrchestrator_SubmitAfterStop(t *testing.T) {
	o, _ := testOrchestrator(t, 8)
	o.Start(context.Background())
	o.Stop()

	// A late upload must fail cleanly, not panic on the closed queue.
	job := NewJob("late.txt", "text/plain", []byte("too late"))
	if err := o.Submit(job); err == nil {
		t.Fatal("expected error submitting after shutdown")
	}
	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Errorf("expected failed job, got %q", snap.Status)
	}
	if snap.ErrorKind != "shutting_down" {
		t.Errorf("expected shutting_down error kind, got %q", snap.ErrorKind)
	}
}

func TestOrchestrator_IdempotentReingest(t *testing.T) {
	o, st := testOrchestrator(t, 8)
	o.Start(context.Background())
	defer o.Stop()

	payload := []byte("same document")
	first := NewJob("v1.txt", "text/plain", payload)
	if err := o.Submit(first); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitForTerminal(t, o, first.ID)

	second := NewJob("v1.txt", "text/plain", payload)
	if err := o.Submit(second); err != nil {
		t.Fatalf("submit: %v", err)
	}
	waitForTerminal(t, o, second.ID)

	if first.DocID != second.DocID {
		t.Fatal("expected identical payloads to share a doc id")
	}
	list, err := st.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 stored document after re-ingest, got %d", len(list))
	}
}
