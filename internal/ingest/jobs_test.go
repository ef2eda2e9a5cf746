package ingest

import (
	"testing"
	"time"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestNewJob_DocIDFromContent(t *testing.T) {
	a := NewJob("a.txt", "text/plain", []byte("same bytes"))
	b := NewJob("b.txt", "text/plain", []byte("same bytes"))
	c := NewJob("c.txt", "text/plain", []byte("other bytes"))

	if a.DocID != b.DocID {
		t.Error("expected identical payloads to share a doc id")
	}
	if a.DocID == c.DocID {
		t.Error("expected different payloads to get different doc ids")
	}
	if a.ID == b.ID {
		t.Error("expected distinct job ids")
	}
	if a.Status != StatusQueued {
		t.Errorf("expected new job queued, got %q", a.Status)
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob("doc.pdf", "application/pdf", []byte("x"))

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing document"},
		{StatusStoring, "storing document"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_Fail(t *testing.T) {
	job := NewJob("bad.pdf", "application/pdf", []byte("x"))
	job.Fail("malformed", "parse pdf: bad xref")

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Errorf("expected failed status, got %q", snap.Status)
	}
	if snap.ErrorKind != "malformed" {
		t.Errorf("expected error kind kept, got %q", snap.ErrorKind)
	}
	if snap.Error == "" {
		t.Error("expected error message on snapshot")
	}
}

func TestJob_TakeFileDataReleasesPayload(t *testing.T) {
	job := NewJob("d.txt", "text/plain", []byte("payload"))

	first := job.TakeFileData()
	if string(first) != "payload" {
		t.Fatalf("expected payload back, got %q", first)
	}
	if second := job.TakeFileData(); second != nil {
		t.Error("expected payload released after first take")
	}
}

func TestJob_SnapshotWarningsNeverNil(t *testing.T) {
	job := NewJob("d.txt", "text/plain", []byte("x"))
	snap := job.Snapshot()
	if snap.Warnings == nil {
		t.Error("expected empty warnings slice, not nil, for JSON clients")
	}

	job.SetWarnings([]string{"page 2: no extractable text"})
	snap = job.Snapshot()
	if len(snap.Warnings) != 1 {
		t.Errorf("expected 1 warning, got %d", len(snap.Warnings))
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	s := NewJobStore(10 * time.Millisecond)
	job := NewJob("d.txt", "text/plain", []byte("x"))
	s.Put(job)

	if s.Get(job.ID) == nil {
		t.Fatal("expected job retrievable before expiry")
	}

	job.mu.Lock()
	job.UpdatedAt = time.Now().Add(-time.Minute)
	job.mu.Unlock()
	s.Cleanup()

	if s.Get(job.ID) != nil {
		t.Error("expected expired job evicted")
	}
}

func TestGenerateULID_Format(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateULID()
		if len(id) != 26 {
			t.Fatalf("expected 26-character id, got %d (%q)", len(id), id)
		}
		if seen[id] {
			t.Fatalf("duplicate id generated: %q", id)
		}
		seen[id] = true
	}
}
