package ingest

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/dgallion1/docnorm/internal/parser"
	"github.com/dgallion1/docnorm/internal/store"
)

// MaxRetries bounds persistence attempts per job. Parse failures are
// never retried: the same bytes parse the same way every time.
const MaxRetries = 3

type worker struct {
	store    *store.Store
	parseOpt parser.Options
	log      *slog.Logger
}

func newWorker(st *store.Store, parseOpt parser.Options, log *slog.Logger) *worker {
	return &worker{store: st, parseOpt: parseOpt, log: log}
}

// process runs one job to a terminal state.
func (w *worker) process(ctx context.Context, job *Job) {
	data := job.TakeFileData()
	if data == nil {
		job.Fail("internal", "job has no payload")
		return
	}

	job.SetStatus(StatusParsing, "parsing document")
	doc, err := parser.Parse(ctx, data, job.ContentType, job.Filename, w.parseOpt)
	if err != nil {
		var pe *parser.ParseError
		if errors.As(err, &pe) {
			job.Fail(string(pe.Kind), pe.Error())
		} else {
			job.Fail("internal", err.Error())
		}
		w.log.Error("parse failed",
			"job_id", job.ID,
			"filename", job.Filename,
			"error", err)
		return
	}
	job.SetWarnings(doc.Meta.Warnings)

	job.SetStatus(StatusStoring, "storing document")
	var saveErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		saveErr = w.store.SaveDocument(ctx, job.DocID, job.Filename, doc)
		if saveErr == nil {
			break
		}
		w.log.Warn("store attempt failed",
			"job_id", job.ID,
			"attempt", attempt+1,
			"error", saveErr)
		select {
		case <-ctx.Done():
			job.Fail("canceled", ctx.Err().Error())
			return
		case <-time.After(backoff(attempt)):
		}
	}
	if saveErr != nil {
		job.Fail("store", saveErr.Error())
		return
	}

	job.SetStatus(StatusCompleted, "done")
	w.log.Info("document ingested",
		"job_id", job.ID,
		"doc_id", job.DocID,
		"format", doc.Meta.Format,
		"assets", len(doc.Assets),
		"warnings", len(doc.Meta.Warnings))
}

// backoff returns a duration for attempt n (0-indexed) with jitter.
func backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base + jitter
}
