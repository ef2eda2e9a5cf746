package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docnorm/internal/parser"
	"github.com/dgallion1/docnorm/internal/store"
)

// Config carries the orchestrator's tunables, decoupled from the
// process-level configuration package.
type Config struct {
	WorkerCount  int
	MaxQueueSize int
	JobTTL       time.Duration
}

// Orchestrator manages the parse-and-persist pipeline: a bounded queue
// feeding a fixed worker pool, with job state kept in memory until the
// TTL evicts it.
type Orchestrator struct {
	jobs     *JobStore
	queue    chan *Job
	store    *store.Store
	parseOpt parser.Options
	log      *slog.Logger
	cfg      Config

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// closeMu excludes Submit's queue send from Stop's close, so an
	// upload racing a shutdown fails cleanly instead of panicking on a
	// closed channel.
	closeMu sync.RWMutex
	closed  bool
}

// NewOrchestrator creates the pipeline; call Start to launch workers.
func NewOrchestrator(cfg Config, st *store.Store, parseOpt parser.Options, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		jobs:     NewJobStore(cfg.JobTTL),
		queue:    make(chan *Job, cfg.MaxQueueSize),
		store:    st,
		parseOpt: parseOpt,
		log:      log,
		cfg:      cfg,
	}
}

// Start launches worker goroutines and the job-store sweeper.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for i := 0; i < o.cfg.WorkerCount; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := newWorker(o.store, o.parseOpt, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.process(workerCtx, job)
				}
			}
		}()
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline. Safe to call more than once.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.closeMu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.closeMu.Unlock()
	o.wg.Wait()
}

// Submit queues a new job for processing. Non-blocking: a full queue
// or a stopped pipeline fails the job immediately rather than stalling
// the upload handler.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	o.closeMu.RLock()
	defer o.closeMu.RUnlock()
	if o.closed {
		job.Fail("shutting_down", "service is shutting down")
		return fmt.Errorf("service is shutting down")
	}
	select {
	case o.queue <- job:
		return nil
	default:
		job.Fail("queue_full", fmt.Sprintf("job queue is full (%d)", o.cfg.MaxQueueSize))
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID, or nil if unknown or expired.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}
