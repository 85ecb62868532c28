package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/gst-invoice-extractor/internal/logging"
	"alfredoptarigan/gst-invoice-extractor/internal/repositories"
)

type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueJob(invoiceID uuid.UUID) bool
}

type worker struct {
	repo         repositories.InvoiceRepository
	reprocessor  Reprocessor
	jobQueue     chan uuid.UUID
	concurrency  int
	pollInterval time.Duration
	log          logging.Logger

	// inFlight holds ids queued or running so the poller does not
	// enqueue a record twice.
	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

func NewWorker(
	repo repositories.InvoiceRepository,
	reprocessor Reprocessor,
	concurrency int,
	pollInterval time.Duration,
	log logging.Logger,
) Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	return &worker{
		repo:         repo,
		reprocessor:  reprocessor,
		jobQueue:     make(chan uuid.UUID, 100),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		log:          log.With("component", "worker"),
		inFlight:     make(map[uuid.UUID]struct{}),
		stopChan:     make(chan struct{}),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	w.log.Info(ctx, "starting worker", "concurrency", w.concurrency, "poll_interval", w.pollInterval)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollPendingJobs(ctx)
}

// Stop implements Worker. Jobs already running are allowed to finish.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.log.Info(context.Background(), "stopping worker")
		close(w.stopChan)
		w.wg.Wait()
		w.log.Info(context.Background(), "worker stopped")
	})
}

// EnqueueJob implements Worker. It reports false when the id is already
// queued or the worker is stopped.
func (w *worker) EnqueueJob(invoiceID uuid.UUID) bool {
	w.mu.Lock()
	if _, ok := w.inFlight[invoiceID]; ok {
		w.mu.Unlock()
		return false
	}
	w.inFlight[invoiceID] = struct{}{}
	w.mu.Unlock()

	select {
	case w.jobQueue <- invoiceID:
		w.log.Debug(context.Background(), "job enqueued", "invoice_id", invoiceID)
		return true
	case <-w.stopChan:
		w.done(invoiceID)
		w.log.Warn(context.Background(), "worker stopped, cannot enqueue job", "invoice_id", invoiceID)
		return false
	}
}

func (w *worker) done(invoiceID uuid.UUID) {
	w.mu.Lock()
	delete(w.inFlight, invoiceID)
	w.mu.Unlock()
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()
	log := w.log.With("worker_id", workerID)

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case invoiceID := <-w.jobQueue:
			if err := w.reprocessor.Reprocess(ctx, invoiceID); err != nil {
				log.Error(ctx, "job failed", "invoice_id", invoiceID, "error", err)
			} else {
				log.Info(ctx, "job completed", "invoice_id", invoiceID)
			}
			w.done(invoiceID)
		}
	}
}

func (w *worker) pollPendingJobs(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, err := w.repo.FindPendingJobs(10)
			if err != nil {
				w.log.Warn(ctx, "failed to fetch pending jobs", "error", err)
				continue
			}
			for _, inv := range pending {
				w.EnqueueJob(inv.ID)
			}
		}
	}
}
