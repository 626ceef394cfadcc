package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// TaskResult is the outcome of fetching one URL in a batch.
type TaskResult struct {
	URL      string
	Response *Response
	Error    error
	Fatal    bool
	WorkerID string
	Duration time.Duration
}

// FetcherFactory builds the fetcher a worker uses; each worker owns its client.
type FetcherFactory func(logger Logger) (*Fetcher, error)

type Worker struct {
	id      string
	fetcher *Fetcher
	logger  Logger
}

// Scheduler fetches URLs on a fixed pool of workers.
type Scheduler struct {
	workers      []*Worker
	workChan     chan string
	resultsChan  chan TaskResult
	wg           sync.WaitGroup
	logger       Logger
	opts         FetchOptions
	staggerDelay time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	drained      chan struct{}
	fatalOnce    sync.Once
	stopped      atomic.Bool
}

func NewScheduler(workerCount int, factory FetcherFactory, opts FetchOptions, staggerDelay time.Duration, logger Logger) (*Scheduler, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	s := &Scheduler{
		workers:      make([]*Worker, workerCount),
		workChan:     make(chan string, workerCount*2),
		resultsChan:  make(chan TaskResult, workerCount*2),
		drained:      make(chan struct{}),
		logger:       logger,
		opts:         opts,
		staggerDelay: staggerDelay,
	}

	for i := range workerCount {
		id := newShortID()
		wl := &prefixLogger{id: id, base: logger}
		fetcher, err := factory(wl)
		if err != nil {
			return nil, NewFatalError(err)
		}
		s.workers[i] = &Worker{id: id, fetcher: fetcher, logger: wl}
	}

	return s, nil
}

// Start launches the workers. The results channel is closed once every worker
// has exited, whether the queue ran dry or ctx was cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.ctx = ctx
	defer func() {
		go func() {
			s.wg.Wait()
			close(s.resultsChan)
			close(s.drained)
		}()
	}()

	for i, worker := range s.workers {
		s.wg.Add(1)
		go s.runWorker(ctx, worker)

		if s.staggerDelay > 0 && i < len(s.workers)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.staggerDelay):
			}
		}
	}
}

func (s *Scheduler) handleFatalError(err error) {
	s.fatalOnce.Do(func() {
		s.stopped.Store(true)
		s.logger.Warn("FATAL ERROR: %v - stopping all workers", err)

		// Delivered before cancelling so a reader waiting on Results always sees it.
		select {
		case s.resultsChan <- TaskResult{Fatal: true, Error: err}:
		case <-s.ctx.Done():
		}
		s.cancel()
	})
}

func (s *Scheduler) isFatal(err error) bool {
	return IsFatalError(err) || ContainsFatalErrorString(err)
}

func (s *Scheduler) runWorker(ctx context.Context, worker *Worker) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case target, ok := <-s.workChan:
			if !ok {
				return
			}
			if s.stopped.Load() || ctx.Err() != nil {
				return
			}

			start := time.Now()
			resp, err := worker.fetcher.Fetch(ctx, target, s.opts)
			if err != nil && s.isFatal(err) {
				s.handleFatalError(err)
				return
			}

			result := TaskResult{
				URL:      target,
				Response: resp,
				Error:    err,
				WorkerID: worker.id,
				Duration: time.Since(start),
			}
			select {
			case s.resultsChan <- result:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Enqueue feeds targets to the workers from a background goroutine and closes
// the work queue once all of them are handed out or the scheduler is stopped.
// Call it once, after Start.
func (s *Scheduler) Enqueue(targets []string) {
	ctx := s.ctx
	go func() {
		defer close(s.workChan)
		for _, target := range targets {
			select {
			case s.workChan <- target:
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Results returns the results channel for reading task outcomes.
func (s *Scheduler) Results() <-chan TaskResult {
	return s.resultsChan
}

// Close stops the workers and waits until the results channel is closed.
func (s *Scheduler) Close() {
	if s.cancel == nil {
		close(s.resultsChan)
		return
	}
	s.cancel()
	<-s.drained
}

// WorkerCount returns the number of workers.
func (s *Scheduler) WorkerCount() int {
	return len(s.workers)
}
