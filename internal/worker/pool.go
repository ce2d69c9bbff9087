package worker

import (
	"context"
	"sync"
)

// Job is one independent unit of pipeline work (a sentence extraction,
// a bootstrap pair)
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of a job
type Result interface {
	GetError() error
}

type indexedJob struct {
	index int
	job   Job
}

type indexedResult struct {
	index  int
	result Result
}

// Pool runs jobs on a fixed number of workers. Results are returned in
// submission order regardless of completion order. Jobs are never cancelled
// by the pool; a job that must stop early watches its own context.
type Pool struct {
	workers    int
	jobQueue   chan indexedJob
	results    chan indexedResult
	submitted  int
	collected  []indexedResult
	collectEnd chan struct{}
	wg         sync.WaitGroup
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan indexedJob, workers*2),
		results:    make(chan indexedResult, workers*2),
		collectEnd: make(chan struct{}),
	}
}

// Start starts the worker goroutines and the result collector
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	// Results are drained as they arrive so workers never block on a full
	// results channel while Submit is still queueing
	go func() {
		for r := range p.results {
			p.collected = append(p.collected, r)
		}
		close(p.collectEnd)
	}()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for ij := range p.jobQueue {
		p.results <- indexedResult{index: ij.index, result: ij.job.Execute(context.Background())}
	}
}

// Submit queues a job. It must not be called concurrently with Wait.
func (p *Pool) Submit(job Job) {
	p.jobQueue <- indexedJob{index: p.submitted, job: job}
	p.submitted++
}

// Wait closes the queue, waits for every job and returns results in
// submission order
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	close(p.results)
	<-p.collectEnd

	results := make([]Result, p.submitted)
	for _, r := range p.collected {
		results[r.index] = r.result
	}

	return results
}

// Run executes jobs on a fresh pool and returns their results in order
func Run(workers int, jobs []Job) []Result {
	if len(jobs) == 0 {
		return []Result{}
	}

	pool := NewPool(workers)
	pool.Start()
	for _, j := range jobs {
		pool.Submit(j)
	}

	return pool.Wait()
}
