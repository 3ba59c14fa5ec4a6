// Package workpool runs independent units of work with bounded concurrency.
// At most N units are in flight at any instant and a queued unit starts as
// soon as any slot frees. Unit failures are recorded, never fatal: siblings
// and the pool itself always run to completion.
package workpool

import (
	"errors"
	"fmt"
	"sync"
)

// ErrStopped reports that the stop channel closed before a slot freed; the
// unit was never started.
var ErrStopped = errors.New("workpool: stopped")

// Pool bounds in-flight work with a channel of permits. Completions funnel
// over an internal channel to a single collector goroutine that owns the
// failure count, so tasks never share mutable state.
type Pool struct {
	permits       chan struct{}
	failures      chan error
	collectorDone chan struct{}
	failureCount  int
	wg            sync.WaitGroup
	waitOnce      sync.Once
}

// New creates a pool running at most limit units concurrently. A limit below
// one is clamped to one.
func New(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	p := &Pool{
		permits:       make(chan struct{}, limit),
		failures:      make(chan error, limit),
		collectorDone: make(chan struct{}),
	}
	go p.collect()
	return p
}

// Submit blocks until a slot frees, then runs task on its own goroutine and
// returns nil. When stop closes first it returns ErrStopped without starting
// the unit; a nil stop channel never stops. In-flight units are unaffected
// by stop and always run to completion. Submit must not be called
// concurrently with or after Wait.
func (p *Pool) Submit(stop <-chan struct{}, task func() error) error {
	select {
	case <-stop:
		return ErrStopped
	case p.permits <- struct{}{}:
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() { <-p.permits }()
		p.failures <- runTask(task)
	}()
	return nil
}

// Wait blocks until every started unit finishes and returns the number that
// failed. Safe to call more than once; later calls return the same count.
func (p *Pool) Wait() int {
	p.waitOnce.Do(func() {
		p.wg.Wait()
		close(p.failures)
		<-p.collectorDone
	})
	return p.failureCount
}

// collect drains completions; it is the only writer of failureCount.
func (p *Pool) collect() {
	defer close(p.collectorDone)
	for err := range p.failures {
		if err != nil {
			p.failureCount++
		}
	}
}

// runTask executes one unit, converting a panic into an error so a failing
// unit cannot abort its siblings.
func runTask(task func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return task()
}
