package dispatch

import (
	"strings"
	"sync"

	"gitlab.com/pixelgrid.net/internal/domain"
)

// Policy names accepted in configuration.
const (
	PolicyRoundRobin = "round-robin"
	PolicyMinAverage = "min-average"
)

// rrCounterWrap bounds the round-robin counter. After exceeding it the
// counter restarts from zero.
const rrCounterWrap = 1_000_000

// SelectionPolicy picks one worker from the free set. The free slice is
// materialized by the dispatcher in registry order; implementations
// must not retain it.
type SelectionPolicy interface {
	Select(free []*domain.WorkerRecord) *domain.WorkerRecord
}

// NewPolicy returns the policy registered under name, defaulting to
// round-robin for anything unrecognized.
func NewPolicy(name string) SelectionPolicy {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PolicyMinAverage:
		return &MinAverageTimePolicy{}
	default:
		return &RoundRobinPolicy{}
	}
}

var _ SelectionPolicy = (*RoundRobinPolicy)(nil)

// RoundRobinPolicy cycles a shared counter over the free set. With N
// workers all free and sequential requests the assignment alternates in
// registry order.
type RoundRobinPolicy struct {
	mu      sync.Mutex
	counter int
}

// Select returns the worker at counter mod len(free), then advances.
func (p *RoundRobinPolicy) Select(free []*domain.WorkerRecord) *domain.WorkerRecord {
	if len(free) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	picked := free[p.counter%len(free)]
	p.counter++
	if p.counter > rrCounterWrap {
		p.counter = 0
	}
	return picked
}

var _ SelectionPolicy = (*MinAverageTimePolicy)(nil)

// MinAverageTimePolicy picks the free worker with the smallest cached
// average processing time. Workers that have never completed a task are
// preferred over all others; ties break toward registry order.
type MinAverageTimePolicy struct{}

// Select scans the free set for the lowest expected latency.
func (p *MinAverageTimePolicy) Select(free []*domain.WorkerRecord) *domain.WorkerRecord {
	if len(free) == 0 {
		return nil
	}

	var best *domain.WorkerRecord
	var bestAvg float64

	for _, w := range free {
		avg := w.AverageProcessingTime
		if w.TasksCompleted == 0 {
			// An untested worker outranks any measured average.
			avg = -1
		}
		if best == nil || avg < bestAvg {
			best = w
			bestAvg = avg
		}
	}

	return best
}
