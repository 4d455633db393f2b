package dispatch

import (
	"fmt"
	"testing"

	"gitlab.com/pixelgrid.net/internal/domain"
)

func makeWorkers(n int) []*domain.WorkerRecord {
	workers := make([]*domain.WorkerRecord, n)
	for i := range workers {
		workers[i] = domain.NewWorkerRecord("127.0.0.1", 9100+i)
	}
	return workers
}

func TestRoundRobinDistributesEvenly(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("workers=%d", n), func(t *testing.T) {
			policy := &RoundRobinPolicy{}
			workers := makeWorkers(n)

			counts := make(map[string]int)
			for i := 0; i < 10*n; i++ {
				picked := policy.Select(workers)
				counts[picked.Key()]++
			}

			for _, w := range workers {
				if counts[w.Key()] != 10 {
					t.Fatalf("worker %s got %d picks, want 10", w.Key(), counts[w.Key()])
				}
			}
		})
	}
}

func TestRoundRobinEmptyFreeSet(t *testing.T) {
	policy := &RoundRobinPolicy{}
	if picked := policy.Select(nil); picked != nil {
		t.Fatalf("picked %v from empty set", picked)
	}
}

func TestRoundRobinCounterWraps(t *testing.T) {
	policy := &RoundRobinPolicy{counter: rrCounterWrap}
	workers := makeWorkers(3)

	// This pick pushes the counter past the wrap bound.
	policy.Select(workers)
	if policy.counter != 0 {
		t.Fatalf("counter = %d, want wrapped to 0", policy.counter)
	}

	// The next pick restarts from registry order.
	if picked := policy.Select(workers); picked != workers[0] {
		t.Fatalf("picked %s after wrap, want %s", picked.Key(), workers[0].Key())
	}
}

func TestMinAveragePrefersUntestedWorkers(t *testing.T) {
	policy := &MinAverageTimePolicy{}
	workers := makeWorkers(3)
	workers[0].TasksCompleted = 1
	workers[0].AverageProcessingTime = 5.0
	workers[1].TasksCompleted = 1
	workers[1].AverageProcessingTime = 2.0
	// workers[2] has completed nothing.

	if picked := policy.Select(workers); picked != workers[2] {
		t.Fatalf("picked %s, want the untested worker", picked.Key())
	}

	// Once tested, the lowest measured average wins.
	workers[2].TasksCompleted = 1
	workers[2].AverageProcessingTime = 4.0
	if picked := policy.Select(workers); picked != workers[1] {
		t.Fatalf("picked %s, want the 2.0s worker", picked.Key())
	}
}

func TestMinAverageTieBreaksTowardRegistryOrder(t *testing.T) {
	policy := &MinAverageTimePolicy{}
	workers := makeWorkers(3)
	for _, w := range workers {
		w.TasksCompleted = 1
		w.AverageProcessingTime = 3.0
	}

	if picked := policy.Select(workers); picked != workers[0] {
		t.Fatalf("picked %s, want first in registry order", picked.Key())
	}
}

func TestNewPolicyNames(t *testing.T) {
	if _, ok := NewPolicy("min-average").(*MinAverageTimePolicy); !ok {
		t.Fatal("min-average did not select MinAverageTimePolicy")
	}
	if _, ok := NewPolicy("round-robin").(*RoundRobinPolicy); !ok {
		t.Fatal("round-robin did not select RoundRobinPolicy")
	}
	if _, ok := NewPolicy("anything-else").(*RoundRobinPolicy); !ok {
		t.Fatal("unknown name must default to round-robin")
	}
}
