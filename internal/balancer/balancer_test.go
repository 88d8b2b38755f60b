package balancer

import (
	"fmt"
	"testing"

	"golang.org/x/sync/errgroup"

	"lbgateway/internal/config"
)

func threeBackends() map[string]config.BackendConfig {
	return map[string]config.BackendConfig{
		"b3": {URL: "http://b3", Weight: 1},
		"b1": {URL: "http://b1", Weight: 3},
		"b2": {URL: "http://b2", Weight: 2},
	}
}

func TestLoadBalancer_UpdateFleetOrdersByIDAscending(t *testing.T) {
	lb := New()
	lb.UpdateFleet(threeBackends())

	lb.mu.RLock()
	defer lb.mu.RUnlock()
	if len(lb.fleet) != 3 {
		t.Fatalf("fleet len = %d, want 3", len(lb.fleet))
	}
	for i, want := range []string{"b1", "b2", "b3"} {
		if lb.fleet[i].ID != want {
			t.Fatalf("fleet[%d].ID = %q, want %q (fleet must be id-ascending regardless of map iteration order)", i, lb.fleet[i].ID, want)
		}
	}
}

func TestLoadBalancer_UpdateFleetResetsCursorAndCounters(t *testing.T) {
	lb := New()
	lb.UpdateFleet(threeBackends())
	lb.IncrementConnections("b1")
	lb.Select()
	lb.Select()

	lb.UpdateFleet(threeBackends())

	if lb.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", lb.Len())
	}
	b := lb.byID["b1"]
	if b.LiveConnections() != 0 {
		t.Fatal("UpdateFleet must rebuild fresh Backend records with zeroed counters")
	}
	if got := lb.Select().ID; got != "b1" {
		t.Fatalf("first Select() after UpdateFleet = %q, want b1 (cursor reset to 0)", got)
	}
}

func TestLoadBalancer_RoundRobinCyclesInOrder(t *testing.T) {
	lb := New()
	lb.UpdateFleet(threeBackends())
	lb.SetStrategy(config.RoundRobin)

	var got []string
	for i := 0; i < 6; i++ {
		got = append(got, lb.Select().ID)
	}
	want := []string{"b1", "b2", "b3", "b1", "b2", "b3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("selection[%d] = %q, want %q (sequence: %v)", i, got[i], want[i], got)
		}
	}
}

func TestLoadBalancer_SelectOnEmptyFleetReturnsNil(t *testing.T) {
	lb := New()
	if b := lb.Select(); b != nil {
		t.Fatalf("Select() on empty fleet = %v, want nil", b)
	}
}

func TestLoadBalancer_WeightedRoundRobinMatchesWeightRatio(t *testing.T) {
	lb := New()
	lb.UpdateFleet(threeBackends()) // b1=3, b2=2, b3=1
	lb.SetStrategy(config.WeightedRoundRobin)

	counts := map[string]int{}
	const rounds = 600
	for i := 0; i < rounds; i++ {
		counts[lb.Select().ID]++
	}

	// Over many rounds smoothed WRR converges to weight/total-weight
	// frequency for every backend; none may starve.
	for id, want := range map[string]int{"b1": 300, "b2": 200, "b3": 100} {
		got := counts[id]
		diff := got - want
		if diff < 0 {
			diff = -diff
		}
		if diff > want/4 {
			t.Fatalf("backend %s selected %d times, want ~%d (counts: %v)", id, got, want, counts)
		}
	}
}

func TestLoadBalancer_LeastConnectionsPicksLowestCount(t *testing.T) {
	lb := New()
	lb.UpdateFleet(threeBackends())
	lb.SetStrategy(config.LeastConnections)

	lb.IncrementConnections("b1")
	lb.IncrementConnections("b1")
	lb.IncrementConnections("b2")

	got := lb.Select()
	if got.ID != "b3" {
		t.Fatalf("Select() = %q, want b3 (the only backend with zero connections)", got.ID)
	}
}

func TestLoadBalancer_LeastConnectionsBreaksTiesByFleetOrder(t *testing.T) {
	lb := New()
	lb.UpdateFleet(threeBackends())
	lb.SetStrategy(config.LeastConnections)

	got := lb.Select()
	if got.ID != "b1" {
		t.Fatalf("Select() with an all-zero fleet = %q, want the first backend in id order (b1)", got.ID)
	}
}

func TestLoadBalancer_IncrementDecrementConnections(t *testing.T) {
	lb := New()
	lb.UpdateFleet(threeBackends())

	lb.IncrementConnections("b1")
	lb.IncrementConnections("b1")
	if got := lb.byID["b1"].LiveConnections(); got != 2 {
		t.Fatalf("LiveConnections() = %d, want 2", got)
	}

	lb.DecrementConnections("b1")
	if got := lb.byID["b1"].LiveConnections(); got != 1 {
		t.Fatalf("LiveConnections() = %d, want 1", got)
	}
}

func TestLoadBalancer_DecrementSaturatesAtZero(t *testing.T) {
	lb := New()
	lb.UpdateFleet(threeBackends())

	lb.DecrementConnections("b1")
	if got := lb.byID["b1"].LiveConnections(); got != 0 {
		t.Fatalf("LiveConnections() = %d, want 0 (decrement below zero must saturate)", got)
	}
}

func TestLoadBalancer_IncrementDecrementUnknownIDIsNoop(t *testing.T) {
	lb := New()
	lb.UpdateFleet(threeBackends())

	lb.IncrementConnections("does-not-exist")
	lb.DecrementConnections("does-not-exist")
}

func TestLoadBalancer_ConcurrentSelectAndAccounting(t *testing.T) {
	lb := New()
	lb.UpdateFleet(threeBackends())
	lb.SetStrategy(config.LeastConnections)

	var g errgroup.Group
	for i := 0; i < 100; i++ {
		g.Go(func() error {
			b := lb.Select()
			if b == nil {
				return fmt.Errorf("Select() returned nil against a non-empty fleet")
			}
			lb.IncrementConnections(b.ID)
			lb.DecrementConnections(b.ID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}
