package registry

import (
	"fmt"
	"sync"
	"testing"
)

func TestUpsertReplacesByIdentity(t *testing.T) {
	r := New()
	r.Upsert("iphone-1", "192.168.1.10", 8080, nil)
	r.Upsert("iphone-1", "192.168.1.20", 9090, map[string]string{"model": "15pro"})

	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
	d, ok := r.Get("iphone-1")
	if !ok {
		t.Fatal("device not found after upsert")
	}
	if d.Addr != "192.168.1.20" || d.Port != 9090 {
		t.Errorf("device = %s:%d, want 192.168.1.20:9090", d.Addr, d.Port)
	}
	if d.Meta["model"] != "15pro" {
		t.Errorf("Meta[model] = %q, want %q", d.Meta["model"], "15pro")
	}
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	r := New()
	r.Remove("never-registered")
	if r.Len() != 0 {
		t.Fatalf("Len = %d, want 0", r.Len())
	}
}

func TestSnapshotSortedAndStable(t *testing.T) {
	r := New()
	r.Upsert("charlie", "10.0.0.3", 8080, nil)
	r.Upsert("alpha", "10.0.0.1", 8080, nil)
	r.Upsert("bravo", "10.0.0.2", 8080, nil)

	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot len = %d, want 3", len(snap))
	}
	want := []string{"alpha", "bravo", "charlie"}
	for i, name := range want {
		if snap[i].Name != name {
			t.Errorf("snapshot[%d] = %q, want %q", i, snap[i].Name, name)
		}
	}

	// Identical external state yields an identical snapshot.
	again := r.Snapshot()
	for i := range snap {
		if snap[i].Name != again[i].Name || snap[i].Addr != again[i].Addr {
			t.Errorf("snapshots differ at %d: %v vs %v", i, snap[i], again[i])
		}
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	r := New()
	r.Upsert("alpha", "10.0.0.1", 8080, nil)

	snap := r.Snapshot()
	r.Remove("alpha")

	if len(snap) != 1 || snap[0].Name != "alpha" {
		t.Error("snapshot mutated by later registry change")
	}
}

func TestConcurrentMutationAndIteration(t *testing.T) {
	r := New()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				name := fmt.Sprintf("cam-%d-%d", n, j%10)
				r.Upsert(name, "10.0.0.1", 8080, nil)
				r.Snapshot()
				r.Remove(name)
			}
		}(i)
	}
	wg.Wait()
}

func TestClear(t *testing.T) {
	r := New()
	r.Upsert("alpha", "10.0.0.1", 8080, nil)
	r.Upsert("bravo", "10.0.0.2", 8080, nil)
	r.Clear()
	if r.Len() != 0 {
		t.Fatalf("Len after Clear = %d, want 0", r.Len())
	}
}
