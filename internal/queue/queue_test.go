package queue

import (
	"sync"
	"testing"
)

type note struct {
	Seq  int
	Kind string
}

func TestQueue_New(t *testing.T) {
	q := New[note](0)
	if !q.Empty() || q.Len() != 0 {
		t.Fatalf("expected empty queue, got len %d", q.Len())
	}
	if q.Limit() != 0 {
		t.Errorf("expected unbounded queue, got limit %d", q.Limit())
	}
	if _, ok := q.Pop(); ok {
		t.Error("expected pop from empty queue to fail")
	}
}

func TestQueue_FIFOAcrossWrap(t *testing.T) {
	q := New[note](0)
	next, want := 0, 0

	// Interleave pushes and pops so head walks around the ring and the
	// buffer grows while wrapped.
	for round := range 6 {
		for range 5 + round*4 {
			q.Push(note{Seq: next, Kind: "connected"})
			next++
		}
		for range 3 {
			got, ok := q.Pop()
			if !ok || got.Seq != want {
				t.Fatalf("round %d: expected seq %d, got %+v (ok=%v)", round, want, got, ok)
			}
			want++
		}
	}

	for _, got := range q.Drain() {
		if got.Seq != want {
			t.Fatalf("drain: expected seq %d, got %d", want, got.Seq)
		}
		want++
	}
	if want != next {
		t.Errorf("expected %d items overall, saw %d", next, want)
	}
}

func TestQueue_LimitCountsDrops(t *testing.T) {
	q := New[int](2)

	if !q.Push(1) || !q.Push(2) {
		t.Fatal("expected pushes under the limit to succeed")
	}
	if q.Push(3) || q.Push(4) {
		t.Error("expected pushes over the limit to fail")
	}
	if q.Dropped() != 2 {
		t.Errorf("expected 2 drops, got %d", q.Dropped())
	}

	q.Pop()
	if !q.Push(5) {
		t.Error("expected push to succeed after pop freed a slot")
	}
	items := q.Drain()
	if len(items) != 2 || items[0] != 2 || items[1] != 5 {
		t.Errorf("expected [2 5], got %v", items)
	}
}

func TestQueue_LimitAboveInitialCapacity(t *testing.T) {
	q := New[int](40)
	for i := range 50 {
		q.Push(i)
	}
	if q.Len() != 40 || q.Dropped() != 10 {
		t.Errorf("expected len 40 and 10 drops, got len %d and %d drops", q.Len(), q.Dropped())
	}
}

func TestQueue_DrainOwnsSlice(t *testing.T) {
	q := New[int](0)
	for i := range 5 {
		q.Push(i)
	}

	items := q.Drain()
	if !q.Empty() {
		t.Error("expected empty queue after drain")
	}
	q.Push(42)
	if items[0] != 0 {
		t.Error("drained slice must not be reused by later pushes")
	}
	if items := q.Drain(); len(items) != 1 || items[0] != 42 {
		t.Errorf("expected [42], got %v", items)
	}
	if items := q.Drain(); len(items) != 0 {
		t.Errorf("expected no items, got %v", items)
	}
}

func TestQueue_ConcurrentPushWithLimit(t *testing.T) {
	q := New[int](50)
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0

	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 20 {
				if q.Push(i) {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if accepted != 50 || q.Len() != 50 || q.Dropped() != 150 {
		t.Errorf("expected 50 accepted and 150 dropped, got accepted=%d len=%d dropped=%d",
			accepted, q.Len(), q.Dropped())
	}
}
