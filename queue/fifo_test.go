package queue

import "testing"

func TestFIFOOrder(t *testing.T) {
	q := NewFIFO[int]("order", UnlimitedCapacity, nil, Hooks[int]{})
	for i := 0; i < 5; i++ {
		if err := q.Enqueue(i, 0); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if head, ok := q.Peek(); !ok || head != 0 {
		t.Fatalf("peek: got %d ok=%v", head, ok)
	}
	for i := 0; i < 5; i++ {
		item, ok := q.PopFront(0)
		if !ok || item != i {
			t.Fatalf("pop %d: got %d ok=%v", i, item, ok)
		}
	}
	if _, ok := q.PopFront(0); ok {
		t.Fatalf("pop from empty queue must fail")
	}
}

func TestFIFOCapacity(t *testing.T) {
	q := NewFIFO[string]("bounded", 2, nil, Hooks[string]{})
	if !q.CanAccept(2) || q.CanAccept(3) {
		t.Fatalf("CanAccept wrong for empty bounded queue")
	}
	if err := q.Enqueue("a", 0); err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	if err := q.Enqueue("b", 0); err != nil {
		t.Fatalf("enqueue b: %v", err)
	}
	if err := q.Enqueue("c", 0); err == nil {
		t.Fatalf("enqueue beyond capacity must fail")
	}
	if q.Len() != 2 || q.Capacity() != 2 {
		t.Fatalf("bookkeeping wrong: len=%d cap=%d", q.Len(), q.Capacity())
	}
}

func TestFIFOHooksAndTracking(t *testing.T) {
	var enq, deq []int
	var lengths []int
	q := NewFIFO[int]("tracked", UnlimitedCapacity,
		func(length, capacity int) { lengths = append(lengths, length) },
		Hooks[int]{
			OnEnqueue: func(item, cycle int) { enq = append(enq, item) },
			OnDequeue: func(item, cycle int) { deq = append(deq, item) },
		})

	for i := 1; i <= 3; i++ {
		if err := q.Enqueue(i, i); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	q.PopFront(4)

	if len(enq) != 3 || len(deq) != 1 || deq[0] != 1 {
		t.Fatalf("hooks missed events: enq=%v deq=%v", enq, deq)
	}
	if q.MaxDepth() != 3 {
		t.Fatalf("max depth: got %d, want 3", q.MaxDepth())
	}
	if lengths[len(lengths)-1] != 2 {
		t.Fatalf("mutate callback out of date: %v", lengths)
	}
}

func TestFIFODrain(t *testing.T) {
	q := NewFIFO[int]("drain", UnlimitedCapacity, nil, Hooks[int]{})
	for i := 0; i < 4; i++ {
		if err := q.Enqueue(i, 0); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	drained := q.Drain(0)
	if len(drained) != 4 || q.Len() != 0 {
		t.Fatalf("drain left %d items, returned %v", q.Len(), drained)
	}
	for i, item := range drained {
		if item != i {
			t.Fatalf("drain order wrong: %v", drained)
		}
	}
	if q.Drain(0) != nil {
		t.Fatalf("draining empty queue must return nil")
	}
}
