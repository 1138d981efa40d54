package fsmrt

import (
	"testing"
	"time"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	q.Enqueue(EventID("a"))
	q.Enqueue(EventID("b"))
	q.Enqueue(EventID("c"))

	for _, want := range []EventID{"a", "b", "c"} {
		if got := q.Dequeue(); got != want {
			t.Fatalf("Dequeue() = %q, want %q", got, want)
		}
	}
}

func TestQueueLength(t *testing.T) {
	q := NewQueue()
	if n := q.Length(); n != 0 {
		t.Fatalf("Length() = %d, want 0", n)
	}
	q.Enqueue(EventID("x"))
	q.Enqueue(EventID("y"))
	if n := q.Length(); n != 2 {
		t.Fatalf("Length() = %d, want 2", n)
	}
	q.Dequeue()
	if n := q.Length(); n != 1 {
		t.Fatalf("Length() = %d, want 1", n)
	}
}

// TestQueueDequeueBlocksUntilEnqueue exercises the mutex+condvar blocking
// contract: a Dequeue call on an empty queue must not return until another
// goroutine enqueues, mirroring the source's evtq_dequeue pthread_cond_wait
// loop.
func TestQueueDequeueBlocksUntilEnqueue(t *testing.T) {
	q := NewQueue()
	done := make(chan EventID, 1)

	go func() {
		done <- q.Dequeue()
	}()

	select {
	case id := <-done:
		t.Fatalf("Dequeue returned early with %q before any Enqueue", id)
	case <-time.After(50 * time.Millisecond):
	}

	q.Enqueue(EventID("late"))

	select {
	case id := <-done:
		if id != "late" {
			t.Fatalf("Dequeue() = %q, want %q", id, "late")
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue never woke up after Enqueue")
	}
}

// TestQueueCloseUnblocksDequeue exercises Close as the shutdown signal: a
// blocked Dequeue must return the zero EventID rather than hang forever
// once the queue is destroyed.
func TestQueueCloseUnblocksDequeue(t *testing.T) {
	q := NewQueue()
	done := make(chan EventID, 1)

	go func() {
		done <- q.Dequeue()
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case id := <-done:
		if id != "" {
			t.Fatalf("Dequeue() after Close = %q, want empty", id)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue never woke up after Close")
	}
}
