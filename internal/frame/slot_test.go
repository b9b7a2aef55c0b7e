package frame

import (
	"sync"
	"testing"
	"time"
)

func TestSlotPublishAdvancesSequence(t *testing.T) {
	s := NewSlot(30)

	s.Publish(Frame{Payload: []byte{0xFF, 0xD8, 0xFF, 0xD9}, Size: 4})
	fr, ok := s.Snapshot()
	if !ok {
		t.Fatal("expected a frame after publish")
	}
	if fr.Sequence != 1 {
		t.Fatalf("sequence = %d, want 1", fr.Sequence)
	}

	s.Publish(Frame{Payload: []byte{0xFF, 0xD8, 0xFF, 0xD9}, Size: 4})
	fr, _ = s.Snapshot()
	if fr.Sequence != 2 {
		t.Fatalf("sequence = %d, want 2", fr.Sequence)
	}
}

func TestSlotSnapshotEmpty(t *testing.T) {
	s := NewSlot(30)
	if _, ok := s.Snapshot(); ok {
		t.Fatal("expected no frame before first publish")
	}
}

func TestSlotWaitFreshDeliversExactlyOnce(t *testing.T) {
	s := NewSlot(30)
	last := NeverSeen()

	done := make(chan uint32, 1)
	go func() {
		fr, _, kind := s.WaitFresh(last, time.Second)
		if kind != OK {
			t.Errorf("unexpected kind %v", kind)
		}
		done <- fr.Sequence
	}()

	time.Sleep(10 * time.Millisecond)
	s.Publish(Frame{Payload: []byte{1}, Size: 1})

	select {
	case seq := <-done:
		if seq != 1 {
			t.Fatalf("seq = %d, want 1", seq)
		}
	case <-time.After(time.Second):
		t.Fatal("wait_fresh never returned")
	}
}

func TestSlotWaitFreshTimesOutWithoutPublish(t *testing.T) {
	s := NewSlot(30)
	_, _, kind := s.WaitFresh(NeverSeen(), 50*time.Millisecond)
	if kind != Timeout {
		t.Fatalf("kind = %v, want Timeout", kind)
	}
}

func TestSlotWaitFreshSkipsIntermediateFrames(t *testing.T) {
	s := NewSlot(30)
	s.Publish(Frame{Payload: []byte{1}, Size: 1})
	s.Publish(Frame{Payload: []byte{2}, Size: 1})
	s.Publish(Frame{Payload: []byte{3}, Size: 1})

	fr, _, kind := s.WaitFresh(NeverSeen(), time.Second)
	if kind != OK {
		t.Fatalf("kind = %v, want OK", kind)
	}
	if fr.Sequence != 3 {
		t.Fatalf("sequence = %d, want 3 (only the newest)", fr.Sequence)
	}
}

func TestSlotWaitFreshShutdownWakesAllWaiters(t *testing.T) {
	s := NewSlot(30)
	const waiters = 5
	var wg sync.WaitGroup
	results := make([]ErrKind, waiters)

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, kind := s.WaitFresh(NeverSeen(), 5*time.Second)
			results[i] = kind
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	s.Shutdown()
	wg.Wait()

	for i, kind := range results {
		if kind != Shutdown {
			t.Errorf("waiter %d: kind = %v, want Shutdown", i, kind)
		}
	}
}

func TestSlotMonotoneSequenceAcrossConsumers(t *testing.T) {
	// I1: every consumer observes a strictly increasing sequence of frames.
	s := NewSlot(30)
	last := NeverSeen()
	var seen []uint32

	for i := 0; i < 5; i++ {
		s.Publish(Frame{Payload: []byte{byte(i)}, Size: 1})
		fr, seq, kind := s.WaitFresh(last, time.Second)
		if kind != OK {
			t.Fatalf("iteration %d: kind = %v", i, kind)
		}
		seen = append(seen, fr.Sequence)
		last = seq
	}

	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Fatalf("sequence not strictly increasing: %v", seen)
		}
	}
}
