package taskqueue

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestQueue_SendRecvOrder(t *testing.T) {
	tx, rx := New[string]()

	for _, v := range []string{"1", "2", "3"} {
		if err := tx.Send(v); err != nil {
			t.Fatalf("Send %s failed: %v", v, err)
		}
	}

	if rx.Len() != 3 {
		t.Fatalf("expected Len 3, got %d", rx.Len())
	}

	for _, want := range []string{"1", "2", "3"} {
		got, err := rx.Recv()
		if err != nil {
			t.Fatalf("Recv failed: %v", err)
		}
		if got != want {
			t.Fatalf("unexpected order: got %q want %q", got, want)
		}
	}

	if rx.Len() != 0 {
		t.Fatalf("expected Len 0 after draining, got %d", rx.Len())
	}
}

func TestQueue_RecvBlocksUntilSend(t *testing.T) {
	tx, rx := New[int]()

	got := make(chan int, 1)
	go func() {
		v, err := rx.Recv()
		if err != nil {
			t.Errorf("Recv failed: %v", err)
			return
		}
		got <- v
	}()

	select {
	case v := <-got:
		t.Fatalf("Recv returned %d before anything was sent", v)
	case <-time.After(30 * time.Millisecond):
	}

	if err := tx.Send(7); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case v := <-got:
		if v != 7 {
			t.Fatalf("expected 7, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatalf("Recv did not wake up after Send")
	}
}

func TestQueue_DisconnectedOnlyAfterAllSendersClosedAndDrained(t *testing.T) {
	tx, rx := New[int]()
	clone := tx.Clone()

	if err := clone.Send(1); err != nil {
		t.Fatalf("Send on clone failed: %v", err)
	}
	tx.Close()
	clone.Close()
	clone.Close() // idempotent

	v, err := rx.Recv()
	if err != nil || v != 1 {
		t.Fatalf("expected buffered item 1, got %d err=%v", v, err)
	}

	if _, err := rx.Recv(); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected, got %v", err)
	}

	if err := tx.Send(2); !errors.Is(err, ErrSenderClosed) {
		t.Fatalf("expected ErrSenderClosed, got %v", err)
	}
}

func TestQueue_SendAfterReceiverClosed(t *testing.T) {
	tx, rx := New[int]()
	rx.Close()

	if err := tx.Send(1); !errors.Is(err, ErrReceiverClosed) {
		t.Fatalf("expected ErrReceiverClosed, got %v", err)
	}
	if _, ok := rx.TryRecv(); ok {
		t.Fatalf("expected empty queue")
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	tx, rx := New[int]()

	const producers = 8
	const perProducer = 250

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		s := tx.Clone()
		go func(p int) {
			defer wg.Done()
			defer s.Close()
			for i := 0; i < perProducer; i++ {
				_ = s.Send(p*perProducer + i)
			}
		}(p)
	}
	wg.Wait()
	tx.Close()

	seen := make(map[int]bool, producers*perProducer)
	for {
		v, err := rx.Recv()
		if errors.Is(err, ErrDisconnected) {
			break
		}
		if err != nil {
			t.Fatalf("Recv failed: %v", err)
		}
		if seen[v] {
			t.Fatalf("item %d delivered twice", v)
		}
		seen[v] = true
	}
	if len(seen) != producers*perProducer {
		t.Fatalf("expected %d items, got %d", producers*perProducer, len(seen))
	}
}
