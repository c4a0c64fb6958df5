package notification

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestDispatcher_DeliversAndDrainsOnClose(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 8, nil)

	for i := int64(1); i <= 3; i++ {
		if err := d.Enqueue(context.Background(), Message{Kind: KindConfirmation, AccountID: i}); err != nil {
			t.Fatalf("Enqueue(%d) error = %v", i, err)
		}
	}
	d.Close()

	got := sender.messages()
	if len(got) != 3 {
		t.Fatalf("sent %d messages, want 3", len(got))
	}
	for i, msg := range got {
		if msg.AccountID != int64(i+1) {
			t.Errorf("message %d AccountID = %d, want %d", i, msg.AccountID, i+1)
		}
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	sender := &recordingSender{
		started: make(chan Message, 4),
		gate:    make(chan struct{}),
	}
	d := NewDispatcher(sender, 1, nil)

	// First message occupies the worker.
	if err := d.Enqueue(context.Background(), Message{AccountID: 1}); err != nil {
		t.Fatal(err)
	}
	<-sender.started

	// Second fills the buffer, third is dropped.
	if err := d.Enqueue(context.Background(), Message{AccountID: 2}); err != nil {
		t.Fatal(err)
	}
	if err := d.Enqueue(context.Background(), Message{AccountID: 3}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Enqueue() error = %v, want %v", err, ErrQueueFull)
	}
	if d.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", d.Dropped())
	}

	close(sender.gate)
	d.Close()

	if got := len(sender.messages()); got != 2 {
		t.Errorf("sent %d messages, want 2", got)
	}
}

func TestDispatcher_SendErrorsAreSwallowed(t *testing.T) {
	sender := &recordingSender{err: errSend}
	d := NewDispatcher(sender, 2, nil)

	if err := d.Enqueue(context.Background(), Message{AccountID: 1}); err != nil {
		t.Fatal(err)
	}
	d.Close()

	if got := len(sender.messages()); got != 1 {
		t.Errorf("sent %d messages, want 1", got)
	}
}

func TestDispatcher_EnqueueAfterClose(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, 1, nil)
	d.Close()
	d.Close()

	if err := d.Enqueue(context.Background(), Message{}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Enqueue() error = %v, want %v", err, ErrQueueClosed)
	}
}

func TestDispatcher_CloseDeliversEveryAcceptedMessage(t *testing.T) {
	for round := 0; round < 20; round++ {
		sender := &recordingSender{}
		d := NewDispatcher(sender, 64, nil)

		var (
			wg       sync.WaitGroup
			accepted atomic.Int64
		)
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				if err := d.Enqueue(context.Background(), Message{AccountID: id}); err == nil {
					accepted.Add(1)
				}
			}(int64(i))
		}
		d.Close()
		wg.Wait()

		if got, want := int64(len(sender.messages())), accepted.Load(); got != want {
			t.Fatalf("round %d: sent %d messages, accepted %d", round, got, want)
		}
	}
}
