package notification

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Dispatcher delivers messages in-process on a single background worker.
// Enqueue never blocks: when the buffer is full the message is dropped and
// counted.
type Dispatcher struct {
	sender    Sender
	logger    *slog.Logger
	ch        chan Message
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closeOnce sync.Once

	// mu orders sends against Close so that no message is accepted after
	// the worker has drained the buffer.
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts a dispatcher with the given buffer size.
func NewDispatcher(sender Sender, bufferSize int, logger *slog.Logger) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		sender: sender,
		logger: logger,
		ch:     make(chan Message, bufferSize),
		done:   make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case msg := <-d.ch:
			d.deliver(msg)
		case <-d.done:
			for {
				select {
				case msg := <-d.ch:
					d.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(msg Message) {
	if err := d.sender.Send(context.Background(), msg); err != nil {
		d.logger.Error("failed to send notification",
			"kind", msg.Kind,
			"account_id", msg.AccountID,
			"error", err,
		)
	}
}

// Enqueue implements Sink.
func (d *Dispatcher) Enqueue(_ context.Context, msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrQueueClosed
	}

	select {
	case d.ch <- msg:
		return nil
	default:
		d.dropped.Add(1)
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits for the buffered ones to be sent.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns the number of messages rejected because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}
