package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Dispatcher forwards audit entries to a Log asynchronously so that
// request handling never blocks on the audit store. When the buffer is
// full, entries are dropped rather than queued.
type Dispatcher struct {
	log       Log
	ch        chan Entry
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher writing to log with the given buffer
// size. A nil log discards all entries.
func NewDispatcher(log Log, bufferSize int) *Dispatcher {
	if log == nil {
		log = NoOpLog{}
	}
	if bufferSize <= 0 {
		bufferSize = 1
	}

	d := &Dispatcher{
		log:  log,
		ch:   make(chan Entry, bufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case entry := <-d.ch:
			_ = d.log.Record(context.Background(), entry)
		case <-d.done:
			for {
				select {
				case entry := <-d.ch:
					_ = d.log.Record(context.Background(), entry)
				default:
					return
				}
			}
		}
	}
}

// Record implements Log. It never blocks; entries that do not fit in the
// buffer are counted as dropped.
func (d *Dispatcher) Record(_ context.Context, entry Entry) error {
	if d == nil || d.closed.Load() {
		return nil
	}

	select {
	case d.ch <- entry:
	case <-d.done:
	default:
		d.dropped.Add(1)
	}
	return nil
}

// Dropped returns the number of entries discarded because the buffer was
// full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Close stops accepting entries, drains the buffer and waits for the
// worker to exit.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}
