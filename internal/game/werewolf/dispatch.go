package werewolf

import "sync"

// batch is the effects of one locked section. finished marks the batch that
// moved the game into a terminal phase.
type batch struct {
	effects  []effect
	finished bool
}

// dispatcher delivers batches on its own goroutine in the order they were
// pushed, so transitions never wait on Telegram or the database.
type dispatcher struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []batch
	queued  uint64
	done    uint64
	closed  bool
}

func newDispatcher() *dispatcher {
	d := &dispatcher{}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// push enqueues b. Batches pushed after close are dropped.
func (d *dispatcher) push(b batch) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	d.pending = append(d.pending, b)
	d.queued++
	d.cond.Broadcast()
	return true
}

// run delivers batches until the dispatcher is closed and drained.
func (d *dispatcher) run(deliver func(batch)) {
	for {
		d.mu.Lock()
		for len(d.pending) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.pending) == 0 {
			d.mu.Unlock()
			return
		}
		b := d.pending[0]
		d.pending[0] = batch{}
		d.pending = d.pending[1:]
		d.mu.Unlock()

		deliver(b)

		d.mu.Lock()
		d.done++
		d.cond.Broadcast()
		d.mu.Unlock()
	}
}

// flush blocks until every batch pushed so far has been delivered. It must
// not be called from deliver.
func (d *dispatcher) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	target := d.queued
	for d.done < target {
		d.cond.Wait()
	}
}

// close stops accepting batches; run returns once the queue is drained.
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()
}
