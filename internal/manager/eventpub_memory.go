package manager

import "sync"

// MemoryPublisher buffers cache lifecycle events so tests can assert on
// load/evict/release sequences without wiring a logger.
type MemoryPublisher struct {
	mu  sync.Mutex
	buf []Event
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	p.buf = append(p.buf, e)
	p.mu.Unlock()
}

// Events returns a snapshot of everything published so far, in order.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.buf...)
}
