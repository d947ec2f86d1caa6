package source

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/emirpasic/gods/queues/circularbuffer"
)

// DefaultQueueSize bounds the Poller queue when no size is given.
const DefaultQueueSize = 8192

// Poller drains a Source into a bounded FIFO. It is safe for one goroutine
// to Poll while another calls Get. When the queue is full the oldest
// packet is dropped.
type Poller struct {
	mu      sync.Mutex
	src     Source
	queue   *circularbuffer.Queue
	size    int
	dropped uint64
	polled  uint64
}

// NewPoller returns a Poller whose queue holds at most size packets.
func NewPoller(size int) *Poller {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Poller{queue: circularbuffer.New(size), size: size}
}

// SetSource replaces the polled source and clears the queue.
func (p *Poller) SetSource(src Source) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.src = src
	p.queue.Clear()
}

// Start starts the current source.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	src := p.src
	p.mu.Unlock()
	if src == nil {
		return errors.New("poller has no source")
	}
	return src.Start(ctx)
}

// Poll moves the packets the source has ready into the queue, at most one
// queue's worth per call, and returns how many were moved.
func (p *Poller) Poll() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.src == nil {
		return 0, errors.New("poller has no source")
	}

	n := 0
	for n < p.size && p.src.HasNext() {
		pkt, err := p.src.Next()
		if errors.Is(err, ErrNoData) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("poll: %w", err)
		}
		if p.queue.Full() {
			p.queue.Dequeue()
			p.dropped++
		}
		p.queue.Enqueue(pkt)
		n++
	}
	p.polled += uint64(n)
	return n, nil
}

// Run polls every interval until the source is exhausted or ctx ends.
func (p *Poller) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := p.Poll(); err != nil {
			return err
		}
		if p.sourceDone() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// HasData reports whether Get would return a packet.
func (p *Poller) HasData() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.queue.Empty()
}

// Get removes and returns the oldest queued packet.
func (p *Poller) Get() (Packet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.queue.Dequeue()
	if !ok {
		return Packet{}, ErrNoData
	}
	return v.(Packet), nil
}

// Done reports that the source is exhausted and the queue is empty.
func (p *Poller) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.src != nil && p.src.Done() && p.queue.Empty()
}

func (p *Poller) sourceDone() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.src.Done()
}

// Len returns the number of queued packets.
func (p *Poller) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Size()
}

// Dropped returns how many packets were discarded on overflow.
func (p *Poller) Dropped() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Polled returns how many packets have been taken from the source.
func (p *Poller) Polled() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polled
}

// Close closes the source.
func (p *Poller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.src == nil {
		return nil
	}
	return p.src.Close()
}
