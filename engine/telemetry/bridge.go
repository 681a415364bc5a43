// Package telemetry publishes per-tick snapshots of the simulation to debug overlay consumers.
//
// The simulation goroutine publishes frames and never blocks on readers. Readers either poll
// Latest or wait on a subscription channel; frames that are not read in time are superseded.
package telemetry

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Bridge holds the latest published frame
type Bridge struct {
	latest    atomic.Value // *Frame
	published uint64

	publishLock sync.Mutex
	lastSeq     uint64

	subsLock sync.Mutex
	subs     atomic.Value // []chan struct{}
}

// NewBridge creates a Bridge without any frame
func NewBridge() *Bridge {
	b := &Bridge{}
	b.subs.Store([]chan struct{}(nil))
	return b
}

// Publish replaces the latest frame and wakes up subscribers
//
// The frame is owned by the bridge after Publish and must not be modified. Frames must be published in
// increasing sequence, an older or equal sequence is rejected.
func (b *Bridge) Publish(f *Frame) error {
	if f == nil {
		return errors.New("publish nil frame")
	}

	b.publishLock.Lock()
	if f.Sequence <= b.lastSeq {
		last := b.lastSeq
		b.publishLock.Unlock()
		return errors.Errorf("publish frame %d: not newer than %d", f.Sequence, last)
	}
	b.lastSeq = f.Sequence
	b.latest.Store(f)
	b.publishLock.Unlock()

	atomic.AddUint64(&b.published, 1)
	for _, ch := range b.subs.Load().([]chan struct{}) {
		select {
		case ch <- struct{}{}:
		default:
			// subscriber has a pending notification already
		}
	}
	return nil
}

// Latest returns the latest frame
func (b *Bridge) Latest() (*Frame, bool) {
	f, ok := b.latest.Load().(*Frame)
	return f, ok && f != nil
}

// Published returns the number of published frames
func (b *Bridge) Published() uint64 {
	return atomic.LoadUint64(&b.published)
}

// Subscribe returns a channel that receives a notification when a new frame is published
//
// Notifications coalesce: the channel holds at most one pending notification.
func (b *Bridge) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	b.subsLock.Lock()
	old := b.subs.Load().([]chan struct{})
	subs := make([]chan struct{}, len(old), len(old)+1)
	copy(subs, old)
	b.subs.Store(append(subs, ch))
	b.subsLock.Unlock()
	return ch
}

// Unsubscribe removes a channel returned by Subscribe
func (b *Bridge) Unsubscribe(ch <-chan struct{}) {
	b.subsLock.Lock()
	old := b.subs.Load().([]chan struct{})
	subs := make([]chan struct{}, 0, len(old))
	for _, c := range old {
		if (<-chan struct{})(c) != ch {
			subs = append(subs, c)
		}
	}
	b.subs.Store(subs)
	b.subsLock.Unlock()
}

// Subscribers returns the number of subscribers
func (b *Bridge) Subscribers() int {
	return len(b.subs.Load().([]chan struct{}))
}
