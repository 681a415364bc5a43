package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/xiaonanln/gwsim/engine/common"
)

func TestBridgePublishOrder(t *testing.T) {
	b := NewBridge()
	_, ok := b.Latest()
	assert.T(t, !ok)

	assert.Equal(t, nil, b.Publish(&Frame{Sequence: 1}))
	assert.Equal(t, nil, b.Publish(&Frame{Sequence: 3}))
	assert.NotEqual(t, nil, b.Publish(&Frame{Sequence: 3}))
	assert.NotEqual(t, nil, b.Publish(&Frame{Sequence: 2}))
	assert.NotEqual(t, nil, b.Publish(nil))

	f, ok := b.Latest()
	assert.T(t, ok)
	assert.Equal(t, uint64(3), f.Sequence)
	assert.Equal(t, uint64(2), b.Published())
}

func TestBridgeSubscribe(t *testing.T) {
	b := NewBridge()
	ch := b.Subscribe()
	assert.Equal(t, 1, b.Subscribers())

	// publishing never blocks on a slow subscriber
	for i := 1; i <= 5; i++ {
		assert.Equal(t, nil, b.Publish(&Frame{Sequence: uint64(i)}))
	}
	<-ch
	select {
	case <-ch:
		t.Fatalf("notifications should coalesce")
	default:
	}
	f, _ := b.Latest()
	assert.Equal(t, uint64(5), f.Sequence)

	b.Unsubscribe(ch)
	assert.Equal(t, 0, b.Subscribers())
	assert.Equal(t, nil, b.Publish(&Frame{Sequence: 6}))
	select {
	case <-ch:
		t.Fatalf("unsubscribed channel should not be notified")
	default:
	}
}

func TestBridgeConcurrentReaders(t *testing.T) {
	b := NewBridge()
	const frames = 1000

	var wait sync.WaitGroup
	for r := 0; r < 4; r++ {
		wait.Add(1)
		go func() {
			defer wait.Done()
			ch := b.Subscribe()
			defer b.Unsubscribe(ch)
			var last uint64
			for last < frames {
				select {
				case <-ch:
				case <-time.After(10 * time.Millisecond):
				}
				if f, ok := b.Latest(); ok {
					if f.Sequence < last {
						t.Errorf("frame sequence went back: %d < %d", f.Sequence, last)
						return
					}
					last = f.Sequence
				}
			}
		}()
	}

	for i := 1; i <= frames; i++ {
		b.Publish(&Frame{Sequence: uint64(i), CapturedAt: time.Now()})
	}
	wait.Wait()
}

func TestFrameMsgpack(t *testing.T) {
	f := &Frame{
		Sequence:     7,
		TickDuration: time.Millisecond,
		Instances: []InstanceSnapshot{{
			ID:          1,
			Tick:        7,
			EntityCount: 1,
			Entities:    []EntitySnapshot{{ID: 10, Type: "zombie", Position: common.Vector3{X: 1, Y: 2, Z: 3}}},
		}},
	}
	data, err := EncodeMsgpack(f)
	assert.Equal(t, nil, err)
	decoded, err := DecodeMsgpack(data)
	assert.Equal(t, nil, err)
	assert.Equal(t, uint64(7), decoded.Sequence)
	inst, ok := decoded.Instance(1)
	assert.T(t, ok)
	assert.Equal(t, "zombie", inst.Entities[0].Type)
	assert.Equal(t, common.Vector3{X: 1, Y: 2, Z: 3}, inst.Entities[0].Position)
	assert.Equal(t, 1, decoded.EntityCount())
}
