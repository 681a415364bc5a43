package intent

import (
	"sync"

	"github.com/xiaonanln/gwsim/engine/consts"
	"github.com/xiaonanln/gwsim/engine/gwlog"
)

// Queue is the intent queue of one instance
//
// Push might be called from other goroutines, so the intents are protected by a lock
type Queue struct {
	lock    sync.Mutex
	intents []Intent
	warned  bool
}

// Push appends an intent to the queue and returns the queue length
func (q *Queue) Push(it Intent) int {
	q.lock.Lock()
	q.intents = append(q.intents, it)
	n := len(q.intents)
	warn := n >= consts.INSTANCE_INTENT_QUEUE_WARN_SIZE && !q.warned
	if warn {
		q.warned = true
	}
	q.lock.Unlock()

	if warn {
		gwlog.Warnf("intent queue is too long: %d", n)
	}
	return n
}

// Drain removes and returns all queued intents in push order
func (q *Queue) Drain() []Intent {
	q.lock.Lock()
	if len(q.intents) == 0 {
		q.lock.Unlock()
		return nil
	}
	// switch intents in locked section
	intents := q.intents
	q.intents = make([]Intent, 0, len(intents))
	q.warned = false
	q.lock.Unlock()
	return intents
}

// Len returns the number of queued intents
func (q *Queue) Len() int {
	q.lock.Lock()
	n := len(q.intents)
	q.lock.Unlock()
	return n
}
