// Package scheduler drives simulation ticks at a fixed rate.
//
// All ticks and housekeeping timers run on the scheduler goroutine, which is the simulation goroutine.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/xiaonanln/goTimer"
	"github.com/xiaonanln/gwsim/engine/consts"
	"github.com/xiaonanln/gwsim/engine/gwlog"
	"github.com/xiaonanln/gwsim/engine/gwutils"
	"github.com/xiaonanln/gwsim/engine/statsd"
)

// State is the run state of a Scheduler
type State int

const (
	// Idle means the scheduler is not started yet
	Idle State = iota
	// Running means ticks are firing
	Running
	// Paused means no ticks fire until Resume
	Paused
	// Stopped means the scheduler is stopping or stopped, it can not be restarted
	Stopped
)

var stateNames = [...]string{"idle", "running", "paused", "stopped"}

func (s State) String() string {
	if s >= Idle && s <= Stopped {
		return stateNames[s]
	}
	return fmt.Sprintf("State<%d>", int(s))
}

// TickFunc runs one tick. dt is always the configured tick interval.
type TickFunc func(tick uint64, dt time.Duration)

// OverrunEvent reports a tick that took longer than its budget
type OverrunEvent struct {
	// Tick is the overrunning tick
	Tick    uint64
	Elapsed time.Duration
	Budget  time.Duration
	// Backlog is the number of tick deadlines missed because of the overrun
	Backlog int
	// Absorbed is the number of catch-up ticks run back-to-back
	Absorbed int
	// Dropped is the number of missed ticks that were skipped
	Dropped int
}

func (ev OverrunEvent) String() string {
	return fmt.Sprintf("tick %d took %s > %s: backlog=%d, absorbed=%d, dropped=%d",
		ev.Tick, ev.Elapsed, ev.Budget, ev.Backlog, ev.Absorbed, ev.Dropped)
}

// Config is the configuration of a Scheduler
type Config struct {
	// Interval is the target duration of one tick
	Interval time.Duration
	// BacklogLimit is the max number of overdue ticks run back-to-back after an overrun
	BacklogLimit int
	// Clock is the time source, default to the wall clock
	Clock Clock
	// OnOverrun is called on the scheduler goroutine after an overrun is handled
	OnOverrun func(ev OverrunEvent)
}

// Scheduler fires ticks at a fixed rate
type Scheduler struct {
	cfg      Config
	tickFunc TickFunc

	lock   sync.Mutex
	cond   *sync.Cond
	state  State
	inTick bool
	epoch  int // increased on every resume to re-anchor the schedule

	stopping   xnsyncutil.AtomicBool
	terminated *xnsyncutil.OneTimeCond
	wake       chan struct{}

	timers map[*timer.Timer]struct{}

	tickCount uint64
	overruns  uint64
	dropped   uint64
}

// New creates a Scheduler calling tickFunc on every tick
func New(cfg Config, tickFunc TickFunc) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = consts.DEFAULT_TICK_INTERVAL
	}
	if cfg.BacklogLimit < 0 {
		cfg.BacklogLimit = 0
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	s := &Scheduler{
		cfg:        cfg,
		tickFunc:   tickFunc,
		terminated: xnsyncutil.NewOneTimeCond(),
		wake:       make(chan struct{}, 1),
		timers:     map[*timer.Timer]struct{}{},
	}
	s.cond = sync.NewCond(&s.lock)
	return s
}

// Interval returns the tick interval
func (s *Scheduler) Interval() time.Duration {
	return s.cfg.Interval
}

// State returns the current state
func (s *Scheduler) State() State {
	s.lock.Lock()
	st := s.state
	s.lock.Unlock()
	return st
}

// TickCount returns the number of ticks run
func (s *Scheduler) TickCount() uint64 {
	s.lock.Lock()
	n := s.tickCount
	s.lock.Unlock()
	return n
}

// Overruns returns the number of overrun events and dropped ticks
func (s *Scheduler) Overruns() (events uint64, dropped uint64) {
	s.lock.Lock()
	events, dropped = s.overruns, s.dropped
	s.lock.Unlock()
	return
}

// Start starts the scheduler goroutine
func (s *Scheduler) Start() error {
	s.lock.Lock()
	if s.state != Idle {
		st := s.state
		s.lock.Unlock()
		return errors.Errorf("scheduler start: state is %s", st)
	}
	s.state = Running
	s.lock.Unlock()

	gwlog.Infof("scheduler: started, interval=%s, backlog limit=%d", s.cfg.Interval, s.cfg.BacklogLimit)
	go s.loop()
	return nil
}

// Pause stops firing ticks after the in-flight tick completes
//
// Pause, Resume and Stop must not be called from the tick function.
func (s *Scheduler) Pause() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.state != Running {
		return errors.Errorf("scheduler pause: state is %s", s.state)
	}
	s.state = Paused
	s.notify()
	for s.inTick {
		s.cond.Wait()
	}
	gwlog.Infof("scheduler: paused at tick %d", s.tickCount)
	return nil
}

// Resume continues firing ticks, the schedule restarts from now
func (s *Scheduler) Resume() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.state != Paused {
		return errors.Errorf("scheduler resume: state is %s", s.state)
	}
	s.state = Running
	s.epoch += 1
	s.cond.Broadcast()
	gwlog.Infof("scheduler: resumed at tick %d", s.tickCount)
	return nil
}

// RequestStop asks the scheduler to stop at the next tick boundary without waiting. It can be called from any goroutine.
func (s *Scheduler) RequestStop() {
	s.lock.Lock()
	if s.state == Stopped {
		s.lock.Unlock()
		return
	}
	started := s.state != Idle
	s.state = Stopped
	s.stopping.Store(true)
	s.cond.Broadcast()
	s.notify()
	s.lock.Unlock()

	if !started {
		s.terminated.Signal()
	}
}

// Wait blocks until the scheduler goroutine exits
func (s *Scheduler) Wait() {
	s.terminated.Wait()
}

// Stop stops the scheduler after the in-flight tick completes and waits for it to exit
func (s *Scheduler) Stop() {
	s.RequestStop()
	s.Wait()
}

// AddTimer adds a repeating housekeeping timer fired at tick boundaries
//
// Timers must be added before Start or from the scheduler goroutine. They are cancelled when the scheduler stops.
func (s *Scheduler) AddTimer(d time.Duration, cb timer.CallbackFunc) *timer.Timer {
	t := timer.AddTimer(d, cb)
	s.timers[t] = struct{}{}
	return t
}

// AddCallback adds a one-shot housekeeping callback fired at a tick boundary after d
func (s *Scheduler) AddCallback(d time.Duration, cb timer.CallbackFunc) *timer.Timer {
	var t *timer.Timer
	t = timer.AddCallback(d, func() {
		delete(s.timers, t)
		cb()
	})
	s.timers[t] = struct{}{}
	return t
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// waitRunnable blocks while paused. It returns false when stopping.
func (s *Scheduler) waitRunnable() (epoch int, ok bool) {
	s.lock.Lock()
	for s.state == Paused {
		s.cond.Wait()
	}
	epoch, ok = s.epoch, s.state == Running
	s.lock.Unlock()
	return
}

func (s *Scheduler) loop() {
	defer s.exit()

	interval := s.cfg.Interval
	clock := s.cfg.Clock
	epoch, _ := s.waitRunnable()
	next := clock.Now().Add(interval)

	for !s.stopping.Load() {
		curEpoch, ok := s.waitRunnable()
		if !ok {
			return
		}
		if curEpoch != epoch {
			epoch = curEpoch
			next = clock.Now().Add(interval)
		}

		now := clock.Now()
		if now.Before(next) {
			select {
			case <-clock.After(next.Sub(now)):
			case <-s.wake:
			}
			continue
		}

		start := now
		tick, ok := s.runTick()
		if !ok {
			return
		}
		end := clock.Now()
		elapsed := end.Sub(start)
		next = next.Add(interval)

		if elapsed > interval {
			s.handleOverrun(tick, elapsed, end.Sub(next))
			next = clock.Now().Add(interval)
		}
	}
}

// handleOverrun runs up to BacklogLimit catch-up ticks for the missed deadlines and drops the rest
func (s *Scheduler) handleOverrun(tick uint64, elapsed time.Duration, late time.Duration) {
	interval := s.cfg.Interval
	backlog := 0
	if late > 0 {
		backlog = int((late + interval - 1) / interval)
	}
	absorbed := 0
	for absorbed < backlog && absorbed < s.cfg.BacklogLimit {
		if _, ok := s.runTick(); !ok {
			break
		}
		absorbed += 1
	}

	ev := OverrunEvent{
		Tick:     tick,
		Elapsed:  elapsed,
		Budget:   interval,
		Backlog:  backlog,
		Absorbed: absorbed,
		Dropped:  backlog - absorbed,
	}
	s.lock.Lock()
	s.overruns += 1
	s.dropped += uint64(ev.Dropped)
	s.lock.Unlock()

	gwlog.Warnf("scheduler: %s", ev)
	statsd.Incr("tick.overrun")
	if ev.Dropped > 0 {
		statsd.Count("tick.dropped", int64(ev.Dropped))
	}
	if s.cfg.OnOverrun != nil {
		gwutils.RunPanicless(func() {
			s.cfg.OnOverrun(ev)
		})
	}
}

// runTick runs one tick and the due housekeeping timers. It returns false if the scheduler is no longer running.
func (s *Scheduler) runTick() (uint64, bool) {
	s.lock.Lock()
	if s.state != Running {
		s.lock.Unlock()
		return 0, false
	}
	s.inTick = true
	s.tickCount += 1
	tick := s.tickCount
	s.lock.Unlock()

	start := time.Now()
	gwutils.RunPanicless(func() {
		s.tickFunc(tick, s.cfg.Interval)
	})
	timer.Tick()
	statsd.EmitTickStat(start, "total")
	if consts.DEBUG_TICKS {
		gwlog.Debugf("scheduler: tick %d done in %s", tick, time.Since(start))
	}

	s.lock.Lock()
	s.inTick = false
	s.cond.Broadcast()
	s.lock.Unlock()
	return tick, true
}

func (s *Scheduler) exit() {
	for t := range s.timers {
		t.Cancel()
	}
	s.timers = map[*timer.Timer]struct{}{}

	s.lock.Lock()
	s.state = Stopped
	ticks := s.tickCount
	s.cond.Broadcast()
	s.lock.Unlock()

	gwlog.Infof("scheduler: stopped after %d ticks", ticks)
	s.terminated.Signal()
}
