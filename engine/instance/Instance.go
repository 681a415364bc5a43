package instance

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/xiaonanln/gwsim/engine/common"
	"github.com/xiaonanln/gwsim/engine/consts"
	"github.com/xiaonanln/gwsim/engine/entity"
	"github.com/xiaonanln/gwsim/engine/gwlog"
	"github.com/xiaonanln/gwsim/engine/gwutils"
	"github.com/xiaonanln/gwsim/engine/intent"
	"github.com/xiaonanln/gwsim/engine/opmon"
	"github.com/xiaonanln/gwsim/engine/simerr"
	"github.com/xiaonanln/gwsim/engine/spatial"
	"github.com/xiaonanln/gwsim/engine/statsd"
)

// Config is the configuration of one instance
type Config struct {
	// Capacity is the max number of entities, 0 means unlimited
	Capacity int
	// CellSize is the edge length of spatial index cells
	CellSize float64
	// AOIDistance is the max neighbour distance of entities with an Interest component
	AOIDistance float64
	// VerifyInvariants checks the spatial index against the entity store after every tick
	VerifyInvariants bool
}

// DefaultConfig returns the default instance configuration
func DefaultConfig() Config {
	return Config{
		CellSize:         consts.DEFAULT_CELL_SIZE,
		AOIDistance:      consts.DEFAULT_AOI_DISTANCE,
		VerifyInvariants: true,
	}
}

func (cfg Config) validate() error {
	if cfg.Capacity < 0 {
		return errors.Errorf("negative capacity: %d", cfg.Capacity)
	}
	if cfg.CellSize <= 0 {
		return errors.Errorf("cell size must be positive: %v", cfg.CellSize)
	}
	if cfg.AOIDistance < 0 {
		return errors.Errorf("negative aoi distance: %v", cfg.AOIDistance)
	}
	return nil
}

// Instance is an isolated world that owns an entity store and a spatial index
//
// All methods except Submit, Draining and Done must be called from the simulation goroutine.
type Instance struct {
	ID  common.InstanceID
	cfg Config

	grid     *spatial.Grid
	store    *entity.Store
	interest *interestTracker
	intents  intent.Queue

	tick             uint64
	lastTickDuration time.Duration

	draining    xnsyncutil.AtomicBool
	quarantined xnsyncutil.AtomicBool
	fault       error
	released    bool
	done        chan struct{}
}

func newInstance(id common.InstanceID, cfg Config) *Instance {
	inst := &Instance{
		ID:   id,
		cfg:  cfg,
		grid: spatial.NewGrid(cfg.CellSize),
		done: make(chan struct{}),
	}
	inst.store = entity.NewStore(id, cfg.Capacity, inst.grid)
	inst.interest = newInterestTracker(cfg.AOIDistance)
	inst.store.SetOnRemove(inst.onEntityRemoved)
	return inst
}

func (inst *Instance) String() string {
	return fmt.Sprintf("Instance<%d>", inst.ID)
}

// Config returns the instance configuration
func (inst *Instance) Config() Config {
	return inst.cfg
}

// Store returns the entity store
func (inst *Instance) Store() *entity.Store {
	return inst.store
}

// Grid returns the spatial index
func (inst *Instance) Grid() *spatial.Grid {
	return inst.grid
}

// TickCount returns the number of completed ticks
func (inst *Instance) TickCount() uint64 {
	return inst.tick
}

// Draining returns if the instance is being destroyed
func (inst *Instance) Draining() bool {
	return inst.draining.Load()
}

// Quarantined returns if the instance stopped ticking after a fault
func (inst *Instance) Quarantined() bool {
	return inst.quarantined.Load()
}

// Fault returns the error that quarantined the instance
func (inst *Instance) Fault() error {
	return inst.fault
}

// Done returns a channel which is closed when the instance is released
func (inst *Instance) Done() <-chan struct{} {
	return inst.done
}

// Spawn spawns an entity in the instance
func (inst *Instance) Spawn(st entity.State) (common.EntityID, error) {
	if inst.draining.Load() {
		return 0, errors.Wrapf(simerr.ErrDraining, "%s: spawn", inst)
	}
	return inst.store.Spawn(st)
}

// Submit queues an intent to be applied at the start of the next tick. It can be called from any goroutine.
func (inst *Instance) Submit(it intent.Intent) error {
	if it.Op == intent.OpSpawn && inst.draining.Load() {
		return errors.Wrapf(simerr.ErrDraining, "%s: submit %s", inst, it)
	}
	inst.intents.Push(it)
	return nil
}

func (inst *Instance) markDraining() {
	inst.draining.Store(true)
}

func (inst *Instance) onEntityRemoved(e *entity.Entity) {
	inst.interest.leave(e.ID)
}

// Tick runs all phases of one tick
//
// Phase order: intents, movement, behaviours, interest, then the deferred despawns are applied and the
// invariants are verified. A draining instance is released at the end of the tick. An invariant violation
// or a panic quarantines the instance.
func (inst *Instance) Tick(dt time.Duration) error {
	if inst.released {
		return simerr.NotFound("%s: released", inst)
	}
	if inst.quarantined.Load() {
		if inst.draining.Load() {
			inst.release()
			return nil
		}
		return errors.Wrapf(simerr.ErrQuarantined, "%s", inst)
	}

	startTime := time.Now()
	err := gwutils.CatchPanic(func() error {
		return inst.runPhases(dt)
	})
	inst.lastTickDuration = time.Since(startTime)
	if err != nil {
		if !simerr.Is(err, simerr.ErrInvariantViolation) {
			err = simerr.InvariantViolation("%s: tick %d: %v", inst, inst.tick+1, err)
		}
		inst.quarantine(err)
		return err
	}

	inst.tick += 1
	if consts.DEBUG_TICKS {
		gwlog.Debugf("%s: tick %d done in %s, %d entities", inst, inst.tick, inst.lastTickDuration, inst.store.Len())
	}

	if inst.draining.Load() {
		inst.release()
	}
	return nil
}

func (inst *Instance) runPhases(dt time.Duration) error {
	op := opmon.StartOperation("instance.intents")
	inst.applyIntents()
	op.Finish(consts.OPMON_WARN_THRESHOLD)

	op = opmon.StartOperation("instance.movement")
	err := inst.integrate(dt)
	op.Finish(consts.OPMON_WARN_THRESHOLD)
	if err != nil {
		return err
	}

	op = opmon.StartOperation("instance.behaviours")
	err = inst.runBehaviours()
	op.Finish(consts.OPMON_WARN_THRESHOLD)
	if err != nil {
		return err
	}

	op = opmon.StartOperation("instance.interest")
	inst.updateInterest()
	op.Finish(consts.OPMON_WARN_THRESHOLD)

	if inst.cfg.VerifyInvariants {
		op = opmon.StartOperation("instance.verify")
		err = inst.Verify()
		op.Finish(consts.OPMON_WARN_THRESHOLD)
	}
	return err
}

func (inst *Instance) applyIntents() {
	for _, it := range inst.intents.Drain() {
		if consts.DEBUG_INTENTS {
			gwlog.Debugf("%s: apply intent %s", inst, it)
		}
		if err := inst.applyIntent(it); err != nil {
			// bad intents are dropped without aborting the tick
			gwlog.Warnf("%s: intent %s failed: %v", inst, it, err)
		}
	}
}

func (inst *Instance) applyIntent(it intent.Intent) error {
	switch it.Op {
	case intent.OpSpawn:
		_, err := inst.Spawn(it.State)
		return err
	case intent.OpDespawn:
		return inst.store.Despawn(it.Entity)
	case intent.OpMove:
		return inst.store.Move(it.Entity, it.Position)
	case intent.OpSetVelocity:
		return inst.store.SetVelocity(it.Entity, it.Velocity)
	case intent.OpSetComponent:
		return inst.store.SetComponent(it.Entity, it.Kind, it.Data)
	default:
		return errors.Errorf("unknown intent op: %s", it.Op)
	}
}

func (inst *Instance) integrate(dt time.Duration) error {
	seconds := dt.Seconds()
	var err error
	inst.store.ForEach(func(e *entity.Entity) bool {
		vel := e.Velocity()
		if vel.IsZero() {
			return true
		}
		if err = inst.store.Move(e.ID, e.Position().Add(vel.Mul(seconds))); err != nil {
			err = simerr.InvariantViolation("%s: move %s: %v", inst, e, err)
			return false
		}
		return true
	})
	return err
}

// Verify checks that the entity store and the spatial index agree
func (inst *Instance) Verify() error {
	if err := inst.grid.Verify(); err != nil {
		return errors.Wrapf(err, "%s", inst)
	}
	if inst.grid.Len() != inst.store.Len() {
		return simerr.InvariantViolation("%s: %d entities but %d indexed", inst, inst.store.Len(), inst.grid.Len())
	}
	var err error
	inst.store.ForEach(func(e *entity.Entity) bool {
		pos, cell, ok := inst.grid.Lookup(e.ID)
		if !ok {
			err = simerr.InvariantViolation("%s: %s is not indexed", inst, e)
		} else if pos != e.Position() {
			err = simerr.InvariantViolation("%s: %s is at %s but indexed at %s", inst, e, e.Position(), pos)
		} else if derived := inst.grid.CellOf(pos); derived != cell {
			err = simerr.InvariantViolation("%s: %s should be in cell %s, not %s", inst, e, derived, cell)
		}
		return err == nil
	})
	return err
}

func (inst *Instance) quarantine(err error) {
	inst.quarantined.Store(true)
	inst.fault = err
	gwlog.Errorf("%s is quarantined at tick %d: %+v", inst, inst.tick+1, err)
	statsd.Incr("instance.quarantined")
}

// release despawns all remaining entities and closes Done
func (inst *Instance) release() {
	if inst.released {
		return
	}
	n := inst.store.Len()
	inst.store.Clear()
	inst.grid.Clear()
	inst.interest.clear()
	inst.intents.Drain()
	inst.released = true
	close(inst.done)
	gwlog.Infof("%s released at tick %d, %d entities despawned", inst, inst.tick, n)
}
