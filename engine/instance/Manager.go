// Package instance manages the instances (worlds) of the simulation and runs their ticks.
package instance

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwsim/engine/common"
	"github.com/xiaonanln/gwsim/engine/consts"
	"github.com/xiaonanln/gwsim/engine/entity"
	"github.com/xiaonanln/gwsim/engine/gwlog"
	"github.com/xiaonanln/gwsim/engine/intent"
	"github.com/xiaonanln/gwsim/engine/opmon"
	"github.com/xiaonanln/gwsim/engine/simerr"
	"github.com/xiaonanln/gwsim/engine/statsd"
	"github.com/xiaonanln/gwsim/engine/telemetry"
)

// Manager is the registry of all instances
//
// The registry is guarded by one lock which is never held while an instance ticks.
type Manager struct {
	lock      sync.RWMutex
	instances map[common.InstanceID]*Instance
	lastID    common.InstanceID

	bridge       *telemetry.Bridge
	snapshotOpts SnapshotOptions
	sequence     uint64
}

// NewManager creates a Manager which publishes a frame to bridge after every TickAll. bridge can be nil.
func NewManager(bridge *telemetry.Bridge, snapshotOpts SnapshotOptions) *Manager {
	return &Manager{
		instances:    map[common.InstanceID]*Instance{},
		bridge:       bridge,
		snapshotOpts: snapshotOpts,
	}
}

// Bridge returns the telemetry bridge of the manager
func (mgr *Manager) Bridge() *telemetry.Bridge {
	return mgr.bridge
}

// CreateInstance creates a new instance with the next instance ID
func (mgr *Manager) CreateInstance(cfg Config) (common.InstanceID, error) {
	if err := cfg.validate(); err != nil {
		return 0, errors.Wrap(err, "create instance")
	}

	mgr.lock.Lock()
	mgr.lastID += 1
	id := mgr.lastID
	mgr.instances[id] = newInstance(id, cfg)
	n := len(mgr.instances)
	mgr.lock.Unlock()

	gwlog.Infof("Instance<%d> created: capacity=%d, cell size=%v", id, cfg.Capacity, cfg.CellSize)
	statsd.Gauge("instances", float64(n))
	return id, nil
}

// DestroyInstance marks the instance as draining. It is released at the end of its next tick.
func (mgr *Manager) DestroyInstance(id common.InstanceID) error {
	inst, ok := mgr.Get(id)
	if !ok {
		return simerr.NotFound("destroy Instance<%d>", id)
	}
	inst.markDraining()
	if consts.DEBUG_INSTANCES {
		gwlog.Debugf("%s is draining", inst)
	}
	return nil
}

// Get returns the instance
func (mgr *Manager) Get(id common.InstanceID) (*Instance, bool) {
	mgr.lock.RLock()
	inst, ok := mgr.instances[id]
	mgr.lock.RUnlock()
	return inst, ok
}

// ListInstances returns all instance IDs in ascending order
func (mgr *Manager) ListInstances() []common.InstanceID {
	mgr.lock.RLock()
	ids := make([]common.InstanceID, 0, len(mgr.instances))
	for id := range mgr.instances {
		ids = append(ids, id)
	}
	mgr.lock.RUnlock()

	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})
	return ids
}

// Tick runs one tick of the instance
func (mgr *Manager) Tick(id common.InstanceID, dt time.Duration) error {
	inst, ok := mgr.Get(id)
	if !ok {
		return simerr.NotFound("tick Instance<%d>", id)
	}
	err := inst.Tick(dt)
	if inst.released {
		mgr.remove(inst)
	}
	return err
}

func (mgr *Manager) remove(inst *Instance) {
	mgr.lock.Lock()
	delete(mgr.instances, inst.ID)
	n := len(mgr.instances)
	mgr.lock.Unlock()
	statsd.Gauge("instances", float64(n))
}

// TickAll ticks all instances in ascending ID order, then captures a frame and publishes it to the bridge
//
// Faults of one instance never stop other instances from ticking.
func (mgr *Manager) TickAll(dt time.Duration) *telemetry.Frame {
	startTime := time.Now()
	ids := mgr.ListInstances()
	entities := 0
	for _, id := range ids {
		err := mgr.Tick(id, dt)
		if err != nil && !simerr.Is(err, simerr.ErrQuarantined) {
			gwlog.Errorf("tick Instance<%d> failed: %v", id, err)
		}
	}

	op := opmon.StartOperation("instance.snapshot")
	mgr.sequence += 1
	frame := &telemetry.Frame{
		Sequence:   mgr.sequence,
		CapturedAt: time.Now(),
		Ops:        opmon.Stats(),
	}
	for _, id := range mgr.ListInstances() {
		inst, ok := mgr.Get(id)
		if !ok {
			continue
		}
		snap := inst.CaptureSnapshot(mgr.snapshotOpts)
		entities += snap.EntityCount
		frame.Instances = append(frame.Instances, snap)
	}
	op.Finish(consts.OPMON_WARN_THRESHOLD)
	frame.TickDuration = time.Since(startTime)

	if mgr.bridge != nil {
		if err := mgr.bridge.Publish(frame); err != nil {
			gwlog.Errorf("publish frame %d failed: %v", frame.Sequence, err)
		}
	}
	statsd.Gauge("entities", float64(entities))
	return frame
}

// Spawn spawns an entity in the instance. It must be called from the simulation goroutine.
func (mgr *Manager) Spawn(id common.InstanceID, st entity.State) (common.EntityID, error) {
	inst, ok := mgr.Get(id)
	if !ok {
		return 0, simerr.NotFound("spawn in Instance<%d>", id)
	}
	return inst.Spawn(st)
}

// Submit queues an intent to the instance. It can be called from any goroutine.
func (mgr *Manager) Submit(id common.InstanceID, it intent.Intent) error {
	inst, ok := mgr.Get(id)
	if !ok {
		return simerr.NotFound("submit to Instance<%d>", id)
	}
	return inst.Submit(it)
}

// Migrate moves an entity to another instance keeping its entity ID. It must be called from the simulation goroutine.
func (mgr *Manager) Migrate(eid common.EntityID, from, to common.InstanceID) error {
	src, ok := mgr.Get(from)
	if !ok {
		return simerr.NotFound("migrate from Instance<%d>", from)
	}
	dst, ok := mgr.Get(to)
	if !ok {
		return simerr.NotFound("migrate to Instance<%d>", to)
	}
	if src == dst {
		return nil
	}
	if dst.Draining() {
		return errors.Wrapf(simerr.ErrDraining, "migrate %s to %s", eid, dst)
	}
	if c := dst.cfg.Capacity; c > 0 && dst.store.Len() >= c {
		return errors.Wrapf(simerr.ErrCapacityExceeded, "migrate %s to %s", eid, dst)
	}

	e, err := src.store.Extract(eid)
	if err != nil {
		return err
	}
	if err := dst.store.Adopt(e); err != nil {
		if rerr := src.store.Adopt(e); rerr != nil {
			gwlog.Errorf("migrate %s: restore to %s failed: %v", eid, src, rerr)
		}
		return err
	}
	if consts.DEBUG_INSTANCES {
		gwlog.Debugf("%s migrated from %s to %s", eid, src, dst)
	}
	return nil
}
