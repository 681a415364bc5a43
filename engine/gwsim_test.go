package gwsim

import (
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/xiaonanln/gwsim/engine/config"
	"github.com/xiaonanln/gwsim/engine/entity"
	"github.com/xiaonanln/gwsim/engine/intent"
	"github.com/xiaonanln/gwsim/engine/scheduler"
	"github.com/xiaonanln/gwsim/engine/simerr"
	"github.com/xiaonanln/gwsim/engine/telemetry"
)

func newTestSimulation(t *testing.T) *Simulation {
	cfg, err := config.Parse(nil)
	assert.Equal(t, nil, err)
	return New(cfg, scheduler.NewFakeClock(time.Unix(0, 0)))
}

func waitFrame(t *testing.T, sim *Simulation, cond func(f *telemetry.Frame) bool) *telemetry.Frame {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if f, ok := sim.Bridge().Latest(); ok && cond(f) {
			return f
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("no matching frame after %d ticks", sim.TickCount())
	return nil
}

func TestRunAndStop(t *testing.T) {
	sim := newTestSimulation(t)
	id, err := sim.CreateInstance()
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, sim.Populate(id, 20, "zombie", 1))
	assert.Equal(t, nil, sim.Start())

	frame := waitFrame(t, sim, func(f *telemetry.Frame) bool {
		return f.EntityCount() == 20 && f.Sequence >= 3
	})
	snap, ok := frame.Instance(id)
	assert.T(t, ok)
	assert.Equal(t, 20, len(snap.Entities))
	for _, es := range snap.Entities {
		assert.Equal(t, "zombie", es.Type)
	}

	sim.Stop()
	assert.Equal(t, scheduler.Stopped, sim.SchedulerState())
	ticks := sim.TickCount()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, ticks, sim.TickCount())
}

func TestSubmitWhileRunning(t *testing.T) {
	sim := newTestSimulation(t)
	id, err := sim.CreateInstance()
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, sim.Start())
	defer sim.Stop()

	st := entity.State{Components: map[entity.ComponentKind]interface{}{
		entity.KindTypeTag: entity.TypeTag{Name: "player"},
	}}
	assert.Equal(t, nil, sim.Submit(id, intent.Spawn(st)))
	waitFrame(t, sim, func(f *telemetry.Frame) bool {
		return f.EntityCount() == 1
	})

	err = sim.Submit(id+100, intent.Spawn(st))
	assert.T(t, simerr.Is(err, simerr.ErrNotFound))
}

func TestPauseResume(t *testing.T) {
	sim := newTestSimulation(t)
	_, err := sim.CreateInstance()
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, sim.Start())
	defer sim.Stop()

	waitFrame(t, sim, func(f *telemetry.Frame) bool { return f.Sequence >= 2 })
	assert.Equal(t, nil, sim.Pause())
	assert.Equal(t, scheduler.Paused, sim.SchedulerState())
	ticks := sim.TickCount()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, ticks, sim.TickCount())

	assert.Equal(t, nil, sim.Resume())
	waitFrame(t, sim, func(f *telemetry.Frame) bool { return f.Sequence > ticks+1 })
	assert.T(t, sim.Pause() == nil)
	assert.T(t, sim.Pause() != nil)
	assert.Equal(t, nil, sim.Resume())
}

func TestStopBeforeStart(t *testing.T) {
	sim := newTestSimulation(t)
	sim.Stop()
	assert.Equal(t, scheduler.Stopped, sim.SchedulerState())
	assert.T(t, sim.Start() != nil)
}

func TestInstanceConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(`
[simulation]
cell_size = 8
instance_capacity = 100
aoi_distance = 20
verify_invariants = false
`))
	assert.Equal(t, nil, err)
	sim := New(cfg, nil)
	icfg := sim.InstanceConfig()
	assert.Equal(t, 8.0, icfg.CellSize)
	assert.Equal(t, 100, icfg.Capacity)
	assert.Equal(t, 20.0, icfg.AOIDistance)
	assert.Equal(t, false, icfg.VerifyInvariants)

	id, err := sim.CreateInstance()
	assert.Equal(t, nil, err)
	inst, ok := sim.Manager().Get(id)
	assert.T(t, ok)
	assert.Equal(t, 100, inst.Config().Capacity)
}
