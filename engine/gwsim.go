package gwsim

import (
	"math/rand"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwsim/engine/binutil"
	"github.com/xiaonanln/gwsim/engine/common"
	"github.com/xiaonanln/gwsim/engine/config"
	"github.com/xiaonanln/gwsim/engine/consts"
	"github.com/xiaonanln/gwsim/engine/debugserver"
	"github.com/xiaonanln/gwsim/engine/entity"
	"github.com/xiaonanln/gwsim/engine/gwlog"
	"github.com/xiaonanln/gwsim/engine/gwvar"
	"github.com/xiaonanln/gwsim/engine/instance"
	"github.com/xiaonanln/gwsim/engine/intent"
	"github.com/xiaonanln/gwsim/engine/opmon"
	"github.com/xiaonanln/gwsim/engine/scheduler"
	"github.com/xiaonanln/gwsim/engine/statsd"
	"github.com/xiaonanln/gwsim/engine/telemetry"
)

// Simulation is a running world simulation
type Simulation struct {
	cfg        *config.SimConfig
	bridge     *telemetry.Bridge
	manager    *instance.Manager
	scheduler   *scheduler.Scheduler
	debugServer *debugserver.Server
	httpServer  *http.Server
}

// New creates a Simulation from config. clock can be nil to use the wall clock.
func New(cfg *config.SimConfig, clock scheduler.Clock) *Simulation {
	simCfg := cfg.Simulation
	sim := &Simulation{
		cfg:    cfg,
		bridge: telemetry.NewBridge(),
	}
	sim.manager = instance.NewManager(sim.bridge, instance.SnapshotOptions{
		Entities:    simCfg.SnapshotEntities,
		MaxEntities: simCfg.SnapshotMaxEntities,
	})
	sim.scheduler = scheduler.New(scheduler.Config{
		Interval:     simCfg.TickInterval,
		BacklogLimit: simCfg.BacklogLimit,
		Clock:        clock,
		OnOverrun:    sim.onOverrun,
	}, sim.tick)

	if simCfg.OpmonDumpInterval > 0 {
		sim.scheduler.AddTimer(simCfg.OpmonDumpInterval, opmon.Dump)
	}
	return sim
}

// Config returns the config of the simulation
func (sim *Simulation) Config() *config.SimConfig {
	return sim.cfg
}

// Manager returns the instance manager
func (sim *Simulation) Manager() *instance.Manager {
	return sim.manager
}

// Bridge returns the telemetry bridge which receives a frame after every tick
func (sim *Simulation) Bridge() *telemetry.Bridge {
	return sim.bridge
}

// InstanceConfig returns the instance configuration derived from the [simulation] section
func (sim *Simulation) InstanceConfig() instance.Config {
	simCfg := sim.cfg.Simulation
	return instance.Config{
		Capacity:         simCfg.InstanceCapacity,
		CellSize:         simCfg.CellSize,
		AOIDistance:      simCfg.AOIDistance,
		VerifyInvariants: simCfg.VerifyInvariants,
	}
}

// CreateInstance creates an instance with the configured defaults
func (sim *Simulation) CreateInstance() (common.InstanceID, error) {
	return sim.manager.CreateInstance(sim.InstanceConfig())
}

// Submit queues an intent to an instance. It can be called from any goroutine.
func (sim *Simulation) Submit(id common.InstanceID, it intent.Intent) error {
	return sim.manager.Submit(id, it)
}

// Populate submits spawn intents for count wandering entities of typeName at random positions
//
// The entities walk inside the same square as the spawn command of the debug server.
func (sim *Simulation) Populate(id common.InstanceID, count int, typeName string, seed int64) error {
	const spawnRange = consts.DEBUG_COMMAND_SPAWN_RANGE
	rnd := rand.New(rand.NewSource(seed))
	bounds := entity.Bounds{
		Min: common.Vector3{X: -spawnRange, Y: 0, Z: -spawnRange},
		Max: common.Vector3{X: spawnRange, Y: 0, Z: spawnRange},
	}
	for i := 0; i < count; i++ {
		st := entity.State{
			Position: common.Vector3{
				X: rnd.Float64()*2*spawnRange - spawnRange,
				Z: rnd.Float64()*2*spawnRange - spawnRange,
			},
			Components: map[entity.ComponentKind]interface{}{
				entity.KindTypeTag: entity.TypeTag{Name: typeName},
				entity.KindWander:  entity.Wander{Speed: 1 + rnd.Float64()*4, Seed: rnd.Uint64(), Every: 20},
				entity.KindBounds:  bounds,
			},
		}
		if err := sim.Submit(id, intent.Spawn(st)); err != nil {
			return errors.Wrapf(err, "populate Instance<%d>", id)
		}
	}
	gwlog.Infof("Populating Instance<%d> with %d %q entities", id, count, typeName)
	return nil
}

// Start starts ticking and the debug server if http_port is configured
func (sim *Simulation) Start() error {
	if err := sim.scheduler.Start(); err != nil {
		return err
	}
	gwvar.Running.Set(true)
	debugCfg := sim.cfg.Debug
	if debugCfg.HTTPPort != 0 {
		sim.debugServer = debugserver.New(sim, debugCfg.StreamInterval)
		sim.httpServer = binutil.SetupHTTPServer(debugCfg.HTTPIp, debugCfg.HTTPPort, sim.debugServer)
	}
	gwlog.Infof("Simulation started: tick interval %s, %d instances", sim.scheduler.Interval(), len(sim.manager.ListInstances()))
	return nil
}

// Pause stops ticking until Resume
func (sim *Simulation) Pause() error {
	return sim.scheduler.Pause()
}

// Resume continues ticking after Pause
func (sim *Simulation) Resume() error {
	return sim.scheduler.Resume()
}

// RequestStop asks the simulation to stop at the next tick boundary without waiting
func (sim *Simulation) RequestStop() {
	sim.scheduler.RequestStop()
}

// Wait blocks until the simulation is stopped, then shuts down the debug server and disconnects overlay clients
func (sim *Simulation) Wait() {
	sim.scheduler.Wait()
	gwvar.Running.Set(false)
	if sim.debugServer != nil {
		sim.debugServer.Close()
	}
	if sim.httpServer != nil {
		if err := sim.httpServer.Close(); err != nil {
			gwlog.Warnf("close http server failed: %v", err)
		}
		sim.httpServer = nil
	}
	events, dropped := sim.scheduler.Overruns()
	gwlog.Infof("Simulation stopped after %d ticks, %d overruns, %d ticks dropped", sim.scheduler.TickCount(), events, dropped)
}

// Stop requests the simulation to stop and waits for it
func (sim *Simulation) Stop() {
	sim.RequestStop()
	sim.Wait()
}

// SchedulerState returns the state of the tick scheduler
func (sim *Simulation) SchedulerState() scheduler.State {
	return sim.scheduler.State()
}

// TickCount returns the number of ticks run so far
func (sim *Simulation) TickCount() uint64 {
	return sim.scheduler.TickCount()
}

func (sim *Simulation) tick(tick uint64, dt time.Duration) {
	frame := sim.manager.TickAll(dt)
	gwvar.Ticks.Set(int64(tick))
	gwvar.Instances.Set(int64(len(frame.Instances)))
	gwvar.Entities.Set(int64(frame.EntityCount()))
	if consts.DEBUG_TICKS {
		gwlog.Debugf("tick %d: %d instances, %d entities, took %s", tick, len(frame.Instances), frame.EntityCount(), frame.TickDuration)
	}
}

func (sim *Simulation) onOverrun(ev scheduler.OverrunEvent) {
	gwvar.Overruns.Add(1)
	if frame, ok := sim.bridge.Latest(); ok {
		statsd.Gauge("overrun.entities", float64(frame.EntityCount()))
		if ev.Dropped > 0 {
			gwlog.Warnf("%d ticks dropped with %d entities in %d instances", ev.Dropped, frame.EntityCount(), len(frame.Instances))
		}
	}
}

var _ debugserver.Simulation = (*Simulation)(nil)
