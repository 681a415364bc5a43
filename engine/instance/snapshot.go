package instance

import (
	"sort"

	"github.com/xiaonanln/gwsim/engine/entity"
	"github.com/xiaonanln/gwsim/engine/telemetry"
)

// SnapshotOptions controls how much state CaptureSnapshot copies
type SnapshotOptions struct {
	// Entities copies entity states, otherwise only counts and cells are captured
	Entities bool
	// MaxEntities limits the number of copied entities, 0 means all
	MaxEntities int
}

// CaptureSnapshot copies the current state of the instance
//
// The snapshot shares nothing with the instance, so later ticks never change it.
func (inst *Instance) CaptureSnapshot(opts SnapshotOptions) telemetry.InstanceSnapshot {
	snap := telemetry.InstanceSnapshot{
		ID:           inst.ID,
		Tick:         inst.tick,
		EntityCount:  inst.store.Len(),
		Capacity:     inst.cfg.Capacity,
		CellSize:     inst.grid.CellSize(),
		Draining:     inst.draining.Load(),
		Quarantined:  inst.quarantined.Load(),
		TickDuration: inst.lastTickDuration,
	}
	if inst.fault != nil {
		snap.Fault = inst.fault.Error()
	}

	if opts.Entities {
		n := inst.store.Len()
		if opts.MaxEntities > 0 && n > opts.MaxEntities {
			n = opts.MaxEntities
			snap.Truncated = true
		}
		snap.Entities = make([]telemetry.EntitySnapshot, 0, n)
		inst.store.ForEach(func(e *entity.Entity) bool {
			if len(snap.Entities) >= n {
				return false
			}
			_, cell, _ := inst.grid.Lookup(e.ID)
			snap.Entities = append(snap.Entities, telemetry.EntitySnapshot{
				ID:        e.ID,
				Type:      e.TypeName(),
				Position:  e.Position(),
				Velocity:  e.Velocity(),
				Cell:      cell,
				Neighbors: inst.Neighbors(e.ID),
			})
			return true
		})
	}

	cells := inst.grid.Cells()
	snap.Cells = make([]telemetry.CellSnapshot, 0, len(cells))
	for key, count := range cells {
		snap.Cells = append(snap.Cells, telemetry.CellSnapshot{Key: key, Count: count})
	}
	sort.Slice(snap.Cells, func(i, j int) bool {
		a, b := snap.Cells[i].Key, snap.Cells[j].Key
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.Z < b.Z
	})
	return snap
}
