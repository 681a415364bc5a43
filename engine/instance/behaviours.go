package instance

import (
	"math"

	"github.com/xiaonanln/gwsim/engine/common"
	"github.com/xiaonanln/gwsim/engine/entity"
	"github.com/xiaonanln/gwsim/engine/simerr"
)

// behaviourKinds are the component kinds with a per-tick behaviour, in resolution order
var behaviourKinds = []entity.ComponentKind{entity.KindWander, entity.KindBounds, entity.KindLifetime}

func (inst *Instance) runBehaviours() error {
	tick := inst.tick + 1
	var err error
	inst.store.ForEach(func(e *entity.Entity) bool {
		for _, kind := range behaviourKinds {
			data, ok := e.Component(kind)
			if !ok {
				continue
			}
			switch kind {
			case entity.KindWander:
				err = inst.wander(e, data.(entity.Wander), tick)
			case entity.KindBounds:
				err = inst.keepInBounds(e, data.(entity.Bounds))
			case entity.KindLifetime:
				err = inst.ageOut(e, data.(entity.Lifetime))
			}
			if err != nil {
				err = simerr.InvariantViolation("%s: %s behaviour of %s: %v", inst, kind, e, err)
				return false
			}
		}
		return true
	})
	return err
}

func (inst *Instance) wander(e *entity.Entity, w entity.Wander, tick uint64) error {
	every := uint64(w.Every)
	if every == 0 {
		every = 1
	}
	if (tick-1)%every != 0 {
		return nil
	}

	angle := w.Next() * 2 * math.Pi
	vel := common.Vector3{X: math.Cos(angle) * w.Speed, Z: math.Sin(angle) * w.Speed}
	if err := inst.store.SetComponent(e.ID, entity.KindWander, w); err != nil {
		return err
	}
	return inst.store.SetVelocity(e.ID, vel)
}

// keepInBounds clamps the entity into the box and reflects its velocity on the clamped axes
func (inst *Instance) keepInBounds(e *entity.Entity, b entity.Bounds) error {
	pos, vel := e.Position(), e.Velocity()
	if b.Contains(pos) {
		return nil
	}
	pos.X, vel.X = clampReflect(pos.X, vel.X, b.Min.X, b.Max.X)
	pos.Y, vel.Y = clampReflect(pos.Y, vel.Y, b.Min.Y, b.Max.Y)
	pos.Z, vel.Z = clampReflect(pos.Z, vel.Z, b.Min.Z, b.Max.Z)
	if err := inst.store.Move(e.ID, pos); err != nil {
		return err
	}
	return inst.store.SetVelocity(e.ID, vel)
}

func clampReflect(p, v, min, max common.Coord) (common.Coord, common.Coord) {
	if p < min {
		return min, math.Abs(v)
	}
	if p > max {
		return max, -math.Abs(v)
	}
	return p, v
}

func (inst *Instance) ageOut(e *entity.Entity, lt entity.Lifetime) error {
	lt.Ticks -= 1
	if lt.Ticks <= 0 {
		// applied when the behaviour pass ends
		return inst.store.Despawn(e.ID)
	}
	return inst.store.SetComponent(e.ID, entity.KindLifetime, lt)
}
