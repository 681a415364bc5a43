// Package intent is the input feed of instances.
//
// Intents are pushed from any goroutine and drained by the simulation goroutine at the start of
// each tick, in the order they were pushed.
package intent

import (
	"fmt"

	"github.com/xiaonanln/gwsim/engine/common"
	"github.com/xiaonanln/gwsim/engine/entity"
)

// Op is the operation of an intent
type Op uint8

const (
	// OpSpawn spawns an entity with State
	OpSpawn Op = iota + 1
	// OpDespawn despawns Entity
	OpDespawn
	// OpMove moves Entity to Position
	OpMove
	// OpSetVelocity sets the velocity of Entity to Velocity
	OpSetVelocity
	// OpSetComponent sets the component Kind of Entity to Data
	OpSetComponent
)

var opNames = map[Op]string{
	OpSpawn:        "spawn",
	OpDespawn:      "despawn",
	OpMove:         "move",
	OpSetVelocity:  "set_velocity",
	OpSetComponent: "set_component",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Op<%d>", uint8(op))
}

// ParseOp converts an op name to Op
func ParseOp(name string) (Op, bool) {
	for op, n := range opNames {
		if n == name {
			return op, true
		}
	}
	return 0, false
}

// Intent is a request to change the state of an instance
type Intent struct {
	Op       Op
	Entity   common.EntityID
	Position common.Vector3
	Velocity common.Vector3
	Kind     entity.ComponentKind
	Data     interface{}
	State    entity.State
}

func (it Intent) String() string {
	switch it.Op {
	case OpSpawn:
		return fmt.Sprintf("spawn@%s", it.State.Position)
	case OpMove:
		return fmt.Sprintf("move %s -> %s", it.Entity, it.Position)
	case OpSetVelocity:
		return fmt.Sprintf("set_velocity %s -> %s", it.Entity, it.Velocity)
	case OpSetComponent:
		return fmt.Sprintf("set_component %s.%s", it.Entity, it.Kind)
	default:
		return fmt.Sprintf("%s %s", it.Op, it.Entity)
	}
}

// Spawn creates a spawn intent
func Spawn(st entity.State) Intent {
	return Intent{Op: OpSpawn, State: st}
}

// Despawn creates a despawn intent
func Despawn(eid common.EntityID) Intent {
	return Intent{Op: OpDespawn, Entity: eid}
}

// Move creates a move intent
func Move(eid common.EntityID, pos common.Vector3) Intent {
	return Intent{Op: OpMove, Entity: eid, Position: pos}
}

// SetVelocity creates a set velocity intent
func SetVelocity(eid common.EntityID, vel common.Vector3) Intent {
	return Intent{Op: OpSetVelocity, Entity: eid, Velocity: vel}
}

// SetComponent creates a set component intent
func SetComponent(eid common.EntityID, kind entity.ComponentKind, data interface{}) Intent {
	return Intent{Op: OpSetComponent, Entity: eid, Kind: kind, Data: data}
}
