package intent

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwsim/engine/common"
	"github.com/xiaonanln/gwsim/engine/entity"
	"github.com/xiaonanln/gwsim/engine/gwutils"
	"github.com/xiaonanln/typeconv"
)

var (
	float64Type = reflect.TypeOf(float64(0))
)

// Decode converts a loosely typed intent into an Intent
//
// args usually comes from JSON, msgpack or query strings, so numbers can be of any numeric type or strings.
// Recognized keys: entity, x, y, z, vx, vy, vz, kind, and the component fields
// (type, speed, seed, every, minx, miny, minz, maxx, maxy, maxz, ticks, radius).
func Decode(opname string, args map[string]interface{}) (it Intent, err error) {
	op, ok := ParseOp(opname)
	if !ok {
		return Intent{}, errors.Errorf("unknown intent op: %s", opname)
	}

	err = gwutils.CatchPanic(func() error {
		var err error
		it, err = decode(op, args)
		return err
	})
	if err != nil {
		return Intent{}, errors.Wrapf(err, "decode %s", op)
	}
	return
}

func decode(op Op, args map[string]interface{}) (Intent, error) {
	if op == OpSpawn {
		st := entity.State{
			Position:   argVector(args, "x", "y", "z"),
			Velocity:   argVector(args, "vx", "vy", "vz"),
			Components: map[entity.ComponentKind]interface{}{},
		}
		for _, kind := range entity.AllComponentKinds() {
			if data, ok := decodeComponent(kind, args, false); ok {
				st.Components[kind] = data
			}
		}
		return Spawn(st), nil
	}

	eid := common.EntityID(argInt(args, "entity"))
	if eid.IsNil() {
		return Intent{}, errors.New("missing entity")
	}

	switch op {
	case OpDespawn:
		return Despawn(eid), nil
	case OpMove:
		return Move(eid, argVector(args, "x", "y", "z")), nil
	case OpSetVelocity:
		return SetVelocity(eid, argVector(args, "vx", "vy", "vz")), nil
	default:
		kind, ok := entity.ParseComponentKind(argString(args, "kind"))
		if !ok {
			return Intent{}, errors.Errorf("unknown component kind: %v", args["kind"])
		}
		data, _ := decodeComponent(kind, args, true)
		return SetComponent(eid, kind, data), nil
	}
}

// decodeComponent builds the component data of kind from args. If force is false, the component is only built
// when its key field is present.
func decodeComponent(kind entity.ComponentKind, args map[string]interface{}, force bool) (interface{}, bool) {
	switch kind {
	case entity.KindTypeTag:
		if !force && !hasArg(args, "type") {
			return nil, false
		}
		return entity.TypeTag{Name: argString(args, "type")}, true
	case entity.KindWander:
		if !force && !hasArg(args, "speed") {
			return nil, false
		}
		return entity.Wander{
			Speed: argFloat(args, "speed"),
			Seed:  uint64(argInt(args, "seed")),
			Every: int(argInt(args, "every")),
		}, true
	case entity.KindBounds:
		if !force && !hasArg(args, "maxx") {
			return nil, false
		}
		return entity.Bounds{
			Min: argVector(args, "minx", "miny", "minz"),
			Max: argVector(args, "maxx", "maxy", "maxz"),
		}, true
	case entity.KindLifetime:
		if !force && !hasArg(args, "ticks") {
			return nil, false
		}
		return entity.Lifetime{Ticks: int(argInt(args, "ticks"))}, true
	case entity.KindInterest:
		if !force && !hasArg(args, "radius") {
			return nil, false
		}
		return entity.Interest{Radius: argFloat(args, "radius")}, true
	}
	return nil, false
}

func hasArg(args map[string]interface{}, key string) bool {
	_, ok := args[key]
	return ok
}

func argVector(args map[string]interface{}, kx, ky, kz string) common.Vector3 {
	return common.Vector3{
		X: argFloat(args, kx),
		Y: argFloat(args, ky),
		Z: argFloat(args, kz),
	}
}

func argInt(args map[string]interface{}, key string) int64 {
	v, ok := args[key]
	if !ok || v == nil {
		return 0
	}
	if s, ok := v.(string); ok {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			panic(errors.Wrapf(err, "argument %s", key))
		}
		return n
	}
	return typeconv.Int(v)
}

func argFloat(args map[string]interface{}, key string) float64 {
	v, ok := args[key]
	if !ok || v == nil {
		return 0
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			panic(errors.Wrapf(err, "argument %s", key))
		}
		return f
	}
	return typeconv.Convert(v, float64Type).Float()
}

func argString(args map[string]interface{}, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprint(v)
}
