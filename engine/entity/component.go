package entity

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwsim/engine/common"
	"github.com/xiaonanln/gwsim/engine/simerr"
)

// ComponentKind enumerates the behaviours that can be attached to an entity
//
// Each kind is bound to exactly one data type. Behaviours are resolved in ascending kind order.
type ComponentKind uint8

const (
	// KindTypeTag labels the entity with a type name, data is TypeTag
	KindTypeTag ComponentKind = iota + 1
	// KindWander makes the entity walk randomly, data is Wander
	KindWander
	// KindBounds keeps the entity inside a box, data is Bounds
	KindBounds
	// KindLifetime despawns the entity after a number of ticks, data is Lifetime
	KindLifetime
	// KindInterest tracks neighbours within a radius, data is Interest
	KindInterest

	numComponentKinds
)

var componentKindNames = [...]string{
	KindTypeTag:  "type",
	KindWander:   "wander",
	KindBounds:   "bounds",
	KindLifetime: "lifetime",
	KindInterest: "interest",
}

// AllComponentKinds returns all component kinds in resolution order
func AllComponentKinds() []ComponentKind {
	kinds := make([]ComponentKind, 0, numComponentKinds-1)
	for k := KindTypeTag; k < numComponentKinds; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func (k ComponentKind) String() string {
	if k.IsValid() {
		return componentKindNames[k]
	}
	return "unknown"
}

// IsValid returns if k is one of the defined kinds
func (k ComponentKind) IsValid() bool {
	return k >= KindTypeTag && k < numComponentKinds
}

// ParseComponentKind converts a kind name to ComponentKind
func ParseComponentKind(s string) (ComponentKind, bool) {
	s = strings.ToLower(s)
	for k := KindTypeTag; k < numComponentKinds; k++ {
		if componentKindNames[k] == s {
			return k, true
		}
	}
	return 0, false
}

// TypeTag is the data of KindTypeTag
type TypeTag struct {
	Name string
}

// Wander is the data of KindWander
//
// Every Every ticks the entity picks a new horizontal direction from a generator seeded by Seed,
// so the walk is the same across runs.
type Wander struct {
	Speed float64
	Seed  uint64
	Every int
}

// Next advances the generator and returns a value in [0, 1)
func (w *Wander) Next() float64 {
	// xorshift64*
	x := w.Seed
	if x == 0 {
		x = 0x9E3779B97F4A7C15
	}
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	w.Seed = x
	return float64((x*2685821657736338717)>>11) / float64(1<<53)
}

// Bounds is the data of KindBounds
type Bounds struct {
	Min common.Vector3
	Max common.Vector3
}

// Contains returns if pos is inside the bounds
func (b Bounds) Contains(pos common.Vector3) bool {
	return pos.X >= b.Min.X && pos.X <= b.Max.X &&
		pos.Y >= b.Min.Y && pos.Y <= b.Max.Y &&
		pos.Z >= b.Min.Z && pos.Z <= b.Max.Z
}

// Lifetime is the data of KindLifetime
type Lifetime struct {
	Ticks int
}

// Interest is the data of KindInterest
type Interest struct {
	Radius float64
}

// ValidateComponent checks that data has the type bound to kind
func ValidateComponent(kind ComponentKind, data interface{}) error {
	var ok bool
	switch kind {
	case KindTypeTag:
		_, ok = data.(TypeTag)
	case KindWander:
		var w Wander
		if w, ok = data.(Wander); ok && (w.Speed < 0 || w.Every < 0) {
			return errors.Wrapf(simerr.ErrInvalidComponent, "wander: negative speed or period")
		}
	case KindBounds:
		var b Bounds
		if b, ok = data.(Bounds); ok && (b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z) {
			return errors.Wrapf(simerr.ErrInvalidComponent, "bounds: min %s > max %s", b.Min, b.Max)
		}
	case KindLifetime:
		_, ok = data.(Lifetime)
	case KindInterest:
		var in Interest
		if in, ok = data.(Interest); ok && in.Radius < 0 {
			return errors.Wrapf(simerr.ErrInvalidComponent, "interest: negative radius")
		}
	default:
		return errors.Wrapf(simerr.ErrInvalidComponent, "unknown component kind %d", kind)
	}

	if !ok {
		return errors.Wrapf(simerr.ErrInvalidComponent, "%s: unexpected data type %T", kind, data)
	}
	return nil
}
