package entity

import (
	"fmt"

	"github.com/xiaonanln/gwsim/engine/common"
)

// Entity is a live entity record owned by a Store
//
// Position and velocity can only be changed through the Store, which keeps the spatial index in sync.
type Entity struct {
	ID common.EntityID
	// Instance is the owning instance. It is a plain ID, entities hold no reference to their instance.
	Instance common.InstanceID

	pos        common.Vector3
	vel        common.Vector3
	components map[ComponentKind]interface{}
}

// State is the initial state of an entity to spawn
type State struct {
	Position   common.Vector3
	Velocity   common.Vector3
	Components map[ComponentKind]interface{}
}

// View is a read-only copy of an entity
type View struct {
	ID         common.EntityID
	Instance   common.InstanceID
	Position   common.Vector3
	Velocity   common.Vector3
	Components map[ComponentKind]interface{}
}

func (e *Entity) String() string {
	if e == nil {
		return "Entity<nil>"
	}
	if name := e.TypeName(); name != "" {
		return fmt.Sprintf("%s<%s>", name, e.ID)
	}
	return fmt.Sprintf("Entity<%s>", e.ID)
}

// Position returns the current position
func (e *Entity) Position() common.Vector3 {
	return e.pos
}

// Velocity returns the current velocity
func (e *Entity) Velocity() common.Vector3 {
	return e.vel
}

// Component returns the data of the component kind
func (e *Entity) Component(kind ComponentKind) (interface{}, bool) {
	data, ok := e.components[kind]
	return data, ok
}

// HasComponent returns if the entity has the component kind
func (e *Entity) HasComponent(kind ComponentKind) bool {
	_, ok := e.components[kind]
	return ok
}

// TypeName returns the name of the TypeTag component, or an empty string
func (e *Entity) TypeName() string {
	if tag, ok := e.components[KindTypeTag].(TypeTag); ok {
		return tag.Name
	}
	return ""
}

// View copies the entity
func (e *Entity) View() View {
	return View{
		ID:         e.ID,
		Instance:   e.Instance,
		Position:   e.pos,
		Velocity:   e.vel,
		Components: copyComponents(e.components),
	}
}

func copyComponents(components map[ComponentKind]interface{}) map[ComponentKind]interface{} {
	cp := make(map[ComponentKind]interface{}, len(components))
	for kind, data := range components {
		// component data are plain values, so assignment copies them
		cp[kind] = data
	}
	return cp
}
