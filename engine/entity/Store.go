package entity

import (
	"github.com/petar/GoLLRB/llrb"
	"github.com/pkg/errors"
	"github.com/xiaonanln/gwsim/engine/common"
	"github.com/xiaonanln/gwsim/engine/consts"
	"github.com/xiaonanln/gwsim/engine/gwlog"
	"github.com/xiaonanln/gwsim/engine/simerr"
)

// SpatialIndex is the part of the spatial index that the Store keeps in sync with entity positions
type SpatialIndex interface {
	Insert(id common.EntityID, pos common.Vector3)
	Remove(id common.EntityID)
	Move(id common.EntityID, newPos common.Vector3) error
}

type entityItem struct {
	id     common.EntityID
	entity *Entity
}

func (it *entityItem) Less(other llrb.Item) bool {
	return it.id < other.(*entityItem).id
}

var minEntityItem = &entityItem{}

// Store owns all live entities of one instance
//
// Entities are indexed by ID and kept in ascending ID order, which is also spawn order because IDs
// are monotonic. The Store is used only from the simulation goroutine.
type Store struct {
	instance common.InstanceID
	capacity int
	index    SpatialIndex
	onRemove func(e *Entity)

	entities map[common.EntityID]*Entity
	order    *llrb.LLRB

	passDepth       int
	pendingInserts  []*Entity
	pendingDespawns []common.EntityID
	despawnPending  common.EntityIDSet
}

// NewStore creates a Store for the instance, keeping index in sync. capacity <= 0 means unlimited.
func NewStore(instance common.InstanceID, capacity int, index SpatialIndex) *Store {
	if capacity < 0 {
		capacity = 0
	}
	return &Store{
		instance:       instance,
		capacity:       capacity,
		index:          index,
		entities:       map[common.EntityID]*Entity{},
		order:          llrb.New(),
		despawnPending: common.EntityIDSet{},
	}
}

// SetOnRemove sets the callback called after an entity leaves the store
func (s *Store) SetOnRemove(cb func(e *Entity)) {
	s.onRemove = cb
}

// Capacity returns the max number of entities, 0 means unlimited
func (s *Store) Capacity() int {
	return s.capacity
}

// Len returns the number of entities, including entities with a pending despawn
func (s *Store) Len() int {
	return len(s.entities)
}

// Spawn creates an entity with the next entity ID and registers it in the spatial index
func (s *Store) Spawn(st State) (common.EntityID, error) {
	if err := s.checkCapacity(); err != nil {
		return 0, err
	}
	if !st.Position.IsFinite() || !st.Velocity.IsFinite() {
		return 0, errors.Wrapf(simerr.ErrInvalidPosition, "%s: spawn at %s with velocity %s", s.instance, st.Position, st.Velocity)
	}
	for kind, data := range st.Components {
		if err := ValidateComponent(kind, data); err != nil {
			return 0, err
		}
	}

	e := &Entity{
		ID:         common.GenEntityID(),
		Instance:   s.instance,
		pos:        st.Position,
		vel:        st.Velocity,
		components: copyComponents(st.Components),
	}
	s.insert(e)
	if consts.DEBUG_ENTITIES {
		gwlog.Debugf("%s: spawned %s at %s", s.instance, e, e.pos)
	}
	return e.ID, nil
}

// Adopt puts an entity extracted from another store into this store, keeping its ID
func (s *Store) Adopt(e *Entity) error {
	if e == nil || e.ID.IsNil() {
		return errors.New("adopt nil entity")
	}
	if _, ok := s.entities[e.ID]; ok {
		return errors.Errorf("%s: adopt %s: already exists", s.instance, e.ID)
	}
	if err := s.checkCapacity(); err != nil {
		return err
	}
	e.Instance = s.instance
	s.insert(e)
	return nil
}

// Extract removes the entity from the store without despawning it, so that it can be adopted by another store
func (s *Store) Extract(id common.EntityID) (*Entity, error) {
	if s.passDepth > 0 {
		return nil, errors.Errorf("%s: extract %s during iteration", s.instance, id)
	}
	e, ok := s.entities[id]
	if !ok {
		return nil, simerr.NotFound("%s: extract %s", s.instance, id)
	}
	s.remove(e)
	e.Instance = 0
	return e, nil
}

func (s *Store) checkCapacity() error {
	if s.capacity > 0 && len(s.entities) >= s.capacity {
		return errors.Wrapf(simerr.ErrCapacityExceeded, "%s: %d entities", s.instance, s.capacity)
	}
	return nil
}

func (s *Store) insert(e *Entity) {
	s.entities[e.ID] = e
	s.index.Insert(e.ID, e.pos)
	if s.passDepth > 0 {
		s.pendingInserts = append(s.pendingInserts, e)
	} else {
		s.order.ReplaceOrInsert(&entityItem{id: e.ID, entity: e})
	}
}

// Despawn removes the entity from the store and the spatial index
//
// If called during ForEach, the despawn is applied after the outermost pass completes.
func (s *Store) Despawn(id common.EntityID) error {
	e, ok := s.entities[id]
	if !ok {
		return simerr.NotFound("%s: despawn %s", s.instance, id)
	}

	if s.passDepth > 0 {
		if !s.despawnPending.Contains(id) {
			s.despawnPending.Add(id)
			s.pendingDespawns = append(s.pendingDespawns, id)
		}
		return nil
	}

	s.remove(e)
	if consts.DEBUG_ENTITIES {
		gwlog.Debugf("%s: despawned %s", s.instance, e)
	}
	return nil
}

func (s *Store) remove(e *Entity) {
	delete(s.entities, e.ID)
	s.order.Delete(&entityItem{id: e.ID})
	s.index.Remove(e.ID)
	if s.onRemove != nil {
		s.onRemove(e)
	}
}

// IsDespawnPending returns if the entity has a despawn waiting for the current pass to finish
func (s *Store) IsDespawnPending(id common.EntityID) bool {
	return s.despawnPending.Contains(id)
}

// Get returns a copy of the entity
func (s *Store) Get(id common.EntityID) (View, bool) {
	e, ok := s.entities[id]
	if !ok {
		return View{}, false
	}
	return e.View(), true
}

// Entity returns the live entity, which must not be retained after the tick
func (s *Store) Entity(id common.EntityID) (*Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}

// ForEach visits all entities in ascending ID order until f returns false
//
// Entities spawned during the pass are not visited. Entities despawned during the pass are still
// visited and removed after the outermost pass completes.
func (s *Store) ForEach(f func(e *Entity) bool) {
	s.passDepth++
	defer s.endPass()

	s.order.AscendGreaterOrEqual(minEntityItem, func(item llrb.Item) bool {
		return f(item.(*entityItem).entity)
	})
}

func (s *Store) endPass() {
	s.passDepth--
	if s.passDepth > 0 {
		return
	}

	for _, e := range s.pendingInserts {
		if _, ok := s.entities[e.ID]; ok {
			s.order.ReplaceOrInsert(&entityItem{id: e.ID, entity: e})
		}
	}
	s.pendingInserts = nil

	despawns := s.pendingDespawns
	s.pendingDespawns = nil
	s.despawnPending = common.EntityIDSet{}
	for _, id := range despawns {
		if e, ok := s.entities[id]; ok {
			s.remove(e)
			if consts.DEBUG_ENTITIES {
				gwlog.Debugf("%s: despawned %s after pass", s.instance, e)
			}
		}
	}
}

// IDs returns all entity IDs in ascending order
func (s *Store) IDs() []common.EntityID {
	ids := make([]common.EntityID, 0, len(s.entities))
	s.ForEach(func(e *Entity) bool {
		ids = append(ids, e.ID)
		return true
	})
	return ids
}

// Move sets the position of the entity and updates the spatial index
func (s *Store) Move(id common.EntityID, pos common.Vector3) error {
	e, ok := s.entities[id]
	if !ok {
		return simerr.NotFound("%s: move %s", s.instance, id)
	}
	if !pos.IsFinite() {
		return errors.Wrapf(simerr.ErrInvalidPosition, "%s: move %s to %s", s.instance, id, pos)
	}
	e.pos = pos
	return s.index.Move(id, pos)
}

// SetVelocity sets the velocity of the entity
func (s *Store) SetVelocity(id common.EntityID, vel common.Vector3) error {
	e, ok := s.entities[id]
	if !ok {
		return simerr.NotFound("%s: set velocity %s", s.instance, id)
	}
	if !vel.IsFinite() {
		return errors.Wrapf(simerr.ErrInvalidPosition, "%s: set velocity of %s to %s", s.instance, id, vel)
	}
	e.vel = vel
	return nil
}

// SetComponent attaches or replaces a component of the entity
func (s *Store) SetComponent(id common.EntityID, kind ComponentKind, data interface{}) error {
	e, ok := s.entities[id]
	if !ok {
		return simerr.NotFound("%s: set component %s of %s", s.instance, kind, id)
	}
	if err := ValidateComponent(kind, data); err != nil {
		return err
	}
	e.components[kind] = data
	return nil
}

// RemoveComponent detaches a component from the entity
func (s *Store) RemoveComponent(id common.EntityID, kind ComponentKind) error {
	e, ok := s.entities[id]
	if !ok {
		return simerr.NotFound("%s: remove component %s of %s", s.instance, kind, id)
	}
	delete(e.components, kind)
	return nil
}

// GetComponent returns the component data of the entity
func (s *Store) GetComponent(id common.EntityID, kind ComponentKind) (interface{}, bool) {
	e, ok := s.entities[id]
	if !ok {
		return nil, false
	}
	return e.Component(kind)
}

// Clear despawns all entities
func (s *Store) Clear() {
	for _, id := range s.IDs() {
		_ = s.Despawn(id)
	}
}
