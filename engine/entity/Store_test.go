package entity

import (
	"math"
	"testing"

	"github.com/bmizerany/assert"
	"github.com/xiaonanln/gwsim/engine/common"
	"github.com/xiaonanln/gwsim/engine/simerr"
	"github.com/xiaonanln/gwsim/engine/spatial"
)

func newTestStore(capacity int) (*Store, *spatial.Grid) {
	grid := spatial.NewGrid(16)
	return NewStore(1, capacity, grid), grid
}

func TestStoreCapacity(t *testing.T) {
	s, grid := newTestStore(2)
	e1, err := s.Spawn(State{})
	assert.Equal(t, nil, err)
	e2, err := s.Spawn(State{Position: common.Vector3{X: 20}})
	assert.Equal(t, nil, err)
	assert.T(t, e1 < e2)

	_, err = s.Spawn(State{})
	assert.T(t, simerr.Is(err, simerr.ErrCapacityExceeded))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 2, grid.Len())

	assert.Equal(t, nil, s.Despawn(e1))
	e3, err := s.Spawn(State{})
	assert.Equal(t, nil, err)
	assert.T(t, e3 > e2)
}

func TestStoreSpawnIndexed(t *testing.T) {
	s, grid := newTestStore(0)
	eid, err := s.Spawn(State{Position: common.Vector3{X: 5, Y: 5, Z: 5}})
	assert.Equal(t, nil, err)
	assert.T(t, grid.Contains(eid))
	assert.Equal(t, spatial.CellKey{X: 0, Y: 0, Z: 0}, grid.CellOf(common.Vector3{X: 5, Y: 5, Z: 5}))

	assert.Equal(t, nil, s.Move(eid, common.Vector3{X: 17}))
	pos, cell, ok := grid.Lookup(eid)
	assert.T(t, ok)
	assert.Equal(t, common.Vector3{X: 17}, pos)
	assert.Equal(t, spatial.CellKey{X: 1, Y: 0, Z: 0}, cell)

	v, ok := s.Get(eid)
	assert.T(t, ok)
	assert.Equal(t, common.Vector3{X: 17}, v.Position)

	assert.Equal(t, nil, s.Despawn(eid))
	assert.T(t, !grid.Contains(eid))
	_, ok = s.Get(eid)
	assert.T(t, !ok)
}

func TestStoreRejectsNonFinite(t *testing.T) {
	s, grid := newTestStore(0)
	_, err := s.Spawn(State{Position: common.Vector3{X: math.NaN()}})
	assert.T(t, simerr.Is(err, simerr.ErrInvalidPosition))
	_, err = s.Spawn(State{Velocity: common.Vector3{Z: math.Inf(-1)}})
	assert.T(t, simerr.Is(err, simerr.ErrInvalidPosition))
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, grid.Len())

	eid, err := s.Spawn(State{Position: common.Vector3{X: 1}})
	assert.Equal(t, nil, err)
	err = s.Move(eid, common.Vector3{Y: math.Inf(1)})
	assert.T(t, simerr.Is(err, simerr.ErrInvalidPosition))
	err = s.SetVelocity(eid, common.Vector3{X: math.NaN()})
	assert.T(t, simerr.Is(err, simerr.ErrInvalidPosition))

	v, ok := s.Get(eid)
	assert.T(t, ok)
	assert.Equal(t, common.Vector3{X: 1}, v.Position)
	assert.Equal(t, common.Vector3{}, v.Velocity)
	pos, _, _ := grid.Lookup(eid)
	assert.Equal(t, common.Vector3{X: 1}, pos)
}

func TestStoreNotFound(t *testing.T) {
	s, _ := newTestStore(0)
	assert.T(t, simerr.Is(s.Despawn(12345), simerr.ErrNotFound))
	assert.T(t, simerr.Is(s.Move(12345, common.Vector3{}), simerr.ErrNotFound))
	assert.T(t, simerr.Is(s.SetVelocity(12345, common.Vector3{}), simerr.ErrNotFound))
	assert.T(t, simerr.Is(s.SetComponent(12345, KindLifetime, Lifetime{Ticks: 1}), simerr.ErrNotFound))
}

func TestStoreDespawnDuringPass(t *testing.T) {
	s, grid := newTestStore(0)
	var ids []common.EntityID
	for i := 0; i < 5; i++ {
		eid, _ := s.Spawn(State{})
		ids = append(ids, eid)
	}

	var visited []common.EntityID
	s.ForEach(func(e *Entity) bool {
		visited = append(visited, e.ID)
		if e.ID == ids[1] {
			// despawn self and a later entity
			assert.Equal(t, nil, s.Despawn(ids[1]))
			assert.Equal(t, nil, s.Despawn(ids[3]))
			assert.Equal(t, nil, s.Despawn(ids[3]))
			assert.T(t, s.IsDespawnPending(ids[3]))
			assert.Equal(t, 5, s.Len())
		}
		return true
	})
	assert.Equal(t, ids, visited)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 3, grid.Len())
	assert.Equal(t, []common.EntityID{ids[0], ids[2], ids[4]}, s.IDs())
	assert.T(t, !s.IsDespawnPending(ids[3]))
}

func TestStoreSpawnDuringPass(t *testing.T) {
	s, grid := newTestStore(0)
	first, _ := s.Spawn(State{})

	var spawned common.EntityID
	visited := 0
	s.ForEach(func(e *Entity) bool {
		visited++
		spawned, _ = s.Spawn(State{})
		assert.T(t, grid.Contains(spawned))
		return true
	})
	assert.Equal(t, 1, visited)
	assert.Equal(t, []common.EntityID{first, spawned}, s.IDs())
}

func TestStoreDespawnPanicInPass(t *testing.T) {
	s, _ := newTestStore(0)
	eid, _ := s.Spawn(State{})
	func() {
		defer func() {
			recover()
		}()
		s.ForEach(func(e *Entity) bool {
			_ = s.Despawn(eid)
			panic("boom")
		})
	}()
	assert.Equal(t, 0, s.Len())
}

func TestStoreUniqueIDs(t *testing.T) {
	s, _ := newTestStore(0)
	seen := common.EntityIDSet{}
	for i := 0; i < 100; i++ {
		eid, err := s.Spawn(State{})
		assert.Equal(t, nil, err)
		assert.T(t, !seen.Contains(eid))
		seen.Add(eid)
		if i%3 == 0 {
			_ = s.Despawn(eid)
		}
	}
	assert.Equal(t, 100, len(seen))
}

func TestStoreComponents(t *testing.T) {
	s, _ := newTestStore(0)
	_, err := s.Spawn(State{Components: map[ComponentKind]interface{}{KindLifetime: Wander{}}})
	assert.T(t, simerr.Is(err, simerr.ErrInvalidComponent))
	assert.Equal(t, 0, s.Len())

	eid, err := s.Spawn(State{Components: map[ComponentKind]interface{}{KindTypeTag: TypeTag{Name: "monster"}}})
	assert.Equal(t, nil, err)
	e, _ := s.Entity(eid)
	assert.Equal(t, "monster", e.TypeName())

	err = s.SetComponent(eid, KindInterest, Interest{Radius: -1})
	assert.T(t, simerr.Is(err, simerr.ErrInvalidComponent))
	assert.T(t, !e.HasComponent(KindInterest))

	assert.Equal(t, nil, s.SetComponent(eid, KindInterest, Interest{Radius: 10}))
	data, ok := s.GetComponent(eid, KindInterest)
	assert.T(t, ok)
	assert.Equal(t, Interest{Radius: 10}, data)

	v, _ := s.Get(eid)
	v.Components[KindInterest] = Interest{Radius: 99}
	data, _ = s.GetComponent(eid, KindInterest)
	assert.Equal(t, Interest{Radius: 10}, data)

	assert.Equal(t, nil, s.RemoveComponent(eid, KindInterest))
	assert.T(t, !e.HasComponent(KindInterest))
}

func TestStoreExtractAdopt(t *testing.T) {
	s1, g1 := newTestStore(0)
	g2 := spatial.NewGrid(16)
	s2 := NewStore(2, 1, g2)

	removed := 0
	s1.SetOnRemove(func(e *Entity) { removed++ })

	eid, _ := s1.Spawn(State{Position: common.Vector3{X: 1}})
	e, err := s1.Extract(eid)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, removed)
	assert.T(t, !g1.Contains(eid))

	assert.Equal(t, nil, s2.Adopt(e))
	assert.Equal(t, common.InstanceID(2), e.Instance)
	assert.T(t, g2.Contains(eid))

	other, _ := s1.Spawn(State{})
	oe, _ := s1.Extract(other)
	assert.T(t, simerr.Is(s2.Adopt(oe), simerr.ErrCapacityExceeded))

	s2.ForEach(func(e *Entity) bool {
		_, err := s2.Extract(e.ID)
		assert.NotEqual(t, nil, err)
		return true
	})
}
