package instance

import (
	"github.com/xiaonanln/go-aoi"
	"github.com/xiaonanln/gwsim/engine/common"
	"github.com/xiaonanln/gwsim/engine/entity"
)

// entityAOI is the aoi state of one entity
type entityAOI struct {
	aoi       aoi.AOI
	id        common.EntityID
	neighbors common.EntityIDSet
}

func (ea *entityAOI) OnEnterAOI(other *aoi.AOI) {
	ea.neighbors.Add(other.Data.(*entityAOI).id)
}

func (ea *entityAOI) OnLeaveAOI(other *aoi.AOI) {
	ea.neighbors.Del(other.Data.(*entityAOI).id)
}

// interestTracker maintains the aoi neighbours of all entities on the XZ plane
type interestTracker struct {
	distance float64
	aoiMgr   aoi.AOIManager
	aois     map[common.EntityID]*entityAOI
}

func newInterestTracker(distance float64) *interestTracker {
	return &interestTracker{
		distance: distance,
		aoiMgr:   aoi.NewXZListAOIManager(aoi.Coord(distance)),
		aois:     map[common.EntityID]*entityAOI{},
	}
}

func (it *interestTracker) enterOrMove(id common.EntityID, pos common.Vector3) {
	ea := it.aois[id]
	if ea == nil {
		ea = &entityAOI{id: id, neighbors: common.EntityIDSet{}}
		aoi.InitAOI(&ea.aoi, aoi.Coord(it.distance), ea, ea)
		it.aois[id] = ea
		it.aoiMgr.Enter(&ea.aoi, aoi.Coord(pos.X), aoi.Coord(pos.Z))
		return
	}
	it.aoiMgr.Moved(&ea.aoi, aoi.Coord(pos.X), aoi.Coord(pos.Z))
}

func (it *interestTracker) leave(id common.EntityID) {
	ea := it.aois[id]
	if ea == nil {
		return
	}
	it.aoiMgr.Leave(&ea.aoi)
	delete(it.aois, id)
}

// neighbors returns the aoi neighbours of the entity
func (it *interestTracker) neighbors(id common.EntityID) common.EntityIDSet {
	if ea := it.aois[id]; ea != nil {
		return ea.neighbors
	}
	return nil
}

func (it *interestTracker) len() int {
	return len(it.aois)
}

func (it *interestTracker) clear() {
	for id := range it.aois {
		it.leave(id)
	}
}

func (inst *Instance) updateInterest() {
	inst.store.ForEach(func(e *entity.Entity) bool {
		inst.interest.enterOrMove(e.ID, e.Position())
		return true
	})
}

// Neighbors returns the entities within the Interest radius of the entity, sorted by ID
//
// The radius is capped by the aoi distance of the instance.
func (inst *Instance) Neighbors(id common.EntityID) []common.EntityID {
	e, ok := inst.store.Entity(id)
	if !ok {
		return nil
	}
	data, ok := e.Component(entity.KindInterest)
	if !ok {
		return nil
	}
	radius := data.(entity.Interest).Radius
	radiusSq := radius * radius

	var neighbors []common.EntityID
	for nid := range inst.interest.neighbors(id) {
		other, ok := inst.store.Entity(nid)
		if ok && other.Position().DistanceSqTo(e.Position()) <= radiusSq {
			neighbors = append(neighbors, nid)
		}
	}
	common.SortEntityIDs(neighbors)
	return neighbors
}
