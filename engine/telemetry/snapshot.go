package telemetry

import (
	"time"

	"github.com/vmihailenco/msgpack"
	"github.com/xiaonanln/gwsim/engine/common"
	"github.com/xiaonanln/gwsim/engine/opmon"
	"github.com/xiaonanln/gwsim/engine/spatial"
)

// EntitySnapshot is the captured state of one entity
type EntitySnapshot struct {
	ID        common.EntityID   `json:"id" msgpack:"id"`
	Type      string            `json:"type,omitempty" msgpack:"type"`
	Position  common.Vector3    `json:"pos" msgpack:"pos"`
	Velocity  common.Vector3    `json:"vel" msgpack:"vel"`
	Cell      spatial.CellKey   `json:"cell" msgpack:"cell"`
	Neighbors []common.EntityID `json:"neighbors,omitempty" msgpack:"neighbors"`
}

// CellSnapshot is the entity count of one occupied cell
type CellSnapshot struct {
	Key   spatial.CellKey `json:"key" msgpack:"key"`
	Count int             `json:"count" msgpack:"count"`
}

// InstanceSnapshot is the captured state of one instance after a tick
type InstanceSnapshot struct {
	ID           common.InstanceID `json:"id" msgpack:"id"`
	Tick         uint64            `json:"tick" msgpack:"tick"`
	EntityCount  int               `json:"entity_count" msgpack:"entity_count"`
	Capacity     int               `json:"capacity" msgpack:"capacity"`
	CellSize     float64           `json:"cell_size" msgpack:"cell_size"`
	Draining     bool              `json:"draining" msgpack:"draining"`
	Quarantined  bool              `json:"quarantined" msgpack:"quarantined"`
	Fault        string            `json:"fault,omitempty" msgpack:"fault"`
	TickDuration time.Duration     `json:"tick_duration" msgpack:"tick_duration"`
	// Entities is sorted by ID. It is truncated when the instance has more entities than the snapshot limit.
	Entities  []EntitySnapshot `json:"entities,omitempty" msgpack:"entities"`
	Truncated bool             `json:"truncated,omitempty" msgpack:"truncated"`
	// Cells is sorted by key
	Cells []CellSnapshot `json:"cells,omitempty" msgpack:"cells"`
}

// Frame is an immutable snapshot of all instances after one scheduler tick
//
// A published frame is shared by all readers and must never be modified.
type Frame struct {
	Sequence     uint64             `json:"seq" msgpack:"seq"`
	CapturedAt   time.Time          `json:"captured_at" msgpack:"captured_at"`
	TickDuration time.Duration      `json:"tick_duration" msgpack:"tick_duration"`
	Instances    []InstanceSnapshot `json:"instances" msgpack:"instances"`
	Ops          []opmon.OpStats    `json:"ops,omitempty" msgpack:"ops"`
}

// EntityCount returns the total number of entities in all instances
func (f *Frame) EntityCount() int {
	n := 0
	for i := range f.Instances {
		n += f.Instances[i].EntityCount
	}
	return n
}

// Instance returns the snapshot of the instance
func (f *Frame) Instance(id common.InstanceID) (*InstanceSnapshot, bool) {
	for i := range f.Instances {
		if f.Instances[i].ID == id {
			return &f.Instances[i], true
		}
	}
	return nil, false
}

// EncodeMsgpack encodes the frame for overlay consumers
func EncodeMsgpack(f *Frame) ([]byte, error) {
	return msgpack.Marshal(f)
}

// DecodeMsgpack decodes a frame encoded by EncodeMsgpack
func DecodeMsgpack(data []byte) (*Frame, error) {
	var f Frame
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
