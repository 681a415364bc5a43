package common

import (
	"fmt"
	"sync/atomic"
)

// EntityID identifies an entity for the whole lifetime of the process
//
// IDs are allocated from a single monotonic counter and are never reused, even after despawn
type EntityID uint64

// IsNil returns if EntityID is nil
func (id EntityID) IsNil() bool {
	return id == 0
}

func (id EntityID) String() string {
	return fmt.Sprintf("E%d", uint64(id))
}

var lastEntityID uint64

// GenEntityID generates a new EntityID
func GenEntityID() EntityID {
	return EntityID(atomic.AddUint64(&lastEntityID, 1))
}

// InstanceID identifies an instance (an independent simulated space)
type InstanceID uint32

// IsNil returns if InstanceID is nil
func (id InstanceID) IsNil() bool {
	return id == 0
}

func (id InstanceID) String() string {
	return fmt.Sprintf("I%d", uint32(id))
}
