// Package gwvar publishes simulation counters through expvar, served at /debug/vars of the debug server.
package gwvar

import "expvar"

// Bool is a boolean expvar
type Bool struct {
	val *expvar.Int
}

// NewBool creates and publishes a Bool
func NewBool(name string) *Bool {
	return &Bool{
		val: expvar.NewInt(name),
	}
}

// Value returns the current value
func (b *Bool) Value() bool {
	return b.val.Value() > 0
}

// Set sets the value
func (b *Bool) Set(v bool) {
	if v {
		b.val.Set(1)
	} else {
		b.val.Set(0)
	}
}

var (
	// Running is true while the scheduler is started and not stopped
	Running = NewBool("gwsim.running")
	// Ticks is the number of simulation ticks run
	Ticks = expvar.NewInt("gwsim.ticks")
	// Instances is the number of instances after the last tick
	Instances = expvar.NewInt("gwsim.instances")
	// Entities is the number of entities after the last tick
	Entities = expvar.NewInt("gwsim.entities")
	// Overruns is the number of tick overruns
	Overruns = expvar.NewInt("gwsim.overruns")
)
