// Package opmon records the time spent in simulation operations such as tick phases.
package opmon

import (
	"sort"
	"sync"
	"time"

	"github.com/xiaonanln/gwsim/engine/gwlog"
	"github.com/xiaonanln/gwsim/engine/statsd"
)

var (
	operationAllocPool = sync.Pool{
		New: func() interface{} {
			return &Operation{}
		},
	}

	monitor = newMonitor()
)

type _OpInfo struct {
	count         uint64
	totalDuration time.Duration
	maxDuration   time.Duration
}

// OpStats is the statistics of one operation since the last dump
type OpStats struct {
	Name  string        `json:"name" msgpack:"name"`
	Count uint64        `json:"count" msgpack:"count"`
	Avg   time.Duration `json:"avg" msgpack:"avg"`
	Max   time.Duration `json:"max" msgpack:"max"`
}

type _Monitor struct {
	sync.Mutex
	opInfos map[string]*_OpInfo
}

func newMonitor() *_Monitor {
	m := &_Monitor{
		opInfos: map[string]*_OpInfo{},
	}
	return m
}

func (monitor *_Monitor) record(opname string, duration time.Duration) {
	monitor.Lock()
	info := monitor.opInfos[opname]
	if info == nil {
		info = &_OpInfo{}
		monitor.opInfos[opname] = info
	}
	info.count += 1
	info.totalDuration += duration
	if duration > info.maxDuration {
		info.maxDuration = duration
	}
	monitor.Unlock()
}

func (monitor *_Monitor) stats(reset bool) []OpStats {
	monitor.Lock()
	opInfos := monitor.opInfos
	if reset {
		monitor.opInfos = map[string]*_OpInfo{} // clear to be empty
	}
	stats := make([]OpStats, 0, len(opInfos))
	for name, info := range opInfos {
		stats = append(stats, OpStats{
			Name:  name,
			Count: info.count,
			Avg:   info.totalDuration / time.Duration(info.count),
			Max:   info.maxDuration,
		})
	}
	monitor.Unlock()

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Name < stats[j].Name
	})
	return stats
}

// Stats returns the statistics of all operations sorted by name
func Stats() []OpStats {
	return monitor.stats(false)
}

// Dump logs the statistics of all operations and clears them
func Dump() {
	stats := monitor.stats(true)
	if len(stats) == 0 {
		return
	}
	gwlog.Infof("opmon: =====================================================================")
	for _, st := range stats {
		gwlog.Infof("opmon: %-30sx%-10d AVG %-10s MAX %-10s", st.Name, st.Count, st.Avg, st.Max)
	}
}

// Operation is the type of operation to be monitored
type Operation struct {
	name      string
	startTime time.Time
}

// StartOperation creates a new operation
func StartOperation(operationName string) *Operation {
	op := operationAllocPool.Get().(*Operation)
	op.name = operationName
	op.startTime = time.Now()
	return op
}

// Finish finishes the operation and records the duration of operation
func (op *Operation) Finish(warnThreshold time.Duration) time.Duration {
	takeTime := time.Now().Sub(op.startTime)
	monitor.record(op.name, takeTime)
	statsd.EmitTickStat(op.startTime, op.name)
	if takeTime >= warnThreshold {
		gwlog.Warnf("opmon: operation %s takes %s > %s", op.name, takeTime, warnThreshold)
	}
	operationAllocPool.Put(op)
	return takeTime
}
