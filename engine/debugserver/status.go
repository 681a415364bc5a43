package debugserver

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
	"github.com/xiaonanln/gwsim/engine/gwlog"
	"github.com/xiaonanln/gwsim/engine/opmon"
)

type processStatus struct {
	proc      *process.Process
	startTime time.Time
}

func newProcessStatus() *processStatus {
	pid := os.Getpid()
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		gwlog.Errorf("debugserver: can not find process: pid = %v: %v", pid, err)
	}
	return &processStatus{proc: p, startTime: time.Now()}
}

// Status is the response of /status
type Status struct {
	Pid             int             `json:"pid"`
	Uptime          string          `json:"uptime"`
	Goroutines      int             `json:"goroutines"`
	CPUPercent      float64         `json:"cpu_percent"`
	RSS             uint64          `json:"rss"`
	SchedulerState  string          `json:"scheduler_state"`
	Ticks           uint64          `json:"ticks"`
	FramesPublished uint64          `json:"frames_published"`
	Subscribers     int             `json:"subscribers"`
	Entities        int             `json:"entities"`
	Ops             []opmon.OpStats `json:"ops"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	bridge := s.sim.Bridge()
	st := Status{
		Pid:             os.Getpid(),
		Uptime:          time.Since(s.status.startTime).Truncate(time.Second).String(),
		Goroutines:      runtime.NumGoroutine(),
		SchedulerState:  s.sim.SchedulerState().String(),
		Ticks:           s.sim.TickCount(),
		FramesPublished: bridge.Published(),
		Subscribers:     bridge.Subscribers(),
		Ops:             opmon.Stats(),
	}
	if frame, ok := bridge.Latest(); ok {
		st.Entities = frame.EntityCount()
	}

	if p := s.status.proc; p != nil {
		if cpu, err := p.CPUPercent(); err == nil {
			st.CPUPercent = cpu
		} else {
			gwlog.Warnf("debugserver: get process cpu percent failed: %v", err)
		}
		if mem, err := p.MemoryInfo(); err == nil {
			st.RSS = mem.RSS
		} else {
			gwlog.Warnf("debugserver: get process memory info failed: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, st)
}
