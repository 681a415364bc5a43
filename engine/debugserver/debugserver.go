// Package debugserver serves the debug overlay: telemetry frames over HTTP and websocket,
// process status, operator commands and pprof.
//
// The overlay never touches simulation state directly. Reads go through the telemetry bridge and
// writes go through the intent feed or the scheduler controls.
package debugserver

import (
	"encoding/json"
	"expvar"
	"net/http"
	"net/http/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/xiaonanln/gwsim/engine/common"
	"github.com/xiaonanln/gwsim/engine/consts"
	"github.com/xiaonanln/gwsim/engine/gwlog"
	"github.com/xiaonanln/gwsim/engine/intent"
	"github.com/xiaonanln/gwsim/engine/scheduler"
	"github.com/xiaonanln/gwsim/engine/telemetry"
	"golang.org/x/net/websocket"
)

// Simulation is the part of the simulation that the debug server can observe and control
type Simulation interface {
	Bridge() *telemetry.Bridge
	Submit(id common.InstanceID, it intent.Intent) error
	Pause() error
	Resume() error
	RequestStop()
	SchedulerState() scheduler.State
	TickCount() uint64
}

// Server is the debug HTTP server
type Server struct {
	sim            Simulation
	streamInterval time.Duration
	mux            *http.ServeMux
	status         *processStatus

	closeOnce sync.Once
	closed    chan struct{}
}

// New creates the debug server handler for sim
func New(sim Simulation, streamInterval time.Duration) *Server {
	if streamInterval <= 0 {
		streamInterval = consts.DEFAULT_STREAM_INTERVAL
	}
	s := &Server{
		sim:            sim,
		streamInterval: streamInterval,
		mux:            http.NewServeMux(),
		status:         newProcessStatus(),
		closed:         make(chan struct{}),
	}
	s.mux.HandleFunc("/snapshot", s.handleSnapshot)
	s.mux.HandleFunc("/instances", s.handleInstances)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/command", s.handleCommand)
	s.mux.Handle("/ws", websocket.Handler(s.handleWebSocketConn))
	s.mux.Handle("/debug/vars", expvar.Handler())
	s.mux.HandleFunc("/debug/pprof/", pprof.Index)
	s.mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	s.mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	s.mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	s.mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return s
}

// Close disconnects all overlay websocket clients. http.Server.Close does not close hijacked connections,
// so Close must be called when the simulation stops. New websocket clients are rejected after Close.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleSnapshot serves the latest frame, or one instance of it with ?instance=ID
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	frame, ok := s.sim.Bridge().Latest()
	if !ok {
		http.Error(w, "no frame published yet", http.StatusServiceUnavailable)
		return
	}

	var body interface{} = frame
	if idStr := r.URL.Query().Get("instance"); idStr != "" {
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			http.Error(w, "invalid instance: "+idStr, http.StatusBadRequest)
			return
		}
		snap, ok := frame.Instance(common.InstanceID(id))
		if !ok {
			http.Error(w, "instance not found: "+idStr, http.StatusNotFound)
			return
		}
		body = snap
	}

	if r.URL.Query().Get("format") == "msgpack" {
		writeMsgpack(w, body)
	} else {
		writeJSON(w, http.StatusOK, body)
	}
}

type instanceInfo struct {
	ID          common.InstanceID `json:"id"`
	Tick        uint64            `json:"tick"`
	EntityCount int               `json:"entity_count"`
	Cells       int               `json:"cells"`
	Draining    bool              `json:"draining"`
	Quarantined bool              `json:"quarantined"`
	Fault       string            `json:"fault,omitempty"`
}

func (s *Server) handleInstances(w http.ResponseWriter, r *http.Request) {
	infos := []instanceInfo{}
	if frame, ok := s.sim.Bridge().Latest(); ok {
		for _, snap := range frame.Instances {
			infos = append(infos, instanceInfo{
				ID:          snap.ID,
				Tick:        snap.Tick,
				EntityCount: snap.EntityCount,
				Cells:       len(snap.Cells),
				Draining:    snap.Draining,
				Quarantined: snap.Quarantined,
				Fault:       snap.Fault,
			})
		}
	}
	writeJSON(w, http.StatusOK, infos)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		gwlog.Debugf("debugserver: write response failed: %v", err)
	}
}
