package debugserver

import (
	"math/rand"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwsim/engine/common"
	"github.com/xiaonanln/gwsim/engine/consts"
	"github.com/xiaonanln/gwsim/engine/entity"
	"github.com/xiaonanln/gwsim/engine/gwlog"
	"github.com/xiaonanln/gwsim/engine/intent"
	"github.com/xiaonanln/gwsim/engine/simerr"
)

type commandResult struct {
	Command string `json:"cmd"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// handleCommand runs an operator command:
//
//	cmd=spawn&instance=1&count=100&type=zombie   spawns entities at random positions
//	cmd=intent&instance=1&op=move&entity=5&x=1   submits any intent, see intent.Decode for the arguments
//	cmd=pause, cmd=resume                        pauses or resumes the scheduler
//	cmd=shutdown                                 stops the simulation
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "command must be POST", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cmd := r.Form.Get("cmd")
	res := commandResult{Command: cmd}
	var err error
	switch cmd {
	case "spawn":
		res.Count, err = s.cmdSpawn(r)
	case "intent":
		err = s.cmdIntent(r)
	case "pause":
		err = s.sim.Pause()
	case "resume":
		err = s.sim.Resume()
	case "shutdown":
		gwlog.Infof("debugserver: shutdown requested by %s", r.RemoteAddr)
		s.sim.RequestStop()
	default:
		err = errors.Errorf("unknown command: %q", cmd)
	}

	if err != nil {
		gwlog.Warnf("debugserver: command %s failed: %v", cmd, err)
		res.Error = err.Error()
		writeJSON(w, commandErrorCode(err), res)
		return
	}
	res.OK = true
	writeJSON(w, http.StatusOK, res)
}

func commandErrorCode(err error) int {
	if simerr.Is(err, simerr.ErrNotFound) {
		return http.StatusNotFound
	}
	if simerr.Is(err, simerr.ErrDraining) {
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

func parseInstanceID(r *http.Request) (common.InstanceID, error) {
	s := r.Form.Get("instance")
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.Errorf("invalid instance: %q", s)
	}
	return common.InstanceID(id), nil
}

// cmdSpawn submits count spawn intents with random positions in a square around the origin
func (s *Server) cmdSpawn(r *http.Request) (int, error) {
	id, err := parseInstanceID(r)
	if err != nil {
		return 0, err
	}
	count := 1
	if countStr := r.Form.Get("count"); countStr != "" {
		if count, err = strconv.Atoi(countStr); err != nil || count <= 0 || count > consts.DEBUG_COMMAND_MAX_SPAWN {
			return 0, errors.Errorf("count must be in 1~%d: %q", consts.DEBUG_COMMAND_MAX_SPAWN, countStr)
		}
	}
	typeName := r.Form.Get("type")

	const spawnRange = consts.DEBUG_COMMAND_SPAWN_RANGE
	for i := 0; i < count; i++ {
		st := entity.State{
			Position: common.Vector3{
				X: rand.Float64()*2*spawnRange - spawnRange,
				Z: rand.Float64()*2*spawnRange - spawnRange,
			},
		}
		if typeName != "" {
			st.Components = map[entity.ComponentKind]interface{}{
				entity.KindTypeTag: entity.TypeTag{Name: typeName},
			}
		}
		if err := s.sim.Submit(id, intent.Spawn(st)); err != nil {
			return i, err
		}
	}
	gwlog.Infof("debugserver: spawning %d %q entities in Instance<%d>", count, typeName, id)
	return count, nil
}

func (s *Server) cmdIntent(r *http.Request) error {
	id, err := parseInstanceID(r)
	if err != nil {
		return err
	}
	args := map[string]interface{}{}
	for key, values := range r.Form {
		if key != "cmd" && key != "instance" && key != "op" && len(values) > 0 {
			args[key] = values[0]
		}
	}
	it, err := intent.Decode(r.Form.Get("op"), args)
	if err != nil {
		return err
	}
	return s.sim.Submit(id, it)
}
