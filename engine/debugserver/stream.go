package debugserver

import (
	"net/http"
	"time"

	"github.com/vmihailenco/msgpack"
	"github.com/xiaonanln/gwsim/engine/consts"
	"github.com/xiaonanln/gwsim/engine/gwioutil"
	"github.com/xiaonanln/gwsim/engine/gwlog"
	"github.com/xiaonanln/gwsim/engine/telemetry"
	"golang.org/x/net/websocket"
)

func writeMsgpack(w http.ResponseWriter, v interface{}) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-msgpack")
	if _, err := w.Write(data); err != nil {
		gwlog.Debugf("debugserver: write response failed: %v", err)
	}
}

// handleWebSocketConn pushes the newest frame to the overlay client in msgpack binary messages,
// at most once per stream interval. Frames published in between are skipped.
func (s *Server) handleWebSocketConn(wsConn *websocket.Conn) {
	defer wsConn.Close()
	wsConn.PayloadType = websocket.BinaryFrame

	bridge := s.sim.Bridge()
	notify := bridge.Subscribe()
	defer bridge.Unsubscribe(notify)

	select {
	case <-s.closed:
		return
	default:
	}

	gwlog.Infof("debugserver: overlay client %s connected", wsConn.Request().RemoteAddr)
	closed := make(chan struct{})
	go func() {
		// the overlay is read-only, so anything sent by the client is discarded until it disconnects
		var msg []byte
		for websocket.Message.Receive(wsConn, &msg) == nil {
		}
		close(closed)
	}()

	var lastSeq uint64
	for {
		select {
		case <-notify:
		case <-closed:
			gwlog.Infof("debugserver: overlay client %s disconnected", wsConn.Request().RemoteAddr)
			return
		case <-s.closed:
			gwlog.Infof("debugserver: closing overlay client %s", wsConn.Request().RemoteAddr)
			return
		}

		frame, ok := bridge.Latest()
		if !ok || frame.Sequence == lastSeq {
			continue
		}
		data, err := telemetry.EncodeMsgpack(frame)
		if err != nil {
			gwlog.Errorf("debugserver: encode frame %d failed: %v", frame.Sequence, err)
			continue
		}
		wsConn.SetWriteDeadline(time.Now().Add(consts.OVERLAY_WRITE_TIMEOUT))
		if err := websocket.Message.Send(wsConn, data); err != nil {
			if gwioutil.IsTimeoutError(err) {
				gwlog.Warnf("debugserver: overlay client %s is too slow, dropped", wsConn.Request().RemoteAddr)
			} else if !gwioutil.IsClosedError(err) {
				gwlog.Infof("debugserver: send to overlay client failed: %v", err)
			}
			return
		}
		lastSeq = frame.Sequence

		select {
		case <-time.After(s.streamInterval):
		case <-closed:
			return
		case <-s.closed:
			return
		}
	}
}
