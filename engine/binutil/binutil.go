package binutil

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/xiaonanln/gwsim/engine/gwlog"
)

// SetupHTTPServer starts the HTTP server serving handler, it returns nil if port is 0
func SetupHTTPServer(ip string, port int, handler http.Handler) *http.Server {
	if port == 0 {
		gwlog.Infof("http server not enabled")
		return nil
	}

	httpHost := fmt.Sprintf("%s:%d", ip, port)
	gwlog.Infof("http server listening on %s", httpHost)
	gwlog.Infof("pprof http://%s/debug/pprof/ ... available commands: ", httpHost)
	gwlog.Infof("    go tool pprof http://%s/debug/pprof/heap", httpHost)
	gwlog.Infof("    go tool pprof http://%s/debug/pprof/profile", httpHost)
	gwlog.Infof("overlay frames: http://%s/snapshot, ws://%s/ws", httpHost, httpHost)

	server := &http.Server{Addr: httpHost, Handler: handler}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			gwlog.Errorf("http server on %s failed: %v", httpHost, err)
		}
	}()
	return server
}

// SetupGWLog setup the log system
func SetupGWLog(component string, logLevel string, logFile string, logStderr bool) {
	gwlog.SetSource(component)
	gwlog.Infof("Set log level to %s", logLevel)
	gwlog.SetLevel(gwlog.ParseLevel(logLevel))

	outputWriters := make([]io.Writer, 0, 2)
	if logFile != "" {
		logFileWriter := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100, // megabytes
			MaxBackups: 100,
			MaxAge:     30, //days
			Compress:   true,
		}

		logFileWriter.Rotate() // rotate immediately
		outputWriters = append(outputWriters, logFileWriter)
	}

	if logStderr {
		outputWriters = append(outputWriters, os.Stderr)
	}

	if len(outputWriters) == 0 {
		gwlog.SetOutputWriter(io.Discard)
	} else if len(outputWriters) == 1 {
		gwlog.SetOutputWriter(outputWriters[0])
	} else {
		gwlog.SetOutputWriter(io.MultiWriter(outputWriters...))
	}
}
