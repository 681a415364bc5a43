package binutil

import (
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/bmizerany/assert"
	"github.com/xiaonanln/gwsim/engine/gwlog"
)

func TestSetupGWLog(t *testing.T) {
	dir, err := ioutil.TempDir("", "gwsim-log")
	assert.Equal(t, nil, err)
	defer os.RemoveAll(dir)
	defer gwlog.SetOutput([]string{"stderr"})

	logFile := filepath.Join(dir, "test.log")
	SetupGWLog("test", "info", logFile, false)
	assert.Equal(t, gwlog.InfoLevel, gwlog.GetLevel())
	gwlog.Infof("hello log file")

	data, err := ioutil.ReadFile(logFile)
	assert.Equal(t, nil, err)
	assert.T(t, len(data) > 0)
	gwlog.SetLevel(gwlog.DebugLevel)
}

func TestSetupHTTPServerDisabled(t *testing.T) {
	assert.T(t, SetupHTTPServer("127.0.0.1", 0, http.NotFoundHandler()) == nil)
}
