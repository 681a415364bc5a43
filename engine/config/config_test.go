package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/xiaonanln/gwsim/engine/gwlog"
)

func init() {
	SetConfigFile("../../sim.ini.sample")
}

func TestLoad(t *testing.T) {
	config := Get()
	if config == nil {
		t.FailNow()
	}
	gwlog.Debugf("sim config: \n%s", DumpPretty(config))
	assert.Equal(t, 50*time.Millisecond, config.Simulation.TickInterval)
	assert.Equal(t, 1, config.Simulation.BacklogLimit)
	assert.Equal(t, 16.0, config.Simulation.CellSize)
	assert.Equal(t, "127.0.0.1", GetDebug().HTTPIp)
}

func TestReload(t *testing.T) {
	Get()
	config := Reload()
	assert.T(t, config != nil)
}

func TestDefaults(t *testing.T) {
	config, err := Parse(nil)
	assert.Equal(t, nil, err)
	assert.Equal(t, 50*time.Millisecond, config.Simulation.TickInterval)
	assert.Equal(t, 1, config.Simulation.BacklogLimit)
	assert.Equal(t, 0, config.Simulation.InstanceCapacity)
	assert.T(t, config.Simulation.VerifyInvariants)
	assert.Equal(t, 0, config.Debug.HTTPPort)
	assert.Equal(t, 100*time.Millisecond, config.Debug.StreamInterval)
	assert.Equal(t, "sim.log", config.Log.File)
	assert.Equal(t, "", config.Statsd.Address)
}

func TestParse(t *testing.T) {
	config, err := Parse([]byte(`
[simulation]
tick_interval_ms = 20
backlog_limit = 3
cell_size = 8.5
instance_capacity = 1000
opmon_dump_interval = 60

[debug]
http_port = 18000

[log]
level = info
stderr = false

[statsd]
address = 127.0.0.1:8125
tags = env:test, shard:1
`))
	assert.Equal(t, nil, err)
	assert.Equal(t, 20*time.Millisecond, config.Simulation.TickInterval)
	assert.Equal(t, 3, config.Simulation.BacklogLimit)
	assert.Equal(t, 8.5, config.Simulation.CellSize)
	assert.Equal(t, 1000, config.Simulation.InstanceCapacity)
	assert.Equal(t, time.Minute, config.Simulation.OpmonDumpInterval)
	assert.Equal(t, 18000, config.Debug.HTTPPort)
	assert.Equal(t, "info", config.Log.Level)
	assert.T(t, !config.Log.Stderr)
	assert.Equal(t, "127.0.0.1:8125", config.Statsd.Address)
	assert.Equal(t, []string{"env:test", "shard:1"}, config.Statsd.Tags)
}

func TestParseErrors(t *testing.T) {
	bad := []string{
		"[simulation]\nunknown_key = 1\n",
		"[simulation]\ntick_interval_ms = 0\n",
		"[simulation]\ncell_size = -1\n",
		"[simulation]\nbacklog_limit = -1\n",
		"[debug]\nhttp_port = 70000\n",
		"[log]\nlevel = verbose\n",
	}
	for _, data := range bad {
		_, err := Parse([]byte(data))
		assert.Tf(t, err != nil, "should fail: %q", data)
	}
}

func TestMissingFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "gwsim-config")
	assert.Equal(t, nil, err)
	defer os.RemoveAll(dir)

	config, err := readConfigFile(filepath.Join(dir, "not_exist.ini"))
	assert.Equal(t, nil, err)
	assert.Equal(t, 50*time.Millisecond, config.Simulation.TickInterval)
}

func TestSetConfigFile(t *testing.T) {
	old := GetConfigFilePath()
	SetConfigFile("conf/sim.ini")
	assert.Equal(t, "conf/", GetConfigDir())
	SetConfigFile(old)
}
