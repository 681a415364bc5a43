package config

import (
	"encoding/json"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-ini/ini"
	"github.com/pkg/errors"
	"github.com/xiaonanln/gwsim/engine/consts"
	"github.com/xiaonanln/gwsim/engine/gwlog"
	"github.com/xiaonanln/gwsim/engine/gwutils"
	"github.com/xiaonanln/gwsim/engine/statsd"
)

const (
	_DEFAULT_CONFIG_FILE  = "sim.ini"
	_DEFAULT_HTTP_IP      = "127.0.0.1"
	_DEFAULT_LOG_LEVEL    = "debug"
	_DEFAULT_LOG_FILE     = "sim.log"
	_MAX_TICK_INTERVAL_MS = 60 * 1000
)

var (
	configFilePath = _DEFAULT_CONFIG_FILE
	simConfig      *SimConfig
	configLock     sync.Mutex
)

// SimulationConfig defines fields of the [simulation] section
type SimulationConfig struct {
	TickInterval        time.Duration
	BacklogLimit        int
	CellSize            float64
	InstanceCapacity    int
	AOIDistance         float64
	VerifyInvariants    bool
	SnapshotEntities    bool
	SnapshotMaxEntities int
	OpmonDumpInterval   time.Duration
}

// DebugConfig defines fields of the [debug] section
type DebugConfig struct {
	HTTPIp         string
	HTTPPort       int
	StreamInterval time.Duration
}

// LogConfig defines fields of the [log] section
type LogConfig struct {
	Level  string
	File   string
	Stderr bool
}

// StatsdConfig defines fields of the [statsd] section
type StatsdConfig struct {
	Address string
	Tags    []string
}

// SimConfig defines the total config file structure
type SimConfig struct {
	Simulation SimulationConfig
	Debug      DebugConfig
	Log        LogConfig
	Statsd     StatsdConfig
}

// SetConfigFile sets the config file path (sim.ini by default)
func SetConfigFile(f string) {
	configFilePath = f
}

// GetConfigDir returns the directory of the config file
func GetConfigDir() string {
	dir, _ := path.Split(configFilePath)
	return dir
}

// GetConfigFilePath returns the config file path
func GetConfigFilePath() string {
	return configFilePath
}

// Get returns the total config
func Get() *SimConfig {
	configLock.Lock()
	defer configLock.Unlock()
	if simConfig == nil {
		cfg, err := readConfigFile(configFilePath)
		if err != nil {
			gwlog.Panic(err)
		}
		simConfig = cfg
	}
	return simConfig
}

// Reload forces to reload the whole config
func Reload() *SimConfig {
	configLock.Lock()
	simConfig = nil
	configLock.Unlock()

	return Get()
}

// GetSimulation returns the simulation config
func GetSimulation() *SimulationConfig {
	return &Get().Simulation
}

// GetDebug returns the debug config
func GetDebug() *DebugConfig {
	return &Get().Debug
}

// GetLog returns the log config
func GetLog() *LogConfig {
	return &Get().Log
}

// GetStatsd returns the statsd config
func GetStatsd() *StatsdConfig {
	return &Get().Statsd
}

// DumpPretty format config to string in pretty format
func DumpPretty(cfg interface{}) string {
	s, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err.Error()
	}
	return string(s)
}

func readConfigFile(file string) (*SimConfig, error) {
	if _, err := os.Stat(file); os.IsNotExist(err) {
		gwlog.Warnf("Config file %s not found, using default config", file)
		return Parse(nil)
	}
	gwlog.Infof("Using config file: %s", file)
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "read config error")
	}
	return Parse(data)
}

// Parse reads config from ini data. Missing keys keep their default values.
func Parse(data []byte) (*SimConfig, error) {
	var config SimConfig
	setDefaults(&config)
	if len(data) == 0 {
		return &config, nil
	}

	iniFile, err := ini.Load(data)
	if err != nil {
		return nil, errors.Wrap(err, "read config error")
	}

	err = gwutils.CatchPanic(func() error {
		for _, sec := range iniFile.Sections() {
			secName := strings.ToLower(sec.Name())
			if secName == "default" {
				if len(sec.Keys()) > 0 {
					gwlog.Panicf("keys must be in a section: %s", sec.KeyStrings())
				}
				continue
			}

			if secName == "simulation" {
				readSimulationConfig(sec, &config.Simulation)
			} else if secName == "debug" {
				readDebugConfig(sec, &config.Debug)
			} else if secName == "log" {
				readLogConfig(sec, &config.Log)
			} else if secName == "statsd" {
				readStatsdConfig(sec, &config.Statsd)
			} else {
				gwlog.Errorf("unknown section: %s", secName)
			}
		}
		return validateConfig(&config)
	})
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(config *SimConfig) {
	config.Simulation = SimulationConfig{
		TickInterval:     consts.DEFAULT_TICK_INTERVAL,
		BacklogLimit:     consts.DEFAULT_BACKLOG_LIMIT,
		CellSize:         consts.DEFAULT_CELL_SIZE,
		InstanceCapacity: 0, // unlimited
		AOIDistance:      consts.DEFAULT_AOI_DISTANCE,
		VerifyInvariants: true,
		SnapshotEntities: true,
	}
	config.Debug = DebugConfig{
		HTTPIp:         _DEFAULT_HTTP_IP,
		HTTPPort:       0, // debug server not enabled by default
		StreamInterval: consts.DEFAULT_STREAM_INTERVAL,
	}
	config.Log = LogConfig{
		Level:  _DEFAULT_LOG_LEVEL,
		File:   _DEFAULT_LOG_FILE,
		Stderr: true,
	}
}

func readSimulationConfig(sec *ini.Section, sc *SimulationConfig) {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "tick_interval_ms" {
			sc.TickInterval = time.Millisecond * time.Duration(key.MustInt(int(sc.TickInterval/time.Millisecond)))
		} else if name == "backlog_limit" {
			sc.BacklogLimit = key.MustInt(sc.BacklogLimit)
		} else if name == "cell_size" {
			sc.CellSize = key.MustFloat64(sc.CellSize)
		} else if name == "instance_capacity" {
			sc.InstanceCapacity = key.MustInt(sc.InstanceCapacity)
		} else if name == "aoi_distance" {
			sc.AOIDistance = key.MustFloat64(sc.AOIDistance)
		} else if name == "verify_invariants" {
			sc.VerifyInvariants = key.MustBool(sc.VerifyInvariants)
		} else if name == "snapshot_entities" {
			sc.SnapshotEntities = key.MustBool(sc.SnapshotEntities)
		} else if name == "snapshot_max_entities" {
			sc.SnapshotMaxEntities = key.MustInt(sc.SnapshotMaxEntities)
		} else if name == "opmon_dump_interval" {
			sc.OpmonDumpInterval = time.Second * time.Duration(key.MustInt(int(sc.OpmonDumpInterval/time.Second)))
		} else {
			gwlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func readDebugConfig(sec *ini.Section, dc *DebugConfig) {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "http_ip" {
			dc.HTTPIp = key.MustString(dc.HTTPIp)
		} else if name == "http_port" {
			dc.HTTPPort = key.MustInt(dc.HTTPPort)
		} else if name == "stream_interval_ms" {
			dc.StreamInterval = time.Millisecond * time.Duration(key.MustInt(int(dc.StreamInterval/time.Millisecond)))
		} else {
			gwlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func readLogConfig(sec *ini.Section, lc *LogConfig) {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "level" {
			lc.Level = key.MustString(lc.Level)
		} else if name == "file" {
			lc.File = key.MustString(lc.File)
		} else if name == "stderr" {
			lc.Stderr = key.MustBool(lc.Stderr)
		} else {
			gwlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func readStatsdConfig(sec *ini.Section, sc *StatsdConfig) {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "address" {
			sc.Address = key.MustString(sc.Address)
		} else if name == "tags" {
			sc.Tags = statsd.ParseTags(key.MustString(""))
		} else {
			gwlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func validateConfig(config *SimConfig) error {
	sc := &config.Simulation
	if sc.TickInterval <= 0 || sc.TickInterval > _MAX_TICK_INTERVAL_MS*time.Millisecond {
		return errors.Errorf("tick_interval_ms must be in 1~%d: %s", _MAX_TICK_INTERVAL_MS, sc.TickInterval)
	}
	if sc.BacklogLimit < 0 {
		return errors.Errorf("backlog_limit must not be negative: %d", sc.BacklogLimit)
	}
	if sc.CellSize <= 0 {
		return errors.Errorf("cell_size must be positive: %v", sc.CellSize)
	}
	if sc.InstanceCapacity < 0 {
		return errors.Errorf("instance_capacity must not be negative: %d", sc.InstanceCapacity)
	}
	if sc.AOIDistance < 0 {
		return errors.Errorf("aoi_distance must not be negative: %v", sc.AOIDistance)
	}
	if sc.SnapshotMaxEntities < 0 {
		return errors.Errorf("snapshot_max_entities must not be negative: %d", sc.SnapshotMaxEntities)
	}

	dc := &config.Debug
	if dc.HTTPPort < 0 || dc.HTTPPort > 65535 {
		return errors.Errorf("invalid http_port: %d", dc.HTTPPort)
	}
	if dc.StreamInterval <= 0 {
		return errors.Errorf("stream_interval_ms must be positive: %s", dc.StreamInterval)
	}

	switch strings.ToLower(config.Log.Level) {
	case "debug", "info", "warn", "warning", "error", "panic", "fatal":
	default:
		return errors.Errorf("invalid log level: %s", config.Log.Level)
	}
	return nil
}
