package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/profile"
	gwsim "github.com/xiaonanln/gwsim/engine"
	"github.com/xiaonanln/gwsim/engine/binutil"
	"github.com/xiaonanln/gwsim/engine/config"
	"github.com/xiaonanln/gwsim/engine/gwlog"
	"github.com/xiaonanln/gwsim/engine/statsd"
)

var (
	configFile   string
	runInDaemon  bool
	profileMode  string
	numInstances int
	numSpawn     int
	spawnType    string
	sigChan      = make(chan os.Signal, 1)
)

func parseArgs() {
	flag.StringVar(&configFile, "configfile", "", "set config file path")
	flag.BoolVar(&runInDaemon, "d", false, "run in daemon mode")
	flag.StringVar(&profileMode, "profile", "", "write a profile to the current directory: cpu or mem")
	flag.IntVar(&numInstances, "instances", 1, "number of instances to create")
	flag.IntVar(&numSpawn, "spawn", 0, "number of wandering entities to spawn in each instance")
	flag.StringVar(&spawnType, "type", "wanderer", "type name of spawned entities")
	flag.Parse()
}

func main() {
	parseArgs()

	if configFile != "" {
		config.SetConfigFile(configFile)
	}

	if runInDaemon {
		daemoncontext := binutil.Daemonize()
		defer daemoncontext.Release()
	}

	cfg := config.Get()
	binutil.SetupGWLog("gwsim", cfg.Log.Level, cfg.Log.File, cfg.Log.Stderr)
	fmt.Fprintf(os.Stderr, "Read config: \n%s\n", config.DumpPretty(cfg))

	if err := statsd.Init(cfg.Statsd.Address, cfg.Statsd.Tags); err != nil {
		gwlog.Errorf("statsd init failed: %v", err)
	}
	defer statsd.Close()

	if p := startProfile(profileMode); p != nil {
		defer p.Stop()
	}

	sim := gwsim.New(cfg, nil)
	for i := 0; i < numInstances; i++ {
		id, err := sim.CreateInstance()
		if err != nil {
			gwlog.Fatalf("create instance failed: %v", err)
		}
		if numSpawn > 0 {
			if err := sim.Populate(id, numSpawn, spawnType, int64(id)); err != nil {
				gwlog.Fatalf("%v", err)
			}
		}
	}

	setupSignals(sim)
	if err := sim.Start(); err != nil {
		gwlog.Fatalf("start simulation failed: %v", err)
	}
	sim.Wait()
}

func startProfile(mode string) interface{ Stop() } {
	switch mode {
	case "":
		return nil
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	case "mem":
		return profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	default:
		gwlog.Errorf("unknown profile mode: %s", mode)
		return nil
	}
}

func setupSignals(sim *gwsim.Simulation) {
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for {
			sig := <-sigChan

			if sig == syscall.SIGINT || sig == syscall.SIGTERM {
				// stop at the next tick boundary, main returns after Wait
				gwlog.Infof("%s received, stopping simulation ...", sig)
				sim.RequestStop()
			} else {
				gwlog.Infof("unexpected signal: %s", sig)
			}
		}
	}()
}
