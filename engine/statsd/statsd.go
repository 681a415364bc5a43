// Package statsd wraps the statsd metrics sink of the simulation.
//
// The default client discards all metrics, so the simulation runs the same with or without a statsd agent.
package statsd

import (
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/pkg/errors"
	"github.com/xiaonanln/gwsim/engine/common"
	"github.com/xiaonanln/gwsim/engine/gwlog"
)

const namespace = "gwsim"

var client ddstatsd.ClientInterface = &ddstatsd.NoOpClient{}

// Client returns the current statsd client
func Client() ddstatsd.ClientInterface {
	return client
}

// SetClient replaces the statsd client and returns the old one
func SetClient(c ddstatsd.ClientInterface) ddstatsd.ClientInterface {
	old := client
	client = c
	return old
}

// Init connects to the statsd agent at address
func Init(address string, tags []string) error {
	if address == "" {
		return errors.New("statsd address must not be empty")
	}
	opts := []ddstatsd.Option{
		ddstatsd.WithNamespace(namespace),
	}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}

	newClient, err := ddstatsd.New(address, opts...)
	if err != nil {
		return errors.Wrap(err, "statsd")
	}
	client = newClient
	gwlog.Infof("statsd: sending metrics to %s, tags %v", address, tags)
	return nil
}

// Close flushes and closes the current client
func Close() {
	if err := client.Close(); err != nil {
		gwlog.Warnf("statsd: close failed: %v", err)
	}
	client = &ddstatsd.NoOpClient{}
}

// ParseTags splits a comma separated tag list, duplicated tags are removed and the result is sorted
func ParseTags(s string) []string {
	return common.SplitStringSet(s).ToList()
}

// EmitTickStat reports the time spent since start in a tick stage
func EmitTickStat(start time.Time, stage string) {
	if err := client.Timing("tick", time.Since(start), []string{"stage:" + stage}, 1); err != nil {
		gwlog.Warnf("statsd: failed to emit tick stat: %v", err)
	}
}

// Incr increments a counter
func Incr(name string, tags ...string) {
	if err := client.Incr(name, tags, 1); err != nil {
		gwlog.Warnf("statsd: failed to incr %s: %v", name, err)
	}
}

// Count adds value to a counter
func Count(name string, value int64, tags ...string) {
	if err := client.Count(name, value, tags, 1); err != nil {
		gwlog.Warnf("statsd: failed to count %s: %v", name, err)
	}
}

// Gauge records the current value of a gauge
func Gauge(name string, value float64, tags ...string) {
	if err := client.Gauge(name, value, tags, 1); err != nil {
		gwlog.Warnf("statsd: failed to gauge %s: %v", name, err)
	}
}
