package main

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"time"

	"github.com/dnaforensics/scar/pkg/config"
	"github.com/dnaforensics/scar/pkg/metrics"
	scarprom "github.com/dnaforensics/scar/pkg/metrics/prometheus"
	"github.com/dnaforensics/scar/pkg/volume"
	"github.com/loopholelabs/logging"
	"github.com/loopholelabs/logging/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func exactArgs(n int) cobra.PositionalArgs {
	return rangeArgs(n, n)
}

func rangeArgs(minArgs int, maxArgs int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < minArgs || len(args) > maxArgs {
			return usageError("usage: %s", cmd.UseLine())
		}
		return nil
	}
}

// newLogger returns nil unless --debug or a verbosity was asked for.
func newLogger(name string, verbosity int) types.Logger {
	var log types.RootLogger
	switch {
	case scarDebug || verbosity > 1:
		log = logging.New(logging.Zerolog, "scar."+name, os.Stderr)
		log.SetLevel(types.TraceLevel)
	case verbosity == 1:
		log = logging.New(logging.Zerolog, "scar."+name, os.Stderr)
		log.SetLevel(types.DebugLevel)
	}
	return log
}

func loadConfig() (*config.ScarSchema, error) {
	conf, err := config.ReadSchema(scarConf)
	if err != nil {
		return nil, usageError("bad configuration %s: %v", scarConf, err)
	}
	return conf, nil
}

// newRand prints the seed so a run can be repeated with --seed.
func newRand() *rand.Rand {
	seed := scarSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	fmt.Printf("Using seed %d\n", seed)
	return rand.New(rand.NewPCG(seed, seed^0x5ca7))
}

/**
 * startMetrics serves prometheus metrics on --metrics, if given. The
 * returned Recorder is nil when metrics are off.
 *
 */
func startMetrics() (metrics.Recorder, func()) {
	if scarMetrics == "" {
		return nil, func() {}
	}

	reg := prometheus.NewRegistry()
	met := scarprom.New(reg, scarprom.DefaultConfig())

	// Add the default go metrics
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	http.Handle("/metrics", promhttp.HandlerFor(
		reg,
		promhttp.HandlerOpts{
			// Opt into OpenMetrics to support exemplars.
			EnableOpenMetrics: true,
			// Pass custom registry
			Registry: reg,
		},
	))

	go http.ListenAndServe(scarMetrics, nil)
	return met, met.Shutdown
}

// openVolume checks the mount point before anything is written to it.
func openVolume(mountpoint string, image bool) (volume.Volume, error) {
	if image {
		img, err := volume.OpenImage(mountpoint, 0)
		if err != nil {
			return nil, usageError("The image %s could not be opened: %v", mountpoint, err)
		}
		return img, nil
	}
	dir, err := volume.NewDir(mountpoint)
	if err != nil {
		return nil, usageError("The directory (mountpoint) %s does not seem to exist.", mountpoint)
	}
	return dir, nil
}

// printUsage shows how full a mounted volume is. Images are skipped.
func printUsage(vol volume.Volume) {
	dir, ok := vol.(*volume.Dir)
	if !ok {
		return
	}
	u, err := dir.Usage()
	if err != nil {
		return
	}
	fmt.Printf("%s: %d of %d bytes used (%.1f%%)\n", dir.Root(), u.Used, u.Total, u.UsedPercent)
}
