package main

import (
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "scar",
		Short: "Controlled disk states for file carving experiments.",
		Long: `scar fills a device with real or synthetic files, deletes and partially
overwrites a sample of them, and scores what a device still holds of a set
of reference files.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
)

var scarConf string
var scarDebug bool
var scarMetrics string
var scarSeed uint64

func init() {
	rootCmd.PersistentFlags().StringVar(&scarConf, "conf", "scar.conf", "Configuration file")
	rootCmd.PersistentFlags().BoolVar(&scarDebug, "debug", false, "Debug logging (trace)")
	rootCmd.PersistentFlags().StringVar(&scarMetrics, "metrics", "", "Prom metrics address")
	rootCmd.PersistentFlags().Uint64Var(&scarSeed, "seed", 0, "Random seed, 0 seeds from the clock")
}

func Execute() error {
	return rootCmd.Execute()
}
