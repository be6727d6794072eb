package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/dnaforensics/scar/pkg/archive"
	"github.com/dnaforensics/scar/pkg/entropy"
	"github.com/dnaforensics/scar/pkg/erase"
	"github.com/dnaforensics/scar/pkg/flush"
	"github.com/dnaforensics/scar/pkg/sector"
	"github.com/dnaforensics/scar/pkg/volume"
	"github.com/spf13/cobra"
)

var (
	cmdErase = &cobra.Command{
		Use:   "erase <mountpoint> <patterndest> [<percent>] [<numfiles>]",
		Short: "Delete a random sample of files, optionally overwriting part of them first",
		Long: `Copies numfiles randomly chosen files from the mount point into patterndest,
overwrites percent of the sectors of each (percent of every chosen sector)
when percent is above 0, and then deletes them from the mount point.`,
		Args: rangeArgs(2, 4),
		RunE: runErase,
	}
)

var erasePattern string

func init() {
	rootCmd.AddCommand(cmdErase)
	cmdErase.Flags().StringVar(&erasePattern, "pattern", "", "File name pattern (overrides erase.pattern)")
}

func runErase(cmd *cobra.Command, args []string) error {
	log := newLogger("erase", 0)

	conf, err := loadConfig()
	if err != nil {
		return err
	}

	percent := conf.Erase.Percent
	if len(args) >= 3 {
		percent, err = strconv.Atoi(args[2])
		if err != nil || percent < 0 || percent > 100 {
			return usageError("percent must be a whole number from 0 to 100, not %q\nusage: %s", args[2], cmd.UseLine())
		}
	}
	numFiles := conf.Erase.NumFiles
	if len(args) >= 4 {
		numFiles, err = strconv.Atoi(args[3])
		if err != nil || numFiles < 0 {
			return usageError("numfiles must be a whole number of at least 0, not %q\nusage: %s", args[3], cmd.UseLine())
		}
	}
	pattern := conf.Erase.Pattern
	if erasePattern != "" {
		pattern = erasePattern
	}

	target, err := volume.NewDir(args[0])
	if err != nil {
		return usageError("One of the two directories does not seem to exist.")
	}
	ref, err := volume.NewDir(args[1])
	if err != nil {
		return usageError("One of the two directories does not seem to exist.")
	}

	rec, stopMetrics := startMetrics()
	defer stopMetrics()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ec := erase.NewConfig().
		WithLogger(log).
		WithMetrics(rec).
		WithOutput(os.Stdout).
		WithRand(newRand()).
		WithFlusher(flush.New(conf.Flush.Command)).
		WithPattern(pattern).
		WithPercent(percent).
		WithNumFiles(numFiles)

	if percent > 0 {
		junk, err := entropy.System(sector.Size)
		if err != nil {
			return err
		}
		ec = ec.WithJunk(junk)
	}

	if conf.Archive != nil {
		a := conf.Archive
		s3, err := archive.NewS3(ctx, a.Endpoint, a.AccessKey, a.SecretKey, a.Bucket, a.Secure, log)
		if err != nil {
			fmt.Printf("Archive unavailable, continuing without it: %v\n", err)
		} else {
			ec = ec.WithArchiver(s3)
		}
	}

	printUsage(target)
	e, err := erase.NewEraser(target.Root(), ref, ec)
	if err != nil {
		return err
	}

	res, err := e.Run(ctx)
	if err != nil {
		return err
	}
	printUsage(target)
	fmt.Printf("Deleted %d files, run %s\n", res.Deleted, e.UUID())
	return nil
}
