package main

import (
	"fmt"
	"os"

	"github.com/dnaforensics/scar/pkg/entropy"
	"github.com/dnaforensics/scar/pkg/maxout"
	"github.com/spf13/cobra"
)

var (
	cmdMaxout = &cobra.Command{
		Use:   "maxout <mountpoint>",
		Short: "Fill a device with random files until it is full",
		Long:  ``,
		Args:  exactArgs(1),
		RunE:  runMaxout,
	}
)

var maxoutImage bool

func init() {
	rootCmd.AddCommand(cmdMaxout)
	cmdMaxout.Flags().BoolVarP(&maxoutImage, "image", "i", false, "Mount point is a FAT32 image file")
}

func runMaxout(_ *cobra.Command, args []string) error {
	log := newLogger("maxout", 0)

	conf, err := loadConfig()
	if err != nil {
		return err
	}
	chunk, err := conf.Maxout.ByteChunk()
	if err != nil {
		return usageError("bad maxout.chunk: %v", err)
	}
	large, err := conf.Maxout.ByteLarge()
	if err != nil {
		return usageError("bad maxout.large: %v", err)
	}
	small, err := conf.Maxout.ByteSmall()
	if err != nil {
		return usageError("bad maxout.small: %v", err)
	}

	vol, err := openVolume(args[0], maxoutImage)
	if err != nil {
		return err
	}
	defer vol.Close()
	printUsage(vol)

	rec, stopMetrics := startMetrics()
	defer stopMetrics()

	buffer, err := entropy.System(int(chunk))
	if err != nil {
		return err
	}

	r, err := maxout.NewRandomizer(vol, maxout.NewConfig().
		WithLogger(log).
		WithMetrics(rec).
		WithOutput(os.Stdout).
		WithRand(newRand()).
		WithCapacity(conf.Maxout.Bucket).
		WithSizes(maxout.Sizes{Large: large, Small: small}).
		WithBuffer(buffer))
	if err != nil {
		return err
	}

	res := r.Run()
	printUsage(vol)
	fmt.Printf("Wrote %d files, %d bytes, into %d new directories\n", res.Files, res.Bytes, res.Buckets)
	return nil
}
