package main

import (
	"fmt"
	"os"

	"github.com/dnaforensics/scar/pkg/candidates"
	"github.com/dnaforensics/scar/pkg/fill"
	"github.com/spf13/cobra"
)

var (
	cmdFillup = &cobra.Command{
		Use:   "fillup <mountpoint>",
		Short: "Fill a device with files from the corpus until it is full",
		Long:  ``,
		Args:  exactArgs(1),
		RunE:  runFillup,
	}
)

var fillupImage bool
var fillupCorpus string
var fillupPattern string

func init() {
	rootCmd.AddCommand(cmdFillup)
	cmdFillup.Flags().BoolVarP(&fillupImage, "image", "i", false, "Mount point is a FAT32 image file")
	cmdFillup.Flags().StringVar(&fillupCorpus, "corpus", "", "Source corpus directory (overrides corpus.dir)")
	cmdFillup.Flags().StringVar(&fillupPattern, "pattern", "", "Source file name pattern (overrides corpus.pattern)")
}

func runFillup(_ *cobra.Command, args []string) error {
	log := newLogger("fillup", 0)

	conf, err := loadConfig()
	if err != nil {
		return err
	}
	corpus := conf.Corpus.Dir
	if fillupCorpus != "" {
		corpus = fillupCorpus
	}
	pattern := conf.Corpus.Pattern
	if fillupPattern != "" {
		pattern = fillupPattern
	}

	vol, err := openVolume(args[0], fillupImage)
	if err != nil {
		return err
	}
	defer vol.Close()
	printUsage(vol)

	rec, stopMetrics := startMetrics()
	defer stopMetrics()

	cands, err := candidates.Walk(corpus, pattern, log)
	if err != nil {
		return err
	}

	f, err := fill.NewFiller(vol, cands, fill.NewConfig().
		WithLogger(log).
		WithMetrics(rec).
		WithOutput(os.Stdout).
		WithRand(newRand()).
		WithCapacity(conf.Fill.Bucket))
	if err != nil {
		return err
	}

	r := f.Run()
	printUsage(vol)
	fmt.Printf("Copied %d files, %d bytes, into %d new directories\n", r.Copied, r.Bytes, r.Buckets)
	return nil
}
