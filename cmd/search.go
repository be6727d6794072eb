package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"

	"github.com/dnaforensics/scar/pkg/search"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var (
	cmdSearch = &cobra.Command{
		Use:   "search",
		Short: "Score how much of each reference file is still on a device",
		Long:  ``,
		Args:  exactArgs(0),
		RunE:  runSearch,
	}
)

var searchDevice string
var searchPatterns string
var searchWorkers int
var searchDiskChunk int
var searchFileChunk int
var searchLogLevel int
var searchProgress bool

func init() {
	rootCmd.AddCommand(cmdSearch)
	defaults := search.NewConfig()
	cmdSearch.Flags().StringVarP(&searchDevice, "device", "d", "", "Device or image to examine")
	cmdSearch.Flags().StringVarP(&searchPatterns, "patterns", "p", defaults.Patterns, "Directory of reference files")
	cmdSearch.Flags().IntVarP(&searchWorkers, "threads", "t", defaults.Workers, "Patterns scored at once")
	cmdSearch.Flags().IntVarP(&searchDiskChunk, "diskchunk", "c", defaults.DiskChunk, "Bytes read from the device at a time, multiple of 512")
	cmdSearch.Flags().IntVarP(&searchFileChunk, "filechunk", "f", defaults.FileChunk, "Bytes read from each pattern at a time, multiple of 512")
	cmdSearch.Flags().CountVarP(&searchLogLevel, "log", "l", "More logging, repeat for more")
	cmdSearch.Flags().BoolVar(&searchProgress, "progress", false, "Show progress")
}

type progressObserver struct {
	progress *mpb.Progress
	lock     sync.Mutex
	bars     map[string]*mpb.Bar
}

func newProgressObserver(w io.Writer) *progressObserver {
	return &progressObserver{
		progress: mpb.New(
			mpb.WithOutput(w),
			mpb.WithAutoRefresh(),
		),
		bars: make(map[string]*mpb.Bar),
	}
}

func (po *progressObserver) Started(name string, sectors int) {
	bar := po.progress.AddBar(int64(sectors),
		mpb.PrependDecorators(
			decor.Name(filepath.Base(name), decor.WCSyncSpaceR),
			decor.CountersNoUnit("%d/%d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Elapsed(decor.ET_STYLE_GO, decor.WCSyncSpace),
			decor.Name(" "),
			decor.OnComplete(decor.Percentage(decor.WC{W: 5}), "done"),
		),
	)
	po.lock.Lock()
	po.bars[name] = bar
	po.lock.Unlock()
}

func (po *progressObserver) Scanned(name string, sectors int) {
	po.lock.Lock()
	bar := po.bars[name]
	po.lock.Unlock()
	bar.IncrBy(sectors)
}

func (po *progressObserver) Finished(r *search.Result) {
	po.lock.Lock()
	bar := po.bars[r.Name]
	po.lock.Unlock()
	bar.SetTotal(-1, true)
}

// Aborted leaves the bar where it stopped so Wait can return.
func (po *progressObserver) Aborted(name string, _ error) {
	po.lock.Lock()
	bar := po.bars[name]
	po.lock.Unlock()
	bar.Abort(false)
}

func runSearch(cmd *cobra.Command, _ []string) error {
	log := newLogger("search", searchLogLevel)

	if searchDevice == "" {
		return usageError("no device given\nusage: %s", cmd.UseLine())
	}

	sc := search.NewConfig().WithLogger(log)
	sc.Device = searchDevice
	sc.Patterns = searchPatterns
	sc.Workers = searchWorkers
	sc.DiskChunk = searchDiskChunk
	sc.FileChunk = searchFileChunk
	err := sc.Validate()
	if err != nil {
		return usageError("%v\nMight I suggest -c 1048576 and -f 65536?\nusage: %s", err, cmd.UseLine())
	}

	rec, stopMetrics := startMetrics()
	defer stopMetrics()
	sc.WithMetrics(rec)

	var out io.Writer = os.Stdout
	var po *progressObserver
	if searchProgress {
		po = newProgressObserver(color.Output)
		sc.WithObserver(po)
		// Report lines wait until the bars are done.
		out = io.Discard
	}

	s, err := search.NewSearcher(sc)
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	defer s.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	results, err := s.Run(ctx, out)
	if po != nil {
		po.progress.Wait()
		sort.Slice(results, func(i, j int) bool {
			return results[i].Name < results[j].Name
		})
		for _, r := range results {
			fmt.Println(r.String())
		}
	}
	if errors.Is(err, search.ErrPatterns) {
		return &exitError{code: 2, err: err}
	}
	return err
}
