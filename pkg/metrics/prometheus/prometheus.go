package prometheus

import (
	"github.com/dnaforensics/scar/pkg/outcome"
	"github.com/prometheus/client_golang/prometheus"
)

type MetricsConfig struct {
	Namespace string
	SubFill   string
	SubErase  string
	SubSearch string
}

func DefaultConfig() *MetricsConfig {
	return &MetricsConfig{
		Namespace: "scar",
		SubFill:   "fill",
		SubErase:  "erase",
		SubSearch: "search",
	}
}

type Metrics struct {
	reg    prometheus.Registerer
	config *MetricsConfig

	// fill (fillup and maxout)
	fillFiles   *prometheus.CounterVec
	fillBytes   *prometheus.CounterVec
	fillBuckets *prometheus.CounterVec
	fillStops   *prometheus.CounterVec

	// erase
	eraseSelected      prometheus.Counter
	eraseSelectedBytes prometheus.Counter
	eraseSectors       prometheus.Counter
	eraseSectorBytes   prometheus.Counter
	eraseDeleted       prometheus.Counter
	eraseFlushes       *prometheus.CounterVec

	// search
	searchPatterns prometheus.Counter
	searchSectors  prometheus.Counter
	searchScores   prometheus.Histogram

	collectors []prometheus.Collector
}

func New(reg prometheus.Registerer, config *MetricsConfig) *Metrics {
	met := &Metrics{
		reg:    reg,
		config: config,

		fillFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubFill, Name: "files", Help: "Files placed"}, []string{"tool"}),
		fillBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubFill, Name: "bytes", Help: "Bytes placed"}, []string{"tool"}),
		fillBuckets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubFill, Name: "buckets", Help: "Buckets created"}, []string{"tool"}),
		fillStops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubFill, Name: "stops", Help: "Runs stopped, by outcome"}, []string{"tool", "outcome"}),

		eraseSelected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubErase, Name: "selected", Help: "Files selected for deletion"}),
		eraseSelectedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubErase, Name: "selected_bytes", Help: "Bytes copied to the reference directory"}),
		eraseSectors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubErase, Name: "sectors_corrupted", Help: "Sectors overwritten"}),
		eraseSectorBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubErase, Name: "bytes_corrupted", Help: "Junk bytes written"}),
		eraseDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubErase, Name: "deleted", Help: "Files deleted"}),
		eraseFlushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubErase, Name: "flushes", Help: "Device flushes"}, []string{"phase", "result"}),

		searchPatterns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubSearch, Name: "patterns", Help: "Patterns scored"}),
		searchSectors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubSearch, Name: "sectors", Help: "Pattern sectors scored"}),
		searchScores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: config.Namespace, Subsystem: config.SubSearch, Name: "score", Help: "Mean pattern score",
			Buckets: prometheus.LinearBuckets(0, 1, 11)}),
	}

	met.collectors = []prometheus.Collector{
		met.fillFiles, met.fillBytes, met.fillBuckets, met.fillStops,
		met.eraseSelected, met.eraseSelectedBytes, met.eraseSectors, met.eraseSectorBytes, met.eraseDeleted, met.eraseFlushes,
		met.searchPatterns, met.searchSectors, met.searchScores,
	}
	reg.MustRegister(met.collectors...)
	return met
}

func (m *Metrics) Shutdown() {
	for _, c := range m.collectors {
		m.reg.Unregister(c)
	}
}

func (m *Metrics) FilePlaced(tool string, bytes int64) {
	m.fillFiles.WithLabelValues(tool).Inc()
	m.fillBytes.WithLabelValues(tool).Add(float64(bytes))
}

func (m *Metrics) BucketCreated(tool string) {
	m.fillBuckets.WithLabelValues(tool).Inc()
}

func (m *Metrics) Stopped(tool string, o outcome.Outcome) {
	m.fillStops.WithLabelValues(tool, o.String()).Inc()
}

func (m *Metrics) FileSelected(bytes int64) {
	m.eraseSelected.Inc()
	m.eraseSelectedBytes.Add(float64(bytes))
}

func (m *Metrics) SectorsCorrupted(sectors int64, bytes int64) {
	m.eraseSectors.Add(float64(sectors))
	m.eraseSectorBytes.Add(float64(bytes))
}

func (m *Metrics) FileDeleted() {
	m.eraseDeleted.Inc()
}

func (m *Metrics) Flushed(phase string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.eraseFlushes.WithLabelValues(phase, result).Inc()
}

func (m *Metrics) PatternScored(sectors int, mean int) {
	m.searchPatterns.Inc()
	m.searchSectors.Add(float64(sectors))
	m.searchScores.Observe(float64(mean))
}
