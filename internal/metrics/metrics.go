package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds per-process booklet metrics on a private registry so a
// one-shot CLI can flush them to a node-exporter textfile.
type Recorder struct {
	reg *prometheus.Registry

	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	pagesIn       prometheus.Counter
	pagesOut      prometheus.Counter
	blankPages    prometheus.Counter
	blankStrategy *prometheus.CounterVec
	lastSuccess   prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "booklet",
				Name:      "runs_total",
				Help:      "Booklet runs by result (success, error)",
			},
			[]string{"result"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "booklet",
				Name:      "run_duration_seconds",
				Help:      "Wall time of a booklet run",
				Buckets:   prometheus.DefBuckets,
			},
		),
		pagesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "booklet",
			Name:      "source_pages_total",
			Help:      "Real pages read from source documents",
		}),
		pagesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "booklet",
			Name:      "output_pages_total",
			Help:      "Pages written to booklets, padding included",
		}),
		blankPages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "booklet",
			Name:      "blank_pages_total",
			Help:      "Pad slots inserted to reach a multiple of 4",
		}),
		blankStrategy: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "booklet",
				Name:      "blank_strategy_total",
				Help:      "Blank page source used, by strategy",
			},
			[]string{"strategy"},
		),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "booklet",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
	}
	r.reg.MustRegister(r.runs, r.runDuration, r.pagesIn, r.pagesOut, r.blankPages, r.blankStrategy, r.lastSuccess)
	return r
}

// ObserveRun records the outcome of one run.
func (r *Recorder) ObserveRun(err error, dur time.Duration) {
	r.runDuration.Observe(dur.Seconds())
	if err != nil {
		r.runs.WithLabelValues("error").Inc()
		return
	}
	r.runs.WithLabelValues("success").Inc()
	r.lastSuccess.SetToCurrentTime()
}

// ObserveSource records the real pages of a source document.
func (r *Recorder) ObserveSource(pageCount int) {
	r.pagesIn.Add(float64(pageCount))
}

// ObserveOutput records a written booklet. Call it only after the
// booklet is on disk.
func (r *Recorder) ObserveOutput(pages, blanks int) {
	r.pagesOut.Add(float64(pages))
	r.blankPages.Add(float64(blanks))
}

// IncBlankStrategy counts which blank source filled the pad slots.
func (r *Recorder) IncBlankStrategy(strategy string) {
	r.blankStrategy.WithLabelValues(strategy).Inc()
}

// WriteTextfile writes all metrics in text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
