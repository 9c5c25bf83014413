package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	documentsLoaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfdesk",
			Name:      "documents_loaded_total",
			Help:      "Uploaded documents by result (loaded, rejected)",
		},
		[]string{"result"},
	)

	assemblies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfdesk",
			Name:      "assemblies_total",
			Help:      "Assemblies by workflow and result",
		},
		[]string{"workflow", "result"},
	)

	assemblyLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pdfdesk",
			Name:      "assembly_duration_seconds",
			Help:      "Duration of assemblies by workflow",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"workflow"},
	)

	pagesCopied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pdfdesk",
			Name:      "pages_copied_total",
			Help:      "Total pages copied into assembled documents",
		},
	)

	rangesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pdfdesk",
			Name:      "ranges_skipped_total",
			Help:      "Invalid ranges skipped during split",
		},
	)

	renders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfdesk",
			Name:      "renders_total",
			Help:      "Page rasterizations by purpose (preview, export) and result",
		},
		[]string{"purpose", "result"},
	)

	renderCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pdfdesk",
			Name:      "render_cache_hits_total",
			Help:      "Preview requests served from the bitmap cache",
		},
	)

	artifacts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfdesk",
			Name:      "artifacts_total",
			Help:      "Downloadable artifacts by event (produced, claimed, expired)",
		},
		[]string{"event"},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pdfdesk",
			Name:      "job_queue_depth",
			Help:      "Jobs waiting for a worker",
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(documentsLoaded, assemblies, assemblyLatency, pagesCopied, rangesSkipped, renders, renderCacheHits, artifacts, queueDepth)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func IncDocuments(result string) { documentsLoaded.WithLabelValues(result).Inc() }

func ObserveAssembly(workflow, result string, dur time.Duration) {
	assemblies.WithLabelValues(workflow, result).Inc()
	assemblyLatency.WithLabelValues(workflow).Observe(dur.Seconds())
}

func AddPagesCopied(n int) { pagesCopied.Add(float64(n)) }
func IncRangeSkipped()     { rangesSkipped.Inc() }

func IncRender(purpose string, ok bool) {
	result := "success"
	if !ok {
		result = "error"
	}
	renders.WithLabelValues(purpose, result).Inc()
}

func IncRenderCacheHit() { renderCacheHits.Inc() }

func IncArtifact(event string) { artifacts.WithLabelValues(event).Inc() }

func SetQueueDepth(v int) { queueDepth.Set(float64(v)) }
