// Package orchestrator exposes workspaces, jobs and downloads over HTTP.
package orchestrator

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/local/pdfdesk/internal/artifact"
	"github.com/local/pdfdesk/internal/imagerender"
	"github.com/local/pdfdesk/internal/jobs"
	"github.com/local/pdfdesk/internal/metrics"
	"github.com/local/pdfdesk/internal/statuscheck"
	"github.com/local/pdfdesk/internal/workspace"
)

type Dependencies struct {
	Workspaces *workspace.Manager
	Runner     *jobs.Runner
	Artifacts  *artifact.Store
	Checker    *statuscheck.Checker

	// MaxUploadBytes bounds every uploaded file.
	MaxUploadBytes int64
	// UploadLimiter throttles upload requests; nil disables throttling.
	UploadLimiter *rate.Limiter
	// ExportDefaults seeds export settings missing from a request.
	ExportDefaults imagerender.ExportSettings
}

type Orchestrator struct {
	deps   Dependencies
	router chi.Router
}

func New(deps Dependencies) *Orchestrator {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 100 << 20
	}
	if deps.ExportDefaults.Format == "" {
		deps.ExportDefaults = imagerender.DefaultExportSettings()
	}
	o := &Orchestrator{deps: deps}
	o.setupRoutes()
	return o
}

func (o *Orchestrator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.router.ServeHTTP(w, r)
}

func (o *Orchestrator) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger)

	r.Get("/health", o.handleHealth)
	r.Get("/status", o.handleStatus)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/workspaces", o.handleCreateWorkspace)
		r.Route("/workspaces/{wsID}", func(r chi.Router) {
			r.Get("/", o.handleGetWorkspace)
			r.Delete("/", o.handleDeleteWorkspace)
			r.Get("/notifications", o.handleNotifications)

			r.With(UploadLimit(o.deps.UploadLimiter)).Post("/documents", o.handleUpload)
			r.Delete("/documents", o.handleClear)
			r.Route("/documents/{docID}", func(r chi.Router) {
				r.Delete("/", o.handleRemove)
				r.Post("/move", o.handleMove)
				r.Post("/pages/toggle", o.editHandler(toggle))
				r.Post("/pages/select-all", o.editHandler(selectAll))
				r.Post("/pages/deselect-all", o.editHandler(deselectAll))
				r.Get("/pages/{page}/preview", o.handlePreview)
				r.Post("/cursor", o.editHandler(setCursor))
				r.Post("/ranges", o.editHandler(addRange))
				r.Patch("/ranges/{index}", o.editHandler(updateRange))
				r.Delete("/ranges/{index}", o.editHandler(removeRange))
				r.Put("/mode", o.editHandler(setMode))
				r.Put("/fixed-count", o.editHandler(setFixedCount))
			})

			r.Post("/merge", o.handleMerge)
			r.Post("/split", o.handleSplit)
			r.Post("/export-images", o.handleExportImages)
		})

		r.With(UploadLimit(o.deps.UploadLimiter)).Post("/images-to-pdf", o.handleImagesToPDF)
		r.Get("/jobs/{jobID}", o.handleJob)
		r.Get("/downloads/{artifactID}", o.handleDownload)
	})

	o.router = r
}

func (o *Orchestrator) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (o *Orchestrator) handleStatus(w http.ResponseWriter, r *http.Request) {
	if o.deps.Checker == nil {
		jsonError(w, "status checks not configured", http.StatusServiceUnavailable)
		return
	}
	sum := o.deps.Checker.Summary(r.Context())
	code := http.StatusOK
	if !sum.Healthy() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, sum)
}
