package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfdesk/internal/artifact"
	cfgpkg "github.com/local/pdfdesk/internal/config"
	"github.com/local/pdfdesk/internal/filetype"
	"github.com/local/pdfdesk/internal/imagerender"
	"github.com/local/pdfdesk/internal/jobs"
	logpkg "github.com/local/pdfdesk/internal/logger"
	"github.com/local/pdfdesk/internal/metrics"
	"github.com/local/pdfdesk/internal/orchestrator"
	"github.com/local/pdfdesk/internal/pdfengine"
	"github.com/local/pdfdesk/internal/pdftest"
	"github.com/local/pdfdesk/internal/statuscheck"
	"github.com/local/pdfdesk/internal/storage"
	"github.com/local/pdfdesk/internal/store"
	"github.com/local/pdfdesk/internal/workspace"
)

func main() {
	cfg := cfgpkg.Load()

	// Init logging
	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		Service:      "pdfdesk",
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Status store: Redis when configured, process memory otherwise
	var (
		statuses  store.StatusStore
		redisPing statuscheck.Pinger
		memory    *store.MemoryStatus
	)
	if cfg.Status.RedisURL != "" {
		rs, err := store.NewRedisStatus(cfg.Status.RedisURL, cfg.Status.TTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init redis status store")
		}
		statuses, redisPing = rs, rs
	} else {
		memory = store.NewMemoryStatus(cfg.Status.TTL)
		statuses = memory
		log.Info().Msg("REDIS_URL not set; keeping job status in memory")
	}
	defer statuses.Close()

	// Export sinks
	var sinks []artifact.Sink
	var local *artifact.LocalSink
	if cfg.Export.Dir != "" {
		local = &artifact.LocalSink{Dir: cfg.Export.Dir}
		sinks = append(sinks, *local)
	}
	var bucketPing statuscheck.Pinger
	if cfg.Export.S3Bucket != "" {
		s3c, err := storage.NewS3Client(ctx, cfg.Export.S3Bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init s3 client")
		}
		sinks = append(sinks, artifact.S3Sink{Client: s3c, Prefix: cfg.Export.S3Prefix, PresignTTL: cfg.Export.PresignTTL})
		bucketPing = s3c
		log.Info().Str("bucket", s3c.Bucket()).Str("prefix", cfg.Export.S3Prefix).Msg("exporting downloads to s3")
	}

	runner := jobs.New(jobs.Config{
		Concurrency: cfg.Jobs.Concurrency,
		QueueSize:   cfg.Jobs.QueueSize,
		Timeout:     cfg.Jobs.Timeout,
	}, statuses)
	runner.Start(ctx)
	defer runner.Stop()

	backend := pdfengine.NewPDFCPU()
	handles := imagerender.NewHandleCache(nil)
	artifacts := artifact.NewStore(cfg.Workspace.ArtifactTTL)
	manager := workspace.NewManager(workspace.Deps{
		Engine:             pdfengine.New(backend),
		Counter:            backend,
		Detector:           filetype.New(),
		Handles:            handles,
		Previewer:          imagerender.NewPreviewer(handles, cfg.Render.PreviewWidth),
		Exporter:           imagerender.NewExporter(handles),
		Runner:             runner,
		Artifacts:          artifacts,
		Sinks:              sinks,
		FixedCountDebounce: cfg.Workspace.FixedCountDebounce,
	})

	exportDefaults := imagerender.DefaultExportSettings()
	if f, err := imagerender.ParseFormat(cfg.Render.ExportFormat); err == nil {
		exportDefaults.Format = f
	}
	exportDefaults.DPI = cfg.Render.ExportDPI
	exportDefaults.Quality = cfg.Render.ExportQuality

	orch := orchestrator.New(orchestrator.Dependencies{
		Workspaces:     manager,
		Runner:         runner,
		Artifacts:      artifacts,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		UploadLimiter:  orchestrator.NewUploadLimiter(cfg.Server.UploadRatePerMin, cfg.Server.UploadBurst),
		ExportDefaults: exportDefaults.Normalize(),
		Checker: statuscheck.New(statuscheck.Options{
			Redis:   redisPing,
			Bucket:  bucketPing,
			Opener:  imagerender.DefaultOpener(),
			Counter: backend,
			Probe:   pdftest.Generate(1),
		}),
	})

	// Housekeeping
	go artifacts.Run(ctx, cfg.Workspace.SweepInterval)
	go manager.Run(ctx, cfg.Workspace.SweepInterval, cfg.Workspace.TTL)
	go housekeeping(ctx, cfg.Workspace.SweepInterval, func() {
		if memory != nil {
			memory.Cleanup()
		}
		if local != nil {
			if n := local.Cleanup(cfg.Export.MaxAge); n > 0 {
				log.Info().Int("removed", n).Msg("old exports removed")
			}
		}
	})

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: orch, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		log.Info().Msgf("HTTP server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	fmt.Println("shutdown complete")
}

func housekeeping(ctx context.Context, every time.Duration, fn func()) {
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}
