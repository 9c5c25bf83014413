// Package workspace holds the per-session state of the PDF tools and drives
// the merge, split and export workflows on the job runner.
package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/pdfdesk/internal/artifact"
	"github.com/local/pdfdesk/internal/document"
	"github.com/local/pdfdesk/internal/filetype"
	"github.com/local/pdfdesk/internal/imagerender"
	"github.com/local/pdfdesk/internal/jobs"
	"github.com/local/pdfdesk/internal/packager"
	"github.com/local/pdfdesk/internal/pdfengine"
)

// DefaultFixedCountDebounce is the quiet window before a typed pages-per-part
// value regenerates the ranges.
const DefaultFixedCountDebounce = 500 * time.Millisecond

// Tool is the workflow a workspace serves.
type Tool string

const (
	ToolMerge  Tool = "merge"
	ToolSplit  Tool = "split"
	ToolImages Tool = "images"
)

func ParseTool(s string) (Tool, error) {
	switch Tool(s) {
	case ToolMerge, ToolSplit, ToolImages:
		return Tool(s), nil
	}
	return "", fmt.Errorf("unknown tool %q", s)
}

// Deps are the collaborators shared by every workspace.
type Deps struct {
	Engine    *pdfengine.Engine
	Counter   document.PageCounter
	Detector  *filetype.Detector
	Handles   *imagerender.HandleCache
	Previewer *imagerender.Previewer
	Exporter  *imagerender.Exporter
	Runner    *jobs.Runner
	Artifacts *artifact.Store
	Sinks     []artifact.Sink

	FixedCountDebounce time.Duration
}

// Manager owns the live workspaces.
type Manager struct {
	deps *Deps

	mu         sync.RWMutex
	workspaces map[string]*Workspace
}

func NewManager(deps Deps) *Manager {
	if deps.Detector == nil {
		deps.Detector = filetype.New()
	}
	return &Manager{deps: &deps, workspaces: make(map[string]*Workspace)}
}

// Create opens an empty workspace for tool.
func (m *Manager) Create(tool Tool) *Workspace {
	w := newWorkspace(uuid.NewString(), tool, m.deps)
	m.mu.Lock()
	m.workspaces[w.ID] = w
	m.mu.Unlock()
	log.Info().Str("workspace", w.ID).Str("tool", string(tool)).Msg("workspace created")
	return w
}

func (m *Manager) Get(id string) (*Workspace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.workspaces[id]
	if !ok {
		return nil, ErrNotFound
	}
	return w, nil
}

// Delete closes a workspace and releases everything derived from its
// documents. A job still running for it is discarded when it finishes.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	w, ok := m.workspaces[id]
	delete(m.workspaces, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	w.close()
	log.Info().Str("workspace", id).Msg("workspace deleted")
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workspaces)
}

// Sweep deletes workspaces that have been idle longer than idle and have no
// workflow running.
func (m *Manager) Sweep(idle time.Duration) int {
	m.mu.RLock()
	var stale []string
	for id, w := range m.workspaces {
		if w.idleFor() > idle {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	n := 0
	for _, id := range stale {
		if m.Delete(id) == nil {
			n++
		}
	}
	if n > 0 {
		log.Info().Int("count", n).Msg("idle workspaces removed")
	}
	return n
}

// Run sweeps idle workspaces every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval, idle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sweep(idle)
		}
	}
}

// ImagesToPDF converts images to one PDF on the job runner. It needs no
// workspace since nothing about the images outlives the request.
func (m *Manager) ImagesToPDF(ctx context.Context, images []pdfengine.ImageInput, opts pdfengine.ImageOptions) (string, error) {
	if len(images) == 0 {
		return "", ErrNoDocuments
	}
	return m.deps.Runner.Submit(ctx, "img2pdf", func(jctx context.Context, report pdfengine.ProgressFunc) (*jobs.Result, error) {
		out, err := m.deps.Engine.ImagesToPDF(jctx, images, opts, report)
		if err != nil {
			return nil, err
		}
		return m.deps.publish(jctx, packager.ImagesToPDF(out), nil), nil
	})
}

// publish registers a finished download and copies it to the export sinks,
// filed under the artifact id.
func (d *Deps) publish(ctx context.Context, dl *packager.Download, skipped []pdfengine.Skipped) *jobs.Result {
	art := d.Artifacts.Put(dl.Name, dl.ContentType, dl.Data)
	meta := map[string]interface{}{
		"artifact_id":  art.ID,
		"name":         art.Name,
		"content_type": art.ContentType,
		"size":         art.Size,
		"files":        dl.Files,
		"download_url": "/api/downloads/" + art.ID,
	}
	if len(skipped) > 0 {
		meta["skipped"] = skipped
	}
	if exports := artifact.Export(ctx, d.Sinks, art.ID, dl.Name, dl.ContentType, dl.Data); len(exports) > 0 {
		meta["exports"] = exports
	}
	return &jobs.Result{Message: dl.Name + " is ready", Metadata: meta}
}
