package workspace

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/local/pdfdesk/internal/debounce"
	"github.com/local/pdfdesk/internal/document"
	"github.com/local/pdfdesk/internal/imagerender"
	"github.com/local/pdfdesk/internal/metrics"
	"github.com/local/pdfdesk/internal/notify"
)

// Workspace is one user's document collection for one tool. Every state
// change happens under mu; workflows copy what they need before running on
// the job runner.
type Workspace struct {
	ID      string
	Tool    Tool
	Created time.Time

	deps  *Deps
	notes *notify.Notifier

	mu         sync.Mutex
	docs       *document.Collection
	generation uint64
	closed     bool
	running    bool
	lastUsed   time.Time
	debouncers map[string]*debounce.Debouncer
}

func newWorkspace(id string, tool Tool, deps *Deps) *Workspace {
	limit := 0
	if tool == ToolSplit {
		limit = 1
	}
	now := time.Now()
	return &Workspace{
		ID:         id,
		Tool:       tool,
		Created:    now,
		deps:       deps,
		notes:      notify.New(id, 0),
		docs:       document.NewCollection(deps.Counter, deps.Detector, limit),
		lastUsed:   now,
		debouncers: make(map[string]*debounce.Debouncer),
	}
}

// Snapshot is the serialized state of a workspace.
type Snapshot struct {
	ID        string          `json:"id"`
	Tool      Tool            `json:"tool"`
	Created   time.Time       `json:"created"`
	Running   bool            `json:"running"`
	Documents []document.View `json:"documents"`
}

// Failure is a rejected upload.
type Failure struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// LoadSummary is the outcome of Load.
type LoadSummary struct {
	Loaded []document.View `json:"loaded"`
	Failed []Failure       `json:"failed"`
}

func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot()
}

func (w *Workspace) snapshot() Snapshot {
	docs := w.docs.List()
	views := make([]document.View, len(docs))
	for i, d := range docs {
		views[i] = d.View()
	}
	return Snapshot{ID: w.ID, Tool: w.Tool, Created: w.Created, Running: w.running, Documents: views}
}

// Notifications returns the feed entries after seq.
func (w *Workspace) Notifications(after uint64) []notify.Message {
	return w.notes.Since(after)
}

// Load adds uploads to the collection. Split workspaces keep only the newest
// document; the one it replaces is released.
func (w *Workspace) Load(ctx context.Context, uploads []document.Upload) (LoadSummary, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.use(); err != nil {
		return LoadSummary{}, err
	}

	res := w.docs.Load(ctx, uploads)
	for _, d := range res.Replaced {
		w.release(d)
	}

	sum := LoadSummary{Loaded: make([]document.View, 0, len(res.Loaded)), Failed: make([]Failure, 0, len(res.Failed))}
	for _, d := range res.Loaded {
		metrics.IncDocuments("loaded")
		sum.Loaded = append(sum.Loaded, d.View())
	}
	for _, f := range res.Failed {
		metrics.IncDocuments("failed")
		w.notes.Error(fmt.Sprintf("Failed to load %s", f.Name), f.Err.Error())
		sum.Failed = append(sum.Failed, Failure{Name: f.Name, Error: f.Err.Error()})
	}
	if n := len(res.Loaded); n > 0 {
		w.notes.Success(fmt.Sprintf("Loaded %d document(s)", n), "")
	}
	return sum, nil
}

// Remove drops one document and everything rendered from it.
func (w *Workspace) Remove(docID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.use(); err != nil {
		return err
	}
	d, err := w.docs.Remove(docID)
	if err != nil {
		return err
	}
	w.release(d)
	return nil
}

// Clear empties the collection. A workflow in flight is discarded.
func (w *Workspace) Clear() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.use(); err != nil {
		return err
	}
	for _, d := range w.docs.Clear() {
		w.release(d)
	}
	w.generation++
	return nil
}

// Move reorders one document to index to.
func (w *Workspace) Move(docID string, to int) (Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.use(); err != nil {
		return Snapshot{}, err
	}
	if err := w.docs.Move(docID, to); err != nil {
		return Snapshot{}, err
	}
	return w.snapshot(), nil
}

func (w *Workspace) TogglePages(docID string, pages []int, force *bool) (document.View, error) {
	return w.edit(docID, func(d *document.Document) error {
		d.TogglePages(pages, force)
		return nil
	})
}

func (w *Workspace) SelectAll(docID string) (document.View, error) {
	return w.edit(docID, func(d *document.Document) error {
		d.SelectAll()
		return nil
	})
}

func (w *Workspace) DeselectAll(docID string) (document.View, error) {
	return w.edit(docID, func(d *document.Document) error {
		d.DeselectAll()
		return nil
	})
}

func (w *Workspace) SetCursor(docID string, page int) (document.View, error) {
	return w.edit(docID, func(d *document.Document) error {
		d.SetCurrentPage(page)
		return nil
	})
}

func (w *Workspace) AddRange(docID string) (document.View, error) {
	return w.edit(docID, func(d *document.Document) error {
		d.AddRange()
		return nil
	})
}

func (w *Workspace) RemoveRange(docID string, i int) (document.View, error) {
	return w.edit(docID, func(d *document.Document) error {
		return d.RemoveRange(i)
	})
}

// UpdateRange sets one bound of a range. A nil value marks the bound as not
// entered yet.
func (w *Workspace) UpdateRange(docID string, i int, field string, value *int) (document.View, error) {
	f, err := document.ParseRangeField(field)
	if err != nil {
		return document.View{}, err
	}
	return w.edit(docID, func(d *document.Document) error {
		return d.UpdateRange(i, f, value)
	})
}

// ReplaceRanges parses a page selection such as "1-3,5" into the range list.
func (w *Workspace) ReplaceRanges(docID, spec string) (document.View, error) {
	return w.edit(docID, func(d *document.Document) error {
		ranges, err := document.ParseRanges(spec, d.PageCount)
		if err != nil {
			return err
		}
		d.ReplaceRanges(ranges)
		return nil
	})
}

func (w *Workspace) SetMode(docID, mode string) (document.View, error) {
	if w.Tool != ToolSplit {
		return document.View{}, ErrWrongTool
	}
	m, err := document.ParseSplitMode(mode)
	if err != nil {
		return document.View{}, err
	}
	return w.edit(docID, func(d *document.Document) error {
		d.SetMode(m)
		return nil
	})
}

// SetFixedCount takes the raw pages-per-part input. The ranges are
// regenerated once the input has been quiet for the debounce window, or at
// once when commit is set.
func (w *Workspace) SetFixedCount(docID, raw string, commit bool) (document.View, error) {
	if w.Tool != ToolSplit {
		return document.View{}, ErrWrongTool
	}
	w.mu.Lock()
	if err := w.use(); err != nil {
		w.mu.Unlock()
		return document.View{}, err
	}
	if _, err := w.docs.Get(docID); err != nil {
		w.mu.Unlock()
		return document.View{}, err
	}
	deb, ok := w.debouncers[docID]
	if !ok {
		deb = debounce.New(w.deps.FixedCountDebounce)
		w.debouncers[docID] = deb
	}
	w.mu.Unlock()

	apply := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		d, err := w.docs.Get(docID)
		if err != nil {
			return
		}
		d.SetMode(document.ModeFixed)
		d.ApplyFixedCount(document.ParseFixedCountInput(raw, d.PageCount))
	}
	if commit {
		deb.Stop()
		apply()
	} else {
		deb.Trigger(apply)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	d, err := w.docs.Get(docID)
	if err != nil {
		return document.View{}, err
	}
	return d.View(), nil
}

// Preview renders the thumbnail of one page. A page that fails to render
// yields a placeholder and a *imagerender.PageRenderError.
func (w *Workspace) Preview(ctx context.Context, docID string, page int) (*imagerender.Preview, error) {
	w.mu.Lock()
	if err := w.use(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	d, err := w.docs.Get(docID)
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}
	prev, err := w.deps.Previewer.Render(ctx, d.ID, d.Bytes(), page)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, gone := w.docs.Get(docID); gone != nil || w.closed {
		// Removed while rendering.
		w.release(d)
	}
	return prev, err
}

func (w *Workspace) edit(docID string, fn func(d *document.Document) error) (document.View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.use(); err != nil {
		return document.View{}, err
	}
	d, err := w.docs.Get(docID)
	if err != nil {
		return document.View{}, err
	}
	if err := fn(d); err != nil {
		return document.View{}, err
	}
	return d.View(), nil
}

// use marks the workspace as active. Callers hold mu.
func (w *Workspace) use() error {
	if w.closed {
		return ErrClosed
	}
	w.lastUsed = time.Now()
	return nil
}

func (w *Workspace) idleFor() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return 0
	}
	return time.Since(w.lastUsed)
}

// release frees the parsed handle, thumbnails and pending input of a
// document leaving the collection. Callers hold mu.
func (w *Workspace) release(d *document.Document) {
	if w.deps.Handles != nil {
		w.deps.Handles.Release(d.ID)
	}
	if w.deps.Previewer != nil {
		w.deps.Previewer.Invalidate(d.ID)
	}
	if deb, ok := w.debouncers[d.ID]; ok {
		deb.Stop()
		delete(w.debouncers, d.ID)
	}
}

func (w *Workspace) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	w.generation++
	for _, d := range w.docs.Clear() {
		w.release(d)
	}
}
