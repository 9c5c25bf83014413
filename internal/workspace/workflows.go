package workspace

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfdesk/internal/document"
	"github.com/local/pdfdesk/internal/imagerender"
	"github.com/local/pdfdesk/internal/jobs"
	"github.com/local/pdfdesk/internal/packager"
	"github.com/local/pdfdesk/internal/pdfengine"
)

// outcome is what a workflow hands back for publishing.
type outcome struct {
	download *packager.Download
	skipped  []pdfengine.Skipped
}

type workflow func(ctx context.Context, report pdfengine.ProgressFunc) (*outcome, error)

// Merge concatenates the selected pages of every document in display order.
func (w *Workspace) Merge(ctx context.Context) (string, error) {
	if w.Tool != ToolMerge {
		return "", ErrWrongTool
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.use(); err != nil {
		return "", err
	}

	docs := w.docs.List()
	if len(docs) == 0 {
		return "", ErrNoDocuments
	}
	inputs := make([]pdfengine.MergeInput, len(docs))
	selected := 0
	for i, d := range docs {
		pages := d.SelectedPages()
		selected += len(pages)
		inputs[i] = pdfengine.MergeInput{ID: d.ID, Name: d.Name, Data: d.Bytes(), Selected: pages}
	}
	if selected == 0 {
		return "", ErrNothingSelected
	}

	engine := w.deps.Engine
	return w.submit(ctx, "merge", docs, func(ctx context.Context, report pdfengine.ProgressFunc) (*outcome, error) {
		out, skipped, err := engine.Merge(ctx, inputs, report)
		if err != nil {
			return nil, err
		}
		return &outcome{download: packager.Merged(out), skipped: skipped}, nil
	})
}

// Split produces one document per valid range of the loaded document, or a
// single concatenated document when mergeRanges is set.
func (w *Workspace) Split(ctx context.Context, mergeRanges bool) (string, error) {
	if w.Tool != ToolSplit {
		return "", ErrWrongTool
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.use(); err != nil {
		return "", err
	}

	docs := w.docs.List()
	if len(docs) == 0 {
		return "", ErrNoDocuments
	}
	d := docs[0]
	if deb, ok := w.debouncers[d.ID]; ok && deb.Pending() {
		// Apply the pages-per-part value still waiting for its window.
		w.mu.Unlock()
		deb.Flush()
		w.mu.Lock()
		if err := w.use(); err != nil {
			return "", err
		}
		if _, err := w.docs.Get(d.ID); err != nil {
			return "", err
		}
	}

	ranges := d.Ranges()
	if !anyValid(ranges, d.PageCount) {
		return "", ErrNoValidRanges
	}
	in := pdfengine.SplitInput{ID: d.ID, Name: d.Name, Data: d.Bytes(), PageCount: d.PageCount}
	opts := pdfengine.SplitOptions{MergeRanges: mergeRanges}

	engine := w.deps.Engine
	return w.submit(ctx, "split", docs[:1], func(ctx context.Context, report pdfengine.ProgressFunc) (*outcome, error) {
		res, err := engine.Split(ctx, in, ranges, opts, report)
		if err != nil {
			return nil, err
		}
		dl, err := packager.Split(in.Name, res)
		if err != nil {
			return nil, err
		}
		return &outcome{download: dl, skipped: res.Skipped}, nil
	})
}

// ExportImages rasterizes every page of every valid range of every
// document.
func (w *Workspace) ExportImages(ctx context.Context, settings imagerender.ExportSettings) (string, error) {
	if w.Tool != ToolImages {
		return "", ErrWrongTool
	}
	settings = settings.Normalize()
	format, err := imagerender.ParseFormat(string(settings.Format))
	if err != nil {
		return "", err
	}
	settings.Format = format

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.use(); err != nil {
		return "", err
	}

	docs := w.docs.List()
	if len(docs) == 0 {
		return "", ErrNoDocuments
	}
	inputs := make([]imagerender.ExportInput, len(docs))
	names := make([]string, len(docs))
	var skipped []pdfengine.Skipped
	for i, d := range docs {
		ranges := d.Ranges()
		inputs[i] = imagerender.ExportInput{ID: d.ID, Name: d.Name, Data: d.Bytes(), PageCount: d.PageCount, Ranges: ranges}
		names[i] = d.Name
		for j, r := range ranges {
			if issue := r.Validate(d.PageCount); issue != document.IssueNone {
				skipped = append(skipped, pdfengine.Skipped{Index: j, Label: d.Name + " " + r.String(), Issue: issue, Reason: issue.Message(d.PageCount)})
			}
		}
	}
	if imagerender.PageTotal(inputs) == 0 {
		return "", ErrNoValidRanges
	}

	exporter := w.deps.Exporter
	return w.submit(ctx, "images", docs, func(ctx context.Context, report pdfengine.ProgressFunc) (*outcome, error) {
		pages, err := exporter.Export(ctx, inputs, settings, report)
		if err != nil {
			return nil, err
		}
		dl, err := packager.Images(pages, names, settings.Format)
		if err != nil {
			return nil, err
		}
		return &outcome{download: dl, skipped: skipped}, nil
	})
}

func anyValid(ranges []document.PageRange, pageCount int) bool {
	for _, r := range ranges {
		if r.Valid(pageCount) {
			return true
		}
	}
	return false
}

// submit queues run on the job runner. The participating documents move to
// assembling. Callers hold mu.
func (w *Workspace) submit(ctx context.Context, kind string, docs []*document.Document, run workflow) (string, error) {
	if w.running {
		return "", ErrBusy
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
		if err := d.Transition(document.StateAssembling); err != nil {
			w.settle(ids[:i], document.StateReady)
			return "", err
		}
	}
	gen := w.generation

	jobID, err := w.deps.Runner.Submit(ctx, kind, func(jctx context.Context, report pdfengine.ProgressFunc) (*jobs.Result, error) {
		out, err := guard(jctx, run, report)
		if !w.finish(kind, gen, ids, err) {
			return nil, jobs.ErrDiscarded
		}
		if err != nil {
			return nil, err
		}
		for _, s := range out.skipped {
			w.notes.Error(fmt.Sprintf("Skipped %s", s.Label), s.Reason)
		}
		res := w.deps.publish(jctx, out.download, out.skipped)
		w.notes.Success(res.Message, "")
		return res, nil
	})
	if err != nil {
		w.settle(ids, document.StateReady)
		return "", err
	}
	w.running = true
	log.Info().Str("workspace", w.ID).Str("job_id", jobID).Str("kind", kind).Int("documents", len(ids)).Msg("workflow submitted")
	return jobID, nil
}

// guard runs a workflow and turns a panic into an error so the workspace is
// always released.
func guard(ctx context.Context, run workflow, report pdfengine.ProgressFunc) (out *outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Msg("workflow panicked")
			out, err = nil, fmt.Errorf("workflow panicked: %v", p)
		}
	}()
	return run(ctx, report)
}

// finish records the end of a workflow. It reports false when the result no
// longer applies: the workspace was cleared or deleted, or a participating
// document was removed while the workflow ran.
func (w *Workspace) finish(kind string, gen uint64, ids []string, runErr error) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.running = false

	current := !w.closed && w.generation == gen
	if current {
		for _, id := range ids {
			if _, err := w.docs.Get(id); err != nil {
				current = false
				break
			}
		}
	}
	switch {
	case !current:
		w.settle(ids, document.StateReady)
		log.Info().Str("workspace", w.ID).Str("kind", kind).Msg("workflow result discarded")
		return false
	case runErr != nil:
		w.settle(ids, document.StateFailed)
		w.notes.Error(fmt.Sprintf("%s failed", kind), runErr.Error())
	default:
		w.settle(ids, document.StateDone)
	}
	return true
}

// settle moves the documents that are still present to state. Callers hold
// mu.
func (w *Workspace) settle(ids []string, state document.State) {
	for _, id := range ids {
		d, err := w.docs.Get(id)
		if err != nil {
			continue
		}
		if err := d.Transition(state); err != nil {
			log.Debug().Err(err).Str("doc_id", id).Msg("state unchanged")
		}
	}
}
