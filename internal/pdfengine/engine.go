// Package pdfengine reassembles pages of loaded documents into new PDFs.
package pdfengine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfdesk/internal/document"
	"github.com/local/pdfdesk/internal/metrics"
)

// Units reported in Progress.
const (
	UnitDocument = "document"
	UnitRange    = "range"
	UnitPage     = "page"
)

// Progress is reported after every step of a long-running operation. Done
// never decreases within one operation.
type Progress struct {
	Done  int    `json:"done"`
	Total int    `json:"total"`
	Unit  string `json:"unit"`
}

// ProgressFunc receives progress updates. It may be nil.
type ProgressFunc func(Progress)

func (f ProgressFunc) report(done, total int, unit string) {
	if f != nil {
		f(Progress{Done: done, Total: total, Unit: unit})
	}
}

// Item is one step of an assembly: the listed 1-based pages of one source,
// copied in the given order.
type Item struct {
	SourceID string
	Label    string
	Data     []byte
	Pages    []int
}

// Skipped describes a work item that contributed nothing to the output.
type Skipped struct {
	Index  int                 `json:"index"`
	Label  string              `json:"label"`
	Issue  document.RangeIssue `json:"issue,omitempty"`
	Reason string              `json:"reason"`
}

// Output is one assembled document.
type Output struct {
	Data  []byte
	Pages int
}

// Engine drives a Backend. It holds no per-assembly state and is safe for
// concurrent use when the backend is.
type Engine struct {
	backend Backend
}

func New(backend Backend) *Engine {
	return &Engine{backend: backend}
}

// Assemble copies every item into one accumulating output, in item order.
// Each distinct source is parsed once. Items that are empty or reach past
// their source are skipped and reported.
func (e *Engine) Assemble(ctx context.Context, items []Item, unit string, progress ProgressFunc) (*Output, []Skipped, error) {
	start := time.Now()
	sources := make(map[string]Source, len(items))
	out := e.backend.Create()
	var skipped []Skipped

	for i, it := range items {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if len(it.Pages) == 0 {
			skipped = append(skipped, Skipped{Index: i, Label: it.Label, Reason: "no pages selected"})
			progress.report(i+1, len(items), unit)
			continue
		}

		src, ok := sources[it.SourceID]
		if !ok {
			var err error
			src, err = e.backend.Load(it.Data)
			if err != nil {
				return nil, nil, &AssemblyError{Op: "load", Source: it.Label, Err: err}
			}
			sources[it.SourceID] = src
		}

		zero := make([]int, len(it.Pages))
		inBounds := true
		for j, p := range it.Pages {
			if p < 1 || p > src.PageCount() {
				inBounds = false
				break
			}
			zero[j] = p - 1
		}
		if !inBounds {
			skipped = append(skipped, Skipped{Index: i, Label: it.Label, Issue: document.IssueOutOfBounds, Reason: fmt.Sprintf("pages outside 1-%d", src.PageCount())})
			progress.report(i+1, len(items), unit)
			continue
		}

		if err := out.CopyPages(src, zero); err != nil {
			return nil, nil, &AssemblyError{Op: "copy pages", Source: it.Label, Err: err}
		}
		metrics.AddPagesCopied(len(zero))
		progress.report(i+1, len(items), unit)
	}

	if out.PageCount() == 0 {
		return nil, skipped, ErrNothingToAssemble
	}
	data, err := out.Save()
	if err != nil {
		return nil, nil, &AssemblyError{Op: "save", Err: err}
	}
	log.Debug().Int("items", len(items)).Int("pages", out.PageCount()).Int("skipped", len(skipped)).Dur("elapsed", time.Since(start)).Msg("assembly finished")
	return &Output{Data: data, Pages: out.PageCount()}, skipped, nil
}

// MergeInput is one document taking part in a merge, with its selection.
type MergeInput struct {
	ID       string
	Name     string
	Data     []byte
	Selected []int
}

// Merge concatenates the selected pages of every input, in input order and
// ascending page order within each. Inputs with an empty selection are
// skipped.
func (e *Engine) Merge(ctx context.Context, inputs []MergeInput, progress ProgressFunc) (*Output, []Skipped, error) {
	items := make([]Item, len(inputs))
	for i, in := range inputs {
		items[i] = Item{SourceID: in.ID, Label: in.Name, Data: in.Data, Pages: in.Selected}
	}
	start := time.Now()
	out, skipped, err := e.Assemble(ctx, items, UnitDocument, progress)
	observe("merge", start, err)
	return out, skipped, err
}

// SplitInput is the single document of a split.
type SplitInput struct {
	ID        string
	Name      string
	Data      []byte
	PageCount int
}

// SplitOptions tunes Split.
type SplitOptions struct {
	// MergeRanges concatenates all parts into one document.
	MergeRanges bool
}

// Part is the output of one valid range.
type Part struct {
	Start int
	End   int
	Data  []byte
}

// SplitResult holds the parts in range order and, when the parts were
// concatenated, the merged document.
type SplitResult struct {
	Parts   []Part
	Merged  *Output
	Skipped []Skipped
}

// Split produces one document per valid range. Invalid ranges are skipped
// and reported with their index. When MergeRanges is set, or only one part
// was produced, the parts are concatenated by a second assembly pass.
func (e *Engine) Split(ctx context.Context, in SplitInput, ranges []document.PageRange, opts SplitOptions, progress ProgressFunc) (*SplitResult, error) {
	start := time.Now()
	res, err := e.split(ctx, in, ranges, opts, progress)
	observe("split", start, err)
	return res, err
}

func (e *Engine) split(ctx context.Context, in SplitInput, ranges []document.PageRange, opts SplitOptions, progress ProgressFunc) (*SplitResult, error) {
	res := &SplitResult{}
	var valid []document.PageRange
	for i, r := range ranges {
		if issue := r.Validate(in.PageCount); issue != document.IssueNone {
			res.Skipped = append(res.Skipped, Skipped{Index: i, Label: r.String(), Issue: issue, Reason: issue.Message(in.PageCount)})
			metrics.IncRangeSkipped()
			continue
		}
		valid = append(valid, r)
	}
	if len(valid) == 0 {
		return res, ErrNothingToAssemble
	}

	src, err := e.backend.Load(in.Data)
	if err != nil {
		return nil, &AssemblyError{Op: "load", Source: in.Name, Err: err}
	}

	parts := make([]Part, 0, len(valid))
	for i, r := range valid {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start, end := r.Bounds()
		if end > src.PageCount() {
			return nil, &AssemblyError{Op: "copy pages", Source: in.Name, Err: fmt.Errorf("range %s past page %d", r, src.PageCount())}
		}
		zero := make([]int, 0, end-start+1)
		for p := start; p <= end; p++ {
			zero = append(zero, p-1)
		}
		w := e.backend.Create()
		if err := w.CopyPages(src, zero); err != nil {
			return nil, &AssemblyError{Op: "copy pages", Source: in.Name, Err: err}
		}
		data, err := w.Save()
		if err != nil {
			return nil, &AssemblyError{Op: "save", Source: in.Name, Err: err}
		}
		metrics.AddPagesCopied(len(zero))
		parts = append(parts, Part{Start: start, End: end, Data: data})
		progress.report(i+1, len(valid), UnitRange)
	}
	res.Parts = parts

	if opts.MergeRanges || len(parts) == 1 {
		items := make([]Item, len(parts))
		for i, p := range parts {
			items[i] = Item{
				SourceID: fmt.Sprintf("part-%d", i),
				Label:    fmt.Sprintf("%d-%d", p.Start, p.End),
				Data:     p.Data,
				Pages:    seq(p.End - p.Start + 1),
			}
		}
		merged, _, err := e.Assemble(ctx, items, UnitRange, nil)
		if err != nil {
			return nil, err
		}
		res.Merged = merged
	}
	return res, nil
}

func observe(workflow string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.ObserveAssembly(workflow, result, time.Since(start))
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
