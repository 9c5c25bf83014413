package document

import (
	"bytes"
	"fmt"
	"io"
	"time"
)

// State is the lifecycle position of a loaded document.
type State string

const (
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateAssembling State = "assembling"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

var transitions = map[State][]State{
	StateLoading:    {StateReady, StateFailed},
	StateReady:      {StateAssembling},
	StateAssembling: {StateDone, StateFailed, StateReady},
	StateDone:       {StateReady, StateAssembling},
	StateFailed:     {StateReady, StateAssembling},
}

// SplitMode selects how a split document's ranges are maintained.
type SplitMode string

const (
	ModeRange SplitMode = "range"
	ModeFixed SplitMode = "fixed"
)

// ParseSplitMode validates a mode name coming from user input.
func ParseSplitMode(s string) (SplitMode, error) {
	switch SplitMode(s) {
	case ModeRange, ModeFixed:
		return SplitMode(s), nil
	}
	return "", fmt.Errorf("unknown split mode %q", s)
}

// Document is one loaded source PDF plus the selection and range state the
// user builds on top of it. The source bytes are never modified.
type Document struct {
	ID        string
	Name      string
	PageCount int
	Size      int64
	LoadedAt  time.Time

	data        []byte
	selection   Selection
	ranges      RangeList
	mode        SplitMode
	fixedCount  int
	currentPage int
	state       State
}

// New builds a ready document with every page selected, one full-span range
// and the cursor on page 1.
func New(id, name string, data []byte, pageCount int) *Document {
	return &Document{
		ID:          id,
		Name:        name,
		PageCount:   pageCount,
		Size:        int64(len(data)),
		LoadedAt:    time.Now(),
		data:        data,
		selection:   NewSelection(pageCount, true),
		ranges:      NewRangeList(pageCount),
		mode:        ModeRange,
		fixedCount:  pageCount,
		currentPage: 1,
		state:       StateReady,
	}
}

// Bytes returns the source buffer. Callers must treat it as read-only.
func (d *Document) Bytes() []byte { return d.data }

// Reader returns a fresh reader over the source bytes.
func (d *Document) Reader() io.ReadSeeker { return bytes.NewReader(d.data) }

// BaseName is the display name without its .pdf extension.
func (d *Document) BaseName() string { return BaseName(d.Name) }

// TogglePages flips each page, or forces it on or off when force is set.
func (d *Document) TogglePages(pages []int, force *bool) {
	if force != nil {
		d.selection.Set(*force, pages...)
	} else {
		d.selection.Toggle(pages...)
	}
	d.touch()
}

func (d *Document) SelectAll() {
	d.selection.SelectAll()
	d.touch()
}

func (d *Document) DeselectAll() {
	d.selection.DeselectAll()
	d.touch()
}

// SelectedPages returns the selection in ascending order.
func (d *Document) SelectedPages() []int { return d.selection.Sorted() }

// IsSelected reports whether page is part of the selection.
func (d *Document) IsSelected(page int) bool { return d.selection.Has(page) }

// Ranges returns a deep copy of the range list.
func (d *Document) Ranges() []PageRange { return d.ranges.Snapshot() }

func (d *Document) AddRange() PageRange {
	r := d.ranges.Add(d.PageCount)
	d.touch()
	return r
}

func (d *Document) RemoveRange(i int) error {
	if err := d.ranges.Remove(i, d.PageCount); err != nil {
		return err
	}
	d.touch()
	return nil
}

func (d *Document) UpdateRange(i int, field RangeField, value *int) error {
	if err := d.ranges.Update(i, field, value); err != nil {
		return err
	}
	d.touch()
	return nil
}

// ReplaceRanges swaps the whole list, for example after parsing "1-3,5".
func (d *Document) ReplaceRanges(ranges []PageRange) {
	d.ranges.Replace(ranges, d.PageCount)
	d.touch()
}

func (d *Document) Mode() SplitMode { return d.mode }

func (d *Document) SetMode(m SplitMode) {
	d.mode = m
	d.touch()
}

// FixedCount is the last applied pages-per-chunk value.
func (d *Document) FixedCount() int { return d.fixedCount }

// ApplyFixedCount clamps n and regenerates the range list as consecutive
// chunks of n pages.
func (d *Document) ApplyFixedCount(n int) int {
	n = ClampChunk(n, d.PageCount)
	d.fixedCount = n
	d.ranges.Replace(FixedRanges(n, d.PageCount), d.PageCount)
	d.touch()
	return n
}

func (d *Document) CurrentPage() int { return d.currentPage }

// SetCurrentPage moves the preview cursor, clamped to the document.
func (d *Document) SetCurrentPage(page int) int {
	d.currentPage = max(1, min(page, d.PageCount))
	return d.currentPage
}

func (d *Document) State() State { return d.state }

// Transition moves the document along its lifecycle.
func (d *Document) Transition(to State) error {
	for _, next := range transitions[d.state] {
		if next == to {
			d.state = to
			return nil
		}
	}
	return &StateError{From: d.state, To: to}
}

// touch returns a finished document to ready once the user edits it again.
func (d *Document) touch() {
	if d.state == StateDone || d.state == StateFailed {
		d.state = StateReady
	}
}

// RangeView is the serialized form of one range with its validation result.
type RangeView struct {
	Start   *int       `json:"start"`
	End     *int       `json:"end"`
	Issue   RangeIssue `json:"issue,omitempty"`
	Message string     `json:"message,omitempty"`
	Pages   int        `json:"pages"`
}

// View is the serialized snapshot of a document.
type View struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	PageCount   int         `json:"page_count"`
	Size        int64       `json:"size"`
	State       State       `json:"state"`
	Selected    []int       `json:"selected"`
	Ranges      []RangeView `json:"ranges"`
	Mode        SplitMode   `json:"mode"`
	FixedCount  int         `json:"fixed_count"`
	CurrentPage int         `json:"current_page"`
	// CurrentSelected tells whether the page under the preview cursor is
	// part of the selection.
	CurrentSelected bool `json:"current_selected"`
}

func (d *Document) View() View {
	ranges := d.ranges.Snapshot()
	rv := make([]RangeView, len(ranges))
	for i, r := range ranges {
		issue := r.Validate(d.PageCount)
		rv[i] = RangeView{
			Start:   r.Start,
			End:     r.End,
			Issue:   issue,
			Message: issue.Message(d.PageCount),
		}
		if issue == IssueNone {
			rv[i].Pages = r.Len()
		}
	}
	return View{
		ID:          d.ID,
		Name:        d.Name,
		PageCount:   d.PageCount,
		Size:        d.Size,
		State:       d.state,
		Selected:    d.selection.Sorted(),
		Ranges:      rv,
		Mode:        d.mode,
		FixedCount:  d.fixedCount,
		CurrentPage: d.currentPage,

		CurrentSelected: d.IsSelected(d.currentPage),
	}
}
