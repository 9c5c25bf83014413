package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCounter reads the page count from a "%PDF-1.4\n% pages N" header.
type fakeCounter struct{}

func (fakeCounter) PageCount(data []byte) (int, error) {
	var n int
	if _, err := fmt.Sscanf(string(bytes.TrimPrefix(data, []byte("%PDF-1.4\n"))), "%% pages %d", &n); err != nil {
		return 0, errors.New("malformed pdf")
	}
	return n, nil
}

func fakePDF(pages int) []byte {
	return []byte(fmt.Sprintf("%%PDF-1.4\n%% pages %d\n%%%%EOF\n", pages))
}

func TestCollectionLoadDeduplicatesNames(t *testing.T) {
	c := NewCollection(fakeCounter{}, nil, 0)

	res := c.Load(context.Background(), []Upload{
		{Name: "report.pdf", Data: fakePDF(3)},
		{Name: "report.pdf", Data: fakePDF(4)},
	})
	require.Len(t, res.Loaded, 2)
	res = c.Load(context.Background(), []Upload{{Name: "report.pdf", Data: fakePDF(1)}})
	require.Len(t, res.Loaded, 1)

	assert.Equal(t, []string{"report.pdf", "report.pdf (1)", "report.pdf (2)"}, c.Names())
}

func TestCollectionLoadPartialFailure(t *testing.T) {
	c := NewCollection(fakeCounter{}, nil, 0)

	res := c.Load(context.Background(), []Upload{
		{Name: "a.pdf", Data: fakePDF(2)},
		{Name: "notes.txt", Data: []byte("plain text, not a pdf")},
		{Name: "broken.pdf", Data: []byte("%PDF-1.4\ngarbage")},
		{Name: "b.pdf", Data: fakePDF(5)},
	})

	require.Len(t, res.Loaded, 2)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, "notes.txt", res.Failed[0].Name)
	assert.ErrorIs(t, res.Failed[0].Err, ErrNotPDF)
	var pe *ParseError
	require.ErrorAs(t, res.Failed[1].Err, &pe)
	assert.Equal(t, "broken.pdf", pe.Name)
	assert.True(t, IsLoadFailure(res.Failed[1].Err))
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, c.Names())
}

func TestCollectionLoadInitialState(t *testing.T) {
	c := NewCollection(fakeCounter{}, nil, 0)
	res := c.Load(context.Background(), []Upload{{Name: "x.pdf", Data: fakePDF(4)}})
	require.Len(t, res.Loaded, 1)

	d := res.Loaded[0]
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, 4, d.PageCount)
	assert.Equal(t, []int{1, 2, 3, 4}, d.SelectedPages())
	assert.Equal(t, []PageRange{NewRange(1, 4)}, d.Ranges())
	assert.Equal(t, 4, d.FixedCount())
	assert.Equal(t, 1, d.CurrentPage())
	assert.Equal(t, StateReady, d.State())
}

func TestCollectionSingleDocumentReplaces(t *testing.T) {
	c := NewCollection(fakeCounter{}, nil, 1)
	first := c.Load(context.Background(), []Upload{{Name: "one.pdf", Data: fakePDF(2)}})
	require.Len(t, first.Loaded, 1)

	second := c.Load(context.Background(), []Upload{{Name: "two.pdf", Data: fakePDF(3)}})
	require.Len(t, second.Replaced, 1)
	assert.Equal(t, first.Loaded[0].ID, second.Replaced[0].ID)
	assert.Equal(t, []string{"two.pdf"}, c.Names())
}

func TestCollectionSingleDocumentSkipsBrokenUploads(t *testing.T) {
	c := NewCollection(fakeCounter{}, nil, 1)
	res := c.Load(context.Background(), []Upload{
		{Name: "broken.pdf", Data: []byte("%PDF-1.4\ngarbage")},
		{Name: "good.pdf", Data: fakePDF(3)},
		{Name: "extra.pdf", Data: fakePDF(2)},
	})

	require.Len(t, res.Loaded, 1)
	assert.Equal(t, "good.pdf", res.Loaded[0].Name)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, "broken.pdf", res.Failed[0].Name)
	assert.Equal(t, "extra.pdf", res.Failed[1].Name)
	assert.ErrorIs(t, res.Failed[1].Err, ErrSingleDocument)
	assert.True(t, IsLoadFailure(res.Failed[1].Err))
	assert.Equal(t, []string{"good.pdf"}, c.Names())
}

func TestCollectionMoveAndRemove(t *testing.T) {
	c := NewCollection(fakeCounter{}, nil, 0)
	res := c.Load(context.Background(), []Upload{
		{Name: "a.pdf", Data: fakePDF(1)},
		{Name: "b.pdf", Data: fakePDF(1)},
		{Name: "c.pdf", Data: fakePDF(1)},
	})
	a, b, cc := res.Loaded[0], res.Loaded[1], res.Loaded[2]
	a.TogglePages([]int{1}, nil)

	require.NoError(t, c.Move(a.ID, 2))
	assert.Equal(t, []string{"b.pdf", "c.pdf", "a.pdf"}, c.Names())
	require.NoError(t, c.Move(cc.ID, -5))
	assert.Equal(t, []string{"c.pdf", "b.pdf", "a.pdf"}, c.Names())

	moved, err := c.Get(a.ID)
	require.NoError(t, err)
	assert.Empty(t, moved.SelectedPages(), "state follows the id, not the position")

	removed, err := c.Remove(b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, removed.ID)
	assert.Equal(t, []string{"c.pdf", "a.pdf"}, c.Names())

	_, err = c.Get(b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, c.Move(b.ID, 0), ErrNotFound)

	assert.Len(t, c.Clear(), 2)
	assert.Zero(t, c.Len())
}

func TestDocumentDoubleToggleIsIdentity(t *testing.T) {
	d := New("id", "x.pdf", fakePDF(6), 6)
	d.TogglePages([]int{2, 4}, nil)
	before := d.SelectedPages()

	d.TogglePages([]int{3, 5, 6}, nil)
	d.TogglePages([]int{3, 5, 6}, nil)

	assert.Equal(t, before, d.SelectedPages())
	assert.Equal(t, []int{1, 3, 5, 6}, before)
}

func TestDocumentForcedToggle(t *testing.T) {
	d := New("id", "x.pdf", nil, 5)
	off := false
	d.TogglePages([]int{1, 2, 99}, &off)
	assert.Equal(t, []int{3, 4, 5}, d.SelectedPages())

	d.TogglePages([]int{1, 2}, &off)
	assert.Equal(t, []int{3, 4, 5}, d.SelectedPages())

	d.DeselectAll()
	assert.Empty(t, d.SelectedPages())
	d.SelectAll()
	assert.Equal(t, []int{1, 2, 3, 4, 5}, d.SelectedPages())
}

func TestDocumentApplyFixedCount(t *testing.T) {
	d := New("id", "x.pdf", nil, 10)
	assert.Equal(t, 3, d.ApplyFixedCount(3))
	assert.Equal(t, []PageRange{NewRange(1, 3), NewRange(4, 6), NewRange(7, 9), NewRange(10, 10)}, d.Ranges())

	assert.Equal(t, 10, d.ApplyFixedCount(50))
	assert.Equal(t, []PageRange{NewRange(1, 10)}, d.Ranges())
}

func TestDocumentStateLifecycle(t *testing.T) {
	d := New("id", "x.pdf", nil, 2)
	require.NoError(t, d.Transition(StateAssembling))
	require.NoError(t, d.Transition(StateDone))

	d.AddRange()
	assert.Equal(t, StateReady, d.State(), "editing a finished document returns it to ready")

	var se *StateError
	require.ErrorAs(t, d.Transition(StateDone), &se)
	assert.Equal(t, StateReady, se.From)
}

func TestDocumentCursorClamped(t *testing.T) {
	d := New("id", "x.pdf", nil, 4)
	assert.Equal(t, 4, d.SetCurrentPage(9))
	assert.Equal(t, 1, d.SetCurrentPage(0))
}

func TestDocumentViewCurrentSelected(t *testing.T) {
	d := New("id", "x.pdf", nil, 4)
	d.SetCurrentPage(3)
	assert.True(t, d.IsSelected(3))
	assert.True(t, d.View().CurrentSelected)

	d.TogglePages([]int{3}, nil)
	assert.False(t, d.IsSelected(3))
	v := d.View()
	assert.Equal(t, 3, v.CurrentPage)
	assert.False(t, v.CurrentSelected)
}

func TestDocumentViewReportsIssues(t *testing.T) {
	d := New("id", "scan.pdf", nil, 10)
	d.ReplaceRanges([]PageRange{NewRange(1, 3), NewRange(4, 4), NewRange(11, 12)})

	v := d.View()
	require.Len(t, v.Ranges, 3)
	assert.Equal(t, 3, v.Ranges[0].Pages)
	assert.Equal(t, 1, v.Ranges[1].Pages)
	assert.Equal(t, IssueOutOfBounds, v.Ranges[2].Issue)
	assert.Equal(t, "Page number must be between 1 and 10", v.Ranges[2].Message)
	assert.Zero(t, v.Ranges[2].Pages)
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "report", BaseName("report.pdf"))
	assert.Equal(t, "REPORT", BaseName("REPORT.PDF"))
	assert.Equal(t, "archive.zip", BaseName("archive.zip"))
	assert.Equal(t, "report (1)", BaseName("report.pdf (1)"))
	assert.Equal(t, "report (2)", BaseName("report.PDF (2)"))
}
