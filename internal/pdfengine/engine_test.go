package pdfengine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/pdfdesk/internal/document"
)

// fakeBackend treats a source as "name:pages" and serializes outputs as
// "out|" followed by comma separated "name:page" entries, which makes page
// order visible in assertions. An output can be loaded again as a source.
type fakeBackend struct {
	loads   atomic.Int32
	failOn  string
	saveErr error
}

type fakeSource struct {
	name  string
	pages []string
}

func (s *fakeSource) PageCount() int { return len(s.pages) }

func (b *fakeBackend) Load(data []byte) (Source, error) {
	b.loads.Add(1)
	text := string(data)
	if list, ok := strings.CutPrefix(text, "out|"); ok {
		return &fakeSource{name: "out", pages: strings.Split(list, ",")}, nil
	}
	name, n, ok := strings.Cut(text, ":")
	if !ok {
		return nil, errors.New("malformed source")
	}
	count, err := strconv.Atoi(n)
	if err != nil {
		return nil, err
	}
	pages := make([]string, count)
	for i := range pages {
		pages[i] = fmt.Sprintf("%s:%d", name, i+1)
	}
	return &fakeSource{name: name, pages: pages}, nil
}

func (b *fakeBackend) Create() Writer { return &fakeWriter{backend: b} }

type fakeWriter struct {
	backend *fakeBackend
	out     []string
}

func (w *fakeWriter) CopyPages(src Source, pages []int) error {
	s := src.(*fakeSource)
	if s.name == w.backend.failOn {
		return errors.New("copy failed")
	}
	for _, p := range pages {
		w.out = append(w.out, s.pages[p])
	}
	return nil
}

func (w *fakeWriter) PageCount() int { return len(w.out) }

func (w *fakeWriter) Save() ([]byte, error) {
	if w.backend.saveErr != nil {
		return nil, w.backend.saveErr
	}
	return []byte("out|" + strings.Join(w.out, ",")), nil
}

func output(data []byte) string { return strings.TrimPrefix(string(data), "out|") }

func TestMergeOrderAndPageCount(t *testing.T) {
	b := &fakeBackend{}
	e := New(b)
	var progress []Progress

	out, skipped, err := e.Merge(context.Background(), []MergeInput{
		{ID: "1", Name: "a.pdf", Data: []byte("A:3"), Selected: []int{1, 3}},
		{ID: "2", Name: "b.pdf", Data: []byte("B:2"), Selected: nil},
		{ID: "3", Name: "c.pdf", Data: []byte("C:4"), Selected: []int{2, 3, 4}},
	}, func(p Progress) { progress = append(progress, p) })

	require.NoError(t, err)
	assert.Equal(t, "A:1,A:3,C:2,C:3,C:4", output(out.Data))
	assert.Equal(t, 5, out.Pages)
	require.Len(t, skipped, 1)
	assert.Equal(t, 1, skipped[0].Index)
	assert.Equal(t, "b.pdf", skipped[0].Label)

	require.Len(t, progress, 3)
	for i, p := range progress {
		assert.Equal(t, Progress{Done: i + 1, Total: 3, Unit: UnitDocument}, p)
	}
}

func TestMergeNothingSelected(t *testing.T) {
	e := New(&fakeBackend{})
	_, skipped, err := e.Merge(context.Background(), []MergeInput{
		{ID: "1", Name: "a.pdf", Data: []byte("A:3")},
	}, nil)
	assert.ErrorIs(t, err, ErrNothingToAssemble)
	assert.Len(t, skipped, 1)
}

func TestAssembleParsesEachSourceOnce(t *testing.T) {
	b := &fakeBackend{}
	e := New(b)
	out, _, err := e.Assemble(context.Background(), []Item{
		{SourceID: "x", Data: []byte("X:5"), Pages: []int{5}},
		{SourceID: "x", Data: []byte("X:5"), Pages: []int{1, 2}},
	}, UnitRange, nil)

	require.NoError(t, err)
	assert.Equal(t, "X:5,X:1,X:2", output(out.Data))
	assert.Equal(t, int32(1), b.loads.Load())
}

func TestAssembleSkipsOutOfBoundsItems(t *testing.T) {
	e := New(&fakeBackend{})
	out, skipped, err := e.Assemble(context.Background(), []Item{
		{SourceID: "x", Label: "first", Data: []byte("X:2"), Pages: []int{2, 3}},
		{SourceID: "x", Label: "second", Data: []byte("X:2"), Pages: []int{1}},
	}, UnitRange, nil)

	require.NoError(t, err)
	assert.Equal(t, "X:1", output(out.Data))
	require.Len(t, skipped, 1)
	assert.Equal(t, document.IssueOutOfBounds, skipped[0].Issue)
}

func TestAssembleCopyFailure(t *testing.T) {
	e := New(&fakeBackend{failOn: "B"})
	_, _, err := e.Merge(context.Background(), []MergeInput{
		{ID: "1", Name: "a.pdf", Data: []byte("A:1"), Selected: []int{1}},
		{ID: "2", Name: "b.pdf", Data: []byte("B:1"), Selected: []int{1}},
	}, nil)

	var ae *AssemblyError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "copy pages", ae.Op)
	assert.Equal(t, "b.pdf", ae.Source)
}

func TestAssembleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := New(&fakeBackend{}).Assemble(ctx, []Item{{SourceID: "x", Data: []byte("X:1"), Pages: []int{1}}}, UnitRange, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSplitTenPageScenario(t *testing.T) {
	e := New(&fakeBackend{})
	ranges := []document.PageRange{document.NewRange(1, 3), document.NewRange(4, 4), document.NewRange(11, 12)}
	var progress []Progress

	res, err := e.Split(context.Background(), SplitInput{ID: "d", Name: "scan.pdf", Data: []byte("S:10"), PageCount: 10},
		ranges, SplitOptions{}, func(p Progress) { progress = append(progress, p) })

	require.NoError(t, err)
	require.Len(t, res.Parts, 2)
	assert.Equal(t, "S:1,S:2,S:3", output(res.Parts[0].Data))
	assert.Equal(t, 1, res.Parts[0].Start)
	assert.Equal(t, 3, res.Parts[0].End)
	assert.Equal(t, "S:4", output(res.Parts[1].Data))
	assert.Nil(t, res.Merged)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 2, res.Skipped[0].Index)
	assert.Equal(t, document.IssueOutOfBounds, res.Skipped[0].Issue)

	assert.Equal(t, []Progress{{1, 2, UnitRange}, {2, 2, UnitRange}}, progress)
}

func TestSplitMergeRanges(t *testing.T) {
	e := New(&fakeBackend{})
	ranges := []document.PageRange{document.NewRange(4, 5), document.NewRange(1, 2)}

	res, err := e.Split(context.Background(), SplitInput{ID: "d", Name: "s.pdf", Data: []byte("S:6"), PageCount: 6},
		ranges, SplitOptions{MergeRanges: true}, nil)

	require.NoError(t, err)
	require.NotNil(t, res.Merged)
	assert.Equal(t, "S:4,S:5,S:1,S:2", output(res.Merged.Data))
	assert.Equal(t, 4, res.Merged.Pages)
}

func TestSplitSingleOutputIsMerged(t *testing.T) {
	e := New(&fakeBackend{})
	res, err := e.Split(context.Background(), SplitInput{ID: "d", Name: "s.pdf", Data: []byte("S:3"), PageCount: 3},
		[]document.PageRange{document.NewRange(1, 3), document.NewRange(3, 1)}, SplitOptions{}, nil)

	require.NoError(t, err)
	require.Len(t, res.Parts, 1)
	require.NotNil(t, res.Merged)
	assert.Equal(t, "S:1,S:2,S:3", output(res.Merged.Data))
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, document.IssueInverted, res.Skipped[0].Issue)
}

func TestSplitAllInvalid(t *testing.T) {
	e := New(&fakeBackend{})
	res, err := e.Split(context.Background(), SplitInput{ID: "d", Name: "s.pdf", Data: []byte("S:3"), PageCount: 3},
		[]document.PageRange{{}}, SplitOptions{}, nil)
	assert.ErrorIs(t, err, ErrNothingToAssemble)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, document.IssueMissingStart, res.Skipped[0].Issue)
}

func TestSplitSaveFailureDropsOutputs(t *testing.T) {
	e := New(&fakeBackend{saveErr: errors.New("disk full")})
	res, err := e.Split(context.Background(), SplitInput{ID: "d", Name: "s.pdf", Data: []byte("S:3"), PageCount: 3},
		[]document.PageRange{document.NewRange(1, 1), document.NewRange(2, 3)}, SplitOptions{}, nil)
	assert.Nil(t, res)
	var ae *AssemblyError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "save", ae.Op)
}

func TestParseImageOptions(t *testing.T) {
	opts, err := ParseImageOptions("", "", "")
	require.NoError(t, err)
	assert.Equal(t, ImageOptions{PageSize: PageA4, Orientation: Portrait, Margin: MarginSmall}, opts)
	assert.Equal(t, "form:A4, pos:c, sc:0.95", opts.importDescription())

	opts, err = ParseImageOptions("Letter", "landscape", "none")
	require.NoError(t, err)
	assert.Equal(t, "form:LetterL, pos:c, sc:1.0", opts.importDescription())

	opts, err = ParseImageOptions("fit", "", "large")
	require.NoError(t, err)
	assert.Equal(t, "pos:full", opts.importDescription())

	_, err = ParseImageOptions("a3", "", "")
	assert.Error(t, err)
	_, err = ParseImageOptions("", "sideways", "")
	assert.Error(t, err)
	_, err = ParseImageOptions("", "", "huge")
	assert.Error(t, err)
}
