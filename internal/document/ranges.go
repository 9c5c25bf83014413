package document

import (
	"fmt"
	"strconv"
	"strings"
)

// RangeIssue explains why a range cannot be assembled. The zero value means
// the range is valid.
type RangeIssue string

const (
	IssueNone         RangeIssue = ""
	IssueMissingStart RangeIssue = "missing_start"
	IssueMissingEnd   RangeIssue = "missing_end"
	IssueOutOfBounds  RangeIssue = "out_of_bounds"
	IssueInverted     RangeIssue = "inverted"
)

// Message renders the issue for display next to the offending range.
func (i RangeIssue) Message(pageCount int) string {
	switch i {
	case IssueMissingStart:
		return "Invalid start page: enter a page number"
	case IssueMissingEnd:
		return "Invalid end page: enter a page number"
	case IssueOutOfBounds:
		return fmt.Sprintf("Page number must be between 1 and %d", pageCount)
	case IssueInverted:
		return "Start page must not be after end page"
	default:
		return ""
	}
}

// RangeField names the editable end of a range.
type RangeField string

const (
	FieldStart RangeField = "start"
	FieldEnd   RangeField = "end"
)

// ParseRangeField validates a field name coming from user input.
func ParseRangeField(s string) (RangeField, error) {
	switch RangeField(strings.ToLower(strings.TrimSpace(s))) {
	case FieldStart:
		return FieldStart, nil
	case FieldEnd:
		return FieldEnd, nil
	}
	return "", ErrRangeField
}

// PageRange is an inclusive interval of 1-based pages. A nil bound means the
// user has not entered it yet.
type PageRange struct {
	Start *int `json:"start"`
	End   *int `json:"end"`
}

// NewRange builds a range with both bounds present.
func NewRange(start, end int) PageRange {
	return PageRange{Start: intPtr(start), End: intPtr(end)}
}

func intPtr(v int) *int { return &v }

// Validate checks the range against a document of pageCount pages.
func (r PageRange) Validate(pageCount int) RangeIssue {
	switch {
	case r.Start == nil:
		return IssueMissingStart
	case r.End == nil:
		return IssueMissingEnd
	case *r.Start < 1 || *r.End < 1 || *r.Start > pageCount || *r.End > pageCount:
		return IssueOutOfBounds
	case *r.Start > *r.End:
		return IssueInverted
	}
	return IssueNone
}

// Valid is shorthand for Validate(pageCount) == IssueNone.
func (r PageRange) Valid(pageCount int) bool { return r.Validate(pageCount) == IssueNone }

// Len returns the number of pages covered; zero when a bound is missing or the
// range is inverted.
func (r PageRange) Len() int {
	if r.Start == nil || r.End == nil || *r.Start > *r.End {
		return 0
	}
	return *r.End - *r.Start + 1
}

// Pages lists the covered pages in ascending order.
func (r PageRange) Pages() []int {
	n := r.Len()
	if n == 0 {
		return nil
	}
	out := make([]int, n)
	for i := range out {
		out[i] = *r.Start + i
	}
	return out
}

// Bounds returns both bounds, with 0 standing in for a missing one.
func (r PageRange) Bounds() (int, int) {
	var s, e int
	if r.Start != nil {
		s = *r.Start
	}
	if r.End != nil {
		e = *r.End
	}
	return s, e
}

// Clone returns a copy that shares no pointers with r.
func (r PageRange) Clone() PageRange {
	var c PageRange
	if r.Start != nil {
		c.Start = intPtr(*r.Start)
	}
	if r.End != nil {
		c.End = intPtr(*r.End)
	}
	return c
}

func (r PageRange) String() string {
	bound := func(p *int) string {
		if p == nil {
			return "?"
		}
		return strconv.Itoa(*p)
	}
	return bound(r.Start) + "-" + bound(r.End)
}

// RangeList is the ordered sequence of ranges owned by one document. It never
// holds zero ranges.
type RangeList struct {
	ranges []PageRange
}

// NewRangeList returns a list with the single range [1, pageCount].
func NewRangeList(pageCount int) RangeList {
	return RangeList{ranges: []PageRange{NewRange(1, pageCount)}}
}

// Len returns the number of ranges.
func (l *RangeList) Len() int { return len(l.ranges) }

// At returns a copy of the range at index i.
func (l *RangeList) At(i int) (PageRange, error) {
	if i < 0 || i >= len(l.ranges) {
		return PageRange{}, ErrRangeIndex
	}
	return l.ranges[i].Clone(), nil
}

// Add appends a range starting where the previous one ended (or at the last
// page when that end is still pending) and ending at the last page.
func (l *RangeList) Add(pageCount int) PageRange {
	start := pageCount
	if n := len(l.ranges); n > 0 && l.ranges[n-1].End != nil {
		start = *l.ranges[n-1].End
	}
	r := NewRange(start, pageCount)
	l.ranges = append(l.ranges, r)
	return r.Clone()
}

// Remove deletes the range at index i. Removing the last remaining range
// reinstates the full span.
func (l *RangeList) Remove(i, pageCount int) error {
	if i < 0 || i >= len(l.ranges) {
		return ErrRangeIndex
	}
	l.ranges = append(l.ranges[:i:i], l.ranges[i+1:]...)
	if len(l.ranges) == 0 {
		l.ranges = []PageRange{NewRange(1, pageCount)}
	}
	return nil
}

// Update sets one bound of the range at index i. A nil value clears it. The
// value is stored as given, even when it makes the range invalid.
func (l *RangeList) Update(i int, field RangeField, value *int) error {
	if i < 0 || i >= len(l.ranges) {
		return ErrRangeIndex
	}
	var v *int
	if value != nil {
		v = intPtr(*value)
	}
	switch field {
	case FieldStart:
		l.ranges[i].Start = v
	case FieldEnd:
		l.ranges[i].End = v
	default:
		return ErrRangeField
	}
	return nil
}

// Replace swaps the whole list. An empty input falls back to the full span.
func (l *RangeList) Replace(ranges []PageRange, pageCount int) {
	if len(ranges) == 0 {
		l.ranges = []PageRange{NewRange(1, pageCount)}
		return
	}
	next := make([]PageRange, len(ranges))
	for i, r := range ranges {
		next[i] = r.Clone()
	}
	l.ranges = next
}

// Snapshot returns a deep copy safe to hand to an assembly running later.
func (l *RangeList) Snapshot() []PageRange {
	out := make([]PageRange, len(l.ranges))
	for i, r := range l.ranges {
		out[i] = r.Clone()
	}
	return out
}

// ClampChunk limits a pages-per-chunk value to [1, pageCount].
func ClampChunk(n, pageCount int) int {
	if n < 1 {
		return 1
	}
	if n > pageCount {
		return pageCount
	}
	return n
}

// FixedRanges partitions [1, pageCount] into consecutive chunks of n pages.
// The last chunk is truncated to the remaining pages.
func FixedRanges(n, pageCount int) []PageRange {
	if pageCount < 1 {
		return nil
	}
	n = ClampChunk(n, pageCount)
	out := make([]PageRange, 0, (pageCount+n-1)/n)
	for start := 1; start <= pageCount; start += n {
		out = append(out, NewRange(start, min(start+n-1, pageCount)))
	}
	return out
}
