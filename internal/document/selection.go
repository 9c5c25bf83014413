package document

import "sort"

// Selection is the set of 1-based page numbers chosen for inclusion. It is
// always a subset of [1, pageCount]; numbers outside that interval are ignored.
type Selection struct {
	pageCount int
	pages     map[int]struct{}
}

// NewSelection returns a selection over pageCount pages, either full or empty.
func NewSelection(pageCount int, all bool) Selection {
	s := Selection{pageCount: pageCount, pages: make(map[int]struct{}, pageCount)}
	if all {
		s.SelectAll()
	}
	return s
}

func (s *Selection) inBounds(p int) bool { return p >= 1 && p <= s.pageCount }

// Toggle flips membership of every given page.
func (s *Selection) Toggle(pages ...int) {
	for _, p := range pages {
		if !s.inBounds(p) {
			continue
		}
		if _, ok := s.pages[p]; ok {
			delete(s.pages, p)
		} else {
			s.pages[p] = struct{}{}
		}
	}
}

// Set forces membership of every given page to state, regardless of the
// current membership.
func (s *Selection) Set(state bool, pages ...int) {
	for _, p := range pages {
		if !s.inBounds(p) {
			continue
		}
		if state {
			s.pages[p] = struct{}{}
		} else {
			delete(s.pages, p)
		}
	}
}

// SelectAll makes the selection equal to [1, pageCount].
func (s *Selection) SelectAll() {
	for p := 1; p <= s.pageCount; p++ {
		s.pages[p] = struct{}{}
	}
}

// DeselectAll empties the selection.
func (s *Selection) DeselectAll() {
	clear(s.pages)
}

// Has reports whether page p is selected.
func (s *Selection) Has(p int) bool {
	_, ok := s.pages[p]
	return ok
}

// Len returns the number of selected pages.
func (s *Selection) Len() int { return len(s.pages) }

// Sorted returns the selected pages in ascending order.
func (s *Selection) Sorted() []int {
	out := make([]int, 0, len(s.pages))
	for p := range s.pages {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// Clone returns an independent copy.
func (s *Selection) Clone() Selection {
	c := Selection{pageCount: s.pageCount, pages: make(map[int]struct{}, len(s.pages))}
	for p := range s.pages {
		c.pages[p] = struct{}{}
	}
	return c
}
