package document

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseRanges reads a page selection such as "1-3,4,11-12" into ranges.
// Numeric items that fall outside the document or run backwards are kept as
// invalid ranges so callers can report them; malformed tokens are an error.
// An empty string or "all" selects the whole document.
func ParseRanges(s string, pageCount int) ([]PageRange, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return []PageRange{NewRange(1, pageCount)}, nil
	}

	var out []PageRange
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.Contains(part, "-") {
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid page: %s", part)
			}
			out = append(out, NewRange(n, n))
			continue
		}

		bounds := strings.Split(part, "-")
		if len(bounds) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", bounds[0])
		}
		end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", bounds[1])
		}
		out = append(out, NewRange(start, end))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no pages in selection %q", s)
	}
	return out, nil
}

// ParseFixedCountInput turns the raw pages-per-chunk text into a usable chunk
// size. Anything that is not a positive number counts as 1.
func ParseFixedCountInput(s string, pageCount int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		n = 1
	}
	return ClampChunk(n, pageCount)
}
