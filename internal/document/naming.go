package document

import (
	"fmt"
	"regexp"
	"strings"
)

// UniqueName returns name if it is not taken, otherwise the first free
// "name (n)" with n counting from 1.
func UniqueName(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", name, n)
		if !taken(candidate) {
			return candidate
		}
	}
}

var dedupSuffix = regexp.MustCompile(`(?i)\.pdf( \(\d+\))$`)

// BaseName strips the .pdf extension, ignoring case. A deduplication suffix
// is kept: "report.pdf (1)" becomes "report (1)".
func BaseName(name string) string {
	if m := dedupSuffix.FindStringSubmatchIndex(name); m != nil {
		return name[:m[0]] + name[m[2]:m[3]]
	}
	if len(name) >= 4 && strings.EqualFold(name[len(name)-4:], ".pdf") {
		return name[:len(name)-4]
	}
	return name
}
