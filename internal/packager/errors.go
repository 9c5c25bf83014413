package packager

import (
	"errors"
	"fmt"
)

// ErrNoFiles is returned when there is nothing to package.
var ErrNoFiles = errors.New("no files to package")

// PackagingError reports an archive that could not be built. No partial
// archive is returned alongside it.
type PackagingError struct {
	Name string
	Err  error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("package %q: %v", e.Name, e.Err)
}

func (e *PackagingError) Unwrap() error { return e.Err }
