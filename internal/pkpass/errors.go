package pkpass

import (
	"fmt"
	"strings"
)

// ContentError is returned when pass content cannot be turned into a valid archive.
// The problems are meant for operator logs; they are not returned to devices.
type ContentError struct {
	Problems []string
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("invalid pass content: %s", strings.Join(e.Problems, "; "))
}

func (e *ContentError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// NewContentError creates a content error with a single problem
func NewContentError(problem string) error {
	return &ContentError{Problems: []string{problem}}
}
