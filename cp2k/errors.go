package cp2k

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrOutputMissing        = errors.New("output file not found")
	ErrOutputUnreadable     = errors.New("output file unreadable")
	ErrTrajectoryMissing    = errors.New("restart file not found")
	ErrTrajectoryUnreadable = errors.New("restart file unreadable")
	ErrMalformedSection     = errors.New("malformed section")
	ErrUnknownSection       = errors.New("unknown section")
)

// SectionError reports a section whose marker was found but whose body
// could not be parsed. Line is 1-based, 0 if not tied to a line.
type SectionError struct {
	Section string
	Line    int
	Err     error
}

func (e *SectionError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("section %q, line %d: %v", e.Section, e.Line, e.Err)
	}
	return fmt.Sprintf("section %q: %v", e.Section, e.Err)
}

func (e *SectionError) Unwrap() []error {
	return []error{ErrMalformedSection, e.Err}
}

func malformed(section string, line int, format string, a ...any) error {
	return &SectionError{
		Section: section,
		Line:    line + 1,
		Err:     fmt.Errorf(format, a...),
	}
}
