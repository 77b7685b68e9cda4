package uarr

import "fmt"

// FormatError reports a structurally invalid record: bad magic, an
// unsupported version, or declared offsets/lengths reaching past the buffer.
// It is fatal to the single Decode call only.
type FormatError struct {
	// Offset is the byte position the problem was detected at, where known.
	Offset int

	// Msg describes the problem.
	Msg string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("uarr: %s (offset %d)", e.Msg, e.Offset)
	}
	return "uarr: " + e.Msg
}

func formatErrf(offset int, format string, args ...any) error {
	return &FormatError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}
