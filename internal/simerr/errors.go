// Package simerr defines the typed error taxonomy the core exposes: every
// fallible entry point returns one of these, never a bare string or a panic,
// so callers can branch with errors.Is against the sentinels below.
package simerr

import "fmt"

// Sentinel errors identifying the three error kinds. Use errors.Is to test
// a returned error against one of these.
var (
	ErrInvalidConfig      = &kindError{"invalid configuration"}
	ErrShortInput         = &kindError{"short input"}
	ErrArgumentOutOfRange = &kindError{"argument out of range"}
)

type kindError struct{ msg string }

func (e *kindError) Error() string { return e.msg }

// wrapped pairs a sentinel kind with a specific message, so errors.Is(err,
// ErrShortInput) succeeds while the message still carries detail.
type wrapped struct {
	kind *kindError
	msg  string
}

func (w *wrapped) Error() string  { return w.msg }
func (w *wrapped) Unwrap() error  { return w.kind }
func (w *wrapped) Is(t error) bool {
	k, ok := t.(*kindError)
	return ok && k == w.kind
}

// InvalidConfig reports a configuration that can never succeed: zero
// window_size, zero chunk count, IDF requested but not built.
func InvalidConfig(format string, args ...any) error {
	return &wrapped{ErrInvalidConfig, fmt.Sprintf(format, args...)}
}

// ShortInput reports an encoder iterator or document that yielded fewer
// values than required.
func ShortInput(format string, args ...any) error {
	return &wrapped{ErrShortInput, fmt.Sprintf(format, args...)}
}

// ArgumentOutOfRange reports a radius outside [0,1] or a block count
// exceeding the sketch width.
func ArgumentOutOfRange(format string, args ...any) error {
	return &wrapped{ErrArgumentOutOfRange, fmt.Sprintf(format, args...)}
}
