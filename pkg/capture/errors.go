package capture

import "errors"

// Sentinel errors returned by the capture engine. Operations wrap these
// with context via fmt.Errorf("%w: ..."), so callers should test with
// errors.Is.
var (
	// ErrInvalidOperation reports an operation invoked from a state that
	// forbids it. This is a caller defect: the operation fails
	// synchronously, is never retried internally, and leaves state
	// untouched.
	ErrInvalidOperation = errors.New("operation not permitted in current state")

	// ErrUnsupportedFormat reports a pixel format the engine cannot size
	// or parse.
	ErrUnsupportedFormat = errors.New("unsupported pixel format")

	// ErrBufferSize reports source pixel data whose length does not match
	// the byte size implied by the requested resolution and format.
	ErrBufferSize = errors.New("pixel data length does not match format size")
)
