package grid

import "errors"

// Sentinel errors returned by the grid primitives. Both indicate an
// internal layout bug in the caller and must not be swallowed: writing
// past them would silently corrupt the document.
var (
	// ErrOutOfBounds is returned for a read or write outside the
	// sheet's declared bounds.
	ErrOutOfBounds = errors.New("cell outside sheet bounds")

	// ErrInvalidRange is returned for a zero-area or inverted range,
	// or a malformed cell/column name.
	ErrInvalidRange = errors.New("invalid range")
)
