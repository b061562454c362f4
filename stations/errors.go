package stations

import "errors"

var (
	// ErrInvalidInput marks a rejected request: bad coordinates, a missing
	// parameter or an unknown system.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks a well-formed lookup that matched nothing.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable marks a system whose index has never been built.
	ErrUnavailable = errors.New("system unavailable")

	// ErrInvalidSnapshot is returned by NewIndex for snapshots it cannot index.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)
