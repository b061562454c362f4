package refresh

import "fmt"

// FetchError wraps a failed fetch or build. It never reaches query callers; it
// is returned from Init, Refresh and ForceRefresh and recorded in Health.
type FetchError struct {
	System string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.System, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
