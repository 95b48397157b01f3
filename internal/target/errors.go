package target

import (
	"errors"
	"fmt"
)

// ErrDiscovery matches every *DiscoveryError.
var ErrDiscovery = errors.New("target discovery failed")

// DiscoveryError is returned when the listing endpoint is unreachable or
// returns something that is not a target list.
type DiscoveryError struct {
	Op       string
	Endpoint string
	Err      error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("target discovery %s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// Is reports ErrDiscovery as a match so callers can branch without errors.As.
func (e *DiscoveryError) Is(target error) bool {
	return target == ErrDiscovery
}
