package automation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/teemow/mailcdp/internal/evaluator"
)

// notFoundPrefix is thrown by accessor scripts for unknown draft keys.
const notFoundPrefix = "draft not found: "

var (
	// ErrDraftNotFound is returned when a draft key is no longer present in
	// the remote registry, e.g. because the app discarded it.
	ErrDraftNotFound = errors.New("draft not found")

	// ErrUnknownField is returned for field names the profile does not define.
	ErrUnknownField = errors.New("unknown field")
)

// RemoteFailure is a script exception raised while reading remote state.
type RemoteFailure struct {
	Op      string
	Message string
}

func (e *RemoteFailure) Error() string {
	return fmt.Sprintf("remote %s failed: %s", e.Op, e.Message)
}

// failure converts a failed outcome into ErrDraftNotFound when the accessor
// reported a missing key, and into a *RemoteFailure otherwise.
func failure(op string, key DraftKey, out *evaluator.Outcome) error {
	if strings.HasPrefix(out.Message, notFoundPrefix) {
		return fmt.Errorf("%s %s: %w", op, key, ErrDraftNotFound)
	}
	return &RemoteFailure{Op: op, Message: out.Message}
}
