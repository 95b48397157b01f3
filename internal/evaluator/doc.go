// Package evaluator runs scripts inside the attached page and turns the
// result into an Outcome.
//
// An exception raised by the script, including a rejected promise when
// WaitForPromise is set, is not a Go error: it comes back as an Outcome with
// Failed set and Message holding the remote exception message verbatim.
// Go errors are reserved for protocol and transport failures.
package evaluator
