package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/teemow/mailcdp/internal/automation"
)

var (
	errNotAttached = errors.New("application not attached: no matching window on the debugging endpoint")
	errIncomplete  = errors.New("operation incomplete")
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printOK(w io.Writer, format string, args ...any) {
	_, _ = okColor.Fprint(w, "✓ ")
	fmt.Fprintf(w, format+"\n", args...)
}

func printWarn(w io.Writer, format string, args ...any) {
	_, _ = warnColor.Fprint(w, "! ")
	fmt.Fprintf(w, format+"\n", args...)
}

func printFail(w io.Writer, format string, args ...any) {
	_, _ = failColor.Fprint(w, "✗ ")
	fmt.Fprintf(w, format+"\n", args...)
}

// report prints a status line for res and converts a non-OK result into
// errIncomplete.
func report(w io.Writer, what string, res automation.Result) error {
	attempts := dimColor.Sprintf("(%d attempts)", res.Attempts)
	switch res.Status {
	case automation.StatusOK:
		printOK(w, "%s %s", what, attempts)
		return nil
	case automation.StatusExhausted:
		printWarn(w, "%s: %s %s", what, res.Message, attempts)
	default:
		printFail(w, "%s: %s", what, res.Message)
	}
	return fmt.Errorf("%s: %w: %s", what, errIncomplete, res.Status)
}
