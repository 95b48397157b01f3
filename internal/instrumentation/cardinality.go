package instrumentation

import "strings"

// Cardinality management helpers for metrics.
//
// CDP method and event names are open-ended: experimental domains and
// app-specific bindings can produce arbitrary values. Labels are bounded to
// the domains this module talks to; everything else collapses to "other".

// OtherLabel is the label value used for unknown domains.
const OtherLabel = "other"

var knownDomains = map[string]struct{}{
	"Browser": {},
	"DOM":     {},
	"Input":   {},
	"Log":     {},
	"Network": {},
	"Page":    {},
	"Runtime": {},
	"Target":  {},
}

// NormalizeMethod bounds a "Domain.method" name for use as a metric label.
//
// Example:
//
//	NormalizeMethod("Runtime.evaluate")       // "Runtime.evaluate"
//	NormalizeMethod("Overlay.highlightNode")  // "other"
//	NormalizeMethod("")                       // "other"
func NormalizeMethod(method string) string {
	domain, name, ok := strings.Cut(method, ".")
	if !ok || name == "" {
		return OtherLabel
	}
	if _, known := knownDomains[domain]; !known {
		return OtherLabel
	}
	return method
}

// Automation operation names used as metric and span labels.
const (
	OperationOpenCompose   = "open_compose"
	OperationSetField      = "set_field"
	OperationSaveDraft     = "save_draft"
	OperationWaitSaved     = "wait_saved"
	OperationCloseCompose  = "close_compose"
	OperationGetDraftState = "get_draft_state"
	OperationListDrafts    = "list_drafts"
)
