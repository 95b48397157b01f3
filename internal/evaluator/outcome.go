package evaluator

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrNoValue is returned by Decode when the evaluation produced no
// serialized value (undefined, or a live object without SerializeResult).
var ErrNoValue = errors.New("evaluation produced no value")

// Outcome is the result of one remote evaluation.
type Outcome struct {
	// Failed is set when the script threw or its promise rejected.
	Failed bool
	// Message is the remote exception message for failed outcomes.
	Message string

	// Type is the remote value type ("string", "object", "undefined", ...).
	Type string
	// Value holds the JSON serialized result when one was returned.
	Value json.RawMessage
	// Description is the remote preview of a value that was not serialized.
	Description string
}

// Undefined reports whether the script produced no value.
func (o *Outcome) Undefined() bool {
	return o.Type == "undefined" || (len(o.Value) == 0 && o.Description == "")
}

// Decode unmarshals the serialized value into v.
func (o *Outcome) Decode(v any) error {
	if o.Failed {
		return fmt.Errorf("evaluation failed: %s", o.Message)
	}
	if len(o.Value) == 0 {
		return ErrNoValue
	}
	return json.Unmarshal(o.Value, v)
}

// String returns the value if it is a JSON string.
func (o *Outcome) String() (string, bool) {
	r := gjson.ParseBytes(o.Value)
	if r.Type != gjson.String {
		return "", false
	}
	return r.String(), true
}

// Bool returns the JavaScript-ish truthiness of the value. Failed and empty
// outcomes are false.
func (o *Outcome) Bool() bool {
	if o.Failed || len(o.Value) == 0 {
		return false
	}
	r := gjson.ParseBytes(o.Value)
	switch r.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return r.Float() != 0
	case gjson.String:
		return r.String() != ""
	case gjson.JSON:
		return true
	default:
		return false
	}
}

// Get reads a gjson path from the serialized value.
func (o *Outcome) Get(path string) gjson.Result {
	return gjson.GetBytes(o.Value, path)
}
