package automation

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/teemow/mailcdp/internal/config"
)

// fieldMatches reports whether a read-back value reflects want under mode.
//
// Strings compare exactly (equal) or by substring (contains). Recipient
// lists compare element-wise and case-insensitively; remote entries may be
// plain strings or objects carrying an address.
func fieldMatches(mode string, want any, got gjson.Result) bool {
	switch w := want.(type) {
	case string:
		if got.IsArray() {
			return recipientsMatch(mode, splitRecipients(w), recipientList(got))
		}
		if got.Type != gjson.String {
			return false
		}
		if mode == config.MatchContains {
			return strings.Contains(got.String(), w)
		}
		return got.String() == w
	case []string:
		return recipientsMatch(mode, w, recipientList(got))
	default:
		raw, err := json.Marshal(w)
		if err != nil {
			return false
		}
		return reflect.DeepEqual(gjson.ParseBytes(raw).Value(), got.Value())
	}
}

func recipientsMatch(mode string, want, got []string) bool {
	if mode == config.MatchContains {
		for _, w := range want {
			if !containsFold(got, w) {
				return false
			}
		}
		return true
	}
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if !strings.EqualFold(want[i], got[i]) {
			return false
		}
	}
	return true
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// recipientList normalizes a remote recipient value into addresses.
func recipientList(r gjson.Result) []string {
	switch {
	case r.IsArray():
		var out []string
		r.ForEach(func(_, v gjson.Result) bool {
			if addr := recipientAddress(v); addr != "" {
				out = append(out, addr)
			}
			return true
		})
		return out
	case r.Type == gjson.String:
		return splitRecipients(r.String())
	default:
		return nil
	}
}

func recipientAddress(v gjson.Result) string {
	if v.Type == gjson.String {
		return strings.TrimSpace(v.String())
	}
	for _, p := range []string{"address", "email", "emailAddress.address"} {
		if a := v.Get(p); a.Exists() && a.String() != "" {
			return a.String()
		}
	}
	return ""
}

func splitRecipients(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
