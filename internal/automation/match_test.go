package automation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"

	"github.com/teemow/mailcdp/internal/config"
)

func TestFieldMatches(t *testing.T) {
	tests := []struct {
		name string
		mode string
		want any
		got  string
		ok   bool
	}{
		{"equal string", config.MatchEqual, "Test A", `"Test A"`, true},
		{"equal mismatch", config.MatchEqual, "Test A", `"Test"`, false},
		{"equal non string", config.MatchEqual, "1", `1`, false},
		{"contains", config.MatchContains, "<p>Hello</p>", `"<div class=\"editor\"><p>Hello</p></div>"`, true},
		{"contains mismatch", config.MatchContains, "<p>Bye</p>", `"<div><p>Hello</p></div>"`, false},
		{"recipient objects", config.MatchEqual, "a@example.com, B@example.com",
			`[{"address":"a@example.com"},{"address":"b@example.com"}]`, true},
		{"recipient order", config.MatchEqual, "b@example.com, a@example.com",
			`[{"address":"a@example.com"},{"address":"b@example.com"}]`, false},
		{"recipient strings", config.MatchEqual, []string{"a@example.com"}, `["a@example.com"]`, true},
		{"recipient nested", config.MatchEqual, "a@example.com",
			`[{"emailAddress":{"address":"a@example.com"}}]`, true},
		{"recipient subset", config.MatchContains, "a@example.com",
			`[{"email":"a@example.com"},{"email":"c@example.com"}]`, true},
		{"recipient string value", config.MatchEqual, []string{"a@example.com", "b@example.com"},
			`"a@example.com; b@example.com"`, true},
		{"structured value", config.MatchEqual, map[string]any{"n": 1}, `{"n":1}`, true},
		{"missing", config.MatchEqual, "x", ``, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, fieldMatches(tt.mode, tt.want, gjson.Parse(tt.got)))
		})
	}
}
