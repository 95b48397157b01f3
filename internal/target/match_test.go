package target

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectPrimary(t *testing.T) {
	targets := []Target{
		{ID: "worker", Type: "service_worker", DisplayURL: "app://mail/sw.js", SocketEndpoint: "ws://x/sw"},
		{ID: "bg", Type: TypePage, DisplayURL: "app://mail/background.html", SocketEndpoint: "ws://x/bg"},
		{ID: "detached", Type: TypePage, DisplayURL: "app://mail/index.html"},
		{ID: "main", Type: TypePage, DisplayURL: "app://mail/index.html#/inbox", SocketEndpoint: "ws://x/main"},
		{ID: "second", Type: TypePage, DisplayURL: "app://mail/index.html#/compose", SocketEndpoint: "ws://x/second"},
	}

	rule, err := CompileRule(`^app://mail/`, `background`)
	require.NoError(t, err)

	got, ok := SelectPrimary(targets, rule)
	require.True(t, ok)
	assert.Equal(t, "main", got.ID, "first match wins, background and socketless pages are skipped")
}

func TestSelectPrimary_UntypedListing(t *testing.T) {
	listing := `[
		{"id":"bg","url":"app://mail/background.html","webSocketDebuggerUrl":"ws://x/bg"},
		{"id":"main","url":"app://mail/index.html","webSocketDebuggerUrl":"ws://x/main"}
	]`
	var targets []Target
	require.NoError(t, json.Unmarshal([]byte(listing), &targets))

	rule, err := CompileRule(`^app://mail/`, `background`)
	require.NoError(t, err)

	got, ok := SelectPrimary(targets, rule)
	require.True(t, ok)
	assert.Equal(t, "main", got.ID)
	assert.Equal(t, "ws://x/main", got.SocketEndpoint)
}

func TestSelectPrimary_NoMatch(t *testing.T) {
	rule, err := CompileRule(`^app://mail/`, `background`)
	require.NoError(t, err)

	_, ok := SelectPrimary([]Target{
		{ID: "bg", Type: TypePage, DisplayURL: "app://mail/background.html", SocketEndpoint: "ws://x/bg"},
		{ID: "other", Type: TypePage, DisplayURL: "https://example.com", SocketEndpoint: "ws://x/other"},
	}, rule)
	assert.False(t, ok)

	_, ok = SelectPrimary(nil, rule)
	assert.False(t, ok)
}

func TestMatchRule_EmptyPatterns(t *testing.T) {
	rule, err := CompileRule("", "")
	require.NoError(t, err)
	assert.Nil(t, rule.URLPattern)
	assert.Nil(t, rule.ExcludePattern)

	assert.True(t, rule.Matches(Target{Type: TypePage, DisplayURL: "anything", SocketEndpoint: "ws://x"}))
	assert.False(t, rule.Matches(Target{Type: "iframe", DisplayURL: "anything", SocketEndpoint: "ws://x"}))
}

func TestCompileRule_Invalid(t *testing.T) {
	_, err := CompileRule("(", "")
	assert.Error(t, err)

	_, err = CompileRule("", "[")
	assert.Error(t, err)
}
