package session

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mailcdp/internal/automation"
	"github.com/teemow/mailcdp/internal/automation/apptest"
	"github.com/teemow/mailcdp/internal/cdp"
	"github.com/teemow/mailcdp/internal/cdp/cdptest"
	"github.com/teemow/mailcdp/internal/config"
	"github.com/teemow/mailcdp/internal/evaluator"
	"github.com/teemow/mailcdp/internal/logging"
	"github.com/teemow/mailcdp/internal/target"
)

func defaultRule(t *testing.T) target.MatchRule {
	t.Helper()
	rule, err := config.DefaultProfile().Rule()
	require.NoError(t, err)
	return rule
}

func newBrowser(t *testing.T, opts apptest.Options) (*cdptest.Browser, *apptest.App) {
	t.Helper()
	b := cdptest.NewBrowser(t)
	app := apptest.New(t, opts)
	app.Install(b)
	b.AddPage("bg", "Background", "app://mail/background.html")
	b.AddPage("main", "Inbox", "app://mail/index.html")
	return b, app
}

func TestConnect_NoMatchingTarget(t *testing.T) {
	b := cdptest.NewBrowser(t)
	b.AddPage("bg", "Background", "app://mail/background.html")
	b.AddPage("tools", "DevTools", "devtools://devtools/bundled/inspector.html")

	s, err := Connect(context.Background(), Options{
		Endpoint: b.HostEndpoint(),
		Rule:     defaultRule(t),
		Logger:   logging.Discard(),
	})
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.False(t, b.WaitConnected(50*time.Millisecond))
}

func TestConnect_DiscoveryError(t *testing.T) {
	b := cdptest.NewBrowser(t)
	b.ServeListing(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})

	s, err := Connect(context.Background(), Options{
		Endpoint: b.HostEndpoint(),
		Rule:     defaultRule(t),
		Logger:   logging.Discard(),
	})
	require.ErrorIs(t, err, target.ErrDiscovery)
	assert.Nil(t, s)
}

func TestConnect_AttachesPrimaryWindow(t *testing.T) {
	ctx := context.Background()
	b, _ := newBrowser(t, apptest.Options{})

	s, err := Connect(ctx, Options{
		Endpoint: b.HostEndpoint(),
		Rule:     defaultRule(t),
		Logger:   logging.Discard(),
	})
	require.NoError(t, err)
	require.NotNil(t, s)
	defer s.Close()

	assert.Equal(t, "main", s.Target.ID)
	assert.NotEmpty(t, s.ID)
	assert.NotContains(t, b.Methods(), "Page.bringToFront")

	out, err := s.Evaluator.Evaluate(ctx, "6 * 7", evaluator.Options{SerializeResult: true})
	require.NoError(t, err)
	assert.Equal(t, "42", string(out.Value))
}

func TestConnect_AttachVisible(t *testing.T) {
	b, app := newBrowser(t, apptest.Options{})

	s, err := Connect(context.Background(), Options{
		Endpoint:      b.HostEndpoint(),
		Rule:          defaultRule(t),
		AttachVisible: true,
		Logger:        logging.Discard(),
	})
	require.NoError(t, err)
	require.NotNil(t, s)
	defer s.Close()

	assert.Equal(t, []string{"Page.bringToFront", "Runtime.evaluate"}, b.Methods())
	focused, err := app.Run("window.focused")
	require.NoError(t, err)
	assert.Equal(t, true, focused)
}

func TestConnect_AttachVisibleIsBestEffort(t *testing.T) {
	b := cdptest.NewBrowser(t)
	b.AddPage("main", "Inbox", "app://mail/index.html")

	s, err := Connect(context.Background(), Options{
		Endpoint:      b.HostEndpoint(),
		Rule:          defaultRule(t),
		AttachVisible: true,
		Logger:        logging.Discard(),
	})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.NoError(t, s.Close())
}

func TestDisconnect(t *testing.T) {
	ctx := context.Background()
	b, _ := newBrowser(t, apptest.Options{})

	assert.NoError(t, Disconnect(nil))

	s, err := Connect(ctx, Options{
		Endpoint: b.HostEndpoint(),
		Rule:     defaultRule(t),
		Logger:   logging.Discard(),
	})
	require.NoError(t, err)
	require.NotNil(t, s)

	require.NoError(t, Disconnect(s))
	require.NoError(t, s.Close())

	_, err = s.Evaluator.Evaluate(ctx, "1", evaluator.Options{})
	require.ErrorIs(t, err, cdp.ErrClosed)
}

func TestSession_Automator(t *testing.T) {
	ctx := context.Background()
	b, app := newBrowser(t, apptest.Options{RenderDelay: 10 * time.Millisecond})

	s, err := Connect(ctx, Options{
		Endpoint: b.HostEndpoint(),
		Rule:     defaultRule(t),
		Logger:   logging.Discard(),
	})
	require.NoError(t, err)
	require.NotNil(t, s)
	defer s.Close()

	profile := config.DefaultProfile()
	profile.Poll.Interval = 20 * time.Millisecond
	a := s.Automator(profile)

	opened, err := a.OpenCompose(ctx)
	require.NoError(t, err)
	require.True(t, opened.OK())

	res, err := a.SetField(ctx, opened.Key, config.FieldSubject, "From session")
	require.NoError(t, err)
	assert.Equal(t, automation.StatusOK, res.Status)
	assert.Equal(t, "From session", app.Draft(string(opened.Key))["subject"])
}
