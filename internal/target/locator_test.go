package target

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mailcdp/internal/cdp/cdptest"
	"github.com/teemow/mailcdp/internal/logging"
)

func TestListURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "127.0.0.1:9222", want: "http://127.0.0.1:9222/json/list"},
		{in: "http://localhost:9222", want: "http://localhost:9222/json/list"},
		{in: "http://localhost:9222/", want: "http://localhost:9222/json/list"},
		{in: "http://localhost:9222/json", want: "http://localhost:9222/json"},
		{in: "ws://localhost:9222", want: "http://localhost:9222/json/list"},
		{in: "  localhost:9222  ", want: "http://localhost:9222/json/list"},
		{in: "", wantErr: true},
		{in: "ftp://localhost:9222", wantErr: true},
		{in: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ListURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListTargets(t *testing.T) {
	b := cdptest.NewBrowser(t)
	b.AddPage("bg", "background", "app://mail/background.html")
	b.AddPage("main", "Mail", "app://mail/index.html#/inbox")
	b.AddTarget(cdptest.Descriptor{ID: "sw", Type: "service_worker", URL: "app://mail/sw.js"})

	targets, err := NewLocator(nil, logging.Discard()).ListTargets(context.Background(), b.HostEndpoint())
	require.NoError(t, err)
	require.Len(t, targets, 3)

	assert.Equal(t, "main", targets[1].ID)
	assert.Equal(t, TypePage, targets[1].Type)
	assert.Equal(t, "app://mail/index.html#/inbox", targets[1].DisplayURL)
	assert.Equal(t, b.SocketURL("main"), targets[1].SocketEndpoint)
	assert.Empty(t, targets[2].SocketEndpoint)
}

func TestListTargets_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		op      string
	}{
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) { http.Error(w, "nope", http.StatusInternalServerError) },
			op:      "get",
		},
		{
			name:    "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"not":"a list"`)) },
			op:      "decode",
		},
		{
			name:    "object instead of list",
			handler: func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"id":"x"}`)) },
			op:      "decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := ListTargets(context.Background(), srv.URL)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDiscovery))

			var derr *DiscoveryError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, tt.op, derr.Op)
		})
	}
}

func TestListTargets_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	_, err := ListTargets(context.Background(), endpoint)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDiscovery)
}
