package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/spf13/cobra"

	"github.com/teemow/mailcdp/internal/logging"
	"github.com/teemow/mailcdp/internal/server"
	"github.com/teemow/mailcdp/internal/session"
)

// watchEvent is one line of the watch output stream.
type watchEvent struct {
	Time      time.Time `json:"time"`
	Event     string    `json:"event"`
	RequestID string    `json:"requestId,omitempty"`
	Method    string    `json:"method,omitempty"`
	URL       string    `json:"url,omitempty"`
	Status    int64     `json:"status,omitempty"`
	MimeType  string    `json:"mimeType,omitempty"`
	Error     string    `json:"error,omitempty"`
	Text      string    `json:"text,omitempty"`
}

// lineWriter serializes JSON lines from event handlers.
type lineWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newLineWriter(w io.Writer) *lineWriter {
	return &lineWriter{enc: json.NewEncoder(w)}
}

func (l *lineWriter) write(ev watchEvent) {
	ev.Time = time.Now().UTC()
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.enc.Encode(ev)
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		metricsAddr string
		noMetrics   bool
		console     bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream the application's network events",
		Long: `Attach to the primary window, enable network reporting and print one JSON
line per request, response and failure until interrupted or until the
application goes away. While running, Prometheus metrics and health
checks are served on --metrics-addr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			cmd.SetContext(ctx)

			return withSession(cmd, opts, func(ctx context.Context, e *env, s *session.Session) error {
				if !noMetrics {
					stop, err := startMetricsServer(e, s, metricsAddr)
					if err != nil {
						return err
					}
					defer stop()
				}
				return watch(ctx, e, s, console)
			})
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Address for the metrics server")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "Do not start the metrics server")
	cmd.Flags().BoolVar(&console, "console", false, "Also stream console messages and uncaught exceptions")
	return cmd
}

func watch(ctx context.Context, e *env, s *session.Session, console bool) error {
	out := newLineWriter(e.stdout)

	unsubscribe := []func(){
		s.Network.OnRequestWillBeSent(func(ev *network.EventRequestWillBeSent) {
			line := watchEvent{Event: "request", RequestID: string(ev.RequestID)}
			if ev.Request != nil {
				line.Method = ev.Request.Method
				line.URL = ev.Request.URL
			}
			out.write(line)
		}),
		s.Network.OnResponseReceived(func(ev *network.EventResponseReceived) {
			line := watchEvent{Event: "response", RequestID: string(ev.RequestID)}
			if ev.Response != nil {
				line.URL = ev.Response.URL
				line.Status = ev.Response.Status
				line.MimeType = ev.Response.MimeType
			}
			out.write(line)
		}),
		s.Network.OnLoadingFailed(func(ev *network.EventLoadingFailed) {
			out.write(watchEvent{Event: "failed", RequestID: string(ev.RequestID), Error: ev.ErrorText})
		}),
	}
	if console {
		unsubscribe = append(unsubscribe,
			s.Runtime.OnConsoleAPICalled(func(ev *runtime.EventConsoleAPICalled) {
				out.write(watchEvent{Event: "console", Text: consoleText(ev)})
			}),
			s.Runtime.OnExceptionThrown(func(ev *runtime.EventExceptionThrown) {
				line := watchEvent{Event: "exception"}
				if ev.ExceptionDetails != nil {
					line.Text = ev.ExceptionDetails.Text
					if exc := ev.ExceptionDetails.Exception; exc != nil && exc.Description != "" {
						line.Text = exc.Description
					}
				}
				out.write(line)
			}),
		)
	}
	defer func() {
		for _, u := range unsubscribe {
			u()
		}
	}()

	if err := s.Network.Enable(ctx); err != nil {
		return fmt.Errorf("failed to enable network events: %w", err)
	}
	if console {
		if err := s.Runtime.Enable(ctx); err != nil {
			return fmt.Errorf("failed to enable runtime events: %w", err)
		}
	}
	printOK(e.stderr, "watching %s", s.Target.DisplayURL)

	select {
	case <-ctx.Done():
		disableCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := s.Network.Disable(disableCtx); err != nil {
			e.logger.Debug("failed to disable network events", logging.Err(err))
		}
		return nil
	case <-s.Conn.Done():
		return fmt.Errorf("application went away: %w", s.Conn.Err())
	}
}

func consoleText(ev *runtime.EventConsoleAPICalled) string {
	text := string(ev.Type)
	for _, arg := range ev.Args {
		switch {
		case len(arg.Value) > 0:
			var s string
			if err := json.Unmarshal(arg.Value, &s); err == nil {
				text += " " + s
			} else {
				text += " " + string(arg.Value)
			}
		case arg.Description != "":
			text += " " + arg.Description
		}
	}
	return text
}

// startMetricsServer serves metrics until the returned stop function runs.
func startMetricsServer(e *env, s *session.Session, addr string) (func(), error) {
	if !e.provider.Enabled() || !e.provider.ServesPrometheus() {
		e.logger.Info("metrics server disabled: instrumentation does not export to prometheus")
		return func() {}, nil
	}

	health := server.NewHealthChecker()
	health.SetAttachmentProbe(func() error {
		select {
		case <-s.Conn.Done():
			return s.Conn.Err()
		default:
			return nil
		}
	})

	srv, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: e.provider,
		Health:                  health,
		Logger:                  e.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}
	if err := srv.Listen(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Start(); err != nil {
			e.logger.Error("metrics server failed", logging.Err(err))
		}
	}()
	printOK(e.stderr, "metrics on http://%s/metrics", srv.Addr())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			e.logger.Warn("error during metrics server shutdown", logging.Err(err))
		}
		<-done
	}, nil
}

