package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/teemow/mailcdp/internal/automation"
	"github.com/teemow/mailcdp/internal/cdp"
	"github.com/teemow/mailcdp/internal/config"
	"github.com/teemow/mailcdp/internal/domains"
	"github.com/teemow/mailcdp/internal/evaluator"
	"github.com/teemow/mailcdp/internal/instrumentation"
	"github.com/teemow/mailcdp/internal/logging"
	"github.com/teemow/mailcdp/internal/target"
)

// focusScript raises the window inside the renderer once the page is in
// front; some builds ignore Page.bringToFront while minimised.
const focusScript = `(function () { if (typeof window.focus === "function") window.focus(); return true; })()`

// Options configure Connect.
type Options struct {
	// Endpoint is the host debugging endpoint, e.g. "127.0.0.1:9222".
	Endpoint string
	// Rule selects the primary window among the listed targets.
	Rule target.MatchRule
	// AttachVisible brings the window to the front after attaching.
	AttachVisible bool

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	// Locator overrides target discovery. Defaults to an otelhttp client.
	Locator *target.Locator
}

// Session is an attached DevTools connection to the primary window.
type Session struct {
	ID     string
	Target target.Target

	Conn      *cdp.Conn
	Events    *cdp.EventBus
	Runtime   *domains.Runtime
	Network   *domains.Network
	Input     *domains.Input
	Page      *domains.Page
	Evaluator *evaluator.Evaluator

	logger  *slog.Logger
	metrics *instrumentation.Metrics
	once    sync.Once
	err     error
}

// Connect attaches to the primary window at opts.Endpoint. It returns a
// nil Session and a nil error when no target matches opts.Rule. Discovery
// and dial failures are returned as errors.
func Connect(ctx context.Context, opts Options) (*Session, error) {
	logger := logging.OrDefault(opts.Logger)
	locator := opts.Locator
	if locator == nil {
		locator = target.NewLocator(nil, logger)
	}

	targets, err := locator.ListTargets(ctx, opts.Endpoint)
	if err != nil {
		return nil, err
	}
	primary, ok := target.SelectPrimary(targets, opts.Rule)
	if !ok {
		logger.Info("application not attached",
			slog.String("endpoint", opts.Endpoint),
			slog.Int("targets", len(targets)),
		)
		return nil, nil
	}

	id := uuid.NewString()
	logger = logging.WithSession(logger, id)

	bus := cdp.NewEventBus(logger, opts.Metrics)
	conn, err := cdp.Dial(ctx, primary.SocketEndpoint,
		cdp.WithLogger(logger),
		cdp.WithMetrics(opts.Metrics),
		cdp.WithEventBus(bus),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to attach to %s: %w", primary.ID, err)
	}

	rt := domains.NewRuntime(conn, bus)
	s := &Session{
		ID:        id,
		Target:    primary,
		Conn:      conn,
		Events:    bus,
		Runtime:   rt,
		Network:   domains.NewNetwork(conn, bus),
		Input:     domains.NewInput(conn),
		Page:      domains.NewPage(conn),
		Evaluator: evaluator.New(rt, logger, opts.Metrics),
		logger:    logger,
		metrics:   opts.Metrics,
	}
	s.metrics.IncrementActiveSessions(ctx)

	logger.Info("attached",
		logging.Target(primary.ID),
		slog.String("url", primary.DisplayURL),
	)

	if opts.AttachVisible {
		s.bringToFront(ctx)
	}
	return s, nil
}

// bringToFront is best effort; a window that refuses focus is still usable.
func (s *Session) bringToFront(ctx context.Context) {
	if err := s.Page.BringToFront(ctx); err != nil {
		s.logger.Warn("failed to bring window to front", logging.Err(err))
		return
	}
	out, err := s.Evaluator.Evaluate(ctx, focusScript, evaluator.Options{SerializeResult: true})
	switch {
	case err != nil:
		s.logger.Warn("failed to focus window", logging.Err(err))
	case out.Failed:
		s.logger.Warn("failed to focus window", slog.String("message", out.Message))
	}
}

// Automator returns an Automator for this session's window.
func (s *Session) Automator(profile config.Profile, opts ...automation.Option) *automation.Automator {
	base := []automation.Option{
		automation.WithLogger(s.logger),
		automation.WithMetrics(s.metrics),
		automation.WithSessionID(s.ID),
	}
	return automation.New(s.Evaluator, profile, append(base, opts...)...)
}

// Close is an alias for Disconnect(s).
func (s *Session) Close() error {
	return Disconnect(s)
}

// Disconnect closes the session's connection. It is safe to call with a
// nil session and more than once; later calls return the first result.
func Disconnect(s *Session) error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		s.err = s.Conn.Close()
		s.metrics.DecrementActiveSessions(context.Background())
		s.logger.Info("detached", logging.Target(s.Target.ID))
	})
	return s.err
}
