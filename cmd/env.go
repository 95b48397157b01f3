package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/guregu/null.v3"

	"github.com/teemow/mailcdp/internal/automation"
	"github.com/teemow/mailcdp/internal/config"
	"github.com/teemow/mailcdp/internal/instrumentation"
	"github.com/teemow/mailcdp/internal/logging"
	"github.com/teemow/mailcdp/internal/session"
)

// env is what a command needs to talk to the application.
type env struct {
	logger   *slog.Logger
	profile  config.Profile
	provider *instrumentation.Provider
	stdout   io.Writer
	stderr   io.Writer
}

// overrides converts explicitly set flags into config overrides.
func (o *rootOptions) overrides(cmd *cobra.Command) config.Overrides {
	var ov config.Overrides
	if cmd.Flags().Changed("endpoint") {
		ov.Endpoint = null.StringFrom(o.endpoint)
	}
	if cmd.Flags().Changed("profile") {
		ov.ProfilePath = null.StringFrom(o.profile)
	}
	if cmd.Flags().Changed("visible") {
		ov.AttachVisible = null.BoolFrom(o.visible)
	}
	return ov
}

func newEnv(ctx context.Context, cmd *cobra.Command, opts *rootOptions) (*env, error) {
	logger := logging.New(cmd.ErrOrStderr(), opts.debug)

	profile, err := config.Resolve(afero.NewOsFs(), opts.overrides(cmd), os.LookupEnv)
	if err != nil {
		return nil, err
	}

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	return &env{
		logger:   logger,
		profile:  profile,
		provider: provider,
		stdout:   cmd.OutOrStdout(),
		stderr:   cmd.ErrOrStderr(),
	}, nil
}

func (e *env) Close(ctx context.Context) {
	if err := e.provider.Shutdown(ctx); err != nil {
		e.logger.Warn("error during instrumentation shutdown", logging.Err(err))
	}
}

// attach connects to the primary window. It returns errNotAttached when
// no window matches the profile.
func (e *env) attach(ctx context.Context) (*session.Session, error) {
	rule, err := e.profile.Rule()
	if err != nil {
		return nil, err
	}
	s, err := session.Connect(ctx, session.Options{
		Endpoint:      e.profile.Endpoint,
		Rule:          rule,
		AttachVisible: e.profile.AttachVisible,
		Logger:        e.logger,
		Metrics:       e.provider.Metrics(),
	})
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errNotAttached
	}
	return s, nil
}

func (e *env) automator(s *session.Session) *automation.Automator {
	return s.Automator(e.profile, automation.WithAudit(e.provider.Audit().WithLogger(e.logger)))
}

// withSession runs fn against an attached session and tears everything
// down afterwards.
func withSession(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, e *env, s *session.Session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := newEnv(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer e.Close(context.Background())

	s, err := e.attach(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = session.Disconnect(s) }()

	return fn(ctx, e, s)
}
