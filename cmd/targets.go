package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/teemow/mailcdp/internal/target"
)

type targetView struct {
	target.Target
	Primary bool `json:"primary"`
}

func newTargetsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List debuggable targets and mark the primary window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			e, err := newEnv(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close(context.Background())

			rule, err := e.profile.Rule()
			if err != nil {
				return err
			}
			targets, err := target.NewLocator(nil, e.logger).ListTargets(ctx, e.profile.Endpoint)
			if err != nil {
				return err
			}

			primary, attached := target.SelectPrimary(targets, rule)
			views := make([]targetView, len(targets))
			for i, t := range targets {
				views[i] = targetView{Target: t, Primary: attached && t.ID == primary.ID}
			}
			if err := printJSON(e.stdout, views); err != nil {
				return err
			}
			if !attached {
				return errNotAttached
			}
			printOK(e.stderr, "primary window %s (%s)", primary.ID, primary.DisplayURL)
			return nil
		},
	}
}
