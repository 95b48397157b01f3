package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/teemow/mailcdp/internal/automation"
	"github.com/teemow/mailcdp/internal/config"
)

func newDraftCmd(opts *rootOptions) *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "draft <subject> <body>",
		Short: "Open, fill and save a draft, then print its state",
		Long: `Open a new compose session, set its subject, recipients and body, save it
and wait until the application reports no unsaved changes. The final
draft state is printed as JSON. The compose window is left open.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, body := args[0], args[1]
			return automate(cmd, opts, func(ctx context.Context, e *env, a *automation.Automator) error {
				opened, err := a.OpenCompose(ctx)
				if err != nil {
					return err
				}
				if err := report(e.stderr, "open compose", opened.Result); err != nil {
					return err
				}
				key := opened.Key

				fields := []struct{ name, value string }{
					{config.FieldSubject, subject},
					{config.FieldTo, to},
					{config.FieldBody, body},
				}
				for _, f := range fields {
					if f.value == "" {
						continue
					}
					res, err := a.SetField(ctx, key, f.name, f.value)
					if err != nil {
						return err
					}
					if err := report(e.stderr, "set "+f.name, res); err != nil {
						return err
					}
				}

				res, err := a.SaveDraft(ctx, key)
				if err != nil {
					return err
				}
				if err := report(e.stderr, "save", res); err != nil {
					return err
				}
				res, err = a.WaitSaved(ctx, key)
				if err != nil {
					return err
				}
				if err := report(e.stderr, "wait saved", res); err != nil {
					return err
				}

				snap, err := a.GetDraftState(ctx, key)
				if err != nil {
					return err
				}
				return printJSON(e.stdout, snap)
			})
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Comma separated recipients")
	return cmd
}
