package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/mailcdp/internal/automation"
	"github.com/teemow/mailcdp/internal/session"
)

func newComposeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Drive a compose session step by step",
		Long: `Drive a single compose session. Every step checks that the application
reflects the change before reporting success; a step that runs out of
attempts exits with code 3.`,
	}

	cmd.AddCommand(newComposeOpenCmd(opts))
	cmd.AddCommand(newComposeSetCmd(opts))
	cmd.AddCommand(newComposeSaveCmd(opts))
	cmd.AddCommand(newComposeCloseCmd(opts))
	cmd.AddCommand(newComposeStateCmd(opts))
	cmd.AddCommand(newComposeListCmd(opts))
	return cmd
}

// automate runs fn with an Automator bound to the attached window.
func automate(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, e *env, a *automation.Automator) error) error {
	return withSession(cmd, opts, func(ctx context.Context, e *env, s *session.Session) error {
		return fn(ctx, e, e.automator(s))
	})
}

func newComposeOpenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "Open a new compose session and print its key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return automate(cmd, opts, func(ctx context.Context, e *env, a *automation.Automator) error {
				res, err := a.OpenCompose(ctx)
				if err != nil {
					return err
				}
				if err := printJSON(e.stdout, res); err != nil {
					return err
				}
				return report(e.stderr, "open compose", res.Result)
			})
		},
	}
}

func newComposeSetCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "set <key> <field> <value>",
		Short: "Set a draft field and wait until the application shows it",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, field := automation.DraftKey(args[0]), args[1]
			var value any = args[2]
			if asJSON {
				if err := json.Unmarshal([]byte(args[2]), &value); err != nil {
					return fmt.Errorf("invalid JSON value: %w", err)
				}
			}
			return automate(cmd, opts, func(ctx context.Context, e *env, a *automation.Automator) error {
				res, err := a.SetField(ctx, key, field, value)
				if err != nil {
					return err
				}
				if err := printJSON(e.stdout, res); err != nil {
					return err
				}
				return report(e.stderr, "set "+field, res)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Parse the value as JSON")
	return cmd
}

func newComposeSaveCmd(opts *rootOptions) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "save <key>",
		Short: "Save a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := automation.DraftKey(args[0])
			return automate(cmd, opts, func(ctx context.Context, e *env, a *automation.Automator) error {
				res, err := a.SaveDraft(ctx, key)
				if err != nil {
					return err
				}
				if err := report(e.stderr, "save", res); err != nil {
					_ = printJSON(e.stdout, res)
					return err
				}
				if wait {
					res, err = a.WaitSaved(ctx, key)
					if err != nil {
						return err
					}
					if err := printJSON(e.stdout, res); err != nil {
						return err
					}
					return report(e.stderr, "wait saved", res)
				}
				return printJSON(e.stdout, res)
			})
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", true, "Wait until the draft has no unsaved changes")
	return cmd
}

func newComposeCloseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "close <key>",
		Short: "Close a compose session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := automation.DraftKey(args[0])
			return automate(cmd, opts, func(ctx context.Context, e *env, a *automation.Automator) error {
				res, err := a.CloseCompose(ctx, key)
				if err != nil {
					return err
				}
				if err := printJSON(e.stdout, res); err != nil {
					return err
				}
				return report(e.stderr, "close", res.Result)
			})
		},
	}
}

func newComposeStateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state <key>",
		Short: "Print a draft's current fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := automation.DraftKey(args[0])
			return automate(cmd, opts, func(ctx context.Context, e *env, a *automation.Automator) error {
				snap, err := a.GetDraftState(ctx, key)
				if err != nil {
					return err
				}
				return printJSON(e.stdout, snap)
			})
		},
	}
}

func newComposeListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open compose sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return automate(cmd, opts, func(ctx context.Context, e *env, a *automation.Automator) error {
				keys, err := a.ListDrafts(ctx)
				if err != nil {
					return err
				}
				if keys == nil {
					keys = []automation.DraftKey{}
				}
				return printJSON(e.stdout, keys)
			})
		},
	}
}
