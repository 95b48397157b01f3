package cmd

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/teemow/mailcdp/internal/evaluator"
	"github.com/teemow/mailcdp/internal/session"
)

var errRemoteException = errors.New("script threw an exception")

type outcomeView struct {
	Failed      bool            `json:"failed"`
	Message     string          `json:"message,omitempty"`
	Type        string          `json:"type,omitempty"`
	Value       json.RawMessage `json:"value,omitempty"`
	Description string          `json:"description,omitempty"`
}

func newEvalCmd(opts *rootOptions) *cobra.Command {
	var evalOpts evaluator.Options

	cmd := &cobra.Command{
		Use:   "eval <script>",
		Short: "Evaluate a script in the primary window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, e *env, s *session.Session) error {
				out, err := s.Evaluator.Evaluate(ctx, args[0], evalOpts)
				if err != nil {
					return err
				}
				view := outcomeView{
					Failed:      out.Failed,
					Message:     out.Message,
					Type:        out.Type,
					Value:       out.Value,
					Description: out.Description,
				}
				if err := printJSON(e.stdout, view); err != nil {
					return err
				}
				if out.Failed {
					return errRemoteException
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&evalOpts.WaitForPromise, "await", false, "Wait for a returned promise to settle")
	cmd.Flags().BoolVar(&evalOpts.SerializeResult, "by-value", true, "Return the result serialized as JSON")
	return cmd
}
