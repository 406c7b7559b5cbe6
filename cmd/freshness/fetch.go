package main

import (
	"encoding/json"
	"fmt"

	"github.com/ericselin/freshness"
	"github.com/ericselin/freshness/server"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newFetchCmd(opts *cliOptions) *cobra.Command {
	var policyFlag string
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Resolve the catalog under a policy and print what a page would render",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy, err := freshness.ParsePolicy(policyFlag)
			if err != nil {
				return err
			}
			backend, err := opts.backend()
			if err != nil {
				return err
			}

			var scope freshness.Scope = freshness.NoScope
			switch policy {
			case freshness.PerRequest:
				rs := freshness.NewRequestScope()
				defer rs.Close()
				scope = rs
			case freshness.Frozen:
				scope = freshness.NewProcessScope()
			}

			resolver := freshness.New(freshness.Config{Logger: &log.Logger})
			a := resolver.Activate(cmd.Context(), policy, opts.pageSource(backend), scope)
			log.Debug().Str("policy", policy.String()).Str("state", a.State().Kind.String()).Msg("Activated")

			state, err := a.Wait(cmd.Context())
			if err != nil {
				return err
			}
			body := server.PageResponse{
				Policy: policy.String(),
				State:  state.Kind.String(),
				Data:   state.Catalog,
			}
			if o, ok := a.Outcome(); ok {
				body.FetchedAt = o.FetchedAt
			}
			if state.Kind == freshness.Failed {
				body.Reason = state.ReasonCode()
				body.Error = state.Reason.Error()
				body.Terminal = freshness.IsTerminal(state.Reason)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(body); err != nil {
				return err
			}
			if state.Kind == freshness.Failed {
				return exitError{code: 1, message: fmt.Sprintf("catalog %s: %s", state.Kind, body.Reason)}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&policyFlag, "policy", freshness.OnDemand.String(), "Freshness policy: on-demand, per-request or frozen")
	return cmd
}
