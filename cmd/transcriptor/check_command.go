package main

import (
	"errors"

	"github.com/spf13/cobra"

	"transcriptor/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check dependencies, directories, and AWS access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			var remote preflight.Remote
			var setupErr error
			if !offline && cfg.RequireBucket() == nil {
				be, err := ctx.backends(commandCtx(cmd), cfg, logger)
				if err != nil {
					setupErr = err
				} else {
					remote = be.Remote
				}
			}

			results := preflight.RunAll(commandCtx(cmd), cfg, remote)
			if setupErr != nil {
				results = append(results, preflight.Result{Name: "AWS configuration", Detail: setupErr.Error()})
			}

			writeCheckReport(cmd.OutOrStdout(), "Transcriptor checks", results)
			if failed := preflight.Failed(results); len(failed) > 0 {
				return errors.New("one or more required checks failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip AWS credential and bucket checks")
	return cmd
}
