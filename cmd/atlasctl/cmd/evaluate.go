package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tumbig251800/atlas-wise-spark/internal/core/strike"
	"github.com/tumbig251800/atlas-wise-spark/internal/platform/net/http/bind"
	"github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/domain"
	"github.com/tumbig251800/atlas-wise-spark/internal/services/diagnostics/module"
)

var (
	evalStay []string
	evalPass []string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <logId>",
	Short: "Evaluate one teaching log synchronously and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := inputFrom(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		return withEngine(ctx, func(p module.Ports) error {
			res, err := p.Evaluator.Evaluate(ctx, in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		})
	},
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <logId>",
	Short: "Queue one teaching log for the worker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := inputFrom(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		return withEngine(ctx, func(p module.Ports) error {
			id, err := p.Enqueuer.Enqueue(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{evaluateCmd, enqueueCmd} {
		c.Flags().StringSliceVar(&evalStay, "stay", nil, "student ids marked stay")
		c.Flags().StringSliceVar(&evalPass, "pass", nil, "student ids marked pass")
	}
}

// inputFrom builds a validated Input from the args and the status flags
func inputFrom(logID string) (domain.Input, error) {
	in := domain.Input{TeachingLogID: logID}
	for _, id := range evalStay {
		in.RemedialStatuses = append(in.RemedialStatuses, domain.RemedialStatus{StudentID: id, Status: strike.Stay})
	}
	for _, id := range evalPass {
		in.RemedialStatuses = append(in.RemedialStatuses, domain.RemedialStatus{StudentID: id, Status: strike.Pass})
	}
	if err := bind.Validate(in); err != nil {
		return domain.Input{}, err
	}
	return in, nil
}
