package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyjia/approval-ledger/internal/container"
	"github.com/garyjia/approval-ledger/internal/domain/entity"
	domainwf "github.com/garyjia/approval-ledger/internal/domain/workflow"
)

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <template-hash> <data-hash>",
		Short: "Create a workflow in DRAFT and print its id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			templateHash, err := entity.ParseHash(args[0])
			if err != nil {
				return fmt.Errorf("template hash: %w", err)
			}
			dataHash, err := entity.ParseHash(args[1])
			if err != nil {
				return fmt.Errorf("data hash: %w", err)
			}

			return runWithLedger(cmd, func(ctx context.Context, c *container.Container) error {
				id, err := c.Engine().CreateWorkflow(ctx, templateHash, dataHash)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), entity.WorkflowKey(id))
				return nil
			})
		},
	}
}

func newTransitionCmd() *cobra.Command {
	var (
		role    uint64
		comment string
	)

	cmd := &cobra.Command{
		Use:   "transition <workflow-id> <to-state>",
		Short: "Move a workflow to another state",
		Long:  `The target state is a name such as PENDING_REVIEW or a numeric value in 0-255.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := entity.ParseWorkflowID(args[0])
			if err != nil {
				return err
			}
			to, err := domainwf.ParseState(args[1])
			if err != nil {
				return err
			}
			var commentHash entity.Hash
			if comment != "" {
				if commentHash, err = entity.ParseHash(comment); err != nil {
					return fmt.Errorf("comment hash: %w", err)
				}
			}

			return runWithLedger(cmd, func(ctx context.Context, c *container.Container) error {
				if err := c.Engine().TransitionState(ctx, id, to, entity.Role(role), commentHash); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "workflow %s is now %s\n", args[0], to)
				return nil
			})
		},
	}

	cmd.Flags().Uint64Var(&role, "role", 0, "Role bitmask claimed by the actor")
	cmd.Flags().StringVar(&comment, "comment", "", "Hash of the off-ledger comment (defaults to zero)")
	return cmd
}

func newStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state <workflow-id>",
		Short: "Print a workflow record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := entity.ParseWorkflowID(args[0])
			if err != nil {
				return err
			}
			return runWithLedger(cmd, func(ctx context.Context, c *container.Container) error {
				w, err := c.Engine().GetWorkflowState(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), struct {
					*entity.WorkflowData
					ID           string `json:"id"`
					CurrentState string `json:"current_state"`
				}{w, entity.WorkflowKey(&w.ID), w.CurrentState.String()})
			})
		},
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <workflow-id>",
		Short: "Print a workflow's audit trail, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := entity.ParseWorkflowID(args[0])
			if err != nil {
				return err
			}
			return runWithLedger(cmd, func(ctx context.Context, c *container.Container) error {
				records, err := c.Engine().GetWorkflowHistory(ctx, id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No transitions recorded.")
					return nil
				}
				for i, r := range records {
					fmt.Fprintf(out, "%d\t%s -> %s\t%s\t%s\t%d\t%s\n",
						i, r.FromState, r.ToState, r.Actor, r.ActorRole, r.Timestamp, r.CommentHash)
				}
				return nil
			})
		},
	}
}

func newCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of workflows ever created",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithLedger(cmd, func(ctx context.Context, c *container.Container) error {
				count, err := c.Engine().GetWorkflowCount(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), count.Dec())
				return nil
			})
		},
	}
}
