package main

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/garyjia/approval-ledger/internal/application/ledger"
	"github.com/garyjia/approval-ledger/internal/container"
)

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Initialise the ledger's named keys (idempotent)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithLedger(cmd, func(ctx context.Context, c *container.Container) error {
				if err := c.Engine().Install(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ledger installed")
				return nil
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the installed contract version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithLedger(cmd, func(ctx context.Context, c *container.Container) error {
				v, err := c.Engine().ContractVersion(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "contract version %s\n", v)
				return nil
			})
		},
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Replay every workflow's history and check it against the stored record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithLedger(cmd, func(ctx context.Context, c *container.Container) error {
				engine := c.Engine()
				count, err := engine.GetWorkflowCount(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				failed := 0
				one := uint256.NewInt(1)
				for id := uint256.NewInt(1); !id.Gt(count); id = new(uint256.Int).Add(id, one) {
					if err := ctx.Err(); err != nil {
						return err
					}
					w, records, err := engine.GetWorkflowSnapshot(ctx, id)
					if err != nil {
						return err
					}
					if err := ledger.Verify(w, records); err != nil {
						failed++
						fmt.Fprintf(out, "workflow %s: %v\n", id.Dec(), err)
					}
					if id.Eq(count) {
						break
					}
				}

				if failed > 0 {
					return fmt.Errorf("%d of %s workflows failed verification", failed, count.Dec())
				}
				fmt.Fprintf(out, "verified %s workflows\n", count.Dec())
				return nil
			})
		},
	}
}
