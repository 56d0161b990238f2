package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/powermarket/internal/market"
)

// NewDemandCommand creates the demand command group.
func NewDemandCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demand",
		Short: "Publish and inspect energy demands",
	}
	cmd.AddCommand(newDemandCreateCommand(opts))
	cmd.AddCommand(newDemandGetCommand(opts))
	cmd.AddCommand(newDemandListCommand(opts))
	cmd.AddCommand(newDemandDeleteCommand(opts))
	cmd.AddCommand(newDemandRepairCommand(opts))
	return cmd
}

func newDemandCreateCommand(opts *RootOptions) *cobra.Command {
	var propsPath string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a demand owned by the signer",
		Long: `Publish a demand. The properties file is validated, hashed and
stored off-ledger; the ledger records the hash and the document URL.

Example:
  powermarket demand create --props demand.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			props, err := readProps[market.DemandProperties](propsPath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runAction(cmd, opts, true, func(ctx context.Context, m *market.Market) (any, error) {
				d, err := m.CreateDemand(ctx, props)
				if err != nil {
					return nil, err
				}
				return newDemandView(d), nil
			})
		},
	}

	cmd.Flags().StringVar(&propsPath, "props", "", "demand properties JSON file (- for stdin)")
	return cmd
}

func newDemandGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a demand and its verified properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runAction(cmd, opts, false, func(ctx context.Context, m *market.Market) (any, error) {
				d := m.Demand(id)
				if err := d.Sync(ctx); err != nil && !d.Initialized() {
					return nil, err
				}
				return newDemandView(d), nil
			})
		},
	}
}

func newDemandListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List live demands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, opts, false, func(ctx context.Context, m *market.Market) (any, error) {
				all, err := m.AllDemands(ctx)
				if err != nil {
					return nil, err
				}
				return listView(all, newDemandView), nil
			})
		},
	}
}

func newDemandDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Withdraw a demand owned by the signer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runAction(cmd, opts, true, func(ctx context.Context, m *market.Market) (any, error) {
				if err := m.DeleteDemand(ctx, id); err != nil {
					return nil, err
				}
				return Message{Message: "Demand " + args[0] + " deleted"}, nil
			})
		},
	}
}

func newDemandRepairCommand(opts *RootOptions) *cobra.Command {
	var propsPath string

	cmd := &cobra.Command{
		Use:   "repair <id>",
		Short: "Re-store a demand's missing or damaged properties",
		Long: `Re-store the off-ledger properties of a demand. The file must hash to
the commitment recorded on the ledger; anything else is refused.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			props, err := readProps[market.DemandProperties](propsPath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runAction(cmd, opts, false, func(ctx context.Context, m *market.Market) (any, error) {
				d := m.Demand(id)
				if err := d.Sync(ctx); err != nil && !d.Initialized() {
					return nil, err
				}
				if err := d.RepairOffChain(ctx, props); err != nil {
					return nil, err
				}
				return newDemandView(d), nil
			})
		},
	}

	cmd.Flags().StringVar(&propsPath, "props", "", "demand properties JSON file (- for stdin)")
	return cmd
}
