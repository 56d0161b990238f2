package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/powermarket/internal/market"
)

// NewSupplyCommand creates the supply command group.
func NewSupplyCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "supply",
		Short: "Offer and inspect energy supplies",
	}
	cmd.AddCommand(newSupplyCreateCommand(opts))
	cmd.AddCommand(newSupplyGetCommand(opts))
	cmd.AddCommand(newSupplyListCommand(opts))
	cmd.AddCommand(newSupplyRepairCommand(opts))
	return cmd
}

func newSupplyCreateCommand(opts *RootOptions) *cobra.Command {
	var (
		propsPath string
		assetID   uint64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Offer energy from an asset owned by the signer",
		Long: `Offer energy from a registered asset. The signer must own the asset.

Example:
  powermarket supply create --asset 0 --props supply.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			props, err := readProps[market.SupplyProperties](propsPath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runAction(cmd, opts, true, func(ctx context.Context, m *market.Market) (any, error) {
				s, err := m.CreateSupply(ctx, assetID, props)
				if err != nil {
					return nil, err
				}
				return newSupplyView(s), nil
			})
		},
	}

	cmd.Flags().StringVar(&propsPath, "props", "", "supply properties JSON file (- for stdin)")
	cmd.Flags().Uint64Var(&assetID, "asset", 0, "id of the producing asset (required)")
	_ = cmd.MarkFlagRequired("asset")
	return cmd
}

func newSupplyGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a supply and its verified properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runAction(cmd, opts, false, func(ctx context.Context, m *market.Market) (any, error) {
				s := m.Supply(id)
				if err := s.Sync(ctx); err != nil && !s.Initialized() {
					return nil, err
				}
				return newSupplyView(s), nil
			})
		},
	}
}

func newSupplyListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List supplies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, opts, false, func(ctx context.Context, m *market.Market) (any, error) {
				all, err := m.AllSupplies(ctx)
				if err != nil {
					return nil, err
				}
				return listView(all, newSupplyView), nil
			})
		},
	}
}

func newSupplyRepairCommand(opts *RootOptions) *cobra.Command {
	var propsPath string

	cmd := &cobra.Command{
		Use:   "repair <id>",
		Short: "Re-store a supply's missing or damaged properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			props, err := readProps[market.SupplyProperties](propsPath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runAction(cmd, opts, false, func(ctx context.Context, m *market.Market) (any, error) {
				s := m.Supply(id)
				if err := s.Sync(ctx); err != nil && !s.Initialized() {
					return nil, err
				}
				if err := s.RepairOffChain(ctx, props); err != nil {
					return nil, err
				}
				return newSupplyView(s), nil
			})
		},
	}

	cmd.Flags().StringVar(&propsPath, "props", "", "supply properties JSON file (- for stdin)")
	return cmd
}
