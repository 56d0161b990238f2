package cli

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/roach88/powermarket/internal/market"
)

// NewAssetCommand creates the asset command group.
func NewAssetCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Register and inspect producing assets",
	}
	cmd.AddCommand(newAssetCreateCommand(opts))
	cmd.AddCommand(newAssetGetCommand(opts))
	return cmd
}

func newAssetCreateCommand(opts *RootOptions) *cobra.Command {
	var matchers []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register an asset owned by the signer",
		Long: `Register a producing asset owned by the configured signer.

Matcher addresses may update the settlement telemetry of every agreement
whose supply is offered from this asset.

Example:
  powermarket asset create --matcher 0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addrs, err := parseAddresses(matchers)
			if err != nil {
				return err
			}
			return runAction(cmd, opts, true, func(ctx context.Context, m *market.Market) (any, error) {
				a, err := m.CreateAsset(ctx, addrs)
				if err != nil {
					return nil, err
				}
				return newAssetView(a), nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&matchers, "matcher", nil, "matcher address (repeatable)")
	return cmd
}

func newAssetGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runAction(cmd, opts, false, func(ctx context.Context, m *market.Market) (any, error) {
				a := m.Asset(id)
				if err := a.Sync(ctx); err != nil {
					return nil, err
				}
				return newAssetView(a), nil
			})
		},
	}
}

func parseAddresses(values []string) ([]common.Address, error) {
	addrs := make([]common.Address, 0, len(values))
	for _, v := range values {
		if !common.IsHexAddress(v) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid address %q", v))
		}
		addrs = append(addrs, common.HexToAddress(v))
	}
	return addrs, nil
}
