package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/powermarket/internal/market"
)

// NewAgreementCommand creates the agreement command group.
func NewAgreementCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agreement",
		Short: "Propose, approve and settle agreements",
		Long: `Propose, approve and settle agreements between a demand and a supply.

An agreement is FullyApproved once both the demand owner and the supply
owner have approved it. The creator's side is approved at creation.`,
	}
	cmd.AddCommand(newAgreementCreateCommand(opts))
	cmd.AddCommand(newAgreementGetCommand(opts))
	cmd.AddCommand(newAgreementListCommand(opts))
	cmd.AddCommand(newAgreementApproveCommand(opts, "approve-supply", "Approve as the supply owner", (*market.Agreement).ApproveSupply))
	cmd.AddCommand(newAgreementApproveCommand(opts, "approve-demand", "Approve as the demand owner", (*market.Agreement).ApproveDemand))
	cmd.AddCommand(newAgreementSetMatcherCommand(opts))
	cmd.AddCommand(newAgreementRepairCommand(opts))
	return cmd
}

func newAgreementCreateCommand(opts *RootOptions) *cobra.Command {
	var (
		propsPath        string
		matcherPropsPath string
		demandID         uint64
		supplyID         uint64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Propose an agreement between a demand and a supply",
		Long: `Propose an agreement. The signer must own the demand or the supply.

Example:
  powermarket agreement create --demand 0 --supply 0 --props terms.json
  powermarket agreement create --demand 0 --supply 0 --props terms.json --matcher-props telemetry.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			terms, err := readProps[market.AgreementProperties](propsPath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			var telemetry market.MatcherProperties
			if matcherPropsPath != "" {
				telemetry, err = readProps[market.MatcherProperties](matcherPropsPath, cmd.InOrStdin())
				if err != nil {
					return err
				}
			}
			return runAction(cmd, opts, true, func(ctx context.Context, m *market.Market) (any, error) {
				a, err := m.CreateAgreement(ctx, demandID, supplyID, terms, telemetry)
				if err != nil {
					return nil, err
				}
				return newAgreementView(a), nil
			})
		},
	}

	cmd.Flags().StringVar(&propsPath, "props", "", "agreement terms JSON file (- for stdin)")
	cmd.Flags().StringVar(&matcherPropsPath, "matcher-props", "", "initial matcher properties JSON file")
	cmd.Flags().Uint64Var(&demandID, "demand", 0, "demand id (required)")
	cmd.Flags().Uint64Var(&supplyID, "supply", 0, "supply id (required)")
	_ = cmd.MarkFlagRequired("demand")
	_ = cmd.MarkFlagRequired("supply")
	return cmd
}

func newAgreementGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show an agreement, its state and both documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runAction(cmd, opts, false, func(ctx context.Context, m *market.Market) (any, error) {
				a := m.Agreement(id)
				if err := a.Sync(ctx); err != nil && !a.Initialized() {
					return nil, err
				}
				return newAgreementView(a), nil
			})
		},
	}
}

func newAgreementListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List agreements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, opts, false, func(ctx context.Context, m *market.Market) (any, error) {
				all, err := m.AllAgreements(ctx)
				if err != nil {
					return nil, err
				}
				return listView(all, newAgreementView), nil
			})
		},
	}
}

func newAgreementApproveCommand(opts *RootOptions, use, short string, approve func(*market.Agreement, context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runAction(cmd, opts, true, func(ctx context.Context, m *market.Market) (any, error) {
				a := m.Agreement(id)
				if err := approve(a, ctx); err != nil && !a.Initialized() {
					return nil, err
				}
				return newAgreementView(a), nil
			})
		},
	}
}

func newAgreementSetMatcherCommand(opts *RootOptions) *cobra.Command {
	var propsPath string

	cmd := &cobra.Command{
		Use:   "set-matcher <id>",
		Short: "Replace an agreement's matcher properties",
		Long: `Replace the settlement telemetry of an agreement. The signer must be one
of the agreement's allowed matchers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			props, err := readProps[market.MatcherProperties](propsPath, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return runAction(cmd, opts, true, func(ctx context.Context, m *market.Market) (any, error) {
				a := m.Agreement(id)
				if err := a.SetMatcherProperties(ctx, props); err != nil {
					return nil, err
				}
				return newAgreementView(a), nil
			})
		},
	}

	cmd.Flags().StringVar(&propsPath, "props", "", "matcher properties JSON file (- for stdin)")
	return cmd
}

func newAgreementRepairCommand(opts *RootOptions) *cobra.Command {
	var (
		propsPath  string
		forMatcher bool
	)

	cmd := &cobra.Command{
		Use:   "repair <id>",
		Short: "Re-store an agreement's terms or matcher properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var repair func(context.Context, *market.Agreement) error
			if forMatcher {
				props, err := readProps[market.MatcherProperties](propsPath, cmd.InOrStdin())
				if err != nil {
					return err
				}
				repair = func(ctx context.Context, a *market.Agreement) error {
					return a.RepairMatcherProperties(ctx, props)
				}
			} else {
				props, err := readProps[market.AgreementProperties](propsPath, cmd.InOrStdin())
				if err != nil {
					return err
				}
				repair = func(ctx context.Context, a *market.Agreement) error {
					return a.RepairOffChain(ctx, props)
				}
			}

			return runAction(cmd, opts, false, func(ctx context.Context, m *market.Market) (any, error) {
				a := m.Agreement(id)
				if err := a.Sync(ctx); err != nil && !a.Initialized() {
					return nil, err
				}
				if err := repair(ctx, a); err != nil {
					return nil, err
				}
				return newAgreementView(a), nil
			})
		},
	}

	cmd.Flags().StringVar(&propsPath, "props", "", "properties JSON file (- for stdin)")
	cmd.Flags().BoolVar(&forMatcher, "matcher", false, "repair the matcher properties instead of the terms")
	return cmd
}
