package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/powermarket/internal/chain"
	"github.com/roach88/powermarket/internal/harness"
)

// TxLog is the output of the log command.
type TxLog []chain.TxRecord

func (l TxLog) String() string {
	if len(l) == 0 {
		return "(no transactions)"
	}
	var b strings.Builder
	for i, tx := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d %s %s.%s %s", tx.Seq, tx.Sender.Hex(), tx.Kind, tx.Op, tx.Args)
		for _, ev := range tx.Events {
			fmt.Fprintf(&b, "\n  %s", ev.Name)
			if len(ev.Topics) > 1 {
				fmt.Fprintf(&b, " id=%s", ev.Topics[1].Big())
			}
		}
	}
	return b.String()
}

// NewLogCommand creates the log command.
func NewLogCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Print the ledger transaction log",
		Long: `Print every accepted ledger transaction in sequence order with the
events it emitted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			out := opts.formatter(cmd)
			txs, err := s.chain.Transactions(cmd.Context())
			if err != nil {
				return out.Fail(ExitFailure, harness.ErrorCode(err), err)
			}
			return out.Success(TxLog(txs))
		},
	}
}
