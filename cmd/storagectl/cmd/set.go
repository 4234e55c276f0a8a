package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"simplestorage/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <value>",
	Short: "Submit setValue and wait until it is mined",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), loaded, cmd.OutOrStdout(), nil)
		if err != nil {
			return err
		}
		defer a.close()

		return a.run(cmd.Context(), func(ctx context.Context) error {
			if _, err := a.connect(ctx); err != nil {
				return err
			}
			return a.setValue(ctx, args[0])
		})
	},
}

func (a *app) setValue(ctx context.Context, input string) error {
	if err := a.wallet.SetInput(ctx, input); err != nil {
		return err
	}
	if err := a.wallet.Submit(ctx); err != nil {
		return err
	}

	var announced common.Hash
	s, err := waitFor(ctx, a.wallet, func(s wallet.State) bool {
		if s.PendingTx != nil && s.PendingTx.Hash != announced {
			announced = s.PendingTx.Hash
			fmt.Fprintf(a.out, "Pending:  %s\n", a.wallet.ExplorerLink(announced))
		}
		return s.LastError != "" || s.Phase == wallet.PhaseConfirmed
	})
	if err != nil {
		return err
	}
	if s.LastError != "" {
		return errors.New(s.LastError)
	}

	want, _ := new(big.Int).SetString(input, 10)
	s = waitForWithin(ctx, a.wallet, a.settings.RefetchDelay+a.settings.RPCTimeout, func(s wallet.State) bool {
		return s.Value != nil && want != nil && s.Value.Cmp(want) == 0
	})
	fmt.Fprintf(a.out, "Tx:       %s\n", a.wallet.ExplorerLink(s.LastTx))
	if s.Value != nil {
		fmt.Fprintf(a.out, "Value:    %s\n", s.Value.String())
	}
	return nil
}
