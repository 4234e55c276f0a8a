package cmd

import (
	"context"
	"fmt"
	"time"

	"simplestorage/internal/wallet"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show wallet connection, network, balance and stored value",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), loaded, cmd.OutOrStdout(), nil)
		if err != nil {
			return err
		}
		defer a.close()

		return a.run(cmd.Context(), func(ctx context.Context) error {
			s, err := a.connect(ctx)
			if err != nil {
				return err
			}
			s = waitForWithin(ctx, a.wallet, 5*time.Second, func(s wallet.State) bool {
				valueSettled := s.Value != nil || s.ReadError != "" || s.WrongNetwork(a.settings.ChainID)
				return (s.Balance != nil || s.BalanceError != "") && valueSettled
			})
			printStatus(a, s)
			return nil
		})
	},
}

func printStatus(a *app, s wallet.State) {
	out := a.out
	fmt.Fprintf(out, "Wallet:   %s (%s)\n", s.Connection.ShortAddress(), s.Connector)
	fmt.Fprintf(out, "Network:  %s\n", describeNetwork(s, a.settings.ChainID, a.settings.NetworkName))
	fmt.Fprintf(out, "Balance:  %s\n", describeBalance(s))
	switch {
	case s.WrongNetwork(a.settings.ChainID):
		fmt.Fprintln(out, "Value:    unavailable on this network")
	case s.ReadError != "":
		fmt.Fprintf(out, "Value:    %s\n", s.ReadError)
	case s.Value != nil:
		fmt.Fprintf(out, "Value:    %s\n", s.Value.String())
	default:
		fmt.Fprintln(out, "Value:    loading")
	}
}
