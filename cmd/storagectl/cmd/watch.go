package cmd

import (
	"context"
	"fmt"
	"io"

	"simplestorage/internal/wallet"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Connect and print every wallet state change until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		printer := &statePrinter{out: cmd.OutOrStdout(), chainID: loaded.ChainID, network: loaded.NetworkName}
		a, err := newApp(cmd.Context(), loaded, cmd.OutOrStdout(), printer.print)
		if err != nil {
			return err
		}
		defer a.close()

		return a.run(cmd.Context(), func(ctx context.Context) error {
			if _, err := a.connect(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		})
	},
}

// statePrinter writes one line per observed change of phase, account,
// chain, value or error.
type statePrinter struct {
	out     io.Writer
	chainID uint64
	network string
	last    string
}

func (p *statePrinter) print(s wallet.State) {
	value := "-"
	if s.Value != nil {
		value = s.Value.String()
	}
	line := fmt.Sprintf("%-13s account=%s network=%q value=%s", s.Phase, s.Connection.ShortAddress(), describeNetwork(s, p.chainID, p.network), value)
	if s.PendingTx != nil {
		line += " pending=" + s.PendingTx.Hash.Hex()
	}
	if s.LastError != "" {
		line += fmt.Sprintf(" error=%q", s.LastError)
	}
	if line == p.last {
		return
	}
	p.last = line
	fmt.Fprintln(p.out, line)
}
