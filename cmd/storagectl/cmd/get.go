package cmd

import (
	"fmt"

	"simplestorage/internal/application"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the stored value",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), loaded, cmd.OutOrStdout(), nil)
		if err != nil {
			return err
		}
		defer a.close()

		gateway, err := application.NewStorageGateway(a.rpc, a.binding, application.GatewayConfig{RPCTimeout: a.settings.RPCTimeout})
		if err != nil {
			return err
		}
		value, err := gateway.GetLatestValue(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, value.String())
		return nil
	},
}
