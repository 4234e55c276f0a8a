package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"simplestorage/internal/infrastructure/logging"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	v       = viper.New()
	loaded  settings
)

var rootCmd = &cobra.Command{
	Use:   "storagectl",
	Short: "Read and update the SimpleStorage contract from a wallet",
	Long: `storagectl connects a wallet to the SimpleStorage contract, reads the stored
value and submits setValue transactions, following each one until it is mined.

Configuration comes from storagectl.yaml, environment variables (RPC_URL,
CONTRACT_ADDRESS, WALLET_PRIVATE_KEY, ...) and flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(v, cfgFile)
		if err != nil {
			return err
		}
		loaded = s
		_, err = logging.Init(logging.Config{Service: "storagectl", Level: s.LogLevel})
		return err
	},
}

func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./storagectl.yaml)")
	flags.String("rpc-url", "", "JSON-RPC endpoint")
	flags.String("contract", "", "SimpleStorage contract address")
	flags.Uint64("chain-id", 0, "required chain id")
	_ = v.BindPFlag("rpc_url", flags.Lookup("rpc-url"))
	_ = v.BindPFlag("contract_address", flags.Lookup("contract"))
	_ = v.BindPFlag("chain_id", flags.Lookup("chain-id"))

	rootCmd.AddCommand(statusCmd, getCmd, setCmd, watchCmd)
}
