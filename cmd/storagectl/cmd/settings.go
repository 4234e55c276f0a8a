package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"simplestorage/internal/config"
	"simplestorage/internal/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

type settings struct {
	RPCURL                 string        `mapstructure:"rpc_url"`
	ContractAddress        string        `mapstructure:"contract_address"`
	ChainID                uint64        `mapstructure:"chain_id"`
	NetworkName            string        `mapstructure:"network_name"`
	ExplorerTxURL          string        `mapstructure:"explorer_tx_url"`
	PrivateKey             string        `mapstructure:"wallet_private_key"`
	WalletConnectProjectID string        `mapstructure:"walletconnect_project_id"`
	WalletConnectSignerURL string        `mapstructure:"walletconnect_signer_url"`
	PollInterval           time.Duration `mapstructure:"poll_interval"`
	RefetchDelay           time.Duration `mapstructure:"refetch_delay"`
	RPCTimeout             time.Duration `mapstructure:"rpc_timeout"`
	LogLevel               string        `mapstructure:"log_level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rpc_url", "")
	v.SetDefault("contract_address", "")
	v.SetDefault("chain_id", wallet.FujiChainID)
	v.SetDefault("network_name", wallet.DefaultNetworkName)
	v.SetDefault("explorer_tx_url", wallet.DefaultExplorerTxURL)
	v.SetDefault("wallet_private_key", "")
	v.SetDefault("walletconnect_project_id", "")
	v.SetDefault("walletconnect_signer_url", "")
	v.SetDefault("poll_interval", wallet.DefaultPollInterval)
	v.SetDefault("refetch_delay", wallet.DefaultRefetchDelay)
	v.SetDefault("rpc_timeout", 10*time.Second)
	v.SetDefault("log_level", "warn")
}

// loadSettings reads storagectl.yaml (when present), then environment
// variables, then bound flags, later sources winning.
func loadSettings(v *viper.Viper, configFile string) (settings, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("storagectl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return settings{}, fmt.Errorf("decode config: %w", err)
	}
	if strings.TrimSpace(s.RPCURL) == "" {
		return settings{}, errors.New("RPC_URL is required")
	}
	if _, err := s.contract(); err != nil {
		return settings{}, err
	}
	if s.ChainID == 0 {
		return settings{}, errors.New("CHAIN_ID must be positive")
	}
	if s.WalletConnectProjectID != "" && s.WalletConnectSignerURL == "" {
		return settings{}, errors.New("WALLETCONNECT_SIGNER_URL is required with WALLETCONNECT_PROJECT_ID")
	}
	return s, nil
}

func (s settings) contract() (common.Address, error) {
	if strings.TrimSpace(s.ContractAddress) == "" {
		return common.Address{}, errors.New("CONTRACT_ADDRESS is required")
	}
	address, err := config.ParseAddress(s.ContractAddress)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid CONTRACT_ADDRESS: %w", err)
	}
	return address, nil
}
