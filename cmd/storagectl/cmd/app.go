package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"simplestorage/internal/contract"
	"simplestorage/internal/domain"
	"simplestorage/internal/infrastructure/ethrpc"
	"simplestorage/internal/wallet"

	"golang.org/x/sync/errgroup"
)

const statePollInterval = 50 * time.Millisecond

type app struct {
	settings settings
	rpc      *ethrpc.Client
	binding  *contract.SimpleStorage
	wallet   *wallet.Client
	out      io.Writer
}

func newApp(ctx context.Context, s settings, out io.Writer, observer func(wallet.State)) (*app, error) {
	address, err := s.contract()
	if err != nil {
		return nil, err
	}
	rpcClient, err := ethrpc.NewClient(ctx, ethrpc.Config{URL: s.RPCURL, Address: address, Timeout: s.RPCTimeout})
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	binding, err := contract.NewSimpleStorage(address)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	connectors, err := buildConnectors(s, rpcClient.Eth())
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	client, err := wallet.NewClient(rpcClient.Eth(), binding, connectors, wallet.Options{
		ChainID:       s.ChainID,
		NetworkName:   s.NetworkName,
		ExplorerTxURL: s.ExplorerTxURL,
		PollInterval:  s.PollInterval,
		RefetchDelay:  s.RefetchDelay,
		Notifier: wallet.NotifierFunc(func(n wallet.Notification) {
			fmt.Fprintf(out, "[%s] %s\n", n.Kind, n.Message)
		}),
		Observer: observer,
	})
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	return &app{settings: s, rpc: rpcClient, binding: binding, wallet: client, out: out}, nil
}

// buildConnectors lists the remote signer first when a project id is set.
func buildConnectors(s settings, chain wallet.ChainIDReader) ([]wallet.Connector, error) {
	var connectors []wallet.Connector
	if s.WalletConnectProjectID != "" {
		remote, err := wallet.NewRemoteSignerConnector(s.WalletConnectProjectID, s.WalletConnectSignerURL, chain)
		if err != nil {
			return nil, err
		}
		connectors = append(connectors, remote)
	}
	if s.PrivateKey != "" {
		key, err := wallet.NewKeyConnector(s.PrivateKey, chain)
		if err != nil {
			return nil, err
		}
		connectors = append(connectors, key)
	}
	return connectors, nil
}

func (a *app) close() {
	a.rpc.Close()
}

// run drives the wallet loop next to fn and stops it once fn returns.
func (a *app) run(ctx context.Context, fn func(ctx context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	loopCtx, stop := context.WithCancel(ctx)
	g.Go(func() error {
		return a.wallet.Run(loopCtx)
	})
	g.Go(func() error {
		defer stop()
		return fn(ctx)
	})
	return g.Wait()
}

func (a *app) connect(ctx context.Context) (wallet.State, error) {
	if err := a.wallet.Connect(ctx); err != nil {
		return wallet.State{}, err
	}
	s, err := waitFor(ctx, a.wallet, func(s wallet.State) bool {
		return s.Phase != wallet.PhaseConnecting && (s.Phase.Connected() || s.LastError != "")
	})
	if err != nil {
		return s, err
	}
	if !s.Phase.Connected() {
		return s, errors.New(s.LastError)
	}
	return s, nil
}

func waitFor(ctx context.Context, client *wallet.Client, cond func(wallet.State) bool) (wallet.State, error) {
	ticker := time.NewTicker(statePollInterval)
	defer ticker.Stop()
	for {
		s := client.State()
		if cond(s) {
			return s, nil
		}
		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case <-ticker.C:
		}
	}
}

func waitForWithin(ctx context.Context, client *wallet.Client, timeout time.Duration, cond func(wallet.State) bool) wallet.State {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	s, err := waitFor(ctx, client, cond)
	if err != nil {
		slog.Debug("state wait ended", "err", err)
	}
	return s
}

func describeNetwork(s wallet.State, chainID uint64, network string) string {
	switch {
	case !s.Connection.IsConnected:
		return "Not connected"
	case s.WrongNetwork(chainID):
		return fmt.Sprintf("Wrong network (chain %d). Please switch to %s", s.Connection.ChainID, network)
	default:
		return fmt.Sprintf("Connected to %s (chain %d)", network, s.Connection.ChainID)
	}
}

func describeBalance(s wallet.State) string {
	if s.BalanceError != "" {
		return s.BalanceError
	}
	if s.Balance == nil {
		return "unknown"
	}
	return domain.Balance{Wei: s.Balance}.Format(4)
}
