package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/external"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	ConnectorInjected      = "injected"
	ConnectorWalletConnect = "walletConnect"
)

// Connector opens wallet sessions of one kind.
type Connector interface {
	ID() string
	Connect(ctx context.Context) (Session, error)
}

// Session is a live connection to a wallet. Accounts and ChainID are polled
// to notice changes made on the wallet side.
type Session interface {
	Accounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (uint64, error)
	SignTx(ctx context.Context, account common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
	Close() error
}

type ChainIDReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// SelectConnector prefers a walletConnect connector and otherwise takes the
// first one configured.
func SelectConnector(connectors []Connector) (Connector, error) {
	for _, connector := range connectors {
		if connector.ID() == ConnectorWalletConnect {
			return connector, nil
		}
	}
	if len(connectors) == 0 {
		return nil, ErrNoConnector
	}
	return connectors[0], nil
}

// KeyConnector signs locally with a private key and follows the chain of the
// node it is attached to.
type KeyConnector struct {
	key   *ecdsa.PrivateKey
	chain ChainIDReader
}

func NewKeyConnector(hexKey string, chain ChainIDReader) (*KeyConnector, error) {
	if chain == nil {
		return nil, errors.New("chain is required")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &KeyConnector{key: key, chain: chain}, nil
}

func (k *KeyConnector) ID() string {
	return ConnectorInjected
}

func (k *KeyConnector) Address() common.Address {
	return crypto.PubkeyToAddress(k.key.PublicKey)
}

func (k *KeyConnector) Connect(ctx context.Context) (Session, error) {
	return &keySession{key: k.key, address: k.Address(), chain: k.chain}, nil
}

type keySession struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chain   ChainIDReader
}

func (s *keySession) Accounts(ctx context.Context) ([]common.Address, error) {
	return []common.Address{s.address}, nil
}

func (s *keySession) ChainID(ctx context.Context) (uint64, error) {
	id, err := s.chain.ChainID(ctx)
	if err != nil {
		return 0, err
	}
	return id.Uint64(), nil
}

func (s *keySession) SignTx(ctx context.Context, account common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if account != s.address {
		return nil, fmt.Errorf("account %s is not managed by this wallet", account.Hex())
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}

func (s *keySession) Close() error {
	return nil
}

type remoteSigner interface {
	Accounts() []accounts.Account
	SignTx(account accounts.Account, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// RemoteSignerConnector talks to an external signer over JSON-RPC. Every
// signature is confirmed by the user on the signer side, so a refusal comes
// back as a rejection error.
type RemoteSignerConnector struct {
	projectID string
	endpoint  string
	chain     ChainIDReader
	dial      func(endpoint string) (remoteSigner, error)
}

func NewRemoteSignerConnector(projectID, endpoint string, chain ChainIDReader) (*RemoteSignerConnector, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("walletconnect project id is required")
	}
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("walletconnect signer url is required")
	}
	if chain == nil {
		return nil, errors.New("chain is required")
	}
	return &RemoteSignerConnector{
		projectID: projectID,
		endpoint:  endpoint,
		chain:     chain,
		dial: func(endpoint string) (remoteSigner, error) {
			signer, err := external.NewExternalSigner(endpoint)
			if err != nil {
				return nil, err
			}
			return signer, nil
		},
	}, nil
}

func (r *RemoteSignerConnector) ID() string {
	return ConnectorWalletConnect
}

func (r *RemoteSignerConnector) Connect(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	signer, err := r.dial(r.endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial signer: %w", err)
	}
	slog.Info("remote signer session opened", "project", r.projectID, "endpoint", r.endpoint)
	return &remoteSession{signer: signer, chain: r.chain}, nil
}

type remoteSession struct {
	signer remoteSigner
	chain  ChainIDReader
}

func (s *remoteSession) Accounts(ctx context.Context) ([]common.Address, error) {
	list := s.signer.Accounts()
	addresses := make([]common.Address, 0, len(list))
	for _, account := range list {
		addresses = append(addresses, account.Address)
	}
	return addresses, nil
}

func (s *remoteSession) ChainID(ctx context.Context) (uint64, error) {
	id, err := s.chain.ChainID(ctx)
	if err != nil {
		return 0, err
	}
	return id.Uint64(), nil
}

func (s *remoteSession) SignTx(ctx context.Context, account common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return s.signer.SignTx(accounts.Account{Address: account}, tx, chainID)
}

func (s *remoteSession) Close() error {
	return nil
}
