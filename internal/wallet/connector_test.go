package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticChainID uint64

func (s staticChainID) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).SetUint64(uint64(s)), nil
}

type namedConnector struct {
	id string
}

func (n namedConnector) ID() string { return n.id }

func (n namedConnector) Connect(ctx context.Context) (Session, error) {
	return nil, errors.New("not used")
}

func TestSelectConnector(t *testing.T) {
	_, err := SelectConnector(nil)
	assert.ErrorIs(t, err, ErrNoConnector)

	chosen, err := SelectConnector([]Connector{namedConnector{"injected"}, namedConnector{"coinbase"}})
	require.NoError(t, err)
	assert.Equal(t, "injected", chosen.ID())

	chosen, err = SelectConnector([]Connector{namedConnector{"injected"}, namedConnector{ConnectorWalletConnect}})
	require.NoError(t, err)
	assert.Equal(t, ConnectorWalletConnect, chosen.ID())
}

func newTestKey(t *testing.T) string {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return "0x" + hex.EncodeToString(crypto.FromECDSA(key))
}

func TestKeyConnectorSigns(t *testing.T) {
	connector, err := NewKeyConnector(newTestKey(t), staticChainID(FujiChainID))
	require.NoError(t, err)
	assert.Equal(t, ConnectorInjected, connector.ID())

	session, err := connector.Connect(context.Background())
	require.NoError(t, err)
	accountsList, err := session.Accounts(context.Background())
	require.NoError(t, err)
	require.Equal(t, []common.Address{connector.Address()}, accountsList)

	chainID, err := session.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FujiChainID, chainID)

	to := common.HexToAddress("0x93f3d3c1f05ab051747a626e0168b30b37fa8eb7")
	tx := types.NewTx(&types.LegacyTx{Nonce: 1, GasPrice: big.NewInt(25), Gas: 50_000, To: &to})
	signed, err := session.SignTx(context.Background(), connector.Address(), tx, big.NewInt(int64(FujiChainID)))
	require.NoError(t, err)

	sender, err := types.Sender(types.LatestSignerForChainID(signed.ChainId()), signed)
	require.NoError(t, err)
	assert.Equal(t, connector.Address(), sender)

	_, err = session.SignTx(context.Background(), bob, tx, big.NewInt(int64(FujiChainID)))
	assert.Error(t, err)
}

func TestNewKeyConnectorRejectsBadKey(t *testing.T) {
	_, err := NewKeyConnector("0x1234", staticChainID(FujiChainID))
	assert.Error(t, err)
}

type fakeRemoteSigner struct {
	accounts []accounts.Account
	err      error
}

func (f *fakeRemoteSigner) Accounts() []accounts.Account {
	return f.accounts
}

func (f *fakeRemoteSigner) SignTx(account accounts.Account, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return tx, nil
}

func TestRemoteSignerConnector(t *testing.T) {
	_, err := NewRemoteSignerConnector("", "http://localhost:8550", staticChainID(FujiChainID))
	assert.Error(t, err)

	connector, err := NewRemoteSignerConnector("project-1", "http://localhost:8550", staticChainID(FujiChainID))
	require.NoError(t, err)
	assert.Equal(t, ConnectorWalletConnect, connector.ID())
	_, err = NewRemoteSignerConnector("project-1", " ", staticChainID(FujiChainID))
	assert.Error(t, err)

	signer := &fakeRemoteSigner{
		accounts: []accounts.Account{{Address: alice}},
		err:      codeError{code: 4001, message: "request denied"},
	}
	var dialed string
	connector.dial = func(endpoint string) (remoteSigner, error) {
		dialed = endpoint
		return signer, nil
	}

	session, err := connector.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8550", dialed)

	list, err := session.Accounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []common.Address{alice}, list)

	_, err = session.SignTx(context.Background(), alice, types.NewTx(&types.LegacyTx{}), big.NewInt(1))
	require.Error(t, err)
	assert.Equal(t, WriteRejected, ClassifyWriteError(err).Kind)
}

func TestRemoteSignerDialFailure(t *testing.T) {
	connector, err := NewRemoteSignerConnector("project-1", "http://localhost:8550", staticChainID(FujiChainID))
	require.NoError(t, err)
	connector.dial = func(string) (remoteSigner, error) { return nil, errors.New("connection refused") }

	_, err = connector.Connect(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}
