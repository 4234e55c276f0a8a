package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"simplestorage/internal/contract"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var storageAddress = common.HexToAddress("0x93f3d3c1f05ab051747a626e0168b30b37fa8eb7")

type fakeChain struct {
	mu           sync.Mutex
	chainID      uint64
	value        *big.Int
	pending      map[common.Hash]*big.Int
	receipts     map[common.Hash]*types.Receipt
	sent         []*types.Transaction
	estimateErr  error
	balanceErr   error
	receiptCalls int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		chainID:  FujiChainID,
		value:    big.NewInt(0),
		pending:  make(map[common.Hash]*big.Int),
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

func (f *fakeChain) ChainID(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).SetUint64(f.chainID), nil
}

func (f *fakeChain) setChainID(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chainID = id
}

func (f *fakeChain) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return common.LeftPadBytes(f.value.Bytes(), 32), nil
}

func (f *fakeChain) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.sent)), nil
}

func (f *fakeChain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(25_000_000_000), nil
}

func (f *fakeChain) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return 45_000, f.estimateErr
}

func (f *fakeChain) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	f.pending[tx.Hash()] = new(big.Int).SetBytes(tx.Data()[4:])
	return nil
}

func (f *fakeChain) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptCalls++
	receipt, ok := f.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

func (f *fakeChain) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	return wei, nil
}

// mine includes every sent transaction in a block with the given status.
func (f *fakeChain) mine(status uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, value := range f.pending {
		if status == types.ReceiptStatusSuccessful {
			f.value = value
		}
		f.receipts[hash] = &types.Receipt{TxHash: hash, Status: status, BlockNumber: big.NewInt(100), GasUsed: 43_000}
		delete(f.pending, hash)
	}
}

func (f *fakeChain) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeChain) receiptPolls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receiptCalls
}

type fakeSession struct {
	mu       sync.Mutex
	accounts []common.Address
	chain    *fakeChain
	signErr  error
	closed   bool
}

func (f *fakeSession) Accounts(ctx context.Context) ([]common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]common.Address(nil), f.accounts...), nil
}

func (f *fakeSession) ChainID(ctx context.Context) (uint64, error) {
	id, err := f.chain.ChainID(ctx)
	if err != nil {
		return 0, err
	}
	return id.Uint64(), nil
}

func (f *fakeSession) SignTx(ctx context.Context, account common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if f.signErr != nil {
		return nil, f.signErr
	}
	return tx, nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSession) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeSession) setAccounts(list ...common.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = list
}

type fakeConnector struct {
	id      string
	session *fakeSession
	err     error
}

func (f *fakeConnector) ID() string { return f.id }

func (f *fakeConnector) Connect(ctx context.Context) (Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type noteRecorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *noteRecorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *noteRecorder) has(n Notification) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, note := range r.notes {
		if note == n {
			return true
		}
	}
	return false
}

type harness struct {
	client *Client
	chain  *fakeChain
	notes  *noteRecorder
	stop   func()
}

func startClient(t *testing.T, chain *fakeChain, connectors []Connector) *harness {
	t.Helper()
	binding, err := contract.NewSimpleStorage(storageAddress)
	require.NoError(t, err)
	notes := &noteRecorder{}
	client, err := NewClient(chain, binding, connectors, Options{
		PollInterval:  10 * time.Millisecond,
		RefetchDelay:  10 * time.Millisecond,
		WatchInterval: 10 * time.Millisecond,
		Notifier:      notes,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			require.NoError(t, <-done)
		})
	}
	t.Cleanup(stop)
	return &harness{client: client, chain: chain, notes: notes, stop: stop}
}

func (h *harness) waitFor(t *testing.T, cond func(State) bool) State {
	t.Helper()
	require.Eventually(t, func() bool { return cond(h.client.State()) }, 2*time.Second, 5*time.Millisecond)
	return h.client.State()
}

func inPhase(phase Phase) func(State) bool {
	return func(s State) bool { return s.Phase == phase }
}

func TestSetValueEndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t)
	chain := newFakeChain()
	connector, err := NewKeyConnector(newTestKey(t), chain)
	require.NoError(t, err)
	h := startClient(t, chain, []Connector{connector})
	defer h.stop()
	ctx := context.Background()

	require.NoError(t, h.client.Connect(ctx))
	s := h.waitFor(t, func(s State) bool { return s.Phase == PhaseReady && s.Value != nil && s.Balance != nil })
	assert.Equal(t, connector.Address(), s.Connection.Address)
	assert.Equal(t, "0", s.Value.String())
	assert.Equal(t, ConnectorInjected, s.Connector)

	require.NoError(t, h.client.SetInput(ctx, "42"))
	require.NoError(t, h.client.Submit(ctx))
	s = h.waitFor(t, inPhase(PhaseConfirming))
	require.NotNil(t, s.PendingTx)
	assert.Empty(t, s.Input)
	assert.True(t, h.notes.has(Notification{Kind: NotifyInfo, Message: MessageSubmitted}))
	require.Equal(t, 1, chain.sentCount())
	assert.Equal(t, "https://testnet.snowtrace.io/tx/"+s.PendingTx.Hash.Hex(), h.client.ExplorerLink(s.PendingTx.Hash))

	chain.mine(types.ReceiptStatusSuccessful)
	s = h.waitFor(t, func(s State) bool { return s.Phase == PhaseConfirmed && s.Value != nil && s.Value.Int64() == 42 })
	assert.Nil(t, s.PendingTx)
	assert.Empty(t, s.LastError)
	assert.True(t, h.notes.has(Notification{Kind: NotifySuccess, Message: MessageConfirmed}))
}

func TestBalanceFailureIsSurfaced(t *testing.T) {
	defer goleak.VerifyNone(t)
	chain := newFakeChain()
	chain.balanceErr = errors.New("header not found")
	connector, err := NewKeyConnector(newTestKey(t), chain)
	require.NoError(t, err)
	h := startClient(t, chain, []Connector{connector})
	defer h.stop()

	require.NoError(t, h.client.Connect(context.Background()))
	s := h.waitFor(t, func(s State) bool { return s.BalanceError != "" })
	assert.Equal(t, MessageBalanceFailed, s.BalanceError)
	assert.Nil(t, s.Balance)
	assert.Equal(t, PhaseReady, s.Phase)
}

func TestSubmitWithoutWalletIsRefused(t *testing.T) {
	defer goleak.VerifyNone(t)
	chain := newFakeChain()
	h := startClient(t, chain, nil)
	defer h.stop()
	ctx := context.Background()

	require.NoError(t, h.client.SetInput(ctx, "5"))
	require.NoError(t, h.client.Submit(ctx))
	s := h.waitFor(t, func(s State) bool { return s.LastError != "" })
	assert.Equal(t, MessageMissingInput, s.LastError)
	assert.Equal(t, PhaseDisconnected, s.Phase)
	assert.Zero(t, chain.sentCount())
}

func TestConnectFailureStaysDisconnected(t *testing.T) {
	defer goleak.VerifyNone(t)
	chain := newFakeChain()
	h := startClient(t, chain, []Connector{&fakeConnector{id: ConnectorInjected, err: errors.New("user closed modal")}})
	defer h.stop()

	require.NoError(t, h.client.Connect(context.Background()))
	s := h.waitFor(t, func(s State) bool { return s.LastError != "" })
	assert.Equal(t, PhaseDisconnected, s.Phase)
	assert.True(t, h.notes.has(Notification{Kind: NotifyError, Message: "Failed to connect wallet: user closed modal"}))
}

func TestConnectorWithoutAccountsFails(t *testing.T) {
	defer goleak.VerifyNone(t)
	chain := newFakeChain()
	session := &fakeSession{chain: chain}
	h := startClient(t, chain, []Connector{&fakeConnector{id: ConnectorInjected, session: session}})
	defer h.stop()

	require.NoError(t, h.client.Connect(context.Background()))
	s := h.waitFor(t, func(s State) bool { return s.LastError != "" })
	assert.Equal(t, PhaseDisconnected, s.Phase)
	assert.Contains(t, s.LastError, ErrNoAccounts.Error())
	assert.True(t, session.isClosed())
}

func TestWrongNetworkBlocksWrites(t *testing.T) {
	defer goleak.VerifyNone(t)
	chain := newFakeChain()
	chain.setChainID(1)
	session := &fakeSession{accounts: []common.Address{alice}, chain: chain}
	h := startClient(t, chain, []Connector{&fakeConnector{id: ConnectorInjected, session: session}})
	defer h.stop()
	ctx := context.Background()

	require.NoError(t, h.client.Connect(ctx))
	h.waitFor(t, inPhase(PhaseWrongNetwork))
	require.NoError(t, h.client.SetInput(ctx, "5"))
	require.NoError(t, h.client.Submit(ctx))

	s := h.waitFor(t, func(s State) bool { return s.LastError != "" })
	assert.Equal(t, "Please switch to Avalanche Fuji network", s.LastError)
	assert.Nil(t, s.Value)
	assert.Zero(t, chain.sentCount())
	assert.True(t, h.notes.has(Notification{Kind: NotifyError, Message: "Wrong network. Please switch to Avalanche Fuji"}))

	chain.setChainID(FujiChainID)
	s = h.waitFor(t, func(s State) bool { return s.Phase == PhaseReady && s.Value != nil })
	assert.True(t, s.CanSubmit(FujiChainID))
}

func TestUserRejectionReturnsToReady(t *testing.T) {
	defer goleak.VerifyNone(t)
	chain := newFakeChain()
	session := &fakeSession{accounts: []common.Address{alice}, chain: chain, signErr: codeError{code: 4001, message: "User rejected the request."}}
	h := startClient(t, chain, []Connector{&fakeConnector{id: ConnectorWalletConnect, session: session}})
	defer h.stop()
	ctx := context.Background()

	require.NoError(t, h.client.Connect(ctx))
	h.waitFor(t, inPhase(PhaseReady))
	require.NoError(t, h.client.SetInput(ctx, "7"))
	require.NoError(t, h.client.Submit(ctx))

	s := h.waitFor(t, func(s State) bool { return s.LastError != "" })
	assert.Equal(t, PhaseReady, s.Phase)
	assert.Equal(t, "User rejected the transaction", s.LastError)
	assert.Equal(t, "7", s.Input)
	assert.True(t, h.notes.has(Notification{Kind: NotifyError, Message: "Transaction rejected by user"}))
	assert.Zero(t, chain.sentCount())
}

func TestRevertedEstimate(t *testing.T) {
	defer goleak.VerifyNone(t)
	chain := newFakeChain()
	chain.estimateErr = errors.New("execution reverted")
	session := &fakeSession{accounts: []common.Address{alice}, chain: chain}
	h := startClient(t, chain, []Connector{&fakeConnector{id: ConnectorInjected, session: session}})
	defer h.stop()
	ctx := context.Background()

	require.NoError(t, h.client.Connect(ctx))
	h.waitFor(t, inPhase(PhaseReady))
	require.NoError(t, h.client.SetInput(ctx, "7"))
	require.NoError(t, h.client.Submit(ctx))

	s := h.waitFor(t, func(s State) bool { return s.LastError != "" })
	assert.Equal(t, "Transaction reverted", s.LastError)
	assert.True(t, h.notes.has(Notification{Kind: NotifyError, Message: MessageReverted}))
}

func TestRevertedReceiptIsReported(t *testing.T) {
	defer goleak.VerifyNone(t)
	chain := newFakeChain()
	session := &fakeSession{accounts: []common.Address{alice}, chain: chain}
	h := startClient(t, chain, []Connector{&fakeConnector{id: ConnectorInjected, session: session}})
	defer h.stop()
	ctx := context.Background()

	require.NoError(t, h.client.Connect(ctx))
	h.waitFor(t, inPhase(PhaseReady))
	require.NoError(t, h.client.SetInput(ctx, "9"))
	require.NoError(t, h.client.Submit(ctx))
	h.waitFor(t, inPhase(PhaseConfirming))

	chain.mine(types.ReceiptStatusFailed)
	s := h.waitFor(t, func(s State) bool { return s.Phase == PhaseReady && s.PendingTx == nil })
	assert.Equal(t, "Transaction reverted", s.LastError)
	assert.False(t, h.notes.has(Notification{Kind: NotifySuccess, Message: MessageConfirmed}))
}

func TestWalletNotifications(t *testing.T) {
	defer goleak.VerifyNone(t)
	chain := newFakeChain()
	session := &fakeSession{accounts: []common.Address{alice}, chain: chain}
	h := startClient(t, chain, []Connector{&fakeConnector{id: ConnectorInjected, session: session}})
	defer h.stop()
	ctx := context.Background()

	require.NoError(t, h.client.Connect(ctx))
	h.waitFor(t, inPhase(PhaseReady))

	session.setAccounts(bob)
	s := h.waitFor(t, func(s State) bool { return s.Connection.Address == bob })
	assert.Equal(t, PhaseReady, s.Phase)

	chain.setChainID(1)
	h.waitFor(t, inPhase(PhaseWrongNetwork))

	require.NoError(t, h.client.Notify(ctx, Disconnected{}))
	h.waitFor(t, inPhase(PhaseDisconnected))
	assert.Eventually(t, session.isClosed, time.Second, 5*time.Millisecond)
}

func TestDisconnectStopsReceiptPolling(t *testing.T) {
	defer goleak.VerifyNone(t)
	chain := newFakeChain()
	session := &fakeSession{accounts: []common.Address{alice}, chain: chain}
	h := startClient(t, chain, []Connector{&fakeConnector{id: ConnectorInjected, session: session}})
	defer h.stop()
	ctx := context.Background()

	require.NoError(t, h.client.Connect(ctx))
	h.waitFor(t, inPhase(PhaseReady))
	require.NoError(t, h.client.SetInput(ctx, "3"))
	require.NoError(t, h.client.Submit(ctx))
	h.waitFor(t, inPhase(PhaseConfirming))
	require.Eventually(t, func() bool { return chain.receiptPolls() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.client.Disconnect(ctx))
	s := h.waitFor(t, inPhase(PhaseDisconnected))
	assert.Nil(t, s.PendingTx)
	assert.Eventually(t, session.isClosed, time.Second, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	polls := chain.receiptPolls()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, polls, chain.receiptPolls())
}

func TestNotifyAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := startClient(t, newFakeChain(), nil)
	h.stop()
	assert.ErrorIs(t, h.client.Connect(context.Background()), ErrClosed)
}

func TestRunTwice(t *testing.T) {
	defer goleak.VerifyNone(t)
	h := startClient(t, newFakeChain(), nil)
	defer h.stop()
	require.Eventually(t, func() bool { return h.client.running.Load() }, time.Second, time.Millisecond)
	assert.Error(t, h.client.Run(context.Background()))
}
