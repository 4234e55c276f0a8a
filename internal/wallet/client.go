package wallet

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"simplestorage/internal/contract"
	"simplestorage/internal/domain"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	FujiChainID          uint64 = 43113
	DefaultNetworkName          = "Avalanche Fuji"
	DefaultExplorerTxURL        = "https://testnet.snowtrace.io/tx/"
	DefaultPollInterval         = 2 * time.Second
	DefaultRefetchDelay         = 500 * time.Millisecond
	DefaultWatchInterval        = 4 * time.Second

	callTimeout = 10 * time.Second
	queueSize   = 64
)

// Chain is the node access the client needs. *ethclient.Client satisfies it.
type Chain interface {
	ChainIDReader
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

type Options struct {
	ChainID       uint64
	NetworkName   string
	ExplorerTxURL string
	PollInterval  time.Duration
	RefetchDelay  time.Duration
	WatchInterval time.Duration
	Notifier      Notifier
	// Observer sees every state produced by the loop, in order.
	Observer func(State)
	Now      func() time.Time
}

func (o *Options) applyDefaults() {
	if o.ChainID == 0 {
		o.ChainID = FujiChainID
	}
	if o.NetworkName == "" {
		o.NetworkName = DefaultNetworkName
	}
	if o.ExplorerTxURL == "" {
		o.ExplorerTxURL = DefaultExplorerTxURL
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.RefetchDelay <= 0 {
		o.RefetchDelay = DefaultRefetchDelay
	}
	if o.WatchInterval <= 0 {
		o.WatchInterval = DefaultWatchInterval
	}
	if o.Notifier == nil {
		o.Notifier = NotifierFunc(func(Notification) {})
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Client runs the wallet state machine. Public methods only queue events;
// Run applies them one at a time.
type Client struct {
	chain      Chain
	binding    *contract.SimpleStorage
	connectors []Connector
	opts       Options
	machine    machine

	events  chan Event
	done    chan struct{}
	running atomic.Bool

	mu    sync.RWMutex
	state State

	// owned by the Run goroutine
	session   Session
	stopWatch context.CancelFunc
	stopPoll  context.CancelFunc
	wg        sync.WaitGroup
}

func NewClient(chain Chain, binding *contract.SimpleStorage, connectors []Connector, opts Options) (*Client, error) {
	if chain == nil || binding == nil {
		return nil, errors.New("wallet client dependencies must not be nil")
	}
	opts.applyDefaults()
	return &Client{
		chain:      chain,
		binding:    binding,
		connectors: connectors,
		opts:       opts,
		machine:    machine{chainID: opts.ChainID, network: opts.NetworkName},
		events:     make(chan Event, queueSize),
		done:       make(chan struct{}),
	}, nil
}

func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

func (c *Client) ChainID() uint64 {
	return c.opts.ChainID
}

func (c *Client) NetworkName() string {
	return c.opts.NetworkName
}

// ExplorerLink returns the block explorer page of a transaction.
func (c *Client) ExplorerLink(hash common.Hash) string {
	return strings.TrimRight(c.opts.ExplorerTxURL, "/") + "/" + hash.Hex()
}

func (c *Client) Connect(ctx context.Context) error {
	return c.Notify(ctx, ConnectRequested{})
}

func (c *Client) Disconnect(ctx context.Context) error {
	return c.Notify(ctx, DisconnectRequested{})
}

func (c *Client) SetInput(ctx context.Context, value string) error {
	return c.Notify(ctx, InputChanged{Value: value})
}

func (c *Client) Submit(ctx context.Context) error {
	return c.Notify(ctx, SubmitRequested{})
}

func (c *Client) Refresh(ctx context.Context) error {
	return c.Notify(ctx, RefreshRequested{})
}

// Notify queues an event, typically one fired by the wallet itself such as
// AccountChanged or ChainChanged.
func (c *Client) Notify(ctx context.Context, ev Event) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.events <- ev:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes events until ctx is cancelled. On return every background
// read and receipt poll has stopped and the session is closed.
func (c *Client) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("wallet client already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		c.wg.Wait()
		c.closeSession()
		close(c.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-c.events:
			c.apply(ctx, ev)
		}
	}
}

func (c *Client) apply(ctx context.Context, ev Event) {
	logEvent(ev)

	c.mu.Lock()
	next, effects := c.machine.transition(c.state, ev)
	c.state = next
	snapshot := next.clone()
	c.mu.Unlock()

	if c.opts.Observer != nil {
		c.opts.Observer(snapshot)
	}
	for _, e := range effects {
		c.execute(ctx, e)
	}
}

func (c *Client) execute(ctx context.Context, e effect) {
	switch e.kind {
	case effectConnect:
		c.spawn(ctx, c.connect)
	case effectAdoptSession:
		c.closeSession()
		c.session = e.session
		c.startWatch(ctx, e.session)
	case effectCloseSession:
		if e.session != nil {
			_ = e.session.Close()
			return
		}
		c.stopPolling()
		c.closeSession()
	case effectReadValue:
		c.spawn(ctx, c.readValue)
	case effectReadBalance:
		account := e.account
		c.spawn(ctx, func(ctx context.Context) Event { return c.readBalance(ctx, account) })
	case effectSubmit:
		session, account, value := c.session, e.account, e.value
		c.spawn(ctx, func(ctx context.Context) Event { return c.submit(ctx, session, account, value) })
	case effectPollReceipt:
		c.stopPolling()
		pollCtx, cancel := context.WithCancel(ctx)
		c.stopPoll = cancel
		c.wg.Add(1)
		go c.pollReceipt(pollCtx, e.hash)
	case effectStopPolling:
		c.stopPolling()
	case effectRefetch:
		c.spawn(ctx, c.refetch)
	case effectNotify:
		c.opts.Notifier.Notify(e.note)
	}
}

// spawn runs fn off the loop and queues the event it returns.
func (c *Client) spawn(ctx context.Context, fn func(context.Context) Event) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ev := fn(ctx)
		if ev == nil {
			return
		}
		if !c.post(ctx, ev) {
			if opened, ok := ev.(sessionOpened); ok {
				_ = opened.session.Close()
			}
		}
	}()
}

func (c *Client) post(ctx context.Context, ev Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Client) connect(ctx context.Context) Event {
	connector, err := SelectConnector(c.connectors)
	if err != nil {
		return connectFailed{err: err}
	}
	session, err := connector.Connect(ctx)
	if err != nil {
		return connectFailed{err: err}
	}
	accounts, err := session.Accounts(ctx)
	if err == nil && len(accounts) == 0 {
		err = ErrNoAccounts
	}
	if err != nil {
		_ = session.Close()
		return connectFailed{err: err}
	}
	chainID, err := session.ChainID(ctx)
	if err != nil {
		_ = session.Close()
		return connectFailed{err: err}
	}
	return sessionOpened{
		session:   session,
		connector: connector.ID(),
		address:   accounts[0],
		chainID:   chainID,
	}
}

func (c *Client) readValue(ctx context.Context) Event {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	data, err := c.binding.PackGetValue()
	if err != nil {
		return valueReadFailed{err: err}
	}
	to := c.binding.Address()
	out, err := c.chain.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return valueReadFailed{err: err}
	}
	value, err := c.binding.UnpackGetValue(out)
	if err != nil {
		return valueReadFailed{err: err}
	}
	return valueRead{value: value}
}

func (c *Client) readBalance(ctx context.Context, account common.Address) Event {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	wei, err := c.chain.BalanceAt(ctx, account, nil)
	if err != nil {
		return balanceReadFailed{account: account, err: err}
	}
	return balanceRead{account: account, wei: wei}
}

// refetch re-reads the value after RefetchDelay so the node has caught up
// with the block that mined the write.
func (c *Client) refetch(ctx context.Context) Event {
	timer := time.NewTimer(c.opts.RefetchDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil
	case <-timer.C:
	}
	return c.readValue(ctx)
}

func (c *Client) submit(ctx context.Context, session Session, from common.Address, value *big.Int) Event {
	hash, err := c.sendSetValue(ctx, session, from, value)
	if err != nil {
		return submitFailed{err: ClassifyWriteError(err)}
	}
	return txSubmitted{hash: hash, at: c.opts.Now()}
}

func (c *Client) sendSetValue(ctx context.Context, session Session, from common.Address, value *big.Int) (common.Hash, error) {
	if session == nil {
		return common.Hash{}, ErrNoConnector
	}
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	chainID, err := session.ChainID(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	if chainID != c.opts.ChainID {
		return common.Hash{}, ErrWrongNetwork
	}
	data, err := c.binding.PackSetValue(value)
	if err != nil {
		return common.Hash{}, err
	}
	to := c.binding.Address()

	nonce, err := c.chain.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, err
	}
	gasPrice, err := c.chain.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	gas, err := c.chain.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		return common.Hash{}, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Data:     data,
	})
	signed, err := session.SignTx(ctx, from, tx, new(big.Int).SetUint64(chainID))
	if err != nil {
		return common.Hash{}, err
	}
	if err := c.chain.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}

// pollReceipt checks for the receipt every PollInterval until it is mined or
// ctx ends. It has no deadline of its own.
func (c *Client) pollReceipt(ctx context.Context, hash common.Hash) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.chain.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			c.post(ctx, receiptMined{receipt: toReceipt(hash, receipt)})
			return
		case errors.Is(err, ethereum.NotFound), ctx.Err() != nil:
		default:
			slog.Debug("receipt poll failed", "tx", hash.Hex(), "err", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func toReceipt(hash common.Hash, receipt *types.Receipt) domain.Receipt {
	out := domain.Receipt{TxHash: hash, Status: receipt.Status, GasUsed: receipt.GasUsed}
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return out
}

func (c *Client) stopPolling() {
	if c.stopPoll != nil {
		c.stopPoll()
		c.stopPoll = nil
	}
}

// startWatch polls the session for account and chain switches made in the
// wallet and queues them as events.
func (c *Client) startWatch(ctx context.Context, session Session) {
	known := c.State().Connection
	watchCtx, cancel := context.WithCancel(ctx)
	c.stopWatch = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.watchSession(watchCtx, session, known.Address, known.ChainID)
	}()
}

func (c *Client) watchSession(ctx context.Context, session Session, address common.Address, chainID uint64) {
	ticker := time.NewTicker(c.opts.WatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		accounts, err := session.Accounts(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Debug("wallet accounts poll failed", "err", err)
			continue
		}
		if len(accounts) == 0 {
			c.post(ctx, Disconnected{})
			return
		}
		if accounts[0] != address {
			address = accounts[0]
			if !c.post(ctx, AccountChanged{Address: address}) {
				return
			}
		}

		id, err := session.ChainID(ctx)
		if err != nil {
			slog.Debug("wallet chain poll failed", "err", err)
			continue
		}
		if id != chainID {
			chainID = id
			if !c.post(ctx, ChainChanged{ChainID: chainID}) {
				return
			}
		}
	}
}

func (c *Client) closeSession() {
	if c.stopWatch != nil {
		c.stopWatch()
		c.stopWatch = nil
	}
	if c.session != nil {
		if err := c.session.Close(); err != nil {
			slog.Debug("wallet session close failed", "err", err)
		}
		c.session = nil
	}
}

func logEvent(ev Event) {
	switch ev := ev.(type) {
	case connectFailed:
		slog.Warn("wallet connect failed", "err", ev.err)
	case submitFailed:
		slog.Warn("transaction write failed", "kind", ev.err.Kind.String(), "err", ev.err.Err)
	case valueReadFailed:
		slog.Warn("contract read failed", "err", ev.err)
	case balanceReadFailed:
		slog.Warn("balance read failed", "account", ev.account.Hex(), "err", ev.err)
	case txSubmitted:
		slog.Info("transaction submitted", "tx", ev.hash.Hex())
	case receiptMined:
		slog.Info("transaction mined", "tx", ev.receipt.TxHash.Hex(), "block", ev.receipt.BlockNumber, "status", ev.receipt.Status)
	}
}
