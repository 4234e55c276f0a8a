package ethrpc

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"strings"
	"time"

	"simplestorage/internal/domain"
	"simplestorage/internal/infrastructure/telemetry"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

const defaultTimeout = 10 * time.Second

type Client struct {
	rpc     *rpc.Client
	eth     *ethclient.Client
	address common.Address
	timeout time.Duration
}

type Config struct {
	URL     string
	Address common.Address
	Timeout time.Duration
	Headers map[string]string
}

// NewClient dials the endpoint. HTTP transports get a hard per-request
// timeout; every call is also bounded by Timeout through its context.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rpc url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	opts := []rpc.ClientOption{
		rpc.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	for key, value := range cfg.Headers {
		opts = append(opts, rpc.WithHeader(key, value))
	}
	raw, err := rpc.DialOptions(ctx, cfg.URL, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{
		rpc:     raw,
		eth:     ethclient.NewClient(raw),
		address: cfg.Address,
		timeout: cfg.Timeout,
	}, nil
}

func (c *Client) Close() {
	c.eth.Close()
}

// Eth exposes the typed client for transaction submission and receipts.
func (c *Client) Eth() *ethclient.Client {
	return c.eth
}

func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.eth.BlockNumber(ctx)
}

func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return 0, err
	}
	return id.Uint64(), nil
}

// Call runs eth_call against the configured contract at the latest block.
func (c *Client) Call(ctx context.Context, data []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(traced(ctx), c.timeout)
	defer cancel()
	to := c.address
	return c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// FetchLogs returns the contract's logs in [fromBlock, toBlock] matching topic0,
// in the order the node reports them.
func (c *Client) FetchLogs(ctx context.Context, fromBlock, toBlock uint64, topic0 common.Hash) ([]domain.LogEntry, error) {
	ctx, cancel := context.WithTimeout(traced(ctx), c.timeout)
	defer cancel()

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.address},
	}
	if topic0 != (common.Hash{}) {
		query.Topics = [][]common.Hash{{topic0}}
	}

	result, err := c.eth.FilterLogs(ctx, query)
	if err != nil {
		return nil, err
	}
	return toLogEntries(result), nil
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.eth.BalanceAt(ctx, account, nil)
}

// traced forwards the active span to the node as W3C trace headers.
func traced(ctx context.Context) context.Context {
	header := http.Header{}
	telemetry.InjectHTTPHeaders(ctx, header)
	if len(header) == 0 {
		return ctx
	}
	return rpc.NewContextWithHeaders(ctx, header)
}

func toLogEntries(result []types.Log) []domain.LogEntry {
	logs := make([]domain.LogEntry, 0, len(result))
	for _, log := range result {
		logs = append(logs, domain.LogEntry{
			BlockNumber: log.BlockNumber,
			TxHash:      log.TxHash,
			LogIndex:    uint64(log.Index),
			Address:     log.Address,
			Data:        log.Data,
			Topics:      log.Topics,
			Removed:     log.Removed,
		})
	}
	return logs
}
