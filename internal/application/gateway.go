package application

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strconv"
	"strings"
	"time"

	"simplestorage/internal/contract"
	"simplestorage/internal/domain"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultRPCTimeout = 10 * time.Second

type ContractReader interface {
	Call(ctx context.Context, data []byte) ([]byte, error)
	FetchLogs(ctx context.Context, fromBlock, toBlock uint64, topic0 common.Hash) ([]domain.LogEntry, error)
}

type GatewayConfig struct {
	RPCTimeout   time.Duration
	MaxBlockSpan uint64
}

// StorageGateway turns the two read intents into contract calls. It holds no
// mutable state, so one instance serves concurrent requests.
type StorageGateway struct {
	reader  ContractReader
	binding *contract.SimpleStorage
	cfg     GatewayConfig
	tracer  trace.Tracer
}

func NewStorageGateway(reader ContractReader, binding *contract.SimpleStorage, cfg GatewayConfig) (*StorageGateway, error) {
	if reader == nil || binding == nil {
		return nil, errors.New("gateway dependencies must not be nil")
	}
	if cfg.RPCTimeout <= 0 {
		cfg.RPCTimeout = defaultRPCTimeout
	}
	if cfg.MaxBlockSpan == 0 {
		cfg.MaxBlockSpan = domain.DefaultMaxBlockSpan
	}
	return &StorageGateway{
		reader:  reader,
		binding: binding,
		cfg:     cfg,
		tracer:  otel.Tracer("simplestorage/gateway"),
	}, nil
}

func (g *StorageGateway) MaxBlockSpan() uint64 {
	return g.cfg.MaxBlockSpan
}

func (g *StorageGateway) GetLatestValue(ctx context.Context) (domain.StoredValue, error) {
	ctx, span := g.tracer.Start(ctx, "gateway.get_latest_value")
	defer span.End()

	value, err := g.readValue(ctx)
	if err != nil {
		normalized := NormalizeRPCError(err)
		recordError(span, normalized)
		return domain.StoredValue{}, normalized
	}
	return domain.StoredValue{Value: value}, nil
}

func (g *StorageGateway) readValue(ctx context.Context) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.RPCTimeout)
	defer cancel()

	data, err := g.binding.PackGetValue()
	if err != nil {
		return nil, err
	}
	out, err := g.reader.Call(ctx, data)
	if err != nil {
		return nil, err
	}
	return g.binding.UnpackGetValue(out)
}

// GetValueUpdatedEvents returns ValueUpdated events in [fromBlock, toBlock]
// in chain log order. Range violations are returned before any RPC call.
func (g *StorageGateway) GetValueUpdatedEvents(ctx context.Context, fromBlock, toBlock uint64) ([]domain.ValueUpdatedEvent, error) {
	blockRange, err := domain.NewBlockRange(fromBlock, toBlock, g.cfg.MaxBlockSpan)
	if err != nil {
		return nil, invalidInput(err)
	}

	ctx, span := g.tracer.Start(ctx, "gateway.get_value_updated_events", trace.WithAttributes(
		attribute.Int64("block.from", int64(blockRange.From)),
		attribute.Int64("block.to", int64(blockRange.To)),
	))
	defer span.End()

	events, err := g.fetchEvents(ctx, blockRange)
	if err != nil {
		normalized := NormalizeRPCError(err)
		recordError(span, normalized)
		return nil, normalized
	}
	span.SetAttributes(attribute.Int("events.count", len(events)))
	return events, nil
}

func (g *StorageGateway) fetchEvents(ctx context.Context, blockRange domain.BlockRange) ([]domain.ValueUpdatedEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.RPCTimeout)
	defer cancel()

	logs, err := g.reader.FetchLogs(ctx, blockRange.From, blockRange.To, g.binding.ValueUpdatedTopic())
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(logs, func(a, b domain.LogEntry) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		}
		return 0
	})

	events := make([]domain.ValueUpdatedEvent, 0, len(logs))
	for _, log := range logs {
		if log.Removed || !g.binding.IsValueUpdated(log) {
			continue
		}
		value, err := g.binding.UnpackValueUpdated(log.Data)
		if err != nil {
			return nil, fmt.Errorf("decode log %s#%d: %w", log.TxHash.Hex(), log.LogIndex, err)
		}
		events = append(events, domain.ValueUpdatedEvent{
			BlockNumber: log.BlockNumber,
			LogIndex:    log.LogIndex,
			NewValue:    value,
			TxHash:      log.TxHash,
		})
	}
	return events, nil
}

// ParseBlockRange validates raw query values. Both are required base-10
// integers in uint64 range, ordered and within maxSpan.
func ParseBlockRange(fromRaw, toRaw string, maxSpan uint64) (domain.BlockRange, error) {
	from, err := parseBlockNumber("fromBlock", fromRaw)
	if err != nil {
		return domain.BlockRange{}, err
	}
	to, err := parseBlockNumber("toBlock", toRaw)
	if err != nil {
		return domain.BlockRange{}, err
	}
	blockRange, err := domain.NewBlockRange(from, to, maxSpan)
	if err != nil {
		return domain.BlockRange{}, invalidInput(err)
	}
	return blockRange, nil
}

func parseBlockNumber(name, raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalidInput(fmt.Errorf("%s is required", name))
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err == nil {
		return value, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, invalidInput(fmt.Errorf("%s is too large", name))
	}
	if digits, ok := strings.CutPrefix(raw, "-"); ok && isDigits(digits) {
		return 0, invalidInput(fmt.Errorf("%s must be non-negative", name))
	}
	return 0, invalidInput(fmt.Errorf("%s must be an integer", name))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func recordError(span trace.Span, err *Error) {
	span.SetAttributes(attribute.String("error.kind", err.Kind.String()))
	if err.Err != nil {
		span.RecordError(err.Err)
	}
	span.SetStatus(codes.Error, err.Message)
}
