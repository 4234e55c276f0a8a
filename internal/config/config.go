package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"simplestorage/internal/domain"

	"github.com/ethereum/go-ethereum/common"
)

type Config struct {
	RPCURL          string
	ContractAddress common.Address
	CORSOrigins     []string
	HTTPAddr        string
	RPCTimeout      time.Duration
	MaxBlockSpan    uint64
	RedisAddr       string
	OtelEndpoint    string
	Throttle        []ThrottleRule
	LogLevel        string
	LogFormat       string
	LogFile         string
	LogMaxSizeMB    int
	LogMaxBackups   int
}

// ThrottleRule allows Limit requests per TTL window for each client.
type ThrottleRule struct {
	Name  string
	Limit int
	TTL   time.Duration
}

type EnvSource interface {
	Lookup(key string) (string, bool)
}

type EnvMap map[string]string

func (e EnvMap) Lookup(key string) (string, bool) {
	value, ok := e[key]
	return value, ok
}

func FromEnviron() EnvSource {
	env := make(EnvMap)
	for _, entry := range os.Environ() {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		env[parts[0]] = parts[1]
	}
	return env
}

func Load(source EnvSource) (Config, error) {
	if source == nil {
		return Config{}, errors.New("env source is required")
	}

	rpcURL, ok := source.Lookup("RPC_URL")
	if !ok || strings.TrimSpace(rpcURL) == "" {
		return Config{}, errors.New("RPC_URL is required")
	}
	rpcURL = strings.TrimSpace(rpcURL)
	if err := validateRPCURL(rpcURL); err != nil {
		return Config{}, err
	}

	rawAddress, ok := source.Lookup("CONTRACT_ADDRESS")
	if !ok || strings.TrimSpace(rawAddress) == "" {
		return Config{}, errors.New("CONTRACT_ADDRESS is required")
	}
	contractAddress, err := ParseAddress(rawAddress)
	if err != nil {
		return Config{}, fmt.Errorf("invalid CONTRACT_ADDRESS: %w", err)
	}

	httpAddr, err := parseListenAddr(source)
	if err != nil {
		return Config{}, err
	}

	corsOrigins, err := parseList(source, "CORS_ORIGINS", "*")
	if err != nil {
		return Config{}, err
	}

	rpcTimeout, err := parseDurationEnv(source, "RPC_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	maxBlockSpan, err := parseUintEnv(source, "MAX_BLOCK_RANGE", domain.DefaultMaxBlockSpan)
	if err != nil {
		return Config{}, err
	}
	if maxBlockSpan == 0 {
		return Config{}, errors.New("MAX_BLOCK_RANGE must be positive")
	}

	shortRule, err := parseThrottleRule(source, "short", 30, time.Minute)
	if err != nil {
		return Config{}, err
	}
	longRule, err := parseThrottleRule(source, "long", 100, 15*time.Minute)
	if err != nil {
		return Config{}, err
	}

	redisAddr, _ := source.Lookup("REDIS_ADDR")
	otelEndpoint, _ := source.Lookup("OTEL_EXPORTER_OTLP_ENDPOINT")

	logLevel, _ := source.Lookup("LOG_LEVEL")
	logFormat, _ := source.Lookup("LOG_FORMAT")
	logFile, _ := source.Lookup("LOG_FILE")
	logMaxSize, err := parseUintEnv(source, "LOG_MAX_SIZE_MB", 100)
	if err != nil {
		return Config{}, err
	}
	logMaxBackups, err := parseUintEnv(source, "LOG_MAX_BACKUPS", 3)
	if err != nil {
		return Config{}, err
	}

	return Config{
		RPCURL:          rpcURL,
		ContractAddress: contractAddress,
		CORSOrigins:     corsOrigins,
		HTTPAddr:        httpAddr,
		RPCTimeout:      rpcTimeout,
		MaxBlockSpan:    maxBlockSpan,
		RedisAddr:       strings.TrimSpace(redisAddr),
		OtelEndpoint:    strings.TrimSpace(otelEndpoint),
		Throttle:        []ThrottleRule{shortRule, longRule},
		LogLevel:        logLevel,
		LogFormat:       logFormat,
		LogFile:         strings.TrimSpace(logFile),
		LogMaxSizeMB:    int(logMaxSize),
		LogMaxBackups:   int(logMaxBackups),
	}, nil
}

// ParseAddress accepts a 0x-prefixed, 20-byte hex address.
func ParseAddress(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		return common.Address{}, errors.New("address must be 0x-prefixed")
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%q is not a 20-byte hex address", raw)
	}
	address := common.HexToAddress(raw)
	if address == (common.Address{}) {
		return common.Address{}, errors.New("address must not be the zero address")
	}
	return address, nil
}

func validateRPCURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid RPC_URL: %w", err)
	}
	switch parsed.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("invalid RPC_URL: unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("invalid RPC_URL: host is required")
	}
	return nil
}

func parseListenAddr(source EnvSource) (string, error) {
	if raw, ok := source.Lookup("HTTP_ADDR"); ok && strings.TrimSpace(raw) != "" {
		if _, _, err := net.SplitHostPort(raw); err != nil {
			return "", fmt.Errorf("invalid HTTP_ADDR: %w", err)
		}
		return raw, nil
	}
	port, err := parseUintEnv(source, "PORT", 3000)
	if err != nil {
		return "", err
	}
	if port == 0 || port > 65535 {
		return "", fmt.Errorf("invalid PORT: %d out of range", port)
	}
	return ":" + strconv.FormatUint(port, 10), nil
}

func parseThrottleRule(source EnvSource, name string, defaultLimit uint64, defaultTTL time.Duration) (ThrottleRule, error) {
	prefix := "THROTTLE_" + strings.ToUpper(name)
	limit, err := parseUintEnv(source, prefix+"_LIMIT", defaultLimit)
	if err != nil {
		return ThrottleRule{}, err
	}
	ttl, err := parseDurationEnv(source, prefix+"_TTL", defaultTTL)
	if err != nil {
		return ThrottleRule{}, err
	}
	return ThrottleRule{Name: name, Limit: int(limit), TTL: ttl}, nil
}

func parseUintEnv(source EnvSource, key string, defaultValue uint64) (uint64, error) {
	raw, ok := source.Lookup(key)
	if !ok || raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func parseDurationEnv(source EnvSource, key string, defaultValue time.Duration) (time.Duration, error) {
	raw, ok := source.Lookup(key)
	if !ok || raw == "" {
		return defaultValue, nil
	}
	duration, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return duration, nil
}

func parseList(source EnvSource, key string, defaultValue string) ([]string, error) {
	raw, ok := source.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		raw = defaultValue
	}
	items := strings.Split(raw, ",")
	var values []string
	for _, item := range items {
		value := strings.TrimSpace(item)
		if value == "" {
			continue
		}
		values = append(values, value)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s is required", key)
	}
	return values, nil
}
