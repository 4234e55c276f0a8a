package config

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseEnv() EnvMap {
	return EnvMap{
		"RPC_URL":          "https://api.avax-test.network/ext/bc/C/rpc",
		"CONTRACT_ADDRESS": "0x93f3d3c1f05ab051747a626e0168b30b37fa8eb7",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(baseEnv())
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress("0x93f3d3c1f05ab051747a626e0168b30b37fa8eb7"), cfg.ContractAddress)
	assert.Equal(t, ":3000", cfg.HTTPAddr)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, 10*time.Second, cfg.RPCTimeout)
	assert.Equal(t, uint64(2048), cfg.MaxBlockSpan)
	assert.Equal(t, []ThrottleRule{
		{Name: "short", Limit: 30, TTL: time.Minute},
		{Name: "long", Limit: 100, TTL: 15 * time.Minute},
	}, cfg.Throttle)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["PORT"] = "8081"
	env["CORS_ORIGINS"] = "http://localhost:3000, https://dapp.example"
	env["RPC_TIMEOUT"] = "3s"
	env["MAX_BLOCK_RANGE"] = "500"
	env["THROTTLE_SHORT_LIMIT"] = "5"
	env["THROTTLE_LONG_TTL"] = "1h"
	env["REDIS_ADDR"] = " 127.0.0.1:6379 "

	cfg, err := Load(env)
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, []string{"http://localhost:3000", "https://dapp.example"}, cfg.CORSOrigins)
	assert.Equal(t, 3*time.Second, cfg.RPCTimeout)
	assert.Equal(t, uint64(500), cfg.MaxBlockSpan)
	assert.Equal(t, 5, cfg.Throttle[0].Limit)
	assert.Equal(t, time.Hour, cfg.Throttle[1].TTL)
	assert.Equal(t, "127.0.0.1:6379", cfg.RedisAddr)

	env["HTTP_ADDR"] = "127.0.0.1:9000"
	cfg, err = Load(env)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
}

func TestLoadFailsFast(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		drop  bool
	}{
		{name: "missing rpc", key: "RPC_URL", drop: true},
		{name: "missing address", key: "CONTRACT_ADDRESS", drop: true},
		{name: "bad scheme", key: "RPC_URL", value: "ftp://node"},
		{name: "no host", key: "RPC_URL", value: "http://"},
		{name: "short address", key: "CONTRACT_ADDRESS", value: "0x1234"},
		{name: "unprefixed address", key: "CONTRACT_ADDRESS", value: "93f3d3c1f05ab051747a626e0168b30b37fa8eb7"},
		{name: "non hex address", key: "CONTRACT_ADDRESS", value: "0xZZf3d3c1f05ab051747a626e0168b30b37fa8eb7"},
		{name: "zero address", key: "CONTRACT_ADDRESS", value: "0x0000000000000000000000000000000000000000"},
		{name: "bad port", key: "PORT", value: "http"},
		{name: "port range", key: "PORT", value: "70000"},
		{name: "bad timeout", key: "RPC_TIMEOUT", value: "ten"},
		{name: "zero range", key: "MAX_BLOCK_RANGE", value: "0"},
		{name: "bad addr", key: "HTTP_ADDR", value: "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv()
			if tt.drop {
				delete(env, tt.key)
			} else {
				env[tt.key] = tt.value
			}
			_, err := Load(env)
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresSource(t *testing.T) {
	_, err := Load(nil)
	assert.Error(t, err)
}
