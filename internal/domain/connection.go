package domain

import "github.com/ethereum/go-ethereum/common"

// ConnectionState mirrors what the wallet layer reports. The application
// reflects wallet-originated changes to it; it never drives them.
type ConnectionState struct {
	Address     common.Address
	ChainID     uint64
	IsConnected bool
}

// OnChain reports whether the connection is live on the given chain.
func (c ConnectionState) OnChain(chainID uint64) bool {
	return c.IsConnected && c.ChainID == chainID
}

// ShortAddress renders 0x1234...abcd, or an empty string when disconnected.
func (c ConnectionState) ShortAddress() string {
	if !c.IsConnected {
		return ""
	}
	return ShortenAddress(c.Address.Hex())
}

func ShortenAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
