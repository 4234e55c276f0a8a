// Package contract binds the SimpleStorage contract surface: a uint256
// getter, a uint256 setter and the ValueUpdated event.
package contract

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"simplestorage/internal/domain"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const SimpleStorageABI = `[
	{"inputs":[],"name":"getValue","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"uint256","name":"_value","type":"uint256"}],"name":"setValue","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":false,"internalType":"uint256","name":"newValue","type":"uint256"}],"name":"ValueUpdated","type":"event"}
]`

const (
	methodGetValue    = "getValue"
	methodSetValue    = "setValue"
	eventValueUpdated = "ValueUpdated"
)

var ErrValueOutOfRange = errors.New("value must be an unsigned 256-bit integer")

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

type SimpleStorage struct {
	abi     abi.ABI
	address common.Address
}

func NewSimpleStorage(address common.Address) (*SimpleStorage, error) {
	parsed, err := abi.JSON(strings.NewReader(SimpleStorageABI))
	if err != nil {
		return nil, fmt.Errorf("parse simple storage abi: %w", err)
	}
	return &SimpleStorage{abi: parsed, address: address}, nil
}

func (s *SimpleStorage) Address() common.Address {
	return s.address
}

func (s *SimpleStorage) PackGetValue() ([]byte, error) {
	return s.abi.Pack(methodGetValue)
}

func (s *SimpleStorage) UnpackGetValue(output []byte) (*big.Int, error) {
	values, err := s.abi.Unpack(methodGetValue, output)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", methodGetValue, err)
	}
	return firstUint(values)
}

func (s *SimpleStorage) PackSetValue(value *big.Int) ([]byte, error) {
	if value == nil || value.Sign() < 0 || value.Cmp(maxUint256) > 0 {
		return nil, ErrValueOutOfRange
	}
	return s.abi.Pack(methodSetValue, value)
}

// ValueUpdatedTopic is topic0 of every ValueUpdated log.
func (s *SimpleStorage) ValueUpdatedTopic() common.Hash {
	return s.abi.Events[eventValueUpdated].ID
}

// UnpackValueUpdated decodes the non-indexed newValue field of a ValueUpdated log.
func (s *SimpleStorage) UnpackValueUpdated(data []byte) (*big.Int, error) {
	values, err := s.abi.Unpack(eventValueUpdated, data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", eventValueUpdated, err)
	}
	return firstUint(values)
}

// IsValueUpdated reports whether log was emitted by this contract as ValueUpdated.
func (s *SimpleStorage) IsValueUpdated(log domain.LogEntry) bool {
	return log.Address == s.address && len(log.Topics) > 0 && log.Topics[0] == s.ValueUpdatedTopic()
}

func firstUint(values []any) (*big.Int, error) {
	if len(values) != 1 {
		return nil, fmt.Errorf("expected 1 value, got %d", len(values))
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected value type %T", values[0])
	}
	return value, nil
}
