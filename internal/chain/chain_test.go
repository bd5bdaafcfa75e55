package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"user rejected", errors.New("user rejected the request"), CodeUserRejected},
		{"token balance", errors.New("execution reverted: ERC20: transfer amount exceeds balance"), CodeInsufficientFunds},
		{"gas funds", errors.New("insufficient funds for gas * price + value"), CodeGas},
		{"intrinsic gas", errors.New("intrinsic gas too low"), CodeGas},
		{"nonce", errors.New("nonce too low"), CodeNonce},
		{"allowance", errors.New("execution reverted: ERC20: insufficient allowance"), CodeAllowance},
		{"wrong chain", errors.New("invalid chain id for signer"), CodeWrongChain},
		{"network", errors.New("dial tcp: connection refused"), CodeNetwork},
		{"deadline", context.DeadlineExceeded, CodeNetwork},
		{"unknown", errors.New("something odd"), CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestErrorCodeMessages(t *testing.T) {
	codes := []ErrorCode{
		CodeUserRejected, CodeInsufficientFunds, CodeGas, CodeNonce,
		CodeNetwork, CodeAllowance, CodeWrongChain, CodeUnknown,
	}
	for _, code := range codes {
		assert.NotEmpty(t, code.Message())
	}
}

func TestBaseUnits(t *testing.T) {
	assert.Equal(t, big.NewInt(1_500_000), BaseUnits(1_500_000, 6))
	assert.Equal(t, big.NewInt(1_500_000_000), BaseUnits(1_500_000, 9))
	assert.Equal(t, big.NewInt(1_500), BaseUnits(1_500_000, 3))
}

func TestMicrosFromBaseUnits(t *testing.T) {
	micros, ok := MicrosFromBaseUnits(big.NewInt(1_500_000), 6)
	require.True(t, ok)
	assert.Equal(t, int64(1_500_000), micros)

	micros, ok = MicrosFromBaseUnits(big.NewInt(1_500_000_000), 9)
	require.True(t, ok)
	assert.Equal(t, int64(1_500_000), micros)

	huge := new(big.Int).Lsh(big.NewInt(1), 70)
	_, ok = MicrosFromBaseUnits(huge, 6)
	assert.False(t, ok)
}

func TestDecodeTransferLog(t *testing.T) {
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	value := big.NewInt(42_000_000)

	log := types.Log{
		Topics: []common.Hash{
			transferEventSig,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data:        common.LeftPadBytes(value.Bytes(), 32),
		TxHash:      common.HexToHash("0xabc"),
		BlockNumber: 99,
	}

	event, ok := decodeTransferLog(log)
	require.True(t, ok)
	assert.Equal(t, from, event.From)
	assert.Equal(t, to, event.To)
	assert.Equal(t, 0, event.Value.Cmp(value))
	assert.Equal(t, uint64(99), event.BlockNumber)

	_, ok = decodeTransferLog(types.Log{Topics: []common.Hash{transferEventSig}})
	assert.False(t, ok)
}
