package chain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const erc20ABIJSON = `[
  {"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
  {"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
  {"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"}
]`

var (
	erc20ABI abi.ABI

	// transferEventSig is keccak256("Transfer(address,address,uint256)").
	transferEventSig common.Hash
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		panic(err)
	}
	erc20ABI = parsed
	transferEventSig = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
}

// TransferEvent is a decoded ERC-20 Transfer log.
type TransferEvent struct {
	From        common.Address
	To          common.Address
	Value       *big.Int
	TxHash      common.Hash
	BlockNumber uint64
}

func packTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	return erc20ABI.Pack("transfer", to, amount)
}

func packBalanceOf(account common.Address) ([]byte, error) {
	return erc20ABI.Pack("balanceOf", account)
}

func unpackBalance(data []byte) (*big.Int, error) {
	values, err := erc20ABI.Unpack("balanceOf", data)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(values[0], new(big.Int)).(*big.Int), nil
}

// decodeTransferLog decodes a Transfer event log; the bool reports whether
// the log is a well-formed Transfer.
func decodeTransferLog(log types.Log) (TransferEvent, bool) {
	if len(log.Topics) != 3 || log.Topics[0] != transferEventSig {
		return TransferEvent{}, false
	}
	values, err := erc20ABI.Unpack("Transfer", log.Data)
	if err != nil || len(values) != 1 {
		return TransferEvent{}, false
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return TransferEvent{}, false
	}
	return TransferEvent{
		From:        common.BytesToAddress(log.Topics[1].Bytes()),
		To:          common.BytesToAddress(log.Topics[2].Bytes()),
		Value:       value,
		TxHash:      log.TxHash,
		BlockNumber: log.BlockNumber,
	}, true
}
