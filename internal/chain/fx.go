package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/fx"
)

var Module = fx.Module("chain.client",
	fx.Provide(NewOrDisabled),
)

// NewOrDisabled returns a connected client, or a disabled stand-in when no
// RPC endpoint is configured so the rest of the app still boots.
func NewOrDisabled(p ClientParam) (Client, error) {
	cli, err := New(p)
	if err == nil {
		return cli, nil
	}
	if err == ErrNotConfigured {
		p.Log.Named("chain.client").Warn("no chain rpc configured, payments disabled")
		return disabledClient{}, nil
	}
	return nil, err
}

type disabledClient struct{}

func (disabledClient) BalanceOf(context.Context, common.Address) (*big.Int, error) {
	return nil, ErrNotConfigured
}

func (disabledClient) Transfer(context.Context, common.Address, *big.Int) (common.Hash, error) {
	return common.Hash{}, ErrNotConfigured
}

func (disabledClient) WaitForReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return nil, ErrNotConfigured
}

func (disabledClient) TransactionTransfers(context.Context, common.Hash) ([]TransferEvent, error) {
	return nil, ErrNotConfigured
}

func (disabledClient) TransferLogs(context.Context, uint64, uint64) ([]TransferEvent, error) {
	return nil, ErrNotConfigured
}

func (disabledClient) LatestBlock(context.Context) (uint64, error) {
	return 0, ErrNotConfigured
}
