// Package chain talks to the EVM chain carrying the USDC token.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/paynehq/payne/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrNotConfigured   = errors.New("chain client not configured")
	ErrNoPayerKey      = errors.New("no payer key configured")
	ErrTxReverted      = errors.New("transaction reverted")
	ErrReceiptTimeout  = errors.New("timed out waiting for receipt")
	ErrPaymentMismatch = errors.New("transaction does not pay the invoice")
)

const receiptPollInterval = 2 * time.Second

// Client is the chain surface the payment and reconciliation services use.
type Client interface {
	// BalanceOf returns the token balance of account in base units.
	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)
	// Transfer sends amount base units to the recipient from the
	// configured payer account.
	Transfer(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error)
	// WaitForReceipt polls until the transaction is mined or the receipt
	// timeout elapses. A mined-but-reverted transaction is an error.
	WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	// TransactionTransfers returns the token Transfer events emitted by a
	// mined transaction.
	TransactionTransfers(ctx context.Context, txHash common.Hash) ([]TransferEvent, error)
	// TransferLogs returns token Transfer events in the block range.
	TransferLogs(ctx context.Context, fromBlock, toBlock uint64) ([]TransferEvent, error)
	// LatestBlock returns the current head block number.
	LatestBlock(ctx context.Context) (uint64, error)
}

type client struct {
	eth            *ethclient.Client
	token          common.Address
	chainID        *big.Int
	payerKey       *ecdsa.PrivateKey
	receiptTimeout time.Duration
	log            *zap.Logger
}

type ClientParam struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
}

// New dials the configured RPC endpoint and verifies the chain ID. Returns
// ErrNotConfigured when no RPC URL is set so callers can degrade.
func New(p ClientParam) (Client, error) {
	cfg := p.Config.Chain
	if strings.TrimSpace(cfg.RPCURL) == "" {
		return nil, ErrNotConfigured
	}

	log := p.Log.Named("chain.client")

	eth, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	if chainID.Int64() != cfg.ChainID {
		eth.Close()
		return nil, fmt.Errorf("rpc is chain %d, expected chain %d", chainID.Int64(), cfg.ChainID)
	}

	var payerKey *ecdsa.PrivateKey
	if cfg.PayerPrivateKey != "" {
		payerKey, err = crypto.HexToECDSA(strings.TrimPrefix(cfg.PayerPrivateKey, "0x"))
		if err != nil {
			eth.Close()
			return nil, fmt.Errorf("parse payer key: %w", err)
		}
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			eth.Close()
			return nil
		},
	})

	log.Info("chain client connected",
		zap.Int64("chain_id", cfg.ChainID),
		zap.String("token", cfg.TokenAddress),
	)

	return &client{
		eth:            eth,
		token:          common.HexToAddress(cfg.TokenAddress),
		chainID:        chainID,
		payerKey:       payerKey,
		receiptTimeout: cfg.ReceiptTimeout,
		log:            log,
	}, nil
}

func (c *client) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	data, err := packBalanceOf(account)
	if err != nil {
		return nil, err
	}
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.token, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return unpackBalance(out)
}

func (c *client) Transfer(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	if c.payerKey == nil {
		return common.Hash{}, ErrNoPayerKey
	}
	from := crypto.PubkeyToAddress(c.payerKey.PublicKey)

	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, err
	}

	data, err := packTransfer(to, amount)
	if err != nil {
		return common.Hash{}, err
	}

	tipCap, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, err
	}
	feeCap := new(big.Int).Add(tipCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &c.token,
		Data: data,
	})
	if err != nil {
		return common.Hash{}, err
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &c.token,
		Data:      data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.payerKey)
	if err != nil {
		return common.Hash{}, err
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}

	c.log.Info("token transfer submitted",
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.String("amount", amount.String()),
	)
	return signed.Hash(), nil
}

func (c *client) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, ErrTxReverted
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrReceiptTimeout, txHash.Hex())
		case <-ticker.C:
		}
	}
}

func (c *client) TransactionTransfers(ctx context.Context, txHash common.Hash) ([]TransferEvent, error) {
	receipt, err := c.eth.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, ErrTxReverted
	}

	var events []TransferEvent
	for _, logEntry := range receipt.Logs {
		if logEntry == nil || logEntry.Address != c.token {
			continue
		}
		if event, ok := decodeTransferLog(*logEntry); ok {
			events = append(events, event)
		}
	}
	return events, nil
}

func (c *client) TransferLogs(ctx context.Context, fromBlock, toBlock uint64) ([]TransferEvent, error) {
	logs, err := c.eth.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.token},
		Topics:    [][]common.Hash{{transferEventSig}},
	})
	if err != nil {
		return nil, err
	}

	events := make([]TransferEvent, 0, len(logs))
	for _, logEntry := range logs {
		if event, ok := decodeTransferLog(logEntry); ok {
			events = append(events, event)
		}
	}
	return events, nil
}

func (c *client) LatestBlock(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}
