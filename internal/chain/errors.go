package chain

import (
	"context"
	"errors"
	"strings"
)

// ErrorCode classifies payment failures into the categories surfaced to the
// payment page.
type ErrorCode string

const (
	CodeUserRejected      ErrorCode = "user_rejected"
	CodeInsufficientFunds ErrorCode = "insufficient_funds"
	CodeGas               ErrorCode = "gas"
	CodeNonce             ErrorCode = "nonce"
	CodeNetwork           ErrorCode = "network"
	CodeAllowance         ErrorCode = "allowance"
	CodeWrongChain        ErrorCode = "wrong_chain"
	CodeUnknown           ErrorCode = "unknown"
)

// Message returns the user-facing description for the code.
func (c ErrorCode) Message() string {
	switch c {
	case CodeUserRejected:
		return "Transaction was rejected in the wallet."
	case CodeInsufficientFunds:
		return "Insufficient USDC balance to complete this payment."
	case CodeGas:
		return "Not enough native token to cover gas fees."
	case CodeNonce:
		return "Transaction nonce conflict. Please try again."
	case CodeNetwork:
		return "Network error while talking to the chain. Please try again."
	case CodeAllowance:
		return "Token allowance is too low for this payment."
	case CodeWrongChain:
		return "Wallet is connected to the wrong network."
	default:
		return "Payment failed. Please try again."
	}
}

// Classify maps an RPC or wallet error onto an ErrorCode. Matching is on
// message substrings since providers do not agree on error types.
func Classify(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CodeNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user rejected") || strings.Contains(msg, "user denied"):
		return CodeUserRejected
	case strings.Contains(msg, "transfer amount exceeds balance") || strings.Contains(msg, "insufficient balance"):
		return CodeInsufficientFunds
	case strings.Contains(msg, "insufficient funds") || strings.Contains(msg, "intrinsic gas") || strings.Contains(msg, "gas required exceeds") || strings.Contains(msg, "max fee per gas"):
		return CodeGas
	case strings.Contains(msg, "nonce too low") || strings.Contains(msg, "nonce too high") || strings.Contains(msg, "replacement transaction underpriced"):
		return CodeNonce
	case strings.Contains(msg, "allowance"):
		return CodeAllowance
	case strings.Contains(msg, "chain id") || strings.Contains(msg, "wrong network") || strings.Contains(msg, "unsupported chain"):
		return CodeWrongChain
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "timeout") || strings.Contains(msg, "no such host") || strings.Contains(msg, "connection reset") || strings.Contains(msg, "eof"):
		return CodeNetwork
	default:
		return CodeUnknown
	}
}
