// Package domain models the payment pipeline states and failures.
package domain

import (
	"fmt"

	"github.com/paynehq/payne/internal/chain"
	invoicedomain "github.com/paynehq/payne/internal/invoice/domain"
)

// State is a payment pipeline state. A payment only ever moves forward:
// idle → processing → confirming → succeeded | failed.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateConfirming State = "confirming"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Stage names the pipeline step a failure happened in.
type Stage string

const (
	StageSubmit       Stage = "submit"
	StageConfirmation Stage = "confirmation"
)

// Error is a classified payment failure tied to the stage it occurred in.
type Error struct {
	Stage   Stage           `json:"stage"`
	Code    chain.ErrorCode `json:"code"`
	Message string          `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("payment failed at %s: %s", e.Stage, e.Message)
}

// NewError classifies err into a payment error for the given stage.
func NewError(stage Stage, err error) *Error {
	code := chain.Classify(err)
	return &Error{Stage: stage, Code: code, Message: code.Message()}
}

// Result is the terminal outcome of a payment attempt.
type Result struct {
	State   State                 `json:"state"`
	TxHash  string                `json:"txHash,omitempty"`
	Invoice invoicedomain.Invoice `json:"invoice"`
}
