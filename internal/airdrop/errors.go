package airdrop

import (
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/tsender/internal/amount"
)

// Configuration errors.
var ErrUnsupportedChain = errors.New("no TSender contract on this network")

// Validation errors. All of them are returned before any network call.
var (
	ErrNotConnected   = errors.New("no wallet account connected")
	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidAmount  = amount.ErrInvalidAmount
	ErrLengthMismatch = errors.New("recipient and amount counts differ")
	ErrEmptyBatch     = errors.New("no recipients")
)

// ErrBusy is returned by Submit while another submission is in flight.
var ErrBusy = errors.New("a submission is already in progress")

// Step names a stage of the workflow. They double as observer event names.
type Step string

const (
	StepAllowance        Step = "allowance"
	StepApprove          Step = "approve"
	StepApproveConfirmed Step = "approve_confirmed"
	StepAirdrop          Step = "airdrop"
	StepAirdropConfirmed Step = "airdrop_confirmed"
	StepMetadata         Step = "metadata"
	StepFailed           Step = "failed"
)

// StepError wraps a chain client error with the step that produced it.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// ErrorKind classifies workflow errors for exit codes and HTTP statuses.
type ErrorKind string

const (
	KindNone       ErrorKind = ""
	KindConfig     ErrorKind = "config"
	KindValidation ErrorKind = "validation"
	KindRemote     ErrorKind = "remote"
	KindBusy       ErrorKind = "busy"
)

// Kind reports which class err belongs to. Unknown errors are remote.
func Kind(err error) ErrorKind {
	var stepErr *StepError
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrBusy):
		return KindBusy
	case errors.Is(err, ErrUnsupportedChain):
		return KindConfig
	case errors.As(err, &stepErr):
		return KindRemote
	case errors.Is(err, ErrNotConnected),
		errors.Is(err, ErrInvalidAddress),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrLengthMismatch),
		errors.Is(err, ErrEmptyBatch):
		return KindValidation
	default:
		return KindRemote
	}
}
