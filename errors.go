package rights

import (
	"errors"
	"fmt"

	"github.com/xraph/rights/asset"
	"github.com/xraph/rights/distributor"
	"github.com/xraph/rights/fees"
	"github.com/xraph/rights/ledger"
	"github.com/xraph/rights/ownership"
	"github.com/xraph/rights/policy"
	"github.com/xraph/rights/quorum"
	"github.com/xraph/rights/treasury"
	"github.com/xraph/rights/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound     = errors.New("rights: not found")
	ErrInvalidInput = errors.New("rights: invalid input")

	// Authorization errors
	ErrUnauthorized     = errors.New("rights: caller is not authorized")
	ErrReentrantCall    = errors.New("rights: reentrant call")
	ErrNotContentHolder = errors.New("rights: caller does not hold the content")
	ErrReservedAccount  = errors.New("rights: account is reserved")

	// Workflow errors
	ErrPolicyNotActive  = errors.New("rights: policy is not active")
	ErrContentNotActive = errors.New("rights: content is not active")
	ErrNoCustodian      = errors.New("rights: content has no custodian distributor")

	// Funds errors
	ErrDistributorCurrency = errors.New("rights: distributor does not support currency")
	ErrNothingToWithdraw   = errors.New("rights: nothing to withdraw")

	// Receipt errors
	ErrReceiptNotFound = errors.New("rights: receipt not found")

	// Store errors
	ErrStoreNotReady     = errors.New("rights: store not ready")
	ErrStoreClosed       = errors.New("rights: store is closed")
	ErrTransactionFailed = errors.New("rights: transaction failed")
	ErrMigrationFailed   = errors.New("rights: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("rights: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "rights: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("rights: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error {
	return e.Errors
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrReceiptNotFound) ||
		errors.Is(err, ownership.ErrUnknownContent) ||
		errors.Is(err, policy.ErrUnknownPolicy) ||
		errors.Is(err, policy.ErrNoTerms) ||
		errors.Is(err, policy.ErrNoGrant)
}

// IsAuthorization returns true if the error rejects the caller's identity.
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrReentrantCall) ||
		errors.Is(err, ErrNotContentHolder) ||
		errors.Is(err, ErrReservedAccount) ||
		errors.Is(err, ownership.ErrNotHolder) ||
		errors.Is(err, policy.ErrUnauthorizedCaller) ||
		errors.Is(err, policy.ErrHolderMismatch)
}

// IsStateMachine returns true if the error is an enrollment transition or
// status violation.
func IsStateMachine(err error) bool {
	var te *quorum.TransitionError
	return errors.As(err, &te) ||
		errors.Is(err, quorum.ErrNotWaitingApproval) ||
		errors.Is(err, quorum.ErrInvalidInactiveState) ||
		errors.Is(err, quorum.ErrAlreadyEnrolled) ||
		errors.Is(err, ErrPolicyNotActive) ||
		errors.Is(err, ErrContentNotActive) ||
		errors.Is(err, distributor.ErrNotActive)
}

// IsFunds returns true if the error concerns balances, payment or currency support.
func IsFunds(err error) bool {
	return errors.Is(err, ledger.ErrInsufficientBalance) ||
		errors.Is(err, ledger.ErrOverflow) ||
		errors.Is(err, policy.ErrInsufficientPayment) ||
		errors.Is(err, policy.ErrUnsupportedCurrency) ||
		errors.Is(err, treasury.ErrUnsupportedCurrency) ||
		errors.Is(err, asset.ErrInsufficientFunds) ||
		errors.Is(err, asset.ErrInsufficientAllowance) ||
		errors.Is(err, types.ErrAmountOverflow) ||
		errors.Is(err, fees.ErrFeesExceedTotal) ||
		errors.Is(err, ErrDistributorCurrency) ||
		errors.Is(err, ErrNothingToWithdraw)
}

// IsConfiguration returns true if the error rejects terms, rates or other settings.
func IsConfiguration(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, policy.ErrInvalidTerms) ||
		errors.Is(err, fees.ErrInvalidBPS) ||
		errors.Is(err, fees.ErrInvalidPercent) ||
		errors.Is(err, ErrNoCustodian)
}

// IsRetryable returns true if the error is temporary and the call can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
