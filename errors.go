package tokenledger

import (
	"errors"
	"fmt"

	"github.com/xraph/tokenledger/types"
)

// Sentinel errors for common failure scenarios.
var (
	// Operation rejections. Every *Error unwraps to one of these.
	ErrInvalidConstruction   = errors.New("tokenledger: invalid construction")
	ErrNullDestination       = errors.New("tokenledger: destination must not be the null address")
	ErrInsufficientBalance   = errors.New("tokenledger: insufficient balance")
	ErrInsufficientAllowance = errors.New("tokenledger: insufficient allowance")

	// Store errors
	ErrNotFound       = errors.New("tokenledger: not found")
	ErrTokenNotFound  = errors.New("tokenledger: token not found")
	ErrAlreadyExists  = errors.New("tokenledger: already exists")
	ErrStoreClosed    = errors.New("tokenledger: store is closed")
	ErrStoreNotReady  = errors.New("tokenledger: store not ready")
	ErrNoStore        = errors.New("tokenledger: no store configured")
	ErrCorruptJournal = errors.New("tokenledger: journal does not replay cleanly")
	ErrSequenceGap    = errors.New("tokenledger: journal sequence gap")

	// Lifecycle errors
	ErrAlreadyStarted = errors.New("tokenledger: already started")
	ErrNotStarted     = errors.New("tokenledger: not started")
)

// Kind classifies why a ledger call was rejected.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidConstruction
	KindNullDestination
	KindInsufficientBalance
	KindInsufficientAllowance
)

var kindNames = map[Kind]string{
	KindUnknown:               "unknown",
	KindInvalidConstruction:   "invalid_construction",
	KindNullDestination:       "null_destination",
	KindInsufficientBalance:   "insufficient_balance",
	KindInsufficientAllowance: "insufficient_allowance",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidConstruction:
		return ErrInvalidConstruction
	case KindNullDestination:
		return ErrNullDestination
	case KindInsufficientBalance:
		return ErrInsufficientBalance
	case KindInsufficientAllowance:
		return ErrInsufficientAllowance
	default:
		return nil
	}
}

// Error is a rejected ledger call. Only the fields relevant to Kind are
// set: Field for construction, Account/Requested/Available for balance,
// plus Spender for allowance.
type Error struct {
	Kind      Kind
	Op        string
	Field     string
	Message   string
	Account   types.Address
	Spender   types.Address
	Requested types.Amount
	Available types.Amount
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidConstruction:
		return fmt.Sprintf("tokenledger: %s: %s", e.Op, e.Message)
	case KindInsufficientBalance:
		return fmt.Sprintf("tokenledger: %s: insufficient balance: %s has %s, needs %s",
			e.Op, e.Account, e.Available, e.Requested)
	case KindInsufficientAllowance:
		return fmt.Sprintf("tokenledger: %s: insufficient allowance: %s may spend %s of %s, needs %s",
			e.Op, e.Spender, e.Available, e.Account, e.Requested)
	case KindNullDestination:
		return fmt.Sprintf("tokenledger: %s: destination must not be the null address", e.Op)
	default:
		return fmt.Sprintf("tokenledger: %s: %s", e.Op, e.Message)
	}
}

// Unwrap returns the sentinel for the error's kind.
func (e *Error) Unwrap() error { return e.Kind.sentinel() }

// KindOf returns the rejection kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUnknown
}

func constructionError(field, message string) *Error {
	return &Error{Kind: KindInvalidConstruction, Op: "new", Field: field, Message: message}
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTokenNotFound)
}

// IsRejection returns true if the error is a precondition failure of a
// ledger call rather than an infrastructure error.
func IsRejection(err error) bool {
	return KindOf(err) != KindUnknown
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
// Rejections are never retryable: the same call against the same state
// fails the same way.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady)
}
