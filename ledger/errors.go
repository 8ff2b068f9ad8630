package ledger

import "errors"

// Kind is a stable category for programmatic error handling.
//
// These categories are intended to remain stable across versions.
// Callers should branch on Kind/RuleID rather than matching error strings.
//
// NOTE: Error() strings are intentionally kept human-readable and may evolve.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	// KindPayment: local payment validation; never retried automatically.
	KindPayment Kind = "Payment"
	// KindVault: vault sequencing errors; fatal to the calling operation.
	KindVault Kind = "Vault"
	// KindAuth: recoverable by obtaining a valid subscription or by calling
	// as the owner.
	KindAuth Kind = "Auth"
	// KindConfig: parameter validation at update time.
	KindConfig Kind = "Config"
	// KindFunds: balance validation; not retryable until balance changes.
	KindFunds Kind = "Funds"
	// KindService: external reveal-service failures; transient, retryable.
	KindService Kind = "Service"
	// KindCrypto: statement or signature failures; terminal per attempt.
	KindCrypto Kind = "Crypto"
	// KindInternal: invariant violations inside this module.
	KindInternal Kind = "Internal"
)

// Stable rule identifiers. RuleIDs name the violated contract, never the
// call site.
const (
	RuleInsufficientPayment = "KG-PAY-001"
	RuleKeyAlreadySet       = "KG-VLT-001"
	RuleKeyNotSet           = "KG-VLT-002"
	RuleProofMismatch       = "KG-VLT-003"
	RuleNoValidSubscription = "KG-AUTH-001"
	RuleNotOwner            = "KG-AUTH-002"
	RuleInvalidDuration     = "KG-CFG-001"
	RuleInvalidPrice        = "KG-CFG-002"
	RuleNoFundsToWithdraw   = "KG-FND-001"
	RuleTransferFailed      = "KG-FND-002"
	RuleNoRefundOwed        = "KG-FND-003"
	RuleServiceUnavailable  = "KG-SVC-001"
	RuleStatementRejected   = "KG-CRY-001"
)

// Error is the module's structured error type.
//
// RuleID is a stable identifier (e.g., KG-PAY-001) that names the violated
// contract. Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewError builds a structured error. Exposed so the transport layers can
// reconstruct ledger errors on the far side of an RPC.
func NewError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

func WrapError(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return NewError(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}

// IsTransient reports whether err is safe to retry with backoff. Only
// external-service failures qualify; ledger-state errors are deterministic.
func IsTransient(err error) bool {
	return IsKind(err, KindService)
}
