// Package domainerrors provides coded errors for the registry core.
//
// Stores return sentinel errors (pkg/platform/sentinel) for infrastructure
// facts; services translate those into coded errors so callers and the HTTP
// layer can branch on the kind of failure without string matching.
//
// PolicyDenied deserves a note: it is an expected, common outcome of a
// compliance predicate, not a defect. Callers must be able to distinguish it
// from InsufficientBalance, since a policy denial may change on re-evaluation
// while a balance shortfall is an arithmetic fact.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeUnauthorized: caller lacks the required role.
	CodeUnauthorized Code = "unauthorized"
	// CodeInvalidState: operation attempted from a state that does not permit it.
	CodeInvalidState Code = "invalid_state"
	// CodeInvalidAmount: ledger arithmetic precondition violated (e.g. zero fragments).
	CodeInvalidAmount Code = "invalid_amount"
	// CodeInsufficientBalance: debit exceeds the holder's balance.
	CodeInsufficientBalance Code = "insufficient_balance"
	// CodePolicyDenied: a compliance predicate failed. Expected outcome, not a defect.
	CodePolicyDenied Code = "policy_denied"
	// CodeNotFound: query precondition violated, entity does not exist.
	CodeNotFound Code = "not_found"
	// CodeInvalidRange: audit range query precondition violated.
	CodeInvalidRange Code = "invalid_range"
	// CodeInvalidAction: audit action code is not on the registered whitelist.
	CodeInvalidAction Code = "invalid_action"
	// CodeAlreadyExists: administrative set-membership precondition violated.
	CodeAlreadyExists Code = "already_exists"
	// CodeAlreadyAuthorized: writer is already in the authorization set.
	CodeAlreadyAuthorized Code = "already_authorized"
	// CodeNotAuthorized: writer is not in the authorization set.
	CodeNotAuthorized Code = "not_authorized"
	// CodeSelfTransfer: transfer proposal names the same principal twice.
	CodeSelfTransfer Code = "self_transfer"
	// CodeInvalidParties: transfer proposal names a null/unset principal.
	CodeInvalidParties Code = "invalid_parties"
	// CodeInvalidInput: malformed input at a trust boundary.
	CodeInvalidInput Code = "invalid_input"
	// CodeBadRequest: malformed request at the transport layer.
	CodeBadRequest Code = "bad_request"
	// CodeConflict: concurrent or duplicate mutation rejected.
	CodeConflict Code = "conflict"
	// CodeInternal: unexpected failure, details stay server-side.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error with an optional wrapped cause.
type Error struct {
	code  Code
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.msg)
}

func (e *Error) Unwrap() error { return e.cause }

// Code returns the error's classification.
func (e *Error) Code() Code { return e.code }

// Message returns the human-readable description without the cause chain.
func (e *Error) Message() string { return e.msg }

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{code: code, msg: msg}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message. Returns nil if err is nil.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{code: code, msg: msg, cause: err}
}

// HasCode reports whether any error in err's chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// CodeOf returns the code of the outermost coded error in err's chain, or
// CodeInternal when err carries no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.code
	}
	return CodeInternal
}
