package core

import (
	"errors"

	"github.com/tolelom/skillbloom/codec"
)

// ErrNotFound is returned when a requested object does not exist in storage.
var ErrNotFound = errors.New("not found")

// Ledger failures. Each one is terminal for the transaction that caused it.
var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrAlreadyRegistered    = errors.New("player already registered")
	ErrNotRegistered        = errors.New("player not registered")
	ErrInvalidSkill         = errors.New("invalid skill")
	ErrInvalidTournament    = errors.New("invalid tournament")
	ErrInsufficientPoints   = errors.New("insufficient skill points")
	ErrInsufficientPayment  = errors.New("insufficient payment")
	ErrAlreadyJoined        = errors.New("already joined tournament")
	ErrSkillAlreadyUnlocked = errors.New("skill already unlocked")
	ErrPrerequisiteMissing  = errors.New("prerequisite skill not unlocked")
	ErrLevelTooLow          = errors.New("player level too low")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrInvalidPayload       = errors.New("invalid payload")
)

// Error codes carried in receipts and RPC responses.
const (
	CodeUnauthorized         = "unauthorized"
	CodeAlreadyRegistered    = "already_registered"
	CodeNotRegistered        = "not_registered"
	CodeInvalidSkill         = "invalid_skill"
	CodeInvalidTournament    = "invalid_tournament"
	CodeInsufficientPoints   = "insufficient_points"
	CodeInsufficientPayment  = "insufficient_payment"
	CodeAlreadyJoined        = "already_joined"
	CodeSkillAlreadyUnlocked = "skill_already_unlocked"
	CodePrerequisiteMissing  = "prerequisite_missing"
	CodeLevelTooLow          = "level_too_low"
	CodeInsufficientBalance  = "insufficient_balance"
	CodeInvalidPayload       = "invalid_payload"
	CodeDecode               = "decode_error"
	CodeNotFound             = "not_found"
	CodeInternal             = "internal"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrUnauthorized, CodeUnauthorized},
	{ErrAlreadyRegistered, CodeAlreadyRegistered},
	{ErrNotRegistered, CodeNotRegistered},
	{ErrInvalidSkill, CodeInvalidSkill},
	{ErrInvalidTournament, CodeInvalidTournament},
	{ErrInsufficientPoints, CodeInsufficientPoints},
	{ErrInsufficientPayment, CodeInsufficientPayment},
	{ErrAlreadyJoined, CodeAlreadyJoined},
	{ErrSkillAlreadyUnlocked, CodeSkillAlreadyUnlocked},
	{ErrPrerequisiteMissing, CodePrerequisiteMissing},
	{ErrLevelTooLow, CodeLevelTooLow},
	{ErrInsufficientBalance, CodeInsufficientBalance},
	{ErrInvalidPayload, CodeInvalidPayload},
	{codec.ErrDecode, CodeDecode},
	{ErrNotFound, CodeNotFound},
}

// ErrorCode classifies err into a stable code. Unclassified errors map to
// CodeInternal.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}

// LedgerError is a ledger failure reconstructed from its code and message,
// typically on the far side of an RPC boundary. It unwraps to the matching
// sentinel so errors.Is works as it does inside the ledger.
type LedgerError struct {
	Code    string
	Message string
	err     error
}

func (e *LedgerError) Error() string { return e.Message }

func (e *LedgerError) Unwrap() error { return e.err }

// ErrorFromCode rebuilds a ledger failure from its code and message.
func ErrorFromCode(code, message string) error {
	var sentinel error
	for _, ec := range errorCodes {
		if ec.code == code {
			sentinel = ec.err
			break
		}
	}
	if message == "" && sentinel != nil {
		message = sentinel.Error()
	}
	return &LedgerError{Code: code, Message: message, err: sentinel}
}
