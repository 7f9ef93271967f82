package escrow

import (
	"errors"
	"fmt"
)

// ErrorCode is an Anchor error number. Values below 6000 belong to the
// framework, the rest are declared by the program.
type ErrorCode uint32

// framework errors
const (
	ErrInstructionMissing           ErrorCode = 100
	ErrInstructionFallbackNotFound  ErrorCode = 101
	ErrInstructionDidNotDeserialize ErrorCode = 102

	ErrConstraintMut   ErrorCode = 2000
	ErrConstraintRaw   ErrorCode = 2003
	ErrConstraintSeeds ErrorCode = 2006

	ErrAccountDiscriminatorNotFound ErrorCode = 3001
	ErrAccountDiscriminatorMismatch ErrorCode = 3002
	ErrAccountDidNotDeserialize     ErrorCode = 3003
	ErrAccountDidNotSerialize       ErrorCode = 3004
	ErrAccountNotEnoughKeys         ErrorCode = 3005
	ErrAccountOwnedByWrongProgram   ErrorCode = 3007
	ErrInvalidProgramId             ErrorCode = 3008
	ErrInvalidProgramExecutable     ErrorCode = 3009
	ErrAccountNotSigner             ErrorCode = 3010
	ErrAccountNotInitialized        ErrorCode = 3012
)

// program errors
const (
	ErrUnauthorized ErrorCode = 6000 + iota
	ErrJobAlreadyFilled
	ErrApplicationNotApproved
	ErrWorkNotCompleted
	ErrInvalidDates
	ErrInvalidInput
	ErrInvalidAccount
	ErrInvalidAmount
	ErrJobCancelled
	ErrJobAlreadyCancelled
	ErrWorkAlreadySubmitted
	ErrApplicationAlreadyApproved
	ErrWorkAlreadyApproved
	ErrWorkAlreadyRejected
	ErrInsufficientEscrowBalance
)

type errorInfo struct {
	name    string
	message string
}

var errorInfos = map[ErrorCode]errorInfo{
	ErrInstructionMissing:           {"InstructionMissing", "8 byte instruction identifier not provided"},
	ErrInstructionFallbackNotFound:  {"InstructionFallbackNotFound", "Fallback functions are not supported"},
	ErrInstructionDidNotDeserialize: {"InstructionDidNotDeserialize", "The program could not deserialize the given instruction"},
	ErrConstraintMut:                {"ConstraintMut", "A mut constraint was violated"},
	ErrConstraintRaw:                {"ConstraintRaw", "A raw constraint was violated"},
	ErrConstraintSeeds:              {"ConstraintSeeds", "A seeds constraint was violated"},
	ErrAccountDiscriminatorNotFound: {"AccountDiscriminatorNotFound", "No discriminator was found on the account"},
	ErrAccountDiscriminatorMismatch: {"AccountDiscriminatorMismatch", "8 byte discriminator did not match what was expected"},
	ErrAccountDidNotDeserialize:     {"AccountDidNotDeserialize", "Failed to deserialize the account"},
	ErrAccountDidNotSerialize:       {"AccountDidNotSerialize", "Failed to serialize the account"},
	ErrAccountNotEnoughKeys:         {"AccountNotEnoughKeys", "Not enough account keys given to the instruction"},
	ErrAccountOwnedByWrongProgram:   {"AccountOwnedByWrongProgram", "The given account is owned by a different program than expected"},
	ErrInvalidProgramId:             {"InvalidProgramId", "Program ID was not as expected"},
	ErrInvalidProgramExecutable:     {"InvalidProgramExecutable", "Program account is not executable"},
	ErrAccountNotSigner:             {"AccountNotSigner", "The given account did not sign"},
	ErrAccountNotInitialized:        {"AccountNotInitialized", "The program expected this account to be already initialized"},

	ErrUnauthorized:               {"Unauthorized", "You are not authorized to perform this action."},
	ErrJobAlreadyFilled:           {"JobAlreadyFilled", "This job has already been filled."},
	ErrApplicationNotApproved:     {"ApplicationNotApproved", "Application has not been approved yet."},
	ErrWorkNotCompleted:           {"WorkNotCompleted", "Work has not been completed yet."},
	ErrInvalidDates:               {"InvalidDates", "Invalid dates provided."},
	ErrInvalidInput:               {"InvalidInput", "Invalid input provided."},
	ErrInvalidAccount:             {"InvalidAccount", "Invalid account relationship."},
	ErrInvalidAmount:              {"InvalidAmount", "Invalid amount provided."},
	ErrJobCancelled:               {"JobCancelled", "Job has been cancelled."},
	ErrJobAlreadyCancelled:        {"JobAlreadyCancelled", "Job has already been cancelled."},
	ErrWorkAlreadySubmitted:       {"WorkAlreadySubmitted", "Work has already been submitted."},
	ErrApplicationAlreadyApproved: {"ApplicationAlreadyApproved", "Application has already been approved."},
	ErrWorkAlreadyApproved:        {"WorkAlreadyApproved", "Work has already been approved."},
	ErrWorkAlreadyRejected:        {"WorkAlreadyRejected", "Work has already been rejected."},
	ErrInsufficientEscrowBalance:  {"InsufficientEscrowBalance", "Escrow account does not have enough balance."},
}

func (c ErrorCode) Name() string {
	if info, ok := errorInfos[c]; ok {
		return info.name
	}
	return fmt.Sprintf("Unknown(%d)", uint32(c))
}

func (c ErrorCode) Message() string {
	if info, ok := errorInfos[c]; ok {
		return info.message
	}
	return "unknown error"
}

func (c ErrorCode) Error() string {
	return fmt.Sprintf("Error Code: %s. Error Number: %d. Error Message: %s.", c.Name(), uint32(c), c.Message())
}

func (c ErrorCode) CustomCode() uint32 {
	return uint32(c)
}

// AnchorError is an ErrorCode raised while validating a named account.
type AnchorError struct {
	Code    ErrorCode
	Account string
}

func (e *AnchorError) Error() string {
	return e.Code.Error()
}

func (e *AnchorError) Unwrap() error {
	return e.Code
}

func (e *AnchorError) CustomCode() uint32 {
	return uint32(e.Code)
}

func accountError(code ErrorCode, account string) error {
	return &AnchorError{Code: code, Account: account}
}

// LogLine renders err the way the program logs it on failure.
func LogLine(err error) (string, bool) {
	var anchorErr *AnchorError
	if errors.As(err, &anchorErr) {
		return fmt.Sprintf("AnchorError caused by account: %s. %s", anchorErr.Account, anchorErr.Code.Error()), true
	}
	var code ErrorCode
	if errors.As(err, &code) {
		return "AnchorError occurred. " + code.Error(), true
	}
	return "", false
}

// ErrorCodeFromCustom maps a custom program error code back to an
// ErrorCode known to this program.
func ErrorCodeFromCustom(code uint32) (ErrorCode, bool) {
	_, ok := errorInfos[ErrorCode(code)]
	return ErrorCode(code), ok
}
