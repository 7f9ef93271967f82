package sealevel

import (
	"errors"
	"fmt"
)

// instruction errors
var (
	InstrErrGenericError                = errors.New("InstrErrGenericError")
	InstrErrInvalidInstructionData      = errors.New("InstrErrInvalidInstructionData")
	InstrErrNotEnoughAccountKeys        = errors.New("InstrErrNotEnoughAccountKeys")
	InstrErrComputationalBudgetExceeded = errors.New("InstrErrComputationalBudgetExceeded")
	InstrErrMissingAccount              = errors.New("InstrErrMissingAccount")
	InstrErrInvalidAccountOwner         = errors.New("InstrErrInvalidAccountOwner")
	InstrErrInvalidAccountData          = errors.New("InstrErrInvalidAccountData")
	InstrErrMissingRequiredSignature    = errors.New("InstrErrMissingRequiredSignature")
	InstrErrInvalidArgument             = errors.New("InstrErrInvalidArgument")
	InstrErrInvalidSeeds                = errors.New("InstrErrInvalidSeeds")
	InstrErrExecutableDataModified      = errors.New("InstrErrExecutableDataModified")
	InstrErrReadonlyDataModified        = errors.New("InstrErrReadonlyDataModified")
	InstrErrExternalAccountDataModified = errors.New("InstrErrExternalAccountDataModified")
	InstrErrPrivilegeEscalation         = errors.New("InstrErrPrivilegeEscalation")
	InstrErrAccountNotExecutable        = errors.New("InstrErrAccountNotExecutable")
	InstrErrAccountDataSizeChanged      = errors.New("InstrErrAccountDataSizeChanged")
	InstrErrInvalidRealloc              = errors.New("InstrErrInvalidRealloc")
	InstrErrModifiedProgramId           = errors.New("InstrErrModifiedProgramId")
	InstrErrCallDepth                   = errors.New("InstrErrCallDepth")
	InstrErrMaxInstructionTraceLength   = errors.New("InstrErrMaxInstructionTraceLength")
	InstrErrUnsupportedProgramId        = errors.New("InstrErrUnsupportedProgramId")
	InstrErrReentrancyNotAllowed        = errors.New("InstrErrReentrancyNotAllowed")
	InstrErrArithmeticOverflow          = errors.New("InstrErrArithmeticOverflow")
	InstrErrUnbalancedInstruction       = errors.New("InstrErrUnbalancedInstruction")
	InstrErrAccountDataTooSmall         = errors.New("InstrErrAccountDataTooSmall")
	InstrErrAccountBorrowOutstanding    = errors.New("InstrErrAccountBorrowOutstanding")
	InstrErrExternalAccountLamportSpend = errors.New("InstrErrExternalAccountLamportSpend")
	InstrErrReadonlyLamportChange       = errors.New("InstrErrReadonlyLamportChange")
	InstrErrExecutableLamportChange     = errors.New("InstrErrExecutableLamportChange")
	InstrErrInsufficientFunds           = errors.New("InstrErrInsufficientFunds")
	InstrErrAccountAlreadyInitialized   = errors.New("InstrErrAccountAlreadyInitialized")
	InstrErrUninitializedAccount        = errors.New("InstrErrUninitializedAccount")
)

// system program errors
var (
	SystemProgErrAccountAlreadyInUse        = errors.New("SystemProgErrAccountAlreadyInUse")
	SystemProgErrInvalidAccountDataLength   = errors.New("SystemProgErrInvalidAccountDataLength")
	SystemProgErrResultWithNegativeLamports = errors.New("SystemProgErrResultWithNegativeLamports")
)

// CustomError is a program-defined error, InstructionError::Custom on chain.
type CustomError struct {
	Code uint32
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("custom program error: 0x%x", e.Code)
}

// CustomCode lets program error types surface as CustomError without the
// runtime knowing their concrete type.
type CustomCoder interface {
	CustomCode() uint32
}

// CustomErrorCode reports the custom program error code carried by err.
func CustomErrorCode(err error) (uint32, bool) {
	var custom *CustomError
	if errors.As(err, &custom) {
		return custom.Code, true
	}
	var coder CustomCoder
	if errors.As(err, &coder) {
		return coder.CustomCode(), true
	}
	return 0, false
}

// InstructionError records which instruction of a transaction failed.
type InstructionError struct {
	Index uint8
	Err   error
}

func (e *InstructionError) Error() string {
	if code, ok := CustomErrorCode(e.Err); ok {
		return fmt.Sprintf("Error processing Instruction %d: custom program error: 0x%x", e.Index, code)
	}
	return fmt.Sprintf("Error processing Instruction %d: %s", e.Index, e.Err)
}

func (e *InstructionError) Unwrap() error {
	return e.Err
}
