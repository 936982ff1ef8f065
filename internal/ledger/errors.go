package ledger

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrAccountNotFound       = errors.New("account not found")
	ErrProgramNotFound       = errors.New("program not found")
	ErrMissingAccount        = errors.New("account not provided to instruction")
	ErrPrivilegeEscalation   = errors.New("cross-program invocation with unauthorized signer or writable account")
	ErrCallDepth             = errors.New("cross-program invocation call depth too deep")
	ErrReadonlyDataModified  = errors.New("instruction modified data of a read-only account")
	ErrExternalDataModified  = errors.New("instruction modified data of an account it does not own")
	ErrSignatureVerification = errors.New("transaction signature verification failed")
	ErrMissingRequiredSig    = errors.New("missing required signature for instruction")
	ErrInvalidInstruction    = errors.New("invalid instruction data")
	ErrAlreadyProcessed      = errors.New("transaction has already been processed")
	ErrBlockhashNotFound     = errors.New("blockhash not found")
)

// ProgramError is a numbered error returned by a program. Two program errors
// match under errors.Is when both the program and the code agree.
type ProgramError struct {
	Program solana.PublicKey
	Code    uint32
	Name    string
	Msg     string
}

func NewProgramError(program solana.PublicKey, code uint32, name, msg string) *ProgramError {
	return &ProgramError{Program: program, Code: code, Name: name, Msg: msg}
}

func (e *ProgramError) Error() string {
	return fmt.Sprintf("custom program error: 0x%x (%s): %s", e.Code, e.Name, e.Msg)
}

func (e *ProgramError) Is(target error) bool {
	t, ok := target.(*ProgramError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Program.Equals(e.Program)
}

// TransactionError reports the failing instruction of an aborted transaction.
type TransactionError struct {
	InstructionIndex int
	Err              error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction failed at instruction %d: %v", e.InstructionIndex, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// ErrorCode returns the first program error code found in err's chain.
func ErrorCode(err error) (uint32, bool) {
	var pe *ProgramError
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return 0, false
}
