package feehook

import (
	"divisionone/internal/ledger"
	"divisionone/pkg/solana/divisionone"
)

var (
	ErrUnauthorizedAccess   = ledger.NewProgramError(divisionone.FEE_HOOK_PROGRAM_ID, 6000, "UnauthorizedAccess", "signer does not own the institution config")
	ErrMissingConfig        = ledger.NewProgramError(divisionone.FEE_HOOK_PROGRAM_ID, 6001, "MissingConfig", "config account does not exist")
	ErrArithmeticOverflow   = ledger.NewProgramError(divisionone.FEE_HOOK_PROGRAM_ID, 6002, "ArithmeticOverflow", "fee calculation overflowed")
	ErrSubInvocationFailure = ledger.NewProgramError(divisionone.FEE_HOOK_PROGRAM_ID, 6003, "SubInvocationFailure", "token program rejected a fee transfer")
	ErrInvalidExtraAccount  = ledger.NewProgramError(divisionone.FEE_HOOK_PROGRAM_ID, 6004, "InvalidExtraAccount", "account does not match its expected address")
	ErrNotTransferring      = ledger.NewProgramError(divisionone.FEE_HOOK_PROGRAM_ID, 6005, "NotTransferring", "hook called outside of a token transfer")
	ErrInvalidInstruction   = ledger.NewProgramError(divisionone.FEE_HOOK_PROGRAM_ID, 6006, "InvalidInstruction", "invalid instruction data")
)
