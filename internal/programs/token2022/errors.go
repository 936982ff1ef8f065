package token2022

import (
	"errors"

	"divisionone/internal/ledger"

	"github.com/gagliardetto/solana-go"
)

var programID = solana.Token2022ProgramID

// Token program error codes.
var (
	ErrNotRentExempt        = ledger.NewProgramError(programID, 0, "NotRentExempt", "lamport balance below rent-exempt threshold")
	ErrInsufficientFunds    = ledger.NewProgramError(programID, 1, "InsufficientFunds", "insufficient funds")
	ErrInvalidMint          = ledger.NewProgramError(programID, 2, "InvalidMint", "invalid mint")
	ErrMintMismatch         = ledger.NewProgramError(programID, 3, "MintMismatch", "account not associated with this mint")
	ErrOwnerMismatch        = ledger.NewProgramError(programID, 4, "OwnerMismatch", "owner does not match")
	ErrFixedSupply          = ledger.NewProgramError(programID, 5, "FixedSupply", "fixed supply")
	ErrAlreadyInUse         = ledger.NewProgramError(programID, 6, "AlreadyInUse", "already in use")
	ErrUninitializedState   = ledger.NewProgramError(programID, 9, "UninitializedState", "state is uninitialized")
	ErrInvalidState         = ledger.NewProgramError(programID, 13, "InvalidState", "invalid account state for operation")
	ErrOverflow             = ledger.NewProgramError(programID, 14, "Overflow", "operation overflowed")
	ErrMintCannotFreeze     = ledger.NewProgramError(programID, 16, "MintCannotFreeze", "this token mint cannot freeze accounts")
	ErrAccountFrozen        = ledger.NewProgramError(programID, 17, "AccountFrozen", "account is frozen")
	ErrMintDecimalsMismatch = ledger.NewProgramError(programID, 18, "MintDecimalsMismatch", "the provided decimals value different from the mint decimals")
	ErrMintRequired         = ledger.NewProgramError(programID, 31, "MintRequiredForTransfer", "mint required for this account to transfer tokens, use transfer_checked")
	ErrExtensionNotFound    = ledger.NewProgramError(programID, 48, "ExtensionNotFound", "extension not found in account data")

	// transfer hook interface error
	ErrIncorrectAccount = ledger.NewProgramError(programID, 2110272652, "IncorrectAccount", "incorrect account provided")

	// token metadata interface error
	ErrIncorrectMintAuthority = ledger.NewProgramError(programID, 901952961, "IncorrectMintAuthority", "incorrect mint authority has signed the instruction")
)

// Associated token account program errors.
var (
	ErrInvalidOwner = ledger.NewProgramError(solana.SPLAssociatedTokenAccountProgramID, 0, "InvalidOwner", "associated token account owner does not match address derivation")
	ErrInvalidSeeds = ledger.NewProgramError(solana.SPLAssociatedTokenAccountProgramID, 1, "InvalidSeeds", "provided seeds do not result in a valid address")
)

var (
	ErrInvalidAccountData     = errors.New("invalid token account data")
	ErrIncorrectProgramID     = errors.New("account not owned by the token program")
	ErrMissingRequiredSig     = errors.New("missing required signature")
	ErrUnsupportedInstruction = errors.New("unsupported token instruction")
)
