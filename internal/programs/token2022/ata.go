package token2022

import (
	"errors"
	"fmt"

	"divisionone/internal/ledger"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// AssociatedTokenProgram creates Token-2022 associated token accounts.
type AssociatedTokenProgram struct{}

func (AssociatedTokenProgram) ID() solana.PublicKey {
	return solana.SPLAssociatedTokenAccountProgramID
}

func (AssociatedTokenProgram) Process(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, data []byte) error {
	idempotent := false
	switch {
	case len(data) == 0 || (len(data) == 1 && data[0] == ATAInstructionCreate):
		ctx.Logf("Create")
	case len(data) == 1 && data[0] == ATAInstructionCreateIdempotent:
		ctx.Logf("CreateIdempotent")
		idempotent = true
	default:
		return ledger.ErrInvalidInstruction
	}
	if err := requireAccounts(accounts, 6); err != nil {
		return err
	}
	payer, ataAcct, wallet, mintAcct, tokenProgram := accounts[0], accounts[1], accounts[2], accounts[3], accounts[5]

	if !tokenProgram.Key.Equals(programID) {
		return fmt.Errorf("%w: %s", ErrIncorrectProgramID, tokenProgram.Key)
	}
	seeds := [][]byte{wallet.Key.Bytes(), programID.Bytes(), mintAcct.Key.Bytes()}
	expected, bump, err := solana.FindProgramAddress(seeds, solana.SPLAssociatedTokenAccountProgramID)
	if err != nil {
		return err
	}
	if !expected.Equals(ataAcct.Key) {
		ctx.Logf("Error: Associated address does not match seed derivation")
		return ErrInvalidSeeds
	}

	if idempotent && ataAcct.Exists() {
		existing, err := loadAccount(ataAcct)
		if err != nil {
			return err
		}
		if !existing.Owner.Equals(wallet.Key) || !existing.Mint.Equals(mintAcct.Key) {
			return ErrInvalidOwner
		}
		return nil
	}

	m, err := loadInitializedMint(mintAcct)
	if err != nil {
		if errors.Is(err, ErrUninitializedState) {
			return ErrInvalidMint
		}
		return err
	}
	space := uint64(AccountSize(m))
	ctx.Logf("Initialize the associated token account")

	create := system.NewCreateAccountInstruction(ledger.MinimumBalance(space), space, programID, payer.Key, ataAcct.Key).Build()
	if err := ctx.Invoke(create, append(seeds, []byte{bump})); err != nil {
		return err
	}
	return ctx.Invoke(NewInitializeAccount3Instruction(wallet.Key, ataAcct.Key, mintAcct.Key))
}
