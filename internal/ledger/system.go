package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

var (
	ErrAccountAlreadyInUse        = NewProgramError(solana.SystemProgramID, 0, "AccountAlreadyInUse", "an account with the same address already exists")
	ErrResultWithNegativeLamports = NewProgramError(solana.SystemProgramID, 1, "ResultWithNegativeLamports", "account does not have enough SOL to perform the operation")
	ErrInvalidAccountDataLength   = NewProgramError(solana.SystemProgramID, 3, "InvalidAccountDataLength", "cannot allocate account data of this length")
)

// MaxAccountDataLength bounds CreateAccount space.
const MaxAccountDataLength = 10 * 1024 * 1024

// systemProgram supports the account creation and lamport transfer subset of
// the native system program.
type systemProgram struct{}

func (systemProgram) ID() solana.PublicKey {
	return solana.SystemProgramID
}

func (systemProgram) Process(ctx *InvokeContext, accounts []*AccountInfo, data []byte) error {
	metas := make([]*solana.AccountMeta, len(accounts))
	for i, a := range accounts {
		metas[i] = a.Meta()
	}

	inst, err := system.DecodeInstruction(metas, data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInstruction, err)
	}

	switch impl := inst.Impl.(type) {
	case *system.CreateAccount:
		if len(accounts) < 2 || impl.Lamports == nil || impl.Space == nil || impl.Owner == nil {
			return ErrInvalidInstruction
		}
		return createAccount(ctx, accounts[0], accounts[1], *impl.Lamports, *impl.Space, *impl.Owner)
	case *system.Transfer:
		if len(accounts) < 2 || impl.Lamports == nil {
			return ErrInvalidInstruction
		}
		return transferLamports(ctx, accounts[0], accounts[1], *impl.Lamports)
	default:
		return fmt.Errorf("%w: unsupported system instruction %d", ErrInvalidInstruction, inst.TypeID.Uint32())
	}
}

func createAccount(ctx *InvokeContext, funding, target *AccountInfo, lamports, space uint64, owner solana.PublicKey) error {
	if !funding.IsSigner || !target.IsSigner {
		return fmt.Errorf("%w: create account", ErrMissingRequiredSig)
	}
	if !funding.IsWritable || !target.IsWritable {
		return fmt.Errorf("%w: create account", ErrReadonlyDataModified)
	}
	if target.Exists() {
		ctx.Logf("Create Account: account %s already in use", target.Key)
		return ErrAccountAlreadyInUse
	}
	if space > MaxAccountDataLength {
		return ErrInvalidAccountDataLength
	}
	if funding.acct.Lamports < lamports {
		ctx.Logf("Transfer: insufficient lamports %d, need %d", funding.acct.Lamports, lamports)
		return ErrResultWithNegativeLamports
	}

	funding.acct.Lamports -= lamports
	target.acct.Lamports += lamports
	target.acct.Data = make([]byte, space)
	target.acct.Owner = owner
	return nil
}

func transferLamports(ctx *InvokeContext, from, to *AccountInfo, lamports uint64) error {
	if !from.IsSigner {
		return fmt.Errorf("%w: transfer", ErrMissingRequiredSig)
	}
	if !from.IsWritable || !to.IsWritable {
		return fmt.Errorf("%w: transfer", ErrReadonlyDataModified)
	}
	if !from.IsOwnedBy(solana.SystemProgramID) || from.DataLen() > 0 {
		return fmt.Errorf("%w: transfer from account with data", ErrExternalDataModified)
	}
	if from.acct.Lamports < lamports {
		ctx.Logf("Transfer: insufficient lamports %d, need %d", from.acct.Lamports, lamports)
		return ErrResultWithNegativeLamports
	}

	from.acct.Lamports -= lamports
	to.acct.Lamports += lamports
	return nil
}
