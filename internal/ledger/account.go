package ledger

import (
	"github.com/gagliardetto/solana-go"
)

// Account is the stored state behind one address.
type Account struct {
	Address    solana.PublicKey
	Owner      solana.PublicKey
	Lamports   uint64
	Data       []byte
	Executable bool
}

func newEmptyAccount(address solana.PublicKey) *Account {
	return &Account{Address: address, Owner: solana.SystemProgramID}
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	out := *a
	out.Data = append([]byte(nil), a.Data...)
	return &out
}

// IsEmpty reports whether the account holds nothing and would not be stored.
func (a *Account) IsEmpty() bool {
	return a.Lamports == 0 && len(a.Data) == 0 && a.Owner.Equals(solana.SystemProgramID)
}

// AccountInfo is the view of an account handed to a program for one
// invocation, carrying the privileges the caller granted.
type AccountInfo struct {
	Key        solana.PublicKey
	IsSigner   bool
	IsWritable bool

	acct *Account
}

func (a *AccountInfo) Owner() solana.PublicKey {
	return a.acct.Owner
}

func (a *AccountInfo) Lamports() uint64 {
	return a.acct.Lamports
}

// Data returns a copy of the account data.
func (a *AccountInfo) Data() []byte {
	return append([]byte(nil), a.acct.Data...)
}

func (a *AccountInfo) DataLen() int {
	return len(a.acct.Data)
}

func (a *AccountInfo) Executable() bool {
	return a.acct.Executable
}

// Exists reports whether the account has been created.
func (a *AccountInfo) Exists() bool {
	return !a.acct.IsEmpty()
}

// IsOwnedBy reports whether program owns the account.
func (a *AccountInfo) IsOwnedBy(program solana.PublicKey) bool {
	return a.acct.Owner.Equals(program)
}

// Meta returns the account meta matching this view.
func (a *AccountInfo) Meta() *solana.AccountMeta {
	return solana.NewAccountMeta(a.Key, a.IsWritable, a.IsSigner)
}
