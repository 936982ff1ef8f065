// Package token2022 runs the subset of the Token-2022 and associated token
// account programs that a transfer-hook mint needs, inside the ledger.
package token2022

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"divisionone/internal/ledger"
	"divisionone/pkg/solana/extrameta"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// Program is the token program.
type Program struct{}

func (Program) ID() solana.PublicKey {
	return programID
}

func (p Program) Process(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, data []byte) error {
	if len(data) == 0 {
		return ledger.ErrInvalidInstruction
	}

	if len(data) >= 8 && bytes.Equal(data[:8], TokenMetadataInitializeDiscriminator) {
		ctx.Logf("Instruction: TokenMetadataInstruction: Initialize")
		return p.initializeTokenMetadata(ctx, accounts, data[8:])
	}

	switch data[0] {
	case InstructionTransferHookExtension:
		ctx.Logf("Instruction: TransferHookInstruction::Initialize")
		return p.initializeMintExtension(ctx, accounts, data, func(m *Mint, a, b solana.PublicKey) {
			m.TransferHook = &TransferHook{Authority: a, ProgramID: b}
		})
	case InstructionMetadataPointerExtension:
		ctx.Logf("Instruction: MetadataPointerInstruction::Initialize")
		return p.initializeMintExtension(ctx, accounts, data, func(m *Mint, a, b solana.PublicKey) {
			m.MetadataPointer = &MetadataPointer{Authority: a, MetadataAddress: b}
		})
	}

	metas := make([]*solana.AccountMeta, len(accounts))
	for i, a := range accounts {
		metas[i] = a.Meta()
	}
	inst, err := token.DecodeInstruction(metas, data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedInstruction, err)
	}

	switch impl := inst.Impl.(type) {
	case *token.InitializeMint2:
		ctx.Logf("Instruction: InitializeMint2")
		return p.initializeMint(ctx, accounts, impl)
	case *token.InitializeAccount3:
		ctx.Logf("Instruction: InitializeAccount3")
		return p.initializeAccount(ctx, accounts, impl)
	case *token.MintTo:
		ctx.Logf("Instruction: MintTo")
		return p.mintTo(ctx, accounts, *impl.Amount)
	case *token.Transfer:
		ctx.Logf("Instruction: Transfer")
		return p.transfer(ctx, accounts, *impl.Amount)
	case *token.TransferChecked:
		ctx.Logf("Instruction: TransferChecked")
		return p.transferChecked(ctx, accounts, *impl.Amount, *impl.Decimals)
	case *token.Burn:
		ctx.Logf("Instruction: Burn")
		return p.burn(ctx, accounts, *impl.Amount)
	case *token.FreezeAccount:
		ctx.Logf("Instruction: FreezeAccount")
		return p.setFrozen(ctx, accounts, true)
	case *token.ThawAccount:
		ctx.Logf("Instruction: ThawAccount")
		return p.setFrozen(ctx, accounts, false)
	}
	return fmt.Errorf("%w: type %d", ErrUnsupportedInstruction, inst.TypeID.Uint8())
}

func requireAccounts(accounts []*ledger.AccountInfo, n int) error {
	if len(accounts) < n {
		return fmt.Errorf("%w: expected %d accounts, got %d", ledger.ErrMissingAccount, n, len(accounts))
	}
	return nil
}

func loadMint(acct *ledger.AccountInfo) (*Mint, error) {
	if !acct.IsOwnedBy(programID) {
		return nil, fmt.Errorf("%w: mint %s", ErrIncorrectProgramID, acct.Key)
	}
	return DecodeMint(acct.Data())
}

func loadInitializedMint(acct *ledger.AccountInfo) (*Mint, error) {
	m, err := loadMint(acct)
	if err != nil {
		return nil, err
	}
	if !m.IsInitialized {
		return nil, ErrUninitializedState
	}
	return m, nil
}

func loadAccount(acct *ledger.AccountInfo) (*Account, error) {
	if !acct.IsOwnedBy(programID) {
		return nil, fmt.Errorf("%w: token account %s", ErrIncorrectProgramID, acct.Key)
	}
	a, err := DecodeAccount(acct.Data())
	if err != nil {
		return nil, err
	}
	if !a.IsInitialized() {
		return nil, ErrUninitializedState
	}
	return a, nil
}

// store writes encoded state, keeping any space allocated beyond it.
func store(ctx *ledger.InvokeContext, acct *ledger.AccountInfo, encoded []byte) error {
	if len(encoded) < acct.DataLen() {
		padded := make([]byte, acct.DataLen())
		copy(padded, encoded)
		encoded = padded
	}
	return ctx.SetData(acct, encoded)
}

func storeMint(ctx *ledger.InvokeContext, acct *ledger.AccountInfo, m *Mint) error {
	encoded, err := m.Encode()
	if err != nil {
		return err
	}
	return store(ctx, acct, encoded)
}

func storeAccount(ctx *ledger.InvokeContext, acct *ledger.AccountInfo, a *Account) error {
	encoded, err := a.Encode()
	if err != nil {
		return err
	}
	return store(ctx, acct, encoded)
}

func checkAuthority(authority *ledger.AccountInfo, expected solana.PublicKey) error {
	if !authority.Key.Equals(expected) {
		return ErrOwnerMismatch
	}
	if !authority.IsSigner {
		return fmt.Errorf("%w: %s", ErrMissingRequiredSig, authority.Key)
	}
	return nil
}

func (Program) initializeMintExtension(
	ctx *ledger.InvokeContext,
	accounts []*ledger.AccountInfo,
	data []byte,
	apply func(m *Mint, first, second solana.PublicKey),
) error {
	if err := requireAccounts(accounts, 1); err != nil {
		return err
	}
	if len(data) != 2+64 || data[1] != extensionInitialize {
		return ledger.ErrInvalidInstruction
	}
	mintAcct := accounts[0]
	m, err := loadMint(mintAcct)
	if err != nil {
		return err
	}
	if m.IsInitialized {
		return ErrAlreadyInUse
	}

	apply(m, solana.PublicKeyFromBytes(data[2:34]), solana.PublicKeyFromBytes(data[34:66]))
	encoded, err := m.Encode()
	if err != nil {
		return err
	}
	if len(encoded) > mintAcct.DataLen() {
		return fmt.Errorf("%w: mint has %d bytes, extension needs %d", ErrInvalidAccountData, mintAcct.DataLen(), len(encoded))
	}
	return store(ctx, mintAcct, encoded)
}

func (Program) initializeMint(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, inst *token.InitializeMint2) error {
	if err := requireAccounts(accounts, 1); err != nil {
		return err
	}
	mintAcct := accounts[0]
	m, err := loadMint(mintAcct)
	if err != nil {
		return err
	}
	if m.IsInitialized {
		return ErrAlreadyInUse
	}

	m.MintAuthority = inst.MintAuthority
	m.FreezeAuthority = inst.FreezeAuthority
	m.Decimals = *inst.Decimals
	m.IsInitialized = true
	return storeMint(ctx, mintAcct, m)
}

func (Program) initializeAccount(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, inst *token.InitializeAccount3) error {
	if err := requireAccounts(accounts, 2); err != nil {
		return err
	}
	acct, mintAcct := accounts[0], accounts[1]
	if !acct.IsOwnedBy(programID) {
		return fmt.Errorf("%w: token account %s", ErrIncorrectProgramID, acct.Key)
	}
	a, err := DecodeAccount(acct.Data())
	if err != nil {
		return err
	}
	if a.IsInitialized() {
		return ErrAlreadyInUse
	}
	m, err := loadMint(mintAcct)
	if err != nil || !m.IsInitialized {
		return ErrInvalidMint
	}

	a.Mint = mintAcct.Key
	a.Owner = *inst.Owner
	a.State = token.Initialized
	if m.TransferHook != nil {
		if acct.DataLen() < AccountSize(m) {
			return fmt.Errorf("%w: account has %d bytes, mint requires %d", ErrInvalidAccountData, acct.DataLen(), AccountSize(m))
		}
		a.TransferHookAccount = &TransferHookAccount{}
	}
	return storeAccount(ctx, acct, a)
}

func (Program) mintTo(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, amount uint64) error {
	if err := requireAccounts(accounts, 3); err != nil {
		return err
	}
	mintAcct, destAcct, authority := accounts[0], accounts[1], accounts[2]
	m, err := loadInitializedMint(mintAcct)
	if err != nil {
		return err
	}
	dest, err := loadAccount(destAcct)
	if err != nil {
		return err
	}
	if !dest.Mint.Equals(mintAcct.Key) {
		return ErrMintMismatch
	}
	if dest.IsFrozen() {
		return ErrAccountFrozen
	}
	if m.MintAuthority == nil {
		return ErrFixedSupply
	}
	if err := checkAuthority(authority, *m.MintAuthority); err != nil {
		return err
	}
	if m.Supply+amount < m.Supply || dest.Amount+amount < dest.Amount {
		return ErrOverflow
	}

	m.Supply += amount
	dest.Amount += amount
	if err := storeAccount(ctx, destAcct, dest); err != nil {
		return err
	}
	return storeMint(ctx, mintAcct, m)
}

// move debits source and credits destination after the common checks.
func move(ctx *ledger.InvokeContext, sourceAcct, destAcct, authority *ledger.AccountInfo, amount uint64, mint *solana.PublicKey) (*Account, *Account, error) {
	source, err := loadAccount(sourceAcct)
	if err != nil {
		return nil, nil, err
	}
	dest, err := loadAccount(destAcct)
	if err != nil {
		return nil, nil, err
	}
	if !source.Mint.Equals(dest.Mint) {
		return nil, nil, ErrMintMismatch
	}
	if mint != nil && !source.Mint.Equals(*mint) {
		return nil, nil, ErrMintMismatch
	}
	if source.IsFrozen() || dest.IsFrozen() {
		return nil, nil, ErrAccountFrozen
	}
	if err := checkAuthority(authority, source.Owner); err != nil {
		return nil, nil, err
	}
	if source.Amount < amount {
		ctx.Logf("Error: insufficient funds")
		return nil, nil, ErrInsufficientFunds
	}

	if sourceAcct.Key.Equals(destAcct.Key) {
		return source, source, nil
	}
	if dest.Amount+amount < dest.Amount {
		return nil, nil, ErrOverflow
	}
	source.Amount -= amount
	dest.Amount += amount
	return source, dest, nil
}

func (Program) transfer(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, amount uint64) error {
	if err := requireAccounts(accounts, 3); err != nil {
		return err
	}
	sourceAcct, destAcct, authority := accounts[0], accounts[1], accounts[2]
	source, dest, err := move(ctx, sourceAcct, destAcct, authority, amount, nil)
	if err != nil {
		return err
	}
	// Accounts of a hooked mint only move through TransferChecked, except
	// for calls the hook makes while the transfer is in flight.
	if source.TransferHookAccount != nil && !source.TransferHookAccount.Transferring {
		ctx.Logf("Error: mint required for transfer")
		return ErrMintRequired
	}
	if err := storeAccount(ctx, sourceAcct, source); err != nil {
		return err
	}
	return storeAccount(ctx, destAcct, dest)
}

func (p Program) transferChecked(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, amount uint64, decimals uint8) error {
	if err := requireAccounts(accounts, 4); err != nil {
		return err
	}
	sourceAcct, mintAcct, destAcct, authority := accounts[0], accounts[1], accounts[2], accounts[3]
	m, err := loadInitializedMint(mintAcct)
	if err != nil {
		return err
	}
	if m.Decimals != decimals {
		return ErrMintDecimalsMismatch
	}

	mintKey := mintAcct.Key
	source, dest, err := move(ctx, sourceAcct, destAcct, authority, amount, &mintKey)
	if err != nil {
		return err
	}

	hookProgram, hooked := m.HookProgram()
	if hooked {
		setTransferring(source, true)
		setTransferring(dest, true)
	}
	if err := storeAccount(ctx, sourceAcct, source); err != nil {
		return err
	}
	if err := storeAccount(ctx, destAcct, dest); err != nil {
		return err
	}
	if !hooked {
		return nil
	}

	if err := p.invokeHook(ctx, hookProgram, accounts[:4], amount); err != nil {
		return err
	}
	return p.clearTransferring(ctx, sourceAcct, destAcct)
}

func setTransferring(a *Account, on bool) {
	if a.TransferHookAccount != nil {
		a.TransferHookAccount.Transferring = on
	}
}

// clearTransferring reloads both accounts since the hook may have moved
// funds out of them.
func (Program) clearTransferring(ctx *ledger.InvokeContext, accts ...*ledger.AccountInfo) error {
	for _, acct := range accts {
		a, err := loadAccount(acct)
		if err != nil {
			return err
		}
		setTransferring(a, false)
		if err := storeAccount(ctx, acct, a); err != nil {
			return err
		}
	}
	return nil
}

// invokeHook resolves the extra accounts listed in the hook's validation
// account, checks that the caller supplied each of them and invokes execute.
func (Program) invokeHook(ctx *ledger.InvokeContext, hookProgram solana.PublicKey, base []*ledger.AccountInfo, amount uint64) error {
	mint := base[1].Key
	validation, _, err := FindValidationAddress(mint, hookProgram)
	if err != nil {
		return err
	}
	validationAcct, ok := ctx.Lookup(validation)
	if !ok {
		ctx.Logf("Error: transfer hook validation account %s not provided", validation)
		return fmt.Errorf("%w: validation account %s", ErrIncorrectAccount, validation)
	}

	executeMetas := make([]*solana.AccountMeta, 0, 8)
	for _, a := range base {
		executeMetas = append(executeMetas, a.Meta())
	}
	executeMetas = append(executeMetas, solana.Meta(validation))

	data := ExecuteData(amount)
	if validationAcct.Exists() {
		rules, err := extrameta.Decode(validationAcct.Data())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIncorrectAccount, err)
		}
		resolver := &extrameta.Resolver{
			HookProgramID:            hookProgram,
			TokenProgramID:           programID,
			AssociatedTokenProgramID: solana.SPLAssociatedTokenAccountProgramID,
			AccountData:              ctx.AccountData,
		}
		extras, err := resolver.Resolve(data, executeMetas, rules)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIncorrectAccount, err)
		}
		for _, extra := range extras {
			if _, ok := ctx.Lookup(extra.PublicKey); !ok {
				ctx.Logf("Error: extra account %s not provided", extra.PublicKey)
				return fmt.Errorf("%w: %s", ErrIncorrectAccount, extra.PublicKey)
			}
		}
		executeMetas = append(executeMetas, extras...)
	}

	return ctx.Invoke(solana.NewInstruction(hookProgram, executeMetas, data))
}

// ExecuteData encodes the transfer hook execute instruction.
func ExecuteData(amount uint64) []byte {
	data := make([]byte, 16)
	copy(data, extrameta.ExecuteDiscriminator)
	binary.LittleEndian.PutUint64(data[8:], amount)
	return data
}

func (Program) burn(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, amount uint64) error {
	if err := requireAccounts(accounts, 3); err != nil {
		return err
	}
	sourceAcct, mintAcct, authority := accounts[0], accounts[1], accounts[2]
	m, err := loadInitializedMint(mintAcct)
	if err != nil {
		return err
	}
	source, err := loadAccount(sourceAcct)
	if err != nil {
		return err
	}
	if !source.Mint.Equals(mintAcct.Key) {
		return ErrMintMismatch
	}
	if source.IsFrozen() {
		return ErrAccountFrozen
	}
	if err := checkAuthority(authority, source.Owner); err != nil {
		return err
	}
	if source.Amount < amount {
		ctx.Logf("Error: insufficient funds")
		return ErrInsufficientFunds
	}

	source.Amount -= amount
	m.Supply -= amount
	if err := storeAccount(ctx, sourceAcct, source); err != nil {
		return err
	}
	return storeMint(ctx, mintAcct, m)
}

func (Program) setFrozen(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, frozen bool) error {
	if err := requireAccounts(accounts, 3); err != nil {
		return err
	}
	acct, mintAcct, authority := accounts[0], accounts[1], accounts[2]
	m, err := loadInitializedMint(mintAcct)
	if err != nil {
		return err
	}
	a, err := loadAccount(acct)
	if err != nil {
		return err
	}
	if !a.Mint.Equals(mintAcct.Key) {
		return ErrMintMismatch
	}
	if m.FreezeAuthority == nil {
		return ErrMintCannotFreeze
	}
	if err := checkAuthority(authority, *m.FreezeAuthority); err != nil {
		return err
	}
	if a.IsFrozen() == frozen {
		return ErrInvalidState
	}

	a.State = token.Initialized
	if frozen {
		a.State = token.Frozen
	}
	return storeAccount(ctx, acct, a)
}

func (Program) initializeTokenMetadata(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, data []byte) error {
	if err := requireAccounts(accounts, 4); err != nil {
		return err
	}
	metadataAcct, updateAuthority, mintAcct, mintAuthority := accounts[0], accounts[1], accounts[2], accounts[3]
	if !metadataAcct.Key.Equals(mintAcct.Key) {
		return fmt.Errorf("%w: metadata must live in the mint", ErrInvalidAccountData)
	}
	m, err := loadInitializedMint(mintAcct)
	if err != nil {
		return err
	}
	if m.MetadataPointer == nil || !m.MetadataPointer.MetadataAddress.Equals(mintAcct.Key) {
		return ErrExtensionNotFound
	}
	if m.MintAuthority == nil || !m.MintAuthority.Equals(mintAuthority.Key) || !mintAuthority.IsSigner {
		return ErrIncorrectMintAuthority
	}
	if m.TokenMetadata != nil {
		return ErrAlreadyInUse
	}

	fields, err := decodeMetadataFields(data)
	if err != nil {
		return err
	}
	m.TokenMetadata = &TokenMetadata{
		UpdateAuthority: updateAuthority.Key,
		Mint:            mintAcct.Key,
		Name:            fields[0],
		Symbol:          fields[1],
		URI:             fields[2],
	}
	return storeMint(ctx, metadataAcct, m)
}

func decodeMetadataFields(data []byte) ([3]string, error) {
	var out [3]string
	pos := 0
	for i := range out {
		if pos+4 > len(data) {
			return out, ledger.ErrInvalidInstruction
		}
		n := int(binary.LittleEndian.Uint32(data[pos:]))
		pos += 4
		if pos+n > len(data) {
			return out, ledger.ErrInvalidInstruction
		}
		out[i] = string(data[pos : pos+n])
		pos += n
	}
	return out, nil
}

// FindValidationAddress derives the account holding the extra account metas
// of mint for hookProgram.
func FindValidationAddress(mint, hookProgram solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte("extra-account-metas"), mint.Bytes()}, hookProgram)
}
