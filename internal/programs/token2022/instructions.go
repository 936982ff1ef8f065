package token2022

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// Extension instruction tags.
const (
	InstructionTransferHookExtension    uint8 = 36
	InstructionMetadataPointerExtension uint8 = 39

	extensionInitialize uint8 = 0
)

// Associated token account instruction tags.
const (
	ATAInstructionCreate           uint8 = 0
	ATAInstructionCreateIdempotent uint8 = 1
)

// TokenMetadataInitializeDiscriminator prefixes the token metadata interface
// initialize instruction.
var TokenMetadataInitializeDiscriminator = bin.Sighash("spl_token_metadata_interface", "initialize_account")

// retarget encodes a legacy token instruction and addresses it to Token-2022,
// which shares the base instruction layout.
func retarget(inst *token.Instruction) solana.Instruction {
	data, err := inst.Data()
	if err != nil {
		// all parameters are set by the builders below
		panic(err)
	}
	return solana.NewInstruction(programID, inst.Accounts(), data)
}

func NewInitializeMint2Instruction(decimals uint8, mintAuthority, mint solana.PublicKey) solana.Instruction {
	return retarget(token.NewInitializeMint2InstructionBuilder().
		SetDecimals(decimals).
		SetMintAuthority(mintAuthority).
		SetMintAccount(mint).
		Build())
}

// NewInitializeMint2WithFreezeInstruction also sets a freeze authority.
func NewInitializeMint2WithFreezeInstruction(decimals uint8, mintAuthority, freezeAuthority, mint solana.PublicKey) solana.Instruction {
	return retarget(token.NewInitializeMint2Instruction(decimals, mintAuthority, freezeAuthority, mint).Build())
}

func NewInitializeAccount3Instruction(owner, account, mint solana.PublicKey) solana.Instruction {
	return retarget(token.NewInitializeAccount3Instruction(owner, account, mint).Build())
}

func NewMintToInstruction(amount uint64, mint, destination, authority solana.PublicKey) solana.Instruction {
	return retarget(token.NewMintToInstruction(amount, mint, destination, authority, nil).Build())
}

// NewTransferInstruction builds the unchecked transfer. It never runs the
// transfer hook, so accounts of a hooked mint reject it outside of one.
func NewTransferInstruction(amount uint64, source, destination, owner solana.PublicKey) solana.Instruction {
	return retarget(token.NewTransferInstruction(amount, source, destination, owner, nil).Build())
}

// NewTransferCheckedInstruction builds a checked transfer without hook
// accounts. Use AddTransferHookAccounts for mints with a transfer hook.
func NewTransferCheckedInstruction(amount uint64, decimals uint8, source, mint, destination, owner solana.PublicKey) solana.Instruction {
	return retarget(token.NewTransferCheckedInstruction(amount, decimals, source, mint, destination, owner, nil).Build())
}

func NewBurnInstruction(amount uint64, source, mint, owner solana.PublicKey) solana.Instruction {
	return retarget(token.NewBurnInstruction(amount, source, mint, owner, nil).Build())
}

func NewFreezeAccountInstruction(account, mint, authority solana.PublicKey) solana.Instruction {
	return retarget(token.NewFreezeAccountInstruction(account, mint, authority, nil).Build())
}

func NewThawAccountInstruction(account, mint, authority solana.PublicKey) solana.Instruction {
	return retarget(token.NewThawAccountInstruction(account, mint, authority, nil).Build())
}

// NewInitializeTransferHookInstruction must run before InitializeMint2.
//
// Accounts:
// [0] = [WRITE] mint
func NewInitializeTransferHookInstruction(mint, authority, hookProgramID solana.PublicKey) solana.Instruction {
	data := make([]byte, 0, 66)
	data = append(data, InstructionTransferHookExtension, extensionInitialize)
	data = append(data, authority.Bytes()...)
	data = append(data, hookProgramID.Bytes()...)
	return solana.NewInstruction(programID, solana.AccountMetaSlice{solana.Meta(mint).WRITE()}, data)
}

// NewInitializeMetadataPointerInstruction must run before InitializeMint2.
//
// Accounts:
// [0] = [WRITE] mint
func NewInitializeMetadataPointerInstruction(mint, authority, metadataAddress solana.PublicKey) solana.Instruction {
	data := make([]byte, 0, 66)
	data = append(data, InstructionMetadataPointerExtension, extensionInitialize)
	data = append(data, authority.Bytes()...)
	data = append(data, metadataAddress.Bytes()...)
	return solana.NewInstruction(programID, solana.AccountMetaSlice{solana.Meta(mint).WRITE()}, data)
}

// NewInitializeTokenMetadataInstruction writes metadata into the mint itself.
//
// Accounts:
// [0] = [WRITE] metadata
// [1] = [] update authority
// [2] = [] mint
// [3] = [SIGNER] mint authority
func NewInitializeTokenMetadataInstruction(metadata, updateAuthority, mint, mintAuthority solana.PublicKey, name, symbol, uri string) solana.Instruction {
	buf := new(bytes.Buffer)
	buf.Write(TokenMetadataInitializeDiscriminator)
	enc := bin.NewBorshEncoder(buf)
	for _, s := range []string{name, symbol, uri} {
		// writes to a bytes.Buffer do not fail
		_ = enc.WriteString(s)
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.Meta(metadata).WRITE(),
		solana.Meta(updateAuthority),
		solana.Meta(mint),
		solana.Meta(mintAuthority).SIGNER(),
	}, buf.Bytes())
}

// NewCreateAssociatedTokenAccountInstruction creates the Token-2022
// associated token account of wallet for mint.
//
// Accounts:
// [0] = [WRITE, SIGNER] payer
// [1] = [WRITE] associated token account
// [2] = [] wallet
// [3] = [] mint
// [4] = [] system program
// [5] = [] token program
func NewCreateAssociatedTokenAccountInstruction(payer, wallet, mint solana.PublicKey, idempotent bool) (solana.Instruction, error) {
	ata, _, err := FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return nil, err
	}
	tag := ATAInstructionCreate
	if idempotent {
		tag = ATAInstructionCreateIdempotent
	}
	return solana.NewInstruction(solana.SPLAssociatedTokenAccountProgramID, solana.AccountMetaSlice{
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(ata).WRITE(),
		solana.Meta(wallet),
		solana.Meta(mint),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(programID),
	}, []byte{tag}), nil
}

// FindAssociatedTokenAddress derives the Token-2022 associated token account.
func FindAssociatedTokenAddress(wallet, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		wallet.Bytes(),
		programID.Bytes(),
		mint.Bytes(),
	}, solana.SPLAssociatedTokenAccountProgramID)
}
