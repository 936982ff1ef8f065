package feehook

import (
	"bytes"
	"fmt"

	"divisionone/pkg/solana/divisionone"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Instruction discriminators.
var (
	InitializeTokenDiscriminator                = bin.Sighash("global", "initialize_token")
	SetInstitutionWalletDiscriminator           = bin.Sighash("global", "set_institution_wallet")
	ClearInstitutionWalletDiscriminator         = bin.Sighash("global", "clear_institution_wallet")
	InitializeExtraAccountMetaListDiscriminator = bin.Sighash("global", "initialize_extra_account_meta_list")
)

// InitializeTokenArgs are the parameters of initialize_token.
type InitializeTokenArgs struct {
	Name                 string
	Symbol               string
	URI                  string
	Decimals             uint8
	InstitutionOpsWallet solana.PublicKey
}

func (a InitializeTokenArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	for _, s := range []string{a.Name, a.Symbol, a.URI} {
		if err := encoder.WriteString(s); err != nil {
			return err
		}
	}
	if err := encoder.WriteUint8(a.Decimals); err != nil {
		return err
	}
	return encoder.WriteBytes(a.InstitutionOpsWallet[:], false)
}

func (a *InitializeTokenArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if a.Name, err = decoder.ReadString(); err != nil {
		return err
	}
	if a.Symbol, err = decoder.ReadString(); err != nil {
		return err
	}
	if a.URI, err = decoder.ReadString(); err != nil {
		return err
	}
	if a.Decimals, err = decoder.ReadUint8(); err != nil {
		return err
	}
	return readKey(decoder, &a.InstitutionOpsWallet)
}

// NewInitializeTokenInstruction creates mint with the transfer hook and
// metadata extensions.
//
// Accounts:
// [0] = [WRITE, SIGNER] payer
// [1] = [WRITE, SIGNER] mint
// [2] = [WRITE] token config
// [3] = [] token program
// [4] = [] system program
func NewInitializeTokenInstruction(payer, mint solana.PublicKey, args InitializeTokenArgs) (solana.Instruction, error) {
	tokenConfig, err := divisionone.GetTokenConfigPDA(mint)
	if err != nil {
		return nil, err
	}
	buf := new(bytes.Buffer)
	buf.Write(InitializeTokenDiscriminator)
	if err := args.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("failed to encode initialize_token args: %w", err)
	}
	return solana.NewInstruction(divisionone.FEE_HOOK_PROGRAM_ID, solana.AccountMetaSlice{
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(mint).WRITE().SIGNER(),
		solana.Meta(tokenConfig.Address).WRITE(),
		solana.Meta(divisionone.TOKEN_2022_PROGRAM_ID),
		solana.Meta(divisionone.SYSTEM_PROGRAM_ID),
	}, buf.Bytes()), nil
}

// NewSetInstitutionWalletInstruction points owner's fees at institution.
//
// Accounts:
// [0] = [WRITE, SIGNER] owner
// [1] = [WRITE] institution config
// [2] = [] system program
func NewSetInstitutionWalletInstruction(owner, institution solana.PublicKey) (solana.Instruction, error) {
	config, err := divisionone.GetUserInstitutionConfigPDA(owner)
	if err != nil {
		return nil, err
	}
	data := append(append([]byte{}, SetInstitutionWalletDiscriminator...), institution.Bytes()...)
	return solana.NewInstruction(divisionone.FEE_HOOK_PROGRAM_ID, solana.AccountMetaSlice{
		solana.Meta(owner).WRITE().SIGNER(),
		solana.Meta(config.Address).WRITE(),
		solana.Meta(divisionone.SYSTEM_PROGRAM_ID),
	}, data), nil
}

// NewClearInstitutionWalletInstruction stops the institution fee for owner.
//
// Accounts:
// [0] = [SIGNER] owner
// [1] = [WRITE] institution config
func NewClearInstitutionWalletInstruction(owner solana.PublicKey) (solana.Instruction, error) {
	config, err := divisionone.GetUserInstitutionConfigPDA(owner)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(divisionone.FEE_HOOK_PROGRAM_ID, solana.AccountMetaSlice{
		solana.Meta(owner).SIGNER(),
		solana.Meta(config.Address).WRITE(),
	}, append([]byte{}, ClearInstitutionWalletDiscriminator...)), nil
}

// NewInitializeExtraAccountMetaListInstruction writes the resolution table of
// mint.
//
// Accounts:
// [0] = [WRITE, SIGNER] payer
// [1] = [WRITE] extra account meta list
// [2] = [] mint
// [3] = [] token config
// [4] = [] system program
func NewInitializeExtraAccountMetaListInstruction(payer, mint solana.PublicKey) (solana.Instruction, error) {
	extraMetas, err := divisionone.GetExtraAccountMetaListPDA(mint)
	if err != nil {
		return nil, err
	}
	tokenConfig, err := divisionone.GetTokenConfigPDA(mint)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(divisionone.FEE_HOOK_PROGRAM_ID, solana.AccountMetaSlice{
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(extraMetas.Address).WRITE(),
		solana.Meta(mint),
		solana.Meta(tokenConfig.Address),
		solana.Meta(divisionone.SYSTEM_PROGRAM_ID),
	}, append([]byte{}, InitializeExtraAccountMetaListDiscriminator...)), nil
}
