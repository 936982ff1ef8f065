package walletlink

import (
	"divisionone/pkg/solana/divisionone"

	"github.com/gagliardetto/solana-go"
)

func withKey(discriminator []byte, key solana.PublicKey) []byte {
	data := make([]byte, 0, len(discriminator)+solana.PublicKeyLength)
	data = append(data, discriminator...)
	return append(data, key.Bytes()...)
}

// NewInitializeUserLinkInstruction links user to school.
//
// Accounts:
// [0] = [WRITE] user link
// [1] = [WRITE, SIGNER] user
// [2] = [] system program
func NewInitializeUserLinkInstruction(user, school solana.PublicKey) (solana.Instruction, error) {
	link, err := divisionone.GetUserLinkPDA(user)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.Meta(link.Address).WRITE(),
		solana.Meta(user).WRITE().SIGNER(),
		solana.Meta(divisionone.SYSTEM_PROGRAM_ID),
	}, withKey(InitializeUserLinkDiscriminator, school)), nil
}

// NewUpdateSchoolWalletInstruction points user's link at school.
//
// Accounts:
// [0] = [WRITE] user link
// [1] = [SIGNER] user
func NewUpdateSchoolWalletInstruction(user, school solana.PublicKey) (solana.Instruction, error) {
	link, err := divisionone.GetUserLinkPDA(user)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.Meta(link.Address).WRITE(),
		solana.Meta(user).SIGNER(),
	}, withKey(UpdateSchoolWalletDiscriminator, school)), nil
}

// NewRemoveSchoolLinkInstruction unlinks user. The record stays.
//
// Accounts:
// [0] = [WRITE] user link
// [1] = [SIGNER] user
func NewRemoveSchoolLinkInstruction(user solana.PublicKey) (solana.Instruction, error) {
	link, err := divisionone.GetUserLinkPDA(user)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(programID, solana.AccountMetaSlice{
		solana.Meta(link.Address).WRITE(),
		solana.Meta(user).SIGNER(),
	}, append([]byte{}, RemoveSchoolLinkDiscriminator...)), nil
}
