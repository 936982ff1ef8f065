package divisionone

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Program addresses
var (
	// fee-splitting transfer hook program
	FEE_HOOK_PROGRAM_ID = solana.MustPublicKeyFromBase58("BovX5mM2vYCgwktYcddCZR3aosNoDRTYanvV6feYAzE3")

	// user -> school wallet link registry
	WALLET_LINK_PROGRAM_ID = solana.MustPublicKeyFromBase58("BAnYCRzAkVJSTNiHYZcDnRo8B1e2pSssQwAJEjdEcLbL")

	TOKEN_2022_PROGRAM_ID       = solana.Token2022ProgramID
	ASSOCIATED_TOKEN_PROGRAM_ID = solana.SPLAssociatedTokenAccountProgramID
	SYSTEM_PROGRAM_ID           = solana.SystemProgramID
)

// PDA seeds
var (
	SEED_INSTITUTION_CONFIG  = []byte("institution-config")
	SEED_TOKEN_CONFIG        = []byte("token-config")
	SEED_EXTRA_ACCOUNT_METAS = []byte("extra-account-metas")
	SEED_USER_LINK           = []byte("user_link")
)

// PDAResult is a derived program address together with its bump seed.
type PDAResult struct {
	Address solana.PublicKey
	Bump    uint8
}

// GetUserInstitutionConfigPDA derives the institution config record of owner.
func GetUserInstitutionConfigPDA(owner solana.PublicKey) (PDAResult, error) {
	seeds := [][]byte{SEED_INSTITUTION_CONFIG, owner.Bytes()}

	address, bump, err := solana.FindProgramAddress(seeds, FEE_HOOK_PROGRAM_ID)
	if err != nil {
		return PDAResult{}, fmt.Errorf("failed to find institution config PDA: %w", err)
	}

	return PDAResult{Address: address, Bump: bump}, nil
}

// GetTokenConfigPDA derives the per-mint fee configuration record.
func GetTokenConfigPDA(mint solana.PublicKey) (PDAResult, error) {
	seeds := [][]byte{SEED_TOKEN_CONFIG, mint.Bytes()}

	address, bump, err := solana.FindProgramAddress(seeds, FEE_HOOK_PROGRAM_ID)
	if err != nil {
		return PDAResult{}, fmt.Errorf("failed to find token config PDA: %w", err)
	}

	return PDAResult{Address: address, Bump: bump}, nil
}

// GetExtraAccountMetaListPDA derives the validation account the token program
// reads before invoking the hook for mint.
func GetExtraAccountMetaListPDA(mint solana.PublicKey) (PDAResult, error) {
	seeds := [][]byte{SEED_EXTRA_ACCOUNT_METAS, mint.Bytes()}

	address, bump, err := solana.FindProgramAddress(seeds, FEE_HOOK_PROGRAM_ID)
	if err != nil {
		return PDAResult{}, fmt.Errorf("failed to find extra account metas PDA: %w", err)
	}

	return PDAResult{Address: address, Bump: bump}, nil
}

// GetUserLinkPDA derives the wallet link record of user.
func GetUserLinkPDA(user solana.PublicKey) (PDAResult, error) {
	seeds := [][]byte{SEED_USER_LINK, user.Bytes()}

	address, bump, err := solana.FindProgramAddress(seeds, WALLET_LINK_PROGRAM_ID)
	if err != nil {
		return PDAResult{}, fmt.Errorf("failed to find user link PDA: %w", err)
	}

	return PDAResult{Address: address, Bump: bump}, nil
}

// GetAssociatedTokenAddress derives the associated token account of wallet for
// mint under the given token program. solana.FindAssociatedTokenAddress only
// covers the legacy token program.
func GetAssociatedTokenAddress(wallet, mint, tokenProgram solana.PublicKey) (PDAResult, error) {
	seeds := [][]byte{wallet.Bytes(), tokenProgram.Bytes(), mint.Bytes()}

	address, bump, err := solana.FindProgramAddress(seeds, ASSOCIATED_TOKEN_PROGRAM_ID)
	if err != nil {
		return PDAResult{}, fmt.Errorf("failed to find associated token address: %w", err)
	}

	return PDAResult{Address: address, Bump: bump}, nil
}

// MustAssociatedTokenAddress is GetAssociatedTokenAddress for Token-2022 accounts
// in contexts where derivation cannot fail.
func MustAssociatedTokenAddress(wallet, mint solana.PublicKey) solana.PublicKey {
	res, err := GetAssociatedTokenAddress(wallet, mint, TOKEN_2022_PROGRAM_ID)
	if err != nil {
		panic(err)
	}
	return res.Address
}
