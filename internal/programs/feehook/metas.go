package feehook

import (
	"fmt"

	"divisionone/pkg/solana/divisionone"
	"divisionone/pkg/solana/extrameta"

	"github.com/gagliardetto/solana-go"
)

// Execute account positions. Changing them breaks every stored resolution
// table.
const (
	ExecuteSourceIndex = iota
	ExecuteMintIndex
	ExecuteDestinationIndex
	ExecuteAuthorityIndex
	ExecuteExtraMetasIndex
	ExecuteConfigIndex
	ExecuteOpsAccountIndex
	ExecuteInstitutionAccountIndex

	executeAccountCount
)

// BuildExtraAccountMetas returns the resolution table of mint:
//  1. the authority's institution config
//  2. the operations wallet's token account
//  3. the token account of the wallet stored in the config
func BuildExtraAccountMetas(mint, opsWallet solana.PublicKey) ([]extrameta.ExtraAccountMeta, error) {
	config, err := extrameta.NewPDA([]extrameta.Seed{
		extrameta.Literal(divisionone.SEED_INSTITUTION_CONFIG),
		extrameta.AccountKey(ExecuteAuthorityIndex),
	}, false, false)
	if err != nil {
		return nil, fmt.Errorf("failed to build config rule: %w", err)
	}

	opsAccount, err := divisionone.GetAssociatedTokenAddress(opsWallet, mint, divisionone.TOKEN_2022_PROGRAM_ID)
	if err != nil {
		return nil, err
	}

	institutionAccount, err := extrameta.NewAssociatedTokenAccount(
		extrameta.AccountData(ExecuteConfigIndex, InstitutionWalletOffset, solana.PublicKeyLength),
		true,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build institution rule: %w", err)
	}

	return []extrameta.ExtraAccountMeta{
		config,
		extrameta.NewFixed(opsAccount.Address, false, true),
		institutionAccount,
	}, nil
}
