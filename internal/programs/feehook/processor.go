// Package feehook is the transfer hook program that splits every transfer of
// its mint into operations, burn and institution fees.
package feehook

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"divisionone/internal/ledger"
	"divisionone/internal/programs/token2022"
	"divisionone/pkg/solana/divisionone"
	"divisionone/pkg/solana/extrameta"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// Program is the fee hook program.
type Program struct{}

func (Program) ID() solana.PublicKey {
	return divisionone.FEE_HOOK_PROGRAM_ID
}

func (p Program) Process(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, data []byte) error {
	if len(data) < 8 {
		return ErrInvalidInstruction
	}
	discriminator, args := data[:8], data[8:]

	switch {
	case bytes.Equal(discriminator, extrameta.ExecuteDiscriminator):
		if len(args) != 8 {
			return ErrInvalidInstruction
		}
		ctx.Logf("Instruction: Execute")
		return p.execute(ctx, accounts, binary.LittleEndian.Uint64(args))

	case bytes.Equal(discriminator, SetInstitutionWalletDiscriminator):
		if len(args) != solana.PublicKeyLength {
			return ErrInvalidInstruction
		}
		ctx.Logf("Instruction: SetInstitutionWallet")
		return p.setInstitutionWallet(ctx, accounts, solana.PublicKeyFromBytes(args))

	case bytes.Equal(discriminator, ClearInstitutionWalletDiscriminator):
		ctx.Logf("Instruction: ClearInstitutionWallet")
		return p.clearInstitutionWallet(ctx, accounts)

	case bytes.Equal(discriminator, InitializeTokenDiscriminator):
		var in InitializeTokenArgs
		if err := in.UnmarshalWithDecoder(bin.NewBorshDecoder(args)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInstruction, err)
		}
		ctx.Logf("Instruction: InitializeToken")
		return p.initializeToken(ctx, accounts, in)

	case bytes.Equal(discriminator, InitializeExtraAccountMetaListDiscriminator):
		ctx.Logf("Instruction: InitializeExtraAccountMetaList")
		return p.initializeExtraAccountMetaList(ctx, accounts)
	}
	return ErrInvalidInstruction
}

func requireAccounts(accounts []*ledger.AccountInfo, n int) error {
	if len(accounts) < n {
		return fmt.Errorf("%w: expected %d accounts, got %d", ledger.ErrMissingAccount, n, len(accounts))
	}
	return nil
}

// createPDA allocates a program owned account at a derived address, paid for
// by payer.
func createPDA(ctx *ledger.InvokeContext, payer, target *ledger.AccountInfo, space uint64, seeds ...[]byte) error {
	create := system.NewCreateAccountInstruction(
		ledger.MinimumBalance(space),
		space,
		divisionone.FEE_HOOK_PROGRAM_ID,
		payer.Key,
		target.Key,
	).Build()
	return ctx.Invoke(create, seeds)
}

func (Program) initializeToken(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, args InitializeTokenArgs) error {
	if err := requireAccounts(accounts, 5); err != nil {
		return err
	}
	payer, mint, tokenConfig, tokenProgram := accounts[0], accounts[1], accounts[2], accounts[3]

	if !tokenProgram.Key.Equals(divisionone.TOKEN_2022_PROGRAM_ID) {
		return fmt.Errorf("%w: token program %s", ErrInvalidExtraAccount, tokenProgram.Key)
	}
	configPDA, err := divisionone.GetTokenConfigPDA(mint.Key)
	if err != nil {
		return err
	}
	if !configPDA.Address.Equals(tokenConfig.Key) {
		return fmt.Errorf("%w: token config %s", ErrInvalidExtraAccount, tokenConfig.Key)
	}

	hookProgram := divisionone.FEE_HOOK_PROGRAM_ID
	space := uint64(token2022.MintSize(token2022.ExtensionTransferHook, token2022.ExtensionMetadataPointer))
	metadataSize, err := token2022.MetadataSize(&token2022.TokenMetadata{
		UpdateAuthority: payer.Key,
		Mint:            mint.Key,
		Name:            args.Name,
		Symbol:          args.Symbol,
		URI:             args.URI,
	})
	if err != nil {
		return err
	}

	// rent covers the metadata the mint grows into
	createMint := system.NewCreateAccountInstruction(
		ledger.MinimumBalance(space+uint64(metadataSize)),
		space,
		divisionone.TOKEN_2022_PROGRAM_ID,
		payer.Key,
		mint.Key,
	).Build()

	steps := []solana.Instruction{
		createMint,
		token2022.NewInitializeTransferHookInstruction(mint.Key, hookProgram, hookProgram),
		token2022.NewInitializeMetadataPointerInstruction(mint.Key, payer.Key, mint.Key),
		token2022.NewInitializeMint2Instruction(args.Decimals, payer.Key, mint.Key),
		token2022.NewInitializeTokenMetadataInstruction(mint.Key, payer.Key, mint.Key, payer.Key, args.Name, args.Symbol, args.URI),
	}
	for _, inst := range steps {
		if err := ctx.Invoke(inst); err != nil {
			return err
		}
	}

	if err := createPDA(ctx, payer, tokenConfig, TokenConfigSize, divisionone.SEED_TOKEN_CONFIG, mint.Key.Bytes(), []byte{configPDA.Bump}); err != nil {
		return err
	}
	data, err := encode(TokenConfig{
		Mint:      mint.Key,
		OpsWallet: args.InstitutionOpsWallet,
		Authority: payer.Key,
		Bump:      configPDA.Bump,
	})
	if err != nil {
		return err
	}
	if err := ctx.SetData(tokenConfig, data); err != nil {
		return err
	}

	ctx.Emit(EventTokenInitialized, TokenInitialized{
		Mint:      mint.Key.String(),
		Authority: payer.Key.String(),
		OpsWallet: args.InstitutionOpsWallet.String(),
		Name:      args.Name,
		Symbol:    args.Symbol,
		Decimals:  args.Decimals,
	})
	return nil
}

func (Program) initializeExtraAccountMetaList(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo) error {
	if err := requireAccounts(accounts, 5); err != nil {
		return err
	}
	payer, extraMetas, mint, tokenConfig := accounts[0], accounts[1], accounts[2], accounts[3]

	listPDA, err := divisionone.GetExtraAccountMetaListPDA(mint.Key)
	if err != nil {
		return err
	}
	if !listPDA.Address.Equals(extraMetas.Key) {
		return fmt.Errorf("%w: extra account meta list %s", ErrInvalidExtraAccount, extraMetas.Key)
	}
	configPDA, err := divisionone.GetTokenConfigPDA(mint.Key)
	if err != nil {
		return err
	}
	if !configPDA.Address.Equals(tokenConfig.Key) {
		return fmt.Errorf("%w: token config %s", ErrInvalidExtraAccount, tokenConfig.Key)
	}
	if !tokenConfig.Exists() || !tokenConfig.IsOwnedBy(divisionone.FEE_HOOK_PROGRAM_ID) {
		return ErrMissingConfig
	}
	cfg, err := DecodeTokenConfig(tokenConfig.Data())
	if err != nil {
		return err
	}

	rules, err := BuildExtraAccountMetas(mint.Key, cfg.OpsWallet)
	if err != nil {
		return err
	}
	table, err := extrameta.Encode(rules)
	if err != nil {
		return err
	}

	if err := createPDA(ctx, payer, extraMetas, uint64(len(table)), divisionone.SEED_EXTRA_ACCOUNT_METAS, mint.Key.Bytes(), []byte{listPDA.Bump}); err != nil {
		return err
	}
	if err := ctx.SetData(extraMetas, table); err != nil {
		return err
	}

	ctx.Emit(EventExtraAccountMetaListInitialized, ExtraAccountMetaListInitialized{
		Mint:       mint.Key.String(),
		ExtraMetas: extraMetas.Key.String(),
		Rules:      len(rules),
	})
	return nil
}
