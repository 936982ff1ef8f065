package feehook

import (
	"divisionone/internal/ledger"
	"divisionone/pkg/solana/divisionone"

	"github.com/gagliardetto/solana-go"
)

// loadOwnedConfig checks that config is owner's institution config and
// returns the stored record, or nil when it does not exist yet.
func loadOwnedConfig(owner, config *ledger.AccountInfo) (*UserInstitutionConfig, divisionone.PDAResult, error) {
	if !owner.IsSigner {
		return nil, divisionone.PDAResult{}, ErrUnauthorizedAccess
	}
	pda, err := divisionone.GetUserInstitutionConfigPDA(owner.Key)
	if err != nil {
		return nil, pda, err
	}
	if !pda.Address.Equals(config.Key) {
		return nil, pda, ErrUnauthorizedAccess
	}
	if !config.Exists() {
		return nil, pda, nil
	}
	if !config.IsOwnedBy(divisionone.FEE_HOOK_PROGRAM_ID) {
		return nil, pda, ErrUnauthorizedAccess
	}
	stored, err := DecodeUserInstitutionConfig(config.Data())
	if err != nil {
		return nil, pda, err
	}
	if !stored.Owner.Equals(owner.Key) {
		return nil, pda, ErrUnauthorizedAccess
	}
	return stored, pda, nil
}

func (Program) setInstitutionWallet(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, institution solana.PublicKey) error {
	if err := requireAccounts(accounts, 2); err != nil {
		return err
	}
	owner, config := accounts[0], accounts[1]
	if institution.IsZero() {
		ctx.Logf("Error: institution wallet must not be the zero address")
		return ErrInvalidInstruction
	}

	stored, pda, err := loadOwnedConfig(owner, config)
	if err != nil {
		return err
	}

	event := InstitutionWalletSet{Owner: owner.Key.String(), InstitutionWallet: institution.String()}
	if stored == nil {
		if err := createPDA(ctx, owner, config, UserInstitutionConfigSize, divisionone.SEED_INSTITUTION_CONFIG, owner.Key.Bytes(), []byte{pda.Bump}); err != nil {
			return err
		}
		stored = &UserInstitutionConfig{Owner: owner.Key, Bump: pda.Bump}
	} else if previous, ok := stored.Institution(); ok {
		event.Previous = previous.String()
	}

	stored.InstitutionWallet = institution
	stored.Status = InstitutionSet
	data, err := encode(stored)
	if err != nil {
		return err
	}
	if err := ctx.SetData(config, data); err != nil {
		return err
	}

	ctx.Emit(EventInstitutionWalletSet, event)
	return nil
}

func (Program) clearInstitutionWallet(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo) error {
	if err := requireAccounts(accounts, 2); err != nil {
		return err
	}
	owner, config := accounts[0], accounts[1]

	stored, _, err := loadOwnedConfig(owner, config)
	if err != nil {
		return err
	}
	if stored == nil {
		return ErrMissingConfig
	}

	previous, _ := stored.Institution()
	stored.InstitutionWallet = solana.PublicKey{}
	stored.Status = InstitutionUnset
	data, err := encode(stored)
	if err != nil {
		return err
	}
	if err := ctx.SetData(config, data); err != nil {
		return err
	}

	ctx.Emit(EventInstitutionWalletCleared, InstitutionWalletCleared{
		Owner:             owner.Key.String(),
		InstitutionWallet: previous.String(),
	})
	return nil
}
