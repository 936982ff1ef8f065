package feehook

import (
	"fmt"

	"divisionone/internal/ledger"
	"divisionone/internal/programs/token2022"
	"divisionone/pkg/solana/divisionone"

	"github.com/gagliardetto/solana-go"
)

// step is one token program call of a fee distribution.
type step struct {
	name   string
	amount uint64
	inst   solana.Instruction
}

// plan lists the fee calls for a transfer in execution order: operations,
// burn, institution. Zero fees produce no step. An empty institution means
// the owner has none configured.
type plan struct {
	fees        Fees
	institution solana.PublicKey
	steps       []step
}

type executeAccounts struct {
	source, mint, authority, extraMetas, config, opsAccount, institutionAccount *ledger.AccountInfo
}

func (Program) execute(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, amount uint64) error {
	if err := requireAccounts(accounts, executeAccountCount); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidExtraAccount, err)
	}
	ea := executeAccounts{
		source:             accounts[ExecuteSourceIndex],
		mint:               accounts[ExecuteMintIndex],
		authority:          accounts[ExecuteAuthorityIndex],
		extraMetas:         accounts[ExecuteExtraMetasIndex],
		config:             accounts[ExecuteConfigIndex],
		opsAccount:         accounts[ExecuteOpsAccountIndex],
		institutionAccount: accounts[ExecuteInstitutionAccountIndex],
	}

	if err := checkTransferring(ea.source); err != nil {
		return err
	}
	config, err := loadHookConfig(ea)
	if err != nil {
		return err
	}

	p, err := planDistribution(ea, config, amount)
	if err != nil {
		return err
	}
	if err := p.run(ctx); err != nil {
		return err
	}

	event := FeesDistributed{
		Mint:      ea.mint.Key.String(),
		Source:    ea.source.Key.String(),
		Authority: ea.authority.Key.String(),
		Amount:    amount,
		Fees:      p.fees,
	}
	if !p.institution.IsZero() {
		event.InstitutionWallet = p.institution.String()
	}
	ctx.Emit(EventFeesDistributed, event)
	return nil
}

// checkTransferring rejects calls that do not come from inside a token
// transfer of the source account.
func checkTransferring(source *ledger.AccountInfo) error {
	if !source.IsOwnedBy(divisionone.TOKEN_2022_PROGRAM_ID) {
		return ErrNotTransferring
	}
	acct, err := token2022.DecodeAccount(source.Data())
	if err != nil {
		return ErrNotTransferring
	}
	if acct.TransferHookAccount == nil || !acct.TransferHookAccount.Transferring {
		return ErrNotTransferring
	}
	return nil
}

// loadHookConfig verifies the derived accounts and returns the authority's
// institution config, or nil when the authority has never created one.
func loadHookConfig(ea executeAccounts) (*UserInstitutionConfig, error) {
	listPDA, err := divisionone.GetExtraAccountMetaListPDA(ea.mint.Key)
	if err != nil {
		return nil, err
	}
	if !listPDA.Address.Equals(ea.extraMetas.Key) {
		return nil, fmt.Errorf("%w: extra account meta list %s", ErrInvalidExtraAccount, ea.extraMetas.Key)
	}
	configPDA, err := divisionone.GetUserInstitutionConfigPDA(ea.authority.Key)
	if err != nil {
		return nil, err
	}
	if !configPDA.Address.Equals(ea.config.Key) {
		return nil, fmt.Errorf("%w: institution config %s", ErrInvalidExtraAccount, ea.config.Key)
	}

	if !ea.config.Exists() {
		return nil, nil
	}
	if !ea.config.IsOwnedBy(divisionone.FEE_HOOK_PROGRAM_ID) {
		return nil, fmt.Errorf("%w: institution config owned by %s", ErrInvalidExtraAccount, ea.config.Owner())
	}
	return DecodeUserInstitutionConfig(ea.config.Data())
}

func planDistribution(ea executeAccounts, config *UserInstitutionConfig, amount uint64) (*plan, error) {
	fees, err := ComputeFees(amount)
	if err != nil {
		return nil, err
	}
	p := &plan{fees: fees}

	p.add("ops", fees.Ops, token2022.NewTransferInstruction(fees.Ops, ea.source.Key, ea.opsAccount.Key, ea.authority.Key))
	p.add("burn", fees.Burn, token2022.NewBurnInstruction(fees.Burn, ea.source.Key, ea.mint.Key, ea.authority.Key))

	institution, ok := config.Institution()
	if !ok {
		return p, nil
	}
	expected, err := divisionone.GetAssociatedTokenAddress(institution, ea.mint.Key, divisionone.TOKEN_2022_PROGRAM_ID)
	if err != nil {
		return nil, err
	}
	if !expected.Address.Equals(ea.institutionAccount.Key) {
		return nil, fmt.Errorf("%w: institution token account %s", ErrInvalidExtraAccount, ea.institutionAccount.Key)
	}
	p.institution = institution
	p.add("institution", fees.Institution, token2022.NewTransferInstruction(fees.Institution, ea.source.Key, ea.institutionAccount.Key, ea.authority.Key))
	return p, nil
}

func (p *plan) add(name string, amount uint64, inst solana.Instruction) {
	if amount == 0 {
		return
	}
	p.steps = append(p.steps, step{name: name, amount: amount, inst: inst})
}

// run issues the steps in order. The first failure aborts the transaction,
// which discards the effects of any earlier step.
func (p *plan) run(ctx *ledger.InvokeContext) error {
	for _, s := range p.steps {
		ctx.Logf("Distributing %s fee: %d", s.name, s.amount)
		if err := ctx.Invoke(s.inst); err != nil {
			return fmt.Errorf("%w: %s fee: %w", ErrSubInvocationFailure, s.name, err)
		}
	}
	return nil
}
