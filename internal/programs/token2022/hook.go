package token2022

import (
	"fmt"

	"divisionone/pkg/solana/extrameta"

	"github.com/gagliardetto/solana-go"
)

// AddTransferHookAccounts completes a TransferChecked instruction for a mint
// whose hook is hookProgram. It appends the validation account, the extra
// accounts resolved from it and the hook program.
//
// The mint is passed writable so the hook can burn from the source.
func AddTransferHookAccounts(inst solana.Instruction, hookProgram solana.PublicKey, fetch extrameta.AccountDataFunc) (solana.Instruction, error) {
	data, err := inst.Data()
	if err != nil {
		return nil, err
	}
	base := inst.Accounts()
	if len(base) < 4 || len(data) < 9 {
		return nil, fmt.Errorf("%w: not a transfer checked instruction", ErrUnsupportedInstruction)
	}

	metas := make([]*solana.AccountMeta, 0, len(base)+8)
	for _, m := range base {
		cp := *m
		metas = append(metas, &cp)
	}
	metas[1].IsWritable = true
	mint := metas[1].PublicKey

	validation, _, err := FindValidationAddress(mint, hookProgram)
	if err != nil {
		return nil, err
	}
	executeBase := append(append([]*solana.AccountMeta{}, metas[:4]...), solana.Meta(validation))

	var extras []*solana.AccountMeta
	if raw, ok := fetch(validation); ok {
		rules, err := extrameta.Decode(raw)
		if err != nil {
			return nil, err
		}
		amount := data[1:9]
		resolver := &extrameta.Resolver{
			HookProgramID:            hookProgram,
			TokenProgramID:           programID,
			AssociatedTokenProgramID: solana.SPLAssociatedTokenAccountProgramID,
			AccountData:              fetch,
		}
		executeData := append(append([]byte{}, extrameta.ExecuteDiscriminator...), amount...)
		if extras, err = resolver.Resolve(executeData, executeBase, rules); err != nil {
			return nil, fmt.Errorf("failed to resolve transfer hook accounts: %w", err)
		}
	}

	metas = append(metas, solana.Meta(validation))
	metas = append(metas, extras...)
	metas = append(metas, solana.Meta(hookProgram))
	return solana.NewInstruction(inst.ProgramID(), metas, data), nil
}
