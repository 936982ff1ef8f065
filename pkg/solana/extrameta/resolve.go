package extrameta

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrUnresolvable        = errors.New("extra account dependency cannot be resolved")
	ErrAccountDataTooSmall = errors.New("account data too small for seed")
	ErrInstructionTooSmall = errors.New("instruction data too small for seed")
)

// AccountDataFunc returns the data of address. ok is false when the account
// does not exist.
type AccountDataFunc func(address solana.PublicKey) (data []byte, ok bool)

// Resolver turns a resolution table into concrete account metas.
//
// Resolution runs in two stages. The first stage derives every rule whose
// seeds only reference the base execute accounts and the instruction data.
// The second stage derives the remaining rules, which read account data or
// depend on other extra accounts, repeating until no rule makes progress.
// Absent accounts read as zero-filled data.
type Resolver struct {
	HookProgramID            solana.PublicKey
	TokenProgramID           solana.PublicKey
	AssociatedTokenProgramID solana.PublicKey
	AccountData              AccountDataFunc
}

// Stages splits rule indexes into the two resolution stages for a base list
// of baseCount accounts.
func Stages(metas []ExtraAccountMeta, baseCount int) (first, second []int, err error) {
	for i, m := range metas {
		direct, err := isDirect(m, baseCount)
		if err != nil {
			return nil, nil, fmt.Errorf("rule %d: %w", i, err)
		}
		if direct {
			first = append(first, i)
		} else {
			second = append(second, i)
		}
	}
	return first, second, nil
}

func isDirect(m ExtraAccountMeta, baseCount int) (bool, error) {
	seeds, err := m.Seeds()
	if err != nil {
		return false, err
	}
	if m.Discriminator >= ExternalPDABase && int(m.Discriminator-ExternalPDABase) >= baseCount {
		return false, nil
	}
	for _, s := range seeds {
		if s.ReadsAccountData() {
			return false, nil
		}
		if idx, ok := s.AccountIndex(); ok && int(idx) >= baseCount {
			return false, nil
		}
	}
	return true, nil
}

// Resolve returns one account meta per rule, in rule order.
func (r *Resolver) Resolve(instructionData []byte, base []*solana.AccountMeta, metas []ExtraAccountMeta) ([]*solana.AccountMeta, error) {
	first, second, err := Stages(metas, len(base))
	if err != nil {
		return nil, err
	}

	resolved := make([]*solana.AccountMeta, len(metas))
	lookup := func(idx uint8) *solana.AccountMeta {
		if int(idx) < len(base) {
			return base[idx]
		}
		extra := int(idx) - len(base)
		if extra < len(resolved) {
			return resolved[extra]
		}
		return nil
	}

	for _, i := range first {
		meta, err := r.resolveOne(metas[i], instructionData, base, lookup)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		resolved[i] = meta
	}

	pending := second
	for len(pending) > 0 {
		var next []int
		for _, i := range pending {
			if !r.ready(metas[i], lookup) {
				next = append(next, i)
				continue
			}
			meta, err := r.resolveOne(metas[i], instructionData, base, lookup)
			if err != nil {
				return nil, fmt.Errorf("rule %d: %w", i, err)
			}
			resolved[i] = meta
		}
		if len(next) == len(pending) {
			return nil, fmt.Errorf("%w: rules %v", ErrUnresolvable, next)
		}
		pending = next
	}

	return resolved, nil
}

func (r *Resolver) ready(m ExtraAccountMeta, lookup func(uint8) *solana.AccountMeta) bool {
	if m.Discriminator >= ExternalPDABase && lookup(m.Discriminator-ExternalPDABase) == nil {
		return false
	}
	seeds, err := m.Seeds()
	if err != nil {
		return true
	}
	for _, s := range seeds {
		if idx, ok := s.AccountIndex(); ok && lookup(idx) == nil {
			return false
		}
	}
	return true
}

func (r *Resolver) resolveOne(
	m ExtraAccountMeta,
	instructionData []byte,
	base []*solana.AccountMeta,
	lookup func(uint8) *solana.AccountMeta,
) (*solana.AccountMeta, error) {
	if address, ok := m.Address(); ok {
		return solana.NewAccountMeta(address, m.IsWritable, m.IsSigner), nil
	}

	seeds, err := m.Seeds()
	if err != nil {
		return nil, err
	}
	raw, err := r.seedBytes(seeds, instructionData, lookup)
	if err != nil {
		return nil, err
	}

	var address solana.PublicKey
	switch {
	case m.Discriminator == DiscriminatorPDA:
		address, _, err = solana.FindProgramAddress(raw, r.HookProgramID)
	case m.Discriminator == DiscriminatorAssociatedToken:
		if len(raw) != 1 || len(raw[0]) != solana.PublicKeyLength {
			return nil, fmt.Errorf("%w: associated token rule needs one 32-byte wallet seed", ErrInvalidSeedConfig)
		}
		if len(base) < 2 {
			return nil, fmt.Errorf("%w: mint account missing", ErrUnresolvable)
		}
		mint := base[1].PublicKey
		address, _, err = solana.FindProgramAddress(
			[][]byte{raw[0], r.TokenProgramID.Bytes(), mint.Bytes()},
			r.AssociatedTokenProgramID,
		)
	case m.Discriminator >= ExternalPDABase:
		program := lookup(m.Discriminator - ExternalPDABase)
		if program == nil {
			return nil, ErrUnresolvable
		}
		address, _, err = solana.FindProgramAddress(raw, program.PublicKey)
	default:
		return nil, fmt.Errorf("%w: discriminator %d", ErrInvalidSeedConfig, m.Discriminator)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to derive address: %w", err)
	}

	return solana.NewAccountMeta(address, m.IsWritable, m.IsSigner), nil
}

func (r *Resolver) seedBytes(seeds []Seed, instructionData []byte, lookup func(uint8) *solana.AccountMeta) ([][]byte, error) {
	out := make([][]byte, 0, len(seeds))
	for _, s := range seeds {
		switch s.Kind {
		case SeedLiteral:
			out = append(out, s.Bytes)
		case SeedInstructionData:
			end := int(s.Index) + int(s.Length)
			if end > len(instructionData) {
				return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrInstructionTooSmall, end, len(instructionData))
			}
			out = append(out, instructionData[s.Index:end])
		case SeedAccountKey:
			acct := lookup(s.Index)
			if acct == nil {
				return nil, fmt.Errorf("%w: account %d", ErrUnresolvable, s.Index)
			}
			out = append(out, acct.PublicKey.Bytes())
		case SeedAccountData:
			acct := lookup(s.Index)
			if acct == nil {
				return nil, fmt.Errorf("%w: account %d", ErrUnresolvable, s.Index)
			}
			end := int(s.DataIndex) + int(s.Length)
			data, ok := r.fetch(acct.PublicKey)
			if !ok {
				out = append(out, make([]byte, s.Length))
				continue
			}
			if end > len(data) {
				return nil, fmt.Errorf("%w: account %s has %d bytes, need %d", ErrAccountDataTooSmall, acct.PublicKey, len(data), end)
			}
			out = append(out, data[s.DataIndex:end])
		default:
			return nil, fmt.Errorf("%w: seed kind %d", ErrInvalidSeedConfig, s.Kind)
		}
	}
	return out, nil
}

func (r *Resolver) fetch(address solana.PublicKey) ([]byte, bool) {
	if r.AccountData == nil {
		return nil, false
	}
	return r.AccountData(address)
}
