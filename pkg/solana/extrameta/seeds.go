package extrameta

import (
	"errors"
	"fmt"
)

// SeedKind identifies how one seed of a derived extra account is produced.
type SeedKind uint8

const (
	SeedUninitialized   SeedKind = 0
	SeedLiteral         SeedKind = 1
	SeedInstructionData SeedKind = 2
	SeedAccountKey      SeedKind = 3
	SeedAccountData     SeedKind = 4
)

// AddressConfigSize is the fixed width of a packed seed configuration.
const AddressConfigSize = 32

var (
	ErrSeedConfigTooLarge = errors.New("seed configuration exceeds 32 bytes")
	ErrInvalidSeedConfig  = errors.New("invalid seed configuration")
)

// Seed is one element of a derivation rule.
type Seed struct {
	Kind SeedKind

	// Literal bytes for SeedLiteral.
	Bytes []byte

	// Account index for SeedAccountKey and SeedAccountData, byte offset into
	// instruction data for SeedInstructionData.
	Index uint8

	// Offset into the referenced account data for SeedAccountData.
	DataIndex uint8

	// Width of the slice for SeedInstructionData and SeedAccountData.
	Length uint8
}

func Literal(b []byte) Seed {
	return Seed{Kind: SeedLiteral, Bytes: append([]byte(nil), b...)}
}

func InstructionData(index, length uint8) Seed {
	return Seed{Kind: SeedInstructionData, Index: index, Length: length}
}

func AccountKey(index uint8) Seed {
	return Seed{Kind: SeedAccountKey, Index: index}
}

func AccountData(accountIndex, dataIndex, length uint8) Seed {
	return Seed{Kind: SeedAccountData, Index: accountIndex, DataIndex: dataIndex, Length: length}
}

// ReadsAccountData reports whether the seed needs the contents of an account,
// not just its address.
func (s Seed) ReadsAccountData() bool {
	return s.Kind == SeedAccountData
}

// AccountIndex returns the account position this seed depends on, if any.
func (s Seed) AccountIndex() (uint8, bool) {
	switch s.Kind {
	case SeedAccountKey, SeedAccountData:
		return s.Index, true
	}
	return 0, false
}

func (s Seed) packedSize() int {
	switch s.Kind {
	case SeedLiteral:
		return 2 + len(s.Bytes)
	case SeedInstructionData:
		return 3
	case SeedAccountKey:
		return 2
	case SeedAccountData:
		return 4
	}
	return 0
}

// PackSeeds writes seeds into the 32-byte address config slot. Unused trailing
// bytes stay zero, which terminates unpacking.
func PackSeeds(seeds []Seed) ([AddressConfigSize]byte, error) {
	var out [AddressConfigSize]byte
	pos := 0
	for _, s := range seeds {
		size := s.packedSize()
		if size == 0 {
			return out, fmt.Errorf("%w: seed kind %d", ErrInvalidSeedConfig, s.Kind)
		}
		if s.Kind == SeedLiteral && len(s.Bytes) > 255 {
			return out, ErrSeedConfigTooLarge
		}
		if pos+size > AddressConfigSize {
			return out, ErrSeedConfigTooLarge
		}

		out[pos] = byte(s.Kind)
		switch s.Kind {
		case SeedLiteral:
			out[pos+1] = byte(len(s.Bytes))
			copy(out[pos+2:], s.Bytes)
		case SeedInstructionData:
			out[pos+1] = s.Index
			out[pos+2] = s.Length
		case SeedAccountKey:
			out[pos+1] = s.Index
		case SeedAccountData:
			out[pos+1] = s.Index
			out[pos+2] = s.DataIndex
			out[pos+3] = s.Length
		}
		pos += size
	}
	return out, nil
}

// UnpackSeeds is the inverse of PackSeeds.
func UnpackSeeds(config [AddressConfigSize]byte) ([]Seed, error) {
	var seeds []Seed
	pos := 0
	for pos < AddressConfigSize {
		kind := SeedKind(config[pos])
		if kind == SeedUninitialized {
			break
		}

		var s Seed
		switch kind {
		case SeedLiteral:
			if pos+2 > AddressConfigSize {
				return nil, ErrInvalidSeedConfig
			}
			n := int(config[pos+1])
			if pos+2+n > AddressConfigSize {
				return nil, ErrInvalidSeedConfig
			}
			s = Literal(config[pos+2 : pos+2+n])
		case SeedInstructionData:
			if pos+3 > AddressConfigSize {
				return nil, ErrInvalidSeedConfig
			}
			s = InstructionData(config[pos+1], config[pos+2])
		case SeedAccountKey:
			if pos+2 > AddressConfigSize {
				return nil, ErrInvalidSeedConfig
			}
			s = AccountKey(config[pos+1])
		case SeedAccountData:
			if pos+4 > AddressConfigSize {
				return nil, ErrInvalidSeedConfig
			}
			s = AccountData(config[pos+1], config[pos+2], config[pos+3])
		default:
			return nil, fmt.Errorf("%w: seed kind %d at offset %d", ErrInvalidSeedConfig, kind, pos)
		}
		seeds = append(seeds, s)
		pos += s.packedSize()
	}
	return seeds, nil
}
