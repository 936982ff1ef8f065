package extrameta

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Rule discriminators. External PDAs use ExternalPDABase + the index of the
// account holding the deriving program.
//
// DiscriminatorAssociatedToken is local to this package. The interface
// reserves 2 for pubkey data and leaves 3 to 127 unassigned, so stock
// Token-2022 clients cannot resolve it and must use the hook's own resolver.
const (
	DiscriminatorFixed           uint8 = 0
	DiscriminatorPDA             uint8 = 1
	DiscriminatorAssociatedToken uint8 = 64
	ExternalPDABase              uint8 = 128
)

// MetaSize is the encoded width of one ExtraAccountMeta.
const MetaSize = 35

// ExtraAccountMeta is one derivation rule of the resolution table.
type ExtraAccountMeta struct {
	Discriminator uint8
	AddressConfig [AddressConfigSize]byte
	IsSigner      bool
	IsWritable    bool
}

// NewFixed describes a literal address.
func NewFixed(address solana.PublicKey, isSigner, isWritable bool) ExtraAccountMeta {
	return ExtraAccountMeta{
		Discriminator: DiscriminatorFixed,
		AddressConfig: [AddressConfigSize]byte(address),
		IsSigner:      isSigner,
		IsWritable:    isWritable,
	}
}

// NewPDA describes an address derived from seeds under the hook program.
func NewPDA(seeds []Seed, isSigner, isWritable bool) (ExtraAccountMeta, error) {
	config, err := PackSeeds(seeds)
	if err != nil {
		return ExtraAccountMeta{}, err
	}
	return ExtraAccountMeta{
		Discriminator: DiscriminatorPDA,
		AddressConfig: config,
		IsSigner:      isSigner,
		IsWritable:    isWritable,
	}, nil
}

// NewExternalPDA describes an address derived under the program found at
// programIndex in the execute account list.
func NewExternalPDA(programIndex uint8, seeds []Seed, isSigner, isWritable bool) (ExtraAccountMeta, error) {
	if programIndex >= ExternalPDABase {
		return ExtraAccountMeta{}, fmt.Errorf("program index %d out of range", programIndex)
	}
	config, err := PackSeeds(seeds)
	if err != nil {
		return ExtraAccountMeta{}, err
	}
	return ExtraAccountMeta{
		Discriminator: ExternalPDABase + programIndex,
		AddressConfig: config,
		IsSigner:      isSigner,
		IsWritable:    isWritable,
	}, nil
}

// NewAssociatedTokenAccount describes the associated token account of the
// wallet produced by walletSeed, for the mint at execute index 1 and the token
// program configured on the resolver.
func NewAssociatedTokenAccount(walletSeed Seed, isWritable bool) (ExtraAccountMeta, error) {
	config, err := PackSeeds([]Seed{walletSeed})
	if err != nil {
		return ExtraAccountMeta{}, err
	}
	return ExtraAccountMeta{
		Discriminator: DiscriminatorAssociatedToken,
		AddressConfig: config,
		IsWritable:    isWritable,
	}, nil
}

// Seeds unpacks the derivation seeds. Fixed entries have none.
func (m ExtraAccountMeta) Seeds() ([]Seed, error) {
	if m.Discriminator == DiscriminatorFixed {
		return nil, nil
	}
	return UnpackSeeds(m.AddressConfig)
}

// Address returns the literal address of a fixed entry.
func (m ExtraAccountMeta) Address() (solana.PublicKey, bool) {
	if m.Discriminator != DiscriminatorFixed {
		return solana.PublicKey{}, false
	}
	return solana.PublicKeyFromBytes(m.AddressConfig[:]), true
}

func (m ExtraAccountMeta) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint8(m.Discriminator); err != nil {
		return err
	}
	if err := encoder.WriteBytes(m.AddressConfig[:], false); err != nil {
		return err
	}
	if err := encoder.WriteBool(m.IsSigner); err != nil {
		return err
	}
	return encoder.WriteBool(m.IsWritable)
}

func (m *ExtraAccountMeta) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	disc, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	config, err := decoder.ReadNBytes(AddressConfigSize)
	if err != nil {
		return err
	}
	isSigner, err := decoder.ReadBool()
	if err != nil {
		return err
	}
	isWritable, err := decoder.ReadBool()
	if err != nil {
		return err
	}

	m.Discriminator = disc
	copy(m.AddressConfig[:], config)
	m.IsSigner = isSigner
	m.IsWritable = isWritable
	return nil
}
