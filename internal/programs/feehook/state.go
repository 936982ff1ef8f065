package feehook

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	UserInstitutionConfigDiscriminator = bin.Sighash("account", "UserInstitutionConfig")
	TokenConfigDiscriminator           = bin.Sighash("account", "TokenConfig")
)

// Account sizes including the 8-byte discriminator.
const (
	UserInstitutionConfigSize = 8 + 32 + 32 + 1 + 1
	TokenConfigSize           = 8 + 32 + 32 + 32 + 1

	// InstitutionWalletOffset is where the resolution table reads the
	// institution wallet from a UserInstitutionConfig.
	InstitutionWalletOffset = 8 + 32
)

var ErrAccountDiscriminatorMismatch = errors.New("account discriminator did not match")

// InstitutionStatus tags whether a config names an institution.
type InstitutionStatus uint8

const (
	InstitutionUnset InstitutionStatus = 0
	InstitutionSet   InstitutionStatus = 1
)

func (s InstitutionStatus) String() string {
	switch s {
	case InstitutionUnset:
		return "unset"
	case InstitutionSet:
		return "set"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// UserInstitutionConfig names the institution that receives a share of every
// transfer an owner makes.
type UserInstitutionConfig struct {
	Owner             solana.PublicKey
	InstitutionWallet solana.PublicKey
	Bump              uint8
	Status            InstitutionStatus
}

// Institution returns the configured wallet. ok is false when no institution
// is set.
func (c *UserInstitutionConfig) Institution() (wallet solana.PublicKey, ok bool) {
	if c == nil || c.Status != InstitutionSet {
		return solana.PublicKey{}, false
	}
	return c.InstitutionWallet, true
}

func (c UserInstitutionConfig) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(UserInstitutionConfigDiscriminator, false); err != nil {
		return err
	}
	if err := encoder.WriteBytes(c.Owner[:], false); err != nil {
		return err
	}
	if err := encoder.WriteBytes(c.InstitutionWallet[:], false); err != nil {
		return err
	}
	if err := encoder.WriteUint8(c.Bump); err != nil {
		return err
	}
	return encoder.WriteUint8(uint8(c.Status))
}

func (c *UserInstitutionConfig) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if err := readDiscriminator(decoder, UserInstitutionConfigDiscriminator); err != nil {
		return err
	}
	if err := readKey(decoder, &c.Owner); err != nil {
		return err
	}
	if err := readKey(decoder, &c.InstitutionWallet); err != nil {
		return err
	}
	var err error
	if c.Bump, err = decoder.ReadUint8(); err != nil {
		return err
	}
	status, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	c.Status = InstitutionStatus(status)
	return nil
}

// TokenConfig records the operations wallet chosen at mint initialization.
type TokenConfig struct {
	Mint      solana.PublicKey
	OpsWallet solana.PublicKey
	Authority solana.PublicKey
	Bump      uint8
}

func (c TokenConfig) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(TokenConfigDiscriminator, false); err != nil {
		return err
	}
	for _, key := range []solana.PublicKey{c.Mint, c.OpsWallet, c.Authority} {
		if err := encoder.WriteBytes(key[:], false); err != nil {
			return err
		}
	}
	return encoder.WriteUint8(c.Bump)
}

func (c *TokenConfig) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if err := readDiscriminator(decoder, TokenConfigDiscriminator); err != nil {
		return err
	}
	for _, key := range []*solana.PublicKey{&c.Mint, &c.OpsWallet, &c.Authority} {
		if err := readKey(decoder, key); err != nil {
			return err
		}
	}
	var err error
	c.Bump, err = decoder.ReadUint8()
	return err
}

func readDiscriminator(decoder *bin.Decoder, want []byte) error {
	got, err := decoder.ReadNBytes(8)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want) {
		return ErrAccountDiscriminatorMismatch
	}
	return nil
}

func readKey(decoder *bin.Decoder, key *solana.PublicKey) error {
	raw, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(key[:], raw)
	return nil
}

// DecodeUserInstitutionConfig parses account data.
func DecodeUserInstitutionConfig(data []byte) (*UserInstitutionConfig, error) {
	c := new(UserInstitutionConfig)
	if err := c.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		return nil, fmt.Errorf("failed to decode institution config: %w", err)
	}
	return c, nil
}

func DecodeTokenConfig(data []byte) (*TokenConfig, error) {
	c := new(TokenConfig)
	if err := c.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		return nil, fmt.Errorf("failed to decode token config: %w", err)
	}
	return c, nil
}

func encode(v bin.BinaryMarshaler) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := v.MarshalWithEncoder(bin.NewBinEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
