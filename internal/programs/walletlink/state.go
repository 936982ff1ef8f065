package walletlink

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var UserLinkDiscriminator = bin.Sighash("account", "UserLink")

// UserLinkSize includes the 8-byte discriminator.
const UserLinkSize = 8 + 32 + 32 + 8 + 8 + 1 + 1

var errDiscriminatorMismatch = errors.New("account discriminator did not match")

// UserLink records the school wallet a user is linked to. Linked is false
// once the link has been removed.
type UserLink struct {
	UserWallet   solana.PublicKey
	SchoolWallet solana.PublicKey
	CreatedAt    int64
	UpdatedAt    int64
	Bump         uint8
	Linked       bool
}

// School returns the linked school wallet, if any.
func (u *UserLink) School() (solana.PublicKey, bool) {
	if u == nil || !u.Linked {
		return solana.PublicKey{}, false
	}
	return u.SchoolWallet, true
}

func (u UserLink) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(UserLinkDiscriminator, false); err != nil {
		return err
	}
	if err := encoder.WriteBytes(u.UserWallet[:], false); err != nil {
		return err
	}
	if err := encoder.WriteBytes(u.SchoolWallet[:], false); err != nil {
		return err
	}
	if err := encoder.WriteInt64(u.CreatedAt, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteInt64(u.UpdatedAt, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteUint8(u.Bump); err != nil {
		return err
	}
	return encoder.WriteBool(u.Linked)
}

func (u *UserLink) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	disc, err := decoder.ReadNBytes(8)
	if err != nil {
		return err
	}
	if !bytes.Equal(disc, UserLinkDiscriminator) {
		return errDiscriminatorMismatch
	}
	raw, err := decoder.ReadNBytes(32)
	if err != nil {
		return err
	}
	u.UserWallet = solana.PublicKeyFromBytes(raw)
	if raw, err = decoder.ReadNBytes(32); err != nil {
		return err
	}
	u.SchoolWallet = solana.PublicKeyFromBytes(raw)
	if u.CreatedAt, err = decoder.ReadInt64(bin.LE); err != nil {
		return err
	}
	if u.UpdatedAt, err = decoder.ReadInt64(bin.LE); err != nil {
		return err
	}
	if u.Bump, err = decoder.ReadUint8(); err != nil {
		return err
	}
	u.Linked, err = decoder.ReadBool()
	return err
}

func DecodeUserLink(data []byte) (*UserLink, error) {
	u := new(UserLink)
	if err := u.UnmarshalWithDecoder(bin.NewBinDecoder(data)); err != nil {
		return nil, fmt.Errorf("failed to decode user link: %w", err)
	}
	return u, nil
}

func (u *UserLink) encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := u.MarshalWithEncoder(bin.NewBinEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
