package extrameta

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

const transferHookNamespace = "spl-transfer-hook-interface"

// ExecuteDiscriminator prefixes the hook's execute instruction data and tags
// the resolution table entry inside the validation account.
var ExecuteDiscriminator = bin.Sighash(transferHookNamespace, "execute")

var (
	ErrDiscriminatorNotFound = errors.New("extra account meta list not found for discriminator")
	ErrInvalidAccountData    = errors.New("invalid extra account meta list data")
)

// tlv header: 8-byte type + u32 length
const tlvHeaderSize = 8 + 4

// SizeOf returns the account size needed for a list of n metas.
func SizeOf(n int) int {
	return tlvHeaderSize + 4 + n*MetaSize
}

// Encode writes metas as a single TLV entry keyed by ExecuteDiscriminator.
func Encode(metas []ExtraAccountMeta) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)

	if err := enc.WriteBytes(ExecuteDiscriminator, false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint32(uint32(4+len(metas)*MetaSize), bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteUint32(uint32(len(metas)), bin.LE); err != nil {
		return nil, err
	}
	for i := range metas {
		if err := metas[i].MarshalWithEncoder(enc); err != nil {
			return nil, fmt.Errorf("failed to encode extra account meta %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Decode finds the execute entry in a validation account and returns its rules.
func Decode(data []byte) ([]ExtraAccountMeta, error) {
	dec := bin.NewBinDecoder(data)
	for dec.Remaining() >= tlvHeaderSize {
		disc, err := dec.ReadNBytes(8)
		if err != nil {
			return nil, err
		}
		length, err := dec.ReadUint32(bin.LE)
		if err != nil {
			return nil, err
		}
		if int(length) > dec.Remaining() {
			return nil, fmt.Errorf("%w: entry length %d exceeds remaining %d", ErrInvalidAccountData, length, dec.Remaining())
		}

		if !bytes.Equal(disc, ExecuteDiscriminator) {
			if err := dec.SkipBytes(uint(length)); err != nil {
				return nil, err
			}
			continue
		}

		value, err := dec.ReadNBytes(int(length))
		if err != nil {
			return nil, err
		}
		return decodeList(value)
	}
	return nil, ErrDiscriminatorNotFound
}

func decodeList(value []byte) ([]ExtraAccountMeta, error) {
	dec := bin.NewBinDecoder(value)
	count, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	if int(count)*MetaSize != dec.Remaining() {
		return nil, fmt.Errorf("%w: %d entries in %d bytes", ErrInvalidAccountData, count, dec.Remaining())
	}

	metas := make([]ExtraAccountMeta, count)
	for i := range metas {
		if err := metas[i].UnmarshalWithDecoder(dec); err != nil {
			return nil, fmt.Errorf("failed to decode extra account meta %d: %w", i, err)
		}
	}
	return metas, nil
}
