package token2022

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// Base layouts and the extension area that follows them.
const (
	MintBaseSize      = 82
	AccountBaseSize   = 165
	AccountTypeOffset = 165
	ExtensionsOffset  = 166
	tlvHeaderSize     = 4
)

// AccountType marks what follows the base layout in an extended account.
type AccountType uint8

const (
	AccountTypeUninitialized AccountType = 0
	AccountTypeMint          AccountType = 1
	AccountTypeAccount       AccountType = 2
)

// ExtensionType identifies a TLV entry in the extension area.
type ExtensionType uint16

const (
	ExtensionUninitialized       ExtensionType = 0
	ExtensionTransferHook        ExtensionType = 14
	ExtensionTransferHookAccount ExtensionType = 15
	ExtensionMetadataPointer     ExtensionType = 18
	ExtensionTokenMetadata       ExtensionType = 19
)

// TransferHook is the mint extension naming the hook program. A zero
// ProgramID disables the hook.
type TransferHook struct {
	Authority solana.PublicKey
	ProgramID solana.PublicKey
}

// TransferHookAccount is the token account extension that is only set while
// the account takes part in a hooked transfer.
type TransferHookAccount struct {
	Transferring bool
}

type MetadataPointer struct {
	Authority       solana.PublicKey
	MetadataAddress solana.PublicKey
}

type TokenMetadata struct {
	UpdateAuthority    solana.PublicKey
	Mint               solana.PublicKey
	Name               string
	Symbol             string
	URI                string
	AdditionalMetadata [][2]string
}

// Extensions are the parsed TLV entries of a mint or token account.
type Extensions struct {
	TransferHook        *TransferHook
	TransferHookAccount *TransferHookAccount
	MetadataPointer     *MetadataPointer
	TokenMetadata       *TokenMetadata
}

func (e *Extensions) empty() bool {
	return e.TransferHook == nil && e.TransferHookAccount == nil && e.MetadataPointer == nil && e.TokenMetadata == nil
}

// Mint is a mint with its extensions.
type Mint struct {
	token.Mint
	Extensions
}

// Account is a token account with its extensions.
type Account struct {
	token.Account
	Extensions
}

// HookProgram returns the configured transfer hook program, if any.
func (m *Mint) HookProgram() (solana.PublicKey, bool) {
	if m.TransferHook == nil || m.TransferHook.ProgramID.IsZero() {
		return solana.PublicKey{}, false
	}
	return m.TransferHook.ProgramID, true
}

// IsFrozen reports whether the account is frozen.
func (a *Account) IsFrozen() bool {
	return a.State == token.Frozen
}

func (a *Account) IsInitialized() bool {
	return a.State != token.Uninitialized
}

// DecodeMint parses a mint. Uninitialized data decodes to a zero mint.
func DecodeMint(data []byte) (*Mint, error) {
	if len(data) < MintBaseSize {
		return nil, fmt.Errorf("%w: mint data is %d bytes", ErrInvalidAccountData, len(data))
	}

	m := new(Mint)
	if err := m.Mint.UnmarshalWithDecoder(bin.NewBinDecoder(data[:MintBaseSize])); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	if len(data) == MintBaseSize {
		return m, nil
	}
	if len(data) < ExtensionsOffset {
		return nil, fmt.Errorf("%w: extended mint data is %d bytes", ErrInvalidAccountData, len(data))
	}
	accountType := AccountType(data[AccountTypeOffset])
	if accountType != AccountTypeMint && accountType != AccountTypeUninitialized {
		return nil, fmt.Errorf("%w: account type %d is not a mint", ErrInvalidAccountData, accountType)
	}
	if err := decodeExtensions(data[ExtensionsOffset:], &m.Extensions); err != nil {
		return nil, err
	}
	return m, nil
}

// Encode serializes the mint. Mints with extensions use the padded layout.
func (m *Mint) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := m.Mint.MarshalWithEncoder(bin.NewBinEncoder(buf)); err != nil {
		return nil, err
	}
	if m.Extensions.empty() {
		return buf.Bytes(), nil
	}
	return appendExtensions(buf.Bytes(), AccountTypeMint, &m.Extensions)
}

// DecodeAccount parses a token account.
func DecodeAccount(data []byte) (*Account, error) {
	if len(data) < AccountBaseSize {
		return nil, fmt.Errorf("%w: account data is %d bytes", ErrInvalidAccountData, len(data))
	}

	a := new(Account)
	if err := a.Account.UnmarshalWithDecoder(bin.NewBinDecoder(data[:AccountBaseSize])); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccountData, err)
	}
	if len(data) == AccountBaseSize {
		return a, nil
	}
	accountType := AccountType(data[AccountTypeOffset])
	if accountType != AccountTypeAccount && accountType != AccountTypeUninitialized {
		return nil, fmt.Errorf("%w: account type %d is not a token account", ErrInvalidAccountData, accountType)
	}
	if err := decodeExtensions(data[ExtensionsOffset:], &a.Extensions); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Account) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := a.Account.MarshalWithEncoder(bin.NewBinEncoder(buf)); err != nil {
		return nil, err
	}
	if a.Extensions.empty() {
		return buf.Bytes(), nil
	}
	return appendExtensions(buf.Bytes(), AccountTypeAccount, &a.Extensions)
}

// MintSize returns the data length of a mint carrying the given fixed size
// extensions.
func MintSize(exts ...ExtensionType) int {
	if len(exts) == 0 {
		return MintBaseSize
	}
	size := ExtensionsOffset
	for _, e := range exts {
		size += tlvHeaderSize + fixedExtensionLen(e)
	}
	return size
}

// AccountSize returns the data length of a token account for mint.
func AccountSize(mint *Mint) int {
	if mint.TransferHook != nil {
		return ExtensionsOffset + tlvHeaderSize + fixedExtensionLen(ExtensionTransferHookAccount)
	}
	return AccountBaseSize
}

func fixedExtensionLen(e ExtensionType) int {
	switch e {
	case ExtensionTransferHook, ExtensionMetadataPointer:
		return 64
	case ExtensionTransferHookAccount:
		return 1
	}
	return 0
}

func appendExtensions(base []byte, accountType AccountType, ext *Extensions) ([]byte, error) {
	out := make([]byte, ExtensionsOffset, ExtensionsOffset+256)
	copy(out, base)
	out[AccountTypeOffset] = byte(accountType)

	put := func(t ExtensionType, value []byte) {
		var header [tlvHeaderSize]byte
		binary.LittleEndian.PutUint16(header[0:2], uint16(t))
		binary.LittleEndian.PutUint16(header[2:4], uint16(len(value)))
		out = append(out, header[:]...)
		out = append(out, value...)
	}

	if ext.TransferHook != nil {
		put(ExtensionTransferHook, append(ext.TransferHook.Authority.Bytes(), ext.TransferHook.ProgramID.Bytes()...))
	}
	if ext.TransferHookAccount != nil {
		var flag byte
		if ext.TransferHookAccount.Transferring {
			flag = 1
		}
		put(ExtensionTransferHookAccount, []byte{flag})
	}
	if ext.MetadataPointer != nil {
		put(ExtensionMetadataPointer, append(ext.MetadataPointer.Authority.Bytes(), ext.MetadataPointer.MetadataAddress.Bytes()...))
	}
	if ext.TokenMetadata != nil {
		value, err := ext.TokenMetadata.encode()
		if err != nil {
			return nil, err
		}
		put(ExtensionTokenMetadata, value)
	}
	return out, nil
}

func decodeExtensions(data []byte, ext *Extensions) error {
	pos := 0
	for pos+tlvHeaderSize <= len(data) {
		t := ExtensionType(binary.LittleEndian.Uint16(data[pos : pos+2]))
		n := int(binary.LittleEndian.Uint16(data[pos+2 : pos+4]))
		if t == ExtensionUninitialized {
			return nil
		}
		pos += tlvHeaderSize
		if pos+n > len(data) {
			return fmt.Errorf("%w: extension %d overruns account data", ErrInvalidAccountData, t)
		}
		value := data[pos : pos+n]
		pos += n

		switch t {
		case ExtensionTransferHook:
			if n != 64 {
				return fmt.Errorf("%w: transfer hook extension is %d bytes", ErrInvalidAccountData, n)
			}
			ext.TransferHook = &TransferHook{
				Authority: solana.PublicKeyFromBytes(value[:32]),
				ProgramID: solana.PublicKeyFromBytes(value[32:64]),
			}
		case ExtensionTransferHookAccount:
			if n != 1 {
				return fmt.Errorf("%w: transfer hook account extension is %d bytes", ErrInvalidAccountData, n)
			}
			ext.TransferHookAccount = &TransferHookAccount{Transferring: value[0] != 0}
		case ExtensionMetadataPointer:
			if n != 64 {
				return fmt.Errorf("%w: metadata pointer extension is %d bytes", ErrInvalidAccountData, n)
			}
			ext.MetadataPointer = &MetadataPointer{
				Authority:       solana.PublicKeyFromBytes(value[:32]),
				MetadataAddress: solana.PublicKeyFromBytes(value[32:64]),
			}
		case ExtensionTokenMetadata:
			md, err := decodeTokenMetadata(value)
			if err != nil {
				return err
			}
			ext.TokenMetadata = md
		}
	}
	return nil
}

func (md *TokenMetadata) encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(md.UpdateAuthority.Bytes(), false); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(md.Mint.Bytes(), false); err != nil {
		return nil, err
	}
	for _, s := range []string{md.Name, md.Symbol, md.URI} {
		if err := enc.WriteString(s); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteUint32(uint32(len(md.AdditionalMetadata)), bin.LE); err != nil {
		return nil, err
	}
	for _, kv := range md.AdditionalMetadata {
		if err := enc.WriteString(kv[0]); err != nil {
			return nil, err
		}
		if err := enc.WriteString(kv[1]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeTokenMetadata(value []byte) (*TokenMetadata, error) {
	dec := bin.NewBorshDecoder(value)
	wrap := func(err error) error {
		return fmt.Errorf("%w: token metadata: %v", ErrInvalidAccountData, err)
	}

	md := new(TokenMetadata)
	raw, err := dec.ReadNBytes(32)
	if err != nil {
		return nil, wrap(err)
	}
	md.UpdateAuthority = solana.PublicKeyFromBytes(raw)
	if raw, err = dec.ReadNBytes(32); err != nil {
		return nil, wrap(err)
	}
	md.Mint = solana.PublicKeyFromBytes(raw)
	if md.Name, err = dec.ReadString(); err != nil {
		return nil, wrap(err)
	}
	if md.Symbol, err = dec.ReadString(); err != nil {
		return nil, wrap(err)
	}
	if md.URI, err = dec.ReadString(); err != nil {
		return nil, wrap(err)
	}
	count, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return nil, wrap(err)
	}
	for i := uint32(0); i < count; i++ {
		k, err := dec.ReadString()
		if err != nil {
			return nil, wrap(err)
		}
		v, err := dec.ReadString()
		if err != nil {
			return nil, wrap(err)
		}
		md.AdditionalMetadata = append(md.AdditionalMetadata, [2]string{k, v})
	}
	return md, nil
}

// MetadataSize returns the encoded TLV size of md.
func MetadataSize(md *TokenMetadata) (int, error) {
	value, err := md.encode()
	if err != nil {
		return 0, err
	}
	return tlvHeaderSize + len(value), nil
}
