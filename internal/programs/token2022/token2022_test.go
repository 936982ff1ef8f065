package token2022_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"divisionone/internal/ledger"
	"divisionone/internal/ledger/ledgertest"
	"divisionone/internal/programs/token2022"
	"divisionone/pkg/solana/extrameta"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hookID = solana.MustPublicKeyFromBase58("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")

// recordingHook stores the accounts and amount of every execute call and can
// write its own validation account.
type recordingHook struct {
	calls        [][]solana.PublicKey
	amounts      []uint64
	transferring []bool
	extra        solana.PublicKey
}

func (h *recordingHook) ID() solana.PublicKey { return hookID }

func (h *recordingHook) Process(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, data []byte) error {
	if len(data) == 16 && bytes.Equal(data[:8], extrameta.ExecuteDiscriminator) {
		keys := make([]solana.PublicKey, len(accounts))
		for i, a := range accounts {
			keys[i] = a.Key
		}
		h.calls = append(h.calls, keys)
		h.amounts = append(h.amounts, binary.LittleEndian.Uint64(data[8:]))

		source, err := token2022.DecodeAccount(accounts[0].Data())
		if err != nil {
			return err
		}
		h.transferring = append(h.transferring, source.TransferHookAccount != nil && source.TransferHookAccount.Transferring)
		return nil
	}

	// init: [payer, validation, mint, system]
	payer, validation, mint := accounts[0], accounts[1], accounts[2]
	address, bump, err := token2022.FindValidationAddress(mint.Key, hookID)
	if err != nil {
		return err
	}
	if !address.Equals(validation.Key) {
		return ledger.ErrInvalidInstruction
	}
	table, err := extrameta.Encode([]extrameta.ExtraAccountMeta{extrameta.NewFixed(h.extra, false, false)})
	if err != nil {
		return err
	}
	size := uint64(len(table))
	create := system.NewCreateAccountInstruction(ledger.MinimumBalance(size), size, hookID, payer.Key, validation.Key).Build()
	if err := ctx.Invoke(create, [][]byte{[]byte("extra-account-metas"), mint.Key.Bytes(), {bump}}); err != nil {
		return err
	}
	return ctx.SetData(validation, table)
}

type fixture struct {
	l     *ledger.Ledger
	payer solana.PrivateKey
	hook  *recordingHook
}

func newFixture(t *testing.T) *fixture {
	l := ledger.New()
	l.Register(token2022.Program{})
	l.Register(token2022.AssociatedTokenProgram{})
	hook := &recordingHook{extra: ledgertest.NewWallet(t).PublicKey()}
	l.Register(hook)
	return &fixture{l: l, payer: ledgertest.FundedWallet(t, l, 100_000_000_000), hook: hook}
}

func (f *fixture) fetch(address solana.PublicKey) ([]byte, bool) {
	acct, err := f.l.GetAccount(context.Background(), address)
	if err != nil {
		return nil, false
	}
	return acct.Data, true
}

func (f *fixture) createMint(t *testing.T, decimals uint8, withHook bool, freeze *solana.PublicKey) solana.PublicKey {
	t.Helper()
	mint := ledgertest.NewWallet(t)
	size := uint64(token2022.MintSize())
	if withHook {
		size = uint64(token2022.MintSize(token2022.ExtensionTransferHook))
	}
	insts := []solana.Instruction{
		system.NewCreateAccountInstruction(ledger.MinimumBalance(size), size, solana.Token2022ProgramID, f.payer.PublicKey(), mint.PublicKey()).Build(),
	}
	if withHook {
		insts = append(insts, token2022.NewInitializeTransferHookInstruction(mint.PublicKey(), f.payer.PublicKey(), hookID))
	}
	if freeze != nil {
		insts = append(insts, token2022.NewInitializeMint2WithFreezeInstruction(decimals, f.payer.PublicKey(), *freeze, mint.PublicKey()))
	} else {
		insts = append(insts, token2022.NewInitializeMint2Instruction(decimals, f.payer.PublicKey(), mint.PublicKey()))
	}
	ledgertest.MustSend(t, f.l, []solana.PrivateKey{f.payer, mint}, insts...)
	return mint.PublicKey()
}

func (f *fixture) createATA(t *testing.T, wallet, mint solana.PublicKey) solana.PublicKey {
	t.Helper()
	inst, err := token2022.NewCreateAssociatedTokenAccountInstruction(f.payer.PublicKey(), wallet, mint, false)
	require.NoError(t, err)
	ledgertest.MustSend(t, f.l, []solana.PrivateKey{f.payer}, inst)
	ata, _, err := token2022.FindAssociatedTokenAddress(wallet, mint)
	require.NoError(t, err)
	return ata
}

func (f *fixture) balance(t *testing.T, account solana.PublicKey) uint64 {
	t.Helper()
	a, err := token2022.DecodeAccount(ledgertest.Account(t, f.l, account).Data)
	require.NoError(t, err)
	return a.Amount
}

func (f *fixture) supply(t *testing.T, mint solana.PublicKey) uint64 {
	t.Helper()
	m, err := token2022.DecodeMint(ledgertest.Account(t, f.l, mint).Data)
	require.NoError(t, err)
	return m.Supply
}

func TestStateCodec(t *testing.T) {
	t.Run("Mint with extensions", func(t *testing.T) {
		authority := ledgertest.NewWallet(t).PublicKey()
		m := &token2022.Mint{}
		m.Decimals = 6
		m.IsInitialized = true
		m.MintAuthority = &authority
		m.TransferHook = &token2022.TransferHook{Authority: hookID, ProgramID: hookID}
		m.TokenMetadata = &token2022.TokenMetadata{Mint: authority, Name: "Division", Symbol: "DIV", URI: "https://example.com/div.json"}

		data, err := m.Encode()
		require.NoError(t, err)
		assert.Equal(t, byte(token2022.AccountTypeMint), data[token2022.AccountTypeOffset])

		got, err := token2022.DecodeMint(data)
		require.NoError(t, err)
		assert.Equal(t, uint8(6), got.Decimals)
		assert.Equal(t, authority, *got.MintAuthority)
		program, ok := got.HookProgram()
		assert.True(t, ok)
		assert.Equal(t, hookID, program)
		assert.Equal(t, "DIV", got.TokenMetadata.Symbol)
		assert.Nil(t, got.MetadataPointer)
	})

	t.Run("Plain mint keeps base size", func(t *testing.T) {
		m := &token2022.Mint{}
		m.IsInitialized = true
		data, err := m.Encode()
		require.NoError(t, err)
		assert.Len(t, data, token2022.MintBaseSize)
	})

	t.Run("Sizes", func(t *testing.T) {
		assert.Equal(t, 82, token2022.MintSize())
		assert.Equal(t, 166+68+68, token2022.MintSize(token2022.ExtensionTransferHook, token2022.ExtensionMetadataPointer))
		assert.Equal(t, 165, token2022.AccountSize(&token2022.Mint{}))
		assert.Equal(t, 171, token2022.AccountSize(&token2022.Mint{Extensions: token2022.Extensions{TransferHook: &token2022.TransferHook{}}}))
	})

	t.Run("Truncated extension is rejected", func(t *testing.T) {
		m := &token2022.Mint{}
		m.TransferHook = &token2022.TransferHook{}
		data, err := m.Encode()
		require.NoError(t, err)
		_, err = token2022.DecodeMint(data[:len(data)-10])
		assert.ErrorIs(t, err, token2022.ErrInvalidAccountData)
	})
}

func TestTokenProgram(t *testing.T) {
	f := newFixture(t)
	freezer := ledgertest.NewWallet(t)
	freezeKey := freezer.PublicKey()
	mint := f.createMint(t, 6, false, &freezeKey)

	alice := ledgertest.FundedWallet(t, f.l, 1_000_000_000)
	bob := ledgertest.NewWallet(t).PublicKey()
	aliceATA := f.createATA(t, alice.PublicKey(), mint)
	bobATA := f.createATA(t, bob, mint)

	t.Run("MintTo", func(t *testing.T) {
		ledgertest.MustSend(t, f.l, []solana.PrivateKey{f.payer}, token2022.NewMintToInstruction(1_000, mint, aliceATA, f.payer.PublicKey()))
		assert.Equal(t, uint64(1_000), f.balance(t, aliceATA))
		assert.Equal(t, uint64(1_000), f.supply(t, mint))
	})

	t.Run("MintTo requires the mint authority", func(t *testing.T) {
		_, err := ledgertest.Send(t, f.l, []solana.PrivateKey{alice}, token2022.NewMintToInstruction(1, mint, aliceATA, alice.PublicKey()))
		assert.ErrorIs(t, err, token2022.ErrOwnerMismatch)
	})

	t.Run("TransferChecked", func(t *testing.T) {
		ledgertest.MustSend(t, f.l, []solana.PrivateKey{alice}, token2022.NewTransferCheckedInstruction(300, 6, aliceATA, mint, bobATA, alice.PublicKey()))
		assert.Equal(t, uint64(700), f.balance(t, aliceATA))
		assert.Equal(t, uint64(300), f.balance(t, bobATA))
	})

	t.Run("Decimals mismatch", func(t *testing.T) {
		_, err := ledgertest.Send(t, f.l, []solana.PrivateKey{alice}, token2022.NewTransferCheckedInstruction(1, 9, aliceATA, mint, bobATA, alice.PublicKey()))
		assert.ErrorIs(t, err, token2022.ErrMintDecimalsMismatch)
	})

	t.Run("Insufficient funds", func(t *testing.T) {
		_, err := ledgertest.Send(t, f.l, []solana.PrivateKey{alice}, token2022.NewTransferInstruction(701, aliceATA, bobATA, alice.PublicKey()))
		assert.ErrorIs(t, err, token2022.ErrInsufficientFunds)
		assert.Equal(t, uint64(700), f.balance(t, aliceATA))
	})

	t.Run("Wrong owner", func(t *testing.T) {
		_, err := ledgertest.Send(t, f.l, []solana.PrivateKey{f.payer}, token2022.NewTransferInstruction(1, aliceATA, bobATA, f.payer.PublicKey()))
		assert.ErrorIs(t, err, token2022.ErrOwnerMismatch)
	})

	t.Run("Burn reduces supply", func(t *testing.T) {
		ledgertest.MustSend(t, f.l, []solana.PrivateKey{alice}, token2022.NewBurnInstruction(100, aliceATA, mint, alice.PublicKey()))
		assert.Equal(t, uint64(600), f.balance(t, aliceATA))
		assert.Equal(t, uint64(900), f.supply(t, mint))
	})

	t.Run("Frozen account cannot send", func(t *testing.T) {
		ledgertest.MustSend(t, f.l, []solana.PrivateKey{f.payer, freezer}, token2022.NewFreezeAccountInstruction(aliceATA, mint, freezeKey))
		_, err := ledgertest.Send(t, f.l, []solana.PrivateKey{alice}, token2022.NewTransferInstruction(1, aliceATA, bobATA, alice.PublicKey()))
		assert.ErrorIs(t, err, token2022.ErrAccountFrozen)

		_, err = ledgertest.Send(t, f.l, []solana.PrivateKey{f.payer, freezer}, token2022.NewFreezeAccountInstruction(aliceATA, mint, freezeKey))
		assert.ErrorIs(t, err, token2022.ErrInvalidState)

		ledgertest.MustSend(t, f.l, []solana.PrivateKey{f.payer, freezer}, token2022.NewThawAccountInstruction(aliceATA, mint, freezeKey))
		ledgertest.MustSend(t, f.l, []solana.PrivateKey{alice}, token2022.NewTransferInstruction(1, aliceATA, bobATA, alice.PublicKey()))
	})

	t.Run("Associated account creation", func(t *testing.T) {
		inst, err := token2022.NewCreateAssociatedTokenAccountInstruction(f.payer.PublicKey(), bob, mint, false)
		require.NoError(t, err)
		_, err = ledgertest.Send(t, f.l, []solana.PrivateKey{f.payer}, inst)
		assert.ErrorIs(t, err, ledger.ErrAccountAlreadyInUse)

		idem, err := token2022.NewCreateAssociatedTokenAccountInstruction(f.payer.PublicKey(), bob, mint, true)
		require.NoError(t, err)
		ledgertest.MustSend(t, f.l, []solana.PrivateKey{f.payer}, idem)

		acct := ledgertest.Account(t, f.l, bobATA)
		assert.Equal(t, solana.Token2022ProgramID, acct.Owner)
		assert.Len(t, acct.Data, token2022.AccountBaseSize)
	})
}

func TestTransferHookInvocation(t *testing.T) {
	f := newFixture(t)
	mint := f.createMint(t, 2, true, nil)

	alice := ledgertest.FundedWallet(t, f.l, 1_000_000_000)
	bob := ledgertest.NewWallet(t).PublicKey()
	aliceATA := f.createATA(t, alice.PublicKey(), mint)
	bobATA := f.createATA(t, bob, mint)
	assert.Len(t, ledgertest.Account(t, f.l, aliceATA).Data, 171)

	ledgertest.MustSend(t, f.l, []solana.PrivateKey{f.payer}, token2022.NewMintToInstruction(500, mint, aliceATA, f.payer.PublicKey()))

	validation, _, err := token2022.FindValidationAddress(mint, hookID)
	require.NoError(t, err)

	t.Run("Missing validation account is rejected", func(t *testing.T) {
		inst := token2022.NewTransferCheckedInstruction(10, 2, aliceATA, mint, bobATA, alice.PublicKey())
		_, err := ledgertest.Send(t, f.l, []solana.PrivateKey{alice}, inst)
		assert.ErrorIs(t, err, token2022.ErrIncorrectAccount)
		assert.Empty(t, f.hook.calls)
	})

	t.Run("Hook runs without a table", func(t *testing.T) {
		inst, err := token2022.AddTransferHookAccounts(
			token2022.NewTransferCheckedInstruction(10, 2, aliceATA, mint, bobATA, alice.PublicKey()), hookID, f.fetch)
		require.NoError(t, err)
		ledgertest.MustSend(t, f.l, []solana.PrivateKey{alice}, inst)

		require.Len(t, f.hook.calls, 1)
		assert.Equal(t, []solana.PublicKey{aliceATA, mint, bobATA, alice.PublicKey(), validation}, f.hook.calls[0])
		assert.True(t, f.hook.transferring[0])
	})

	init := solana.NewInstruction(hookID, solana.AccountMetaSlice{
		solana.Meta(f.payer.PublicKey()).WRITE().SIGNER(),
		solana.Meta(validation).WRITE(),
		solana.Meta(mint),
		solana.Meta(solana.SystemProgramID),
	}, []byte{0})
	ledgertest.MustSend(t, f.l, []solana.PrivateKey{f.payer}, init)

	t.Run("Resolved extras are passed to the hook", func(t *testing.T) {
		inst, err := token2022.AddTransferHookAccounts(
			token2022.NewTransferCheckedInstruction(20, 2, aliceATA, mint, bobATA, alice.PublicKey()), hookID, f.fetch)
		require.NoError(t, err)
		ledgertest.MustSend(t, f.l, []solana.PrivateKey{alice}, inst)

		require.Len(t, f.hook.calls, 2)
		assert.Equal(t, f.hook.extra, f.hook.calls[1][5])
		assert.Equal(t, uint64(20), f.hook.amounts[1])
		assert.Equal(t, uint64(470), f.balance(t, aliceATA))

		source, err := token2022.DecodeAccount(ledgertest.Account(t, f.l, aliceATA).Data)
		require.NoError(t, err)
		assert.False(t, source.TransferHookAccount.Transferring)
	})

	t.Run("Missing extra is rejected", func(t *testing.T) {
		inst := token2022.NewTransferCheckedInstruction(10, 2, aliceATA, mint, bobATA, alice.PublicKey())
		metas := append(inst.Accounts(), solana.Meta(validation), solana.Meta(hookID))
		data, err := inst.Data()
		require.NoError(t, err)

		_, err = ledgertest.Send(t, f.l, []solana.PrivateKey{alice}, solana.NewInstruction(solana.Token2022ProgramID, metas, data))
		assert.ErrorIs(t, err, token2022.ErrIncorrectAccount)
		assert.Len(t, f.hook.calls, 2)
	})

	t.Run("Unchecked transfer is rejected", func(t *testing.T) {
		before := f.balance(t, aliceATA)
		_, err := ledgertest.Send(t, f.l, []solana.PrivateKey{alice}, token2022.NewTransferInstruction(5, aliceATA, bobATA, alice.PublicKey()))
		assert.ErrorIs(t, err, token2022.ErrMintRequired)
		assert.Equal(t, before, f.balance(t, aliceATA))
		assert.Len(t, f.hook.calls, 2)
	})
}

func TestTokenMetadata(t *testing.T) {
	f := newFixture(t)
	mint := ledgertest.NewWallet(t)
	size := uint64(token2022.MintSize(token2022.ExtensionMetadataPointer))

	ledgertest.MustSend(t, f.l, []solana.PrivateKey{f.payer, mint},
		system.NewCreateAccountInstruction(ledger.MinimumBalance(size), size, solana.Token2022ProgramID, f.payer.PublicKey(), mint.PublicKey()).Build(),
		token2022.NewInitializeMetadataPointerInstruction(mint.PublicKey(), f.payer.PublicKey(), mint.PublicKey()),
		token2022.NewInitializeMint2Instruction(9, f.payer.PublicKey(), mint.PublicKey()),
		token2022.NewInitializeTokenMetadataInstruction(mint.PublicKey(), f.payer.PublicKey(), mint.PublicKey(), f.payer.PublicKey(), "Division One", "DIV1", "https://example.com/d1.json"),
	)

	acct := ledgertest.Account(t, f.l, mint.PublicKey())
	assert.Greater(t, len(acct.Data), int(size))

	m, err := token2022.DecodeMint(acct.Data)
	require.NoError(t, err)
	require.NotNil(t, m.TokenMetadata)
	assert.Equal(t, "Division One", m.TokenMetadata.Name)
	assert.Equal(t, "DIV1", m.TokenMetadata.Symbol)
	assert.Equal(t, mint.PublicKey(), m.TokenMetadata.Mint)
	assert.Equal(t, mint.PublicKey(), m.MetadataPointer.MetadataAddress)

	t.Run("Extension after initialization is rejected", func(t *testing.T) {
		_, err := ledgertest.Send(t, f.l, []solana.PrivateKey{f.payer},
			token2022.NewInitializeTransferHookInstruction(mint.PublicKey(), f.payer.PublicKey(), hookID))
		assert.ErrorIs(t, err, token2022.ErrAlreadyInUse)
	})
}
