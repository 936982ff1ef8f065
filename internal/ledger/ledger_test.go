package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"divisionone/internal/ledger"
	"divisionone/internal/ledger/ledgertest"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recorderID = solana.MustPublicKeyFromBase58("HN7cABqLq46Es1jh92dQQisAq662SmxELLLsHHe4YWrH")

var errRecorderFailed = ledger.NewProgramError(recorderID, 6000, "Failed", "requested failure")

const (
	opCreate uint8 = iota
	opWrite
	opFail
	opRecurse
	opEscalate
)

// recorder is a small program used to exercise the runtime.
type recorder struct{}

func (recorder) ID() solana.PublicKey { return recorderID }

func (recorder) Process(ctx *ledger.InvokeContext, accounts []*ledger.AccountInfo, data []byte) error {
	switch data[0] {
	case opCreate:
		payer, record := accounts[0], accounts[1]
		address, bump, err := solana.FindProgramAddress([][]byte{[]byte("rec"), payer.Key.Bytes()}, recorderID)
		if err != nil {
			return err
		}
		if !address.Equals(record.Key) {
			return errors.New("unexpected record address")
		}
		create := system.NewCreateAccountInstruction(ledger.MinimumBalance(8), 8, recorderID, payer.Key, record.Key).Build()
		return ctx.Invoke(create, [][]byte{[]byte("rec"), payer.Key.Bytes(), {bump}})
	case opWrite:
		ctx.Emit("Written", map[string]interface{}{"len": len(data) - 1})
		return ctx.SetData(accounts[0], data[1:])
	case opFail:
		return errRecorderFailed
	case opRecurse:
		metas := make([]*solana.AccountMeta, len(accounts))
		for i, a := range accounts {
			metas[i] = a.Meta()
		}
		return ctx.Invoke(solana.NewInstruction(recorderID, metas, []byte{opRecurse}))
	case opEscalate:
		// asks the system program to debit an account the caller did not sign for
		inst := system.NewTransferInstruction(1, accounts[0].Key, accounts[1].Key).Build()
		return ctx.Invoke(inst)
	}
	return ledger.ErrInvalidInstruction
}

func recordAddress(t *testing.T, payer solana.PublicKey) solana.PublicKey {
	address, _, err := solana.FindProgramAddress([][]byte{[]byte("rec"), payer.Bytes()}, recorderID)
	require.NoError(t, err)
	return address
}

func createInst(payer, record solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(recorderID, []*solana.AccountMeta{
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(record).WRITE(),
		solana.Meta(solana.SystemProgramID),
	}, []byte{opCreate})
}

func writeInst(record solana.PublicKey, payload []byte) solana.Instruction {
	return solana.NewInstruction(recorderID, []*solana.AccountMeta{solana.Meta(record).WRITE()}, append([]byte{opWrite}, payload...))
}

func TestLedgerExecute(t *testing.T) {
	var published [][]ledger.Event
	sink := ledger.EventSinkFunc(func(_ context.Context, events []ledger.Event) error {
		published = append(published, events)
		return nil
	})
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	l := ledger.New(ledger.WithEventSink(sink), ledger.WithClock(func() time.Time { return now }))
	l.Register(recorder{})

	payer := ledgertest.FundedWallet(t, l, 1_000_000_000)
	record := recordAddress(t, payer.PublicKey())

	t.Run("Create account through signed invocation", func(t *testing.T) {
		receipt := ledgertest.MustSend(t, l, []solana.PrivateKey{payer}, createInst(payer.PublicKey(), record))
		assert.Equal(t, uint64(1), receipt.Slot)

		acct := ledgertest.Account(t, l, record)
		assert.Equal(t, recorderID, acct.Owner)
		assert.Len(t, acct.Data, 8)
		assert.Equal(t, ledger.MinimumBalance(8), acct.Lamports)

		payerAcct := ledgertest.Account(t, l, payer.PublicKey())
		assert.Equal(t, 1_000_000_000-ledger.MinimumBalance(8), payerAcct.Lamports)
	})

	t.Run("Second create fails with AlreadyInUse", func(t *testing.T) {
		_, err := ledgertest.Send(t, l, []solana.PrivateKey{payer}, createInst(payer.PublicKey(), record))
		require.Error(t, err)
		assert.ErrorIs(t, err, ledger.ErrAccountAlreadyInUse)

		var txErr *ledger.TransactionError
		require.ErrorAs(t, err, &txErr)
		assert.Equal(t, 0, txErr.InstructionIndex)
	})

	t.Run("Write emits event after commit", func(t *testing.T) {
		published = nil
		receipt := ledgertest.MustSend(t, l, []solana.PrivateKey{payer}, writeInst(record, []byte{1, 2, 3}))

		assert.Equal(t, []byte{1, 2, 3}, ledgertest.Account(t, l, record).Data)
		require.Len(t, receipt.Events, 1)
		assert.Equal(t, "Written", receipt.Events[0].Name)
		assert.Equal(t, now.Unix(), receipt.Events[0].BlockTime)
		require.Len(t, published, 1)
		assert.Equal(t, receipt.Signature.String(), published[0][0].Signature)
	})

	t.Run("Failure aborts every instruction", func(t *testing.T) {
		published = nil
		fail := solana.NewInstruction(recorderID, nil, []byte{opFail})
		receipt, err := ledgertest.Send(t, l, []solana.PrivateKey{payer}, writeInst(record, []byte{9, 9}), fail)
		require.Error(t, err)
		assert.ErrorIs(t, err, errRecorderFailed)

		code, ok := ledger.ErrorCode(err)
		assert.True(t, ok)
		assert.Equal(t, uint32(6000), code)

		var txErr *ledger.TransactionError
		require.ErrorAs(t, err, &txErr)
		assert.Equal(t, 1, txErr.InstructionIndex)

		assert.Equal(t, []byte{1, 2, 3}, ledgertest.Account(t, l, record).Data)
		assert.Empty(t, published)
		require.NotNil(t, receipt)
		assert.NotEmpty(t, receipt.Logs)
	})

	t.Run("Read-only account cannot be written", func(t *testing.T) {
		inst := solana.NewInstruction(recorderID, []*solana.AccountMeta{solana.Meta(record)}, []byte{opWrite, 7})
		_, err := ledgertest.Send(t, l, []solana.PrivateKey{payer}, inst)
		assert.ErrorIs(t, err, ledger.ErrReadonlyDataModified)
	})

	t.Run("Foreign account cannot be written", func(t *testing.T) {
		_, err := ledgertest.Send(t, l, []solana.PrivateKey{payer}, writeInst(payer.PublicKey(), []byte{1}))
		assert.ErrorIs(t, err, ledger.ErrExternalDataModified)
	})

	t.Run("Signer privilege cannot be escalated", func(t *testing.T) {
		victim := ledgertest.FundedWallet(t, l, 10)
		inst := solana.NewInstruction(recorderID, []*solana.AccountMeta{
			solana.Meta(victim.PublicKey()).WRITE(),
			solana.Meta(payer.PublicKey()).WRITE(),
			solana.Meta(solana.SystemProgramID),
		}, []byte{opEscalate})
		_, err := ledgertest.Send(t, l, []solana.PrivateKey{payer}, inst)
		assert.ErrorIs(t, err, ledger.ErrPrivilegeEscalation)
		assert.Equal(t, uint64(10), ledgertest.Account(t, l, victim.PublicKey()).Lamports)
	})

	t.Run("Invocation depth is bounded", func(t *testing.T) {
		inst := solana.NewInstruction(recorderID, nil, []byte{opRecurse})
		_, err := ledgertest.Send(t, l, []solana.PrivateKey{payer}, inst)
		assert.ErrorIs(t, err, ledger.ErrCallDepth)
	})

	t.Run("Unknown program", func(t *testing.T) {
		unknown := ledgertest.NewWallet(t).PublicKey()
		_, err := ledgertest.Send(t, l, []solana.PrivateKey{payer}, solana.NewInstruction(unknown, nil, []byte{0}))
		assert.ErrorIs(t, err, ledger.ErrProgramNotFound)
	})

	t.Run("Bad signature is rejected before execution", func(t *testing.T) {
		slot := l.Slot()
		tx := ledgertest.BuildTx(t, l, []solana.PrivateKey{payer}, writeInst(record, []byte{5}))
		tx.Signatures[0][0] ^= 0xff

		_, err := l.Execute(context.Background(), tx)
		assert.ErrorIs(t, err, ledger.ErrSignatureVerification)
		assert.Equal(t, slot, l.Slot())
	})

	t.Run("Cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		tx := ledgertest.BuildTx(t, l, []solana.PrivateKey{payer}, writeInst(record, []byte{5}))
		_, err := l.Execute(ctx, tx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestProgramErrorMatching(t *testing.T) {
	other := solana.MustPublicKeyFromBase58("BovX5mM2vYCgwktYcddCZR3aosNoDRTYanvV6feYAzE3")
	a := ledger.NewProgramError(recorderID, 6000, "A", "a")
	sameCode := ledger.NewProgramError(other, 6000, "A", "a")

	assert.True(t, errors.Is(a, ledger.NewProgramError(recorderID, 6000, "Other", "")))
	assert.False(t, errors.Is(a, sameCode))
	assert.False(t, errors.Is(a, ledger.NewProgramError(recorderID, 6001, "A", "a")))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewMemoryStore()
	owner := recorderID
	a := &ledger.Account{Address: solana.SystemProgramID, Owner: owner, Lamports: 5, Data: []byte{1}}

	require.NoError(t, store.Commit(ctx, 1, []*ledger.Account{a}))
	a.Data[0] = 2

	got, err := store.Get(ctx, a.Address)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, got.Data)

	list, err := store.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	empty := &ledger.Account{Address: a.Address, Owner: solana.SystemProgramID}
	require.NoError(t, store.Commit(ctx, 2, []*ledger.Account{empty}))
	_, err = store.Get(ctx, a.Address)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestReplayProtection(t *testing.T) {
	ctx := context.Background()
	l := ledger.New()
	payer := ledgertest.FundedWallet(t, l, 1_000_000_000)
	to := ledgertest.NewWallet(t).PublicKey()
	transfer := func(lamports uint64) solana.Instruction {
		return system.NewTransferInstruction(lamports, payer.PublicKey(), to).Build()
	}
	balance := func() uint64 {
		acct, err := l.GetAccount(ctx, to)
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return 0
		}
		require.NoError(t, err)
		return acct.Lamports
	}

	t.Run("Signed transaction runs once", func(t *testing.T) {
		tx := ledgertest.BuildTx(t, l, []solana.PrivateKey{payer}, transfer(1_000))
		_, err := l.Execute(ctx, tx)
		require.NoError(t, err)
		slot := l.Slot()

		_, err = l.Execute(ctx, tx)
		assert.ErrorIs(t, err, ledger.ErrAlreadyProcessed)
		assert.Equal(t, uint64(1_000), balance())
		assert.Equal(t, slot, l.Slot())
	})

	t.Run("Failed transaction can be resubmitted", func(t *testing.T) {
		tx := ledgertest.BuildTx(t, l, []solana.PrivateKey{payer}, transfer(10_000_000_000))
		_, err := l.Execute(ctx, tx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ledger.ErrAlreadyProcessed)

		_, err = l.Execute(ctx, tx)
		assert.NotErrorIs(t, err, ledger.ErrAlreadyProcessed)
		assert.NotErrorIs(t, err, ledger.ErrBlockhashNotFound)
	})

	t.Run("Unknown blockhash is rejected", func(t *testing.T) {
		tx, err := solana.NewTransaction([]solana.Instruction{transfer(1)}, solana.Hash{9}, solana.TransactionPayer(payer.PublicKey()))
		require.NoError(t, err)
		_, err = tx.Sign(func(solana.PublicKey) *solana.PrivateKey { return &payer })
		require.NoError(t, err)

		_, err = l.Execute(ctx, tx)
		assert.ErrorIs(t, err, ledger.ErrBlockhashNotFound)
	})

	t.Run("Blockhash expires", func(t *testing.T) {
		stale := ledgertest.BuildTx(t, l, []solana.PrivateKey{payer}, transfer(7))
		for i := 0; i < ledger.MaxRecentBlockhashes; i++ {
			ledgertest.MustSend(t, l, []solana.PrivateKey{payer}, transfer(1))
		}
		before := balance()

		_, err := l.Execute(ctx, stale)
		assert.ErrorIs(t, err, ledger.ErrBlockhashNotFound)
		assert.Equal(t, before, balance())
	})
}
