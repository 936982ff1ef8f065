// Package ledgertest holds helpers for tests that drive a ledger with signed
// transactions.
package ledgertest

import (
	"context"
	"testing"

	"divisionone/internal/ledger"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

// NewWallet returns a fresh keypair.
func NewWallet(t testing.TB) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

// FundedWallet returns a fresh keypair holding lamports.
func FundedWallet(t testing.TB, l *ledger.Ledger, lamports uint64) solana.PrivateKey {
	t.Helper()
	key := NewWallet(t)
	require.NoError(t, l.Airdrop(context.Background(), key.PublicKey(), lamports))
	return key
}

// BuildTx signs insts with signers. The first signer pays.
func BuildTx(t testing.TB, l *ledger.Ledger, signers []solana.PrivateKey, insts ...solana.Instruction) *solana.Transaction {
	t.Helper()
	require.NotEmpty(t, signers)

	tx, err := solana.NewTransaction(insts, l.LatestBlockhash(), solana.TransactionPayer(signers[0].PublicKey()))
	require.NoError(t, err)

	keys := make(map[solana.PublicKey]solana.PrivateKey, len(signers))
	for _, s := range signers {
		keys[s.PublicKey()] = s
	}
	_, err = tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if k, ok := keys[pub]; ok {
			return &k
		}
		return nil
	})
	require.NoError(t, err)
	return tx
}

// Send builds, signs and executes a transaction.
func Send(t testing.TB, l *ledger.Ledger, signers []solana.PrivateKey, insts ...solana.Instruction) (*ledger.Receipt, error) {
	t.Helper()
	return l.Execute(context.Background(), BuildTx(t, l, signers, insts...))
}

// MustSend is Send that fails the test on error.
func MustSend(t testing.TB, l *ledger.Ledger, signers []solana.PrivateKey, insts ...solana.Instruction) *ledger.Receipt {
	t.Helper()
	receipt, err := Send(t, l, signers, insts...)
	if err != nil && receipt != nil {
		for _, line := range receipt.Logs {
			t.Log(line)
		}
	}
	require.NoError(t, err)
	return receipt
}

// Account loads committed account state.
func Account(t testing.TB, l *ledger.Ledger, address solana.PublicKey) *ledger.Account {
	t.Helper()
	acct, err := l.GetAccount(context.Background(), address)
	require.NoError(t, err)
	return acct
}
