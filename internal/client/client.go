// Package client drives the fee hook, wallet link and token programs through a
// ledger: it builds, signs and submits transactions and reads back account
// state.
package client

import (
	"context"
	"errors"
	"fmt"

	"divisionone/internal/ledger"
	"divisionone/internal/programs/feehook"
	"divisionone/internal/programs/token2022"
	"divisionone/internal/programs/walletlink"
	"divisionone/pkg/solana/divisionone"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"
)

var ErrTransferHookMissing = errors.New("mint has no transfer hook")

type Client struct {
	ledger *ledger.Ledger
}

// New registers every program on l and returns a client for it.
func New(l *ledger.Ledger) *Client {
	l.Register(token2022.Program{})
	l.Register(token2022.AssociatedTokenProgram{})
	l.Register(feehook.Program{})
	l.Register(walletlink.Program{})
	return &Client{ledger: l}
}

func (c *Client) Ledger() *ledger.Ledger {
	return c.ledger
}

// Send signs insts with signers and executes them as one transaction. The
// first signer pays.
func (c *Client) Send(ctx context.Context, signers []solana.PrivateKey, insts ...solana.Instruction) (*ledger.Receipt, error) {
	if len(signers) == 0 {
		return nil, fmt.Errorf("no signers")
	}
	payer := signers[0].PublicKey()
	tx, err := solana.NewTransaction(insts, c.ledger.LatestBlockhash(), solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}
	keys := make(map[solana.PublicKey]solana.PrivateKey, len(signers))
	for _, s := range signers {
		keys[s.PublicKey()] = s
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if k, ok := keys[key]; ok {
			return &k
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	receipt, err := c.ledger.Execute(ctx, tx)
	if err != nil {
		entry := log.WithField("payer", payer.String()).WithError(err)
		if receipt != nil {
			entry = entry.WithField("logs", receipt.Logs)
		}
		entry.Debug("Transaction failed")
		return receipt, err
	}
	return receipt, nil
}

// Fetch returns committed account data. It serves as the account source of
// extra account resolution.
func (c *Client) Fetch(address solana.PublicKey) ([]byte, bool) {
	acct, err := c.ledger.GetAccount(context.Background(), address)
	if err != nil || acct.IsEmpty() {
		return nil, false
	}
	return acct.Data, true
}

// InitializeToken creates mint with the fee hook attached and records the
// operations wallet.
func (c *Client) InitializeToken(ctx context.Context, payer, mint solana.PrivateKey, args feehook.InitializeTokenArgs) (*ledger.Receipt, error) {
	inst, err := feehook.NewInitializeTokenInstruction(payer.PublicKey(), mint.PublicKey(), args)
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, []solana.PrivateKey{payer, mint}, inst)
}

func (c *Client) InitializeExtraAccountMetaList(ctx context.Context, payer solana.PrivateKey, mint solana.PublicKey) (*ledger.Receipt, error) {
	inst, err := feehook.NewInitializeExtraAccountMetaListInstruction(payer.PublicKey(), mint)
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, []solana.PrivateKey{payer}, inst)
}

// CreateTokenAccount creates wallet's associated account for mint unless it
// already exists.
func (c *Client) CreateTokenAccount(ctx context.Context, payer solana.PrivateKey, wallet, mint solana.PublicKey) (solana.PublicKey, error) {
	inst, err := token2022.NewCreateAssociatedTokenAccountInstruction(payer.PublicKey(), wallet, mint, true)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if _, err := c.Send(ctx, []solana.PrivateKey{payer}, inst); err != nil {
		return solana.PublicKey{}, err
	}
	ata, _, err := token2022.FindAssociatedTokenAddress(wallet, mint)
	return ata, err
}

// MintTo mints amount into wallet's associated account.
func (c *Client) MintTo(ctx context.Context, authority solana.PrivateKey, mint, wallet solana.PublicKey, amount uint64) (*ledger.Receipt, error) {
	ata, _, err := token2022.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, []solana.PrivateKey{authority}, token2022.NewMintToInstruction(amount, mint, ata, authority.PublicKey()))
}

func (c *Client) SetInstitutionWallet(ctx context.Context, owner solana.PrivateKey, institution solana.PublicKey) (*ledger.Receipt, error) {
	inst, err := feehook.NewSetInstitutionWalletInstruction(owner.PublicKey(), institution)
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, []solana.PrivateKey{owner}, inst)
}

func (c *Client) ClearInstitutionWallet(ctx context.Context, owner solana.PrivateKey) (*ledger.Receipt, error) {
	inst, err := feehook.NewClearInstitutionWalletInstruction(owner.PublicKey())
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, []solana.PrivateKey{owner}, inst)
}

// TransferInstruction builds a checked transfer between the associated
// accounts of owner and to, completed with the hook accounts of mint.
func (c *Client) TransferInstruction(ctx context.Context, owner, mint, to solana.PublicKey, amount uint64) (solana.Instruction, error) {
	m, err := c.Mint(ctx, mint)
	if err != nil {
		return nil, err
	}
	hook, ok := m.HookProgram()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTransferHookMissing, mint)
	}
	source, _, err := token2022.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, err
	}
	destination, _, err := token2022.FindAssociatedTokenAddress(to, mint)
	if err != nil {
		return nil, err
	}
	inst := token2022.NewTransferCheckedInstruction(amount, m.Decimals, source, mint, destination, owner)
	return token2022.AddTransferHookAccounts(inst, hook, c.Fetch)
}

// Transfer sends amount of mint from owner to the wallet to. The fee hook
// takes its fees from owner's account on top of amount.
func (c *Client) Transfer(ctx context.Context, owner solana.PrivateKey, mint, to solana.PublicKey, amount uint64) (*ledger.Receipt, error) {
	inst, err := c.TransferInstruction(ctx, owner.PublicKey(), mint, to, amount)
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, []solana.PrivateKey{owner}, inst)
}

// ExtraAccounts resolves the accounts the fee hook needs for a transfer
// signed by owner.
func (c *Client) ExtraAccounts(ctx context.Context, mint, owner solana.PublicKey) ([]*solana.AccountMeta, error) {
	inst, err := c.TransferInstruction(ctx, owner, mint, owner, 0)
	if err != nil {
		return nil, err
	}
	metas := inst.Accounts()
	// source, mint, destination, owner, validation ... hook program
	if len(metas) < 6 {
		return nil, nil
	}
	return metas[5 : len(metas)-1], nil
}

func (c *Client) Mint(ctx context.Context, mint solana.PublicKey) (*token2022.Mint, error) {
	acct, err := c.ledger.GetAccount(ctx, mint)
	if err != nil {
		return nil, err
	}
	return token2022.DecodeMint(acct.Data)
}

func (c *Client) Supply(ctx context.Context, mint solana.PublicKey) (uint64, error) {
	m, err := c.Mint(ctx, mint)
	if err != nil {
		return 0, err
	}
	return m.Supply, nil
}

// Balance returns the amount held by wallet's associated account for mint,
// or zero when the account does not exist.
func (c *Client) Balance(ctx context.Context, wallet, mint solana.PublicKey) (uint64, error) {
	ata, _, err := token2022.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return 0, err
	}
	acct, err := c.ledger.GetAccount(ctx, ata)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	a, err := token2022.DecodeAccount(acct.Data)
	if err != nil {
		return 0, err
	}
	return a.Amount, nil
}

// InstitutionConfig returns owner's config, or nil when none was created.
func (c *Client) InstitutionConfig(ctx context.Context, owner solana.PublicKey) (*feehook.UserInstitutionConfig, error) {
	pda, err := divisionone.GetUserInstitutionConfigPDA(owner)
	if err != nil {
		return nil, err
	}
	acct, err := c.ledger.GetAccount(ctx, pda.Address)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return feehook.DecodeUserInstitutionConfig(acct.Data)
}

func (c *Client) LinkSchool(ctx context.Context, user solana.PrivateKey, school solana.PublicKey) (*ledger.Receipt, error) {
	inst, err := walletlink.NewInitializeUserLinkInstruction(user.PublicKey(), school)
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, []solana.PrivateKey{user}, inst)
}

func (c *Client) UpdateSchool(ctx context.Context, user solana.PrivateKey, school solana.PublicKey) (*ledger.Receipt, error) {
	inst, err := walletlink.NewUpdateSchoolWalletInstruction(user.PublicKey(), school)
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, []solana.PrivateKey{user}, inst)
}

func (c *Client) RemoveSchoolLink(ctx context.Context, user solana.PrivateKey) (*ledger.Receipt, error) {
	inst, err := walletlink.NewRemoveSchoolLinkInstruction(user.PublicKey())
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, []solana.PrivateKey{user}, inst)
}

// UserLink returns user's link record, or nil when none was created.
func (c *Client) UserLink(ctx context.Context, user solana.PublicKey) (*walletlink.UserLink, error) {
	pda, err := divisionone.GetUserLinkPDA(user)
	if err != nil {
		return nil, err
	}
	acct, err := c.ledger.GetAccount(ctx, pda.Address)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return walletlink.DecodeUserLink(acct.Data)
}
