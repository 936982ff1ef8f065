package main

import (
	"context"
	"errors"
	"fmt"

	"divisionone/internal/client"
	"divisionone/internal/programs/feehook"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"
)

const airdropLamports = 10_000_000_000

// Wallets are the participants of the flow. Institution and School only
// receive, so their keys are not needed.
type Wallets struct {
	Payer       solana.PrivateKey
	Ops         solana.PrivateKey
	Institution solana.PublicKey
	Sender      solana.PrivateKey
	Receiver    solana.PrivateKey
	School      solana.PublicKey
}

type Options struct {
	Name           string
	Symbol         string
	URI            string
	Decimals       uint8
	MintAmount     uint64
	TransferAmount uint64
	Sweep          bool
}

func defaultOptions() Options {
	return Options{
		Name:           "Division One",
		Symbol:         "DIV1",
		URI:            "https://divisionone.example/token.json",
		Decimals:       9,
		MintAmount:     10_000_000_000,
		TransferAmount: 1_000_000_000,
	}
}

// Report is what the flow observed.
type Report struct {
	Mint               solana.PublicKey
	Fees               feehook.Fees
	SenderBalance      uint64
	ReceiverBalance    uint64
	OpsBalance         uint64
	InstitutionBalance uint64
	SupplyBefore       uint64
	SupplyAfter        uint64
	Swept              []client.TransferResult
}

func runScenario(ctx context.Context, c *client.Client, w *Wallets, opts Options) (*Report, error) {
	l := c.Ledger()
	for _, key := range []solana.PrivateKey{w.Payer, w.Sender, w.Receiver, w.Ops} {
		if err := l.Airdrop(ctx, key.PublicKey(), airdropLamports); err != nil {
			return nil, fmt.Errorf("airdrop to %s: %w", key.PublicKey(), err)
		}
	}
	log.Infof("Payer: %s", w.Payer.PublicKey())

	// 1. Token with hook
	mint := solana.NewWallet().PrivateKey
	if _, err := c.InitializeToken(ctx, w.Payer, mint, feehook.InitializeTokenArgs{
		Name:                 opts.Name,
		Symbol:               opts.Symbol,
		URI:                  opts.URI,
		Decimals:             opts.Decimals,
		InstitutionOpsWallet: w.Ops.PublicKey(),
	}); err != nil {
		return nil, fmt.Errorf("initialize token: %w", err)
	}
	if _, err := c.InitializeExtraAccountMetaList(ctx, w.Payer, mint.PublicKey()); err != nil {
		return nil, fmt.Errorf("initialize extra account metas: %w", err)
	}
	report := &Report{Mint: mint.PublicKey()}
	log.Infof("Token created: %s", report.Mint)

	// 2. Token accounts
	for _, wallet := range []solana.PublicKey{w.Ops.PublicKey(), w.Institution, w.Sender.PublicKey(), w.Receiver.PublicKey()} {
		ata, err := c.CreateTokenAccount(ctx, w.Payer, wallet, report.Mint)
		if err != nil {
			return nil, fmt.Errorf("create token account for %s: %w", wallet, err)
		}
		log.Infof("Token account for %s: %s", wallet, ata)
	}
	if _, err := c.MintTo(ctx, w.Payer, report.Mint, w.Sender.PublicKey(), opts.MintAmount); err != nil {
		return nil, fmt.Errorf("mint to sender: %w", err)
	}

	// 3. School link and institution
	if err := linkSchool(ctx, c, w.Sender, w.School); err != nil {
		return nil, err
	}
	if _, err := c.SetInstitutionWallet(ctx, w.Sender, w.Institution); err != nil {
		return nil, fmt.Errorf("set institution wallet: %w", err)
	}

	// 4. Transfer
	fees, err := feehook.ComputeFees(opts.TransferAmount)
	if err != nil {
		return nil, err
	}
	report.Fees = fees
	log.WithFields(log.Fields{
		"amount":          opts.TransferAmount,
		"ops_fee":         fees.Ops,
		"burn_fee":        fees.Burn,
		"institution_fee": fees.Institution,
	}).Info("Expected fees")

	if report.SupplyBefore, err = c.Supply(ctx, report.Mint); err != nil {
		return nil, err
	}
	receipt, err := c.Transfer(ctx, w.Sender, report.Mint, w.Receiver.PublicKey(), opts.TransferAmount)
	if err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}
	for _, line := range receipt.Logs {
		log.Debug(line)
	}
	log.Infof("Transfer completed: %s", receipt.Signature)

	if err := report.readBalances(ctx, c, w); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"sender":      report.SenderBalance,
		"receiver":    report.ReceiverBalance,
		"ops":         report.OpsBalance,
		"institution": report.InstitutionBalance,
		"burned":      report.SupplyBefore - report.SupplyAfter,
	}).Info("Balances after transfer")

	if opts.Sweep {
		report.Swept, err = c.Sweep(ctx, report.Mint, w.Ops.PublicKey(), []solana.PrivateKey{w.Sender, w.Receiver}, 5)
		if err != nil {
			return nil, fmt.Errorf("sweep: %w", err)
		}
		for _, res := range report.Swept {
			log.WithField("wallet", res.Wallet).Infof("Swept %d, success=%v", res.Amount, res.Success)
		}
		if err := report.readBalances(ctx, c, w); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// linkSchool creates the sender's link or moves an existing one.
func linkSchool(ctx context.Context, c *client.Client, user solana.PrivateKey, school solana.PublicKey) error {
	existing, err := c.UserLink(ctx, user.PublicKey())
	if err != nil {
		return err
	}
	if existing == nil {
		_, err = c.LinkSchool(ctx, user, school)
	} else if current, ok := existing.School(); !ok || !current.Equals(school) {
		_, err = c.UpdateSchool(ctx, user, school)
	}
	if err != nil {
		return fmt.Errorf("link school: %w", err)
	}
	log.Infof("User %s linked to school %s", user.PublicKey(), school)
	return nil
}

func (r *Report) readBalances(ctx context.Context, c *client.Client, w *Wallets) error {
	var errs []error
	balance := func(wallet solana.PublicKey) uint64 {
		b, err := c.Balance(ctx, wallet, r.Mint)
		errs = append(errs, err)
		return b
	}
	r.SenderBalance = balance(w.Sender.PublicKey())
	r.ReceiverBalance = balance(w.Receiver.PublicKey())
	r.OpsBalance = balance(w.Ops.PublicKey())
	r.InstitutionBalance = balance(w.Institution)

	supply, err := c.Supply(ctx, r.Mint)
	errs = append(errs, err)
	r.SupplyAfter = supply
	return errors.Join(errs...)
}
