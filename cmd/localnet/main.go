// Command localnet runs the token flow end to end on a local ledger: it
// creates the mint with its fee hook, links a user to a school, configures
// an institution and sends a transfer, logging balances at each step.
package main

import (
	"context"
	"flag"
	"os"

	"divisionone/internal/client"
	"divisionone/internal/ledger"
	"divisionone/pkg/config"
	mcsolana "divisionone/pkg/solana"

	"github.com/gagliardetto/solana-go"
	log "github.com/sirupsen/logrus"
)

func main() {
	opts := defaultOptions()
	flag.StringVar(&opts.Name, "name", opts.Name, "token name")
	flag.StringVar(&opts.Symbol, "symbol", opts.Symbol, "token symbol")
	flag.StringVar(&opts.URI, "uri", opts.URI, "token metadata URI")
	flag.Uint64Var(&opts.MintAmount, "mint-amount", opts.MintAmount, "base units minted to the sender")
	flag.Uint64Var(&opts.TransferAmount, "amount", opts.TransferAmount, "base units transferred")
	flag.BoolVar(&opts.Sweep, "sweep", false, "sweep sender and receiver balances to the ops wallet afterwards")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	settings, err := config.LoadSettings()
	if err != nil {
		log.Fatal("Failed to load settings: ", err)
	}

	ledgerOpts := []ledger.Option{ledger.WithEventSink(ledger.EventSinkFunc(logEvents))}
	if config.DatabaseConfigured() {
		config.InitDB()
		ledgerOpts = append(ledgerOpts, ledger.WithStore(ledger.NewGormStore(config.DB)))
		log.Info("Persisting ledger state to the database")
	}
	if config.RabbitMQConfigured() {
		config.InitRabbitMQ()
		defer config.RabbitMQ.Close()
		publisher, err := config.NewPublisher()
		if err != nil {
			log.Fatal("Failed to create publisher: ", err)
		}
		defer publisher.Close()
		ledgerOpts = append(ledgerOpts, ledger.WithEventSink(config.NewEventSink(publisher)))
		log.Info("Publishing program events to RabbitMQ")
	}

	w, err := loadWallets(settings.KeystoreDir, os.Getenv("KEYSTORE_PASSWORD"))
	if err != nil {
		log.Fatal("Failed to load wallets: ", err)
	}
	if !settings.OpsWallet.IsZero() && !settings.OpsWallet.Equals(w.Ops.PublicKey()) {
		log.Warnf("OPS_WALLET %s has no key in the keystore, using %s", settings.OpsWallet, w.Ops.PublicKey())
	}

	c := client.New(ledger.New(ledgerOpts...))
	if _, err := runScenario(context.Background(), c, w, opts); err != nil {
		log.Fatal("Scenario failed: ", err)
	}
	log.Info("Flow finished")
}

func logEvents(_ context.Context, events []ledger.Event) error {
	for _, e := range events {
		log.WithFields(log.Fields{
			"signature": e.Signature,
			"slot":      e.Slot,
			"payload":   e.Payload,
		}).Infof("Event %s", e.Name)
	}
	return nil
}

// loadWallets reads the flow's wallets from the keystore, creating missing
// ones. Without a password every wallet is ephemeral.
func loadWallets(dir, password string) (*Wallets, error) {
	if password == "" {
		log.Warn("KEYSTORE_PASSWORD not set, using ephemeral wallets")
		return &Wallets{
			Payer:       solana.NewWallet().PrivateKey,
			Ops:         solana.NewWallet().PrivateKey,
			Institution: solana.NewWallet().PublicKey(),
			Sender:      solana.NewWallet().PrivateKey,
			Receiver:    solana.NewWallet().PrivateKey,
			School:      solana.NewWallet().PublicKey(),
		}, nil
	}

	km := mcsolana.NewKeyManager(dir)
	signer := func(label string) (solana.PrivateKey, error) {
		return km.LoadOrCreateSigner(label, password)
	}

	w := &Wallets{}
	var err error
	if w.Payer, err = signer("payer"); err != nil {
		return nil, err
	}
	if w.Ops, err = signer("ops"); err != nil {
		return nil, err
	}
	if w.Sender, err = signer("sender"); err != nil {
		return nil, err
	}
	if w.Receiver, err = signer("receiver"); err != nil {
		return nil, err
	}
	institution, err := signer("institution")
	if err != nil {
		return nil, err
	}
	w.Institution = institution.PublicKey()

	schools, err := km.FindByLabel("school:")
	if err != nil {
		return nil, err
	}
	if len(schools) > 0 {
		w.School = solana.MustPublicKeyFromBase58(schools[0].Address)
		log.Infof("Using %s as the school wallet", schools[0].Label)
	} else {
		school, err := signer("school:default")
		if err != nil {
			return nil, err
		}
		w.School = school.PublicKey()
	}
	return w, nil
}
