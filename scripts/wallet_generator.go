package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"divisionone/pkg/config"
	"divisionone/pkg/solana"

	log "github.com/sirupsen/logrus"
)

// Generates labeled wallets into the keystore, or lists what is there.
//
//	go run scripts/wallet_generator.go -schools ASU,UCLA,USC
//	go run scripts/wallet_generator.go -labels ops,payer
//	go run scripts/wallet_generator.go -list
func main() {
	schools := flag.String("schools", "", "comma-separated school codes; each gets a school:<code> wallet")
	labels := flag.String("labels", "", "comma-separated labels for other wallets")
	list := flag.Bool("list", false, "print the keystore as label: address pairs")
	flag.Parse()

	settings, err := config.LoadSettings()
	if err != nil {
		log.Fatal("Failed to load settings: ", err)
	}
	password := os.Getenv("KEYSTORE_PASSWORD")
	if password == "" {
		log.Fatal("KEYSTORE_PASSWORD is required")
	}

	km := solana.NewKeyManager(settings.KeystoreDir)

	var wanted []string
	for _, code := range strings.Split(*schools, ",") {
		if code = strings.TrimSpace(code); code != "" {
			wanted = append(wanted, "school:"+code)
		}
	}
	for _, label := range strings.Split(*labels, ",") {
		if label = strings.TrimSpace(label); label != "" {
			wanted = append(wanted, label)
		}
	}

	for _, label := range wanted {
		signer, err := km.LoadOrCreateSigner(label, password)
		if err != nil {
			log.Fatalf("Failed to create wallet %s: %v", label, err)
		}
		log.WithField("label", label).Infof("Wallet ready: %s", signer.PublicKey())
	}

	if *list || len(wanted) == 0 {
		entries, err := km.List()
		if err != nil {
			log.Fatal("Failed to read keystore: ", err)
		}
		for _, e := range entries {
			fmt.Printf("%q: %q,\n", e.Label, e.Address)
		}
	}
}
