package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Settings are the service options read from the environment.
type Settings struct {
	Port           string
	AllowedOrigins []string
	OpsWallet      solana.PublicKey
	SnapshotMints  []solana.PublicKey
	SnapshotCron   string
	KeystoreDir    string
	RateLimitRPS   float64
	RateLimitBurst int
}

// LoadSettings reads the environment, falling back to defaults for unset
// variables.
func LoadSettings() (*Settings, error) {
	s := &Settings{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		SnapshotCron:   getEnv("SNAPSHOT_CRON", "0 */15 * * * *"),
		KeystoreDir:    getEnv("KEYSTORE_DIR", "keystore"),
		RateLimitRPS:   10,
		RateLimitBurst: 20,
	}

	if v := os.Getenv("OPS_WALLET"); v != "" {
		key, err := solana.PublicKeyFromBase58(v)
		if err != nil {
			return nil, fmt.Errorf("invalid OPS_WALLET: %w", err)
		}
		s.OpsWallet = key
	}

	for _, v := range splitList(os.Getenv("SNAPSHOT_MINTS")) {
		key, err := solana.PublicKeyFromBase58(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SNAPSHOT_MINTS entry %q: %w", v, err)
		}
		s.SnapshotMints = append(s.SnapshotMints, key)
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil || rps <= 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_RPS %q", v)
		}
		s.RateLimitRPS = rps
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil || burst <= 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_BURST %q", v)
		}
		s.RateLimitBurst = burst
	}
	return s, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
