package config

import (
	"context"
	"errors"
	"testing"

	"divisionone/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		for _, key := range []string{"PORT", "ALLOWED_ORIGINS", "OPS_WALLET", "SNAPSHOT_MINTS", "SNAPSHOT_CRON", "KEYSTORE_DIR", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST"} {
			t.Setenv(key, "")
		}
		s, err := LoadSettings()
		require.NoError(t, err)
		assert.Equal(t, "8080", s.Port)
		assert.Empty(t, s.AllowedOrigins)
		assert.True(t, s.OpsWallet.IsZero())
		assert.Equal(t, "0 */15 * * * *", s.SnapshotCron)
		assert.Equal(t, "keystore", s.KeystoreDir)
		assert.Equal(t, 10.0, s.RateLimitRPS)
		assert.Equal(t, 20, s.RateLimitBurst)
	})

	t.Run("From environment", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, ,http://localhost:3001")
		t.Setenv("OPS_WALLET", "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
		t.Setenv("SNAPSHOT_MINTS", "So11111111111111111111111111111111111111112")
		t.Setenv("RATE_LIMIT_RPS", "2.5")
		t.Setenv("RATE_LIMIT_BURST", "5")

		s, err := LoadSettings()
		require.NoError(t, err)
		assert.Equal(t, "9090", s.Port)
		assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3001"}, s.AllowedOrigins)
		assert.Equal(t, "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", s.OpsWallet.String())
		require.Len(t, s.SnapshotMints, 1)
		assert.Equal(t, 2.5, s.RateLimitRPS)
		assert.Equal(t, 5, s.RateLimitBurst)
	})

	t.Run("Invalid values", func(t *testing.T) {
		for key, value := range map[string]string{
			"OPS_WALLET":       "not-a-key",
			"SNAPSHOT_MINTS":   "So11111111111111111111111111111111111111112,bad",
			"RATE_LIMIT_RPS":   "-1",
			"RATE_LIMIT_BURST": "zero",
		} {
			t.Run(key, func(t *testing.T) {
				t.Setenv(key, value)
				_, err := LoadSettings()
				assert.Error(t, err)
			})
		}
	})
}

type recordingPublisher struct {
	queues []string
	fail   error
}

func (p *recordingPublisher) Publish(_ context.Context, queueName string, _ interface{}) error {
	if p.fail != nil {
		return p.fail
	}
	p.queues = append(p.queues, queueName)
	return nil
}

func TestEventSink(t *testing.T) {
	events := []ledger.Event{
		{Signature: "sig", Name: "InstitutionWalletSet"},
		{Signature: "sig", Name: "FeesDistributed"},
	}

	t.Run("Every event reaches every queue", func(t *testing.T) {
		p := &recordingPublisher{}
		require.NoError(t, NewEventSink(p).Publish(context.Background(), events))
		assert.Equal(t, []string{
			QueueProgramEvents, QueueProgramEventsStream,
			QueueProgramEvents, QueueProgramEventsStream,
		}, p.queues)
	})

	t.Run("Publish failure is reported", func(t *testing.T) {
		boom := errors.New("channel closed")
		err := NewEventSink(&recordingPublisher{fail: boom}).Publish(context.Background(), events)
		assert.ErrorIs(t, err, boom)
	})
}
