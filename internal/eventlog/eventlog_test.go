package eventlog

import (
	"encoding/json"
	"testing"
	"time"

	"divisionone/internal/ledger"
	"divisionone/internal/programs/feehook"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("Published ledger event", func(t *testing.T) {
		body, err := json.Marshal(ledger.Event{
			Signature: "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW",
			Slot:      7,
			BlockTime: 1_700_000_000,
			ProgramID: "BovX5mM2",
			Name:      feehook.EventFeesDistributed,
			Payload:   feehook.FeesDistributed{Amount: 1000, Fees: feehook.Fees{Ops: 5, Burn: 5, Institution: 20}},
		})
		require.NoError(t, err)

		row, err := Decode(body)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), row.Slot)
		assert.Equal(t, feehook.EventFeesDistributed, row.Name)
		assert.Equal(t, time.Unix(1_700_000_000, 0).UTC(), row.BlockTime)

		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(row.Payload), &payload))
		assert.EqualValues(t, 1000, payload["amount"])
		assert.EqualValues(t, 20, payload["institution_fee"])
	})

	t.Run("Missing payload stores null", func(t *testing.T) {
		row, err := Decode([]byte(`{"signature":"s","name":"n"}`))
		require.NoError(t, err)
		assert.Equal(t, "null", row.Payload)
	})

	t.Run("Rejects garbage", func(t *testing.T) {
		_, err := Decode([]byte("{"))
		assert.ErrorIs(t, err, ErrInvalidMessage)

		_, err = Decode([]byte(`{"slot":1}`))
		assert.ErrorIs(t, err, ErrInvalidMessage)
	})
}

func TestFilterLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, Filter{}.limit())
	assert.Equal(t, 10, Filter{Limit: 10}.limit())
	assert.Equal(t, MaxLimit, Filter{Limit: 10_000}.limit())
}
