package solana

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyManager(t *testing.T) {
	km := NewKeyManager(t.TempDir())

	t.Run("Generate Key Pair", func(t *testing.T) {
		account, err := km.GenerateKeyPair()
		require.NoError(t, err)
		assert.NotEmpty(t, account.PublicKey.ToBase58())
		assert.Equal(t, 64, len(account.PrivateKey), "Private key should be 64 bytes")
	})

	t.Run("Encrypt and Decrypt Private Key", func(t *testing.T) {
		account, err := km.GenerateKeyPair()
		require.NoError(t, err)

		encrypted, err := km.EncryptPrivateKey(account.PrivateKey, "test-password")
		require.NoError(t, err)
		assert.NotEmpty(t, encrypted)

		decrypted, err := km.DecryptPrivateKey(encrypted, "test-password")
		require.NoError(t, err)
		assert.True(t, bytes.Equal(account.PrivateKey, decrypted), "Decrypted private key should match original")
	})

	t.Run("Save and Load Entry", func(t *testing.T) {
		account, err := km.GenerateKeyPair()
		require.NoError(t, err)

		entry, err := km.SaveKeyStoreEntry(account, "school:ASU", "test-password")
		require.NoError(t, err)
		assert.Equal(t, account.PublicKey.ToBase58(), entry.Address)

		info, err := os.Stat(filepath.Join(km.Dir, entry.Address+".json"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		loaded, err := km.LoadKeyStoreEntry(entry.Address, "test-password")
		require.NoError(t, err)
		assert.True(t, bytes.Equal(account.PrivateKey, loaded.PrivateKey))

		signer, err := km.LoadSigner(entry.Address, "test-password")
		require.NoError(t, err)
		assert.Equal(t, entry.Address, signer.PublicKey().String())
	})

	t.Run("Get Solana Address", func(t *testing.T) {
		account, err := km.GenerateKeyPair()
		require.NoError(t, err)

		address, err := km.GetSolanaAddressFromPrivateKey(account.PrivateKey)
		require.NoError(t, err)
		assert.Equal(t, account.PublicKey.ToBase58(), address)
	})

	t.Run("Error Cases", func(t *testing.T) {
		account, err := km.GenerateKeyPair()
		require.NoError(t, err)

		encrypted, err := km.EncryptPrivateKey(account.PrivateKey, "password1")
		require.NoError(t, err)
		_, err = km.DecryptPrivateKey(encrypted, "password2")
		assert.Error(t, err)

		_, err = km.LoadKeyStoreEntry("nonexistent", "password1")
		assert.ErrorIs(t, err, ErrKeyNotFound)

		_, err = km.GetSolanaAddressFromPrivateKey([]byte("invalid-key"))
		assert.Error(t, err)
	})

	t.Run("Multiple Key Generation", func(t *testing.T) {
		keys := make(map[string]bool)
		for i := 0; i < 10; i++ {
			account, err := km.GenerateKeyPair()
			require.NoError(t, err)

			address := account.PublicKey.ToBase58()
			assert.False(t, keys[address], "Generated duplicate address")
			keys[address] = true
		}
	})
}

func TestKeyManagerLabels(t *testing.T) {
	km := NewKeyManager(t.TempDir())

	ops, err := km.LoadOrCreateSigner("ops", "pw")
	require.NoError(t, err)
	again, err := km.LoadOrCreateSigner("ops", "pw")
	require.NoError(t, err)
	assert.Equal(t, ops.PublicKey(), again.PublicKey(), "existing label is reused")

	for _, label := range []string{"school:UCLA", "school:ASU"} {
		_, err := km.LoadOrCreateSigner(label, "pw")
		require.NoError(t, err)
	}

	all, err := km.List()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "ops", all[0].Label)
	assert.Equal(t, "school:ASU", all[1].Label)

	schools, err := km.FindByLabel("school:")
	require.NoError(t, err)
	assert.Len(t, schools, 2)
}
