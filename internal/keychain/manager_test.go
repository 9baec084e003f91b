package keychain

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRoundTrip(t *testing.T) {
	m := NewWithRing(keyring.NewArrayKeyring(nil))

	_, err := m.Load(KeyDSN)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Save(KeyDSN, "postgres://u:p@localhost/app"))
	require.NoError(t, m.Save(KeyRemoteToken, " tok \n"))

	dsn, err := m.Load(KeyDSN)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost/app", dsn)

	tok, err := m.Load(KeyRemoteToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	require.NoError(t, m.ClearAll())
	_, err = m.Load(KeyRemoteToken)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, m.Delete(KeyDSN), "deleting a missing key")
}

func TestEmptyValueIsNotFound(t *testing.T) {
	m := NewWithRing(keyring.NewArrayKeyring([]keyring.Item{{Key: string(KeyDSN), Data: []byte("  ")}}))
	_, err := m.Load(KeyDSN)
	assert.ErrorIs(t, err, ErrNotFound)
}
