package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	bs, err := OpenBoltStore(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bs.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"bolt":   bs,
	}
}

func TestStore_EmptySession(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			// when
			_, accessErr := s.AccessToken()
			_, refreshErr := s.RefreshToken()

			// then
			assert.ErrorIs(t, accessErr, ErrNoToken)
			assert.ErrorIs(t, refreshErr, ErrNoToken)
			assert.False(t, s.IsAuthenticated())
		})
	}
}

func TestStore_SetAndOverwrite(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			// given
			require.NoError(t, s.SetAccessToken("A1"))
			require.NoError(t, s.SetRefreshToken("R1"))

			// when
			require.NoError(t, s.SetAccessToken("A2"))

			// then
			at, err := s.AccessToken()
			require.NoError(t, err)
			assert.Equal(t, "A2", at)
			rt, err := s.RefreshToken()
			require.NoError(t, err)
			assert.Equal(t, "R1", rt)
			assert.True(t, s.IsAuthenticated())
		})
	}
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			// given
			require.NoError(t, s.SetAccessToken("A"))
			require.NoError(t, s.SetRefreshToken("R"))

			// when
			require.NoError(t, s.Clear())
			require.NoError(t, s.Clear())

			// then
			assert.False(t, s.IsAuthenticated())
			_, err := s.RefreshToken()
			assert.ErrorIs(t, err, ErrNoToken)
		})
	}
}

func TestStore_RefreshOnlyIsNotAuthenticated(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			// given
			require.NoError(t, s.SetRefreshToken("R"))

			// then
			assert.False(t, s.IsAuthenticated())
		})
	}
}

func TestBoltStore_SurvivesReopen(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "session.db")
	s, err := OpenBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SetAccessToken("A"))
	require.NoError(t, s.SetRefreshToken("R"))
	require.NoError(t, s.Close())

	// when
	reopened, err := OpenBoltStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	// then
	at, err := reopened.AccessToken()
	require.NoError(t, err)
	assert.Equal(t, "A", at)
	rt, err := reopened.RefreshToken()
	require.NoError(t, err)
	assert.Equal(t, "R", rt)
}
