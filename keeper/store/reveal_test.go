package store_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/entropy-keeper/keeper/config"
	"github.com/babylonlabs-io/entropy-keeper/keeper/store"
	"github.com/babylonlabs-io/entropy-keeper/testutil"
)

func newRevealStore(t *testing.T) *store.RevealStore {
	t.Helper()
	cfg := config.DefaultDBConfigWithHomePath(t.TempDir())

	db, err := cfg.GetDBBackend()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	s, err := store.NewRevealStore(db)
	require.NoError(t, err)

	return s
}

// FuzzRevealStore tests saving and reading back reveals
func FuzzRevealStore(f *testing.F) {
	testutil.AddRandomSeedsToFuzzer(f, 10)
	f.Fuzz(func(t *testing.T, seed int64) {
		t.Parallel()
		r := rand.New(rand.NewSource(seed))
		s := newRevealStore(t)

		chainID := testutil.GenRandomHexStr(r, 4)
		provider := testutil.GenRandomAddress(r)
		seq := r.Uint64()
		txHash := testutil.GenRandomHash(r)
		blockNumber := r.Uint64()

		revealed, err := s.IsRevealed(chainID, provider, seq)
		require.NoError(t, err)
		require.False(t, revealed)
		_, err = s.GetReveal(chainID, provider, seq)
		require.ErrorIs(t, err, store.ErrRevealNotFound)

		require.NoError(t, s.SaveReveal(chainID, provider, seq, txHash, blockNumber))
		revealed, err = s.IsRevealed(chainID, provider, seq)
		require.NoError(t, err)
		require.True(t, revealed)

		// the first record wins
		require.NoError(t, s.SaveReveal(chainID, provider, seq, testutil.GenRandomHash(r), blockNumber+1))
		record, err := s.GetReveal(chainID, provider, seq)
		require.NoError(t, err)
		require.Equal(t, txHash, record.TxHash)
		require.Equal(t, blockNumber, record.BlockNumber)
		require.Positive(t, record.Timestamp)

		// other chains and providers are unaffected
		revealed, err = s.IsRevealed(chainID+"x", provider, seq)
		require.NoError(t, err)
		require.False(t, revealed)
		revealed, err = s.IsRevealed(chainID, testutil.GenRandomAddress(r), seq)
		require.NoError(t, err)
		require.False(t, revealed)
	})
}

func TestRevealStorePersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(1))
	cfg := config.DefaultDBConfigWithHomePath(t.TempDir())
	provider := testutil.GenRandomAddress(r)
	txHash := testutil.GenRandomHash(r)

	db, err := cfg.GetDBBackend()
	require.NoError(t, err)
	s, err := store.NewRevealStore(db)
	require.NoError(t, err)
	require.NoError(t, s.SaveReveal("ethereum", provider, 42, txHash, 100))
	require.NoError(t, db.Close())

	db, err = cfg.GetDBBackend()
	require.NoError(t, err)
	defer db.Close()
	s, err = store.NewRevealStore(db)
	require.NoError(t, err)

	record, err := s.GetReveal("ethereum", provider, 42)
	require.NoError(t, err)
	require.Equal(t, txHash, record.TxHash)
	require.Equal(t, uint64(100), record.BlockNumber)
}
