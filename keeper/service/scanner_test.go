package service_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/babylonlabs-io/entropy-keeper/keeper/service"
	"github.com/babylonlabs-io/entropy-keeper/testutil"
	"github.com/babylonlabs-io/entropy-keeper/testutil/mocks"
	"github.com/babylonlabs-io/entropy-keeper/types"
)

func runScanner(t *testing.T, scanner *service.BlockRangeScanner) (<-chan types.BlockRange, <-chan error) {
	t.Helper()
	out := make(chan types.BlockRange, 10)
	errCh := make(chan error, 1)
	go func() {
		errCh <- scanner.Run(context.Background(), out)
	}()

	return out, errCh
}

func requireContiguous(t *testing.T, ranges []types.BlockRange) {
	t.Helper()
	for i, br := range ranges {
		require.True(t, br.IsValid(), "range %d is inverted: %s", i, br)
		require.Positive(t, br.Len())
		if i > 0 {
			require.Equal(t, ranges[i-1].To+1, br.From, "range %d does not follow %s: %s", i, ranges[i-1], br)
		}
	}
}

func TestScannerBacklogThenLive(t *testing.T) {
	t.Parallel()
	cfg := newTestChainConfig()
	cfg.BacklogWindow = 10_000
	cfg.BacklogBatchSize = 100

	heads := make(chan uint64)
	var headsOut <-chan uint64 = heads

	ctl := gomock.NewController(t)
	mockClient := mocks.NewMockChainClient(ctl)
	mockClient.EXPECT().GetBlockNumber(gomock.Any(), types.BlockStatusLatest).Return(uint64(50_000), nil).Times(1)
	mockClient.EXPECT().WatchBlocks(gomock.Any()).Return(headsOut, nil).Times(1)

	scanner := service.NewBlockRangeScanner(testChainID, mockClient, cfg, testutil.GetTestLogger(t))
	out, errCh := runScanner(t, scanner)

	var ranges []types.BlockRange
	for i := 0; i < 100; i++ {
		ranges = append(ranges, <-out)
	}
	for _, br := range ranges {
		require.Equal(t, uint64(100), br.Len())
	}
	require.Equal(t, uint64(40_000), ranges[0].From)
	require.Equal(t, uint64(49_999), ranges[99].To)
	require.Equal(t, uint64(50_000), scanner.LastSafeBlock())

	heads <- 50_005
	require.Equal(t, types.NewBlockRange(50_000, 50_005), <-out)
	// a head that does not advance the safe block emits nothing
	heads <- 50_003
	heads <- 50_010
	require.Equal(t, types.NewBlockRange(50_006, 50_010), <-out)
	close(heads)

	for br := range out {
		ranges = append(ranges, br)
	}
	require.Len(t, ranges, 100)
	require.ErrorIs(t, <-errCh, service.ErrBlockStreamClosed)
}

func TestScannerHoldsLiveRangesUntilBacklogIsDone(t *testing.T) {
	t.Parallel()
	cfg := newTestChainConfig()
	cfg.BacklogWindow = 50
	cfg.BacklogBatchSize = 10
	cfg.RevealDelayBlocks = 3
	cfg.ConfirmationDepth = 2

	heads := make(chan uint64, 3)
	heads <- 1_010
	heads <- 1_020
	var headsOut <-chan uint64 = heads

	ctl := gomock.NewController(t)
	mockClient := mocks.NewMockChainClient(ctl)
	mockClient.EXPECT().GetBlockNumber(gomock.Any(), types.BlockStatusLatest).Return(uint64(1_005), nil).Times(1)
	mockClient.EXPECT().WatchBlocks(gomock.Any()).Return(headsOut, nil).Times(1)

	scanner := service.NewBlockRangeScanner(testChainID, mockClient, cfg, testutil.GetTestLogger(t))
	out := make(chan types.BlockRange)
	errCh := make(chan error, 1)
	go func() {
		errCh <- scanner.Run(context.Background(), out)
	}()

	var ranges []types.BlockRange
	for i := 0; i < 5; i++ {
		ranges = append(ranges, <-out)
	}
	require.Equal(t, uint64(950), ranges[0].From)
	require.Equal(t, uint64(999), ranges[4].To)

	// the heads seen while the backlog was running are emitted after it
	for ranges[len(ranges)-1].To < 1_015 {
		ranges = append(ranges, <-out)
	}
	require.Equal(t, uint64(1_000), ranges[5].From)
	require.Equal(t, uint64(1_015), ranges[len(ranges)-1].To)
	requireContiguous(t, ranges)

	close(heads)
	for range out {
	}
	require.ErrorIs(t, <-errCh, service.ErrBlockStreamClosed)
}

func TestScannerStopsOnShutdown(t *testing.T) {
	t.Parallel()
	cfg := newTestChainConfig()

	heads := make(chan uint64)
	var headsOut <-chan uint64 = heads

	ctx, cancel := context.WithCancel(context.Background())

	ctl := gomock.NewController(t)
	mockClient := mocks.NewMockChainClient(ctl)
	mockClient.EXPECT().GetBlockNumber(gomock.Any(), gomock.Any()).Return(uint64(50_000), nil).Times(1)
	mockClient.EXPECT().WatchBlocks(gomock.Any()).
		DoAndReturn(func(_ context.Context) (<-chan uint64, error) {
			cancel()

			return headsOut, nil
		}).Times(1)

	scanner := service.NewBlockRangeScanner(testChainID, mockClient, cfg, testutil.GetTestLogger(t))
	// nobody reads out, so the backlog blocks on its first batch
	out := make(chan types.BlockRange)
	errCh := make(chan error, 1)
	go func() {
		errCh <- scanner.Run(ctx, out)
	}()

	require.NoError(t, <-errCh)
	_, ok := <-out
	require.False(t, ok)
}

func TestScannerSafeBlockRetriesRPC(t *testing.T) {
	t.Parallel()
	cfg := newTestChainConfig()
	cfg.ConfirmedBlockStatus = "finalized"
	cfg.RevealDelayBlocks = 10

	ctl := gomock.NewController(t)
	mockClient := mocks.NewMockChainClient(ctl)
	gomock.InOrder(
		mockClient.EXPECT().GetBlockNumber(gomock.Any(), types.BlockStatusFinalized).Return(uint64(0), errors.New("timeout")).Times(2),
		mockClient.EXPECT().GetBlockNumber(gomock.Any(), types.BlockStatusFinalized).Return(uint64(5), nil).Times(1),
	)

	scanner := service.NewBlockRangeScanner(testChainID, mockClient, cfg, testutil.GetTestLogger(t))
	safe, err := scanner.SafeBlock(context.Background())
	require.NoError(t, err)
	// saturates at genesis
	require.Equal(t, uint64(0), safe)
}

// FuzzScannerRangesAreContiguous checks that whatever the backlog settings
// and the sequence of heads, emitted ranges never overlap, skip or invert
func FuzzScannerRangesAreContiguous(f *testing.F) {
	testutil.AddRandomSeedsToFuzzer(f, 10)
	f.Fuzz(func(t *testing.T, seed int64) {
		t.Parallel()
		r := rand.New(rand.NewSource(seed))

		cfg := newTestChainConfig()
		cfg.BacklogWindow = uint64(r.Intn(5_000))
		cfg.BacklogBatchSize = uint64(r.Intn(300)) + 1
		cfg.RevealDelayBlocks = uint64(r.Intn(10))
		cfg.ConfirmationDepth = uint64(r.Intn(10))
		startHead := uint64(r.Intn(10_000))

		numHeads := r.Intn(50)
		headList := make([]uint64, 0, numHeads)
		head := startHead
		for i := 0; i < numHeads; i++ {
			// mostly forward, sometimes a reorg to a lower head
			delta := int64(r.Intn(20)) - 3
			if delta < 0 && uint64(-delta) > head {
				head = 0
			} else {
				head = uint64(int64(head) + delta)
			}
			headList = append(headList, head)
		}

		heads := make(chan uint64)
		var headsOut <-chan uint64 = heads

		ctl := gomock.NewController(t)
		mockClient := mocks.NewMockChainClient(ctl)
		mockClient.EXPECT().GetBlockNumber(gomock.Any(), types.BlockStatusLatest).Return(startHead, nil).Times(1)
		mockClient.EXPECT().WatchBlocks(gomock.Any()).Return(headsOut, nil).Times(1)

		scanner := service.NewBlockRangeScanner(testChainID, mockClient, cfg, testutil.GetTestLogger(t))
		out, errCh := runScanner(t, scanner)

		go func() {
			for _, h := range headList {
				heads <- h
			}
			close(heads)
		}()

		var ranges []types.BlockRange
		for br := range out {
			ranges = append(ranges, br)
		}
		require.ErrorIs(t, <-errCh, service.ErrBlockStreamClosed)
		requireContiguous(t, ranges)
	})
}
