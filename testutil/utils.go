package testutil

import (
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/babylonlabs-io/entropy-keeper/testutil/mocks"
	"github.com/babylonlabs-io/entropy-keeper/types"
)

// PrepareMockedChainClient returns a client mock that can be closed any
// number of times.
func PrepareMockedChainClient(t *testing.T) *mocks.MockChainClient {
	ctl := gomock.NewController(t)
	mockClient := mocks.NewMockChainClient(ctl)
	mockClient.EXPECT().Close().Return(nil).AnyTimes()

	return mockClient
}

// PrepareMockedChainClientWithCommitment returns a client mock that serves
// commitment exactly once.
func PrepareMockedChainClientWithCommitment(t *testing.T, commitment *types.ProviderCommitment) *mocks.MockChainClient {
	mockClient := PrepareMockedChainClient(t)
	mockClient.EXPECT().GetProviderCommitment(gomock.Any()).Return(commitment, nil).Times(1)

	return mockClient
}
