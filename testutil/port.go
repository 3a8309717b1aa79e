package testutil

import (
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	allocatedPorts = make(map[int]struct{})
	portMutex      sync.Mutex
)

// AllocateUniquePort returns a free localhost TCP port that has not been
// handed out to another test of the same process.
func AllocateUniquePort(t *testing.T) int {
	portMutex.Lock()
	defer portMutex.Unlock()

	for i := 0; i < 10; i++ {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		port := listener.Addr().(*net.TCPAddr).Port
		require.NoError(t, listener.Close())

		if _, exists := allocatedPorts[port]; exists {
			continue
		}
		allocatedPorts[port] = struct{}{}

		return port
	}

	t.Fatalf("failed to find an available port")

	return 0
}
