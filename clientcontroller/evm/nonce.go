package evm

import (
	"context"
	"sync"
)

// nonceCache hands out the nonce of the next transaction. The cache is
// only advanced by a successful broadcast, so a failed send reuses the
// same nonce.
type nonceCache struct {
	mu     sync.Mutex
	next   uint64
	cached bool
}

func (n *nonceCache) get(ctx context.Context, fetch func(ctx context.Context) (uint64, error)) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.cached {
		nonce, err := fetch(ctx)
		if err != nil {
			return 0, err
		}
		n.next = nonce
		n.cached = true
	}

	return n.next, nil
}

// advance records that a transaction with nonce was broadcast.
func (n *nonceCache) advance(nonce uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cached && nonce >= n.next {
		n.next = nonce + 1
	}
}

func (n *nonceCache) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.cached = false
}
