package store

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/ethereum/go-ethereum/common"
	"github.com/lightningnetwork/lnd/kvdb"
)

var (
	// mapping: chain_id || provider || sequence_number -> reveal record
	revealBucketName = []byte("reveals")
)

// revealRecordSize is tx hash (32) || block number (8) || timestamp (8)
const revealRecordSize = common.HashLength + 8 + 8

// RevealRecord is what the keeper remembers about a request it revealed.
type RevealRecord struct {
	TxHash      common.Hash
	BlockNumber uint64
	// Timestamp is the unix millisecond time the record was written
	Timestamp int64
}

func (r *RevealRecord) marshal() []byte {
	buf := make([]byte, 0, revealRecordSize)
	buf = append(buf, r.TxHash.Bytes()...)
	buf = binary.BigEndian.AppendUint64(buf, r.BlockNumber)
	buf = binary.BigEndian.AppendUint64(buf, uint64(r.Timestamp))

	return buf
}

func unmarshalRevealRecord(v []byte) (*RevealRecord, error) {
	if len(v) != revealRecordSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidRevealRecord, revealRecordSize, len(v))
	}

	return &RevealRecord{
		TxHash:      common.BytesToHash(v[:common.HashLength]),
		BlockNumber: binary.BigEndian.Uint64(v[common.HashLength : common.HashLength+8]),
		Timestamp:   int64(binary.BigEndian.Uint64(v[common.HashLength+8:])),
	}, nil
}

// RevealStore records which requests were revealed so that blocks scanned
// again after a restart do not lead to duplicate transactions.
type RevealStore struct {
	db kvdb.Backend
}

// NewRevealStore returns a new store backed by db
func NewRevealStore(db kvdb.Backend) (*RevealStore, error) {
	s := &RevealStore{db}
	if err := s.initBuckets(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *RevealStore) initBuckets() error {
	return kvdb.Batch(s.db, func(tx kvdb.RwTx) error {
		_, err := tx.CreateTopLevelBucket(revealBucketName)

		return err
	})
}

// getKey key is (chainID || provider || sequence number)
func getKey(chainID string, provider common.Address, seq uint64) []byte {
	key := make([]byte, 0, len(chainID)+common.AddressLength+8)
	key = append(key, chainID...)
	key = append(key, provider.Bytes()...)
	key = binary.BigEndian.AppendUint64(key, seq)

	return key
}

// SaveReveal records the reveal of the given request. Saving a request
// that is already recorded is a no-op and keeps the first record.
func (s *RevealStore) SaveReveal(
	chainID string,
	provider common.Address,
	seq uint64,
	txHash common.Hash,
	blockNumber uint64,
) error {
	key := getKey(chainID, provider, seq)
	record := &RevealRecord{
		TxHash:      txHash,
		BlockNumber: blockNumber,
		Timestamp:   time.Now().UnixMilli(),
	}

	return s.db.Update(func(tx walletdb.ReadWriteTx) error {
		bucket := tx.ReadWriteBucket(revealBucketName)
		if bucket == nil {
			return ErrCorruptedRevealDB
		}

		if bucket.Get(key) != nil {
			return nil
		}

		return bucket.Put(key, record.marshal())
	}, func() {})
}

// GetReveal returns the record of the given request or ErrRevealNotFound.
func (s *RevealStore) GetReveal(chainID string, provider common.Address, seq uint64) (*RevealRecord, error) {
	key := getKey(chainID, provider, seq)
	var record *RevealRecord

	err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(revealBucketName)
		if bucket == nil {
			return ErrCorruptedRevealDB
		}

		v := bucket.Get(key)
		if v == nil {
			return ErrRevealNotFound
		}

		var err error
		record, err = unmarshalRevealRecord(v)

		return err
	}, func() {})

	if err != nil {
		return nil, err
	}

	return record, nil
}

func (s *RevealStore) IsRevealed(chainID string, provider common.Address, seq uint64) (bool, error) {
	key := getKey(chainID, provider, seq)
	var found bool

	err := s.db.View(func(tx kvdb.RTx) error {
		bucket := tx.ReadBucket(revealBucketName)
		if bucket == nil {
			return ErrCorruptedRevealDB
		}
		found = bucket.Get(key) != nil

		return nil
	}, func() {})

	return found, err
}
