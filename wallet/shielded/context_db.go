package shielded

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	bolt "go.etcd.io/bbolt"

	"github.com/knowable-run/namwallet/client/types"
	"github.com/knowable-run/namwallet/wallet"
)

const ContextFileName = "shielded.db"

var (
	heightBucket  = []byte("synced_height")
	balanceBucket = []byte("balances")
)

// ContextDB is the local shielded context: per viewing key the last scanned
// block height and the balance accumulated from the scanned notes.
type ContextDB struct {
	db *bolt.DB
}

func OpenContext(path string) (*ContextDB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: opening shielded context %s: %w", wallet.ErrStorageFailure, path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{heightBucket, balanceBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: initializing shielded context: %w", wallet.ErrStorageFailure, err)
	}
	return &ContextDB{db: db}, nil
}

func (c *ContextDB) Close() error {
	return c.db.Close()
}

// SyncedHeight returns the last block height scanned for the viewing key, 0 if never scanned.
func (c *ContextDB) SyncedHeight(viewingKey string) (uint64, error) {
	var height uint64
	err := c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(heightBucket).Get([]byte(viewingKey)); len(v) == 8 {
			height = binary.BigEndian.Uint64(v)
		}
		return nil
	})
	return height, err
}

// Balances returns raw balances per token of the viewing key.
func (c *ContextDB) Balances(viewingKey string) (map[types.Address]string, error) {
	res := map[types.Address]string{}
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(balanceBucket).Get([]byte(viewingKey))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &res)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: reading balances: %w", wallet.ErrStorageFailure, err)
	}
	return res, nil
}

/*
Apply adds the balance changes of the scan to the stored balances and moves
the synced height to the end of the scanned range. Scans must be applied in
order, a scan not starting right after the synced height is rejected.
*/
func (c *ContextDB) Apply(viewingKey string, scan *types.NoteScan) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		key := []byte(viewingKey)
		hb := tx.Bucket(heightBucket)
		var synced uint64
		if v := hb.Get(key); len(v) == 8 {
			synced = binary.BigEndian.Uint64(v)
		}
		if synced != 0 && scan.FromHeight != synced+1 {
			return fmt.Errorf("scan starts at height %d, expected %d", scan.FromHeight, synced+1)
		}

		bb := tx.Bucket(balanceBucket)
		balances := map[types.Address]string{}
		if v := bb.Get(key); v != nil {
			if err := json.Unmarshal(v, &balances); err != nil {
				return fmt.Errorf("decoding stored balances: %w", err)
			}
		}
		for token, delta := range scan.Deltas {
			d, err := decimal.NewFromString(delta)
			if err != nil {
				return fmt.Errorf("invalid balance change %q of token %s: %w", delta, token, err)
			}
			cur := decimal.Zero
			if s, ok := balances[token]; ok {
				if cur, err = decimal.NewFromString(s); err != nil {
					return fmt.Errorf("invalid stored balance %q of token %s: %w", s, token, err)
				}
			}
			balances[token] = cur.Add(d).String()
		}
		b, err := json.Marshal(balances)
		if err != nil {
			return err
		}
		if err := bb.Put(key, b); err != nil {
			return err
		}
		return hb.Put(key, binary.BigEndian.AppendUint64(nil, scan.ToHeight))
	})
}
