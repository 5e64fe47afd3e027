package swapstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/arkade-labs/go-ark-swap/swap"
)

const (
	boltFileName       = "swaps.db"
	boltFilePermission = 0600
)

var swapBucket = []byte("swaps")

// Bolt is a Repository backed by a single bbolt file, one key per swap id
// and the JSON payload as the value. Grounded on channeldb's single-file,
// single-bucket-per-concern layout.
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens (creating if necessary) a bbolt-backed repository rooted
// at dir.
func OpenBolt(dir string) (*Bolt, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("swapstore: create bolt dir: %w", err)
	}

	path := filepath.Join(dir, boltFileName)
	db, err := bbolt.Open(path, boltFilePermission, nil)
	if err != nil {
		return nil, fmt.Errorf("swapstore: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(swapBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("swapstore: create swap bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

func (b *Bolt) Close() error { return b.db.Close() }

func (b *Bolt) Save(_ context.Context, s *swap.Swap) error {
	data, err := marshalSwap(s)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(swapBucket).Put([]byte(s.ID), data)
	})
}

func (b *Bolt) Delete(_ context.Context, id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(swapBucket).Delete([]byte(id))
	})
}

func (b *Bolt) Clear(_ context.Context) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(swapBucket); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(swapBucket)
		return err
	})
}

func (b *Bolt) GetAll(_ context.Context, filter Filter) ([]*swap.Swap, error) {
	if filter.IsExplicitlyEmpty() {
		return nil, nil
	}

	ids := toSet(filter.IDs)
	statuses := toStatusSet(filter.Statuses)
	kinds := toKindSet(filter.Kinds)

	var out []*swap.Swap
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(swapBucket).ForEach(func(k, v []byte) error {
			s, err := unmarshalSwap(v)
			if err != nil {
				return err
			}
			if ids != nil && !ids[s.ID] {
				return nil
			}
			if statuses != nil && !statuses[s.Status] {
				return nil
			}
			if kinds != nil && !kinds[s.Kind] {
				return nil
			}
			out = append(out, s)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	applyOrder(out, filter.OrderBy)
	return out, nil
}
