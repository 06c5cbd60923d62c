package lego

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/openkvlab/boltdb"
	boltdb_errors "github.com/openkvlab/boltdb/errors"
)

// Every collection is a bucket nested under collectionsBucket. Records are
// keyed by a big-endian sequence number so a cursor walks them in insertion
// order.
var collectionsBucket = []byte("collections")

func (tx *Tx) collectionBucket(name string) (*boltdb.Bucket, error) {
	if name == "" {
		return nil, ErrEmptyCollectionName
	}
	root := tx.tx.Bucket(collectionsBucket)
	if root == nil {
		return nil, ErrCollectionNotFound(name)
	}
	bucket := root.Bucket([]byte(name))
	if bucket == nil {
		return nil, ErrCollectionNotFound(name)
	}
	return bucket, nil
}

func (tx *Tx) writableRoot(name string) (*boltdb.Bucket, error) {
	if name == "" {
		return nil, ErrEmptyCollectionName
	}
	if !tx.tx.Writable() {
		return nil, ErrTxNotWritable
	}
	return tx.tx.CreateBucketIfNotExists(collectionsBucket)
}

// SaveCollection stores c under name, replacing any collection already
// stored there.
func (tx *Tx) SaveCollection(name string, c Collection) error {
	root, err := tx.writableRoot(name)
	if err != nil {
		return err
	}
	if err := root.DeleteBucket([]byte(name)); err != nil && !errors.Is(err, boltdb_errors.ErrBucketNotFound) {
		return err
	}
	bucket, err := root.CreateBucket([]byte(name))
	if err != nil {
		return err
	}
	if err := tx.putRecords(bucket, c); err != nil {
		return err
	}
	atomic.AddInt64(&tx.db.stats.saved, 1)
	return nil
}

// AppendRecords adds records to the end of the named collection, creating
// it if needed.
func (tx *Tx) AppendRecords(name string, records ...Record) error {
	root, err := tx.writableRoot(name)
	if err != nil {
		return err
	}
	bucket, err := root.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return err
	}
	return tx.putRecords(bucket, records)
}

func (tx *Tx) putRecords(bucket *boltdb.Bucket, records []Record) error {
	defer tx.db.stats.since(&tx.db.stats.saveDuration, time.Now())
	for _, r := range records {
		if r == nil {
			r = Record{}
		}
		data, err := tx.db.maUn.Marshal(r)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCannotMarshal(r), err)
		}
		id, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], id)
		if err := bucket.Put(key[:], data); err != nil {
			return err
		}
		atomic.AddInt64(&tx.db.stats.written, 1)
	}
	return nil
}

// LoadCollection decodes the named collection in insertion order.
func (tx *Tx) LoadCollection(name string) (Collection, error) {
	bucket, err := tx.collectionBucket(name)
	if err != nil {
		return nil, err
	}
	defer tx.db.stats.since(&tx.db.stats.loadDuration, time.Now())
	result := make(Collection, 0)
	err = bucket.ForEach(func(k, v []byte) error {
		var r Record
		if err := tx.db.maUn.Unmarshal(v, &r); err != nil {
			return ErrCorruptRecord(name, k, err)
		}
		if r == nil {
			r = Record{}
		}
		result = append(result, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	atomic.AddInt64(&tx.db.stats.read, int64(len(result)))
	return result, nil
}

// DeleteCollection removes the named collection.
func (tx *Tx) DeleteCollection(name string) error {
	root, err := tx.writableRoot(name)
	if err != nil {
		return err
	}
	if err := root.DeleteBucket([]byte(name)); err != nil {
		if errors.Is(err, boltdb_errors.ErrBucketNotFound) {
			return ErrCollectionNotFound(name)
		}
		return err
	}
	atomic.AddInt64(&tx.db.stats.deleted, 1)
	return nil
}

// Collections lists the stored collection names in byte order.
func (tx *Tx) Collections() ([]string, error) {
	names := make([]string, 0)
	root := tx.tx.Bucket(collectionsBucket)
	if root == nil {
		return names, nil
	}
	err := root.ForEach(func(k, v []byte) error {
		if v == nil {
			names = append(names, string(k))
		}
		return nil
	})
	return names, err
}
