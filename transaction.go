package lego

import (
	"sync/atomic"
	"time"

	"github.com/openkvlab/boltdb"
)

// Tx is a store transaction. Transactions handed to View and Update
// callbacks are managed and must not be committed or rolled back.
type Tx struct {
	tx        *boltdb.Tx
	db        *DB
	managed   bool
	closed    bool
	startedAt time.Time
}

func (tx *Tx) Writable() bool {
	return tx.tx.Writable()
}

func (tx *Tx) Commit() error {
	if tx.managed {
		return ErrManagedTx
	}
	if err := tx.tx.Commit(); err != nil {
		// bolt closes a writable tx whose commit fails but leaves a
		// read-only one open.
		_ = tx.tx.Rollback()
		tx.finish(&tx.db.stats.rollbacks)
		return err
	}
	tx.finish(&tx.db.stats.commits)
	return nil
}

// Rollback discards the transaction. Calling it after Commit is a no-op,
// so it can be deferred.
func (tx *Tx) Rollback() error {
	if tx.managed {
		return ErrManagedTx
	}
	if tx.closed {
		return nil
	}
	if err := tx.tx.Rollback(); err != nil {
		return err
	}
	tx.finish(&tx.db.stats.rollbacks)
	return nil
}

func (tx *Tx) finish(counter *int64) {
	tx.closed = true
	atomic.AddInt64(counter, 1)
	atomic.AddInt64(&tx.db.stats.openTx, -1)
	tx.db.stats.since(&tx.db.stats.txDuration, tx.startedAt)
}

// Query loads the named collection and runs ops against it.
func (tx *Tx) Query(name string, ops ...Op) (Collection, error) {
	atomic.AddInt64(&tx.db.stats.queries, 1)
	c, err := tx.LoadCollection(name)
	if err != nil {
		atomic.AddInt64(&tx.db.stats.queryErrors, 1)
		return nil, err
	}
	defer tx.db.stats.since(&tx.db.stats.queryDuration, time.Now())
	result, err := Query(c, ops...)
	if err != nil {
		atomic.AddInt64(&tx.db.stats.queryErrors, 1)
		return nil, err
	}
	return result, nil
}
