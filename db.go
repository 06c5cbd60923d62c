package lego

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/openkvlab/boltdb"
)

// DB is a bolt-backed store of named collections. Queries always run on an
// in-memory copy of a stored collection.
type DB struct {
	db       *boltdb.DB
	maUn     MarshalUnmarshaler
	openedAt time.Time
	stats    internalStats
}

type DBOptions = boltdb.Options

// OpenDB opens or creates the store at path. Records are encoded with maUn;
// a nil maUn selects MsgpackMaUn.
func OpenDB(maUn MarshalUnmarshaler, path string, mode os.FileMode, options *DBOptions) (*DB, error) {
	if maUn == nil {
		maUn = MsgpackMaUn
	}
	bdb, err := boltdb.Open(path, mode, options)
	if err != nil {
		return nil, err
	}
	return &DB{db: bdb, maUn: maUn, openedAt: time.Now()}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the path of the underlying database file.
func (d *DB) Path() string {
	return d.db.Path()
}

func (d *DB) Begin(writable bool) (*Tx, error) {
	tx, err := d.db.Begin(writable)
	if err != nil {
		return nil, err
	}
	if writable {
		atomic.AddInt64(&d.stats.writeTx, 1)
	} else {
		atomic.AddInt64(&d.stats.readTx, 1)
	}
	atomic.AddInt64(&d.stats.openTx, 1)
	return &Tx{
		tx:        tx,
		db:        d,
		startedAt: time.Now(),
	}, nil
}

func (d *DB) View(fn func(*Tx) error) error {
	atomic.AddInt64(&d.stats.readTx, 1)
	atomic.AddInt64(&d.stats.openTx, 1)
	defer atomic.AddInt64(&d.stats.openTx, -1)
	defer d.stats.since(&d.stats.txDuration, time.Now())
	return d.db.View(func(btx *boltdb.Tx) error {
		return fn(&Tx{tx: btx, db: d, managed: true})
	})
}

func (d *DB) Update(fn func(*Tx) error) error {
	atomic.AddInt64(&d.stats.writeTx, 1)
	atomic.AddInt64(&d.stats.openTx, 1)
	defer atomic.AddInt64(&d.stats.openTx, -1)
	defer d.stats.since(&d.stats.txDuration, time.Now())
	err := d.db.Update(func(btx *boltdb.Tx) error {
		return fn(&Tx{tx: btx, db: d, managed: true})
	})
	if err != nil {
		atomic.AddInt64(&d.stats.rollbacks, 1)
		return err
	}
	atomic.AddInt64(&d.stats.commits, 1)
	return nil
}

// Stats returns a snapshot of the store statistics.
func (d *DB) Stats() Stats {
	return d.stats.snapshot(d.openedAt, d.db.Stats())
}

// ResetStats zeros every cumulative counter.
func (d *DB) ResetStats() {
	d.stats.reset()
}
