package lego

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/openkvlab/boltdb"
)

// Stats contains collection store statistics. All counters are cumulative
// since the store was opened (or since the last ResetStats call).
//
// Stats is safe for concurrent access - call db.Stats() to get a snapshot.
type Stats struct {
	// OpenedAt is when the store was opened.
	OpenedAt time.Time

	// Transaction counts
	ReadTxTotal     int64 // Total read-only transactions started
	WriteTxTotal    int64 // Total write transactions started
	TxCommitTotal   int64 // Successful commits
	TxRollbackTotal int64 // Rollbacks (explicit or implicit)
	TxOpenCount     int64 // Currently open transactions

	// Record counts
	RecordsWritten int64 // Records written by SaveCollection and AppendRecords
	RecordsRead    int64 // Records decoded by LoadCollection and Query

	// Query counts
	QueriesTotal int64 // Total Tx.Query calls
	QueryErrors  int64 // Tx.Query calls that returned an error

	// Collection counts
	CollectionsSaved   int64 // SaveCollection calls
	CollectionsDeleted int64 // DeleteCollection calls that removed a collection

	// Timing (cumulative durations)
	TxDuration    time.Duration // Total time spent in managed transactions
	QueryDuration time.Duration // Total time spent running queries
	LoadDuration  time.Duration // Total time spent decoding collections
	SaveDuration  time.Duration // Total time spent encoding collections

	// BoltDB is the underlying BoltDB statistics (passthrough).
	BoltDB boltdb.Stats
}

// String returns one line per area: transactions, records, queries,
// collections and the bolt file.
func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "lego store opened %s\n", s.OpenedAt.Format(time.RFC3339))
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	statsLine(w, "transactions",
		"read", formatCount(s.ReadTxTotal),
		"write", formatCount(s.WriteTxTotal),
		"commits", formatCount(s.TxCommitTotal),
		"rollbacks", formatCount(s.TxRollbackTotal),
		"open", formatCount(s.TxOpenCount),
		"time", roundDuration(s.TxDuration))
	statsLine(w, "records",
		"written", formatCount(s.RecordsWritten),
		"read", formatCount(s.RecordsRead),
		"save time", roundDuration(s.SaveDuration),
		"load time", roundDuration(s.LoadDuration))
	statsLine(w, "queries",
		"total", formatCount(s.QueriesTotal),
		"errors", formatCount(s.QueryErrors),
		"time", roundDuration(s.QueryDuration))
	statsLine(w, "collections",
		"saved", formatCount(s.CollectionsSaved),
		"deleted", formatCount(s.CollectionsDeleted))
	statsLine(w, "bolt",
		"free pages", strconv.Itoa(s.BoltDB.FreePageN),
		"pending pages", strconv.Itoa(s.BoltDB.PendingPageN),
		"free bytes", formatCount(int64(s.BoltDB.FreeAlloc)),
		"freelist bytes", formatCount(int64(s.BoltDB.FreelistInuse)),
		"read tx", strconv.Itoa(s.BoltDB.OpenTxN))
	w.Flush()
	return b.String()
}

// statsLine writes a section name followed by name=value pairs.
func statsLine(w io.Writer, section string, pairs ...string) {
	fmt.Fprintf(w, "%s\t", section)
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(w, " %s=%s", pairs[i], pairs[i+1])
	}
	fmt.Fprintln(w)
}

func roundDuration(d time.Duration) string {
	return d.Round(time.Microsecond).String()
}

// internalStats holds atomic counters. Durations are int64 nanoseconds.
type internalStats struct {
	readTx    int64
	writeTx   int64
	commits   int64
	rollbacks int64
	openTx    int64

	written int64
	read    int64

	queries     int64
	queryErrors int64

	saved   int64
	deleted int64

	txDuration    int64
	queryDuration int64
	loadDuration  int64
	saveDuration  int64
}

func (s *internalStats) snapshot(openedAt time.Time, boltStats boltdb.Stats) Stats {
	return Stats{
		OpenedAt: openedAt,

		ReadTxTotal:     atomic.LoadInt64(&s.readTx),
		WriteTxTotal:    atomic.LoadInt64(&s.writeTx),
		TxCommitTotal:   atomic.LoadInt64(&s.commits),
		TxRollbackTotal: atomic.LoadInt64(&s.rollbacks),
		TxOpenCount:     atomic.LoadInt64(&s.openTx),

		RecordsWritten: atomic.LoadInt64(&s.written),
		RecordsRead:    atomic.LoadInt64(&s.read),

		QueriesTotal: atomic.LoadInt64(&s.queries),
		QueryErrors:  atomic.LoadInt64(&s.queryErrors),

		CollectionsSaved:   atomic.LoadInt64(&s.saved),
		CollectionsDeleted: atomic.LoadInt64(&s.deleted),

		TxDuration:    time.Duration(atomic.LoadInt64(&s.txDuration)),
		QueryDuration: time.Duration(atomic.LoadInt64(&s.queryDuration)),
		LoadDuration:  time.Duration(atomic.LoadInt64(&s.loadDuration)),
		SaveDuration:  time.Duration(atomic.LoadInt64(&s.saveDuration)),

		BoltDB: boltStats,
	}
}

// reset zeros all counters except openTx, which is current state.
func (s *internalStats) reset() {
	atomic.StoreInt64(&s.readTx, 0)
	atomic.StoreInt64(&s.writeTx, 0)
	atomic.StoreInt64(&s.commits, 0)
	atomic.StoreInt64(&s.rollbacks, 0)

	atomic.StoreInt64(&s.written, 0)
	atomic.StoreInt64(&s.read, 0)

	atomic.StoreInt64(&s.queries, 0)
	atomic.StoreInt64(&s.queryErrors, 0)

	atomic.StoreInt64(&s.saved, 0)
	atomic.StoreInt64(&s.deleted, 0)

	atomic.StoreInt64(&s.txDuration, 0)
	atomic.StoreInt64(&s.queryDuration, 0)
	atomic.StoreInt64(&s.loadDuration, 0)
	atomic.StoreInt64(&s.saveDuration, 0)
}

func (s *internalStats) since(counter *int64, start time.Time) {
	atomic.AddInt64(counter, int64(time.Since(start)))
}

// formatCount groups the digits of n in threes.
func formatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	digits := strings.TrimPrefix(s, "-")
	var b strings.Builder
	if len(digits) < len(s) {
		b.WriteByte('-')
	}
	for i := range len(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(digits[i])
	}
	return b.String()
}
