// Package persistence stores a rolling history of past comparisons so a
// desktop or CLI caller can list "recent diffs" without re-running them.
// Grounded on the Badger-backed key/value store in
// pkg/resource/badger/datasource.go: DefaultOptions + WithInMemory /
// WithSyncWrites, and the db.Update/db.View transaction idiom.
package persistence

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Record is one stored comparison summary: enough to list and re-open a
// past diff without re-materializing its ops.
type Record struct {
	ID          string    `json:"id"`
	OldPath     string    `json:"old_path"`
	NewPath     string    `json:"new_path"`
	CreatedAt   time.Time `json:"created_at"`
	OpCount     int       `json:"op_count"`
	Complete    bool      `json:"complete"`
	Warnings    []string  `json:"warnings,omitempty"`
	ReportPath  string    `json:"report_path,omitempty"`
}

// Store is a Badger-backed append-only history of comparison records,
// keyed by "history/<zero-padded insertion sequence>/<id>" so a prefix
// scan yields records in insertion order without a secondary index.
type Store struct {
	db  *badger.DB
	seq int64 // last insertion sequence used; Open resumes it from stored keys
}

const keyPrefix = "history/"

// Open opens (creating if necessary) a Badger database at dir. dir=""
// opens an in-memory store, useful for tests and one-shot CLI runs that
// don't want a history directory at all.
func Open(dir string) (*Store, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithSyncWrites(true).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("persistence: opening store at %q: %w", dir, err)
	}
	s := &Store{db: db}
	// Resume after the highest stored sequence so records appended after
	// reopening a directory still sort after the earlier ones.
	_ = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			fmt.Sscanf(string(it.Item().Key()[len(prefix):]), "%d", &s.seq)
		}
		return nil
	})
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Append records one comparison. ID and CreatedAt are assigned if zero.
func (s *Store) Append(rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("persistence: encoding record: %w", err)
	}

	seq := atomic.AddInt64(&s.seq, 1)
	key := recordKey(seq, rec)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return Record{}, fmt.Errorf("persistence: storing record: %w", err)
	}
	return rec, nil
}

// recordKey embeds a zero-padded monotonic sequence number so a prefix
// scan yields insertion order even when CreatedAt collides at whatever
// clock resolution the platform provides.
func recordKey(seq int64, rec Record) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", keyPrefix, seq, rec.ID))
}

// Recent returns up to limit most-recently-appended records, newest
// first. limit <= 0 means no limit.
func (s *Store) Recent(limit int) ([]Record, error) {
	// Badger iterates keys in ascending lexicographic order, and
	// recordKey's zero-padded sequence makes that insertion order, so
	// this walks oldest-to-newest and reverses at the end.
	var records []Record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var rec Record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("persistence: decoding record %s: %w", item.Key(), err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reverseInPlace(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func reverseInPlace(records []Record) {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
}

// Get retrieves a single record by id.
func (s *Store) Get(id string) (Record, bool, error) {
	records, err := s.Recent(0)
	if err != nil {
		return Record{}, false, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, true, nil
		}
	}
	return Record{}, false, nil
}
