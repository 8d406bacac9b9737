// Package store owns chat thread documents. All thread mutation in the
// service goes through a Store; other components only ever read what it
// returns. Documents live in Pebble under `thread:<id>:meta` with per-user
// index entries under `user:<uid>:thread:<ts>:<id>` that keep listing queries
// off the documents themselves.
package store

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"coachchat/pkg/cache"
	"coachchat/pkg/models"
)

// Notifier receives archival notification events. Delivery is owned by the
// surrounding platform; the store only triggers it.
type Notifier interface {
	NotifyArchived(thread models.Thread) error
}

// MessageArchiver archives a thread's messages. Message storage is an
// external collaborator; only the trigger point lives here.
type MessageArchiver interface {
	ArchiveThreadMessages(threadID string) error
}

// Store is the thread store. Construct with New; the zero value is not usable.
type Store struct {
	db       *pebble.DB
	cache    cache.Cache
	notifier Notifier
	messages MessageArchiver
	log      *zap.Logger
}

// Open opens (or creates) a Pebble database at the given path.
func Open(path string) (*pebble.DB, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	return db, nil
}

// New wires a Store around an opened database. notifier and messages may be
// nil, in which case the corresponding archive options become no-ops. New
// rebuilds the per-user listing index; a rebuild failure is logged and
// non-fatal since the store still works without it, just slower to list.
func New(db *pebble.DB, c cache.Cache, notifier Notifier, messages MessageArchiver, log *zap.Logger) *Store {
	if c == nil {
		c = cache.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{db: db, cache: c, notifier: notifier, messages: messages, log: log}
	if n, err := s.rebuildIndexes(); err != nil {
		log.Error("index_rebuild_failed", zap.Error(err))
	} else if n > 0 {
		log.Info("index_rebuilt", zap.Int("threads", n))
	}
	return s
}

// Key layout. Index keys order ascending by (last_message_at, thread id), so
// a reverse iteration yields the (last_message_at desc, id desc) listing
// order directly.
func docKey(threadID string) []byte {
	return []byte("thread:" + threadID + ":meta")
}

func userIdxPrefix(userID string) []byte {
	return []byte("user:" + userID + ":thread:")
}

func userIdxKey(userID string, ts time.Time, threadID string) []byte {
	return []byte(fmt.Sprintf("user:%s:thread:%020d:%s", userID, ts.UnixNano(), threadID))
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix, for use as an exclusive iterator bound.
func prefixUpperBound(prefix []byte) []byte {
	ub := append([]byte(nil), prefix...)
	for i := len(ub) - 1; i >= 0; i-- {
		if ub[i] < math.MaxUint8 {
			ub[i]++
			return ub[:i+1]
		}
	}
	return nil
}

// indexEntry is the compact listing record kept per (user, thread). It
// carries just enough to apply listing filters without loading documents.
type indexEntry struct {
	ThreadID      string            `json:"thread_id"`
	Type          models.ThreadType `json:"type"`
	Role          models.Role       `json:"role"`
	Archived      bool              `json:"archived"`
	LastMessageNS int64             `json:"last_message_ns"`
}

// writeIndexEntries stages one index entry per participant into the batch.
func writeIndexEntries(b *pebble.Batch, th models.Thread) error {
	for _, p := range th.Participants {
		e := indexEntry{
			ThreadID:      th.ID,
			Type:          th.Type,
			Role:          p.Role,
			Archived:      th.IsArchived,
			LastMessageNS: th.LastMessageAt.UnixNano(),
		}
		v, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if err := b.Set(userIdxKey(p.UserID, th.LastMessageAt, th.ID), v, nil); err != nil {
			return err
		}
	}
	return nil
}

// deleteIndexEntries stages deletion of the index entries for the thread's
// previous lastMessageAt position.
func deleteIndexEntries(b *pebble.Batch, th models.Thread) error {
	for _, p := range th.Participants {
		if err := b.Delete(userIdxKey(p.UserID, th.LastMessageAt, th.ID), nil); err != nil {
			return err
		}
	}
	return nil
}

// rebuildIndexes scans every thread document and rewrites its index entries.
// Run once at construction so a wiped or partial index heals on startup.
func (s *Store) rebuildIndexes() (int, error) {
	prefix := []byte("thread:")
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	b := s.db.NewBatch()
	defer b.Close()
	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		var th models.Thread
		if err := json.Unmarshal(iter.Value(), &th); err != nil {
			continue
		}
		if th.ID == "" {
			continue
		}
		if err := writeIndexEntries(b, th); err != nil {
			return n, err
		}
		n++
	}
	if err := iter.Error(); err != nil {
		return n, err
	}
	if n == 0 {
		return 0, nil
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return n, err
	}
	return n, nil
}
