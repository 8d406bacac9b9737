package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"coachchat/pkg/models"
	"coachchat/pkg/utils"
)

// Listing limits. Requests above MaxLimit are clamped, never rejected.
const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// Direction selects which side of the cursor a page is read from.
type Direction string

const (
	DirectionNext Direction = "next"
	DirectionPrev Direction = "prev"
)

// PageOptions controls cursor pagination for GetThreadsByUser.
type PageOptions struct {
	Cursor    string
	Limit     int
	Direction Direction
}

func (o PageOptions) normalize() PageOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if o.Direction != DirectionPrev {
		o.Direction = DirectionNext
	}
	return o
}

// Filters narrows a listing. The zero value is the default listing view:
// any type, any role, archived threads excluded.
type Filters struct {
	Type     models.ThreadType
	Archived bool
	Role     models.Role
}

func (f Filters) match(e indexEntry) bool {
	if e.Archived != f.Archived {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Role != "" && e.Role != f.Role {
		return false
	}
	return true
}

// Page is one page of a user's thread listing.
type Page struct {
	Threads []models.Thread `json:"threads"`
	Total   int             `json:"total"`
	HasMore bool            `json:"has_more"`
	// NextCursor pages toward older threads, PrevCursor back toward newer.
	NextCursor string `json:"next_cursor,omitempty"`
	PrevCursor string `json:"prev_cursor,omitempty"`
}

// CreateThreadInput carries the caller-supplied fields for a new thread.
// Business-rule validation (participant count vs type, duplicates) happens
// upstream; the store persists what it is given.
type CreateThreadInput struct {
	Title        string
	Type         models.ThreadType
	Participants []models.Participant
	CreatedBy    string
}

// ArchiveOptions controls the side effects of ArchiveThread.
type ArchiveOptions struct {
	ArchiveMessages    bool
	NotifyParticipants bool
}

// CreateThread persists a new thread and writes it through to the cache.
// When batch is non-nil the writes are staged into it and the caller owns
// the commit/abort boundary; otherwise the store commits its own batch and
// aborts it on any failure.
func (s *Store) CreateThread(ctx context.Context, input CreateThreadInput, batch *pebble.Batch) (models.Thread, error) {
	defer observeOp("create_thread", time.Now())

	now := time.Now().UTC()
	th := models.Thread{
		ID:            utils.GenThreadID(),
		Title:         input.Title,
		Type:          input.Type,
		CreatedBy:     input.CreatedBy,
		Participants:  input.Participants,
		CreatedAt:     now,
		LastMessageAt: now,
		Metadata: models.ThreadMetadata{
			ActiveParticipants: activeIDs(input.Participants),
			LastActivity:       now,
		},
	}
	doc, err := json.Marshal(th)
	if err != nil {
		return models.Thread{}, persistErr("create_thread", th.ID, err)
	}

	own := batch == nil
	if own {
		batch = s.db.NewIndexedBatch()
	}
	if err := batch.Set(docKey(th.ID), doc, nil); err != nil {
		if own {
			_ = batch.Close()
		}
		return models.Thread{}, persistErr("create_thread", th.ID, err)
	}
	if err := writeIndexEntries(batch, th); err != nil {
		if own {
			_ = batch.Close()
		}
		return models.Thread{}, persistErr("create_thread", th.ID, err)
	}
	if own {
		if err := batch.Commit(pebble.Sync); err != nil {
			_ = batch.Close()
			return models.Thread{}, persistErr("create_thread", th.ID, err)
		}
	}

	s.cache.Set(threadCacheKey(th.ID), doc)
	threadsCreated.Inc()
	s.log.Info("thread_created",
		zap.String("thread", th.ID),
		zap.String("type", string(th.Type)),
		zap.Int("participants", len(th.Participants)),
		zap.Bool("external_txn", !own),
	)
	return th, nil
}

// GetThread returns a single thread, cache-first.
func (s *Store) GetThread(ctx context.Context, threadID string) (models.Thread, error) {
	defer observeOp("get_thread", time.Now())

	if raw, ok := s.cache.Get(threadCacheKey(threadID)); ok {
		var th models.Thread
		if err := json.Unmarshal(raw, &th); err == nil {
			cacheHits.WithLabelValues("thread").Inc()
			return th, nil
		}
	}
	cacheMisses.WithLabelValues("thread").Inc()

	th, raw, err := s.getDoc(threadID)
	if err != nil {
		return models.Thread{}, err
	}
	s.cache.Set(threadCacheKey(threadID), raw)
	return th, nil
}

// GetThreadsByUser returns one page of the user's threads ordered by
// (lastMessageAt desc, id desc) using keyset pagination. A cache hit returns
// without touching the database; an empty page is a valid result, not an
// error.
func (s *Store) GetThreadsByUser(ctx context.Context, userID string, opts PageOptions, filters Filters) (Page, error) {
	defer observeOp("get_threads_by_user", time.Now())

	opts = opts.normalize()
	key := listCacheKey(userID, opts, filters)
	if raw, ok := s.cache.Get(key); ok {
		var p Page
		if err := json.Unmarshal(raw, &p); err == nil {
			cacheHits.WithLabelValues("list").Inc()
			return p, nil
		}
	}
	cacheMisses.WithLabelValues("list").Inc()

	var cur *cursor
	if opts.Cursor != "" {
		c, err := decodeCursor(opts.Cursor)
		if err != nil {
			return Page{}, err
		}
		cur = &c
	}

	entries, hasMore, err := s.scanPage(userID, cur, opts.Limit, opts.Direction, filters)
	if err != nil {
		return Page{}, persistErr("list_threads", "", err)
	}
	threads := s.loadThreads(entries)
	total, err := s.countThreads(userID, filters)
	if err != nil {
		return Page{}, persistErr("count_threads", "", err)
	}

	p := Page{Threads: threads, Total: total, HasMore: hasMore}
	if len(threads) > 0 {
		if hasMore {
			last := threads[len(threads)-1]
			p.NextCursor = encodeCursor(last.LastMessageAt, last.ID)
		}
		if opts.Cursor != "" {
			first := threads[0]
			p.PrevCursor = encodeCursor(first.LastMessageAt, first.ID)
		}
	}

	if raw, err := json.Marshal(p); err == nil {
		s.cache.Set(key, raw)
	}
	return p, nil
}

// ArchiveThread flips the thread to its terminal archived state. The
// document update, index rewrite, and the optional message-archival and
// notification triggers all sit inside one batch boundary; any failure
// aborts the batch with no partial state. After commit only the
// single-thread cache entry is invalidated; per-user listing entries age
// out on their own TTL. Archiving an already-archived thread succeeds.
func (s *Store) ArchiveThread(ctx context.Context, threadID string, opts ArchiveOptions) error {
	defer observeOp("archive_thread", time.Now())

	th, _, err := s.getDoc(threadID)
	if err != nil {
		return err
	}

	batch := s.db.NewIndexedBatch()
	th.IsArchived = true
	th.Metadata.LastActivity = time.Now().UTC()
	doc, err := json.Marshal(th)
	if err != nil {
		_ = batch.Close()
		return persistErr("archive_thread", threadID, err)
	}
	if err := batch.Set(docKey(threadID), doc, nil); err != nil {
		_ = batch.Close()
		return persistErr("archive_thread", threadID, err)
	}
	// Index keys stay at the same lastMessageAt position; only the archived
	// flag inside the entries changes.
	if err := writeIndexEntries(batch, th); err != nil {
		_ = batch.Close()
		return persistErr("archive_thread", threadID, err)
	}

	if opts.ArchiveMessages && s.messages != nil {
		if err := s.messages.ArchiveThreadMessages(threadID); err != nil {
			_ = batch.Close()
			return persistErr("archive_messages", threadID, err)
		}
	}
	if opts.NotifyParticipants && s.notifier != nil {
		if err := s.notifier.NotifyArchived(th); err != nil {
			_ = batch.Close()
			return persistErr("notify_participants", threadID, err)
		}
		notificationsEmitted.Add(float64(len(th.Participants)))
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		_ = batch.Close()
		return persistErr("archive_thread", threadID, err)
	}

	s.cache.Del(threadCacheKey(threadID))
	threadsArchived.Inc()
	s.log.Info("thread_archived",
		zap.String("thread", threadID),
		zap.Bool("archive_messages", opts.ArchiveMessages),
		zap.Bool("notify", opts.NotifyParticipants),
	)
	return nil
}

// RecordMessage is the ingestion hook the message pipeline calls when a new
// message lands. It advances lastMessageAt monotonically, refreshes
// metadata.lastActivity, and moves the thread's index entries to the new
// position in one batch.
func (s *Store) RecordMessage(ctx context.Context, threadID string, at time.Time) error {
	defer observeOp("record_message", time.Now())

	th, _, err := s.getDoc(threadID)
	if err != nil {
		return err
	}

	at = at.UTC()
	batch := s.db.NewIndexedBatch()
	if at.After(th.LastMessageAt) {
		if err := deleteIndexEntries(batch, th); err != nil {
			_ = batch.Close()
			return persistErr("record_message", threadID, err)
		}
		th.LastMessageAt = at
	}
	if at.After(th.Metadata.LastActivity) {
		th.Metadata.LastActivity = at
	}
	doc, err := json.Marshal(th)
	if err != nil {
		_ = batch.Close()
		return persistErr("record_message", threadID, err)
	}
	if err := batch.Set(docKey(threadID), doc, nil); err != nil {
		_ = batch.Close()
		return persistErr("record_message", threadID, err)
	}
	if err := writeIndexEntries(batch, th); err != nil {
		_ = batch.Close()
		return persistErr("record_message", threadID, err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		_ = batch.Close()
		return persistErr("record_message", threadID, err)
	}

	s.cache.Set(threadCacheKey(threadID), doc)
	return nil
}

// ArchiveIdle archives every unarchived thread whose last activity is before
// cutoff, up to max threads (0 means no cap). Used by the scheduled sweep.
func (s *Store) ArchiveIdle(ctx context.Context, cutoff time.Time, max int) (int, error) {
	defer observeOp("archive_idle", time.Now())

	ids, err := s.idleThreadIDs(cutoff, max)
	if err != nil {
		return 0, persistErr("archive_idle", "", err)
	}
	archived := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return archived, err
		}
		if err := s.ArchiveThread(ctx, id, ArchiveOptions{}); err != nil {
			// A thread deleted out from under the sweep is not a failure.
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return archived, err
		}
		archived++
	}
	return archived, nil
}

// Stats summarizes the stored corpus for the admin surface.
type Stats struct {
	Threads  int `json:"threads"`
	Archived int `json:"archived"`
}

// CollectStats walks the thread documents and counts them.
func (s *Store) CollectStats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.walkThreads(func(th models.Thread) bool {
		st.Threads++
		if th.IsArchived {
			st.Archived++
		}
		return true
	})
	if err != nil {
		return Stats{}, persistErr("collect_stats", "", err)
	}
	return st, nil
}

// getDoc loads a thread document straight from the database, bypassing the
// cache. Returns the raw bytes alongside so callers can re-cache them.
func (s *Store) getDoc(threadID string) (models.Thread, []byte, error) {
	v, closer, err := s.db.Get(docKey(threadID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return models.Thread{}, nil, ErrNotFound
		}
		return models.Thread{}, nil, persistErr("get_thread", threadID, err)
	}
	raw := append([]byte(nil), v...)
	_ = closer.Close()
	var th models.Thread
	if err := json.Unmarshal(raw, &th); err != nil {
		return models.Thread{}, nil, persistErr("decode_thread", threadID, err)
	}
	return th, raw, nil
}

// scanPage walks the user's index in the requested direction and returns up
// to limit matching entries, newest-first, plus whether another matching row
// exists beyond the page in the scan direction.
func (s *Store) scanPage(userID string, cur *cursor, limit int, dir Direction, filters Filters) ([]indexEntry, bool, error) {
	prefix := userIdxPrefix(userID)
	lower := prefix
	upper := prefixUpperBound(prefix)
	if cur != nil {
		ck := userIdxKey(userID, cur.TS, cur.ID)
		if dir == DirectionNext {
			// Exclusive upper bound: strictly older than the cursor row.
			upper = ck
		} else {
			// Strictly newer: bump past the cursor key itself.
			lower = append(ck, 0)
		}
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, false, err
	}
	defer iter.Close()

	var out []indexEntry
	more := false
	collect := func() bool {
		var e indexEntry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return true
		}
		if !filters.match(e) {
			return true
		}
		if len(out) == limit {
			more = true
			return false
		}
		out = append(out, e)
		return true
	}

	if dir == DirectionNext {
		for ok := iter.Last(); ok; ok = iter.Prev() {
			if !collect() {
				break
			}
		}
	} else {
		for ok := iter.First(); ok; ok = iter.Next() {
			if !collect() {
				break
			}
		}
		// Ascending scan produced oldest-first; present newest-first.
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, more, iter.Error()
}

// countThreads counts every index entry for the user matching the filters,
// ignoring any cursor.
func (s *Store) countThreads(userID string, filters Filters) (int, error) {
	prefix := userIdxPrefix(userID)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		var e indexEntry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			continue
		}
		if filters.match(e) {
			n++
		}
	}
	return n, iter.Error()
}

// loadThreads resolves index entries to full documents. Entries whose
// document has vanished are skipped rather than failing the page.
func (s *Store) loadThreads(entries []indexEntry) []models.Thread {
	out := make([]models.Thread, 0, len(entries))
	for _, e := range entries {
		th, _, err := s.getDoc(e.ThreadID)
		if err != nil {
			s.log.Debug("stale_index_entry", zap.String("thread", e.ThreadID), zap.Error(err))
			continue
		}
		out = append(out, th)
	}
	return out
}

// idleThreadIDs collects unarchived threads idle since before cutoff.
func (s *Store) idleThreadIDs(cutoff time.Time, max int) ([]string, error) {
	var ids []string
	err := s.walkThreads(func(th models.Thread) bool {
		if th.IsArchived {
			return true
		}
		if th.Metadata.LastActivity.Before(cutoff) {
			ids = append(ids, th.ID)
			if max > 0 && len(ids) >= max {
				return false
			}
		}
		return true
	})
	return ids, err
}

// walkThreads iterates every thread document, stopping early when fn
// returns false.
func (s *Store) walkThreads(fn func(models.Thread) bool) error {
	prefix := []byte("thread:")
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		var th models.Thread
		if err := json.Unmarshal(iter.Value(), &th); err != nil {
			continue
		}
		if th.ID == "" {
			continue
		}
		if !fn(th) {
			break
		}
	}
	return iter.Error()
}

func activeIDs(parts []models.Participant) []string {
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		ids = append(ids, p.UserID)
	}
	return ids
}

func threadCacheKey(threadID string) string {
	return "thread:" + threadID
}

// listCacheKey is deterministic over the full (userID, options, filters)
// tuple so identical queries share an entry.
func listCacheKey(userID string, opts PageOptions, filters Filters) string {
	return fmt.Sprintf("threads:%s:%s:%d:%s:%s:%t:%s",
		userID, opts.Cursor, opts.Limit, opts.Direction,
		filters.Type, filters.Archived, filters.Role)
}
