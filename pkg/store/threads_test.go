package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"coachchat/pkg/cache"
	"coachchat/pkg/models"
)

func newTestStore(t *testing.T, c cache.Cache) *Store {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db, c, nil, nil, zap.NewNop())
}

func directInput(userID, other string) CreateThreadInput {
	return CreateThreadInput{
		Title: "session",
		Type:  models.ThreadTypeDirect,
		Participants: []models.Participant{
			{UserID: userID, Role: models.RoleMember},
			{UserID: other, Role: models.RoleCoach},
		},
		CreatedBy: userID,
	}
}

// seedThreads creates n direct threads for userID and pins each one's
// lastMessageAt to base+i minutes so the listing order is deterministic.
// Returned slice is oldest-first by activity.
func seedThreads(t *testing.T, s *Store, userID string, n int, base time.Time) []models.Thread {
	t.Helper()
	ctx := context.Background()
	out := make([]models.Thread, 0, n)
	for i := 0; i < n; i++ {
		th, err := s.CreateThread(ctx, directInput(userID, "coach_1"), nil)
		if err != nil {
			t.Fatalf("CreateThread %d: %v", i, err)
		}
		at := base.Add(time.Duration(i) * time.Minute)
		if err := s.RecordMessage(ctx, th.ID, at); err != nil {
			t.Fatalf("RecordMessage %d: %v", i, err)
		}
		th.LastMessageAt = at
		out = append(out, th)
	}
	return out
}

func TestCreateThreadRoundTrip(t *testing.T) {
	s := newTestStore(t, cache.Nop{})
	ctx := context.Background()

	in := CreateThreadInput{
		Title: "weekly check-in",
		Type:  models.ThreadTypeGroup,
		Participants: []models.Participant{
			{UserID: "u1", Role: models.RoleMember},
			{UserID: "u2", Role: models.RoleCoach},
			{UserID: "u3", Role: models.RoleAdmin},
		},
		CreatedBy: "u1",
	}
	th, err := s.CreateThread(ctx, in, nil)
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	if th.ID == "" {
		t.Fatalf("expected generated thread ID")
	}
	if th.CreatedAt.IsZero() || th.LastMessageAt.IsZero() {
		t.Fatalf("expected timestamps set, got %+v", th)
	}
	if th.IsArchived {
		t.Fatalf("new thread must not be archived")
	}

	got, err := s.GetThread(ctx, th.ID)
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}
	if got.Title != in.Title || got.Type != in.Type || got.CreatedBy != in.CreatedBy {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if len(got.Participants) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(got.Participants))
	}
	if role, ok := got.RoleOf("u2"); !ok || role != models.RoleCoach {
		t.Fatalf("expected u2 coach, got %q ok=%v", role, ok)
	}
	if len(got.Metadata.ActiveParticipants) != 3 {
		t.Fatalf("expected active participants populated, got %+v", got.Metadata)
	}
}

func TestGetThreadNotFound(t *testing.T) {
	s := newTestStore(t, cache.Nop{})
	if _, err := s.GetThread(context.Background(), "th_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestCreateThreadExternalBatch verifies that a thread staged into a
// caller-owned batch only becomes visible once the caller commits it.
func TestCreateThreadExternalBatch(t *testing.T) {
	s := newTestStore(t, cache.Nop{})
	ctx := context.Background()

	batch := s.db.NewIndexedBatch()
	th, err := s.CreateThread(ctx, directInput("u1", "coach_1"), batch)
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	if _, err := s.GetThread(ctx, th.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("thread visible before commit: %v", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := s.GetThread(ctx, th.ID); err != nil {
		t.Fatalf("thread not visible after commit: %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := newTestStore(t, cache.Nop{})
	base := time.Now().Add(time.Hour).UTC()
	seeded := seedThreads(t, s, "u1", 5, base)

	page, err := s.GetThreadsByUser(context.Background(), "u1", PageOptions{}, Filters{})
	if err != nil {
		t.Fatalf("GetThreadsByUser: %v", err)
	}
	if len(page.Threads) != 5 {
		t.Fatalf("expected 5 threads, got %d", len(page.Threads))
	}
	if page.Total != 5 {
		t.Fatalf("expected total 5, got %d", page.Total)
	}
	if page.HasMore || page.NextCursor != "" || page.PrevCursor != "" {
		t.Fatalf("unexpected pagination state on single page: %+v", page)
	}
	for i, th := range page.Threads {
		want := seeded[len(seeded)-1-i]
		if th.ID != want.ID {
			t.Fatalf("position %d: expected %s, got %s", i, want.ID, th.ID)
		}
	}
	for i := 1; i < len(page.Threads); i++ {
		if page.Threads[i].LastMessageAt.After(page.Threads[i-1].LastMessageAt) {
			t.Fatalf("listing not ordered newest-first at %d", i)
		}
	}
}

func TestListPagination(t *testing.T) {
	s := newTestStore(t, cache.Nop{})
	ctx := context.Background()
	base := time.Now().Add(time.Hour).UTC()
	seedThreads(t, s, "u1", 25, base)

	p1, err := s.GetThreadsByUser(ctx, "u1", PageOptions{}, Filters{})
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(p1.Threads) != DefaultLimit {
		t.Fatalf("expected %d threads on page 1, got %d", DefaultLimit, len(p1.Threads))
	}
	if !p1.HasMore || p1.NextCursor == "" {
		t.Fatalf("expected page 1 to advertise more: %+v", p1)
	}
	if p1.Total != 25 {
		t.Fatalf("expected total 25, got %d", p1.Total)
	}

	p2, err := s.GetThreadsByUser(ctx, "u1", PageOptions{Cursor: p1.NextCursor}, Filters{})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(p2.Threads) != 5 {
		t.Fatalf("expected 5 threads on page 2, got %d", len(p2.Threads))
	}
	if p2.HasMore || p2.NextCursor != "" {
		t.Fatalf("expected page 2 to be the last page: %+v", p2)
	}
	if p2.PrevCursor == "" {
		t.Fatalf("expected prev cursor on page 2")
	}

	seen := make(map[string]bool, 25)
	for _, th := range append(append([]models.Thread{}, p1.Threads...), p2.Threads...) {
		if seen[th.ID] {
			t.Fatalf("thread %s appeared on both pages", th.ID)
		}
		seen[th.ID] = true
	}
	if len(seen) != 25 {
		t.Fatalf("pages did not cover all threads: %d", len(seen))
	}

	// Paging with the same cursor twice returns the same page.
	again, err := s.GetThreadsByUser(ctx, "u1", PageOptions{Cursor: p1.NextCursor}, Filters{})
	if err != nil {
		t.Fatalf("page 2 again: %v", err)
	}
	if len(again.Threads) != len(p2.Threads) || again.Threads[0].ID != p2.Threads[0].ID {
		t.Fatalf("cursor page not stable")
	}
}

// TestListPrevDirection pages forward then walks back with the prev cursor
// and expects to land on the original first page.
func TestListPrevDirection(t *testing.T) {
	s := newTestStore(t, cache.Nop{})
	ctx := context.Background()
	base := time.Now().Add(time.Hour).UTC()
	seedThreads(t, s, "u1", 25, base)

	p1, err := s.GetThreadsByUser(ctx, "u1", PageOptions{}, Filters{})
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	p2, err := s.GetThreadsByUser(ctx, "u1", PageOptions{Cursor: p1.NextCursor}, Filters{})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}

	back, err := s.GetThreadsByUser(ctx, "u1", PageOptions{
		Cursor:    p2.PrevCursor,
		Direction: DirectionPrev,
	}, Filters{})
	if err != nil {
		t.Fatalf("page back: %v", err)
	}
	if len(back.Threads) != len(p1.Threads) {
		t.Fatalf("expected %d threads going back, got %d", len(p1.Threads), len(back.Threads))
	}
	for i := range back.Threads {
		if back.Threads[i].ID != p1.Threads[i].ID {
			t.Fatalf("position %d: expected %s, got %s", i, p1.Threads[i].ID, back.Threads[i].ID)
		}
	}
}

func TestPageOptionsNormalize(t *testing.T) {
	cases := []struct {
		in        PageOptions
		wantLimit int
		wantDir   Direction
	}{
		{PageOptions{}, DefaultLimit, DirectionNext},
		{PageOptions{Limit: -3}, DefaultLimit, DirectionNext},
		{PageOptions{Limit: 100}, MaxLimit, DirectionNext},
		{PageOptions{Limit: 7, Direction: DirectionPrev}, 7, DirectionPrev},
		{PageOptions{Direction: "sideways"}, DefaultLimit, DirectionNext},
	}
	for _, c := range cases {
		got := c.in.normalize()
		if got.Limit != c.wantLimit || got.Direction != c.wantDir {
			t.Fatalf("normalize(%+v) = %+v", c.in, got)
		}
	}
}

func TestListFilters(t *testing.T) {
	s := newTestStore(t, cache.Nop{})
	ctx := context.Background()

	direct, err := s.CreateThread(ctx, directInput("u1", "coach_1"), nil)
	if err != nil {
		t.Fatalf("create direct: %v", err)
	}
	group, err := s.CreateThread(ctx, CreateThreadInput{
		Type: models.ThreadTypeGroup,
		Participants: []models.Participant{
			{UserID: "u1", Role: models.RoleCoach},
			{UserID: "u2", Role: models.RoleMember},
			{UserID: "u3", Role: models.RoleMember},
		},
		CreatedBy: "u1",
	}, nil)
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	page, err := s.GetThreadsByUser(ctx, "u1", PageOptions{}, Filters{Type: models.ThreadTypeDirect})
	if err != nil {
		t.Fatalf("type filter: %v", err)
	}
	if len(page.Threads) != 1 || page.Threads[0].ID != direct.ID || page.Total != 1 {
		t.Fatalf("type filter returned wrong page: %+v", page)
	}

	page, err = s.GetThreadsByUser(ctx, "u1", PageOptions{}, Filters{Role: models.RoleCoach})
	if err != nil {
		t.Fatalf("role filter: %v", err)
	}
	if len(page.Threads) != 1 || page.Threads[0].ID != group.ID {
		t.Fatalf("role filter returned wrong page: %+v", page)
	}

	// Other participants see the thread under their own role.
	page, err = s.GetThreadsByUser(ctx, "u2", PageOptions{}, Filters{Role: models.RoleMember})
	if err != nil {
		t.Fatalf("role filter u2: %v", err)
	}
	if len(page.Threads) != 1 || page.Threads[0].ID != group.ID {
		t.Fatalf("expected u2 to see the group thread as member: %+v", page)
	}
}

func TestArchiveThread(t *testing.T) {
	s := newTestStore(t, cache.Nop{})
	ctx := context.Background()

	th, err := s.CreateThread(ctx, directInput("u1", "coach_1"), nil)
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	other, err := s.CreateThread(ctx, directInput("u1", "coach_2"), nil)
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}

	if err := s.ArchiveThread(ctx, th.ID, ArchiveOptions{}); err != nil {
		t.Fatalf("ArchiveThread: %v", err)
	}
	got, err := s.GetThread(ctx, th.ID)
	if err != nil {
		t.Fatalf("GetThread after archive: %v", err)
	}
	if !got.IsArchived {
		t.Fatalf("thread not marked archived")
	}

	// Default listing excludes archived threads.
	page, err := s.GetThreadsByUser(ctx, "u1", PageOptions{}, Filters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Threads) != 1 || page.Threads[0].ID != other.ID || page.Total != 1 {
		t.Fatalf("archived thread leaked into default listing: %+v", page)
	}

	// The archived view contains only the archived thread.
	page, err = s.GetThreadsByUser(ctx, "u1", PageOptions{}, Filters{Archived: true})
	if err != nil {
		t.Fatalf("archived list: %v", err)
	}
	if len(page.Threads) != 1 || page.Threads[0].ID != th.ID {
		t.Fatalf("archived listing wrong: %+v", page)
	}

	// Archiving again is a no-op, not an error.
	if err := s.ArchiveThread(ctx, th.ID, ArchiveOptions{}); err != nil {
		t.Fatalf("re-archive: %v", err)
	}
}

func TestArchiveThreadNotFound(t *testing.T) {
	s := newTestStore(t, cache.Nop{})
	err := s.ArchiveThread(context.Background(), "th_missing", ArchiveOptions{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type recordingNotifier struct {
	archived []string
	err      error
}

func (n *recordingNotifier) NotifyArchived(th models.Thread) error {
	if n.err != nil {
		return n.err
	}
	n.archived = append(n.archived, th.ID)
	return nil
}

type recordingArchiver struct {
	threads []string
}

func (a *recordingArchiver) ArchiveThreadMessages(threadID string) error {
	a.threads = append(a.threads, threadID)
	return nil
}

func TestArchiveSideEffects(t *testing.T) {
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	notifier := &recordingNotifier{}
	archiver := &recordingArchiver{}
	s := New(db, cache.Nop{}, notifier, archiver, zap.NewNop())
	ctx := context.Background()

	th, err := s.CreateThread(ctx, directInput("u1", "coach_1"), nil)
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	if err := s.ArchiveThread(ctx, th.ID, ArchiveOptions{ArchiveMessages: true, NotifyParticipants: true}); err != nil {
		t.Fatalf("ArchiveThread: %v", err)
	}
	if len(archiver.threads) != 1 || archiver.threads[0] != th.ID {
		t.Fatalf("message archival not triggered: %+v", archiver.threads)
	}
	if len(notifier.archived) != 1 || notifier.archived[0] != th.ID {
		t.Fatalf("notification not triggered: %+v", notifier.archived)
	}

	// With both options off nothing is triggered.
	th2, err := s.CreateThread(ctx, directInput("u1", "coach_2"), nil)
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	if err := s.ArchiveThread(ctx, th2.ID, ArchiveOptions{}); err != nil {
		t.Fatalf("ArchiveThread: %v", err)
	}
	if len(archiver.threads) != 1 || len(notifier.archived) != 1 {
		t.Fatalf("side effects triggered without options")
	}
}

// TestArchiveAbortsOnNotifyFailure checks that a failing notification leaves
// the thread unarchived: the whole operation sits inside one batch.
func TestArchiveAbortsOnNotifyFailure(t *testing.T) {
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	notifier := &recordingNotifier{err: errors.New("push gateway down")}
	s := New(db, cache.Nop{}, notifier, nil, zap.NewNop())
	ctx := context.Background()

	th, err := s.CreateThread(ctx, directInput("u1", "coach_1"), nil)
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	err = s.ArchiveThread(ctx, th.ID, ArchiveOptions{NotifyParticipants: true})
	if err == nil {
		t.Fatalf("expected archive to fail")
	}
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %T", err)
	}
	got, err := s.GetThread(ctx, th.ID)
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}
	if got.IsArchived {
		t.Fatalf("thread archived despite aborted batch")
	}
}

func TestRecordMessageAdvancesListing(t *testing.T) {
	s := newTestStore(t, cache.Nop{})
	ctx := context.Background()
	base := time.Now().Add(time.Hour).UTC()
	seeded := seedThreads(t, s, "u1", 3, base)

	// Bump the oldest thread past everything else.
	oldest := seeded[0]
	newest := base.Add(time.Hour)
	if err := s.RecordMessage(ctx, oldest.ID, newest); err != nil {
		t.Fatalf("RecordMessage: %v", err)
	}

	page, err := s.GetThreadsByUser(ctx, "u1", PageOptions{}, Filters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Threads) != 3 {
		t.Fatalf("expected 3 threads, got %d", len(page.Threads))
	}
	if page.Threads[0].ID != oldest.ID {
		t.Fatalf("bumped thread not first: got %s", page.Threads[0].ID)
	}
	if !page.Threads[0].LastMessageAt.Equal(newest) {
		t.Fatalf("lastMessageAt not advanced: %v", page.Threads[0].LastMessageAt)
	}
}

func TestRecordMessageMonotonic(t *testing.T) {
	s := newTestStore(t, cache.Nop{})
	ctx := context.Background()
	base := time.Now().Add(time.Hour).UTC()
	seeded := seedThreads(t, s, "u1", 1, base)
	th := seeded[0]

	stale := base.Add(-time.Hour)
	if err := s.RecordMessage(ctx, th.ID, stale); err != nil {
		t.Fatalf("RecordMessage stale: %v", err)
	}
	got, err := s.GetThread(ctx, th.ID)
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}
	if !got.LastMessageAt.Equal(th.LastMessageAt) {
		t.Fatalf("lastMessageAt moved backwards: %v -> %v", th.LastMessageAt, got.LastMessageAt)
	}

	// No duplicate index entries from the stale write.
	page, err := s.GetThreadsByUser(ctx, "u1", PageOptions{}, Filters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Threads) != 1 || page.Total != 1 {
		t.Fatalf("expected single listing entry, got %+v", page)
	}
}

func TestArchiveIdle(t *testing.T) {
	s := newTestStore(t, cache.Nop{})
	ctx := context.Background()
	base := time.Now().Add(time.Hour).UTC()
	seeded := seedThreads(t, s, "u1", 4, base)

	cutoff := base.Add(2*time.Minute + time.Second)
	n, err := s.ArchiveIdle(ctx, cutoff, 0)
	if err != nil {
		t.Fatalf("ArchiveIdle: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 archived, got %d", n)
	}
	for i, th := range seeded {
		got, err := s.GetThread(ctx, th.ID)
		if err != nil {
			t.Fatalf("GetThread %d: %v", i, err)
		}
		wantArchived := i < 3
		if got.IsArchived != wantArchived {
			t.Fatalf("thread %d archived=%v, want %v", i, got.IsArchived, wantArchived)
		}
	}

	// A second sweep finds nothing left.
	n, err = s.ArchiveIdle(ctx, cutoff, 0)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 on second sweep, got %d", n)
	}
}

func TestArchiveIdleCap(t *testing.T) {
	s := newTestStore(t, cache.Nop{})
	ctx := context.Background()
	base := time.Now().Add(time.Hour).UTC()
	seedThreads(t, s, "u1", 5, base)

	n, err := s.ArchiveIdle(ctx, base.Add(time.Hour), 2)
	if err != nil {
		t.Fatalf("ArchiveIdle: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected cap of 2, got %d", n)
	}
}

func TestInvalidCursor(t *testing.T) {
	s := newTestStore(t, cache.Nop{})
	for _, tok := range []string{"!!!", "bm90LWpzb24", encodeCursor(time.Time{}, "")} {
		_, err := s.GetThreadsByUser(context.Background(), "u1", PageOptions{Cursor: tok}, Filters{})
		if !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("cursor %q: expected ErrInvalidCursor, got %v", tok, err)
		}
	}
}

// TestIndexRebuild wipes the listing index and expects construction to
// restore it from the documents.
func TestIndexRebuild(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s := New(db, cache.Nop{}, nil, nil, zap.NewNop())
	ctx := context.Background()
	th, err := s.CreateThread(ctx, directInput("u1", "coach_1"), nil)
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}

	// Drop every index key, keeping only the document.
	prefix := []byte("user:")
	if err := db.DeleteRange(prefix, prefixUpperBound(prefix), pebble.Sync); err != nil {
		t.Fatalf("DeleteRange: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s = New(db, cache.Nop{}, nil, nil, zap.NewNop())

	page, err := s.GetThreadsByUser(ctx, "u1", PageOptions{}, Filters{})
	if err != nil {
		t.Fatalf("list after rebuild: %v", err)
	}
	if len(page.Threads) != 1 || page.Threads[0].ID != th.ID {
		t.Fatalf("index not rebuilt: %+v", page)
	}
}

func TestCacheWriteThrough(t *testing.T) {
	c := cache.NewMemory(64, time.Minute)
	s := newTestStore(t, c)
	ctx := context.Background()

	th, err := s.CreateThread(ctx, directInput("u1", "coach_1"), nil)
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}

	// Delete the document out from under the cache; the read still succeeds
	// because create wrote through.
	if err := s.db.Delete(docKey(th.ID), pebble.Sync); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.GetThread(ctx, th.ID); err != nil {
		t.Fatalf("expected cached read, got %v", err)
	}

	c.Del(threadCacheKey(th.ID))
	if _, err := s.GetThread(ctx, th.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after cache eviction, got %v", err)
	}
}

func TestArchiveInvalidatesThreadCache(t *testing.T) {
	c := cache.NewMemory(64, time.Minute)
	s := newTestStore(t, c)
	ctx := context.Background()

	th, err := s.CreateThread(ctx, directInput("u1", "coach_1"), nil)
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	if err := s.ArchiveThread(ctx, th.ID, ArchiveOptions{}); err != nil {
		t.Fatalf("ArchiveThread: %v", err)
	}
	if _, ok := c.Get(threadCacheKey(th.ID)); ok {
		t.Fatalf("thread cache entry survived archive")
	}
	got, err := s.GetThread(ctx, th.ID)
	if err != nil {
		t.Fatalf("GetThread: %v", err)
	}
	if !got.IsArchived {
		t.Fatalf("stale unarchived thread returned")
	}
}

func TestListCacheHit(t *testing.T) {
	c := cache.NewMemory(64, time.Minute)
	s := newTestStore(t, c)
	ctx := context.Background()
	base := time.Now().Add(time.Hour).UTC()
	seedThreads(t, s, "u1", 2, base)

	p1, err := s.GetThreadsByUser(ctx, "u1", PageOptions{}, Filters{})
	if err != nil {
		t.Fatalf("first list: %v", err)
	}

	// A later write does not show up while the cached page is fresh.
	if _, err := s.CreateThread(ctx, directInput("u1", "coach_9"), nil); err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	p2, err := s.GetThreadsByUser(ctx, "u1", PageOptions{}, Filters{})
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if len(p2.Threads) != len(p1.Threads) || p2.Total != p1.Total {
		t.Fatalf("expected cached page, got %+v vs %+v", p2, p1)
	}

	// Different parameters miss the cache and see the new thread.
	p3, err := s.GetThreadsByUser(ctx, "u1", PageOptions{Limit: 30}, Filters{})
	if err != nil {
		t.Fatalf("third list: %v", err)
	}
	if len(p3.Threads) != 3 {
		t.Fatalf("expected fresh page with 3 threads, got %d", len(p3.Threads))
	}
}

func TestCollectStats(t *testing.T) {
	s := newTestStore(t, cache.Nop{})
	ctx := context.Background()
	base := time.Now().Add(time.Hour).UTC()
	seeded := seedThreads(t, s, "u1", 3, base)
	if err := s.ArchiveThread(ctx, seeded[0].ID, ArchiveOptions{}); err != nil {
		t.Fatalf("ArchiveThread: %v", err)
	}

	st, err := s.CollectStats(ctx)
	if err != nil {
		t.Fatalf("CollectStats: %v", err)
	}
	if st.Threads != 3 || st.Archived != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}
