package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/glabrego/newsbox-cli/internal/news"
	"github.com/glabrego/newsbox-cli/internal/timeline"
)

// ErrSyncTimeout reports that the refresh pipeline missed its deadline; the
// cached state is left untouched.
var ErrSyncTimeout = errors.New("sync timed out")

const (
	// DefaultSyncTimeout bounds the whole fetch-reconcile-merge pipeline.
	DefaultSyncTimeout = 8 * time.Second
	// minSyncIndicator keeps the syncing state visible long enough that a
	// fast server response does not flicker the indicator.
	minSyncIndicator = 350 * time.Millisecond
)

// NewsClient is the remote service surface the timeline consumes.
type NewsClient interface {
	ListFolders(ctx context.Context) ([]news.Folder, error)
	ListFeeds(ctx context.Context) (news.FeedsResponse, error)
	ListUnreadItems(ctx context.Context) ([]news.Article, error)
	MarkItemRead(ctx context.Context, itemID int64) error
	MarkItemsRead(ctx context.Context, itemIDs []int64) error
	StarItem(ctx context.Context, itemID int64) error
	UnstarItem(ctx context.Context, itemID int64) error
}

// CacheStore persists the envelope between sessions.
type CacheStore interface {
	Load(ctx context.Context) timeline.CacheEnvelope
	Store(ctx context.Context, envelope timeline.CacheEnvelope) error
}

// Timeline owns the cache envelope and implements every mutating operation
// with optimistic-update-then-reconcile semantics. Consumers only see value
// copies through View; the envelope itself never escapes.
type Timeline struct {
	client NewsClient
	store  CacheStore
	logger *slog.Logger

	syncTimeout time.Duration

	mu              sync.Mutex
	envelope        timeline.CacheEnvelope
	hydrated        bool
	syncing         bool
	lastUpdateError string
}

func NewTimeline(client NewsClient, store CacheStore, logger *slog.Logger) *Timeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Timeline{
		client:      client,
		store:       store,
		logger:      logger,
		envelope:    timeline.NewCacheEnvelope(),
		syncTimeout: DefaultSyncTimeout,
	}
}

// Hydrate loads the persisted envelope once at startup so the first render
// shows the last session's queue before any network round trip.
func (t *Timeline) Hydrate(ctx context.Context) {
	env := t.store.Load(ctx)
	t.mu.Lock()
	t.envelope = env
	t.hydrated = true
	t.mu.Unlock()
}

// View is a read-only snapshot of the queue state. Queue is sorted by
// priority with the active folder pinned to the front.
type View struct {
	Queue           []timeline.FolderQueueEntry
	ActiveFolderID  int64
	Progress        timeline.Progress
	TotalUnread     int
	LastSynced      int64
	PendingReads    int
	Hydrated        bool
	Syncing         bool
	LastUpdateError string
}

// ActiveFolder returns the pinned active entry, if any.
func (v View) ActiveFolder() (timeline.FolderQueueEntry, bool) {
	for _, entry := range v.Queue {
		if entry.ID == v.ActiveFolderID {
			return entry, true
		}
	}
	return timeline.FolderQueueEntry{}, false
}

// ActiveArticles returns the active folder's article previews in order.
func (v View) ActiveArticles() []timeline.ArticlePreview {
	entry, ok := v.ActiveFolder()
	if !ok {
		return nil
	}
	return entry.Articles
}

func (t *Timeline) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()

	sorted := t.sortedQueueLocked()
	activeID := t.activeFolderIDLocked(sorted)
	queue := timeline.PinActiveFolder(sorted, activeID)

	out := make([]timeline.FolderQueueEntry, len(queue))
	for i, entry := range queue {
		out[i] = entry.Clone()
	}

	return View{
		Queue:           out,
		ActiveFolderID:  activeID,
		Progress:        timeline.DeriveProgress(queue, activeID),
		TotalUnread:     t.envelope.TotalUnread(),
		LastSynced:      t.envelope.LastSynced,
		PendingReads:    len(t.envelope.PendingReadIDs),
		Hydrated:        t.hydrated,
		Syncing:         t.syncing,
		LastUpdateError: t.lastUpdateError,
	}
}

// Refresh runs fetch, reconcile, merge and persist under the sync deadline.
// On any failure the cache keeps its last-known-good state, the error is
// recorded for the UI, and the caller gets it back for a retry decision.
func (t *Timeline) Refresh(ctx context.Context) error {
	started := time.Now()
	t.setSyncing(true)
	defer func() {
		if elapsed := time.Since(started); elapsed < minSyncIndicator {
			time.Sleep(minSyncIndicator - elapsed)
		}
		t.setSyncing(false)
	}()

	syncCtx, cancel := context.WithTimeout(ctx, t.syncTimeout)
	defer cancel()

	t.retryPendingReads(syncCtx)

	folders, feeds, items, err := t.fetchServerState(syncCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", ErrSyncTimeout, t.syncTimeout)
		}
		t.setLastUpdateError(err.Error())
		return err
	}

	now := time.Now().UnixMilli()
	feedFolders := timeline.FeedFolderMap(feeds.Feeds)
	feedNames := timeline.FeedNameMap(feeds.Feeds)

	serverUnreadIDs := make(map[int64]struct{}, len(items))
	previews := make([]timeline.ArticlePreview, 0, len(items))
	for _, item := range items {
		serverUnreadIDs[item.ID] = struct{}{}
		folderID := timeline.ResolveFolderID(item, feedFolders)
		previews = append(previews, timeline.NewPreview(item, folderID, feedNames[item.FeedID], now))
	}

	t.update(ctx, func(current timeline.CacheEnvelope) timeline.CacheEnvelope {
		next := timeline.Reconcile(current, serverUnreadIDs, now)
		next = timeline.MergeItems(next, previews, now)
		next = timeline.ApplyFolderNames(next, folders)
		return timeline.ApplyFeedNames(next, feedNames)
	})

	t.setLastUpdateError("")
	return nil
}

func (t *Timeline) fetchServerState(ctx context.Context) ([]news.Folder, news.FeedsResponse, []news.Article, error) {
	folders, err := t.client.ListFolders(ctx)
	if err != nil {
		return nil, news.FeedsResponse{}, nil, fmt.Errorf("fetch folders: %w", err)
	}
	feeds, err := t.client.ListFeeds(ctx)
	if err != nil {
		return nil, news.FeedsResponse{}, nil, fmt.Errorf("fetch feeds: %w", err)
	}
	items, err := t.client.ListUnreadItems(ctx)
	if err != nil {
		return nil, news.FeedsResponse{}, nil, fmt.Errorf("fetch unread items: %w", err)
	}
	return folders, feeds, items, nil
}

// retryPendingReads re-sends read mutations that a previous session or a
// failed markFolderRead left behind. Best effort: reconciliation prunes the
// ids once the server confirms.
func (t *Timeline) retryPendingReads(ctx context.Context) {
	t.mu.Lock()
	pending := append([]int64(nil), t.envelope.PendingReadIDs...)
	t.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	if err := t.client.MarkItemsRead(ctx, pending); err != nil {
		t.logger.Debug("pending read retry failed", "count", len(pending), "error", err)
	}
}

// SetActiveFolder makes the folder the one being viewed. Selecting a
// skipped folder implicitly un-skips it. Unknown ids are ignored.
func (t *Timeline) SetActiveFolder(ctx context.Context, folderID int64) {
	t.update(ctx, func(current timeline.CacheEnvelope) timeline.CacheEnvelope {
		entry, ok := current.Folders[folderID]
		if !ok {
			return current
		}
		next := current.Clone()
		if entry.Status == timeline.StatusSkipped {
			entry = entry.Clone()
			entry.Status = timeline.StatusQueued
			next.Folders[folderID] = entry
		}
		next.ActiveFolderID = folderID
		return next
	})
}

// MarkFolderRead removes the folder immediately, records its article ids as
// pending, then tells the server. A failed mutation is surfaced but never
// rolled back; the pending ids stay for the next retry pass and the next
// sync reconciliation corrects any divergence.
func (t *Timeline) MarkFolderRead(ctx context.Context, folderID int64) error {
	var itemIDs []int64
	t.update(ctx, func(current timeline.CacheEnvelope) timeline.CacheEnvelope {
		entry, ok := current.Folders[folderID]
		if !ok {
			return current
		}
		for _, article := range entry.Articles {
			itemIDs = append(itemIDs, article.ID)
		}

		next := current.Clone()
		delete(next.Folders, folderID)
		next.PendingReadIDs = append(next.PendingReadIDs, itemIDs...)
		next.ActiveFolderID = timeline.FirstQueuedID(timeline.SortQueue(folderValues(next.Folders)))
		return next
	})
	if len(itemIDs) == 0 {
		return nil
	}

	if err := t.client.MarkItemsRead(ctx, itemIDs); err != nil {
		t.logger.Error("mark folder read failed, keeping pending ids", "folder", folderID, "count", len(itemIDs), "error", err)
		return fmt.Errorf("mark folder read: %w", err)
	}

	t.update(ctx, func(current timeline.CacheEnvelope) timeline.CacheEnvelope {
		next := current.Clone()
		next.PendingReadIDs = removeIDs(next.PendingReadIDs, itemIDs)
		return next
	})

	return t.Refresh(ctx)
}

// MarkItemRead flips one article to read in place. The folder keeps its
// queue slot at the recomputed rank and the read article stays visible
// until the next sync prunes it. The remote call is fire and forget: a
// failure is logged, never surfaced, so the reading flow is not interrupted.
func (t *Timeline) MarkItemRead(ctx context.Context, itemID int64) {
	found := false
	t.update(ctx, func(current timeline.CacheEnvelope) timeline.CacheEnvelope {
		folderID, ok := findOwningFolder(current, itemID)
		if !ok {
			return current
		}
		found = true

		next := current.Clone()
		entry := next.Folders[folderID]
		for i := range entry.Articles {
			if entry.Articles[i].ID == itemID {
				entry.Articles[i].Unread = false
				break
			}
		}
		entry.UnreadCount = countUnreadArticles(entry.Articles)
		next.Folders[folderID] = entry

		if next.ActiveFolderID != folderID {
			next.ActiveFolderID = timeline.FirstQueuedID(timeline.SortQueue(folderValues(next.Folders)))
		}
		next.PendingReadIDs = appendIDIfMissing(next.PendingReadIDs, itemID)
		return next
	})
	if !found {
		return
	}

	if err := t.client.MarkItemRead(ctx, itemID); err != nil {
		t.logger.Warn("mark item read failed, keeping pending id", "item", itemID, "error", err)
		return
	}

	t.update(ctx, func(current timeline.CacheEnvelope) timeline.CacheEnvelope {
		next := current.Clone()
		next.PendingReadIDs = removeIDs(next.PendingReadIDs, []int64{itemID})
		return next
	})
}

// ToggleStarred optimistically flips an article's star and fires the remote
// mutation without waiting on the result.
func (t *Timeline) ToggleStarred(ctx context.Context, itemID int64) {
	var starred, found bool
	t.update(ctx, func(current timeline.CacheEnvelope) timeline.CacheEnvelope {
		folderID, ok := findOwningFolder(current, itemID)
		if !ok {
			return current
		}
		found = true

		next := current.Clone()
		entry := next.Folders[folderID]
		for i := range entry.Articles {
			if entry.Articles[i].ID == itemID {
				entry.Articles[i].Starred = !entry.Articles[i].Starred
				starred = entry.Articles[i].Starred
				break
			}
		}
		next.Folders[folderID] = entry
		return next
	})
	if !found {
		return
	}

	var err error
	if starred {
		err = t.client.StarItem(ctx, itemID)
	} else {
		err = t.client.UnstarItem(ctx, itemID)
	}
	if err != nil {
		t.logger.Warn("star toggle failed", "item", itemID, "starred", starred, "error", err)
	}
}

// SkipFolder demotes the folder to the end of the queue and advances the
// active folder. Purely local; no network call is involved.
func (t *Timeline) SkipFolder(ctx context.Context, folderID int64) {
	t.update(ctx, func(current timeline.CacheEnvelope) timeline.CacheEnvelope {
		if _, ok := current.Folders[folderID]; !ok {
			return current
		}
		next := current.Clone()
		entries := timeline.MoveFolderToEnd(folderValues(next.Folders), folderID)
		next.Folders = folderMap(entries)
		next.ActiveFolderID = timeline.FirstQueuedID(timeline.SortQueue(entries))
		next.PendingSkipFolderIDs = appendIDIfMissing(next.PendingSkipFolderIDs, folderID)
		return next
	})
}

// Restart requeues every skipped folder, intended for the terminal state
// where everything was skipped and the user wants another pass.
func (t *Timeline) Restart(ctx context.Context) {
	t.update(ctx, func(current timeline.CacheEnvelope) timeline.CacheEnvelope {
		next := current.Clone()
		for id, entry := range next.Folders {
			if entry.Status == timeline.StatusSkipped {
				entry.Status = timeline.StatusQueued
				next.Folders[id] = entry
			}
		}
		next.ActiveFolderID = timeline.FirstQueuedID(timeline.SortQueue(folderValues(next.Folders)))
		next.PendingSkipFolderIDs = []int64{}
		return next
	})
}

// update applies a functional envelope update and persists the result under
// the same lock, so no caller can observe a mutated-but-unpersisted state.
func (t *Timeline) update(ctx context.Context, fn func(timeline.CacheEnvelope) timeline.CacheEnvelope) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := fn(t.envelope)
	t.envelope = next
	if err := t.store.Store(ctx, next); err != nil {
		t.logger.Warn("persist timeline cache failed, memory state stays authoritative", "error", err)
	}
}

func (t *Timeline) sortedQueueLocked() []timeline.FolderQueueEntry {
	return timeline.SortQueue(folderValues(t.envelope.Folders))
}

func (t *Timeline) activeFolderIDLocked(sorted []timeline.FolderQueueEntry) int64 {
	if id := t.envelope.ActiveFolderID; id != 0 {
		if _, ok := t.envelope.Folders[id]; ok {
			return id
		}
	}
	return timeline.FirstQueuedID(sorted)
}

func (t *Timeline) setSyncing(v bool) {
	t.mu.Lock()
	t.syncing = v
	t.mu.Unlock()
}

func (t *Timeline) setLastUpdateError(msg string) {
	t.mu.Lock()
	t.lastUpdateError = msg
	t.mu.Unlock()
}

func findOwningFolder(env timeline.CacheEnvelope, itemID int64) (int64, bool) {
	// Linear scan; folder and article counts are bounded by one account.
	for id, entry := range env.Folders {
		for _, article := range entry.Articles {
			if article.ID == itemID {
				return id, true
			}
		}
	}
	return 0, false
}

func folderValues(folders map[int64]timeline.FolderQueueEntry) []timeline.FolderQueueEntry {
	out := make([]timeline.FolderQueueEntry, 0, len(folders))
	for _, entry := range folders {
		out = append(out, entry)
	}
	return out
}

func folderMap(entries []timeline.FolderQueueEntry) map[int64]timeline.FolderQueueEntry {
	out := make(map[int64]timeline.FolderQueueEntry, len(entries))
	for _, entry := range entries {
		out[entry.ID] = entry
	}
	return out
}

func countUnreadArticles(articles []timeline.ArticlePreview) int {
	count := 0
	for _, a := range articles {
		if a.Unread {
			count++
		}
	}
	return count
}

func removeIDs(ids []int64, drop []int64) []int64 {
	dropSet := make(map[int64]struct{}, len(drop))
	for _, id := range drop {
		dropSet[id] = struct{}{}
	}
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := dropSet[id]; !ok {
			out = append(out, id)
		}
	}
	if out == nil {
		out = []int64{}
	}
	return out
}

func appendIDIfMissing(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
