package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/glabrego/newsbox-cli/internal/news"
	"github.com/glabrego/newsbox-cli/internal/timeline"
)

type fakeClient struct {
	mu sync.Mutex

	folders []news.Folder
	feeds   news.FeedsResponse
	items   []news.Article

	listErr     error
	markReadErr error

	markItemCalls  []int64
	markItemsCalls [][]int64
	starCalls      []int64
	unstarCalls    []int64

	blockUntilCancel bool
}

func (c *fakeClient) ListFolders(ctx context.Context) ([]news.Folder, error) {
	if c.blockUntilCancel {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.folders, nil
}

func (c *fakeClient) ListFeeds(ctx context.Context) (news.FeedsResponse, error) {
	if c.listErr != nil {
		return news.FeedsResponse{}, c.listErr
	}
	return c.feeds, nil
}

func (c *fakeClient) ListUnreadItems(ctx context.Context) ([]news.Article, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.items, nil
}

func (c *fakeClient) MarkItemRead(ctx context.Context, itemID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markItemCalls = append(c.markItemCalls, itemID)
	if c.markReadErr != nil {
		return c.markReadErr
	}
	c.dropItemsLocked([]int64{itemID})
	return nil
}

func (c *fakeClient) MarkItemsRead(ctx context.Context, itemIDs []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markItemsCalls = append(c.markItemsCalls, append([]int64(nil), itemIDs...))
	if c.markReadErr != nil {
		return c.markReadErr
	}
	c.dropItemsLocked(itemIDs)
	return nil
}

// dropItemsLocked mimics the server: confirmed reads disappear from the
// unread listing on the next fetch.
func (c *fakeClient) dropItemsLocked(ids []int64) {
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := c.items[:0:0]
	for _, item := range c.items {
		if _, ok := drop[item.ID]; !ok {
			kept = append(kept, item)
		}
	}
	c.items = kept
}

func (c *fakeClient) StarItem(ctx context.Context, itemID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starCalls = append(c.starCalls, itemID)
	return nil
}

func (c *fakeClient) UnstarItem(ctx context.Context, itemID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unstarCalls = append(c.unstarCalls, itemID)
	return nil
}

type memoryStore struct {
	mu       sync.Mutex
	envelope timeline.CacheEnvelope
	stored   int
	storeErr error
}

func (s *memoryStore) Load(ctx context.Context) timeline.CacheEnvelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.envelope.Clone().Normalize()
}

func (s *memoryStore) Store(ctx context.Context, envelope timeline.CacheEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return s.storeErr
	}
	s.envelope = envelope.Clone()
	s.stored++
	return nil
}

func int64Ptr(v int64) *int64 { return &v }

// serverFixture reproduces a typical account: three folders where the
// engineering folder has the most unread, plus one folderless feed.
func serverFixture() *fakeClient {
	return &fakeClient{
		folders: []news.Folder{
			{ID: 1, Name: "Podcasts"},
			{ID: 2, Name: "Engineering Updates"},
			{ID: 3, Name: "Design Inspiration"},
		},
		feeds: news.FeedsResponse{
			Feeds: []news.Feed{
				{ID: 10, Title: "Go Blog", FolderID: int64Ptr(2)},
				{ID: 20, Title: "Design Weekly", FolderID: int64Ptr(3)},
				{ID: 30, Title: "Talk Show", FolderID: int64Ptr(1)},
				{ID: 40, Title: "Loose Feed"},
			},
		},
		items: []news.Article{
			{ID: 100, FeedID: 10, Title: "Release notes", Body: "<p>Go 1.24</p>", Unread: true},
			{ID: 101, FeedID: 10, Title: "Compiler deep dive", Unread: true},
			{ID: 102, FeedID: 10, Title: "Toolchain tips", Unread: true},
			{ID: 200, FeedID: 20, Title: "Color theory", Unread: true},
			{ID: 201, FeedID: 20, Title: "Grid systems", Unread: true},
			{ID: 300, FeedID: 30, Title: "Episode 12", Unread: true},
		},
	}
}

func newTestTimeline(t *testing.T, client NewsClient, store CacheStore) *Timeline {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tl := NewTimeline(client, store, logger)
	tl.syncTimeout = 2 * time.Second
	return tl
}

func refreshed(t *testing.T, client *fakeClient) *Timeline {
	t.Helper()
	tl := newTestTimeline(t, client, &memoryStore{})
	if err := tl.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	return tl
}

func queueNames(v View) []string {
	names := make([]string, 0, len(v.Queue))
	for _, entry := range v.Queue {
		names = append(names, entry.Name)
	}
	return names
}

func assertUnreadInvariant(t *testing.T, v View) {
	t.Helper()
	for _, entry := range v.Queue {
		count := 0
		for _, article := range entry.Articles {
			if article.Unread {
				count++
			}
		}
		if entry.UnreadCount != count {
			t.Fatalf("folder %q unread count %d does not match articles (%d)", entry.Name, entry.UnreadCount, count)
		}
	}
}

func TestRefreshBuildsPrioritizedQueue(t *testing.T) {
	tl := refreshed(t, serverFixture())

	v := tl.View()
	want := []string{"Engineering Updates", "Design Inspiration", "Podcasts"}
	got := queueNames(v)
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Fatalf("unexpected queue order: %v", got)
	}
	if v.TotalUnread != 6 {
		t.Fatalf("unexpected total unread: %d", v.TotalUnread)
	}
	if v.ActiveFolderID != 2 {
		t.Fatalf("expected highest-unread folder active, got %d", v.ActiveFolderID)
	}
	if v.LastSynced == 0 {
		t.Fatal("expected LastSynced to be set")
	}
	assertUnreadInvariant(t, v)
}

func TestRefreshFilesFolderlessFeedUnderSentinel(t *testing.T) {
	client := serverFixture()
	client.items = append(client.items, news.Article{ID: 400, FeedID: 40, Title: "Stray", Unread: true})

	tl := refreshed(t, client)

	var sentinel *timeline.FolderQueueEntry
	for _, entry := range tl.View().Queue {
		if entry.ID == timeline.UncategorizedFolderID {
			e := entry
			sentinel = &e
		}
	}
	if sentinel == nil {
		t.Fatal("expected an uncategorized folder in the queue")
	}
	if sentinel.Name != timeline.UncategorizedFolderName {
		t.Fatalf("unexpected sentinel name: %q", sentinel.Name)
	}
	if sentinel.UnreadCount != 1 {
		t.Fatalf("unexpected sentinel unread count: %d", sentinel.UnreadCount)
	}
}

func TestRefreshReconcilesReadsFromOtherClients(t *testing.T) {
	client := serverFixture()
	tl := refreshed(t, client)

	// Another client read the whole podcasts folder and one design item.
	client.items = client.items[:4]

	if err := tl.Refresh(context.Background()); err != nil {
		t.Fatalf("second Refresh failed: %v", err)
	}

	v := tl.View()
	got := queueNames(v)
	if len(got) != 2 || got[0] != "Engineering Updates" || got[1] != "Design Inspiration" {
		t.Fatalf("unexpected queue after reconcile: %v", got)
	}
	if v.TotalUnread != 4 {
		t.Fatalf("unexpected total unread: %d", v.TotalUnread)
	}
	assertUnreadInvariant(t, v)
}

func TestRefreshTimeout(t *testing.T) {
	client := &fakeClient{blockUntilCancel: true}
	tl := newTestTimeline(t, client, &memoryStore{})
	tl.syncTimeout = 50 * time.Millisecond

	err := tl.Refresh(context.Background())
	if !errors.Is(err, ErrSyncTimeout) {
		t.Fatalf("expected ErrSyncTimeout, got %v", err)
	}

	v := tl.View()
	if v.LastUpdateError == "" {
		t.Fatal("expected the error to be recorded for the UI")
	}
	if v.Syncing {
		t.Fatal("expected syncing flag cleared after failure")
	}
}

func TestRefreshFailureKeepsCachedState(t *testing.T) {
	client := serverFixture()
	tl := refreshed(t, client)

	client.listErr = errors.New("boom")
	if err := tl.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	v := tl.View()
	if len(v.Queue) != 3 {
		t.Fatalf("cached queue lost after failed refresh: %v", queueNames(v))
	}
	if v.LastUpdateError == "" {
		t.Fatal("expected LastUpdateError to be set")
	}

	client.listErr = nil
	if err := tl.Refresh(context.Background()); err != nil {
		t.Fatalf("recovery refresh failed: %v", err)
	}
	if got := tl.View().LastUpdateError; got != "" {
		t.Fatalf("expected LastUpdateError cleared, got %q", got)
	}
}

func TestRefreshRetriesPendingReadsFirst(t *testing.T) {
	client := serverFixture()
	store := &memoryStore{}
	seeded := timeline.NewCacheEnvelope()
	seeded.PendingReadIDs = []int64{300}
	store.envelope = seeded

	tl := newTestTimeline(t, client, store)
	tl.Hydrate(context.Background())

	if err := tl.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.markItemsCalls) != 1 || client.markItemsCalls[0][0] != 300 {
		t.Fatalf("expected pending read retry, got %v", client.markItemsCalls)
	}
}

func TestHydrateExposesPersistedQueueBeforeSync(t *testing.T) {
	store := &memoryStore{}
	seeded := timeline.NewCacheEnvelope()
	seeded.Folders[1] = timeline.FolderQueueEntry{
		ID: 1, Name: "Podcasts", Status: timeline.StatusQueued,
		Articles:    []timeline.ArticlePreview{{ID: 300, FolderID: 1, Unread: true}},
		UnreadCount: 1,
	}
	seeded.LastSynced = 123
	store.envelope = seeded

	tl := newTestTimeline(t, &fakeClient{}, store)
	tl.Hydrate(context.Background())

	v := tl.View()
	if !v.Hydrated {
		t.Fatal("expected hydrated view")
	}
	if len(v.Queue) != 1 || v.Queue[0].Name != "Podcasts" {
		t.Fatalf("unexpected hydrated queue: %v", queueNames(v))
	}
	if v.LastSynced != 123 {
		t.Fatalf("unexpected LastSynced: %d", v.LastSynced)
	}
}

func TestMarkFolderReadRemovesFolderAndAdvances(t *testing.T) {
	client := serverFixture()
	tl := refreshed(t, client)

	if err := tl.MarkFolderRead(context.Background(), 2); err != nil {
		t.Fatalf("MarkFolderRead failed: %v", err)
	}

	v := tl.View()
	got := queueNames(v)
	if len(got) != 2 || got[0] != "Design Inspiration" {
		t.Fatalf("unexpected queue after folder read: %v", got)
	}
	if v.ActiveFolderID != 3 {
		t.Fatalf("expected next folder active, got %d", v.ActiveFolderID)
	}
	if v.PendingReads != 0 {
		t.Fatalf("expected pendings cleared after confirmed mutation, got %d", v.PendingReads)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.markItemsCalls) == 0 {
		t.Fatal("expected MarkItemsRead to be called")
	}
	if batch := client.markItemsCalls[0]; len(batch) != 3 {
		t.Fatalf("expected 3 item ids in the batch, got %v", batch)
	}
}

func TestMarkFolderReadFailureKeepsPending(t *testing.T) {
	client := serverFixture()
	tl := refreshed(t, client)

	client.markReadErr = errors.New("server unavailable")
	err := tl.MarkFolderRead(context.Background(), 2)
	if err == nil {
		t.Fatal("expected mutation error to surface")
	}

	v := tl.View()
	if v.PendingReads != 3 {
		t.Fatalf("expected 3 pending ids retained, got %d", v.PendingReads)
	}
	// The optimistic removal is not rolled back.
	for _, name := range queueNames(v) {
		if name == "Engineering Updates" {
			t.Fatal("expected folder to stay removed after failed mutation")
		}
	}
}

func TestMarkFolderReadUnknownFolderIsNoop(t *testing.T) {
	client := serverFixture()
	tl := refreshed(t, client)

	if err := tl.MarkFolderRead(context.Background(), 99); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(tl.View().Queue) != 3 {
		t.Fatal("queue changed for unknown folder")
	}
}

func TestMarkItemReadKeepsFolderInQueue(t *testing.T) {
	client := serverFixture()
	tl := refreshed(t, client)

	tl.MarkItemRead(context.Background(), 300)

	v := tl.View()
	var podcasts *timeline.FolderQueueEntry
	for _, entry := range v.Queue {
		if entry.ID == 1 {
			e := entry
			podcasts = &e
		}
	}
	if podcasts == nil {
		t.Fatal("expected podcasts folder to stay queued at zero unread")
	}
	if podcasts.UnreadCount != 0 {
		t.Fatalf("unexpected unread count: %d", podcasts.UnreadCount)
	}
	if len(podcasts.Articles) != 1 || podcasts.Articles[0].Unread {
		t.Fatalf("expected the read article to stay visible: %+v", podcasts.Articles)
	}
	assertUnreadInvariant(t, v)

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.markItemCalls) != 1 || client.markItemCalls[0] != 300 {
		t.Fatalf("unexpected remote calls: %v", client.markItemCalls)
	}
}

func TestMarkItemReadFailureIsSilentAndKeepsPending(t *testing.T) {
	client := serverFixture()
	tl := refreshed(t, client)

	client.markReadErr = errors.New("flaky network")
	tl.MarkItemRead(context.Background(), 300)

	v := tl.View()
	if v.PendingReads != 1 {
		t.Fatalf("expected pending id retained, got %d", v.PendingReads)
	}
}

func TestMarkItemReadPrunedOnNextSync(t *testing.T) {
	client := serverFixture()
	tl := refreshed(t, client)

	tl.MarkItemRead(context.Background(), 300)

	// The fake server has confirmed the read, so the next sync stops
	// listing item 300 as unread and the emptied folder goes away.
	if err := tl.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	for _, entry := range tl.View().Queue {
		if entry.ID == 1 {
			t.Fatal("expected emptied podcasts folder pruned after sync")
		}
	}
}

func TestToggleStarred(t *testing.T) {
	client := serverFixture()
	tl := refreshed(t, client)

	tl.ToggleStarred(context.Background(), 100)
	tl.ToggleStarred(context.Background(), 100)

	articles := tl.View().ActiveArticles()
	for _, article := range articles {
		if article.ID == 100 && article.Starred {
			t.Fatal("expected star toggled back off")
		}
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.starCalls) != 1 || len(client.unstarCalls) != 1 {
		t.Fatalf("unexpected star calls: %v / %v", client.starCalls, client.unstarCalls)
	}
}

func TestSkipFolderDemotesAndAdvances(t *testing.T) {
	client := serverFixture()
	tl := refreshed(t, client)

	tl.SkipFolder(context.Background(), 2)

	v := tl.View()
	got := queueNames(v)
	if got[0] != "Design Inspiration" || got[len(got)-1] != "Engineering Updates" {
		t.Fatalf("unexpected queue after skip: %v", got)
	}
	if v.ActiveFolderID != 3 {
		t.Fatalf("expected next folder active, got %d", v.ActiveFolderID)
	}
	if v.Queue[len(v.Queue)-1].Status != timeline.StatusSkipped {
		t.Fatal("expected skipped status on demoted folder")
	}
}

func TestSetActiveFolderUnskips(t *testing.T) {
	client := serverFixture()
	tl := refreshed(t, client)

	tl.SkipFolder(context.Background(), 2)
	tl.SetActiveFolder(context.Background(), 2)

	v := tl.View()
	if v.ActiveFolderID != 2 {
		t.Fatalf("expected folder 2 active, got %d", v.ActiveFolderID)
	}
	entry, ok := v.ActiveFolder()
	if !ok || entry.Status != timeline.StatusQueued {
		t.Fatalf("expected folder requeued, got %+v", entry)
	}
	if got := queueNames(v); got[0] != "Engineering Updates" {
		t.Fatalf("expected active folder pinned first, got %v", got)
	}
}

func TestAllSkippedThenRestart(t *testing.T) {
	client := serverFixture()
	tl := refreshed(t, client)

	for _, id := range []int64{1, 2, 3} {
		tl.SkipFolder(context.Background(), id)
	}

	v := tl.View()
	if v.ActiveFolderID != 0 {
		t.Fatalf("expected no active folder when everything is skipped, got %d", v.ActiveFolderID)
	}
	if v.Progress.CurrentFolderID != 0 {
		t.Fatalf("expected no current folder, got %d", v.Progress.CurrentFolderID)
	}

	tl.Restart(context.Background())

	v = tl.View()
	if v.ActiveFolderID != 2 {
		t.Fatalf("expected priority order restored, got active %d", v.ActiveFolderID)
	}
	for _, entry := range v.Queue {
		if entry.Status != timeline.StatusQueued {
			t.Fatalf("folder %q still skipped after restart", entry.Name)
		}
	}
}

func TestViewIsACopy(t *testing.T) {
	tl := refreshed(t, serverFixture())

	v := tl.View()
	v.Queue[0].Articles[0].Title = "mutated"
	v.Queue[0].Name = "mutated"

	fresh := tl.View()
	if fresh.Queue[0].Name == "mutated" || fresh.Queue[0].Articles[0].Title == "mutated" {
		t.Fatal("view aliases internal state")
	}
}

func TestStoreFailureKeepsMemoryAuthoritative(t *testing.T) {
	client := serverFixture()
	store := &memoryStore{}
	tl := newTestTimeline(t, client, store)
	if err := tl.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	store.mu.Lock()
	store.storeErr = errors.New("disk full")
	store.mu.Unlock()

	tl.SkipFolder(context.Background(), 2)

	v := tl.View()
	if v.Queue[len(v.Queue)-1].ID != 2 {
		t.Fatalf("in-memory skip lost when persistence failed: %v", queueNames(v))
	}
}

func TestProgressTracksTraversal(t *testing.T) {
	tl := refreshed(t, serverFixture())

	v := tl.View()
	if v.Progress.CurrentFolderID != 2 || v.Progress.NextFolderID != 3 {
		t.Fatalf("unexpected progress: %+v", v.Progress)
	}
	if len(v.Progress.RemainingFolderIDs) != 2 {
		t.Fatalf("unexpected remaining: %v", v.Progress.RemainingFolderIDs)
	}
	if v.Progress.AllViewed {
		t.Fatal("expected AllViewed false with unread folders")
	}
}
