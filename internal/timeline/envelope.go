package timeline

// UncategorizedFolderID files articles whose folder cannot be resolved from
// either the article itself or its feed's configuration.
const UncategorizedFolderID int64 = -1

// UncategorizedFolderName labels the sentinel folder in the UI.
const UncategorizedFolderName = "Uncategorized"

type FolderStatus string

const (
	StatusQueued  FolderStatus = "queued"
	StatusSkipped FolderStatus = "skipped"
)

// ArticlePreview is the denormalized, display-ready projection of a remote
// article. Immutable once created except for the Unread and Starred flags,
// which optimistic updates flip in place.
type ArticlePreview struct {
	ID           int64  `json:"id"`
	FolderID     int64  `json:"folderId"`
	FeedID       int64  `json:"feedId"`
	Title        string `json:"title"`
	FeedName     string `json:"feedName"`
	Author       string `json:"author"`
	Summary      string `json:"summary"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	PubDate      int64  `json:"pubDate"`  // epoch seconds
	Unread       bool   `json:"unread"`
	Starred      bool   `json:"starred"`
	HasFullText  bool   `json:"hasFullText"`
	StoredAt     int64  `json:"storedAt"` // epoch milliseconds, local cache-write time
}

// FolderQueueEntry is one folder's traversal state. UnreadCount must always
// equal the number of articles with Unread set; every mutation recounts.
type FolderQueueEntry struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	SortOrder   int              `json:"sortOrder"`
	Status      FolderStatus     `json:"status"`
	UnreadCount int              `json:"unreadCount"`
	Articles    []ArticlePreview `json:"articles"`
	LastUpdated int64            `json:"lastUpdated"` // epoch milliseconds
}

// CacheEnvelope is the root persisted object. An ActiveFolderID of zero
// means no folder is active; real folder ids are positive or the negative
// uncategorized sentinel, never zero.
type CacheEnvelope struct {
	Folders              map[int64]FolderQueueEntry `json:"folders"`
	ActiveFolderID       int64                      `json:"activeFolderId"`
	PendingReadIDs       []int64                    `json:"pendingReadIds"`
	PendingSkipFolderIDs []int64                    `json:"pendingSkipFolderIds"`
	LastSynced           int64                      `json:"lastSynced"`
}

func NewCacheEnvelope() CacheEnvelope {
	return CacheEnvelope{
		Folders:              map[int64]FolderQueueEntry{},
		PendingReadIDs:       []int64{},
		PendingSkipFolderIDs: []int64{},
	}
}

// Normalize repairs nil collections after a JSON round trip so callers can
// index and append without nil checks.
func (e CacheEnvelope) Normalize() CacheEnvelope {
	if e.Folders == nil {
		e.Folders = map[int64]FolderQueueEntry{}
	}
	if e.PendingReadIDs == nil {
		e.PendingReadIDs = []int64{}
	}
	if e.PendingSkipFolderIDs == nil {
		e.PendingSkipFolderIDs = []int64{}
	}
	return e
}

// Clone deep-copies the envelope so functional updates never alias the
// previous value's folders or article slices.
func (e CacheEnvelope) Clone() CacheEnvelope {
	out := e
	out.Folders = make(map[int64]FolderQueueEntry, len(e.Folders))
	for id, entry := range e.Folders {
		out.Folders[id] = entry.Clone()
	}
	out.PendingReadIDs = append([]int64(nil), e.PendingReadIDs...)
	out.PendingSkipFolderIDs = append([]int64(nil), e.PendingSkipFolderIDs...)
	return out
}

func (e FolderQueueEntry) Clone() FolderQueueEntry {
	out := e
	out.Articles = append([]ArticlePreview(nil), e.Articles...)
	return out
}

// TotalUnread sums unread counts across all folders.
func (e CacheEnvelope) TotalUnread() int {
	total := 0
	for _, entry := range e.Folders {
		total += entry.UnreadCount
	}
	return total
}

func countUnread(articles []ArticlePreview) int {
	count := 0
	for _, a := range articles {
		if a.Unread {
			count++
		}
	}
	return count
}

// Progress is the derived traversal view. It is recomputed on every read
// and never persisted. A zero folder id means "none".
type Progress struct {
	CurrentFolderID    int64
	NextFolderID       int64
	RemainingFolderIDs []int64
	AllViewed          bool
}
