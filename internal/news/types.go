package news

// Folder is a server-side folder as returned by GET /folders.
type Folder struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	UnreadCount int     `json:"unreadCount"`
	FeedIDs     []int64 `json:"feedIds"`
}

// Feed is the subset of feed metadata required by the app. FolderID is nil
// when the feed is not filed into any folder.
type Feed struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Link        string `json:"link"`
	FolderID    *int64 `json:"folderId"`
	UnreadCount int    `json:"unreadCount"`
	Ordering    int    `json:"ordering"`
}

// Article is a raw item as returned by GET /items. FolderID is nil when the
// server did not resolve the item into a folder; the timeline package falls
// back to the owning feed's folder in that case.
type Article struct {
	ID             int64  `json:"id"`
	GUID           string `json:"guid"`
	FeedID         int64  `json:"feedId"`
	FolderID       *int64 `json:"folderId"`
	Title          string `json:"title"`
	Author         string `json:"author"`
	URL            string `json:"url"`
	Body           string `json:"body"`
	PubDate        int64  `json:"pubDate"`
	Unread         bool   `json:"unread"`
	Starred        bool   `json:"starred"`
	MediaThumbnail string `json:"mediaThumbnail"`
	LastModified   int64  `json:"lastModified"`
}

type foldersResponse struct {
	Folders []Folder `json:"folders"`
}

// FeedsResponse carries the feed list plus the account-level counters the
// server reports alongside it.
type FeedsResponse struct {
	Feeds        []Feed `json:"feeds"`
	StarredCount int    `json:"starredCount"`
	NewestItemID int64  `json:"newestItemId"`
}

type itemsResponse struct {
	Items []Article `json:"items"`
}
