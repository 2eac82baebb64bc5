package timeline

import (
	"github.com/glabrego/newsbox-cli/internal/news"
)

// Reconcile removes every cached article the server no longer reports as
// unread: some client, possibly this one, already read it. Folders left
// empty are dropped, pending ids that the server has confirmed are pruned,
// and the active folder is cleared when its entry disappears. Reconciling
// twice with the same id set is a no-op the second time.
//
// This must run before MergeItems so stale local items never mask a
// server-confirmed read.
func Reconcile(envelope CacheEnvelope, serverUnreadIDs map[int64]struct{}, now int64) CacheEnvelope {
	out := envelope.Clone()

	for id, entry := range out.Folders {
		kept := entry.Articles[:0:0]
		for _, article := range entry.Articles {
			if _, ok := serverUnreadIDs[article.ID]; ok {
				kept = append(kept, article)
			}
		}
		if len(kept) == 0 {
			delete(out.Folders, id)
			continue
		}
		if len(kept) != len(entry.Articles) {
			entry.Articles = kept
			entry.UnreadCount = countUnread(kept)
			entry.LastUpdated = now
			out.Folders[id] = entry
		}
	}

	// A pending read id the server no longer lists as unread has been
	// confirmed; keep the rest for the next retry pass.
	pendingReads := out.PendingReadIDs[:0:0]
	for _, id := range out.PendingReadIDs {
		if _, ok := serverUnreadIDs[id]; ok {
			pendingReads = append(pendingReads, id)
		}
	}
	out.PendingReadIDs = pendingReads

	pendingSkips := out.PendingSkipFolderIDs[:0:0]
	for _, id := range out.PendingSkipFolderIDs {
		if _, ok := out.Folders[id]; ok {
			pendingSkips = append(pendingSkips, id)
		}
	}
	out.PendingSkipFolderIDs = pendingSkips

	if out.ActiveFolderID != 0 {
		if _, ok := out.Folders[out.ActiveFolderID]; !ok {
			out.ActiveFolderID = 0
		}
	}

	out.LastSynced = now
	return out.Normalize()
}

// MergeItems upserts freshly fetched previews into their folders, replacing
// cached articles by id and appending new ones. A replace keeps a local
// read flip: the pending mutation is what makes the server catch up, not
// the other way around. Folders with no unread articles after the merge are
// removed; they come back on a later sync if new unread items appear.
func MergeItems(envelope CacheEnvelope, previews []ArticlePreview, now int64) CacheEnvelope {
	out := envelope.Clone()

	maxSortOrder := -1
	for _, entry := range out.Folders {
		if entry.SortOrder > maxSortOrder {
			maxSortOrder = entry.SortOrder
		}
	}

	for _, preview := range previews {
		entry, ok := out.Folders[preview.FolderID]
		if !ok {
			maxSortOrder++
			entry = FolderQueueEntry{
				ID:        preview.FolderID,
				Status:    StatusQueued,
				SortOrder: maxSortOrder,
			}
		}

		replaced := false
		for i, existing := range entry.Articles {
			if existing.ID == preview.ID {
				if !existing.Unread {
					preview.Unread = false
				}
				entry.Articles[i] = preview
				replaced = true
				break
			}
		}
		if !replaced {
			entry.Articles = append(entry.Articles, preview)
		}

		entry.UnreadCount = countUnread(entry.Articles)
		entry.LastUpdated = now
		out.Folders[preview.FolderID] = entry
	}

	for id, entry := range out.Folders {
		if entry.UnreadCount == 0 {
			delete(out.Folders, id)
		}
	}

	if out.ActiveFolderID != 0 {
		if _, ok := out.Folders[out.ActiveFolderID]; !ok {
			out.ActiveFolderID = 0
		}
	}

	return out.Normalize()
}

// ApplyFolderNames refreshes cached folder names from the server's folder
// list. Unknown folders keep their cached name; the sentinel folder gets
// its fixed label.
func ApplyFolderNames(envelope CacheEnvelope, folders []news.Folder) CacheEnvelope {
	if len(folders) == 0 && len(envelope.Folders) == 0 {
		return envelope
	}

	names := make(map[int64]string, len(folders))
	for _, folder := range folders {
		names[folder.ID] = folder.Name
	}

	out := envelope.Clone()
	for id, entry := range out.Folders {
		if name, ok := names[id]; ok {
			entry.Name = name
		} else if id == UncategorizedFolderID {
			entry.Name = UncategorizedFolderName
		}
		out.Folders[id] = entry
	}
	return out
}

// ApplyFeedNames refreshes the feed name denormalized onto each preview.
func ApplyFeedNames(envelope CacheEnvelope, feedNames map[int64]string) CacheEnvelope {
	if len(feedNames) == 0 {
		return envelope
	}

	out := envelope.Clone()
	for id, entry := range out.Folders {
		for i, article := range entry.Articles {
			if name, ok := feedNames[article.FeedID]; ok && name != "" {
				entry.Articles[i].FeedName = name
			}
		}
		out.Folders[id] = entry
	}
	return out
}
