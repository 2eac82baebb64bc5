package timeline

import (
	"fmt"
	"sort"

	"github.com/glabrego/newsbox-cli/internal/news"
)

// BuildQueue groups unread previews by folder and produces one queue entry
// per folder holding at least one unread article. SortOrder and Status carry
// over from existing entries so skips and ranks survive a rebuild; folders
// new to the queue take the server's declared ordering, and folders the
// server no longer reports are appended after it. The returned order is not
// meaningful; callers sort with SortQueue.
func BuildQueue(folders []news.Folder, previews []ArticlePreview, existing map[int64]FolderQueueEntry, now int64) []FolderQueueEntry {
	grouped := map[int64][]ArticlePreview{}
	for _, preview := range previews {
		if !preview.Unread {
			continue
		}
		grouped[preview.FolderID] = append(grouped[preview.FolderID], preview)
	}

	folderNames := make(map[int64]string, len(folders))
	serverOrder := make(map[int64]int, len(folders))
	for i, folder := range folders {
		folderNames[folder.ID] = folder.Name
		serverOrder[folder.ID] = i
	}

	ids := make([]int64, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	appendRank := len(folders)
	entries := make([]FolderQueueEntry, 0, len(ids))
	for _, id := range ids {
		articles := grouped[id]
		entry := FolderQueueEntry{
			ID:          id,
			Name:        resolveFolderName(id, folderNames, existing),
			Status:      StatusQueued,
			UnreadCount: countUnread(articles),
			Articles:    articles,
			LastUpdated: now,
		}

		if prev, ok := existing[id]; ok {
			entry.SortOrder = prev.SortOrder
			entry.Status = prev.Status
		} else if rank, ok := serverOrder[id]; ok {
			entry.SortOrder = rank
		} else {
			entry.SortOrder = appendRank
			appendRank++
		}

		entries = append(entries, entry)
	}
	return entries
}

func resolveFolderName(id int64, folderNames map[int64]string, existing map[int64]FolderQueueEntry) string {
	if name, ok := folderNames[id]; ok {
		return name
	}
	if id == UncategorizedFolderID {
		return UncategorizedFolderName
	}
	if prev, ok := existing[id]; ok && prev.Name != "" {
		return prev.Name
	}
	return fmt.Sprintf("Folder %d", id)
}

// SortQueue orders entries queued-before-skipped, then by descending unread
// count, then by ascending sort order. The sort is stable so entries with
// identical keys keep their input order. The input slice is not modified.
func SortQueue(entries []FolderQueueEntry) []FolderQueueEntry {
	out := append([]FolderQueueEntry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Status != b.Status {
			return a.Status == StatusQueued
		}
		if a.UnreadCount != b.UnreadCount {
			return a.UnreadCount > b.UnreadCount
		}
		return a.SortOrder < b.SortOrder
	})
	return out
}

// MoveFolderToEnd marks the named folder skipped; its position at the end
// is an emergent property of the next SortQueue call. Unknown ids are a
// no-op, so skipping is idempotent and never errors.
func MoveFolderToEnd(entries []FolderQueueEntry, folderID int64) []FolderQueueEntry {
	out := append([]FolderQueueEntry(nil), entries...)
	for i := range out {
		if out[i].ID == folderID {
			out[i].Status = StatusSkipped
		}
	}
	return out
}

// PinActiveFolder moves the chosen folder to the front of an already-sorted
// queue, preserving the relative order of the rest. A zero or unknown id
// returns the input unchanged.
func PinActiveFolder(sorted []FolderQueueEntry, activeFolderID int64) []FolderQueueEntry {
	if activeFolderID == 0 {
		return sorted
	}
	idx := -1
	for i, entry := range sorted {
		if entry.ID == activeFolderID {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return sorted
	}

	out := make([]FolderQueueEntry, 0, len(sorted))
	out = append(out, sorted[idx])
	out = append(out, sorted[:idx]...)
	out = append(out, sorted[idx+1:]...)
	return out
}

// FirstQueuedID returns the id of the first non-skipped entry, or zero when
// every folder is skipped or the queue is empty.
func FirstQueuedID(queue []FolderQueueEntry) int64 {
	for _, entry := range queue {
		if entry.Status != StatusSkipped {
			return entry.ID
		}
	}
	return 0
}

// DeriveProgress computes the traversal view over a queue in display order.
func DeriveProgress(queue []FolderQueueEntry, activeFolderID int64) Progress {
	progress := Progress{AllViewed: true}
	for _, entry := range queue {
		if entry.UnreadCount > 0 {
			progress.AllViewed = false
			break
		}
	}

	currentIdx := -1
	if activeFolderID != 0 {
		for i, entry := range queue {
			if entry.ID == activeFolderID {
				currentIdx = i
				break
			}
		}
	}
	if currentIdx == -1 {
		for i, entry := range queue {
			if entry.Status != StatusSkipped {
				currentIdx = i
				break
			}
		}
	}
	if currentIdx == -1 {
		return progress
	}

	progress.CurrentFolderID = queue[currentIdx].ID
	if currentIdx+1 < len(queue) {
		progress.NextFolderID = queue[currentIdx+1].ID
	}
	for _, entry := range queue[currentIdx+1:] {
		progress.RemainingFolderIDs = append(progress.RemainingFolderIDs, entry.ID)
	}
	return progress
}
