package state

import (
	"github.com/glabrego/newsbox-cli/internal/timeline"
)

func ClampCursor(cursor, size int) int {
	if size <= 0 {
		return 0
	}
	if cursor >= size {
		return size - 1
	}
	if cursor < 0 {
		return 0
	}
	return cursor
}

// CenteredWindow returns the [start, end) row window that keeps the cursor
// near the middle of a viewport of the given height.
func CenteredWindow(totalRows, cursor, height int) (int, int) {
	if totalRows <= 0 {
		return 0, 0
	}
	if height <= 0 || totalRows <= height {
		return 0, totalRows
	}
	cursor = ClampCursor(cursor, totalRows)
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	maxStart := totalRows - height
	if start > maxStart {
		start = maxStart
	}
	return start, start + height
}

// ArticleListHeight is the number of article rows that fit under the header
// chrome for a terminal of the given height.
func ArticleListHeight(height int, hasStatus bool) int {
	if height <= 0 {
		return 10
	}
	headerLines := 7
	if hasStatus {
		headerLines += 2
	}
	rows := height - headerLines
	if rows < 3 {
		rows = 3
	}
	return rows
}

func OrderedArticleIDs(articles []timeline.ArticlePreview) []int64 {
	out := make([]int64, 0, len(articles))
	for _, article := range articles {
		out = append(out, article.ID)
	}
	return out
}

func ArticleIndexByID(articles []timeline.ArticlePreview, articleID int64) int {
	for i, article := range articles {
		if article.ID == articleID {
			return i
		}
	}
	return -1
}

// ScrolledPastIDs lists the unread articles that have fully left the window
// above the fold; these are the auto-mark-read candidates.
func ScrolledPastIDs(articles []timeline.ArticlePreview, windowStart int) []int64 {
	if windowStart <= 0 {
		return nil
	}
	if windowStart > len(articles) {
		windowStart = len(articles)
	}
	out := make([]int64, 0, windowStart)
	for _, article := range articles[:windowStart] {
		if article.Unread {
			out = append(out, article.ID)
		}
	}
	return out
}
