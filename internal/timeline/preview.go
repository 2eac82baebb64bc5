package timeline

import (
	"html"
	"strings"

	nethtml "golang.org/x/net/html"

	"github.com/glabrego/newsbox-cli/internal/news"
)

const summaryMaxRunes = 320

// ResolveFolderID derives the owning folder for an article: the article's
// own folder id when the server set one, else the owning feed's configured
// folder, else the uncategorized sentinel.
func ResolveFolderID(article news.Article, feedFolders map[int64]int64) int64 {
	if article.FolderID != nil {
		return *article.FolderID
	}
	if folderID, ok := feedFolders[article.FeedID]; ok {
		return folderID
	}
	return UncategorizedFolderID
}

// FeedFolderMap maps feed id to folder id, substituting the uncategorized
// sentinel for feeds that are not filed into any folder.
func FeedFolderMap(feeds []news.Feed) map[int64]int64 {
	out := make(map[int64]int64, len(feeds))
	for _, feed := range feeds {
		if feed.FolderID != nil {
			out[feed.ID] = *feed.FolderID
		} else {
			out[feed.ID] = UncategorizedFolderID
		}
	}
	return out
}

func FeedNameMap(feeds []news.Feed) map[int64]string {
	out := make(map[int64]string, len(feeds))
	for _, feed := range feeds {
		out[feed.ID] = feed.Title
	}
	return out
}

// NewPreview builds the display-ready projection of a raw article.
func NewPreview(article news.Article, folderID int64, feedName string, storedAt int64) ArticlePreview {
	title := article.Title
	if strings.TrimSpace(title) == "" {
		title = "Untitled article"
	}

	url := article.URL
	if strings.TrimSpace(url) == "" {
		url = "#"
	}

	name := strings.TrimSpace(feedName)
	if name == "" {
		name = "Unknown source"
	}

	return ArticlePreview{
		ID:           article.ID,
		FolderID:     folderID,
		FeedID:       article.FeedID,
		Title:        title,
		FeedName:     name,
		Author:       strings.TrimSpace(article.Author),
		Summary:      Summarize(article.Body),
		URL:          url,
		ThumbnailURL: article.MediaThumbnail,
		PubDate:      article.PubDate,
		Unread:       article.Unread,
		Starred:      article.Starred,
		HasFullText:  strings.TrimSpace(article.Body) != "",
		StoredAt:     storedAt,
	}
}

// Summarize strips HTML from an article body and truncates the text to the
// preview length, appending an ellipsis when content was cut.
func Summarize(body string) string {
	text := StripHTML(body)
	runes := []rune(text)
	if len(runes) <= summaryMaxRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:summaryMaxRunes-3])) + "…"
}

var skippedTextContainers = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
}

// StripHTML reduces an HTML fragment to its visible text with whitespace
// collapsed. Malformed markup degrades to whatever text the tokenizer can
// recover; it never errors.
func StripHTML(input string) string {
	if input == "" {
		return ""
	}

	tokenizer := nethtml.NewTokenizer(strings.NewReader(input))
	var b strings.Builder
	skipDepth := 0

	for {
		switch tokenizer.Next() {
		case nethtml.ErrorToken:
			return collapseWhitespace(html.UnescapeString(b.String()))
		case nethtml.TextToken:
			if skipDepth == 0 {
				b.Write(tokenizer.Text())
				b.WriteByte(' ')
			}
		case nethtml.StartTagToken:
			name, _ := tokenizer.TagName()
			if skippedTextContainers[string(name)] {
				skipDepth++
			}
		case nethtml.EndTagToken:
			name, _ := tokenizer.TagName()
			if skippedTextContainers[string(name)] && skipDepth > 0 {
				skipDepth--
			}
		}
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
