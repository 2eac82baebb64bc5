package news

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"golang.org/x/time/rate"
)

const (
	readRetryAttempts = 3
	readRetryDelay    = 500 * time.Millisecond
)

// Client talks to a Nextcloud News compatible API. Read calls are retried
// with backoff; mutation calls are single-shot because the timeline cache
// keeps its own pending bookkeeping for them.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	limiter  *rate.Limiter
}

func NewClient(baseURL, username, password string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		http:     httpClient,
		limiter:  rate.NewLimiter(rate.Limit(10), 5),
	}
}

// ValidateCredentials probes the folders endpoint to confirm connectivity
// and authentication before the TUI starts.
func (c *Client) ValidateCredentials(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/folders", nil)
	if err != nil {
		return fmt.Errorf("validate credentials request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return fmt.Errorf("authentication failed: invalid credentials")
	default:
		return fmt.Errorf("validate credentials failed with status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}
}

func (c *Client) ListFolders(ctx context.Context) ([]Folder, error) {
	var out foldersResponse
	if err := c.getJSON(ctx, "/folders", "folders", &out); err != nil {
		return nil, err
	}
	return out.Folders, nil
}

func (c *Client) ListFeeds(ctx context.Context) (FeedsResponse, error) {
	var out FeedsResponse
	if err := c.getJSON(ctx, "/feeds", "feeds", &out); err != nil {
		return FeedsResponse{}, err
	}
	return out, nil
}

// ListUnreadItems fetches every currently unread item in one batch. This is
// the source of truth for reconciliation.
func (c *Client) ListUnreadItems(ctx context.Context) ([]Article, error) {
	var out itemsResponse
	path := "/items?batchSize=-1&type=3&getRead=false&oldestFirst=false"
	if err := c.getJSON(ctx, path, "unread items", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) MarkItemRead(ctx context.Context, itemID int64) error {
	return c.mutate(ctx, "/items/"+strconv.FormatInt(itemID, 10)+"/read", nil, "mark item read")
}

func (c *Client) MarkItemUnread(ctx context.Context, itemID int64) error {
	return c.mutate(ctx, "/items/"+strconv.FormatInt(itemID, 10)+"/unread", nil, "mark item unread")
}

func (c *Client) MarkItemsRead(ctx context.Context, itemIDs []int64) error {
	if len(itemIDs) == 0 {
		return nil
	}
	body := struct {
		ItemIDs []int64 `json:"itemIds"`
	}{ItemIDs: itemIDs}
	return c.mutate(ctx, "/items/read/multiple", body, "mark items read")
}

func (c *Client) MarkFolderRead(ctx context.Context, folderID, newestItemID int64) error {
	body := struct {
		NewestItemID int64 `json:"newestItemId"`
	}{NewestItemID: newestItemID}
	return c.mutate(ctx, "/folders/"+strconv.FormatInt(folderID, 10)+"/read", body, "mark folder read")
}

func (c *Client) StarItem(ctx context.Context, itemID int64) error {
	return c.mutate(ctx, "/items/"+strconv.FormatInt(itemID, 10)+"/star", nil, "star item")
}

func (c *Client) UnstarItem(ctx context.Context, itemID int64) error {
	return c.mutate(ctx, "/items/"+strconv.FormatInt(itemID, 10)+"/unstar", nil, "unstar item")
}

func (c *Client) getJSON(ctx context.Context, path, resource string, out any) error {
	err := retry.Do(
		func() error {
			resp, err := c.do(ctx, http.MethodGet, path, nil)
			if err != nil {
				return fmt.Errorf("list %s request failed: %w", resource, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusUnauthorized {
				return retry.Unrecoverable(fmt.Errorf("list %s failed: invalid credentials", resource))
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("list %s failed with status %d: %s", resource, resp.StatusCode, readErrorBody(resp.Body))
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode %s response: %w", resource, err))
			}
			return nil
		},
		retry.Attempts(readRetryAttempts),
		retry.Delay(readRetryDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	return err
}

func (c *Client) mutate(ctx context.Context, path string, body any, action string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", action, err)
		}
		reader = bytes.NewReader(payload)
	}

	resp, err := c.do(ctx, http.MethodPost, path, reader)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s failed with status %d: %s", action, resp.StatusCode, readErrorBody(resp.Body))
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

func readErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	return strings.TrimSpace(string(body))
}
