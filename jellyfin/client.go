package jellyfin

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/garry/jellify/config"
	"github.com/garry/jellify/match"
)

// Constants for the Jellyfin API
const (
	// Item types
	ItemTypeAudio    = "Audio"
	ItemTypePlaylist = "Playlist"

	// Fields requested for library items
	libraryFields = "Name,Artists,Album"

	// HTTP timeouts; the full library download can be slow on large servers
	DefaultHTTPTimeout = 5 * time.Minute

	// AddBatchSize caps the IDs sent per add request to keep URLs short
	AddBatchSize = 100

	tokenHeader = "X-Emby-Token"
)

// Client wraps the Jellyfin HTTP API
type Client struct {
	baseURL    string
	apiKey     string
	userID     string
	httpClient *http.Client
}

// Item is a library item as returned by the items endpoints
type Item struct {
	ID      string   `json:"Id"`
	Name    string   `json:"Name"`
	Type    string   `json:"Type"`
	Artists []string `json:"Artists"`
	Album   string   `json:"Album"`
}

// ItemsResponse is the envelope of every items query
type ItemsResponse struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

// PlaylistCreationResult is returned when a playlist is created
type PlaylistCreationResult struct {
	ID string `json:"Id"`
}

// ServerInfo is the public server information
type ServerInfo struct {
	ID         string `json:"Id"`
	ServerName string `json:"ServerName"`
	Version    string `json:"Version"`
}

// NewClient creates a new Jellyfin client
func NewClient(cfg *config.Config) *Client {
	httpClient := &http.Client{Timeout: DefaultHTTPTimeout}

	if cfg.Jellyfin.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.Jellyfin.URL, "/"),
		apiKey:     cfg.Jellyfin.APIKey,
		userID:     cfg.Jellyfin.UserID,
		httpClient: httpClient,
	}
}

// GetBaseURL returns the base URL
func (c *Client) GetBaseURL() string {
	return c.baseURL
}

// GetServerInfo retrieves public server information
func (c *Client) GetServerInfo(ctx context.Context) (*ServerInfo, error) {
	var info ServerInfo
	if err := c.get(ctx, "/System/Info/Public", nil, &info); err != nil {
		return nil, fmt.Errorf("failed to get server info: %w", err)
	}
	return &info, nil
}

// FetchLibrary downloads every audio item visible to the configured user
func (c *Client) FetchLibrary(ctx context.Context) ([]match.Entry, error) {
	params := url.Values{}
	params.Add("IncludeItemTypes", ItemTypeAudio)
	params.Add("Recursive", "true")
	params.Add("Fields", libraryFields)
	params.Add("UserId", c.userID)

	var resp ItemsResponse
	if err := c.get(ctx, "/Items", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch library items: %w", err)
	}

	entries := make([]match.Entry, 0, len(resp.Items))
	for _, item := range resp.Items {
		entries = append(entries, match.Entry{
			ID:      item.ID,
			Title:   item.Name,
			Artists: item.Artists,
			Album:   item.Album,
		})
	}

	log.Debugf("FetchLibrary: %d items (server reported %d)", len(entries), resp.TotalRecordCount)
	return entries, nil
}

// FindPlaylist searches the user's playlists for one whose name matches
// case-insensitively
func (c *Client) FindPlaylist(ctx context.Context, name string) (string, bool, error) {
	params := url.Values{}
	params.Add("searchTerm", name)
	params.Add("IncludeItemTypes", ItemTypePlaylist)
	params.Add("Recursive", "true")

	var resp ItemsResponse
	if err := c.get(ctx, fmt.Sprintf("/Users/%s/Items", url.PathEscape(c.userID)), params, &resp); err != nil {
		return "", false, fmt.Errorf("failed to search playlists: %w", err)
	}

	for _, item := range resp.Items {
		if strings.EqualFold(item.Name, name) {
			return item.ID, true, nil
		}
	}

	log.Debugf("FindPlaylist: no exact match for '%s' among %d results", name, len(resp.Items))
	return "", false, nil
}

// CreatePlaylist creates an empty playlist owned by the configured user
func (c *Client) CreatePlaylist(ctx context.Context, name string) (string, error) {
	params := url.Values{}
	params.Add("Name", name)
	params.Add("UserId", c.userID)

	var result PlaylistCreationResult
	if err := c.post(ctx, "/Playlists", params, &result); err != nil {
		return "", fmt.Errorf("failed to create playlist: %w", err)
	}

	if result.ID == "" {
		return "", fmt.Errorf("playlist creation response does not contain an ID")
	}

	return result.ID, nil
}

// GetPlaylistItems returns the IDs of the items in a playlist
func (c *Client) GetPlaylistItems(ctx context.Context, playlistID string) ([]string, error) {
	params := url.Values{}
	params.Add("UserId", c.userID)

	var resp ItemsResponse
	if err := c.get(ctx, fmt.Sprintf("/Playlists/%s/Items", url.PathEscape(playlistID)), params, &resp); err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		ids = append(ids, item.ID)
	}
	return ids, nil
}

// AddToPlaylist appends items to a playlist in order, AddBatchSize at a time
func (c *Client) AddToPlaylist(ctx context.Context, playlistID string, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}

	log.Debugf("Adding %d items to playlist %s", len(itemIDs), playlistID)

	path := fmt.Sprintf("/Playlists/%s/Items", url.PathEscape(playlistID))
	for start := 0; start < len(itemIDs); start += AddBatchSize {
		end := min(start+AddBatchSize, len(itemIDs))

		params := url.Values{}
		params.Add("Ids", strings.Join(itemIDs[start:end], ","))
		params.Add("UserId", c.userID)

		if err := c.post(ctx, path, params, nil); err != nil {
			return fmt.Errorf("failed to add items %d-%d of %d: %w", start+1, end, len(itemIDs), err)
		}
	}

	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, params, out)
}

func (c *Client) post(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, http.MethodPost, path, params, out)
}

// do sends an authenticated request and decodes a JSON body into out when out is non-nil
func (c *Client) do(ctx context.Context, method, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(tokenHeader, c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("jellyfin %s %s returned status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
