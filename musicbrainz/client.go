package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/garry/jellify/reconcile"
	"golang.org/x/time/rate"
)

const (
	// ColumnMusicBrainzID is added to missing records that could be identified
	ColumnMusicBrainzID = "MusicBrainz ID"

	defaultBaseURL = "https://musicbrainz.org/ws/2"

	// MusicBrainz allows one request per second per client
	defaultInterval = time.Second
)

// ISRCColumns are the record columns checked for an ISRC, in order
var ISRCColumns = []string{"ISRC", "isrc"}

// Client wraps the MusicBrainz web service
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
}

// Recording is a MusicBrainz recording
type Recording struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Score int    `json:"score"`
}

// ISRCResponse is the response of the ISRC lookup
type ISRCResponse struct {
	ISRC       string      `json:"isrc"`
	Recordings []Recording `json:"recordings"`
}

// SearchResponse is the response of a recording search
type SearchResponse struct {
	Count      int         `json:"count"`
	Recordings []Recording `json:"recordings"`
}

// NewClient creates a new MusicBrainz client
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:   defaultBaseURL,
		userAgent: "Jellify/1.0 (https://github.com/garry/jellify)",
		limiter:   rate.NewLimiter(rate.Every(defaultInterval), 1),
	}
}

// GetMusicBrainzIDByISRC returns the first recording registered for an ISRC
func (c *Client) GetMusicBrainzIDByISRC(ctx context.Context, isrc string) (string, error) {
	if isrc == "" {
		return "", fmt.Errorf("ISRC cannot be empty")
	}

	params := url.Values{}
	params.Add("fmt", "json")

	var resp ISRCResponse
	if err := c.get(ctx, "/isrc/"+url.PathEscape(isrc), params, &resp); err != nil {
		return "", err
	}

	if len(resp.Recordings) == 0 {
		return "", fmt.Errorf("no recordings found for ISRC: %s", isrc)
	}

	return resp.Recordings[0].ID, nil
}

// GetMusicBrainzIDByArtistAndTitle returns the best scored recording for an
// artist and title search
func (c *Client) GetMusicBrainzIDByArtistAndTitle(ctx context.Context, artist, title string) (string, error) {
	if artist == "" || title == "" {
		return "", fmt.Errorf("artist and title cannot be empty")
	}

	query := fmt.Sprintf("artist:\"%s\" AND recording:\"%s\"",
		strings.ReplaceAll(artist, "\"", "\\\""),
		strings.ReplaceAll(title, "\"", "\\\""))

	params := url.Values{}
	params.Add("query", query)
	params.Add("fmt", "json")
	params.Add("limit", "1")

	var resp SearchResponse
	if err := c.get(ctx, "/recording/", params, &resp); err != nil {
		return "", err
	}

	if len(resp.Recordings) == 0 {
		return "", fmt.Errorf("no recordings found for artist: %s, title: %s", artist, title)
	}

	return resp.Recordings[0].ID, nil
}

// Lookup identifies a record by its ISRC, falling back to artist and title
func (c *Client) Lookup(ctx context.Context, record reconcile.Record) (string, error) {
	for _, column := range ISRCColumns {
		if isrc := record[column]; isrc != "" {
			id, err := c.GetMusicBrainzIDByISRC(ctx, isrc)
			if err == nil {
				return id, nil
			}
			log.Debugf("MusicBrainz ISRC lookup failed for %s: %v", isrc, err)
			break
		}
	}

	return c.GetMusicBrainzIDByArtistAndTitle(ctx, record.Artist(), record.Title())
}

// AnnotateMissing adds a MusicBrainz ID column to each missing record of the
// outcome that can be identified, and returns how many were
func (c *Client) AnnotateMissing(ctx context.Context, outcome *reconcile.Outcome) int {
	found := 0
	for _, record := range outcome.Missing {
		if ctx.Err() != nil {
			break
		}

		id, err := c.Lookup(ctx, record)
		if err != nil {
			log.Debugf("MusicBrainz: %s - %s: %v", record.Artist(), record.Title(), err)
			continue
		}

		record[ColumnMusicBrainzID] = id
		found++
	}

	if found > 0 && !containsColumn(outcome.Columns, ColumnMusicBrainzID) {
		outcome.Columns = append(outcome.Columns, ColumnMusicBrainzID)
	}
	return found
}

func containsColumn(columns []string, column string) bool {
	for _, c := range columns {
		if c == column {
			return true
		}
	}
	return false
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Set required headers for MusicBrainz API
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("MusicBrainz API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode JSON response: %w", err)
	}

	return nil
}
