package spotify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/garry/jellify/config"
	"github.com/garry/jellify/reconcile"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// Column names match the Exportify CSV layout so both sources reconcile the same way
const (
	ColumnTrackURI   = "Track URI"
	ColumnTrackName  = "Track Name"
	ColumnArtists    = "Artist Name(s)"
	ColumnAlbumName  = "Album Name"
	ColumnISRC       = "ISRC"
	ColumnDurationMS = "Duration (ms)"

	pageSize = 100
)

// Columns is the header of every batch built from a Spotify playlist
var Columns = []string{ColumnTrackURI, ColumnTrackName, ColumnArtists, ColumnAlbumName, ColumnISRC, ColumnDurationMS}

// Client wraps the Spotify API client
type Client struct {
	client *spotify.Client
}

// NewClient creates a new Spotify client using the client credentials flow.
// Only public playlists are reachable this way.
func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	creds := &clientcredentials.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	token, err := creds.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	httpClient := spotifyauth.New().Client(ctx, token)
	return &Client{client: spotify.New(httpClient)}, nil
}

// FetchBatch loads a playlist as a batch. An empty playlist name falls back to
// the Spotify playlist's own name.
func (c *Client) FetchBatch(ctx context.Context, playlistID, playlist string) (reconcile.Batch, error) {
	info, err := c.client.GetPlaylist(ctx, spotify.ID(playlistID))
	if err != nil {
		return reconcile.Batch{}, fmt.Errorf("%w: playlist %s not found or not accessible: %w", reconcile.ErrRecordReadFailed, playlistID, err)
	}

	if playlist == "" {
		playlist = info.Name
	}

	records, err := c.playlistRecords(ctx, info.ID)
	if err != nil {
		return reconcile.Batch{}, fmt.Errorf("%w: %w", reconcile.ErrRecordReadFailed, err)
	}

	log.Debugf("Fetched %d tracks from Spotify playlist %s (%s)", len(records), info.Name, playlistID)

	return reconcile.Batch{
		Playlist: playlist,
		Source:   "spotify:playlist:" + playlistID,
		Columns:  Columns,
		Records:  records,
	}, nil
}

// playlistRecords pages through every track of a playlist
func (c *Client) playlistRecords(ctx context.Context, id spotify.ID) ([]reconcile.Record, error) {
	var records []reconcile.Record
	page := 1

	for {
		tracks, err := c.client.GetPlaylistTracks(ctx, id, spotify.Offset((page-1)*pageSize), spotify.Limit(pageSize))
		if err != nil {
			return nil, fmt.Errorf("failed to get playlist tracks (page %d): %w", page, err)
		}

		for _, item := range tracks.Tracks {
			records = append(records, trackToRecord(item.Track))
		}

		if len(tracks.Tracks) < pageSize {
			break
		}
		page++
	}

	return records, nil
}

// trackToRecord shapes a track the way an Exportify export row looks
func trackToRecord(track spotify.FullTrack) reconcile.Record {
	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	return reconcile.Record{
		ColumnTrackURI:   string(track.URI),
		ColumnTrackName:  track.Name,
		ColumnArtists:    strings.Join(artists, ", "),
		ColumnAlbumName:  track.Album.Name,
		ColumnISRC:       track.ExternalIDs["isrc"],
		ColumnDurationMS: strconv.Itoa(int(track.Duration)),
	}
}
