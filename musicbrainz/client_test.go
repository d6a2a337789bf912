package musicbrainz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/garry/jellify/reconcile"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient()
	client.baseURL = server.URL
	client.limiter = rate.NewLimiter(rate.Inf, 1)
	return client
}

func TestNewClient(t *testing.T) {
	client := NewClient()

	if client.httpClient == nil {
		t.Error("Expected httpClient to be initialized, got nil")
	}
	if client.userAgent == "" {
		t.Error("Expected userAgent to be set, got empty string")
	}
	if client.baseURL != defaultBaseURL {
		t.Errorf("Expected base URL %s, got %s", defaultBaseURL, client.baseURL)
	}
	if client.limiter.Limit() != rate.Every(time.Second) || client.limiter.Burst() != 1 {
		t.Errorf("Expected one request per second, got limit %v burst %d", client.limiter.Limit(), client.limiter.Burst())
	}
}

func TestRequestsWaitForLimiter(t *testing.T) {
	requests := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		json.NewEncoder(w).Encode(ISRCResponse{Recordings: []Recording{{ID: "rec"}}})
	})
	client.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	ctx := context.Background()
	if _, err := client.GetMusicBrainzIDByISRC(ctx, "FIRST"); err != nil {
		t.Fatalf("Expected the first request to use the burst, got %v", err)
	}

	// the next token is an hour away, so a short deadline fails before any request
	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if _, err := client.GetMusicBrainzIDByISRC(ctx, "SECOND"); err == nil {
		t.Error("Expected the second request to be held back by the limiter")
	}

	if requests != 1 {
		t.Errorf("Expected 1 request to reach the server, got %d", requests)
	}
}

func TestGetMusicBrainzIDByISRC(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/isrc/QM6N21781333" {
			t.Errorf("Expected ISRC path, got %s", r.URL.Path)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("Expected a User-Agent header")
		}
		json.NewEncoder(w).Encode(ISRCResponse{
			ISRC:       "QM6N21781333",
			Recordings: []Recording{{ID: "5da7cc9a-81e8-4e33-b023-2be9febab808", Title: "Song"}},
		})
	})

	ctx := context.Background()

	// Test with empty ISRC
	if _, err := client.GetMusicBrainzIDByISRC(ctx, ""); err == nil {
		t.Error("Expected error for empty ISRC, got nil")
	}

	id, err := client.GetMusicBrainzIDByISRC(ctx, "QM6N21781333")
	if err != nil {
		t.Fatalf("GetMusicBrainzIDByISRC failed: %v", err)
	}
	if id != "5da7cc9a-81e8-4e33-b023-2be9febab808" {
		t.Errorf("Unexpected ID %s", id)
	}
}

func TestGetMusicBrainzIDByArtistAndTitle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		if query != `artist:"The Beatles" AND recording:"Hey \"Jude\""` {
			t.Errorf("Unexpected query %s", query)
		}
		json.NewEncoder(w).Encode(SearchResponse{Count: 1, Recordings: []Recording{{ID: "rec1", Score: 100}}})
	})

	ctx := context.Background()

	// Test with empty artist and title
	if _, err := client.GetMusicBrainzIDByArtistAndTitle(ctx, "", "Test Song"); err == nil {
		t.Error("Expected error for empty artist, got nil")
	}
	if _, err := client.GetMusicBrainzIDByArtistAndTitle(ctx, "Test Artist", ""); err == nil {
		t.Error("Expected error for empty title, got nil")
	}

	id, err := client.GetMusicBrainzIDByArtistAndTitle(ctx, "The Beatles", `Hey "Jude"`)
	if err != nil {
		t.Fatalf("GetMusicBrainzIDByArtistAndTitle failed: %v", err)
	}
	if id != "rec1" {
		t.Errorf("Expected rec1, got %s", id)
	}
}

func TestAnnotateMissing(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/isrc/GOOD":
			json.NewEncoder(w).Encode(ISRCResponse{Recordings: []Recording{{ID: "by-isrc"}}})
		case r.URL.Path == "/isrc/BAD":
			http.Error(w, `{"error":"Not Found"}`, http.StatusNotFound)
		case r.URL.Path == "/recording/":
			if strings.Contains(r.URL.Query().Get("query"), "Nobody") {
				json.NewEncoder(w).Encode(SearchResponse{})
				return
			}
			json.NewEncoder(w).Encode(SearchResponse{Count: 1, Recordings: []Recording{{ID: "by-search"}}})
		default:
			http.NotFound(w, r)
		}
	})

	outcome := &reconcile.Outcome{
		Columns: []string{"Track Name", "Artist Name(s)", "ISRC"},
		Missing: []reconcile.Record{
			{"Track Name": "One", "Artist Name(s)": "A", "ISRC": "GOOD"},
			{"Track Name": "Two", "Artist Name(s)": "B", "ISRC": "BAD"},
			{"Track Name": "Three", "Artist Name(s)": "Nobody"},
		},
	}

	found := client.AnnotateMissing(context.Background(), outcome)
	if found != 2 {
		t.Errorf("Expected 2 records identified, got %d", found)
	}

	if outcome.Missing[0][ColumnMusicBrainzID] != "by-isrc" {
		t.Errorf("Expected ISRC lookup, got %q", outcome.Missing[0][ColumnMusicBrainzID])
	}
	if outcome.Missing[1][ColumnMusicBrainzID] != "by-search" {
		t.Errorf("Expected search fallback, got %q", outcome.Missing[1][ColumnMusicBrainzID])
	}
	if _, ok := outcome.Missing[2][ColumnMusicBrainzID]; ok {
		t.Error("Expected unidentified record to stay unannotated")
	}

	if outcome.Columns[len(outcome.Columns)-1] != ColumnMusicBrainzID {
		t.Errorf("Expected MusicBrainz column appended, got %v", outcome.Columns)
	}

	// annotating again does not duplicate the column
	client.AnnotateMissing(context.Background(), outcome)
	count := 0
	for _, column := range outcome.Columns {
		if column == ColumnMusicBrainzID {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected the column once, got %d times", count)
	}
}
