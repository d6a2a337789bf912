package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/garry/jellify/match"
)

// Library fetches every playable entry of the destination library
type Library interface {
	FetchLibrary(ctx context.Context) ([]match.Entry, error)
}

// Playlists manages destination playlists
type Playlists interface {
	FindPlaylist(ctx context.Context, name string) (id string, found bool, err error)
	CreatePlaylist(ctx context.Context, name string) (string, error)
	GetPlaylistItems(ctx context.Context, playlistID string) ([]string, error)
	AddToPlaylist(ctx context.Context, playlistID string, itemIDs []string) error
}

// Service is everything the reconciler needs from the media server
type Service interface {
	Library
	Playlists
}

// Options configures a Reconciler
type Options struct {
	FuzzyThreshold float64
}

// Match is a record that resolved to a library item
type Match struct {
	Record    Record
	Result    match.Result
	Duplicate bool
}

// Outcome is the result of reconciling one batch
type Outcome struct {
	Playlist         string
	PlaylistID       string
	ExistingPlaylist bool

	ToAdd   []string // item IDs in first-seen order
	Added   int
	Skipped int      // duplicates, already in the playlist or earlier in the batch
	Ignored int      // records without a title
	Missing []Record // in input order
	Columns []string
	Matches []Match

	// AddErr is set when the playlist mutation failed; counts are still valid
	AddErr error
}

// MissingCount returns the number of unresolved records
func (o *Outcome) MissingCount() int {
	return len(o.Missing)
}

// Reconciler matches batches of records against the library and fills playlists
type Reconciler struct {
	service Service
	opts    Options
	index   *match.Index
	matcher *match.Matcher
}

// New creates a reconciler with an empty index; call LoadLibrary before use
func New(service Service, opts Options) *Reconciler {
	r := &Reconciler{service: service, opts: opts}
	r.UseIndex(match.BuildIndex(nil))
	return r
}

// UseIndex replaces the library index
func (r *Reconciler) UseIndex(index *match.Index) {
	r.index = index
	r.matcher = match.NewMatcher(index, match.WithThreshold(r.opts.FuzzyThreshold))
}

// Index returns the current library index
func (r *Reconciler) Index() *match.Index {
	return r.index
}

// LoadLibrary downloads the library and builds the index
func (r *Reconciler) LoadLibrary(ctx context.Context) error {
	log.Info("⏳ Downloading library index...")
	start := time.Now()

	entries, err := r.service.FetchLibrary(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLibraryFetchFailed, err)
	}

	log.Infof("   Fetched %d items in %.2fs. Building index...", len(entries), time.Since(start).Seconds())
	r.UseIndex(match.BuildIndex(entries))
	log.Infof("✅ Index ready (%d keys).", r.index.Len())

	return nil
}

// Reconcile runs one batch through the matcher
func (r *Reconciler) Reconcile(batch Batch, existing map[string]struct{}) *Outcome {
	return Reconcile(batch, r.matcher, existing)
}

// Reconcile classifies every record of batch as added, duplicate or missing in
// a single pass. Records without a title are ignored. An item is added only the
// first time it resolves and only if it is not already in existing.
func Reconcile(batch Batch, matcher *match.Matcher, existing map[string]struct{}) *Outcome {
	outcome := &Outcome{
		Playlist: batch.Playlist,
		Columns:  batch.columnUnion(),
	}
	seen := make(map[string]struct{})

	for _, record := range batch.Records {
		query := record.Query()
		if query.Title == "" {
			outcome.Ignored++
			continue
		}

		result := matcher.Resolve(query)
		if !result.Resolved() {
			outcome.Missing = append(outcome.Missing, record)
			continue
		}

		_, present := existing[result.ID]
		_, added := seen[result.ID]
		duplicate := present || added
		outcome.Matches = append(outcome.Matches, Match{Record: record, Result: result, Duplicate: duplicate})

		if duplicate {
			outcome.Skipped++
			continue
		}

		seen[result.ID] = struct{}{}
		outcome.ToAdd = append(outcome.ToAdd, result.ID)
		outcome.Added++
		log.Debugf("   ✓ %s - %s [%s]", query.Artist, query.Title, result.Kind)
	}

	return outcome
}

// ImportBatch finds or creates the batch's playlist, reconciles the batch
// against the items already in it and adds what is new. Only a failed playlist
// creation is returned as an error.
func (r *Reconciler) ImportBatch(ctx context.Context, batch Batch) (*Outcome, error) {
	log.Infof("📂 Processing: %s", batch.Source)
	log.Infof("   Playlist name: %s", batch.Playlist)

	playlistID, exists, err := r.playlistFor(ctx, batch.Playlist)
	if err != nil {
		return nil, err
	}

	status := "Created new"
	if exists {
		status = "Found existing"
	}
	log.Infof("   %s playlist (ID: %s)", status, playlistID)

	existing := make(map[string]struct{})
	if exists {
		existing = r.existingItems(ctx, playlistID)
	}

	outcome := r.Reconcile(batch, existing)
	outcome.PlaylistID = playlistID
	outcome.ExistingPlaylist = exists

	if len(outcome.ToAdd) > 0 {
		if err := r.service.AddToPlaylist(ctx, playlistID, outcome.ToAdd); err != nil {
			outcome.AddErr = fmt.Errorf("%w: %w", ErrPlaylistMutationFailed, err)
			log.Warnf("⚠️ Error adding items to playlist %s: %v", batch.Playlist, err)
		}
	}

	return outcome, nil
}

// playlistFor returns the ID of the named playlist, creating it when the lookup
// finds nothing or fails
func (r *Reconciler) playlistFor(ctx context.Context, name string) (string, bool, error) {
	id, found, err := r.service.FindPlaylist(ctx, name)
	if err != nil {
		log.Warnf("⚠️ %v", fmt.Errorf("%w: %w", ErrPlaylistLookupFailed, err))
	} else if found {
		return id, true, nil
	}

	id, err = r.service.CreatePlaylist(ctx, name)
	if err != nil {
		return "", false, fmt.Errorf("%w: %q: %w", ErrPlaylistCreateFailed, name, err)
	}
	return id, false, nil
}

// existingItems returns the IDs already in a playlist. A failed lookup yields an
// empty set, which risks duplicates rather than blocking the import.
func (r *Reconciler) existingItems(ctx context.Context, playlistID string) map[string]struct{} {
	ids, err := r.service.GetPlaylistItems(ctx, playlistID)
	if err != nil {
		log.Warnf("⚠️ Could not read existing items of playlist %s: %v", playlistID, err)
		return make(map[string]struct{})
	}

	existing := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		existing[id] = struct{}{}
	}
	return existing
}
