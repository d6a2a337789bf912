package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/garry/jellify/config"
	"github.com/garry/jellify/csvsource"
	"github.com/garry/jellify/jellyfin"
	"github.com/garry/jellify/musicbrainz"
	"github.com/garry/jellify/reconcile"
	"github.com/garry/jellify/report"
	"github.com/garry/jellify/spotify"
)

// Version information - set during build
var version = "dev"

// Exit codes
const (
	exitCodeSuccess     = 0
	exitCodeFailure     = 1
	exitCodeConfigError = 2
	exitCodeClientError = 3
)

// batchSource produces the batches of one run
type batchSource func(ctx context.Context) ([]reconcile.Batch, error)

// Application represents the main application state
type Application struct {
	config            *config.Config
	jellyfinClient    *jellyfin.Client
	reconciler        *reconcile.Reconciler
	musicBrainzClient *musicbrainz.Client
	out               io.Writer
}

// NewApplication creates a new application instance backed by Jellyfin
func NewApplication(cfg *config.Config) *Application {
	jellyfinClient := jellyfin.NewClient(cfg)
	app := newApplication(cfg, jellyfinClient)
	app.jellyfinClient = jellyfinClient
	return app
}

func newApplication(cfg *config.Config, service reconcile.Service) *Application {
	app := &Application{
		config: cfg,
		reconciler: reconcile.New(service, reconcile.Options{
			FuzzyThreshold: cfg.Import.FuzzyThreshold,
		}),
		out: os.Stdout,
	}

	if cfg.MusicBrainz.Enabled {
		app.musicBrainzClient = musicbrainz.NewClient()
	}

	return app
}

// Connect checks the server and downloads the library index
func (app *Application) Connect(ctx context.Context) error {
	if app.jellyfinClient != nil {
		info, err := app.jellyfinClient.GetServerInfo(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", reconcile.ErrLibraryFetchFailed, err)
		}
		log.Infof("🔗 Connected to %s (Jellyfin %s)", info.ServerName, info.Version)
	}

	return app.reconciler.LoadLibrary(ctx)
}

// ImportCSV imports one CSV export. An empty playlist name falls back to the
// file name.
func (app *Application) ImportCSV(ctx context.Context, path, playlist string) error {
	return app.run(ctx, false, func(ctx context.Context) ([]reconcile.Batch, error) {
		batch, err := csvsource.ReadFile(path, playlist)
		if err != nil {
			return nil, err
		}
		return []reconcile.Batch{batch}, nil
	})
}

// ImportFolder imports every CSV export of a folder, one playlist per file.
// Files that fail to read or import are reported and skipped.
func (app *Application) ImportFolder(ctx context.Context, dir string) error {
	files, err := csvsource.ListFolder(dir)
	if err != nil {
		return err
	}

	log.Infof("📂 Found %d playlist file(s) in %s", len(files), dir)

	return app.run(ctx, true, func(ctx context.Context) ([]reconcile.Batch, error) {
		batches := make([]reconcile.Batch, 0, len(files))
		for _, file := range files {
			batch, err := csvsource.ReadFile(file, "")
			if err != nil {
				log.Errorf("❌ Skipping %s: %v", filepath.Base(file), err)
				continue
			}
			batches = append(batches, batch)
		}
		return batches, nil
	})
}

// ImportSpotify imports public Spotify playlists by ID. The playlist name only
// applies when a single playlist is imported.
func (app *Application) ImportSpotify(ctx context.Context, playlistIDs []string, playlist string) error {
	if err := app.config.ValidateSpotify(); err != nil {
		return err
	}

	client, err := spotify.NewClient(ctx, app.config)
	if err != nil {
		return fmt.Errorf("failed to create Spotify client: %w", err)
	}

	if len(playlistIDs) > 1 {
		playlist = ""
	}

	return app.run(ctx, len(playlistIDs) > 1, func(ctx context.Context) ([]reconcile.Batch, error) {
		var batches []reconcile.Batch
		for _, id := range playlistIDs {
			batch, err := client.FetchBatch(ctx, id, playlist)
			if err != nil {
				if len(playlistIDs) == 1 {
					return nil, err
				}
				log.Errorf("❌ Skipping %s: %v", id, err)
				continue
			}
			batches = append(batches, batch)
		}
		return batches, nil
	})
}

// run loads the library, imports every batch and writes the missing report.
// With tolerant set, a failing batch is logged and the rest still run.
func (app *Application) run(ctx context.Context, tolerant bool, source batchSource) error {
	if err := app.Connect(ctx); err != nil {
		return err
	}

	batches, err := source(ctx)
	if err != nil {
		return err
	}

	summary := &report.Summary{}
	for _, batch := range batches {
		outcome, err := app.importBatch(ctx, batch)
		if err != nil {
			if !tolerant {
				return err
			}
			log.Errorf("❌ Failed to import %s: %v", batch.Playlist, err)
			continue
		}
		summary.Add(outcome)
	}

	if len(summary.Outcomes) > 1 {
		fmt.Fprintln(app.out, report.TotalsTable(summary))
	}

	return app.writeMissingReport(summary)
}

// importBatch imports one batch and prints its results
func (app *Application) importBatch(ctx context.Context, batch reconcile.Batch) (*reconcile.Outcome, error) {
	log.Infof("🎵 Importing '%s' (%d tracks)", batch.Playlist, len(batch.Records))

	outcome, err := app.reconciler.ImportBatch(ctx, batch)
	if err != nil {
		return nil, err
	}

	if outcome.AddErr != nil {
		log.Errorf("❌ Failed to add tracks to '%s': %v", outcome.Playlist, outcome.AddErr)
	}

	if app.musicBrainzClient != nil && outcome.MissingCount() > 0 {
		log.Infof("🔍 Looking up MusicBrainz IDs for %d missing tracks...", outcome.MissingCount())
		found := app.musicBrainzClient.AnnotateMissing(ctx, outcome)
		log.Infof("   Identified %d of %d", found, outcome.MissingCount())
	}

	fmt.Fprintln(app.out, report.BatchTable(outcome))
	if app.config.Import.Verbose && outcome.MissingCount() > 0 {
		fmt.Fprintln(app.out, report.MissingTable(outcome))
	}

	return outcome, nil
}

func (app *Application) writeMissingReport(summary *report.Summary) error {
	path := app.config.Import.MissingReportPath

	written, err := report.WriteMissingFile(path, summary)
	if err != nil {
		return err
	}

	if written {
		log.Warnf("⚠️  %d missing tracks saved to %s", summary.TotalMissing(), path)
	} else {
		log.Info("🎉 Every track was found")
	}

	return nil
}

// exitCode maps a command error to the process exit code
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitCodeSuccess
	case errors.Is(err, config.ErrConfigurationMissing):
		return exitCodeConfigError
	case errors.Is(err, reconcile.ErrLibraryFetchFailed),
		errors.Is(err, reconcile.ErrPlaylistCreateFailed):
		return exitCodeClientError
	default:
		return exitCodeFailure
	}
}

func main() {
	err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	)
	os.Exit(exitCode(err))
}
