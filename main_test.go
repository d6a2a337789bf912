package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/garry/jellify/config"
	"github.com/garry/jellify/match"
	"github.com/garry/jellify/reconcile"
)

type fakeService struct {
	entries    []match.Entry
	fetchErr   error
	createFail map[string]bool

	playlists map[string]string
	items     map[string][]string
}

func newFakeService() *fakeService {
	return &fakeService{
		entries: []match.Entry{
			{ID: "1", Title: "Yesterday", Artists: []string{"The Beatles"}},
			{ID: "2", Title: "Wonderwall", Artists: []string{"Oasis"}},
			{ID: "3", Title: "Mr. Brightside", Artists: []string{"The Killers"}},
		},
		createFail: make(map[string]bool),
		playlists:  make(map[string]string),
		items:      make(map[string][]string),
	}
}

func (f *fakeService) FetchLibrary(ctx context.Context) ([]match.Entry, error) {
	return f.entries, f.fetchErr
}

func (f *fakeService) FindPlaylist(ctx context.Context, name string) (string, bool, error) {
	id, ok := f.playlists[name]
	return id, ok, nil
}

func (f *fakeService) CreatePlaylist(ctx context.Context, name string) (string, error) {
	if f.createFail[name] {
		return "", fmt.Errorf("server refused %s", name)
	}
	id := "pl-" + name
	f.playlists[name] = id
	return id, nil
}

func (f *fakeService) GetPlaylistItems(ctx context.Context, playlistID string) ([]string, error) {
	return f.items[playlistID], nil
}

func (f *fakeService) AddToPlaylist(ctx context.Context, playlistID string, itemIDs []string) error {
	f.items[playlistID] = append(f.items[playlistID], itemIDs...)
	return nil
}

func testApplication(t *testing.T, svc *fakeService) (*Application, *bytes.Buffer, string) {
	t.Helper()
	reportPath := filepath.Join(t.TempDir(), "missing.csv")

	cfg := &config.Config{
		Import: config.ImportConfig{
			FuzzyThreshold:    config.DefaultFuzzyThreshold,
			MissingReportPath: reportPath,
		},
	}

	app := newApplication(cfg, svc)
	out := &bytes.Buffer{}
	app.out = out
	return app, out, reportPath
}

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

const header = "Track Name,Artist Name(s),Album Name\n"

func TestImportCSV(t *testing.T) {
	svc := newFakeService()
	app, out, reportPath := testApplication(t, svc)

	path := writeCSV(t, t.TempDir(), "Road_Trip.csv", header+
		"Yesterday,The Beatles,Help!\n"+
		"Wonderwal,Oasis,Morning Glory\n"+
		"Yesterday,Beatles,1\n"+
		"Unknown Song,Nobody,Nothing\n")

	if err := app.ImportCSV(context.Background(), path, ""); err != nil {
		t.Fatalf("ImportCSV failed: %v", err)
	}

	expected := []string{"1", "2"}
	if items := svc.items["pl-Road Trip"]; !reflect.DeepEqual(items, expected) {
		t.Errorf("Expected items %v, got %v", expected, items)
	}

	if !strings.Contains(out.String(), "Skipped (duplicates)") {
		t.Errorf("Expected batch results to be printed, got:\n%s", out.String())
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("Expected a missing report: %v", err)
	}
	expectedReport := "Playlist,Track Name,Artist Name(s),Album Name\nRoad Trip,Unknown Song,Nobody,Nothing\n"
	if string(data) != expectedReport {
		t.Errorf("Expected report %q, got %q", expectedReport, string(data))
	}
}

func TestImportCSVExplicitPlaylistAndRerun(t *testing.T) {
	svc := newFakeService()
	app, _, reportPath := testApplication(t, svc)

	path := writeCSV(t, t.TempDir(), "export.csv", header+"Yesterday,The Beatles,Help!\n")

	for i := 0; i < 2; i++ {
		if err := app.ImportCSV(context.Background(), path, "Favourites"); err != nil {
			t.Fatalf("ImportCSV run %d failed: %v", i+1, err)
		}
	}

	if items := svc.items["pl-Favourites"]; !reflect.DeepEqual(items, []string{"1"}) {
		t.Errorf("Expected a rerun to add nothing, got %v", items)
	}
	if _, err := os.Stat(reportPath); !os.IsNotExist(err) {
		t.Error("Expected no missing report when every track was found")
	}
}

func TestImportCSVErrors(t *testing.T) {
	svc := newFakeService()
	app, _, _ := testApplication(t, svc)

	err := app.ImportCSV(context.Background(), filepath.Join(t.TempDir(), "absent.csv"), "")
	if !errors.Is(err, reconcile.ErrRecordReadFailed) {
		t.Errorf("Expected ErrRecordReadFailed, got %v", err)
	}

	path := writeCSV(t, t.TempDir(), "Mix.csv", header+"Yesterday,The Beatles,Help!\n")
	svc.createFail["Mix"] = true
	err = app.ImportCSV(context.Background(), path, "")
	if !errors.Is(err, reconcile.ErrPlaylistCreateFailed) {
		t.Errorf("Expected ErrPlaylistCreateFailed, got %v", err)
	}
	if exitCode(err) != exitCodeClientError {
		t.Errorf("Expected exit code %d, got %d", exitCodeClientError, exitCode(err))
	}
}

func TestImportCSVLibraryFailure(t *testing.T) {
	svc := newFakeService()
	svc.fetchErr = errors.New("connection refused")
	app, _, _ := testApplication(t, svc)

	path := writeCSV(t, t.TempDir(), "Mix.csv", header+"Yesterday,The Beatles,Help!\n")
	err := app.ImportCSV(context.Background(), path, "")
	if !errors.Is(err, reconcile.ErrLibraryFetchFailed) {
		t.Errorf("Expected ErrLibraryFetchFailed, got %v", err)
	}
	if len(svc.playlists) != 0 {
		t.Errorf("Expected no playlist to be touched, got %v", svc.playlists)
	}
}

func TestImportFolder(t *testing.T) {
	svc := newFakeService()
	svc.createFail["b broken"] = true
	app, out, reportPath := testApplication(t, svc)

	dir := t.TempDir()
	writeCSV(t, dir, "c_chill.csv", header+"Wonderwall,Oasis,Morning Glory\nGone,Ghost,Void\n")
	writeCSV(t, dir, "a_road.csv", header+"Yesterday,The Beatles,Help!\nLost,Nobody,Nothing\n")
	writeCSV(t, dir, "b_broken.csv", header+"Mr Brightside,The Killers,Hot Fuss\n")
	writeCSV(t, dir, "notes.txt", "not an export")

	if err := app.ImportFolder(context.Background(), dir); err != nil {
		t.Fatalf("ImportFolder failed: %v", err)
	}

	if items := svc.items["pl-a road"]; !reflect.DeepEqual(items, []string{"1"}) {
		t.Errorf("Expected a road to get [1], got %v", items)
	}
	if items := svc.items["pl-c chill"]; !reflect.DeepEqual(items, []string{"2"}) {
		t.Errorf("Expected c chill to get [2], got %v", items)
	}

	if !strings.Contains(out.String(), "Total") {
		t.Errorf("Expected a totals table, got:\n%s", out.String())
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("Expected a missing report: %v", err)
	}
	expected := "Playlist,Track Name,Artist Name(s),Album Name\n" +
		"a road,Lost,Nobody,Nothing\n" +
		"c chill,Gone,Ghost,Void\n"
	if string(data) != expected {
		t.Errorf("Expected report %q, got %q", expected, string(data))
	}
}

func TestImportFolderEmpty(t *testing.T) {
	app, _, _ := testApplication(t, newFakeService())

	if err := app.ImportFolder(context.Background(), t.TempDir()); err == nil {
		t.Error("Expected an error for a folder without CSV files")
	}
}

func TestImportSpotifyRequiresCredentials(t *testing.T) {
	app, _, _ := testApplication(t, newFakeService())

	err := app.ImportSpotify(context.Background(), []string{"37i9dQZF1DXcBWIGoYBM5M"}, "")
	if !errors.Is(err, config.ErrConfigurationMissing) {
		t.Errorf("Expected ErrConfigurationMissing, got %v", err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, exitCodeSuccess},
		{"config", fmt.Errorf("load: %w", config.ErrConfigurationMissing), exitCodeConfigError},
		{"library", fmt.Errorf("%w: timeout", reconcile.ErrLibraryFetchFailed), exitCodeClientError},
		{"create", fmt.Errorf("%w: refused", reconcile.ErrPlaylistCreateFailed), exitCodeClientError},
		{"other", errors.New("boom"), exitCodeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.expected {
				t.Errorf("Expected exit code %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestFlagsOverrides(t *testing.T) {
	f := &flags{}
	expected := map[string]string{"MISSING_REPORT_PATH": "", "FUZZY_THRESHOLD": ""}
	if got := f.overrides(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}

	f = &flags{verbose: true, missingReport: "out.csv", fuzzyThreshold: "0.9", musicBrainz: true}
	expected = map[string]string{
		"MISSING_REPORT_PATH": "out.csv",
		"FUZZY_THRESHOLD":     "0.9",
		"VERBOSE":             "true",
		"MUSICBRAINZ_LOOKUP":  "true",
	}
	if got := f.overrides(); !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestRootCmd(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"csv", "folder", "spotify"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("Expected subcommand %s, got %v (%v)", name, cmd, err)
		}
	}

	for _, flag := range []string{"verbose", "missing-report", "fuzzy-threshold", "musicbrainz"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("Expected persistent flag --%s", flag)
		}
	}
}

func TestRunChoiceNormalize(t *testing.T) {
	folder := &runChoice{mode: modeFolder, path: "  ", playlist: "ignored"}
	if err := folder.normalize(); err != nil {
		t.Fatalf("Expected folder choice to normalize, got %v", err)
	}
	if folder.path != config.DefaultExportsFolder || folder.playlist != "" {
		t.Errorf("Expected default folder and no playlist, got %q / %q", folder.path, folder.playlist)
	}

	single := &runChoice{mode: modeCSV, path: " mix.csv ", playlist: " Mix "}
	if err := single.normalize(); err != nil {
		t.Fatalf("Expected CSV choice to normalize, got %v", err)
	}
	if single.path != "mix.csv" || single.playlist != "Mix" {
		t.Errorf("Expected trimmed answers, got %q / %q", single.path, single.playlist)
	}

	if err := (&runChoice{mode: modeCSV}).normalize(); err == nil {
		t.Error("Expected an error for a CSV choice without a path")
	}

	f := &flags{}
	(&runChoice{verbose: true}).apply(f)
	if !f.verbose {
		t.Error("Expected verbose answer to set the flag")
	}
}
