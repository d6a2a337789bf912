// Package csvsource reads playlist exports in CSV form into reconcile batches.
package csvsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/garry/jellify/reconcile"
)

const (
	extension = ".csv"
	utf8BOM   = "\ufeff"
)

// ErrNoCSVFiles is returned when a folder holds no exports
var ErrNoCSVFiles = errors.New("no CSV files found")

// PlaylistName derives a playlist label from an export path:
// "exports/Road_Trip.csv" becomes "Road Trip"
func PlaylistName(path string) string {
	base := filepath.Base(path)
	return strings.ReplaceAll(strings.TrimSuffix(base, filepath.Ext(base)), "_", " ")
}

// ReadFile reads one export. An empty playlist name falls back to PlaylistName.
func ReadFile(path, playlist string) (reconcile.Batch, error) {
	if playlist == "" {
		playlist = PlaylistName(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return reconcile.Batch{}, fmt.Errorf("%w: %w", reconcile.ErrRecordReadFailed, err)
	}
	defer f.Close()

	batch, err := Read(f)
	if err != nil {
		return reconcile.Batch{}, fmt.Errorf("%w: %s: %w", reconcile.ErrRecordReadFailed, path, err)
	}

	batch.Playlist = playlist
	batch.Source = path
	return batch, nil
}

// Read parses CSV with a header row. Short rows leave their trailing columns
// unset and fields beyond the header are dropped.
func Read(r io.Reader) (reconcile.Batch, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return reconcile.Batch{}, nil
	}
	if err != nil {
		return reconcile.Batch{}, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	batch := reconcile.Batch{Columns: header}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return reconcile.Batch{}, fmt.Errorf("failed to read row: %w", err)
		}

		record := make(reconcile.Record, len(header))
		for i, column := range header {
			if i < len(row) {
				record[column] = row[i]
			}
		}
		batch.Records = append(batch.Records, record)
	}

	return batch, nil
}

// ListFolder returns the CSV files directly inside dir, sorted by name
func ListFolder(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("folder not found: %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), extension) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in: %s", ErrNoCSVFiles, dir)
	}

	sort.Strings(files)
	return files, nil
}
