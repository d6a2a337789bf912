package reconcile

import (
	"sort"

	"github.com/garry/jellify/match"
)

// Column names used for the artist and title over the years by playlist
// exporters, in lookup order
var (
	ArtistColumns = []string{"Artist Name(s)", "Artist", "artist"}
	TitleColumns  = []string{"Track Name", "Track", "track", "name"}
)

// Record is one input row keyed by column name
type Record map[string]string

// Artist returns the first non-empty artist column
func (r Record) Artist() string {
	return r.first(ArtistColumns)
}

// Title returns the first non-empty title column
func (r Record) Title() string {
	return r.first(TitleColumns)
}

// Query builds the matcher query for this record
func (r Record) Query() match.Query {
	return match.Query{Artist: r.Artist(), Title: r.Title()}
}

func (r Record) first(columns []string) string {
	for _, column := range columns {
		if value := r[column]; value != "" {
			return value
		}
	}
	return ""
}

// Batch is one input source processed into one playlist
type Batch struct {
	Playlist string   // destination playlist name, also the report label
	Source   string   // where the records came from, for logging
	Columns  []string // header order as read from the source
	Records  []Record
}

// columnUnion returns the batch columns followed by any record keys the header
// did not declare, sorted
func (b Batch) columnUnion() []string {
	seen := make(map[string]struct{}, len(b.Columns))
	columns := make([]string, 0, len(b.Columns))
	for _, column := range b.Columns {
		if _, ok := seen[column]; ok {
			continue
		}
		seen[column] = struct{}{}
		columns = append(columns, column)
	}

	var extra []string
	for _, record := range b.Records {
		for column := range record {
			if _, ok := seen[column]; ok {
				continue
			}
			seen[column] = struct{}{}
			extra = append(extra, column)
		}
	}
	sort.Strings(extra)

	return append(columns, extra...)
}
