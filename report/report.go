// Package report aggregates batch outcomes into terminal tables and the
// missing-tracks CSV export.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/garry/jellify/reconcile"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// PlaylistColumn labels each missing row with the batch it came from
const PlaylistColumn = "Playlist"

// Summary collects the outcomes of a run in processing order
type Summary struct {
	Outcomes []*reconcile.Outcome
}

// Add appends one batch outcome
func (s *Summary) Add(outcome *reconcile.Outcome) {
	s.Outcomes = append(s.Outcomes, outcome)
}

// TotalAdded returns the number of items added across all batches
func (s *Summary) TotalAdded() int {
	total := 0
	for _, o := range s.Outcomes {
		total += o.Added
	}
	return total
}

// TotalSkipped returns the number of duplicates across all batches
func (s *Summary) TotalSkipped() int {
	total := 0
	for _, o := range s.Outcomes {
		total += o.Skipped
	}
	return total
}

// TotalMissing returns the number of unresolved records across all batches
func (s *Summary) TotalMissing() int {
	total := 0
	for _, o := range s.Outcomes {
		total += o.MissingCount()
	}
	return total
}

// Columns returns the playlist column followed by every column seen in any
// batch, in first-seen order
func (s *Summary) Columns() []string {
	columns := []string{PlaylistColumn}
	seen := map[string]struct{}{PlaylistColumn: {}}

	for _, o := range s.Outcomes {
		for _, column := range o.Columns {
			if _, ok := seen[column]; ok {
				continue
			}
			seen[column] = struct{}{}
			columns = append(columns, column)
		}
	}
	return columns
}

// WriteMissingCSV writes every missing record, labelled with its playlist.
// The label replaces a Playlist value the record brought along. Columns a
// record lacks are left blank.
func WriteMissingCSV(w io.Writer, s *Summary) error {
	columns := s.Columns()

	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(columns))
	for _, o := range s.Outcomes {
		for _, record := range o.Missing {
			row[0] = o.Playlist
			for i, column := range columns[1:] {
				row[i+1] = record[column]
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteMissingFile writes the missing report to path. It does nothing and
// returns false when no record is missing.
func WriteMissingFile(path string, s *Summary) (bool, error) {
	if s.TotalMissing() == 0 {
		return false, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return false, fmt.Errorf("failed to create missing report: %w", err)
	}

	if err := WriteMissingCSV(f, s); err != nil {
		f.Close()
		return false, err
	}

	if err := f.Close(); err != nil {
		return false, fmt.Errorf("failed to close missing report: %w", err)
	}
	return true, nil
}

// BatchTable renders the counts of one batch
func BatchTable(o *reconcile.Outcome) string {
	tw := newTable()
	tw.SetTitle("Results for '%s'", o.Playlist)
	tw.AppendHeader(table.Row{"Result", "Tracks"})
	tw.AppendRows([]table.Row{
		{"✅ Added", o.Added},
		{"⏭️  Skipped (duplicates)", o.Skipped},
		{"❌ Missing", o.MissingCount()},
	})
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	return tw.Render()
}

// TotalsTable renders one row per batch and a total footer
func TotalsTable(s *Summary) string {
	tw := newTable()
	tw.AppendHeader(table.Row{PlaylistColumn, "Added", "Skipped", "Missing"})
	for _, o := range s.Outcomes {
		tw.AppendRow(table.Row{o.Playlist, o.Added, o.Skipped, o.MissingCount()})
	}
	tw.AppendFooter(table.Row{"Total", s.TotalAdded(), s.TotalSkipped(), s.TotalMissing()})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 3, Align: text.AlignRight, AlignFooter: text.AlignRight},
		{Number: 4, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	return tw.Render()
}

// MissingTable lists the unresolved records of one batch
func MissingTable(o *reconcile.Outcome) string {
	tw := newTable()
	tw.SetTitle("Missing tracks")
	tw.AppendHeader(table.Row{"#", "Artist", "Track"})
	for i, record := range o.Missing {
		tw.AppendRow(table.Row{strconv.Itoa(i + 1), record.Artist(), record.Title()})
	}
	return tw.Render()
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	return tw
}
