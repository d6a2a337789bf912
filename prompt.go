package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/garry/jellify/config"
)

const (
	modeCSV    = "csv"
	modeFolder = "folder"
)

// runChoice is what the interactive prompt collects
type runChoice struct {
	mode     string
	verbose  bool
	path     string
	playlist string
}

// apply carries prompt answers that map onto command line flags
func (c *runChoice) apply(f *flags) {
	if c.verbose {
		f.verbose = true
	}
}

// normalize trims the answers and fills in the folder default
func (c *runChoice) normalize() error {
	c.path = strings.TrimSpace(c.path)
	c.playlist = strings.TrimSpace(c.playlist)

	switch c.mode {
	case modeFolder:
		if c.path == "" {
			c.path = config.DefaultExportsFolder
		}
		c.playlist = ""
	case modeCSV:
		if c.path == "" {
			return errors.New("a CSV file path is required")
		}
	default:
		return fmt.Errorf("unexpected mode: %s", c.mode)
	}

	return nil
}

// promptForRun asks how to run when no command is given
func promptForRun() (*runChoice, error) {
	choice := &runChoice{mode: modeCSV}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("What would you like to import?").
				Options(
					huh.NewOption("A single CSV file", modeCSV),
					huh.NewOption("A folder of CSV files", modeFolder),
				).
				Value(&choice.mode),
			huh.NewConfirm().
				Title("Show every match?").
				Affirmative("Yes").
				Negative("No").
				Value(&choice.verbose),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("CSV file").
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("enter the path of a CSV export")
					}
					return nil
				}).
				Value(&choice.path),
			huh.NewInput().
				Title("Playlist name").
				Description("Leave empty to use the file name").
				Value(&choice.playlist),
		).WithHideFunc(func() bool { return choice.mode != modeCSV }),
		huh.NewGroup(
			huh.NewInput().
				Title("Folder").
				Placeholder(config.DefaultExportsFolder).
				Value(&choice.path),
		).WithHideFunc(func() bool { return choice.mode != modeFolder }),
	)

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("failed to get user input: %w", err)
	}

	if err := choice.normalize(); err != nil {
		return nil, err
	}
	return choice, nil
}
