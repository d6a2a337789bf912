package main

import (
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/garry/jellify/config"
	"github.com/spf13/cobra"
)

// flags are the persistent command line options, applied over the environment
type flags struct {
	verbose        bool
	missingReport  string
	fuzzyThreshold string
	musicBrainz    bool
}

// overrides maps the flags that were set onto configuration keys
func (f *flags) overrides() map[string]string {
	overrides := map[string]string{
		"MISSING_REPORT_PATH": f.missingReport,
		"FUZZY_THRESHOLD":     f.fuzzyThreshold,
	}
	if f.verbose {
		overrides["VERBOSE"] = strconv.FormatBool(true)
	}
	if f.musicBrainz {
		overrides["MUSICBRAINZ_LOOKUP"] = strconv.FormatBool(true)
	}
	return overrides
}

// load reads the configuration and sets the log level from it
func (f *flags) load() (*config.Config, error) {
	cfg, err := config.LoadWithOverrides(f.overrides())
	if err != nil {
		return nil, err
	}

	if cfg.Import.Verbose {
		log.SetLevel(log.DebugLevel)
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "jellify",
		Short: "Import Spotify playlists into a Jellyfin music library",
		Long: `Jellify rebuilds Spotify playlists on a Jellyfin server.

Playlists come from Exportify CSV exports or straight from the Spotify API.
Each track is matched against the library by artist and title, exactly first
and then by similarity, and tracks that cannot be found are written to a
missing-tracks report.

Run without a command for an interactive prompt.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			choice, err := promptForRun()
			if err != nil {
				return err
			}
			choice.apply(f)

			cfg, err := f.load()
			if err != nil {
				return err
			}
			app := NewApplication(cfg)

			if choice.mode == modeFolder {
				return app.ImportFolder(cmd.Context(), choice.path)
			}
			return app.ImportCSV(cmd.Context(), choice.path, choice.playlist)
		},
	}

	cmd.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "Print every match and the missing tracks of each playlist")
	cmd.PersistentFlags().StringVar(&f.missingReport, "missing-report", "", "Path of the missing tracks CSV (overrides MISSING_REPORT_PATH)")
	cmd.PersistentFlags().StringVar(&f.fuzzyThreshold, "fuzzy-threshold", "", "Minimum similarity for a fuzzy match, in (0, 1] (overrides FUZZY_THRESHOLD)")
	cmd.PersistentFlags().BoolVar(&f.musicBrainz, "musicbrainz", false, "Look up MusicBrainz IDs for missing tracks")

	cmd.AddCommand(newCSVCmd(f))
	cmd.AddCommand(newFolderCmd(f))
	cmd.AddCommand(newSpotifyCmd(f))

	return cmd
}

func newCSVCmd(f *flags) *cobra.Command {
	var playlist string

	cmd := &cobra.Command{
		Use:   "csv FILE",
		Short: "Import one Exportify CSV as a playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load()
			if err != nil {
				return err
			}
			return NewApplication(cfg).ImportCSV(cmd.Context(), args[0], playlist)
		},
	}

	cmd.Flags().StringVarP(&playlist, "playlist", "p", "", "Playlist name (defaults to the file name)")

	return cmd
}

func newFolderCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "folder [DIR]",
		Short: "Import every CSV in a folder, one playlist per file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := config.DefaultExportsFolder
			if len(args) == 1 {
				dir = args[0]
			}

			cfg, err := f.load()
			if err != nil {
				return err
			}
			return NewApplication(cfg).ImportFolder(cmd.Context(), dir)
		},
	}
}

func newSpotifyCmd(f *flags) *cobra.Command {
	var playlist string

	cmd := &cobra.Command{
		Use:   "spotify PLAYLIST_ID...",
		Short: "Import public Spotify playlists through the Spotify API",
		Long: `Import public Spotify playlists through the Spotify API.

Requires SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET. Each playlist keeps its
Spotify name unless --playlist is given for a single playlist.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load()
			if err != nil {
				return err
			}
			return NewApplication(cfg).ImportSpotify(cmd.Context(), args, playlist)
		},
	}

	cmd.Flags().StringVarP(&playlist, "playlist", "p", "", "Playlist name (single playlist only)")

	return cmd
}
