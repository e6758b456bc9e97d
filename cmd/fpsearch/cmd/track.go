package cmd

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/fpsearch/internal/model"
)

func newTrackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Manage track metadata",
		Long: `Manage the tracks that fingerprints are stored against.

Deleting a track also deletes all of its sub-fingerprints.`,
		Example: `  fpsearch track add --artist "Artist" --title "Title" --isrc USABC1234567
  fpsearch track list
  fpsearch track show 3f2b...
  fpsearch track delete 3f2b...`,
	}

	cmd.AddCommand(newTrackAddCmd())
	cmd.AddCommand(newTrackShowCmd())
	cmd.AddCommand(newTrackListCmd())
	cmd.AddCommand(newTrackDeleteCmd())

	return cmd
}

// trackView is the printed form of a track.
type trackView struct {
	ID            string    `json:"id"`
	Artist        string    `json:"artist"`
	Title         string    `json:"title"`
	ISRC          string    `json:"isrc,omitempty"`
	Album         string    `json:"album,omitempty"`
	ReleaseYear   int       `json:"release_year,omitempty"`
	LengthSeconds float64   `json:"length_seconds,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func newTrackView(t *model.Track) trackView {
	return trackView{
		ID:            t.Reference.String(),
		Artist:        t.Artist,
		Title:         t.Title,
		ISRC:          t.ISRC,
		Album:         t.Album,
		ReleaseYear:   t.ReleaseYear,
		LengthSeconds: t.LengthSeconds,
		CreatedAt:     t.CreatedAt,
	}
}

func newTrackAddCmd() *cobra.Command {
	var track model.Track

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a track",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := newWriter(cmd)
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.service.InsertTrack(cmd.Context(), &track); err != nil {
				return err
			}
			if out.IsJSON() {
				return out.JSON(newTrackView(&track))
			}
			out.Successf("Added track %s", track.Reference)
			return nil
		},
	}

	cmd.Flags().StringVar(&track.Artist, "artist", "", "Artist name")
	cmd.Flags().StringVar(&track.Title, "title", "", "Track title")
	cmd.Flags().StringVar(&track.ISRC, "isrc", "", "International Standard Recording Code")
	cmd.Flags().StringVar(&track.Album, "album", "", "Album name")
	cmd.Flags().IntVar(&track.ReleaseYear, "year", 0, "Release year")
	cmd.Flags().Float64Var(&track.LengthSeconds, "length", 0, "Length in seconds")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newTrackShowCmd() *cobra.Command {
	var byISRC bool

	cmd := &cobra.Command{
		Use:   "show <track-id>",
		Short: "Show one track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newWriter(cmd)
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var track *model.Track
			if byISRC {
				track, err = a.service.ReadTrackByISRC(cmd.Context(), args[0])
			} else {
				track, err = a.service.ReadTrackByReference(cmd.Context(), model.NewStringReference(args[0]))
			}
			if err != nil {
				return err
			}

			view := newTrackView(track)
			if out.IsJSON() {
				return out.JSON(view)
			}
			return out.KeyValues([][2]string{
				{"ID", view.ID},
				{"Artist", view.Artist},
				{"Title", view.Title},
				{"ISRC", view.ISRC},
				{"Album", view.Album},
				{"Year", strconv.Itoa(view.ReleaseYear)},
				{"Length", strconv.FormatFloat(view.LengthSeconds, 'f', 2, 64)},
				{"Created", view.CreatedAt.Format(time.RFC3339)},
			})
		},
	}

	cmd.Flags().BoolVar(&byISRC, "isrc", false, "Treat the argument as an ISRC")

	return cmd
}

func newTrackListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := newWriter(cmd)
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			tracks, err := a.service.ReadAllTracks(cmd.Context())
			if err != nil {
				return err
			}

			views := make([]trackView, 0, len(tracks))
			for _, t := range tracks {
				views = append(views, newTrackView(t))
			}
			if out.IsJSON() {
				return out.JSON(views)
			}
			if len(views) == 0 {
				out.Status("📭", "No tracks")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{v.ID, v.Artist, v.Title, v.ISRC})
			}
			return out.Table([]string{"ID", "ARTIST", "TITLE", "ISRC"}, rows)
		},
	}
}

func newTrackDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <track-id>",
		Short: "Delete a track and its sub-fingerprints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newWriter(cmd)
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if err := a.service.DeleteTrack(cmd.Context(), model.NewStringReference(args[0])); err != nil {
				return err
			}
			if out.IsJSON() {
				return out.JSON(map[string]string{"deleted": args[0]})
			}
			out.Successf("Deleted track %s", args[0])
			return nil
		},
	}
}
