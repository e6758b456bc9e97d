package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/fpsearch/internal/fpfile"
	"github.com/Aman-CERP/fpsearch/internal/model"
)

func newInsertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert <track-id> <file>",
		Short: "Store hashed fingerprints for a track",
		Long: `Store the hashed fingerprints in <file> as sub-fingerprints of an existing track.

<file> is a JSON array of objects with hashBins, sequenceNumber, startsAt and
optional clusters. Files ending in .zst are read as zstd-compressed JSON.`,
		Example: `  fpsearch insert 3f2b... track.json
  fpsearch insert 3f2b... track.json.zst`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newWriter(cmd)
			if err != nil {
				return err
			}
			fingerprints, err := fpfile.ReadFingerprints(args[1])
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ref := model.NewStringReference(args[0])
			if err := a.service.InsertHashDataForTrack(cmd.Context(), fingerprints, ref); err != nil {
				return err
			}
			if out.IsJSON() {
				return out.JSON(map[string]any{"track": args[0], "inserted": len(fingerprints)})
			}
			out.Successf("Inserted %d sub-fingerprints for track %s", len(fingerprints), args[0])
			return nil
		},
	}
}
