package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/fpsearch/internal/fpfile"
	"github.com/Aman-CERP/fpsearch/internal/model"
)

func newReadCmd() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "read <track-id>",
		Short: "Read the stored fingerprints of a track",
		Long: `Read every stored sub-fingerprint of a track.

With --out the fingerprints are written to a file in the format accepted by
'fpsearch insert'; a .zst suffix compresses it.`,
		Example: `  fpsearch read 3f2b...
  fpsearch read 3f2b... --out track.json.zst`,
		Args: cobra.ExactArgs(1),
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

			fingerprints, err := a.service.ReadHashedFingerprintsByTrack(cmd.Context(), model.NewStringReference(args[0]))
			if err != nil {
				return err
			}

			if outFile != "" {
				if err := fpfile.WriteFingerprints(outFile, fingerprints); err != nil {
					return err
				}
				if out.IsJSON() {
					return out.JSON(map[string]any{"track": args[0], "written": len(fingerprints), "file": outFile})
				}
				out.Successf("Wrote %d fingerprints to %s", len(fingerprints), outFile)
				return nil
			}

			if out.IsJSON() {
				views := make([]fpfile.Fingerprint, 0, len(fingerprints))
				for _, fp := range fingerprints {
					views = append(views, fpfile.Fingerprint{
						HashBins:       fp.HashBins,
						SequenceNumber: fp.SequenceNumber,
						StartsAt:       fp.StartsAt,
						Clusters:       fp.Clusters,
					})
				}
				return out.JSON(views)
			}

			rows := make([][]string, 0, len(fingerprints))
			for _, fp := range fingerprints {
				rows = append(rows, []string{
					strconv.Itoa(fp.SequenceNumber),
					strconv.FormatFloat(fp.StartsAt, 'f', 3, 64),
					strconv.Itoa(len(fp.HashBins)),
				})
			}
			return out.Table([]string{"SEQUENCE", "STARTS_AT", "BINS"}, rows)
		},
	}

	cmd.Flags().StringVarP(&outFile, "out", "o", "", "Write fingerprints to a file instead of printing them")

	return cmd
}
