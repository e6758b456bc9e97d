package cmd

import (
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/fpsearch/internal/fpfile"
	"github.com/Aman-CERP/fpsearch/internal/model"
)

// defaultThresholdVotes is the minimum number of matching hash bins.
const defaultThresholdVotes = 4

// matchView is the printed form of a matched sub-fingerprint.
type matchView struct {
	ID             string   `json:"id"`
	TrackID        string   `json:"track_id"`
	SequenceNumber int      `json:"sequence_number"`
	SequenceAt     float64  `json:"sequence_at"`
	Clusters       []string `json:"clusters,omitempty"`
}

// trackSummary counts matches per track.
type trackSummary struct {
	TrackID string `json:"track_id"`
	Matches int    `json:"matches"`
}

type queryResult struct {
	Queries int            `json:"queries"`
	Matches []matchView    `json:"matches"`
	Tracks  []trackSummary `json:"tracks"`
}

func newQueryCmd() *cobra.Command {
	var (
		threshold int
		clusters  []string
	)

	cmd := &cobra.Command{
		Use:   "query <file>",
		Short: "Find stored sub-fingerprints similar to query hashes",
		Long: `Find stored sub-fingerprints that share at least --threshold hash bins with
any query vector in <file>.

<file> is a JSON array of hash vectors, or of fingerprint objects as accepted
by 'fpsearch insert'. Files ending in .zst are read as zstd-compressed JSON.
With --cluster only sub-fingerprints tagged with one of the given clusters
are returned.`,
		Example: `  fpsearch query sample.json
  fpsearch query sample.json --threshold 8 --cluster CA --cluster LA`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := newWriter(cmd)
			if err != nil {
				return err
			}
			vectors, err := fpfile.ReadVectors(args[0])
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			records, err := a.service.ReadSubFingerprints(cmd.Context(), vectors, threshold, clusters)
			if err != nil {
				return err
			}

			result := summarize(len(vectors), records)
			if out.IsJSON() {
				return out.JSON(result)
			}
			if len(result.Matches) == 0 {
				out.Status("🔍", "No matches")
				return nil
			}

			rows := make([][]string, 0, len(result.Tracks))
			for _, t := range result.Tracks {
				rows = append(rows, []string{t.TrackID, strconv.Itoa(t.Matches)})
			}
			if err := out.Table([]string{"TRACK", "MATCHES"}, rows); err != nil {
				return err
			}
			out.Status("", "")

			rows = rows[:0]
			for _, m := range result.Matches {
				rows = append(rows, []string{
					m.TrackID,
					strconv.Itoa(m.SequenceNumber),
					strconv.FormatFloat(m.SequenceAt, 'f', 3, 64),
					strings.Join(m.Clusters, ","),
				})
			}
			return out.Table([]string{"TRACK", "SEQUENCE", "AT", "CLUSTERS"}, rows)
		},
	}

	cmd.Flags().IntVarP(&threshold, "threshold", "t", defaultThresholdVotes, "Minimum number of matching hash bins")
	cmd.Flags().StringSliceVarP(&clusters, "cluster", "c", nil, "Restrict matches to these clusters (repeatable)")

	return cmd
}

// summarize keeps lookup order for matches and ranks tracks by match count,
// ties broken by first appearance.
func summarize(queries int, records []model.SubFingerprintRecord) queryResult {
	result := queryResult{Queries: queries, Matches: make([]matchView, 0, len(records))}

	counts := make(map[string]int)
	var order []string
	for _, r := range records {
		trackID := r.TrackReference.String()
		result.Matches = append(result.Matches, matchView{
			ID:             r.ID.String(),
			TrackID:        trackID,
			SequenceNumber: r.SequenceNumber,
			SequenceAt:     r.SequenceAt,
			Clusters:       r.Clusters,
		})
		if _, seen := counts[trackID]; !seen {
			order = append(order, trackID)
		}
		counts[trackID]++
	}

	result.Tracks = make([]trackSummary, 0, len(order))
	for _, id := range order {
		result.Tracks = append(result.Tracks, trackSummary{TrackID: id, Matches: counts[id]})
	}
	sort.SliceStable(result.Tracks, func(i, j int) bool {
		return result.Tracks[i].Matches > result.Tracks[j].Matches
	})
	return result
}
