package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/templatehash/platform/internal/hash"
	"github.com/templatehash/platform/internal/imaging"
	"github.com/templatehash/platform/internal/match"
)

var matchThreshold int

var matchCmd = &cobra.Command{
	Use:   "match <image-file-or-hash>",
	Short: "Find the stored template matching an image or a raw hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query, err := queryFingerprint(args[0])
		if err != nil {
			return err
		}

		st, closer, err := openStore()
		if err != nil {
			return err
		}
		defer closer()

		m, skipped, err := match.NewEngine(st).FindBestMatch(query, matchThreshold)
		if err != nil {
			return err
		}
		for _, s := range skipped {
			fmt.Fprintf(os.Stderr, "skipped template %d (%s): %v\n", s.TemplateID, s.Name, s.Err)
		}
		if m == nil {
			fmt.Printf("no match within distance %d (query hash %s)\n", matchThreshold, query)
			return nil
		}
		fmt.Printf("matched template %d %q: distance %d, similarity %d%%, confidence %s\n",
			m.Template.ID, m.Template.Name, m.Distance, match.Score(m.Distance), match.Confidence(m.Distance))
		return nil
	},
}

// queryFingerprint treats the argument as an image path when such a file
// exists, and as a raw hex fingerprint otherwise.
func queryFingerprint(arg string) (hash.Fingerprint, error) {
	if _, err := os.Stat(arg); err == nil {
		data, err := os.ReadFile(arg)
		if err != nil {
			return "", err
		}
		return imaging.Fingerprint(data)
	}
	fp := hash.Normalize(arg)
	if err := fp.Validate(); err != nil {
		return "", err
	}
	return fp, nil
}

func init() {
	matchCmd.Flags().IntVar(&matchThreshold, "threshold", 5, "maximum Hamming distance (exclusive)")
	rootCmd.AddCommand(matchCmd)
}
