package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/templatehash/platform/internal/imaging"
	"github.com/templatehash/platform/internal/match"
	"github.com/templatehash/platform/internal/store"
)

var ingestDupThreshold int

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".webp": true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <directory>",
	Short: "Register every image in a directory as a template",
	Long: `ingest walks a directory, hashes each image it finds, and stores one
template per image named after the file. Images whose hash is nearly identical
to an already stored template are skipped.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(1)(cmd, args); err != nil {
			return err
		}
		info, err := os.Stat(args[0])
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", args[0])
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closer, err := openStore()
		if err != nil {
			return err
		}
		defer closer()
		engine := match.NewEngine(st)

		var added, skipped int
		err = filepath.WalkDir(args[0], func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(path))] {
				return err
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			info, err := imaging.Analyze(data)
			if err != nil {
				fmt.Fprintf(os.Stderr, "skipping %s: %v\n", path, err)
				skipped++
				return nil
			}

			if dup, _, err := engine.FindBestMatch(info.Fingerprint, ingestDupThreshold); err != nil {
				return err
			} else if dup != nil {
				fmt.Fprintf(os.Stderr, "skipping %s: near-duplicate of template %d %q (distance %d)\n",
					path, dup.Template.ID, dup.Template.Name, dup.Distance)
				skipped++
				return nil
			}

			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			if _, exists := st.GetByName(name); exists {
				name = fmt.Sprintf("%s (%s)", name, info.Fingerprint[:8])
			}
			tmpl, err := st.Create(store.CreateParams{
				Name:               name,
				Hash:               info.Fingerprint,
				ReferenceImagePath: path,
				RefWidth:           info.Width,
				RefHeight:          info.Height,
			})
			if err != nil {
				return err
			}
			fmt.Printf("added template %d %q (%s)\n", tmpl.ID, tmpl.Name, tmpl.Hash)
			added++
			return nil
		})
		if err != nil {
			return err
		}

		fmt.Printf("done: %d added, %d skipped\n", added, skipped)
		return nil
	},
}

func init() {
	ingestCmd.Flags().IntVar(&ingestDupThreshold, "duplicate-threshold", 2,
		"skip images within this Hamming distance of an existing template")
	rootCmd.AddCommand(ingestCmd)
}
