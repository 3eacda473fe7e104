package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/templatehash/platform/internal/imaging"
)

var hashCmd = &cobra.Command{
	Use:   "hash <image-file>",
	Short: "Print the perceptual hash of an image file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		info, err := imaging.Analyze(data)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %s (%dx%d, %s)\n", info.Fingerprint, args[0], info.Width, info.Height, info.Format)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashCmd)
}
