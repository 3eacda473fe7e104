package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/templatehash/platform/internal/template"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closer, err := openStore()
		if err != nil {
			return err
		}
		defer closer()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tHASH\tCROP\tUSES")
		for _, t := range st.List() {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", t.ID, t.Name, t.Hash, cropSummary(t), t.UsageCount)
		}
		return w.Flush()
	},
}

func cropSummary(t template.Template) string {
	switch t.Crop.Kind {
	case template.CropWithRatios:
		return fmt.Sprintf("%d,%d %dx%d (ratios)", t.Crop.Rect.X, t.Crop.Rect.Y, t.Crop.Rect.W, t.Crop.Rect.H)
	case template.CropAbsolute:
		return fmt.Sprintf("%d,%d %dx%d", t.Crop.Rect.X, t.Crop.Rect.Y, t.Crop.Rect.W, t.Crop.Rect.H)
	default:
		return "-"
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
}
