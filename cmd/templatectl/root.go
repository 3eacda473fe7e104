package main

import (
	"github.com/spf13/cobra"

	"github.com/templatehash/platform/internal/store"
	"github.com/templatehash/platform/internal/store/jsonfile"
	"github.com/templatehash/platform/internal/store/sqlitedb"
)

var (
	dataPath    string
	dataBackend string
)

var rootCmd = &cobra.Command{
	Use:   "templatectl",
	Short: "Manage perceptual hash templates",
	Long: `templatectl inspects and edits the template collection used by the
matching server. It operates directly on the data file, so stop the server
before making changes with it.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "data/templates.json", "path to the template data file")
	rootCmd.PersistentFlags().StringVar(&dataBackend, "backend", "json", "storage backend: json or sqlite")
}

// openStore opens the template store on the configured backend. The returned
// closer is a no-op for the JSON backend.
func openStore() (*store.Store, func(), error) {
	var persist store.Persistence
	closer := func() {}

	if dataBackend == "sqlite" {
		db, err := sqlitedb.Open(dataPath)
		if err != nil {
			return nil, nil, err
		}
		persist = db
		closer = func() { _ = db.Close() }
	} else {
		persist = jsonfile.New(dataPath)
	}

	st, err := store.Open(persist)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return st, closer, nil
}
