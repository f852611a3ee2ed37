package cmd

import (
	"context"
	"log"
	"os"
	"sort"

	"github.com/go-jet/jet/v2/sqlite"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/trackarr/trackarr/config"
	"github.com/trackarr/trackarr/pkg/importer"
	"github.com/trackarr/trackarr/pkg/media"
	storagesqlite "github.com/trackarr/trackarr/pkg/storage/sqlite"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
)

var (
	importUser    string
	importAccount string
	importFile    string
	importMode    string
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <source>",
	Short: "import a list from an external service or export file",
	Long:  `import a list from an external service or export file`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.New(viper.GetViper())
		if err != nil {
			log.Fatalf("failed to read configurations: %v", err)
		}

		store, err := storagesqlite.New(cfg.Storage.FilePath)
		if err != nil {
			log.Fatalf("failed to create storage connection: %v", err)
		}

		ctx := context.Background()
		user, err := store.GetUser(ctx, table.User.Username.EQ(sqlite.String(importUser)))
		if err != nil {
			log.Fatalf("unknown user %q: %v", importUser, err)
		}

		mode, err := importer.ParseMode(importMode)
		if err != nil {
			log.Fatal(err)
		}

		sources := buildImports(cfg, store, buildRegistry(cfg, store))
		source := args[0]

		var result *importer.Result
		switch {
		case sources.Accounts[source] != nil:
			result, err = sources.Accounts[source](ctx, int64(user.ID), importAccount, mode)
		case sources.Files[source] != nil:
			f, openErr := os.Open(importFile)
			if openErr != nil {
				log.Fatalf("failed to open import file: %v", openErr)
			}
			defer f.Close()
			result, err = sources.Files[source](ctx, int64(user.ID), f, mode)
		default:
			log.Fatalf("unknown import source %q", source)
		}
		if err != nil {
			log.Fatalf("import failed: %v", err)
		}

		types := make([]string, 0, len(result.Counts))
		for t := range result.Counts {
			types = append(types, string(t))
		}
		sort.Strings(types)
		for _, t := range types {
			log.Printf("imported %d %s", result.Counts[media.Type(t)], t)
		}
		for _, warning := range result.Warnings {
			log.Printf("warning: %s", warning)
		}
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVarP(&importUser, "user", "u", "", "trackarr username")
	importCmd.Flags().StringVarP(&importAccount, "account", "a", "", "remote account name for account sources")
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "path to an export file for file sources")
	importCmd.Flags().StringVarP(&importMode, "mode", "m", "new", "import mode: new or overwrite")
}
