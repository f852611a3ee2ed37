package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/trackarr/trackarr/config"
	"github.com/trackarr/trackarr/pkg/media"
	storagesqlite "github.com/trackarr/trackarr/pkg/storage/sqlite"
)

var (
	searchMediaType string
	searchSource    string
	searchPage      int
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "search a metadata provider",
	Long:  `search a metadata provider`,
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

		mediaType, err := media.ParseType(searchMediaType)
		if err != nil {
			log.Fatal(err)
		}

		registry := buildRegistry(cfg, store)
		page, err := registry.Search(context.Background(), mediaType, media.Source(searchSource), args[0], searchPage)
		if err != nil {
			log.Fatalf("search failed: %v", err)
		}

		for _, result := range page.Results {
			log.Printf("%s/%s\t%s", result.Source, result.MediaID, result.Title)
		}
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchMediaType, "type", "t", "movie", "media type to search")
	searchCmd.Flags().StringVarP(&searchSource, "source", "s", "", "metadata source, defaults per media type")
	searchCmd.Flags().IntVarP(&searchPage, "page", "p", 1, "result page")
}
