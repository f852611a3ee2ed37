package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	storagesqlite "github.com/trackarr/trackarr/pkg/storage/sqlite"

	jet "github.com/go-jet/jet/v2/generator/sqlite"
)

var outputDirectory string

// schemaCmd represents the schema command
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "generate database code",
	Long:  `generate database code`,
	Run: func(cmd *cobra.Command, args []string) {
		// opening the database runs the migrations, which is all the
		// generator needs
		if _, err := storagesqlite.New("tmp.sqlite"); err != nil {
			log.Fatal(err)
		}
		defer os.Remove("tmp.sqlite")

		if err := jet.GenerateDSN("tmp.sqlite", outputDirectory); err != nil {
			log.Fatal(err)
		}

		log.Printf("successfully generated to %s", outputDirectory)
	},
}

func init() {
	generateCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().StringVarP(&outputDirectory, "out", "o", "./pkg/storage/sqlite/schema", "directory to output generated code to")
}
