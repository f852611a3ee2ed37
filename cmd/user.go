package cmd

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/trackarr/trackarr/config"
	storagesqlite "github.com/trackarr/trackarr/pkg/storage/sqlite"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
)

// userCmd represents the user command
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "manage users",
	Long:  `manage users`,
}

// userCreateCmd creates a user and prints its API token.
var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "create a user",
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

		token := uuid.NewString()
		if _, err := store.CreateUser(context.Background(), model.User{
			Username: args[0],
			Token:    token,
		}); err != nil {
			log.Fatalf("failed to create user: %v", err)
		}

		log.Printf("created user %s with token %s", args[0], token)
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)
}
