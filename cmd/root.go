package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trackarr",
	Short: "trackarr cli",
	Long:  `trackarr cli`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file")
}

func initConfig() {
	viper.SetConfigFile(cfgFile)

	viper.SetEnvPrefix("TRACKARR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", ""))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)

	viper.SetDefault("storage.filePath", "trackarr.sqlite")

	viper.SetDefault("providers.tmdb.apiKey", "")
	viper.SetDefault("providers.mal.clientId", "")
	viper.SetDefault("providers.igdb.clientId", "")
	viper.SetDefault("providers.igdb.clientSecret", "")
	viper.SetDefault("providers.comicvine.apiKey", "")
	viper.SetDefault("providers.hardcover.token", "")

	viper.SetDefault("imports.scheduleInterval", time.Hour*24)
	viper.SetDefault("imports.cleanupPeriod", time.Hour*24*30)
	viper.SetDefault("imports.trakt.apiKey", "")
	viper.SetDefault("imports.simkl.clientId", "")
	viper.SetDefault("imports.simkl.accessToken", "")
	viper.SetDefault("imports.steam.apiKey", "")
}
