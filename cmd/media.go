package cmd

import (
	"context"
	"log"
	"time"

	"github.com/go-jet/jet/v2/sqlite"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/trackarr/trackarr/config"
	"github.com/trackarr/trackarr/pkg/media"
	storagesqlite "github.com/trackarr/trackarr/pkg/storage/sqlite"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
	"github.com/trackarr/trackarr/pkg/tracker"
)

var (
	mediaUser    string
	mediaType    string
	mediaSource  string
	mediaID      string
	mediaSeason  int32
	mediaEpisode int32
)

// mediaCmd represents the media command
var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "manage tracked media",
	Long:  `manage tracked media`,
}

// cliTracker builds the tracking engine and resolves the --user flag.
func cliTracker() (*tracker.Tracker, int64) {
	cfg, err := config.New(viper.GetViper())
	if err != nil {
		log.Fatalf("failed to read configurations: %v", err)
	}

	store, err := storagesqlite.New(cfg.Storage.FilePath)
	if err != nil {
		log.Fatalf("failed to create storage connection: %v", err)
	}

	user, err := store.GetUser(context.Background(), table.User.Username.EQ(sqlite.String(mediaUser)))
	if err != nil {
		log.Fatalf("unknown user %q: %v", mediaUser, err)
	}

	return tracker.New(store, buildRegistry(cfg, store)), int64(user.ID)
}

func cliRef(cmd *cobra.Command) tracker.Ref {
	t, err := media.ParseType(mediaType)
	if err != nil {
		log.Fatal(err)
	}
	ref := tracker.Ref{
		MediaType: t,
		Source:    media.Source(mediaSource),
		MediaID:   mediaID,
	}
	if cmd.Flags().Changed("season") {
		ref.SeasonNumber = &mediaSeason
	}
	if cmd.Flags().Changed("episode") {
		ref.EpisodeNumber = &mediaEpisode
	}
	return ref
}

// mediaListCmd lists a user's tracked media of one type.
var mediaListCmd = &cobra.Command{
	Use:   "list",
	Short: "list tracked media",
	Run: func(cmd *cobra.Command, args []string) {
		t, userID := cliTracker()

		mt, err := media.ParseType(mediaType)
		if err != nil {
			log.Fatal(err)
		}

		entries, err := t.List(context.Background(), userID, mt, tracker.ListOptions{Sort: tracker.SortRecent})
		if err != nil {
			log.Fatalf("failed to list media: %v", err)
		}

		for _, entry := range entries {
			log.Printf("%s\t%s\tprogress %d", entry.Item.Title, entry.Media.Status, entry.Media.Progress)
		}
	},
}

// mediaTrackCmd starts tracking an item.
var mediaTrackCmd = &cobra.Command{
	Use:   "track <status>",
	Short: "track an item with an initial status",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		t, userID := cliTracker()

		status, err := media.ParseStatus(args[0])
		if err != nil {
			log.Fatal(err)
		}

		m, err := t.Track(context.Background(), userID, cliRef(cmd), status)
		if err != nil {
			log.Fatalf("failed to track: %v", err)
		}
		log.Printf("tracking %s as %s", m.Item.Title, m.Media.Status)
	},
}

// mediaStatusCmd sets the status of a tracked item.
var mediaStatusCmd = &cobra.Command{
	Use:   "status <status>",
	Short: "set the status of a tracked item",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		t, userID := cliTracker()

		status, err := media.ParseStatus(args[0])
		if err != nil {
			log.Fatal(err)
		}

		m, err := t.SetStatus(context.Background(), userID, cliRef(cmd), status)
		if err != nil {
			log.Fatalf("failed to set status: %v", err)
		}
		log.Printf("%s is now %s", m.Item.Title, m.Media.Status)
	},
}

// mediaProgressCmd bumps progress by one unit.
var mediaProgressCmd = &cobra.Command{
	Use:   "progress",
	Short: "increase progress by one unit",
	Run: func(cmd *cobra.Command, args []string) {
		t, userID := cliTracker()

		m, err := t.IncreaseProgress(context.Background(), userID, cliRef(cmd))
		if err != nil {
			log.Fatalf("failed to increase progress: %v", err)
		}
		log.Printf("%s at %d (%s)", m.Item.Title, m.Media.Progress, m.Media.Status)
	},
}

// mediaWatchCmd records an episode watch.
var mediaWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "record an episode watch",
	Run: func(cmd *cobra.Command, args []string) {
		t, userID := cliTracker()

		if err := t.WatchEpisode(context.Background(), userID, cliRef(cmd), time.Now()); err != nil {
			log.Fatalf("failed to record watch: %v", err)
		}
		log.Print("recorded")
	},
}

func init() {
	rootCmd.AddCommand(mediaCmd)
	mediaCmd.PersistentFlags().StringVarP(&mediaUser, "user", "u", "", "trackarr username")
	mediaCmd.PersistentFlags().StringVarP(&mediaType, "type", "t", "movie", "media type")
	mediaCmd.PersistentFlags().StringVar(&mediaSource, "source", "", "metadata source, defaults per media type")
	mediaCmd.PersistentFlags().StringVar(&mediaID, "id", "", "provider media id")
	mediaCmd.PersistentFlags().Int32Var(&mediaSeason, "season", 0, "season number")
	mediaCmd.PersistentFlags().Int32Var(&mediaEpisode, "episode", 0, "episode number")

	mediaCmd.AddCommand(mediaListCmd)
	mediaCmd.AddCommand(mediaTrackCmd)
	mediaCmd.AddCommand(mediaStatusCmd)
	mediaCmd.AddCommand(mediaProgressCmd)
	mediaCmd.AddCommand(mediaWatchCmd)
}
