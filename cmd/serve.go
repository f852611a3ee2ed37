package cmd

import (
	"context"

	"github.com/go-jet/jet/v2/sqlite"
	"github.com/trackarr/trackarr/config"
	"github.com/trackarr/trackarr/pkg/importer"
	"github.com/trackarr/trackarr/pkg/logger"
	"github.com/trackarr/trackarr/pkg/media"
	"github.com/trackarr/trackarr/pkg/provider"
	"github.com/trackarr/trackarr/pkg/provider/comicvine"
	"github.com/trackarr/trackarr/pkg/provider/hardcover"
	"github.com/trackarr/trackarr/pkg/provider/igdb"
	"github.com/trackarr/trackarr/pkg/provider/mal"
	"github.com/trackarr/trackarr/pkg/provider/mangaupdates"
	"github.com/trackarr/trackarr/pkg/provider/manual"
	"github.com/trackarr/trackarr/pkg/provider/openlibrary"
	"github.com/trackarr/trackarr/pkg/provider/tmdb"
	"github.com/trackarr/trackarr/pkg/storage"
	storagesqlite "github.com/trackarr/trackarr/pkg/storage/sqlite"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
	"github.com/trackarr/trackarr/pkg/tracker"
	"github.com/trackarr/trackarr/server"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the tracking server",
	Long:  `start the tracking server`,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.Get()

		cfg, err := config.New(viper.GetViper())
		if err != nil {
			log.Fatal("failed to read configurations", zap.Error(err))
		}

		store, err := storagesqlite.New(cfg.Storage.FilePath)
		if err != nil {
			log.Fatal("failed to create storage connection", zap.Error(err))
		}

		registry := buildRegistry(cfg, store)
		t := tracker.New(store, registry)

		imports := buildImports(cfg, store, registry)
		if imports.Scheduler != nil {
			go func() {
				if err := imports.Scheduler.Run(context.Background()); err != nil {
					log.Error("import scheduler stopped", zap.Error(err))
				}
			}()
		}

		srv := server.New(log, store, t, imports)
		log.Error(srv.Serve(cfg.Server.Port))
	},
}

// buildRegistry registers every metadata source that has the credentials it
// needs. Keyless sources are always available.
func buildRegistry(cfg config.Config, store storage.Storage) *provider.Registry {
	registry := provider.NewRegistry()

	if cfg.Providers.TMDB.APIKey != "" {
		c := tmdb.New(cfg.Providers.TMDB.APIKey)
		registry.Register(media.TypeMovie, media.SourceTMDB, c)
		registry.Register(media.TypeTV, media.SourceTMDB, c)
	}
	if cfg.Providers.MAL.ClientID != "" {
		c := mal.New(cfg.Providers.MAL.ClientID)
		registry.Register(media.TypeAnime, media.SourceMAL, c)
		registry.Register(media.TypeManga, media.SourceMAL, c)
	}
	if cfg.Providers.IGDB.ClientID != "" {
		c := igdb.New(cfg.Providers.IGDB.ClientID, cfg.Providers.IGDB.ClientSecret)
		registry.Register(media.TypeGame, media.SourceIGDB, c)
	}
	if cfg.Providers.ComicVine.APIKey != "" {
		registry.Register(media.TypeComic, media.SourceComicVine, comicvine.New(cfg.Providers.ComicVine.APIKey))
	}
	if cfg.Providers.Hardcover.Token != "" {
		registry.Register(media.TypeBook, media.SourceHardcover, hardcover.New(cfg.Providers.Hardcover.Token))
	}

	registry.Register(media.TypeManga, media.SourceMangaUpdates, mangaupdates.New())
	registry.Register(media.TypeBook, media.SourceOpenLibrary, openlibrary.New())

	manualClient := manual.New(store)
	for _, t := range media.TrackedTypes {
		registry.Register(t, media.SourceManual, manualClient)
	}

	return registry
}

// buildImports wires import sources from config. Account sources double as
// scheduler executors; scheduled runs resolve the remote account from the
// user's username.
func buildImports(cfg config.Config, store storage.Storage, registry *provider.Registry) server.ImportSources {
	accounts := map[string]server.AccountImporter{
		"anilist": importer.NewAniList(store).Import,
		"kitsu":   importer.NewKitsu(store).Import,
	}
	if cfg.Providers.MAL.ClientID != "" {
		accounts["mal"] = importer.NewMAL(store, cfg.Providers.MAL.ClientID).Import
	}
	if cfg.Imports.Trakt.APIKey != "" {
		accounts["trakt"] = importer.NewTrakt(store, cfg.Imports.Trakt.APIKey).Import
	}
	if cfg.Imports.Simkl.ClientID != "" && cfg.Imports.Simkl.AccessToken != "" {
		simkl := importer.NewSimkl(store, cfg.Imports.Simkl.ClientID, cfg.Imports.Simkl.AccessToken)
		accounts["simkl"] = func(ctx context.Context, userID int64, account string, mode importer.Mode) (*importer.Result, error) {
			return simkl.Import(ctx, userID, mode)
		}
	}
	if cfg.Imports.Steam.APIKey != "" {
		accounts["steam"] = importer.NewSteam(store, registry, cfg.Imports.Steam.APIKey).Import
	}

	files := map[string]server.FileImporter{
		"yamtrack": importer.NewCSV(store).Import,
	}
	if cfg.Providers.TMDB.APIKey != "" {
		files["imdb"] = importer.NewIMDB(store, registry).Import
	}
	files["goodreads"] = importer.NewGoodreads(store, registry).Import
	if cfg.Providers.IGDB.ClientID != "" {
		files["hltb"] = importer.NewHLTB(store, registry).Import
	}

	var scheduler *importer.Scheduler
	if cfg.Imports.ScheduleInterval > 0 {
		executors := make(map[string]importer.Executor, len(accounts))
		for source, run := range accounts {
			executors[source] = accountExecutor(store, run)
		}
		scheduler = importer.NewScheduler(store, cfg.Imports.ScheduleInterval, cfg.Imports.CleanupPeriod, executors)
	}

	return server.ImportSources{
		Accounts:  accounts,
		Files:     files,
		Scheduler: scheduler,
	}
}

func accountExecutor(store storage.Storage, run server.AccountImporter) importer.Executor {
	return func(ctx context.Context, job *storage.Job) (*importer.Result, error) {
		user, err := store.GetUser(ctx, table.User.ID.EQ(sqlite.Int32(job.UserID)))
		if err != nil {
			return nil, err
		}
		mode, err := importer.ParseMode(job.Mode)
		if err != nil {
			return nil, err
		}
		return run(ctx, int64(job.UserID), user.Username, mode)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
