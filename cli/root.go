package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Dosada05/swiss-tournament/brackets"
	"github.com/Dosada05/swiss-tournament/config"
	"github.com/Dosada05/swiss-tournament/db"
	"github.com/Dosada05/swiss-tournament/repositories"
	"github.com/Dosada05/swiss-tournament/services"
	"github.com/Dosada05/swiss-tournament/storage"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	StateFile string // overrides STORE_BACKEND/TOURNAMENT_FILE when set
	Seed      uint64 // 0 = time-seeded draws
}

var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the tournament CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "swiss",
		Short: "Swiss-system tournament pairing and results",
		Long: `Pair Swiss-system rounds, record results and seed a single-elimination bracket.

State is kept in a JSON file, PostgreSQL or an R2 bucket (STORE_BACKEND) and is always
recomputed from the match log.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.StateFile, "file", "f", "", "tournament state file (forces the file store)")
	cmd.PersistentFlags().Uint64Var(&opts.Seed, "seed", 0, "random seed for reproducible draws (0 = random)")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewPairCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewStandingsCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewReinitCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewHashPasswordCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// runtime - собранные зависимости одной команды.
type runtime struct {
	cfg     *config.Config
	logger  *slog.Logger
	service services.TournamentService
	objects storage.ObjectStorage // nil, если R2 не настроен
	hub     *brackets.Hub         // только для serve
	closers []func() error
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.logger.Error("failed to release resource", slog.Any("error", err))
		}
	}
}

func newLogger(w io.Writer, level slog.Level, verbose, jsonOutput bool) *slog.Logger {
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if jsonOutput {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// newRuntime загружает конфигурацию и собирает хранилище и сервис турнира.
// serving включает JSON-логи и websocket-хаб для рассылки событий.
func (o *RootOptions) newRuntime(ctx context.Context, cmd *cobra.Command, serving bool) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if o.StateFile != "" {
		cfg.StoreBackend = config.StoreFile
		cfg.StateFile = o.StateFile
	}

	rt := &runtime{cfg: cfg, logger: newLogger(cmd.ErrOrStderr(), cfg.LogLevel, o.Verbose, serving)}
	var notifier services.Notifier
	if serving {
		rt.hub = brackets.NewHub(rt.logger)
		notifier = rt.hub
	}

	if cfg.R2Configured() {
		rt.objects, err = storage.NewCloudflareR2Storage(ctx, storage.CloudflareR2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to initialize R2 storage", err)
		}
	}

	var repo repositories.StateRepository
	switch cfg.StoreBackend {
	case config.StoreFile:
		repo = repositories.NewFileStateRepository(cfg.StateFile)
	case config.StorePostgres:
		dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to connect to database", err)
		}
		rt.closers = append(rt.closers, dbConn.Close)
		if err := db.Migrate(ctx, dbConn); err != nil {
			rt.Close()
			return nil, WrapExitError(ExitCommandError, "failed to migrate database", err)
		}
		repo = repositories.NewPostgresStateRepository(dbConn, cfg.TournamentSlug)
	case config.StoreR2:
		if rt.objects == nil {
			return nil, NewExitError(ExitCommandError, "R2 store selected but R2 is not configured")
		}
		repo = repositories.NewObjectStateRepository(rt.objects, cfg.TournamentSlug)
	default:
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown store backend %q", cfg.StoreBackend))
	}

	var rng brackets.RandSource
	if o.Seed != 0 {
		rng = brackets.NewSeededRand(o.Seed)
	}

	rt.service = services.NewTournamentService(repo, notifier, rt.logger, services.TournamentServiceConfig{
		Room:         brackets.RoomForTournament(cfg.TournamentSlug),
		Rand:         rng,
		RandomRounds: cfg.RandomRounds,
	})
	rt.logger.Debug("runtime ready", slog.String("store", cfg.StoreBackend), slog.String("tournament", cfg.TournamentSlug))
	return rt, nil
}

// commandError переводит ошибки сервиса в коды выхода.
func commandError(message string, err error) error {
	switch {
	case errors.Is(err, services.ErrTournamentNotFound),
		errors.Is(err, services.ErrTournamentExists),
		errors.Is(err, services.ErrValidationFailed):
		return WrapExitError(ExitCommandError, message, err)
	default:
		return WrapExitError(ExitFailure, message, err)
	}
}
