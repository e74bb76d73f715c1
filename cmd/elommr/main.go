// Command elommr is the rating engine's CLI: it replays batches of
// contests into an Engine, optionally persists the result to Postgres,
// and can serve the read-only query API over HTTP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/elommr/ratingengine/internal/async"
	"github.com/elommr/ratingengine/internal/cache"
	"github.com/elommr/ratingengine/internal/config"
	"github.com/elommr/ratingengine/internal/httpapi"
	"github.com/elommr/ratingengine/internal/ingest"
	elommrlog "github.com/elommr/ratingengine/internal/log"
	"github.com/elommr/ratingengine/internal/metrics"
	"github.com/elommr/ratingengine/internal/persistence"
	"github.com/elommr/ratingengine/internal/persistence/postgres"
	"github.com/elommr/ratingengine/internal/ratings"
)

const version = "v0.1.0"

var configPath string

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     "elommr",
		Short:   "Elo-MMR batch rating engine",
		Version: version,
		Long: `elommr replays batches of ranked contests through a Bayesian
skill-rating engine and serves the resulting ratings over a read-only
HTTP API.`,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "elommr.yaml", "path to engine config YAML")

	rootCmd.AddCommand(newSubmitCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRatingsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newContestCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func loadConfig() (config.EngineConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Warn().Str("path", configPath).Msg("config file not found, using defaults")
		return config.DefaultEngineConfig(), nil
	}
	return config.Load(configPath)
}

// newSubmitCmd builds the "submit" subcommand: it feeds one or more
// osu!-API match JSON files through the engine in file order, then
// prints (and optionally persists) the resulting ratings.
func newSubmitCmd() *cobra.Command {
	var startContestID int64
	var quiet bool
	var persist bool

	cmd := &cobra.Command{
		Use:   "submit [match.json ...]",
		Short: "Submit match JSON files' contests into the engine",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine := ratings.New(cfg.Hyperparameters)

			progressCfg := elommrlog.DefaultProgressConfig()
			if quiet {
				progressCfg = elommrlog.QuietProgressConfig()
			}
			progress := elommrlog.NewBatchProgress("replay", len(args), progressCfg)

			reg := metrics.NewRegistry()
			var ratingCache *cache.RatingCache
			if cfg.Redis.Enabled {
				ratingCache = cache.New(cfg.Redis.Addr, 0, time.Minute, engine, reg)
				defer ratingCache.Close()
			}

			replayer := ingest.NewReplayer(engine, async.DefaultBatchConfig(), reg, ratingCache)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if err := replayer.Start(ctx); err != nil {
				return fmt.Errorf("failed to start replayer: %w", err)
			}

			nextContestID := startContestID
			for _, path := range args {
				raw, err := os.ReadFile(path)
				if err != nil {
					progress.Fail(err.Error())
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				submissions, err := ingest.ParseMatch(raw, nextContestID)
				if err != nil {
					progress.Fail(err.Error())
					return fmt.Errorf("failed to parse %s: %w", path, err)
				}
				for _, sub := range submissions {
					if err := replayer.Submit(ctx, sub); err != nil {
						progress.Fail(err.Error())
						return fmt.Errorf("failed to buffer contest %d: %w", sub.ContestID, err)
					}
					progress.ContestSubmitted(sub.ContestID, len(sub.Scores))
					nextContestID = sub.ContestID + 1
				}
			}

			if err := replayer.Stop(ctx); err != nil {
				progress.Fail(err.Error())
				return fmt.Errorf("failed to flush replayer: %w", err)
			}
			progress.Finish()

			if persist {
				if !cfg.Postgres.Enabled {
					return fmt.Errorf("--persist requires postgres.enabled in %s", configPath)
				}
				if err := persistSnapshots(ctx, cfg, engine); err != nil {
					return err
				}
			}

			out := engine.ExportPlayerRatings()
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().Int64Var(&startContestID, "start-contest-id", 1, "contest id assigned to the first game replayed")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress the progress bar and spinner")
	cmd.Flags().BoolVar(&persist, "persist", false, "write resulting snapshots to postgres")

	return cmd
}

func persistSnapshots(ctx context.Context, cfg config.EngineConfig, engine *ratings.Engine) error {
	repo, db, err := postgres.Open(cfg.Postgres.DSN, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to open postgres: %w", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	var playerSnaps []persistence.PlayerSnapshot
	for _, entry := range engine.ExportPlayerRatings() {
		snap, ok := engine.SnapshotPlayer(entry.PlayerID)
		if !ok {
			continue
		}
		row, err := persistence.FromEngineSnapshot(snap, now)
		if err != nil {
			return err
		}
		playerSnaps = append(playerSnaps, row)
	}
	if err := repo.UpsertPlayersBatch(ctx, playerSnaps); err != nil {
		return fmt.Errorf("failed to persist player snapshots: %w", err)
	}

	for contestID, detail := range engine.ExportContestDetails() {
		row, err := persistence.FromEngineContest(detail, now)
		if err != nil {
			return err
		}
		if err := repo.UpsertContest(ctx, row); err != nil {
			return fmt.Errorf("failed to persist contest %d: %w", contestID, err)
		}
	}

	log.Info().Int("players", len(playerSnaps)).Msg("persisted snapshots to postgres")
	return nil
}

// newServeCmd builds the "serve" subcommand: it restores whatever
// snapshots postgres already holds, wires an optional Redis read cache
// and Prometheus metrics, and serves the read-only query API until
// interrupted.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only query API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine := ratings.New(cfg.Hyperparameters)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if cfg.Postgres.Enabled {
				if err := restoreFromPostgres(ctx, cfg, engine); err != nil {
					return err
				}
			}

			reg := metrics.NewRegistry()

			var ratingCache *cache.RatingCache
			if cfg.Redis.Enabled {
				ratingCache = cache.New(cfg.Redis.Addr, 0, time.Minute, engine, reg)
				defer ratingCache.Close()
			}

			if !cfg.HTTP.Enabled {
				log.Info().Msg("http.enabled is false; nothing to serve")
				return nil
			}

			serverCfg := httpapi.DefaultConfig()
			serverCfg.Host = cfg.HTTP.Host
			serverCfg.Port = cfg.HTTP.Port
			server, err := httpapi.NewServer(serverCfg, engine, reg, ratingCache)
			if err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-sigCh:
				log.Info().Msg("shutting down")
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}
	return cmd
}

func restoreFromPostgres(ctx context.Context, cfg config.EngineConfig, engine *ratings.Engine) error {
	repo, db, err := postgres.Open(cfg.Postgres.DSN, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to open postgres: %w", err)
	}
	defer db.Close()

	window := persistence.TimeRange{From: time.Time{}, To: time.Now().UTC()}

	playerSnaps, err := repo.PlayersWindow(ctx, window)
	if err != nil {
		return fmt.Errorf("failed to load player snapshots: %w", err)
	}
	for _, row := range playerSnaps {
		snap, err := toEngineSnapshot(row)
		if err != nil {
			return err
		}
		engine.RestorePlayer(snap)
	}

	contestSnaps, err := repo.ContestsWindow(ctx, window)
	if err != nil {
		return fmt.Errorf("failed to load contest snapshots: %w", err)
	}
	for _, row := range contestSnaps {
		detail, err := toEngineContest(row)
		if err != nil {
			return err
		}
		engine.RestoreContest(detail)
	}

	log.Info().Int("players", len(playerSnaps)).Int("contests", len(contestSnaps)).Msg("restored engine state from postgres")
	return nil
}

func toEngineSnapshot(row persistence.PlayerSnapshot) (ratings.PlayerSnapshot, error) {
	var perfs, weights []float64
	var history []ratings.PlayerHistoryEntry
	if err := json.Unmarshal(row.PerfsJSON, &perfs); err != nil {
		return ratings.PlayerSnapshot{}, fmt.Errorf("failed to unmarshal perfs for player %d: %w", row.PlayerID, err)
	}
	if err := json.Unmarshal(row.WeightsJSON, &weights); err != nil {
		return ratings.PlayerSnapshot{}, fmt.Errorf("failed to unmarshal weights for player %d: %w", row.PlayerID, err)
	}
	if err := json.Unmarshal(row.HistoryJSON, &history); err != nil {
		return ratings.PlayerSnapshot{}, fmt.Errorf("failed to unmarshal history for player %d: %w", row.PlayerID, err)
	}
	return ratings.PlayerSnapshot{
		PlayerID: row.PlayerID,
		Mu:       row.Mu,
		Sigma:    row.Sigma,
		Perfs:    perfs,
		Weights:  weights,
		History:  history,
	}, nil
}

func toEngineContest(row persistence.ContestSnapshot) (ratings.ContestDetail, error) {
	var rows []ratings.ContestDetailRow
	if err := json.Unmarshal(row.RowsJSON, &rows); err != nil {
		return ratings.ContestDetail{}, fmt.Errorf("failed to unmarshal contest %d: %w", row.ContestID, err)
	}
	return ratings.ContestDetail{ContestID: row.ContestID, Rows: rows}, nil
}

// newRatingsCmd builds the "ratings" subcommand: it reads persisted
// player snapshots straight out of postgres, without starting an
// engine or HTTP server.
func newRatingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ratings",
		Short: "Print every persisted player's current rating",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Postgres.Enabled {
				return fmt.Errorf("ratings requires postgres.enabled in %s", configPath)
			}
			repo, db, err := postgres.Open(cfg.Postgres.DSN, 10*time.Second)
			if err != nil {
				return fmt.Errorf("failed to open postgres: %w", err)
			}
			defer db.Close()

			ctx := context.Background()
			rows, err := repo.PlayersWindow(ctx, persistence.TimeRange{From: time.Time{}, To: time.Now().UTC()})
			if err != nil {
				return fmt.Errorf("failed to query player snapshots: %w", err)
			}

			out := make([]ratings.RatingEntry, 0, len(rows))
			for _, row := range rows {
				out = append(out, ratings.RatingEntry{PlayerID: row.PlayerID, Rating: row.Mu})
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

// newHistoryCmd builds the "history" subcommand: one persisted
// player's full contest history.
func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [player-id]",
		Short: "Print one persisted player's contest history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Postgres.Enabled {
				return fmt.Errorf("history requires postgres.enabled in %s", configPath)
			}
			playerID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid player id %q: %w", args[0], err)
			}

			repo, db, err := postgres.Open(cfg.Postgres.DSN, 10*time.Second)
			if err != nil {
				return fmt.Errorf("failed to open postgres: %w", err)
			}
			defer db.Close()

			row, err := repo.PlayerByID(context.Background(), playerID)
			if err != nil {
				return fmt.Errorf("failed to query player %d: %w", playerID, err)
			}
			snap, err := toEngineSnapshot(row)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap.History)
		},
	}
}

// newContestCmd builds the "contest" subcommand: one persisted
// contest's detail vector.
func newContestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contest [contest-id]",
		Short: "Print one persisted contest's detail record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Postgres.Enabled {
				return fmt.Errorf("contest requires postgres.enabled in %s", configPath)
			}
			contestID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid contest id %q: %w", args[0], err)
			}

			repo, db, err := postgres.Open(cfg.Postgres.DSN, 10*time.Second)
			if err != nil {
				return fmt.Errorf("failed to open postgres: %w", err)
			}
			defer db.Close()

			row, err := repo.ContestByID(context.Background(), contestID)
			if err != nil {
				return fmt.Errorf("failed to query contest %d: %w", contestID, err)
			}
			detail, err := toEngineContest(row)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(detail)
		},
	}
}
