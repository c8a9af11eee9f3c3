// Command gauntletd runs the word-game moderator: platform intake, the
// adaptive rule engine, announcements, score keeping, the episode archive,
// and the admin API, supervised under one errgroup.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Mindburn-Labs/gauntlet/pkg/announce"
	"github.com/Mindburn-Labs/gauntlet/pkg/api"
	"github.com/Mindburn-Labs/gauntlet/pkg/archive"
	"github.com/Mindburn-Labs/gauntlet/pkg/catalog"
	"github.com/Mindburn-Labs/gauntlet/pkg/config"
	"github.com/Mindburn-Labs/gauntlet/pkg/controller"
	"github.com/Mindburn-Labs/gauntlet/pkg/crypto"
	"github.com/Mindburn-Labs/gauntlet/pkg/observability"
	"github.com/Mindburn-Labs/gauntlet/pkg/platform"
	"github.com/Mindburn-Labs/gauntlet/pkg/score"

	_ "github.com/lib/pq" // Postgres Driver
	_ "modernc.org/sqlite"
)

const version = "0.1.0"

func main() {
	log.Println("[gauntletd] starting")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[gauntletd] config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		log.Fatalf("[gauntletd] fatal: %v", err)
	}
	log.Println("[gauntletd] shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	obs, err := observability.New(ctx, observability.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	cat, err := loadCatalog(ctx, cfg)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	log.Printf("[gauntletd] catalog: %d rules", cat.Len())

	ctrlCfg, channel, err := resolveProfile(cfg)
	if err != nil {
		return err
	}

	ctrl, err := controller.New(cat, ctrlCfg, nil, nil)
	if err != nil {
		return err
	}
	engine := controller.NewEngine(cat, ctrl, 0)
	initial, err := engine.Initialize(0)
	if err != nil {
		return fmt.Errorf("initialize ruleset: %w", err)
	}
	log.Printf("[gauntletd] ruleset: %s", initial)

	master := []byte(cfg.MasterSecret)
	signer, err := crypto.DeriveSigner(master, crypto.PurposeAnnounce)
	if err != nil {
		return fmt.Errorf("derive announce signer: %w", err)
	}
	log.Printf("[gauntletd] announce key: %s", signer.KeyID())

	var client *platform.Client
	if cfg.PlatformToken != "" {
		client = platform.NewClient(cfg.PlatformBaseURL, cfg.PlatformToken)
	}

	announcer, closeAnnouncer := buildAnnouncer(cfg, client, channel, logger)
	defer closeAnnouncer()

	keeper, closeKeeper, err := buildKeeper(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeKeeper()

	sink, err := archive.NewSinkFromEnv(ctx)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	mod := newModerator(engine, signer, announcer, keeper, archive.NewArchiver(sink), client, channel, obs, logger)
	mod.setRuleCount(initial.Len())

	if desc, err := engine.DescribeActive(); err == nil {
		obs.RecordDifficulty(ctx, desc.Difficulty, observability.AttrChannel.String(channel))
		if client != nil {
			if err := platform.PublishRuleBook(ctx, client, channel, desc); err != nil {
				logger.Warn("initial rule book publish failed", "error", err)
			}
		}
	}

	jwtKey, err := crypto.DeriveKey(master, crypto.PurposeAdminJWT, 32)
	if err != nil {
		return fmt.Errorf("derive admin jwt key: %w", err)
	}
	webhookKey, err := crypto.DeriveKey(master, crypto.PurposeWebhook, 32)
	if err != nil {
		return fmt.Errorf("derive webhook key: %w", err)
	}

	apiSrv := api.NewServer(mod, keeper, channel, api.NewJWTValidator(jwtKey), logger)
	hook := platform.NewWebhookServer(webhookKey, mod.handleEvent, logger)

	rootMux := http.NewServeMux()
	rootMux.Handle("/events", hook)
	rootMux.Handle("/", apiSrv.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           rootMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		log.Printf("[gauntletd] http: :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.SocketURL != "" {
		listener := platform.NewSocketListener(cfg.SocketURL, cfg.PlatformToken, mod.handleEvent, logger)
		eg.Go(func() error {
			log.Printf("[gauntletd] socket mode: %s", cfg.SocketURL)
			return listener.Run(egCtx)
		})
	}

	eg.Go(func() error {
		return mod.tickLoop(egCtx, cfg.TickInterval)
	})

	log.Println("[gauntletd] ready")
	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// loadCatalog reads the configured catalog file. When the operator left the
// default path and no file exists there, the builtin catalog ships the game.
func loadCatalog(ctx context.Context, cfg *config.Config) (*catalog.Catalog, error) {
	if _, err := os.Stat(cfg.CatalogPath); os.IsNotExist(err) && os.Getenv("GAUNTLET_CATALOG") == "" {
		log.Println("[gauntletd] catalog: using builtin default")
		return catalog.Default()
	}
	return catalog.LoadFile(ctx, cfg.CatalogPath, version)
}

// resolveProfile materializes the controller tunables, applying the selected
// game profile when one is configured. A profile's channel binding overrides
// the environment, since the profile names the game it configures.
func resolveProfile(cfg *config.Config) (controller.Config, string, error) {
	channel := cfg.Channel
	if cfg.Profile == "" {
		return controller.DefaultConfig(), channel, nil
	}

	prof, err := config.LoadProfile(cfg.ProfilesDir, cfg.Profile)
	if err != nil {
		return controller.Config{}, "", fmt.Errorf("profile: %w", err)
	}
	ctrlCfg, err := prof.ControllerConfig()
	if err != nil {
		return controller.Config{}, "", err
	}
	if prof.Channel != "" {
		channel = prof.Channel
	}
	log.Printf("[gauntletd] profile: %s (target difficulty %d)", prof.Code, ctrlCfg.InitialDifficulty)
	return ctrlCfg, channel, nil
}

func buildAnnouncer(cfg *config.Config, client *platform.Client, channel string, logger *slog.Logger) (announce.Announcer, func()) {
	anns := announce.Multi{announce.NewLogAnnouncer(logger)}
	closer := func() {}

	if client != nil && channel != "" {
		anns = append(anns, announce.NewChatAnnouncer(client, channel))
	}
	if cfg.AnnounceChannel != "" {
		ra := announce.NewRedisAnnouncer(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.AnnounceChannel)
		anns = append(anns, ra)
		closer = func() { _ = ra.Close() }
		log.Printf("[gauntletd] redis announce: %s", cfg.AnnounceChannel)
	}
	return anns, closer
}

func buildKeeper(ctx context.Context, cfg *config.Config) (score.Keeper, func(), error) {
	switch cfg.ScoreBackend {
	case config.ScoreSQLite:
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		keeper, err := score.NewSQLiteKeeper(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Printf("[gauntletd] scores: sqlite %s", cfg.SQLitePath)
		return keeper, func() { _ = db.Close() }, nil

	case config.ScorePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("postgres ping: %w", err)
		}
		keeper := score.NewPostgresKeeper(db)
		if err := keeper.Init(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Println("[gauntletd] scores: postgres connected")
		return keeper, func() { _ = db.Close() }, nil

	case config.ScoreRedis:
		lb := score.NewRedisLeaderboard(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		log.Printf("[gauntletd] scores: redis %s", cfg.RedisAddr)
		return lb, func() { _ = lb.Close() }, nil

	case config.ScoreNone:
		log.Println("[gauntletd] scores: disabled")
		return nil, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown score backend %q", cfg.ScoreBackend)
}
