// Package main provides the headless game server: the fixed-step simulation,
// the gRPC event bridge for the presentation layer and the metrics endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/gtil/internal/config"
	"github.com/cory-johannsen/gtil/internal/game/dice"
	"github.com/cory-johannsen/gtil/internal/game/director"
	"github.com/cory-johannsen/gtil/internal/game/entity"
	"github.com/cory-johannsen/gtil/internal/game/event"
	"github.com/cory-johannsen/gtil/internal/game/level"
	"github.com/cory-johannsen/gtil/internal/game/story"
	"github.com/cory-johannsen/gtil/internal/game/weapon"
	"github.com/cory-johannsen/gtil/internal/gateway"
	"github.com/cory-johannsen/gtil/internal/observability"
	"github.com/cory-johannsen/gtil/internal/scripting"
	"github.com/cory-johannsen/gtil/internal/server"
	"github.com/cory-johannsen/gtil/internal/storage"
	"github.com/cory-johannsen/gtil/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	autostart := flag.String("autostart", "", "map type to launch at boot (arena, boss_terrace, story); empty waits for launch-game")
	charType := flag.String("char", "el_gato", "character type used by -autostart")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "gameserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	metrics := observability.NewMetrics()
	ch := event.New(logger)
	ch.Tap(func(m event.Message) { metrics.Event(string(m.Topic)) })

	logger.Info("starting game server",
		zap.String("grpc_addr", cfg.Gateway.Addr()),
		zap.Int("tick_rate", cfg.Game.TickRate),
	)

	// Load content
	contentStart := time.Now()
	defs, err := weapon.LoadDefs(cfg.Content.Weapons)
	if err != nil {
		logger.Fatal("loading weapons", zap.Error(err))
	}
	weapons, err := weapon.NewRegistryFrom(defs)
	if err != nil {
		logger.Fatal("indexing weapons", zap.Error(err))
	}
	templates, err := entity.LoadTemplates(cfg.Content.Enemies)
	if err != nil {
		logger.Fatal("loading enemy templates", zap.Error(err))
	}
	roster, err := director.NewRoster(templates)
	if err != nil {
		logger.Fatal("building roster", zap.Error(err))
	}
	campaign, err := story.LoadCampaign(cfg.Content.Story)
	if err != nil {
		logger.Fatal("loading story campaign", zap.Error(err))
	}
	var generator level.Generator = level.ArenaGenerator{CellSize: cfg.Game.CellSize}
	if cfg.Content.Levels != "" {
		generator = level.DirGenerator{Dir: cfg.Content.Levels, Fallback: generator}
	}
	logger.Info("content loaded",
		zap.Int("weapons", len(defs)),
		zap.Int("enemy_templates", len(templates)),
		zap.Int("story_levels", len(campaign.Levels())),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	src := dice.NewCryptoSource()
	scripts := scripting.NewManager(src, logger)
	defer scripts.Close()

	// Score and settings stores
	var (
		scores   storage.HighScoreStore = storage.NewMemoryScores()
		settings storage.SettingsStore  = storage.NewMemorySettings()
	)
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		if err := pool.Health(ctx, 5*time.Second); err != nil {
			logger.Fatal("database health check", zap.Error(err))
		}
		scores, settings = pool.HighScores(), pool.Settings()
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
	} else {
		logger.Warn("database disabled, scores and settings are kept in memory")
	}

	session, err := director.NewSession(ctx, director.OptionsFromConfig(cfg.Game), director.Content{
		Weapons:     weapons,
		Roster:      roster,
		Generator:   generator,
		Campaign:    campaign,
		Scripts:     scripts,
		ScriptDir:   cfg.Content.Scripts,
		ScriptLimit: cfg.Game.ScriptInstructionLimit,
		MapWidth:    cfg.Game.MapWidth,
		MapHeight:   cfg.Game.MapHeight,
	}, director.SessionDeps{
		Channel:  ch,
		Rand:     src,
		Scores:   scores,
		Settings: settings,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("creating session", zap.Error(err))
	}
	defer session.Close()
	if *autostart != "" {
		if err := session.Launch(event.LaunchGame{CharType: *charType, MapType: *autostart}); err != nil {
			logger.Fatal("autostart", zap.Error(err), zap.String("map_type", *autostart))
		}
	}

	bridge := gateway.New(cfg.Gateway.Buffer, gateway.Deps{
		Channel: ch,
		Inbox:   session,
		Metrics: metrics,
		Logger:  logger,
	})
	grpcServer := grpc.NewServer()
	bridge.Register(grpcServer)

	loop := server.NewLoop(cfg.Game.TickInterval(), session, metrics, logger)

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("simulation", loop)
	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", cfg.Gateway.Addr())
			if err != nil {
				return err
			}
			logger.Info("gRPC event bridge listening", zap.String("addr", lis.Addr().String()))
			return grpcServer.Serve(lis)
		},
		StopFn: func() {
			bridge.Close()
			grpcServer.GracefulStop()
		},
	})
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		httpServer := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		lifecycle.Add("metrics", &server.FuncService{
			StartFn: func() error {
				logger.Info("metrics listening", zap.String("addr", cfg.Metrics.Addr))
				if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			},
			StopFn: func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					logger.Warn("metrics shutdown", zap.Error(err))
				}
			},
		})
	}

	logger.Info("game server ready",
		zap.Duration("startup", time.Since(start)),
		zap.Bool("database", cfg.Database.Enabled),
		zap.Bool("metrics", cfg.Metrics.Enabled),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("game server stopped with error", zap.Error(err))
	}
}
