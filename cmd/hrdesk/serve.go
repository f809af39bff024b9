package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"github.com/gosuda/hrdesk/internal/agent"
	"github.com/gosuda/hrdesk/internal/api/ws"
	"github.com/gosuda/hrdesk/internal/assistant"
	"github.com/gosuda/hrdesk/internal/chat"
	"github.com/gosuda/hrdesk/internal/config"
	"github.com/gosuda/hrdesk/internal/notify"
	"github.com/gosuda/hrdesk/internal/seed"
	"github.com/gosuda/hrdesk/internal/server"
	"github.com/gosuda/hrdesk/internal/store/postgres"
	redisstore "github.com/gosuda/hrdesk/internal/store/redis"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), !skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not apply pending migrations on start")

	return cmd
}

func serve(ctx context.Context, migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if migrate {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}

	model, err := agent.NewModel(cfg.LLM)
	if err != nil {
		return err
	}

	engine := agent.NewLLMEngine(model, store.Conversations(), agent.WithMaxSteps(cfg.LLM.MaxSteps))
	def := assistant.New(assistant.Stores{
		Employees:          store.Employees(),
		Vacations:          store.Vacations(),
		PayStubs:           store.PayStubs(),
		Issues:             store.Issues(),
		Policies:           store.Policies(),
		SignatureDocuments: store.SignatureDocuments(),
	})
	def.ID = cfg.Conversation.AgentID
	if err := engine.Register(def); err != nil {
		return fmt.Errorf("register assistant: %w", err)
	}
	log.Info().
		Str("provider", cfg.LLM.Provider).
		Str("model", cfg.LLM.Model).
		Strs("agents", engine.Available()).
		Msg("reasoning engine ready")

	var opts []chat.Option

	deps := server.Deps{
		Store:         store,
		Conversations: store.Conversations(),
		Ping:          store.Ping,
	}

	// Redis is optional; without it turn events are not fanned out.
	if cfg.Redis.Addr != "" {
		pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer pubsub.Close()

		opts = append(opts, chat.WithPublisher(pubsub, redisstore.ChatChannel))
		deps.Subscriber = ws.Subscriber(pubsub)
		deps.Ping = pingAll(store.Ping, pubsub.Ping)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis pub/sub enabled")
	}

	if cfg.Slack.Enabled() {
		opts = append(opts, chat.WithNotifier(notify.NewSlackNotifierFromToken(cfg.Slack.BotToken, cfg.Slack.ChannelID)))
		log.Info().Str("channel", cfg.Slack.ChannelID).Msg("slack issue notifications enabled")
	}

	orchestrator := chat.NewOrchestrator(engine, chat.Stores{
		Employees:          store.Employees(),
		Issues:             store.Issues(),
		SignatureDocuments: store.SignatureDocuments(),
		Conversations:      store.Conversations(),
	}, cfg.Conversation, opts...)

	deps.Chat = orchestrator
	deps.Signer = chat.NewSigner(store.Employees(), store.SignatureDocuments())
	if cfg.DemoMode {
		deps.Seeder = seed.NewLoader(store)
		log.Warn().Msg("demo mode: POST /api/v1/seed is enabled")
	}
	if cfg.Server.WebDir != "" {
		deps.WebAssets = os.DirFS(cfg.Server.WebDir)
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := server.New(ctx, cfg, deps)

	var wg conc.WaitGroup
	wg.Go(func() {
		chat.SweepExpired(ctx, store.Conversations(), cfg.Conversation.SweepInterval, time.Now)
	})
	wg.Go(func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
			cancel()
		}
	})

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	shutdownErr := srv.Shutdown(shutdownCtx)
	wg.Wait()
	orchestrator.Wait()
	if shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (*postgres.Store, error) {
	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return nil, fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	return postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
}

// pingAll reports the first failing dependency.
func pingAll(pings ...func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		for _, ping := range pings {
			if err := ping(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
