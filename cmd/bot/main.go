package main // Entry point package

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/teledl/internal/bot"
	"github.com/iliyamo/teledl/internal/config"
	"github.com/iliyamo/teledl/internal/database"
	"github.com/iliyamo/teledl/internal/delivery"
	"github.com/iliyamo/teledl/internal/downloader"
	"github.com/iliyamo/teledl/internal/handler"
	"github.com/iliyamo/teledl/internal/ledger"
	"github.com/iliyamo/teledl/internal/queue"
	"github.com/iliyamo/teledl/internal/repository"
	"github.com/iliyamo/teledl/internal/retention"
	"github.com/iliyamo/teledl/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly

	cfg := config.Load()
	platforms := config.LoadPlatforms()
	policy := retention.Policy{IdleWindow: cfg.IdleWindow, ExhaustedWindow: cfg.ExhaustedWindow}

	rdb, err := config.NewRedisClient()
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("schema: %v", err)
	}
	cancel()

	accounts := repository.NewUserAccountRepo(rdb, platforms, policy)
	payments := repository.NewPaymentRepo(db)
	ledgerSvc := ledger.New(accounts, platforms)

	fetchOpts := downloader.Options{
		Dir:                cfg.DownloadDir,
		TeraboxResolverURL: os.Getenv("TERABOX_RESOLVER_URL"),
		YTDLPPath:          os.Getenv("YTDLP_PATH"),
	}
	fetchers := make(map[string]downloader.Fetcher, len(platforms))
	for _, id := range platforms.IDs() {
		f, err := downloader.New(id, fetchOpts)
		if err != nil {
			log.Fatalf("downloader %s: %v", id, err)
		}
		fetchers[id] = f
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}
	log.Printf("authorized as @%s (env=%s)", api.Self.UserName, cfg.Env)

	transport := bot.NewTransport(api)
	janitor := delivery.NewJanitor(cfg.DeleteDelay, transport)
	manager := delivery.NewManager(ledgerSvc, fetchers, transport, janitor)

	// Files left by a previous run already outlived their deletion timers.
	if n := delivery.SweepOrphans(cfg.DownloadDir); n > 0 {
		log.Printf("removed %d orphaned files from %s", n, cfg.DownloadDir)
	}

	go queue.StartOpsConsumer()

	var e *echo.Echo
	if cfg.HTTPPort != "" {
		if cfg.JWTSecret == "" || cfg.OperatorPassHash == "" {
			log.Fatal("operator API enabled but JWT_SECRET or OPERATOR_PASS_HASH is unset")
		}
		e = echo.New()
		e.HideBanner = true
		router.RegisterRoutes(e)
		router.RegisterOperator(e,
			handler.NewAuthHandler(cfg),
			handler.NewAdminHandler(cfg, platforms, ledgerSvc, payments),
			cfg.JWTSecret)
		go func() {
			addr := ":" + cfg.HTTPPort
			log.Printf("operator API listening on %s", addr)
			if err := e.Start(addr); err != nil {
				log.Printf("operator API stopped: %v", err)
			}
		}()
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := bot.New(api, cfg, platforms, ledgerSvc, manager, payments, transport)
	log.Printf("bot running; platforms: %v", platforms.IDs())
	b.Run(runCtx)

	// Shutdown. Pending deletion timers are dropped; the next start's sweep
	// removes whatever they would have deleted.
	log.Print("shutting down")
	janitor.Stop()
	if e != nil {
		shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := e.Shutdown(shCtx); err != nil {
			log.Printf("operator API shutdown: %v", err)
		}
		shCancel()
	}
}
