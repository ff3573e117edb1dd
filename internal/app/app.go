package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/volunthub/internal/auth"
	"github.com/hitoshi/volunthub/internal/config"
	"github.com/hitoshi/volunthub/internal/database"
	"github.com/hitoshi/volunthub/internal/enrollment"
	"github.com/hitoshi/volunthub/internal/event"
	"github.com/hitoshi/volunthub/internal/handler"
	"github.com/hitoshi/volunthub/internal/history"
	"github.com/hitoshi/volunthub/internal/logger"
	"github.com/hitoshi/volunthub/internal/matching"
	"github.com/hitoshi/volunthub/internal/metrics"
	"github.com/hitoshi/volunthub/internal/middleware"
	"github.com/hitoshi/volunthub/internal/notification"
	"github.com/hitoshi/volunthub/internal/profile"
	"github.com/hitoshi/volunthub/internal/repository"
	"github.com/hitoshi/volunthub/internal/security"
	"github.com/hitoshi/volunthub/internal/validation"
	"github.com/hitoshi/volunthub/internal/worker/cleanup"
	"github.com/hitoshi/volunthub/internal/worker/feedimport"
	"github.com/hitoshi/volunthub/internal/worker/reminder"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)
	eventRepo := repository.NewPostgresEventRepo(db)
	participationRepo := repository.NewPostgresParticipationRepo(db)
	notificationRepo := repository.NewPostgresNotificationRepo(db)
	sourceRepo := repository.NewPostgresFeedSourceRepo(db)

	// 3. セキュリティ・バリデーション・メトリクスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()
	validate := validation.New()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ドメインサービスの初期化
	authService := auth.NewService(
		userRepo, sessionRepo, validate,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)
	profileService := profile.NewService(profileRepo, userRepo, validate)

	var webhookClient *http.Client
	if cfg.WebhookURL != "" {
		webhookClient = ssrfGuard.NewSafeClient(cfg.WebhookTimeout, 1<<20)
	}
	notificationService := notification.NewService(
		notificationRepo, webhookClient, cfg.WebhookURL, collector,
	)

	eventService := event.NewService(
		eventRepo, participationRepo, sanitizer, validate, notificationService,
	)
	matchingService := matching.NewService(profileRepo, eventRepo)
	enrollmentService := enrollment.NewService(
		eventRepo, participationRepo, profileRepo, notificationService, collector,
	)
	historyService := history.NewService(participationRepo, eventRepo, userRepo)
	detector := feedimport.NewDetector(ssrfGuard, cfg.FeedFetchTimeout, cfg.FeedFetchMaxSize)
	sourceService := feedimport.NewSourceService(sourceRepo, ssrfGuard, validate, detector)

	// 5. ルーターの構築
	// configのレート制限はreq/min単位なのでreq/secに変換する
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.JoinRate = rate.Limit(float64(cfg.RateLimitJoin) / 60.0)
	rateLimiterCfg.JoinBurst = cfg.RateLimitJoin

	deps := &handler.RouterDeps{
		HealthChecker:     db,
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(rateLimiterCfg),

		Metrics:        collector,
		MetricsHandler: metrics.Handler(registry),
		CSRF: &middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		ProfileService:      profileService,
		EventService:        eventService,
		MatchingService:     matchingService,
		EnrollmentService:   enrollmentService,
		HistoryService:      historyService,
		NotificationService: notificationService,
		FeedSourceService:   sourceService,
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、フィード取込スケジューラと日次ジョブ（クリーンアップ・リマインダ）を起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	eventRepo := repository.NewPostgresEventRepo(db)
	participationRepo := repository.NewPostgresParticipationRepo(db)
	notificationRepo := repository.NewPostgresNotificationRepo(db)
	sourceRepo := repository.NewPostgresFeedSourceRepo(db)

	// 3. セキュリティ・メトリクスの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. フィード取込の初期化
	importer := feedimport.NewImporter(
		eventRepo, sourceRepo, sanitizer, ssrfGuard,
		slog.Default(), cfg.FeedFetchTimeout, cfg.FeedFetchMaxSize,
		collector,
	)
	scheduler := feedimport.NewScheduler(sourceRepo, importer, slog.Default(), 0)

	// 5. 日次バッチジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())

	var webhookClient *http.Client
	if cfg.WebhookURL != "" {
		webhookClient = ssrfGuard.NewSafeClient(cfg.WebhookTimeout, 1<<20)
	}
	notificationService := notification.NewService(
		notificationRepo, webhookClient, cfg.WebhookURL, collector,
	)
	reminderJob := reminder.NewReminderJob(
		eventRepo, participationRepo, notificationRepo, notificationService,
		slog.Default(),
	)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("import_interval", cfg.FeedImportInterval),
	)

	// クリーンアップとリマインダを日次でバックグラウンド実行
	runDailyJobs := func() {
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}
		if err := reminderJob.Run(ctx); err != nil {
			slog.Error("reminder job failed", slog.String("error", err.Error()))
		}
	}
	go func() {
		// 起動直後に1回実行
		runDailyJobs()

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runDailyJobs()
			}
		}
	}()

	// フィード取込スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.FeedImportInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
