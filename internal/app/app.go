// Package app はアプリケーションの起動とライフサイクル管理を提供する。
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

	"github.com/gghhxx11299/finedata/internal/auth"
	"github.com/gghhxx11299/finedata/internal/avatar"
	"github.com/gghhxx11299/finedata/internal/config"
	"github.com/gghhxx11299/finedata/internal/database"
	"github.com/gghhxx11299/finedata/internal/dataset"
	"github.com/gghhxx11299/finedata/internal/gate"
	"github.com/gghhxx11299/finedata/internal/handler"
	"github.com/gghhxx11299/finedata/internal/logger"
	"github.com/gghhxx11299/finedata/internal/metrics"
	"github.com/gghhxx11299/finedata/internal/middleware"
	"github.com/gghhxx11299/finedata/internal/notify"
	"github.com/gghhxx11299/finedata/internal/repository"
	"github.com/gghhxx11299/finedata/internal/security"
	"github.com/gghhxx11299/finedata/internal/user"
	"github.com/gghhxx11299/finedata/internal/worker/cleanup"
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
	case CommandSeed:
		return runSeed(cfg)
	case CommandProbe:
		return runProbe(cfg)
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
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	datasetRepo := repository.NewPostgresDatasetRepo(db)
	downloadRepo := repository.NewPostgresDownloadRepo(db)

	// 3. メトリクスとセキュリティサービスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewProfileSanitizer()
	avatarFetcher := avatar.NewFetcher(ssrfGuard, cfg.AvatarTimeout, cfg.AvatarMaxSize)

	// 4. ドメインサービスの初期化
	verifier := auth.NewGoogleIDTokenVerifier(auth.GoogleVerifierConfig{
		ClientID: cfg.GoogleClientID,
	}, nil)
	authService := auth.NewService(
		verifier, userRepo, identRepo, sessionRepo,
		sanitizer, avatarFetcher, collector,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
	)

	datasetService := dataset.NewService(datasetRepo, downloadRepo, cfg.DatasetDir, collector)
	userService := user.NewService(userRepo, sessionRepo, downloadRepo)

	// 5. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger:        slog.Default(),
		StatusMetrics: collector,

		MetricsHandler: metrics.Handler(registry),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
		AuthMetrics: collector,

		DatasetService: datasetService,
		UserService:    userService,
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
// 期限切れセッションと古いダウンロード記録の日次クリーンアップを実行する。
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

	// 2. リポジトリとクリーンアップジョブの初期化
	sessionRepo := repository.NewPostgresSessionRepo(db)
	downloadRepo := repository.NewPostgresDownloadRepo(db)

	cleanupJob := cleanup.NewCleanupJob(sessionRepo, downloadRepo, slog.Default())
	cleanupJob.RetentionDays = cfg.DownloadRetentionDays

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
		slog.Int("retention_days", cfg.DownloadRetentionDays),
	)

	// クリーンアップジョブを日次で実行（起動直後に1回実行）
	if err := cleanupJob.Run(ctx); err != nil {
		slog.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped gracefully")
			return nil
		case <-ticker.C:
			if err := cleanupJob.Run(ctx); err != nil {
				slog.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
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

// runSeed はデータセットディレクトリを走査し、未登録のファイルをカタログに登録する。
// デプロイ時にmigrateの後に実行する想定。冪等なので再実行できる。
func runSeed(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	datasetRepo := repository.NewPostgresDatasetRepo(db)
	downloadRepo := repository.NewPostgresDownloadRepo(db)
	datasetService := dataset.NewService(datasetRepo, downloadRepo, cfg.DatasetDir, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	registered, err := datasetService.Seed(ctx)
	if err != nil {
		return fmt.Errorf("dataset seeding failed: %w", err)
	}

	slog.Info("dataset seeding completed",
		slog.String("dataset_dir", cfg.DatasetDir),
		slog.Int("registered", registered),
	)
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

// runProbe はセッションゲートの合成監視を実行する。
// 事前発行されたIDトークン（PROBE_ID_TOKEN）でサインインし、
// ゲート付きダウンロードを1回実行してサインアウトする。
// 本番のセッションAPIをクライアント視点で一巡する監視用サブコマンド。
func runProbe(cfg *config.Config) error {
	if cfg.ProbeIDToken == "" {
		return fmt.Errorf("PROBE_ID_TOKEN is required for probe mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	backend, err := gate.NewClient(cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}

	provider := gate.NewStaticTokenProvider(gate.Assertion{
		IDToken: cfg.ProbeIDToken,
	})

	// UI状態と通知はログに反映する
	renderer := gate.RendererFunc(func(ui gate.UIState) {
		slog.Info("ui state",
			slog.Bool("auth_prompt", ui.ShowAuthPrompt),
			slog.Bool("user_menu", ui.ShowUserMenu),
			slog.Bool("downloads_enabled", ui.DownloadsEnabled),
			slog.String("user_name", ui.UserName),
		)
	})
	center := notify.NewCenter(logSink{})

	g := gate.NewGate(provider, backend, renderer, center, gate.Config{
		ClientID: cfg.GoogleClientID,
	})

	// 1. 初期化とセッション確認
	g.Initialize(ctx)

	// 2. サインイン
	if !g.SignIn(ctx) {
		return fmt.Errorf("probe sign-in failed")
	}

	// 3. ゲート付きダウンロード（対象データセットが設定されている場合のみ）
	if cfg.ProbeDataset != "" {
		if !g.RequestGatedAction(ctx, cfg.ProbeDataset) {
			g.SignOut(ctx)
			return fmt.Errorf("probe download failed: %s", cfg.ProbeDataset)
		}
	}

	// 4. サインアウト
	g.SignOut(ctx)

	if g.CurrentSession().Authenticated {
		return fmt.Errorf("probe did not converge to signed-out state")
	}

	slog.Info("probe completed successfully")
	return nil
}

// logSink は通知をログに流すnotify.Sink実装。
type logSink struct{}

func (logSink) Show(n notify.Notification) {
	slog.Info("notification",
		slog.String("level", string(n.Level)),
		slog.String("message", n.Message),
	)
}

func (logSink) Remove(string) {}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
