package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/volunthub/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// HealthCheckerは/healthでのDB疎通確認に使う。
	HealthChecker HealthChecker

	// Loggerはリクエストログの出力先。nilの場合はslog.Defaultを使う。
	Logger *slog.Logger

	// MetricsはHTTPリクエストの計測。nilの場合は計測しない。
	Metrics middleware.HTTPMetrics

	// MetricsHandlerが設定されている場合、/metricsにマウントする。
	MetricsHandler http.Handler

	// CSRFが設定されている場合、/api配下にCSRF検証を適用する。
	CSRF *middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// プロフィール
	ProfileService ProfileServiceInterface

	// イベント
	EventService EventServiceInterface

	// マッチング
	MatchingService MatchingServiceInterface

	// 参加登録
	EnrollmentService EnrollmentServiceInterface

	// 参加履歴・レポート
	HistoryService HistoryServiceInterface

	// 通知
	NotificationService NotificationServiceInterface

	// フィード取込元（管理者向け）
	FeedSourceService FeedSourceServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → SessionMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// 認証ルート（/auth/*）はミドルウェアチェーンの外に配置する。
// 管理者専用ルートはRequireAdminMiddlewareでさらに絞り込む。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	profileHandler := NewProfileHandler(deps.ProfileService)
	eventHandler := NewEventHandler(deps.EventService)
	matchingHandler := NewMatchingHandler(deps.MatchingService)
	enrollmentHandler := NewEnrollmentHandler(deps.EnrollmentService)
	historyHandler := NewHistoryHandler(deps.HistoryService)
	notificationHandler := NewNotificationHandler(deps.NotificationService)
	feedSourceHandler := NewFeedSourceHandler(deps.FeedSourceService)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF（設定時のみ）
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		if deps.CSRF != nil {
			r.Use(middleware.NewCSRFMiddleware(*deps.CSRF))
			r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(*deps.CSRF))
		}

		// プロフィール管理
		r.Route("/api/profile", func(r chi.Router) {
			r.Get("/", profileHandler.GetProfile)
			r.Put("/", profileHandler.UpsertProfile)
			r.Delete("/", profileHandler.DeleteProfile)
		})

		// イベント閲覧と参加登録
		r.Route("/api/events", func(r chi.Router) {
			r.Get("/", eventHandler.ListEvents)

			// POST /api/events - イベント作成（管理者のみ）
			r.With(middleware.NewRequireAdminMiddleware()).Post("/", eventHandler.CreateEvent)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", eventHandler.GetEvent)

				// 参加登録・取消（参加登録専用レート制限を追加）
				r.With(deps.RateLimiter.JoinMiddleware()).Post("/join", enrollmentHandler.Join)
				r.With(deps.RateLimiter.JoinMiddleware()).Delete("/join", enrollmentHandler.Unjoin)

				// 管理者のみ
				r.Group(func(r chi.Router) {
					r.Use(middleware.NewRequireAdminMiddleware())

					r.Put("/", eventHandler.UpdateEvent)
					r.Delete("/", eventHandler.DeleteEvent)
					r.Get("/participants", enrollmentHandler.ListParticipants)
					r.Patch("/participants/{volunteerID}", enrollmentHandler.SetParticipantStatus)
				})
			})
		})

		// マッチング
		r.Get("/api/matches", matchingHandler.ListMatches)

		// 参加履歴・統計
		r.Get("/api/history", historyHandler.ListHistory)
		r.Get("/api/history/{volunteerID}", historyHandler.GetVolunteerHistory)
		r.Get("/api/stats", historyHandler.GetStats)

		// 通知
		r.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.ListNotifications)

			r.Route("/{id}", func(r chi.Router) {
				r.Post("/read", notificationHandler.MarkRead)
				r.Delete("/", notificationHandler.DeleteNotification)
			})
		})

		// --- 管理者専用ルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRequireAdminMiddleware())

			// プロフィール一覧
			r.Get("/api/profiles", profileHandler.ListProfiles)

			// レポート
			r.Get("/api/reports/volunteers", historyHandler.VolunteerReport)
			r.Get("/api/reports/events", historyHandler.EventReport)

			// フィード取込元管理
			r.Route("/api/admin/feed-sources", func(r chi.Router) {
				r.Post("/", feedSourceHandler.RegisterSource)
				r.Get("/", feedSourceHandler.ListSources)
				r.Delete("/{id}", feedSourceHandler.RemoveSource)
			})
		})
	})

	return r
}
