package router

import (
	"net/http"

	"voice-dialogue-demo/backend/internal/api"
	"voice-dialogue-demo/backend/internal/ws"
	"voice-dialogue-demo/backend/pkg/config"
	"voice-dialogue-demo/backend/pkg/di"
	"voice-dialogue-demo/backend/pkg/errors"
	"voice-dialogue-demo/backend/pkg/jwt"
	"voice-dialogue-demo/backend/pkg/logger"
	"voice-dialogue-demo/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config

	rateLimiter *middleware.RateLimiter
}

// New creates a router with the global middleware chain installed.
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)
	cfg := container.Config

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
		container.Logger.LogError(err, "Invalid trusted proxies, trusting none")
		_ = engine.SetTrustedProxies(nil)
	}

	limiterOpts := middleware.DefaultRateLimiterOptions()
	limiterOpts.Limit = rate.Limit(cfg.Security.RateLimit)
	limiterOpts.Burst = cfg.Security.RateLimitBurst

	r := &Router{
		Engine:      engine,
		Container:   container,
		Logger:      container.Logger,
		Config:      cfg,
		rateLimiter: middleware.NewRateLimiter(container.Logger, limiterOpts),
	}

	// request id first so every log line carries it
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(middleware.CORS(cfg.Security.AllowedOrigins))
	engine.Use(middleware.MaxBodySize(cfg.Security.MaxBodySize))

	if cfg.Security.ValidateOpenAPI {
		r.addOpenAPIValidation(cfg.Security.OpenAPISpecPath)
	}

	return r
}

// SetupRoutes registers all application routes. metrics may be nil.
func (r *Router) SetupRoutes(metrics http.Handler) {
	c := r.Container
	jwtAuth := middleware.JWTAuthMiddleware(c.JWTService, r.Logger)
	activeUser := middleware.RequireActiveUser(c.UserService, r.Logger)
	// anonymous callers are limited per IP, authenticated ones per user
	limit := r.rateLimiter.Middleware()

	authHandler := api.NewAuthHandler(c.UserService, r.Logger)
	userHandler := api.NewUserHandler(c.UserService)
	dialogueHandler := api.NewDialogueHandler(c.ReplyService, c.TurnService, c.AnalysisService)
	replayStream := ws.NewReplayStreamer(c.TurnService, r.Config.Security.AllowedOrigins, r.Logger)

	if metrics != nil {
		r.Engine.GET("/metrics", gin.WrapH(metrics))
	}
	r.mountMedia(r.Config.Storage.PublicBaseURL)

	v1 := r.Engine.Group("/api/v1")

	public := v1.Group("")
	public.Use(limit)
	{
		public.GET("/health", c.Health.Handler(r.Config.Server.Version))

		auth := public.Group("/auth")
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
	}

	protected := v1.Group("")
	protected.Use(jwtAuth, activeUser, limit)
	{
		me := protected.Group("/users/me")
		me.GET("", userHandler.Me)
		me.PATCH("", userHandler.UpdateMe)
		me.DELETE("", userHandler.DeleteMe)
		me.POST("/password", userHandler.ChangePassword)

		protected.POST("/speak", dialogueHandler.Speak)
		protected.POST("/replay-dialogue", dialogueHandler.Replay)
		protected.GET("/replay-dialogue/ws", replayStream.Serve)
		protected.POST("/analyze", dialogueHandler.Analyze)

		api.NewChatHistoryHandler(c.ChatHistoryService).RegisterRoutes(protected)
		api.NewAvatarHandler(c.AvatarService, r.Config.Security.MaxBodySize).RegisterRoutes(protected)
		api.NewMoodHandler(c.MoodService).RegisterRoutes(protected)

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRole(jwt.RoleAdmin))
		admin.PUT("/users/:id/role", userHandler.UpdateRole)
	}
}

// Close stops background work started by the router.
func (r *Router) Close() {
	r.rateLimiter.Stop()
}
