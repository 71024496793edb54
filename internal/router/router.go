package router

import (
	"ideaboard/internal/config"
	"ideaboard/internal/handlers"
	"ideaboard/internal/metrics"
	"ideaboard/internal/middleware"
	"ideaboard/internal/services"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const sessionName = "ideaboard_session"

// Options carries everything the engine needs besides configuration
type Options struct {
	Config  *config.Config
	DB      *gorm.DB
	Metrics *metrics.Prometheus
}

// New builds the gin engine with middleware, the API routes and the optional SPA
func New(opts Options) *gin.Engine {
	cfg := opts.Config

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery(cfg.IsProduction()))
	r.Use(middleware.ErrorHandler(cfg.IsProduction()))
	// engine level so preflight requests, which match no route, are answered too
	r.Use(corsMiddleware(cfg))

	var recorder metrics.Recorder = metrics.Noop{}
	if opts.Metrics != nil {
		recorder = opts.Metrics
		r.Use(opts.Metrics.Middleware())
		r.GET("/metrics", opts.Metrics.Handler())
	}

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAgeSec,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	users := services.NewUserService(opts.DB, cfg.AdminLogins...)
	r.Use(middleware.LoadUser(users))

	api := r.Group("/api")
	RegisterRoutes(api, cfg, opts.DB, users, recorder)

	serveSPA(r, cfg.StaticDir)
	return r
}

// RegisterRoutes mounts every JSON endpoint below the /api group
func RegisterRoutes(api *gin.RouterGroup, cfg *config.Config, conn *gorm.DB, users *services.UserService, recorder metrics.Recorder) {
	// Services
	ideaService := services.NewIdeaService(conn, users)
	postService := services.NewPostService(conn, recorder)

	// Handlers
	healthHandler := handlers.NewHealthHandler(conn)
	ideaHandler := handlers.NewIdeaHandler(ideaService)
	postHandler := handlers.NewPostHandler(postService)
	adminHandler := handlers.NewAdminHandler(postService, cfg.GrafanaEmbedURL)
	authHandler := handlers.NewAuthHandler(cfg, users, recorder)

	api.GET("", healthHandler.Info)         // 服务信息
	api.GET("/health", healthHandler.Health) // 健康检查

	// 登录 (42 OAuth)
	auth := api.Group("/auth")
	{
		auth.GET("/42", authHandler.Login)
		auth.GET("/42/callback", authHandler.Callback)
		auth.GET("/me", authHandler.Me)
		auth.POST("/logout", authHandler.Logout)
	}

	// 点子板 (Ideas)
	ideas := api.Group("/ideas")
	{
		ideas.GET("", ideaHandler.List)
		ideas.POST("", ideaHandler.Create)
		ideas.POST("/:id/lock", ideaHandler.Lock)
	}

	// 帖子 (Posts)
	posts := api.Group("/posts")
	{
		posts.GET("", postHandler.List)
		posts.POST("", middleware.AuthRequired(), postHandler.Create)
		posts.POST("/:id/vote", middleware.AuthRequired(), postHandler.Vote)
	}

	// 管理后台 (Admin)
	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired())
	{
		admin.GET("/posts", adminHandler.Posts)
		admin.GET("/stats", adminHandler.Stats)
		admin.GET("/grafana-url", adminHandler.GrafanaURL)
	}
}

// corsMiddleware accepts any origin in development and the allow-list otherwise.
// Requests without an Origin header never reach the CORS check.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
	}
	if cfg.IsDevelopment() {
		corsCfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins()
	}
	return cors.New(corsCfg)
}

// serveSPA serves the built frontend with an index.html fallback for client side routes
func serveSPA(r *gin.Engine, dir string) {
	if dir == "" {
		return
	}
	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); err != nil {
		logrus.Infof("No frontend build at %s, serving API only", dir)
		return
	}

	r.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") || path == "/api" || c.Request.Method != "GET" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}

		file := filepath.Join(dir, filepath.Clean("/"+path))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		c.File(index)
	})
	logrus.Infof("Serving frontend from %s", dir)
}
