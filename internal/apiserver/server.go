package apiserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quarrydirect/portal/internal/apiserver/handler"
	"github.com/quarrydirect/portal/internal/apiserver/middleware"
	"github.com/quarrydirect/portal/internal/common/config"
	"github.com/quarrydirect/portal/internal/database"
	"github.com/quarrydirect/portal/internal/permission"
	"github.com/quarrydirect/portal/internal/session"
	"github.com/quarrydirect/portal/pkg/metrics"
	"github.com/quarrydirect/portal/pkg/version"
)

// Server owns the HTTP surface: router construction, route registration and
// lifecycle.
type Server struct {
	logger   *zap.Logger
	cfg      *config.IdentityConfig
	handlers *handler.Handler
	sessions *session.Manager
	db       database.Database
	resolver *permission.Resolver
	metrics  *metrics.Metrics
	httpSrv  *http.Server
}

// NewServer wires the router. Metrics may be nil when disabled.
func NewServer(logger *zap.Logger, cfg *config.IdentityConfig, handlers *handler.Handler, sessions *session.Manager, db database.Database, resolver *permission.Resolver, m *metrics.Metrics) *Server {
	return &Server{
		logger:   logger.Named("apiserver"),
		cfg:      cfg,
		handlers: handlers,
		sessions: sessions,
		db:       db,
		resolver: resolver,
		metrics:  m,
	}
}

// Router builds the gin engine with all routes registered. Exposed
// separately from Start so tests can drive it with httptest.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(s.loggerMiddleware())
	router.Use(s.recoveryMiddleware())
	if s.metrics != nil {
		router.Use(s.metrics.Middleware())
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Get()})
	})
	if s.metrics != nil {
		path := s.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(s.metrics.Handler()))
	}

	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/register", s.handlers.Register)
		authGroup.POST("/login", s.handlers.Login)
		authGroup.POST("/otp/send", s.handlers.SendOTP)
		authGroup.POST("/otp/verify", s.handlers.VerifyOTP)
		authGroup.GET("/session", s.handlers.GetSession)
		authGroup.POST("/logout", s.handlers.Logout)
	}

	adminGroup := router.Group("/api/admin")
	adminGroup.Use(middleware.Auth(s.logger, s.sessions, s.db, s.resolver, s.cfg.Permission))
	adminGroup.Use(middleware.PlatformOnly())
	{
		adminGroup.GET("/users", s.handlers.ListUsers)
		adminGroup.POST("/users/:id/approve", s.handlers.ApproveUser)
		adminGroup.POST("/users/:id/reject", s.handlers.RejectUser)
		adminGroup.PUT("/users/:id/status", s.handlers.SetUserStatus)
		adminGroup.PUT("/users/:id/role", s.handlers.AssignRole)
		adminGroup.PUT("/users/:id/permissions", s.handlers.UpdatePermissions)
		adminGroup.GET("/customers", s.handlers.ListCustomers)
		adminGroup.PUT("/customers/:id/status", s.handlers.SetCustomerStatus)
		adminGroup.GET("/depots", s.handlers.ListDepots)
		adminGroup.GET("/permission-codes", s.handlers.ListPermissionCodes)
		adminGroup.GET("/stats", s.handlers.Stats)
	}

	return router
}

// Start runs the HTTP server until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler: s.Router(),
	}
	s.logger.Info("starting http server", zap.Int("port", s.cfg.Server.Port))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// loggerMiddleware logs incoming requests and outgoing responses
func (s *Server) loggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.logger.Debug("incoming request",
			zap.String("request_id", middleware.RequestIDFrom(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("remote_addr", c.Request.RemoteAddr),
		)

		c.Next()

		s.logger.Debug("outgoing response",
			zap.String("request_id", middleware.RequestIDFrom(c)),
			zap.Int("status", c.Writer.Status()),
			zap.Int("size", c.Writer.Size()),
		)
	}
}

// recoveryMiddleware recovers from panics and returns 500 error
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
					"code":  "INTERNAL_ERROR",
				})
			}
		}()
		c.Next()
	}
}
