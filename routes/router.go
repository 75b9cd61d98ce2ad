package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"property-governance-backend/api"
	"property-governance-backend/cache"
	"property-governance-backend/config"
	"property-governance-backend/metrics"
	"property-governance-backend/service"
)

// Deps is everything the router needs from the process.
type Deps struct {
	Config    *config.Config
	Log       *logrus.Logger
	DB        *gorm.DB
	Redis     cache.RedisClient // nil when caching is disabled
	Limiter   cache.UserLimiter // nil when rate limiting is disabled
	Proposals service.ProposalService
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Version   string
}

// Server 是HTTP服务器的封装
type Server struct {
	*http.Server
	log *logrus.Logger
}

// SetupRouter builds the gin engine with middleware and all routes.
func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestID(), api.Logger(d.Log, d.Metrics))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     d.Config.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: !allowsAny(d.Config.Server.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}))

	if d.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	group := router.Group("/api")
	api.NewHealthController(d.DB, d.Redis, d.Version).RegisterRoutes(group)

	auth := api.NewAuthenticator(d.Config.Auth.JWTSecret, d.Log)
	protected := group.Group("")
	protected.Use(auth.Middleware(), api.RateLimit(d.Limiter, d.Metrics, d.Log))
	api.NewProposalController(d.Proposals, d.Log).RegisterRoutes(protected)

	return router
}

func allowsAny(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// StartServer starts serving router in the background.
func StartServer(router *gin.Engine, cfg config.ServerConfig, log *logrus.Logger) *Server {
	addr := ":" + cfg.Port
	srv := &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}

	go func() {
		log.WithField("addr", addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	return srv
}

// Shutdown stops accepting requests and waits up to timeout for in-flight
// ones.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "shutdown http server")
	}
	s.log.Info("http server stopped")
	return nil
}
