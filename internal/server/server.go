package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/handlers"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/middleware"
)

type Server struct {
	config     *config.Config
	router     *gin.Engine
	httpServer *http.Server
	handlers   *handlers.Handlers
	logger     *logging.Logger
}

// New builds the router. gatherer backs GET /metrics; nil uses the default
// Prometheus registry.
func New(h *handlers.Handlers, cfg *config.Config, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *logging.Logger) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Metrics(m),
		gin.Recovery(),
	)

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: h,
		logger:   logger,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	s.setupRoutes(gatherer)

	return s
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.router.GET("/health", s.handlers.Health)
	s.router.GET("/ready", s.handlers.Ready)
	s.router.GET("/live", s.handlers.Live)
	s.router.GET("/version", s.handlers.Version)
	s.router.GET("/debug", s.handlers.Debug)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/products", s.handlers.ListProducts)
		v1.GET("/products/:ids", s.handlers.GetProducts)

		users := v1.Group("/users/:user_id", middleware.Principal())
		{
			users.GET("/cart", s.handlers.GetCart)
			users.POST("/cart", s.handlers.AddToCart)
			users.PUT("/cart", s.handlers.UpdateCart)
			users.DELETE("/cart", s.handlers.RemoveFromCart)

			users.POST("/checkout", s.handlers.Checkout)

			users.POST("/orders", s.handlers.CreateOrder)
			users.GET("/orders", s.handlers.ListOrders)
			users.DELETE("/orders", s.handlers.DeleteOrder)
		}
	}
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("Starting server", logging.Fields{"addr": s.httpServer.Addr})
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
