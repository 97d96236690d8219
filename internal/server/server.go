// Package server exposes voucher builds over HTTP. Uploads are built in the
// background; excursions the rules cannot place wait in a queue that the
// classification endpoints answer, oldest first.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"tripvoucher/internal/config"
	"tripvoucher/internal/decision"
	"tripvoucher/internal/logging"
	"tripvoucher/internal/storage"
)

type Server struct {
	db    *storage.DB
	cfg   config.Config
	log   *slog.Logger
	queue *decision.Queue
	jobs  *jobStore

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(db *storage.DB, cfg config.Config, log *slog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		db:     db,
		cfg:    cfg,
		log:    logging.OrDiscard(log),
		queue:  decision.NewQueue(),
		jobs:   newJobStore(),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (s *Server) Queue() *decision.Queue { return s.queue }

// Close cancels running builds and waits for them to return.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Logger(s.log), gin.Recovery(), CORS(s.cfg.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		s.log.Warn("failed to set trusted proxies", slog.Any("err", err))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	api := r.Group("/api")
	{
		api.GET("/health", s.health)

		vouchers := api.Group("/vouchers")
		vouchers.POST("", s.createVoucher)
		vouchers.GET("", s.listVouchers)
		vouchers.GET("/:id", s.getVoucher)
		vouchers.GET("/:id/xlsx", s.exportVoucher)

		api.GET("/jobs/:id", s.getJob)

		classifications := api.Group("/classifications")
		classifications.GET("", s.listClassifications)
		classifications.POST("/:id", s.resolveClassification)
	}
	return r
}
