// Package server 是 Blob / Node 服务的 HTTP 传输层 (gin)
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"anchorage/pkg/api"
	"anchorage/pkg/apperr"
	"anchorage/pkg/metrics"
	"anchorage/pkg/service"

	"github.com/gin-gonic/gin"
)

// DefaultBodyLimit 能容纳一个 10MiB 块的 Base64 编码和 JSON 外壳
const DefaultBodyLimit = 14 * 1024 * 1024

type Options struct {
	// BodyLimit 请求体上限 (字节)，<=0 时使用 DefaultBodyLimit
	BodyLimit int64
}

// Server 持有 gin Engine 以及它依赖的服务
type Server struct {
	Engine *gin.Engine

	blobs   *service.BlobService
	nodes   *service.NodeService
	metrics *metrics.Metrics
}

func New(blobs *service.BlobService, nodes *service.NodeService, m *metrics.Metrics, opts Options) *Server {
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = DefaultBodyLimit
	}
	if m == nil {
		m = metrics.New()
	}

	s := &Server{
		Engine:  newEngine(m, opts.BodyLimit),
		blobs:   blobs,
		nodes:   nodes,
		metrics: m,
	}
	s.routes()
	return s
}

func newEngine(m *metrics.Metrics, limit int64) *gin.Engine {
	engine := gin.New()
	engine.Use(
		requestContext(),
		accessLog(),
		engineMetrics(m),
		recovery(),
		bodyLimit(limit),
	)
	engine.NoRoute(func(c *gin.Context) {
		renderError(c, apperr.Newf(apperr.NotFound, "no route for %s %s", c.Request.Method, c.Request.URL.Path).
			WithOp(rcFrom(c).Op))
	})
	return engine
}

func (s *Server) routes() {
	s.Engine.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	s.Engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	blob := s.Engine.Group("/blob")
	{
		blob.POST("", s.handleCreateBlob)
		blob.GET("/:hash", s.handleFetchBlob)
	}

	node := s.Engine.Group("/node")
	{
		node.POST("", s.handleCreateNode)
		node.GET("/:id", s.handleGetNode)
	}
}

func (s *Server) handleCreateBlob(c *gin.Context) {
	rc := rcFrom(c)

	var req api.CreateBlobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, bindError(err, rc))
		return
	}

	id, err := s.blobs.CreateBlob(c.Request.Context(), rc, req.Data)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.CreateBlobResponse{Created: id.String()})
}

func (s *Server) handleFetchBlob(c *gin.Context) {
	rc := rcFrom(c)

	contents, err := s.blobs.FetchBlob(c.Request.Context(), rc, c.Param("hash"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.BlobResponse{Contents: contents})
}

func (s *Server) handleCreateNode(c *gin.Context) {
	rc := rcFrom(c)

	var req api.CreateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, bindError(err, rc))
		return
	}

	node, err := s.nodes.CreateNode(c.Request.Context(), rc, req.Type, req.Blobs)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, node)
}

func (s *Server) handleGetNode(c *gin.Context) {
	rc := rcFrom(c)

	node, err := s.nodes.GetNode(c.Request.Context(), rc, c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

// bindError 把请求体解析失败 (含超出大小限制) 翻译为 BadRequest
func bindError(err error, rc service.RequestContext) *apperr.Error {
	msg := "malformed request body"
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		msg = "request body too large"
	}
	return apperr.Wrap(err, msg, apperr.BadRequest).WithOp(rc.Op).WithUser(rc.User)
}

// renderError 按 Kind 选择状态码，以 Record 作为响应体
func renderError(c *gin.Context, err error) {
	_ = c.Error(err)
	kind := apperr.KindOf(err)
	c.AbortWithStatusJSON(kind.HTTPStatus(), apperr.ToRecord(err))
}

// Run 监听 addr 直到 ctx 结束，然后优雅关闭
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("🚀 anchoraged listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("🛑 shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
