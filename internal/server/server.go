package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agenthands/kgfed/internal/core"
	"github.com/agenthands/kgfed/internal/core/model"
	"github.com/agenthands/kgfed/internal/core/querylog"
)

// Querier runs one query graph.
type Querier interface {
	Query(ctx context.Context, g model.QueryGraph) (*core.Response, error)
}

type Server struct {
	Engine Querier
	Logger *slog.Logger
}

func NewServer(engine Querier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Engine: engine, Logger: logger}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/query", s.Query)
	r.GET("/health", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type QueryRequest struct {
	Message struct {
		QueryGraph *model.QueryGraph `json:"query_graph"`
	} `json:"message"`
}

type QueryResponse struct {
	QueryID string           `json:"query_id"`
	Status  core.Status      `json:"status"`
	Message ResponseMessage  `json:"message"`
	Logs    []querylog.Entry `json:"logs"`
}

type ResponseMessage struct {
	Results []model.Result `json:"results"`
}

func (s *Server) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Message.QueryGraph == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message.query_graph is required"})
		return
	}

	resp, err := s.Engine.Query(c.Request.Context(), *req.Message.QueryGraph)
	if err != nil {
		if errors.Is(err, model.ErrInvalidQueryGraph) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.Logger.Error("query failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run query"})
		return
	}

	c.JSON(http.StatusOK, QueryResponse{
		QueryID: resp.QueryID,
		Status:  resp.Status,
		Message: ResponseMessage{Results: resp.Results},
		Logs:    resp.Logs,
	})
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
