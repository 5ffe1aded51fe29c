// Package server is the HTTP API in front of the chat service and the tools.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"miseagent"
	"miseagent/coordinator"
	"miseagent/tools"
)

type Server struct {
	chat          *coordinator.Chat
	tools         miseagent.ToolProvider
	shared        *tools.SharedLists
	secret        []byte
	publicBaseURL string
	tracer        trace.Tracer
}

func New(chat *coordinator.Chat, tp miseagent.ToolProvider, shared *tools.SharedLists, cfg miseagent.ServerConfig) *Server {
	return &Server{
		chat:          chat,
		tools:         tp,
		shared:        shared,
		secret:        []byte(cfg.JWTSecret),
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		tracer:        otel.Tracer(miseagent.TracerNameServer),
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/api/shared/:token", s.getShared)

	api := r.Group("/api")
	api.Use(AuthMiddleware(s.secret))
	{
		api.POST("/chat", s.sendMessage)
		api.GET("/chat", s.getHistory)
		api.DELETE("/chat", s.resetChat)

		api.GET("/tools", s.listTools)
		api.POST("/tools/:name", s.callTool)

		api.POST("/shopping-list/share", s.shareList)
		api.POST("/shared/:token/import", s.importShared)
	}

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		slog.Info("SERVER: Request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
		)
	}
}

func (s *Server) sendMessage(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	ctx, span := s.tracer.Start(c.Request.Context(), "Server.SendMessage")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", userID(c)))

	reply, err := s.chat.Send(ctx, userID(c), strings.TrimSpace(req.Message))
	if err != nil {
		span.RecordError(err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (s *Server) getHistory(c *gin.Context) {
	session, err := s.chat.History(c.Request.Context(), userID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (s *Server) resetChat(c *gin.Context) {
	if err := s.chat.Reset(c.Request.Context(), userID(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type toolInfo struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	InputSchema any    `json:"input_schema"`
}

func (s *Server) listTools(c *gin.Context) {
	all := s.tools.GetTools()
	out := make([]toolInfo, 0, len(all))
	for _, t := range all {
		out = append(out, toolInfo{Name: t.Name(), Title: t.Title(), Description: t.Description(), InputSchema: t.InputSchema()})
	}
	c.JSON(http.StatusOK, gin.H{"tools": out})
}

func (s *Server) callTool(c *gin.Context) {
	name := c.Param("name")
	tool, err := s.tools.GetTool(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": tools.NotHandled(name)})
		return
	}

	input := map[string]any{}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON object"})
			return
		}
	}

	out, err := tool.Run(tools.WithUserID(c.Request.Context(), userID(c)), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) shareList(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
	}

	shared, err := s.shared.Share(c.Request.Context(), userID(c), req.Title)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"share_token": shared.ShareToken,
		"url":         s.publicBaseURL + "/api/shared/" + shared.ShareToken,
		"title":       shared.Title,
		"expires_at":  shared.ExpiresAt,
	})
}

func (s *Server) getShared(c *gin.Context) {
	shared, err := s.shared.Get(c.Request.Context(), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, shared)
}

func (s *Server) importShared(c *gin.Context) {
	shared, err := s.shared.Import(c.Request.Context(), userID(c), c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"title":    shared.Title,
		"imported": len(shared.Items),
	})
}

// writeError maps handler error kinds to HTTP statuses.
func writeError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, tools.Message(err)
	switch {
	case errors.Is(err, coordinator.ErrEmptyMessage):
		status, msg = http.StatusBadRequest, "message is required"
	case errors.Is(err, tools.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, tools.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, tools.ErrNoSession):
		status = http.StatusUnauthorized
	case errors.Is(err, tools.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		slog.Error("SERVER: Request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": msg})
}
