package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paper-attempt-service/internal/app"
	"paper-attempt-service/internal/metrics"
)

const studentHeader = "X-Student-ID"

// Handler exposes the attempt and standing use cases over REST and websocket.
type Handler struct {
	attempts     *app.AttemptService
	standings    *app.StandingService
	logger       *zap.Logger
	defaultLimit int
	ws           *WSHandler
}

func NewHandler(attempts *app.AttemptService, standings *app.StandingService, logger *zap.Logger, defaultLimit int) *Handler {
	return &Handler{
		attempts:     attempts,
		standings:    standings,
		logger:       logger,
		defaultLimit: defaultLimit,
		ws:           NewWSHandler(standings, logger, defaultLimit),
	}
}

// NewRouter wires middleware and routes. m may be nil.
func NewRouter(h *Handler, m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger), m.Middleware())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(m.Handler()))
	r.GET("/ws/leaderboard", h.ws.ServeLeaderboard)

	api := r.Group("/api", requireStudent())
	{
		api.POST("/attempts", h.startAttempt)
		api.GET("/attempts/:attemptId/questions", h.attemptQuestions)
		api.GET("/attempts/:attemptId/summary", h.attemptSummary)
		api.GET("/attempts/:attemptId/review", h.review)
		api.PUT("/attempts/:attemptId/answers", h.saveAnswer)
		api.POST("/attempts/:attemptId/submit", h.submit)
		api.GET("/papers/:paperId/attempts", h.attemptsForPaper)

		api.GET("/me/completed", h.completed)
		api.GET("/me/stats", h.stats)
		api.GET("/me/progress", h.progress)
		api.GET("/leaderboard", h.leaderboard)
	}
	return r
}

// requireStudent reads the caller identity set by the upstream gateway.
func requireStudent() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(studentHeader)
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + studentHeader + " header"})
			return
		}
		c.Set(studentHeader, id)
		c.Next()
	}
}

func studentID(c *gin.Context) string {
	return c.GetString(studentHeader)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
