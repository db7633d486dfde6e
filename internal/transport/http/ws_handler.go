package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"paper-attempt-service/internal/app"
)

// WSHandler pushes a student's leaderboard view whenever standings change.
type WSHandler struct {
	standings    *app.StandingService
	logger       *zap.Logger
	defaultLimit int
	upgrader     websocket.Upgrader
}

func NewWSHandler(standings *app.StandingService, logger *zap.Logger, defaultLimit int) *WSHandler {
	return &WSHandler{
		standings:    standings,
		logger:       logger,
		defaultLimit: defaultLimit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeLeaderboard upgrades the request and streams leaderboard snapshots.
// Browsers cannot set headers on websocket requests, so the student id may
// also come from the studentId query parameter.
func (h *WSHandler) ServeLeaderboard(c *gin.Context) {
	student := c.GetHeader(studentHeader)
	if student == "" {
		student = c.Query("studentId")
	}
	if student == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing student id"})
		return
	}
	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = n
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	updates, cancel := h.standings.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine touches the connection for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	snapshot := func() outboundMessage[any] {
		lb, err := h.standings.GetLeaderboard(ctx, student, limit)
		if err != nil {
			h.logger.Error("ws leaderboard failed", zap.String("student_id", student), zap.Error(err))
			return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "leaderboard unavailable"}}
		}
		return outboundMessage[any]{Type: "leaderboard", Payload: lb}
	}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case _, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- snapshot():
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- snapshot()

	// Clients do not send anything; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
