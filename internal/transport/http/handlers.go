package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type startRequest struct {
	PaperID string `json:"paperId" binding:"required"`
}

type answerRequest struct {
	QuestionID      string `json:"questionId" binding:"required"`
	SelectedIndexes []int  `json:"selectedIndexes"`
}

func (h *Handler) startAttempt(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	started, err := h.attempts.StartAttempt(c.Request.Context(), studentID(c), req.PaperID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, started)
}

func (h *Handler) saveAnswer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	saved, err := h.attempts.SaveAnswer(c.Request.Context(), studentID(c), c.Param("attemptId"), req.QuestionID, req.SelectedIndexes)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) submit(c *gin.Context) {
	res, err := h.attempts.SubmitAttempt(c.Request.Context(), studentID(c), c.Param("attemptId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) attemptQuestions(c *gin.Context) {
	sheet, err := h.attempts.GetAttemptQuestions(c.Request.Context(), studentID(c), c.Param("attemptId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sheet)
}

func (h *Handler) attemptSummary(c *gin.Context) {
	summary, err := h.attempts.GetAttemptSummary(c.Request.Context(), studentID(c), c.Param("attemptId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) review(c *gin.Context) {
	review, err := h.attempts.GetReview(c.Request.Context(), studentID(c), c.Param("attemptId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

func (h *Handler) attemptsForPaper(c *gin.Context) {
	usage, err := h.attempts.GetAttemptsForPaper(c.Request.Context(), studentID(c), c.Param("paperId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

func (h *Handler) completed(c *gin.Context) {
	items, err := h.standings.GetCompletedPapers(c.Request.Context(), studentID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.standings.GetStats(c.Request.Context(), studentID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) progress(c *gin.Context) {
	progress, err := h.standings.GetProgress(c.Request.Context(), studentID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (h *Handler) leaderboard(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"), h.defaultLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
		return
	}
	lb, err := h.standings.GetLeaderboard(c.Request.Context(), studentID(c), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lb)
}

// parseLimit returns fallback for an empty value; clamping happens in the service.
func parseLimit(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
