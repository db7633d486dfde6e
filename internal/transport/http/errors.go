package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"paper-attempt-service/internal/domain"
)

// statusFor maps a domain error category to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPaymentRequired):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrQuotaExceeded),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("student_id", studentID(c)),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	body := gin.H{"error": err.Error()}
	var (
		quota    *domain.QuotaExceededError
		payment  *domain.PaymentRequiredError
		progress *domain.AttemptInProgressError
	)
	switch {
	case errors.As(err, &quota):
		body["code"] = "quota_exceeded"
		body["attemptsAllowed"] = quota.AttemptsAllowed
		body["attemptsUsed"] = quota.AttemptsUsed
		body["lastAttemptId"] = quota.LastAttemptID
	case errors.As(err, &payment):
		body["code"] = "payment_required"
		body["paperId"] = payment.PaperID
		body["amount"] = payment.Amount
	case errors.As(err, &progress):
		body["code"] = "attempt_in_progress"
		body["attemptId"] = progress.AttemptID
	case errors.Is(err, domain.ErrConflict):
		body["code"] = "conflict"
		body["retryable"] = true
	}
	c.JSON(status, body)
}
