package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/STKYFNGRS/trivia-box-api/internal/handler/dto"
	"github.com/STKYFNGRS/trivia-box-api/internal/middleware"
	apperrors "github.com/STKYFNGRS/trivia-box-api/internal/pkg/errors"
	"github.com/STKYFNGRS/trivia-box-api/internal/service"
)

// SessionHandler обрабатывает запросы жизненного цикла сессий и учета ответов
type SessionHandler struct {
	sessionManager *service.SessionLifecycleManager
	scoreService   *service.ScoreService
}

// NewSessionHandler создает новый обработчик сессий
func NewSessionHandler(sessionManager *service.SessionLifecycleManager, scoreService *service.ScoreService) *SessionHandler {
	return &SessionHandler{
		sessionManager: sessionManager,
		scoreService:   scoreService,
	}
}

// StartSession обрабатывает запрос на создание сессии
// POST /api/sessions
func (h *SessionHandler) StartSession(c *gin.Context) {
	address, ok := middleware.PlayerAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req dto.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.sessionManager.StartSession(c.Request.Context(), service.StartSessionParams{
		PlayerAddress: address,
		Category:      req.Category,
		Difficulty:    req.Difficulty,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrSessionBusy):
			c.JSON(http.StatusConflict, gin.H{"error": "Session creation already in progress", "error_type": "session_busy"})
		case errors.Is(err, apperrors.ErrSessionCreationFailed):
			log.Printf("[SessionHandler] Создание сессии для %s провалено: %v", address, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to create session, please retry", "error_type": "session_creation_failed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusCreated, state)
}

// GetCurrentSession возвращает текущий снапшот состояния для ресинка клиента
// GET /api/sessions/current
func (h *SessionHandler) GetCurrentSession(c *gin.Context) {
	address, ok := middleware.PlayerAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	state := h.sessionManager.CurrentState(address)
	if state == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No active session", "error_type": "not_found"})
		return
	}
	c.JSON(http.StatusOK, state)
}

// ResetSession сбрасывает текущую сессию игрока
// DELETE /api/sessions/current
func (h *SessionHandler) ResetSession(c *gin.Context) {
	address, ok := middleware.PlayerAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	h.sessionManager.Reset(c.Request.Context(), address)
	c.JSON(http.StatusOK, gin.H{"message": "Session reset"})
}

// SubmitAnswer обрабатывает заявку на учет ответа
// POST /api/sessions/answers
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	address, ok := middleware.PlayerAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req dto.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation"})
		return
	}

	result, err := h.scoreService.ProcessSubmission(c.Request.Context(), service.SubmitRequest{
		SessionID:      req.SessionID,
		QuestionID:     req.QuestionID,
		PlayerAddress:  address,
		Answer:         req.Answer,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		IsLastQuestion: req.IsLastQuestion,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation"})
		case errors.Is(err, apperrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session or question not found", "error_type": "not_found"})
		case errors.Is(err, apperrors.ErrRateLimitExceeded):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many submissions", "error_type": "rate_limited"})
		default:
			log.Printf("[SessionHandler] Учет ответа провален (session=%s): %v", req.SessionID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	// Снапшот двигает серверный вывод о последнем вопросе, не клиентский флаг
	if !result.Duplicate {
		h.sessionManager.RecordAnswerOutcome(req.SessionID, result.Points, result.CurrentStreak, result.LastQuestion)
	}

	c.JSON(http.StatusOK, dto.SubmitAnswerResponse{
		Success:       true,
		IsCorrect:     result.IsCorrect,
		CorrectAnswer: result.CorrectAnswer,
		Score: dto.ScorePayload{
			Points:        result.Points,
			CurrentStreak: result.CurrentStreak,
			BestStreak:    result.BestStreak,
		},
		PotentialPoints: result.PotentialPoints,
		Duplicate:       result.Duplicate,
	})
}
