package repository

import (
	"context"

	"github.com/STKYFNGRS/trivia-box-api/internal/domain/entity"
)

// ResponseRepository определяет методы для работы с ответами игроков
type ResponseRepository interface {
	// Save сохраняет ответ. При нарушении уникальности (session, question, player)
	// возвращает apperrors.ErrDuplicateSubmission — ответ уже записан.
	Save(ctx context.Context, response *entity.PlayerResponse) error
	// GetBySessionQuestion возвращает записанный ответ игрока на вопрос сессии
	GetBySessionQuestion(ctx context.Context, sessionID, questionID, playerAddress string) (*entity.PlayerResponse, error)
	// GetBySession возвращает все ответы сессии в порядке отправки
	GetBySession(ctx context.Context, sessionID string) ([]entity.PlayerResponse, error)
}
