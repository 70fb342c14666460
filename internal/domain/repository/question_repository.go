package repository

import (
	"context"

	"github.com/STKYFNGRS/trivia-box-api/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с сохраненными вопросами.
// Вопросы сохраняются при создании сессии, чтобы сервер мог независимо
// проверить правильность ответа, не доверяя клиенту.
type QuestionRepository interface {
	// SaveBatch сохраняет набор вопросов; уже существующие не перезаписываются
	SaveBatch(ctx context.Context, questions []entity.Question) error
	GetByID(ctx context.Context, id string) (*entity.Question, error)
}
