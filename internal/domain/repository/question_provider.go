package repository

import (
	"context"

	"github.com/STKYFNGRS/trivia-box-api/internal/domain/entity"
)

// QuestionRequest описывает запрос набора вопросов у внешнего провайдера
type QuestionRequest struct {
	Category   string
	Difficulty string
	Count      int
}

// QuestionProvider определяет интерфейс внешнего поставщика вопросов
// (LLM-генерация и валидация — внутри коллаборатора, ядру не видны).
// Возвращает ровно Count одобренных вопросов либо типизированную ошибку.
type QuestionProvider interface {
	FetchQuestions(ctx context.Context, req QuestionRequest) ([]entity.Question, error)
}
