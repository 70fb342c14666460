package service

import (
	"context"
	"errors"

	apperrors "github.com/STKYFNGRS/trivia-box-api/internal/pkg/errors"
	"github.com/STKYFNGRS/trivia-box-api/internal/service/gamesession"
)

// ScoreServiceSender адаптирует авторитетный ScoreService под
// gamesession.SubmissionSender. Двухфазный контракт сохраняется и внутри
// одного процесса: координатор строит заявку и оптимистичную оценку,
// сервис пересчитывает и его результат всегда побеждает.
type ScoreServiceSender struct {
	scoreService *ScoreService
}

// NewScoreServiceSender создает адаптер отправки заявок
func NewScoreServiceSender(scoreService *ScoreService) *ScoreServiceSender {
	return &ScoreServiceSender{scoreService: scoreService}
}

// Send реализует gamesession.SubmissionSender
func (s *ScoreServiceSender) Send(ctx context.Context, req *gamesession.SubmissionRequest) (*gamesession.SubmissionResponse, error) {
	result, err := s.scoreService.ProcessSubmission(ctx, SubmitRequest{
		SessionID:      req.SessionID,
		QuestionID:     req.QuestionID,
		PlayerAddress:  req.Identity,
		Answer:         req.Answer,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		IsLastQuestion: req.IsLastQuestion,
	})
	if err != nil {
		// Отказы по существу заявки возвращаются как отклонение в теле ответа,
		// а не как транспортная ошибка. Они окончательные: повтор той же
		// заявки даст тот же отказ.
		if errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrRateLimitExceeded) {
			return &gamesession.SubmissionResponse{Success: false, Error: err.Error(), Terminal: true}, nil
		}
		return nil, err
	}

	return &gamesession.SubmissionResponse{
		Success:       true,
		IsCorrect:     result.IsCorrect,
		CorrectAnswer: result.CorrectAnswer,
		Score: gamesession.SubmissionScore{
			Points:        result.Points,
			CurrentStreak: result.CurrentStreak,
			BestStreak:    result.BestStreak,
		},
	}, nil
}
