package postgres

import (
	"context"
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/STKYFNGRS/trivia-box-api/internal/domain/entity"
	apperrors "github.com/STKYFNGRS/trivia-box-api/internal/pkg/errors"
)

// ResponseRepo реализует repository.ResponseRepository
type ResponseRepo struct {
	db *gorm.DB
}

// NewResponseRepo создает новый репозиторий ответов
func NewResponseRepo(db *gorm.DB) *ResponseRepo {
	return &ResponseRepo{db: db}
}

// Save сохраняет ответ игрока. Уникальный индекс (session, question, player)
// в БД — источник истины для подавления дубликатов: нарушение маппится
// в ErrDuplicateSubmission, а не возвращается как сырая ошибка драйвера.
func (r *ResponseRepo) Save(ctx context.Context, response *entity.PlayerResponse) error {
	err := r.db.WithContext(ctx).Create(response).Error
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // 23505 - unique_violation
			return apperrors.ErrDuplicateSubmission
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.ErrDuplicateSubmission
		}
		return err
	}
	return nil
}

// GetBySessionQuestion возвращает записанный ответ игрока на конкретный вопрос
func (r *ResponseRepo) GetBySessionQuestion(ctx context.Context, sessionID, questionID, playerAddress string) (*entity.PlayerResponse, error) {
	var response entity.PlayerResponse
	err := r.db.WithContext(ctx).
		First(&response, "session_id = ? AND question_id = ? AND player_address = ?",
			sessionID, questionID, playerAddress).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &response, nil
}

// GetBySession возвращает все ответы сессии в порядке отправки
func (r *ResponseRepo) GetBySession(ctx context.Context, sessionID string) ([]entity.PlayerResponse, error) {
	var responses []entity.PlayerResponse
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("answered_at ASC").
		Find(&responses).Error
	return responses, err
}
