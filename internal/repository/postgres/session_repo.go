package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/STKYFNGRS/trivia-box-api/internal/domain/entity"
	apperrors "github.com/STKYFNGRS/trivia-box-api/internal/pkg/errors"
)

// SessionRepo реализует repository.SessionRepository
type SessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo создает новый репозиторий сессий
func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create сохраняет новую сессию
func (r *SessionRepo) Create(ctx context.Context, session *entity.GameSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// GetByID возвращает сессию по идентификатору
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*entity.GameSession, error) {
	var session entity.GameSession
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// UpdateProgress атомарно применяет результат принятого ответа:
// score инкрементируется выражением SQL, стрики и индекс перезаписываются.
func (r *SessionRepo) UpdateProgress(ctx context.Context, id string, pointsDelta int, newStreak int, newIndex int) error {
	result := r.db.WithContext(ctx).Model(&entity.GameSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"score":          gorm.Expr("score + ?", pointsDelta),
			"current_streak": newStreak,
			"best_streak":    gorm.Expr("GREATEST(best_streak, ?)", newStreak),
			"current_index":  newIndex,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// TransitionStatus переводит сессию из from в to. Переход применяется
// одним UPDATE с условием по текущему статусу, чтобы конкурентный переход
// не мог откатить сессию назад.
func (r *SessionRepo) TransitionStatus(ctx context.Context, id string, from, to entity.SessionStatus) error {
	updates := map[string]interface{}{"status": to}
	if to == entity.SessionStatusCompleted || to == entity.SessionStatusCancelled {
		updates["ended_at"] = time.Now()
	}

	result := r.db.WithContext(ctx).Model(&entity.GameSession{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("session %s is not in status %q: %w", id, from, apperrors.ErrNotFound)
	}
	return nil
}

// Delete удаляет сессию вместе с ответами (ON DELETE CASCADE в миграции)
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&entity.GameSession{}, "id = ?", id).Error
}

// DeleteStale удаляет брошенные незавершенные сессии старше cutoff
func (r *SessionRepo) DeleteStale(ctx context.Context, olderThanMinutes int) (int64, error) {
	cutoff := time.Now().Add(-time.Duration(olderThanMinutes) * time.Minute)
	result := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?",
			[]entity.SessionStatus{entity.SessionStatusPending, entity.SessionStatusActive}, cutoff).
		Delete(&entity.GameSession{})
	return result.RowsAffected, result.Error
}
