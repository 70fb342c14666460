package repository

import (
	"context"

	"github.com/STKYFNGRS/trivia-box-api/internal/domain/entity"
)

// SessionRepository определяет методы для работы с игровыми сессиями
type SessionRepository interface {
	Create(ctx context.Context, session *entity.GameSession) error
	GetByID(ctx context.Context, id string) (*entity.GameSession, error)
	// UpdateProgress атомарно продвигает сессию после принятого ответа:
	// score и стрики инкрементируются на стороне SQL, не read-modify-write.
	UpdateProgress(ctx context.Context, id string, pointsDelta int, newStreak int, newIndex int) error
	// TransitionStatus переводит сессию в новый статус, только если переход допустим
	TransitionStatus(ctx context.Context, id string, from, to entity.SessionStatus) error
	// Delete выполняет best-effort удаление сессии (reset/abandonment)
	Delete(ctx context.Context, id string) error
	// DeleteStale удаляет незавершенные сессии старше cutoff, возвращает число удаленных
	DeleteStale(ctx context.Context, olderThanMinutes int) (int64, error)
}
