package repository

import (
	"context"

	"github.com/STKYFNGRS/trivia-box-api/internal/domain/entity"
)

// PlayerRepository определяет методы для работы с агрегатами игроков
type PlayerRepository interface {
	// Upsert создает игрока, если его еще нет (идемпотентно по адресу)
	Upsert(ctx context.Context, address string) error
	GetByAddress(ctx context.Context, address string) (*entity.Player, error)
	// AddPoints атомарно инкрементирует total_points (конкурентные сессии
	// одного игрока не должны терять очки на read-modify-write)
	AddPoints(ctx context.Context, address string, points int) error
	// UpdateBestStreak поднимает best_streak, только если новое значение больше
	UpdateBestStreak(ctx context.Context, address string, streak int) error
	IncrementGamesPlayed(ctx context.Context, address string) error
	// GetLeaderboard возвращает игроков по убыванию total_points с общим количеством
	GetLeaderboard(ctx context.Context, limit, offset int) ([]entity.Player, int64, error)
}
