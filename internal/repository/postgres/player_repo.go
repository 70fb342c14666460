package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/STKYFNGRS/trivia-box-api/internal/domain/entity"
	apperrors "github.com/STKYFNGRS/trivia-box-api/internal/pkg/errors"
)

// PlayerRepo реализует repository.PlayerRepository
type PlayerRepo struct {
	db *gorm.DB
}

// NewPlayerRepo создает новый репозиторий игроков
func NewPlayerRepo(db *gorm.DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

// Upsert создает игрока, если его еще нет. Повторный вызов — no-op.
func (r *PlayerRepo) Upsert(ctx context.Context, address string) error {
	player := &entity.Player{
		Address:      address,
		LastPlayedAt: time.Now(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"last_played_at": time.Now()}),
		}).
		Create(player).Error
}

// GetByAddress возвращает игрока по адресу кошелька
func (r *PlayerRepo) GetByAddress(ctx context.Context, address string) (*entity.Player, error) {
	var player entity.Player
	err := r.db.WithContext(ctx).First(&player, "address = ?", address).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &player, nil
}

// AddPoints атомарно инкрементирует total_points.
// Конкурентные сессии могут гоняться за агрегатом одного игрока,
// поэтому инкремент выполняется выражением SQL, а не read-modify-write.
func (r *PlayerRepo) AddPoints(ctx context.Context, address string, points int) error {
	return r.db.WithContext(ctx).Model(&entity.Player{}).
		Where("address = ?", address).
		UpdateColumn("total_points", gorm.Expr("total_points + ?", points)).Error
}

// UpdateBestStreak поднимает best_streak, только если новое значение больше текущего
func (r *PlayerRepo) UpdateBestStreak(ctx context.Context, address string, streak int) error {
	return r.db.WithContext(ctx).Model(&entity.Player{}).
		Where("address = ? AND best_streak < ?", address, streak).
		UpdateColumn("best_streak", streak).Error
}

// IncrementGamesPlayed увеличивает счетчик сыгранных игр
func (r *PlayerRepo) IncrementGamesPlayed(ctx context.Context, address string) error {
	return r.db.WithContext(ctx).Model(&entity.Player{}).
		Where("address = ?", address).
		UpdateColumn("games_played", gorm.Expr("games_played + ?", 1)).Error
}

// GetLeaderboard возвращает игроков по убыванию total_points с пагинацией
func (r *PlayerRepo) GetLeaderboard(ctx context.Context, limit, offset int) ([]entity.Player, int64, error) {
	var players []entity.Player
	var total int64

	if err := r.db.WithContext(ctx).Model(&entity.Player{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Order("total_points DESC, best_streak DESC").
		Limit(limit).Offset(offset).
		Find(&players).Error
	return players, total, err
}
