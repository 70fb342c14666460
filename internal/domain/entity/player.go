package entity

import (
	"time"
)

// Player представляет агрегат игрока. Идентичность — адрес кошелька;
// подключение кошелька и его персистенция живут вне этого сервиса.
type Player struct {
	Address      string    `gorm:"primaryKey;size:64" json:"address"`
	TotalPoints  int64     `gorm:"not null;default:0" json:"total_points"`
	BestStreak   int       `gorm:"not null;default:0" json:"best_streak"`
	GamesPlayed  int       `gorm:"not null;default:0" json:"games_played"`
	LastPlayedAt time.Time `json:"last_played_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Player) TableName() string {
	return "players"
}
